package env

import (
	"fmt"
	"os"
	"strings"

	"github.com/abdul-hamid-achik/hitnet/packages/network"
)

// Prefix is the prefix of hitnet's environment variables.
const Prefix = "HITNET_"

// LoadSystemEnv returns process environment variables starting with prefix,
// with the prefix stripped. An empty prefix returns everything.
func LoadSystemEnv(prefix string) map[string]string {
	result := make(map[string]string)
	for _, e := range os.Environ() {
		key, value, ok := strings.Cut(e, "=")
		if !ok {
			continue
		}
		if prefix == "" {
			result[key] = value
		} else if len(key) > len(prefix) && strings.HasPrefix(key, prefix) {
			result[key[len(prefix):]] = value
		}
	}
	return result
}

// FromVariables builds an environment from SCHEME, HOST and PATH entries.
// SCHEME defaults to https. ok is false when no HOST is present.
func FromVariables(name string, vars map[string]string) (network.StaticEnvironment, bool) {
	host := vars["HOST"]
	if host == "" {
		return network.StaticEnvironment{}, false
	}
	scheme := vars["SCHEME"]
	if scheme == "" {
		scheme = "https"
	}
	return network.StaticEnvironment{
		Name:       name,
		SchemeName: scheme,
		HostName:   host,
		BasePath:   vars["PATH"],
	}, true
}

// FromSystem builds an environment from HITNET_SCHEME, HITNET_HOST and
// HITNET_PATH.
func FromSystem() (network.StaticEnvironment, error) {
	env, ok := FromVariables("system", LoadSystemEnv(Prefix))
	if !ok {
		return network.StaticEnvironment{}, fmt.Errorf("%sHOST is not set", Prefix)
	}
	return env, nil
}
