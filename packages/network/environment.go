package network

import "fmt"

// Environment is a named target that endpoints are resolved against.
type Environment interface {
	Scheme() string
	Host() string
	Path() string
}

// EnvironmentURL returns scheme://host/path for env.
func EnvironmentURL(env Environment) string {
	return fmt.Sprintf("%s://%s/%s", env.Scheme(), env.Host(), env.Path())
}

// StaticEnvironment is an Environment with fixed values.
type StaticEnvironment struct {
	Name       string `json:"name,omitempty" yaml:"name,omitempty"`
	SchemeName string `json:"scheme" yaml:"scheme"`
	HostName   string `json:"host" yaml:"host"`
	BasePath   string `json:"path" yaml:"path"`
}

// NewEnvironment returns a StaticEnvironment for scheme, host and path.
func NewEnvironment(scheme, host, path string) StaticEnvironment {
	return StaticEnvironment{SchemeName: scheme, HostName: host, BasePath: path}
}

func (e StaticEnvironment) Scheme() string { return e.SchemeName }
func (e StaticEnvironment) Host() string   { return e.HostName }
func (e StaticEnvironment) Path() string   { return e.BasePath }

// URL returns the environment's base URL.
func (e StaticEnvironment) URL() string {
	return EnvironmentURL(e)
}
