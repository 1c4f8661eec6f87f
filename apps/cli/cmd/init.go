package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/abdul-hamid-achik/hitnet/packages/core/config"
	"github.com/abdul-hamid-achik/hitnet/packages/mock"
)

var forceInit bool

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a starter hitnet configuration",
	Long: `Write a starter configuration file to the current directory.

This creates:
  .hitnet.yaml   - Environments, session cookie and client settings

Examples:
  hitnet init
  hitnet init --force`,
	Args: cobra.NoArgs,
	RunE: initCommand,
}

func init() {
	initCmd.Flags().BoolVarP(&forceInit, "force", "f", false, "Overwrite an existing file")
}

// starterConfig returns the configuration written by init. The dev
// environment points at the server started by "hitnet mock".
func starterConfig() *config.Config {
	cfg := config.DefaultConfig()
	cfg.SessionCookieName = mock.DefaultCookieName
	cfg.Headers = map[string]string{
		"User-Agent": "hitnet/1.0",
	}
	cfg.Environments = map[string]config.EnvironmentConfig{
		"dev": {
			Scheme: "http",
			Host:   "localhost:3000",
			Path:   "",
		},
		"staging": {
			Scheme: "https",
			Host:   "staging.api.example.com",
			Path:   "v1/",
		},
		"prod": {
			Scheme: "https",
			Host:   "api.example.com",
			Path:   "v1/",
		},
	}
	return cfg
}

func initCommand(cmd *cobra.Command, args []string) error {
	cwd, err := os.Getwd()
	if err != nil {
		return err
	}

	configFile := filepath.Join(cwd, ".hitnet.yaml")
	if !forceInit {
		if _, err := os.Stat(configFile); err == nil {
			return withExitCode(ExitUsageError, fmt.Errorf("file already exists: %s (use --force to overwrite)", configFile))
		}
	}

	if err := starterConfig().SaveConfig(configFile); err != nil {
		return withExitCode(ExitConfigError, fmt.Errorf("failed to create config file: %w", err))
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Created: %s\n", configFile)

	fmt.Fprintf(cmd.OutOrStdout(), "\nhitnet project initialized!\n")
	fmt.Fprintf(cmd.OutOrStdout(), "Run 'hitnet mock' and then 'hitnet request POST login' to try it.\n")

	return nil
}
