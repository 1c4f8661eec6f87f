package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/abdul-hamid-achik/hitnet/packages/logging"
	"github.com/abdul-hamid-achik/hitnet/packages/mock"
)

var (
	mockPortFlag       int
	mockDelayFlag      string
	mockPrefixFlag     string
	mockCookieNameFlag string
	mockTokenFlag      string
	mockVerboseFlag    bool
)

var mockCmd = &cobra.Command{
	Use:   "mock",
	Short: "Start a fake session API",
	Long: `Start an HTTP server that behaves like a session-cookie API.

The mock server:
- Issues the session cookie on POST {prefix}login
- Clears it on POST {prefix}logout
- Answers 401 on every other route without a valid cookie
- Echoes method, path, query and JSON body back for authorized calls
- Can add artificial delays to simulate network latency

Examples:
  hitnet mock
  hitnet mock --port 3000 --prefix /mockAPI/v1/
  hitnet mock --delay 100ms --cookie-name sid`,
	Args: cobra.NoArgs,
	RunE: mockCommand,
}

func init() {
	mockCmd.Flags().IntVarP(&mockPortFlag, "port", "p", getEnvInt("HITNET_MOCK_PORT", 3000), "Port to run the mock server on (env: HITNET_MOCK_PORT)")
	mockCmd.Flags().StringVarP(&mockDelayFlag, "delay", "d", "0", "Delay to add to all responses (e.g., 100ms, 1s)")
	mockCmd.Flags().StringVar(&mockPrefixFlag, "prefix", "/", "Path prefix the API is mounted under")
	mockCmd.Flags().StringVar(&mockCookieNameFlag, "cookie-name", mock.DefaultCookieName, "Session cookie name")
	mockCmd.Flags().StringVar(&mockTokenFlag, "token", "", "Fixed session token (default: random)")
	mockCmd.Flags().BoolVarP(&mockVerboseFlag, "verbose", "v", false, "Log every request")
}

func mockCommand(cmd *cobra.Command, args []string) error {
	var delay time.Duration
	if mockDelayFlag != "0" {
		var err error
		delay, err = time.ParseDuration(mockDelayFlag)
		if err != nil {
			return withExitCode(ExitUsageError, fmt.Errorf("invalid delay value %q: %w", mockDelayFlag, err))
		}
	}

	logCfg := logging.DefaultConfig()
	logCfg.Development = true
	if mockVerboseFlag {
		logCfg.Level = "debug"
	}
	logger, err := logging.New(logCfg)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	server := mock.NewServer(
		mock.WithPort(mockPortFlag),
		mock.WithDelay(delay),
		mock.WithPrefix(mockPrefixFlag),
		mock.WithCookieName(mockCookieNameFlag),
		mock.WithToken(mockTokenFlag),
		mock.WithLogger(logger),
	)

	// Setup graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigCh
		fmt.Fprintln(cmd.OutOrStdout(), "\nShutting down mock server...")
		cancel()
	}()

	return server.StartWithContext(ctx)
}
