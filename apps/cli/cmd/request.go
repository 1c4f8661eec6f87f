package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/abdul-hamid-achik/hitnet/packages/capture"
	"github.com/abdul-hamid-achik/hitnet/packages/core/config"
	"github.com/abdul-hamid-achik/hitnet/packages/network"
	"github.com/abdul-hamid-achik/hitnet/packages/output"
	"github.com/abdul-hamid-achik/hitnet/packages/schema"
	"github.com/abdul-hamid-achik/hitnet/packages/stats"
)

var requestCmd = &cobra.Command{
	Use:     "request <METHOD> <endpoint>",
	Aliases: []string{"req"},
	Short:   "Send a call to an API environment",
	Long: `Send a GET, POST, PUT, PATCH or DELETE call to an endpoint of the
selected environment. GET params become the query string; POST, PUT and
PATCH params are sent as a JSON body.

Examples:
  hitnet request GET users -P page=2
  hitnet request POST users -d '{"name": "Ada"}' --env staging
  hitnet request GET me --login login --login-data '{"user": "ada"}'
  hitnet request GET me --auth --cookie-store sqlite://.hitnet/cookies.db
  hitnet request GET users --repeat 50 --rate 10 --output json
  hitnet request GET users/1 --capture id=id --schema user.schema.json`,
	Args: cobra.ExactArgs(2),
	RunE: requestCommand,
}

const (
	// WatchDebounceDelay is the debounce delay for file watch events
	WatchDebounceDelay = 300 * time.Millisecond
)

var (
	envFlag         string
	envFileFlag     string
	configFlag      string
	paramFlags      []string
	dataFlag        string
	headerFlags     []string
	authFlag        bool
	loginFlag       string
	loginDataFlag   string
	logoutFlag      bool
	cookieNameFlag  string
	cookieStoreFlag string
	captureFlags    []string
	schemaFlag      string
	repeatFlag      int
	rateFlag        float64
	watchFlag       bool
	outputFlag      string
	noColorFlag     bool
	verboseFlag     int // 0=off, 1=-v, 2=-vv
	timeoutFlag     string
	proxyFlag       string
	insecureFlag    bool
)

func init() {
	// Core flags
	requestCmd.Flags().StringVarP(&envFlag, "env", "e", getEnvString("HITNET_ENV", ""), "Environment to use (default: config defaultEnvironment) (env: HITNET_ENV)")
	requestCmd.Flags().StringVar(&envFileFlag, "env-file", getEnvString("HITNET_ENV_FILE", ""), "Path to .env file exported before resolving the environment (env: HITNET_ENV_FILE)")
	requestCmd.Flags().StringVar(&configFlag, "config", getEnvString("HITNET_CONFIG", ""), "Path to config file (env: HITNET_CONFIG)")

	// Call flags
	requestCmd.Flags().StringArrayVarP(&paramFlags, "param", "P", nil, "Call param as key=value (repeatable)")
	requestCmd.Flags().StringVarP(&dataFlag, "data", "d", "", "Call params as a JSON document")
	requestCmd.Flags().StringArrayVarP(&headerFlags, "header", "H", nil, "Header as 'Name: value' (repeatable)")

	// Session flags
	requestCmd.Flags().BoolVarP(&authFlag, "auth", "a", false, "Send as an authenticated call with the session cookie")
	requestCmd.Flags().StringVar(&loginFlag, "login", "", "POST to this endpoint first to capture the session cookie (implies --auth)")
	requestCmd.Flags().StringVar(&loginDataFlag, "login-data", "", "JSON body for the login call")
	requestCmd.Flags().BoolVar(&logoutFlag, "logout", false, "Clear the session cookie after the calls")
	requestCmd.Flags().StringVar(&cookieNameFlag, "cookie-name", getEnvString("HITNET_COOKIE_NAME", ""), "Session cookie name (env: HITNET_COOKIE_NAME)")
	requestCmd.Flags().StringVar(&cookieStoreFlag, "cookie-store", getEnvString("HITNET_COOKIE_STORE", ""), "Persist session cookies, e.g. sqlite://cookies.db (env: HITNET_COOKIE_STORE)")

	// Check flags
	requestCmd.Flags().StringArrayVar(&captureFlags, "capture", nil, "Capture a body value as name=path (repeatable)")
	requestCmd.Flags().StringVar(&schemaFlag, "schema", "", "Validate the response body against a JSON Schema file")

	// Execution flags
	requestCmd.Flags().IntVarP(&repeatFlag, "repeat", "n", getEnvInt("HITNET_REPEAT", 1), "Number of times to send the call (env: HITNET_REPEAT)")
	requestCmd.Flags().Float64VarP(&rateFlag, "rate", "r", getEnvFloat("HITNET_RATE", 0), "Maximum calls per second when repeating, 0 for unpaced (env: HITNET_RATE)")
	requestCmd.Flags().BoolVarP(&watchFlag, "watch", "w", false, "Re-run when the config, env or schema file changes")
	requestCmd.Flags().StringVar(&timeoutFlag, "timeout", getEnvString("HITNET_TIMEOUT", ""), "Request timeout, e.g. 30s (default: config timeout) (env: HITNET_TIMEOUT)")

	// Output flags
	requestCmd.Flags().StringVarP(&outputFlag, "output", "o", getEnvString("HITNET_OUTPUT", "console"), "Output format: console, json, tap (env: HITNET_OUTPUT)")
	requestCmd.Flags().BoolVar(&noColorFlag, "no-color", getEnvBool("HITNET_NO_COLOR", false), "Disable colored output (env: HITNET_NO_COLOR)")
	requestCmd.Flags().CountVarP(&verboseFlag, "verbose", "v", "Verbose output (-v, -vv for debug logs)")

	// Network flags
	requestCmd.Flags().StringVar(&proxyFlag, "proxy", getEnvString("HITNET_PROXY", ""), "Proxy URL for HTTP requests (env: HITNET_PROXY)")
	requestCmd.Flags().BoolVarP(&insecureFlag, "insecure", "k", getEnvBool("HITNET_INSECURE", false), "Disable SSL certificate validation (env: HITNET_INSECURE)")
}

// requestOptions holds everything one run of the request command needs.
type requestOptions struct {
	Method      string
	Endpoint    string
	Env         string
	ConfigPath  string
	EnvFile     string
	Params      []string
	Data        string
	Headers     []string
	Auth        bool
	Login       string
	LoginData   string
	Logout      bool
	CookieName  string
	CookieStore string
	Captures    []string
	Schema      string
	Repeat      int
	Rate        float64
	Output      string
	NoColor     bool
	Verbose     int
	Timeout     string
	Proxy       string
	Insecure    bool
}

func requestCommand(cmd *cobra.Command, args []string) error {
	opts := requestOptions{
		Method:      args[0],
		Endpoint:    args[1],
		Env:         envFlag,
		ConfigPath:  configFlag,
		EnvFile:     envFileFlag,
		Params:      paramFlags,
		Data:        dataFlag,
		Headers:     headerFlags,
		Auth:        authFlag,
		Login:       loginFlag,
		LoginData:   loginDataFlag,
		Logout:      logoutFlag,
		CookieName:  cookieNameFlag,
		CookieStore: cookieStoreFlag,
		Captures:    captureFlags,
		Schema:      schemaFlag,
		Repeat:      repeatFlag,
		Rate:        rateFlag,
		Output:      outputFlag,
		NoColor:     noColorFlag,
		Verbose:     verboseFlag,
		Timeout:     timeoutFlag,
		Proxy:       proxyFlag,
		Insecure:    insecureFlag,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err := runRequest(ctx, opts, cmd.OutOrStdout())
	if !watchFlag {
		return err
	}
	if err != nil {
		fmt.Fprintf(cmd.ErrOrStderr(), "Error: %v\n", err)
	}
	return watchAndRerun(ctx, opts, cmd.OutOrStdout(), cmd.ErrOrStderr())
}

// runRequest performs the optional login, then the call Repeat times.
func runRequest(ctx context.Context, opts requestOptions, out io.Writer) error {
	method, err := network.ParseMethod(opts.Method)
	if err != nil {
		return withExitCode(ExitUsageError, err)
	}
	if opts.Repeat < 1 {
		return withExitCode(ExitUsageError, fmt.Errorf("--repeat must be at least 1"))
	}
	if opts.Rate < 0 {
		return withExitCode(ExitUsageError, fmt.Errorf("--rate must not be negative"))
	}
	params, err := parseParams(method, opts.Params, opts.Data)
	if err != nil {
		return withExitCode(ExitUsageError, err)
	}
	headers, err := parseHeaders(opts.Headers)
	if err != nil {
		return withExitCode(ExitUsageError, err)
	}
	captures, err := capture.ParseAll(opts.Captures)
	if err != nil {
		return withExitCode(ExitUsageError, err)
	}
	var loginParams any
	if opts.Login != "" {
		if loginParams, err = parseParams(network.MethodPost, nil, opts.LoginData); err != nil {
			return withExitCode(ExitUsageError, err)
		}
	}

	cfg, err := loadConfig(opts.ConfigPath, opts.EnvFile)
	if err != nil {
		return withExitCode(ExitConfigError, err)
	}
	environment, err := resolveEnvironment(cfg, opts.Env)
	if err != nil {
		return withExitCode(ExitConfigError, err)
	}

	timeout := cfg.TimeoutDuration()
	if opts.Timeout != "" {
		if timeout, err = time.ParseDuration(opts.Timeout); err != nil {
			return withExitCode(ExitUsageError, fmt.Errorf("invalid timeout value %q: %w (use format like 30s, 1m, 500ms)", opts.Timeout, err))
		}
	}

	formatter, err := output.New(opts.Output, out, opts.Verbose > 0, opts.NoColor || cfg.GetNoColor())
	if err != nil {
		return withExitCode(ExitUsageError, err)
	}

	logger, err := newLogger(cfg, opts.Verbose)
	if err != nil {
		return withExitCode(ExitConfigError, fmt.Errorf("invalid log configuration: %w", err))
	}
	defer func() { _ = logger.Sync() }()

	storeConn := opts.CookieStore
	if storeConn == "" {
		storeConn = cfg.CookieStore
	}
	jar, err := openJar(storeConn)
	if err != nil {
		return withExitCode(ExitConfigError, err)
	}
	defer jar.Close()

	recorder := stats.New()
	manager, err := network.NewManager(environment, newClient(cfg, timeout, opts.Proxy, opts.Insecure),
		network.WithSessionCookieName(cookieNameFor(opts.CookieName, cfg)),
		network.WithCookieJar(jar),
		network.WithLogger(logger),
		network.WithRecorder(recorder),
		network.WithDefaultHeaders(cfg.Headers),
	)
	if err != nil {
		return withExitCode(ExitConfigError, err)
	}

	if restoreSession(manager.Session(), jar, environment.Host(), time.Now()) {
		logger.Debug("restored persisted session cookie", zap.String("host", environment.Host()))
	}

	c := &caller{
		manager:  manager,
		builder:  network.NewBuilder(environment, cfg.Headers),
		captures: captures,
		schema:   opts.Schema,
		logger:   logger,
	}

	formatter.FormatHeader(version)

	if opts.Login != "" {
		call := c.login(ctx, opts.Login, loginParams)
		formatter.FormatCall(call)
		if !call.Passed() {
			_ = formatter.Flush()
			return withExitCode(callExitCode(call), fmt.Errorf("login failed: %v", call.Result.Err))
		}
	}

	var limiter *rate.Limiter
	if opts.Rate > 0 {
		limiter = rate.NewLimiter(rate.Limit(opts.Rate), 1)
	}

	authenticated := opts.Auth || opts.Login != ""
	sent, failed, code := 0, 0, ExitSuccess
	for i := 0; i < opts.Repeat; i++ {
		if limiter != nil {
			if err := limiter.Wait(ctx); err != nil {
				break
			}
		}
		call := c.send(ctx, method, opts.Endpoint, params, headers, authenticated)
		formatter.FormatCall(call)
		sent++
		if !call.Passed() {
			failed++
			code = max(code, callExitCode(call))
		}
		if ctx.Err() != nil {
			break
		}
	}

	if opts.Repeat > 1 {
		formatter.FormatStats(recorder.Snapshot())
	}

	if opts.Logout {
		manager.Logout()
	}

	if err := formatter.Flush(); err != nil {
		return fmt.Errorf("error writing output: %w", err)
	}

	if failed > 0 {
		return withExitCode(code, fmt.Errorf("%d of %d calls failed", failed, sent))
	}
	if err := ctx.Err(); err != nil {
		return withExitCode(ExitRequestFailure, err)
	}
	return nil
}

// callExitCode maps a failed call to an exit code.
func callExitCode(call *output.Call) int {
	if call.Result.Err != nil && call.Result.Err.Kind == network.KindFailure {
		return ExitNetworkError
	}
	return ExitRequestFailure
}

type caller struct {
	manager  *network.Manager
	builder  *network.Builder
	captures []capture.Capture
	schema   string
	logger   *zap.Logger
}

// send issues one call and waits for its result on the observable channel.
func (c *caller) send(ctx context.Context, method network.Method, endpoint string, params any, headers map[string]string, auth bool) *output.Call {
	call := &output.Call{Method: method, Endpoint: endpoint, Authenticated: auth}
	if desc, err := c.builder.Build(method, endpoint, params, headers); err == nil {
		call.URL = desc.URL
	}

	start := time.Now()
	var obs *network.Observable
	if auth {
		obs = c.manager.AuthenticatedRequest(ctx, method, endpoint, params, headers)
	} else {
		obs = c.manager.Request(ctx, method, endpoint, params, headers)
	}

	result, err := obs.Wait(ctx)
	call.Duration = time.Since(start)
	if err != nil {
		result = network.Failed(network.Failure(err.Error()))
	}
	call.Result = result

	if result.IsSuccess() {
		if len(c.captures) > 0 {
			call.Captures = capture.ExtractAll(result.Data, c.captures)
		}
		if c.schema != "" {
			call.SchemaError = schema.ValidateFile(c.schema, result.Data)
		}
	}
	return call
}

// login posts to endpoint so the manager can capture the session cookie.
func (c *caller) login(ctx context.Context, endpoint string, params any) *output.Call {
	call := &output.Call{Method: network.MethodPost, Endpoint: endpoint}

	start := time.Now()
	data, err := c.manager.RequestFuture(ctx, network.MethodPost, endpoint, params, nil).Await(ctx)
	call.Duration = time.Since(start)

	if err != nil {
		var netErr *network.NetworkError
		if !errors.As(err, &netErr) {
			netErr = network.Failure(err.Error())
		}
		call.Result = network.Failed(netErr)
		return call
	}

	call.Result = network.Succeeded(data)
	if c.manager.Session().AuthCookie() == nil {
		c.logger.Warn("login response did not set the session cookie",
			zap.String("cookie", c.manager.Session().CookieName()))
	}
	return call
}

// watchedFiles returns the absolute paths whose changes trigger a re-run.
func watchedFiles(opts requestOptions) []string {
	configPath := opts.ConfigPath
	if configPath == "" {
		configPath = config.FindConfigFile(".")
	}

	var files []string
	for _, f := range []string{configPath, opts.EnvFile, opts.Schema} {
		if f == "" {
			continue
		}
		if abs, err := filepath.Abs(f); err == nil {
			files = append(files, abs)
		}
	}
	return files
}

// watchAndRerun re-runs the request whenever a watched file is written.
func watchAndRerun(ctx context.Context, opts requestOptions, out, errOut io.Writer) error {
	files := watchedFiles(opts)
	if len(files) == 0 {
		return withExitCode(ExitUsageError, fmt.Errorf("nothing to watch: no config, env or schema file"))
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create file watcher: %w", err)
	}
	defer watcher.Close()

	// Watch directories so editors that replace files are still seen
	watched := make(map[string]bool, len(files))
	watchedDirs := make(map[string]bool)
	for _, f := range files {
		watched[f] = true
		dir := filepath.Dir(f)
		if watchedDirs[dir] {
			continue
		}
		if err := watcher.Add(dir); err != nil {
			return fmt.Errorf("failed to watch %s: %w", dir, err)
		}
		watchedDirs[dir] = true
	}

	fmt.Fprintf(out, "\nWatching for changes... (press Ctrl+C to stop)\n\n")

	rerun := make(chan string, 1)
	var debounceTimer *time.Timer
	defer func() {
		if debounceTimer != nil {
			debounceTimer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !watched[filepath.Clean(event.Name)] || !(event.Has(fsnotify.Write) || event.Has(fsnotify.Create)) {
				continue
			}
			// Debounce: reset timer on each event
			if debounceTimer != nil {
				debounceTimer.Stop()
			}
			name := event.Name
			debounceTimer = time.AfterFunc(WatchDebounceDelay, func() {
				select {
				case rerun <- name:
				default:
				}
			})

		case name := <-rerun:
			fmt.Fprintf(out, "\n\nFile changed: %s\nRe-running...\n\n", name)
			if err := runRequest(ctx, opts, out); err != nil {
				fmt.Fprintf(errOut, "Error: %v\n", err)
			}
			fmt.Fprintf(out, "\nWatching for changes... (press Ctrl+C to stop)\n")

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			fmt.Fprintf(errOut, "watcher error: %v\n", err)
		}
	}
}
