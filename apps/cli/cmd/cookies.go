package cmd

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/abdul-hamid-achik/hitnet/packages/db"
)

var (
	cookiesStoreFlag  string
	cookiesConfigFlag string
	cookiesDomainFlag string
	cookiesSinceFlag  string
	cookiesShowFlag   bool
)

var cookiesCmd = &cobra.Command{
	Use:   "cookies",
	Short: "Inspect or clear persisted session cookies",
	Long: `Inspect or clear the session cookies persisted by --cookie-store.

Examples:
  hitnet cookies list --cookie-store sqlite://cookies.db
  hitnet cookies clear --domain api.example.com
  hitnet cookies clear --since 720h`,
}

var cookiesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List persisted cookies",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openCookieStore()
		if err != nil {
			return err
		}
		defer store.Close()
		return listCookies(store, cookiesDomainFlag, cookiesShowFlag, cmd.OutOrStdout())
	},
}

var cookiesClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Delete persisted cookies",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openCookieStore()
		if err != nil {
			return err
		}
		defer store.Close()
		if err := clearCookies(store, cookiesDomainFlag, cookiesSinceFlag, time.Now()); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "Cookies cleared")
		return nil
	},
}

func init() {
	cookiesCmd.PersistentFlags().StringVar(&cookiesStoreFlag, "cookie-store", getEnvString("HITNET_COOKIE_STORE", ""), "Cookie store connection string (env: HITNET_COOKIE_STORE)")
	cookiesCmd.PersistentFlags().StringVar(&cookiesConfigFlag, "config", getEnvString("HITNET_CONFIG", ""), "Path to config file (env: HITNET_CONFIG)")
	cookiesCmd.PersistentFlags().StringVar(&cookiesDomainFlag, "domain", "", "Only cookies for this domain")

	cookiesListCmd.Flags().BoolVar(&cookiesShowFlag, "show-values", false, "Print cookie values instead of masking them")
	cookiesClearCmd.Flags().StringVar(&cookiesSinceFlag, "since", "", "Only cookies stored within this duration, e.g. 720h")

	cookiesCmd.AddCommand(cookiesListCmd)
	cookiesCmd.AddCommand(cookiesClearCmd)
}

func openCookieStore() (*db.CookieStore, error) {
	connStr := cookiesStoreFlag
	if connStr == "" {
		cfg, err := loadConfig(cookiesConfigFlag, "")
		if err != nil {
			return nil, withExitCode(ExitConfigError, err)
		}
		connStr = cfg.CookieStore
	}
	if connStr == "" {
		return nil, withExitCode(ExitConfigError, fmt.Errorf("no cookie store configured (use --cookie-store or cookieStore in config)"))
	}
	store, err := db.Open(connStr)
	if err != nil {
		return nil, withExitCode(ExitConfigError, err)
	}
	return store, nil
}

func listCookies(store *db.CookieStore, domain string, showValues bool, w io.Writer) error {
	var (
		cookies []db.StoredCookie
		err     error
	)
	if domain != "" {
		cookies, err = store.Load(domain)
	} else {
		cookies, err = store.List()
	}
	if err != nil {
		return err
	}

	if len(cookies) == 0 {
		fmt.Fprintln(w, "No cookies stored")
		return nil
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "DOMAIN\tNAME\tVALUE\tPATH\tEXPIRES\tSTORED")
	for _, sc := range cookies {
		c := sc.Cookie
		value := c.Value
		if !showValues {
			value = maskValue(value)
		}
		expires := "session"
		if !c.Expires.IsZero() {
			expires = c.Expires.Format(time.RFC3339)
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n",
			c.Domain, c.Name, value, c.Path, expires, sc.Created.Format(time.RFC3339))
	}
	return tw.Flush()
}

func clearCookies(store *db.CookieStore, domain, since string, now time.Time) error {
	switch {
	case domain != "" && since != "":
		return withExitCode(ExitUsageError, fmt.Errorf("--domain and --since cannot be combined"))
	case domain != "":
		return store.PurgeDomain(domain)
	case since != "":
		d, err := time.ParseDuration(since)
		if err != nil {
			return withExitCode(ExitUsageError, fmt.Errorf("invalid --since value %q: %w", since, err))
		}
		return store.PurgeSince(now.Add(-d))
	default:
		return store.Clear()
	}
}

// maskValue keeps the first four characters of a cookie value.
func maskValue(v string) string {
	if len(v) <= 4 {
		return strings.Repeat("*", len(v))
	}
	return v[:4] + strings.Repeat("*", len(v)-4)
}
