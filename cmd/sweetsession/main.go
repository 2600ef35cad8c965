// Command sweetsession runs a one-shot claude.ai session capture.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/steipete/sweetsession"
)

// version is stamped via -ldflags at release time.
var version = "dev"

var (
	green  = color.New(color.FgGreen).SprintFunc()
	yellow = color.New(color.FgYellow).SprintFunc()
	red    = color.New(color.FgRed).SprintFunc()
)

var (
	flagConfig           string
	flagPort             int
	flagOutput           string
	flagBrowsers         []string
	flagNoOpen           bool
	flagKeyring          bool
	flagAuto             bool
	flagPrintBookmarklet bool
	flagVerbose          bool
)

var rootCmd = &cobra.Command{
	Use:   "sweetsession",
	Short: "Capture a claude.ai session into a local credentials file",
	Long: `sweetsession runs a one-shot localhost capture for a claude.ai browser
session: it serves an extraction page, accepts the captured session key, and
writes an owner-only credentials file other tools can read.

The session can also be read directly from local browser cookie stores
(--auto) or captured on claude.ai itself via a bookmarklet
(--print-bookmarklet).`,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runRoot,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the sweetsession version",
	Run: func(_ *cobra.Command, _ []string) {
		fmt.Printf("sweetsession %s\n", version)
	},
}

var showCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the stored credentials, session key masked",
	RunE:  runShow,
}

func init() {
	rootCmd.Flags().IntVar(&flagPort, "port", 0, "localhost port for the capture server")
	rootCmd.Flags().StringVarP(&flagOutput, "output", "o", "", "credentials file path")
	rootCmd.Flags().StringSliceVar(&flagBrowsers, "browser", nil, "cookie store order for automatic extraction (chrome, chromium, brave, edge, vivaldi, opera, firefox, safari)")
	rootCmd.Flags().BoolVar(&flagNoOpen, "no-open", false, "do not open the extraction page in a browser")
	rootCmd.Flags().BoolVar(&flagKeyring, "keyring", false, "also mirror credentials into the OS keyring")
	rootCmd.Flags().BoolVar(&flagAuto, "auto", false, "read browser cookie stores directly, no server")
	rootCmd.Flags().BoolVar(&flagPrintBookmarklet, "print-bookmarklet", false, "print the capture bookmarklet URL and exit")
	rootCmd.PersistentFlags().StringVar(&flagConfig, "config", "", "config file (default ~/.config/sweetsession/config.toml)")
	rootCmd.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "debug logging")
	showCmd.Flags().StringVarP(&flagOutput, "output", "o", "", "credentials file path")
	rootCmd.AddCommand(versionCmd, showCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, red("✗ "+err.Error()))
		os.Exit(1)
	}
}

func runRoot(cmd *cobra.Command, _ []string) error {
	setupLogging()

	opts, err := buildOptions(cmd)
	if err != nil {
		return err
	}

	if flagPrintBookmarklet {
		fmt.Println(sweetsession.BookmarkletURL(sweetsession.BaseURL(opts.Port)))
		return nil
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if flagAuto {
		return runAuto(ctx, opts)
	}

	err = sweetsession.Run(ctx, opts)
	if errors.Is(err, context.Canceled) {
		fmt.Println(yellow("cancelled, nothing saved"))
		return nil
	}
	return err
}

func runAuto(ctx context.Context, opts sweetsession.Options) error {
	res, err := sweetsession.AutoExtract(ctx, opts.Browsers)
	if err != nil {
		return err
	}

	st := &sweetsession.Store{Path: opts.Output, MirrorKeyring: opts.MirrorKeyring}
	warnings, err := st.Write(res.Credentials)
	for _, w := range warnings {
		fmt.Println(yellow(w))
	}
	if err != nil {
		return err
	}

	fmt.Printf("%s %s (from %s)\n", green("✅ credentials saved:"), opts.Output, res.Browser.Label())
	return nil
}

func runShow(cmd *cobra.Command, _ []string) error {
	setupLogging()

	cfg, err := sweetsession.LoadConfig(flagConfig)
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("output") {
		cfg.Output = flagOutput
	}

	st := &sweetsession.Store{Path: cfg.Output}
	creds, err := st.Read()
	source := cfg.Output
	if err != nil {
		creds, err = sweetsession.KeyringCredentials()
		if err != nil {
			return fmt.Errorf("no stored credentials (checked %s and the OS keyring)", cfg.Output)
		}
		source = "OS keyring"
	}

	fmt.Printf("source:          %s\n", source)
	fmt.Printf("session_key:     %s\n", mask(creds.SessionKey))
	if creds.OrganizationID != "" {
		fmt.Printf("organization_id: %s\n", creds.OrganizationID)
	}
	if creds.CFClearance != "" {
		fmt.Printf("cf_clearance:    %s\n", mask(creds.CFClearance))
	}
	return nil
}

// buildOptions layers flags over the config file; only flags the user set
// override it.
func buildOptions(cmd *cobra.Command) (sweetsession.Options, error) {
	cfg, err := sweetsession.LoadConfig(flagConfig)
	if err != nil {
		return sweetsession.Options{}, err
	}

	if cmd.Flags().Changed("port") {
		cfg.Port = flagPort
	}
	if cmd.Flags().Changed("output") {
		cfg.Output = flagOutput
	}
	if cmd.Flags().Changed("browser") {
		cfg.Browsers = flagBrowsers
	}
	if cmd.Flags().Changed("no-open") {
		cfg.Open = !flagNoOpen
	}
	if cmd.Flags().Changed("keyring") {
		cfg.Keyring = flagKeyring
	}

	browsers, err := cfg.BrowserOrder()
	if err != nil {
		return sweetsession.Options{}, err
	}

	return sweetsession.Options{
		Port:          cfg.Port,
		Output:        cfg.Output,
		Browsers:      browsers,
		NoOpen:        !cfg.Open,
		MirrorKeyring: cfg.Keyring,
	}, nil
}

func mask(s string) string {
	if len(s) <= 16 {
		return strings.Repeat("*", len(s))
	}
	return s[:12] + "..." + s[len(s)-4:]
}

func setupLogging() {
	level := slog.LevelWarn
	if flagVerbose {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
}
