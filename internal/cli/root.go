package cli

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/scraptool/corefetch/internal/auth"
	"github.com/scraptool/corefetch/internal/authtest"
	"github.com/scraptool/corefetch/internal/config"
)

var (
	cfgFile      string
	storageRoot  string
	listenAddr   string
	jwtSecret    string
	tokenGroups  []string
	tokenTTL     time.Duration
	purgeSession string
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "corefetch",
	Short: "A web scraping tool server for AI agents.",
	Long: `corefetch is a CLI application that exposes depth-bounded web crawling,
content extraction, and structure analysis as a tool-call surface for AI
agents, with a companion REST API for reading back stored crawl sessions.`,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the tool dispatcher and REST API over HTTP, plus the background housekeeper.",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		verifier, err := buildVerifier()
		if err != nil {
			return err
		}

		comp, err := buildComponents(cfg, verifier)
		if err != nil {
			return err
		}

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		go comp.housekeeper.Run(ctx)

		mux := http.NewServeMux()
		mux.Handle("/", comp.restServer.Router())
		mux.HandleFunc("/tools/dispatch", dispatchHTTPHandler(comp))

		srv := &http.Server{Addr: cfg.ListenAddr(), Handler: mux}

		sig := make(chan os.Signal, 1)
		signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
		go func() {
			<-sig
			fmt.Fprintln(os.Stderr, "shutting down...")
			cancel()
			shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer shutdownCancel()
			srv.Shutdown(shutdownCtx)
		}()

		fmt.Printf("corefetch listening on %s\n", cfg.ListenAddr())
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("serve: %w", err)
		}
		return nil
	},
}

var pruneSizeCmd = &cobra.Command{
	Use:   "prune-size",
	Short: "Run a single housekeeper prune cycle and print the summary.",
	RunE: func(cmd *cobra.Command, args []string) error {
		comp, err := loadHousekeeperOnly()
		if err != nil {
			return err
		}
		summary := comp.housekeeper.PruneOnce(context.Background())
		fmt.Printf("sessions: %d, deleted: %d, freed: %.2fMB, final: %.2fMB, target: %.2fMB, anomalies: %d\n",
			summary.ItemCount, summary.DeletedCount, summary.FreedMB, summary.FinalMB, summary.TargetMB, summary.Anomalies)
		os.Exit(summary.ExitCode)
		return nil
	},
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored sessions under the prune lock.",
	RunE: func(cmd *cobra.Command, args []string) error {
		comp, err := loadHousekeeperOnly()
		if err != nil {
			return err
		}
		sessions, ok := comp.housekeeper.List(context.Background())
		if !ok {
			return fmt.Errorf("prune lock busy, try again")
		}
		for _, s := range sessions {
			fmt.Printf("%s\t%s\t%d bytes\t%d chunks\n", s.SessionID, s.URL, s.TotalSizeBytes, s.TotalChunks)
		}
		return nil
	},
}

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Print aggregate session store stats.",
	RunE: func(cmd *cobra.Command, args []string) error {
		comp, err := loadHousekeeperOnly()
		if err != nil {
			return err
		}
		stats, ok := comp.housekeeper.Stats(context.Background())
		if !ok {
			return fmt.Errorf("prune lock busy, try again")
		}
		fmt.Printf("items: %d, total: %.2fMB, target: %.2fMB\n", stats.ItemCount, stats.TotalMB, stats.TargetMB)
		return nil
	},
}

var purgeCmd = &cobra.Command{
	Use:   "purge",
	Short: "Delete a single session by ID, bypassing size thresholds.",
	RunE: func(cmd *cobra.Command, args []string) error {
		if purgeSession == "" {
			return fmt.Errorf("--session is required")
		}
		comp, err := loadHousekeeperOnly()
		if err != nil {
			return err
		}
		if !comp.housekeeper.Purge(context.Background(), purgeSession) {
			return fmt.Errorf("session %s not purged: prune lock busy", purgeSession)
		}
		fmt.Printf("purged %s\n", purgeSession)
		return nil
	},
}

var issueTokenCmd = &cobra.Command{
	Use:   "issue-token",
	Short: "Mint a development JWT for the given groups (requires --jwt-secret).",
	RunE: func(cmd *cobra.Command, args []string) error {
		if jwtSecret == "" {
			return fmt.Errorf("--jwt-secret is required")
		}
		v := authtest.NewJWTVerifier(jwtSecret)
		token, err := v.IssueToken(tokenGroups, tokenTTL)
		if err != nil {
			return fmt.Errorf("issuing token: %w", err)
		}
		fmt.Println(token)
		return nil
	},
}

// Execute adds all child commands to the root command and sets flags
// appropriately. This is called by main.main(). It only needs to happen
// once to the rootCmd.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config-file", "", "config file path (e.g., /home/myuser/config.json)")
	rootCmd.PersistentFlags().StringVar(&storageRoot, "storage-root", "", "session storage root (overrides config/env default)")
	rootCmd.PersistentFlags().StringVar(&listenAddr, "listen-addr", "", "HTTP listen address (overrides config/env default)")
	rootCmd.PersistentFlags().StringVar(&jwtSecret, "jwt-secret", os.Getenv("SCRAPTOOL_JWT_SECRET"), "HMAC secret used to verify/issue bearer tokens")

	issueTokenCmd.Flags().StringSliceVar(&tokenGroups, "group", nil, "group the issued token belongs to (can be repeated)")
	issueTokenCmd.Flags().DurationVar(&tokenTTL, "ttl", time.Hour, "token lifetime")

	purgeCmd.Flags().StringVar(&purgeSession, "session", "", "session ID to purge")

	rootCmd.AddCommand(serveCmd, pruneSizeCmd, listCmd, statsCmd, purgeCmd, issueTokenCmd)
}

// loadConfig builds the effective Config from --config-file when one is
// given, or else from the defaults plus environment variables (env vars are
// not read when a config file is given), then applies the
// storage-root/listen-addr flag overrides on top.
func loadConfig() (config.Config, error) {
	var cfg config.Config
	var err error
	if cfgFile != "" {
		cfg, err = config.WithConfigFile(cfgFile)
		if err != nil {
			return config.Config{}, fmt.Errorf("loading config file: %w", err)
		}
	} else {
		cfg, err = config.WithDefault().WithEnv().Build()
		if err != nil {
			return config.Config{}, fmt.Errorf("building default config: %w", err)
		}
	}

	builder := config.WithDefault().
		WithStorageRoot(cfg.StorageRoot()).
		WithHousekeeperIntervalMinutes(cfg.HousekeeperIntervalMinutes()).
		WithHousekeeperStaleLockSeconds(cfg.HousekeeperStaleLockSeconds()).
		WithMaxStorageMB(cfg.MaxStorageMB()).
		WithLoggerSink(cfg.LoggerSinkURL(), cfg.LoggerSinkAPIKey()).
		WithPublicWebBaseURL(cfg.PublicWebBaseURL()).
		WithListenAddr(cfg.ListenAddr()).
		WithDefaultProfile(cfg.DefaultProfile()).
		WithDefaultRateLimitDelay(cfg.DefaultRateLimitDelay()).
		WithDefaultMaxResponseChars(cfg.DefaultMaxResponseChars()).
		WithDefaultRespectRobots(cfg.DefaultRespectRobots())

	if storageRoot != "" {
		builder = builder.WithStorageRoot(storageRoot)
	}
	if listenAddr != "" {
		builder = builder.WithListenAddr(listenAddr)
	}
	return builder.Build()
}

// buildVerifier wires a JWT verifier when --jwt-secret (or its environment
// variable) is set; otherwise every caller is treated as anonymous, which
// only affects access to group-owned sessions.
func buildVerifier() (auth.TokenVerifier, error) {
	if jwtSecret == "" {
		return nil, nil
	}
	return authtest.NewJWTVerifier(jwtSecret), nil
}

// loadHousekeeperOnly builds the full component graph for the manual
// housekeeper subcommands, which only ever touch comp.housekeeper.
func loadHousekeeperOnly() (*components, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	verifier, err := buildVerifier()
	if err != nil {
		return nil, err
	}
	return buildComponents(cfg, verifier)
}
