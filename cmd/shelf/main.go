package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/MrSnakeDoc/shelf/internal/app"
	"github.com/MrSnakeDoc/shelf/internal/config"
	"github.com/MrSnakeDoc/shelf/internal/domain"
	"github.com/MrSnakeDoc/shelf/internal/logger"
	"github.com/MrSnakeDoc/shelf/internal/metadata"
	"github.com/MrSnakeDoc/shelf/internal/sources/yamlfile"
	"github.com/MrSnakeDoc/shelf/internal/version"
)

func main() {
	if err := executeContext(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:          "shelf",
	Short:        "Personal link shelf",
	SilenceUsage: true,
	// Running without a subcommand starts the server, like the container entrypoint expects.
	RunE: func(cmd *cobra.Command, args []string) error {
		return serveCmd.RunE(cmd, args)
	},
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP server",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.Load()
		log := logger.New(cfg.LogLevel, cfg.PrettyLog)
		defer func() { _ = log.Sync() }()

		a, err := app.New(cmd.Context(), cfg, log)
		if err != nil {
			return fmt.Errorf("❌ shelf failed to start: %w", err)
		}
		return a.Run()
	},
}

var (
	identityMode string
	identityUser string
	exportOutput string
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Write a collection's workbook to a file",
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := resolveIdentity(identityMode, identityUser)
		if err != nil {
			return err
		}
		cfg := config.Load()
		log := logger.New(cfg.LogLevel, cfg.PrettyLog)
		defer func() { _ = log.Sync() }()

		svc, err := app.NewOffline(cmd.Context(), cfg, log)
		if err != nil {
			return err
		}
		data, err := svc.ExportIdentity(cmd.Context(), id)
		if err != nil {
			return fmt.Errorf("exporting %s: %w", id.Label(), err)
		}

		out := exportOutput
		if out == "" {
			out = id.ExportName()
		}
		if err := os.WriteFile(out, data, 0o644); err != nil {
			return fmt.Errorf("writing %s: %w", out, err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Exported %s to %s\n", id.Label(), out)
		return nil
	},
}

var importCmd = &cobra.Command{
	Use:   "import FILE.yaml",
	Short: "Upsert links from a YAML bookmarks file into a collection",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := resolveIdentity(identityMode, identityUser)
		if err != nil {
			return err
		}
		inputs, err := yamlfile.NewLoader(args[0]).Load()
		if err != nil {
			return err
		}

		cfg := config.Load()
		log := logger.New(cfg.LogLevel, cfg.PrettyLog)
		defer func() { _ = log.Sync() }()

		svc, err := app.NewOffline(cmd.Context(), cfg, log)
		if err != nil {
			return err
		}
		report, err := svc.Import(cmd.Context(), id, inputs)
		if err != nil {
			return fmt.Errorf("importing into %s: %w", id.Label(), err)
		}

		w := cmd.OutOrStdout()
		fmt.Fprintf(w, "Imported into %s: %d saved, %d updated, %d skipped\n",
			id.Label(), report.Saved, report.Updated, len(report.Skipped))
		for _, e := range report.Skipped {
			fmt.Fprintf(w, "  skipped: %v\n", e)
		}
		return nil
	},
}

var fetchCmd = &cobra.Command{
	Use:   "fetch URL",
	Short: "Print the metadata extracted from a page",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.Load()
		f := metadata.NewFetcher(metadata.Options{
			Timeout:   cfg.FetchTimeout,
			UserAgent: cfg.FetchUserAgent,
			MaxBody:   cfg.FetchMaxBodyBytes,
		})

		md, err := f.Fetch(cmd.Context(), args[0])
		if err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "warning: couldn't fetch metadata: %v\n", err)
		}
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(md)
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print build information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintln(cmd.OutOrStdout(), version.String())
	},
}

// resolveIdentity maps the --mode/--user flags to a durable identity.
func resolveIdentity(mode, user string) (domain.Identity, error) {
	switch domain.Mode(mode) {
	case domain.ModeOwner:
		return domain.Identity{Mode: domain.ModeOwner}, nil
	case domain.ModeGuest:
		name, err := domain.ValidateUsername(user)
		if err != nil {
			return domain.Identity{}, err
		}
		return domain.Identity{Mode: domain.ModeGuest, Username: name}, nil
	default:
		return domain.Identity{}, fmt.Errorf("--mode must be owner or guest, got %q", mode)
	}
}

func init() {
	for _, c := range []*cobra.Command{exportCmd, importCmd} {
		c.Flags().StringVar(&identityMode, "mode", string(domain.ModeOwner), "collection to use: owner or guest")
		c.Flags().StringVar(&identityUser, "user", "", "guest username (with --mode guest)")
	}
	exportCmd.Flags().StringVarP(&exportOutput, "output", "o", "", "output file (default: the collection's export name)")

	rootCmd.AddCommand(serveCmd, exportCmd, importCmd, fetchCmd, versionCmd)
}

// executeContext runs the root command with a context cancelled on SIGINT/SIGTERM.
func executeContext() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return rootCmd.ExecuteContext(ctx)
}
