// Package main is the Lexsy CLI entry point.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/hyperjump/lexsy/internal/cli"
	"github.com/hyperjump/lexsy/internal/config"
	"github.com/hyperjump/lexsy/internal/models"
	"github.com/hyperjump/lexsy/internal/server"
	"github.com/hyperjump/lexsy/internal/telemetry"
	"github.com/hyperjump/lexsy/internal/watcher"
	"github.com/hyperjump/lexsy/pkg/utils"
)

var version = "dev"

// loadConfig loads config from path. An empty path uses config.yaml in the
// current directory when present, and environment plus defaults otherwise.
// Returns the config and the path that was actually loaded.
func loadConfig(path string) (*config.Config, string, error) {
	if path == "" {
		if cwd, err := os.Getwd(); err == nil {
			fallback := filepath.Join(cwd, "config.yaml")
			if _, statErr := os.Stat(fallback); statErr == nil {
				path = fallback
			}
		}
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, "", err
	}
	return cfg, path, nil
}

type app struct {
	configPath string
	debug      bool

	cfg    *config.Config
	logger *zap.Logger
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:           "lexsy",
		Short:         "Client-scoped legal document assistant",
		Long:          "Lexsy ingests client documents and emails and answers questions from each client's own records.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Name() == "version" {
				return nil
			}
			return a.setup()
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if a.logger != nil {
				_ = a.logger.Sync()
			}
		},
	}
	root.PersistentFlags().StringVar(&a.configPath, "config", "", "config file path (default ./config.yaml when present)")
	root.PersistentFlags().BoolVar(&a.debug, "debug", false, "enable debug logging")

	root.AddCommand(
		a.serveCmd(),
		a.uploadCmd(),
		a.askCmd(),
		a.ingestSamplesCmd(),
		a.ingestThreadCmd(),
		a.watchCmd(),
		versionCmd(),
	)
	return root
}

func (a *app) setup() error {
	cfg, resolved, err := loadConfig(a.configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	debugMode := cfg.Debug || a.debug
	logger, err := utils.NewLogger(debugMode)
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	logger.Debug("config loaded", zap.String("config_path", resolved), zap.Bool("debug", debugMode))
	a.cfg = cfg
	a.logger = logger
	return nil
}

func clientFlag(cmd *cobra.Command, target *int64) {
	cmd.Flags().Int64Var(target, "client", -1, "client id (required)")
	_ = cmd.MarkFlagRequired("client")
}

func outputFlag(cmd *cobra.Command, target *string) {
	cmd.Flags().StringVarP(target, "output", "o", string(cli.OutputText), "output format: text or json")
}

func checkClient(id int64) error {
	if id < 0 {
		return models.Errorf(models.KindInvalidArgument, "client id must be non-negative, got %d", id)
	}
	return nil
}

func (a *app) serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API (and the inbox watcher when configured)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			flush := telemetry.Init(telemetry.Config{
				DSN:              a.cfg.Sentry.DSN,
				Environment:      a.cfg.Sentry.Environment,
				TracesSampleRate: a.cfg.Sentry.TracesSampleRate,
				Debug:            a.cfg.Debug,
			}, a.logger)
			defer flush()

			components, err := initializeComponents(ctx, a.cfg, a.logger)
			if err != nil {
				return err
			}
			defer components.Close()

			if a.cfg.Inbox.Directory != "" {
				inbox := a.newInbox(components)
				if err := inbox.Start(ctx); err != nil {
					return fmt.Errorf("failed to start inbox watcher: %w", err)
				}
				defer inbox.Stop()
			}

			srv := server.NewServer(components.Ingest, components.QA, components.Store, components.Mail, &a.cfg.Server, a.logger)
			errCh := make(chan error, 1)
			go func() { errCh <- srv.Start() }()

			select {
			case err := <-errCh:
				if !errors.Is(err, http.ErrServerClosed) {
					return fmt.Errorf("server failed: %w", err)
				}
				return nil
			case <-ctx.Done():
			}

			a.logger.Info("Shutting down...")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			return srv.Stop(shutdownCtx)
		},
	}
}

func (a *app) newInbox(c *Components) *watcher.Inbox {
	return watcher.NewInbox(a.cfg.Inbox.Directory, a.cfg.Inbox.Extensions,
		func(ctx context.Context, clientID int64, path string) error {
			_, err := c.Ingest.IngestFile(ctx, clientID, path)
			return err
		},
		watcher.WithLogger(a.logger),
	)
}

func (a *app) uploadCmd() *cobra.Command {
	var (
		clientID int64
		output   string
	)
	cmd := &cobra.Command{
		Use:   "upload --client N FILE|DIR...",
		Short: "Ingest documents (pdf, docx, txt) for a client",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := checkClient(clientID); err != nil {
				return err
			}
			format, err := cli.ParseOutputFormat(output)
			if err != nil {
				return err
			}
			components, err := initializeComponents(cmd.Context(), a.cfg, a.logger)
			if err != nil {
				return err
			}
			defer components.Close()

			out := cmd.OutOrStdout()
			failed := 0
			for _, path := range args {
				info, err := os.Stat(path)
				if err != nil {
					fmt.Fprintf(cmd.ErrOrStderr(), "%s: %v\n", path, err)
					failed++
					continue
				}
				if info.IsDir() {
					outcomes, err := components.Ingest.IngestDirectory(cmd.Context(), clientID, path)
					if err != nil {
						fmt.Fprintf(cmd.ErrOrStderr(), "%s: %v\n", path, err)
						failed++
					}
					for _, o := range outcomes {
						if o.Err != nil {
							fmt.Fprintf(cmd.ErrOrStderr(), "%s: %v\n", o.Path, o.Err)
							failed++
							continue
						}
						_ = cli.WriteUpload(out, o.Result, format)
					}
					continue
				}
				res, err := components.Ingest.IngestFile(cmd.Context(), clientID, path)
				if err != nil {
					fmt.Fprintf(cmd.ErrOrStderr(), "%s: %v\n", path, err)
					failed++
					continue
				}
				_ = cli.WriteUpload(out, res, format)
			}
			if failed > 0 {
				return fmt.Errorf("%d file(s) failed", failed)
			}
			return nil
		},
	}
	clientFlag(cmd, &clientID)
	outputFlag(cmd, &output)
	return cmd
}

func (a *app) askCmd() *cobra.Command {
	var (
		clientID int64
		output   string
	)
	cmd := &cobra.Command{
		Use:   "ask --client N QUESTION...",
		Short: "Ask a question about a client's records",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := checkClient(clientID); err != nil {
				return err
			}
			format, err := cli.ParseOutputFormat(output)
			if err != nil {
				return err
			}
			components, err := initializeComponents(cmd.Context(), a.cfg, a.logger)
			if err != nil {
				return err
			}
			defer components.Close()

			answer, err := components.QA.Answer(cmd.Context(), clientID, strings.Join(args, " "))
			if err != nil {
				return err
			}
			return cli.WriteAnswer(cmd.OutOrStdout(), answer, format)
		},
	}
	clientFlag(cmd, &clientID)
	outputFlag(cmd, &output)
	return cmd
}

func (a *app) ingestSamplesCmd() *cobra.Command {
	var (
		clientID int64
		output   string
	)
	cmd := &cobra.Command{
		Use:   "ingest-samples --client N",
		Short: "Ingest the demonstration email batch for a client",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := checkClient(clientID); err != nil {
				return err
			}
			format, err := cli.ParseOutputFormat(output)
			if err != nil {
				return err
			}
			components, err := initializeComponents(cmd.Context(), a.cfg, a.logger)
			if err != nil {
				return err
			}
			defer components.Close()
			return cli.WriteBatch(cmd.OutOrStdout(), components.Ingest.IngestSampleEmails(cmd.Context(), clientID), format)
		},
	}
	clientFlag(cmd, &clientID)
	outputFlag(cmd, &output)
	return cmd
}

func (a *app) ingestThreadCmd() *cobra.Command {
	var (
		clientID int64
		threadID string
		demo     bool
		output   string
	)
	cmd := &cobra.Command{
		Use:   "ingest-thread --client N (--thread ID | --demo)",
		Short: "Ingest a mail thread, or the demonstration thread when mail is unavailable",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := checkClient(clientID); err != nil {
				return err
			}
			format, err := cli.ParseOutputFormat(output)
			if err != nil {
				return err
			}
			components, err := initializeComponents(cmd.Context(), a.cfg, a.logger)
			if err != nil {
				return err
			}
			defer components.Close()
			var res *models.ThreadResult
			if demo {
				res = components.Ingest.IngestDemoThread(cmd.Context(), clientID)
			} else {
				res = components.Ingest.IngestProviderThread(cmd.Context(), clientID, threadID, components.Mail)
			}
			return cli.WriteThread(cmd.OutOrStdout(), res, format)
		},
	}
	clientFlag(cmd, &clientID)
	cmd.Flags().StringVar(&threadID, "thread", "", "mail thread id")
	cmd.Flags().BoolVar(&demo, "demo", false, "ingest the demonstration thread")
	cmd.MarkFlagsOneRequired("thread", "demo")
	cmd.MarkFlagsMutuallyExclusive("thread", "demo")
	outputFlag(cmd, &output)
	return cmd
}

func (a *app) watchCmd() *cobra.Command {
	var dir string
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Ingest files dropped into <inbox>/<client_id>/ until interrupted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if dir != "" {
				a.cfg.Inbox.Directory = dir
			}
			if a.cfg.Inbox.Directory == "" {
				return errors.New("no inbox directory: set inbox.directory or pass --dir")
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			components, err := initializeComponents(ctx, a.cfg, a.logger)
			if err != nil {
				return err
			}
			defer components.Close()

			inbox := a.newInbox(components)
			if err := inbox.Start(ctx); err != nil {
				return fmt.Errorf("failed to start inbox watcher: %w", err)
			}
			defer inbox.Stop()
			fmt.Fprintf(cmd.OutOrStdout(), "Watching %s (Ctrl+C to stop)\n", a.cfg.Inbox.Directory)
			<-ctx.Done()
			return nil
		},
	}
	cmd.Flags().StringVar(&dir, "dir", "", "inbox directory (overrides config)")
	return cmd
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "lexsy version %s\n", version)
		},
	}
}
