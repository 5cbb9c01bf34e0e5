package main

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/nhle/timetrack/internal/api"
	"github.com/nhle/timetrack/internal/app"
	"github.com/nhle/timetrack/internal/auth"
	"github.com/nhle/timetrack/internal/client"
	"github.com/nhle/timetrack/internal/credential"
	"github.com/nhle/timetrack/internal/model"
	"github.com/nhle/timetrack/internal/store"
	"github.com/nhle/timetrack/internal/summary"
	appsync "github.com/nhle/timetrack/internal/sync"
	"github.com/nhle/timetrack/internal/theme"
	"github.com/nhle/timetrack/internal/timer"
	"github.com/nhle/timetrack/internal/tracker"
)

// shutdownTimeout bounds how long in-flight requests may finish after
// a termination signal.
const shutdownTimeout = 10 * time.Second

func main() {
	if err := newRootCmd().Execute(); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var configPath string

	root := &cobra.Command{
		Use:           "timetrack",
		Short:         "Task and time tracking server and terminal client",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&configPath, "config", model.DefaultConfigPath(), "config file path")

	root.AddCommand(newServeCmd(&configPath))
	root.AddCommand(newTUICmd(&configPath))
	root.AddCommand(newMigrateCmd(&configPath))
	root.AddCommand(newConfigCmd(&configPath))
	return root
}

func newServeCmd(configPath *string) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API server",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := model.LoadConfig(*configPath)
			if err != nil {
				return err
			}
			if addr != "" {
				cfg.Server.Addr = addr
			}
			return serve(cmd.Context(), cfg.Server)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (overrides server.addr)")
	return cmd
}

func serve(ctx context.Context, cfg model.ServerConfig) error {
	if cfg.JWTSecret == "" {
		return errors.New("server.jwt_secret is required (or set TIMETRACK_SERVER_JWT_SECRET)")
	}
	loc, err := cfg.Location()
	if err != nil {
		return err
	}
	issuer, err := auth.NewIssuer(cfg.JWTSecret, cfg.TokenTTL())
	if err != nil {
		return err
	}

	s, err := store.NewSQLiteStore(cfg.DBPath)
	if err != nil {
		return err
	}
	defer s.Close()

	srv := api.NewServer(s, tracker.New(s), summary.New(s, loc), issuer, api.Options{
		AllowClientTimezone: cfg.AllowClientTimezone,
	})
	httpServer := &http.Server{
		Addr:              cfg.Addr,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		log.Printf("listening on %s (db %s, day boundaries in %s)", cfg.Addr, cfg.DBPath, loc)
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("serving: %w", err)
	case <-ctx.Done():
	}

	log.Printf("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutting down: %w", err)
	}
	return nil
}

func newTUICmd(configPath *string) *cobra.Command {
	var serverURL string

	cmd := &cobra.Command{
		Use:   "tui",
		Short: "Run the terminal client",
		RunE: func(_ *cobra.Command, _ []string) error {
			cfg, err := model.LoadConfig(*configPath)
			if err != nil {
				return err
			}
			if serverURL != "" {
				cfg.Client.ServerURL = serverURL
			}
			if err := theme.Apply(cfg.Display.Theme); err != nil {
				return err
			}
			return runTUI(cfg.Client)
		},
	}
	cmd.Flags().StringVar(&serverURL, "server", "", "API server URL (overrides client.server_url)")
	return cmd
}

func runTUI(cfg model.ClientConfig) error {
	// Bubble Tea owns the terminal; send log output to a file instead.
	if f, err := tea.LogToFile(logPath(), "timetrack"); err == nil {
		defer f.Close()
	}

	sessions, err := credential.Open()
	if err != nil {
		return err
	}

	c := client.New(cfg.ServerURL, "")
	registry := timer.NewRegistry()
	poller := appsync.New(c, time.Duration(cfg.PollIntervalSec)*time.Second)

	p := tea.NewProgram(
		app.New(c, sessions, poller, registry, cfg.ServerURL),
		tea.WithAltScreen(),
	)
	_, err = p.Run()
	poller.Stop()
	registry.ClearAll()
	return err
}

func logPath() string {
	dir, err := os.UserCacheDir()
	if err != nil {
		return "timetrack.log"
	}
	dir = filepath.Join(dir, "timetrack")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "timetrack.log"
	}
	return filepath.Join(dir, "timetrack.log")
}

func newMigrateCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or upgrade the database schema",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := model.LoadConfig(*configPath)
			if err != nil {
				return err
			}
			s, err := store.NewSQLiteStore(cfg.Server.DBPath)
			if err != nil {
				return err
			}
			defer s.Close()

			version, err := s.SchemaVersion(cmd.Context())
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%s at schema version %d\n", cfg.Server.DBPath, version)
			return nil
		},
	}
}

func newConfigCmd(configPath *string) *cobra.Command {
	config := &cobra.Command{Use: "config", Short: "Manage the configuration file"}

	var force bool
	initCmd := &cobra.Command{
		Use:   "init",
		Short: "Write a config file with defaults and a fresh signing secret",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if _, err := os.Stat(*configPath); err == nil && !force {
				return fmt.Errorf("%s already exists (use --force to overwrite)", *configPath)
			}
			cfg, err := model.LoadConfig(*configPath)
			if err != nil {
				return err
			}
			if cfg.Server.JWTSecret == "" || force {
				secret := make([]byte, 32)
				if _, err := rand.Read(secret); err != nil {
					return fmt.Errorf("generating secret: %w", err)
				}
				cfg.Server.JWTSecret = hex.EncodeToString(secret)
			}
			if err := model.SaveConfig(*configPath, cfg); err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", *configPath)
			return nil
		},
	}
	initCmd.Flags().BoolVar(&force, "force", false, "overwrite an existing file")

	config.AddCommand(initCmd, &cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := model.LoadConfig(*configPath)
			if err != nil {
				return err
			}
			secret := "(unset)"
			if cfg.Server.JWTSecret != "" {
				secret = "(set)"
			}
			out := cmd.OutOrStdout()
			_, _ = fmt.Fprintf(out, "server.addr: %s\n", cfg.Server.Addr)
			_, _ = fmt.Fprintf(out, "server.db_path: %s\n", cfg.Server.DBPath)
			_, _ = fmt.Fprintf(out, "server.jwt_secret: %s\n", secret)
			_, _ = fmt.Fprintf(out, "server.token_ttl_hours: %d\n", cfg.Server.TokenTTLHours)
			_, _ = fmt.Fprintf(out, "server.timezone: %s\n", cfg.Server.Timezone)
			_, _ = fmt.Fprintf(out, "server.allow_client_timezone: %t\n", cfg.Server.AllowClientTimezone)
			_, _ = fmt.Fprintf(out, "client.server_url: %s\n", cfg.Client.ServerURL)
			_, _ = fmt.Fprintf(out, "client.poll_interval_sec: %d\n", cfg.Client.PollIntervalSec)
			_, _ = fmt.Fprintf(out, "display.theme: %s\n", cfg.Display.Theme)
			return nil
		},
	})
	return config
}
