package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"pilotjobs/internal/config"
	"pilotjobs/internal/db"
	"pilotjobs/internal/notify"
	"pilotjobs/internal/render"
	"pilotjobs/internal/scheduler"
	"pilotjobs/internal/scraper"
	"pilotjobs/internal/server"
	"pilotjobs/internal/store"
)

// Published snapshots outlive a missed daily run.
const redisTTL = 48 * time.Hour

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Scrape every site once, save the JSON files and render index.html",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		worker, cleanup := buildWorker(ctx, cfg)
		defer cleanup()

		doc, err := worker.Run(ctx)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%d job(s) saved to %s\n", len(doc.Today), cfg.OutputDir)
		return nil
	},
}

var renderCmd = &cobra.Command{
	Use:   "render",
	Short: "Re-render index.html from the saved jobs.json",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		st := store.New(cfg.OutputDir, cfg.HistoryDays)
		doc, err := st.Load()
		if err != nil {
			return err
		}
		path := st.Path(render.IndexFile)
		if err := render.WriteFile(path, doc); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "rendered %d job(s) to %s\n", len(doc.Today), path)
		return nil
	},
}

var scheduleCmd = &cobra.Command{
	Use:   "schedule",
	Short: "Run now, then on PILOTJOBS_SCHEDULE until interrupted",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		worker, cleanup := buildWorker(ctx, cfg)
		defer cleanup()

		sched, err := scheduler.New(worker, cfg.Schedule)
		if err != nil {
			return err
		}
		if err := sched.Start(ctx); err != nil {
			return err
		}

		<-ctx.Done()
		log.Println("[pilotjobs] Shutting down…")
		sched.Stop()
		log.Println("[pilotjobs] Stopped.")
		return nil
	},
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve index.html, the JSON files and the /api endpoints",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		st := store.New(cfg.OutputDir, cfg.HistoryDays)

		srv := &http.Server{
			Addr:         fmt.Sprintf(":%s", cfg.Port),
			Handler:      server.NewRouter(st),
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 10 * time.Second,
		}

		errCh := make(chan error, 1)
		go func() {
			log.Printf("[pilotjobs] v%s serving %s on :%s", server.Version, cfg.OutputDir, cfg.Port)
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				errCh <- err
			}
		}()

		// ── Graceful shutdown ────────────────────────────────────────────────
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		select {
		case <-quit:
		case err := <-errCh:
			return fmt.Errorf("HTTP server error: %w", err)
		}

		log.Println("[pilotjobs] Shutting down…")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Printf("[pilotjobs] Shutdown error: %v", err)
		}
		log.Println("[pilotjobs] Stopped.")
		return nil
	},
}

var sitesCmd = &cobra.Command{
	Use:   "sites",
	Short: "Print the active site table and red flags as YAML",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		enc := yaml.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent(2)
		defer enc.Close()
		return enc.Encode(config.SitesFile{RedFlags: cfg.RedFlags, Sites: cfg.Sites})
	},
}

// buildWorker wires the fetcher, the file store and whichever optional sinks
// are configured. A sink that cannot connect is logged and left out; the
// returned cleanup closes whatever was opened.
func buildWorker(ctx context.Context, cfg *config.Config) (*scraper.Worker, func()) {
	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	st := store.New(cfg.OutputDir, cfg.HistoryDays)
	fetcher := scraper.NewFetcher(cfg.HTTPTimeout, cfg.UserAgent, cfg.ScraperAPIKey)
	if cfg.ScraperAPIKey != "" {
		log.Println("[pilotjobs] Routing fetches through ScraperAPI")
	}

	opts := []scraper.Option{
		scraper.WithRedFlags(cfg.RedFlags),
		scraper.WithSourceDelay(cfg.SourceDelay),
	}

	// ── PostgreSQL ───────────────────────────────────────────────────────────
	if cfg.DatabaseURL != "" {
		log.Println("[pilotjobs] Connecting to PostgreSQL…")
		pool, err := db.NewPostgresPool(ctx, cfg.DatabaseURL)
		if err != nil {
			slog.Warn("postgres archive disabled", "err", err)
		} else {
			closers = append(closers, pool.Close)
			archive := store.NewPostgresArchive(pool)
			if err := archive.EnsureSchema(ctx); err != nil {
				slog.Warn("postgres archive disabled", "err", err)
			} else {
				opts = append(opts, scraper.WithArchiver(archive))
				log.Println("[pilotjobs] PostgreSQL connected ✓")
			}
		}
	}

	// ── Redis ────────────────────────────────────────────────────────────────
	if cfg.RedisURL != "" {
		log.Println("[pilotjobs] Connecting to Redis…")
		rdb, err := db.NewRedisClient(ctx, cfg.RedisURL)
		if err != nil {
			slog.Warn("redis publisher disabled", "err", err)
		} else {
			closers = append(closers, func() { rdb.Close() })
			opts = append(opts, scraper.WithPublisher(store.NewRedisPublisher(rdb, redisTTL)))
			log.Println("[pilotjobs] Redis connected ✓")
		}
	}

	// ── Telegram ─────────────────────────────────────────────────────────────
	if cfg.TelegramToken != "" {
		tg, err := notify.NewTelegram(cfg.TelegramToken, cfg.TelegramChatID)
		if err != nil {
			slog.Warn("telegram notifier disabled", "err", err)
		} else {
			opts = append(opts, scraper.WithNotifier(tg))
			log.Println("[pilotjobs] Telegram notifier ready ✓")
		}
	}

	return scraper.NewWorker(fetcher, st, cfg.Sites, opts...), cleanup
}
