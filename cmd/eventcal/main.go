package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/hray3182/eventcal/internal/auth"
	"github.com/hray3182/eventcal/internal/calendar"
	"github.com/hray3182/eventcal/internal/config"
	"github.com/hray3182/eventcal/internal/database"
	"github.com/hray3182/eventcal/internal/ics"
	"github.com/hray3182/eventcal/internal/recurrence"
	"github.com/hray3182/eventcal/internal/repository"
	"github.com/hray3182/eventcal/internal/scheduler"
	"github.com/hray3182/eventcal/internal/web"

	_ "time/tzdata"
)

type flagConfig struct {
	configPath  string
	listen      string
	migrateOnly bool
}

func main() {
	flags := parseFlags()

	cfg, err := config.Load(flags.configPath)
	if err != nil {
		slog.Error("failed to load config", "path", flags.configPath, "error", err)
		os.Exit(1)
	}
	if flags.listen != "" {
		cfg.Listen = flags.listen
	}
	slog.SetDefault(newLogger(cfg.Log))

	if err := run(cfg, flags.migrateOnly); err != nil {
		slog.Error("eventcal stopped", "error", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, migrateOnly bool) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	loc := cfg.Location()
	slog.Info("effective config",
		"listen", cfg.Listen,
		"timezone", loc.String(),
		"driver", cfg.Database.Driver,
		"default_bound", cfg.Calendar.DefaultBound,
		"filter_to_window", cfg.Calendar.FilterToWindow,
		"export_path", cfg.Export.Path,
	)

	db, err := database.New(ctx, cfg.Database.Driver, cfg.Database.DSN)
	if err != nil {
		return err
	}
	defer db.Close()
	slog.Info("connected to database", "driver", cfg.Database.Driver)

	if err := db.Migrate(ctx); err != nil {
		return err
	}
	slog.Info("database migrations completed")
	if migrateOnly {
		return nil
	}

	expander := recurrence.NewExpander(recurrence.SystemClock, recurrence.ParseBoundPolicy(cfg.Calendar.DefaultBound))
	feed := ics.NewBuilder(expander, cfg.Site.Name)

	// The snapshot scheduler reads from the service it is notified by.
	var sched *scheduler.Scheduler
	svc := calendar.NewService(
		repository.NewEventRepository(db, loc),
		repository.NewCategoryRepository(db),
		repository.NewContentRepository(db),
		expander,
		loc,
		calendar.WithWindowFilter(cfg.Calendar.FilterToWindow),
		calendar.WithOnChange(func() {
			if sched != nil {
				sched.Notify()
			}
		}),
	)

	if cfg.Export.Path != "" {
		sched = scheduler.New(feed, svc, cfg.Export.Path, cfg.Export.Cron, loc)
		go func() {
			if err := sched.Start(ctx); err != nil {
				slog.Error("export scheduler stopped", "error", err)
			}
		}()
	} else {
		slog.Info("ICS export disabled, no export path configured")
	}

	if cfg.Auth.AdminPassword == "" {
		slog.Warn("admin password not set, admin endpoints are disabled")
	}

	srv := web.NewServer(svc, auth.NewNonces(cfg.Auth.Secret, cfg.NonceLifetime()), feed, web.Options{
		AdminUser:     cfg.Auth.AdminUser,
		AdminPassword: cfg.Auth.AdminPassword,
		FeedToken:     cfg.Auth.FeedToken,
		SecureCookies: strings.HasPrefix(cfg.Site.BaseURL, "https://"),
	})
	return srv.ListenAndServe(ctx, cfg.Listen)
}

func newLogger(c config.LogConfig) *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.Level)); err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}
	if c.Format == "json" {
		return slog.New(slog.NewJSONHandler(os.Stderr, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stderr, opts))
}

func parseFlags() flagConfig {
	var cfg flagConfig

	flag.StringVar(&cfg.configPath, "config", config.DefaultPath, "Path to config file")
	flag.StringVar(&cfg.listen, "listen", "", "HTTP listen address (overrides config if set)")
	flag.BoolVar(&cfg.migrateOnly, "migrate-only", false, "Apply database migrations and exit")

	flag.Parse()

	return cfg
}
