package main

import (
    "context"
    "errors"
    "net/http"
    "os"
    "os/signal"
    "syscall"
    "time"

    "github.com/agallardo55/watchtower-admin-dashboard-sub000/internal/aggregator"
    "github.com/agallardo55/watchtower-admin-dashboard-sub000/internal/config"
    "github.com/agallardo55/watchtower-admin-dashboard-sub000/internal/database"
    "github.com/agallardo55/watchtower-admin-dashboard-sub000/internal/handler"
    "github.com/agallardo55/watchtower-admin-dashboard-sub000/internal/logger"
    "github.com/agallardo55/watchtower-admin-dashboard-sub000/internal/queue"
    "github.com/agallardo55/watchtower-admin-dashboard-sub000/internal/repository"
    "github.com/agallardo55/watchtower-admin-dashboard-sub000/internal/router"
    queue_publisher "github.com/agallardo55/watchtower-admin-dashboard-sub000/internal/service"
    "github.com/agallardo55/watchtower-admin-dashboard-sub000/internal/supabase"
    "github.com/agallardo55/watchtower-admin-dashboard-sub000/internal/writeback"
)

func main() {
    cfg := config.Load()
    log := logger.New(cfg.LogLevel).With("env", cfg.Env)

    dialect, err := repository.ParseDialect(cfg.DBDriver)
    if err != nil {
        log.Error("invalid DB_DRIVER", err)
        os.Exit(1)
    }
    db, err := database.Open(dialect, cfg.DBDSN)
    if err != nil {
        log.Error("failed to open database", err)
        os.Exit(1)
    }
    defer db.Close()

    if cfg.RunMigrations {
        if err := database.RunMigrations(db, dialect); err != nil {
            log.Error("failed to run migrations", err)
            os.Exit(1)
        }
    }

    mappings, err := writeback.LoadMappings(cfg.MappingFile)
    if err != nil {
        log.Error("failed to load write-back mappings", err, "file", cfg.MappingFile)
        os.Exit(1)
    }

    projects := repository.NewProjectRepo(db, dialect, cfg.RegistryTable)
    users := repository.NewUserRepo(db, dialect)
    activity := repository.NewActivityRepo(db, dialect)
    remote := supabase.NewClient(cfg.RemoteTimeout)
    creds := supabase.EnvCredentials{}

    agg := aggregator.New(projects, users, remote, creds, log)
    translator := writeback.New(projects, users, remote, creds, mappings)

    ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
    defer stop()

    var events handler.EventPublisher
    if cfg.EventsEnabled {
        events = queue_publisher.NewPublisher(cfg.RabbitMQURL, log)
        go func() {
            if err := queue.StartActivityConsumer(ctx, cfg.RabbitMQURL, activity, log); err != nil && !errors.Is(err, context.Canceled) {
                log.Error("activity consumer stopped", err)
            }
        }()
    }

    rdb := config.NewRedisClient(config.LoadRedisConfig())
    if rdb == nil {
        log.Warn("redis unavailable, rate limiting and caching disabled")
    } else {
        defer rdb.Close()
    }

    e := router.New()
    router.RegisterRoutes(e)
    router.RegisterAdmin(e, router.Admin{
        JWTSecret: cfg.JWTSecret,
        Roles:     cfg.AdminRoles,
        RateLimit: config.LoadRateLimitConfig(),
        Cache:     config.LoadCacheConfig(),
        Redis:     rdb,
        Users:     handler.NewAdminUserHandler(agg, translator, events, log),
        Projects:  handler.NewProjectHandler(projects, creds),
        Activity:  handler.NewActivityHandler(activity),
    })

    go func() {
        addr := ":" + cfg.Port
        log.Info("listening", "addr", addr)
        if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
            log.Error("server stopped", err)
            stop()
        }
    }()

    <-ctx.Done()
    shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
    defer cancel()
    if err := e.Shutdown(shutdownCtx); err != nil {
        log.Error("graceful shutdown failed", err)
    }
}
