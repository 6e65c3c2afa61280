package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/andresuchdata/smart-replenishment/internal/api"
	"github.com/andresuchdata/smart-replenishment/internal/config"
	"github.com/andresuchdata/smart-replenishment/internal/scheduler"
	"github.com/andresuchdata/smart-replenishment/internal/service"
	"github.com/andresuchdata/smart-replenishment/pkg/logger"
	"github.com/gin-gonic/gin"
	"github.com/urfave/cli/v2"
)

func serveCommand() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Run the periodic replenishment scheduler and the HTTP API",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:    "run-on-start",
				Usage:   "Trigger a run immediately instead of waiting one interval",
				EnvVars: []string{"REPLENISH_RUN_ON_START"},
			},
		},
		Action: serve,
	}
}

func serve(c *cli.Context) error {
	cfg := config.Load()
	if c.IsSet("run-on-start") {
		cfg.Replenishment.RunOnStart = c.Bool("run-on-start")
	}

	comps, err := buildComponents(cfg)
	if err != nil {
		return err
	}
	defer comps.Close()

	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	sched := scheduler.New(comps.runner, cfg.Replenishment.Interval, cfg.Replenishment.RunOnStart)
	sched.Start(ctx)

	var srv *http.Server
	if cfg.Server.Enabled {
		if cfg.Server.Mode == "debug" {
			gin.SetMode(gin.DebugMode)
		} else {
			gin.SetMode(gin.ReleaseMode)
		}

		svc := service.NewReplenishmentService(comps.runner, comps.runs, comps.summaries, service.WithBaseContext(ctx))
		srv = &http.Server{
			Addr:         ":" + cfg.Server.Port,
			Handler:      api.NewRouter(&api.Services{Replenishment: svc}, cfg.Server.AllowedOrigins),
			ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
			WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		}

		go func() {
			logger.Log.Info().Str("port", cfg.Server.Port).Msg("Starting server")
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Log.Error().Err(err).Msg("HTTP server stopped")
				stop()
			}
		}()
	}

	<-ctx.Done()
	logger.Log.Info().Msg("Shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if srv != nil {
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Log.Error().Err(err).Msg("Server forced to shutdown")
		}
	}
	if err := sched.Stop(shutdownCtx); err != nil {
		logger.Log.Error().Err(err).Msg("scheduler did not stop in time")
	}

	logger.Log.Info().Msg("Server exiting")
	return nil
}
