// Command procstudio-console starts the ProcStudio console backend.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/apex/log"
	"github.com/urfave/cli/v3"

	"procstudio-console/internal/cache"
	"procstudio-console/internal/config"
	mylog "procstudio-console/internal/log"
	"procstudio-console/internal/procstudio"
	"procstudio-console/internal/server"
)

func main() {
	os.Exit(realMain())
}

func realMain() int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newCommand().Run(ctx, os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	return 0
}

func newCommand() *cli.Command {
	return &cli.Command{
		Name:  "procstudio-console",
		Usage: "ProcStudio console backend with a cached view of the REST API",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "path to " + config.FileName,
				Sources: cli.EnvVars("PROCSTUDIO_CONFIG"),
			},
			&cli.StringFlag{
				Name:  "port",
				Usage: "listen port",
			},
			&cli.StringFlag{
				Name:  "api-url",
				Usage: "ProcStudio API base URL",
			},
			&cli.StringFlag{
				Name:  "log-level",
				Usage: "debug, info, warn, error or fatal",
			},
		},
		Action: run,
	}
}

func loadConfig(cmd *cli.Command) (config.Config, error) {
	cfg, err := config.Load(cmd.String("config"))
	if err != nil {
		return config.Config{}, err
	}
	if err := cfg.ApplyEnv(os.Getenv); err != nil {
		return config.Config{}, err
	}
	if cmd.IsSet("port") {
		cfg.Port = cmd.String("port")
	}
	if cmd.IsSet("api-url") {
		cfg.APIURL = cmd.String("api-url")
	}
	if cmd.IsSet("log-level") {
		cfg.LogLevel = cmd.String("log-level")
	}
	return cfg, cfg.Validate()
}

func run(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if err := mylog.InitLogger(cfg.LogLevel); err != nil {
		return err
	}
	if cfg.Source != "" {
		log.WithField("file", cfg.Source).Info("config loaded")
	}
	if cfg.DebugToken == "" {
		log.Warn("PROCSTUDIO_DEBUG_TOKEN not set; /debug endpoints will be open")
	}

	c := cache.New(cache.WithDefaultTTL(cfg.Cache.DefaultTTL))
	c.StartJanitor(ctx, cfg.Cache.SweepInterval)
	defer c.Close()

	api := procstudio.New(cfg.APIURL, &http.Client{Timeout: cfg.HTTPTimeout})
	srv := server.New(server.Config{
		DebugToken:   cfg.DebugToken,
		TeamsTTL:     cfg.Cache.TeamsTTL,
		DashboardTTL: cfg.Cache.DashboardTTL,
	}, c, api)

	httpSrv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           srv.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.WithFields(log.Fields{"port": cfg.Port, "api": cfg.APIURL, "tls": cfg.TLS.Enabled()}).Info("starting console server")
		if cfg.TLS.Enabled() {
			errCh <- httpSrv.ListenAndServeTLS(cfg.TLS.CertFile, cfg.TLS.KeyFile)
			return
		}
		log.Warn("TLS not configured; serving plain HTTP, run behind a TLS-terminating proxy")
		errCh <- httpSrv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}
