package main

import (
	"context"
	"flag"
	"fmt"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/netvigil/tnmcore/internal/adminapi"
	"github.com/netvigil/tnmcore/internal/config"
	"github.com/netvigil/tnmcore/internal/icmpclient"
	"github.com/netvigil/tnmcore/internal/jobconfig"
	"github.com/netvigil/tnmcore/internal/probehistory"
	"github.com/netvigil/tnmcore/internal/scheduler"
	"github.com/netvigil/tnmcore/pkg/probe"
)

// runServe starts the long-running half of probectl: a Job Scheduler
// bootstrapped from a declarative YAML file, a SQLite history log of
// every sweep it runs, and the admin HTTP surface exposing both.
// Unlike "ping"/"resolve", which do one thing and exit, "serve" runs
// until signaled.
func runServe(args []string) {
	fs := flag.NewFlagSet("serve", flag.ExitOnError)
	configPath := fs.String("config", "", "path to configuration file")
	jobsPath := fs.String("jobs", "", "path to scheduler job bootstrap YAML")
	historyPath := fs.String("history", "probe_history.db", "path to the probe history SQLite file")
	adminAddr := fs.String("admin-addr", "127.0.0.1:8090", "admin HTTP listen address")
	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}

	logger, err := zap.NewProduction()
	if err != nil {
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("probectl serve starting")

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Fatal("failed to load configuration", zap.Error(err))
	}

	history, err := probehistory.Open(*historyPath)
	if err != nil {
		logger.Fatal("failed to open probe history store", zap.Error(err))
	}
	defer history.Close()

	sched := scheduler.New(logger.Named("scheduler"), scheduler.NewRealTimer(), nil)

	transport := icmpclient.New(logger.Named("icmpclient"))
	defer transport.Close()

	hooks := jobconfig.HookRegistry{
		"icmp.sweep": icmpSweepHook(transport, history, cfg, logger),
	}

	jobFile, err := jobconfig.Load(*jobsPath)
	if err != nil {
		logger.Fatal("failed to load job bootstrap file", zap.Error(err))
	}
	handles, err := jobconfig.Bootstrap(sched, jobFile, hooks)
	if err != nil {
		logger.Fatal("failed to bootstrap scheduler jobs", zap.Error(err))
	}
	logger.Info("bootstrapped scheduler jobs", zap.Int("count", len(handles)))

	admin := adminapi.New(*adminAddr, sched, history, logger.Named("adminapi"), nil)

	adminErr := make(chan error, 1)
	go func() { adminErr <- admin.Start() }()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		logger.Info("received shutdown signal", zap.String("signal", sig.String()))
	case err := <-adminErr:
		if err != nil {
			logger.Error("admin HTTP server exited with error", zap.Error(err))
		}
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := admin.Shutdown(shutdownCtx); err != nil {
		logger.Warn("admin HTTP server shutdown error", zap.Error(err))
	}

	logger.Info("probectl serve stopped")
}

// icmpSweepHook builds the scheduler.Command bound to the "icmp.sweep"
// bootstrap hook: it probes every target named under the
// "serve.sweep_targets" configuration key over the client transport and
// records the batch to history under the firing job's own handle.
func icmpSweepHook(transport *icmpclient.Transport, history *probehistory.Store, cfg config.Config, logger *zap.Logger) scheduler.Command {
	targets := cfg.GetStringSlice("serve.sweep_targets")
	return func(h scheduler.Handle) error {
		if len(targets) == 0 {
			return nil
		}

		req := &probe.Request{
			Type:    probe.TypeEcho,
			Size:    probe.MinSize,
			Timeout: 5,
			Retries: 2,
		}
		for _, t := range targets {
			ip := net.ParseIP(t)
			if ip == nil {
				resolved, err := net.ResolveIPAddr("ip4", t)
				if err != nil {
					logger.Warn("icmp.sweep: cannot resolve target", zap.String("target", t), zap.Error(err))
					continue
				}
				ip = resolved.IP
			}
			req.Targets = append(req.Targets, probe.Target{Dst: ip})
		}
		if len(req.Targets) == 0 {
			return nil
		}

		if err := transport.Probe(req); err != nil {
			return fmt.Errorf("icmp.sweep: probe: %w", err)
		}
		return history.RecordBatch(context.Background(), string(h), req)
	}
}
