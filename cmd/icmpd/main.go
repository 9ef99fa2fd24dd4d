// Command icmpd is the privileged ICMP probe daemon: it opens the raw
// socket, drops privileges, and then speaks the fixed-length frame
// protocol over stdin/stdout to whatever process spawned it (normally
// an internal/icmpclient.Transport).
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/netvigil/tnmcore/internal/config"
	"github.com/netvigil/tnmcore/internal/icmpdaemon"
)

func main() {
	configPath := flag.String("config", "", "path to configuration file")
	flag.Parse()

	logger, err := zap.NewProduction()
	if err != nil {
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("icmpd starting")

	if _, err := config.Load(*configPath); err != nil {
		logger.Fatal("failed to load configuration", zap.Error(err))
	}

	daemon, err := icmpdaemon.New(logger.Named("icmpdaemon"))
	if err != nil {
		logger.Fatal("failed to open raw socket", zap.Error(err))
	}
	defer daemon.Close()

	if err := icmpdaemon.LimitCPU(); err != nil {
		logger.Warn("failed to set cpu rlimit", zap.Error(err))
	}
	if err := icmpdaemon.DropPrivileges(); err != nil {
		logger.Fatal("failed to drop privileges", zap.Error(err))
	}

	stdout, err := icmpdaemon.NonblockingStdout()
	if err != nil {
		logger.Warn("failed to set stdout non-blocking", zap.Error(err))
		stdout = os.Stdout
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	runErr := make(chan error, 1)
	go func() {
		runErr <- daemon.Run(ctx, os.Stdin, stdout)
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		logger.Info("received shutdown signal", zap.String("signal", sig.String()))
		cancel()
	case err := <-runErr:
		if err != nil {
			logger.Error("icmpd exited with error", zap.Error(err))
			os.Exit(1)
		}
		return
	}

	select {
	case <-runErr:
	case <-time.After(10 * time.Second):
		logger.Warn("icmpd did not exit within shutdown window")
	}

	logger.Info("icmpd stopped")
}
