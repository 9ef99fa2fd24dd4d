// Command trapd is the privileged SNMP trap sink: it binds the trap
// port, optionally joins a multicast group, and fans every received
// datagram out to connected stream subscribers.
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
	"github.com/netvigil/tnmcore/internal/trapsink"
)

func main() {
	configPath := flag.String("config", "", "path to configuration file")
	flag.Parse()

	logger, err := zap.NewProduction()
	if err != nil {
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("trapd starting")

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Fatal("failed to load configuration", zap.Error(err))
	}

	trapCfg := trapsink.Config{
		TrapPort:       cfg.GetInt("trap.port"),
		SubscriberPort: cfg.GetInt("trap.subscriber_port"),
		JoinMulticast:  cfg.GetBool("trap.join_multicast"),
		MulticastGroup: cfg.GetString("trap.multicast_group"),
		Interface:      cfg.GetString("trap.interface"),
	}

	daemon, err := trapsink.New(trapCfg, logger.Named("trapsink"))
	if err != nil {
		logger.Fatal("failed to open trap sockets", zap.Error(err))
	}
	defer daemon.Close()

	if err := icmpdaemon.DropPrivileges(); err != nil {
		logger.Fatal("failed to drop privileges", zap.Error(err))
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	runErr := make(chan error, 1)
	go func() {
		runErr <- daemon.Run(ctx)
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		logger.Info("received shutdown signal", zap.String("signal", sig.String()))
		cancel()
	case err := <-runErr:
		if err != nil {
			logger.Error("trapd exited with error", zap.Error(err))
			os.Exit(1)
		}
		return
	}

	select {
	case <-runErr:
	case <-time.After(10 * time.Second):
		logger.Warn("trapd did not exit within shutdown window")
	}

	logger.Info("trapd stopped")
}
