package main

import (
	"flag"
	"fmt"
	"net"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/netvigil/tnmcore/internal/icmpclient"
	"github.com/netvigil/tnmcore/pkg/probe"
)

func runPing(args []string) {
	fs := flag.NewFlagSet("ping", flag.ExitOnError)
	size := fs.Int("size", probe.MinSize, "probe size in bytes")
	timeout := fs.Int("timeout", 5, "total timeout budget in seconds, shared across all attempts")
	retries := fs.Int("retries", 2, "retry count")

	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}
	targets := fs.Args()
	if len(targets) == 0 {
		fmt.Fprintln(os.Stderr, "error: at least one target is required")
		fs.Usage()
		os.Exit(1)
	}

	req := &probe.Request{
		Type:    probe.TypeEcho,
		Size:    uint16(*size),
		Timeout: uint8(*timeout),
		Retries: uint8(*retries),
	}
	for _, t := range targets {
		ip := net.ParseIP(t)
		if ip == nil {
			resolved, err := net.ResolveIPAddr("ip4", t)
			if err != nil {
				fmt.Fprintf(os.Stderr, "error: cannot resolve %q: %v\n", t, err)
				os.Exit(1)
			}
			ip = resolved.IP
		}
		req.Targets = append(req.Targets, probe.Target{Dst: ip})
	}

	logger, _ := zap.NewProduction()
	defer logger.Sync()

	transport := icmpclient.New(logger.Named("probectl"))
	start := time.Now()
	if err := transport.Probe(req); err != nil {
		fmt.Fprintf(os.Stderr, "probe error: %v\n", err)
	}
	elapsed := time.Since(start)

	for _, tgt := range req.Targets {
		fmt.Printf("%-20s status=%-9s value=%d responder=%s\n", tgt.Dst, tgt.Status, tgt.Value, tgt.Res)
	}
	fmt.Printf("done in %s\n", elapsed)
}
