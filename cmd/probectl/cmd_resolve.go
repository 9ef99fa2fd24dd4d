package main

import (
	"context"
	"flag"
	"fmt"
	"net"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/netvigil/tnmcore/internal/resolver"
)

func runResolve(args []string) {
	fs := flag.NewFlagSet("resolve", flag.ExitOnError)
	nameserver := fs.String("nameserver", resolver.DefaultNameserver.String(), "name server address")
	timeout := fs.Duration("timeout", resolver.DefaultTimeout, "query timeout")

	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}
	args = fs.Args()
	if len(args) != 1 {
		fmt.Fprintln(os.Stderr, "error: exactly one name or address is required")
		fs.Usage()
		os.Exit(1)
	}
	input := args[0]

	cfg := resolver.DefaultConfig()
	cfg.Timeout = *timeout
	if ip := nsIP(*nameserver); ip != nil {
		cfg.Nameservers = []net.IP{ip}
	}

	logger, _ := zap.NewProduction()
	defer logger.Sync()

	r := resolver.New(cfg, logger.Named("probectl"))
	ctx, cancel := context.WithTimeout(context.Background(), *timeout+time.Second)
	defer cancel()

	if resolver.IsValidHostName(input) {
		ip, err := r.AddressName(ctx, input)
		if err != nil {
			fmt.Fprintf(os.Stderr, "resolve error: %v\n", err)
			os.Exit(1)
		}
		fmt.Println(ip)
		return
	}

	name, err := r.NameIP(ctx, input)
	if err != nil {
		fmt.Fprintf(os.Stderr, "resolve error: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(name)
}

func nsIP(s string) net.IP {
	return net.ParseIP(s)
}
