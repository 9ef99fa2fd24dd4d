// Command probectl is an unprivileged CLI client for the probe engine:
// it drives icmpd over the client transport and the DNS resolver
// without ever touching a raw socket itself. Its "serve" subcommand
// additionally runs the Job Scheduler and admin HTTP surface as a
// long-lived process.
package main

import (
	"fmt"
	"os"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "ping":
		runPing(os.Args[2:])
	case "resolve":
		runResolve(os.Args[2:])
	case "serve":
		runServe(os.Args[2:])
	case "help", "-h", "--help":
		usage()
	default:
		fmt.Fprintf(os.Stderr, "probectl: unknown command %q\n", os.Args[1])
		usage()
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, "usage: probectl <command> [flags]")
	fmt.Fprintln(os.Stderr, "commands:")
	fmt.Fprintln(os.Stderr, "  ping      send ICMP echo probes via icmpd")
	fmt.Fprintln(os.Stderr, "  resolve   resolve a name or address via the DNS resolver")
	fmt.Fprintln(os.Stderr, "  serve     run the job scheduler and admin HTTP surface")
}
