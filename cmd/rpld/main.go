// Command rpld runs the RPL control-plane daemon: it listens for ICMPv6
// RPL control messages on a configured interface, drives an
// [rpl.Engine] per configured instance, and persists DAO sequence
// counters and routes across restarts.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
)

// options holds the command-line options, following the teacher's
// options struct in internal/next/cmd/opt.go at a scale appropriate to
// this daemon's much smaller surface.
type options struct {
	// confPath is the path to the YAML configuration file.
	confPath string

	// serviceAction is the kardianos/service control action to perform,
	// or the empty string to just run in the foreground.
	serviceAction string

	// workDir resolves relative paths in the configuration (log file,
	// store file).
	workDir string
}

func parseOptions() (opts options) {
	fs := flag.NewFlagSet("rpld", flag.ExitOnError)
	fs.StringVar(&opts.confPath, "c", "/etc/rpld/rpld.yaml", "path to the configuration file")
	fs.StringVar(&opts.serviceAction, "s", "", "service control action: install, uninstall, start, stop, restart, status, run")
	fs.StringVar(&opts.workDir, "w", "", "working directory for relative paths")

	_ = fs.Parse(os.Args[1:])

	return opts
}

func main() {
	opts := parseOptions()

	cfg, err := readConfig(opts.confPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	logger := newLogger(cfg.Log, opts.workDir)

	if opts.serviceAction != "" {
		handleServiceControlAction(opts.serviceAction, opts, logger)

		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err = runDaemon(ctx, opts, logger); err != nil {
		logger.Error("rpld exited", "err", err)
		os.Exit(1)
	}
}
