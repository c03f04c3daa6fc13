package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	dashboardmode "driver-companion/cmd/dashboard"
	loginmode "driver-companion/cmd/login"
	logoutmode "driver-companion/cmd/logout"
	"driver-companion/internal/cli"
)

func main() {
	// quick path for global help
	if len(os.Args) == 2 && (os.Args[1] == "--help" || os.Args[1] == "-h") {
		cli.PrintUsage(os.Stdout)
		os.Exit(0)
	}

	// parse mode and collect the remaining args for that mode
	mode, modeArgs, err := cli.ParseMode(os.Args[1:])
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		cli.PrintUsage(os.Stderr)
		os.Exit(2)
	}

	// context cancelled on SIGINT/SIGTERM for graceful shutdown
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// run the mode
	switch mode {

	case cli.ModeLogin:
		fs := flag.NewFlagSet(cli.ModeLogin, flag.ContinueOnError)
		cfgPath := fs.String("config", "config/config.yaml", "Path to the config file")
		username := fs.String("username", "", "Driver username (prompted if empty)")
		password := fs.String("password", "", "Driver password (prompted if empty)")
		cli.AttachUsage(fs, cli.ModeLogin)

		if err := fs.Parse(modeArgs); err != nil {
			if err == flag.ErrHelp {
				os.Exit(0)
			}
			fmt.Fprintln(os.Stderr, "Error:", err)
			os.Exit(2)
		}
		if err := loginmode.Run(ctx, *cfgPath, *username, *password); err != nil {
			fmt.Fprintln(os.Stderr, "Error:", err)
			os.Exit(1)
		}

	case cli.ModeDashboard:
		fs := flag.NewFlagSet(cli.ModeDashboard, flag.ContinueOnError)
		cfgPath := fs.String("config", "config/config.yaml", "Path to the config file")
		poll := fs.Int("poll", 0, "Request-status poll interval in seconds (0 = config value)")
		capacity := fs.Int("capacity", 0, "Notification log capacity (0 = config value)")
		cli.AttachUsage(fs, cli.ModeDashboard)

		if err := fs.Parse(modeArgs); err != nil {
			if err == flag.ErrHelp {
				os.Exit(0)
			}
			fmt.Fprintln(os.Stderr, "Error:", err)
			os.Exit(2)
		}
		if *poll < 0 {
			fmt.Fprintln(os.Stderr, "Error: --poll must be >= 0")
			fs.Usage()
			os.Exit(2)
		}
		if *capacity < 0 {
			fmt.Fprintln(os.Stderr, "Error: --capacity must be >= 0")
			fs.Usage()
			os.Exit(2)
		}
		if err := dashboardmode.Run(ctx, *cfgPath, *poll, *capacity); err != nil {
			fmt.Fprintln(os.Stderr, "Error:", err)
			os.Exit(1)
		}

	case cli.ModeLogout:
		fs := flag.NewFlagSet(cli.ModeLogout, flag.ContinueOnError)
		cfgPath := fs.String("config", "config/config.yaml", "Path to the config file")
		cli.AttachUsage(fs, cli.ModeLogout)

		if err := fs.Parse(modeArgs); err != nil {
			if err == flag.ErrHelp {
				os.Exit(0)
			}
			fmt.Fprintln(os.Stderr, "Error:", err)
			os.Exit(2)
		}
		if err := logoutmode.Run(ctx, *cfgPath); err != nil {
			fmt.Fprintln(os.Stderr, "Error:", err)
			os.Exit(1)
		}

	default:
		// should not happen because ParseMode validates known modes
		fmt.Fprintln(os.Stderr, "Error: unknown mode")
		os.Exit(2)
	}

	// tiny delay to let deferred logs flush on very fast exits
	select {
	case <-ctx.Done():
	case <-time.After(10 * time.Millisecond):
	}
}
