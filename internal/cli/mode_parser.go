package cli

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"strings"
)

const (
	ModeLogin     = "login"
	ModeDashboard = "dashboard"
	ModeLogout    = "logout"
)

// isKnownMode checks if the provided mode name is known.
func isKnownMode(s string) (string, bool) {
	switch s {
	case ModeLogin, "l":
		return ModeLogin, true
	case ModeDashboard, "dash", "d":
		return ModeDashboard, true
	case ModeLogout:
		return ModeLogout, true
	default:
		return "", false
	}
}

// ParseMode supports:
//
//	--mode=<value>
//	<value> (subcommand shorthand), e.g., `dashboard --poll=10`
func ParseMode(args []string) (string, []string, error) {
	var mode string
	var out []string

	for i := range args {
		arg := args[i]
		if after, ok := strings.CutPrefix(arg, "--mode="); ok {
			mode = after
			continue
		}

		if mode == "" {
			if m, ok := isKnownMode(arg); ok {
				mode = m
				continue
			}
		}
		out = append(out, arg)
	}

	if mode == "" {
		return "", out, errors.New("no mode specified: use --mode=<mode>")
	}

	if m, ok := isKnownMode(mode); ok {
		mode = m
	}

	return mode, out, nil
}

// PrintUsage prints the usage information with examples.
func PrintUsage(w io.Writer) {
	fmt.Fprint(w, "\033[36m") // cyan

	fmt.Fprintln(w, `Usage:
  ./driver-companion --mode=<mode> [flags]

Modes:
  login          Log in to the dispatch server and store the session
  dashboard      Register for push and run the ride-request dashboard
  logout         Unregister the device and wipe the stored session

Examples:
  ./driver-companion --mode=login --username=driver42
  ./driver-companion --mode=dashboard --config=config/config.yaml
  ./driver-companion --mode=logout`)

	fmt.Fprint(w, "\033[0m") // reset
}

// AttachUsage wires a concise per-mode usage to a FlagSet.
func AttachUsage(fs *flag.FlagSet, mode string) {
	fs.Usage = func() {
		fmt.Fprintf(fs.Output(), "Usage: ./driver-companion --mode=%s [flags]\n", mode)
		fs.PrintDefaults()
	}
}
