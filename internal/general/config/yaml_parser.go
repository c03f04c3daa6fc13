package config

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

// parseYAML parses the specific two-level mapping used by config.yaml
func parseYAML(r io.Reader, cfg *Config) error {
	type section int
	const (
		none section = iota
		sv
		ps
		st
		ct
		lg
	)

	scanner := bufio.NewScanner(r)
	var cur section

	lineNo := 0
	seenTop := map[section]bool{}

	for scanner.Scan() {
		lineNo++
		raw := scanner.Text()

		// strip comments
		if i := strings.IndexByte(raw, '#'); i >= 0 {
			raw = raw[:i]
		}

		line := strings.TrimRight(raw, " \t\r\n")
		if strings.TrimSpace(line) == "" {
			continue
		}

		// top-level section? (no leading spaces)
		if len(line) > 0 && (line[0] != ' ' && line[0] != '\t') {
			switch strings.TrimSpace(line) {
			case "server:":
				cur = sv
				if seenTop[sv] {
					return fmt.Errorf("line %d: duplicate 'server' section", lineNo)
				}
				seenTop[sv] = true
			case "push:":
				cur = ps
				if seenTop[ps] {
					return fmt.Errorf("line %d: duplicate 'push' section", lineNo)
				}
				seenTop[ps] = true
			case "storage:":
				cur = st
				if seenTop[st] {
					return fmt.Errorf("line %d: duplicate 'storage' section", lineNo)
				}
				seenTop[st] = true
			case "control:":
				cur = ct
				if seenTop[ct] {
					return fmt.Errorf("line %d: duplicate 'control' section", lineNo)
				}
				seenTop[ct] = true
			case "log:":
				cur = lg
				if seenTop[lg] {
					return fmt.Errorf("line %d: duplicate 'log' section", lineNo)
				}
				seenTop[lg] = true
			default:
				return fmt.Errorf("line %d: unknown top-level key %q", lineNo, strings.TrimSuffix(strings.TrimSpace(line), ":"))
			}
			continue
		}

		// expect indented "key: value"
		if cur == none {
			return fmt.Errorf("line %d: key without a section", lineNo)
		}
		trim := strings.TrimSpace(line)
		colon := strings.IndexByte(trim, ':')
		if colon <= 0 {
			return fmt.Errorf("line %d: expected 'key: value'", lineNo)
		}
		key := strings.TrimSpace(trim[:colon])
		val := strings.TrimLeft(strings.TrimSpace(trim[colon+1:]), " \t")

		switch cur {
		case sv:
			switch key {
			case "base_url":
				cfg.Server.BaseURL = resolveScalar(val)
			case "timeout_seconds":
				n, err := strconv.Atoi(resolveScalar(val))
				if err != nil {
					return fmt.Errorf("line %d: server.timeout_seconds must be int: %v", lineNo, err)
				}
				cfg.Server.TimeoutSeconds = n
			default:
				return fmt.Errorf("line %d: unknown key in server: %q", lineNo, key)
			}
		case ps:
			switch key {
			case "transport":
				cfg.Push.Transport = resolveScalar(val)
			case "gateway_url":
				cfg.Push.GatewayURL = resolveScalar(val)
			case "amqp_host":
				cfg.Push.AMQPHost = resolveScalar(val)
			case "amqp_port":
				p, err := strconv.Atoi(resolveScalar(val))
				if err != nil {
					return fmt.Errorf("line %d: push.amqp_port must be int: %v", lineNo, err)
				}
				cfg.Push.AMQPPort = p
			case "amqp_user":
				cfg.Push.AMQPUser = resolveScalar(val)
			case "amqp_password":
				cfg.Push.AMQPPassword = resolveScalar(val)
			case "prefetch":
				n, err := strconv.Atoi(resolveScalar(val))
				if err != nil {
					return fmt.Errorf("line %d: push.prefetch must be int: %v", lineNo, err)
				}
				cfg.Push.Prefetch = n
			default:
				return fmt.Errorf("line %d: unknown key in push: %q", lineNo, key)
			}
		case st:
			switch key {
			case "state_dir":
				cfg.Storage.StateDir = resolveScalar(val)
			default:
				return fmt.Errorf("line %d: unknown key in storage: %q", lineNo, key)
			}
		case ct:
			switch key {
			case "addr":
				cfg.Control.Addr = resolveScalar(val)
			default:
				return fmt.Errorf("line %d: unknown key in control: %q", lineNo, key)
			}
		case lg:
			switch key {
			case "capacity":
				n, err := strconv.Atoi(resolveScalar(val))
				if err != nil {
					return fmt.Errorf("line %d: log.capacity must be int: %v", lineNo, err)
				}
				cfg.Log.Capacity = n
			case "poll_interval_seconds":
				n, err := strconv.Atoi(resolveScalar(val))
				if err != nil {
					return fmt.Errorf("line %d: log.poll_interval_seconds must be int: %v", lineNo, err)
				}
				cfg.Log.PollIntervalSeconds = n
			default:
				return fmt.Errorf("line %d: unknown key in log: %q", lineNo, key)
			}
		}
	}

	if err := scanner.Err(); err != nil {
		return err
	}

	return nil
}

// resolveScalar trims whitespace, removes surrounding quotes from YAML-like
// scalars, and expands ${VAR} values from the environment. For example:
//
//	"localhost"       -> localhost
//	'password123'     -> password123
//	${AMQP_PASSWORD}  -> value of $AMQP_PASSWORD
func resolveScalar(s string) string {
	s = strings.TrimSpace(s)

	// if value is quoted with "..." or '...', remove quotes safely
	n := len(s)
	if n >= 2 {
		if (s[0] == '"' && s[n-1] == '"') || (s[0] == '\'' && s[n-1] == '\'') {
			if unq, err := strconv.Unquote(s); err == nil {
				s = unq
			} else {
				// fallback if strconv.Unquote fails (e.g., mismatched quotes)
				s = s[1 : n-1]
			}
		}
	}

	if strings.HasPrefix(s, "${") && strings.HasSuffix(s, "}") {
		return os.Getenv(s[2 : len(s)-1])
	}

	return s
}
