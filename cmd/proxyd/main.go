// Command proxyd runs the forward HTTP/1.x proxy. Flag parsing and process
// wiring live here rather than in a library package (the startup line is
// logged by netio.Listener.Run), matching examples/static/static_server.go's role in the
// teacher: a thin wrapper, not a component under test.
package main

import (
	"flag"
	"os"
	"strconv"
	"strings"

	"github.com/ryanbekhen/proxyd/internal/config"
	"github.com/ryanbekhen/proxyd/internal/netio"
	"github.com/ryanbekhen/proxyd/internal/plog"
	"github.com/ryanbekhen/proxyd/internal/plugin"
	"github.com/ryanbekhen/proxyd/log"
)

func main() {
	cfg := config.DefaultConfig()

	hostname := flag.String("hostname", cfg.Hostname, "address the proxy binds to")
	port := flag.Int("port", cfg.Port, "port the proxy binds to")
	basicAuth := flag.String("basic-auth", "", "USER:PASS required in Proxy-Authorization, empty disables auth")
	backlog := flag.Int("backlog", cfg.Backlog, "listen socket backlog (accepted but not applied to the listener)")
	logLevel := flag.String("log-level", "info", "debug, info, warn, error")
	rateLimit := flag.Int("rate-limit", cfg.RateLimit, "max new connections per second per source IP, 0 disables")
	idleTimeout := flag.Duration("idle-timeout", cfg.IdleTimeout, "TCP keep-alive period for client connections (idle but reachable peers are not closed)")
	disableBanner := flag.Bool("disable-startup-message", false, "suppress the startup banner")
	flag.Parse()

	cfg.Hostname = *hostname
	cfg.Port = *port
	cfg.Backlog = *backlog
	cfg.RateLimit = *rateLimit
	cfg.IdleTimeout = *idleTimeout
	cfg.DisableStartupMessage = *disableBanner
	if *basicAuth != "" {
		user, pass, ok := strings.Cut(*basicAuth, ":")
		if !ok {
			os.Stderr.WriteString("proxyd: --basic-auth must be USER:PASS\n")
			os.Exit(2)
		}
		cfg.BasicAuthUser = user
		cfg.BasicAuthPass = pass
	}

	plog.Init(parseLevel(*logLevel))

	ln, err := netio.NewListener(cfg, func() plugin.Chain {
		return plugin.Chain{plugin.NewAccessLog()}
	})
	if err != nil {
		plog.SessionErr("listener", "failed to build listener", err)
		os.Exit(1)
	}

	addr := cfg.Hostname + ":" + strconv.Itoa(cfg.Port)
	if err := ln.Run(addr); err != nil {
		plog.SessionErr("listener", "exited with error", err)
		os.Exit(1)
	}
}

func parseLevel(s string) log.Level {
	switch strings.ToLower(s) {
	case "debug":
		return log.DebugLevel
	case "warn":
		return log.WarnLevel
	case "error":
		return log.ErrorLevel
	default:
		return log.InfoLevel
	}
}
