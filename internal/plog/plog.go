// Package plog adapts the proxy's session/listener lifecycle logging onto
// the teacher's leveled console logger (see /log), the way
// middleware/accesslog built its own logger on top of the same package.
package plog

import (
	"os"

	"github.com/ryanbekhen/proxyd/log"
)

var std *log.Logger

// Init installs the process-wide logger at the given level, using the same
// colored console writer the teacher's server startup path configures.
func Init(level log.Level) {
	console := log.DefaultConsoleWriter()
	console.Out = os.Stdout
	std = log.New(console, level)
	log.SetOutput(console)
	log.SetLevel(level)
}

func logger() *log.Logger {
	if std == nil {
		Init(log.InfoLevel)
	}
	return std
}

// Session logs a session lifecycle event (dial attempted, tunnel
// established, auth rejected, ...) tagged with the client's peer address.
// log.Logger's level methods return a nil IEvent for filtered-out levels,
// so each helper checks the event before using it.
func Session(peer, event string) {
	if ev := logger().Info(); ev != nil {
		ev.Msgf("session %s: %s", peer, event)
	}
}

// SessionErr logs a session lifecycle event that failed.
func SessionErr(peer, event string, err error) {
	if ev := logger().Error(); ev != nil {
		ev.Err(err).Msgf("session %s: %s", peer, event)
	}
}

// Listener logs a listener-level event (boot, accept, shutdown).
func Listener(event string) {
	if ev := logger().Info(); ev != nil {
		ev.Msg(event)
	}
}

// Debugf logs a debug-level formatted message.
func Debugf(format string, args ...interface{}) {
	if ev := logger().Debug(); ev != nil {
		ev.Msgf(format, args...)
	}
}
