package plugin

import (
	"fmt"
	"time"

	"github.com/ryanbekhen/proxyd/internal/plog"
)

// AccessLog is the worked-example interceptor cmd/proxyd registers by
// default: it logs the upstream dial and, when the upstream connection
// closes, the total upstream bytes relayed to the client (HTTP or tunnel), mirroring middleware/accesslog's
// per-request summary line but at session granularity.
type AccessLog struct {
	start      time.Time
	bytesSeen  int
	lastTarget string
}

// NewAccessLog returns an AccessLog interceptor.
func NewAccessLog() *AccessLog {
	return &AccessLog{start: time.Now()}
}

func (a *AccessLog) Name() string { return "accesslog" }

func (a *AccessLog) BeforeUpstreamConnect(host string, port int) error {
	a.start = time.Now()
	a.lastTarget = fmt.Sprintf("%s:%d", host, port)
	plog.Session(a.lastTarget, "dialing upstream")
	return nil
}

func (a *AccessLog) OnUpstreamResponseChunk(data []byte) {
	a.bytesSeen += len(data)
}

func (a *AccessLog) OnUpstreamConnectionClose() {
	plog.Session(a.lastTarget, fmt.Sprintf("closed after %s, %d bytes relayed", time.Since(a.start), a.bytesSeen))
}
