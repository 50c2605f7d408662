package dispatch

import (
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/vijayshc/trino-teradata-exchange/internal/ifaces"
	"github.com/vijayshc/trino-teradata-exchange/internal/wire"
)

// Broadcaster fans a single JOB_FINISHED control message out to every
// target consumer endpoint. Each target gets its own short-lived control
// connection, dialed and closed independently so one unreachable endpoint
// cannot stall or fail the others.
type Broadcaster struct {
	timeout time.Duration
	log     ifaces.Logger
}

// NewBroadcaster builds a broadcaster that bounds every per-target dial
// and write to timeout.
func NewBroadcaster(timeout time.Duration, log ifaces.Logger) *Broadcaster {
	return &Broadcaster{timeout: timeout, log: log}
}

// BroadcastResult records one endpoint's outcome.
type BroadcastResult struct {
	Endpoint string
	Err      error
}

// Broadcast sends JOB_FINISHED for qid, authenticated with token, to every
// endpoint, returning once every target has either acknowledged or failed.
// Each endpoint is contacted at most once; completion order across
// endpoints is unspecified.
func (b *Broadcaster) Broadcast(endpoints []string, token, qid string) []BroadcastResult {
	results := make([]BroadcastResult, len(endpoints))
	var wg sync.WaitGroup
	wg.Add(len(endpoints))
	for i, ep := range endpoints {
		go func(i int, ep string) {
			defer wg.Done()
			err := b.sendOne(ep, token, qid)
			results[i] = BroadcastResult{Endpoint: ep, Err: err}
			if err != nil && b.log != nil {
				b.log.Warn("broadcast to endpoint failed", "endpoint", ep, "qid", qid, "err", err)
			}
		}(i, ep)
	}
	wg.Wait()
	return results
}

func (b *Broadcaster) sendOne(endpoint, token, qid string) error {
	conn, err := net.DialTimeout("tcp", endpoint, b.timeout)
	if err != nil {
		return fmt.Errorf("dial %s: %w", endpoint, err)
	}
	defer conn.Close()

	conn.SetDeadline(time.Now().Add(b.timeout))

	if err := wire.WriteControlMessage(conn, token, qid, wire.CmdJobFinished); err != nil {
		return fmt.Errorf("write control message to %s: %w", endpoint, err)
	}

	ack := make([]byte, 2)
	if _, err := conn.Read(ack); err != nil {
		return fmt.Errorf("ack from %s: %w", endpoint, err)
	}
	if string(ack) != "OK" {
		return fmt.Errorf("%s rejected control message", endpoint)
	}
	return nil
}
