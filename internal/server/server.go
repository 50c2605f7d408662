// Package server implements the ingestion server: a TCP listener that
// accepts producer connections, authenticates and decodes their batches,
// and pushes decoded pages into the query buffer registry.
package server

import (
	"errors"
	"net"
	"strconv"
	"time"

	"github.com/vijayshc/trino-teradata-exchange/internal/config"
	"github.com/vijayshc/trino-teradata-exchange/internal/ifaces"
	"github.com/vijayshc/trino-teradata-exchange/internal/logging"
	"github.com/vijayshc/trino-teradata-exchange/internal/registry"
)

// maxSchemaBytes bounds the handshake's schema JSON payload; generous
// relative to any realistic column list, but not unbounded.
const maxSchemaBytes = 1 << 20

// Server accepts ingestion connections and decodes them into the registry.
// One Server runs per consumer worker process.
type Server struct {
	cfg *config.Config
	reg *registry.Registry
	log *logging.Logger
	obs ifaces.Observer

	listener net.Listener

	sem     chan struct{} // worker pool semaphore
	ingestQ chan net.Conn // backlog before caller-runs kicks in
	stopCh  chan struct{}
}

// New builds a Server bound to reg. Start must be called to begin
// listening.
func New(cfg *config.Config, reg *registry.Registry, log *logging.Logger, obs ifaces.Observer) *Server {
	if obs == nil {
		obs = ifaces.NoOpObserver{}
	}
	if log == nil {
		log = logging.Default()
	}
	return &Server{
		cfg:     cfg,
		reg:     reg,
		log:     log,
		obs:     obs,
		sem:     make(chan struct{}, cfg.MaxIngestThreads),
		ingestQ: make(chan net.Conn, cfg.IngestQueueCapacity),
		stopCh:  make(chan struct{}),
	}
}

// Start binds the listen port and begins the accept loop plus the fixed
// pool of queue-draining workers. Returns once the listener is bound; the
// accept loop itself runs on its own goroutine.
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", portAddr(s.cfg.ListenPort))
	if err != nil {
		return err
	}
	s.listener = ln

	for i := 0; i < s.cfg.MaxIngestThreads; i++ {
		go s.drainQueue()
	}
	go s.acceptLoop()
	return nil
}

// Stop closes the listener; in-flight connections are left to finish on
// their own.
func (s *Server) Stop() error {
	close(s.stopCh)
	if s.listener != nil {
		return s.listener.Close()
	}
	return nil
}

// Addr returns the bound listener's address, useful for tests that bind an
// ephemeral port.
func (s *Server) Addr() net.Addr {
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// acceptLoop accepts connections and dispatches them under the worker
// semaphore. When both the semaphore and the ingest queue are saturated, it
// falls back to running the handler itself on the accept goroutine
// (caller-runs): the accept loop stalls instead of unbounded memory growth
// or a dropped connection.
func (s *Server) acceptLoop() {
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			select {
			case <-s.stopCh:
				return
			default:
			}
			if errors.Is(err, net.ErrClosed) {
				return
			}
			// Transient accept failures (fd exhaustion, aborted
			// connections) must not take the server offline for every
			// future producer; back off briefly and keep accepting.
			s.log.Warn("accept failed, retrying", "err", err)
			time.Sleep(100 * time.Millisecond)
			continue
		}

		select {
		case s.sem <- struct{}{}:
			go s.runOne(conn)
		default:
			select {
			case s.ingestQ <- conn:
			default:
				s.runCallerRuns(conn)
			}
		}
	}
}

func (s *Server) drainQueue() {
	for {
		select {
		case <-s.stopCh:
			return
		case conn := <-s.ingestQ:
			s.sem <- struct{}{}
			s.runOne(conn)
		}
	}
}

func (s *Server) runOne(conn net.Conn) {
	defer func() { <-s.sem }()
	s.handleConn(conn)
}

// runCallerRuns executes the handler directly on the accept goroutine,
// applying backpressure to the listener itself rather than queueing
// indefinitely.
func (s *Server) runCallerRuns(conn net.Conn) {
	s.handleConn(conn)
}

func portAddr(port int) string {
	return ":" + strconv.Itoa(port)
}
