// Package config defines the enumerated configuration surface of the
// exchange bridge. Every field here has a default; nothing else is
// recognized.
package config

import "time"

// Config is the core's entire configuration surface. It is built once at
// startup (by the CLI in cmd/exchange-server, or by an embedding caller)
// and shared read-only across every component.
type Config struct {
	// ListenPort is the TCP port the ingestion server binds.
	ListenPort int

	// AdvertisedEndpoints is the "host:port,..." list broadcast to
	// producers and dialed by the control-signal broadcaster.
	AdvertisedEndpoints []string

	// TargetBatchSize is the requested rows-per-batch hint handed to the
	// producer job; a producer may send smaller batches.
	TargetBatchSize int

	// CompressionAlgorithm is one of "NONE", "ZLIB", "LZ4".
	CompressionAlgorithm string

	// SocketRecvBufferBytes sets SO_RCVBUF on accepted sockets.
	SocketRecvBufferBytes int

	// InputBufferBytes sizes the userland buffered reader per connection.
	InputBufferBytes int

	// MaxIngestThreads caps the ingestion worker pool.
	MaxIngestThreads int

	// IngestQueueCapacity is the backlog before caller-runs backpressure
	// kicks in on the accept loop.
	IngestQueueCapacity int

	// PerQueryQueueCapacity is the bounded FIFO size in the registry.
	PerQueryQueueCapacity int

	// PagePollTimeout bounds how long poll_page waits before returning a
	// timeout rather than a page.
	PagePollTimeout time.Duration

	// DynamicFilterTimeout bounds how long the dispatcher waits for
	// dynamic predicates before proceeding unfiltered.
	DynamicFilterTimeout time.Duration

	// TimezoneOffsetSeconds is applied to TIME and TIMESTAMP decode.
	TimezoneOffsetSeconds int

	// EnforceProxyAuth toggles whether proxy-user setup failure aborts a
	// query (external collaborator concern; recorded here because the
	// dispatcher reads the flag before submitting a job).
	EnforceProxyAuth bool

	// EnableTopNPushdown / EnableAggregationPushdown gate the descriptor
	// assembler's pushdown rules.
	EnableTopNPushdown        bool
	EnableAggregationPushdown bool

	// QueryEvictionTTL bounds how long a query with an emitted EOS and an
	// empty queue may sit in the registry before the background sweep
	// evicts it.
	QueryEvictionTTL time.Duration

	// MaxDecompressedBufferBytes caps the per-connection decompression
	// buffer; a safety bound on one connection's memory, not a wire-level
	// limit.
	MaxDecompressedBufferBytes int

	// MaxTokenBytes / MaxQueryIDBytes bound the handshake token and qid
	// lengths; anything above is rejected before allocation.
	MaxTokenBytes   int
	MaxQueryIDBytes int

	// SchemaWaitTimeout bounds how long a producer connection retries
	// waiting for register_schema before failing with
	// SchemaNotRegistered.
	SchemaWaitTimeout time.Duration

	// BroadcastTimeout bounds each per-target control connection made by
	// the broadcaster.
	BroadcastTimeout time.Duration
}

// Default returns the core's documented defaults.
func Default() *Config {
	return &Config{
		ListenPort:                 9900,
		TargetBatchSize:            4096,
		CompressionAlgorithm:       "NONE",
		SocketRecvBufferBytes:      4 << 20,
		InputBufferBytes:           64 << 10,
		MaxIngestThreads:           64,
		IngestQueueCapacity:        256,
		PerQueryQueueCapacity:      64,
		PagePollTimeout:            2 * time.Second,
		DynamicFilterTimeout:       5 * time.Second,
		TimezoneOffsetSeconds:      0,
		EnforceProxyAuth:           false,
		EnableTopNPushdown:         true,
		EnableAggregationPushdown:  true,
		QueryEvictionTTL:           5 * time.Minute,
		MaxDecompressedBufferBytes: 32 << 20,
		MaxTokenBytes:              1024,
		MaxQueryIDBytes:            1024,
		SchemaWaitTimeout:          10 * time.Second,
		BroadcastTimeout:           5 * time.Second,
	}
}
