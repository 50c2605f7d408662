package server

import (
	"bufio"
	"context"
	"errors"
	"net"
	"time"

	"github.com/vijayshc/trino-teradata-exchange/internal/registry"
	"github.com/vijayshc/trino-teradata-exchange/internal/wire"
)

// handleConn drives one accepted connection through its full lifecycle:
// read the token, discriminate data vs control, then either stream batches
// into the registry or act on a control command.
func (s *Server) handleConn(conn net.Conn) {
	defer conn.Close()

	if tc, ok := conn.(*net.TCPConn); ok {
		if err := tuneSocket(tc, s.cfg.SocketRecvBufferBytes); err != nil {
			s.log.Warn("socket tuning failed", "err", err, "remote", conn.RemoteAddr())
		}
	}

	r := bufio.NewReaderSize(conn, s.cfg.InputBufferBytes)

	hs, isControl, err := wire.ReadDataHandshake(r, s.cfg.MaxTokenBytes, s.cfg.MaxQueryIDBytes, maxSchemaBytes)
	if err != nil {
		s.log.Warn("handshake failed", "err", err, "remote", conn.RemoteAddr())
		wire.WriteAck(conn, err)
		return
	}

	if isControl {
		s.handleControl(conn, r, hs.Token)
		return
	}

	s.handleData(conn, r, hs)
}

func (s *Server) handleControl(conn net.Conn, r *bufio.Reader, token string) {
	msg, err := wire.ReadControlMessage(r, s.cfg.MaxQueryIDBytes)
	if err != nil {
		s.log.Warn("control read failed", "err", err)
		wire.WriteAck(conn, err)
		return
	}

	var actErr error
	switch msg.Command {
	case wire.CmdJobFinished:
		// JOB_FINISHED checks token and qid format only (the framing layer
		// already bounded both): the dispatcher's broadcast can arrive
		// after a consumer's local teardown has dropped the entry and its
		// token, and the finish signal must still land wherever the query
		// is live.
		actErr = s.reg.SignalJobFinished(msg.QueryID)
	default:
		// Every other command code is reserved and requires a full token
		// check before it is even named back to the caller.
		if actErr = s.reg.ValidateToken(msg.QueryID, token); actErr == nil {
			actErr = errors.New("unrecognized control command")
		}
	}

	wire.WriteAck(conn, actErr)
}

func (s *Server) handleData(conn net.Conn, r *bufio.Reader, hs *wire.Handshake) {
	qid := hs.QueryID
	log := s.log.WithQuery(qid)

	if err := s.reg.ValidateToken(qid, hs.Token); err != nil {
		log.Warn("producer presented bad token", "err", err)
		wire.WriteAck(conn, err)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), s.cfg.SchemaWaitTimeout)
	schema, err := s.reg.WaitForSchema(ctx, qid)
	cancel()
	if err != nil {
		log.Warn("producer gave up waiting for schema", "err", err)
		wire.WriteAck(conn, err)
		return
	}

	if !schema.Equal(hs.Schema) {
		log.Warn("producer handshake schema does not match registered schema")
		wire.WriteAck(conn, registry.ErrSchemaMismatch)
		return
	}

	if err := s.reg.IncrementProducers(qid); err != nil {
		log.Warn("producer registration failed", "err", err)
		wire.WriteAck(conn, err)
		return
	}
	defer func() {
		if err := s.reg.DecrementProducers(qid); err != nil {
			log.Warn("producer deregistration failed", "err", err)
		}
	}()

	decomp := wire.NewDecompressor(s.cfg.MaxDecompressedBufferBytes)

	var finalErr error
	for {
		raw, ok, err := wire.ReadBatchFrame(r, s.cfg.MaxDecompressedBufferBytes)
		if err != nil {
			finalErr = err
			break
		}
		if !ok {
			break
		}

		s.obs.ObserveNetworkRead(qid, uint64(len(raw)))

		decoded, err := decomp.Decompress(raw, hs.Compression)
		if err != nil {
			finalErr = err
			break
		}
		s.obs.ObserveDecompressed(qid, uint64(len(decoded)))

		decodeStart := time.Now()
		page, err := wire.DecodeBatch(decoded, schema, s.cfg.TimezoneOffsetSeconds)
		s.obs.ObserveDecodeLatency(qid, uint64(time.Since(decodeStart).Nanoseconds()))
		if err != nil {
			finalErr = err
			break
		}
		if page == nil {
			// Zero-row batch: legal, but nothing to enqueue.
			continue
		}

		enqueueStart := time.Now()
		pushCtx, pushCancel := context.WithTimeout(context.Background(), s.cfg.PagePollTimeout)
		err = s.reg.PushPage(pushCtx, qid, page)
		pushCancel()
		s.obs.ObserveEnqueueLatency(qid, uint64(time.Since(enqueueStart).Nanoseconds()))
		if err != nil {
			if errors.Is(err, registry.ErrBackpressureTimeout) {
				log.Warn("dropping connection under sustained backpressure", "err", err)
			}
			finalErr = err
			break
		}
	}

	wire.WriteAck(conn, finalErr)
}
