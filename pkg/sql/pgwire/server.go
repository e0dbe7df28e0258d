// Copyright 2026 The Pgbridge Authors.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or
// implied. See the License for the specific language governing
// permissions and limitations under the License.

// Package pgwire serves the PostgreSQL v3 wire protocol in front of a
// pluggable execution engine. It owns the protocol surface only:
// handshake, message framing, prepared statements and portals, and
// error reporting. Query planning and evaluation are delegated to the
// executor the server was built with.
package pgwire

import (
	"context"
	"fmt"
	"io"
	"net"
	"sync"

	"github.com/cockroachdb/logtags"
	"github.com/google/uuid"

	"github.com/pgbridge/pgbridge/pkg/sql/executor"
	"github.com/pgbridge/pgbridge/pkg/sql/pgwire/pgwirebase"
	"github.com/pgbridge/pgbridge/pkg/sql/prep"
	"github.com/pgbridge/pgbridge/pkg/util/log"
)

const (
	version30     = 196608   // protocol 3.0
	versionCancel = 80877102 // cancel request
	versionSSL    = 80877103 // SSL negotiation probe
	versionGSSENC = 80877104 // GSSAPI encryption probe
)

// Config carries the server's tunables.
type Config struct {
	// MaxConns bounds concurrently open client connections; zero means
	// unbounded.
	MaxConns int
	// ResolutionCacheSize sizes the shared placeholder-resolution cache;
	// zero picks the default.
	ResolutionCacheSize int
}

// Server accepts client connections and runs one session per
// connection. Sessions share the executor, the metrics, and the
// resolution cache; everything else is per-connection.
type Server struct {
	exec    executor.Executor
	metrics *ServerMetrics
	cache   *prep.ResolutionCache

	maxConns int

	mu struct {
		sync.Mutex
		conns int
	}
}

// NewServer builds a server around the given execution engine.
func NewServer(exec executor.Executor, cfg Config) (*Server, error) {
	size := cfg.ResolutionCacheSize
	if size == 0 {
		size = prep.DefaultResolutionCacheSize
	}
	cache, err := prep.NewResolutionCache(size)
	if err != nil {
		return nil, err
	}
	return &Server{
		exec:     exec,
		metrics:  NewServerMetrics(),
		cache:    cache,
		maxConns: cfg.MaxConns,
	}, nil
}

// Metrics returns the server's metric set for registration.
func (s *Server) Metrics() *ServerMetrics {
	return s.metrics
}

// Serve accepts connections from ln until it is closed or ctx is done.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	go func() {
		<-ctx.Done()
		_ = ln.Close()
	}()
	for {
		netConn, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
		go func() {
			if err := s.ServeConn(ctx, netConn); err != nil && err != io.EOF {
				log.Errorf(ctx, "connection error: %v", err)
			}
		}()
	}
}

// ServeConn performs the protocol handshake on netConn and, if it
// succeeds, runs the session until the client disconnects. It closes
// netConn before returning.
func (s *Server) ServeConn(ctx context.Context, netConn net.Conn) error {
	defer netConn.Close()

	if s.maxConns > 0 {
		s.mu.Lock()
		if s.mu.conns >= s.maxConns {
			s.mu.Unlock()
			return sendHandshakeError(netConn, "too many connections")
		}
		s.mu.conns++
		s.mu.Unlock()
		defer func() {
			s.mu.Lock()
			s.mu.conns--
			s.mu.Unlock()
		}()
	}
	s.metrics.NewConns.Inc()
	s.metrics.Conns.Inc()
	defer s.metrics.Conns.Dec()

	var buf pgwirebase.ReadBuffer
	version, err := s.readVersion(netConn, &buf)
	if err != nil {
		return err
	}
	for version == versionSSL || version == versionGSSENC {
		// No TLS or GSS support; tell the client to continue in the
		// clear and read the startup message that follows.
		if _, err := netConn.Write([]byte{'N'}); err != nil {
			return err
		}
		if version, err = s.readVersion(netConn, &buf); err != nil {
			return err
		}
	}
	switch version {
	case versionCancel:
		// Query cancellation runs out of band on a fresh connection; no
		// response is defined for it.
		return nil
	case version30:
	default:
		return sendHandshakeError(netConn,
			"unknown protocol version %d", version)
	}

	sessionArgs, err := parseOptions(&buf)
	if err != nil {
		return sendHandshakeError(netConn, "%v", err)
	}

	ctx = logtags.AddTag(ctx, "conn", uuid.New().String()[:8])
	if user := sessionArgs["user"]; user != "" {
		ctx = logtags.AddTag(ctx, "user", user)
	}
	log.Infof(ctx, "session started from %s", netConn.RemoteAddr())
	defer log.Infof(ctx, "session ended")

	c := newConn(netConn, sessionArgs, s.exec, s.cache, s.metrics)
	return c.serve(ctx)
}

func (s *Server) readVersion(
	rd io.Reader, buf *pgwirebase.ReadBuffer,
) (uint32, error) {
	n, err := buf.ReadUntypedMsg(rd)
	if err != nil {
		return 0, err
	}
	s.metrics.BytesIn.Add(float64(n))
	return buf.GetUint32()
}

// parseOptions reads the startup message's key/value pairs, terminated
// by an empty key.
func parseOptions(buf *pgwirebase.ReadBuffer) (map[string]string, error) {
	args := make(map[string]string)
	for {
		key, err := buf.GetString()
		if err != nil {
			return nil, pgwirebase.NewProtocolViolationErrorf(
				"error reading option key: %v", err)
		}
		if key == "" {
			return args, nil
		}
		value, err := buf.GetString()
		if err != nil {
			return nil, pgwirebase.NewProtocolViolationErrorf(
				"error reading option value for %q: %v", key, err)
		}
		args[key] = value
	}
}

// sendHandshakeError reports a failure that happens before a session
// exists. There are no metrics to feed yet, so the write buffer runs
// without a byte counter.
func sendHandshakeError(w io.Writer, format string, args ...interface{}) error {
	wb := newWriteBuffer(nil)
	wb.initMsg(pgwirebase.ServerMsgErrorResponse)
	wb.putErrFieldMsg(pgwirebase.ServerErrFieldSeverity)
	wb.writeTerminatedString("FATAL")
	wb.putErrFieldMsg(pgwirebase.ServerErrFieldSQLState)
	wb.writeTerminatedString("08P01")
	wb.putErrFieldMsg(pgwirebase.ServerErrFieldMsgPrimary)
	wb.writeTerminatedString(fmt.Sprintf(format, args...))
	wb.writeByte(0)
	return wb.finishMsg(w)
}
