// Package streamconn implements a duplex byte stream that can be upgraded
// in-place from plaintext to TLS, and a line-buffered Connection built on
// top of it.
//
// It is grounded on the teacher's STARTTLS handling in
// internal/smtpsrv/conn.go (which swaps c.conn for a *tls.Conn after a
// successful handshake, without losing any already-buffered plaintext,
// because STARTTLS is only accepted when the read buffer is empty), and on
// the "MaybeTlsStream" design described in the line crate of the system
// this was ported from: a stream that is observably either Plain or Tls,
// never anything in between.
package streamconn

import (
	"crypto/tls"
	"net"
	"time"
)

// Stream is a net.Conn that starts out plaintext and can be upgraded to TLS
// exactly once, in place.
//
// Unlike the Rust original this is ported from, Go's tls.Server does not
// consume the underlying net.Conn by value: it only ever holds a reference
// to it. That means there is no transient "Empty" state to model here — the
// stream's conn field is only ever assigned after a successful
// handshake, so a failed upgrade leaves the original plaintext connection
// completely untouched. This is the "simply swap references" strategy for
// GC'd languages mentioned as an alternative in the design notes.
type Stream struct {
	conn net.Conn
	tls  bool

	// connState is populated after a successful Upgrade, and is used for
	// logging/tracing (cipher suite, protocol version, SNI name).
	connState *tls.ConnectionState
}

// NewPlain wraps an already-connected plaintext net.Conn.
func NewPlain(conn net.Conn) *Stream {
	return &Stream{conn: conn}
}

// NewTLS wraps a net.Conn that is already using TLS (implicit-TLS sockets,
// as opposed to STARTTLS-upgraded ones).
func NewTLS(conn *tls.Conn) *Stream {
	return &Stream{conn: conn, tls: true}
}

// IsPlain reports whether the stream has not been upgraded to TLS.
func (s *Stream) IsPlain() bool { return !s.tls }

// IsTLS reports whether the stream is using TLS.
func (s *Stream) IsTLS() bool { return s.tls }

// ConnectionState returns the TLS connection state, or nil if the stream is
// plaintext.
func (s *Stream) ConnectionState() *tls.ConnectionState { return s.connState }

// Upgrade performs a server-side TLS handshake on the current connection
// and, on success, replaces the stream's underlying connection with the
// TLS one.
//
// The upgrade is atomic from the caller's perspective: on handshake
// failure, the stream is left exactly as it was (still Plain, with the
// same underlying net.Conn) and the handshake error is returned. Upgrading
// an already-TLS stream is a no-op.
//
// Callers MUST ensure no other goroutine is reading or writing through this
// Stream while Upgrade runs, and that any buffered-but-unconsumed plaintext
// has already been drained — see Connection.Upgrade for the buffer-empty
// assertion.
func (s *Stream) Upgrade(config *tls.Config) error {
	if s.tls {
		return nil
	}

	server := tls.Server(s.conn, config)
	if err := server.Handshake(); err != nil {
		// s.conn is untouched: the handshake failure leaves the plaintext
		// stream exactly as it was before the call.
		return err
	}

	cstate := server.ConnectionState()
	s.conn = server
	s.tls = true
	s.connState = &cstate
	return nil
}

// Read implements io.Reader.
func (s *Stream) Read(p []byte) (int, error) { return s.conn.Read(p) }

// Write implements io.Writer.
func (s *Stream) Write(p []byte) (int, error) { return s.conn.Write(p) }

// Close implements io.Closer.
func (s *Stream) Close() error { return s.conn.Close() }

// LocalAddr returns the local network address.
func (s *Stream) LocalAddr() net.Addr { return s.conn.LocalAddr() }

// RemoteAddr returns the remote network address.
func (s *Stream) RemoteAddr() net.Addr { return s.conn.RemoteAddr() }

// SetDeadline, SetReadDeadline and SetWriteDeadline pass through to the
// underlying connection, so a session can keep using the same read/command
// deadlines across a STARTTLS upgrade.
func (s *Stream) SetDeadline(t time.Time) error { return s.conn.SetDeadline(t) }

// SetReadDeadline passes through to the underlying connection.
func (s *Stream) SetReadDeadline(t time.Time) error { return s.conn.SetReadDeadline(t) }

// SetWriteDeadline passes through to the underlying connection.
func (s *Stream) SetWriteDeadline(t time.Time) error { return s.conn.SetWriteDeadline(t) }
