package wire

import (
	"net"
	"time"

	"github.com/pgheap/pgheap/internal/engine"
	"github.com/pgheap/pgheap/internal/sql"
	"go.uber.org/zap"
)

// serverVersion is reported to clients via ParameterStatus so that
// psql-compatible drivers pick a sane wire dialect.
const serverVersion = "13.0"

// session drives one client connection from startup through termination:
// the handshake, the authentication stub, and the simple-query main loop.
type session struct {
	id           int64
	conn         net.Conn
	w            *writer
	executor     *engine.Executor
	logger       *zap.Logger
	timeout      time.Duration
	queryTimeout time.Duration
}

func newSession(id int64, conn net.Conn, executor *engine.Executor, logger *zap.Logger, timeout, queryTimeout time.Duration) *session {
	return &session{
		id:           id,
		conn:         conn,
		w:            newWriter(conn),
		executor:     executor,
		logger:       logger,
		timeout:      timeout,
		queryTimeout: queryTimeout,
	}
}

// run executes the handshake and then the main loop, returning once the
// client disconnects, terminates cleanly, or a fatal protocol error occurs.
func (s *session) run() {
	if err := s.handshake(); err != nil {
		s.logger.Debug("handshake failed", zap.Int64("session", s.id), zap.Error(err))
		return
	}

	for {
		s.conn.SetReadDeadline(time.Now().Add(s.queryTimeout))
		f, err := readFrame(s.conn)
		if err != nil {
			if isTimeout(err) {
				continue
			}
			// EOF or reset: the client went away.
			return
		}

		switch f.Type {
		case msgSimpleQuery:
			if err := s.handleQuery(string(trimNulTail(f.Payload))); err != nil {
				s.logger.Debug("error handling query", zap.Int64("session", s.id), zap.Error(err))
				return
			}
		case msgTerminate:
			return
		default:
			s.w.writeErrorResponse("FATAL", engine.KindProtocolViolation.SQLState(), "unsupported message type")
			return
		}
	}
}

// trimNulTail drops the query string's trailing null terminator, if any.
func trimNulTail(b []byte) []byte {
	if n := len(b); n > 0 && b[n-1] == 0 {
		return b[:n-1]
	}
	return b
}

func isTimeout(err error) bool {
	ne, ok := err.(net.Error)
	return ok && ne.Timeout()
}

// handshake reads the startup packet, validates the protocol version, and
// emits the fixed AuthenticationOk / ParameterStatus / BackendKeyData /
// ReadyForQuery sequence this server always sends (trust authentication
// only, per the non-goal on real auth methods).
func (s *session) handshake() error {
	s.conn.SetReadDeadline(time.Now().Add(s.timeout))
	payload, err := readStartupPayload(s.conn)
	if err != nil {
		return err
	}

	params, err := parseStartupPayload(payload)
	if err != nil {
		return err
	}

	if params.ProtocolVersion != ProtocolVersion {
		s.w.writeErrorResponse("FATAL", engine.KindProtocolViolation.SQLState(), "unsupported frontend protocol version")
		return ErrMalformedLength
	}

	if err := s.w.writeAuthenticationOk(); err != nil {
		return err
	}

	for _, kv := range [][2]string{
		{"server_version", serverVersion},
		{"server_encoding", "UTF8"},
		{"client_encoding", "UTF8"},
		{"DateStyle", "ISO, MDY"},
		{"TimeZone", "UTC"},
		{"integer_datetimes", "on"},
		{"standard_conforming_strings", "on"},
	} {
		if err := s.w.writeParameterStatus(kv[0], kv[1]); err != nil {
			return err
		}
	}

	if err := s.w.writeBackendKeyData(int32(s.id), int32(s.id)); err != nil {
		return err
	}

	return s.w.writeReadyForQuery()
}

// handleQuery parses and executes one simple-query string, streaming its
// result set (if any) before a CommandComplete and ReadyForQuery.
func (s *session) handleQuery(query string) error {
	stmt, err := sql.Parse(query)
	if err != nil {
		if perr, ok := err.(*sql.ParseError); ok {
			s.w.writeErrorResponse("ERROR", engine.KindSyntax.SQLState(), perr.Message)
		} else {
			s.w.writeErrorResponse("ERROR", engine.KindSyntax.SQLState(), err.Error())
		}
		return s.w.writeReadyForQuery()
	}

	result, err := s.executor.Execute(stmt)
	if err != nil {
		return s.respondError(err)
	}

	if len(result.Columns) > 0 {
		if err := s.w.writeRowDescription(result.Columns); err != nil {
			return err
		}
		for _, row := range result.Rows {
			if err := s.w.writeDataRow(row); err != nil {
				return err
			}
		}
	}

	if err := s.w.writeCommandComplete(result.Tag); err != nil {
		return err
	}
	return s.w.writeReadyForQuery()
}

// respondError renders an executor error as an ErrorResponse, closing the
// connection afterward only for kinds marked Fatal.
func (s *session) respondError(err error) error {
	execErr, ok := err.(*engine.Error)
	if !ok {
		s.w.writeErrorResponse("ERROR", "XX000", err.Error())
		return s.w.writeReadyForQuery()
	}

	severity := "ERROR"
	if execErr.Kind.Fatal() {
		severity = "FATAL"
	}
	if err := s.w.writeErrorResponse(severity, execErr.Kind.SQLState(), execErr.Message); err != nil {
		return err
	}
	if execErr.Kind.Fatal() {
		return ErrMalformedLength
	}
	return s.w.writeReadyForQuery()
}
