package wire

import (
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/pgheap/pgheap/internal/engine"
	"go.uber.org/zap"
)

// Server accepts TCP connections and runs one session per connection,
// grounded on the teacher's accept-loop/connection-tracking structure.
type Server struct {
	listener     net.Listener
	executor     *engine.Executor
	logger       *zap.Logger
	timeout      time.Duration
	queryTimeout time.Duration

	quit chan struct{}
	wg   sync.WaitGroup

	connMu sync.RWMutex
	conns  map[int64]net.Conn
	nextID int64
}

func NewServer(executor *engine.Executor, logger *zap.Logger, port int, connectionTimeout, queryTimeout time.Duration) (*Server, error) {
	listener, err := net.Listen("tcp", fmt.Sprintf(":%d", port))
	if err != nil {
		return nil, err
	}

	logger.Info("listening", zap.Int("port", port))

	return &Server{
		listener:     listener,
		executor:     executor,
		logger:       logger,
		timeout:      connectionTimeout,
		queryTimeout: queryTimeout,
		quit:         make(chan struct{}),
		conns:        make(map[int64]net.Conn),
	}, nil
}

// Serve runs the accept loop in a background goroutine and returns
// immediately; call Stop to shut it down.
func (s *Server) Serve() {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		for {
			conn, err := s.listener.Accept()
			if err != nil {
				select {
				case <-s.quit:
					return
				default:
					s.logger.Error("accept error", zap.Error(err))
					continue
				}
			}

			s.wg.Add(1)
			go func(c net.Conn) {
				defer s.wg.Done()
				s.handleConn(c)
			}(conn)
		}
	}()
}

func (s *Server) handleConn(conn net.Conn) {
	defer conn.Close()

	s.connMu.Lock()
	s.nextID++
	id := s.nextID
	s.conns[id] = conn
	s.connMu.Unlock()

	s.logger.Debug("connection opened", zap.Int64("session", id), zap.String("remote", conn.RemoteAddr().String()))

	sess := newSession(id, conn, s.executor, s.logger, s.timeout, s.queryTimeout)
	sess.run()

	s.connMu.Lock()
	delete(s.conns, id)
	s.connMu.Unlock()

	s.logger.Debug("connection closed", zap.Int64("session", id))
}

// Stop closes the listener and every open connection, then waits for all
// session goroutines to exit.
func (s *Server) Stop() {
	close(s.quit)
	s.listener.Close()

	s.connMu.RLock()
	for _, c := range s.conns {
		c.Close()
	}
	s.connMu.RUnlock()

	s.wg.Wait()
}
