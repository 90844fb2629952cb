// Package agent implements the external agent-service side of the wire
// protocol (spec §4.6): one TCP listener per configured agent, a per-agent
// in-memory transaction state table, and the out-of-band kill mechanism
// used to simulate a permanently failed agent.
package agent

import (
	"errors"
	"math/rand"
	"net"
	"sync"
	"time"

	"github.com/alglobo-systems/coordinator/configs"
	"github.com/alglobo-systems/coordinator/wire"
)

// Server is one running agent: it owns a listener and an in-memory
// transaction-phase table (spec §3: "Agent-side state").
type Server struct {
	Name        string
	SuccessRate float64

	mu     sync.Mutex
	states map[uint32]wire.Phase

	listener net.Listener
	alive    *int32 // shared aliveness cell, flipped by the kill reader
}

// NewServer binds a TCP listener on addr for one agent spec.
func NewServer(spec Spec, addr string, alive *int32) (*Server, error) {
	l, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}
	return &Server{
		Name:        spec.Name,
		SuccessRate: spec.SuccessRate,
		states:      make(map[uint32]wire.Phase),
		listener:    l,
		alive:       alive,
	}, nil
}

// Serve accepts connections until the agent is killed (alive flipped to 0)
// or the listener is closed. One goroutine handles each connection to
// completion: read 9 bytes, dispatch, write 1 byte, close (spec §4.6).
func (s *Server) Serve() {
	defer s.listener.Close()
	for isAlive(s.alive) {
		if tl, ok := s.listener.(*net.TCPListener); ok {
			// Bounded accept, so a kill is observed without a new connection.
			_ = tl.SetDeadline(time.Now().Add(100 * time.Millisecond))
		}
		conn, err := s.listener.Accept()
		if err != nil {
			if !isAlive(s.alive) || errors.Is(err, net.ErrClosed) {
				return
			}
			var ne net.Error
			if errors.As(err, &ne) && ne.Timeout() {
				continue
			}
			configs.Warn(false, "agent "+s.Name+": accept failed: "+err.Error())
			continue
		}
		if !isAlive(s.alive) {
			conn.Close()
			return
		}
		go s.handle(conn)
	}
}

func (s *Server) Close() error {
	return s.listener.Close()
}

// Listener exposes the bound listener, mainly so callers and tests can
// read the actual address when Spec.Port was 0 (ephemeral bind).
func (s *Server) Listener() net.Listener {
	return s.listener
}

func (s *Server) handle(conn net.Conn) {
	defer conn.Close()

	buf := make([]byte, wire.AgentMessageSize)
	if _, err := readFull(conn, buf); err != nil {
		configs.Warn(false, "agent "+s.Name+": short read: "+err.Error())
		return
	}
	msg, err := wire.DecodeAgentMessage(buf)
	if err != nil {
		configs.Warn(false, "agent "+s.Name+": decode error: "+err.Error())
		return
	}

	reply := s.dispatch(msg)
	if _, err := conn.Write([]byte{byte(reply)}); err != nil {
		configs.Warn(false, "agent "+s.Name+": reply write failed: "+err.Error())
	}

	if msg.Op == wire.Finish {
		s.stopAccepting()
	}
}

// dispatch applies the spec §4.6 dispatch table and returns the reply byte.
func (s *Server) dispatch(msg wire.AgentMessage) wire.Reply {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch msg.Op {
	case wire.Prepare:
		s.states[msg.TxnID] = wire.PhasePrepare
		if rand.Float64() < s.SuccessRate {
			return wire.PaymentOK
		}
		return wire.PaymentErr
	case wire.Commit:
		s.states[msg.TxnID] = wire.PhaseCommit
		return wire.Ack
	case wire.Abort:
		s.states[msg.TxnID] = wire.PhaseAbort
		return wire.Ack
	case wire.Finish:
		return wire.Ack
	default:
		return wire.PaymentErr
	}
}

func (s *Server) stopAccepting() {
	if atomicStore0(s.alive) {
		_ = s.listener.Close()
	}
}

func readFull(conn net.Conn, buf []byte) (int, error) {
	total := 0
	for total < len(buf) {
		n, err := conn.Read(buf[total:])
		total += n
		if err != nil {
			return total, err
		}
	}
	return total, nil
}
