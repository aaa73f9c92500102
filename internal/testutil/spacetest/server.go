// Package spacetest runs an in-memory tuple-space server for tests.
//
// It speaks the full command set over TCP on 127.0.0.1 so client code can be
// exercised end to end. Matching is positional: a Wildcard matches any value
// and nested tuples match recursively.
package spacetest

import (
	"bufio"
	"errors"
	"fmt"
	"net"
	"slices"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/danmuck/tuplectl/internal/logging"
	"github.com/danmuck/tuplectl/internal/protocol"
	"github.com/danmuck/tuplectl/internal/protocol/frame"
	"github.com/danmuck/tuplectl/internal/tuple"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

var (
	errServerClosed = errors.New("spacetest: server closed")
	errUndelivered  = errors.New("spacetest: client gone before answer")
)

// deliveryWindow is how long a removing answer waits for a reset from a
// client that already went away.
const deliveryWindow = 50 * time.Millisecond

type Server struct {
	ln     net.Listener
	logger zerolog.Logger

	mu      sync.Mutex
	tuples  []tuple.Tuple
	oplog   []string
	changed chan struct{}

	done      chan struct{}
	closeOnce sync.Once
	wg        sync.WaitGroup
}

// Start listens on a free local port and serves until the test ends.
func Start(t testing.TB, seed ...tuple.Tuple) *Server {
	t.Helper()
	s, err := Listen("127.0.0.1:0")
	if err != nil {
		t.Fatalf("spacetest listen: %v", err)
	}
	s.Seed(seed...)
	t.Cleanup(s.Close)
	return s
}

// Listen starts a server on addr.
func Listen(addr string) (*Server, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}
	s := &Server{
		ln:      ln,
		logger:  logging.Component(log.Logger, "spacetest"),
		changed: make(chan struct{}),
		done:    make(chan struct{}),
	}
	s.wg.Add(1)
	go s.serve()
	return s, nil
}

func (s *Server) Addr() string { return s.ln.Addr().String() }

func (s *Server) Close() {
	s.closeOnce.Do(func() {
		close(s.done)
		_ = s.ln.Close()
		s.wg.Wait()
	})
}

// Seed inserts tuples directly, bypassing the wire.
func (s *Server) Seed(ts ...tuple.Tuple) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, t := range ts {
		s.tuples = append(s.tuples, t.Clone())
	}
	s.notifyLocked()
}

// Snapshot returns a copy of the stored tuples in insertion order.
func (s *Server) Snapshot() []tuple.Tuple {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]tuple.Tuple, len(s.tuples))
	for i, t := range s.tuples {
		out[i] = t.Clone()
	}
	return out
}

func (s *Server) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.tuples)
}

// WaitLen blocks until the space holds n tuples. Put has no response, so
// tests use this to wait for the server to store what was sent.
func (s *Server) WaitLen(t testing.TB, n int) {
	t.Helper()
	timeout := time.After(5 * time.Second)
	for {
		s.mu.Lock()
		got := len(s.tuples)
		changed := s.changed
		s.mu.Unlock()
		if got == n {
			return
		}
		select {
		case <-changed:
		case <-timeout:
			t.Fatalf("spacetest: len=%d want=%d", got, n)
		}
	}
}

func (s *Server) serve() {
	defer s.wg.Done()
	for {
		conn, err := s.ln.Accept()
		if err != nil {
			return
		}
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			defer conn.Close()
			if err := s.handle(conn); err != nil && !errors.Is(err, errServerClosed) {
				s.logger.Warn().Err(err).Str("remote", conn.RemoteAddr().String()).Msg("request failed")
			}
		}()
	}
}

func (s *Server) handle(conn net.Conn) error {
	dec := frame.NewDecoder(bufio.NewReader(conn), frame.DefaultLimits())
	req, err := protocol.ReadRequest(dec)
	if err != nil {
		return err
	}
	s.logger.Debug().Str("cmd", req.Command.String()).Int("tuples", len(req.Tuples)).Msg("request")

	var resp []byte
	switch req.Command {
	case protocol.Put:
		s.put(req.Tuples[0])
		return nil
	case protocol.Get, protocol.Read:
		t, idx, err := s.wait(req.Command, req.Tuples[0])
		if err != nil {
			return err
		}
		resp, err = protocol.AppendMatch(nil, t, true)
		if err != nil {
			return err
		}
		if req.Command.Removes() {
			return s.deliverTaken(conn, resp, t, idx)
		}
	case protocol.GetNonBlocking, protocol.ReadNonBlocking:
		t, idx, found := s.take(req.Command, req.Tuples[0])
		resp, err = protocol.AppendMatch(nil, t, found)
		if err != nil {
			return err
		}
		if found && req.Command.Removes() {
			return s.deliverTaken(conn, resp, t, idx)
		}
	case protocol.Dump:
		resp, err = protocol.AppendDump(nil, s.matching(req.Command, req.Tuples))
		if err != nil {
			return err
		}
	case protocol.Count:
		resp = protocol.AppendCount(nil, int32(len(s.matching(req.Command, req.Tuples))))
	case protocol.Replace:
		resp = protocol.AppendReplaceAck(nil, s.replace(req.Tuples[0], req.Tuples[1]))
	case protocol.Log:
		resp = []byte(s.logText())
	}
	_, err = conn.Write(resp)
	return err
}

func (s *Server) put(t tuple.Tuple) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tuples = append(s.tuples, t)
	s.recordLocked(protocol.Put, t)
	s.notifyLocked()
}

// take finds the first match for tmpl and its index, removing it when cmd
// removes.
func (s *Server) take(cmd protocol.Command, tmpl tuple.Tuple) (tuple.Tuple, int, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.takeLocked(cmd, tmpl)
}

func (s *Server) takeLocked(cmd protocol.Command, tmpl tuple.Tuple) (tuple.Tuple, int, bool) {
	for i, t := range s.tuples {
		if !Match(tmpl, t) {
			continue
		}
		if cmd.Removes() {
			s.tuples = slices.Delete(s.tuples, i, i+1)
			s.notifyLocked()
		}
		s.recordLocked(cmd, t)
		return t, i, true
	}
	return nil, 0, false
}

func (s *Server) wait(cmd protocol.Command, tmpl tuple.Tuple) (tuple.Tuple, int, error) {
	for {
		s.mu.Lock()
		if t, idx, ok := s.takeLocked(cmd, tmpl); ok {
			s.mu.Unlock()
			return t, idx, nil
		}
		changed := s.changed
		s.mu.Unlock()

		select {
		case <-changed:
		case <-s.done:
			return nil, 0, errServerClosed
		}
	}
}

// deliverTaken answers a removing command. When the client closed before
// the answer arrived, t goes back to idx so a cancelled Get loses nothing.
func (s *Server) deliverTaken(conn net.Conn, resp []byte, t tuple.Tuple, idx int) error {
	_, err := conn.Write(resp)
	if err == nil && peerReset(conn, deliveryWindow) {
		err = errUndelivered
	}
	if err != nil {
		s.restore(idx, t)
	}
	return err
}

func (s *Server) restore(idx int, t tuple.Tuple) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tuples = slices.Insert(s.tuples, min(idx, len(s.tuples)), t)
	s.oplog = append(s.oplog, "restore "+t.String())
	s.notifyLocked()
}

func (s *Server) matching(cmd protocol.Command, tmpls []tuple.Tuple) []tuple.Tuple {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]tuple.Tuple, 0, len(s.tuples))
	for _, t := range s.tuples {
		if MatchAny(tmpls, t) {
			out = append(out, t)
		}
	}
	s.oplog = append(s.oplog, fmt.Sprintf("%s %d templates -> %d", cmd, len(tmpls), len(out)))
	return out
}

func (s *Server) replace(old, replacement tuple.Tuple) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, t := range s.tuples {
		if Match(old, t) {
			s.tuples[i] = replacement
			s.recordLocked(protocol.Replace, replacement)
			s.notifyLocked()
			return true
		}
	}
	return false
}

func (s *Server) logText() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.oplog) == 0 {
		return ""
	}
	return strings.Join(s.oplog, "\n") + "\n"
}

func (s *Server) recordLocked(cmd protocol.Command, t tuple.Tuple) {
	s.oplog = append(s.oplog, cmd.String()+" "+t.String())
}

func (s *Server) notifyLocked() {
	close(s.changed)
	s.changed = make(chan struct{})
}

// Match reports whether t satisfies tmpl.
func Match(tmpl, t tuple.Tuple) bool {
	if len(tmpl) != len(t) {
		return false
	}
	for i := range tmpl {
		if !matchValue(tmpl[i], t[i]) {
			return false
		}
	}
	return true
}

// MatchAny reports whether t satisfies any of tmpls. An empty set matches everything.
func MatchAny(tmpls []tuple.Tuple, t tuple.Tuple) bool {
	if len(tmpls) == 0 {
		return true
	}
	for _, tmpl := range tmpls {
		if Match(tmpl, t) {
			return true
		}
	}
	return false
}

func matchValue(pattern, v tuple.Value) bool {
	if pattern.IsWildcard() {
		return true
	}
	pt, ok := pattern.Tuple()
	if ok {
		vt, ok := v.Tuple()
		return ok && Match(pt, vt)
	}
	return pattern.Equal(v)
}
