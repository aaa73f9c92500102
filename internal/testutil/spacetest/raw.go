package spacetest

import (
	"bufio"
	"bytes"
	"io"
	"net"
	"sync"
	"testing"

	"github.com/danmuck/tuplectl/internal/protocol"
	"github.com/danmuck/tuplectl/internal/protocol/frame"
)

// Script answers one decoded request with raw response bytes. A nil return
// closes the connection without a response.
type Script func(req protocol.Request) []byte

// Scripted is a server whose responses are chosen by the test.
type Scripted struct {
	ln     net.Listener
	script Script

	mu   sync.Mutex
	seen []protocol.Request
	raw  [][]byte
	wg   sync.WaitGroup
}

// StartScripted serves script on a free local port until the test ends.
// Every request is read to the client's half-close before script runs.
func StartScripted(t testing.TB, script Script) *Scripted {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("spacetest listen: %v", err)
	}
	s := &Scripted{ln: ln, script: script}
	s.wg.Add(1)
	go s.serve()
	t.Cleanup(func() {
		_ = s.ln.Close()
		s.wg.Wait()
	})
	return s
}

func (s *Scripted) Addr() string { return s.ln.Addr().String() }

// Requests returns the decoded requests received so far.
func (s *Scripted) Requests() []protocol.Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]protocol.Request(nil), s.seen...)
}

// RawRequests returns the request bytes received so far, one entry per connection.
func (s *Scripted) RawRequests() [][]byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([][]byte(nil), s.raw...)
}

func (s *Scripted) serve() {
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
			s.handle(conn)
		}()
	}
}

func (s *Scripted) handle(conn net.Conn) {
	// Reading to EOF proves the client half-closed its write side.
	raw, err := io.ReadAll(bufio.NewReader(conn))
	if err != nil {
		return
	}
	dec := frame.NewDecoder(bytes.NewReader(raw), frame.DefaultLimits())
	req, err := protocol.ReadRequest(dec)
	s.mu.Lock()
	s.raw = append(s.raw, raw)
	if err == nil {
		s.seen = append(s.seen, req)
	}
	s.mu.Unlock()
	if err != nil {
		return
	}
	if resp := s.script(req); resp != nil {
		_, _ = conn.Write(resp)
	}
}
