package protocol

import (
	"errors"
	"fmt"
	"io"

	"github.com/danmuck/tuplectl/internal/protocol/frame"
	"github.com/danmuck/tuplectl/internal/tuple"
)

// Request is one decoded client request.
type Request struct {
	Command Command
	Tuples  []tuple.Tuple
}

// ReadRequest decodes the command code and payload sent by a client.
func ReadRequest(dec *frame.Decoder) (Request, error) {
	code, err := dec.ReadInt32()
	if err != nil {
		return Request{}, err
	}
	c := Command(code)
	s, err := SchemaFor(c)
	if err != nil {
		return Request{}, err
	}

	n := s.RequestTuples
	if s.Counted {
		count, err := dec.ReadInt32()
		if err != nil {
			return Request{}, err
		}
		if count < 0 {
			return Request{}, frame.ErrNegativeCount
		}
		n = int(count)
	}

	req := Request{Command: c, Tuples: make([]tuple.Tuple, 0, min(n, 64))}
	for range n {
		t, ok, err := dec.ReadTuple()
		if err != nil {
			return Request{}, err
		}
		if !ok {
			return Request{}, ErrUnexpectedNoTuple
		}
		req.Tuples = append(req.Tuples, t)
	}
	return req, nil
}

// ReadMatch decodes a Get, Read, GetNonBlocking or ReadNonBlocking response.
// found is false when the server sent the no-tuple sentinel.
func ReadMatch(dec *frame.Decoder) (t tuple.Tuple, found bool, err error) {
	return dec.ReadTuple()
}

// ReadDump decodes a Dump response.
func ReadDump(dec *frame.Decoder) ([]tuple.Tuple, error) {
	count, err := dec.ReadInt32()
	if err != nil {
		return nil, err
	}
	if count < 0 {
		return nil, frame.ErrNegativeCount
	}
	out := make([]tuple.Tuple, 0, min(int(count), 1024))
	for range count {
		t, ok, err := dec.ReadTuple()
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, ErrUnexpectedNoTuple
		}
		out = append(out, t)
	}
	return out, nil
}

// ReadCount decodes a Count response.
func ReadCount(dec *frame.Decoder) (int32, error) {
	n, err := dec.ReadInt32()
	if err != nil {
		return 0, err
	}
	if n < 0 {
		return 0, frame.ErrNegativeCount
	}
	return n, nil
}

// ReadReplaceAck decodes a Replace response. Anything but an echo of the
// Replace code, including a closed stream, is ErrReplaceFailed.
func ReadReplaceAck(dec *frame.Decoder) error {
	code, err := dec.ReadInt32()
	if errors.Is(err, frame.ErrTruncated) {
		return fmt.Errorf("%w: %w", ErrReplaceFailed, err)
	}
	if err != nil {
		return err
	}
	if Command(code) != Replace {
		return fmt.Errorf("%w: server answered %d", ErrReplaceFailed, code)
	}
	return nil
}

// ReadLog returns everything the server sends until it closes the stream.
func ReadLog(r io.Reader) (string, error) {
	b, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}
	return string(b), nil
}
