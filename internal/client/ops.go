package client

import (
	"context"

	"github.com/danmuck/tuplectl/internal/protocol"
	"github.com/danmuck/tuplectl/internal/protocol/frame"
	"github.com/danmuck/tuplectl/internal/tuple"
)

// Put inserts t. The server sends nothing back, so Put returns as soon as the
// request is written and the write side is closed. The tuple may not be
// stored yet when Put returns.
func (c *Client) Put(ctx context.Context, t tuple.Tuple) error {
	return c.exchange(ctx, protocol.Put, []tuple.Tuple{t}, nil)
}

// Get removes and returns a tuple matching tmpl, waiting until one exists.
func (c *Client) Get(ctx context.Context, tmpl tuple.Tuple) (tuple.Tuple, error) {
	t, _, err := c.match(ctx, protocol.Get, tmpl)
	return t, err
}

// Read returns a tuple matching tmpl without removing it, waiting until one exists.
func (c *Client) Read(ctx context.Context, tmpl tuple.Tuple) (tuple.Tuple, error) {
	t, _, err := c.match(ctx, protocol.Read, tmpl)
	return t, err
}

// GetNonBlocking removes and returns a tuple matching tmpl if one exists now.
// found is false, with an empty tuple and nil error, when nothing matched.
func (c *Client) GetNonBlocking(ctx context.Context, tmpl tuple.Tuple) (t tuple.Tuple, found bool, err error) {
	return c.match(ctx, protocol.GetNonBlocking, tmpl)
}

// ReadNonBlocking is GetNonBlocking without removal.
func (c *Client) ReadNonBlocking(ctx context.Context, tmpl tuple.Tuple) (t tuple.Tuple, found bool, err error) {
	return c.match(ctx, protocol.ReadNonBlocking, tmpl)
}

func (c *Client) match(ctx context.Context, cmd protocol.Command, tmpl tuple.Tuple) (tuple.Tuple, bool, error) {
	var (
		t     tuple.Tuple
		found bool
	)
	err := c.exchange(ctx, cmd, []tuple.Tuple{tmpl}, func(dec *frame.Decoder) (outcome, error) {
		var err error
		t, found, err = protocol.ReadMatch(dec)
		if err != nil {
			return outcome{}, err
		}
		if !found {
			return outcome{miss: true}, nil
		}
		return outcome{tuples: 1}, nil
	})
	if err != nil {
		return nil, false, err
	}
	return t, found, nil
}

// Dump returns every tuple matching any of tmpls. With no templates it
// returns the whole space.
func (c *Client) Dump(ctx context.Context, tmpls ...tuple.Tuple) ([]tuple.Tuple, error) {
	var out []tuple.Tuple
	err := c.exchange(ctx, protocol.Dump, tmpls, func(dec *frame.Decoder) (outcome, error) {
		var err error
		out, err = protocol.ReadDump(dec)
		return outcome{tuples: len(out)}, err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Count returns the number of tuples matching any of tmpls. With no
// templates it returns the size of the space.
func (c *Client) Count(ctx context.Context, tmpls ...tuple.Tuple) (int, error) {
	var n int32
	err := c.exchange(ctx, protocol.Count, tmpls, func(dec *frame.Decoder) (outcome, error) {
		var err error
		n, err = protocol.ReadCount(dec)
		return outcome{}, err
	})
	if err != nil {
		return 0, err
	}
	return int(n), nil
}

// Replace swaps a tuple matching old for replacement. A refusal from the
// server is an *OpError of KindFailed.
func (c *Client) Replace(ctx context.Context, old, replacement tuple.Tuple) error {
	return c.exchange(ctx, protocol.Replace, []tuple.Tuple{old, replacement}, func(dec *frame.Decoder) (outcome, error) {
		return outcome{}, protocol.ReadReplaceAck(dec)
	})
}

// Log returns the server's operation log as sent.
func (c *Client) Log(ctx context.Context) (string, error) {
	var text string
	err := c.exchange(ctx, protocol.Log, nil, func(dec *frame.Decoder) (outcome, error) {
		var err error
		text, err = protocol.ReadLog(dec.Reader())
		return outcome{}, err
	})
	if err != nil {
		return "", err
	}
	return text, nil
}
