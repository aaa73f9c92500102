package client

import (
	"bufio"
	"context"
	"net"
	"strings"
	"time"

	"github.com/danmuck/tuplectl/internal/logging"
	"github.com/danmuck/tuplectl/internal/observability"
	"github.com/danmuck/tuplectl/internal/protocol"
	"github.com/danmuck/tuplectl/internal/protocol/frame"
	"github.com/danmuck/tuplectl/internal/tuple"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

type Config struct {
	// Address is the host:port of the tuple-space server.
	Address        string
	ConnectTimeout time.Duration
	// IOTimeout bounds non-blocking exchanges. Blocking Get and Read ignore
	// it and rely on the caller's context. Zero disables it.
	IOTimeout time.Duration
	Limits    frame.Limits
	// Logger defaults to the global zerolog logger.
	Logger *zerolog.Logger
}

func DefaultConfig() Config {
	return Config{
		ConnectTimeout: 5 * time.Second,
		Limits:         frame.DefaultLimits(),
	}
}

type Client struct {
	cfg    Config
	dialer net.Dialer
	logger zerolog.Logger
}

func New(cfg Config) (*Client, error) {
	cfg.Address = strings.TrimSpace(cfg.Address)
	if cfg.Address == "" {
		return nil, ErrAddressRequired
	}
	base := log.Logger
	if cfg.Logger != nil {
		base = *cfg.Logger
	}
	return &Client{
		cfg:    cfg,
		dialer: net.Dialer{Timeout: cfg.ConnectTimeout},
		logger: logging.Component(base, "client"),
	}, nil
}

func (c *Client) Address() string { return c.cfg.Address }

// outcome is what a response reader reports back to exchange.
type outcome struct {
	tuples int
	miss   bool
}

// responseReader decodes one response. A nil reader means the command has no
// response and the exchange ends at the half-close.
type responseReader func(dec *frame.Decoder) (outcome, error)

// exchange runs one command on one connection.
func (c *Client) exchange(ctx context.Context, cmd protocol.Command, tuples []tuple.Tuple, read responseReader) error {
	id := uuid.NewString()
	start := time.Now()
	var (
		out      outcome
		reqBytes int
	)

	err := func() error {
		req, err := protocol.EncodeRequest(cmd, tuples...)
		if err != nil {
			return err
		}
		reqBytes = len(req)

		conn, err := c.dialer.DialContext(ctx, "tcp", c.cfg.Address)
		if err != nil {
			return err
		}
		defer conn.Close()
		stop := context.AfterFunc(ctx, func() { _ = conn.Close() })
		defer stop()

		if deadline, ok := ctx.Deadline(); ok {
			if err := conn.SetDeadline(deadline); err != nil {
				return err
			}
		} else if c.cfg.IOTimeout > 0 && !cmd.Blocking() {
			if err := conn.SetDeadline(time.Now().Add(c.cfg.IOTimeout)); err != nil {
				return err
			}
		}

		if _, err := conn.Write(req); err != nil {
			return err
		}
		if err := closeWrite(conn); err != nil {
			return err
		}
		if read == nil {
			return nil
		}

		dec := frame.NewDecoder(bufio.NewReader(conn), c.cfg.Limits)
		out, err = read(dec)
		return err
	}()

	if err != nil && ctx.Err() != nil && classify(err) == KindConnection {
		err = ctx.Err()
	}

	result := "ok"
	if out.miss {
		result = "miss"
	}
	var opErr error
	if err != nil {
		kind := classify(err)
		result = kind.String()
		opErr = &OpError{Command: cmd, Addr: c.cfg.Address, Kind: kind, Err: err}
	}
	elapsed := time.Since(start)
	observability.RecordExchange(cmd.String(), result, reqBytes, out.tuples, elapsed)
	observability.LogExchange(c.logger, observability.Exchange{
		ID:      id,
		Command: cmd.String(),
		Addr:    c.cfg.Address,
		Result:  result,
		Tuples:  out.tuples,
		Elapsed: elapsed,
		Err:     err,
	})
	return opErr
}

func closeWrite(conn net.Conn) error {
	hc, ok := conn.(interface{ CloseWrite() error })
	if !ok {
		return ErrHalfCloseUnsupported
	}
	return hc.CloseWrite()
}
