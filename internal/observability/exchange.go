package observability

import (
	"time"

	"github.com/rs/zerolog"
)

// Exchange describes one finished command exchange for logging.
type Exchange struct {
	ID      string
	Command string
	Addr    string
	Result  string
	Tuples  int
	Elapsed time.Duration
	Err     error
}

// LogExchange writes one exchange record. Failures log at warn, everything
// else at debug.
func LogExchange(logger zerolog.Logger, ex Exchange) {
	event := logger.Debug()
	if ex.Err != nil {
		event = logger.Warn().Err(ex.Err)
	}
	event.
		Str("exchange", ex.ID).
		Str("cmd", ex.Command).
		Str("addr", ex.Addr).
		Str("result", ex.Result).
		Int("tuples", ex.Tuples).
		Dur("elapsed", ex.Elapsed).
		Msg("exchange")
}
