package logger

import (
	"fmt"
	"log/slog"
	"time"
)

type timerOptions struct {
	precision int
	prefix    string
}

// TimerOption customises MeasureTime.
type TimerOption func(*timerOptions)

// WithPrecision sets the number of decimals used for the elapsed seconds.
func WithPrecision(p int) TimerOption {
	return func(o *timerOptions) { o.precision = p }
}

// WithPrefix prepends prefix to the timing message.
func WithPrefix(prefix string) TimerOption {
	return func(o *timerOptions) { o.prefix = prefix }
}

// MeasureTime starts a timer and returns the function that stops it and logs
// "<prefix><op> took <seconds> seconds" at info level.
//
//	defer logger.MeasureTime(log, "GenerateOneShot")()
func MeasureTime(l *slog.Logger, op string, opts ...TimerOption) func() {
	o := timerOptions{precision: 6}
	for _, opt := range opts {
		opt(&o)
	}
	if l == nil {
		l = slog.Default()
	}

	start := time.Now()
	return func() {
		elapsed := time.Since(start)
		l.Info(fmt.Sprintf("%s%s took %.*f seconds", o.prefix, op, o.precision, elapsed.Seconds()),
			"duration", elapsed)
	}
}
