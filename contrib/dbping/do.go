package dbping

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"

	"github.com/dbwire/dbwire.go"
	"github.com/dbwire/dbwire.go/pkg/connection"
)

// Report summarizes a completed ping run.
type Report struct {
	// Sent is the number of pings attempted.
	Sent int
	// Succeeded is the number of pings that completed within their deadline.
	Succeeded int
	// Failed is the number of pings that errored or overran their deadline.
	Failed int
	// Redials counts sessions that were discarded after a broken exchange
	// and replaced with a fresh dial.
	Redials int

	// Round-trip latency over the successful pings.
	Min time.Duration
	Max time.Duration
	Avg time.Duration
}

// Do executes a ping run based on the provided configuration. The
// configuration should be validated before calling this function.
//
// The returned Report is non-nil whenever the initial dial succeeded, even
// when the run itself returns an error, so callers can still see how far it
// got.
func Do(ctx context.Context, config *Config) (*Report, error) {
	log := newLogger(config)

	conn, err := dbwire.Connect(ctx, config.URL)
	if err != nil {
		return nil, fmt.Errorf("connecting to %s: %w", config.URL, err)
	}
	defer func() {
		if conn == nil {
			return
		}
		if closeErr := conn.Close(ctx); closeErr != nil {
			log.Warn().Err(closeErr).Msg("failed to close connection")
		}
	}()

	log.Info().Str("url", config.URL).Int("count", config.Count).Msg("pinging")

	report := &Report{}
	var rtts []time.Duration
	for seq := 0; seq < config.Count; seq++ {
		// A broken exchange leaves the previous session unusable. Replace
		// it rather than racing the abandoned call for the stream.
		if conn.HasCancellation() {
			log.Warn().Int("seq", seq).Msg("session poisoned, redialing")
			if closeErr := conn.Close(ctx); closeErr != nil {
				log.Debug().Err(closeErr).Msg("failed to close poisoned connection")
			}
			conn = nil

			fresh, dialErr := dbwire.Connect(ctx, config.URL)
			if dialErr != nil {
				return report, fmt.Errorf("redialing %s: %w", config.URL, dialErr)
			}
			conn = fresh
			report.Redials++
		}

		if seq > 0 && config.Interval > 0 {
			select {
			case <-time.After(config.Interval):
			case <-ctx.Done():
				return report, ctx.Err()
			}
		}

		rtt, pingErr := ping(ctx, conn, config.Timeout)
		report.Sent++
		if pingErr != nil {
			report.Failed++
			log.Warn().Int("seq", seq).Err(pingErr).Msg("ping failed")
			continue
		}
		report.Succeeded++
		rtts = append(rtts, rtt)
		log.Info().Int("seq", seq).Dur("rtt", rtt).Msg("pong")
	}

	summarize(report, rtts)
	log.Info().
		Int("sent", report.Sent).
		Int("succeeded", report.Succeeded).
		Int("failed", report.Failed).
		Dur("min", report.Min).
		Dur("avg", report.Avg).
		Dur("max", report.Max).
		Msg("done")

	if report.Succeeded == 0 {
		return report, fmt.Errorf("all %d pings failed", report.Sent)
	}
	return report, nil
}

// ping runs a single round-trip under the per-ping deadline.
func ping(ctx context.Context, conn connection.Connection, timeout time.Duration) (time.Duration, error) {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	start := time.Now()
	err := conn.Ping(ctx)
	return time.Since(start), err
}

func summarize(report *Report, rtts []time.Duration) {
	if len(rtts) == 0 {
		return
	}

	var total time.Duration
	report.Min = rtts[0]
	report.Max = rtts[0]
	for _, rtt := range rtts {
		total += rtt
		if rtt < report.Min {
			report.Min = rtt
		}
		if rtt > report.Max {
			report.Max = rtt
		}
	}
	report.Avg = total / time.Duration(len(rtts))
}

func newLogger(config *Config) zerolog.Logger {
	w := config.LogWriter
	if w == nil {
		w = os.Stderr
	}
	out := zerolog.ConsoleWriter{Out: w, TimeFormat: time.TimeOnly}

	level := zerolog.InfoLevel
	if config.Verbose {
		level = zerolog.DebugLevel
	}
	return zerolog.New(out).With().Timestamp().Logger().Level(level)
}
