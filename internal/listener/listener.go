package listener

import (
	"context"
	"math/rand"
	"time"

	"github.com/rs/zerolog/log"

	"eligibility-signposting/internal/engine"
	"eligibility-signposting/internal/storage"
)

const debounce = 200 * time.Millisecond

// ListenAndRefresh rebuilds the campaign snapshot whenever campaign_configs
// changes. It returns when ctx is cancelled.
func ListenAndRefresh(ctx context.Context, st *storage.Store, eng *engine.Engine, channel string, baseBackoff time.Duration) {
	conn, err := st.PgxPool().Acquire(ctx)
	if err != nil {
		log.Error().Err(err).Msg("acquire conn for listen")
		return
	}
	defer conn.Release()

	if channel == "" {
		channel = st.ListenChannel()
	}
	if _, err = conn.Exec(ctx, "LISTEN "+channel); err != nil {
		log.Error().Err(err).Str("channel", channel).Msg("listen")
		return
	}
	log.Info().Str("channel", channel).Msg("listening for campaign changes")

	var lastRefresh time.Time
	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("listener stopped")
			return
		default:
			ntf, err := conn.Conn().WaitForNotification(ctx)
			if err != nil {
				if ctx.Err() != nil {
					continue
				}
				backoff := jitter(baseBackoff)
				log.Error().Err(err).Dur("retry_in", backoff).Msg("notify wait error")
				time.Sleep(backoff)
				continue
			}
			if !due(lastRefresh, time.Now()) {
				continue
			}
			lastRefresh = time.Now()
			log.Info().Str("channel", ntf.Channel).Str("payload", ntf.Payload).Msg("campaign change; refreshing snapshot")
			if err := eng.BuildSnapshot(ctx, st); err != nil {
				log.Error().Err(err).Msg("refresh snapshot error")
			}
		}
	}
}

// due drops notifications arriving in a burst after a refresh.
func due(last, now time.Time) bool { return now.Sub(last) >= debounce }

func jitter(base time.Duration) time.Duration {
	if base <= 0 {
		base = time.Second
	}
	factor := 0.5 + rand.Float64() // 0.5x-1.5x
	return time.Duration(float64(base) * factor)
}
