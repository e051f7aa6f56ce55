package engine

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"eligibility-signposting/internal/cache"
	"eligibility-signposting/internal/campaign"
	"eligibility-signposting/internal/observability"
)

// CampaignSource loads the full set of campaign configs.
type CampaignSource interface {
	LoadCampaignConfigs(ctx context.Context) ([]campaign.CampaignConfig, error)
}

type snapshot struct {
	campaigns []campaign.CampaignConfig
	builtAt   time.Time
}

// Engine serves campaign configs from an in-memory snapshot that is rebuilt
// and swapped wholesale, never mutated in place.
type Engine struct{ snap cache.Snapshot[snapshot] }

func NewEngine() *Engine { return &Engine{} }

// BuildSnapshot loads campaigns from src and swaps them in. On error the
// previous snapshot stays in place.
func (e *Engine) BuildSnapshot(ctx context.Context, src CampaignSource) error {
	configs, err := src.LoadCampaignConfigs(ctx)
	if err != nil {
		observability.CampaignReloads.WithLabelValues("error").Inc()
		return err
	}
	observability.CampaignReloads.WithLabelValues("ok").Inc()
	e.snap.Store(snapshot{campaigns: configs, builtAt: time.Now()})
	log.Info().Int("campaigns", len(configs)).Msg("campaign snapshot built")
	return nil
}

// LoadCampaignConfigs returns the current snapshot. It satisfies
// CampaignSource so callers can read through the engine.
func (e *Engine) LoadCampaignConfigs(_ context.Context) ([]campaign.CampaignConfig, error) {
	s, _ := e.snap.Load()
	return s.campaigns, nil
}

// BuiltAt reports when the current snapshot was taken; zero before the first build.
func (e *Engine) BuiltAt() time.Time {
	s, _ := e.snap.Load()
	return s.builtAt
}
