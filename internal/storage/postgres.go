package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"

	"eligibility-signposting/internal/campaign"
	"eligibility-signposting/internal/config"
	"eligibility-signposting/internal/hashing"
	"eligibility-signposting/internal/person"
)

// ErrNotFound is returned when no PERSON record exists for a subject.
var ErrNotFound = errors.New("person not found")

type Store struct {
	pool    *pgxpool.Pool
	secrets hashing.SecretSource
	channel string
}

func New(ctx context.Context, cfg config.Config, secrets hashing.SecretSource) (*Store, error) {
	dsn := cfg.DSN()
	poolCfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to parse postgres DSN: %w", err)
	}
	poolCfg.MaxConns = int32(cfg.Postgres.MaxOpenConns)
	poolCfg.MinConns = int32(cfg.Postgres.MaxIdleConns)
	poolCfg.HealthCheckPeriod = time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create postgres pool: %w", err)
	}
	return &Store{pool: pool, secrets: secrets, channel: cfg.Listener.Channel}, nil
}

func (s *Store) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

// GetEligibilityData loads the attribute records for id. Records are keyed by
// the hashed identifier; the current secret is tried first, then the previous
// one, then the raw identifier.
func (s *Store) GetEligibilityData(ctx context.Context, id string) (person.Person, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	keys, err := hashing.Candidates(ctx, s.secrets, id)
	if err != nil {
		return nil, fmt.Errorf("hashing secrets: %w", err)
	}
	for i, key := range keys {
		p, err := s.personRecords(ctx, key)
		if err != nil {
			return nil, err
		}
		if _, ok := p.Record(person.TypePerson); ok {
			return p, nil
		}
		log.Debug().Int("attempt", i+1).Msg("no person record for lookup key")
	}
	return nil, ErrNotFound
}

// personRecordsQuery returns records in insertion order: when a person has
// more than one COHORTS record the first one stored wins.
const personRecordsQuery = `
	SELECT attributes
	FROM person_attributes
	WHERE subject_key = $1
	ORDER BY id
`

func (s *Store) personRecords(ctx context.Context, key string) (person.Person, error) {
	rows, err := s.pool.Query(ctx, personRecordsQuery, key)
	if err != nil {
		return nil, fmt.Errorf("query person attributes: %w", err)
	}
	recs, err := pgx.CollectRows(rows, pgx.RowTo[person.Attributes])
	if err != nil {
		return nil, fmt.Errorf("scan person attributes: %w", err)
	}
	return person.Person(recs), nil
}

// LoadCampaignConfigs loads and validates every active campaign config.
func (s *Store) LoadCampaignConfigs(ctx context.Context) ([]campaign.CampaignConfig, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	rows, err := s.pool.Query(ctx, `
		SELECT id, config
		FROM campaign_configs
		WHERE active
		ORDER BY id
	`)
	if err != nil {
		return nil, fmt.Errorf("query campaigns: %w", err)
	}
	defer rows.Close()

	var out []campaign.CampaignConfig
	for rows.Next() {
		var (
			id  string
			raw []byte
		)
		if err := rows.Scan(&id, &raw); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		cfg, err := campaign.Unmarshal(raw)
		if err != nil {
			return nil, fmt.Errorf("campaign %s: %w", id, err)
		}
		out = append(out, cfg)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return out, nil
}

func (s *Store) ListenChannel() string {
	if s.channel == "" {
		return "campaign_config_change"
	}
	return s.channel
}

func (s *Store) PgxPool() *pgxpool.Pool {
	if s.pool == nil {
		panic(errors.New("pgx pool is nil"))
	}
	return s.pool
}
