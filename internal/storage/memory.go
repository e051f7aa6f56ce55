package storage

import (
	"context"
	"slices"
	"sync"

	"eligibility-signposting/internal/campaign"
	"eligibility-signposting/internal/person"
)

// Memory is an in-process person and campaign store, used by the CLI and tests.
type Memory struct {
	mu        sync.RWMutex
	persons   map[string]person.Person
	campaigns []campaign.CampaignConfig
}

func NewMemory() *Memory {
	return &Memory{persons: map[string]person.Person{}}
}

func (m *Memory) PutPerson(id string, p person.Person) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.persons[id] = p
}

func (m *Memory) GetEligibilityData(_ context.Context, id string) (person.Person, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.persons[id]
	if !ok {
		return nil, ErrNotFound
	}
	if _, ok := p.Record(person.TypePerson); !ok {
		return nil, ErrNotFound
	}
	return p, nil
}

func (m *Memory) LoadCampaignConfigs(context.Context) ([]campaign.CampaignConfig, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return slices.Clone(m.campaigns), nil
}

func (m *Memory) UpdateCampaigns(campaigns []campaign.CampaignConfig) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.campaigns = campaigns
}
