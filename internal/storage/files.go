package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"eligibility-signposting/internal/campaign"
	"eligibility-signposting/internal/person"
)

// DirSource reads one campaign config per *.json file in Dir, in file name order.
type DirSource struct {
	Dir string
}

func (d DirSource) LoadCampaignConfigs(_ context.Context) ([]campaign.CampaignConfig, error) {
	paths, err := filepath.Glob(filepath.Join(d.Dir, "*.json"))
	if err != nil {
		return nil, err
	}
	sort.Strings(paths)

	out := make([]campaign.CampaignConfig, 0, len(paths))
	for _, p := range paths {
		f, err := os.Open(p)
		if err != nil {
			return nil, err
		}
		cfg, err := campaign.Decode(f)
		f.Close()
		if err != nil {
			return nil, fmt.Errorf("%s: %w", filepath.Base(p), err)
		}
		out = append(out, cfg)
	}
	return out, nil
}

// ReadPersonFile loads a person fixture: a YAML (or JSON) list of attribute
// records, each carrying its ATTRIBUTE_TYPE.
func ReadPersonFile(path string) (person.Person, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var recs []map[string]any
	if err := yaml.Unmarshal(raw, &recs); err != nil {
		return nil, fmt.Errorf("failed to decode person file %s: %w", path, err)
	}
	p := make(person.Person, 0, len(recs))
	for i, r := range recs {
		a := person.Attributes(r)
		if strings.TrimSpace(a.Type()) == "" {
			return nil, fmt.Errorf("person file %s: record %d has no %s", path, i, person.AttributeTypeKey)
		}
		p = append(p, a)
	}
	return p, nil
}
