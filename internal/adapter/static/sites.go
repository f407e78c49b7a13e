package static

import (
	"context"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/user/product-harvester/internal/entity"
	"github.com/user/product-harvester/pkg/utils"
)

// SiteList is the YAML layout of a seeded candidate list:
//
//	sites:
//	  - url: https://acme.test/chairs
//	    title: Acme chairs
//	    keywords: [chairs, furniture]
type SiteList struct {
	Sites []SiteEntry `yaml:"sites"`
}

type SiteEntry struct {
	entity.CandidateSite `yaml:",inline"`
	Keywords             []string `yaml:"keywords"`
}

// Provider serves candidate sites from a YAML file instead of a search
// engine. Entries without keywords match every query.
type Provider struct {
	entries []SiteEntry
}

func Load(path string) (*Provider, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read sites file: %w", err)
	}
	var list SiteList
	if err := yaml.Unmarshal(data, &list); err != nil {
		return nil, fmt.Errorf("failed to parse sites file: %w", err)
	}
	for i, e := range list.Sites {
		if !utils.IsAbsoluteHTTP(e.URL) {
			return nil, fmt.Errorf("sites file entry %d: %q is not an absolute http(s) URL", i, e.URL)
		}
	}
	return &Provider{entries: list.Sites}, nil
}

func (p *Provider) Search(_ context.Context, query string, limit int) ([]entity.CandidateSite, error) {
	q := strings.ToLower(query)
	var sites []entity.CandidateSite
	for _, e := range p.entries {
		if len(sites) == limit {
			break
		}
		if matches(q, e.Keywords) {
			sites = append(sites, e.CandidateSite)
		}
	}
	return sites, nil
}

func matches(query string, keywords []string) bool {
	if len(keywords) == 0 {
		return true
	}
	for _, k := range keywords {
		if strings.Contains(query, strings.ToLower(k)) {
			return true
		}
	}
	return false
}
