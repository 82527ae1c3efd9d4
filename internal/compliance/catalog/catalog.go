package catalog

import (
	_ "embed"
	"fmt"
	"sort"
	"strings"

	"github.com/smallbiznis/greenledger/internal/compliance/domain"
	"gopkg.in/yaml.v3"
)

//go:embed frameworks.yaml
var frameworksYAML []byte

type document struct {
	Frameworks []domain.Framework `yaml:"frameworks"`
}

// Catalog is the read-only set of supported disclosure frameworks.
type Catalog struct {
	frameworks []domain.Framework
	byCode     map[string]domain.Framework
}

// Load parses the embedded framework catalog.
func Load() (*Catalog, error) {
	return Parse(frameworksYAML)
}

// Parse builds a catalog from YAML.
func Parse(data []byte) (*Catalog, error) {
	var doc document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse framework catalog: %w", err)
	}

	c := &Catalog{byCode: make(map[string]domain.Framework, len(doc.Frameworks))}
	for _, fw := range doc.Frameworks {
		code := strings.ToUpper(strings.TrimSpace(fw.Code))
		if code == "" {
			return nil, fmt.Errorf("framework without code")
		}
		if _, dup := c.byCode[code]; dup {
			return nil, fmt.Errorf("duplicate framework %q", code)
		}
		fw.Code = code
		for i, req := range fw.Requirements {
			if strings.TrimSpace(req.ID) == "" || len(req.Metrics) == 0 {
				return nil, fmt.Errorf("framework %s: requirement %d needs an id and metrics", code, i)
			}
		}
		c.byCode[code] = fw
		c.frameworks = append(c.frameworks, fw)
	}
	sort.SliceStable(c.frameworks, func(i, j int) bool {
		return c.frameworks[i].Code < c.frameworks[j].Code
	})
	return c, nil
}

func (c *Catalog) All() []domain.Framework {
	out := make([]domain.Framework, len(c.frameworks))
	copy(out, c.frameworks)
	return out
}

func (c *Catalog) Get(code string) (domain.Framework, bool) {
	fw, ok := c.byCode[strings.ToUpper(strings.TrimSpace(code))]
	return fw, ok
}

// Rules returns every CEL rule in the catalog, for startup validation.
func (c *Catalog) Rules() []string {
	var rules []string
	for _, fw := range c.frameworks {
		for _, req := range fw.Requirements {
			if strings.TrimSpace(req.Rule) != "" {
				rules = append(rules, req.Rule)
			}
		}
	}
	return rules
}
