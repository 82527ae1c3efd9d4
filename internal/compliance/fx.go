package compliance

import (
	"fmt"

	"github.com/smallbiznis/greenledger/internal/compliance/catalog"
	"github.com/smallbiznis/greenledger/internal/compliance/repository"
	"github.com/smallbiznis/greenledger/internal/compliance/rules"
	"github.com/smallbiznis/greenledger/internal/compliance/service"
	"go.uber.org/fx"
)

var Module = fx.Module("compliance.service",
	fx.Provide(catalog.Load),
	fx.Provide(newEvaluator),
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)

// newEvaluator fails startup when a catalog rule does not compile.
func newEvaluator(c *catalog.Catalog) (*rules.Evaluator, error) {
	e, err := rules.NewEvaluator()
	if err != nil {
		return nil, err
	}
	for _, rule := range c.Rules() {
		if err := e.Check(rule); err != nil {
			return nil, fmt.Errorf("framework rule %q: %w", rule, err)
		}
	}
	return e, nil
}
