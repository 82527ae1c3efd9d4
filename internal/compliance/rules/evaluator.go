package rules

import (
	"errors"
	"fmt"

	"github.com/google/cel-go/cel"
	"github.com/smallbiznis/greenledger/internal/cache"
)

const programCacheSize = 256

var ErrNotBool = errors.New("rule result is not a bool")

// Evaluator compiles and runs requirement rules. Each rule sees `metrics`, the
// latest value per metric name, and `year`, the reporting year or 0.
type Evaluator struct {
	env      *cel.Env
	programs *cache.LRU[string, cel.Program]
}

func NewEvaluator() (*Evaluator, error) {
	env, err := cel.NewEnv(
		cel.Variable("metrics", cel.MapType(cel.StringType, cel.DoubleType)),
		cel.Variable("year", cel.IntType),
	)
	if err != nil {
		return nil, fmt.Errorf("create rule environment: %w", err)
	}
	return &Evaluator{
		env:      env,
		programs: cache.NewLRU[string, cel.Program](programCacheSize),
	}, nil
}

// Check compiles a rule without running it.
func (e *Evaluator) Check(expr string) error {
	_, err := e.program(expr)
	return err
}

func (e *Evaluator) Evaluate(expr string, metrics map[string]float64, year int) (bool, error) {
	prg, err := e.program(expr)
	if err != nil {
		return false, err
	}
	if metrics == nil {
		metrics = map[string]float64{}
	}

	out, _, err := prg.Eval(map[string]any{
		"metrics": metrics,
		"year":    int64(year),
	})
	if err != nil {
		return false, fmt.Errorf("eval: %w", err)
	}
	val, ok := out.Value().(bool)
	if !ok {
		return false, ErrNotBool
	}
	return val, nil
}

func (e *Evaluator) program(expr string) (cel.Program, error) {
	if prg, ok := e.programs.Get(expr); ok {
		return prg, nil
	}

	ast, issues := e.env.Compile(expr)
	if issues != nil && issues.Err() != nil {
		return nil, fmt.Errorf("compile: %w", issues.Err())
	}
	if !ast.OutputType().IsExactType(cel.BoolType) {
		return nil, ErrNotBool
	}
	prg, err := e.env.Program(ast,
		cel.InterruptCheckFrequency(100),
		cel.CostLimit(10000),
	)
	if err != nil {
		return nil, fmt.Errorf("program: %w", err)
	}
	e.programs.Set(expr, prg, 0)
	return prg, nil
}
