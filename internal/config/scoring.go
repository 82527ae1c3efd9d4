package config

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// ScoringConfig carries the tunables used while validating and scoring
// metric records.
type ScoringConfig struct {
	// DefaultTargets maps a metric name to the target applied when a record
	// carries none.
	DefaultTargets map[string]float64 `mapstructure:"defaultTargets"`
	// NegativeAllowed lists metric names that may legitimately be negative.
	NegativeAllowed []string `mapstructure:"negativeAllowed"`
	// PercentUnits lists units whose values must stay within [0,100].
	PercentUnits []string `mapstructure:"percentUnits"`
}

func DefaultScoringConfig() ScoringConfig {
	return ScoringConfig{
		DefaultTargets: map[string]float64{
			"renewable_energy_share":  100,
			"waste_recycled_rate":     100,
			"employee_training_hours": 40,
			"female_leadership_share": 50,
			"board_independence":      100,
			"ethics_training_rate":    100,
		},
		NegativeAllowed: []string{
			"emissions_delta",
			"energy_variance",
			"headcount_delta",
			"budget_variance",
		},
		PercentUnits: []string{"%", "percent", "pct"},
	}
}

// TargetFor returns the configured default target for a metric name.
func (c ScoringConfig) TargetFor(metricName string) (float64, bool) {
	key := normalizeKey(metricName)
	if key == "" {
		return 0, false
	}
	target, ok := c.DefaultTargets[key]
	if !ok || target <= 0 {
		return 0, false
	}
	return target, true
}

// AllowsNegative reports whether a metric is a delta or variance metric.
func (c ScoringConfig) AllowsNegative(metricName string) bool {
	key := normalizeKey(metricName)
	if key == "" {
		return false
	}
	for _, name := range c.NegativeAllowed {
		if normalizeKey(name) == key {
			return true
		}
	}
	return strings.HasSuffix(key, "_delta") || strings.HasSuffix(key, "_variance")
}

// IsPercentUnit reports whether values in unit are bounded to [0,100].
func (c ScoringConfig) IsPercentUnit(unit string) bool {
	key := normalizeKey(unit)
	if key == "" {
		return false
	}
	for _, u := range c.PercentUnits {
		if normalizeKey(u) == key {
			return true
		}
	}
	return false
}

func normalizeKey(value string) string {
	return strings.ToLower(strings.TrimSpace(value))
}

type ScoringConfigHolder struct {
	current atomic.Value // holds ScoringConfig

	mu        sync.Mutex
	listeners []func()
}

// NewStaticScoringConfigHolder wraps a fixed config, mainly for tests and the CLI.
func NewStaticScoringConfigHolder(cfg ScoringConfig) *ScoringConfigHolder {
	holder := &ScoringConfigHolder{}
	holder.current.Store(normalizeScoringConfig(cfg))
	return holder
}

// NewScoringConfigHolder loads scoring.yml and keeps it current while the
// file changes on disk.
func NewScoringConfigHolder(log *zap.Logger) (*ScoringConfigHolder, error) {
	if log == nil {
		log = zap.NewNop()
	}
	log = log.Named("config.scoring")

	v := viper.New()
	v.SetConfigName("scoring")
	v.SetConfigType("yml")
	v.AddConfigPath("/etc/greenledger")
	v.AddConfigPath("./config")
	v.AddConfigPath(".")

	v.SetEnvPrefix("GREENLEDGER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	defaults := DefaultScoringConfig()
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, err
		}
		log.Info("scoring config not found, using defaults")
		return NewStaticScoringConfigHolder(defaults), nil
	}

	cfg, err := decodeScoring(v, defaults)
	if err != nil {
		return nil, err
	}

	holder := NewStaticScoringConfigHolder(cfg)

	v.WatchConfig()
	v.OnConfigChange(func(e fsnotify.Event) {
		updated, err := decodeScoring(v, defaults)
		if err != nil {
			log.Warn("scoring config reload rejected", zap.String("file", e.Name), zap.Error(err))
			return
		}
		holder.replace(updated)
		log.Info("scoring config reloaded", zap.String("file", e.Name))
	})

	return holder, nil
}

// OnReload registers fn to run after every accepted reload of scoring.yml.
func (h *ScoringConfigHolder) OnReload(fn func()) {
	if h == nil || fn == nil {
		return
	}
	h.mu.Lock()
	h.listeners = append(h.listeners, fn)
	h.mu.Unlock()
}

func (h *ScoringConfigHolder) replace(cfg ScoringConfig) {
	h.current.Store(normalizeScoringConfig(cfg))
	h.mu.Lock()
	listeners := append([]func(){}, h.listeners...)
	h.mu.Unlock()
	for _, fn := range listeners {
		fn()
	}
}

func (h *ScoringConfigHolder) Get() ScoringConfig {
	if h == nil {
		return normalizeScoringConfig(DefaultScoringConfig())
	}
	cfg, ok := h.current.Load().(ScoringConfig)
	if !ok {
		return normalizeScoringConfig(DefaultScoringConfig())
	}
	return cfg
}

func decodeScoring(v *viper.Viper, defaults ScoringConfig) (ScoringConfig, error) {
	var cfg ScoringConfig
	if err := v.UnmarshalKey("scoring", &cfg); err != nil {
		return ScoringConfig{}, err
	}
	if len(cfg.PercentUnits) == 0 {
		cfg.PercentUnits = defaults.PercentUnits
	}
	if err := validateScoringConfig(cfg); err != nil {
		return ScoringConfig{}, err
	}
	return normalizeScoringConfig(cfg), nil
}

func validateScoringConfig(cfg ScoringConfig) error {
	for name, target := range cfg.DefaultTargets {
		if strings.TrimSpace(name) == "" {
			return errors.New("scoring.defaultTargets contains an empty metric name")
		}
		if target <= 0 || math.IsNaN(target) || math.IsInf(target, 0) {
			return fmt.Errorf("scoring.defaultTargets.%s must be positive", name)
		}
	}
	return nil
}

func normalizeScoringConfig(cfg ScoringConfig) ScoringConfig {
	targets := make(map[string]float64, len(cfg.DefaultTargets))
	for name, target := range cfg.DefaultTargets {
		targets[normalizeKey(name)] = target
	}
	cfg.DefaultTargets = targets
	return cfg
}
