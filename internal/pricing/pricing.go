package pricing

import (
	"errors"
	"fmt"
	"strings"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
	"github.com/smallbiznis/campus/internal/config"
	"github.com/spf13/viper"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// ErrUnknownPlan is returned when a plan has no pricing entry.
var ErrUnknownPlan = errors.New("unknown pricing plan")

// Price is a single plan entry.
type Price struct {
	Plan     string  `mapstructure:"plan"`
	Amount   float64 `mapstructure:"amount"`
	Currency string  `mapstructure:"currency"`
	Interval string  `mapstructure:"interval"`
}

// Table resolves plan names to prices. Lookups are read-mostly and served
// from an atomically swapped snapshot, so reloads never block readers.
type Table struct {
	v        *viper.Viper
	snapshot atomic.Value
	log      *zap.Logger
}

// Params configures the pricing table source.
type Params struct {
	ConfigFile string
	Log        *zap.Logger
}

// NewTable loads the pricing table and starts watching the backing file
// when one is configured. Missing file falls back to built-in defaults.
func NewTable(p Params) (*Table, error) {
	v := viper.New()
	setDefaults(v)

	t := &Table{v: v, log: p.Log}

	if file := strings.TrimSpace(p.ConfigFile); file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("read pricing config: %w", err)
			}
		}
		v.OnConfigChange(func(_ fsnotify.Event) {
			if err := t.Reload(); err != nil && t.log != nil {
				t.log.Warn("pricing reload failed", zap.Error(err))
			}
		})
		v.WatchConfig()
	}

	if err := t.Reload(); err != nil {
		return nil, err
	}
	return t, nil
}

// Reload re-parses the configured source and swaps the snapshot.
func (t *Table) Reload() error {
	var prices []Price
	if err := t.v.UnmarshalKey("prices", &prices); err != nil {
		return fmt.Errorf("parse pricing table: %w", err)
	}

	byPlan := make(map[string]Price, len(prices))
	for _, price := range prices {
		plan := strings.ToLower(strings.TrimSpace(price.Plan))
		if plan == "" {
			continue
		}
		price.Plan = plan
		byPlan[plan] = price
	}
	t.snapshot.Store(byPlan)

	if t.log != nil {
		t.log.Info("pricing table loaded", zap.Int("plans", len(byPlan)))
	}
	return nil
}

// Lookup resolves a plan name case-insensitively.
func (t *Table) Lookup(plan string) (Price, error) {
	byPlan, _ := t.snapshot.Load().(map[string]Price)
	price, ok := byPlan[strings.ToLower(strings.TrimSpace(plan))]
	if !ok {
		return Price{}, fmt.Errorf("%w: %s", ErrUnknownPlan, plan)
	}
	return price, nil
}

// Plans lists the known plan names.
func (t *Table) Plans() []string {
	byPlan, _ := t.snapshot.Load().(map[string]Price)
	plans := make([]string, 0, len(byPlan))
	for plan := range byPlan {
		plans = append(plans, plan)
	}
	return plans
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("prices", []map[string]any{
		{"plan": "free", "amount": 0.0, "currency": "USD", "interval": "month"},
		{"plan": "basic", "amount": 19.0, "currency": "USD", "interval": "month"},
		{"plan": "premium", "amount": 49.0, "currency": "USD", "interval": "month"},
		{"plan": "enterprise", "amount": 199.0, "currency": "USD", "interval": "month"},
	})
}

// Module provides the pricing table.
var Module = fx.Module("pricing",
	fx.Provide(func(cfg config.Config, log *zap.Logger) (*Table, error) {
		return NewTable(Params{
			ConfigFile: cfg.PricingConfigFile,
			Log:        log,
		})
	}),
)
