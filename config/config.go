// Package config loads medicaidctl settings from an optional YAML file and
// DEVINHHS_ environment variables.
package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"

	"github.com/COG-GTM/devin-hhs/analysis"
	"github.com/COG-GTM/devin-hhs/outlier"
)

const EnvPrefix = "DEVINHHS"

type Config struct {
	// DatabaseURL is a PostgreSQL connection string. Empty runs without a
	// database: reports come from snapshots and detail routes are disabled.
	DatabaseURL string `mapstructure:"database_url"`
	ListenAddr  string `mapstructure:"listen_addr" validate:"required,hostname_port"`
	SnapshotDir string `mapstructure:"snapshot_dir" validate:"required"`
	OutputPath  string `mapstructure:"output_path" validate:"required"`
	LogLevel    string `mapstructure:"log_level" validate:"required,oneof=debug info warn error"`
	// NPIFilter is an optional JSON file of {"npi": ...} objects restricting
	// provider analysis.
	NPIFilter string `mapstructure:"npi_filter"`
	BatchSize int    `mapstructure:"batch_size" validate:"gte=1"`
	MaxConns  int32  `mapstructure:"max_conns" validate:"gte=1"`

	Spending SpendingConfig `mapstructure:"spending"`
	States   StateConfig    `mapstructure:"states"`
	Risk     RiskConfig     `mapstructure:"risk"`
	// PriceMinProviders is how many billing providers a code needs before
	// its price spread is reported.
	PriceMinProviders int64 `mapstructure:"price_min_providers" validate:"gte=1"`
}

// SpendingConfig drives the provider, HCPCS and billing mismatch analyses.
type SpendingConfig struct {
	MinClaims     float64 `mapstructure:"min_claims" validate:"gte=0"`
	HighThreshold float64 `mapstructure:"high_threshold" validate:"gt=0"`
	Profile       string  `mapstructure:"profile" validate:"oneof=general federal"`
}

// StateConfig drives the per-capita state analysis. A LowThreshold of 0
// disables low outliers.
type StateConfig struct {
	MinPopulation float64 `mapstructure:"min_population" validate:"gte=0"`
	HighThreshold float64 `mapstructure:"high_threshold" validate:"gt=0"`
	LowThreshold  float64 `mapstructure:"low_threshold" validate:"lte=0"`
	Profile       string  `mapstructure:"profile" validate:"oneof=general federal"`
}

// RiskConfig drives the multi-factor provider risk scores. Providers billing
// MaxIntensity or more claims per beneficiary are scored but kept out of the
// statistics. A Limit of 0 lists every scored provider.
type RiskConfig struct {
	MaxIntensity float64 `mapstructure:"max_intensity" validate:"gt=0"`
	Limit        int     `mapstructure:"limit" validate:"gte=0"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("database_url", "")
	v.SetDefault("listen_addr", ":8080")
	v.SetDefault("snapshot_dir", "snapshots")
	v.SetDefault("output_path", "outliers.json")
	v.SetDefault("log_level", "info")
	v.SetDefault("npi_filter", "")
	v.SetDefault("batch_size", 50_000)
	v.SetDefault("max_conns", 4)
	v.SetDefault("price_min_providers", analysis.DefaultMinPriceProviders)

	v.SetDefault("spending.min_claims", 100)
	v.SetDefault("spending.high_threshold", 3.0)
	v.SetDefault("spending.profile", string(outlier.ProfileGeneral))

	v.SetDefault("states.min_population", 100_000)
	v.SetDefault("states.high_threshold", 2.0)
	v.SetDefault("states.low_threshold", -1.5)
	v.SetDefault("states.profile", string(outlier.ProfileFederal))

	risk := analysis.DefaultRiskConfig()
	v.SetDefault("risk.max_intensity", risk.MaxIntensity)
	v.SetDefault("risk.limit", risk.Limit)
}

// Load reads path (skipped when empty), overlays environment variables and
// validates the result.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks field constraints and reports every failing field.
func (c *Config) Validate() error {
	err := validator.New().Struct(c)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("validate config: %w", err)
	}
	msgs := make([]string, len(verrs))
	for i, fe := range verrs {
		msgs[i] = fmt.Sprintf("%s failed %q", fe.Namespace(), fe.Tag())
	}
	return fmt.Errorf("invalid config: %s", strings.Join(msgs, "; "))
}

// SpendingDomain converts the spending settings for the analysis package.
func (c *Config) SpendingDomain() (analysis.DomainConfig, error) {
	p, err := outlier.ParseProfile(c.Spending.Profile)
	if err != nil {
		return analysis.DomainConfig{}, fmt.Errorf("spending: %w", err)
	}
	return analysis.DomainConfig{
		Floor:      c.Spending.MinClaims,
		Thresholds: outlier.HighOnly(c.Spending.HighThreshold),
		Profile:    p,
	}, nil
}

// StateDomain converts the state settings for the analysis package.
func (c *Config) StateDomain() (analysis.DomainConfig, error) {
	p, err := outlier.ParseProfile(c.States.Profile)
	if err != nil {
		return analysis.DomainConfig{}, fmt.Errorf("states: %w", err)
	}
	t := outlier.HighOnly(c.States.HighThreshold)
	if c.States.LowThreshold < 0 {
		t.Low = c.States.LowThreshold
	}
	return analysis.DomainConfig{
		Floor:      c.States.MinPopulation,
		Thresholds: t,
		Profile:    p,
	}, nil
}

// RiskConfig converts the risk score settings. Scoring shares the spending
// claims floor.
func (c *Config) RiskConfig() analysis.RiskConfig {
	return analysis.RiskConfig{
		Floor:        c.Spending.MinClaims,
		MaxIntensity: c.Risk.MaxIntensity,
		Limit:        c.Risk.Limit,
	}
}

// ReportConfig builds the outlier report settings, loading the NPI filter
// when one is configured.
func (c *Config) ReportConfig() (analysis.ReportConfig, error) {
	d, err := c.SpendingDomain()
	if err != nil {
		return analysis.ReportConfig{}, err
	}
	rc := analysis.ReportConfig{Providers: d, HCPCS: d, Mismatches: d, CostPerClaim: d}
	if c.NPIFilter != "" {
		f, err := analysis.LoadNPIFilter(c.NPIFilter)
		if err != nil {
			return rc, fmt.Errorf("load npi filter: %w", err)
		}
		rc.Allow = f
	}
	return rc, nil
}
