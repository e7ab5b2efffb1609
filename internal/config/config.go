// Package config defines all configuration for the lifecycle engine.
// Config is loaded from an optional YAML file with every field overridable
// via FLIPFLOW_* environment variables. The record is immutable after Load.
package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/spf13/viper"

	"flipflow/pkg/types"
)

// Config is the top-level configuration. Maps directly to the YAML file structure.
type Config struct {
	DatabaseURL string `mapstructure:"database_url"`

	Ebay    EbayConfig    `mapstructure:"ebay"`
	Fees    FeeConfig     `mapstructure:"fees"`
	Zombie  ZombieConfig  `mapstructure:"zombie"`
	Queue   QueueConfig   `mapstructure:"queue"`
	Promote PromoteConfig `mapstructure:"promote"`
	Offers  OfferConfig   `mapstructure:"offers"`
	Reprice RepriceConfig `mapstructure:"reprice"`
	Relist  RelistConfig  `mapstructure:"relist"`
	Pulse   PulseConfig   `mapstructure:"pulse"`

	PurgatorySalePercent    float64 `mapstructure:"purgatory_sale_percent"`
	PhotoShuffleDaysNoViews int     `mapstructure:"photo_shuffle_days_no_views"`
	STRThreshold            float64 `mapstructure:"str_threshold"`

	API     APIConfig     `mapstructure:"api"`
	Logging LoggingConfig `mapstructure:"logging"`
}

// EbayConfig selects and credentials the marketplace gateway.
// Mode "mock" runs fully offline against the in-memory gateway.
type EbayConfig struct {
	Mode                string `mapstructure:"mode"` // mock | sandbox | production
	ClientID            string `mapstructure:"client_id"`
	ClientSecret        string `mapstructure:"client_secret"`
	RefreshToken        string `mapstructure:"refresh_token"`
	FulfillmentPolicyID string `mapstructure:"fulfillment_policy_id"`
}

// FeeConfig is the marketplace fee structure feeding the profit formulas.
type FeeConfig struct {
	BaseFeeRate           float64 `mapstructure:"base_fee_rate"`
	PaymentProcessingRate float64 `mapstructure:"payment_processing_rate"`
	PerOrderFee           float64 `mapstructure:"per_order_fee"`
	MinProfitFloor        float64 `mapstructure:"min_profit_floor"`
}

// ZombieConfig tunes detection thresholds and the resurrection pipeline.
type ZombieConfig struct {
	DaysThreshold            int `mapstructure:"days_threshold"`
	ViewsThreshold           int `mapstructure:"views_threshold"`
	MaxCycles                int `mapstructure:"max_cycles"`
	ResurrectionDelaySeconds int `mapstructure:"resurrection_delay_seconds"`
}

// QueueConfig defines the SmartQueue surge window and batch size.
type QueueConfig struct {
	BatchSize       int    `mapstructure:"batch_size"`
	SurgeDay        string `mapstructure:"surge_day"`
	SurgeStartHour  int    `mapstructure:"surge_start_hour"`
	SurgeEndHour    int    `mapstructure:"surge_end_hour"`
	SurgeTimezone   string `mapstructure:"surge_timezone"`
}

// PromoteConfig tunes the Kickstarter promoted-listings policy.
type PromoteConfig struct {
	AdRate       float64 `mapstructure:"ad_rate"`
	DurationDays int     `mapstructure:"duration_days"`
}

// OfferConfig tunes the OfferSniper: outbound tier ladder plus the
// inbound accept/counter/reject thresholds.
type OfferConfig struct {
	Tiers               string  `mapstructure:"tiers"` // "days:pct,..."
	AutoAcceptThreshold float64 `mapstructure:"auto_accept_threshold"`
	CounterThreshold    float64 `mapstructure:"counter_threshold"`
	CounterPercent      float64 `mapstructure:"counter_percent"`
	PollIntervalHours   int     `mapstructure:"poll_interval_hours"`
}

// RepriceConfig is the graduated markdown ladder.
type RepriceConfig struct {
	Steps string `mapstructure:"steps"` // "days:pct,..."
}

// RelistConfig tunes the preventive AutoRelister.
type RelistConfig struct {
	CadenceDays    int `mapstructure:"cadence_days"`
	ViewsThreshold int `mapstructure:"views_threshold"`
}

// PulseConfig schedules the monthly store re-index.
type PulseConfig struct {
	DayOfMonth int `mapstructure:"day_of_month"`
}

// APIConfig controls the REST/dashboard server.
type APIConfig struct {
	Enabled bool `mapstructure:"enabled"`
	Port    int  `mapstructure:"port"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Load reads config from an optional YAML file with env var overrides.
// Secrets use env vars: FLIPFLOW_EBAY_CLIENT_SECRET, FLIPFLOW_EBAY_REFRESH_TOKEN.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix("FLIPFLOW")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	// Override secrets from env
	if s := os.Getenv("FLIPFLOW_EBAY_CLIENT_SECRET"); s != "" {
		cfg.Ebay.ClientSecret = s
	}
	if s := os.Getenv("FLIPFLOW_EBAY_REFRESH_TOKEN"); s != "" {
		cfg.Ebay.RefreshToken = s
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("database_url", "postgres://localhost:5432/flipflow")
	v.SetDefault("ebay.mode", "mock")
	v.SetDefault("ebay.client_id", "")
	v.SetDefault("ebay.fulfillment_policy_id", "")

	v.SetDefault("fees.base_fee_rate", 0.13)
	v.SetDefault("fees.payment_processing_rate", 0.029)
	v.SetDefault("fees.per_order_fee", 0.30)
	v.SetDefault("fees.min_profit_floor", 5.00)

	v.SetDefault("zombie.days_threshold", 60)
	v.SetDefault("zombie.views_threshold", 10)
	v.SetDefault("zombie.max_cycles", 3)
	v.SetDefault("zombie.resurrection_delay_seconds", 120)

	v.SetDefault("queue.batch_size", 10)
	v.SetDefault("queue.surge_day", "sunday")
	v.SetDefault("queue.surge_start_hour", 20)
	v.SetDefault("queue.surge_end_hour", 22)
	v.SetDefault("queue.surge_timezone", "America/New_York")

	v.SetDefault("promote.ad_rate", 1.5)
	v.SetDefault("promote.duration_days", 14)

	v.SetDefault("offers.tiers", "0:5,14:10,30:15,45:20")
	v.SetDefault("offers.auto_accept_threshold", 0.90)
	v.SetDefault("offers.counter_threshold", 0.75)
	v.SetDefault("offers.counter_percent", 0.95)
	v.SetDefault("offers.poll_interval_hours", 1)

	v.SetDefault("reprice.steps", "30:10,60:20,90:35")
	v.SetDefault("relist.cadence_days", 45)
	v.SetDefault("relist.views_threshold", 15)

	v.SetDefault("purgatory_sale_percent", 30.0)
	v.SetDefault("photo_shuffle_days_no_views", 14)
	v.SetDefault("str_threshold", 0.4)
	v.SetDefault("pulse.day_of_month", 1)

	v.SetDefault("api.enabled", true)
	v.SetDefault("api.port", 8080)
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "text")
}

// Validate checks all required fields and value ranges.
func (c *Config) Validate() error {
	switch c.Ebay.Mode {
	case "mock", "sandbox", "production":
	default:
		return fmt.Errorf("ebay.mode must be one of: mock, sandbox, production")
	}
	if c.Ebay.Mode != "mock" {
		if c.Ebay.ClientID == "" || c.Ebay.ClientSecret == "" {
			return fmt.Errorf("ebay.client_id and ebay.client_secret are required for mode %q", c.Ebay.Mode)
		}
		if c.Ebay.RefreshToken == "" {
			return fmt.Errorf("ebay.refresh_token is required for mode %q (set FLIPFLOW_EBAY_REFRESH_TOKEN)", c.Ebay.Mode)
		}
	}
	if c.Fees.BaseFeeRate < 0 || c.Fees.BaseFeeRate >= 1 {
		return fmt.Errorf("fees.base_fee_rate must be in [0, 1)")
	}
	if c.Fees.PaymentProcessingRate < 0 || c.Fees.PaymentProcessingRate >= 1 {
		return fmt.Errorf("fees.payment_processing_rate must be in [0, 1)")
	}
	if c.Zombie.DaysThreshold <= 0 || c.Zombie.ViewsThreshold <= 0 {
		return fmt.Errorf("zombie thresholds must be > 0")
	}
	if c.Zombie.MaxCycles <= 0 {
		return fmt.Errorf("zombie.max_cycles must be > 0")
	}
	if c.Queue.BatchSize <= 0 {
		return fmt.Errorf("queue.batch_size must be > 0")
	}
	if c.Queue.SurgeStartHour < 0 || c.Queue.SurgeStartHour > 23 ||
		c.Queue.SurgeEndHour < 0 || c.Queue.SurgeEndHour > 24 ||
		c.Queue.SurgeStartHour >= c.Queue.SurgeEndHour {
		return fmt.Errorf("queue surge window hours are out of range")
	}
	if c.STRThreshold < 0 || c.STRThreshold > 1 {
		return fmt.Errorf("str_threshold must be in [0, 1]")
	}
	if _, err := c.RepriceSteps(); err != nil {
		return fmt.Errorf("reprice.steps: %w", err)
	}
	if _, err := c.OfferTiers(); err != nil {
		return fmt.Errorf("offers.tiers: %w", err)
	}
	return nil
}

// RepriceSteps parses the markdown ladder from config.
func (c *Config) RepriceSteps() (types.StepLadder, error) {
	return types.ParseStepLadder(c.Reprice.Steps)
}

// OfferTiers parses the outbound discount ladder from config.
func (c *Config) OfferTiers() (types.StepLadder, error) {
	return types.ParseStepLadder(c.Offers.Tiers)
}

// PerOrderFee returns the flat per-order fee as money.
func (c *Config) PerOrderFee() decimal.Decimal {
	return decimal.NewFromFloat(c.Fees.PerOrderFee)
}

// MinProfitFloor returns the profit floor as money.
func (c *Config) MinProfitFloor() decimal.Decimal {
	return decimal.NewFromFloat(c.Fees.MinProfitFloor)
}
