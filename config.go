package inferguard

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config is the top-level guard configuration. Read once at startup, not
// per-request. The zero value plus withDefaults() is a working config.
type Config struct {
	Pools        PoolConfig                  `yaml:"pools"`
	Watchdog     WatchdogConfig              `yaml:"watchdog"`
	HardTokenCap int                         `yaml:"hard_token_cap"`
	SessionLimit int64                       `yaml:"session_token_limit"`
	MaxRetries   int                         `yaml:"max_retries"`
	Capacity     int                         `yaml:"tracker_capacity"`
	Audit        AuditConfig                 `yaml:"audit"`
	Models       ModelConfig                 `yaml:"models"`
	Temperatures map[CognitiveDomain]float64 `yaml:"temperatures"`
}

// PoolConfig sets per-tier admission pool sizes.
type PoolConfig struct {
	Simple   int `yaml:"simple"`
	Complex  int `yaml:"complex"`
	Critical int `yaml:"critical"`
}

// WatchdogConfig sets deadline derivation parameters.
type WatchdogConfig struct {
	BaseSoftCapMS        int64            `yaml:"base_soft_cap_ms"`
	EscalationMultiplier float64          `yaml:"escalation_multiplier"`
	TierMultipliers      map[Tier]float64 `yaml:"tier_multipliers"`
	DefaultBudgetMS      int64            `yaml:"default_budget_ms"`
}

// AuditConfig configures the audit logger.
type AuditConfig struct {
	QueueSize int `yaml:"queue_size"`

	// SigningKey is an optional hex-encoded secp256k1 private key. When
	// set, every audit entry's chain hash is signed.
	SigningKey string `yaml:"signing_key"`
}

// ModelConfig names the models each stage resolves against.
type ModelConfig struct {
	Primary           string `yaml:"primary"`
	Secondary         string `yaml:"secondary"`
	Reasoning         string `yaml:"reasoning"`
	ReasoningFallback string `yaml:"reasoning_fallback"`
}

// DefaultConfig returns the configuration defaults.
func DefaultConfig() Config {
	cfg := Config{}
	cfg.withDefaults()
	return cfg
}

// LoadConfig reads and parses a YAML config file.
// Environment variables in the format ${VAR} are expanded before parsing.
func LoadConfig(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("inferguard: read config: %w", err)
	}

	expanded := os.ExpandEnv(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return Config{}, fmt.Errorf("inferguard: parse config: %w", err)
	}

	cfg.withDefaults()

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func (c *Config) withDefaults() {
	if c.Pools.Simple == 0 {
		c.Pools.Simple = 100
	}
	if c.Pools.Complex == 0 {
		c.Pools.Complex = 40
	}
	if c.Pools.Critical == 0 {
		c.Pools.Critical = 10
	}
	if c.Watchdog.BaseSoftCapMS == 0 {
		c.Watchdog.BaseSoftCapMS = 25000
	}
	if c.Watchdog.EscalationMultiplier == 0 {
		c.Watchdog.EscalationMultiplier = 1.3
	}
	if c.Watchdog.TierMultipliers == nil {
		c.Watchdog.TierMultipliers = map[Tier]float64{
			TierSimple:   1.0,
			TierComplex:  1.4,
			TierCritical: 1.8,
		}
	}
	if c.Watchdog.DefaultBudgetMS == 0 {
		c.Watchdog.DefaultBudgetMS = 60000
	}
	if c.HardTokenCap == 0 {
		c.HardTokenCap = 4096
	}
	if c.SessionLimit == 0 {
		c.SessionLimit = 20000
	}
	if c.MaxRetries == 0 {
		c.MaxRetries = 3
	}
	if c.Capacity == 0 {
		c.Capacity = 10000
	}
	if c.Audit.QueueSize == 0 {
		c.Audit.QueueSize = 1024
	}
	if c.Temperatures == nil {
		c.Temperatures = map[CognitiveDomain]float64{}
	}
}

// Validate checks the config for required fields and consistency.
func (c Config) Validate() error {
	if c.Pools.Simple < 0 || c.Pools.Complex < 0 || c.Pools.Critical < 0 {
		return fmt.Errorf("inferguard: config: pool sizes must be positive")
	}
	if c.Watchdog.BaseSoftCapMS < 0 {
		return fmt.Errorf("inferguard: config: base_soft_cap_ms must be positive")
	}
	for _, tier := range []Tier{TierSimple, TierComplex, TierCritical} {
		mult, ok := c.Watchdog.TierMultipliers[tier]
		if !ok {
			return fmt.Errorf("inferguard: config: missing tier multiplier for %q", tier)
		}
		if mult <= 0 {
			return fmt.Errorf("inferguard: config: tier multiplier for %q must be positive", tier)
		}
	}
	if c.Watchdog.EscalationMultiplier < 1.0 {
		return fmt.Errorf("inferguard: config: escalation_multiplier must be >= 1.0")
	}
	if c.HardTokenCap < 0 {
		return fmt.Errorf("inferguard: config: hard_token_cap must be positive")
	}
	if c.SessionLimit < 0 {
		return fmt.Errorf("inferguard: config: session_token_limit must be positive")
	}
	if c.MaxRetries < 1 {
		return fmt.Errorf("inferguard: config: max_retries must be >= 1")
	}
	if c.Capacity < 1 {
		return fmt.Errorf("inferguard: config: tracker_capacity must be >= 1")
	}
	for domain, temp := range c.Temperatures {
		if temp < 0 || temp > 2 {
			return fmt.Errorf("inferguard: config: temperature for %q out of range [0, 2]", domain)
		}
	}
	return nil
}
