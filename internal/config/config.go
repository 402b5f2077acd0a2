package config

import (
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration. Everything the
// evaluation core consumes is read-only during a cycle; hot reload swaps
// the whole struct between cycles, never mid-cycle.
type Config struct {
	Indicators       []IndicatorConfig  `yaml:"indicators" mapstructure:"indicators"`
	Domains          []DomainConfig     `yaml:"domains" mapstructure:"domains"`
	PairCaps         []PairCapConfig    `yaml:"pair_caps" mapstructure:"pair_caps"`
	CompositeWeights map[string]float64 `yaml:"composite_weights" mapstructure:"composite_weights"`
	Staleness        StalenessConfig    `yaml:"staleness" mapstructure:"staleness"`
	Confirmation     ConfirmationConfig `yaml:"confirmation" mapstructure:"confirmation"`
	Bands            []PhaseBand        `yaml:"bands" mapstructure:"bands"`
	CriticalRules    []CriticalRule     `yaml:"critical_rules" mapstructure:"critical_rules"`
	Actions          map[string][]string `yaml:"actions" mapstructure:"actions"`
	Collect          CollectConfig      `yaml:"collect" mapstructure:"collect"`
	Watch            WatchConfig        `yaml:"watch" mapstructure:"watch"`
	Store            StoreConfig        `yaml:"store" mapstructure:"store"`
	Server           ServerConfig       `yaml:"server" mapstructure:"server"`
	Alert            AlertConfig        `yaml:"alert" mapstructure:"alert"`
	Log              LogConfig          `yaml:"log" mapstructure:"log"`
}

// IndicatorKind selects how an indicator's raw value is classified.
type IndicatorKind string

const (
	KindNumeric    IndicatorKind = "numeric"
	KindEnumerated IndicatorKind = "enum"
)

// IndicatorConfig declares one indicator and its classification thresholds.
// Numeric indicators use Amber/Red cutoffs (higher value is worse; Invert
// flips the axis for higher-is-better series like GDP growth). Enumerated
// indicators match the three code strings exactly.
type IndicatorConfig struct {
	Name   string        `yaml:"name" mapstructure:"name"`
	Kind   IndicatorKind `yaml:"kind" mapstructure:"kind"`
	Amber  float64       `yaml:"amber" mapstructure:"amber"`
	Red    float64       `yaml:"red" mapstructure:"red"`
	Invert bool          `yaml:"invert" mapstructure:"invert"`

	GreenCode string `yaml:"green_code" mapstructure:"green_code"`
	AmberCode string `yaml:"amber_code" mapstructure:"amber_code"`
	RedCode   string `yaml:"red_code" mapstructure:"red_code"`
}

// DomainConfig is a named, weighted grouping of indicators. Critical must
// be a subset of Indicators.
type DomainConfig struct {
	Name       string   `yaml:"name" mapstructure:"name"`
	Weight     float64  `yaml:"weight" mapstructure:"weight"`
	Indicators []string `yaml:"indicators" mapstructure:"indicators"`
	Critical   []string `yaml:"critical" mapstructure:"critical"`
}

// PairCapConfig limits the combined contribution of two correlated
// indicators. Both must be members of Domain.
type PairCapConfig struct {
	Indicators []string `yaml:"indicators" mapstructure:"indicators"`
	Domain     string   `yaml:"domain" mapstructure:"domain"`
	CapFactor  float64  `yaml:"cap_factor" mapstructure:"cap_factor"`
}

// StalenessConfig holds the age limits for color forcing.
type StalenessConfig struct {
	AmberHours float64 `yaml:"amber_hours" mapstructure:"amber_hours"`
	RedHours   float64 `yaml:"red_hours" mapstructure:"red_hours"`
}

// ConfirmationConfig governs consecutive-red confirmation for
// non-critical indicators.
type ConfirmationConfig struct {
	RequiredPolls int `yaml:"required_polls" mapstructure:"required_polls"`
	WindowMinutes int `yaml:"window_minutes" mapstructure:"window_minutes"`
}

// PhaseBand is one row of the ordered target-phase table, evaluated
// low-to-high. A band matches when composite < MaxScore and its gate
// conditions hold, or when one of its standalone triggers fires
// (OrAmbers, OrConfirmedRed).
type PhaseBand struct {
	Phase           float64 `yaml:"phase" mapstructure:"phase"`
	Name            string  `yaml:"name" mapstructure:"name"`
	Headline        string  `yaml:"headline" mapstructure:"headline"`
	MaxScore        float64 `yaml:"max_score" mapstructure:"max_score"`
	RequireNoAmbers bool    `yaml:"require_no_ambers" mapstructure:"require_no_ambers"`
	OrAmbers        int     `yaml:"or_ambers" mapstructure:"or_ambers"`
	OrConfirmedRed  bool    `yaml:"or_confirmed_red" mapstructure:"or_confirmed_red"`
	MinHighDomains  int     `yaml:"min_high_domains" mapstructure:"min_high_domains"`
}

// CriticalRule forces a minimum phase when all named indicators are
// confirmed red, bypassing hysteresis. WindowHours, when positive,
// additionally requires every indicator's red streak to have started
// within that many hours of the others.
type CriticalRule struct {
	Name        string   `yaml:"name" mapstructure:"name"`
	Indicators  []string `yaml:"indicators" mapstructure:"indicators"`
	MinPhase    float64  `yaml:"min_phase" mapstructure:"min_phase"`
	WindowHours float64  `yaml:"window_hours" mapstructure:"window_hours"`
	Bump        *RuleBump `yaml:"bump" mapstructure:"bump"`
}

// RuleBump adds PhaseBump to a rule's minimum phase when a secondary
// indicator's raw value is at least MinValue.
type RuleBump struct {
	Indicator string  `yaml:"indicator" mapstructure:"indicator"`
	MinValue  float64 `yaml:"min_value" mapstructure:"min_value"`
	PhaseBump float64 `yaml:"phase_bump" mapstructure:"phase_bump"`
}

// CollectConfig configures reading sources for the watch loop.
type CollectConfig struct {
	File        string         `yaml:"file" mapstructure:"file"`
	Sources     []SourceConfig `yaml:"sources" mapstructure:"sources"`
	TimeoutSecs int            `yaml:"timeout_secs" mapstructure:"timeout_secs"`
}

// SourceConfig is one HTTP reading source.
type SourceConfig struct {
	Name       string  `yaml:"name" mapstructure:"name"`
	URL        string  `yaml:"url" mapstructure:"url"`
	RatePerSec float64 `yaml:"rate_per_sec" mapstructure:"rate_per_sec"`
	Burst      int     `yaml:"burst" mapstructure:"burst"`
}

// WatchConfig configures the polling loop.
type WatchConfig struct {
	IntervalSecs int `yaml:"interval_secs" mapstructure:"interval_secs"`
}

// StoreConfig configures the persistence backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
	Path        string `yaml:"path" mapstructure:"path"`
}

// ServerConfig configures the status API.
type ServerConfig struct {
	Port int `yaml:"port" mapstructure:"port"`
}

// AlertConfig configures phase-change alert delivery.
type AlertConfig struct {
	WebhookURL string  `yaml:"webhook_url" mapstructure:"webhook_url"`
	MinPhase   float64 `yaml:"min_phase" mapstructure:"min_phase"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// PhaseKey renders a phase value the way the actions table keys it
// ("2.5" keeps its fraction, whole phases drop it).
func PhaseKey(phase float64) string {
	return strconv.FormatFloat(phase, 'f', -1, 64)
}

// ActionsFor returns the recommended action list for a phase, or a
// monitoring fallback when the catalogue has no entry.
func (c *Config) ActionsFor(phase float64) []string {
	if acts, ok := c.Actions[PhaseKey(phase)]; ok {
		return acts
	}
	return []string{"Monitor situation"}
}

// Load reads configuration from file and environment, layered over the
// built-in reference configuration.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("WATCHTOWER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults for the scalar sections. The structured tables (domains,
	// bands, rules, actions) default from Default() below because viper
	// cannot merge slice-of-struct defaults.
	v.SetDefault("staleness.amber_hours", 48.0)
	v.SetDefault("staleness.red_hours", 168.0)
	v.SetDefault("confirmation.required_polls", 2)
	v.SetDefault("confirmation.window_minutes", 60)
	v.SetDefault("collect.timeout_secs", 30)
	v.SetDefault("watch.interval_secs", 3600)
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.path", "watchtower.db")
	v.SetDefault("server.port", 8080)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	applyDefaults(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// applyDefaults fills any structured section the file left empty from the
// reference configuration.
func applyDefaults(cfg *Config) {
	def := Default()
	if len(cfg.Indicators) == 0 {
		cfg.Indicators = def.Indicators
	}
	if len(cfg.Domains) == 0 {
		cfg.Domains = def.Domains
	}
	if len(cfg.PairCaps) == 0 {
		cfg.PairCaps = def.PairCaps
	}
	if len(cfg.CompositeWeights) == 0 {
		cfg.CompositeWeights = def.CompositeWeights
	}
	if len(cfg.Bands) == 0 {
		cfg.Bands = def.Bands
	}
	if len(cfg.CriticalRules) == 0 {
		cfg.CriticalRules = def.CriticalRules
	}
	if len(cfg.Actions) == 0 {
		cfg.Actions = def.Actions
	}
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
