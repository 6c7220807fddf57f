// Package config defines the data structures related to configuration and
// includes functions for loading, defaulting and validating it.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"

	"github.com/ARTURPEDROSA1/viverdebitcoin-sub000/internal/calculator"
	"github.com/ARTURPEDROSA1/viverdebitcoin-sub000/internal/dataset"
	"github.com/ARTURPEDROSA1/viverdebitcoin-sub000/internal/pricefeed"
	"github.com/ARTURPEDROSA1/viverdebitcoin-sub000/pkg/constants"
	"github.com/ARTURPEDROSA1/viverdebitcoin-sub000/pkg/convert"
	"github.com/ARTURPEDROSA1/viverdebitcoin-sub000/pkg/projection"
	"github.com/ARTURPEDROSA1/viverdebitcoin-sub000/pkg/validation"
	"github.com/joho/godotenv"
	"github.com/samber/lo"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes environment overrides, e.g. VIVERDEBITCOIN_OUTPUT_FORMAT.
const EnvPrefix = "VIVERDEBITCOIN"

// Configuration holds all configuration for viverdebitcoin.
type Configuration struct {
	Logging      LoggingConfig        `yaml:"logging,omitempty" mapstructure:"logging"`
	Output       OutputConfig         `yaml:"output,omitempty" mapstructure:"output"`
	Data         dataset.Config       `yaml:"data" mapstructure:"data"`
	Rates        RatesConfig          `yaml:"rates" mapstructure:"rates"`
	Feed         pricefeed.Config     `yaml:"feed" mapstructure:"feed"`
	Projection   ProjectionConfig     `yaml:"projection" mapstructure:"projection"`
	Calculations []calculator.Request `yaml:"calculations" mapstructure:"calculations"`
}

// LoggingConfig holds logging configuration options
type LoggingConfig struct {
	Level      string `yaml:"level,omitempty" mapstructure:"level"`           // debug, info, warn, error
	Format     string `yaml:"format,omitempty" mapstructure:"format"`         // json, console
	OutputFile string `yaml:"outputFile,omitempty" mapstructure:"outputFile"` // optional file output
	MaxSizeMB  int    `yaml:"maxSizeMB,omitempty" mapstructure:"maxSizeMB"`
	MaxBackups int    `yaml:"maxBackups,omitempty" mapstructure:"maxBackups"`
	MaxAgeDays int    `yaml:"maxAgeDays,omitempty" mapstructure:"maxAgeDays"`
	Compress   bool   `yaml:"compress,omitempty" mapstructure:"compress"`
}

// OutputConfig holds output format configuration options
type OutputConfig struct {
	Format string `yaml:"format,omitempty" mapstructure:"format"` // pretty, csv, json, xlsx
	File   string `yaml:"file,omitempty" mapstructure:"file"`     // xlsx destination
}

// RatesConfig holds the present-day exchange rates (local currency per USD)
// and optional static BTC prices used when the feed is disabled.
type RatesConfig struct {
	FX  map[string]float64 `yaml:"fx" mapstructure:"fx"`
	BTC map[string]float64 `yaml:"btc,omitempty" mapstructure:"btc"`
}

// ProjectionConfig holds the scenario anchors and the toggleable macro events.
type ProjectionConfig struct {
	Anchors     map[string][]projection.Anchor `yaml:"anchors" mapstructure:"anchors"`
	MacroEvents []projection.MacroEvent        `yaml:"macroEvents,omitempty" mapstructure:"macroEvents"`
}

// LoadEnv loads KEY=value pairs from the given .env files into the process
// environment. Missing files are ignored; existing variables win.
func LoadEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, p := range paths {
		if err := godotenv.Load(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("failed to load %s: %w", p, err)
		}
	}
	return nil
}

// LoadConfiguration takes a file path as input and loads the YAML-formatted
// configuration there. Environment variables prefixed with EnvPrefix
// override scalar keys.
func LoadConfiguration(configPath string) (*Configuration, error) {
	v := viper.New()
	v.SetConfigFile(configPath)
	v.SetConfigType("yml")
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("error reading config file, %s", err)
	}

	var configuration Configuration
	if err := v.Unmarshal(&configuration); err != nil {
		return nil, fmt.Errorf("unable to decode into struct, %s", err)
	}
	// Unmarshal ignores env values for keys absent from the file.
	if f := v.GetString("output.format"); f != "" {
		configuration.Output.Format = f
	}
	if l := v.GetString("logging.level"); l != "" {
		configuration.Logging.Level = l
	}

	configuration.ApplyDefaults()
	return &configuration, nil
}

// ApplyDefaults fills unset options.
func (c *Configuration) ApplyDefaults() {
	if c.Output.Format == "" {
		c.Output.Format = constants.OutputFormatPretty
	}
	if c.Output.File == "" {
		c.Output.File = constants.DefaultXLSXFile
	}
	if c.Data.FloorDate == "" {
		c.Data.FloorDate = constants.DefaultFloorDate
	}
	if c.Feed.DBPath == "" {
		c.Feed.DBPath = constants.DefaultQuoteDB
	}
	c.Feed = c.Feed.WithDefaults()
}

// FXRates returns the static exchange rates keyed by currency. Unsupported
// codes are skipped.
func (c *Configuration) FXRates() map[convert.Currency]float64 {
	out := make(map[convert.Currency]float64, len(c.Rates.FX))
	for code, rate := range c.Rates.FX {
		if cur, err := convert.ParseCurrency(code); err == nil && rate > 0 {
			out[cur] = rate
		}
	}
	return out
}

// StaticRates returns converter rates built only from the configuration.
func (c *Configuration) StaticRates() convert.Rates {
	rates := convert.Rates{BTC: make(map[convert.Currency]convert.LivePrice), FX: c.FXRates()}
	for code, price := range c.Rates.BTC {
		if cur, err := convert.ParseCurrency(code); err == nil && price > 0 {
			rates.BTC[cur] = convert.LivePrice{Value: price, Available: true, Source: "config"}
		}
	}
	return rates
}

// FeedFallback returns the configured last-resort feed prices.
func (c *Configuration) FeedFallback() map[convert.Currency]float64 {
	out := make(map[convert.Currency]float64, len(c.Feed.Fallback))
	for code, price := range c.Feed.Fallback {
		if cur, err := convert.ParseCurrency(code); err == nil {
			out[cur] = price
		}
	}
	return out
}

// AnchorSet returns the validated projection anchors.
func (c *Configuration) AnchorSet() (projection.AnchorSet, error) {
	set := make(projection.AnchorSet, len(c.Projection.Anchors))
	for name, anchors := range c.Projection.Anchors {
		scenario, err := projection.ParseScenario(strings.ToLower(name))
		if err != nil {
			return nil, fmt.Errorf("projection.anchors: %w", err)
		}
		set[scenario] = anchors
	}
	if err := set.Validate(); err != nil {
		return nil, fmt.Errorf("projection.anchors: %w", err)
	}
	return set, nil
}

func calculationInfo(req calculator.Request) validation.CalculationConfig {
	info := validation.CalculationConfig{Name: req.Name, Type: string(req.Type), Active: req.Active}
	switch req.Type {
	case calculator.KindRegret:
		if req.Regret != nil {
			info.HasSection = true
			info.Currency = req.Regret.Currency
			info.StartDate = req.Regret.Date
		}
	case calculator.KindDCA:
		if req.DCA != nil {
			info.HasSection = true
			info.Currency = req.DCA.Currency
			info.StartDate = req.DCA.StartDate
			info.EndDate = req.DCA.EndDate
		}
	case calculator.KindRetirement:
		if req.Retirement != nil {
			info.HasSection = true
			info.Currency = req.Retirement.Currency
			info.MacroEvents = req.Retirement.MacroEvents
		}
	case calculator.KindIncome:
		if req.Income != nil {
			info.HasSection = true
			info.Currency = req.Income.Currency
		}
	case calculator.KindConvert:
		if req.Convert != nil {
			info.HasSection = true
			info.Currency = req.Convert.Currency
		}
	case calculator.KindScenarios:
		info.HasSection = true
		if req.Scenarios != nil {
			info.Currency = req.Scenarios.Currency
			info.MacroEvents = req.Scenarios.MacroEvents
		}
	case calculator.KindHeatmap:
		info.HasSection = true
		if req.Heatmap != nil {
			info.Currency = req.Heatmap.Currency
		}
	default:
		info.HasSection = true
	}
	return info
}

// ValidateConfiguration performs general validation of the configuration and returns warnings
func (c *Configuration) ValidateConfiguration() []string {
	var warnings []string

	if err := validation.ValidateOutputFormat(c.Output.Format); err != nil {
		warnings = append(warnings, err.Error())
	}
	if _, err := c.AnchorSet(); err != nil {
		warnings = append(warnings, fmt.Sprintf("Projection anchors invalid, retirement and scenarios calculations will fail: %v", err))
	}
	for _, req := range c.Calculations {
		if req.Active && !lo.Contains(calculator.Kinds, req.Type) {
			warnings = append(warnings, fmt.Sprintf("Calculation '%s' has unknown type '%s'", req.Name, req.Type))
		}
	}

	currencies := append([]string{string(convert.USD)}, lo.Map(lo.Keys(c.FXRates()), func(cur convert.Currency, _ int) string {
		return string(cur)
	})...)

	validator := validation.ConfigValidator{
		FloorDate:    c.Data.FloorDate,
		Currencies:   currencies,
		MacroEvents:  lo.Map(c.Projection.MacroEvents, func(e projection.MacroEvent, _ int) string { return e.Name }),
		LivePrices:   c.Feed.Enabled || len(c.StaticRates().BTC) > 0,
		Calculations: lo.Map(c.Calculations, func(req calculator.Request, _ int) validation.CalculationConfig { return calculationInfo(req) }),
	}
	return append(warnings, validator.ValidateAll()...)
}
