// Package config defines the data structures related to configuration and
// includes functions for loading the config and turning it into formulation
// inputs.
package config

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/iwvelando/tmr-formulator/pkg/constants"
	"github.com/spf13/viper"
)

// Configuration holds all configuration for tmr-formulator.
type Configuration struct {
	Animal       AnimalConfig       `yaml:"animal" mapstructure:"animal"`
	Feeds        []FeedConfig       `yaml:"feeds,omitempty" mapstructure:"feeds"`
	Requirements RequirementsConfig `yaml:"requirements,omitempty" mapstructure:"requirements"`
	Ration       RationConfig       `yaml:"ration,omitempty" mapstructure:"ration"`
	Solver       SolverConfig       `yaml:"solver,omitempty" mapstructure:"solver"`
	Logging      LoggingConfig      `yaml:"logging,omitempty" mapstructure:"logging"`
	Output       OutputConfig       `yaml:"output,omitempty" mapstructure:"output"`
}

// AnimalConfig describes the cow being fed.
type AnimalConfig struct {
	BodyWeightKg float64 `yaml:"bodyWeightKg" mapstructure:"bodyWeightKg"`
	MilkYieldKg  float64 `yaml:"milkYieldKg" mapstructure:"milkYieldKg"`
	DaysInMilk   int     `yaml:"daysInMilk" mapstructure:"daysInMilk"`
	TargetDMIKg  float64 `yaml:"targetDMIKg" mapstructure:"targetDMIKg"`
}

// RequirementsConfig overrides the placeholder requirement densities.
type RequirementsConfig struct {
	CrudeProteinPct *float64 `yaml:"crudeProteinPct,omitempty" mapstructure:"crudeProteinPct"`
	NELPerKgDM      *float64 `yaml:"nelPerKgDM,omitempty" mapstructure:"nelPerKgDM"`
	NDFMinPct       *float64 `yaml:"ndfMinPct,omitempty" mapstructure:"ndfMinPct"`
	NDFMaxPct       *float64 `yaml:"ndfMaxPct,omitempty" mapstructure:"ndfMaxPct"`
	StarchMaxPct    *float64 `yaml:"starchMaxPct,omitempty" mapstructure:"starchMaxPct"`
}

// RationConfig holds formulation options beyond the nutrient requirements.
type RationConfig struct {
	// ForageMinFraction is the share of DMI that must be forage (default 0.20).
	ForageMinFraction *float64 `yaml:"forageMinFraction,omitempty" mapstructure:"forageMinFraction"`
	// SkipDiagnosis turns off the relaxation search on infeasible rations.
	SkipDiagnosis bool `yaml:"skipDiagnosis,omitempty" mapstructure:"skipDiagnosis"`
}

// SolverConfig holds LP solver options.
type SolverConfig struct {
	Timeout   time.Duration `yaml:"timeout,omitempty" mapstructure:"timeout"`
	Tolerance float64       `yaml:"tolerance,omitempty" mapstructure:"tolerance"`
}

// LoggingConfig holds logging configuration options
type LoggingConfig struct {
	Level      string `yaml:"level,omitempty" mapstructure:"level"`           // debug, info, warn, error
	Format     string `yaml:"format,omitempty" mapstructure:"format"`         // json, console
	OutputFile string `yaml:"outputFile,omitempty" mapstructure:"outputFile"` // optional file output
}

// OutputConfig holds output format configuration options
type OutputConfig struct {
	Format string `yaml:"format,omitempty" mapstructure:"format"` // pretty, csv, json
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvPrefix(constants.EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("animal.bodyWeightKg", 650.0)
	v.SetDefault("animal.milkYieldKg", 45.0)
	v.SetDefault("animal.daysInMilk", 75)
	v.SetDefault("animal.targetDMIKg", 31.0)
	v.SetDefault("solver.timeout", fmt.Sprintf("%ds", constants.DefaultSolveTimeoutSeconds))
	v.SetDefault("solver.tolerance", 0.0)
	v.SetDefault("ration.skipDiagnosis", false)
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("output.format", constants.OutputFormatPretty)
	return v
}

// LoadConfiguration takes a file path as input and loads the YAML-formatted
// configuration there. Environment variables prefixed with TMR_ override
// scalar settings, e.g. TMR_ANIMAL_TARGETDMIKG or TMR_SOLVER_TIMEOUT.
func LoadConfiguration(configPath string) (*Configuration, error) {
	v := newViper()
	v.SetConfigFile(configPath)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("error reading config file, %s", err)
	}
	return decode(v)
}

// LoadConfigurationFromReader loads YAML configuration from r.
func LoadConfigurationFromReader(r io.Reader) (*Configuration, error) {
	v := newViper()
	if err := v.ReadConfig(r); err != nil {
		return nil, fmt.Errorf("error reading config data, %s", err)
	}
	return decode(v)
}

func decode(v *viper.Viper) (*Configuration, error) {
	var configuration Configuration
	if err := v.Unmarshal(&configuration); err != nil {
		return nil, fmt.Errorf("unable to decode into struct, %s", err)
	}
	return &configuration, nil
}
