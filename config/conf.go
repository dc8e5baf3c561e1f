// Package config reads the YAML file holding the resolver tunables, the
// taxonomy table and the bypass rules. Secrets and listen addresses come
// from the environment instead (see main).
package config

import (
	"os"
	"time"

	"github.com/go-yaml/yaml"
	"github.com/rs/zerolog/log"
)

type ResolverConfig struct {
	Enabled         *bool   `yaml:"enabled"`
	MinNameLength   int     `yaml:"min_name_length"`
	DailyCap        int     `yaml:"daily_cap"`
	AcceptThreshold float64 `yaml:"accept_threshold"`
	DefaultCategory string  `yaml:"default_category"`
}

type SearchConfig struct {
	Enabled        *bool `yaml:"enabled"`
	ResultCount    int   `yaml:"result_count"`
	TimeoutSeconds int   `yaml:"timeout_seconds"`
}

type ModelConfig struct {
	Enabled       *bool   `yaml:"enabled"`
	MinConfidence float64 `yaml:"min_confidence"`
	CallBudget    int     `yaml:"call_budget"`
}

type TaxonomyEntry struct {
	Category       string   `yaml:"category"`
	CategoryID     string   `yaml:"categoryID,omitempty"`
	BaseConfidence float64  `yaml:"base_confidence"`
	Keywords       []string `yaml:"keywords"`
}

type BypassEntry struct {
	Match      string `yaml:"match"`
	Category   string `yaml:"category"`
	CategoryID string `yaml:"categoryID,omitempty"`
}

type MasterConfig struct {
	Resolver ResolverConfig  `yaml:"resolver"`
	Search   SearchConfig    `yaml:"search"`
	Model    ModelConfig     `yaml:"model"`
	Taxonomy []TaxonomyEntry `yaml:"taxonomy"`
	Bypasses []BypassEntry   `yaml:"bypass"`
}

func InitConfig(file string) *MasterConfig {
	init := MasterConfig{}
	init.getConf(file)
	init.fillDefaults()
	return &init
}

func (c *MasterConfig) getConf(file string) *MasterConfig {
	yamlFile, err := os.ReadFile(file)
	if err != nil {
		log.Warn().Err(err).Str("file", file).Msg("Could not read config file, using defaults")
		return c
	}
	err = yaml.Unmarshal(yamlFile, c)
	if err != nil {
		log.Fatal().Err(err).Str("file", file).Msg("Could not parse config file")
	}
	return c
}

func (c *MasterConfig) fillDefaults() {
	if c.Resolver.MinNameLength <= 0 {
		c.Resolver.MinNameLength = 3
	}
	if c.Resolver.DailyCap <= 0 {
		c.Resolver.DailyCap = 50
	}
	if c.Resolver.AcceptThreshold <= 0 {
		c.Resolver.AcceptThreshold = 0.8
	}
	if c.Resolver.DefaultCategory == "" {
		c.Resolver.DefaultCategory = "Other"
	}
	if c.Search.ResultCount <= 0 {
		c.Search.ResultCount = 5
	}
	if c.Search.TimeoutSeconds <= 0 {
		c.Search.TimeoutSeconds = 8
	}
	if c.Model.MinConfidence <= 0 {
		c.Model.MinConfidence = 0.6
	}
	if c.Model.CallBudget <= 0 {
		c.Model.CallBudget = 500
	}
}

// ResolverEnabled, SearchEnabled and ModelEnabled default to true when the
// config file omits them.
func (c *MasterConfig) ResolverEnabled() bool { return enabled(c.Resolver.Enabled) }
func (c *MasterConfig) SearchEnabled() bool   { return enabled(c.Search.Enabled) }
func (c *MasterConfig) ModelEnabled() bool    { return enabled(c.Model.Enabled) }

// SearchTimeout returns the search stage's hard timeout.
func (c *MasterConfig) SearchTimeout() time.Duration {
	return time.Duration(c.Search.TimeoutSeconds) * time.Second
}

func enabled(b *bool) bool {
	return b == nil || *b
}
