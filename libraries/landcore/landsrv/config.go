// Copyright 2026 Dolthub, Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package landsrv

import (
	"fmt"
	"os"
	"regexp"
	"strings"

	"gopkg.in/yaml.v2"

	"github.com/dolthub/landd/libraries/landcore/bookmarks"
	"github.com/dolthub/landd/libraries/landcore/pushrebase"
	"github.com/dolthub/landd/libraries/landcore/skiplist"
)

const (
	DefaultHost = "localhost"
	DefaultPort = 2470

	StorageModeMemory = "memory"
	StorageModeMySQL  = "mysql"
)

// ListenerYAMLConfig holds the network settings for the landing service.
type ListenerYAMLConfig struct {
	HostStr    *string `yaml:"host,omitempty"`
	PortNumber *int    `yaml:"port,omitempty"`
}

// StorageYAMLConfig selects where bookmarks live. Mode "memory" keeps them
// in process; "mysql" stores them in the database named by the DSN.
type StorageYAMLConfig struct {
	Mode *string `yaml:"mode,omitempty"`
	DSN  *string `yaml:"dsn,omitempty"`
}

// BookmarkYAMLConfig overrides landing policies for bookmarks whose name
// matches Pattern. The first matching entry wins; unset fields fall through
// to the defaults.
type BookmarkYAMLConfig struct {
	Pattern *string `yaml:"pattern"`

	OnlyFastForward     *bool `yaml:"only_fast_forward,omitempty"`
	BlockMerges         *bool `yaml:"block_merges,omitempty"`
	ForbidP2RootRebases *bool `yaml:"forbid_p2_root_rebases,omitempty"`
	RewriteDates        *bool `yaml:"rewrite_dates,omitempty"`
	CasefoldingCheck    *bool `yaml:"casefolding_check,omitempty"`
	MaxRebaseAttempts   *int  `yaml:"max_rebase_attempts,omitempty"`
	RecursionLimit      *int  `yaml:"recursion_limit,omitempty"`
}

// YAMLConfig is the on-disk configuration of the landing service.
type YAMLConfig struct {
	LogLevelStr *string `yaml:"log_level,omitempty"`

	ListenerConfig ListenerYAMLConfig `yaml:"listener"`
	StorageConfig  StorageYAMLConfig  `yaml:"storage"`

	// ScratchPattern widens the scratch bookmark namespace; empty keeps
	// the default "scratch/" prefix.
	ScratchPattern *string `yaml:"scratch_pattern,omitempty"`

	// IndexDepth bounds how much history each background indexing pass
	// takes in.
	IndexDepth *uint64 `yaml:"index_depth,omitempty"`

	MetricsLabels map[string]string `yaml:"metrics_labels"`

	Bookmarks []BookmarkYAMLConfig `yaml:"bookmarks"`
}

// NewYamlConfig parses raw YAML into a config, rejecting unknown fields.
func NewYamlConfig(data []byte) (*YAMLConfig, error) {
	var cfg YAMLConfig
	err := yaml.UnmarshalStrict(data, &cfg)
	if cfg.LogLevelStr != nil {
		loglevel := strings.ToLower(*cfg.LogLevelStr)
		cfg.LogLevelStr = &loglevel
	}
	return &cfg, err
}

// YamlConfigFromFile loads the service config at path.
func YamlConfigFromFile(path string) (*YAMLConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file '%s': %w", path, err)
	}

	cfg, err := NewYamlConfig(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse config file '%s': %w", path, err)
	}
	return cfg, nil
}

func (cfg *YAMLConfig) Host() string {
	if cfg.ListenerConfig.HostStr == nil {
		return DefaultHost
	}
	return *cfg.ListenerConfig.HostStr
}

func (cfg *YAMLConfig) Port() int {
	if cfg.ListenerConfig.PortNumber == nil {
		return DefaultPort
	}
	return *cfg.ListenerConfig.PortNumber
}

func (cfg *YAMLConfig) LogLevel() string {
	if cfg.LogLevelStr == nil {
		return "info"
	}
	return *cfg.LogLevelStr
}

func (cfg *YAMLConfig) StorageMode() string {
	if cfg.StorageConfig.Mode == nil {
		return StorageModeMemory
	}
	return *cfg.StorageConfig.Mode
}

func (cfg *YAMLConfig) StorageDSN() string {
	if cfg.StorageConfig.DSN == nil {
		return ""
	}
	return *cfg.StorageConfig.DSN
}

func (cfg *YAMLConfig) ScratchPatternStr() string {
	if cfg.ScratchPattern == nil {
		return ""
	}
	return *cfg.ScratchPattern
}

func (cfg *YAMLConfig) IndexDepthVal() uint64 {
	if cfg.IndexDepth == nil {
		return skiplist.DefaultIndexDepth
	}
	return *cfg.IndexDepth
}

// Validate checks the parts of the config that can fail later: storage mode,
// bookmark patterns, and the scratch namespace pattern.
func (cfg *YAMLConfig) Validate() error {
	switch cfg.StorageMode() {
	case StorageModeMemory:
	case StorageModeMySQL:
		if cfg.StorageDSN() == "" {
			return fmt.Errorf("storage mode %q requires a dsn", StorageModeMySQL)
		}
	default:
		return fmt.Errorf("unknown storage mode %q", cfg.StorageMode())
	}

	if _, err := bookmarks.NewNamespace(cfg.ScratchPatternStr()); err != nil {
		return err
	}

	_, err := cfg.CompilePolicies()
	return err
}

// bookmarkRule is a compiled Bookmarks entry.
type bookmarkRule struct {
	pattern *regexp.Regexp
	cfg     BookmarkYAMLConfig
}

// Policies answers per-bookmark landing and move policy questions. Rules are
// consulted in config order; the first whose pattern matches wins.
type Policies struct {
	rules []bookmarkRule
}

// CompilePolicies compiles the Bookmarks section into a matcher.
func (cfg *YAMLConfig) CompilePolicies() (*Policies, error) {
	rules := make([]bookmarkRule, 0, len(cfg.Bookmarks))
	for i, bc := range cfg.Bookmarks {
		if bc.Pattern == nil || *bc.Pattern == "" {
			return nil, fmt.Errorf("bookmarks[%d]: pattern is required", i)
		}
		re, err := regexp.Compile(*bc.Pattern)
		if err != nil {
			return nil, fmt.Errorf("bookmarks[%d]: bad pattern %q: %w", i, *bc.Pattern, err)
		}
		rules = append(rules, bookmarkRule{pattern: re, cfg: bc})
	}
	return &Policies{rules: rules}, nil
}

func (p *Policies) match(name bookmarks.Name) *BookmarkYAMLConfig {
	for i := range p.rules {
		if p.rules[i].pattern.MatchString(name.String()) {
			return &p.rules[i].cfg
		}
	}
	return nil
}

// FlagsFor resolves the landing flags for a bookmark, layering the first
// matching rule over the defaults.
func (p *Policies) FlagsFor(name bookmarks.Name) pushrebase.Flags {
	flags := pushrebase.DefaultFlags()
	bc := p.match(name)
	if bc == nil {
		return flags
	}
	if bc.BlockMerges != nil {
		flags.BlockMerges = *bc.BlockMerges
	}
	if bc.ForbidP2RootRebases != nil {
		flags.ForbidP2RootRebases = *bc.ForbidP2RootRebases
	}
	if bc.RewriteDates != nil {
		flags.RewriteDates = *bc.RewriteDates
	}
	if bc.CasefoldingCheck != nil {
		flags.CasefoldingCheck = *bc.CasefoldingCheck
	}
	if bc.MaxRebaseAttempts != nil {
		flags.MaxRebaseAttempts = *bc.MaxRebaseAttempts
	}
	if bc.RecursionLimit != nil {
		flags.RecursionLimit = *bc.RecursionLimit
	}
	return flags
}

// MovePolicyFor resolves the bookmark move policy, usable as a
// bookmarks.PolicyFor.
func (p *Policies) MovePolicyFor(name bookmarks.Name) bookmarks.Policy {
	bc := p.match(name)
	if bc == nil || bc.OnlyFastForward == nil {
		return bookmarks.Policy{}
	}
	return bookmarks.Policy{FastForwardOnly: *bc.OnlyFastForward}
}
