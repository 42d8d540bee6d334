// Package config loads and validates a workspace's config.toml: the
// flight-level mode, workspace identity/roles, and optional sync settings
// (spec §4.5 "Configuration recovery", §6 "Configuration file", §4.7).
package config

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/BurntSushi/toml"
)

// Mode selects which flight levels a workspace exercises (spec §1, §4.5).
type Mode string

const (
	// ModeFull exercises Vision, Strategy, Initiative, and Task.
	ModeFull Mode = "full"
	// ModeStreamlined drops Strategy; initiatives parent directly off Vision.
	ModeStreamlined Mode = "streamlined"
	// ModeDirect drops Strategy and Initiative; tasks parent off Vision.
	ModeDirect Mode = "direct"
)

func (m Mode) Valid() bool {
	switch m {
	case ModeFull, ModeStreamlined, ModeDirect:
		return true
	default:
		return false
	}
}

// Role is a capability flag controlling which central shared folders a
// workspace may write during a sync cycle (spec §4.7).
type Role string

const (
	RoleDelivery        Role = "delivery"
	RoleStrategyGroup    Role = "strategy_group"
	RoleInitiativeGroup  Role = "initiative_group"
)

func (r Role) Valid() bool {
	switch r {
	case RoleDelivery, RoleStrategyGroup, RoleInitiativeGroup:
		return true
	default:
		return false
	}
}

var (
	ErrMissingPrefix      = errors.New("config: workspace.prefix is required")
	ErrInvalidPrefix      = errors.New("config: workspace.prefix must match [A-Z]{2,8}")
	ErrUnknownRole        = errors.New("config: unknown workspace role")
	ErrUpstreamURLRequired = errors.New("config: sync.upstream_url is required when [sync] is present")
)

// Workspace holds [workspace] section settings.
type Workspace struct {
	Prefix string `toml:"prefix"`
	Roles  []Role `toml:"roles"`
}

// FlightLevels holds [flight_levels] section settings. StrategiesEnabled
// and InitiativesEnabled derive Mode; they are kept as independent toggles
// (rather than Mode itself) because that is the shape historical
// config.toml files on disk use.
type FlightLevels struct {
	StrategiesEnabled   bool `toml:"strategies_enabled"`
	InitiativesEnabled  bool `toml:"initiatives_enabled"`
}

// Sync holds the optional [sync] section. Absent (Config.HasSync == false)
// means single-workspace mode (spec §4.7 step 1).
type Sync struct {
	UpstreamURL       string `toml:"upstream_url"`
	LastSyncedCommit  string `toml:"last_synced_commit"`
}

// Config is the parsed, validated contents of a workspace's config.toml.
type Config struct {
	Workspace    Workspace    `toml:"workspace"`
	FlightLevels FlightLevels `toml:"flight_levels"`
	Sync         Sync         `toml:"sync"`

	// HasSync reports whether the [sync] table was present in the source
	// document at all, distinct from Sync being its zero value.
	HasSync bool `toml:"-"`
}

// Mode derives the flight-level mode from the two enable flags.
func (c *Config) Mode() Mode {
	switch {
	case c.FlightLevels.StrategiesEnabled && c.FlightLevels.InitiativesEnabled:
		return ModeFull
	case !c.FlightLevels.StrategiesEnabled && c.FlightLevels.InitiativesEnabled:
		return ModeStreamlined
	default:
		return ModeDirect
	}
}

// HasRole reports whether the workspace has been granted role.
func (c *Config) HasRole(role Role) bool {
	for _, r := range c.Workspace.Roles {
		if r == role {
			return true
		}
	}
	return false
}

// Default returns a new full-mode config for prefix with the delivery role,
// the shape Initialization writes for a freshly created workspace (spec
// §4.5 "Initialization").
func Default(prefix string) *Config {
	return &Config{
		Workspace: Workspace{
			Prefix: prefix,
			Roles:  []Role{RoleDelivery},
		},
		FlightLevels: FlightLevels{
			StrategiesEnabled:  true,
			InitiativesEnabled: true,
		},
	}
}

// Parse decodes and validates TOML source into a Config.
func Parse(source []byte) (*Config, error) {
	cfg := &Config{}
	meta, err := toml.NewDecoder(bytes.NewReader(source)).Decode(cfg)
	if err != nil {
		return nil, fmt.Errorf("config: decode: %w", err)
	}
	if len(cfg.Workspace.Roles) == 0 {
		cfg.Workspace.Roles = []Role{RoleDelivery}
	}
	cfg.HasSync = meta.IsDefined("sync")

	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks structural invariants config.toml must satisfy.
func Validate(cfg *Config) error {
	if cfg.Workspace.Prefix == "" {
		return ErrMissingPrefix
	}
	if !prefixPattern(cfg.Workspace.Prefix) {
		return ErrInvalidPrefix
	}
	for _, r := range cfg.Workspace.Roles {
		if !r.Valid() {
			return fmt.Errorf("%w: %q", ErrUnknownRole, r)
		}
	}
	if cfg.HasSync && cfg.Sync.UpstreamURL == "" {
		return ErrUpstreamURLRequired
	}
	return nil
}

func prefixPattern(prefix string) bool {
	if len(prefix) < 2 || len(prefix) > 8 {
		return false
	}
	for _, r := range prefix {
		if r < 'A' || r > 'Z' {
			return false
		}
	}
	return true
}

// Marshal renders cfg as TOML text, the form written to config.toml.
func Marshal(cfg *Config) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString("[workspace]\n")
	fmt.Fprintf(&buf, "prefix = %q\n", cfg.Workspace.Prefix)
	buf.WriteString("roles = [")
	for i, r := range cfg.Workspace.Roles {
		if i > 0 {
			buf.WriteString(", ")
		}
		fmt.Fprintf(&buf, "%q", r)
	}
	buf.WriteString("]\n\n")

	buf.WriteString("[flight_levels]\n")
	fmt.Fprintf(&buf, "strategies_enabled = %t\n", cfg.FlightLevels.StrategiesEnabled)
	fmt.Fprintf(&buf, "initiatives_enabled = %t\n", cfg.FlightLevels.InitiativesEnabled)

	if cfg.HasSync || cfg.Sync.UpstreamURL != "" {
		buf.WriteString("\n[sync]\n")
		fmt.Fprintf(&buf, "upstream_url = %q\n", cfg.Sync.UpstreamURL)
		fmt.Fprintf(&buf, "last_synced_commit = %q\n", cfg.Sync.LastSyncedCommit)
	}
	return buf.Bytes(), nil
}
