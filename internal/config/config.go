// Package config resolves the engine's runtime configuration from
// environment variables and the persisted settings table, the way Hoofy
// layers env defaults under a settings-table override.
package config

import (
	"os"
	"strconv"

	"gopkg.in/yaml.v3"

	"github.com/onecode-dev/continuity-engine/internal/budget"
	"github.com/onecode-dev/continuity-engine/internal/store"
)

// Mode is the engine's top-level operating mode (§3).
type Mode string

const (
	ModeOff     Mode = "off"
	ModePassive Mode = "passive"
	ModeActive  Mode = "active"
)

// Config is the resolved set of engine-wide settings for one Apply or
// RecordRunOutcome call.
type Config struct {
	Mode             Mode
	TokenMode        budget.TokenMode
	Settings         store.Settings
	SnapshotEnabled  bool
	RehydrateEnabled bool
}

// Resolve reads CONTINUITY_MODE (with the legacy ENABLED=1 alias),
// TOKEN_MODE, SNAPSHOT_ENABLED, and REHYDRATE_ENABLED from the
// environment, then lets the persisted settings table override the
// token mode, matching §6: "settings table overrides env".
func Resolve(settings store.Settings) Config {
	cfg := Config{
		Mode:             modeFromEnv(),
		TokenMode:        budget.Normalize(os.Getenv("TOKEN_MODE")),
		Settings:         settings,
		SnapshotEnabled:  boolEnv("SNAPSHOT_ENABLED", true),
		RehydrateEnabled: boolEnv("REHYDRATE_ENABLED", false),
	}
	if settings.TokenMode != "" {
		cfg.TokenMode = budget.Normalize(settings.TokenMode)
	}
	return cfg
}

func modeFromEnv() Mode {
	if boolEnv("ENABLED", false) {
		return ModeActive
	}
	switch Mode(os.Getenv("CONTINUITY_MODE")) {
	case ModePassive:
		return ModePassive
	case ModeActive:
		return ModeActive
	default:
		return ModeOff
	}
}

// FileOverrides is the shape of an optional continuity.yaml sitting at
// the repo root, letting a team commit its own defaults without setting
// environment variables on every machine that runs the dispatcher.
type FileOverrides struct {
	Mode             Mode             `yaml:"mode"`
	TokenMode        budget.TokenMode `yaml:"token_mode"`
	SnapshotEnabled  *bool            `yaml:"snapshot_enabled"`
	RehydrateEnabled *bool            `yaml:"rehydrate_enabled"`
}

// LoadFile reads and parses a continuity.yaml at path. A missing file is
// not an error — it returns a zero FileOverrides, matching the engine's
// fail-soft configuration posture (§7: "unknown enum value -> documented
// default").
func LoadFile(path string) FileOverrides {
	data, err := os.ReadFile(path)
	if err != nil {
		return FileOverrides{}
	}
	var f FileOverrides
	if err := yaml.Unmarshal(data, &f); err != nil {
		return FileOverrides{}
	}
	return f
}

// Apply layers file overrides under the already-resolved Config: env
// values win if set, otherwise the file's value is used, otherwise the
// Resolve default stands.
func (c Config) Apply(f FileOverrides) Config {
	if _, ok := os.LookupEnv("CONTINUITY_MODE"); !ok && f.Mode != "" {
		c.Mode = f.Mode
	}
	if _, ok := os.LookupEnv("TOKEN_MODE"); !ok && f.TokenMode != "" {
		c.TokenMode = budget.Normalize(string(f.TokenMode))
	}
	if _, ok := os.LookupEnv("SNAPSHOT_ENABLED"); !ok && f.SnapshotEnabled != nil {
		c.SnapshotEnabled = *f.SnapshotEnabled
	}
	if _, ok := os.LookupEnv("REHYDRATE_ENABLED"); !ok && f.RehydrateEnabled != nil {
		c.RehydrateEnabled = *f.RehydrateEnabled
	}
	return c
}

func boolEnv(name string, def bool) bool {
	v, ok := os.LookupEnv(name)
	if !ok {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}
