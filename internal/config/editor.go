package config

import (
	_ "embed"
	"fmt"
	"time"

	"gopkg.in/yaml.v3"
)

//go:embed editor.yaml
var defaultEditorYAML []byte

// EditorConfig holds the timing policy of live editing sessions
type EditorConfig struct {
	AutosaveDelay    time.Duration `yaml:"-"`
	SavedDisplay     time.Duration `yaml:"-"`
	SnapshotInterval time.Duration `yaml:"-"`
	PollInterval     time.Duration `yaml:"-"`
	SaveTimeout      time.Duration `yaml:"-"`
	SessionIdleTTL   time.Duration `yaml:"-"`
	ReapSchedule     string        `yaml:"reap_schedule"`
	ProgressMessages []string      `yaml:"progress_messages"`
	Placeholders     Placeholders  `yaml:"placeholders"`
}

// Placeholders are the fixed in-document messages shown instead of content
type Placeholders struct {
	GenerationFailed      string `yaml:"generation_failed"`
	GenerationStartFailed string `yaml:"generation_start_failed"`
	EmptyReady            string `yaml:"empty_ready"`
	Malformed             string `yaml:"malformed"`
}

// editorFile mirrors editor.yaml; durations are parsed separately so the
// file can use "1s" style strings.
type editorFile struct {
	AutosaveDelay    string `yaml:"autosave_delay"`
	SavedDisplay     string `yaml:"saved_display"`
	SnapshotInterval string `yaml:"snapshot_interval"`
	PollInterval     string `yaml:"poll_interval"`
	SaveTimeout      string `yaml:"save_timeout"`
	SessionIdleTTL   string `yaml:"session_idle_ttl"`
	EditorConfig     `yaml:",inline"`
}

// ParseEditorConfig decodes editor timings from YAML
func ParseEditorConfig(data []byte) (EditorConfig, error) {
	var f editorFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return EditorConfig{}, fmt.Errorf("parse editor config: %w", err)
	}

	cfg := f.EditorConfig
	fields := []struct {
		name string
		raw  string
		dst  *time.Duration
	}{
		{"autosave_delay", f.AutosaveDelay, &cfg.AutosaveDelay},
		{"saved_display", f.SavedDisplay, &cfg.SavedDisplay},
		{"snapshot_interval", f.SnapshotInterval, &cfg.SnapshotInterval},
		{"poll_interval", f.PollInterval, &cfg.PollInterval},
		{"save_timeout", f.SaveTimeout, &cfg.SaveTimeout},
		{"session_idle_ttl", f.SessionIdleTTL, &cfg.SessionIdleTTL},
	}
	for _, field := range fields {
		if field.raw == "" {
			return EditorConfig{}, fmt.Errorf("editor config: %s is required", field.name)
		}
		d, err := time.ParseDuration(field.raw)
		if err != nil {
			return EditorConfig{}, fmt.Errorf("editor config: %s: %w", field.name, err)
		}
		if d <= 0 {
			return EditorConfig{}, fmt.Errorf("editor config: %s must be positive", field.name)
		}
		*field.dst = d
	}

	return cfg, nil
}

// DefaultEditorConfig returns the embedded defaults
func DefaultEditorConfig() EditorConfig {
	cfg, err := ParseEditorConfig(defaultEditorYAML)
	if err != nil {
		// The embedded file is part of the binary; failing here is a build defect.
		panic(err)
	}
	return cfg
}

// LoadEditorConfig returns the embedded defaults with env overrides applied
func LoadEditorConfig() EditorConfig {
	cfg := DefaultEditorConfig()
	cfg.AutosaveDelay = getDurationEnv("AUTOSAVE_DELAY", cfg.AutosaveDelay)
	cfg.SavedDisplay = getDurationEnv("AUTOSAVE_SAVED_DISPLAY", cfg.SavedDisplay)
	cfg.SnapshotInterval = getDurationEnv("SNAPSHOT_INTERVAL", cfg.SnapshotInterval)
	cfg.PollInterval = getDurationEnv("GENERATION_POLL_INTERVAL", cfg.PollInterval)
	cfg.SaveTimeout = getDurationEnv("SAVE_TIMEOUT", cfg.SaveTimeout)
	cfg.SessionIdleTTL = getDurationEnv("SESSION_IDLE_TTL", cfg.SessionIdleTTL)
	cfg.ReapSchedule = getEnv("SESSION_REAP_SCHEDULE", cfg.ReapSchedule)
	return cfg
}
