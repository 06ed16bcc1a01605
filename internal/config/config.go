package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"
	_ "time/tzdata"

	toml "github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"github.com/five82/pase/internal/backend"
)

// Config holds the station settings pase needs to reach the backend.
type Config struct {
	APIURL        string
	NATSURL       string
	SubjectPrefix string
	Timezone      string
	Location      *time.Location
	LogPath       string
	LogLevel      string
	ReportDir     string
	Actor         string
}

const (
	defaultConfigPath    = "~/.config/pase/config.toml"
	defaultNATSURL       = "nats://127.0.0.1:4222"
	defaultSubjectPrefix = "cocina"
	defaultTimezone      = "America/Lima"
	defaultLogPath       = "~/.local/share/pase/pase.log"
	defaultLogLevel      = "info"
	defaultReportDir     = "~/.local/share/pase/reportes"
	defaultActor         = "cocina"
)

type rawConfig struct {
	APIURL        string `toml:"api_url" yaml:"api_url"`
	NATSURL       string `toml:"nats_url" yaml:"nats_url"`
	SubjectPrefix string `toml:"subject_prefix" yaml:"subject_prefix"`
	Timezone      string `toml:"timezone" yaml:"timezone"`
	LogPath       string `toml:"log_path" yaml:"log_path"`
	LogLevel      string `toml:"log_level" yaml:"log_level"`
	ReportDir     string `toml:"report_dir" yaml:"report_dir"`
	Actor         string `toml:"actor" yaml:"actor"`
}

// Default returns the configuration used when no file exists.
func Default() Config {
	cfg, _ := fromRaw(rawConfig{})
	return cfg
}

// Load locates and parses the config file, falling back to defaults when it is
// missing. Files ending in .yaml or .yml are parsed as YAML, anything else as
// TOML.
func Load(path string) (Config, error) {
	resolved, err := resolvePath(path)
	if err != nil {
		return Config{}, err
	}

	file, err := os.Open(resolved)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fromRaw(rawConfig{})
		}
		return Config{}, fmt.Errorf("open config: %w", err)
	}
	defer file.Close()

	bytes, err := io.ReadAll(file)
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}

	var raw rawConfig
	switch strings.ToLower(filepath.Ext(resolved)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(bytes, &raw)
	default:
		err = toml.Unmarshal(bytes, &raw)
	}
	if err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}
	return fromRaw(raw)
}

func fromRaw(raw rawConfig) (Config, error) {
	cfg := Config{
		APIURL:        backend.NormalizeAPIURL(raw.APIURL),
		NATSURL:       orDefault(raw.NATSURL, defaultNATSURL),
		SubjectPrefix: strings.Trim(orDefault(raw.SubjectPrefix, defaultSubjectPrefix), "."),
		Timezone:      orDefault(raw.Timezone, defaultTimezone),
		LogPath:       mustExpand(orDefault(raw.LogPath, defaultLogPath)),
		LogLevel:      strings.ToLower(orDefault(raw.LogLevel, defaultLogLevel)),
		ReportDir:     mustExpand(orDefault(raw.ReportDir, defaultReportDir)),
		Actor:         orDefault(raw.Actor, defaultActor),
	}
	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		return Config{}, fmt.Errorf("load timezone %q: %w", cfg.Timezone, err)
	}
	cfg.Location = loc
	return cfg, nil
}

// BusinessDay formats now as the YYYY-MM-DD day in the configured zone.
func (c Config) BusinessDay(now time.Time) string {
	loc := c.Location
	if loc == nil {
		loc = time.Local
	}
	return now.In(loc).Format(time.DateOnly)
}

// ExpandPath resolves a user-supplied path, expanding a leading tilde.
func ExpandPath(path string) (string, error) {
	return expandPath(path)
}

func orDefault(v, def string) string {
	if trimmed := strings.TrimSpace(v); trimmed != "" {
		return trimmed
	}
	return def
}

func resolvePath(path string) (string, error) {
	if strings.TrimSpace(path) == "" {
		return expandPath(defaultConfigPath)
	}
	return expandPath(path)
}

func mustExpand(path string) string {
	expanded, err := expandPath(path)
	if err != nil {
		return path
	}
	return expanded
}

func expandPath(path string) (string, error) {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return "", fmt.Errorf("path is empty")
	}
	if strings.HasPrefix(trimmed, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home dir: %w", err)
		}
		trimmed = filepath.Join(home, strings.TrimPrefix(trimmed, "~"))
	}
	return filepath.Abs(trimmed)
}
