// Package config holds the relay's tuning knobs and environment resolution.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds supervisor and runner timing parameters.
type Config struct {
	MaxJobRuntime          time.Duration // wall-clock ceiling per job
	ProcessCheckInterval   time.Duration // pump loop select timeout and scan tick
	ActivityUpdateInterval time.Duration // min spacing between activity writes
	SessionCacheTTL        time.Duration
	HeartbeatInterval      time.Duration
	StaleCheckInterval     time.Duration // how often stale processing jobs are reaped
	StaleJobThreshold      time.Duration // processing age beyond which a job is interrupted
	MaxParallelProjects    int

	OldJobCleanupEnabled  bool
	OldJobCleanupInterval time.Duration
	OldJobAge             time.Duration
	OldQuestionsAge       time.Duration
	OldLockAge            time.Duration
}

// Default returns the production defaults.
func Default() Config {
	return Config{
		MaxJobRuntime:          30 * time.Minute,
		ProcessCheckInterval:   500 * time.Millisecond,
		ActivityUpdateInterval: 2 * time.Second,
		SessionCacheTTL:        30 * time.Second,
		HeartbeatInterval:      3 * time.Second,
		StaleCheckInterval:     2 * time.Minute,
		StaleJobThreshold:      5 * time.Minute,
		MaxParallelProjects:    4,

		OldJobCleanupEnabled:  true,
		OldJobCleanupInterval: time.Hour,
		OldJobAge:             3 * 24 * time.Hour,
		OldQuestionsAge:       2 * 24 * time.Hour,
		OldLockAge:            24 * time.Hour,
	}
}

// fileConfig is the YAML override schema. All fields are optional; absent
// values keep their defaults. Time values are plain seconds, ages are days.
type fileConfig struct {
	MaxJobRuntimeSeconds     *int  `yaml:"max_job_runtime_seconds"`
	ProcessCheckIntervalMS   *int  `yaml:"process_check_interval_ms"`
	ActivityUpdateSeconds    *int  `yaml:"activity_update_seconds"`
	SessionCacheTTLSeconds   *int  `yaml:"session_cache_ttl_seconds"`
	HeartbeatSeconds         *int  `yaml:"heartbeat_seconds"`
	StaleCheckSeconds        *int  `yaml:"stale_check_seconds"`
	StaleJobThresholdSeconds *int  `yaml:"stale_job_threshold_seconds"`
	MaxParallelProjects      *int  `yaml:"max_parallel_projects"`
	OldJobCleanupEnabled     *bool `yaml:"old_job_cleanup_enabled"`
	OldJobCleanupSeconds     *int  `yaml:"old_job_cleanup_seconds"`
	OldJobAgeDays            *int  `yaml:"old_job_age_days"`
	OldQuestionsAgeDays      *int  `yaml:"old_questions_age_days"`
	OldLockAgeDays           *int  `yaml:"old_lock_age_days"`
}

// Load reads overrides from the given path. If path is empty, tries
// RELAYWATCH_CONFIG, then ~/.relaywatch/relaywatch.yaml. A missing file
// returns the defaults, not an error.
func Load(path string) (Config, error) {
	cfg := Default()

	if path == "" {
		path = os.Getenv("RELAYWATCH_CONFIG")
	}
	if path == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return cfg, nil
		}
		path = filepath.Join(home, ".relaywatch", "relaywatch.yaml")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("read config: %w", err)
	}

	var fc fileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return cfg, fmt.Errorf("parse config: %w", err)
	}

	seconds := func(dst *time.Duration, src *int) {
		if src != nil {
			*dst = time.Duration(*src) * time.Second
		}
	}
	days := func(dst *time.Duration, src *int) {
		if src != nil {
			*dst = time.Duration(*src) * 24 * time.Hour
		}
	}

	seconds(&cfg.MaxJobRuntime, fc.MaxJobRuntimeSeconds)
	if fc.ProcessCheckIntervalMS != nil {
		cfg.ProcessCheckInterval = time.Duration(*fc.ProcessCheckIntervalMS) * time.Millisecond
	}
	seconds(&cfg.ActivityUpdateInterval, fc.ActivityUpdateSeconds)
	seconds(&cfg.SessionCacheTTL, fc.SessionCacheTTLSeconds)
	seconds(&cfg.HeartbeatInterval, fc.HeartbeatSeconds)
	seconds(&cfg.StaleCheckInterval, fc.StaleCheckSeconds)
	seconds(&cfg.StaleJobThreshold, fc.StaleJobThresholdSeconds)
	if fc.MaxParallelProjects != nil {
		cfg.MaxParallelProjects = *fc.MaxParallelProjects
	}
	if fc.OldJobCleanupEnabled != nil {
		cfg.OldJobCleanupEnabled = *fc.OldJobCleanupEnabled
	}
	seconds(&cfg.OldJobCleanupInterval, fc.OldJobCleanupSeconds)
	days(&cfg.OldJobAge, fc.OldJobAgeDays)
	days(&cfg.OldQuestionsAge, fc.OldQuestionsAgeDays)
	days(&cfg.OldLockAge, fc.OldLockAgeDays)

	return cfg, nil
}

// Env holds values read from the process environment and the optional .env
// file next to the relay base directory.
type Env struct {
	RelayUser     string
	RelayPort     string
	NvidiaAPIKey  string
	NvidiaBaseURL string
	OpenAIAPIKey  string
}

// LoadEnv loads baseDir/.env (ignored when absent; existing environment
// variables win) and resolves the relay environment.
func LoadEnv(baseDir string) Env {
	if baseDir != "" {
		// godotenv.Load never overrides variables already set.
		_ = godotenv.Load(filepath.Join(baseDir, ".env"))
	}

	e := Env{
		RelayUser:     os.Getenv("RELAY_USER"),
		RelayPort:     os.Getenv("RELAY_PORT"),
		NvidiaAPIKey:  os.Getenv("NVIDIA_API_KEY"),
		NvidiaBaseURL: os.Getenv("NVIDIA_BASE_URL"),
		OpenAIAPIKey:  os.Getenv("OPENAI_API_KEY"),
	}
	if e.RelayUser == "" {
		e.RelayUser = "axion"
	}
	if e.NvidiaBaseURL == "" {
		e.NvidiaBaseURL = "https://integrate.api.nvidia.com/v1"
	}
	return e
}
