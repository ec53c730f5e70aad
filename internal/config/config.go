package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type AppConfig struct {
	ListenAddr string
	RedisURL   string

	SnapshotTTL time.Duration

	EvalBaseURL   string
	EvalEnabled   bool
	EvalTimeout   time.Duration
	CacheCapacity int

	RobotDelay time.Duration
}

// fileConfig is the optional YAML overlay read before environment
// variables; env always wins so deployments can override a baked file.
type fileConfig struct {
	ListenAddr     string `yaml:"listen_addr"`
	RedisURL       string `yaml:"redis_url"`
	SnapshotTTLSec int    `yaml:"snapshot_ttl_sec"`
	EvalBaseURL    string `yaml:"eval_base_url"`
	EvalEnabled    *bool  `yaml:"eval_enabled"`
	EvalTimeoutMS  int    `yaml:"eval_timeout_ms"`
	CacheCapacity  int    `yaml:"eval_cache_capacity"`
	RobotDelayMS   int    `yaml:"robot_delay_ms"`
}

func Load() (*AppConfig, error) {
	cfg := &AppConfig{
		ListenAddr:    ":8080",
		SnapshotTTL:   24 * time.Hour,
		EvalEnabled:   true,
		EvalTimeout:   5 * time.Second,
		CacheCapacity: 512,
		RobotDelay:    1500 * time.Millisecond,
	}

	if path := strings.TrimSpace(os.Getenv("MATCH_CONFIG_FILE")); path != "" {
		if err := applyFile(cfg, path); err != nil {
			return nil, err
		}
	}

	if v := strings.TrimSpace(os.Getenv("LISTEN_ADDR")); v != "" {
		cfg.ListenAddr = v
	}
	if v := strings.TrimSpace(os.Getenv("REDIS_URL")); v != "" {
		cfg.RedisURL = v
	}
	if v := strings.TrimSpace(os.Getenv("SNAPSHOT_TTL_SEC")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			cfg.SnapshotTTL = time.Duration(n) * time.Second
		}
	}
	if v := strings.TrimSpace(os.Getenv("EVAL_BASE_URL")); v != "" {
		cfg.EvalBaseURL = v
	}
	if v := strings.TrimSpace(os.Getenv("EVAL_ENABLED")); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.EvalEnabled = b
		}
	}
	if v := strings.TrimSpace(os.Getenv("EVAL_TIMEOUT_MS")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.EvalTimeout = time.Duration(n) * time.Millisecond
		}
	}
	if v := strings.TrimSpace(os.Getenv("EVAL_CACHE_CAPACITY")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.CacheCapacity = n
		}
	}
	if v := strings.TrimSpace(os.Getenv("ROBOT_DELAY_MS")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			cfg.RobotDelay = time.Duration(n) * time.Millisecond
		}
	}

	if cfg.RedisURL == "" {
		return nil, errors.New("REDIS_URL is required")
	}
	return cfg, nil
}

func applyFile(cfg *AppConfig, path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	var fc fileConfig
	if err := yaml.Unmarshal(raw, &fc); err != nil {
		return fmt.Errorf("parse config file: %w", err)
	}
	if v := strings.TrimSpace(fc.ListenAddr); v != "" {
		cfg.ListenAddr = v
	}
	if v := strings.TrimSpace(fc.RedisURL); v != "" {
		cfg.RedisURL = v
	}
	if fc.SnapshotTTLSec > 0 {
		cfg.SnapshotTTL = time.Duration(fc.SnapshotTTLSec) * time.Second
	}
	if v := strings.TrimSpace(fc.EvalBaseURL); v != "" {
		cfg.EvalBaseURL = v
	}
	if fc.EvalEnabled != nil {
		cfg.EvalEnabled = *fc.EvalEnabled
	}
	if fc.EvalTimeoutMS > 0 {
		cfg.EvalTimeout = time.Duration(fc.EvalTimeoutMS) * time.Millisecond
	}
	if fc.CacheCapacity > 0 {
		cfg.CacheCapacity = fc.CacheCapacity
	}
	if fc.RobotDelayMS >= 0 && fc.RobotDelayMS != 0 {
		cfg.RobotDelay = time.Duration(fc.RobotDelayMS) * time.Millisecond
	}
	return nil
}
