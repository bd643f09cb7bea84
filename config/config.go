package config

import (
	"errors"
	"os"
	"path/filepath"
	"strconv"

	"github.com/CIDgravity/snakelet"
	"github.com/joho/godotenv"
)

// config structure
type Config struct {
	API     APIConfig     `mapstructure:"API"`
	Github  GithubConfig  `mapstructure:"GITHUB"`
	Tasks   TasksConfig   `mapstructure:"TASKS"`
	Search  SearchConfig  `mapstructure:"SEARCH"`
	Compare CompareConfig `mapstructure:"COMPARE"`
	Cache   CacheConfig   `mapstructure:"CACHE"`
	Logs    LogsConfig    `mapstructure:"LOGS"`
}

type APIConfig struct {
	ListenPort string `mapstructure:"ListenPort"`
}

type GithubConfig struct {
	Token string `mapstructure:"Token"` // can be overridden with GITHUB_TOKEN
}

type TasksConfig struct {
	MaxParallelTasksAllowed int `mapstructure:"MaxParallelTasksAllowed"`
}

type SearchConfig struct {
	DefaultPerPage       int    `mapstructure:"DefaultPerPage"`
	OnlyPublic           bool   `mapstructure:"OnlyPublic"`
	GoodFirstIssueLabel  string `mapstructure:"GoodFirstIssueLabel"`
	EnrichmentTimeoutSec int    `mapstructure:"EnrichmentTimeoutSec"` // 0 = wait for every lookup
}

type CompareConfig struct {
	MaxRepositories int `mapstructure:"MaxRepositories"`
}

type CacheConfig struct {
	Enabled    bool   `mapstructure:"Enabled"`
	Address    string `mapstructure:"Address"` // can be overridden with REDIS_ADDR
	Password   string `mapstructure:"Password"`
	DB         int    `mapstructure:"DB"`
	TTLMinutes int    `mapstructure:"TTLMinutes"`
}

type LogsConfig struct {
	Level            string `mapstructure:"Level"` // error | warn | info | debug - case insensitive
	OutputLogsAsJSON bool   `mapstructure:"OutputLogsAsJSON"`
}

var ErrConfigFileNotFound = errors.New("config file not found, using default values")

// Load read the config file over the default values, then apply environment overrides.
// A missing config file is not an error, ErrConfigFileNotFound is returned with the defaults
func Load() (*Config, error) {
	// .env is optional, variables already set in the environment take precedence
	_ = godotenv.Load()

	cfg := GetDefault()

	configFilePath, err := findConfigFile()
	if err != nil {
		applyEnv(cfg)
		return cfg, err
	}

	if _, err = snakelet.InitAndLoad(cfg, configFilePath); err != nil {
		return nil, err
	}

	applyEnv(cfg)
	return cfg, nil
}

// findConfigFile look for config/config.toml next to the binary, then in the working directory
func findConfigFile() (string, error) {
	dir, err := filepath.Abs(filepath.Dir(os.Args[0]))
	if err != nil {
		return "", err
	}

	candidates := []string{
		filepath.Join(dir, "config", "config.toml"),
		filepath.Join("config", "config.toml"),
	}

	for _, candidate := range candidates {
		if _, err := os.Stat(candidate); err == nil {
			return candidate, nil
		}
	}

	return "", ErrConfigFileNotFound
}

// applyEnv override secrets and deployment specific values from the environment
func applyEnv(cfg *Config) {
	if token := os.Getenv("GITHUB_TOKEN"); token != "" {
		cfg.Github.Token = token
	}

	if addr := os.Getenv("REDIS_ADDR"); addr != "" {
		cfg.Cache.Address = addr
	}

	if port := os.Getenv("PORT"); port != "" {
		if _, err := strconv.Atoi(port); err == nil {
			cfg.API.ListenPort = port
		}
	}
}

// GetDefault
func GetDefault() *Config {
	return &Config{
		API: APIConfig{
			ListenPort: "5000",
		},
		Tasks: TasksConfig{
			MaxParallelTasksAllowed: 8,
		},
		Search: SearchConfig{
			DefaultPerPage:       30,
			OnlyPublic:           true,
			GoodFirstIssueLabel:  "good first issue",
			EnrichmentTimeoutSec: 0,
		},
		Compare: CompareConfig{
			MaxRepositories: 4,
		},
		Cache: CacheConfig{
			Enabled:    false,
			Address:    "localhost:6379",
			TTLMinutes: 30,
		},
		Logs: LogsConfig{
			Level:            "debug",
			OutputLogsAsJSON: false,
		},
	}
}
