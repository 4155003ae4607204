package config

import (
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Artifacts ArtifactsConfig `yaml:"artifacts"`
	History   HistoryConfig   `yaml:"history"`
	Cache     CacheConfig     `yaml:"cache"`
}

type ServerConfig struct {
	Addr        string   `yaml:"addr"`         // HTTP Listen Address (e.g. :8080)
	CORSOrigins []string `yaml:"cors_origins"` // empty allows any origin
}

type ArtifactsConfig struct {
	Dataset      string `yaml:"dataset"` // raw CSV, browse only
	Cleaned      string `yaml:"cleaned"` // cleaned CSV, brands and schema
	Pipeline     string `yaml:"pipeline"`
	KNN          string `yaml:"knn"`
	RandomForest string `yaml:"random_forest"`
}

type HistoryConfig struct {
	Enabled bool   `yaml:"enabled"`
	Driver  string `yaml:"driver"` // sqlite | postgres
	DSN     string `yaml:"dsn"`
}

type CacheConfig struct {
	Size int `yaml:"size"` // 0 disables the prediction cache
}

func defaults() *Config {
	return &Config{
		Server: ServerConfig{
			Addr: ":8080",
		},
		Artifacts: ArtifactsConfig{
			Dataset:      "data/dataset.csv",
			Cleaned:      "data/dataset_cleaned.csv",
			Pipeline:     "artifacts/pipeline.json",
			KNN:          "artifacts/knn.json",
			RandomForest: "artifacts/rf.json",
		},
		History: HistoryConfig{
			Enabled: true,
			Driver:  "sqlite",
			DSN:     "laptop_history.db",
		},
		Cache: CacheConfig{
			Size: 1024,
		},
	}
}

func Load(configPath string) (*Config, error) {
	cfg := defaults()
	// .env is optional
	_ = godotenv.Load()

	if configPath == "" {
		for _, p := range []string{"configs/laptop.yaml", "laptop.yaml"} {
			data, err := os.ReadFile(p)
			if err == nil {
				if err := yaml.Unmarshal(data, cfg); err != nil {
					return cfg, err
				}
				break
			}
		}
		applyEnv(cfg)
		applyDefaults(cfg)
		return cfg, nil
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return cfg, err
	}

	applyEnv(cfg)
	applyDefaults(cfg)
	return cfg, nil
}

// applyEnv lets LAPTOP_* variables override file values.
func applyEnv(cfg *Config) {
	str := func(key string, dst *string) {
		if v, ok := os.LookupEnv(key); ok && v != "" {
			*dst = v
		}
	}
	str("LAPTOP_ADDR", &cfg.Server.Addr)
	str("LAPTOP_DATASET", &cfg.Artifacts.Dataset)
	str("LAPTOP_CLEANED", &cfg.Artifacts.Cleaned)
	str("LAPTOP_PIPELINE", &cfg.Artifacts.Pipeline)
	str("LAPTOP_KNN", &cfg.Artifacts.KNN)
	str("LAPTOP_RANDOM_FOREST", &cfg.Artifacts.RandomForest)
	str("LAPTOP_HISTORY_DRIVER", &cfg.History.Driver)
	str("LAPTOP_HISTORY_DSN", &cfg.History.DSN)

	if v := os.Getenv("LAPTOP_CORS_ORIGINS"); v != "" {
		var origins []string
		for _, o := range strings.Split(v, ",") {
			if o = strings.TrimSpace(o); o != "" {
				origins = append(origins, o)
			}
		}
		cfg.Server.CORSOrigins = origins
	}
	if v := os.Getenv("LAPTOP_HISTORY_ENABLED"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.History.Enabled = b
		}
	}
	if v := os.Getenv("LAPTOP_CACHE_SIZE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Cache.Size = n
		}
	}
}

func applyDefaults(cfg *Config) {
	if cfg.Server.Addr == "" {
		cfg.Server.Addr = ":8080"
	}
	if cfg.Artifacts.Cleaned == "" {
		cfg.Artifacts.Cleaned = "data/dataset_cleaned.csv"
	}
	if cfg.Artifacts.Pipeline == "" {
		cfg.Artifacts.Pipeline = "artifacts/pipeline.json"
	}
	if cfg.History.Driver == "" {
		cfg.History.Driver = "sqlite"
	}
	if cfg.History.DSN == "" && cfg.History.Driver == "sqlite" {
		cfg.History.DSN = "laptop_history.db"
	}
	if cfg.Cache.Size < 0 {
		cfg.Cache.Size = 0
	}
}
