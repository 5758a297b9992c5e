package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/HK-Bus-ETA/HK-Bus-ETA-sub005/pkg/util"
	"github.com/go-playground/validator/v10"
	iso8601 "github.com/senseyeio/duration"
	"gopkg.in/yaml.v3"
)

const (
	defaultLanguage       = "zh"
	defaultDataDirectory  = "./data"
	defaultStore          = "file"
	defaultDatasetBaseURL = "https://raw.githubusercontent.com/LOOHP/HK-Bus-ETA-WearOS/data/"
	defaultUserAgent      = "Mozilla/5.0"
	defaultHTTPTimeout    = "PT20S"
	defaultChecksumTimout = "PT10S"
	defaultTyphoonTTL     = "PT5M"
	defaultETATimeout     = "PT10S"
	defaultListen         = ":8080"
)

type DatasetConfig struct {
	BaseURL         string `yaml:"baseURL" validate:"required,url"`
	VersionCode     int    `yaml:"versionCode" validate:"gte=0"`
	ChecksumTimeout string `yaml:"checksumTimeout" validate:"required"`
	Gzip            bool   `yaml:"gzip"`
}

type HTTPConfig struct {
	UserAgent string `yaml:"userAgent"`
	Timeout   string `yaml:"timeout" validate:"required"`
}

type TyphoonConfig struct {
	TTL      string `yaml:"ttl" validate:"required"`
	Shared   bool   `yaml:"shared"`
	Disabled bool   `yaml:"disabled"`
}

type ETAConfig struct {
	Timeout               string `yaml:"timeout" validate:"required"`
	BackgroundRestriction string `yaml:"backgroundRestriction" validate:"omitempty,oneof=NONE POWER_SAVE_MODE RESTRICT_BACKGROUND_STATUS LOW_POWER_STANDBY"`
}

type APIConfig struct {
	Listen        string `yaml:"listen" validate:"required"`
	Auth0Domain   string `yaml:"auth0Domain"`
	Auth0Audience string `yaml:"auth0Audience"`
}

type AppConfig struct {
	Language      string        `yaml:"language" validate:"oneof=en zh"`
	DataDirectory string        `yaml:"dataDirectory" validate:"required"`
	Store         string        `yaml:"store" validate:"oneof=file redis mongo"`
	Events        bool          `yaml:"events"`
	Dataset       DatasetConfig `yaml:"dataset" validate:"required"`
	HTTP          HTTPConfig    `yaml:"http" validate:"required"`
	Typhoon       TyphoonConfig `yaml:"typhoon" validate:"required"`
	ETA           ETAConfig     `yaml:"eta" validate:"required"`
	API           APIConfig     `yaml:"api" validate:"required"`
}

func Default() AppConfig {
	return AppConfig{
		Language:      defaultLanguage,
		DataDirectory: defaultDataDirectory,
		Store:         defaultStore,
		Dataset: DatasetConfig{
			BaseURL:         defaultDatasetBaseURL,
			ChecksumTimeout: defaultChecksumTimout,
			Gzip:            true,
		},
		HTTP: HTTPConfig{
			UserAgent: defaultUserAgent,
			Timeout:   defaultHTTPTimeout,
		},
		Typhoon: TyphoonConfig{
			TTL: defaultTyphoonTTL,
		},
		ETA: ETAConfig{
			Timeout:               defaultETATimeout,
			BackgroundRestriction: "NONE",
		},
		API: APIConfig{
			Listen: defaultListen,
		},
	}
}

// Load reads the YAML file at path on top of the defaults, then applies HKBUSETA_ environment overrides.
// A missing file is only an error when the path was given explicitly.
func Load(path string) (AppConfig, error) {
	cfg := Default()

	filePath := path
	if filePath == "" {
		filePath = "config.yml"
	}

	data, err := os.ReadFile(filePath)
	if err != nil {
		if path != "" || !errors.Is(err, os.ErrNotExist) {
			return cfg, err
		}
	} else if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse %s: %w", filePath, err)
	}

	applyEnvironment(&cfg, util.GetEnvironmentVariables())

	if err := validator.New().Struct(cfg); err != nil {
		return cfg, err
	}

	for _, raw := range []string{cfg.Dataset.ChecksumTimeout, cfg.HTTP.Timeout, cfg.Typhoon.TTL, cfg.ETA.Timeout} {
		if _, err := ParseDuration(raw); err != nil {
			return cfg, err
		}
	}

	return cfg, nil
}

func applyEnvironment(cfg *AppConfig, env map[string]string) {
	if env["HKBUSETA_LANGUAGE"] != "" {
		cfg.Language = env["HKBUSETA_LANGUAGE"]
	}
	if env["HKBUSETA_DATA_DIRECTORY"] != "" {
		cfg.DataDirectory = env["HKBUSETA_DATA_DIRECTORY"]
	}
	if env["HKBUSETA_STORE"] != "" {
		cfg.Store = env["HKBUSETA_STORE"]
	}
	if env["HKBUSETA_EVENTS"] == "YES" {
		cfg.Events = true
	}
	if env["HKBUSETA_DATASET_URL"] != "" {
		cfg.Dataset.BaseURL = env["HKBUSETA_DATASET_URL"]
	}
	cfg.Dataset.VersionCode = util.EnvironmentInt(env, "HKBUSETA_VERSION_CODE", cfg.Dataset.VersionCode)
	if env["HKBUSETA_USER_AGENT"] != "" {
		cfg.HTTP.UserAgent = env["HKBUSETA_USER_AGENT"]
	}
	if env["HKBUSETA_TYPHOON_SHARED"] == "YES" {
		cfg.Typhoon.Shared = true
	}
	if env["HKBUSETA_BACKGROUND_RESTRICTION"] != "" {
		cfg.ETA.BackgroundRestriction = env["HKBUSETA_BACKGROUND_RESTRICTION"]
	}
	if env["HKBUSETA_LISTEN"] != "" {
		cfg.API.Listen = env["HKBUSETA_LISTEN"]
	}
	if env["HKBUSETA_AUTH0_DOMAIN"] != "" {
		cfg.API.Auth0Domain = env["HKBUSETA_AUTH0_DOMAIN"]
	}
	if env["HKBUSETA_AUTH0_AUDIENCE"] != "" {
		cfg.API.Auth0Audience = env["HKBUSETA_AUTH0_AUDIENCE"]
	}
}

// ParseDuration converts an ISO-8601 duration such as PT5M into a time.Duration
func ParseDuration(raw string) (time.Duration, error) {
	parsed, err := iso8601.ParseISO8601(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid duration %q: %w", raw, err)
	}

	reference := time.Date(2000, time.January, 1, 0, 0, 0, 0, time.UTC)
	return parsed.Shift(reference).Sub(reference), nil
}

// MustDuration is ParseDuration for values already checked by Load
func MustDuration(raw string, fallback time.Duration) time.Duration {
	d, err := ParseDuration(raw)
	if err != nil {
		return fallback
	}
	return d
}
