package config

import (
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"adaptive-assessment-service/internal/domain"
)

type Config struct {
	Server struct {
		Port string `yaml:"port"`
	} `yaml:"server"`
	Logging struct {
		// Mode selects the zap preset: "production" (default) or "development".
		Mode string `yaml:"mode"`
	} `yaml:"logging"`
	Redis struct {
		Addr     string `yaml:"addr"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
		TTL      string `yaml:"ttl"`
	} `yaml:"redis"`
	Postgres struct {
		URL string `yaml:"url"`
	} `yaml:"postgres"`
	Items struct {
		TTL string `yaml:"ttl"`
	} `yaml:"items"`
	Mastery struct {
		CacheTTL string `yaml:"cache_ttl"`
	} `yaml:"mastery"`
	// Assessment holds the per-session defaults; requests may override them.
	Assessment domain.SessionConfig `yaml:"assessment"`
	Path       struct {
		ItemsPerConcept        int     `yaml:"items_per_concept"`
		RequiredAccuracy       float64 `yaml:"required_accuracy"`
		CheckpointInterval     int     `yaml:"checkpoint_interval"`
		DefaultStudyMinutes    int     `yaml:"default_study_minutes"`
		PracticeMinutesPerItem int     `yaml:"practice_minutes_per_item"`
		AssessmentMinutes      int     `yaml:"assessment_minutes"`
	} `yaml:"path"`
}

// Load reads YAML config from path.
func Load(path string) (Config, error) {
	cfg := Config{}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// TTLDuration parses a duration string or returns the fallback if empty.
func TTLDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}
	if d, err := time.ParseDuration(raw); err == nil {
		return d
	}
	return fallback
}
