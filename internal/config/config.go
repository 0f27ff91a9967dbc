// Package config gathers Herald's settings from the environment.
package config

import (
	"fmt"
	"strings"
	"time"

	"frameworks/herald/internal/agent"
	"frameworks/herald/internal/extract"
	"frameworks/herald/internal/identity"
	"frameworks/herald/internal/runlog"
	"frameworks/herald/internal/taskqueue"
	"frameworks/herald/pkg/config"
	"frameworks/herald/pkg/llm"
	"frameworks/herald/pkg/search"
)

// Config stores environment configuration for the API and the worker.
type Config struct {
	Port        string
	DatabaseURL string
	RedisURL    string
	JWTSecret   string

	QueueName    string
	Workers      int
	JobTimeLimit time.Duration
	FreeLimit    int

	FetchTimeout    time.Duration
	ResearchResults int
	ExtractMode     extract.Mode
	RenderJS        bool
	MediaDir        string

	LLM    llm.Config
	Search search.Config

	FacebookGraphURL  string
	InstagramGraphURL string
	LinkedInAPIURL    string

	KafkaBrokers []string
	RunsTopic    string
}

// Load reads the configuration. Call Validate before using it.
func Load() Config {
	return Config{
		Port:        config.GetEnv("PORT", "18030"),
		DatabaseURL: config.GetEnv("DATABASE_URL", ""),
		RedisURL:    config.GetEnv("REDIS_URL", "redis://localhost:6379/0"),
		JWTSecret:   config.GetEnv("JWT_SECRET", ""),

		QueueName:    config.GetEnv("HERALD_QUEUE", taskqueue.DefaultQueueName),
		Workers:      config.GetEnvInt("HERALD_WORKERS", taskqueue.DefaultWorkers),
		JobTimeLimit: config.GetEnvDuration("HERALD_JOB_TIME_LIMIT", taskqueue.DefaultTimeLimit),
		FreeLimit:    config.GetEnvInt("HERALD_FREE_LIMIT", identity.DefaultFreeLimit),

		FetchTimeout:    config.GetEnvDuration("HERALD_FETCH_TIMEOUT", 10*time.Second),
		ResearchResults: config.GetEnvInt("HERALD_RESEARCH_RESULTS", agent.DefaultResearchResults),
		ExtractMode:     extract.ParseMode(config.GetEnv("HERALD_EXTRACT_MODE", string(extract.ModeSelectors))),
		RenderJS:        config.GetEnvBool("HERALD_RENDER_JS", false),
		MediaDir:        config.GetEnv("HERALD_MEDIA_DIR", agent.DefaultMediaDir),

		LLM:    llm.LoadConfig(),
		Search: search.LoadConfig(),

		FacebookGraphURL:  config.GetEnv("FACEBOOK_GRAPH_URL", ""),
		InstagramGraphURL: config.GetEnv("INSTAGRAM_GRAPH_URL", ""),
		LinkedInAPIURL:    config.GetEnv("LINKEDIN_API_URL", ""),

		KafkaBrokers: config.GetEnvList("KAFKA_BROKERS"),
		RunsTopic:    config.GetEnv("HERALD_RUNS_TOPIC", runlog.DefaultTopic),
	}
}

// Validate reports every missing or unusable setting at once.
func (c Config) Validate() error {
	var problems []string
	if c.DatabaseURL == "" {
		problems = append(problems, "DATABASE_URL is required")
	}
	if c.RedisURL == "" {
		problems = append(problems, "REDIS_URL is required")
	}
	if c.JWTSecret == "" {
		problems = append(problems, "JWT_SECRET is required")
	}
	if c.LLM.Model == "" {
		problems = append(problems, "LLM_MODEL is required")
	}
	if c.Workers <= 0 {
		problems = append(problems, "HERALD_WORKERS must be positive")
	}
	if c.JobTimeLimit <= 0 {
		problems = append(problems, "HERALD_JOB_TIME_LIMIT must be positive")
	}
	if c.FreeLimit < 0 {
		problems = append(problems, "HERALD_FREE_LIMIT must not be negative")
	}
	if c.ResearchResults <= 0 {
		problems = append(problems, "HERALD_RESEARCH_RESULTS must be positive")
	}
	if len(problems) > 0 {
		return fmt.Errorf("invalid configuration: %s", strings.Join(problems, "; "))
	}
	return nil
}
