// Package config loads service configuration from the environment. Every knob
// has a working default so the server can boot with nothing but a JWT secret.
package config

import (
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Port        string `mapstructure:"port"`
	MongoURI    string `mapstructure:"mongodb_uri"`
	DBName      string `mapstructure:"db_name"`
	JWTSecret   string `mapstructure:"jwt_secret"`
	FrontendURL string `mapstructure:"frontend_url"`

	RAG RAGConfig `mapstructure:",squash"`
}

// RAGConfig tunes the gateway to the document-retrieval service. The defaults
// mirror the service's historical behavior; override them per deployment.
type RAGConfig struct {
	BaseURL        string        `mapstructure:"rag_service_url"`
	ForwardTimeout time.Duration `mapstructure:"rag_forward_timeout"`
	RetryMax       int           `mapstructure:"rag_retry_max"`
	RetryBackoff   time.Duration `mapstructure:"rag_retry_backoff"`
	HealthInterval time.Duration `mapstructure:"rag_health_interval"`
	ProbeTimeout   time.Duration `mapstructure:"rag_probe_timeout"`
}

func Load() (*Config, error) {
	v := viper.New()
	v.AutomaticEnv()

	for _, key := range []string{
		"port", "mongodb_uri", "db_name", "jwt_secret", "frontend_url",
		"rag_service_url", "rag_forward_timeout", "rag_retry_max",
		"rag_retry_backoff", "rag_health_interval", "rag_probe_timeout",
	} {
		if err := v.BindEnv(key); err != nil {
			return nil, err
		}
	}

	v.SetDefault("port", "5000")
	v.SetDefault("db_name", "legal_assistant")
	v.SetDefault("rag_service_url", "http://localhost:8000")
	v.SetDefault("rag_forward_timeout", "70s")
	v.SetDefault("rag_retry_max", 2)
	v.SetDefault("rag_retry_backoff", "500ms")
	v.SetDefault("rag_health_interval", "10s")
	v.SetDefault("rag_probe_timeout", "2s")

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}
