// internal/common/config/config.go
package config

import "fmt"

// Config is the main application configuration struct.
type Config struct {
	App          AppConfig               `mapstructure:"app"`
	Camunda      CamundaConfig           `mapstructure:"camunda"`
	Database     DatabaseConfig          `mapstructure:"database"`
	Workers      map[string]WorkerConfig `mapstructure:"workers"`
	Lifecycle    LifecycleConfig         `mapstructure:"lifecycle"`
	Pricing      PricingConfig           `mapstructure:"pricing"`
	Translation  TranslationConfig       `mapstructure:"translation"`
	Moderation   ModerationConfig        `mapstructure:"moderation"`
	Integrations IntegrationConfig       `mapstructure:"integrations"`
	Logging      LoggingConfig           `mapstructure:"logging"`
	Registry     RegistryConfig          `mapstructure:"registry"`
}

// --- Core App/Infrastructure Config ---
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Version     string `mapstructure:"version"`
	Environment string `mapstructure:"environment"`
}

type CamundaConfig struct {
	BrokerAddress  string `mapstructure:"broker_address"`
	MaxJobsActive  int    `mapstructure:"max_jobs_active"`
	Timeout        int    `mapstructure:"timeout"`         // milliseconds
	RequestTimeout int    `mapstructure:"request_timeout"` // milliseconds
}

type DatabaseConfig struct {
	Postgres      PostgresConfig      `mapstructure:"postgres"`
	Elasticsearch ElasticsearchConfig `mapstructure:"elasticsearch"`
	Redis         RedisConfig         `mapstructure:"redis"`
}

type PostgresConfig struct {
	Host           string `mapstructure:"host"`
	Port           int    `mapstructure:"port"`
	Database       string `mapstructure:"database"`
	User           string `mapstructure:"user"`
	Password       string `mapstructure:"password"`
	MaxConnections int    `mapstructure:"max_connections"`
	MaxIdle        int    `mapstructure:"max_idle"`
	SSLMode        string `mapstructure:"sslmode"`
}

// GetDSN returns the PostgreSQL connection string
func (p PostgresConfig) GetDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.Database, p.SSLMode,
	)
}

type ElasticsearchConfig struct {
	Addresses  []string `mapstructure:"addresses"`
	Username   string   `mapstructure:"username"`
	Password   string   `mapstructure:"password"`
	SSLEnabled bool     `mapstructure:"ssl_enabled"`
	JobIndex   string   `mapstructure:"job_index"`
}

type RedisConfig struct {
	Address  string `mapstructure:"address"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// WorkerConfig holds the core settings applicable to every worker.
type WorkerConfig struct {
	Enabled       bool `mapstructure:"enabled"`
	MaxJobsActive int  `mapstructure:"max_jobs_active"`
	Timeout       int  `mapstructure:"timeout"`     // milliseconds
	MaxRetries    int  `mapstructure:"max_retries"` // For error handling
}

// --- Specific Configuration Sections ---

// LifecycleConfig carries the engine's policy switches. These replace the
// original system's implicit process-env globals: everything a transition
// needs to decide is constructed from here.
type LifecycleConfig struct {
	// FreeTierWindowDays is the rolling window for the one-post throttle on
	// employers without a subscription.
	FreeTierWindowDays int `mapstructure:"free_tier_window_days"`

	// QueueWhenExhausted records a creation as Queued instead of rejecting it
	// when the employer's counter-mode plan is out of job slots.
	QueueWhenExhausted bool `mapstructure:"queue_when_exhausted"`

	// RepublishLegacyCredit reproduces the historical wallet behavior of
	// crediting one job unit back immediately before the republish re-check.
	// Off by default; kept only for parity testing against the old system.
	RepublishLegacyCredit bool `mapstructure:"republish_legacy_credit"`

	// CommunityMemberCountries lists countries whose community members may
	// post across borders.
	CommunityMemberCountries []string `mapstructure:"community_member_countries"`
}

// PricingConfig controls the rate-card/catalog cache.
type PricingConfig struct {
	CacheTTL int `mapstructure:"cache_ttl"` // seconds
}

// TranslationConfig points at the external translation collaborator.
type TranslationConfig struct {
	BaseURL string `mapstructure:"base_url"`
	APIKey  string `mapstructure:"api_key"`
	Timeout int    `mapstructure:"timeout"` // milliseconds
}

// ModerationConfig controls the profanity screen on job content.
type ModerationConfig struct {
	WordlistPath string `mapstructure:"wordlist_path"`
}

// IntegrationConfig holds settings for CRM, email/push, and other external services.
type IntegrationConfig struct {
	Zoho struct {
		APIKey    string `mapstructure:"api_key"`
		AuthToken string `mapstructure:"oauth_token"`
	} `mapstructure:"zoho"`

	AWS struct {
		Region string `mapstructure:"region"`
		SES    struct {
			Enabled   bool   `mapstructure:"enabled"`
			FromEmail string `mapstructure:"from_email"`
		} `mapstructure:"ses"`
		SNS struct {
			Enabled  bool   `mapstructure:"enabled"`
			TopicARN string `mapstructure:"topic_arn"`
		} `mapstructure:"sns"`
	} `mapstructure:"aws"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	Output string `mapstructure:"output"`
}

// RegistryConfig points at the task registry file consumed by pkg/registry.
type RegistryConfig struct {
	Path string `mapstructure:"path"`
}
