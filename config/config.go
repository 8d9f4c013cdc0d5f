package config

import (
	"log"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

const configPathEnv = "NEWSRELAY_CONFIG"

// Config holds every setting the service reads at startup.
type Config struct {
	Port        string         `yaml:"port"`
	FrontendURL string         `yaml:"frontendUrl"`
	Database    DatabaseConfig `yaml:"database"`
	Redis       RedisConfig    `yaml:"redis"`
	S3          S3Config       `yaml:"s3"`
	Kafka       KafkaConfig    `yaml:"kafka"`
	LLM         LLMConfig      `yaml:"llm"`
	Platforms   Platforms      `yaml:"platforms"`

	// RefreshSchedule is the cron expression for proactive token refresh.
	RefreshSchedule string `yaml:"refreshSchedule"`
}

// DatabaseConfig describes the Postgres article store.
type DatabaseConfig struct {
	URL   string `yaml:"url"`
	Table string `yaml:"table"`
}

// RedisConfig describes the optional settings store.
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

// S3Config enables the media mirror when Bucket is set.
type S3Config struct {
	Bucket       string `yaml:"bucket"`
	Region       string `yaml:"region"`
	Profile      string `yaml:"profile"`
	Prefix       string `yaml:"prefix"`
	UsePathStyle bool   `yaml:"usePathStyle"`
}

// KafkaConfig configures the publish-request consumer.
type KafkaConfig struct {
	Brokers []string `yaml:"brokers"`
	Topic   string   `yaml:"topic"`
	GroupID string   `yaml:"groupId"`
}

// LLMConfig selects the completion provider for rewrites.
type LLMConfig struct {
	Provider       string `yaml:"provider"` // "openai" or "anthropic"
	OpenAIKey      string `yaml:"openaiApiKey"`
	OpenAIModel    string `yaml:"openaiModel"`
	AnthropicKey   string `yaml:"anthropicApiKey"`
	AnthropicModel string `yaml:"anthropicModel"`
}

// Platforms groups the per-platform secrets.
type Platforms struct {
	CMS       CMSConfig       `yaml:"cms"`
	Facebook  FacebookConfig  `yaml:"facebook"`
	Instagram InstagramConfig `yaml:"instagram"`
	Threads   ThreadsConfig   `yaml:"threads"`
	Pixnet    PixnetConfig    `yaml:"pixnet"`
}

// CMSConfig holds WordPress application-password credentials.
type CMSConfig struct {
	BaseURL     string `yaml:"baseUrl"`
	Username    string `yaml:"username"`
	AppPassword string `yaml:"appPassword"`
}

// FacebookConfig holds the page token. PageID defaults to "me".
type FacebookConfig struct {
	PageID          string `yaml:"pageId"`
	PageAccessToken string `yaml:"pageAccessToken"`
	BaseURL         string `yaml:"baseUrl"`
}

// InstagramConfig holds the business account token. AppID/AppSecret are only
// needed to refresh the token.
type InstagramConfig struct {
	UserID      string `yaml:"userId"`
	AccessToken string `yaml:"accessToken"`
	AppID       string `yaml:"appId"`
	AppSecret   string `yaml:"appSecret"`
	BaseURL     string `yaml:"baseUrl"`
}

// ThreadsConfig holds the Threads user token.
type ThreadsConfig struct {
	UserID      string `yaml:"userId"`
	AccessToken string `yaml:"accessToken"`
	AppSecret   string `yaml:"appSecret"`
	BaseURL     string `yaml:"baseUrl"`
}

// PixnetConfig holds both OAuth1 and OAuth2 material for PIXNET. Username is
// only used to build post links the API does not return.
type PixnetConfig struct {
	ClientKey         string `yaml:"clientKey"`
	ClientSecret      string `yaml:"clientSecret"`
	AccessToken       string `yaml:"accessToken"`
	AccessTokenSecret string `yaml:"accessTokenSecret"`
	Username          string `yaml:"username"`
	BaseURL           string `yaml:"baseUrl"`
}

// Load reads the optional YAML file named by NEWSRELAY_CONFIG and applies
// environment overrides on top of the defaults.
func Load() Config {
	cfg := defaultConfig()

	if path := os.Getenv(configPathEnv); path != "" {
		if raw, err := os.ReadFile(path); err != nil {
			log.Printf("config: cannot read %s: %v (falling back to defaults)", path, err)
		} else if err := yaml.Unmarshal(raw, &cfg); err != nil {
			log.Printf("config: cannot parse %s: %v (falling back to defaults)", path, err)
			cfg = defaultConfig()
		}
	}

	cfg.applyEnvOverrides()
	cfg.applyDefaults()
	return cfg
}

func defaultConfig() Config {
	return Config{
		Port:            "8080",
		Database:        DatabaseConfig{Table: DefaultArticleTable},
		Kafka:           KafkaConfig{Topic: "publish-requests", GroupID: "newsrelay-publisher"},
		LLM:             LLMConfig{Provider: "openai", OpenAIModel: "gpt-5-nano"},
		RefreshSchedule: DefaultRefreshSchedule,
	}
}

func (c *Config) applyEnvOverrides() {
	setString(&c.Port, "PORT")
	setString(&c.FrontendURL, "FRONTEND_URL")
	setString(&c.RefreshSchedule, "TOKEN_REFRESH_CRON")

	setString(&c.Database.URL, "DATABASE_URL")
	setString(&c.Database.Table, "DATABASE_TABLE")

	setString(&c.Redis.Addr, "REDIS_ADDR")
	setString(&c.Redis.Password, "REDIS_PASS")
	if v := os.Getenv("REDIS_DB"); v != "" {
		if db, err := strconv.Atoi(v); err == nil {
			c.Redis.DB = db
		}
	}

	setString(&c.S3.Bucket, "S3_BUCKET")
	setString(&c.S3.Region, "S3_REGION")
	setString(&c.S3.Profile, "S3_PROFILE")
	setString(&c.S3.Prefix, "S3_PREFIX")
	if v := os.Getenv("S3_USE_PATH_STYLE"); v != "" {
		c.S3.UsePathStyle = strings.EqualFold(strings.TrimSpace(v), "true")
	}

	if v := os.Getenv("KAFKA_BOOTSTRAP_SERVERS"); v != "" {
		c.Kafka.Brokers = splitList(v)
	}
	setString(&c.Kafka.Topic, "KAFKA_TOPIC")
	setString(&c.Kafka.GroupID, "KAFKA_GROUP_ID")

	setString(&c.LLM.Provider, "LLM_PROVIDER")
	setString(&c.LLM.OpenAIKey, "OPENAI_API_KEY")
	setString(&c.LLM.OpenAIModel, "OPENAI_MODEL")
	setString(&c.LLM.AnthropicKey, "ANTHROPIC_API_KEY")
	setString(&c.LLM.AnthropicModel, "ANTHROPIC_MODEL")

	p := &c.Platforms
	setString(&p.CMS.BaseURL, "WP_BASE_URL")
	setString(&p.CMS.Username, "WP_USERNAME")
	setString(&p.CMS.AppPassword, "WP_APP_PASSWORD")

	setString(&p.Facebook.PageID, "FACEBOOK_PAGE_ID")
	setString(&p.Facebook.PageAccessToken, "FACEBOOK_PAGE_ACCESS_TOKEN")

	setString(&p.Instagram.UserID, "INSTAGRAM_USER_ID")
	setString(&p.Instagram.AccessToken, "INSTAGRAM_ACCESS_TOKEN")
	setString(&p.Instagram.AppID, "INSTAGRAM_APP_ID")
	setString(&p.Instagram.AppSecret, "INSTAGRAM_APP_SECRET")

	setString(&p.Threads.UserID, "THREADS_USER_ID")
	setString(&p.Threads.AccessToken, "THREADS_ACCESS_TOKEN")
	setString(&p.Threads.AppSecret, "THREADS_APP_SECRET")

	setString(&p.Pixnet.ClientKey, "PIXNET_CLIENT_KEY")
	setString(&p.Pixnet.ClientSecret, "PIXNET_CLIENT_SECRET")
	setString(&p.Pixnet.AccessToken, "PIXNET_ACCESS_TOKEN")
	setString(&p.Pixnet.AccessTokenSecret, "PIXNET_ACCESS_TOKEN_SECRET")
	setString(&p.Pixnet.Username, "PIXNET_USERNAME")
}

func (c *Config) applyDefaults() {
	if c.Database.Table == "" {
		c.Database.Table = DefaultArticleTable
	}
	if c.RefreshSchedule == "" {
		c.RefreshSchedule = DefaultRefreshSchedule
	}
	if c.S3.Prefix != "" {
		c.S3.Prefix = strings.Trim(c.S3.Prefix, "/") + "/"
	}
	c.Platforms.CMS.BaseURL = strings.TrimRight(c.Platforms.CMS.BaseURL, "/")
	if c.Platforms.Facebook.BaseURL == "" {
		c.Platforms.Facebook.BaseURL = GraphAPIBaseURL
	}
	if c.Platforms.Instagram.BaseURL == "" {
		c.Platforms.Instagram.BaseURL = GraphAPIBaseURL
	}
	if c.Platforms.Threads.BaseURL == "" {
		c.Platforms.Threads.BaseURL = ThreadsAPIBaseURL
	}
	if c.Platforms.Pixnet.BaseURL == "" {
		c.Platforms.Pixnet.BaseURL = PixnetAPIBaseURL
	}
}

// setString overwrites dst with the trimmed env value when it is non-empty.
func setString(dst *string, key string) {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		*dst = v
	}
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
