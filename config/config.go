package config

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	App       AppConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	JWT       JWTConfig
	Cookie    CookieConfig
	Log       LogConfig
	HTTP      HTTPConfig
	Mail      MailConfig
	SendGrid  SendGridConfig
	SMTP      SMTPConfig
	SES       SESConfig
	Storage   StorageConfig
	RateLimit RateLimitConfig
	Slack     SlackConfig
}

type AppConfig struct {
	Name string
	Env  string
	Port string
}

type DatabaseConfig struct {
	URL             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// RedisConfig is optional. An empty Addr keeps revocations and rate limits in memory.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type JWTConfig struct {
	Secret string
	TTL    time.Duration
	Issuer string
	// Ephemeral is set when Secret was generated at startup.
	Ephemeral bool
}

type CookieConfig struct {
	Name   string
	Domain string
	Secure bool
}

type LogConfig struct {
	Level  string // debug, info, warn, error
	Format string // json, console
	Output string // stdout, stderr, or file path
}

type HTTPConfig struct {
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	MaxBodySize  int64
}

// MailConfig selects the outbound transport: sendgrid, smtp, ses or log.
type MailConfig struct {
	Provider  string
	From      string
	FromName  string
	SendDelay time.Duration

	// UnsubscribeURL is linked from every campaign footer when set.
	UnsubscribeURL string
}

type SendGridConfig struct {
	APIKey string
	Host   string
}

type SMTPConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	TLSMode  string // auto, starttls, ssl, none
}

type SESConfig struct {
	Region string
}

type StorageConfig struct {
	Endpoint      string
	Region        string
	Bucket        string
	AccessKey     string
	SecretKey     string
	UsePathStyle  bool
	PublicBaseURL string
	MaxUploadSize int64
}

// Enabled reports whether cover uploads can be stored.
func (s StorageConfig) Enabled() bool {
	return s.Bucket != ""
}

type RateLimitConfig struct {
	LoginRequests int
	LoginWindow   time.Duration
}

type SlackConfig struct {
	WebhookURL string
}

var knownProviders = map[string]bool{"sendgrid": true, "smtp": true, "ses": true, "log": true}

// Load reads configuration with this priority:
// 1. CRM_ prefixed environment variables (CRM_DATABASE_URL, CRM_MAIL_PROVIDER, ...)
// 2. legacy variables (DATABASE_URL, JWT_SECRET, SENDGRID_API_KEY, SLACK_WEBHOOK_URL, PORT)
// 3. config.toml
// 4. built-in defaults
func Load() (*Config, error) {
	// .env is a developer convenience; a missing file is fine.
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("toml")
	v.AddConfigPath(".")
	v.AddConfigPath("/etc/membercrm")

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	v.SetEnvPrefix("CRM")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	cfg := &Config{
		App: AppConfig{
			Name: v.GetString("app.name"),
			Env:  v.GetString("app.env"),
			Port: v.GetString("app.port"),
		},
		Database: DatabaseConfig{
			URL:             v.GetString("database.url"),
			MaxOpenConns:    v.GetInt("database.max_open_conns"),
			MaxIdleConns:    v.GetInt("database.max_idle_conns"),
			ConnMaxLifetime: v.GetDuration("database.conn_max_lifetime"),
		},
		Redis: RedisConfig{
			Addr:     v.GetString("redis.addr"),
			Password: v.GetString("redis.password"),
			DB:       v.GetInt("redis.db"),
		},
		JWT: JWTConfig{
			Secret: v.GetString("jwt.secret"),
			TTL:    v.GetDuration("jwt.ttl"),
			Issuer: v.GetString("jwt.issuer"),
		},
		Cookie: CookieConfig{
			Name:   v.GetString("cookie.name"),
			Domain: v.GetString("cookie.domain"),
			Secure: v.GetBool("cookie.secure"),
		},
		Log: LogConfig{
			Level:  v.GetString("log.level"),
			Format: v.GetString("log.format"),
			Output: v.GetString("log.output"),
		},
		HTTP: HTTPConfig{
			ReadTimeout:  v.GetDuration("http.read_timeout"),
			WriteTimeout: v.GetDuration("http.write_timeout"),
			MaxBodySize:  v.GetInt64("http.max_body_size"),
		},
		Mail: MailConfig{
			Provider:  strings.ToLower(v.GetString("mail.provider")),
			From:      v.GetString("mail.from"),
			FromName:  v.GetString("mail.from_name"),
			SendDelay: v.GetDuration("mail.send_delay"),

			UnsubscribeURL: v.GetString("mail.unsubscribe_url"),
		},
		SendGrid: SendGridConfig{
			APIKey: v.GetString("sendgrid.api_key"),
			Host:   v.GetString("sendgrid.host"),
		},
		SMTP: SMTPConfig{
			Host:     v.GetString("smtp.host"),
			Port:     v.GetInt("smtp.port"),
			User:     v.GetString("smtp.user"),
			Password: v.GetString("smtp.password"),
			TLSMode:  v.GetString("smtp.tls_mode"),
		},
		SES: SESConfig{
			Region: v.GetString("ses.region"),
		},
		Storage: StorageConfig{
			Endpoint:      v.GetString("storage.endpoint"),
			Region:        v.GetString("storage.region"),
			Bucket:        v.GetString("storage.bucket"),
			AccessKey:     v.GetString("storage.access_key"),
			SecretKey:     v.GetString("storage.secret_key"),
			UsePathStyle:  v.GetBool("storage.use_path_style"),
			PublicBaseURL: v.GetString("storage.public_base_url"),
			MaxUploadSize: v.GetInt64("storage.max_upload_size"),
		},
		RateLimit: RateLimitConfig{
			LoginRequests: v.GetInt("rate_limit.login_requests"),
			LoginWindow:   v.GetDuration("rate_limit.login_window"),
		},
		Slack: SlackConfig{
			WebhookURL: v.GetString("slack.webhook_url"),
		},
	}

	applyLegacyEnv(cfg)
	applyDefaults(cfg)

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	if cfg.JWT.Secret == "" {
		secret, err := randomSecret()
		if err != nil {
			return nil, fmt.Errorf("generate jwt secret: %w", err)
		}
		cfg.JWT.Secret = secret
		cfg.JWT.Ephemeral = true
	}

	return cfg, nil
}

// randomSecret returns a per-process signing key. Sessions signed with it
// do not survive a restart.
func randomSecret() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}

// applyLegacyEnv honors the unprefixed variables older deployments already set.
func applyLegacyEnv(cfg *Config) {
	legacy := []struct {
		name   string
		target *string
	}{
		{"DATABASE_URL", &cfg.Database.URL},
		{"JWT_SECRET", &cfg.JWT.Secret},
		{"SENDGRID_API_KEY", &cfg.SendGrid.APIKey},
		{"SLACK_WEBHOOK_URL", &cfg.Slack.WebhookURL},
		{"PORT", &cfg.App.Port},
	}
	for _, l := range legacy {
		if *l.target == "" {
			*l.target = os.Getenv(l.name)
		}
	}
}

func applyDefaults(cfg *Config) {
	if cfg.App.Name == "" {
		cfg.App.Name = "membercrm"
	}
	if cfg.App.Env == "" {
		cfg.App.Env = "development"
	}
	if cfg.App.Port == "" {
		cfg.App.Port = "8080"
	}
	if cfg.Database.MaxOpenConns == 0 {
		cfg.Database.MaxOpenConns = 25
	}
	if cfg.Database.MaxIdleConns == 0 {
		cfg.Database.MaxIdleConns = 5
	}
	if cfg.Database.ConnMaxLifetime == 0 {
		cfg.Database.ConnMaxLifetime = time.Hour
	}
	if cfg.JWT.TTL == 0 {
		cfg.JWT.TTL = 7 * 24 * time.Hour
	}
	if cfg.JWT.Issuer == "" {
		cfg.JWT.Issuer = "membercrm"
	}
	if cfg.Cookie.Name == "" {
		cfg.Cookie.Name = "crm_session"
	}
	if cfg.Mail.UnsubscribeURL == "" && cfg.Mail.From != "" {
		cfg.Mail.UnsubscribeURL = "mailto:" + cfg.Mail.From + "?subject=Unsubscribe"
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "console"
	}
	if cfg.Log.Output == "" {
		cfg.Log.Output = "stdout"
	}
	if cfg.HTTP.ReadTimeout == 0 {
		cfg.HTTP.ReadTimeout = 30 * time.Second
	}
	if cfg.HTTP.WriteTimeout == 0 {
		// bulk sends hold the request open while the loop runs
		cfg.HTTP.WriteTimeout = 10 * time.Minute
	}
	if cfg.HTTP.MaxBodySize == 0 {
		cfg.HTTP.MaxBodySize = 10 << 20
	}
	if cfg.Mail.Provider == "" {
		if cfg.SendGrid.APIKey != "" {
			cfg.Mail.Provider = "sendgrid"
		} else {
			cfg.Mail.Provider = "log"
		}
	}
	if cfg.Mail.FromName == "" {
		cfg.Mail.FromName = "Member CRM"
	}
	if cfg.Mail.SendDelay == 0 {
		cfg.Mail.SendDelay = 350 * time.Millisecond
	}
	if cfg.SMTP.Port == 0 {
		cfg.SMTP.Port = 587
	}
	if cfg.SMTP.TLSMode == "" {
		cfg.SMTP.TLSMode = "auto"
	}
	if cfg.SES.Region == "" {
		cfg.SES.Region = "us-east-1"
	}
	if cfg.Storage.Region == "" {
		cfg.Storage.Region = "us-east-1"
	}
	if cfg.Storage.MaxUploadSize == 0 {
		cfg.Storage.MaxUploadSize = 4 << 20
	}
	if cfg.RateLimit.LoginRequests == 0 {
		cfg.RateLimit.LoginRequests = 5
	}
	if cfg.RateLimit.LoginWindow == 0 {
		cfg.RateLimit.LoginWindow = time.Minute
	}
}

func (c *Config) validate() error {
	if !knownProviders[c.Mail.Provider] {
		return fmt.Errorf("unknown mail provider %q", c.Mail.Provider)
	}
	if c.Mail.SendDelay < 0 {
		return errors.New("mail.send_delay must not be negative")
	}
	if c.Mail.Provider == "sendgrid" && c.SendGrid.APIKey == "" {
		return errors.New("sendgrid.api_key is required for the sendgrid provider")
	}
	if c.Mail.Provider == "smtp" && c.SMTP.Host == "" {
		return errors.New("smtp.host is required for the smtp provider")
	}
	if c.Mail.Provider != "log" && c.Mail.From == "" {
		return errors.New("mail.from is required")
	}
	if c.JWT.Secret == "" && c.App.Env != "development" {
		return fmt.Errorf("jwt.secret is required when app.env is %q", c.App.Env)
	}
	return nil
}

func (c *Config) IsProduction() bool {
	return c.App.Env == "production"
}

func (c *Config) SigningSecret() []byte {
	return []byte(c.JWT.Secret)
}
