package config

import (
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"
)

const (
	StorageDriverPostgres = "postgres"
	StorageDriverSQLite   = "sqlite"
)

type Config struct {
	Env        string `yaml:"env" env:"ENV" env-default:"local"`
	HTTPServer `yaml:"http_server"`
	Reddit     `yaml:"reddit"`
	Session    `yaml:"session"`
	Tokens     `yaml:"tokens"`
	Storage    `yaml:"storage"`
	Postgres   `yaml:"postgres"`
	Redis      `yaml:"redis"`
	RabbitMQ   `yaml:"rabbitmq"`
	Schedule   `yaml:"schedule"`
}

type HTTPServer struct {
	Address     string        `yaml:"address" env:"HTTP_ADDRESS" env-default:"localhost:8080"`
	Timeout     time.Duration `yaml:"timeout" env-default:"10s"`
	IdleTimeout time.Duration `yaml:"idle_timeout" env-default:"60s"`
}

type Reddit struct {
	ClientID     string        `yaml:"client_id" env:"REDDIT_CLIENT_ID" env-required:"true"`
	ClientSecret string        `yaml:"client_secret" env:"REDDIT_CLIENT_SECRET" env-required:"true"`
	RedirectURL  string        `yaml:"redirect_url" env-default:"http://localhost:8080/info"`
	AuthURL      string        `yaml:"auth_url" env-default:"https://www.reddit.com/api/v1/authorize"`
	TokenURL     string        `yaml:"token_url" env-default:"https://www.reddit.com/api/v1/access_token"`
	APIBaseURL   string        `yaml:"api_base_url" env-default:"https://oauth.reddit.com"`
	UserAgent    string        `yaml:"user_agent" env-default:"link_scheduler/1.0"`
	Scopes       []string      `yaml:"scopes" env-default:"identity,submit"`
	Timeout      time.Duration `yaml:"timeout" env-default:"15s"`
}

type Session struct {
	Secret       string        `yaml:"secret" env:"SESSION_SECRET" env-required:"true"`
	TTL          time.Duration `yaml:"ttl" env-default:"24h"`
	CookieName   string        `yaml:"cookie_name" env-default:"link_scheduler_session"`
	SecureCookie bool          `yaml:"secure_cookie" env-default:"false"`
}

type Tokens struct {
	EncryptionKey string `yaml:"encryption_key" env:"TOKEN_ENCRYPTION_KEY" env-required:"true"`
}

type Storage struct {
	Driver     string `yaml:"driver" env-default:"postgres"`
	SQLitePath string `yaml:"sqlite_path" env-default:"./data/link_scheduler.db"`
}

type Postgres struct {
	Host     string `yaml:"host" env-default:"postgres"`
	Port     int    `yaml:"port" env-default:"5432"`
	User     string `yaml:"user" env:"POSTGRES_USER"`
	Password string `yaml:"password" env:"POSTGRES_PASSWORD"`
	DBName   string `yaml:"dbname" env:"POSTGRES_DB"`
	SSLMode  string `yaml:"sslmode" env-default:"disable"`
}

type Redis struct {
	Address  string        `yaml:"address" env:"REDIS_ADDRESS" env-default:"localhost:6379"`
	Password string        `yaml:"password" env:"REDIS_PASSWORD"`
	DB       int           `yaml:"db" env-default:"0"`
	StateTTL time.Duration `yaml:"state_ttl" env-default:"10m"`
}

// RabbitMQ is optional: post events are not published when URL is empty.
type RabbitMQ struct {
	URL       string `yaml:"url" env:"RABBITMQ_URL"`
	QueueName string `yaml:"queue_name" env-default:"post_events"`
}

type Schedule struct {
	DateLayout string `yaml:"date_layout" env-default:"2006-01-02 15:04"`
	Timezone   string `yaml:"timezone" env-default:"Local"`
}

func MustLoad(configPath string) *Config {
	// .env не обязателен
	_ = godotenv.Load()

	if envPath := os.Getenv("CONFIG_PATH"); envPath != "" {
		configPath = envPath
	}

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		panic("Config file does not exist: " + configPath)
	}

	var cfg Config

	if err := cleanenv.ReadConfig(configPath, &cfg); err != nil {
		panic("Failed to read config: " + err.Error())
	}

	return &cfg
}

// Location resolves Schedule.Timezone.
func (s Schedule) Location() (*time.Location, error) {
	return time.LoadLocation(s.Timezone)
}
