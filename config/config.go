package config

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

var ErrInvalidConfig = errors.New("config: invalid configuration")

type Config struct {
	Port        string `env:"PORT" envDefault:"8080"`
	AppEnv      string `env:"APP_ENV" envDefault:"development"`
	CORSOrigin  string `env:"CORS_ORIGIN" envDefault:"http://localhost:3000"`
	FrontendURL string `env:"FRONTEND_URL" envDefault:"http://localhost:3000"`
	PublicURL   string `env:"PUBLIC_URL" envDefault:"http://localhost:8080"`

	DBURL string `env:"DB_URL,required"`

	JWTSecret string        `env:"JWT_SECRET,required"`
	JWTTTL    time.Duration `env:"JWT_TTL" envDefault:"24h"`

	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"text"`

	BetaEnabled bool `env:"BETA_ENABLED" envDefault:"true"`

	OIDC    OIDC    `envPrefix:"OIDC_"`
	Mail    Mail    `envPrefix:"MAIL_"`
	Storage Storage `envPrefix:"STORAGE_"`
	Device  Device  `envPrefix:"DEVICE_"`
	Backend Backend `envPrefix:"BACKEND_"`
	Stripe  Stripe  `envPrefix:"STRIPE_"`
}

// OIDC is optional; the provider routes are only registered when Issuer is set.
type OIDC struct {
	Issuer           string   `env:"ISSUER"`
	ClientID         string   `env:"CLIENT_ID"`
	ClientSecret     string   `env:"CLIENT_SECRET"`
	RedirectURL      string   `env:"REDIRECT_URL"`
	FrontendRedirect string   `env:"FRONTEND_REDIRECT"`
	Scopes           []string `env:"SCOPES" envDefault:"openid,email,profile,offline_access"`
}

func (o OIDC) Enabled() bool { return o.Issuer != "" }

type Mail struct {
	Driver string `env:"DRIVER" envDefault:"dev"` // smtp|postmark|dev
	From   string `env:"FROM" envDefault:"no-reply@mailforge.local"`

	SMTPHost     string `env:"SMTP_HOST"`
	SMTPPort     int    `env:"SMTP_PORT" envDefault:"587"`
	SMTPUser     string `env:"SMTP_USER"`
	SMTPPassword string `env:"SMTP_PASSWORD"`

	PostmarkServerToken  string `env:"POSTMARK_SERVER_TOKEN"`
	PostmarkAccountToken string `env:"POSTMARK_ACCOUNT_TOKEN"`
	SupportEmail         string `env:"SUPPORT_EMAIL"`

	DevDir string `env:"DEV_DIR" envDefault:"./tmp/emails"`
}

type Storage struct {
	Driver       string        `env:"DRIVER" envDefault:"s3"` // s3|minio
	Bucket       string        `env:"BUCKET"`
	Region       string        `env:"REGION" envDefault:"us-east-1"`
	Endpoint     string        `env:"ENDPOINT"`
	AccessKey    string        `env:"ACCESS_KEY"`
	SecretKey    string        `env:"SECRET_KEY"`
	UsePathStyle bool          `env:"USE_PATH_STYLE"`
	UseSSL       bool          `env:"USE_SSL" envDefault:"true"`
	UploadTTL    time.Duration `env:"UPLOAD_TTL" envDefault:"15m"`
	PublicURL    string        `env:"PUBLIC_URL"`
}

type Device struct {
	Driver   string        `env:"DRIVER" envDefault:"memory"` // memory|redis
	RedisURL string        `env:"REDIS_URL"`
	TTL      time.Duration `env:"TTL" envDefault:"5m"`
}

type Backend struct {
	BaseURL string        `env:"BASE_URL,required"`
	Timeout time.Duration `env:"TIMEOUT" envDefault:"30s"`
}

type Stripe struct {
	SecretKey     string `env:"SECRET_KEY"`
	WebhookSecret string `env:"WEBHOOK_SECRET"`
}

func (s Stripe) Enabled() bool { return s.SecretKey != "" }

// Load reads a .env file when present and parses the environment.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil {
		slog.Debug("no .env file found, using system environment variables")
	}

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, errors.Join(ErrInvalidConfig, err)
	}
	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func MustLoad() Config {
	cfg, err := Load()
	if err != nil {
		panic(err)
	}
	return cfg
}

func (c Config) validate() error {
	switch c.Mail.Driver {
	case "smtp":
		if c.Mail.SMTPHost == "" {
			return fmt.Errorf("%w: MAIL_SMTP_HOST is required for the smtp driver", ErrInvalidConfig)
		}
	case "postmark", "dev":
	default:
		return fmt.Errorf("%w: unknown MAIL_DRIVER %q", ErrInvalidConfig, c.Mail.Driver)
	}

	switch c.Storage.Driver {
	case "s3", "minio":
	default:
		return fmt.Errorf("%w: unknown STORAGE_DRIVER %q", ErrInvalidConfig, c.Storage.Driver)
	}

	switch c.Device.Driver {
	case "memory":
	case "redis":
		if c.Device.RedisURL == "" {
			return fmt.Errorf("%w: DEVICE_REDIS_URL is required for the redis driver", ErrInvalidConfig)
		}
	default:
		return fmt.Errorf("%w: unknown DEVICE_DRIVER %q", ErrInvalidConfig, c.Device.Driver)
	}

	if c.OIDC.Enabled() && (c.OIDC.ClientID == "" || c.OIDC.RedirectURL == "") {
		return fmt.Errorf("%w: OIDC_CLIENT_ID and OIDC_REDIRECT_URL are required with OIDC_ISSUER", ErrInvalidConfig)
	}
	return nil
}
