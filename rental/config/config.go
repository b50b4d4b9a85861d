package config

import (
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/kelseyhightower/envconfig"
	"go.uber.org/zap/zapcore"

	"github.com/Astemirdum/rental-service/pkg/kafka"
	"github.com/Astemirdum/rental-service/pkg/logger"
	"github.com/Astemirdum/rental-service/pkg/postgres"
	"github.com/Astemirdum/rental-service/rental/internal/errs"
	"github.com/Astemirdum/rental-service/rental/internal/notify"
)

const (
	StoreMemory   = "memory"
	StorePostgres = "postgres"
)

type HTTPServer struct {
	Host         string        `yaml:"host" envconfig:"RENTAL_HTTP_HOST" default:"0.0.0.0"`
	Port         string        `yaml:"port" envconfig:"RENTAL_HTTP_PORT" default:"8080"`
	ReadTimeout  time.Duration `yaml:"readTimeout" envconfig:"HTTP_READ" default:"10s"`
	WriteTimeout time.Duration
}

// ErrorText carries the human-readable message per stable error code; the
// core never hard-codes these (the original service kept them in
// errorMessages.json).
type ErrorText struct {
	BookNotFound        string `envconfig:"ERR_BOOK_NOT_FOUND" default:"book not found"`
	BookUnavailable     string `envconfig:"ERR_BOOK_UNAVAILABLE" default:"book is not available"`
	UserNotFound        string `envconfig:"ERR_USER_NOT_FOUND" default:"user not found"`
	RentalNotFound      string `envconfig:"ERR_RENTAL_NOT_FOUND" default:"no open rental for this book"`
	BookAlreadyReturned string `envconfig:"ERR_BOOK_ALREADY_RETURNED" default:"book has already been returned"`
}

func (e ErrorText) Messages() errs.Messages {
	return errs.Messages{
		errs.CodeBookNotFound:        e.BookNotFound,
		errs.CodeBookUnavailable:     e.BookUnavailable,
		errs.CodeUserNotFound:        e.UserNotFound,
		errs.CodeRentalNotFound:      e.RentalNotFound,
		errs.CodeBookAlreadyReturned: e.BookAlreadyReturned,
	}
}

type Config struct {
	Server   HTTPServer `yaml:"server"`
	Store    string     `yaml:"store" envconfig:"STORE" default:"memory"`
	Database postgres.DB
	Kafka    kafka.Config
	SMTP     notify.SMTPConfig
	Errors   ErrorText
	Log      logger.Log `yaml:"log"`
}

var (
	once sync.Once
	cfg  *Config
)

// NewConfig reads config from environment.
func NewConfig(ops ...Option) *Config {
	once.Do(func() {
		var config Config
		for _, op := range ops {
			op(&config)
		}
		err := envconfig.Process("", &config)
		if err != nil {
			log.Fatal("NewConfig ", err)
		}
		cfg = &config
		printConfig(cfg)
	})

	return cfg
}

type Option func(*Config)

func WithLogLevel(level zapcore.Level) Option {
	return func(c *Config) {
		c.Log.LogLevel = level
	}
}

func WithWriteTimeout(d time.Duration) Option {
	return func(c *Config) {
		c.Server.WriteTimeout = d
	}
}

func printConfig(cfg *Config) {
	jscfg, _ := json.MarshalIndent(cfg, "", "	") //nolint:errcheck
	fmt.Println(string(jscfg))
}
