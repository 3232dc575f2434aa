package config

import (
	stderrors "errors"
	"flag"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment variable the server reads
const EnvPrefix = "SQUARES"

// Config holds the process-level settings. Pool settings that the admin edits
// at runtime live in the settings table instead.
type Config struct {
	Port                     int           `mapstructure:"port" validate:"min=1,max=65535"`
	DBPath                   string        `mapstructure:"db" validate:"required"`
	AdminPassword            string        `mapstructure:"admin_password"`
	LogLevel                 string        `mapstructure:"log_level" validate:"oneof=debug info warn error"`
	LogFormat                string        `mapstructure:"log_format" validate:"oneof=text json"`
	WebhookSecret            string        `mapstructure:"webhook_secret"`
	ScorePollInterval        time.Duration `mapstructure:"score_poll_interval" validate:"min=5s"`
	ReservationSweepInterval time.Duration `mapstructure:"reservation_sweep_interval" validate:"min=1s"`
	NotifyMaxAttempts        int           `mapstructure:"notify_max_attempts" validate:"min=1,max=10"`
	NotifyBackoff            time.Duration `mapstructure:"notify_backoff" validate:"min=0s,max=5m"`
	Email                    EmailConfig   `mapstructure:"email"`
	SMS                      SMSConfig     `mapstructure:"sms"`
}

// EmailConfig configures the HTTP email provider
type EmailConfig struct {
	APIURL string `mapstructure:"api_url" validate:"omitempty,url"`
	APIKey string `mapstructure:"api_key" validate:"required_with=APIURL"`
	From   string `mapstructure:"from" validate:"omitempty,email"`
}

// SMSConfig configures the HTTP SMS provider
type SMSConfig struct {
	APIURL     string `mapstructure:"api_url" validate:"omitempty,url"`
	AccountSID string `mapstructure:"account_sid" validate:"required_with=APIURL"`
	AuthToken  string `mapstructure:"auth_token" validate:"required_with=APIURL"`
	From       string `mapstructure:"from" validate:"omitempty,e164"`
}

// Enabled reports whether email delivery is configured
func (e EmailConfig) Enabled() bool { return e.APIURL != "" }

// Enabled reports whether SMS delivery is configured
func (s SMSConfig) Enabled() bool { return s.APIURL != "" }

// Addr returns the listen address
func (c *Config) Addr() string {
	return fmt.Sprintf(":%d", c.Port)
}

var defaults = map[string]any{
	"port":                       8080,
	"db":                         "squares.db",
	"admin_password":             "",
	"log_level":                  "info",
	"log_format":                 "text",
	"webhook_secret":             "",
	"score_poll_interval":        "30s",
	"reservation_sweep_interval": "1m",
	"notify_max_attempts":        3,
	"notify_backoff":             "2s",
	"email.api_url":              "",
	"email.api_key":              "",
	"email.from":                 "",
	"sms.api_url":                "",
	"sms.account_sid":            "",
	"sms.auth_token":             "",
	"sms.from":                   "",
}

// FlagKeys maps command-line flag names to config keys
var FlagKeys = map[string]string{
	"port":     "port",
	"db":       "db",
	"adminpw":  "admin_password",
	"loglevel": "log_level",
	"logfmt":   "log_format",
}

// Load builds the config from, lowest precedence first: defaults, a config
// file, a .env file, SQUARES_* environment variables, and flags that were set
// explicitly on fs. configFile may be empty, in which case squarespool.{yaml,json,toml}
// is looked up in the working directory and skipped when absent.
func Load(configFile string, flags *flag.FlagSet) (*Config, error) {
	if err := godotenv.Load(); err != nil && !stderrors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to read .env: %w", err)
	}

	v := viper.New()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	} else {
		v.SetConfigName("squarespool")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !stderrors.As(err, &notFound) {
				return nil, fmt.Errorf("failed to read config file: %w", err)
			}
		}
	}

	if flags != nil {
		flags.Visit(func(f *flag.Flag) {
			if key, ok := FlagKeys[f.Name]; ok {
				v.Set(key, f.Value.String())
			}
		})
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the config for values the server cannot start with
func (c *Config) Validate() error {
	validate := validator.New(validator.WithRequiredStructEnabled())
	if err := validate.Struct(c); err != nil {
		var fieldErrs validator.ValidationErrors
		if !stderrors.As(err, &fieldErrs) {
			return fmt.Errorf("invalid config: %w", err)
		}
		msgs := make([]string, 0, len(fieldErrs))
		for _, fe := range fieldErrs {
			msgs = append(msgs, fmt.Sprintf("%s failed %s", fe.Namespace(), fe.Tag()))
		}
		return fmt.Errorf("invalid config: %s", strings.Join(msgs, "; "))
	}
	return nil
}
