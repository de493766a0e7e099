package config

import (
	"io/fs"
	"os"
	"reflect"
	"strings"
	"time"

	"github.com/iancoleman/strcase"
	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	"github.com/pkg/errors"
)

const (
	DatabaseDriverSQLite   = "sqlite"
	DatabaseDriverPostgres = "postgres"
)

const (
	EnvironmentDevelopment = "development"
	EnvironmentTest        = "test"
	EnvironmentProduction  = "production"
)

type Config struct {
	ActivationURL             string        `koanf:"activation_url"`
	CoverDir                  string        `koanf:"cover_dir"`
	DatabaseBusyTimeout       time.Duration `koanf:"database_busy_timeout"`
	DatabaseConnectRetryCount int           `koanf:"database_connect_retry_count"`
	DatabaseConnectRetryDelay time.Duration `koanf:"database_connect_retry_delay"`
	DatabaseDebug             bool          `koanf:"database_debug"`
	DatabaseDriver            string        `koanf:"database_driver"`
	DatabaseFilePath          string        `koanf:"database_file_path"`
	DatabaseMaxRetries        int           `koanf:"database_max_retries"`
	DatabaseURL               string        `koanf:"database_url"`
	Environment               string        `koanf:"environment"`
	JWTExpiry                 time.Duration `koanf:"jwt_expiry"`
	JWTSecret                 string        `koanf:"jwt_secret"`
	MailFrom                  string        `koanf:"mail_from"`
	ServerHost                string        `koanf:"server_host"`
	ServerPort                int           `koanf:"server_port"`
	SMTPHost                  string        `koanf:"smtp_host"`
	SMTPPassword              string        `koanf:"smtp_password"`
	SMTPPort                  int           `koanf:"smtp_port"`
	SMTPUsername              string        `koanf:"smtp_username"`
	WorkerMaxAttempts         int           `koanf:"worker_max_attempts"`
	WorkerPollInterval        time.Duration `koanf:"worker_poll_interval"`
	WorkerProcesses           int           `koanf:"worker_processes"`
}

const (
	configFileENV     = "CONFIG_FILE"
	defaultConfigFile = "/config/booknet.yaml"
	dotenvFile        = ".env"
)

func defaultConfig() *Config {
	return &Config{
		ActivationURL:             "http://localhost:4200/activate-account",
		CoverDir:                  "./tmp/covers",
		DatabaseBusyTimeout:       5 * time.Second,
		DatabaseConnectRetryCount: 5,
		DatabaseConnectRetryDelay: 2 * time.Second,
		DatabaseDriver:            DatabaseDriverSQLite,
		DatabaseMaxRetries:        5,
		Environment:               EnvironmentDevelopment,
		JWTExpiry:                 24 * time.Hour,
		MailFrom:                  "no-reply@booknet.local",
		ServerHost:                "0.0.0.0",
		ServerPort:                8088,
		SMTPPort:                  587,
		WorkerMaxAttempts:         3,
		WorkerPollInterval:        5 * time.Second,
		WorkerProcesses:           2,
	}
}

// New builds the config from defaults, then the YAML config file, then the
// environment (a local .env file is folded into the environment first).
func New() (*Config, error) {
	cfg := defaultConfig()
	k := koanf.New(".")

	configFile := os.Getenv(configFileENV)
	if configFile == "" {
		configFile = defaultConfigFile
	}
	if _, err := os.Stat(configFile); err == nil {
		if err := k.Load(file.Provider(configFile), yaml.Parser()); err != nil {
			return nil, errors.Wrapf(err, "failed to load config file: %s", configFile)
		}
	}

	if err := godotenv.Load(dotenvFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, errors.Wrap(err, "failed to load .env file")
	}

	known := knownKeys()
	err := k.Load(env.Provider("", ".", func(s string) string {
		key := strings.ToLower(s)
		if _, ok := known[key]; !ok {
			return ""
		}
		return key
	}), nil)
	if err != nil {
		return nil, errors.WithStack(err)
	}

	if err := k.UnmarshalWithConf("", cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, errors.WithStack(err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// NewForTest returns a config backed by an in-memory database.
func NewForTest() *Config {
	cfg := defaultConfig()
	cfg.DatabaseFilePath = ":memory:"
	cfg.DatabaseConnectRetryCount = 1
	cfg.DatabaseConnectRetryDelay = 0
	cfg.Environment = EnvironmentTest
	cfg.JWTSecret = "test-secret"
	cfg.ServerHost = "127.0.0.1"
	cfg.WorkerPollInterval = 10 * time.Millisecond
	return cfg
}

func (cfg *Config) validate() error {
	required := []string{"JWTSecret"}
	switch cfg.DatabaseDriver {
	case DatabaseDriverSQLite:
		required = append(required, "DatabaseFilePath")
	case DatabaseDriverPostgres:
		required = append(required, "DatabaseURL")
	default:
		return errors.Errorf("unsupported database driver %q", cfg.DatabaseDriver)
	}

	v := reflect.ValueOf(cfg).Elem()
	for _, name := range required {
		if v.FieldByName(name).IsZero() {
			key := toSnakeCase(name)
			return errors.Errorf("missing required config: set %s or %s in the config file", strings.ToUpper(key), key)
		}
	}
	return nil
}

func knownKeys() map[string]struct{} {
	keys := map[string]struct{}{}
	t := reflect.TypeOf(Config{})
	for i := 0; i < t.NumField(); i++ {
		keys[t.Field(i).Tag.Get("koanf")] = struct{}{}
	}
	return keys
}

func toSnakeCase(s string) string {
	return strcase.ToSnake(s)
}
