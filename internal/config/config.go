package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"
	"gopkg.in/yaml.v3"

	"gitlab.com/dirk.krummacker/central-contacts/pkg/model"
)

// Store kinds.
const (
	StoreMemory = "memory"
	StoreMySQL  = "mysql"
)

// Config holds the process configuration. Values are taken from built-in defaults, then from an
// optional YAML file, then from the environment.
//
// Usage example:
//
//	> CONFIG_FILE=config.yaml STORE=mysql DBHOST=localhost:3306 DBUSER=dirk DBPWD=bullo92 PORT=8080 go run ./cmd/service
type Config struct {
	Port      int
	Store     string
	GinMode   string
	AccessLog bool
	LogMode   string
	MySQL     MySQLConfig
	CORS      []string
	RateLimit float64
	RateBurst int
	Seed      []model.Contact
}

// MySQLConfig describes the database used when Store is "mysql".
type MySQLConfig struct {
	Host     string
	User     string
	Password string
	DBName   string
	Timeout  time.Duration
}

// Driver returns the go-sql-driver configuration for the database.
func (m MySQLConfig) Driver() *mysql.Config {
	cfg := mysql.NewConfig()
	cfg.Net = "tcp"
	cfg.Addr = m.Host
	cfg.User = m.User
	cfg.Passwd = m.Password
	cfg.DBName = m.DBName
	cfg.ParseTime = true
	cfg.Timeout = m.Timeout
	return cfg
}

// DSNMasked returns the data source name with the password hidden, for logging.
func (m MySQLConfig) DSNMasked() string {
	masked := m
	if masked.Password != "" {
		masked.Password = "******"
	}
	return masked.Driver().FormatDSN()
}

// Default returns the configuration used when neither a file nor environment variables are given.
func Default() Config {
	return Config{
		Port:      8080,
		Store:     StoreMemory,
		GinMode:   "debug",
		AccessLog: true,
		LogMode:   "dev",
		MySQL:     MySQLConfig{Host: "localhost:3306", User: "root", DBName: "test", Timeout: 5 * time.Second},
		RateBurst: 10,
	}
}

// Load builds the configuration. The YAML file is named by the CONFIG_FILE environment variable,
// otherwise config.yaml or config.yml in the working directory is used if present.
func Load() (Config, error) {
	cfg := Default()
	path := os.Getenv("CONFIG_FILE")
	if path == "" {
		path = firstExisting("config.yaml", "config.yml")
	}
	if path != "" {
		if err := loadFromFile(path, &cfg); err != nil {
			return Config{}, fmt.Errorf("config file %s: %w", path, err)
		}
	}
	if err := applyEnv(os.LookupEnv, &cfg); err != nil {
		return Config{}, err
	}
	return cfg, cfg.Validate()
}

// Validate reports the first invalid setting.
func (c Config) Validate() error {
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("invalid port %d", c.Port)
	}
	switch c.Store {
	case StoreMemory, StoreMySQL:
	default:
		return fmt.Errorf("unknown store %q, expected %q or %q", c.Store, StoreMemory, StoreMySQL)
	}
	switch c.GinMode {
	case "debug", "release", "test":
	default:
		return fmt.Errorf("unknown gin mode %q", c.GinMode)
	}
	if c.RateLimit < 0 {
		return errors.New("rate limit must not be negative")
	}
	return nil
}

// Addr is the listen address of the HTTP server.
func (c Config) Addr() string { return ":" + strconv.Itoa(c.Port) }

func firstExisting(paths ...string) string {
	for _, p := range paths {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}

// fileModel is the YAML layout of the config file. Only non-zero values override.
type fileModel struct {
	Port      int             `yaml:"port"`
	Store     string          `yaml:"store"`
	GinMode   string          `yaml:"gin_mode"`
	AccessLog *bool           `yaml:"access_log"`
	LogMode   string          `yaml:"log_mode"`
	MySQL     *fileMySQL      `yaml:"mysql"`
	CORS      []string        `yaml:"cors_origins"`
	RateLimit *fileRateLimit  `yaml:"rate_limit"`
	Seed      []model.Contact `yaml:"seed"`
}

type fileMySQL struct {
	Host     string `yaml:"host"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	DBName   string `yaml:"db"`
	Timeout  string `yaml:"timeout"`
}

type fileRateLimit struct {
	RPS   float64 `yaml:"rps"`
	Burst int     `yaml:"burst"`
}

func loadFromFile(path string, cfg *Config) error {
	b, err := os.ReadFile(path) // nosemgrep
	if err != nil {
		return err
	}
	var fm fileModel
	if err := yaml.Unmarshal(b, &fm); err != nil {
		return err
	}
	return fm.apply(cfg)
}

func (fm *fileModel) apply(cfg *Config) error {
	if fm.Port != 0 {
		cfg.Port = fm.Port
	}
	if fm.Store != "" {
		cfg.Store = strings.ToLower(fm.Store)
	}
	if fm.GinMode != "" {
		cfg.GinMode = fm.GinMode
	}
	if fm.AccessLog != nil {
		cfg.AccessLog = *fm.AccessLog
	}
	if fm.LogMode != "" {
		cfg.LogMode = fm.LogMode
	}
	if fm.MySQL != nil {
		if fm.MySQL.Host != "" {
			cfg.MySQL.Host = fm.MySQL.Host
		}
		if fm.MySQL.User != "" {
			cfg.MySQL.User = fm.MySQL.User
		}
		if fm.MySQL.Password != "" {
			cfg.MySQL.Password = fm.MySQL.Password
		}
		if fm.MySQL.DBName != "" {
			cfg.MySQL.DBName = fm.MySQL.DBName
		}
		if fm.MySQL.Timeout != "" {
			d, err := time.ParseDuration(fm.MySQL.Timeout)
			if err != nil {
				return fmt.Errorf("mysql timeout: %w", err)
			}
			cfg.MySQL.Timeout = d
		}
	}
	if len(fm.CORS) > 0 {
		cfg.CORS = fm.CORS
	}
	if fm.RateLimit != nil {
		if fm.RateLimit.RPS != 0 {
			cfg.RateLimit = fm.RateLimit.RPS
		}
		if fm.RateLimit.Burst != 0 {
			cfg.RateBurst = fm.RateLimit.Burst
		}
	}
	if len(fm.Seed) > 0 {
		cfg.Seed = fm.Seed
	}
	return nil
}

// applyEnv overrides the configuration with the environment variables known to the service.
func applyEnv(lookup func(string) (string, bool), cfg *Config) error {
	if v, ok := lookup("PORT"); ok && v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("could not parse PORT env variable: %w", err)
		}
		cfg.Port = port
	}
	if v, ok := lookup("STORE"); ok && v != "" {
		cfg.Store = strings.ToLower(v)
	}
	if v, ok := lookup("DBHOST"); ok && v != "" {
		cfg.MySQL.Host = v
	}
	if v, ok := lookup("DBUSER"); ok && v != "" {
		cfg.MySQL.User = v
	}
	if v, ok := lookup("DBPWD"); ok && v != "" {
		cfg.MySQL.Password = v
	}
	if v, ok := lookup("DBNAME"); ok && v != "" {
		cfg.MySQL.DBName = v
	}
	if v, ok := lookup("GIN_MODE"); ok && v != "" {
		cfg.GinMode = v
	}
	if v, ok := lookup("GIN_LOGGING"); ok {
		cfg.AccessLog = !strings.EqualFold(v, "off")
	}
	if v, ok := lookup("LOG_MODE"); ok && v != "" {
		cfg.LogMode = v
	}
	if v, ok := lookup("CORS_ORIGINS"); ok && v != "" {
		cfg.CORS = nil
		for _, origin := range strings.Split(v, ",") {
			if origin = strings.TrimSpace(origin); origin != "" {
				cfg.CORS = append(cfg.CORS, origin)
			}
		}
	}
	if v, ok := lookup("RATE_LIMIT"); ok && v != "" {
		rps, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("could not parse RATE_LIMIT env variable: %w", err)
		}
		cfg.RateLimit = rps
	}
	if v, ok := lookup("RATE_BURST"); ok && v != "" {
		burst, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("could not parse RATE_BURST env variable: %w", err)
		}
		cfg.RateBurst = burst
	}
	return nil
}
