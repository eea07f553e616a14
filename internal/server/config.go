package server

import (
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strconv"

	"taskplanner/internal/domain/errors"
)

// Config is assembled from three layers in increasing precedence:
// JSON file, environment variables, command-line flags.
type Config struct {
	Addr        string
	Port        int
	DBStr       string
	MigratePath string
	JWTSecret   string
	StaticDir   string
}

const (
	defaultAddr        = "0.0.0.0"
	defaultPort        = 8080
	defaultDBStr       = "postgresql://planner:planner@db:5432/planner?sslmode=disable"
	defaultMigratePath = "migrations"
)

var (
	addr        = flag.String("addr", defaultAddr, "listen address")
	port        = flag.Int("port", defaultPort, "listen port")
	dbstr       = flag.String("dbstr", "", "database connection string")
	migratePath = flag.String("migratepath", "", "path to the migrations directory")
	staticDir   = flag.String("static", "", "directory with the built frontend; empty serves API only")
	configFile  = flag.String("c", "", "path to a JSON configuration file")
	parsed      = false
)

func ReadConfig() *Config {
	if !parsed {
		flag.Parse()
		parsed = true
	}

	cfg := &Config{
		Addr:        defaultAddr,
		Port:        defaultPort,
		DBStr:       defaultDBStr,
		MigratePath: defaultMigratePath,
	}

	if jsonConfig := loadJSONConfig(); jsonConfig != nil {
		cfg = jsonConfig
	}

	cfg = applyEnvOverrides(cfg)
	cfg = applyFlagOverrides(cfg)

	return cfg
}

// Validate rejects configurations the server cannot start with. An absent
// token secret is a boot failure, never a request-time one.
func (c *Config) Validate() error {
	if c.JWTSecret == "" {
		return errors.ErrMissingJWTSecret
	}
	return nil
}

func loadJSONConfig() *Config {
	configPath := *configFile
	if configPath == "" {
		configPath = os.Getenv("CONFIG")
	}
	if configPath == "" {
		return nil
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		slog.Warn(errors.ErrConfigFileReadFailed.Error(), "path", configPath, "error", err)
		return nil
	}

	var jsonConfig Config
	if err := json.Unmarshal(data, &jsonConfig); err != nil {
		slog.Warn(errors.ErrConfigParseFailed.Error(), "path", configPath, "error", err)
		return nil
	}

	if jsonConfig.Addr == "" {
		jsonConfig.Addr = defaultAddr
	}
	if jsonConfig.Port == 0 {
		jsonConfig.Port = defaultPort
	}
	if jsonConfig.DBStr == "" {
		jsonConfig.DBStr = defaultDBStr
	}
	if jsonConfig.MigratePath == "" {
		jsonConfig.MigratePath = defaultMigratePath
	}

	slog.Info("loaded JSON configuration", "path", configPath)
	return &jsonConfig
}

func applyEnvOverrides(cfg *Config) *Config {
	if addr := os.Getenv("ADDR"); addr != "" {
		cfg.Addr = addr
	}
	if port := os.Getenv("PORT"); port != "" {
		if p, err := strconv.Atoi(port); err != nil {
			slog.Warn(errors.ErrConfigInvalidFormat.Error(), "var", "PORT", "value", port)
		} else if p < 1 || p > 65535 {
			slog.Warn(errors.ErrConfigInvalidFormat.Error(), "var", "PORT", "value", p)
		} else {
			cfg.Port = p
		}
	}

	// DB_STR is the single supported connection-string variable; the
	// component variables below only assemble one when it is absent.
	if dbStr := os.Getenv("DB_STR"); dbStr != "" {
		cfg.DBStr = dbStr
	} else if cfg.DBStr == defaultDBStr {
		dbUser := os.Getenv("DB_USER")
		dbPassword := os.Getenv("DB_PASSWORD")
		dbName := os.Getenv("DB_NAME")
		dbHost := os.Getenv("DB_HOST")
		dbPort := os.Getenv("DB_PORT")
		if dbUser != "" && dbPassword != "" && dbName != "" && dbHost != "" && dbPort != "" {
			cfg.DBStr = fmt.Sprintf("postgresql://%s:%s@%s:%s/%s?sslmode=disable", dbUser, dbPassword, dbHost, dbPort, dbName)
		}
	}

	if migratePath := os.Getenv("MIGRATE_PATH"); migratePath != "" {
		cfg.MigratePath = migratePath
	}
	if secret := os.Getenv("JWT_SECRET"); secret != "" {
		cfg.JWTSecret = secret
	}
	if static := os.Getenv("STATIC_DIR"); static != "" {
		cfg.StaticDir = static
	}

	return cfg
}

// applyFlagOverrides applies only flags the caller actually set, so
// environment values survive when the flag is left at its default.
func applyFlagOverrides(cfg *Config) *Config {
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "addr":
			cfg.Addr = *addr
		case "port":
			cfg.Port = *port
		case "dbstr":
			cfg.DBStr = *dbstr
		case "migratepath":
			cfg.MigratePath = *migratePath
		case "static":
			cfg.StaticDir = *staticDir
		}
	})
	return cfg
}
