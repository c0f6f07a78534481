// Package config loads and validates server configuration, grounded on
// original_source/src/sys/init.rs (Init::load) for the field set, defaults
// and validation rules, and on
// sandrolain-events-bridge/src/config/config.go's LoadEnvConfigFile for the
// "parse file, then let environment variables override, then validate"
// layering (caarlos0/env + go-playground/validator).
package config

import (
	"bufio"
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"

	"github.com/caarlos0/env/v11"
	"github.com/go-playground/validator/v10"

	"github.com/tryteex/fcgiapp/internal/secrets"
)

// FileName is the config file looked up under the startup directory,
// renamed from the original's "tryteex.conf".
const FileName = "fcgiapp.conf"

// DB holds Postgres connection settings.
type DB struct {
	Host     string `env:"FCGIAPP_DB_HOST" validate:"required"`
	Port     string `env:"FCGIAPP_DB_PORT" validate:"required"`
	User     string `env:"FCGIAPP_DB_USER" validate:"required"`
	Password string `env:"FCGIAPP_DB_PASSWORD" validate:"required"`
	Name     string `env:"FCGIAPP_DB_NAME" validate:"required"`
}

// Config is the fully resolved, validated server configuration.
type Config struct {
	MaxConnection uint16           `env:"FCGIAPP_MAX_CONNECTION" validate:"required,gt=0"`
	Sockets       []*net.TCPAddr   `validate:"required,min=1"`
	Control       *net.TCPAddr     `validate:"required"`
	Dir           string           `validate:"required,max=1023"`
	Version       string           `validate:"max=11"`
	DB            DB               `validate:"required"`
	TimeZone      string           `env:"FCGIAPP_TIME_ZONE"`
	Salt          string           `validate:"required"`
}

// Defaults returns the built-in defaults (init.rs's Init::new), anchored to
// the given startup directory and process version string.
func Defaults(dir, version string) *Config {
	sock, _ := net.ResolveTCPAddr("tcp", "127.0.0.1:9001")
	irc, _ := net.ResolveTCPAddr("tcp", "127.0.0.1:9001")
	return &Config{
		MaxConnection: 25,
		Sockets:       []*net.TCPAddr{sock},
		Control:       irc,
		Dir:           dir,
		Version:       version,
		DB:            DB{Host: "127.0.0.1", Port: "5432", User: "user", Password: "pwd", Name: "name"},
	}
}

// Load reads dir/fcgiapp.conf over the defaults, applies environment
// variable overrides, resolves any env:/file: indirected secrets in the DB
// password and salt, and validates the result.
func Load(dir, version string) (*Config, error) {
	cfg := Defaults(dir, version)

	path := dir + string(os.PathSeparator) + FileName
	if err := applyFile(cfg, path); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("config: environment overrides: %w", err)
	}
	if err := env.Parse(&cfg.DB); err != nil {
		return nil, fmt.Errorf("config: environment overrides: %w", err)
	}

	pwd, err := secrets.Resolve(cfg.DB.Password)
	if err != nil {
		return nil, fmt.Errorf("config: db password: %w", err)
	}
	cfg.DB.Password = pwd

	salt, err := secrets.Resolve(cfg.Salt)
	if err != nil {
		return nil, fmt.Errorf("config: salt: %w", err)
	}
	cfg.Salt = salt

	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("config: validation: %w", err)
	}
	return cfg, nil
}

func applyFile(cfg *Config, path string) error {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil // operate on defaults + env alone
		}
		return fmt.Errorf("open %q: %w", path, err)
	}
	defer f.Close()

	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, ";") || strings.HasPrefix(line, "#") {
			continue
		}
		key, value, found := strings.Cut(line, "=")
		if !found {
			continue
		}
		key = strings.TrimSpace(key)
		value = strings.TrimSpace(value)
		if err := applyKey(cfg, key, value); err != nil {
			return err
		}
	}
	return sc.Err()
}

func applyKey(cfg *Config, key, value string) error {
	switch key {
	case "max_connection":
		n, err := strconv.ParseUint(value, 10, 16)
		if err != nil || n == 0 {
			return fmt.Errorf("max_connection: invalid value %q", value)
		}
		cfg.MaxConnection = uint16(n)
	case "socket":
		var addrs []*net.TCPAddr
		for _, v := range strings.Split(value, ",") {
			addr, err := net.ResolveTCPAddr("tcp", strings.TrimSpace(v))
			if err != nil {
				return fmt.Errorf("socket: invalid address %q", v)
			}
			addrs = append(addrs, addr)
		}
		if len(addrs) == 0 {
			return fmt.Errorf("socket: must not be empty")
		}
		cfg.Sockets = addrs
	case "irc":
		port, err := strconv.ParseUint(value, 10, 16)
		if err != nil || port == 0 {
			return fmt.Errorf("irc: invalid port %q", value)
		}
		addr, _ := net.ResolveTCPAddr("tcp", fmt.Sprintf("127.0.0.1:%d", port))
		cfg.Control = addr
	case "dir":
		if len(value) == 0 || len(value) >= 1024 {
			return fmt.Errorf("dir: invalid length")
		}
		cfg.Dir = value
	case "version":
		if len(value) == 0 || len(value) >= 12 {
			return fmt.Errorf("version: invalid length")
		}
		cfg.Version = value
	case "db_host":
		if value == "" {
			return fmt.Errorf("db_host: must not be empty")
		}
		cfg.DB.Host = value
	case "db_port":
		if value == "" {
			return fmt.Errorf("db_port: must not be empty")
		}
		cfg.DB.Port = value
	case "db_user":
		if value == "" {
			return fmt.Errorf("db_user: must not be empty")
		}
		cfg.DB.User = value
	case "db_pwd":
		if value == "" {
			return fmt.Errorf("db_pwd: must not be empty")
		}
		cfg.DB.Password = value
	case "db_name":
		if value == "" {
			return fmt.Errorf("db_name: must not be empty")
		}
		cfg.DB.Name = value
	case "time_zone":
		cfg.TimeZone = value
	case "salt":
		cfg.Salt = value
	}
	return nil
}

// DSN builds the libpq-style connection string pgx.Connect accepts.
func (c *Config) DSN() string {
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s",
		c.DB.Host, c.DB.Port, c.DB.User, c.DB.Password, c.DB.Name)
}
