package config

import (
	"errors"
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Game      GameConfig      `mapstructure:"game"`
	Questions QuestionsConfig `mapstructure:"questions"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Log       LogConfig       `mapstructure:"log"`
}

type ServerConfig struct {
	IP           string        `mapstructure:"ip"`
	Port         int           `mapstructure:"port"`
	HTTPAddress  string        `mapstructure:"http_address"`
	RPCAddress   string        `mapstructure:"rpc_address"`
	Tick         time.Duration `mapstructure:"tick"`
	WriteSlice   time.Duration `mapstructure:"write_slice"`
	ReadBuffer   int           `mapstructure:"read_buffer"`
	MaxFrameSize int           `mapstructure:"max_frame_size"`
}

type GameConfig struct {
	PublicCapacity int `mapstructure:"public_capacity"`
	WinThreshold   int `mapstructure:"win_threshold"`
	QuestionBatch  int `mapstructure:"question_batch"`
}

type QuestionsConfig struct {
	Source  string        `mapstructure:"source"`
	URL     string        `mapstructure:"url"`
	File    string        `mapstructure:"file"`
	Timeout time.Duration `mapstructure:"timeout"`
	Retries int           `mapstructure:"retries"`
	Backoff time.Duration `mapstructure:"backoff"`
}

type DatabaseConfig struct {
	Driver   string         `mapstructure:"driver"`
	Postgres PostgresConfig `mapstructure:"postgres"`
}

type PostgresConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	DBName   string `mapstructure:"dbname"`
}

type LogConfig struct {
	Level       string `mapstructure:"level"`
	Development bool   `mapstructure:"development"`
	File        string `mapstructure:"file"`
}

// TCPAddress is the listen address of the game protocol.
func (c ServerConfig) TCPAddress() string {
	return net.JoinHostPort(c.IP, strconv.Itoa(c.Port))
}

// DSN builds a lib/pq style connection string.
func (c PostgresConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
		c.Host, c.Port, c.User, c.Password, c.DBName)
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.ip", "0.0.0.0")
	v.SetDefault("server.port", 7777)
	v.SetDefault("server.http_address", "")
	v.SetDefault("server.rpc_address", "")
	v.SetDefault("server.tick", time.Second)
	v.SetDefault("server.write_slice", 2*time.Millisecond)
	v.SetDefault("server.read_buffer", 4096)
	v.SetDefault("server.max_frame_size", 1<<20)

	v.SetDefault("game.public_capacity", 5)
	v.SetDefault("game.win_threshold", 10)
	v.SetDefault("game.question_batch", 50)

	v.SetDefault("questions.source", "opentdb")
	v.SetDefault("questions.url", "https://opentdb.com/api.php")
	v.SetDefault("questions.file", "")
	v.SetDefault("questions.timeout", 10*time.Second)
	v.SetDefault("questions.retries", 2)
	v.SetDefault("questions.backoff", 500*time.Millisecond)

	v.SetDefault("database.driver", "")
	v.SetDefault("database.postgres.host", "localhost")
	v.SetDefault("database.postgres.port", 5432)
	v.SetDefault("database.postgres.user", "postgres")
	v.SetDefault("database.postgres.password", "")
	v.SetDefault("database.postgres.dbname", "trivia")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.development", false)
	v.SetDefault("log.file", "")
}

// flagKeys maps command line flags onto configuration keys.
var flagKeys = map[string]string{
	"ip":   "server.ip",
	"port": "server.port",
	"http": "server.http_address",
	"rpc":  "server.rpc_address",
}

// LoadConfig reads config.yaml from path when present, then the TRIVIA_*
// environment, then any flags in fs that were set explicitly.
func LoadConfig(path string, fs *pflag.FlagSet) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.AddConfigPath(path)
	v.SetConfigName("config")
	v.SetConfigType("yaml")

	v.SetEnvPrefix("TRIVIA")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	if fs != nil {
		for name, key := range flagKeys {
			if f := fs.Lookup(name); f != nil && f.Changed {
				if err := v.BindPFlag(key, f); err != nil {
					return nil, err
				}
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid port (must be between 0-65535 inclusive): %d", c.Server.Port)
	}
	if c.Server.Tick <= 0 {
		return errors.New("server.tick must be positive")
	}
	if c.Server.WriteSlice <= 0 {
		return errors.New("server.write_slice must be positive")
	}
	if c.Server.ReadBuffer <= 0 {
		return errors.New("server.read_buffer must be positive")
	}
	if c.Server.MaxFrameSize <= 0 {
		return errors.New("server.max_frame_size must be positive")
	}
	if c.Game.PublicCapacity < 2 {
		return fmt.Errorf("game.public_capacity must be at least 2, got %d", c.Game.PublicCapacity)
	}
	if c.Game.WinThreshold < 1 {
		return fmt.Errorf("game.win_threshold must be positive, got %d", c.Game.WinThreshold)
	}
	if c.Game.QuestionBatch < 1 {
		return fmt.Errorf("game.question_batch must be positive, got %d", c.Game.QuestionBatch)
	}
	switch c.Questions.Source {
	case "opentdb":
	case "file":
		if c.Questions.File == "" {
			return errors.New("questions.file is required when questions.source is file")
		}
	default:
		return fmt.Errorf("unknown questions.source %q", c.Questions.Source)
	}
	if c.Questions.Retries < 0 {
		return errors.New("questions.retries must not be negative")
	}
	switch c.Database.Driver {
	case "", "gorm", "postgres":
	default:
		return fmt.Errorf("unknown database.driver %q", c.Database.Driver)
	}
	return nil
}
