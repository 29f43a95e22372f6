package config

import (
	"flag"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

type Config struct {
	Env         string        `yaml:"env" env-required:"true"`
	StoragePath string        `yaml:"storage_path" env-required:"true"`
	TokenTTL    time.Duration `yaml:"token_ttl" env-default:"24h"`
	HTTPServer  `yaml:"http_server"`
	Backend     `yaml:"backend"`
	Clip        `yaml:"clip"`
	Session     `yaml:"session"`
}

type HTTPServer struct {
	Address     string        `yaml:"address" env-default:"localhost:8080"`
	Timeout     time.Duration `yaml:"timeout" env-default:"4s"`
	IdleTimeout time.Duration `yaml:"idle_timeout" env-default:"60s"`
	TmpDir      string        `yaml:"tmp_dir" env-default:"./tmp"`
}

// Backend describes the external clipping service.
type Backend struct {
	URL      string        `yaml:"url" env-required:"true"`
	Timeout  time.Duration `yaml:"timeout" env-default:"5m"`
	MaxBytes int64         `yaml:"max_bytes" env-default:"524288000"`
}

type Clip struct {
	MaxDuration time.Duration `yaml:"max_duration" env-default:"60s"`
}

type Session struct {
	TTL         time.Duration `yaml:"ttl" env-default:"30m"`
	MaxSessions int           `yaml:"max_sessions" env-default:"10000"`
	MaxViews    int           `yaml:"max_views" env-default:"5"`
	MaxNotices  int           `yaml:"max_notices" env-default:"20"`
}

func MustLoad() *Config {
	configPath := fetchConfigPath()
	if configPath == "" {
		panic("config path is empty")
	}

	return MustLoadPath(configPath)
}

func MustLoadPath(configPath string) *Config {
	// check if file exists
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		panic("config file does not exist: " + configPath)
	}

	var cfg Config

	if err := cleanenv.ReadConfig(configPath, &cfg); err != nil {
		panic("cannot read config: " + err.Error())
	}

	return &cfg
}

// fetchConfigPath fetches config path from command line flag or environment variable.
// Priority: flag > env > default.
// Default value is empty string.
func fetchConfigPath() string {
	var res string

	flag.StringVar(&res, "config", "", "path to config file")
	flag.Parse()

	if res == "" {
		res = os.Getenv("CONFIG_PATH")
	}

	return res
}
