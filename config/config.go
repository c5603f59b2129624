package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"gateserver/util/log"

	"github.com/fsnotify/fsnotify"
	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
)

type Config struct {
	Gate         GateConfig    `mapstructure:"gate"`
	Mysql        MysqlConfig   `mapstructure:"mysql"`
	VarifyServer RPCConfig     `mapstructure:"varify_server"`
	Redis        RedisConfig   `mapstructure:"redis"`
	Varify       VarifyConfig  `mapstructure:"varify"`
	Metrics      MetricsConfig `mapstructure:"metrics"`
	Log          LogConfig     `mapstructure:"log"`
}

type GateConfig struct {
	Port     string        `mapstructure:"port"`
	Deadline time.Duration `mapstructure:"deadline"`
}

type MysqlConfig struct {
	Host          string        `mapstructure:"host"`
	Port          string        `mapstructure:"port"`
	User          string        `mapstructure:"user"`
	Passwd        string        `mapstructure:"passwd"`
	Schema        string        `mapstructure:"schema"`
	PoolSize      int           `mapstructure:"pool_size"`
	CheckInterval time.Duration `mapstructure:"check_interval"`
	IdleThreshold time.Duration `mapstructure:"idle_threshold"`
}

type RPCConfig struct {
	Host     string        `mapstructure:"host"`
	Port     string        `mapstructure:"port"`
	PoolSize int           `mapstructure:"pool_size"`
	Timeout  time.Duration `mapstructure:"timeout"`
}

type RedisConfig struct {
	Host   string `mapstructure:"host"`
	Port   string `mapstructure:"port"`
	Passwd string `mapstructure:"passwd"`
	DB     int    `mapstructure:"db"`
}

type VarifyConfig struct {
	Cooldown time.Duration `mapstructure:"cooldown"`
}

type MetricsConfig struct {
	Enable bool   `mapstructure:"enable"`
	Port   string `mapstructure:"port"`
}

type LogConfig struct {
	Writers        string `mapstructure:"writers"`
	LoggerLevel    string `mapstructure:"logger_level"`
	LogFormatText  bool   `mapstructure:"log_format_text"`
	LoggerDir      string `mapstructure:"logger_dir"`
	LogRotateSize  int    `mapstructure:"log_rotate_size"`
	LogBackupCount int    `mapstructure:"log_backup_count"`
	LogMaxAge      int    `mapstructure:"log_max_age"`
}

var defaults = map[string]interface{}{
	"gate.port":               "8080",
	"gate.deadline":           60 * time.Second,
	"mysql.host":              "127.0.0.1",
	"mysql.port":              "3306",
	"mysql.user":              "root",
	"mysql.passwd":            "",
	"mysql.schema":            "llfc",
	"mysql.pool_size":         5,
	"mysql.check_interval":    60 * time.Second,
	"mysql.idle_threshold":    5 * time.Second,
	"varify_server.host":      "127.0.0.1",
	"varify_server.port":      "50051",
	"varify_server.pool_size": 5,
	"varify_server.timeout":   time.Duration(0),
	"redis.host":              "127.0.0.1",
	"redis.port":              "6379",
	"redis.passwd":            "",
	"redis.db":                0,
	"varify.cooldown":         time.Duration(0),
	"metrics.enable":          false,
	"metrics.port":            "9090",
	"log.writers":             "stdout",
	"log.logger_level":        "WARN",
	"log.log_format_text":     true,
	"log.logger_dir":          "log/gate.log",
	"log.log_rotate_size":     100,
	"log.log_backup_count":    7,
	"log.log_max_age":         30,
}

// Load reads path, or ./config.yaml when path is empty. A missing default
// file is not an error: defaults and environment variables apply.
func Load(path string) (*Config, *viper.Viper, error) {
	v := viper.New()
	for k, val := range defaults {
		v.SetDefault(k, val)
	}
	if path != "" {
		v.SetConfigFile(path) // 如果指定了配置文件，则解析指定的配置文件
	} else {
		v.AddConfigPath("./")
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, nil, fmt.Errorf("read config: %w", err)
		}
	}
	c, err := decode(v)
	if err != nil {
		return nil, nil, err
	}
	return c, v, nil
}

func decode(v *viper.Viper) (*Config, error) {
	var c Config
	err := v.Unmarshal(&c, viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.StringToSliceHookFunc(","),
	)))
	if err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := c.validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

func (c *Config) validate() error {
	if c.Mysql.PoolSize <= 0 {
		return fmt.Errorf("mysql.pool_size must be positive, got %d", c.Mysql.PoolSize)
	}
	if c.VarifyServer.PoolSize <= 0 {
		return fmt.Errorf("varify_server.pool_size must be positive, got %d", c.VarifyServer.PoolSize)
	}
	if c.Gate.Deadline <= 0 {
		return fmt.Errorf("gate.deadline must be positive, got %s", c.Gate.Deadline)
	}
	return nil
}

// Watch calls onChange with the new config whenever the file changes.
// Invalid edits are logged and ignored.
func Watch(v *viper.Viper, onChange func(*Config)) {
	v.OnConfigChange(func(e fsnotify.Event) {
		log.Warnf("config is changed: %s", e.Name)
		c, err := decode(v)
		if err != nil {
			log.Errorf("reload config: %v", err)
			return
		}
		onChange(c)
	})
	v.WatchConfig()
}
