package config

import (
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Redis     RedisConfig     `mapstructure:"redis"`
	MySQL     MySQLConfig     `mapstructure:"mysql"`
	Gateway   GatewayConfig   `mapstructure:"gateway"`
	Scheduler SchedulerConfig `mapstructure:"scheduler"`
	Broker    BrokerConfig    `mapstructure:"broker"`
	Pings     PingConfig      `mapstructure:"pings"`
}

type ServerConfig struct {
	Port int    `mapstructure:"port"`
	Host string `mapstructure:"host"`
}

type RedisConfig struct {
	Address  string `mapstructure:"address"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type MySQLConfig struct {
	DSN             string        `mapstructure:"dsn"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
}

type GatewayConfig struct {
	URL      string   `mapstructure:"url"`
	Token    string   `mapstructure:"token"`
	BotID    string   `mapstructure:"bot_id"`
	AdminIDs []string `mapstructure:"admin_ids"`
}

type SchedulerConfig struct {
	TickInterval time.Duration `mapstructure:"tick_interval"`
	DataDir      string        `mapstructure:"data_dir"`
}

type BrokerConfig struct {
	AskTimeout time.Duration `mapstructure:"ask_timeout"`
}

type PingConfig struct {
	Cooldown time.Duration `mapstructure:"cooldown"`
}

func Load() (*Config, error) {
	// Set default values
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.host", "0.0.0.0")
	viper.SetDefault("redis.address", "localhost:6379")
	viper.SetDefault("redis.password", "")
	viper.SetDefault("redis.db", 0)
	viper.SetDefault("mysql.dsn", "tavern_user:tavern_pass@tcp(localhost:3306)/tavern_db?parseTime=true")
	viper.SetDefault("mysql.max_open_conns", 25)
	viper.SetDefault("mysql.max_idle_conns", 10)
	viper.SetDefault("mysql.conn_max_lifetime", 5*time.Minute)
	viper.SetDefault("gateway.url", "wss://localhost:8443/gateway")
	viper.SetDefault("gateway.token", "")
	viper.SetDefault("gateway.bot_id", "tavern-bot")
	viper.SetDefault("gateway.admin_ids", []string{})
	viper.SetDefault("scheduler.tick_interval", 30*time.Second)
	viper.SetDefault("scheduler.data_dir", "./data")
	viper.SetDefault("broker.ask_timeout", 60*time.Second)
	viper.SetDefault("pings.cooldown", 10*time.Minute)

	// Configuration file settings
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")
	viper.AddConfigPath("/etc/tavern-bot/")

	// Environment variable support
	viper.AutomaticEnv()

	// Environment variable mappings
	viper.BindEnv("server.port", "SERVER_PORT")
	viper.BindEnv("server.host", "SERVER_HOST")
	viper.BindEnv("redis.address", "REDIS_ADDRESS")
	viper.BindEnv("redis.password", "REDIS_PASSWORD")
	viper.BindEnv("redis.db", "REDIS_DB")
	viper.BindEnv("mysql.dsn", "MYSQL_DSN")
	viper.BindEnv("gateway.url", "GATEWAY_URL")
	viper.BindEnv("gateway.token", "GATEWAY_TOKEN")
	viper.BindEnv("gateway.bot_id", "GATEWAY_BOT_ID")
	viper.BindEnv("scheduler.tick_interval", "SCHEDULER_TICK_INTERVAL")
	viper.BindEnv("scheduler.data_dir", "SCHEDULER_DATA_DIR")
	viper.BindEnv("broker.ask_timeout", "BROKER_ASK_TIMEOUT")
	viper.BindEnv("pings.cooldown", "PINGS_COOLDOWN")

	// Read configuration file (optional - will use defaults/env vars if not found)
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
		// Config file not found, continue with defaults and environment variables
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, err
	}

	return &config, nil
}

// LoadFromFile loads configuration from a specific file path
func LoadFromFile(configPath string) (*Config, error) {
	viper.SetConfigFile(configPath)

	if err := viper.ReadInConfig(); err != nil {
		return nil, err
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, err
	}

	return &config, nil
}
