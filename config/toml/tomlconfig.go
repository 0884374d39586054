package toml

import (
	"fmt"
	"strings"
	"sync"

	"github.com/spf13/viper"
)

type TomlConfig struct {
	AppName     string
	Environment string
	Log         LogConfig
	Database    DatabaseConfig
	Redis       RedisConfig
	Import      ImportConfig
	Aggregate   AggregateConfig
	Storage     StorageConfig
	Server      ServerConfig
}

type LogConfig struct {
	Path  string
	Level string
}

type DatabaseConfig struct {
	Driver               string // postgres or mysql
	Host                 string
	User                 string
	Password             string
	DbName               string
	Port                 int64
	SslMode              string
	Maxdbconnections     int
	Maxdbidleconnections int
}

type RedisConfig struct {
	Urls     []string
	Password string
}

type ImportConfig struct {
	Batchsize    int
	Inboxdir     string
	Archivedir   string
	Cronspec     string
	Locktimeout  int // seconds
	Numworkers   int
	Jobqueuesize int
	Maxretries   int

	// Mockingestion drops a generated file in the inbox on every scan.
	Mockingestion bool
}

type AggregateConfig struct {
	L1zeropolicy string // fallback or alarm
}

type StorageConfig struct {
	Enabled         bool
	Bucket          string
	Prefix          string
	Credentialsjson string // optional, application default credentials otherwise
}

type ServerConfig struct {
	Addr         string
	Readtimeout  int // seconds
	Writetimeout int // seconds
}

var (
	c        TomlConfig // c is type TomlConfig
	loadOnce sync.Once
)

func setDefaults() {
	viper.SetDefault("appname", "water-ingest")
	viper.SetDefault("log.path", "./logs")
	viper.SetDefault("log.level", "info")
	viper.SetDefault("database.driver", "postgres")
	viper.SetDefault("database.host", "localhost")
	viper.SetDefault("database.port", 5432)
	viper.SetDefault("database.sslmode", "disable")
	viper.SetDefault("database.maxdbconnections", 20)
	viper.SetDefault("database.maxdbidleconnections", 5)
	viper.SetDefault("import.batchsize", 50)
	viper.SetDefault("import.inboxdir", "./inbox")
	viper.SetDefault("import.archivedir", "./inbox/processed")
	viper.SetDefault("import.cronspec", "@every 1m")
	viper.SetDefault("import.locktimeout", 300)
	viper.SetDefault("import.numworkers", 2)
	viper.SetDefault("import.jobqueuesize", 16)
	viper.SetDefault("import.maxretries", 3)
	viper.SetDefault("aggregate.l1zeropolicy", "fallback")
	viper.SetDefault("storage.prefix", "water")
	viper.SetDefault("server.addr", ":8080")
	viper.SetDefault("server.readtimeout", 30)
	viper.SetDefault("server.writetimeout", 60)
}

func load() {
	//viper is used as a configuration solution for Go Applications
	setDefaults()
	viper.SetConfigName("config")
	viper.SetConfigType("toml")
	viper.AddConfigPath(".")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()
	if err := viper.ReadInConfig(); err != nil {
		fmt.Println("config file not loaded, using defaults:", err)
	}
	if err := viper.Unmarshal(&c); err != nil {
		fmt.Println("config unmarshal failed:", err)
	}
}

// GetConfig loads config.toml on first use.
func GetConfig() TomlConfig {
	loadOnce.Do(load)
	return c
}
