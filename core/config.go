package core

import (
	"log"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type (
	Config struct {
		Debug     bool
		TestMode  bool
		AppName   string
		Env       string
		Build     string
		SecretKey string
		WorkDir   string

		Server   ServerConfig
		Store    StoreConfig
		Database DatabaseConfig
		Notify   NotifyConfig
		Log      LogConfig
	}

	ServerConfig struct {
		Host               string
		Address            string
		DebugHost          string
		ShutdownTimeout    time.Duration
		JWTExpirationDelta time.Duration
	}

	StoreConfig struct {
		Driver string // memory, file, postgres
		Dir    string
		Prefix string
	}

	DatabaseConfig struct {
		Engine        string
		Host          string
		Port          int
		Name          string
		User          string
		Password      string
		AdminUser     string
		AdminPassword string
		DisableTLS    bool
	}

	NotifyConfig struct {
		Driver           string // console, telegram, email
		Retries          int
		RetryDelay       time.Duration
		TelegramBotToken string
		TelegramChatID   string
		SendgridAPIKey   string
		DefaultFromEmail string
		EmailTo          string
	}

	LogConfig struct {
		Level        string
		Pretty       bool
		RollbarToken string
	}
)

func (dbc DatabaseConfig) Address() string {
	return net.JoinHostPort(dbc.Host, strconv.Itoa(dbc.Port))
}

// NewConfig loads the configuration from the environment, optionally seeded by `config/.env.<env>`.
func NewConfig() *Config {
	conf := viper.New()

	// defaults
	conf.SetTypeByDefaultValue(true)
	conf.SetDefault("debug", true)
	conf.SetDefault("testMode", false)
	conf.SetDefault("appName", "Davomat")
	conf.SetDefault("build", "develop")
	conf.SetDefault("secretKey", "h8x=2m$k1w@9q!ze7v(ru4b)0tdn#5c&sy3+ga^ljf6po*i-")

	conf.SetDefault("serverHost", "localhost")
	conf.SetDefault("serverAddress", ":8000")
	conf.SetDefault("debugHost", ":4000")
	conf.SetDefault("shutdownTimeout", 5*time.Second)
	conf.SetDefault("jwtExpirationDelta", 7*24*time.Hour)

	conf.SetDefault("storeDriver", "memory")
	conf.SetDefault("storeDir", "data")
	conf.SetDefault("storePrefix", "kindergarten_srm_")

	conf.SetDefault("dbEngine", "postgres")
	conf.SetDefault("dbHost", "localhost")
	conf.SetDefault("dbPort", 5432)
	conf.SetDefault("dbName", "davomat")
	conf.SetDefault("dbUser", "davomat")
	conf.SetDefault("dbPassword", "")
	conf.SetDefault("dbAdminUser", "")
	conf.SetDefault("dbAdminPassword", "")
	conf.SetDefault("dbDisableTLS", true)

	conf.SetDefault("notifyDriver", "console")
	conf.SetDefault("notifyRetries", 3)
	conf.SetDefault("notifyRetryDelay", 2*time.Second)
	conf.SetDefault("telegramBotToken", "")
	conf.SetDefault("telegramChatID", "")
	conf.SetDefault("sendgridApiKey", "")
	conf.SetDefault("defaultFromEmail", "noreply@localhost")
	conf.SetDefault("notifyEmailTo", "")

	conf.SetDefault("logLevel", "debug")
	conf.SetDefault("logPretty", true)
	conf.SetDefault("rollbarToken", "")

	env := strings.ToUpper(os.Getenv("ENV")) // DEV (local; default), TEST, QA, PROD
	switch env {
	case "":
		env = "DEV"
	case "TEST":
		conf.SetDefault("testMode", true)
	}
	conf.SetEnvPrefix(env)

	// load .env if it exists (ignore if it does not)
	workDir := Getwd()
	dotEnvPath := filepath.Join(workDir, "config", ".env."+strings.ToLower(env))
	if _, err := os.Stat(dotEnvPath); err == nil {
		if err := godotenv.Load(dotEnvPath); err != nil {
			log.Fatalf("config.godotenv(%s): %v", dotEnvPath, err)
		}
	} else if !os.IsNotExist(err) {
		log.Fatalf("config.os.Stat(%s): %v", dotEnvPath, err)
	}
	conf.AutomaticEnv()

	return &Config{
		Debug:     conf.GetBool("debug"),
		TestMode:  conf.GetBool("testMode"),
		AppName:   conf.GetString("appName"),
		Env:       env,
		Build:     conf.GetString("build"),
		SecretKey: conf.GetString("secretKey"),
		WorkDir:   workDir,
		Server: ServerConfig{
			Host:               conf.GetString("serverHost"),
			Address:            conf.GetString("serverAddress"),
			DebugHost:          conf.GetString("debugHost"),
			ShutdownTimeout:    conf.GetDuration("shutdownTimeout"),
			JWTExpirationDelta: conf.GetDuration("jwtExpirationDelta"),
		},
		Store: StoreConfig{
			Driver: strings.ToLower(conf.GetString("storeDriver")),
			Dir:    conf.GetString("storeDir"),
			Prefix: conf.GetString("storePrefix"),
		},
		Database: DatabaseConfig{
			Engine:        conf.GetString("dbEngine"),
			Host:          conf.GetString("dbHost"),
			Port:          conf.GetInt("dbPort"),
			Name:          conf.GetString("dbName"),
			User:          conf.GetString("dbUser"),
			Password:      conf.GetString("dbPassword"),
			AdminUser:     conf.GetString("dbAdminUser"),
			AdminPassword: conf.GetString("dbAdminPassword"),
			DisableTLS:    conf.GetBool("dbDisableTLS"),
		},
		Notify: NotifyConfig{
			Driver:           strings.ToLower(conf.GetString("notifyDriver")),
			Retries:          conf.GetInt("notifyRetries"),
			RetryDelay:       conf.GetDuration("notifyRetryDelay"),
			TelegramBotToken: conf.GetString("telegramBotToken"),
			TelegramChatID:   conf.GetString("telegramChatID"),
			SendgridAPIKey:   conf.GetString("sendgridApiKey"),
			DefaultFromEmail: conf.GetString("defaultFromEmail"),
			EmailTo:          conf.GetString("notifyEmailTo"),
		},
		Log: LogConfig{
			Level:        conf.GetString("logLevel"),
			Pretty:       conf.GetBool("logPretty"),
			RollbarToken: conf.GetString("rollbarToken"),
		},
	}
}

// NewTestConfig returns the configuration used by tests. It never reads the environment.
func NewTestConfig() *Config {
	return &Config{
		Debug:     true,
		TestMode:  true,
		AppName:   "Davomat",
		Env:       "TEST",
		Build:     "test",
		SecretKey: "test-secret",
		Server: ServerConfig{
			Address:            ":0",
			ShutdownTimeout:    time.Second,
			JWTExpirationDelta: time.Hour,
		},
		Store:  StoreConfig{Driver: "memory", Prefix: "kindergarten_srm_"},
		Notify: NotifyConfig{Driver: "console"},
		Log:    LogConfig{Level: "disabled"},
	}
}
