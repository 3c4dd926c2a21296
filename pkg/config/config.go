package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

const (
	DriverMongo    = "mongo"
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
	DriverMemory   = "memory"
)

type AppConfig struct {
	Port             string        `mapstructure:"PORT"`
	AppEnv           string        `mapstructure:"APP_ENV"`
	StoreDriver      string        `mapstructure:"STORE_DRIVER"`
	DatabaseURL      string        `mapstructure:"DATABASE_URL"`
	DatabaseName     string        `mapstructure:"DATABASE_NAME"`
	RabbitMQURL      string        `mapstructure:"RABBITMQ_URL"`
	ServiceName      string        `mapstructure:"SERVICE_NAME"`
	AWSEndpoint      string        `mapstructure:"AWS_ENDPOINT"`
	AWSBucket        string        `mapstructure:"AWS_BUCKET"`
	AWSDefaultRegion string        `mapstructure:"AWS_DEFAULT_REGION"`
	AWSAccessKey     string        `mapstructure:"AWS_ACCESS_KEY"`
	AWSSecretKey     string        `mapstructure:"AWS_SECRET_KEY"`
	GRPCPort         string        `mapstructure:"GRPC_PORT"`
	ClickTimeout     time.Duration `mapstructure:"CLICK_TIMEOUT"`
}

// StoreConfigured reports whether enough is set to open a document store.
// The memory driver needs nothing.
func (c *AppConfig) StoreConfigured() bool {
	return c.StoreDriver == DriverMemory || c.DatabaseURL != ""
}

func (c *AppConfig) IsProduction() bool {
	return c.AppEnv == "production"
}

func Read() *AppConfig {
	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	_ = v.ReadInConfig()

	v.AutomaticEnv()

	bindEnvVariables(v)
	setDefaults(v)

	var appConfig AppConfig
	err := v.Unmarshal(&appConfig)
	if err != nil {
		panic(fmt.Errorf("fatal error unmarshalling config: %w", err))
	}

	return &appConfig
}

func bindEnvVariables(v *viper.Viper) {
	_ = v.BindEnv("PORT")
	_ = v.BindEnv("APP_ENV")
	_ = v.BindEnv("STORE_DRIVER")
	_ = v.BindEnv("DATABASE_URL")
	_ = v.BindEnv("DATABASE_NAME")
	_ = v.BindEnv("RABBITMQ_URL")
	_ = v.BindEnv("SERVICE_NAME")
	_ = v.BindEnv("AWS_ENDPOINT")
	_ = v.BindEnv("AWS_BUCKET")
	_ = v.BindEnv("AWS_DEFAULT_REGION")
	_ = v.BindEnv("AWS_ACCESS_KEY")
	_ = v.BindEnv("AWS_SECRET_KEY")
	_ = v.BindEnv("GRPC_PORT")
	_ = v.BindEnv("CLICK_TIMEOUT")
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("PORT", "8000")
	v.SetDefault("APP_ENV", "development")
	v.SetDefault("STORE_DRIVER", DriverMongo)
	v.SetDefault("SERVICE_NAME", "affiliate")
	v.SetDefault("GRPC_PORT", "9090")
	v.SetDefault("CLICK_TIMEOUT", "5s")
}
