package config

import (
	"fmt"
	"os"

	"github.com/spf13/viper"
)

// Configuration groups every per-concern configuration section.
type Configuration struct {
	Server       ServerConfiguration
	Gateway      GatewayConfiguration
	Enrichment   EnrichmentConfiguration
	Session      SessionConfiguration
	Notification NotificationConfiguration
}

// SetupConfig loads the .env file (when present) and environment variables
// into viper. A missing .env file is not fatal; the process environment is
// used on its own.
func SetupConfig() error {
	var configuration *Configuration

	viper.AddConfigPath("../../..")
	viper.AddConfigPath("../..")
	viper.AddConfigPath("..")
	viper.AddConfigPath(".")

	envFilePath := os.Getenv("ENV_FILE_PATH")
	if envFilePath == "" {
		envFilePath = ".env"
	}

	viper.SetConfigName(envFilePath)
	viper.SetConfigType("env")

	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		if _, notFound := err.(viper.ConfigFileNotFoundError); !notFound && !os.IsNotExist(err) {
			fmt.Printf("Error reading config file, %s", err)
			return err
		}
	}

	if err := viper.Unmarshal(&configuration); err != nil {
		fmt.Printf("error to decode, %v", err)
		return err
	}

	return nil
}

func init() {
	if err := SetupConfig(); err != nil {
		panic(fmt.Sprintf("config SetupConfig() error: %s", err))
	}
}
