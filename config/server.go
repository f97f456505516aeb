package config

import (
	"time"

	"github.com/spf13/viper"
)

// ServerConfiguration defines the HTTP server settings
type ServerConfiguration struct {
	Debug                    bool
	Host                     string
	Port                     string
	Timezone                 string
	Environment              string
	SentryDSN                string
	AllowedHosts             string
	RateLimitUnauthenticated int
	RateLimitAuthenticated   int

	// Session token config
	SessionSecret   string
	SessionLifespan time.Duration
}

// ServerConfig sets the server configuration
func ServerConfig() *ServerConfiguration {
	viper.SetDefault("DEBUG", true)
	viper.SetDefault("SERVER_HOST", "0.0.0.0")
	viper.SetDefault("SERVER_PORT", "8000")
	viper.SetDefault("SERVER_TIMEZONE", "Asia/Kolkata")
	viper.SetDefault("ENVIRONMENT", "local")
	viper.SetDefault("ALLOWED_HOSTS", "*")
	viper.SetDefault("RATE_LIMIT_UNAUTHENTICATED", 5)
	viper.SetDefault("RATE_LIMIT_AUTHENTICATED", 20)
	viper.SetDefault("SESSION_SECRET", "onboarding-session-secret")
	viper.SetDefault("SESSION_LIFESPAN", 10080) // 7 days

	return &ServerConfiguration{
		Debug:                    viper.GetBool("DEBUG"),
		Host:                     viper.GetString("SERVER_HOST"),
		Port:                     viper.GetString("SERVER_PORT"),
		Timezone:                 viper.GetString("SERVER_TIMEZONE"),
		Environment:              viper.GetString("ENVIRONMENT"),
		SentryDSN:                viper.GetString("SENTRY_DSN"),
		AllowedHosts:             viper.GetString("ALLOWED_HOSTS"),
		RateLimitUnauthenticated: viper.GetInt("RATE_LIMIT_UNAUTHENTICATED"),
		RateLimitAuthenticated:   viper.GetInt("RATE_LIMIT_AUTHENTICATED"),
		SessionSecret:            viper.GetString("SESSION_SECRET"),
		SessionLifespan:          time.Duration(viper.GetInt("SESSION_LIFESPAN")) * time.Minute,
	}
}
