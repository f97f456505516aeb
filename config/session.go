package config

import (
	"github.com/spf13/viper"
)

// SessionConfiguration defines the session store settings
type SessionConfiguration struct {
	RedisURL          string
	JanitorEnabled    bool
	JanitorIntervalH  int
	AbandonedAfterDay int
}

// SessionConfig sets the session store configurations
func SessionConfig() *SessionConfiguration {
	viper.SetDefault("REDIS_URL", "redis://localhost:6379")
	viper.SetDefault("SESSION_JANITOR_ENABLED", true)
	viper.SetDefault("SESSION_JANITOR_INTERVAL_HOURS", 24)
	viper.SetDefault("SESSION_ABANDONED_AFTER_DAYS", 30)

	return &SessionConfiguration{
		RedisURL:          viper.GetString("REDIS_URL"),
		JanitorEnabled:    viper.GetBool("SESSION_JANITOR_ENABLED"),
		JanitorIntervalH:  viper.GetInt("SESSION_JANITOR_INTERVAL_HOURS"),
		AbandonedAfterDay: viper.GetInt("SESSION_ABANDONED_AFTER_DAYS"),
	}
}
