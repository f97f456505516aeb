package config

import (
	"time"

	"github.com/spf13/viper"
)

// EnrichmentConfiguration defines the enrichment/OCR provider settings
type EnrichmentConfiguration struct {
	BaseURL        string
	Timeout        time.Duration
	DebounceWindow time.Duration
}

// EnrichmentConfig sets the enrichment provider configurations
func EnrichmentConfig() *EnrichmentConfiguration {
	viper.SetDefault("ENRICHMENT_BASE_URL", "https://oculon.carepay.money")
	viper.SetDefault("ENRICHMENT_TIMEOUT", 30)
	viper.SetDefault("ENRICHMENT_DEBOUNCE_MS", 1000)

	return &EnrichmentConfiguration{
		BaseURL:        viper.GetString("ENRICHMENT_BASE_URL"),
		Timeout:        time.Duration(viper.GetInt("ENRICHMENT_TIMEOUT")) * time.Second,
		DebounceWindow: time.Duration(viper.GetInt("ENRICHMENT_DEBOUNCE_MS")) * time.Millisecond,
	}
}
