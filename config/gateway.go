package config

import (
	"time"

	"github.com/spf13/viper"
)

// GatewayConfiguration defines the core backend gateway settings
type GatewayConfiguration struct {
	BaseURL string
	Timeout time.Duration

	// Upload limits, in bytes
	MaxIdentityDocSize int64
	MaxCertificateSize int64
	MaxChequeSize      int64
}

// GatewayConfig sets the core backend gateway configurations
func GatewayConfig() *GatewayConfiguration {
	viper.SetDefault("GATEWAY_BASE_URL", "https://backend.carepay.money")
	viper.SetDefault("GATEWAY_TIMEOUT", 30)
	viper.SetDefault("MAX_IDENTITY_DOC_SIZE", 5*1024*1024)
	viper.SetDefault("MAX_CERTIFICATE_SIZE", 10*1024*1024)
	viper.SetDefault("MAX_CHEQUE_SIZE", 10*1024*1024)

	return &GatewayConfiguration{
		BaseURL:            viper.GetString("GATEWAY_BASE_URL"),
		Timeout:            time.Duration(viper.GetInt("GATEWAY_TIMEOUT")) * time.Second,
		MaxIdentityDocSize: viper.GetInt64("MAX_IDENTITY_DOC_SIZE"),
		MaxCertificateSize: viper.GetInt64("MAX_CERTIFICATE_SIZE"),
		MaxChequeSize:      viper.GetInt64("MAX_CHEQUE_SIZE"),
	}
}
