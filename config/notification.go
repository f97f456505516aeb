package config

import (
	"github.com/spf13/viper"
)

// NotificationConfiguration defines the email service configurations
type NotificationConfiguration struct {
	EmailAPIKey       string
	EmailFromAddress  string
	OnboardingInbox   string
	NotifyOnComplete  bool
}

// NotificationConfig sets the email configurations
func NotificationConfig() (config *NotificationConfiguration) {
	viper.SetDefault("EMAIL_FROM_ADDRESS", "no-reply@carepay.money")
	viper.SetDefault("ONBOARDING_INBOX", "onboarding@carepay.money")
	viper.SetDefault("NOTIFY_ON_COMPLETE", false)

	return &NotificationConfiguration{
		EmailAPIKey:      viper.GetString("EMAIL_API_KEY"),
		EmailFromAddress: viper.GetString("EMAIL_FROM_ADDRESS"),
		OnboardingInbox:  viper.GetString("ONBOARDING_INBOX"),
		NotifyOnComplete: viper.GetBool("NOTIFY_ON_COMPLETE"),
	}
}
