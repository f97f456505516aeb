package services

import (
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"

	"github.com/carepay/onboarding/config"
)

var validate = validator.New()

// EmailService sends operational notifications through SendGrid.
type EmailService struct {
	conf *config.NotificationConfiguration
}

// NewEmailService creates an email notification service.
func NewEmailService() *EmailService {
	return &EmailService{
		conf: config.NotificationConfig(),
	}
}

// NotifyOnboardingComplete tells the operations inbox that a subject
// finished the wizard. Best effort; callers log and move on.
func (s *EmailService) NotifyOnboardingComplete(subjectID, name, mobileNumber string) error {
	if !s.conf.NotifyOnComplete {
		return nil
	}

	if err := validate.Var(s.conf.EmailFromAddress, "required,email"); err != nil {
		return fmt.Errorf("invalid sender address: %w", err)
	}

	subject := fmt.Sprintf("Onboarding completed: %s", subjectID)
	body := fmt.Sprintf(
		"Onboarding contract step completed.\n\nSubject: %s\nName: %s\nMobile: %s\n",
		subjectID, name, mobileNumber,
	)

	message := mail.NewSingleEmail(
		mail.NewEmail("CarePay Onboarding", s.conf.EmailFromAddress),
		subject,
		mail.NewEmail("", s.conf.OnboardingInbox),
		body,
		"",
	)

	client := sendgrid.NewSendClient(s.conf.EmailAPIKey)
	res, err := client.Send(message)
	if err != nil {
		return fmt.Errorf("failed to send notification email: %w", err)
	}
	if res.StatusCode >= 400 {
		return fmt.Errorf("notification email rejected with status %d", res.StatusCode)
	}
	return nil
}
