package notify

import "context"

// Notifier delivers one-time codes out of band. Delivery is fire-and-forget
// from the account service's perspective; failures are logged, never
// propagated to the request.
type Notifier interface {
	SendEmail(ctx context.Context, toEmail, subject, body string) error
	SendSMS(ctx context.Context, toPhone, message string) error
}

// Sender composes the concrete delivery clients. Either client may be nil
// when the channel is disabled, in which case sends are silently skipped.
type Sender struct {
	Email *BrevoClient
	SMS   *TwilioClient
}

func (s *Sender) SendEmail(ctx context.Context, toEmail, subject, body string) error {
	if s == nil || s.Email == nil {
		return nil
	}
	return s.Email.Send(ctx, toEmail, subject, body)
}

func (s *Sender) SendSMS(ctx context.Context, toPhone, message string) error {
	if s == nil || s.SMS == nil {
		return nil
	}
	return s.SMS.Send(ctx, toPhone, message)
}
