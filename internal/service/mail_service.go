package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/elimu-labs/elimu-api/internal/models"
	"github.com/elimu-labs/elimu-api/pkg/jobs"
	"github.com/elimu-labs/elimu-api/pkg/mail"
)

// MailService dispatches transactional email through a background queue so
// request handlers never block on the provider.
type MailService struct {
	mailer      mail.Mailer
	queue       *jobs.Queue
	logger      *zap.Logger
	frontendURL string
}

// NewMailService constructs the service and its dispatch queue.
func NewMailService(mailer mail.Mailer, logger *zap.Logger, frontendURL string, cfg jobs.QueueConfig) *MailService {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &MailService{
		mailer:      mailer,
		logger:      logger,
		frontendURL: frontendURL,
	}
	cfg.Logger = logger
	s.queue = jobs.NewQueue("mail", s.deliver, cfg)
	return s
}

// Start launches the queue workers.
func (s *MailService) Start(ctx context.Context) {
	s.queue.Start(ctx)
}

// Stop drains the queue workers.
func (s *MailService) Stop() {
	s.queue.Stop()
}

func (s *MailService) deliver(ctx context.Context, job jobs.Job) error {
	msg, ok := job.Payload.(mail.Message)
	if !ok {
		s.logger.Error("mail job carried unexpected payload", zap.String("job_id", job.ID))
		return nil
	}
	return s.mailer.Send(ctx, msg)
}

func (s *MailService) enqueue(kind string, msg mail.Message) {
	err := s.queue.Enqueue(jobs.Job{
		ID:      uuid.NewString(),
		Type:    kind,
		Payload: msg,
	})
	if err != nil {
		s.logger.Warn("failed to enqueue mail",
			zap.String("kind", kind),
			zap.String("to", msg.ToAddress),
			zap.Error(err))
	}
}

// SendVerification emails the address confirmation link.
func (s *MailService) SendVerification(user models.User, token string) {
	link := fmt.Sprintf("%s/verify-email?token=%s", s.frontendURL, token)
	s.enqueue("email_verify", mail.Message{
		ToAddress: user.Email,
		ToName:    user.FullName,
		Subject:   "Verify your email address",
		TextBody:  fmt.Sprintf("Hello %s,\n\nPlease confirm your email address by visiting:\n%s\n\nIf you did not create this account you can ignore this message.", user.FullName, link),
		HTMLBody:  fmt.Sprintf(`<p>Hello %s,</p><p>Please confirm your email address by clicking <a href=%q>this link</a>.</p><p>If you did not create this account you can ignore this message.</p>`, user.FullName, link),
	})
}

// SendPasswordReset emails the reset link.
func (s *MailService) SendPasswordReset(user models.User, token string) {
	link := fmt.Sprintf("%s/reset-password?token=%s", s.frontendURL, token)
	s.enqueue("password_reset", mail.Message{
		ToAddress: user.Email,
		ToName:    user.FullName,
		Subject:   "Reset your password",
		TextBody:  fmt.Sprintf("Hello %s,\n\nA password reset was requested for your account. Visit:\n%s\n\nThe link expires shortly. If you did not request this, ignore this message.", user.FullName, link),
		HTMLBody:  fmt.Sprintf(`<p>Hello %s,</p><p>A password reset was requested for your account. Click <a href=%q>this link</a> to choose a new password.</p><p>The link expires shortly. If you did not request this, ignore this message.</p>`, user.FullName, link),
	})
}

// SendApprovalNotice tells a user their account was activated.
func (s *MailService) SendApprovalNotice(user models.User) {
	s.enqueue("account_approved", mail.Message{
		ToAddress: user.Email,
		ToName:    user.FullName,
		Subject:   "Your account has been approved",
		TextBody:  fmt.Sprintf("Hello %s,\n\nYour account has been approved. You can now sign in at %s.", user.FullName, s.frontendURL),
		HTMLBody:  fmt.Sprintf(`<p>Hello %s,</p><p>Your account has been approved. You can now <a href=%q>sign in</a>.</p>`, user.FullName, s.frontendURL),
	})
}
