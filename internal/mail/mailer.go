package mail

import "go.uber.org/zap"

// Mailer delivers account emails. The log implementation stands in until
// an SMTP provider is configured for the deployment.
type Mailer interface {
	SendOTP(to string, otp string) error
	SendResetSuccess(to string) error
}

type logMailer struct {
	logger *zap.Logger
}

func NewLogMailer(logger *zap.Logger) Mailer {
	return &logMailer{logger: logger}
}

func (m *logMailer) SendOTP(to string, otp string) error {
	m.logger.Info("password reset otp issued", zap.String("to", to), zap.String("otp", otp))
	return nil
}

func (m *logMailer) SendResetSuccess(to string) error {
	m.logger.Info("password reset confirmed", zap.String("to", to))
	return nil
}
