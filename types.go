package auth

import (
	"context"
	"fmt"
)

type Logger interface {
	Debug(format string, args ...any)
	Info(format string, args ...any)
	Warn(format string, args ...any)
	Error(format string, args ...any)
}

// Config holds the process configuration. It is built once at startup and
// passed explicitly into the token service, credential hashing, and the
// elevation check; nothing re-reads the environment per call.
type Config interface {
	GetSigningKey() string
	GetHashCost() int
	GetAdminUname() string
	GetBindAddress() string
	GetDSN() string
	GetPoolWorkers() int
	GetPoolBacklog() int
}

// Mailer dispatches account emails. Delivery is an external collaborator;
// handlers only hand over the recipient, username and signed token.
type Mailer interface {
	SendConfirmEmail(ctx context.Context, email, uname, token string) error
	SendResetEmail(ctx context.Context, email, uname, token string) error
}

type defLogger struct{}

func (d defLogger) Error(format string, args ...any) {
	fmt.Printf("[ERR] AUTH "+newline(format), args...)
}

func (d defLogger) Warn(format string, args ...any) {
	fmt.Printf("[WRN] AUTH "+newline(format), args...)
}

func (d defLogger) Info(format string, args ...any) {
	fmt.Printf("[INF] AUTH "+newline(format), args...)
}

func (d defLogger) Debug(format string, args ...any) {
	fmt.Printf("[DBG] AUTH "+newline(format), args...)
}

func newline(s string) string {
	if len(s) > 0 && s[len(s)-1] != '\n' {
		s += "\n"
	}
	return s
}

type logMailer struct {
	logger Logger
}

// NewLogMailer returns a Mailer that only logs the links it would send.
// Default until a real sender is wired in.
func NewLogMailer(logger Logger) Mailer {
	if logger == nil {
		logger = defLogger{}
	}
	return &logMailer{logger: logger}
}

func (m *logMailer) SendConfirmEmail(ctx context.Context, email, uname, token string) error {
	m.logger.Info("confirm email for %s <%s> link: /confirm/%s", uname, email, EnBase64(token))
	return nil
}

func (m *logMailer) SendResetEmail(ctx context.Context, email, uname, token string) error {
	m.logger.Info("reset email for %s <%s> link: /api/reset/%s", uname, email, EnBase64(token))
	return nil
}
