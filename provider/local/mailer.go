package local

import (
	"context"
	"fmt"

	auth "github.com/campusconnect/go-campus-auth"
)

// LogMailer writes verification links to the log instead of delivering
// mail. It is the default mailer; useful for development.
type LogMailer struct {
	Logger auth.Logger
}

var _ auth.Mailer = (*LogMailer)(nil)

func (m *LogMailer) SendVerification(ctx context.Context, email, link string) error {
	logger := m.Logger
	if logger == nil {
		logger = defLogger{}
	}
	logger.Info("verification link for %s: %s", email, link)
	return nil
}

type defLogger struct{}

func (d defLogger) Error(format string, args ...any) {
	fmt.Printf("[ERR] LOCAL "+newline(format), args...)
}

func (d defLogger) Warn(format string, args ...any) {
	fmt.Printf("[WRN] LOCAL "+newline(format), args...)
}

func (d defLogger) Info(format string, args ...any) {
	fmt.Printf("[INF] LOCAL "+newline(format), args...)
}

func (d defLogger) Debug(format string, args ...any) {
	fmt.Printf("[DBG] LOCAL "+newline(format), args...)
}

func newline(s string) string {
	if len(s) > 0 && s[len(s)-1] != '\n' {
		s += "\n"
	}
	return s
}
