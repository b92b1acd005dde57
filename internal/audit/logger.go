package audit

import (
	"strings"

	"github.com/rs/zerolog"
)

// Logger records auth business events (register, login, link, unlink, ...)
// as structured log lines tagged audit=true. The service receives just the
// Emit func, keeping the application layer free of logging imports.
type Logger struct {
	log zerolog.Logger
}

func New(log zerolog.Logger) *Logger {
	return &Logger{log: log.With().Bool("audit", true).Logger()}
}

// Emit writes one event. Email values are masked before logging.
func (l *Logger) Emit(action string, fields map[string]string) {
	evt := l.log.Info().Str("action", action)
	for k, v := range fields {
		if k == "email" {
			v = maskEmail(v)
		}
		evt = evt.Str(k, v)
	}
	evt.Msg("audit event")
}

func maskEmail(email string) string {
	at := strings.IndexByte(email, '@')
	if len(email) < 5 || at < 2 {
		return "***"
	}
	return email[:2] + "***" + email[at:]
}
