// Package notify holds delivery transports for one-time codes. The real
// email/SMS gateway lives outside this service; LogNotifier is the local
// stand-in used in development and tests.
package notify

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/mesaops/identity-api/internal/core/domain"
)

// LogNotifier writes codes to the log instead of delivering them.
type LogNotifier struct {
	log zerolog.Logger
}

func NewLogNotifier(log zerolog.Logger) *LogNotifier {
	return &LogNotifier{log: log}
}

func (n *LogNotifier) DeliverCode(_ context.Context, userID, email string, purpose domain.OTPPurpose, code string) error {
	n.log.Info().
		Str("user_id", userID).
		Str("email", email).
		Str("purpose", string(purpose)).
		Str("code", code).
		Msg("otp code (log delivery)")
	return nil
}
