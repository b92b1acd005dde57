package memory

import (
	"context"

	"github.com/omnisphere/auth-service/internal/application/auth"
	"github.com/omnisphere/auth-service/internal/logger"
)

// NoopPublisher stands in for the broker in dev and tests. Events are
// logged so a reset code is still discoverable when running standalone.
type NoopPublisher struct{}

func NewNoopPublisher() *NoopPublisher { return &NoopPublisher{} }

func (p *NoopPublisher) PublishConfirmationCode(ctx context.Context, evt auth.ConfirmationCodeEvent) error {
	logger.WithCtx(ctx).Info().
		Str("user_id", evt.UserID).
		Str("email", evt.Email).
		Str("code", evt.Code).
		Msg("confirmation code event dropped, broker disabled")
	return nil
}

func (p *NoopPublisher) PublishAvatarCleanup(ctx context.Context, evt auth.AvatarCleanupEvent) error {
	logger.WithCtx(ctx).Info().
		Str("user_id", evt.UserID).
		Str("avatar_id", evt.AvatarID).
		Msg("avatar cleanup event dropped, broker disabled")
	return nil
}
