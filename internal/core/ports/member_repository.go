package ports

import (
	"context"

	"github.com/maccoykevin921-crypto/vino-membership-api/internal/core/domain"
)

// MemberRepository persists membership records.
//
// Implementations must keep emails unique: Create returns domain.ErrUserExists
// when the email is taken, and FindByEmail/Activate return
// domain.ErrUserNotFound for unknown emails.
type MemberRepository interface {
	FindByEmail(ctx context.Context, email string) (*domain.User, error)
	Create(ctx context.Context, user *domain.User) error
	Activate(ctx context.Context, email string) error
}
