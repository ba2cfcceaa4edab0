package ports

import (
	"context"

	"github.com/maccoykevin921-crypto/vino-membership-api/internal/core/domain"
)

// RegisterInput carries the registration payload. Name is nil when absent.
type RegisterInput struct {
	Email    string
	Name     *string
	Password string
}

// MemberService defines the membership use cases.
type MemberService interface {
	Register(ctx context.Context, input RegisterInput) error
	Login(ctx context.Context, email, password string) (*domain.User, error)
	Activate(ctx context.Context, email string) error
	VerifyFace(ctx context.Context, email string) error
}
