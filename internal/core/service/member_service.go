package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/maccoykevin921-crypto/vino-membership-api/internal/core/domain"
	"github.com/maccoykevin921-crypto/vino-membership-api/internal/core/ports"
)

// PasswordHasher abstracts credential hashing (bcrypt or argon2).
type PasswordHasher interface {
	Hash(plain string) (string, error)
	Verify(hash, plain string) bool
}

// MemberService implements registration, login, activation and the face
// verification stub.
type MemberService struct {
	repo   ports.MemberRepository
	hasher PasswordHasher
	log    zerolog.Logger
	now    func() time.Time
}

func NewMemberService(repo ports.MemberRepository, hasher PasswordHasher, log zerolog.Logger) *MemberService {
	return &MemberService{
		repo:   repo,
		hasher: hasher,
		log:    log,
		now:    time.Now,
	}
}

// Register creates an inactive member. The email is checked before hashing so
// duplicates are rejected without paying the hash cost; the repository checks
// again when it appends.
func (s *MemberService) Register(ctx context.Context, in ports.RegisterInput) error {
	if in.Email == "" || in.Password == "" {
		return domain.ErrMissingFields
	}

	_, err := s.repo.FindByEmail(ctx, in.Email)
	switch {
	case err == nil:
		return domain.ErrUserExists
	case !errors.Is(err, domain.ErrUserNotFound):
		return fmt.Errorf("register: %w", err)
	}

	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return fmt.Errorf("register: %w", err)
	}

	user := &domain.User{
		Email:        in.Email,
		Name:         in.Name,
		PasswordHash: hash,
		Active:       false,
		Registered:   s.now().UTC(),
	}
	if err := s.repo.Create(ctx, user); err != nil {
		if errors.Is(err, domain.ErrUserExists) {
			return err
		}
		return fmt.Errorf("register: %w", err)
	}

	s.log.Info().Str("event", "register").Str("email", in.Email).Msg("member registered")
	return nil
}

// Login checks the credentials and returns the stored member.
func (s *MemberService) Login(ctx context.Context, email, password string) (*domain.User, error) {
	if email == "" || password == "" {
		return nil, domain.ErrMissingFields
	}

	user, err := s.repo.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("login: %w", err)
	}

	if !s.hasher.Verify(user.PasswordHash, password) {
		return nil, domain.ErrInvalidPassword
	}

	s.log.Info().Str("event", "login").Str("email", email).Msg("member logged in")
	return user, nil
}

// Activate marks the member as paid. The caller is trusted; no payment is
// verified here.
func (s *MemberService) Activate(ctx context.Context, email string) error {
	if email == "" {
		return domain.ErrMissingFields
	}

	if err := s.repo.Activate(ctx, email); err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return err
		}
		return fmt.Errorf("activate: %w", err)
	}

	s.log.Info().Str("event", "activate").Str("email", email).Msg("member activated")
	return nil
}

// VerifyFace is a placeholder: it performs no lookup and always succeeds.
func (s *MemberService) VerifyFace(_ context.Context, email string) error {
	s.log.Info().Str("event", "face_auth").Str("email", email).Msg("face verification requested")
	return nil
}
