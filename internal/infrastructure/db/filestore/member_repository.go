package filestore

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/maccoykevin921-crypto/vino-membership-api/internal/core/domain"
)

// MemberRepository implements ports.MemberRepository on top of a Document.
// Every call loads the full collection; mutations rewrite it in full.
type MemberRepository struct {
	doc    *Document
	locker Locker
}

// NewMemberRepository returns a repository for the document at path. A nil
// locker falls back to an in-process mutex.
func NewMemberRepository(path string, locker Locker) *MemberRepository {
	if locker == nil {
		locker = &MutexLocker{}
	}
	return &MemberRepository{doc: NewDocument(path), locker: locker}
}

func (r *MemberRepository) FindByEmail(ctx context.Context, email string) (*domain.User, error) {
	var found *domain.User
	err := r.withLock(ctx, func() error {
		records, err := r.doc.Load()
		if err != nil {
			return err
		}
		i := indexOf(records, email)
		if i < 0 {
			return domain.ErrUserNotFound
		}
		found, err = records[i].toDomain()
		return err
	})
	if err != nil {
		return nil, err
	}
	return found, nil
}

func (r *MemberRepository) Create(ctx context.Context, user *domain.User) error {
	return r.withLock(ctx, func() error {
		records, err := r.doc.Load()
		if err != nil {
			return err
		}
		if indexOf(records, user.Email) >= 0 {
			return domain.ErrUserExists
		}
		return r.doc.Save(append(records, toRecord(user)))
	})
}

func (r *MemberRepository) Activate(ctx context.Context, email string) error {
	return r.withLock(ctx, func() error {
		records, err := r.doc.Load()
		if err != nil {
			return err
		}
		i := indexOf(records, email)
		if i < 0 {
			return domain.ErrUserNotFound
		}
		records[i].Active = true
		return r.doc.Save(records)
	})
}

// Ping reports whether the document's directory is reachable and the document,
// if present, is a regular file.
func (r *MemberRepository) Ping(_ context.Context) error {
	dir := filepath.Dir(r.doc.Path())
	fi, err := os.Stat(dir)
	if err != nil {
		return fmt.Errorf("storage dir: %w", err)
	}
	if !fi.IsDir() {
		return fmt.Errorf("storage dir %s is not a directory", dir)
	}
	if fi, err := os.Stat(r.doc.Path()); err == nil && !fi.Mode().IsRegular() {
		return fmt.Errorf("storage document %s is not a regular file", r.doc.Path())
	}
	return nil
}

func (r *MemberRepository) withLock(ctx context.Context, fn func() error) error {
	unlock, err := r.locker.Lock(ctx)
	if err != nil {
		return fmt.Errorf("lock storage: %w", err)
	}
	defer unlock()
	return fn()
}

func indexOf(records []record, email string) int {
	for i, rec := range records {
		if rec.Email == email {
			return i
		}
	}
	return -1
}
