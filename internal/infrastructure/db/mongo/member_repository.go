package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/maccoykevin921-crypto/vino-membership-api/internal/core/domain"
)

const membersCollection = "members"

// MemberRepository implements ports.MemberRepository on a MongoDB collection.
// Email uniqueness is enforced by a unique index.
type MemberRepository struct {
	coll *mongo.Collection
}

// NewMemberRepository returns a repository and makes sure the unique email
// index exists.
func NewMemberRepository(ctx context.Context, db *mongo.Database) (*MemberRepository, error) {
	coll := db.Collection(membersCollection)

	_, err := coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "email", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return nil, fmt.Errorf("create members index: %w", err)
	}

	return &MemberRepository{coll: coll}, nil
}

type mongoMember struct {
	ID         primitive.ObjectID `bson:"_id,omitempty"`
	Email      string             `bson:"email"`
	Name       *string            `bson:"name,omitempty"`
	Password   string             `bson:"password"`
	Active     bool               `bson:"active"`
	Registered time.Time          `bson:"registered"`
}

func (r *MemberRepository) FindByEmail(ctx context.Context, email string) (*domain.User, error) {
	var mm mongoMember
	if err := r.coll.FindOne(ctx, bson.M{"email": email}).Decode(&mm); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrUserNotFound
		}
		return nil, fmt.Errorf("find member: %w", err)
	}

	return &domain.User{
		Email:        mm.Email,
		Name:         mm.Name,
		PasswordHash: mm.Password,
		Active:       mm.Active,
		Registered:   mm.Registered.UTC(),
	}, nil
}

func (r *MemberRepository) Create(ctx context.Context, user *domain.User) error {
	doc := mongoMember{
		Email:      user.Email,
		Name:       user.Name,
		Password:   user.PasswordHash,
		Active:     user.Active,
		Registered: user.Registered.UTC(),
	}

	if _, err := r.coll.InsertOne(ctx, doc); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return domain.ErrUserExists
		}
		return fmt.Errorf("insert member: %w", err)
	}
	return nil
}

func (r *MemberRepository) Activate(ctx context.Context, email string) error {
	res, err := r.coll.UpdateOne(ctx, bson.M{"email": email}, bson.M{"$set": bson.M{"active": true}})
	if err != nil {
		return fmt.Errorf("activate member: %w", err)
	}
	if res.MatchedCount == 0 {
		return domain.ErrUserNotFound
	}
	return nil
}

// Ping checks connectivity to the server backing the collection.
func (r *MemberRepository) Ping(ctx context.Context) error {
	if err := r.coll.Database().Client().Ping(ctx, nil); err != nil {
		return fmt.Errorf("mongo ping: %w", err)
	}
	return nil
}
