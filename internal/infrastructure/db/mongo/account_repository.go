package mongo

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/linkloot/affiliate-api/internal/core/domain"
)

const (
	indexUserEmail    = "email_unique"
	indexUserUsername = "username_unique"
)

type AccountRepository struct {
	coll *mongo.Collection
}

func NewAccountRepository(db *mongo.Database) *AccountRepository {
	return &AccountRepository{coll: db.Collection(collectionUsers)}
}

type mongoUser struct {
	ID              primitive.ObjectID `bson:"_id,omitempty"`
	Email           string             `bson:"email"`
	Username        string             `bson:"username"`
	PasswordHash    string             `bson:"password"`
	AvailablePoints int64              `bson:"availablePoints"`
	PendingPoints   int64              `bson:"pendingPoints"`
	PayoutID        string             `bson:"gpayId"`
	CreatedAt       time.Time          `bson:"createdAt"`
}

func (mu *mongoUser) toDomain() *domain.User {
	return &domain.User{
		ID:              mu.ID.Hex(),
		Email:           mu.Email,
		Username:        mu.Username,
		PasswordHash:    mu.PasswordHash,
		AvailablePoints: mu.AvailablePoints,
		PendingPoints:   mu.PendingPoints,
		PayoutID:        mu.PayoutID,
		CreatedAt:       mu.CreatedAt.UTC(),
	}
}

// Create inserts a user. Uniqueness of email and username is enforced by the
// collection's unique indexes, so concurrent duplicate signups cannot both succeed.
func (r *AccountRepository) Create(ctx context.Context, user *domain.User) (*domain.User, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	doc := mongoUser{
		Email:        user.Email,
		Username:     user.Username,
		PasswordHash: user.PasswordHash,
		CreatedAt:    user.CreatedAt.UTC(),
	}

	res, err := r.coll.InsertOne(ctx, doc)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil, duplicateUserError(err)
		}
		return nil, fmt.Errorf("insert user: %w", err)
	}

	if oid, ok := res.InsertedID.(primitive.ObjectID); ok {
		doc.ID = oid
	}
	return doc.toDomain(), nil
}

// duplicateUserError maps a duplicate-key error to the field that collided.
func duplicateUserError(err error) error {
	if strings.Contains(err.Error(), indexUserUsername) {
		return domain.ErrUsernameTaken
	}
	return domain.ErrEmailTaken
}

func (r *AccountRepository) FindByID(ctx context.Context, id string) (*domain.User, error) {
	oid, err := objectID(id, domain.ErrUserNotFound)
	if err != nil {
		return nil, err
	}
	return r.findOne(ctx, bson.M{"_id": oid})
}

func (r *AccountRepository) FindByEmail(ctx context.Context, email string) (*domain.User, error) {
	return r.findOne(ctx, bson.M{"email": email})
}

func (r *AccountRepository) FindByUsername(ctx context.Context, username string) (*domain.User, error) {
	return r.findOne(ctx, bson.M{"username": strings.ToLower(username)})
}

func (r *AccountRepository) findOne(ctx context.Context, filter bson.M) (*domain.User, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var mu mongoUser
	if err := r.coll.FindOne(ctx, filter).Decode(&mu); err != nil {
		if isNoDocuments(err) {
			return nil, domain.ErrUserNotFound
		}
		return nil, fmt.Errorf("find user: %w", err)
	}
	return mu.toDomain(), nil
}

// EnsureIndexes creates the unique identity indexes on the users collection.
func (r *AccountRepository) EnsureIndexes(ctx context.Context) error {
	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "email", Value: 1}},
			Options: options.Index().SetUnique(true).SetName(indexUserEmail),
		},
		{
			Keys:    bson.D{{Key: "username", Value: 1}},
			Options: options.Index().SetUnique(true).SetName(indexUserUsername),
		},
	}

	_, err := r.coll.Indexes().CreateMany(ctx, indexes)
	return err
}
