package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/utafrali/storefront/internal/domain"
	apperrors "github.com/utafrali/storefront/pkg/errors"
)

// UserRepository implements repository.UserRepository using MongoDB.
type UserRepository struct {
	coll *mongo.Collection
}

func NewUserRepository(db *mongo.Database) *UserRepository {
	return &UserRepository{coll: db.Collection(usersCollection)}
}

func (r *UserRepository) Create(ctx context.Context, u *domain.User) error {
	doc := userDoc{
		ID:           u.ID,
		Name:         u.Name,
		Email:        u.Email,
		PasswordHash: u.PasswordHash,
		Cart:         []cartLineDoc{},
		CreatedAt:    u.CreatedAt,
		UpdatedAt:    u.UpdatedAt,
	}
	if _, err := r.coll.InsertOne(ctx, doc); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return apperrors.AlreadyExists("user", "email", u.Email)
		}
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

func (r *UserRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	doc, err := r.find(ctx, bson.M{"_id": id})
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, apperrors.NotFound("user", id)
	}
	if err != nil {
		return nil, err
	}
	return doc.toDomain(), nil
}

func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	doc, err := r.find(ctx, bson.M{"email": email})
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, apperrors.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return doc.toDomain(), nil
}

func (r *UserRepository) GetCart(ctx context.Context, userID string) (*domain.Cart, error) {
	doc, err := r.find(ctx, bson.M{"_id": userID})
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, apperrors.NotFound("user", userID)
	}
	if err != nil {
		return nil, err
	}
	return doc.cart(), nil
}

func (r *UserRepository) SaveCart(ctx context.Context, userID string, cart *domain.Cart) error {
	res, err := r.coll.UpdateOne(ctx,
		bson.M{"_id": userID, "cart_version": cart.Version},
		bson.M{
			"$set": bson.M{"cart": toCartDocs(cart.Lines()), "updated_at": time.Now().UTC()},
			"$inc": bson.M{"cart_version": 1},
		},
	)
	if err != nil {
		return fmt.Errorf("save cart: %w", err)
	}
	if res.MatchedCount == 0 {
		return casFailure(ctx, r.coll, userID)
	}
	cart.Version++
	return nil
}

func (r *UserRepository) find(ctx context.Context, filter bson.M) (*userDoc, error) {
	var doc userDoc
	if err := r.coll.FindOne(ctx, filter).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, err
		}
		return nil, fmt.Errorf("find user: %w", err)
	}
	return &doc, nil
}

// casFailure explains why a version-guarded update matched nothing.
func casFailure(ctx context.Context, users *mongo.Collection, userID string) error {
	n, err := users.CountDocuments(ctx, bson.M{"_id": userID})
	if err != nil {
		return fmt.Errorf("count user: %w", err)
	}
	if n == 0 {
		return apperrors.NotFound("user", userID)
	}
	return apperrors.Conflict("cart was modified concurrently")
}
