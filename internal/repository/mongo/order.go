package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/utafrali/storefront/internal/domain"
)

// OrderRepository implements repository.OrderRepository using MongoDB.
type OrderRepository struct {
	orders *mongo.Collection
	users  *mongo.Collection
}

func NewOrderRepository(db *mongo.Database) *OrderRepository {
	return &OrderRepository{
		orders: db.Collection(ordersCollection),
		users:  db.Collection(usersCollection),
	}
}

// PlaceFromCart clears the cart with a version-guarded update first, which
// is the serialization point: only one placement can claim a given version.
// The order is inserted afterwards; if that fails the previous cart is put
// back under the version this call produced.
func (r *OrderRepository) PlaceFromCart(ctx context.Context, o *domain.Order, cartVersion int64) error {
	var before userDoc
	err := r.users.FindOneAndUpdate(ctx,
		bson.M{"_id": o.UserID, "cart_version": cartVersion},
		bson.M{
			"$set": bson.M{"cart": []cartLineDoc{}, "updated_at": time.Now().UTC()},
			"$inc": bson.M{"cart_version": 1},
		},
		options.FindOneAndUpdate().SetReturnDocument(options.Before),
	).Decode(&before)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return fmt.Errorf("place order: %w", casFailure(ctx, r.users, o.UserID))
		}
		return fmt.Errorf("claim cart: %w", err)
	}

	if _, err := r.orders.InsertOne(ctx, toOrderDoc(o)); err != nil {
		insertErr := fmt.Errorf("insert order: %w", err)
		res, restoreErr := r.users.UpdateOne(ctx,
			bson.M{"_id": o.UserID, "cart_version": cartVersion + 1},
			bson.M{
				"$set": bson.M{"cart": before.Cart, "updated_at": time.Now().UTC()},
				"$inc": bson.M{"cart_version": 1},
			},
		)
		if err := restoreResult(res, restoreErr); err != nil {
			return errors.Join(insertErr, err)
		}
		return insertErr
	}
	return nil
}

// errCartNotRestored means the cart moved past the claimed version before the
// compensating write ran, so the pre-order lines were not put back.
var errCartNotRestored = errors.New("restore cart: cart changed since claim, lines not restored")

func restoreResult(res *mongo.UpdateResult, err error) error {
	if err != nil {
		return fmt.Errorf("restore cart: %w", err)
	}
	if res == nil || res.MatchedCount == 0 {
		return errCartNotRestored
	}
	return nil
}

func (r *OrderRepository) ListByUser(ctx context.Context, userID string) ([]domain.Order, error) {
	cur, err := r.orders.Find(ctx, bson.M{"user_id": userID}, options.Find().SetSort(creationOrder))
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	var docs []orderDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decode orders: %w", err)
	}

	orders := make([]domain.Order, len(docs))
	for i, d := range docs {
		orders[i] = d.toDomain()
	}
	return orders, nil
}
