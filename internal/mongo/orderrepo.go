package mongo

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/appetiteclub/fulfillment/internal/fault"
	"github.com/appetiteclub/fulfillment/internal/order"
)

type OrderRepo struct {
	collection *mongo.Collection
}

func NewOrderRepo(db *mongo.Database) *OrderRepo {
	return &OrderRepo{
		collection: db.Collection("orders"),
	}
}

func (r *OrderRepo) Create(ctx context.Context, o *order.Order) error {
	if o == nil {
		return fmt.Errorf("order is nil")
	}

	if _, err := r.collection.InsertOne(ctx, o); err != nil {
		return fmt.Errorf("cannot create order: %w", err)
	}

	return nil
}

func (r *OrderRepo) Get(ctx context.Context, id uuid.UUID) (*order.Order, error) {
	var o order.Order
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&o)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, nil
		}
		return nil, fmt.Errorf("cannot get order: %w", err)
	}
	return &o, nil
}

// Save writes the order guarded by its model version. A version mismatch
// means a concurrent writer got there first and surfaces as a conflict.
func (r *OrderRepo) Save(ctx context.Context, o *order.Order) error {
	if o == nil {
		return fmt.Errorf("order is nil")
	}

	currentVersion := o.ModelVersion
	o.ModelVersion = currentVersion + 1

	filter := bson.M{"_id": o.ID, "model_version": currentVersion}
	update := bson.M{"$set": o}

	result, err := r.collection.UpdateOne(ctx, filter, update)
	if err != nil {
		o.ModelVersion = currentVersion
		return fmt.Errorf("cannot update order: %w", err)
	}

	if result.MatchedCount == 0 {
		o.ModelVersion = currentVersion
		count, countErr := r.collection.CountDocuments(ctx, bson.M{"_id": o.ID})
		if countErr == nil && count == 0 {
			return fault.NotFound("order %s not found", o.ID.String())
		}
		return fault.Conflict("order %s was modified concurrently", o.ID.String())
	}

	return nil
}

func (r *OrderRepo) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := r.collection.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("cannot delete order: %w", err)
	}

	if result.DeletedCount == 0 {
		return fault.NotFound("order %s not found", id.String())
	}

	return nil
}

func (r *OrderRepo) List(ctx context.Context) ([]*order.Order, error) {
	return r.find(ctx, bson.M{})
}

func (r *OrderRepo) ListByStatus(ctx context.Context, status string) ([]*order.Order, error) {
	return r.find(ctx, bson.M{"status": status})
}

func (r *OrderRepo) ListByTable(ctx context.Context, tableID uuid.UUID) ([]*order.Order, error) {
	return r.find(ctx, bson.M{"table_id": tableID})
}

func (r *OrderRepo) ListVoided(ctx context.Context) ([]*order.Order, error) {
	return r.find(ctx, bson.M{"is_voided": true})
}

// ListByCashierBetween returns the cashier's orders that touched the window
// [from, to): created, completed or voided inside it. Shift reconciliation
// needs the voided-at match to catch orders sold before the window.
func (r *OrderRepo) ListByCashierBetween(ctx context.Context, cashierID uuid.UUID, from, to time.Time) ([]*order.Order, error) {
	window := bson.M{"$gte": from, "$lt": to}
	return r.find(ctx, bson.M{
		"cashier_id": cashierID,
		"$or": []bson.M{
			{"created_at": window},
			{"completed_at": window},
			{"voided_at": window},
		},
	})
}

func (r *OrderRepo) find(ctx context.Context, filter bson.M) ([]*order.Order, error) {
	cursor, err := r.collection.Find(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("cannot list orders: %w", err)
	}
	defer cursor.Close(ctx)

	var result []*order.Order
	if err := cursor.All(ctx, &result); err != nil {
		return nil, fmt.Errorf("cannot decode orders: %w", err)
	}

	return result, nil
}
