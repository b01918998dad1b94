package mongo

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/appetiteclub/fulfillment/internal/fault"
	"github.com/appetiteclub/fulfillment/internal/order"
)

type OrderItemRepo struct {
	collection *mongo.Collection
}

func NewOrderItemRepo(db *mongo.Database) *OrderItemRepo {
	return &OrderItemRepo{
		collection: db.Collection("order_items"),
	}
}

func (r *OrderItemRepo) Create(ctx context.Context, item *order.OrderItem) error {
	if item == nil {
		return fmt.Errorf("order item is nil")
	}

	if _, err := r.collection.InsertOne(ctx, item); err != nil {
		return fmt.Errorf("cannot create order item: %w", err)
	}

	return nil
}

func (r *OrderItemRepo) Get(ctx context.Context, id uuid.UUID) (*order.OrderItem, error) {
	var item order.OrderItem
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&item)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, nil
		}
		return nil, fmt.Errorf("cannot get order item: %w", err)
	}
	return &item, nil
}

func (r *OrderItemRepo) Save(ctx context.Context, item *order.OrderItem) error {
	if item == nil {
		return fmt.Errorf("order item is nil")
	}

	currentVersion := item.ModelVersion
	item.ModelVersion = currentVersion + 1

	filter := bson.M{"_id": item.ID, "model_version": currentVersion}
	update := bson.M{"$set": item}

	result, err := r.collection.UpdateOne(ctx, filter, update)
	if err != nil {
		item.ModelVersion = currentVersion
		return fmt.Errorf("cannot update order item: %w", err)
	}

	if result.MatchedCount == 0 {
		item.ModelVersion = currentVersion
		count, countErr := r.collection.CountDocuments(ctx, bson.M{"_id": item.ID})
		if countErr == nil && count == 0 {
			return fault.NotFound("order item %s not found", item.ID.String())
		}
		return fault.Conflict("order item %s was modified concurrently", item.ID.String())
	}

	return nil
}

func (r *OrderItemRepo) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := r.collection.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("cannot delete order item: %w", err)
	}

	if result.DeletedCount == 0 {
		return fault.NotFound("order item %s not found", id.String())
	}

	return nil
}

func (r *OrderItemRepo) ListByOrder(ctx context.Context, orderID uuid.UUID) ([]*order.OrderItem, error) {
	cursor, err := r.collection.Find(ctx, bson.M{"order_id": orderID})
	if err != nil {
		return nil, fmt.Errorf("cannot list order items: %w", err)
	}
	defer cursor.Close(ctx)

	var result []*order.OrderItem
	if err := cursor.All(ctx, &result); err != nil {
		return nil, fmt.Errorf("cannot decode order items: %w", err)
	}

	return result, nil
}

// ReassignOrder moves every item of one order to another in a single update.
func (r *OrderItemRepo) ReassignOrder(ctx context.Context, fromOrderID, toOrderID uuid.UUID) error {
	_, err := r.collection.UpdateMany(ctx,
		bson.M{"order_id": fromOrderID},
		bson.M{"$set": bson.M{"order_id": toOrderID}},
	)
	if err != nil {
		return fmt.Errorf("cannot reassign order items: %w", err)
	}
	return nil
}
