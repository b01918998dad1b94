package mongo

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/appetiteclub/fulfillment/internal/fault"
	"github.com/appetiteclub/fulfillment/internal/kitchen"
)

type TicketRepo struct {
	collection *mongo.Collection
}

func NewTicketRepo(db *mongo.Database) *TicketRepo {
	return &TicketRepo{
		collection: db.Collection("kitchen_tickets"),
	}
}

func (r *TicketRepo) Create(ctx context.Context, ticket *kitchen.Ticket) error {
	if ticket == nil {
		return fmt.Errorf("ticket is nil")
	}

	if _, err := r.collection.InsertOne(ctx, ticket); err != nil {
		return fmt.Errorf("cannot create ticket: %w", err)
	}

	return nil
}

func (r *TicketRepo) Get(ctx context.Context, id uuid.UUID) (*kitchen.Ticket, error) {
	var ticket kitchen.Ticket
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&ticket)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, nil
		}
		return nil, fmt.Errorf("cannot get ticket: %w", err)
	}
	return &ticket, nil
}

// Save writes the ticket guarded by its model version. Two expo screens
// bumping the same ticket race here and the loser gets a conflict.
func (r *TicketRepo) Save(ctx context.Context, ticket *kitchen.Ticket) error {
	if ticket == nil {
		return fmt.Errorf("ticket is nil")
	}

	currentVersion := ticket.ModelVersion
	ticket.ModelVersion = currentVersion + 1

	filter := bson.M{"_id": ticket.ID, "model_version": currentVersion}
	update := bson.M{"$set": ticket}

	result, err := r.collection.UpdateOne(ctx, filter, update)
	if err != nil {
		ticket.ModelVersion = currentVersion
		return fmt.Errorf("cannot update ticket: %w", err)
	}

	if result.MatchedCount == 0 {
		ticket.ModelVersion = currentVersion
		count, countErr := r.collection.CountDocuments(ctx, bson.M{"_id": ticket.ID})
		if countErr == nil && count == 0 {
			return fault.NotFound("ticket %s not found", ticket.ID.String())
		}
		return fault.Conflict("ticket %s was modified concurrently", ticket.ID.String())
	}

	return nil
}

func (r *TicketRepo) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := r.collection.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("cannot delete ticket: %w", err)
	}

	if result.DeletedCount == 0 {
		return fault.NotFound("ticket %s not found", id.String())
	}

	return nil
}

func (r *TicketRepo) List(ctx context.Context, filter kitchen.TicketFilter) ([]kitchen.Ticket, error) {
	query := bson.M{}
	if filter.Station != "" {
		query["station"] = filter.Station
	}
	if filter.Status != "" {
		query["status"] = filter.Status
	}
	if filter.OrderID != nil {
		query["order_id"] = *filter.OrderID
	}

	cursor, err := r.collection.Find(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("cannot list tickets: %w", err)
	}
	defer cursor.Close(ctx)

	var result []kitchen.Ticket
	if err := cursor.All(ctx, &result); err != nil {
		return nil, fmt.Errorf("cannot decode tickets: %w", err)
	}

	return result, nil
}

func (r *TicketRepo) ListByOrder(ctx context.Context, orderID uuid.UUID) ([]*kitchen.Ticket, error) {
	cursor, err := r.collection.Find(ctx, bson.M{"order_id": orderID})
	if err != nil {
		return nil, fmt.Errorf("cannot list tickets by order: %w", err)
	}
	defer cursor.Close(ctx)

	var result []*kitchen.Ticket
	if err := cursor.All(ctx, &result); err != nil {
		return nil, fmt.Errorf("cannot decode tickets: %w", err)
	}

	return result, nil
}
