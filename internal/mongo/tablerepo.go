package mongo

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/appetiteclub/fulfillment/internal/fault"
	"github.com/appetiteclub/fulfillment/internal/tables"
)

type TableRepo struct {
	collection *mongo.Collection
}

func NewTableRepo(db *mongo.Database) *TableRepo {
	return &TableRepo{
		collection: db.Collection("tables"),
	}
}

func (r *TableRepo) Create(ctx context.Context, table *tables.Table) error {
	if table == nil {
		return fmt.Errorf("table is nil")
	}

	if _, err := r.collection.InsertOne(ctx, table); err != nil {
		return fmt.Errorf("cannot create table: %w", err)
	}

	return nil
}

func (r *TableRepo) Get(ctx context.Context, id uuid.UUID) (*tables.Table, error) {
	var table tables.Table
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&table)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, nil
		}
		return nil, fmt.Errorf("cannot get table: %w", err)
	}
	return &table, nil
}

// Save writes the table guarded by its model version. Occupancy races, two
// orders grabbing the same table at once, resolve here: the loser's version
// no longer matches and the write reports a conflict.
func (r *TableRepo) Save(ctx context.Context, table *tables.Table) error {
	if table == nil {
		return fmt.Errorf("table is nil")
	}

	currentVersion := table.ModelVersion
	table.ModelVersion = currentVersion + 1

	filter := bson.M{"_id": table.ID, "model_version": currentVersion}
	update := bson.M{"$set": table}

	result, err := r.collection.UpdateOne(ctx, filter, update)
	if err != nil {
		table.ModelVersion = currentVersion
		return fmt.Errorf("cannot update table: %w", err)
	}

	if result.MatchedCount == 0 {
		table.ModelVersion = currentVersion
		count, countErr := r.collection.CountDocuments(ctx, bson.M{"_id": table.ID})
		if countErr == nil && count == 0 {
			return fault.NotFound("table %s not found", table.ID.String())
		}
		return fault.Conflict("table %s was modified concurrently", table.ID.String())
	}

	return nil
}

func (r *TableRepo) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := r.collection.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("cannot delete table: %w", err)
	}

	if result.DeletedCount == 0 {
		return fault.NotFound("table %s not found", id.String())
	}

	return nil
}

func (r *TableRepo) List(ctx context.Context) ([]*tables.Table, error) {
	return r.find(ctx, bson.M{})
}

func (r *TableRepo) ListByStatus(ctx context.Context, status string) ([]*tables.Table, error) {
	return r.find(ctx, bson.M{"status": status})
}

func (r *TableRepo) find(ctx context.Context, filter bson.M) ([]*tables.Table, error) {
	cursor, err := r.collection.Find(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("cannot list tables: %w", err)
	}
	defer cursor.Close(ctx)

	var result []*tables.Table
	if err := cursor.All(ctx, &result); err != nil {
		return nil, fmt.Errorf("cannot decode tables: %w", err)
	}

	return result, nil
}
