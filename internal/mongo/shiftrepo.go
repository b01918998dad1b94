package mongo

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/appetiteclub/fulfillment/internal/fault"
	"github.com/appetiteclub/fulfillment/internal/shift"
)

type ShiftRepo struct {
	collection *mongo.Collection
}

func NewShiftRepo(db *mongo.Database) *ShiftRepo {
	return &ShiftRepo{
		collection: db.Collection("shifts"),
	}
}

func (r *ShiftRepo) Create(ctx context.Context, s *shift.Shift) error {
	if s == nil {
		return fmt.Errorf("shift is nil")
	}

	if _, err := r.collection.InsertOne(ctx, s); err != nil {
		return fmt.Errorf("cannot create shift: %w", err)
	}

	return nil
}

func (r *ShiftRepo) Get(ctx context.Context, id uuid.UUID) (*shift.Shift, error) {
	var s shift.Shift
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&s)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, nil
		}
		return nil, fmt.Errorf("cannot get shift: %w", err)
	}
	return &s, nil
}

func (r *ShiftRepo) Save(ctx context.Context, s *shift.Shift) error {
	if s == nil {
		return fmt.Errorf("shift is nil")
	}

	currentVersion := s.ModelVersion
	s.ModelVersion = currentVersion + 1

	filter := bson.M{"_id": s.ID, "model_version": currentVersion}
	update := bson.M{"$set": s}

	result, err := r.collection.UpdateOne(ctx, filter, update)
	if err != nil {
		s.ModelVersion = currentVersion
		return fmt.Errorf("cannot update shift: %w", err)
	}

	if result.MatchedCount == 0 {
		s.ModelVersion = currentVersion
		count, countErr := r.collection.CountDocuments(ctx, bson.M{"_id": s.ID})
		if countErr == nil && count == 0 {
			return fault.NotFound("shift %s not found", s.ID.String())
		}
		return fault.Conflict("shift %s was modified concurrently", s.ID.String())
	}

	return nil
}

func (r *ShiftRepo) List(ctx context.Context) ([]*shift.Shift, error) {
	return r.find(ctx, bson.M{})
}

func (r *ShiftRepo) ListByCashier(ctx context.Context, cashierID uuid.UUID) ([]*shift.Shift, error) {
	return r.find(ctx, bson.M{"cashier_id": cashierID})
}

// GetOpenByCashier returns the cashier's open shift, or nil when none is open.
func (r *ShiftRepo) GetOpenByCashier(ctx context.Context, cashierID uuid.UUID) (*shift.Shift, error) {
	var s shift.Shift
	err := r.collection.FindOne(ctx, bson.M{
		"cashier_id": cashierID,
		"status":     shift.StatusOpen,
	}).Decode(&s)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, nil
		}
		return nil, fmt.Errorf("cannot get open shift: %w", err)
	}
	return &s, nil
}

func (r *ShiftRepo) find(ctx context.Context, filter bson.M) ([]*shift.Shift, error) {
	cursor, err := r.collection.Find(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("cannot list shifts: %w", err)
	}
	defer cursor.Close(ctx)

	var result []*shift.Shift
	if err := cursor.All(ctx, &result); err != nil {
		return nil, fmt.Errorf("cannot decode shifts: %w", err)
	}

	return result, nil
}
