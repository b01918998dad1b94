package commands

import (
	"context"
	"fmt"

	"github.com/aquamarinepk/aqm"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/appetiteclub/fulfillment/cmd/utils/internal/seeding"
)

// ClearDemo removes the demo data seed-demo created. Demo documents are
// recognized by the seeding prefixes on order numbers and table numbers.
func ClearDemo(ctx context.Context, config *aqm.Config, logger aqm.Logger) error {
	logger.Info("Clearing demo data...")

	client, db, err := connect(ctx, config)
	if err != nil {
		return err
	}
	defer client.Disconnect(ctx)

	logger.Info("Connected to MongoDB")

	orderFilter := bson.M{"order_number": bson.M{"$regex": "^" + seeding.OrderNumberPrefix}}
	orderIDs, err := collectIDs(ctx, db.Collection("orders"), orderFilter)
	if err != nil {
		return fmt.Errorf("collect demo orders: %w", err)
	}

	if len(orderIDs) > 0 {
		if _, err := db.Collection("order_items").DeleteMany(ctx, bson.M{"order_id": bson.M{"$in": orderIDs}}); err != nil {
			return fmt.Errorf("delete demo order items: %w", err)
		}
		if _, err := db.Collection("kitchen_tickets").DeleteMany(ctx, bson.M{"order_id": bson.M{"$in": orderIDs}}); err != nil {
			return fmt.Errorf("delete demo kitchen tickets: %w", err)
		}
		if _, err := db.Collection("orders").DeleteMany(ctx, orderFilter); err != nil {
			return fmt.Errorf("delete demo orders: %w", err)
		}
		logger.Info("Removed demo orders", "count", len(orderIDs))
	}

	tableResult, err := db.Collection("tables").DeleteMany(ctx, bson.M{"number": bson.M{"$regex": "^" + seeding.TableNumberPrefix}})
	if err != nil {
		return fmt.Errorf("delete demo tables: %w", err)
	}
	if tableResult.DeletedCount > 0 {
		logger.Info("Removed demo tables", "count", tableResult.DeletedCount)
	}

	if _, err := db.Collection("_seeds").DeleteOne(ctx, bson.M{"_id": demoSeedID}); err != nil {
		logger.Info("failed to remove seed marker", "error", err)
	}

	return nil
}

func collectIDs(ctx context.Context, collection *mongo.Collection, filter bson.M) ([]interface{}, error) {
	cursor, err := collection.Find(ctx, filter)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var docs []struct {
		ID interface{} `bson:"_id"`
	}
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, err
	}

	ids := make([]interface{}, 0, len(docs))
	for _, doc := range docs {
		ids = append(ids, doc.ID)
	}
	return ids, nil
}
