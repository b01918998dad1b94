package commands

import (
	"context"
	"fmt"

	"github.com/aquamarinepk/aqm"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/appetiteclub/fulfillment/cmd/utils/internal/seeding"
)

const demoSeedID = "demo_fulfillment_v1"

// SeedDemo loads a demo floor plan plus a handful of orders and kitchen
// tickets into the fulfillment database.
func SeedDemo(ctx context.Context, config *aqm.Config, logger aqm.Logger) error {
	logger.Info("Starting demo seeding process...")

	client, db, err := connect(ctx, config)
	if err != nil {
		return err
	}
	defer client.Disconnect(ctx)

	logger.Info("Connected to MongoDB")

	seedsCollection := db.Collection("_seeds")
	count, err := seedsCollection.CountDocuments(ctx, bson.M{"_id": demoSeedID})
	if err != nil {
		return fmt.Errorf("check seed status: %w", err)
	}
	if count > 0 {
		logger.Info("Demo seeds already applied, skipping")
		return nil
	}

	if err := seeding.SeedFloor(ctx, db); err != nil {
		return fmt.Errorf("seed floor plan: %w", err)
	}
	if err := seeding.SeedOrders(ctx, db); err != nil {
		return fmt.Errorf("seed orders: %w", err)
	}

	_, err = seedsCollection.InsertOne(ctx, bson.M{
		"_id":         demoSeedID,
		"description": "Demo floor plan with seated orders and kitchen tickets across stations",
		"applied_at":  bson.M{"$currentDate": bson.M{"$type": "timestamp"}},
	})
	if err != nil {
		logger.Info("failed to mark seed as applied", "error", err)
	}

	logger.Info("Demo seeds applied successfully")
	return nil
}

func connect(ctx context.Context, config *aqm.Config) (*mongo.Client, *mongo.Database, error) {
	mongoURL, _ := config.GetString("mongo.url")
	if mongoURL == "" {
		mongoURL = "mongodb://localhost:27017"
	}
	dbName, _ := config.GetString("mongo.name")
	if dbName == "" {
		dbName = "fulfillment"
	}

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(mongoURL))
	if err != nil {
		return nil, nil, fmt.Errorf("connect to mongodb: %w", err)
	}

	if err := client.Ping(ctx, nil); err != nil {
		client.Disconnect(ctx)
		return nil, nil, fmt.Errorf("ping mongodb: %w", err)
	}

	return client, client.Database(dbName), nil
}
