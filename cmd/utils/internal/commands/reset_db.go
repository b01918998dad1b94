package commands

import (
	"context"

	"github.com/aquamarinepk/aqm"
	"go.mongodb.org/mongo-driver/bson"
)

// ResetDB drops the fulfillment database - USE WITH CAUTION
func ResetDB(ctx context.Context, config *aqm.Config, logger aqm.Logger) error {
	logger.Info("DANGER: this will drop the fulfillment database")
	logger.Info("This action cannot be undone")

	client, db, err := connect(ctx, config)
	if err != nil {
		return err
	}
	defer client.Disconnect(ctx)

	logger.Info("Connected to MongoDB")
	logger.Info("Dropping database", "database", db.Name())

	result := db.RunCommand(ctx, bson.D{{Key: "dropDatabase", Value: 1}})
	if result.Err() != nil {
		logger.Info("failed to drop database (may not exist)", "database", db.Name(), "error", result.Err())
		return nil
	}

	logger.Info("Database dropped", "database", db.Name())
	return nil
}
