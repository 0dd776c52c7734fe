package mongo

import (
	"context"
	"fmt"

	"gotour/internal/bookings/repository"
	"gotour/internal/migrations/mongo/validators"
	"gotour/pkg/logger"
	"gotour/pkg/model"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Collection describes the validator and indexes one collection should carry.
// A nil Validator leaves the collection schema untouched.
type Collection struct {
	Name      string
	Validator bson.M
	Indexes   []mongo.IndexModel
}

// nonEmpty restricts a unique index to documents that actually carry the
// field, so legacy bookings without a reference do not collide on "".
func nonEmpty(field string) bson.M {
	return bson.M{field: bson.M{"$type": "string", "$gt": ""}}
}

func bookingIndexes() []mongo.IndexModel {
	return []mongo.IndexModel{
		{Keys: bson.D{
			{Key: "user_id", Value: 1},
			{Key: "created_at", Value: -1},
		}},
		{Keys: bson.D{
			{Key: "status", Value: 1},
			{Key: "created_at", Value: -1},
		}},
		{Keys: bson.D{{Key: "created_at", Value: -1}}},
		{
			Keys: bson.D{{Key: "booking_reference", Value: 1}},
			Options: options.Index().
				SetName("uniq_booking_reference").
				SetUnique(true).
				SetPartialFilterExpression(nonEmpty("booking_reference")),
		},
		{
			Keys: bson.D{{Key: "booking_number", Value: 1}},
			Options: options.Index().
				SetName("uniq_booking_number").
				SetUnique(true).
				SetPartialFilterExpression(nonEmpty("booking_number")),
		},
	}
}

var FlightsIndexes = []mongo.IndexModel{
	{Keys: bson.D{{Key: "flight_number", Value: 1}}},
}

// Collections lists every collection the bookings service migrates.
func Collections() []Collection {
	collections := make([]Collection, 0, len(model.BookingKinds)+1)
	for _, kind := range model.BookingKinds {
		collections = append(collections, Collection{
			Name:      repository.CollectionName(kind),
			Validator: validators.BookingValidator(kind),
			Indexes:   bookingIndexes(),
		})
	}
	collections = append(collections, Collection{
		Name:      repository.FlightsCollection,
		Validator: validators.FlightValidator,
		Indexes:   FlightsIndexes,
	})
	return collections
}

func RunMigration(ctx context.Context, db *mongo.Database, log *logger.Logger) error {
	log.Info("Running Mongo migrations", "database", db.Name())

	for _, def := range Collections() {
		if err := ensureCollection(ctx, db, def.Name, def.Validator, log); err != nil {
			return fmt.Errorf("failed to ensure collection %s: %w", def.Name, err)
		}
		if err := ensureIndexes(ctx, db, def.Name, def.Indexes, log); err != nil {
			return fmt.Errorf("failed to ensure indexes for %s: %w", def.Name, err)
		}
	}

	log.Info("All migrations applied successfully")
	return nil
}

func ensureCollection(ctx context.Context, db *mongo.Database, name string, validator bson.M, log *logger.Logger) error {
	existing, err := db.ListCollectionNames(ctx, bson.D{{Key: "name", Value: name}})
	if err != nil {
		return err
	}

	if len(existing) == 0 {
		log.Info("Creating collection", "collection", name)
		opts := options.CreateCollection()
		if validator != nil {
			opts.SetValidator(validator).SetValidationLevel("moderate")
		}
		if err := db.CreateCollection(ctx, name, opts); err != nil {
			return fmt.Errorf("failed creating %s: %w", name, err)
		}
		return nil
	}

	if validator == nil {
		return nil
	}

	log.Info("Collection already exists, updating validator", "collection", name)
	command := bson.D{
		{Key: "collMod", Value: name},
		{Key: "validator", Value: validator},
		{Key: "validationLevel", Value: "moderate"},
	}
	if err := db.RunCommand(ctx, command).Err(); err != nil {
		log.Warn("Failed updating validator", "collection", name, "error", err)
	}
	return nil
}

func ensureIndexes(ctx context.Context, db *mongo.Database, name string, models []mongo.IndexModel, log *logger.Logger) error {
	if len(models) == 0 {
		return nil
	}
	coll := db.Collection(name)
	if _, err := coll.Indexes().CreateMany(ctx, models); err != nil {
		return err
	}
	log.Info("Ensured indexes", "collection", name, "count", len(models))
	return nil
}
