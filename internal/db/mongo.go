package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ukydev/garage/internal/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// ConnectMongo connects to MongoDB and verifies the connection with a ping.
func ConnectMongo(ctx context.Context, uri string) (*mongo.Client, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("mongo.Connect error: %w", err)
	}
	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("mongo.Ping error: %w", err)
	}
	return client, nil
}

// MongoCollection stores vehicle documents, one per vehicle, keyed by vehicle ID.
type MongoCollection struct {
	Collection *mongo.Collection
}

// ReplaceFleet upserts every document and deletes vehicles missing from docs.
func (c *MongoCollection) ReplaceFleet(ctx context.Context, docs []models.VehicleDocument) error {
	if c.Collection == nil {
		return errNilCollection
	}

	ids := make([]string, 0, len(docs))
	writes := make([]mongo.WriteModel, 0, len(docs)+1)
	for _, doc := range docs {
		ids = append(ids, doc.ID)
		writes = append(writes, mongo.NewReplaceOneModel().
			SetFilter(bson.M{"_id": doc.ID}).
			SetReplacement(doc).
			SetUpsert(true))
	}
	writes = append(writes, mongo.NewDeleteManyModel().SetFilter(bson.M{"_id": bson.M{"$nin": ids}}))

	_, err := c.Collection.BulkWrite(ctx, writes, options.BulkWrite().SetOrdered(true))
	if err != nil {
		return fmt.Errorf("replace fleet: %w", err)
	}
	return nil
}

// FindVehicles returns every stored vehicle in creation order.
func (c *MongoCollection) FindVehicles(ctx context.Context) ([]models.VehicleDocument, error) {
	if c.Collection == nil {
		return nil, errNilCollection
	}

	cursor, err := c.Collection.Find(ctx, bson.M{}, options.Find().SetSort(bson.D{{Key: "_id", Value: 1}}))
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	docs := []models.VehicleDocument{}
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decode vehicles: %w", err)
	}
	return docs, nil
}

// FindVehicleByID finds a vehicle by its ID.
func (c *MongoCollection) FindVehicleByID(ctx context.Context, id string) (*models.VehicleDocument, error) {
	if c.Collection == nil {
		return nil, errNilCollection
	}

	var doc models.VehicleDocument
	err := c.Collection.FindOne(ctx, bson.M{"_id": id}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrVehicleNotFound
		}
		return nil, err
	}
	return &doc, nil
}

// DeleteVehicle deletes a vehicle by its ID.
func (c *MongoCollection) DeleteVehicle(ctx context.Context, id string) error {
	if c.Collection == nil {
		return errNilCollection
	}

	result, err := c.Collection.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if result.DeletedCount == 0 {
		return ErrVehicleNotFound
	}
	return nil
}
