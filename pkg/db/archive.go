package db

import (
	"context"
	"fmt"

	"bad-movie-engine/pkg/domain"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// ArchiveClient wraps the MongoDB collection holding raw archived posts.
type ArchiveClient struct {
	mongoClient *mongo.Client
	collection  *mongo.Collection
}

// NewArchiveClient creates a new archive client
func NewArchiveClient(connectionString, databaseName, collectionName string) *ArchiveClient {
	clientOptions := options.Client().ApplyURI(connectionString)
	mongoClient, err := mongo.Connect(context.Background(), clientOptions)
	if err != nil {
		// Return client with nil - error will be caught during Connect()
		return &ArchiveClient{}
	}

	collection := mongoClient.Database(databaseName).Collection(collectionName)

	return &ArchiveClient{
		mongoClient: mongoClient,
		collection:  collection,
	}
}

// Connect establishes connection to MongoDB
func (c *ArchiveClient) Connect(ctx context.Context) error {
	if c.mongoClient == nil {
		return fmt.Errorf("mongo client not initialized")
	}
	return c.mongoClient.Ping(ctx, nil)
}

// Close closes the MongoDB connection
func (c *ArchiveClient) Close(ctx context.Context) error {
	if c.mongoClient == nil {
		return nil
	}
	return c.mongoClient.Disconnect(ctx)
}

// SavePost upserts an archived post keyed by its link, so re-fetching a post
// refreshes the archived copy instead of duplicating it.
func (c *ArchiveClient) SavePost(ctx context.Context, post *domain.ArchivedPost) error {
	if c.collection == nil {
		return fmt.Errorf("collection not initialized")
	}

	filter := bson.M{"link": post.Link}
	update := bson.M{"$set": post}
	opts := options.Update().SetUpsert(true)

	_, err := c.collection.UpdateOne(ctx, filter, update, opts)
	return err
}

// ArchivedLinks fetches all archived post links as a set
func (c *ArchiveClient) ArchivedLinks(ctx context.Context) (map[string]bool, error) {
	if c.collection == nil {
		return nil, fmt.Errorf("collection not initialized")
	}

	cursor, err := c.collection.Find(ctx, bson.M{}, options.Find().SetProjection(bson.M{"link": 1, "_id": 0}))
	if err != nil {
		return nil, fmt.Errorf("failed to query links: %w", err)
	}
	defer cursor.Close(ctx)

	linkSet := make(map[string]bool)
	for cursor.Next(ctx) {
		var result struct {
			Link string `bson:"link"`
		}
		if err := cursor.Decode(&result); err != nil {
			continue // Skip invalid documents
		}
		if result.Link != "" {
			linkSet[result.Link] = true
		}
	}

	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("cursor error: %w", err)
	}

	return linkSet, nil
}
