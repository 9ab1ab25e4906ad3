package repository

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

func TestMongoEnsureIndexes(t *testing.T) {
	uri := os.Getenv("MONGO_URI")
	if uri == "" {
		t.Skip("MONGO_URI not set")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	require.NoError(t, err)
	defer client.Disconnect(context.Background())

	db := client.Database("realtime_test_" + time.Now().Format("150405"))
	defer db.Drop(context.Background())

	s := NewMongoStore(db)
	require.NoError(t, s.EnsureIndexes(ctx))
	// creating the same indexes again is accepted
	require.NoError(t, s.EnsureIndexes(ctx))

	cur, err := db.Collection("messages").Indexes().List(ctx)
	require.NoError(t, err)
	var idx []bson.M
	require.NoError(t, cur.All(ctx, &idx))
	names := make([]string, 0, len(idx))
	for _, i := range idx {
		names = append(names, i["name"].(string))
	}
	assert.Contains(t, names, "conversation_created_idx")
}

func TestMongoEnsureIndexesReportsFailure(t *testing.T) {
	uri := os.Getenv("MONGO_URI")
	if uri == "" {
		t.Skip("MONGO_URI not set")
	}
	client, err := mongo.Connect(context.Background(), options.Client().ApplyURI(uri))
	require.NoError(t, err)
	defer client.Disconnect(context.Background())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.Error(t, NewMongoStore(client.Database("realtime_test_cancelled")).EnsureIndexes(ctx))
}
