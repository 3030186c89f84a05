package store

import (
	"context"
	"os"
	"testing"
	"time"

	"bvstock/models"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// The Mongo store needs a replica set for transactions, e.g.
// MONGO_TEST_URI=mongodb://localhost:27017/?replicaSet=rs0
func TestMongoStore(t *testing.T) {
	uri := os.Getenv("MONGO_TEST_URI")
	if uri == "" {
		t.Skip("MONGO_TEST_URI not set")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Disconnect(context.Background()) })

	testStoreContract(t, func(t *testing.T) Store {
		name := "bvstock_test_" + primitive.NewObjectID().Hex()
		st := NewMongo(client, name, true)
		require.NoError(t, st.EnsureIndexes(context.Background()))
		t.Cleanup(func() { _ = client.Database(name).Drop(context.Background()) })
		return st
	})
}

func TestRedisLocker(t *testing.T) {
	addr := os.Getenv("REDIS_TEST_ADDR")
	if addr == "" {
		t.Skip("REDIS_TEST_ADDR not set")
	}

	rdb := redis.NewClient(&redis.Options{Addr: addr})
	t.Cleanup(func() { _ = rdb.Close() })
	logger := logrus.New()
	locker := NewRedisLocker(rdb, logger)
	ctx := context.Background()

	key := "test-" + primitive.NewObjectID().Hex()
	release, err := locker.Lock(ctx, key, "other-"+key)
	require.NoError(t, err)

	_, err = locker.Lock(ctx, key)
	assert.ErrorIs(t, err, models.ErrConflict)

	release()
	again, err := locker.Lock(ctx, key)
	require.NoError(t, err)
	again()
}
