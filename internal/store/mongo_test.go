package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/integration/mtest"

	"github.com/backoffice/internal/model"
)

func TestMongoDirectory(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	mt.Run("list notifiable", func(mt *mtest.T) {
		ns := mt.Coll.Database().Name() + "." + mt.Coll.Name()
		id1, id2 := primitive.NewObjectID(), primitive.NewObjectID()

		mt.AddMockResponses(
			mtest.CreateCursorResponse(1, ns, mtest.FirstBatch,
				bson.D{
					{Key: "_id", Value: id1},
					{Key: "email", Value: "a@x.com"},
					{Key: "role", Value: "admin"},
					{Key: "isActive", Value: true},
					{Key: "preferences", Value: bson.D{{Key: "notifications", Value: bson.D{{Key: "email", Value: false}}}}},
				},
				bson.D{
					{Key: "_id", Value: id2},
					{Key: "email", Value: "b@x.com"},
					{Key: "role", Value: "moderator"},
					{Key: "isActive", Value: true},
				},
			),
			mtest.CreateCursorResponse(0, ns, mtest.NextBatch),
		)

		users, err := NewMongoDirectory(mt.Coll).ListNotifiable(context.Background())
		require.NoError(mt, err)
		require.Len(mt, users, 2)

		assert.Equal(mt, id1.Hex(), users[0].ID)
		assert.Equal(mt, model.RoleAdmin, users[0].Role)
		assert.False(mt, users[0].EmailNotificationsEnabled())

		assert.Equal(mt, "b@x.com", users[1].Email)
		assert.Nil(mt, users[1].Preferences)
		assert.True(mt, users[1].EmailNotificationsEnabled())
	})

	mt.Run("list notifiable skips malformed documents", func(mt *mtest.T) {
		ns := mt.Coll.Database().Name() + "." + mt.Coll.Name()
		good, bad := primitive.NewObjectID(), primitive.NewObjectID()

		mt.AddMockResponses(
			mtest.CreateCursorResponse(1, ns, mtest.FirstBatch,
				bson.D{
					{Key: "_id", Value: bad},
					{Key: "email", Value: "a@x.com"},
					{Key: "role", Value: "admin"},
					{Key: "isActive", Value: true},
					{Key: "preferences", Value: "yes"},
				},
				bson.D{
					{Key: "_id", Value: good},
					{Key: "email", Value: "b@x.com"},
					{Key: "role", Value: "admin"},
					{Key: "isActive", Value: true},
				},
			),
			mtest.CreateCursorResponse(0, ns, mtest.NextBatch),
		)

		dir := NewMongoDirectory(mt.Coll)
		log, logs := observedLogger()
		dir.log = log

		users, err := dir.ListNotifiable(context.Background())
		require.NoError(mt, err)
		require.Len(mt, users, 1)
		assert.Equal(mt, good.Hex(), users[0].ID)
		assert.Equal(mt, 1, logs.FilterMessage("skipping admin user with malformed document").Len())
	})

	mt.Run("list notifiable error", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateCommandErrorResponse(mtest.CommandError{
			Code:    11600,
			Message: "interrupted at shutdown",
		}))

		users, err := NewMongoDirectory(mt.Coll).ListNotifiable(context.Background())
		assert.Error(mt, err)
		assert.Nil(mt, users)
	})

	mt.Run("count all", func(mt *mtest.T) {
		ns := mt.Coll.Database().Name() + "." + mt.Coll.Name()
		mt.AddMockResponses(mtest.CreateCursorResponse(0, ns, mtest.FirstBatch, bson.D{{Key: "n", Value: int32(2)}}))

		n, err := NewMongoDirectory(mt.Coll).CountAll(context.Background())
		require.NoError(mt, err)
		assert.Equal(mt, 2, n)
	})

	mt.Run("create", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateSuccessResponse())

		err := NewMongoDirectory(mt.Coll).Create(context.Background(), model.AdminUser{
			ID:       "not-an-object-id",
			Email:    "a@x.com",
			Role:     model.RoleAdmin,
			IsActive: true,
		}, "hash")
		require.NoError(mt, err)

		started := mt.GetStartedEvent()
		require.NotNil(mt, started)
		assert.Equal(mt, "insert", started.CommandName)
	})

	mt.Run("create duplicate", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateWriteErrorsResponse(mtest.WriteError{
			Index:   0,
			Code:    11000,
			Message: "duplicate key error",
		}))

		err := NewMongoDirectory(mt.Coll).Create(context.Background(), model.AdminUser{Email: "a@x.com", Role: model.RoleAdmin}, "hash")
		require.Error(mt, err)
		assert.True(mt, mongo.IsDuplicateKeyError(err))
	})

	mt.Run("ensure indexes", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateSuccessResponse())

		require.NoError(mt, NewMongoDirectory(mt.Coll).EnsureIndexes(context.Background()))

		started := mt.GetStartedEvent()
		require.NotNil(mt, started)
		assert.Equal(mt, "createIndexes", started.CommandName)
	})

	mt.Run("ping", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateSuccessResponse())

		assert.NoError(mt, NewMongoDirectory(mt.Coll).Ping(context.Background()))
	})
}
