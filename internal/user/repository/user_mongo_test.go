package repository

import (
	"context"
	"testing"

	"codebattle/internal/user/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo/integration/mtest"
)

func TestRecordWinPipelineRanksFromNewWins(t *testing.T) {
	pipeline := recordWinPipeline()
	require.Len(t, pipeline, 2)
	assert.Equal(t, "$set", pipeline[0][0].Key)

	rankStage := pipeline[1][0].Value.(bson.D)
	assert.Equal(t, "rank", rankStage[0].Key)
	sw := rankStage[0].Value.(bson.D)[0].Value.(bson.D)
	branches := sw[0].Value.(bson.A)
	require.Len(t, branches, len(model.RankTiers()))
	first := branches[0].(bson.D)
	assert.Equal(t, bson.D{{Key: "$gte", Value: bson.A{"$wins", int64(50)}}}, first[0].Value)
	assert.Equal(t, "Grandmaster", first[1].Value)
	assert.Equal(t, "Novice", sw[1].Value)
}

func TestMongoUserRepository(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	mt.Run("get by id", func(mt *mtest.T) {
		repo := NewMongoUserRepository(mt.DB)
		oid := primitive.NewObjectID()
		mt.AddMockResponses(mtest.CreateCursorResponse(1, "db.users", mtest.FirstBatch, bson.D{
			{Key: "_id", Value: oid},
			{Key: "username", Value: "alice"},
			{Key: "wins", Value: int64(4)},
			{Key: "matchesPlayed", Value: int64(9)},
			{Key: "rank", Value: "Apprentice"},
		}))

		user, err := repo.GetByID(context.Background(), oid.Hex())
		require.NoError(t, err)
		assert.Equal(t, oid.Hex(), user.ID)
		assert.Equal(t, "alice", user.Username)
		assert.Equal(t, model.RankApprentice, user.Rank)
	})

	mt.Run("get by id missing", func(mt *mtest.T) {
		repo := NewMongoUserRepository(mt.DB)
		mt.AddMockResponses(mtest.CreateCursorResponse(0, "db.users", mtest.FirstBatch))

		_, err := repo.GetByID(context.Background(), "nobody")
		assert.ErrorIs(t, err, ErrUserNotFound)
	})

	mt.Run("record win is one pipeline write", func(mt *mtest.T) {
		repo := NewMongoUserRepository(mt.DB)
		oid := primitive.NewObjectID()
		mt.AddMockResponses(mtest.CreateSuccessResponse(bson.E{Key: "value", Value: bson.D{
			{Key: "_id", Value: oid},
			{Key: "username", Value: "bob"},
			{Key: "wins", Value: int64(10)},
			{Key: "matchesPlayed", Value: int64(15)},
			{Key: "rank", Value: "Coder"},
		}}))

		user, err := repo.RecordWin(context.Background(), oid.Hex())
		require.NoError(t, err)
		assert.Equal(t, int64(10), user.Wins)
		assert.Equal(t, model.RankCoder, user.Rank)

		started := mt.GetStartedEvent()
		require.NotNil(t, started)
		assert.Equal(t, "findAndModify", started.CommandName)
		assert.Equal(t, bson.TypeArray, started.Command.Lookup("update").Type)
		assert.Nil(t, mt.GetStartedEvent())
	})

	mt.Run("record win failure leaves nothing half written", func(mt *mtest.T) {
		repo := NewMongoUserRepository(mt.DB)
		mt.AddMockResponses(mtest.CreateCommandErrorResponse(mtest.CommandError{
			Code:    2,
			Name:    "BadValue",
			Message: "boom",
		}))

		_, err := repo.RecordWin(context.Background(), primitive.NewObjectID().Hex())
		require.Error(t, err)
		assert.NotErrorIs(t, err, ErrUserNotFound)

		started := mt.GetStartedEvent()
		require.NotNil(t, started)
		assert.Equal(t, "findAndModify", started.CommandName)
		assert.Nil(t, mt.GetStartedEvent())
	})

	mt.Run("record win missing user", func(mt *mtest.T) {
		repo := NewMongoUserRepository(mt.DB)
		mt.AddMockResponses(mtest.CreateSuccessResponse(bson.E{Key: "value", Value: nil}))

		_, err := repo.RecordWin(context.Background(), "nobody")
		assert.ErrorIs(t, err, ErrUserNotFound)
	})
}
