package repository

import (
	"context"
	"testing"

	"codebattle/internal/problem/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/integration/mtest"
)

func TestMongoProblemRepository(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	mt.Run("save upserts", func(mt *mtest.T) {
		repo := NewMongoProblemRepository(mt.DB)
		mt.AddMockResponses(mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 1}, bson.E{Key: "nModified", Value: 0}))

		p := model.Fallback()
		require.NoError(t, repo.Save(context.Background(), p))
		assert.False(t, p.CreatedAt.IsZero())
	})

	mt.Run("get by id", func(mt *mtest.T) {
		repo := NewMongoProblemRepository(mt.DB)
		mt.AddMockResponses(mtest.CreateCursorResponse(1, "db.problems", mtest.FirstBatch, bson.D{
			{Key: "_id", Value: "ITP1_1_C"},
			{Key: "title", Value: "Aizu ITP1_1_C"},
			{Key: "testCases", Value: bson.A{bson.D{{Key: "input", Value: "3 5"}, {Key: "expectedOutput", Value: "15 16"}}}},
		}))

		p, err := repo.GetByID(context.Background(), "ITP1_1_C")
		require.NoError(t, err)
		assert.Equal(t, "ITP1_1_C", p.ProblemID)
		require.Len(t, p.TestCases, 1)
		assert.Equal(t, "15 16", p.TestCases[0].ExpectedOutput)
	})

	mt.Run("get by id missing", func(mt *mtest.T) {
		repo := NewMongoProblemRepository(mt.DB)
		mt.AddMockResponses(mtest.CreateCursorResponse(0, "db.problems", mtest.FirstBatch))

		_, err := repo.GetByID(context.Background(), "nope")
		assert.ErrorIs(t, err, ErrProblemNotFound)
	})

	mt.Run("random id", func(mt *mtest.T) {
		repo := NewMongoProblemRepository(mt.DB)
		mt.AddMockResponses(mtest.CreateCursorResponse(0, "db.problems", mtest.FirstBatch, bson.D{{Key: "_id", Value: "ITP1_3_A"}}))

		id, err := repo.RandomID(context.Background())
		require.NoError(t, err)
		assert.Equal(t, "ITP1_3_A", id)
	})

	mt.Run("random id empty pool", func(mt *mtest.T) {
		repo := NewMongoProblemRepository(mt.DB)
		mt.AddMockResponses(mtest.CreateCursorResponse(0, "db.problems", mtest.FirstBatch))

		_, err := repo.RandomID(context.Background())
		assert.ErrorIs(t, err, ErrProblemNotFound)
	})
}
