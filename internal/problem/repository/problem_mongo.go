package repository

import (
	"context"
	"fmt"
	"time"

	"codebattle/internal/common/docdb"
	"codebattle/internal/problem/model"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const problemsCollection = "problems"

// MongoProblemRepository stores problems keyed by problem id.
type MongoProblemRepository struct {
	coll *mongo.Collection
}

func NewMongoProblemRepository(database *mongo.Database) *MongoProblemRepository {
	return &MongoProblemRepository{coll: database.Collection(problemsCollection)}
}

func (r *MongoProblemRepository) Save(ctx context.Context, problem *model.Problem) error {
	if problem == nil {
		return fmt.Errorf("problem is nil")
	}
	if problem.CreatedAt.IsZero() {
		problem.CreatedAt = time.Now()
	}
	_, err := r.coll.ReplaceOne(ctx, bson.M{"_id": problem.ProblemID}, problem, options.Replace().SetUpsert(true))
	return err
}

func (r *MongoProblemRepository) GetByID(ctx context.Context, problemID string) (*model.Problem, error) {
	var p model.Problem
	if err := r.coll.FindOne(ctx, bson.M{"_id": problemID}).Decode(&p); err != nil {
		if docdb.IsNoDocuments(err) {
			return nil, ErrProblemNotFound
		}
		return nil, err
	}
	return &p, nil
}

func (r *MongoProblemRepository) RandomID(ctx context.Context) (string, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$sample", Value: bson.M{"size": 1}}},
		{{Key: "$project", Value: bson.M{"_id": 1}}},
	}
	cur, err := r.coll.Aggregate(ctx, pipeline)
	if err != nil {
		return "", err
	}
	defer func() { _ = cur.Close(ctx) }()

	if !cur.Next(ctx) {
		if err := cur.Err(); err != nil {
			return "", err
		}
		return "", ErrProblemNotFound
	}
	var doc struct {
		ID string `bson:"_id"`
	}
	if err := cur.Decode(&doc); err != nil {
		return "", err
	}
	return doc.ID, nil
}

func (r *MongoProblemRepository) Count(ctx context.Context) (int64, error) {
	return r.coll.EstimatedDocumentCount(ctx)
}
