package repository

import (
	"context"
	"fmt"

	"codebattle/internal/common/docdb"
	"codebattle/internal/game/model"
	problemmodel "codebattle/internal/problem/model"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const matchesCollection = "matches"

// MongoMatchRepository stores matches in MongoDB, one document per room.
type MongoMatchRepository struct {
	coll *mongo.Collection
}

func NewMongoMatchRepository(database *mongo.Database) *MongoMatchRepository {
	return &MongoMatchRepository{coll: database.Collection(matchesCollection)}
}

// EnsureIndexes creates the unique room id index duplicate detection relies on.
func (r *MongoMatchRepository) EnsureIndexes(ctx context.Context) error {
	_, err := r.coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "roomId", Value: 1}},
		Options: options.Index().SetUnique(true).SetName("uk_room_id"),
	})
	if err != nil {
		return fmt.Errorf("create matches index failed: %w", err)
	}
	return nil
}

func (r *MongoMatchRepository) Create(ctx context.Context, match *model.Match) error {
	if match == nil {
		return fmt.Errorf("match is nil")
	}
	if _, err := r.coll.InsertOne(ctx, match); err != nil {
		if docdb.IsDuplicateKey(err) {
			return ErrDuplicateRoom
		}
		return err
	}
	return nil
}

func (r *MongoMatchRepository) GetByRoomID(ctx context.Context, roomID string) (*model.Match, error) {
	var m model.Match
	if err := r.coll.FindOne(ctx, bson.M{"roomId": roomID}).Decode(&m); err != nil {
		if docdb.IsNoDocuments(err) {
			return nil, ErrMatchNotFound
		}
		return nil, err
	}
	return &m, nil
}

func (r *MongoMatchRepository) AssignProblem(ctx context.Context, roomID, problemID string, testCases []problemmodel.TestCase) (bool, error) {
	filter := bson.M{
		"roomId": roomID,
		"$or": bson.A{
			bson.M{"testCases": bson.M{"$exists": false}},
			bson.M{"testCases": nil},
			bson.M{"testCases": bson.M{"$size": 0}},
		},
	}
	update := bson.M{"$set": bson.M{"problemId": problemID, "testCases": testCases}}
	return r.conditionalUpdate(ctx, filter, update)
}

func (r *MongoMatchRepository) Join(ctx context.Context, roomID, userID string) (bool, error) {
	filter := bson.M{"roomId": roomID, "status": model.StatusWaiting}
	update := bson.M{"$set": bson.M{"player2": userID, "status": model.StatusActive}}
	return r.conditionalUpdate(ctx, filter, update)
}

func (r *MongoMatchRepository) FinishIfOpen(ctx context.Context, roomID, winner string) (bool, error) {
	filter := bson.M{"roomId": roomID, "status": bson.M{"$ne": model.StatusFinished}}
	update := bson.M{
		"$set":         bson.M{"status": model.StatusFinished, "winner": winner},
		"$currentDate": bson.M{"finishedAt": true},
	}
	return r.conditionalUpdate(ctx, filter, update)
}

func (r *MongoMatchRepository) conditionalUpdate(ctx context.Context, filter, update bson.M) (bool, error) {
	res, err := r.coll.UpdateOne(ctx, filter, update)
	if err != nil {
		return false, err
	}
	return res.MatchedCount == 1, nil
}
