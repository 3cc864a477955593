package repository

import (
	"context"
	"fmt"
	"time"

	"codebattle/internal/common/docdb"
	"codebattle/internal/user/model"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const usersCollection = "users"

type userDocument struct {
	ID            interface{} `bson:"_id"`
	Username      string      `bson:"username"`
	Wins          int64       `bson:"wins"`
	MatchesPlayed int64       `bson:"matchesPlayed"`
	Rank          string      `bson:"rank"`
	CreatedAt     time.Time   `bson:"createdAt"`
	UpdatedAt     time.Time   `bson:"updatedAt"`
}

func (d userDocument) toModel() *model.User {
	id := fmt.Sprint(d.ID)
	if oid, ok := d.ID.(primitive.ObjectID); ok {
		id = oid.Hex()
	}
	return &model.User{
		ID:            id,
		Username:      d.Username,
		Wins:          d.Wins,
		MatchesPlayed: d.MatchesPlayed,
		Rank:          model.Rank(d.Rank),
		CreatedAt:     d.CreatedAt,
		UpdatedAt:     d.UpdatedAt,
	}
}

// MongoUserRepository stores users in a MongoDB collection.
type MongoUserRepository struct {
	coll *mongo.Collection
}

func NewMongoUserRepository(database *mongo.Database) *MongoUserRepository {
	return &MongoUserRepository{coll: database.Collection(usersCollection)}
}

func (r *MongoUserRepository) GetByID(ctx context.Context, id string) (*model.User, error) {
	var doc userDocument
	if err := r.coll.FindOne(ctx, idFilter(id)).Decode(&doc); err != nil {
		if docdb.IsNoDocuments(err) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return doc.toModel(), nil
}

// RecordWin bumps the counters and recomputes the rank from the new win count
// in a single pipeline update, so wins and rank can never disagree.
func (r *MongoUserRepository) RecordWin(ctx context.Context, id string) (*model.User, error) {
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var doc userDocument
	if err := r.coll.FindOneAndUpdate(ctx, idFilter(id), recordWinPipeline(), opts).Decode(&doc); err != nil {
		if docdb.IsNoDocuments(err) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("record win failed: %w", err)
	}
	return doc.toModel(), nil
}

// recordWinPipeline increments wins and matchesPlayed, then derives rank
// from the incremented wins in the second stage.
func recordWinPipeline() mongo.Pipeline {
	branches := bson.A{}
	for _, tier := range model.RankTiers() {
		branches = append(branches, bson.D{
			{Key: "case", Value: bson.D{{Key: "$gte", Value: bson.A{"$wins", tier.MinWins}}}},
			{Key: "then", Value: string(tier.Rank)},
		})
	}
	return mongo.Pipeline{
		{{Key: "$set", Value: bson.D{
			{Key: "wins", Value: bson.D{{Key: "$add", Value: bson.A{bson.D{{Key: "$ifNull", Value: bson.A{"$wins", 0}}}, 1}}}},
			{Key: "matchesPlayed", Value: bson.D{{Key: "$add", Value: bson.A{bson.D{{Key: "$ifNull", Value: bson.A{"$matchesPlayed", 0}}}, 1}}}},
			{Key: "updatedAt", Value: "$$NOW"},
		}}},
		{{Key: "$set", Value: bson.D{
			{Key: "rank", Value: bson.D{{Key: "$switch", Value: bson.D{
				{Key: "branches", Value: branches},
				{Key: "default", Value: string(model.RankNovice)},
			}}}},
		}}},
	}
}

func idFilter(id string) bson.M {
	if oid, err := primitive.ObjectIDFromHex(id); err == nil {
		return bson.M{"_id": oid}
	}
	return bson.M{"_id": id}
}
