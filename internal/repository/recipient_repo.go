package repository

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"surveyengine/internal/model"
)

// RecipientRepo handles MongoDB operations for invited respondents
type RecipientRepo interface {
	Upsert(ctx context.Context, recipient *model.Recipient) error
	// Stamp records activity. Pass a transaction context to make it part of a response save.
	Stamp(ctx context.Context, id, surveyID string, at time.Time, completed bool) error
}

type recipientRepo struct {
	collection *mongo.Collection
}

// NewRecipientRepo creates a new recipient repository
func NewRecipientRepo(db *mongo.Database) RecipientRepo {
	repo := &recipientRepo{
		collection: db.Collection("recipients"),
	}
	createIndex(context.Background(), repo.collection, bson.D{{Key: "survey", Value: 1}}, false)
	return repo
}

func (r *recipientRepo) Upsert(ctx context.Context, recipient *model.Recipient) error {
	opts := options.Update().SetUpsert(true)
	set := bson.M{"survey": recipient.Survey}
	if recipient.Email != "" {
		set["email"] = recipient.Email
	}
	_, err := r.collection.UpdateOne(ctx, bson.M{"_id": recipient.ID}, bson.M{"$set": set}, opts)
	return err
}

func (r *recipientRepo) Stamp(ctx context.Context, id, surveyID string, at time.Time, completed bool) error {
	set := bson.M{"survey": surveyID, "lastAnsweredAt": at}
	if completed {
		set["completedAt"] = at
	}
	opts := options.Update().SetUpsert(true)
	_, err := r.collection.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": set}, opts)
	return err
}
