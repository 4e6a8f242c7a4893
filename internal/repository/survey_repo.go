package repository

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"surveyengine/internal/model"
)

// SurveyRepo handles MongoDB operations for survey definitions
type SurveyRepo interface {
	Create(ctx context.Context, survey *model.Survey) (string, error)
	GetByID(ctx context.Context, id string) (*model.Survey, error)
	GetByHostID(ctx context.Context, hostID string) ([]*model.Survey, error)
	Update(ctx context.Context, survey *model.Survey) error
	Delete(ctx context.Context, id string) error
}

type surveyRepo struct {
	collection *mongo.Collection
}

// NewSurveyRepo creates a new survey repository
func NewSurveyRepo(db *mongo.Database) SurveyRepo {
	repo := &surveyRepo{
		collection: db.Collection("surveys"),
	}
	createIndex(context.Background(), repo.collection, bson.D{
		{Key: "hostId", Value: 1},
		{Key: "createdAt", Value: -1},
	}, false)
	return repo
}

func (r *surveyRepo) Create(ctx context.Context, survey *model.Survey) (string, error) {
	now := time.Now()
	survey.CreatedAt = now
	survey.UpdatedAt = now

	survey.ID = ""
	result, err := r.collection.InsertOne(ctx, survey)
	if err != nil {
		return "", err
	}

	oid, ok := result.InsertedID.(primitive.ObjectID)
	if !ok {
		return "", nil
	}
	survey.ID = oid.Hex()
	return survey.ID, nil
}

func (r *surveyRepo) GetByID(ctx context.Context, id string) (*model.Survey, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, nil
	}

	var survey model.Survey
	err = r.collection.FindOne(ctx, bson.M{"_id": oid}).Decode(&survey)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	survey.ID = id
	return &survey, nil
}

func (r *surveyRepo) GetByHostID(ctx context.Context, hostID string) ([]*model.Survey, error) {
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}})
	cursor, err := r.collection.Find(ctx, bson.M{"hostId": hostID}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var surveys []*model.Survey
	if err := cursor.All(ctx, &surveys); err != nil {
		return nil, err
	}
	return surveys, nil
}

func (r *surveyRepo) Update(ctx context.Context, survey *model.Survey) error {
	oid, err := primitive.ObjectIDFromHex(survey.ID)
	if err != nil {
		return err
	}

	survey.UpdatedAt = time.Now()
	doc, err := toDocument(survey)
	if err != nil {
		return err
	}
	delete(doc, "_id")

	res, err := r.collection.ReplaceOne(ctx, bson.M{"_id": oid}, doc)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *surveyRepo) Delete(ctx context.Context, id string) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return err
	}

	_, err = r.collection.DeleteOne(ctx, bson.M{"_id": oid})
	return err
}

// toDocument round-trips v through BSON so a string _id can be dropped before a replace
func toDocument(v any) (bson.M, error) {
	raw, err := bson.Marshal(v)
	if err != nil {
		return nil, err
	}
	var doc bson.M
	if err := bson.Unmarshal(raw, &doc); err != nil {
		return nil, err
	}
	return doc, nil
}
