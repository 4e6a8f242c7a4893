package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"surveyengine/internal/model"
)

// ResponseRepo handles MongoDB operations for response records
type ResponseRepo interface {
	GetByToken(ctx context.Context, token string) (*model.Response, error)
	// Save writes the response and stamps its recipient in one transaction.
	// completed marks the save that finished the response.
	Save(ctx context.Context, response *model.Response, completed bool) error
	// Scan walks every response of a survey with a forward-only cursor
	Scan(ctx context.Context, surveyID string, fn func(*model.Response) error) error
}

type responseRepo struct {
	client     *mongo.Client
	collection *mongo.Collection
	recipients RecipientRepo
}

// NewResponseRepo creates a new response repository
func NewResponseRepo(db *mongo.Database, recipients RecipientRepo) ResponseRepo {
	repo := &responseRepo{
		client:     db.Client(),
		collection: db.Collection("responses"),
		recipients: recipients,
	}
	ctx := context.Background()
	createIndex(ctx, repo.collection, bson.D{{Key: "token", Value: 1}}, true)
	createIndex(ctx, repo.collection, bson.D{
		{Key: "survey", Value: 1},
		{Key: "createdAt", Value: 1},
	}, false)
	return repo
}

func (r *responseRepo) GetByToken(ctx context.Context, token string) (*model.Response, error) {
	var response model.Response
	err := r.collection.FindOne(ctx, bson.M{"token": token}).Decode(&response)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if response.Answer == nil {
		response.Answer = make(map[string]*model.AnswerValue)
	}
	return &response, nil
}

func (r *responseRepo) Save(ctx context.Context, response *model.Response, completed bool) error {
	session, err := r.client.StartSession()
	if err != nil {
		return fmt.Errorf("failed to start session: %w", err)
	}
	defer session.EndSession(ctx)

	now := time.Now()
	next := *response
	next.UpdatedAt = now
	if next.ID == "" {
		next.ID = uuid.New().String()
	}
	if next.CreatedAt.IsZero() {
		next.CreatedAt = now
	}
	next.Version = response.Version + 1

	_, err = session.WithTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
		if err := r.write(sc, &next, response.Version); err != nil {
			return nil, err
		}
		if next.Recipient != "" {
			if err := r.recipients.Stamp(sc, next.Recipient, next.Survey, now, completed); err != nil {
				return nil, fmt.Errorf("failed to stamp recipient: %w", err)
			}
		}
		return nil, nil
	})
	if err != nil {
		return err
	}

	response.ID = next.ID
	response.CreatedAt = next.CreatedAt
	response.UpdatedAt = next.UpdatedAt
	response.Version = next.Version
	return nil
}

// write inserts a fresh response or replaces the stored one if it is still at version prev
func (r *responseRepo) write(ctx context.Context, response *model.Response, prev int64) error {
	if prev == 0 {
		_, err := r.collection.InsertOne(ctx, response)
		if mongo.IsDuplicateKeyError(err) {
			return ErrConcurrentUpdate
		}
		return err
	}

	res, err := r.collection.ReplaceOne(ctx,
		bson.M{"_id": response.ID, "version": prev},
		response,
	)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrConcurrentUpdate
	}
	return nil
}

func (r *responseRepo) Scan(ctx context.Context, surveyID string, fn func(*model.Response) error) error {
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: 1}})
	cursor, err := r.collection.Find(ctx, bson.M{"survey": surveyID}, opts)
	if err != nil {
		return err
	}
	defer cursor.Close(ctx)

	for cursor.Next(ctx) {
		var response model.Response
		if err := cursor.Decode(&response); err != nil {
			return err
		}
		if err := fn(&response); err != nil {
			return err
		}
	}
	return cursor.Err()
}
