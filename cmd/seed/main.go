package main

import (
	"context"
	"log/slog"
	"os"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"surveyengine/internal/config"
	"surveyengine/internal/logger"
	"surveyengine/internal/model"
	"surveyengine/internal/repository"
	"surveyengine/internal/service"
)

func main() {
	cfg := config.Load()
	logger.Init(cfg.Log)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.MongoURI))
	if err != nil {
		fatal("failed to connect to MongoDB", err)
	}
	defer client.Disconnect(context.Background())

	// seed as the configured host so the survey shows up after login
	auth := service.NewAuthService(service.AuthConfig{
		HostUsername: cfg.HostUsername,
		HostPassword: cfg.HostPassword,
		JWTSecret:    cfg.JWTSecret,
	})
	login, err := auth.Login(cfg.HostUsername, cfg.HostPassword)
	if err != nil {
		fatal("failed to derive host id", err)
	}

	survey := demoSurvey(login.HostID)
	service.AssignIDs(survey)
	if err := service.Validate(survey); err != nil {
		fatal("demo survey is invalid", err)
	}

	id, err := repository.NewSurveyRepo(client.Database(cfg.MongoDB)).Create(ctx, survey)
	if err != nil {
		fatal("failed to insert survey", err)
	}

	slog.Info("seeded survey", "id", id, "host", login.HostID, "title", survey.Title)
	slog.Info("start a session", "request", "POST /v1/surveys/"+id+"/sessions")
}

func fatal(msg string, err error) {
	slog.Error(msg, "error", err)
	os.Exit(1)
}

func demoSurvey(hostID string) *model.Survey {
	return &model.Survey{
		HostID:          hostID,
		Title:           "Smartphone Launch Feedback",
		Type:            model.SurveyTypeSurvey,
		AllowReAnswer:   true,
		DefaultLanguage: "en",
		Sections: []model.Section{
			{
				ID:    "about",
				Title: "About you",
				Items: []model.SurveyItem{
					{ID: "intro", Type: model.ItemTypeContent, Text: "Thanks for trying the new phone. This takes two minutes."},
					{
						ID:   "owns-phone",
						Type: model.ItemTypeQuestion,
						Question: &model.Question{
							Type:     model.QuestionTypeThumbs,
							Prompt:   "Did you buy the phone?",
							Required: true,
						},
						FlowLogic: []model.FlowLogic{{
							ID:      "not-owner",
							Method:  model.LogicAll,
							Action:  model.FlowEndSurvey,
							EndPage: "Thanks! We will ask again after launch.",
							Conditions: []model.Condition{{
								QuestionType: model.QuestionTypeThumbs,
								Action:       model.CondEqual,
								Value:        model.ThumbsNo,
							}},
						}},
					},
				},
			},
			{
				ID:    "experience",
				Title: "Your experience",
				Items: []model.SurveyItem{
					{
						ID:   "liked",
						Type: model.ItemTypeQuestion,
						Question: &model.Question{
							Type:      model.QuestionTypeCheckboxes,
							Prompt:    "What do you like most?",
							MaxSelect: 2,
							Options: []model.Option{
								{ID: "camera", Label: "Camera"},
								{ID: "battery", Label: "Battery"},
								{ID: "screen", Label: "Screen"},
								{ID: "price", Label: "Price"},
							},
							CustomAnswer: true,
						},
					},
					{
						ID:   "recommend",
						Type: model.ItemTypeQuestion,
						Question: &model.Question{
							Type:     model.QuestionTypeNetPromoterScore,
							Prompt:   "How likely are you to recommend it to a friend?",
							Required: true,
							From:     0,
							To:       10,
						},
					},
				},
			},
			{
				ID:    "follow-up",
				Title: "One more thing",
				Items: []model.SurveyItem{
					{
						ID:   "why-not",
						Type: model.ItemTypeQuestion,
						Question: &model.Question{
							Type:      model.QuestionTypeText,
							Prompt:    "What would make you recommend it?",
							MaxLength: 500,
						},
						DisplayLogic: []model.DisplayLogic{{
							ID:     "detractor",
							Method: model.LogicAll,
							Action: model.DisplayShow,
							Conditions: []model.Condition{{
								Item:         "recommend",
								QuestionType: model.QuestionTypeNetPromoterScore,
								Action:       model.CondLess,
								Count:        7,
							}},
						}},
					},
				},
			},
		},
	}
}
