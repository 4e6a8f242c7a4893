package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"surveyengine/internal/cache"
	"surveyengine/internal/model"
	"surveyengine/internal/repository"
)

// SurveyProvider returns survey definitions by id, nil when unknown
type SurveyProvider interface {
	GetByID(ctx context.Context, id string) (*model.Survey, error)
}

// SurveyService handles survey definitions. Reads go through the Redis snapshot cache.
type SurveyService struct {
	surveyRepo  repository.SurveyRepo
	surveyCache cache.SurveyCache
	broadcaster Broadcaster
	log         *slog.Logger
}

// NewSurveyService creates a new survey service. surveyCache may be nil.
func NewSurveyService(surveyRepo repository.SurveyRepo, surveyCache cache.SurveyCache) *SurveyService {
	return &SurveyService{
		surveyRepo:  surveyRepo,
		surveyCache: surveyCache,
		log:         slog.Default().With("component", "survey"),
	}
}

// SetBroadcaster sets the dashboard broadcaster closed on delete
func (s *SurveyService) SetBroadcaster(b Broadcaster) {
	s.broadcaster = b
}

// Create validates and stores a new survey
func (s *SurveyService) Create(ctx context.Context, survey *model.Survey) (string, error) {
	if survey.Type == "" {
		survey.Type = model.SurveyTypeSurvey
	}
	AssignIDs(survey)
	if err := Validate(survey); err != nil {
		return "", err
	}
	return s.surveyRepo.Create(ctx, survey)
}

// GetByID retrieves a survey, preferring the cached snapshot
func (s *SurveyService) GetByID(ctx context.Context, id string) (*model.Survey, error) {
	if s.surveyCache != nil {
		survey, err := s.surveyCache.Get(ctx, id)
		if err != nil {
			s.log.Warn("survey cache read failed", "survey", id, "error", err)
		} else if survey != nil {
			return survey, nil
		}
	}

	survey, err := s.surveyRepo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load survey: %w", err)
	}
	if survey == nil {
		return nil, nil
	}
	if s.surveyCache != nil {
		if err := s.surveyCache.Set(ctx, survey); err != nil {
			s.log.Warn("survey cache write failed", "survey", id, "error", err)
		}
	}
	return survey, nil
}

// GetByHostID retrieves all surveys for a host
func (s *SurveyService) GetByHostID(ctx context.Context, hostID string) ([]*model.Survey, error) {
	return s.surveyRepo.GetByHostID(ctx, hostID)
}

// Update replaces a survey and drops its cached snapshot
func (s *SurveyService) Update(ctx context.Context, survey *model.Survey) error {
	AssignIDs(survey)
	if err := Validate(survey); err != nil {
		return err
	}
	if err := s.surveyRepo.Update(ctx, survey); err != nil {
		return err
	}
	s.invalidate(ctx, survey.ID)
	return nil
}

// Delete deletes a survey
func (s *SurveyService) Delete(ctx context.Context, id string) error {
	if err := s.surveyRepo.Delete(ctx, id); err != nil {
		return err
	}
	s.invalidate(ctx, id)
	if s.broadcaster != nil {
		s.broadcaster.DisconnectSurvey(id)
	}
	return nil
}

func (s *SurveyService) invalidate(ctx context.Context, id string) {
	if s.surveyCache == nil {
		return
	}
	if err := s.surveyCache.Invalidate(ctx, id); err != nil {
		s.log.Warn("survey cache invalidation failed", "survey", id, "error", err)
	}
}

// AssignIDs fills in missing section, item and question ids
func AssignIDs(survey *model.Survey) {
	for si := range survey.Sections {
		sec := &survey.Sections[si]
		if sec.ID == "" {
			sec.ID = uuid.New().String()
		}
		for ii := range sec.Items {
			item := &sec.Items[ii]
			if item.ID == "" {
				item.ID = uuid.New().String()
			}
			if item.Type == "" {
				item.Type = model.ItemTypeQuestion
			}
			if item.Question != nil && item.Question.ID == "" {
				item.Question.ID = uuid.New().String()
			}
		}
	}
}

// Validate checks the parts of a definition the response engine relies on
func Validate(survey *model.Survey) error {
	switch survey.Type {
	case model.SurveyTypeSurvey, model.SurveyTypeQuiz, model.SurveyTypePulse:
	default:
		return fmt.Errorf("%w: unknown survey type %q", ErrInvalidSurvey, survey.Type)
	}
	if len(survey.Sections) == 0 {
		return fmt.Errorf("%w: no sections", ErrInvalidSurvey)
	}

	sections := make(map[string]bool, len(survey.Sections))
	items := make(map[string]bool)
	for _, sec := range survey.Sections {
		if sections[sec.ID] {
			return fmt.Errorf("%w: duplicate section %s", ErrInvalidSurvey, sec.ID)
		}
		sections[sec.ID] = true
		for _, item := range sec.Items {
			if items[item.ID] {
				return fmt.Errorf("%w: duplicate item %s", ErrInvalidSurvey, item.ID)
			}
			items[item.ID] = true
			if item.Type == model.ItemTypeQuestion {
				if item.Question == nil {
					return fmt.Errorf("%w: item %s has no question", ErrInvalidSurvey, item.ID)
				}
				if _, ok := model.KindOf(item.Question.Type); !ok {
					return fmt.Errorf("%w: item %s has unknown question type %q", ErrInvalidSurvey, item.ID, item.Question.Type)
				}
			}
		}
	}
	if survey.FirstVisibleSection() < 0 {
		return fmt.Errorf("%w: every section is hidden", ErrInvalidSurvey)
	}

	for _, sec := range survey.Sections {
		for _, item := range sec.Items {
			for _, l := range item.FlowLogic {
				if l.Action == model.FlowToSection && !sections[l.Section] {
					return fmt.Errorf("%w: flow logic %s targets unknown section %s", ErrInvalidSurvey, l.ID, l.Section)
				}
			}
		}
	}
	return nil
}
