package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"surveyengine/internal/answer"
	"surveyengine/internal/cache"
	"surveyengine/internal/condition"
	"surveyengine/internal/event"
	"surveyengine/internal/i18n"
	"surveyengine/internal/metrics"
	"surveyengine/internal/model"
	"surveyengine/internal/navigation"
	"surveyengine/internal/quiz"
	"surveyengine/internal/repository"
	"surveyengine/internal/stats"
)

// Actions as reported in metrics
const (
	ActionShow    = "show"
	ActionSubmit  = "submit"
	ActionBack    = "back"
	ActionRestart = "restart"
)

// StatsSink takes bucket changes for best-effort aggregation
type StatsSink interface {
	Enqueue(changes ...model.BucketChange)
}

// DeltaNotifier receives the statistics delta of every accepted submission
type DeltaNotifier interface {
	Notify(delta model.StatisticsDelta)
}

// ResponseService processes respondent sessions: it renders the current position,
// accepts answers and moves the response through the survey
type ResponseService struct {
	surveys    SurveyProvider
	responses  repository.ResponseRepo
	recipients repository.RecipientRepo
	auth       *AuthService
	messages   i18n.Provider
	stats      StatsSink

	completions cache.CompletionCache
	publisher   event.Publisher
	broadcaster Broadcaster
	notifier    DeltaNotifier
	metrics     *metrics.Metrics

	log *slog.Logger
	now func() time.Time
}

// NewResponseService creates a new response service
func NewResponseService(
	surveys SurveyProvider,
	responses repository.ResponseRepo,
	recipients repository.RecipientRepo,
	auth *AuthService,
	messages i18n.Provider,
	statsSink StatsSink,
) *ResponseService {
	return &ResponseService{
		surveys:    surveys,
		responses:  responses,
		recipients: recipients,
		auth:       auth,
		messages:   messages,
		stats:      statsSink,
		log:        slog.Default().With("component", "response"),
		now:        time.Now,
	}
}

// SetBroadcaster sets the broadcaster for dashboard events
func (s *ResponseService) SetBroadcaster(b Broadcaster) {
	s.broadcaster = b
}

// SetNotifier sets the sink of live statistics deltas
func (s *ResponseService) SetNotifier(n DeltaNotifier) {
	s.notifier = n
}

// SetPublisher sets the publisher of completion events
func (s *ResponseService) SetPublisher(p event.Publisher) {
	s.publisher = p
}

// SetCompletionCache sets the de-duplication store of completion events
func (s *ResponseService) SetCompletionCache(c cache.CompletionCache) {
	s.completions = c
}

// SetMetrics sets the collectors submissions are counted on
func (s *ResponseService) SetMetrics(m *metrics.Metrics) {
	s.metrics = m
}

// StartSession opens a respondent session on a live survey
func (s *ResponseService) StartSession(ctx context.Context, surveyID string, req *model.StartSessionRequest) (*model.StartSessionResponse, error) {
	survey, err := s.surveys.GetByID(ctx, surveyID)
	if err != nil {
		return nil, fmt.Errorf("failed to load survey: %w", err)
	}
	if survey == nil {
		return nil, ErrSurveyNotFound
	}

	if req.Recipient != "" && s.recipients != nil {
		if err := s.recipients.Upsert(ctx, &model.Recipient{ID: req.Recipient, Survey: survey.ID}); err != nil {
			return nil, fmt.Errorf("failed to register recipient: %w", err)
		}
	}

	lang := req.Language
	if lang == "" {
		lang = survey.DefaultLanguage
	}
	token, sess, err := s.auth.IssueSessionToken(model.Session{
		SurveyID:   survey.ID,
		Recipient:  req.Recipient,
		Language:   lang,
		Dimensions: req.Dimensions,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to issue session token: %w", err)
	}
	return &model.StartSessionResponse{Token: token, SessionRef: sess.Ref}, nil
}

// Show renders the current position. It never writes.
func (s *ResponseService) Show(ctx context.Context, sess *model.Session) (*model.Fragment, error) {
	survey, r, err := s.load(ctx, sess)
	if err != nil {
		s.count(ActionShow, metrics.OutcomeFailed)
		return nil, err
	}
	s.count(ActionShow, metrics.OutcomeAccepted)
	return s.render(survey, r), nil
}

// SubmitAnswer validates and merges one submission, advances the response, persists it
// and schedules the statistics update. Validation and navigation problems come back as
// *ValidationError and *NavigationError; storage errors are returned as they are.
func (s *ResponseService) SubmitAnswer(ctx context.Context, sess *model.Session, req *model.SubmitAnswerRequest) (*model.Fragment, error) {
	survey, r, err := s.load(ctx, sess)
	if err != nil {
		s.count(ActionSubmit, metrics.OutcomeFailed)
		return nil, err
	}
	lang := s.language(survey, sess)

	if r.Completed {
		s.count(ActionSubmit, metrics.OutcomeNavigation)
		return nil, &NavigationError{Message: s.messages.Message(lang, i18n.MsgCompleted, nil), Err: navigation.ErrCompleted}
	}

	m := navigation.New(survey)
	values, err := s.validate(m, r, req, lang)
	if err != nil {
		s.count(ActionSubmit, metrics.OutcomeInvalid)
		return nil, err
	}

	res, err := m.Submit(r, values)
	if err != nil {
		var notInStep *navigation.ItemNotInStepError
		switch {
		case errors.As(err, &notInStep):
			s.count(ActionSubmit, metrics.OutcomeInvalid)
			return nil, &ValidationError{Fields: map[string]string{
				notInStep.Item: s.messages.Message(lang, answer.MsgNotInCurrentStep, nil),
			}}
		case errors.Is(err, navigation.ErrCompleted):
			s.count(ActionSubmit, metrics.OutcomeNavigation)
			return nil, &NavigationError{Message: s.messages.Message(lang, i18n.MsgCompleted, nil), Err: err}
		}
		s.count(ActionSubmit, metrics.OutcomeFailed)
		return nil, err
	}
	quiz.New(survey).Score(r, res.Items)

	justCompleted := res.Completed
	if err := s.responses.Save(ctx, r, justCompleted); err != nil {
		s.count(ActionSubmit, metrics.OutcomeFailed)
		s.log.Error("failed to save response", "survey", survey.ID, "session", sess.Ref, "error", err)
		return nil, err
	}
	s.count(ActionSubmit, metrics.OutcomeAccepted)

	changes := stats.Build(r, res)
	if len(changes) > 0 {
		if s.stats != nil {
			s.stats.Enqueue(changes...)
		}
		if s.notifier != nil {
			s.notifier.Notify(model.StatisticsDelta{Survey: survey.ID, Buckets: changes})
		}
	}
	if justCompleted {
		s.announceCompletion(ctx, r)
	}

	s.log.Debug("answer submitted",
		"survey", survey.ID,
		"response", r.ID,
		"step", r.Step,
		"changes", len(res.Changes),
		"skippedByFlow", len(res.SkippedByFlow),
		"completed", r.Completed)
	return s.render(survey, r), nil
}

// StepBack returns to the previous step without touching answers
func (s *ResponseService) StepBack(ctx context.Context, sess *model.Session) (*model.Fragment, error) {
	return s.changeStep(ctx, sess, ActionBack, func(m *navigation.Machine, r *model.Response) error {
		return m.StepBack(r)
	})
}

// Restart starts a new pass from the first section. Answers are kept.
func (s *ResponseService) Restart(ctx context.Context, sess *model.Session) (*model.Fragment, error) {
	frag, err := s.changeStep(ctx, sess, ActionRestart, func(m *navigation.Machine, r *model.Response) error {
		return m.Restart(r)
	})
	if err == nil && s.completions != nil {
		if rerr := s.completions.Reset(ctx, frag.Response); rerr != nil {
			s.log.Warn("failed to reset completion marker", "response", frag.Response, "error", rerr)
		}
	}
	return frag, err
}

func (s *ResponseService) changeStep(ctx context.Context, sess *model.Session, action string, move func(*navigation.Machine, *model.Response) error) (*model.Fragment, error) {
	survey, r, err := s.load(ctx, sess)
	if err != nil {
		s.count(action, metrics.OutcomeFailed)
		return nil, err
	}

	m := navigation.New(survey)
	if err := move(m, r); err != nil {
		if errors.Is(err, navigation.ErrCannotChangeStep) {
			s.count(action, metrics.OutcomeNavigation)
			return nil, &NavigationError{
				Message: s.messages.Message(s.language(survey, sess), i18n.MsgCannotChangeStep, nil),
				Err:     err,
			}
		}
		s.count(action, metrics.OutcomeFailed)
		return nil, err
	}

	if err := s.responses.Save(ctx, r, false); err != nil {
		s.count(action, metrics.OutcomeFailed)
		s.log.Error("failed to save response", "survey", survey.ID, "session", sess.Ref, "action", action, "error", err)
		return nil, err
	}
	s.count(action, metrics.OutcomeAccepted)
	return s.render(survey, r), nil
}

// load resolves the survey and the session's response. A session without a stored
// response gets a fresh one that is persisted on its first submit.
func (s *ResponseService) load(ctx context.Context, sess *model.Session) (*model.Survey, *model.Response, error) {
	survey, err := s.surveys.GetByID(ctx, sess.SurveyID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load survey: %w", err)
	}
	if survey == nil {
		return nil, nil, ErrSurveyNotFound
	}

	r, err := s.responses.GetByToken(ctx, sess.Ref)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load response: %w", err)
	}
	if r == nil {
		r = model.NewResponse(survey, sess.Ref, sess.Dimensions)
		r.Recipient = sess.Recipient
		r.Language = sess.Language
		r.CreatedAt = s.now()
		return survey, r, nil
	}
	if r.Survey != survey.ID {
		return nil, nil, ErrSessionNotFound
	}
	return survey, r, nil
}

// validate normalizes the submitted answers of the current step. Omitted items keep
// their answer; an empty value clears it.
func (s *ResponseService) validate(m *navigation.Machine, r *model.Response, req *model.SubmitAnswerRequest, lang string) (map[string]*model.AnswerValue, error) {
	items := m.CurrentItems(r)
	byID := make(map[string]*model.SurveyItem, len(items))
	for _, item := range items {
		byID[item.ID] = item
	}

	fields := make(map[string]string)
	values := make(map[string]*model.AnswerValue, len(req.Answers))
	for id, raw := range req.Answers {
		item, ok := byID[id]
		if !ok {
			fields[id] = s.messages.Message(lang, answer.MsgNotInCurrentStep, nil)
			continue
		}
		if !item.IsQuestion() {
			fields[id] = s.messages.Message(lang, answer.MsgInvalidValue, nil)
			continue
		}
		v, err := answer.Normalize(item.Question, raw)
		if err != nil {
			fields[id] = s.localize(lang, err)
			continue
		}
		values[id] = v
	}
	if len(fields) > 0 {
		return nil, &ValidationError{Fields: fields}
	}

	merged := make(map[string]*model.AnswerValue, len(r.Answer)+len(values))
	for id, v := range r.Answer {
		merged[id] = v
	}
	for id, v := range values {
		if v.IsEmpty() {
			delete(merged, id)
		} else {
			merged[id] = v
		}
	}

	for _, item := range items {
		if !item.IsQuestion() {
			continue
		}
		if !condition.Visible(item, merged) {
			// hidden items cannot be answered
			delete(values, item.ID)
			continue
		}
		if err := answer.Required(item.Question, merged[item.ID]); err != nil {
			fields[item.ID] = s.localize(lang, err)
		}
	}
	if len(fields) > 0 {
		return nil, &ValidationError{Fields: fields}
	}
	return values, nil
}

func (s *ResponseService) announceCompletion(ctx context.Context, r *model.Response) {
	if s.completions != nil {
		first, err := s.completions.MarkCompleted(ctx, r.ID)
		if err != nil {
			s.log.Warn("completion marker unavailable", "response", r.ID, "error", err)
		} else if !first {
			return
		}
	}

	ev := model.CompletionEvent{
		Survey:      r.Survey,
		Response:    r.ID,
		Token:       r.Token,
		Recipient:   r.Recipient,
		EndPage:     r.EndPage,
		QuizCorrect: r.QuizCorrect,
		QuizTotal:   r.QuizTotal,
		ScorePoints: r.ScorePoints,
	}
	if s.metrics != nil {
		s.metrics.Completions.Inc()
	}
	if s.publisher != nil {
		if err := s.publisher.Publish(ctx, event.ResponseCompleted, ev); err != nil {
			s.log.Error("failed to publish completion", "response", r.ID, "error", err)
		}
	}
	if s.broadcaster != nil {
		s.broadcaster.BroadcastToSurvey(r.Survey, MsgResponseCompleted, ev)
	}
}

func (s *ResponseService) render(survey *model.Survey, r *model.Response) *model.Fragment {
	m := navigation.New(survey)
	frag := &model.Fragment{
		Survey:     survey.ID,
		Response:   r.ID,
		Step:       r.Step,
		Items:      []model.SurveyItem{},
		CanGoBack:  m.CanStepBack(r),
		CanRestart: m.CanRestart(r),
		Completed:  r.Completed,
		EndPage:    r.EndPage,
	}

	if r.Completed {
		if quiz.New(survey).Enabled() {
			frag.Quiz = &model.QuizResult{Correct: r.QuizCorrect, Total: r.QuizTotal, Points: r.ScorePoints}
		}
		return frag
	}

	if survey.ValidStep(r.Step) {
		sec := survey.Sections[r.Step]
		frag.Section = &model.SectionView{ID: sec.ID, Title: sec.Title}
	}
	for _, item := range m.VisibleItems(r) {
		frag.Items = append(frag.Items, publicItem(item))
		if v, ok := r.Answer[item.ID]; ok {
			if frag.Answer == nil {
				frag.Answer = make(map[string]*model.AnswerValue)
			}
			frag.Answer[item.ID] = v
		}
	}
	return frag
}

// publicItem strips what a respondent must not see: grading keys and branching rules
func publicItem(item *model.SurveyItem) model.SurveyItem {
	out := model.SurveyItem{
		ID:   item.ID,
		Type: item.Type,
		Text: item.Text,
	}
	if item.Question != nil {
		q := *item.Question
		q.Quiz = nil
		q.Options = make([]model.Option, len(item.Question.Options))
		for i, o := range item.Question.Options {
			o.Correct = false
			o.Score = 0
			q.Options[i] = o
		}
		out.Question = &q
	}
	return out
}

func (s *ResponseService) language(survey *model.Survey, sess *model.Session) string {
	if sess.Language != "" {
		return sess.Language
	}
	return survey.DefaultLanguage
}

func (s *ResponseService) localize(lang string, err error) string {
	var fe *answer.FieldError
	if errors.As(err, &fe) {
		return s.messages.Message(lang, fe.Key, fe.Params)
	}
	return err.Error()
}

func (s *ResponseService) count(action, outcome string) {
	if s.metrics != nil {
		s.metrics.Submissions.WithLabelValues(action, outcome).Inc()
	}
}
