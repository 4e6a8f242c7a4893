package service

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"surveyengine/internal/model"
	"surveyengine/internal/repository"
)

type fakeSurveys struct {
	surveys map[string]*model.Survey
}

func (f *fakeSurveys) GetByID(_ context.Context, id string) (*model.Survey, error) {
	return f.surveys[id], nil
}

// fakeResponses stores copies so a failed save leaves the stored document untouched
type fakeResponses struct {
	mu      sync.Mutex
	byToken map[string][]byte
	saveErr error
	saves   int
	stamps  []string
}

func newFakeResponses() *fakeResponses {
	return &fakeResponses{byToken: make(map[string][]byte)}
}

func (f *fakeResponses) GetByToken(_ context.Context, token string) (*model.Response, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	data, ok := f.byToken[token]
	if !ok {
		return nil, nil
	}
	var r model.Response
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, err
	}
	if r.Answer == nil {
		r.Answer = make(map[string]*model.AnswerValue)
	}
	return &r, nil
}

func (f *fakeResponses) Save(_ context.Context, r *model.Response, completed bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.saveErr != nil {
		return f.saveErr
	}
	if data, ok := f.byToken[r.Token]; ok {
		var stored model.Response
		_ = json.Unmarshal(data, &stored)
		if stored.Version != r.Version {
			return repository.ErrConcurrentUpdate
		}
	}
	if r.ID == "" {
		r.ID = "resp-" + r.Token
	}
	r.Version++
	r.UpdatedAt = time.Now()
	data, err := json.Marshal(r)
	if err != nil {
		return err
	}
	f.byToken[r.Token] = data
	f.saves++
	if r.Recipient != "" {
		stamp := r.Recipient
		if completed {
			stamp += ":completed"
		}
		f.stamps = append(f.stamps, stamp)
	}
	return nil
}

func (f *fakeResponses) Scan(ctx context.Context, surveyID string, fn func(*model.Response) error) error {
	f.mu.Lock()
	tokens := make([]string, 0, len(f.byToken))
	for t := range f.byToken {
		tokens = append(tokens, t)
	}
	f.mu.Unlock()
	for _, t := range tokens {
		r, err := f.GetByToken(ctx, t)
		if err != nil {
			return err
		}
		if r.Survey == surveyID {
			if err := fn(r); err != nil {
				return err
			}
		}
	}
	return nil
}

type fakeRecipients struct {
	upserted []*model.Recipient
}

func (f *fakeRecipients) Upsert(_ context.Context, r *model.Recipient) error {
	f.upserted = append(f.upserted, r)
	return nil
}

func (f *fakeRecipients) Stamp(context.Context, string, string, time.Time, bool) error {
	return nil
}

type recordingSink struct {
	mu      sync.Mutex
	changes []model.BucketChange
}

func (s *recordingSink) Enqueue(changes ...model.BucketChange) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.changes = append(s.changes, changes...)
}

type broadcast struct {
	survey  string
	msgType string
	payload interface{}
}

type recordingBroadcaster struct {
	mu       sync.Mutex
	messages []broadcast
}

func (b *recordingBroadcaster) BroadcastToSurvey(surveyID string, msgType string, payload interface{}) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.messages = append(b.messages, broadcast{surveyID, msgType, payload})
}

func (b *recordingBroadcaster) DisconnectSurvey(string) {}

func (b *recordingBroadcaster) ofType(msgType string) []broadcast {
	b.mu.Lock()
	defer b.mu.Unlock()
	var out []broadcast
	for _, m := range b.messages {
		if m.msgType == msgType {
			out = append(out, m)
		}
	}
	return out
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []model.CompletionEvent
}

func (p *recordingPublisher) Publish(_ context.Context, _ string, payload any) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if ev, ok := payload.(model.CompletionEvent); ok {
		p.events = append(p.events, ev)
	}
	return nil
}

func (p *recordingPublisher) Close() error { return nil }
