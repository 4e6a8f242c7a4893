package service

import (
	"errors"
	"sort"
	"strings"
)

var (
	ErrSurveyNotFound  = errors.New("survey not found")
	ErrInvalidSurvey   = errors.New("invalid survey definition")
	ErrSessionNotFound = errors.New("session not found")
)

// ValidationError rejects a submission. Fields maps item ids to localized messages.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	ids := make([]string, 0, len(e.Fields))
	for id := range e.Fields {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return "invalid answers: " + strings.Join(ids, ", ")
}

// NavigationError is a refused step change. Message is localized for the respondent.
type NavigationError struct {
	Message string
	Err     error
}

func (e *NavigationError) Error() string {
	return e.Err.Error()
}

func (e *NavigationError) Unwrap() error {
	return e.Err
}
