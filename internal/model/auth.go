package model

import "github.com/golang-jwt/jwt/v5"

// HostClaims are JWT claims for host authentication
type HostClaims struct {
	HostID string `json:"hostId"`
	jwt.RegisteredClaims
}

// RespondentClaims are JWT claims for a survey-scoped respondent session
type RespondentClaims struct {
	SurveyID   string     `json:"surveyId"`
	SessionRef string     `json:"sessionRef"`
	Recipient  string     `json:"recipient,omitempty"`
	Language   string     `json:"language,omitempty"`
	Dimensions Dimensions `json:"dimensions,omitempty"`
	jwt.RegisteredClaims
}

// LoginRequest is the request body for host login
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// LoginResponse is returned after successful login
type LoginResponse struct {
	Token  string `json:"token"`
	HostID string `json:"hostId"`
}

// StartSessionRequest opens a respondent session on a survey
type StartSessionRequest struct {
	Recipient  string     `json:"recipient,omitempty"`
	Language   string     `json:"language,omitempty"`
	Dimensions Dimensions `json:"dimensions,omitempty"`
}

// StartSessionResponse is returned after a session is opened
type StartSessionResponse struct {
	Token      string `json:"token"`
	SessionRef string `json:"sessionRef"`
}
