package model

// Session identifies one respondent working through one survey. Ref doubles as the
// response token.
type Session struct {
	SurveyID   string     `json:"surveyId"`
	Ref        string     `json:"sessionRef"`
	Recipient  string     `json:"recipient,omitempty"`
	Language   string     `json:"language,omitempty"`
	Dimensions Dimensions `json:"dimensions,omitempty"`
}

// Session returns the session the claims were issued for
func (c *RespondentClaims) Session() Session {
	return Session{
		SurveyID:   c.SurveyID,
		Ref:        c.SessionRef,
		Recipient:  c.Recipient,
		Language:   c.Language,
		Dimensions: c.Dimensions,
	}
}
