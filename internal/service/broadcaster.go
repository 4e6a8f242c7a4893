package service

// Broadcaster pushes messages to survey dashboards (avoids import cycle with ws)
type Broadcaster interface {
	BroadcastToSurvey(surveyID string, msgType string, payload interface{})
	DisconnectSurvey(surveyID string)
}
