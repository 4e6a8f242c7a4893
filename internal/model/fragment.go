package model

// Fragment is what a respondent sees at their current position
type Fragment struct {
	Survey     string                  `json:"survey"`
	Response   string                  `json:"response,omitempty"`
	Step       int                     `json:"step"`
	Section    *SectionView            `json:"section,omitempty"`
	Items      []SurveyItem            `json:"items"`
	Answer     map[string]*AnswerValue `json:"answer,omitempty"`
	CanGoBack  bool                    `json:"canGoBack"`
	CanRestart bool                    `json:"canRestart"`
	Completed  bool                    `json:"completed"`
	EndPage    string                  `json:"endPage,omitempty"`
	Quiz       *QuizResult             `json:"quiz,omitempty"`
}

// SectionView is the section header shown above the items
type SectionView struct {
	ID    string `json:"id"`
	Title string `json:"title,omitempty"`
}

// QuizResult is reported once a quiz or scored survey completes
type QuizResult struct {
	Correct int `json:"correct"`
	Total   int `json:"total"`
	Points  int `json:"points"`
}

// CompletionEvent is emitted once when a response becomes completed
type CompletionEvent struct {
	Survey      string `json:"survey"`
	Response    string `json:"response"`
	Token       string `json:"token"`
	Recipient   string `json:"recipient,omitempty"`
	EndPage     string `json:"endPage,omitempty"`
	QuizCorrect int    `json:"quizCorrect"`
	QuizTotal   int    `json:"quizTotal"`
	ScorePoints int    `json:"scorePoints"`
}
