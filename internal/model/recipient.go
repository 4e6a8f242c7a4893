package model

import "time"

// Recipient is an invited respondent whose activity is stamped alongside their response
type Recipient struct {
	ID             string     `json:"id" bson:"_id,omitempty"`
	Survey         string     `json:"survey" bson:"survey"`
	Email          string     `json:"email,omitempty" bson:"email,omitempty"`
	LastAnsweredAt *time.Time `json:"lastAnsweredAt,omitempty" bson:"lastAnsweredAt,omitempty"`
	CompletedAt    *time.Time `json:"completedAt,omitempty" bson:"completedAt,omitempty"`
}
