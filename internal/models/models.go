package models

import "time"

const NotYetSent = "Not yet sent"

type User struct {
	ID              int64
	Username        string
	AccessToken     string
	RefreshToken    string
	TokenExpiration time.Time
	NeedCaptcha     bool
}

type Post struct {
	ID                 int64
	UserID             int64
	Title              string
	Subreddit          string
	URL                string
	SubmissionDate     time.Time
	SendReplies        bool
	Sent               bool
	SubmissionResponse string
}

type PostEventType string

const (
	PostScheduled PostEventType = "scheduled"
	PostUpdated   PostEventType = "updated"
	PostDeleted   PostEventType = "deleted"
)

// PostEvent is published to the broker whenever a scheduled post changes.
type PostEvent struct {
	Type           PostEventType `json:"type"`
	PostID         int64         `json:"post_id"`
	UserID         int64         `json:"user_id,omitempty"`
	Subreddit      string        `json:"subreddit,omitempty"`
	SubmissionDate *time.Time    `json:"submission_date,omitempty"`
	At             time.Time     `json:"at"`
}
