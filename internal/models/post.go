package models

import (
	"strings"
	"time"
)

// Vote choices. A voter holds at most one active choice per post.
const (
	VoteGreen = "green"
	VoteRed   = "red"
)

// Post is a piece of anonymous feedback about a dating contact. Name, Age
// and City describe the subject of the feedback, not the author. GreenFlags
// and RedFlags are derived from the vote records and never set directly.
type Post struct {
	ID          string    `json:"id" bson:"_id"`
	UserID      string    `json:"user_id" bson:"user_id"`
	Name        string    `json:"name" bson:"name"`
	Age         int       `json:"age" bson:"age"`
	City        string    `json:"city" bson:"city"`
	Text        string    `json:"text" bson:"text"`
	FileID      string    `json:"file_id,omitempty" bson:"file_id,omitempty"`
	GreenFlags  int       `json:"green_flags" bson:"green_flags"`
	RedFlags    int       `json:"red_flags" bson:"red_flags"`
	IsReported  bool      `json:"is_reported" bson:"is_reported"`
	ReportCount int       `json:"report_count" bson:"report_count"`
	CreatedAt   time.Time `json:"created_at" bson:"created_at"`

	// Derived at read time, never stored.
	ImageURL         string `json:"image_url,omitempty" bson:"-"`
	CreatorPseudonym string `json:"creator_pseudonym,omitempty" bson:"-"`
	RepliesCount     int    `json:"replies_count" bson:"-"`
}

// Vote is one voter's active choice on a post. Stored in its own
// collection keyed by post; the sole source of truth for the counters.
type Vote struct {
	ID      string `json:"id" bson:"_id"`
	PostID  string `json:"post_id" bson:"post_id"`
	VoterID string `json:"voter_id" bson:"voter_id"`
	Choice  string `json:"choice" bson:"choice"`
}

type CreatePostRequest struct {
	Name   string `json:"name"`
	Age    int    `json:"age"`
	City   string `json:"city"`
	Text   string `json:"text"`
	FileID string `json:"file_id"`
}

func (r *CreatePostRequest) Validate() map[string]string {
	errors := make(map[string]string)

	if strings.TrimSpace(r.Name) == "" {
		errors["name"] = "Name is required"
	}
	if r.Age <= 0 {
		errors["age"] = "Age is required"
	}
	if strings.TrimSpace(r.City) == "" {
		errors["city"] = "City is required"
	}
	if strings.TrimSpace(r.Text) == "" {
		errors["text"] = "Text is required"
	}

	return errors
}

// VoteRequest carries the caller's choice. An empty choice retracts the
// caller's existing vote.
type VoteRequest struct {
	Choice string `json:"choice"`
}

func (r *VoteRequest) Validate() map[string]string {
	errors := make(map[string]string)

	if r.Choice != "" && r.Choice != VoteGreen && r.Choice != VoteRed {
		errors["choice"] = "Choice must be green, red or empty"
	}

	return errors
}

type ReportRequest struct {
	Reason string `json:"reason"`
}
