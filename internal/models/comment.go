package models

import (
	"strings"
	"time"
)

type Comment struct {
	ID        string    `json:"id" bson:"_id"`
	PostID    string    `json:"post_id" bson:"post_id"`
	UserID    string    `json:"user_id" bson:"user_id"`
	Content   string    `json:"content" bson:"content"`
	CreatedAt time.Time `json:"created_at" bson:"created_at"`

	// Derived at read time.
	UserPseudonym string `json:"user_pseudonym,omitempty" bson:"-"`
}

type AddCommentRequest struct {
	Content string `json:"content"`
}

func (r *AddCommentRequest) Validate() map[string]string {
	errors := make(map[string]string)

	if strings.TrimSpace(r.Content) == "" {
		errors["content"] = "Content is required"
	}

	return errors
}
