package model

import (
	"time"

	"github.com/google/uuid"
)

// PlumberRequest is a request for an on-site plumbing visit.
type PlumberRequest struct {
	ID                 uuid.UUID `json:"id" db:"id"`
	UserID             int64     `json:"userId" db:"user_id"`
	Address            string    `json:"address" db:"address"`
	PhoneNumber        string    `json:"phoneNumber" db:"phone_number"`
	ProblemDescription string    `json:"problemDescription" db:"problem_description"`
	Image              *string   `json:"image,omitempty" db:"image"`
	Status             Status    `json:"status" db:"status"`
	Rating             *int      `json:"rating,omitempty" db:"rating"`
	Comment            *string   `json:"comment,omitempty" db:"comment"`
	CreatedAt          time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt          time.Time `json:"updatedAt" db:"updated_at"`
}

// CreatePlumberRequest carries the fields of a new request. Image is the stored object key, if any.
type CreatePlumberRequest struct {
	Address            string  `json:"address"`
	PhoneNumber        string  `json:"phoneNumber"`
	ProblemDescription string  `json:"problemDescription"`
	Image              *string `json:"-"`
}

// RatingCommentRequest is the payload for PATCH /api/plumber-requests/{id}/rating-comment.
// Absent fields are left untouched.
type RatingCommentRequest struct {
	Rating  *int    `json:"rating,omitempty"`
	Comment *string `json:"comment,omitempty"`
}
