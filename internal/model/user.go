package model

import (
	"time"

	"github.com/google/uuid"
)

// User is the record managed by the CRUD surface.
type User struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	Email       string    `json:"email"`
	PhoneNumber *string   `json:"phone_number,omitempty"`
	Address     *string   `json:"address,omitempty"`
	Age         *int      `json:"age,omitempty"`
	// ProfilePicture is the media-relative path of the stored image, if any.
	ProfilePicture *string   `json:"profile_picture,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}
