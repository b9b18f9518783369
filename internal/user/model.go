package user

import (
	"time"

	"github.com/google/uuid"
)

// DefaultPhotoURL is the avatar shown for users who never set a photo. Every
// projection that serializes a profile applies it, so listings and the
// profile endpoint agree.
const DefaultPhotoURL = "https://geographyandyou.com/images/user-profile.png"

type User struct {
	ID        uuid.UUID `json:"id"`
	FirstName string    `json:"firstName"`
	LastName  string    `json:"lastName,omitempty"`
	Email     string    `json:"email"`
	Password  string    `json:"-"`
	Age       int       `json:"age,omitempty"`
	Gender    string    `json:"gender,omitempty"`
	About     string    `json:"about,omitempty"`
	PhotoURL  string    `json:"photoUrl"`
	Skills    []string  `json:"skills"`
	Links     []string  `json:"links,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Public is the profile slice safe to show other users. It never carries the
// email or the credential hash.
type Public struct {
	ID        uuid.UUID `json:"id"`
	FirstName string    `json:"firstName"`
	LastName  string    `json:"lastName,omitempty"`
	Age       int       `json:"age,omitempty"`
	Gender    string    `json:"gender,omitempty"`
	About     string    `json:"about,omitempty"`
	PhotoURL  string    `json:"photoUrl"`
	Skills    []string  `json:"skills"`
}

func (u *User) Public() Public {
	photo := u.PhotoURL
	if photo == "" {
		photo = DefaultPhotoURL
	}
	skills := u.Skills
	if skills == nil {
		skills = []string{}
	}
	return Public{
		ID:        u.ID,
		FirstName: u.FirstName,
		LastName:  u.LastName,
		Age:       u.Age,
		Gender:    u.Gender,
		About:     u.About,
		PhotoURL:  photo,
		Skills:    skills,
	}
}

type SignupRequest struct {
	FirstName string   `json:"firstName"`
	LastName  string   `json:"lastName"`
	Email     string   `json:"email"`
	Password  string   `json:"password"`
	Age       int      `json:"age"`
	Gender    string   `json:"gender"`
	About     string   `json:"about"`
	PhotoURL  string   `json:"photoUrl"`
	Skills    []string `json:"skills"`
	Links     []string `json:"links"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// ProfileUpdate carries the editable profile fields; nil means "leave as is".
// Email and password are deliberately absent, they are not editable here.
type ProfileUpdate struct {
	FirstName *string   `json:"firstName,omitempty"`
	LastName  *string   `json:"lastName,omitempty"`
	Age       *int      `json:"age,omitempty"`
	Gender    *string   `json:"gender,omitempty"`
	About     *string   `json:"about,omitempty"`
	PhotoURL  *string   `json:"photoUrl,omitempty"`
	Skills    *[]string `json:"skills,omitempty"`
	Links     *[]string `json:"links,omitempty"`
}
