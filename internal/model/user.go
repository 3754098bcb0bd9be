package model

import "time"

const (
	DefaultBio           = "Bio is empty"
	DefaultGithubProfile = "Github profile is empty"
	DefaultCity          = "City is empty"
	DefaultProfileImage  = "https://eadb.org/wp-content/uploads/2015/08/profile-placeholder.jpg"
)

// User is the basic account information.
type User struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Email        string `json:"email"`
	Username     string `json:"username"`
	ProfileImage string `json:"profileImage"`
}

// Profile is everything about a user except the credentials.
type Profile struct {
	ID            string    `json:"id"`
	Name          string    `json:"name"`
	Email         string    `json:"email"`
	JoinDate      time.Time `json:"joinDate"`
	Bio           string    `json:"bio"`
	GithubProfile string    `json:"githubProfile"`
	Skills        []string  `json:"skills"`
	SavedProjects []string  `json:"savedProjects"`
	City          string    `json:"city"`
	ProfileImage  string    `json:"profileImage"`
}

// UserSummary is how other users are embedded in projects and meetings.
type UserSummary struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Email        string `json:"email,omitempty"`
	ProfileImage string `json:"profileImage"`
}

type Session struct {
	ID    string `json:"id"`
	Token string `json:"token"`
}

type UserUpdate struct {
	Name        *string
	Username    *string
	NewPassword *string
	Password    string
}

type ProfileUpdate struct {
	Bio           *string
	GithubProfile *string
	City          *string
	Skills        []string
}
