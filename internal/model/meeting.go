package model

import "time"

type Meeting struct {
	ID          string    `json:"id"`
	Project     string    `json:"project"`
	Date        time.Time `json:"date"`
	Location    string    `json:"location"`
	Description string    `json:"description"`
	Attending   []string  `json:"attending"`
}

type MeetingInfo struct {
	ID          string         `json:"id"`
	Project     string         `json:"project"`
	Date        time.Time      `json:"date"`
	Location    string         `json:"location"`
	Description string         `json:"description"`
	Attending   []*UserSummary `json:"attending"`
}

type ProjectRef struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type UpcomingMeeting struct {
	ID          string      `json:"id"`
	Project     *ProjectRef `json:"project"`
	Date        time.Time   `json:"date"`
	Location    string      `json:"location"`
	Description string      `json:"description"`
	Attending   []string    `json:"attending"`
}

type NewMeeting struct {
	Date        time.Time
	Location    string
	Description string
}
