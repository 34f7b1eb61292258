package model

import "time"

// Major represents an academic program that students belong to.
type Major struct {
	ID        int       `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// MajorRequest is the payload for creating or renaming a major.
type MajorRequest struct {
	Name string `json:"name" binding:"required,max=100"`
}

// MajorCount is one dashboard bar: a major and how many students reference it.
type MajorCount struct {
	MajorID int    `json:"major_id"`
	Label   string `json:"label"`
	Count   int    `json:"count"`
}
