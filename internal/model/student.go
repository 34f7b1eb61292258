package model

import "time"

// Student is a roster entry. ID is supplied by the caller and is the primary key.
type Student struct {
	ID        int       `json:"student_id"`
	Name      string    `json:"student_name"`
	MajorID   int       `json:"major_id"`
	MajorName string    `json:"major_name,omitempty"`
	Notes     string    `json:"notes"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// StudentFilter narrows student listings and exports.
// Query matches the name or the decimal id, case-insensitively.
type StudentFilter struct {
	Query   string
	MajorID *int
}

// StudentRequest is the payload for creating or updating a student.
// On update, ID may differ from the path id to change the primary key.
type StudentRequest struct {
	ID      int    `json:"student_id" binding:"required,min=1,max=2147483647"`
	Name    string `json:"student_name" binding:"required,max=100"`
	MajorID int    `json:"major_id" binding:"required,min=1,max=2147483647"`
	Notes   string `json:"notes" binding:"max=2000"`
}

// StudentQuery binds the listing/export query string.
type StudentQuery struct {
	Q       string `form:"q" binding:"max=100"`
	MajorID *int   `form:"major_id" binding:"omitempty,min=1,max=2147483647"`
}

// Filter converts the bound query into a StudentFilter.
func (q StudentQuery) Filter() StudentFilter {
	return StudentFilter{Query: q.Q, MajorID: q.MajorID}
}
