package course

import (
	"errors"
	"time"
)

var (
	// ErrNotFound indicates a course could not be located.
	ErrNotFound = errors.New("course not found")
	// ErrLectureNotFound indicates a lecture could not be located.
	ErrLectureNotFound = errors.New("lecture not found")
)

// Media references an uploaded object (thumbnail or lecture video) held by
// external object storage.
type Media struct {
	PublicID  string `json:"publicId"`
	SecureURL string `json:"secureUrl"`
}

// Course captures the state of an individual course. Lectures are loaded
// separately so course listings stay light.
type Course struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Category    string    `json:"category"`
	CreatedBy   string    `json:"createdBy"`
	Thumbnail   Media     `json:"thumbnail"`
	Lectures    int       `json:"numberOfLectures"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// Lecture is a single unit of course content.
type Lecture struct {
	ID          string    `json:"id"`
	CourseID    string    `json:"courseId"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Video       Media     `json:"video"`
	CreatedAt   time.Time `json:"createdAt"`
}

// Update applies partial field updates to the course.
func (c *Course) Update(title, description, category *string, now time.Time) {
	if title != nil {
		c.Title = *title
	}
	if description != nil {
		c.Description = *description
	}
	if category != nil {
		c.Category = *category
	}
	c.UpdatedAt = now
}
