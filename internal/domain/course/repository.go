package course

import "context"

// Repository defines persistence behaviours for courses and their lectures.
type Repository interface {
	Create(ctx context.Context, course *Course) error
	GetByID(ctx context.Context, id string) (*Course, error)
	List(ctx context.Context) ([]*Course, error)
	Update(ctx context.Context, course *Course) error
	Delete(ctx context.Context, id string) error
	AddLecture(ctx context.Context, lecture *Lecture) error
	ListLectures(ctx context.Context, courseID string) ([]*Lecture, error)
}
