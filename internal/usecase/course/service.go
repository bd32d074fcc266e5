package course

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	domain "lms/backend/internal/domain/course"

	"github.com/google/uuid"
)

// ErrFieldsRequired indicates a request with required fields missing.
var ErrFieldsRequired = errors.New("all fields are required")

// MediaStorage is the slice of the object-storage collaborator the course
// catalog needs for thumbnails and lecture videos.
type MediaStorage interface {
	Upload(ctx context.Context, key string, body io.Reader, contentType string) (publicID, secureURL string, err error)
	Destroy(ctx context.Context, publicID string) error
}

// Service encapsulates course catalog use cases.
type Service struct {
	repo    domain.Repository
	storage MediaStorage
	log     *slog.Logger
	nowFunc func() time.Time
}

// NewService constructs a course service.
func NewService(repo domain.Repository, storage MediaStorage, log *slog.Logger) *Service {
	if log == nil {
		log = slog.Default()
	}
	return &Service{
		repo:    repo,
		storage: storage,
		log:     log,
		nowFunc: time.Now,
	}
}

// MediaUpload carries an optional media file for a course or lecture.
type MediaUpload struct {
	Filename    string
	ContentType string
	Body        io.Reader
}

// CreateInput contains the payload required for course creation.
type CreateInput struct {
	Title       string
	Description string
	Category    string
	CreatedBy   string
	Thumbnail   *MediaUpload
}

// UpdateInput encapsulates partial course updates.
type UpdateInput struct {
	Title       *string `json:"title"`
	Description *string `json:"description"`
	Category    *string `json:"category"`
}

// LectureInput contains the payload for adding a lecture to a course.
type LectureInput struct {
	Title       string
	Description string
	Video       *MediaUpload
}

// Create stores a new course after validation. The thumbnail upload is
// best-effort; its failure does not lose the created course.
func (s *Service) Create(ctx context.Context, input CreateInput) (*domain.Course, error) {
	input.Title = strings.TrimSpace(input.Title)
	input.Category = strings.TrimSpace(input.Category)
	if input.Title == "" || input.Description == "" || input.Category == "" || input.CreatedBy == "" {
		return nil, ErrFieldsRequired
	}

	now := s.nowFunc().UTC()
	course := &domain.Course{
		ID:          uuid.NewString(),
		Title:       input.Title,
		Description: input.Description,
		Category:    input.Category,
		CreatedBy:   input.CreatedBy,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := s.repo.Create(ctx, course); err != nil {
		return nil, err
	}

	if input.Thumbnail != nil {
		if media, err := s.upload(ctx, "thumbnails", course.ID, input.Thumbnail); err != nil {
			s.log.Warn("thumbnail upload failed, keeping course without image",
				"courseId", course.ID, "error", err)
		} else {
			course.Thumbnail = media
			course.UpdatedAt = s.nowFunc().UTC()
			if err := s.repo.Update(ctx, course); err != nil {
				s.log.Warn("persisting thumbnail failed", "courseId", course.ID, "error", err)
			}
		}
	}

	return course, nil
}

// List retrieves all courses without their lectures.
func (s *Service) List(ctx context.Context) ([]*domain.Course, error) {
	return s.repo.List(ctx)
}

// GetLectures fetches the lectures of a course.
func (s *Service) GetLectures(ctx context.Context, courseID string) ([]*domain.Lecture, error) {
	courseID = strings.TrimSpace(courseID)
	if courseID == "" {
		return nil, ErrFieldsRequired
	}
	if _, err := s.repo.GetByID(ctx, courseID); err != nil {
		return nil, err
	}
	return s.repo.ListLectures(ctx, courseID)
}

// Update applies partial updates to a course.
func (s *Service) Update(ctx context.Context, id string, input UpdateInput) (*domain.Course, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, ErrFieldsRequired
	}

	course, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	course.Update(input.Title, input.Description, input.Category, s.nowFunc().UTC())

	if err := s.repo.Update(ctx, course); err != nil {
		return nil, err
	}
	return course, nil
}

// Delete removes a course. Stored media is destroyed best-effort after the
// record is gone.
func (s *Service) Delete(ctx context.Context, id string) error {
	id = strings.TrimSpace(id)
	if id == "" {
		return ErrFieldsRequired
	}

	course, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	lectures, err := s.repo.ListLectures(ctx, id)
	if err != nil {
		return err
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}

	if course.Thumbnail.PublicID != "" {
		if err := s.storage.Destroy(ctx, course.Thumbnail.PublicID); err != nil {
			s.log.Warn("destroying course thumbnail", "courseId", id, "error", err)
		}
	}
	for _, lecture := range lectures {
		if lecture.Video.PublicID == "" {
			continue
		}
		if err := s.storage.Destroy(ctx, lecture.Video.PublicID); err != nil {
			s.log.Warn("destroying lecture video", "lectureId", lecture.ID, "error", err)
		}
	}
	return nil
}

// AddLecture appends a lecture to a course, uploading its video first so a
// storage failure never leaves a lecture without content.
func (s *Service) AddLecture(ctx context.Context, courseID string, input LectureInput) (*domain.Lecture, error) {
	courseID = strings.TrimSpace(courseID)
	input.Title = strings.TrimSpace(input.Title)
	if courseID == "" || input.Title == "" || input.Description == "" {
		return nil, ErrFieldsRequired
	}

	course, err := s.repo.GetByID(ctx, courseID)
	if err != nil {
		return nil, err
	}

	lecture := &domain.Lecture{
		ID:          uuid.NewString(),
		CourseID:    course.ID,
		Title:       input.Title,
		Description: input.Description,
		CreatedAt:   s.nowFunc().UTC(),
	}

	if input.Video != nil {
		media, err := s.upload(ctx, "lectures", course.ID, input.Video)
		if err != nil {
			return nil, fmt.Errorf("uploading lecture video: %w", err)
		}
		lecture.Video = media
	}

	if err := s.repo.AddLecture(ctx, lecture); err != nil {
		if lecture.Video.PublicID != "" {
			if destroyErr := s.storage.Destroy(ctx, lecture.Video.PublicID); destroyErr != nil {
				s.log.Warn("destroying orphaned lecture video", "publicId", lecture.Video.PublicID, "error", destroyErr)
			}
		}
		return nil, err
	}

	return lecture, nil
}

func (s *Service) upload(ctx context.Context, prefix, courseID string, media *MediaUpload) (domain.Media, error) {
	key := fmt.Sprintf("%s/%s/%s", prefix, courseID, uuid.NewString())
	publicID, secureURL, err := s.storage.Upload(ctx, key, media.Body, media.ContentType)
	if err != nil {
		return domain.Media{}, err
	}
	return domain.Media{PublicID: publicID, SecureURL: secureURL}, nil
}
