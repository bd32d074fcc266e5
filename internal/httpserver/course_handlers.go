package httpserver

import (
	"encoding/json"
	"net/http"
	"strings"

	authdomain "lms/backend/internal/domain/auth"
	courseusecase "lms/backend/internal/usecase/course"
)

// handleCourses serves the course collection. Listing is public; creation is
// gated behind authentication plus the ADMIN role.
func (s *Server) handleCourses(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		courses, err := s.courseService.List(r.Context())
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeSuccess(w, http.StatusOK, "All courses", envelope{"courses": courses})
	case http.MethodPost:
		s.adminOnly(http.HandlerFunc(s.handleCreateCourse)).ServeHTTP(w, r)
	default:
		writeMethodNotAllowed(w, http.MethodGet, http.MethodPost)
	}
}

// handleCourseByID serves a single course: lectures for any authenticated
// account, mutations for admins only.
func (s *Server) handleCourseByID(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimPrefix(r.URL.Path, "/api/v1/courses/")
	if id == "" {
		writeError(w, http.StatusBadRequest, "course id required")
		return
	}

	switch r.Method {
	case http.MethodGet:
		s.authenticate(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			s.handleGetLectures(w, r, id)
		})).ServeHTTP(w, r)
	case http.MethodPut:
		s.adminOnly(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			s.handleUpdateCourse(w, r, id)
		})).ServeHTTP(w, r)
	case http.MethodDelete:
		s.adminOnly(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			s.handleDeleteCourse(w, r, id)
		})).ServeHTTP(w, r)
	case http.MethodPost:
		s.adminOnly(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			s.handleAddLecture(w, r, id)
		})).ServeHTTP(w, r)
	default:
		writeMethodNotAllowed(w, http.MethodGet, http.MethodPut, http.MethodDelete, http.MethodPost)
	}
}

// adminOnly chains the authentication gate and the ADMIN authorization gate,
// in that order.
func (s *Server) adminOnly(next http.Handler) http.Handler {
	return s.authenticate(requireRoles(authdomain.RoleAdmin)(next))
}

func (s *Server) handleCreateCourse(w http.ResponseWriter, r *http.Request) {
	claims, ok := claimsFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthenticated, please login again")
		return
	}

	input := courseusecase.CreateInput{CreatedBy: claims.AccountID}
	if isMultipart(r) {
		cleanup, err := parseMultipart(r)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid multipart payload")
			return
		}
		defer cleanup()
		input.Title = r.FormValue("title")
		input.Description = r.FormValue("description")
		input.Category = r.FormValue("category")
		if upload := formUpload(r, "thumbnail"); upload != nil {
			input.Thumbnail = &courseusecase.MediaUpload{
				Filename:    upload.Filename,
				ContentType: upload.ContentType,
				Body:        upload.Body,
			}
		}
	} else {
		var payload struct {
			Title       string `json:"title"`
			Description string `json:"description"`
			Category    string `json:"category"`
		}
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			writeError(w, http.StatusBadRequest, "invalid JSON payload")
			return
		}
		input.Title = payload.Title
		input.Description = payload.Description
		input.Category = payload.Category
	}

	created, err := s.courseService.Create(r.Context(), input)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeSuccess(w, http.StatusCreated, "Course created successfully", envelope{"course": created})
}

func (s *Server) handleGetLectures(w http.ResponseWriter, r *http.Request, id string) {
	lectures, err := s.courseService.GetLectures(r.Context(), id)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeSuccess(w, http.StatusOK, "Course lectures fetched successfully", envelope{"lectures": lectures})
}

func (s *Server) handleUpdateCourse(w http.ResponseWriter, r *http.Request, id string) {
	var payload courseusecase.UpdateInput
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON payload")
		return
	}

	updated, err := s.courseService.Update(r.Context(), id, payload)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, "Course updated successfully", envelope{"course": updated})
}

func (s *Server) handleDeleteCourse(w http.ResponseWriter, r *http.Request, id string) {
	if err := s.courseService.Delete(r.Context(), id); err != nil {
		writeServiceError(w, err)
		return
	}
	writeSuccess(w, http.StatusOK, "Course removed successfully", nil)
}

func (s *Server) handleAddLecture(w http.ResponseWriter, r *http.Request, id string) {
	input := courseusecase.LectureInput{}
	if isMultipart(r) {
		cleanup, err := parseMultipart(r)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid multipart payload")
			return
		}
		defer cleanup()
		input.Title = r.FormValue("title")
		input.Description = r.FormValue("description")
		if upload := formUpload(r, "video"); upload != nil {
			input.Video = &courseusecase.MediaUpload{
				Filename:    upload.Filename,
				ContentType: upload.ContentType,
				Body:        upload.Body,
			}
		}
	} else {
		var payload struct {
			Title       string `json:"title"`
			Description string `json:"description"`
		}
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			writeError(w, http.StatusBadRequest, "invalid JSON payload")
			return
		}
		input.Title = payload.Title
		input.Description = payload.Description
	}

	lecture, err := s.courseService.AddLecture(r.Context(), id, input)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeSuccess(w, http.StatusCreated, "Lecture added to course successfully", envelope{"lecture": lecture})
}
