package httpserver

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	authdomain "lms/backend/internal/domain/auth"
	authusecase "lms/backend/internal/usecase/auth"
)

// maxUploadBytes bounds multipart request bodies (avatars, thumbnails,
// lecture videos).
const maxUploadBytes = 50 << 20

func (s *Server) registerRoutes() {
	s.router.Handle("/health", http.HandlerFunc(s.handleHealth))

	s.router.Handle("/api/v1/user/register", http.HandlerFunc(s.handleRegister))
	s.router.Handle("/api/v1/user/login", http.HandlerFunc(s.handleLogin))
	s.router.Handle("/api/v1/user/logout", http.HandlerFunc(s.handleLogout))
	s.router.Handle("/api/v1/user/reset", http.HandlerFunc(s.handleForgotPassword))
	s.router.Handle("/api/v1/user/reset/", http.HandlerFunc(s.handleResetPassword))

	authenticated := s.authenticate
	s.router.Handle("/api/v1/user/me", authenticated(http.HandlerFunc(s.handleGetProfile)))
	s.router.Handle("/api/v1/user/change-password", authenticated(http.HandlerFunc(s.handleChangePassword)))
	s.router.Handle("/api/v1/user/update/", authenticated(http.HandlerFunc(s.handleUpdateProfile)))

	s.router.Handle("/api/v1/courses", http.HandlerFunc(s.handleCourses))
	s.router.Handle("/api/v1/courses/", http.HandlerFunc(s.handleCourseByID))
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeMethodNotAllowed(w, http.MethodPost)
		return
	}

	input := authusecase.RegisterInput{}
	if isMultipart(r) {
		cleanup, err := parseMultipart(r)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid multipart payload")
			return
		}
		defer cleanup()
		input.FullName = r.FormValue("fullName")
		input.Email = r.FormValue("email")
		input.Password = r.FormValue("password")
		input.Avatar = formUpload(r, "avatar")
	} else {
		var payload struct {
			FullName string `json:"fullName"`
			Email    string `json:"email"`
			Password string `json:"password"`
		}
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			writeError(w, http.StatusBadRequest, "invalid JSON payload")
			return
		}
		input.FullName = payload.FullName
		input.Email = payload.Email
		input.Password = payload.Password
	}

	account, token, err := s.authService.Register(r.Context(), input)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	s.setSessionCookie(w, token)
	writeSuccess(w, http.StatusCreated, "User registered successfully", envelope{"user": account})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeMethodNotAllowed(w, http.MethodPost)
		return
	}

	var payload struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON payload")
		return
	}

	account, token, err := s.authService.Login(r.Context(), authdomain.Credentials{
		Email:    payload.Email,
		Password: payload.Password,
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}

	s.setSessionCookie(w, token)
	writeSuccess(w, http.StatusOK, "User logged in successfully", envelope{"user": account})
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeMethodNotAllowed(w, http.MethodGet)
		return
	}

	s.clearSessionCookie(w)
	writeSuccess(w, http.StatusOK, "User logged out successfully", nil)
}

func (s *Server) handleGetProfile(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeMethodNotAllowed(w, http.MethodGet)
		return
	}

	claims, ok := claimsFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthenticated, please login again")
		return
	}

	account, err := s.authService.GetProfile(r.Context(), claims.AccountID)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, "User details", envelope{"user": account})
}

func (s *Server) handleForgotPassword(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeMethodNotAllowed(w, http.MethodPost)
		return
	}

	var payload struct {
		Email string `json:"email"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON payload")
		return
	}

	err := s.authService.ForgotPassword(r.Context(), payload.Email)
	// An unregistered email gets the same success-shaped answer as a
	// registered one so callers cannot probe which emails exist.
	if err != nil && !errors.Is(err, authdomain.ErrEmailNotRegistered) {
		writeServiceError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, "If the email is registered, a reset link has been sent", nil)
}

func (s *Server) handleResetPassword(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeMethodNotAllowed(w, http.MethodPost)
		return
	}

	secret := strings.TrimPrefix(r.URL.Path, "/api/v1/user/reset/")
	var payload struct {
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON payload")
		return
	}

	if err := s.authService.ResetPassword(r.Context(), secret, payload.Password); err != nil {
		writeServiceError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, "Password reset successfully", nil)
}

func (s *Server) handleChangePassword(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeMethodNotAllowed(w, http.MethodPost)
		return
	}

	claims, ok := claimsFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthenticated, please login again")
		return
	}

	var payload struct {
		OldPassword string `json:"oldPassword"`
		NewPassword string `json:"newPassword"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON payload")
		return
	}

	if err := s.authService.ChangePassword(r.Context(), claims.AccountID, payload.OldPassword, payload.NewPassword); err != nil {
		writeServiceError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, "Password changed successfully", nil)
}

func (s *Server) handleUpdateProfile(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPut {
		writeMethodNotAllowed(w, http.MethodPut)
		return
	}

	claims, ok := claimsFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthenticated, please login again")
		return
	}

	id := strings.TrimPrefix(r.URL.Path, "/api/v1/user/update/")
	if id == "" {
		writeError(w, http.StatusBadRequest, "account id required")
		return
	}
	// Only the account owner (or an admin) may update a profile.
	if id != claims.AccountID && claims.Role != authdomain.RoleAdmin {
		writeError(w, http.StatusForbidden, "you do not have permission to view this route")
		return
	}

	input := authusecase.UpdateProfileInput{}
	if isMultipart(r) {
		cleanup, err := parseMultipart(r)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid multipart payload")
			return
		}
		defer cleanup()
		if _, ok := r.MultipartForm.Value["fullName"]; ok {
			fullName := r.FormValue("fullName")
			input.FullName = &fullName
		}
		input.Avatar = formUpload(r, "avatar")
	} else {
		var payload struct {
			FullName *string `json:"fullName"`
		}
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			writeError(w, http.StatusBadRequest, "invalid JSON payload")
			return
		}
		input.FullName = payload.FullName
	}

	account, err := s.authService.UpdateProfile(r.Context(), id, input)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, "User details updated successfully", envelope{"user": account})
}

func isMultipart(r *http.Request) bool {
	return strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data")
}

// parseMultipart reads the form with a size cap and returns a cleanup for the
// temp files the parser may have spilled to disk.
func parseMultipart(r *http.Request) (func(), error) {
	r.Body = http.MaxBytesReader(nil, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		return nil, err
	}
	form := r.MultipartForm
	return func() {
		if form != nil {
			_ = form.RemoveAll()
		}
	}, nil
}

// formUpload adapts an optional multipart file into an upload envelope.
// The file handle stays open until the request completes.
func formUpload(r *http.Request, field string) *authusecase.AvatarUpload {
	file, header, err := r.FormFile(field)
	if err != nil {
		return nil
	}
	return &authusecase.AvatarUpload{
		Filename:    header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Body:        file,
	}
}
