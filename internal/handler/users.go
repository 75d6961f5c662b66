package handler

import (
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/user-records-service/internal/httputil"
	"github.com/user-records-service/internal/model"
	"github.com/user-records-service/internal/service"
)

// maxImageMemory bounds the in-memory portion of a multipart parse.
const maxImageMemory = 10 << 20

// userView is the wire representation of a user record. The stored
// media-relative picture path is exposed as an absolute URL.
type userView struct {
	ID             uuid.UUID `json:"id"`
	Name           string    `json:"name"`
	Email          string    `json:"email"`
	PhoneNumber    *string   `json:"phone_number"`
	Address        *string   `json:"address"`
	Age            *int      `json:"age"`
	ProfilePicture *string   `json:"profile_picture"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

func toUserView(user *model.User, baseURL string) userView {
	view := userView{
		ID:          user.ID,
		Name:        user.Name,
		Email:       user.Email,
		PhoneNumber: user.PhoneNumber,
		Address:     user.Address,
		Age:         user.Age,
		CreatedAt:   user.CreatedAt,
		UpdatedAt:   user.UpdatedAt,
	}
	if user.ProfilePicture != nil {
		url := strings.TrimRight(baseURL, "/") + "/media/" + *user.ProfilePicture
		view.ProfilePicture = &url
	}
	return view
}

// userPayload is the write payload for both JSON and multipart requests.
// Pointer fields distinguish "absent" from "set to empty".
type userPayload struct {
	Name        *string `json:"name"`
	Email       *string `json:"email"`
	PhoneNumber *string `json:"phone_number"`
	Address     *string `json:"address"`
	Age         *int    `json:"age"`

	image *service.ImageUpload
}

// parseUserPayload decodes a JSON or multipart/form-data request body.
// Multipart requests may carry a profile_picture file part.
func parseUserPayload(r *http.Request) (*userPayload, error) {
	ct := r.Header.Get("Content-Type")
	if strings.HasPrefix(strings.ToLower(ct), "multipart/form-data") {
		return parseMultipartPayload(r)
	}

	var payload userPayload
	decoder := json.NewDecoder(r.Body)
	if err := decoder.Decode(&payload); err != nil {
		return nil, err
	}
	return &payload, nil
}

func parseMultipartPayload(r *http.Request) (*userPayload, error) {
	if err := r.ParseMultipartForm(maxImageMemory); err != nil {
		return nil, err
	}

	payload := &userPayload{}
	field := func(name string) *string {
		if values, ok := r.MultipartForm.Value[name]; ok && len(values) > 0 {
			return &values[0]
		}
		return nil
	}

	payload.Name = field("name")
	payload.Email = field("email")
	payload.PhoneNumber = field("phone_number")
	payload.Address = field("address")
	if raw := field("age"); raw != nil {
		var age int
		if err := json.Unmarshal([]byte(*raw), &age); err != nil {
			return nil, err
		}
		payload.Age = &age
	}

	file, header, err := r.FormFile("profile_picture")
	if err == nil {
		defer file.Close()
		data, err := io.ReadAll(file)
		if err != nil {
			return nil, err
		}
		payload.image = &service.ImageUpload{Filename: header.Filename, Data: data}
	} else if err != http.ErrMissingFile {
		return nil, err
	}

	return payload, nil
}

func derefOr(s *string, fallback string) string {
	if s == nil {
		return fallback
	}
	return *s
}

// --- List Users ---

type ListUsersHandler struct {
	svc     *service.UserService
	baseURL string
}

func NewListUsersHandler(svc *service.UserService, baseURL string) *ListUsersHandler {
	return &ListUsersHandler{svc: svc, baseURL: baseURL}
}

type listUsersResponse struct {
	Count       int        `json:"count"`
	Next        *string    `json:"next"`
	Previous    *string    `json:"previous"`
	TotalPages  int        `json:"total_pages"`
	CurrentPage int        `json:"current_page"`
	Results     []userView `json:"results"`
}

func (h *ListUsersHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	page, pageSize, err := httputil.ParsePagination(r.URL.Query().Get("page"), r.URL.Query().Get("page_size"))
	if err != nil {
		RespondError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	users, total, err := h.svc.List(r.Context(), service.ListUsersInput{
		Search:   r.URL.Query().Get("search"),
		Ordering: r.URL.Query().Get("ordering"),
		Page:     page,
		PageSize: pageSize,
	})
	if err != nil {
		service.RespondError(w, err)
		return
	}

	totalPages := httputil.TotalPages(total, pageSize)
	results := make([]userView, 0, len(users))
	for _, user := range users {
		results = append(results, toUserView(user, h.baseURL))
	}

	RespondJSON(w, http.StatusOK, listUsersResponse{
		Count:       total,
		Next:        httputil.PageURL(r, page+1, totalPages),
		Previous:    httputil.PageURL(r, page-1, totalPages),
		TotalPages:  totalPages,
		CurrentPage: page,
		Results:     results,
	})
}

// --- Create User ---

type CreateUserHandler struct {
	svc     *service.UserService
	baseURL string
}

func NewCreateUserHandler(svc *service.UserService, baseURL string) *CreateUserHandler {
	return &CreateUserHandler{svc: svc, baseURL: baseURL}
}

func (h *CreateUserHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	payload, err := parseUserPayload(r)
	if err != nil {
		RespondError(w, http.StatusBadRequest, "invalid_request", "Invalid request body")
		return
	}

	user, err := h.svc.Create(r.Context(), service.CreateUserInput{
		Name:        derefOr(payload.Name, ""),
		Email:       derefOr(payload.Email, ""),
		PhoneNumber: payload.PhoneNumber,
		Address:     payload.Address,
		Age:         payload.Age,
		Image:       payload.image,
	})
	if err != nil {
		service.RespondError(w, err)
		return
	}

	RespondSuccess(w, http.StatusCreated, "User created successfully", toUserView(user, h.baseURL))
}

// --- Get User ---

type GetUserHandler struct {
	svc     *service.UserService
	baseURL string
}

func NewGetUserHandler(svc *service.UserService, baseURL string) *GetUserHandler {
	return &GetUserHandler{svc: svc, baseURL: baseURL}
}

func (h *GetUserHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	id, ok := userID(w, r)
	if !ok {
		return
	}

	user, err := h.svc.Get(r.Context(), id)
	if err != nil {
		service.RespondError(w, err)
		return
	}

	RespondJSON(w, http.StatusOK, toUserView(user, h.baseURL))
}

// --- Update User ---

type UpdateUserHandler struct {
	svc     *service.UserService
	baseURL string
}

func NewUpdateUserHandler(svc *service.UserService, baseURL string) *UpdateUserHandler {
	return &UpdateUserHandler{svc: svc, baseURL: baseURL}
}

func (h *UpdateUserHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	id, ok := userID(w, r)
	if !ok {
		return
	}

	payload, err := parseUserPayload(r)
	if err != nil {
		RespondError(w, http.StatusBadRequest, "invalid_request", "Invalid request body")
		return
	}

	// PUT replaces the record; PATCH touches only the supplied fields.
	full := r.Method == http.MethodPut

	user, err := h.svc.Update(r.Context(), id, service.UpdateUserInput{
		Name:        payload.Name,
		Email:       payload.Email,
		PhoneNumber: payload.PhoneNumber,
		Address:     payload.Address,
		Age:         payload.Age,
		Image:       payload.image,
	}, full)
	if err != nil {
		service.RespondError(w, err)
		return
	}

	RespondSuccess(w, http.StatusOK, "User updated successfully", toUserView(user, h.baseURL))
}

// --- Delete User ---

type DeleteUserHandler struct {
	svc *service.UserService
}

func NewDeleteUserHandler(svc *service.UserService) *DeleteUserHandler {
	return &DeleteUserHandler{svc: svc}
}

func (h *DeleteUserHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	id, ok := userID(w, r)
	if !ok {
		return
	}

	if _, err := h.svc.Delete(r.Context(), id); err != nil {
		service.RespondError(w, err)
		return
	}

	RespondSuccess(w, http.StatusOK, "User deleted successfully", nil)
}

func userID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		RespondError(w, http.StatusNotFound, "not_found", "The requested user does not exist")
		return uuid.Nil, false
	}
	return id, true
}
