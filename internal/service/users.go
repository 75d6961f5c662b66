package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/user-records-service/internal/model"
	"github.com/user-records-service/internal/store"
	"github.com/user-records-service/internal/validation"
)

// maxPayloadBytes caps the combined size of the text fields of one record.
const maxPayloadBytes = 1 << 20

// ImageStore persists uploaded profile pictures.
type ImageStore interface {
	// Save stores the image and returns its media-relative path.
	Save(data []byte, filename string) (string, error)
	Delete(path string) error
}

// UserService implements the user record operations. Each write validates
// every field, aggregates all violations, and only then touches the store.
type UserService struct {
	store  store.UserStore
	images ImageStore
}

func NewUserService(store store.UserStore, images ImageStore) *UserService {
	return &UserService{store: store, images: images}
}

// ImageUpload carries an uploaded profile picture through validation.
type ImageUpload struct {
	Filename string
	Data     []byte
}

// CreateUserInput is the parsed payload for user creation.
type CreateUserInput struct {
	Name        string
	Email       string
	PhoneNumber *string
	Address     *string
	Age         *int
	Image       *ImageUpload
}

// UpdateUserInput is the parsed payload for user updates. Nil fields were
// not supplied; on a full (PUT) update they reset the optional fields.
type UpdateUserInput struct {
	Name        *string
	Email       *string
	PhoneNumber *string
	Address     *string
	Age         *int
	Image       *ImageUpload
}

// ListUsersInput narrows and orders a listing.
type ListUsersInput struct {
	Search   string
	Ordering string
	Page     int
	PageSize int
}

var orderableFields = map[string]struct{}{
	"created_at": {}, "name": {}, "email": {}, "age": {},
}

// Create validates all fields, then persists the record and its image as a
// single logical write.
func (s *UserService) Create(ctx context.Context, input CreateUserInput) (*model.User, error) {
	errs := fieldErrors{}
	user := &model.User{}

	if strings.TrimSpace(input.Name) == "" {
		errs.add("name", "Name is required.")
	} else if name, err := validation.Name(input.Name); err != nil {
		errs.add("name", capitalize(err.Error()))
	} else {
		user.Name = name
	}

	if strings.TrimSpace(input.Email) == "" {
		errs.add("email", "Email is required.")
	} else if email, err := validation.Email(input.Email); err != nil {
		errs.add("email", capitalize(err.Error()))
	} else {
		user.Email = email
	}

	s.validateOptional(input.PhoneNumber, input.Address, input.Age, user, errs)

	if input.Image != nil {
		if err := validation.Image(input.Image.Data, input.Image.Filename); err != nil {
			errs.add("profile_picture", capitalize(err.Error()))
		}
	}

	if payloadSize(user) > maxPayloadBytes {
		errs.add("non_field_errors", "Request payload too large.")
	}

	if user.Email != "" {
		exists, err := s.store.EmailExists(ctx, user.Email, nil)
		if err != nil {
			log.Error().Err(err).Msg("email uniqueness check failed")
			return nil, NewInternal("internal_error", "Failed to create user")
		}
		if exists {
			errs.add("email", "A user with this email already exists.")
		}
	}

	if err := errs.toError(); err != nil {
		return nil, err
	}

	if input.Image != nil {
		path, err := s.images.Save(input.Image.Data, input.Image.Filename)
		if err != nil {
			log.Error().Err(err).Msg("failed to store profile picture")
			return nil, NewInternal("internal_error", "Failed to store profile picture")
		}
		user.ProfilePicture = &path
	}

	if err := s.store.CreateUser(ctx, user); err != nil {
		s.discardImage(user.ProfilePicture)
		if errors.Is(err, store.ErrDuplicateEmail) {
			// Unique-index backstop for the check-then-write race.
			return nil, &ValidationError{Errors: map[string][]string{
				"email": {"A user with this email already exists."},
			}}
		}
		log.Error().Err(err).Msg("failed to create user")
		return nil, NewInternal("internal_error", "Failed to create user")
	}

	return user, nil
}

// Get returns a user record by ID.
func (s *UserService) Get(ctx context.Context, id uuid.UUID) (*model.User, error) {
	user, err := s.lookup(ctx, id)
	if err != nil {
		return nil, err
	}
	return user, nil
}

// lookup fetches a user and maps store errors to service errors. Only a
// missing row becomes not_found; anything else is a storage failure.
func (s *UserService) lookup(ctx context.Context, id uuid.UUID) (*model.User, error) {
	user, err := s.store.GetUserByID(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, NewNotFound("not_found", "The requested user does not exist")
		}
		log.Error().Err(err).Str("id", id.String()).Msg("failed to load user")
		return nil, NewInternal("internal_error", "An internal error occurred")
	}
	return user, nil
}

// List returns a page of users matching the filters plus the total count.
func (s *UserService) List(ctx context.Context, input ListUsersInput) ([]*model.User, int, error) {
	orderBy, desc := "created_at", true
	if input.Ordering != "" {
		field := input.Ordering
		desc = strings.HasPrefix(field, "-")
		field = strings.TrimPrefix(field, "-")
		if _, ok := orderableFields[field]; !ok {
			return nil, 0, NewBadRequest("invalid_request", fmt.Sprintf("cannot order by %q", field))
		}
		orderBy = field
	}

	users, total, err := s.store.ListUsers(ctx, store.UserFilters{
		Search:  input.Search,
		OrderBy: orderBy,
		Desc:    desc,
		Page:    input.Page,
		PerPage: input.PageSize,
	})
	if err != nil {
		log.Error().Err(err).Msg("failed to list users")
		return nil, 0, NewInternal("internal_error", "Failed to list users")
	}
	return users, total, nil
}

// Update applies a partial (PATCH) or full (PUT) update. On a full update,
// omitted optional fields are cleared and name/email are required.
func (s *UserService) Update(ctx context.Context, id uuid.UUID, input UpdateUserInput, full bool) (*model.User, error) {
	user, err := s.lookup(ctx, id)
	if err != nil {
		return nil, err
	}

	errs := fieldErrors{}

	switch {
	case input.Name != nil:
		if name, err := validation.Name(*input.Name); err != nil {
			errs.add("name", capitalize(err.Error()))
		} else {
			user.Name = name
		}
	case full:
		errs.add("name", "Name is required.")
	}

	switch {
	case input.Email != nil:
		if email, err := validation.Email(*input.Email); err != nil {
			errs.add("email", capitalize(err.Error()))
		} else {
			user.Email = email
		}
	case full:
		errs.add("email", "Email is required.")
	}

	if input.PhoneNumber != nil {
		if *input.PhoneNumber == "" {
			user.PhoneNumber = nil
		} else if phone, err := validation.Phone(*input.PhoneNumber); err != nil {
			errs.add("phone_number", capitalize(err.Error()))
		} else {
			user.PhoneNumber = &phone
		}
	} else if full {
		user.PhoneNumber = nil
	}

	if input.Address != nil {
		if *input.Address == "" {
			user.Address = nil
		} else if address, err := validation.Address(*input.Address); err != nil {
			errs.add("address", capitalize(err.Error()))
		} else {
			user.Address = &address
		}
	} else if full {
		user.Address = nil
	}

	if input.Age != nil {
		if err := validation.Age(*input.Age); err != nil {
			errs.add("age", capitalize(err.Error()))
		} else {
			age := *input.Age
			user.Age = &age
		}
	} else if full {
		user.Age = nil
	}

	if input.Image != nil {
		if err := validation.Image(input.Image.Data, input.Image.Filename); err != nil {
			errs.add("profile_picture", capitalize(err.Error()))
		}
	}

	if payloadSize(user) > maxPayloadBytes {
		errs.add("non_field_errors", "Request payload too large.")
	}

	if input.Email != nil && len(errs["email"]) == 0 {
		exists, err := s.store.EmailExists(ctx, user.Email, &id)
		if err != nil {
			log.Error().Err(err).Msg("email uniqueness check failed")
			return nil, NewInternal("internal_error", "Failed to update user")
		}
		if exists {
			errs.add("email", "A user with this email already exists.")
		}
	}

	if err := errs.toError(); err != nil {
		return nil, err
	}

	oldPicture := user.ProfilePicture
	if input.Image != nil {
		path, err := s.images.Save(input.Image.Data, input.Image.Filename)
		if err != nil {
			log.Error().Err(err).Msg("failed to store profile picture")
			return nil, NewInternal("internal_error", "Failed to store profile picture")
		}
		user.ProfilePicture = &path
	}

	if err := s.store.UpdateUser(ctx, user); err != nil {
		if input.Image != nil {
			s.discardImage(user.ProfilePicture)
		}
		if errors.Is(err, store.ErrDuplicateEmail) {
			return nil, &ValidationError{Errors: map[string][]string{
				"email": {"A user with this email already exists."},
			}}
		}
		log.Error().Err(err).Str("id", id.String()).Msg("failed to update user")
		return nil, NewInternal("internal_error", "Failed to update user")
	}

	if input.Image != nil && oldPicture != nil {
		s.discardImage(oldPicture)
	}

	return user, nil
}

// Delete removes a user record and releases its stored image.
func (s *UserService) Delete(ctx context.Context, id uuid.UUID) (*model.User, error) {
	user, err := s.lookup(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := s.store.DeleteUser(ctx, id); err != nil {
		log.Error().Err(err).Str("id", id.String()).Msg("failed to delete user")
		return nil, NewInternal("internal_error", "Failed to delete user")
	}

	s.discardImage(user.ProfilePicture)
	return user, nil
}

func (s *UserService) validateOptional(phone, address *string, age *int, user *model.User, errs fieldErrors) {
	if phone != nil && *phone != "" {
		if cleaned, err := validation.Phone(*phone); err != nil {
			errs.add("phone_number", capitalize(err.Error()))
		} else {
			user.PhoneNumber = &cleaned
		}
	}

	if address != nil && *address != "" {
		if normalized, err := validation.Address(*address); err != nil {
			errs.add("address", capitalize(err.Error()))
		} else {
			user.Address = &normalized
		}
	}

	if age != nil {
		if err := validation.Age(*age); err != nil {
			errs.add("age", capitalize(err.Error()))
		} else {
			a := *age
			user.Age = &a
		}
	}
}

func (s *UserService) discardImage(path *string) {
	if path == nil || s.images == nil {
		return
	}
	if err := s.images.Delete(*path); err != nil {
		log.Warn().Err(err).Str("path", *path).Msg("failed to remove profile picture")
	}
}

func payloadSize(user *model.User) int {
	size := len(user.Name) + len(user.Email)
	if user.PhoneNumber != nil {
		size += len(*user.PhoneNumber)
	}
	if user.Address != nil {
		size += len(*user.Address)
	}
	return size
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:] + "."
}
