package service

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/google/uuid"

	"github.com/user-records-service/internal/model"
	"github.com/user-records-service/internal/store"
)

type fakeImages struct {
	saved   []string
	deleted []string
}

func (f *fakeImages) Save(data []byte, filename string) (string, error) {
	path := fmt.Sprintf("profile_pictures/%d-%s", len(f.saved), filename)
	f.saved = append(f.saved, path)
	return path, nil
}

func (f *fakeImages) Delete(path string) error {
	f.deleted = append(f.deleted, path)
	return nil
}

func strptr(s string) *string { return &s }
func intptr(i int) *int       { return &i }

func newUserService() (*UserService, *fakeImages) {
	images := &fakeImages{}
	return NewUserService(store.NewMemory(), images), images
}

func validationErrors(t *testing.T, err error) map[string][]string {
	t.Helper()
	var valErr *ValidationError
	if !errors.As(err, &valErr) {
		t.Fatalf("expected validation error, got %v", err)
	}
	return valErr.Errors
}

func TestUserCreate(t *testing.T) {
	svc, _ := newUserService()

	user, err := svc.Create(context.Background(), CreateUserInput{
		Name:        "Jane Doe",
		Email:       "Jane.Doe@Example.COM",
		PhoneNumber: strptr("+1 (555) 123-4567"),
		Address:     strptr("42 Main St"),
		Age:         intptr(30),
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	if user.Name != "Jane Doe" {
		t.Errorf("name = %q, want %q", user.Name, "Jane Doe")
	}
	if user.Email != "jane.doe@example.com" {
		t.Errorf("email = %q, want lowercased", user.Email)
	}
	if user.PhoneNumber == nil || *user.PhoneNumber != "+15551234567" {
		t.Errorf("phone = %v, want normalized +15551234567", user.PhoneNumber)
	}
	if user.ID.String() == "00000000-0000-0000-0000-000000000000" {
		t.Error("expected assigned ID")
	}
}

func TestUserCreatePaddedNameRejected(t *testing.T) {
	svc, _ := newUserService()

	for _, name := range []string{" Jane Doe", "Jane Doe ", "  Jane Doe  "} {
		_, err := svc.Create(context.Background(), CreateUserInput{Name: name, Email: "jane@example.com"})
		errs := validationErrors(t, err)
		if len(errs["name"]) == 0 {
			t.Errorf("Create with name %q: expected a name error, got %v", name, errs)
		}
	}
}

func TestUserCreateAggregatesErrors(t *testing.T) {
	svc, _ := newUserService()

	_, err := svc.Create(context.Background(), CreateUserInput{
		Name:        "X",
		Email:       "not-an-email",
		PhoneNumber: strptr("123"),
		Age:         intptr(200),
	})

	errs := validationErrors(t, err)
	for _, field := range []string{"name", "email", "phone_number", "age"} {
		if len(errs[field]) == 0 {
			t.Errorf("expected an error for %s, got %v", field, errs)
		}
	}
}

func TestUserCreateDuplicateEmail(t *testing.T) {
	svc, _ := newUserService()

	first := CreateUserInput{Name: "Jane Doe", Email: "jane@example.com"}
	if _, err := svc.Create(context.Background(), first); err != nil {
		t.Fatalf("first Create: %v", err)
	}

	// Duplicate detection is case-insensitive.
	_, err := svc.Create(context.Background(), CreateUserInput{Name: "Other Jane", Email: "JANE@example.com"})
	errs := validationErrors(t, err)
	if len(errs["email"]) == 0 {
		t.Fatalf("expected duplicate email error, got %v", errs)
	}
}

func TestUserUpdate(t *testing.T) {
	svc, _ := newUserService()
	ctx := context.Background()

	user, err := svc.Create(ctx, CreateUserInput{
		Name:        "Jane Doe",
		Email:       "jane@example.com",
		PhoneNumber: strptr("+15551234567"),
		Address:     strptr("42 Main St"),
		Age:         intptr(30),
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	t.Run("partial update keeps other fields", func(t *testing.T) {
		updated, err := svc.Update(ctx, user.ID, UpdateUserInput{Name: strptr("Jane Smith")}, false)
		if err != nil {
			t.Fatalf("Update: %v", err)
		}
		if updated.Name != "Jane Smith" {
			t.Errorf("name = %q", updated.Name)
		}
		if updated.PhoneNumber == nil || updated.Age == nil {
			t.Error("partial update must not clear omitted fields")
		}
	})

	t.Run("keeping own email is not a duplicate", func(t *testing.T) {
		if _, err := svc.Update(ctx, user.ID, UpdateUserInput{Email: strptr("jane@example.com")}, false); err != nil {
			t.Errorf("Update with unchanged email: %v", err)
		}
	})

	t.Run("taking another user's email is rejected", func(t *testing.T) {
		other, err := svc.Create(ctx, CreateUserInput{Name: "John Doe", Email: "john@example.com"})
		if err != nil {
			t.Fatalf("Create other: %v", err)
		}
		_, err = svc.Update(ctx, other.ID, UpdateUserInput{Email: strptr("jane@example.com")}, false)
		errs := validationErrors(t, err)
		if len(errs["email"]) == 0 {
			t.Errorf("expected duplicate email error, got %v", errs)
		}
	})

	t.Run("full update clears omitted optional fields", func(t *testing.T) {
		updated, err := svc.Update(ctx, user.ID, UpdateUserInput{
			Name:  strptr("Jane Doe"),
			Email: strptr("jane@example.com"),
		}, true)
		if err != nil {
			t.Fatalf("Update: %v", err)
		}
		if updated.PhoneNumber != nil || updated.Address != nil || updated.Age != nil {
			t.Error("full update should reset omitted optional fields")
		}
	})

	t.Run("full update requires name and email", func(t *testing.T) {
		_, err := svc.Update(ctx, user.ID, UpdateUserInput{Name: strptr("Jane Doe")}, true)
		errs := validationErrors(t, err)
		if len(errs["email"]) == 0 {
			t.Errorf("expected missing email error, got %v", errs)
		}
	})

	t.Run("empty string clears an optional field", func(t *testing.T) {
		seeded, err := svc.Update(ctx, user.ID, UpdateUserInput{PhoneNumber: strptr("+15550001111")}, false)
		if err != nil {
			t.Fatalf("seed phone: %v", err)
		}
		if seeded.PhoneNumber == nil {
			t.Fatal("expected phone to be set")
		}
		cleared, err := svc.Update(ctx, user.ID, UpdateUserInput{PhoneNumber: strptr("")}, false)
		if err != nil {
			t.Fatalf("clear phone: %v", err)
		}
		if cleared.PhoneNumber != nil {
			t.Error("empty string should clear the phone number")
		}
	})
}

func TestUserDelete(t *testing.T) {
	svc, _ := newUserService()
	ctx := context.Background()

	user, err := svc.Create(ctx, CreateUserInput{Name: "Jane Doe", Email: "jane@example.com"})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	if _, err := svc.Delete(ctx, user.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}

	_, err = svc.Get(ctx, user.ID)
	var svcErr *Error
	if !errors.As(err, &svcErr) || svcErr.Kind != ErrNotFound {
		t.Errorf("expected not found after delete, got %v", err)
	}

	// Deleting again is a 404, not an internal error.
	_, err = svc.Delete(ctx, user.ID)
	if !errors.As(err, &svcErr) || svcErr.Kind != ErrNotFound {
		t.Errorf("expected not found on double delete, got %v", err)
	}
}

// brokenUserStore simulates a storage failure on every lookup.
type brokenUserStore struct {
	store.UserStore
}

func (brokenUserStore) GetUserByID(ctx context.Context, id uuid.UUID) (*model.User, error) {
	return nil, fmt.Errorf("connection refused")
}

func TestUserGetStoreFailure(t *testing.T) {
	svc := NewUserService(brokenUserStore{}, &fakeImages{})

	_, err := svc.Get(context.Background(), uuid.New())
	var svcErr *Error
	if !errors.As(err, &svcErr) || svcErr.Kind != ErrInternal {
		t.Errorf("Get: expected internal error, got %v", err)
	}

	_, err = svc.Update(context.Background(), uuid.New(), UpdateUserInput{}, false)
	if !errors.As(err, &svcErr) || svcErr.Kind != ErrInternal {
		t.Errorf("Update: expected internal error, got %v", err)
	}

	_, err = svc.Delete(context.Background(), uuid.New())
	if !errors.As(err, &svcErr) || svcErr.Kind != ErrInternal {
		t.Errorf("Delete: expected internal error, got %v", err)
	}
}

func TestUserList(t *testing.T) {
	svc, _ := newUserService()
	ctx := context.Background()

	for i, name := range []string{"Alice Adams", "Bob Brown", "Carol Clark"} {
		_, err := svc.Create(ctx, CreateUserInput{
			Name:  name,
			Email: fmt.Sprintf("user%d@example.com", i),
		})
		if err != nil {
			t.Fatalf("Create %s: %v", name, err)
		}
	}

	t.Run("order by name", func(t *testing.T) {
		users, total, err := svc.List(ctx, ListUsersInput{Ordering: "name", Page: 1, PageSize: 10})
		if err != nil {
			t.Fatalf("List: %v", err)
		}
		if total != 3 || len(users) != 3 {
			t.Fatalf("total=%d len=%d, want 3", total, len(users))
		}
		if users[0].Name != "Alice Adams" || users[2].Name != "Carol Clark" {
			t.Errorf("unexpected order: %s .. %s", users[0].Name, users[2].Name)
		}
	})

	t.Run("descending order", func(t *testing.T) {
		users, _, err := svc.List(ctx, ListUsersInput{Ordering: "-name", Page: 1, PageSize: 10})
		if err != nil {
			t.Fatalf("List: %v", err)
		}
		if users[0].Name != "Carol Clark" {
			t.Errorf("expected Carol first, got %s", users[0].Name)
		}
	})

	t.Run("search", func(t *testing.T) {
		users, total, err := svc.List(ctx, ListUsersInput{Search: "bob", Page: 1, PageSize: 10})
		if err != nil {
			t.Fatalf("List: %v", err)
		}
		if total != 1 || users[0].Name != "Bob Brown" {
			t.Errorf("search result: total=%d users=%v", total, users)
		}
	})

	t.Run("unknown ordering field", func(t *testing.T) {
		_, _, err := svc.List(ctx, ListUsersInput{Ordering: "password", Page: 1, PageSize: 10})
		var svcErr *Error
		if !errors.As(err, &svcErr) || svcErr.Kind != ErrBadRequest {
			t.Errorf("expected bad request, got %v", err)
		}
	})

	t.Run("pagination", func(t *testing.T) {
		users, total, err := svc.List(ctx, ListUsersInput{Ordering: "name", Page: 2, PageSize: 2})
		if err != nil {
			t.Fatalf("List: %v", err)
		}
		if total != 3 || len(users) != 1 {
			t.Errorf("page 2: total=%d len=%d, want 3/1", total, len(users))
		}
	})
}
