package gitlab

import (
	"context"
	"fmt"
	"net/http"
)

// UsersService handles /user and /users.
type UsersService struct {
	client *Client
}

// CurrentUser returns the owner of the token.
func (s *UsersService) CurrentUser(ctx context.Context) (*User, *Response, error) {
	u := new(User)
	resp, err := s.client.call(ctx, http.MethodGet, "user", nil, u)
	if err != nil {
		return nil, resp, err
	}
	return u, resp, nil
}

// GetUser returns a user by numeric id.
func (s *UsersService) GetUser(ctx context.Context, id int64) (*User, *Response, error) {
	u := new(User)
	resp, err := s.client.call(ctx, http.MethodGet, fmt.Sprintf("users/%d", id), nil, u)
	if err != nil {
		return nil, resp, err
	}
	return u, resp, nil
}

// GetUserByUsername looks a user up by username. It returns an error matching
// ErrNotFound when no user has that name.
func (s *UsersService) GetUserByUsername(ctx context.Context, username string) (*User, *Response, error) {
	form := NewForm().WithRequiredParam("username", username)
	var users []*User
	resp, err := s.client.call(ctx, http.MethodGet, "users", form, &users)
	if err != nil {
		return nil, resp, err
	}
	if len(users) == 0 {
		return nil, resp, fmt.Errorf("user %q: %w", username, ErrNotFound)
	}
	return users[0], resp, nil
}
