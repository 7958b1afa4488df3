package web

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/mediahub/mediahub/internal/auth"
	"github.com/mediahub/mediahub/internal/email"
	"github.com/mediahub/mediahub/internal/errorz"
)

const maxNameRunes = 100

var (
	errRequired    = errors.New("is required")
	errNameTooLong = fmt.Errorf("must be at most %d characters", maxNameRunes)
	errInvalidID   = errors.New("must be a positive integer")
)

// The request types below are decoded from JSON as is, their parse methods
// convert them to domain types and collect an error per invalid field.

type credentialsRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func (req credentialsRequest) parse() (auth.Credentials, error) {
	var c errorz.Collector

	username := auth.LoginUsername(req.Username)
	if username == "" {
		c.Add("username", errRequired)
	}

	var pwd auth.Password
	if req.Password == "" {
		c.Add("password", errRequired)
	} else {
		var err error
		pwd, err = auth.ParsePassword(req.Password)
		c.Add("password", err)
	}

	return auth.Credentials{
		Username: username,
		Password: pwd,
	}, c.Err()
}

type registerRequest struct {
	Username  string  `json:"username"`
	Email     string  `json:"email"`
	Password  string  `json:"password"`
	FirstName *string `json:"firstName"`
	LastName  *string `json:"lastName"`
}

func (req registerRequest) parse() (auth.Registration, error) {
	var c errorz.Collector

	username, err := auth.ParseUsername(req.Username)
	c.Add("username", err)

	addr, err := email.ParseAddress(req.Email)
	c.Add("email", err)

	pwd, err := auth.ParseNewPassword(req.Password)
	c.Add("password", err)

	firstName, err := parseName(req.FirstName)
	c.Add("firstName", err)

	lastName, err := parseName(req.LastName)
	c.Add("lastName", err)

	return auth.Registration{
		Username:  username,
		Email:     addr,
		Password:  pwd,
		FirstName: firstName,
		LastName:  lastName,
	}, c.Err()
}

// updateUserRequest is a partial update, absent fields are left unchanged.
// A username in the body is ignored, usernames can't be changed.
type updateUserRequest struct {
	Email     *string `json:"email"`
	Password  *string `json:"password"`
	FirstName *string `json:"firstName"`
	LastName  *string `json:"lastName"`
	IsAdmin   *bool   `json:"isAdmin"`
}

func (req updateUserRequest) parse() (auth.UserUpdate, error) {
	var c errorz.Collector
	upd := auth.UserUpdate{
		IsAdmin: req.IsAdmin,
	}

	if req.Email != nil {
		addr, err := email.ParseAddress(*req.Email)
		c.Add("email", err)
		upd.Email = &addr
	}

	// An empty password means "keep the current one", like an absent one.
	if req.Password != nil && *req.Password != "" {
		pwd, err := auth.ParseNewPassword(*req.Password)
		c.Add("password", err)
		upd.Password = &pwd
	}

	var err error
	upd.FirstName, err = parseName(req.FirstName)
	c.Add("firstName", err)

	upd.LastName, err = parseName(req.LastName)
	c.Add("lastName", err)

	return upd, c.Err()
}

// listUsersQuery is decoded from the query string.
type listUsersQuery struct {
	IsAdmin *bool `schema:"isAdmin"`
}

func (q listUsersQuery) filter() auth.UserFilter {
	return auth.UserFilter{
		IsAdmin: q.IsAdmin,
	}
}

// parseName trims an optional name. Names that are absent stay absent.
func parseName(raw *string) (*string, error) {
	if raw == nil {
		return nil, nil
	}

	name := strings.TrimSpace(*raw)
	if utf8.RuneCountInString(name) > maxNameRunes {
		return nil, errNameTooLong
	}

	return &name, nil
}

// pathID parses the {id} wildcard of a route.
func pathID(r *http.Request) (int, error) {
	id, err := strconv.Atoi(r.PathValue("id"))
	if err != nil || id < 1 {
		return 0, errorz.InvalidInput{errorz.Keyed{Key: "id", Err: errInvalidID}}
	}

	return id, nil
}
