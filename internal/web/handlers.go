package web

import (
	"context"

	"github.com/mediahub/mediahub/internal/auth"
	"github.com/mediahub/mediahub/internal/krypto"
)

// loginResult is the outcome of every endpoint that starts a session.
type loginResult struct {
	user  auth.User
	token krypto.Token
}

type messageResponse struct {
	Message string `json:"message"`
}

type healthResponse struct {
	Status     string `json:"status"`
	Version    string `json:"version"`
	SessionTTL string `json:"sessionTtl"`
}

func (s *Server) health(_ context.Context) (healthResponse, error) {
	return healthResponse{
		Status:     "ok",
		Version:    s.cfg.Version,
		SessionTTL: s.cfg.SessionTTL.String(),
	}, nil
}

func (s *Server) register(ctx context.Context, req registerRequest) (loginResult, error) {
	reg, err := req.parse()
	if err != nil {
		return loginResult{}, err
	}

	user, token, err := s.deps.AuthService.Register(ctx, reg)
	if err != nil {
		return loginResult{}, err
	}

	return loginResult{user: user, token: token}, nil
}

func (s *Server) login(ctx context.Context, req credentialsRequest) (loginResult, error) {
	c, err := req.parse()
	if err != nil {
		return loginResult{}, err
	}

	user, token, err := s.deps.AuthService.Login(ctx, c)
	if err != nil {
		return loginResult{}, err
	}

	return loginResult{user: user, token: token}, nil
}

func (s *Server) adminLogin(ctx context.Context, req credentialsRequest) (loginResult, error) {
	c, err := req.parse()
	if err != nil {
		return loginResult{}, err
	}

	user, token, err := s.deps.AuthService.AdminLogin(ctx, c)
	if err != nil {
		return loginResult{}, err
	}

	return loginResult{user: user, token: token}, nil
}

func (s *Server) logout(ctx context.Context) (messageResponse, error) {
	token, ok := tokenFromCtx(ctx)
	if ok {
		s.deps.AuthService.Logout(ctx, token)
	}

	return messageResponse{Message: "Logged out"}, nil
}

// currentUser returns the user resolved by the principal middleware.
// It's only routed behind a guard, so the user is always present.
func currentUser(ctx context.Context) (auth.PublicUser, error) {
	user, _ := userFromCtx(ctx)
	return user.Public(), nil
}

func (s *Server) listUsers(ctx context.Context, q listUsersQuery) ([]auth.PublicUser, error) {
	users, err := s.deps.AuthService.ListUsers(ctx, q.filter())
	if err != nil {
		return nil, err
	}

	out := make([]auth.PublicUser, 0, len(users))
	for _, u := range users {
		out = append(out, u.Public())
	}

	return out, nil
}

func (s *Server) getUser(ctx context.Context, id int) (auth.PublicUser, error) {
	user, err := s.deps.AuthService.GetUser(ctx, id)
	if err != nil {
		return auth.PublicUser{}, err
	}

	return user.Public(), nil
}

// userUpdate is the input of the update endpoint, it combines the path and the body.
type userUpdate struct {
	id  int
	req updateUserRequest
}

func (s *Server) updateUser(ctx context.Context, in userUpdate) (auth.PublicUser, error) {
	upd, err := in.req.parse()
	if err != nil {
		return auth.PublicUser{}, err
	}

	user, err := s.deps.AuthService.UpdateUser(ctx, in.id, upd)
	if err != nil {
		return auth.PublicUser{}, err
	}

	return user.Public(), nil
}

func (s *Server) deleteUser(ctx context.Context, id int) error {
	actor, _ := userFromCtx(ctx)
	return s.deps.AuthService.DeleteUser(ctx, actor.ID, id)
}
