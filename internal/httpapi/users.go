package httpapi

import (
	"errors"
	"net/http"

	"github.com/google/uuid"

	"github.com/rickgao/peerlink/internal/auth"
	"github.com/rickgao/peerlink/internal/model"
	"github.com/rickgao/peerlink/internal/store"
)

// credentials is the register/login body. The password travels in the
// "hash" field; it is hashed server-side.
type credentials struct {
	Username string `json:"username"`
	Password string `json:"hash"`
	Avatar   string `json:"avatar,omitempty"`
}

type pointsResponse struct {
	UUID   string `json:"uuid"`
	Points int    `json:"points"`
}

type addPointsRequest struct {
	PointsToAdd int `json:"pointsToAdd"`
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
}

type updateUserRequest struct {
	Username *string `json:"username"`
	Avatar   *string `json:"avatar"`
	ConnID   *string `json:"connId"`
}

type profileResponse struct {
	Username string `json:"username"`
	Avatar   string `json:"avatar"`
}

func (s *Server) handleCreateUser(w http.ResponseWriter, r *http.Request) {
	var req credentials
	if !decode(w, r, &req) {
		return
	}
	if req.Username == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "username and hash are required")
		return
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		s.logger.Error("hash password failed", "error", err)
		writeError(w, http.StatusInternalServerError, "could not create user")
		return
	}

	u := model.User{
		UUID:     uuid.NewString(),
		Username: req.Username,
		Avatar:   req.Avatar,
		Hash:     hash,
	}
	if err := s.deps.Store.CreateUser(r.Context(), u); err != nil {
		if errors.Is(err, store.ErrAlreadyExists) {
			writeError(w, http.StatusBadRequest, "username already exists")
			return
		}
		s.storeError(w, "create user", err)
		return
	}

	s.logger.Info("user created", "uuid", u.UUID, "username", u.Username)
	writeJSON(w, http.StatusCreated, map[string]string{"uuid": u.UUID})
}

func (s *Server) handleLeaderboard(w http.ResponseWriter, r *http.Request) {
	users, err := s.deps.Store.Leaderboard(r.Context())
	if err != nil {
		s.storeError(w, "leaderboard", err)
		return
	}

	board := make([]model.Standing, len(users))
	for i, u := range users {
		board[i] = u.Standing()
	}
	writeJSON(w, http.StatusOK, board)
}

func (s *Server) handlePoints(w http.ResponseWriter, r *http.Request) {
	u, err := s.deps.Store.User(r.Context(), r.PathValue("uuid"))
	if err != nil {
		s.storeError(w, "get user", err)
		return
	}
	writeJSON(w, http.StatusOK, pointsResponse{UUID: u.UUID, Points: u.Points})
}

func (s *Server) handleAddPoints(w http.ResponseWriter, r *http.Request) {
	var req addPointsRequest
	if !decode(w, r, &req) {
		return
	}

	u, err := s.deps.Store.AddPoints(r.Context(), r.PathValue("uuid"), req.PointsToAdd)
	if err != nil {
		s.storeError(w, "add points", err)
		return
	}
	writeJSON(w, http.StatusOK, u)
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req credentials
	if !decode(w, r, &req) {
		return
	}

	u, err := s.deps.Store.UserByName(r.Context(), req.Username)
	if err != nil {
		s.storeError(w, "find user", err)
		return
	}

	if err := auth.CheckPassword(u.Hash, req.Password); err != nil {
		if !errors.Is(err, auth.ErrInvalidCredentials) {
			s.logger.Error("check password failed", "error", err)
		}
		writeError(w, http.StatusUnauthorized, "invalid credentials")
		return
	}

	token, err := s.deps.Tokens.Issue(u.UUID)
	if err != nil {
		s.logger.Error("issue token failed", "error", err)
		writeError(w, http.StatusInternalServerError, "could not issue token")
		return
	}
	writeJSON(w, http.StatusOK, tokenResponse{AccessToken: token})
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request, userUUID string) {
	u, err := s.deps.Store.User(r.Context(), userUUID)
	if err != nil {
		s.storeError(w, "get user", err)
		return
	}
	writeJSON(w, http.StatusOK, u)
}

func (s *Server) handleUpdateMe(w http.ResponseWriter, r *http.Request, userUUID string) {
	var req updateUserRequest
	if !decode(w, r, &req) {
		return
	}
	if req.Username != nil && *req.Username == "" {
		writeError(w, http.StatusBadRequest, "username must not be empty")
		return
	}

	u, err := s.deps.Store.UpdateUser(r.Context(), userUUID, store.UserUpdate{
		Username: req.Username,
		Avatar:   req.Avatar,
		ConnID:   req.ConnID,
	})
	if err != nil {
		s.storeError(w, "update user", err)
		return
	}
	writeJSON(w, http.StatusOK, u)
}

func (s *Server) handleUserByConn(w http.ResponseWriter, r *http.Request, _ string) {
	u, err := s.deps.Store.UserByConn(r.Context(), r.PathValue("connId"))
	if err != nil {
		s.storeError(w, "find user by connection", err)
		return
	}
	writeJSON(w, http.StatusOK, profileResponse{Username: u.Username, Avatar: u.Avatar})
}

// storeError maps store sentinels to status codes.
func (s *Server) storeError(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, store.ErrNotFound):
		writeError(w, http.StatusNotFound, "not found")
	case errors.Is(err, store.ErrAlreadyExists):
		writeError(w, http.StatusConflict, "already exists")
	default:
		s.logger.Error(op+" failed", "error", err)
		writeError(w, http.StatusInternalServerError, op+" failed")
	}
}
