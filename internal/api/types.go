package api

import "github.com/rickgao/peerlink/internal/model"

// Credentials is the register and login body.
type Credentials struct {
	Username string `json:"username"`
	Password string `json:"hash"`
	Avatar   string `json:"avatar,omitempty"`
}

// CreatedResponse from POST /user
type CreatedResponse struct {
	UUID string `json:"uuid"`
}

// TokenResponse from POST /auth
type TokenResponse struct {
	AccessToken string `json:"access_token"`
}

// PointsResponse from GET /user/points/{uuid}
type PointsResponse struct {
	UUID   string `json:"uuid"`
	Points int    `json:"points"`
}

// ProfileResponse from GET /auth/user/{connId}
type ProfileResponse struct {
	Username string `json:"username"`
	Avatar   string `json:"avatar"`
}

// UserUpdate is the PUT /auth/user body. Nil fields are left unchanged.
type UserUpdate struct {
	Username *string `json:"username,omitempty"`
	Avatar   *string `json:"avatar,omitempty"`
	ConnID   *string `json:"connId,omitempty"`
}

// NewTask is the POST /tasks body.
type NewTask struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

// Aliases so callers need not import model for responses.
type (
	User     = model.User
	Task     = model.Task
	Standing = model.Standing
)
