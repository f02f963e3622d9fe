package api

import (
	"context"
	"net/http"
	"net/url"
)

// Register creates a user and returns its UUID.
func (c *Client) Register(ctx context.Context, creds Credentials) (string, error) {
	var resp CreatedResponse
	if err := c.send(ctx, http.MethodPost, "/user", creds, &resp); err != nil {
		return "", err
	}
	return resp.UUID, nil
}

// Login exchanges credentials for a token and stores it on the client.
func (c *Client) Login(ctx context.Context, username, password string) (string, error) {
	var resp TokenResponse
	creds := Credentials{Username: username, Password: password}
	if err := c.send(ctx, http.MethodPost, "/auth", creds, &resp); err != nil {
		return "", err
	}
	c.SetToken(resp.AccessToken)
	return resp.AccessToken, nil
}

// Me returns the authenticated user.
func (c *Client) Me(ctx context.Context) (User, error) {
	var u User
	err := c.get(ctx, "/auth/user", &u)
	return u, err
}

// UpdateMe changes the authenticated user.
func (c *Client) UpdateMe(ctx context.Context, upd UserUpdate) (User, error) {
	var u User
	err := c.send(ctx, http.MethodPut, "/auth/user", upd, &u)
	return u, err
}

// BindConnection records connID as the authenticated user's connection.
func (c *Client) BindConnection(ctx context.Context, connID string) (User, error) {
	return c.UpdateMe(ctx, UserUpdate{ConnID: &connID})
}

// Profile returns the public profile of the user behind connID.
func (c *Client) Profile(ctx context.Context, connID string) (ProfileResponse, error) {
	var p ProfileResponse
	err := c.get(ctx, "/auth/user/"+url.PathEscape(connID), &p)
	return p, err
}

// Leaderboard returns all users by points, highest first.
func (c *Client) Leaderboard(ctx context.Context) ([]Standing, error) {
	var board []Standing
	err := c.get(ctx, "/user/points", &board)
	return board, err
}

// Points returns the points of one user.
func (c *Client) Points(ctx context.Context, userUUID string) (int, error) {
	var resp PointsResponse
	if err := c.get(ctx, "/user/points/"+url.PathEscape(userUUID), &resp); err != nil {
		return 0, err
	}
	return resp.Points, nil
}

// AddPoints adds delta to a user's points.
func (c *Client) AddPoints(ctx context.Context, userUUID string, delta int) (User, error) {
	var u User
	body := map[string]int{"pointsToAdd": delta}
	err := c.send(ctx, http.MethodPost, "/user/points/"+url.PathEscape(userUUID), body, &u)
	return u, err
}
