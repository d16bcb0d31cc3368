package apiclient

import (
	"context"
	"net/http"
	"net/url"

	"voteflow-backend/internal/models"
)

// ---- auth ----

func (c *Client) Login(ctx context.Context, req models.LoginRequest) (*models.AuthResponse, error) {
	var out models.AuthResponse
	err := c.do(ctx, call{name: "auth.login", method: http.MethodPost, path: "/auth/login", body: req,
		errFrom: FromData, fallback: "Login failed"}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) Signup(ctx context.Context, req models.SignupRequest) (*models.AuthResponse, error) {
	var out models.AuthResponse
	err := c.do(ctx, call{name: "auth.signup", method: http.MethodPost, path: "/auth/signup", body: req,
		errFrom: FromData, fallback: "Signup failed"}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) Logout(ctx context.Context) error {
	return c.do(ctx, call{name: "auth.logout", method: http.MethodPost, path: "/auth/logout",
		errFrom: FromMessage, fallback: "Logout failed"}, nil)
}

func (c *Client) ForgotPassword(ctx context.Context, email string) error {
	return c.do(ctx, call{name: "auth.forgot", method: http.MethodPost, path: "/auth/forgot-password",
		body: map[string]string{"email": email}, errFrom: FromBody, fallback: "Failed to send reset email"}, nil)
}

func (c *Client) ResetPassword(ctx context.Context, req models.ResetPasswordRequest) error {
	return c.do(ctx, call{name: "auth.reset", method: http.MethodPost, path: "/auth/reset-password",
		body: req, errFrom: FromBody, fallback: "Failed to reset password"}, nil)
}

func (c *Client) ValidateResetToken(ctx context.Context, token string) error {
	return c.do(ctx, call{name: "auth.reset.validate", method: http.MethodGet,
		path:    "/auth/reset-password/validate/" + url.PathEscape(token),
		errFrom: FromBody, fallback: "Invalid or expired reset token"}, nil)
}

// ---- elections ----

func (c *Client) ListElections(ctx context.Context) ([]models.Election, error) {
	var out []models.Election
	err := c.do(ctx, call{name: "elections.list", method: http.MethodGet, path: "/elections",
		fallback: "Failed to fetch elections"}, &out)
	return out, err
}

func (c *Client) GetElection(ctx context.Context, id string) (*models.Election, error) {
	var out models.Election
	if err := c.do(ctx, call{name: "elections.get", method: http.MethodGet, path: "/elections/" + url.PathEscape(id),
		fallback: "Failed to fetch election"}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) CreateElection(ctx context.Context, e models.Election) (*models.Election, error) {
	var out models.Election
	if err := c.do(ctx, call{name: "elections.create", method: http.MethodPost, path: "/elections", body: e,
		fallback: "Failed to create election"}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) UpdateElection(ctx context.Context, id string, e models.Election) (*models.Election, error) {
	var out models.Election
	if err := c.do(ctx, call{name: "elections.update", method: http.MethodPut, path: "/elections/" + url.PathEscape(id), body: e,
		fallback: "Failed to update election"}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) DeleteElection(ctx context.Context, id string) error {
	return c.do(ctx, call{name: "elections.delete", method: http.MethodDelete, path: "/elections/" + url.PathEscape(id),
		fallback: "Failed to delete election"}, nil)
}

// ElectionAction is one of the lifecycle transitions the API exposes.
type ElectionAction string

const (
	ActionPause  ElectionAction = "pause"
	ActionResume ElectionAction = "resume"
	ActionClose  ElectionAction = "close"
)

func (c *Client) TransitionElection(ctx context.Context, id string, action ElectionAction) (*models.Election, error) {
	var out models.Election
	if err := c.do(ctx, call{name: "elections." + string(action), method: http.MethodPut,
		path:     "/elections/" + url.PathEscape(id) + "/" + string(action),
		fallback: "Failed to " + string(action) + " election"}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ---- candidates ----

func (c *Client) ListCandidates(ctx context.Context, electionID string) ([]models.Candidate, error) {
	var q url.Values
	if electionID != "" {
		q = url.Values{"electionId": {electionID}}
	}
	var out []models.Candidate
	err := c.do(ctx, call{name: "candidates.list", method: http.MethodGet, path: "/candidates", query: q,
		fallback: "Failed to fetch candidates"}, &out)
	return out, err
}

func (c *Client) CreateCandidate(ctx context.Context, cand models.Candidate) (*models.Candidate, error) {
	var out models.Candidate
	if err := c.do(ctx, call{name: "candidates.create", method: http.MethodPost, path: "/candidates", body: cand,
		fallback: "Failed to create candidate"}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) UpdateCandidate(ctx context.Context, id string, cand models.Candidate) (*models.Candidate, error) {
	var out models.Candidate
	if err := c.do(ctx, call{name: "candidates.update", method: http.MethodPut, path: "/candidates/" + url.PathEscape(id), body: cand,
		fallback: "Failed to update candidate"}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) DeleteCandidate(ctx context.Context, id string) error {
	return c.do(ctx, call{name: "candidates.delete", method: http.MethodDelete, path: "/candidates/" + url.PathEscape(id),
		fallback: "Failed to delete candidate"}, nil)
}

// ---- votes & analytics ----

func (c *Client) CastVote(ctx context.Context, v models.Vote) error {
	return c.do(ctx, call{name: "votes.cast", method: http.MethodPost, path: "/votes", body: v,
		fallback: "Failed to cast vote"}, nil)
}

func (c *Client) VoteStatus(ctx context.Context, electionID string) (*models.VoteStatus, error) {
	var out models.VoteStatus
	if err := c.do(ctx, call{name: "votes.status", method: http.MethodGet, path: "/votes/status/" + url.PathEscape(electionID),
		fallback: "Failed to fetch vote status"}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) Analytics(ctx context.Context, electionID string) (*models.Analytics, error) {
	var out models.Analytics
	if err := c.do(ctx, call{name: "analytics.get", method: http.MethodGet, path: "/analytics/" + url.PathEscape(electionID),
		fallback: "Failed to fetch analytics"}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ---- notifications ----

func (c *Client) Notifications(ctx context.Context) ([]models.Notification, error) {
	var out []models.Notification
	err := c.do(ctx, call{name: "notifications.list", method: http.MethodGet, path: "/notifications",
		fallback: "Failed to fetch notifications"}, &out)
	return out, err
}

func (c *Client) MarkNotificationRead(ctx context.Context, id string) error {
	return c.do(ctx, call{name: "notifications.read", method: http.MethodPut, path: "/notifications/" + url.PathEscape(id) + "/read",
		fallback: "Failed to update notification"}, nil)
}

// ---- users & organization ----

func (c *Client) ListUsers(ctx context.Context) ([]models.User, error) {
	var out []models.User
	err := c.do(ctx, call{name: "users.list", method: http.MethodGet, path: "/users",
		fallback: "Failed to fetch users"}, &out)
	return out, err
}

func (c *Client) Profile(ctx context.Context) (*models.User, error) {
	var out models.User
	if err := c.do(ctx, call{name: "users.profile", method: http.MethodGet, path: "/users/profile",
		fallback: "Failed to fetch profile"}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// UpdateProfile writes through /user/profile; reads go through
// /users/profile. The API exposes both.
func (c *Client) UpdateProfile(ctx context.Context, req models.UpdateProfileRequest) (*models.User, error) {
	var out models.User
	if err := c.do(ctx, call{name: "user.profile.update", method: http.MethodPut, path: "/user/profile", body: req,
		fallback: "Failed to update profile"}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) Activities(ctx context.Context) ([]models.Activity, error) {
	var out []models.Activity
	err := c.do(ctx, call{name: "users.activities", method: http.MethodGet, path: "/users/activities",
		fallback: "Failed to fetch activities"}, &out)
	return out, err
}

func (c *Client) Organization(ctx context.Context) (*models.Organization, error) {
	var out models.Organization
	if err := c.do(ctx, call{name: "organization.get", method: http.MethodGet, path: "/organization",
		fallback: "Failed to fetch organization"}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) UpdateOrganization(ctx context.Context, org models.Organization) (*models.Organization, error) {
	var out models.Organization
	if err := c.do(ctx, call{name: "organization.update", method: http.MethodPut, path: "/organization", body: org,
		fallback: "Failed to update organization"}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) RemoveOrganizationLogo(ctx context.Context) error {
	return c.do(ctx, call{name: "organization.removelogo", method: http.MethodDelete, path: "/organization/removelogo",
		fallback: "Failed to remove logo"}, nil)
}

// Ping reports whether the API answers at all. Any HTTP response counts.
func (c *Client) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/", nil)
	if err != nil {
		return err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	resp.Body.Close()
	return nil
}
