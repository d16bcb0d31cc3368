package models

import "time"

// User is the logged-in account holder, as returned by the VoteFlow API.
type User struct {
	ID               string    `json:"id"`
	Name             string    `json:"name"`
	Email            string    `json:"email"`
	Role             Role      `json:"role"`
	Avatar           string    `json:"avatar,omitempty"`
	Phone            string    `json:"phone,omitempty"`
	Location         string    `json:"location,omitempty"`
	Bio              string    `json:"bio,omitempty"`
	Timezone         string    `json:"timezone,omitempty"`
	TwoFactorEnabled bool      `json:"twoFactorEnabled"`
	Organization     string    `json:"organization,omitempty"`
	CreatedAt        time.Time `json:"createdAt"`
}

// LoginRequest represents the request body for login
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// SignupRequest represents the request body for signup
type SignupRequest struct {
	Name             string `json:"name"`
	Email            string `json:"email"`
	Password         string `json:"password"`
	OrganizationName string `json:"organizationName,omitempty"`
}

// AuthResponse represents the response after successful authentication
type AuthResponse struct {
	Token string `json:"token"`
	User  *User  `json:"user"`
}

// ResetPasswordRequest completes the forgot-password flow.
type ResetPasswordRequest struct {
	Token           string `json:"token"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirmPassword"`
}

// UpdateProfileRequest carries the editable profile fields.
type UpdateProfileRequest struct {
	Name     string `json:"name,omitempty"`
	Email    string `json:"email,omitempty"`
	Phone    string `json:"phone,omitempty"`
	Location string `json:"location,omitempty"`
	Bio      string `json:"bio,omitempty"`
	Timezone string `json:"timezone,omitempty"`
	Avatar   string `json:"avatar,omitempty"`
}

// Activity is one entry of the user's recent activity feed.
type Activity struct {
	ID          string    `json:"id"`
	Action      string    `json:"action"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"createdAt"`
}
