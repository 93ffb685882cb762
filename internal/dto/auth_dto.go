package dto

// RegisterRequest is the payload for account registration.
type RegisterRequest struct {
	Name     string `json:"name" validate:"required,min=2,max=255"`
	Email    string `json:"email" validate:"required,email"`
	RollNo   string `json:"roll_no" validate:"omitempty,max=64"`
	Password string `json:"password" validate:"required,min=8,max=128"`
	Role     string `json:"role" validate:"omitempty,oneof=teacher student"`
}

// LoginRequest is the payload for authentication.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// LoginResponse carries the issued token and basic account info.
type LoginResponse struct {
	Token string       `json:"token"`
	User  UserResponse `json:"user"`
}

// UserResponse is the externally visible account shape.
type UserResponse struct {
	ID               uint   `json:"id"`
	Name             string `json:"name"`
	Email            string `json:"email"`
	RollNo           string `json:"roll_no,omitempty"`
	Role             string `json:"role"`
	MalpracticeCount int    `json:"malpractice_count"`
	IsBlocked        bool   `json:"is_blocked"`
}
