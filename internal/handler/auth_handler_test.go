package handler

import (
	"context"
	"encoding/json"
	"io"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/proctor-go-api/internal/dto"
	"github.com/noah-isme/proctor-go-api/internal/service"
)

type stubAuthService struct {
	registerErr error
	loginErr    error
	session     dto.LoginResponse
	user        dto.UserResponse
}

func (s *stubAuthService) Register(ctx context.Context, payload dto.RegisterRequest) (dto.UserResponse, error) {
	if s.registerErr != nil {
		return dto.UserResponse{}, s.registerErr
	}
	return s.user, nil
}

func (s *stubAuthService) Login(ctx context.Context, payload dto.LoginRequest) (dto.LoginResponse, error) {
	if s.loginErr != nil {
		return dto.LoginResponse{}, s.loginErr
	}
	return s.session, nil
}

func (s *stubAuthService) Unblock(ctx context.Context, userID uint) (dto.UserResponse, error) {
	return s.user, nil
}

func newAuthTestApp(stub *stubAuthService) *fiber.App {
	app := fiber.New()
	handler := NewAuthHandler(stub, zerolog.Nop())
	handler.Register(app.Group("/api/v1/auth"))
	return app
}

func postJSON(t *testing.T, app *fiber.App, path, body string) (int, map[string]any) {
	t.Helper()

	req := httptest.NewRequest("POST", path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req, -1)
	require.NoError(t, err)

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	var payload map[string]any
	require.NoError(t, json.Unmarshal(raw, &payload))
	return resp.StatusCode, payload
}

func TestAuthHandlerRegisterCreated(t *testing.T) {
	stub := &stubAuthService{user: dto.UserResponse{ID: 1, Name: "Mina", Email: "mina@example.com", Role: "student"}}
	app := newAuthTestApp(stub)

	status, payload := postJSON(t, app, "/api/v1/auth/register",
		`{"name":"Mina","email":"mina@example.com","password":"s3cretpass"}`)

	require.Equal(t, fiber.StatusCreated, status)
	require.Equal(t, true, payload["success"])
	data := payload["data"].(map[string]any)
	require.Equal(t, "mina@example.com", data["email"])
}

func TestAuthHandlerRegisterConflict(t *testing.T) {
	stub := &stubAuthService{registerErr: service.ErrEmailTaken}
	app := newAuthTestApp(stub)

	status, payload := postJSON(t, app, "/api/v1/auth/register",
		`{"name":"Mina","email":"mina@example.com","password":"s3cretpass"}`)

	require.Equal(t, fiber.StatusConflict, status)
	require.Equal(t, false, payload["success"])
}

func TestAuthHandlerLoginStatusMapping(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		status int
	}{
		{"invalid credentials", service.ErrInvalidCredentials, fiber.StatusUnauthorized},
		{"blocked account", service.ErrAccountBlocked, fiber.StatusForbidden},
		{"unknown user", service.ErrUserNotFound, fiber.StatusNotFound},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			app := newAuthTestApp(&stubAuthService{loginErr: tc.err})
			status, _ := postJSON(t, app, "/api/v1/auth/login",
				`{"email":"mina@example.com","password":"wrong"}`)
			require.Equal(t, tc.status, status)
		})
	}
}

func TestAuthHandlerLoginSuccess(t *testing.T) {
	stub := &stubAuthService{session: dto.LoginResponse{
		Token: "token-123",
		User:  dto.UserResponse{ID: 1, Email: "mina@example.com", Role: "student"},
	}}
	app := newAuthTestApp(stub)

	status, payload := postJSON(t, app, "/api/v1/auth/login",
		`{"email":"mina@example.com","password":"s3cretpass"}`)

	require.Equal(t, fiber.StatusOK, status)
	data := payload["data"].(map[string]any)
	require.Equal(t, "token-123", data["token"])
}

func TestAuthHandlerRejectsMalformedBody(t *testing.T) {
	app := newAuthTestApp(&stubAuthService{})

	status, payload := postJSON(t, app, "/api/v1/auth/register", `{"name":`)
	require.Equal(t, fiber.StatusBadRequest, status)
	require.Equal(t, false, payload["success"])
}
