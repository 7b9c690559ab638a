package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"

	"courseos-backend/internal/middleware"
	"courseos-backend/internal/models"
	"courseos-backend/internal/services"
)

type stubAuthService struct {
	signUpReq  models.SignUpRequest
	signInErr  error
	signedOut  string
	refreshErr error
}

func (s *stubAuthService) SignUp(_ context.Context, req models.SignUpRequest) (*models.AuthTokens, error) {
	s.signUpReq = req
	return &models.AuthTokens{AccessToken: "a", RefreshToken: "r", ExpiresIn: 900}, nil
}

func (s *stubAuthService) SignIn(context.Context, models.SignInRequest) (*models.AuthTokens, error) {
	if s.signInErr != nil {
		return nil, s.signInErr
	}
	return &models.AuthTokens{AccessToken: "a", RefreshToken: "r", ExpiresIn: 900}, nil
}

func (s *stubAuthService) GoogleSignIn(_ context.Context, idToken string) (*models.AuthTokens, error) {
	return &models.AuthTokens{AccessToken: idToken}, nil
}

func (s *stubAuthService) Refresh(context.Context, string) (*models.AuthTokens, error) {
	if s.refreshErr != nil {
		return nil, s.refreshErr
	}
	return &models.AuthTokens{AccessToken: "a2", RefreshToken: "r2"}, nil
}

func (s *stubAuthService) SignOut(_ context.Context, token string) error {
	s.signedOut = token
	return nil
}

func (s *stubAuthService) Session(_ context.Context, session middleware.Session) *models.SessionResponse {
	return &models.SessionResponse{UserID: session.UserID, Email: session.Email}
}

func TestSignUpHandler_Created(t *testing.T) {
	svc := &stubAuthService{}
	h := NewAuthHandler(svc)
	body := map[string]string{"full_name": "Test User", "email": "test@example.com", "password": "StrongPass123"}

	rr := httptest.NewRecorder()
	h.SignUp(rr, newRequest(http.MethodPost, "/api/v1/auth/signup", body, uuid.Nil))

	if rr.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", rr.Code)
	}
	if svc.signUpReq.Email != "test@example.com" || svc.signUpReq.FullName != "Test User" {
		t.Errorf("request not passed through: %+v", svc.signUpReq)
	}
}

func TestSignUpHandler_BadBody(t *testing.T) {
	h := NewAuthHandler(&stubAuthService{})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/signup", strings.NewReader("{not json"))

	rr := httptest.NewRecorder()
	h.SignUp(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rr.Code)
	}
}

func TestSignInHandler_AuthErrorPassesThrough(t *testing.T) {
	h := NewAuthHandler(&stubAuthService{signInErr: &services.AuthError{Message: "Account is deactivated"}})
	body := map[string]string{"email": "a@b.co", "password": "x"}

	rr := httptest.NewRecorder()
	h.SignIn(rr, newRequest(http.MethodPost, "/api/v1/auth/signin", body, uuid.Nil))

	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rr.Code)
	}
	if msg := decodeError(t, rr).Message; msg != "Account is deactivated" {
		t.Errorf("message = %q", msg)
	}
}

func TestSignOutHandler(t *testing.T) {
	svc := &stubAuthService{}
	h := NewAuthHandler(svc)

	rr := httptest.NewRecorder()
	h.SignOut(rr, newRequest(http.MethodPost, "/api/v1/auth/signout", map[string]string{"refresh_token": "tok"}, uuid.New()))

	if rr.Code != http.StatusOK || svc.signedOut != "tok" {
		t.Fatalf("status = %d, revoked = %q", rr.Code, svc.signedOut)
	}
}

func TestSessionHandler(t *testing.T) {
	h := NewAuthHandler(&stubAuthService{})
	userID := uuid.New()

	rr := httptest.NewRecorder()
	h.Session(rr, newRequest(http.MethodGet, "/api/v1/auth/session", nil, userID))

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	var resp models.SessionResponse
	json.NewDecoder(rr.Body).Decode(&resp)
	if resp.UserID != userID || resp.Email != "creator@example.com" {
		t.Errorf("unexpected session %+v", resp)
	}
}
