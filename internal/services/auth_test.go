package services

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"google.golang.org/api/idtoken"

	"courseos-backend/internal/logger"
	"courseos-backend/internal/middleware"
	"courseos-backend/internal/models"
)

func newTestAuth(googleClientID string) (*AuthService, *fakeUserStore, *memRefreshTokens, *middleware.JWTAuth) {
	users := newFakeUserStore()
	refresh := newMemRefreshTokens()
	jwt := middleware.NewJWTAuth("test-secret")
	return NewAuthService(users, refresh, jwt, googleClientID, logger.Nop()), users, refresh, jwt
}

func TestSignUp_IssuesTokens(t *testing.T) {
	svc, users, refresh, jwt := newTestAuth("")

	tokens, err := svc.SignUp(context.Background(), models.SignUpRequest{FullName: "Ada", Email: " Ada@Example.com ", Password: "secret123"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	session, err := jwt.ParseToken(tokens.AccessToken)
	if err != nil {
		t.Fatalf("access token does not parse: %v", err)
	}
	if session.Email != "ada@example.com" || session.UserID != tokens.User.ID {
		t.Errorf("unexpected session %+v", session)
	}
	if _, ok := refresh.tokens[tokens.RefreshToken]; !ok {
		t.Error("refresh token was not stored")
	}
	stored, _ := users.GetByEmail(context.Background(), "ada@example.com")
	if stored == nil || stored.PasswordHash == "" || stored.PasswordHash == "secret123" {
		t.Error("password should be stored hashed")
	}
}

func TestSignUp_Validation(t *testing.T) {
	svc, _, _, _ := newTestAuth("")

	_, err := svc.SignUp(context.Background(), models.SignUpRequest{Email: "nope", Password: "short"})
	var ve *ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	for _, field := range []string{"full_name", "email", "password"} {
		if ve.Fields[field] == "" {
			t.Errorf("missing field error for %s", field)
		}
	}
}

func TestSignUp_DuplicateEmail(t *testing.T) {
	svc, _, _, _ := newTestAuth("")
	req := models.SignUpRequest{FullName: "Ada", Email: "ada@example.com", Password: "secret123"}

	if _, err := svc.SignUp(context.Background(), req); err != nil {
		t.Fatalf("first sign-up: %v", err)
	}
	_, err := svc.SignUp(context.Background(), req)
	var ce *ConflictError
	if !errors.As(err, &ce) {
		t.Fatalf("expected ConflictError, got %v", err)
	}
}

func TestSignIn(t *testing.T) {
	svc, users, _, _ := newTestAuth("")
	svc.SignUp(context.Background(), models.SignUpRequest{FullName: "Ada", Email: "ada@example.com", Password: "secret123"})

	if _, err := svc.SignIn(context.Background(), models.SignInRequest{Email: "ada@example.com", Password: "secret123"}); err != nil {
		t.Fatalf("valid sign-in failed: %v", err)
	}
	if users.logins != 1 {
		t.Errorf("last login not recorded")
	}

	tests := []models.SignInRequest{
		{Email: "ada@example.com", Password: "wrong-pass1"},
		{Email: "nobody@example.com", Password: "secret123"},
	}
	for _, req := range tests {
		_, err := svc.SignIn(context.Background(), req)
		var ae *AuthError
		if !errors.As(err, &ae) || ae.Message != "Invalid email or password" {
			t.Errorf("%s: expected AuthError, got %v", req.Email, err)
		}
	}
}

func TestRefresh_RotatesToken(t *testing.T) {
	svc, _, refresh, _ := newTestAuth("")
	first, _ := svc.SignUp(context.Background(), models.SignUpRequest{FullName: "Ada", Email: "ada@example.com", Password: "secret123"})

	second, err := svc.Refresh(context.Background(), first.RefreshToken)
	if err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if second.RefreshToken == first.RefreshToken {
		t.Fatal("refresh token was not rotated")
	}
	if _, ok := refresh.tokens[first.RefreshToken]; ok {
		t.Fatal("old refresh token still valid")
	}

	_, err = svc.Refresh(context.Background(), first.RefreshToken)
	var ae *AuthError
	if !errors.As(err, &ae) {
		t.Fatalf("reusing a rotated token: expected AuthError, got %v", err)
	}
}

func TestSignOut_RevokesRefreshToken(t *testing.T) {
	svc, _, refresh, _ := newTestAuth("")
	tokens, _ := svc.SignUp(context.Background(), models.SignUpRequest{FullName: "Ada", Email: "ada@example.com", Password: "secret123"})

	if err := svc.SignOut(context.Background(), tokens.RefreshToken); err != nil {
		t.Fatalf("sign out: %v", err)
	}
	if len(refresh.tokens) != 0 {
		t.Fatal("refresh token survived sign-out")
	}
}

func TestSession_FallsBackToToken(t *testing.T) {
	svc, users, _, _ := newTestAuth("")
	users.failGet = errors.New("db down")
	id := uuid.New()

	resp := svc.Session(context.Background(), middleware.Session{UserID: id, Email: "a@b.co"})
	if resp.UserID != id || resp.Email != "a@b.co" || resp.User != nil {
		t.Fatalf("unexpected session response %+v", resp)
	}
}

func googlePayload(sub, email string) *idtoken.Payload {
	return &idtoken.Payload{
		Subject: sub,
		Claims:  map[string]interface{}{"email": email, "name": "Grace", "picture": "https://example.com/g.png"},
	}
}

func TestGoogleSignIn(t *testing.T) {
	t.Run("not configured", func(t *testing.T) {
		svc, _, _, _ := newTestAuth("")
		_, err := svc.GoogleSignIn(context.Background(), "tok")
		var ae *AuthError
		if !errors.As(err, &ae) {
			t.Fatalf("expected AuthError, got %v", err)
		}
	})

	t.Run("rejected token", func(t *testing.T) {
		svc, _, _, _ := newTestAuth("client-id")
		svc.WithGoogleVerifier(func(context.Context, string, string) (*idtoken.Payload, error) {
			return nil, errors.New("audience mismatch")
		})
		_, err := svc.GoogleSignIn(context.Background(), "tok")
		var ae *AuthError
		if !errors.As(err, &ae) || ae.Message != "Invalid Google token" {
			t.Fatalf("expected AuthError, got %v", err)
		}
	})

	t.Run("creates then reuses account", func(t *testing.T) {
		svc, users, _, _ := newTestAuth("client-id")
		var gotAudience string
		svc.WithGoogleVerifier(func(_ context.Context, _ string, aud string) (*idtoken.Payload, error) {
			gotAudience = aud
			return googlePayload("g-1", "Grace@Example.com"), nil
		})

		first, err := svc.GoogleSignIn(context.Background(), "tok")
		if err != nil {
			t.Fatalf("first sign-in: %v", err)
		}
		if gotAudience != "client-id" {
			t.Errorf("audience = %q", gotAudience)
		}
		if first.User.AuthProvider != "google" || first.User.Email != "grace@example.com" {
			t.Errorf("unexpected user %+v", first.User)
		}

		second, err := svc.GoogleSignIn(context.Background(), "tok")
		if err != nil {
			t.Fatalf("second sign-in: %v", err)
		}
		if second.User.ID != first.User.ID || len(users.users) != 1 {
			t.Fatal("second Google sign-in should reuse the account")
		}
	})

	t.Run("links existing email account", func(t *testing.T) {
		svc, users, _, _ := newTestAuth("client-id")
		signup, _ := svc.SignUp(context.Background(), models.SignUpRequest{FullName: "Grace", Email: "grace@example.com", Password: "secret123"})
		svc.WithGoogleVerifier(func(context.Context, string, string) (*idtoken.Payload, error) {
			return googlePayload("g-2", "grace@example.com"), nil
		})

		tokens, err := svc.GoogleSignIn(context.Background(), "tok")
		if err != nil {
			t.Fatalf("google sign-in: %v", err)
		}
		if tokens.User.ID != signup.User.ID {
			t.Fatal("expected the existing account")
		}
		linked, _ := users.GetByGoogleID(context.Background(), "g-2")
		if linked == nil || linked.ID != signup.User.ID {
			t.Fatal("google id was not linked")
		}
	})
}
