package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
)

var testSecret = []byte("test-signing-secret")

func TestTokenRoundTrip(t *testing.T) {
	tok, err := IssueToken(testSecret, "user-123", RoleProfessional, time.Hour)
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}

	claims, err := ParseToken(testSecret, tok)
	if err != nil {
		t.Fatalf("parse token: %v", err)
	}
	if claims.Subject != "user-123" {
		t.Errorf("expected subject user-123, got %s", claims.Subject)
	}
	if claims.Role != RoleProfessional {
		t.Errorf("expected role professional, got %s", claims.Role)
	}
}

func TestParseToken_WrongSecret(t *testing.T) {
	tok, err := IssueToken(testSecret, "user-123", RolePatient, time.Hour)
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}
	if _, err := ParseToken([]byte("another-secret"), tok); err == nil {
		t.Error("expected error for wrong secret")
	}
}

func TestParseToken_Expired(t *testing.T) {
	tok, err := IssueToken(testSecret, "user-123", RolePatient, -time.Minute)
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}
	if _, err := ParseToken(testSecret, tok); err == nil {
		t.Error("expected error for expired token")
	}
}

func TestJWTMiddleware_SetsContext(t *testing.T) {
	tok, _ := IssueToken(testSecret, "user-9", RoleAdmin, time.Hour)

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+tok)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	var gotID, gotRole string
	mw := JWTMiddleware(testSecret, nil)
	handler := mw(func(c echo.Context) error {
		gotID = UserIDFromContext(c.Request().Context())
		gotRole = RoleFromContext(c.Request().Context())
		return c.NoContent(http.StatusOK)
	})

	if err := handler(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gotID != "user-9" {
		t.Errorf("expected user-9 on context, got %q", gotID)
	}
	if gotRole != RoleAdmin {
		t.Errorf("expected admin role on context, got %q", gotRole)
	}
}

func TestJWTMiddleware_MissingHeader(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	mw := JWTMiddleware(testSecret, nil)
	handler := mw(func(c echo.Context) error { return nil })

	err := handler(c)
	httpErr, ok := err.(*echo.HTTPError)
	if !ok || httpErr.Code != http.StatusUnauthorized {
		t.Errorf("expected 401, got %v", err)
	}
}

func TestJWTMiddleware_Skipper(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	mw := JWTMiddleware(testSecret, PublicPathSkipper("/api/v1/auth/login"))
	called := false
	handler := mw(func(c echo.Context) error {
		called = true
		return c.NoContent(http.StatusOK)
	})

	if err := handler(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !called {
		t.Error("expected skipper to bypass auth for public path")
	}
}

func TestRequireRole(t *testing.T) {
	e := echo.New()

	run := func(role string, required ...string) error {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		ctx := context.WithValue(req.Context(), UserRoleKey, role)
		req = req.WithContext(ctx)
		rec := httptest.NewRecorder()
		c := e.NewContext(req, rec)

		mw := RequireRole(required...)
		return mw(func(c echo.Context) error { return c.NoContent(http.StatusOK) })(c)
	}

	if err := run(RoleProfessional, RoleProfessional); err != nil {
		t.Errorf("professional should pass professional check: %v", err)
	}
	if err := run(RoleAdmin, RoleProfessional); err != nil {
		t.Errorf("admin should pass every check: %v", err)
	}
	err := run(RolePatient, RoleProfessional)
	httpErr, ok := err.(*echo.HTTPError)
	if !ok || httpErr.Code != http.StatusForbidden {
		t.Errorf("patient should be forbidden, got %v", err)
	}
}

func TestPasswordHashing(t *testing.T) {
	hash, err := HashPassword("s3nh4-forte")
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}
	if hash == "s3nh4-forte" {
		t.Error("hash must not equal plaintext")
	}
	if !CheckPassword("s3nh4-forte", hash) {
		t.Error("expected matching password to verify")
	}
	if CheckPassword("wrong", hash) {
		t.Error("expected wrong password to fail")
	}
}
