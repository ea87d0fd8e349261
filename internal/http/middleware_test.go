package http

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/smartcampus/bedelia/internal/application"
)

type fakeTokenValidator struct {
	principal application.Principal
	err       error
}

func (f fakeTokenValidator) ValidateToken(ctx context.Context, token string) (application.Principal, error) {
	return f.principal, f.err
}

func TestRequirePrincipal(t *testing.T) {
	t.Parallel()

	t.Run("rejects missing credentials", func(t *testing.T) {
		t.Parallel()

		handler := RequirePrincipal(fakeTokenValidator{}, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			t.Fatal("next handler must not run without a token")
		}))

		req := httptest.NewRequest(http.MethodGet, "/aulas", nil)
		recorder := httptest.NewRecorder()
		handler.ServeHTTP(recorder, req)

		if recorder.Code != http.StatusUnauthorized {
			t.Fatalf("status = %d, want 401", recorder.Code)
		}
	})

	t.Run("rejects invalid tokens", func(t *testing.T) {
		t.Parallel()

		validator := fakeTokenValidator{err: application.ErrUnauthorized}
		handler := RequirePrincipal(validator, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			t.Fatal("next handler must not run with an invalid token")
		}))

		req := httptest.NewRequest(http.MethodGet, "/aulas", nil)
		req.Header.Set("Authorization", "Bearer expired")
		recorder := httptest.NewRecorder()
		handler.ServeHTTP(recorder, req)

		if recorder.Code != http.StatusUnauthorized {
			t.Fatalf("status = %d, want 401", recorder.Code)
		}
	})

	t.Run("validator failure maps to 500", func(t *testing.T) {
		t.Parallel()

		validator := fakeTokenValidator{err: errors.New("directory down")}
		handler := RequirePrincipal(validator, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			t.Fatal("next handler must not run when validation fails")
		}))

		req := httptest.NewRequest(http.MethodGet, "/aulas", nil)
		req.Header.Set("Authorization", "Bearer token")
		recorder := httptest.NewRecorder()
		handler.ServeHTTP(recorder, req)

		if recorder.Code != http.StatusInternalServerError {
			t.Fatalf("status = %d, want 500", recorder.Code)
		}
	})

	t.Run("injects the principal", func(t *testing.T) {
		t.Parallel()

		want := application.Principal{UserID: "prof-1", IsAdmin: false}
		validator := fakeTokenValidator{principal: want}

		var got application.Principal
		handler := RequirePrincipal(validator, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			got, _ = PrincipalFromContext(r.Context())
			w.WriteHeader(http.StatusOK)
		}))

		req := httptest.NewRequest(http.MethodGet, "/aulas", nil)
		req.Header.Set("Authorization", "Bearer valid")
		recorder := httptest.NewRecorder()
		handler.ServeHTTP(recorder, req)

		if recorder.Code != http.StatusOK {
			t.Fatalf("status = %d, want 200", recorder.Code)
		}
		if got != want {
			t.Fatalf("principal = %+v, want %+v", got, want)
		}
	})

	t.Run("reads the session cookie", func(t *testing.T) {
		t.Parallel()

		validator := fakeTokenValidator{principal: application.Principal{UserID: "prof-1"}}
		handler := RequirePrincipal(validator, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
		}))

		req := httptest.NewRequest(http.MethodGet, "/aulas", nil)
		req.AddCookie(&http.Cookie{Name: "token_sesion", Value: "valid"})
		recorder := httptest.NewRecorder()
		handler.ServeHTTP(recorder, req)

		if recorder.Code != http.StatusOK {
			t.Fatalf("status = %d, want 200", recorder.Code)
		}
	})
}

func TestExtractTokenFromRequest(t *testing.T) {
	t.Parallel()

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer abc123")
	if got := extractTokenFromRequest(req); got != "abc123" {
		t.Fatalf("token = %q, want abc123", got)
	}

	bare := httptest.NewRequest(http.MethodGet, "/", nil)
	bare.Header.Set("Authorization", "abc123")
	if got := extractTokenFromRequest(bare); got != "abc123" {
		t.Fatalf("token = %q, want abc123", got)
	}

	if got := extractTokenFromRequest(httptest.NewRequest(http.MethodGet, "/", nil)); got != "" {
		t.Fatalf("token = %q, want empty", got)
	}
}
