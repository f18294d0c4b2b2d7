package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
)

const testSecret = "test-secret"

func newProtectedApp() *fiber.App {
	app := fiber.New()
	app.Use(AuthRequired(testSecret))
	app.All("/", func(c *fiber.Ctx) error {
		uid, _ := c.Locals("userID").(uint)
		if uid == 0 {
			return c.SendStatus(fiber.StatusInternalServerError)
		}
		return c.SendStatus(fiber.StatusNoContent)
	})
	return app
}

func TestAuthRequired(t *testing.T) {
	good, err := IssueToken(testSecret, 7, "alice@example.com", "Alice", time.Hour)
	if err != nil {
		t.Fatalf("IssueToken: %v", err)
	}
	expired, _ := IssueToken(testSecret, 7, "alice@example.com", "Alice", -time.Hour)
	forged, _ := IssueToken("other-secret", 7, "alice@example.com", "Alice", time.Hour)

	tests := []struct {
		name   string
		build  func() *http.Request
		status int
	}{
		{"Bearer token", func() *http.Request {
			r := httptest.NewRequest(http.MethodGet, "/", nil)
			r.Header.Set("Authorization", "Bearer "+good)
			return r
		}, fiber.StatusNoContent},
		{"Cookie token", func() *http.Request {
			r := httptest.NewRequest(http.MethodGet, "/", nil)
			r.AddCookie(&http.Cookie{Name: "om_access", Value: good})
			return r
		}, fiber.StatusNoContent},
		{"Query token on websocket upgrade", func() *http.Request {
			r := httptest.NewRequest(http.MethodGet, "/?token="+good, nil)
			r.Header.Set("Upgrade", "websocket")
			return r
		}, fiber.StatusNoContent},
		{"Query token on plain request", func() *http.Request {
			return httptest.NewRequest(http.MethodGet, "/?token="+good, nil)
		}, fiber.StatusUnauthorized},
		{"Malformed header", func() *http.Request {
			r := httptest.NewRequest(http.MethodGet, "/", nil)
			r.Header.Set("Authorization", "Token "+good)
			return r
		}, fiber.StatusUnauthorized},
		{"Expired token", func() *http.Request {
			r := httptest.NewRequest(http.MethodGet, "/", nil)
			r.Header.Set("Authorization", "Bearer "+expired)
			return r
		}, fiber.StatusUnauthorized},
		{"Wrong secret", func() *http.Request {
			r := httptest.NewRequest(http.MethodGet, "/", nil)
			r.Header.Set("Authorization", "Bearer "+forged)
			return r
		}, fiber.StatusUnauthorized},
		{"No credentials", func() *http.Request {
			return httptest.NewRequest(http.MethodGet, "/", nil)
		}, fiber.StatusUnauthorized},
	}

	app := newProtectedApp()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := app.Test(tt.build())
			if err != nil {
				t.Fatalf("app.Test: %v", err)
			}
			if resp.StatusCode != tt.status {
				t.Errorf("status = %d, want %d", resp.StatusCode, tt.status)
			}
		})
	}
}

func TestCSRFRequired(t *testing.T) {
	allowed := []string{"https://chat.example"}
	app := fiber.New()
	app.Use(CSRFRequired("token", allowed))
	app.Post("/", func(c *fiber.Ctx) error { return c.SendStatus(fiber.StatusNoContent) })

	tests := []struct {
		name   string
		origin string
		cookie string
		header string
		bearer bool
		status int
	}{
		{"No origin", "", "", "", false, fiber.StatusNoContent},
		{"Matching token", "https://chat.example", "abc", "abc", false, fiber.StatusNoContent},
		{"Missing token", "https://chat.example", "", "", false, fiber.StatusForbidden},
		{"Mismatched token", "https://chat.example", "abc", "abd", false, fiber.StatusForbidden},
		{"Foreign origin", "https://evil.example", "abc", "abc", false, fiber.StatusForbidden},
		{"Bearer client", "https://chat.example", "", "", true, fiber.StatusNoContent},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodPost, "/", nil)
			if tt.origin != "" {
				r.Header.Set("Origin", tt.origin)
			}
			if tt.cookie != "" {
				r.AddCookie(&http.Cookie{Name: "om_csrf", Value: tt.cookie})
			}
			if tt.header != "" {
				r.Header.Set("X-OM-CSRF", tt.header)
			}
			if tt.bearer {
				r.Header.Set("Authorization", "Bearer x")
			}
			resp, err := app.Test(r)
			if err != nil {
				t.Fatalf("app.Test: %v", err)
			}
			if resp.StatusCode != tt.status {
				t.Errorf("status = %d, want %d", resp.StatusCode, tt.status)
			}
		})
	}
}
