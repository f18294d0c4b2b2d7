package middleware

import (
	"crypto/subtle"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/noteduco342/OMChat-backend/internal/httpx"
)

// CSRFRequired protects cookie-authenticated browser requests.
// Modes:
// - token: require X-OM-CSRF header to match om_csrf cookie (default)
// - origin: only enforce Origin allow-list
// - off: disable checks
func CSRFRequired(mode string, allowedOrigins []string) fiber.Handler {
	mode = strings.ToLower(strings.TrimSpace(mode))
	if mode == "" {
		mode = "token"
	}

	return func(c *fiber.Ctx) error {
		if mode == "off" {
			return c.Next()
		}

		switch c.Method() {
		case fiber.MethodGet, fiber.MethodHead, fiber.MethodOptions:
			return c.Next()
		}

		// Bearer-authenticated clients are not exposed to CSRF.
		if strings.HasPrefix(c.Get("Authorization"), "Bearer ") {
			return c.Next()
		}

		origin := strings.TrimSpace(c.Get("Origin"))
		if origin == "" {
			// Non-browser clients typically have no Origin; allow.
			return c.Next()
		}

		if len(allowedOrigins) > 0 && !originAllowed(origin, allowedOrigins) {
			return httpx.Forbidden(c, "forbidden_origin", "Origin not allowed")
		}

		if mode == "origin" {
			return c.Next()
		}

		csrfCookie := c.Cookies("om_csrf")
		csrfHeader := c.Get("X-OM-CSRF")
		if csrfCookie == "" || csrfHeader == "" {
			return httpx.Forbidden(c, "csrf_required", "Missing CSRF token")
		}

		if subtle.ConstantTimeCompare([]byte(csrfCookie), []byte(csrfHeader)) != 1 {
			return httpx.Forbidden(c, "csrf_invalid", "Invalid CSRF token")
		}

		return c.Next()
	}
}
