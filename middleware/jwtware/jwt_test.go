package jwtware_test

import (
	"context"
	"errors"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/goliatone/go-tasks/middleware/jwtware"
)

type stubClaims struct {
	subject string
	role    string
	epoch   int64
}

func (c stubClaims) Subject() string     { return c.subject }
func (c stubClaims) UserID() string      { return c.subject }
func (c stubClaims) Role() string        { return c.role }
func (c stubClaims) SessionEpoch() int64 { return c.epoch }

func acceptToken(claims jwtware.AuthClaims) jwtware.TokenValidatorFunc {
	return func(token string) (jwtware.AuthClaims, error) {
		if token == "good-token" {
			return claims, nil
		}
		return nil, errors.New("invalid authentication token")
	}
}

func newProtectedApp(cfg jwtware.Config) *fiber.App {
	app := fiber.New()
	app.Get("/protected", jwtware.New(cfg), func(c *fiber.Ctx) error {
		claims := c.Locals("user").(jwtware.AuthClaims)
		return c.JSON(fiber.Map{"subject": claims.Subject()})
	})
	return app
}

func TestMiddlewarePassesValidToken(t *testing.T) {
	claims := stubClaims{subject: "user-1", role: "owner"}
	app := newProtectedApp(jwtware.Config{TokenValidator: acceptToken(claims)})

	req := httptest.NewRequest(fiber.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer good-token")

	res, err := app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, res.StatusCode)
}

func TestMiddlewareRejectsMissingHeader(t *testing.T) {
	app := newProtectedApp(jwtware.Config{TokenValidator: acceptToken(stubClaims{})})

	req := httptest.NewRequest(fiber.MethodGet, "/protected", nil)
	res, err := app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusUnauthorized, res.StatusCode)
}

func TestMiddlewareRejectsWrongScheme(t *testing.T) {
	app := newProtectedApp(jwtware.Config{TokenValidator: acceptToken(stubClaims{})})

	req := httptest.NewRequest(fiber.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Basic good-token")

	res, err := app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusUnauthorized, res.StatusCode)
}

func TestMiddlewareRejectsBadToken(t *testing.T) {
	app := newProtectedApp(jwtware.Config{TokenValidator: acceptToken(stubClaims{})})

	req := httptest.NewRequest(fiber.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer forged-token")

	res, err := app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusUnauthorized, res.StatusCode)
}

func TestMiddlewareFilterSkipsCheck(t *testing.T) {
	app := fiber.New()
	app.Get("/open", jwtware.New(jwtware.Config{
		TokenValidator: acceptToken(stubClaims{}),
		Filter:         func(c *fiber.Ctx) bool { return true },
	}), func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusOK)
	})

	req := httptest.NewRequest(fiber.MethodGet, "/open", nil)
	res, err := app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, res.StatusCode)
}

func TestMiddlewareQueryExtractor(t *testing.T) {
	claims := stubClaims{subject: "user-2"}
	app := newProtectedApp(jwtware.Config{
		TokenValidator: acceptToken(claims),
		TokenLookup:    "query:auth_token",
	})

	req := httptest.NewRequest(fiber.MethodGet, "/protected?auth_token=good-token", nil)
	res, err := app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, res.StatusCode)
}

func TestCheckEpoch(t *testing.T) {
	current := int64(5)
	lookup := func(ctx context.Context, id string) (int64, error) {
		return current, nil
	}

	checker := jwtware.CheckEpoch(lookup)

	tests := []struct {
		name    string
		epoch   int64
		revoked bool
	}{
		{"current epoch passes", 5, false},
		{"newer epoch passes", 6, false},
		{"stale epoch is revoked", 4, true},
		{"ancient epoch is revoked", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			app := newProtectedApp(jwtware.Config{
				TokenValidator: acceptToken(stubClaims{subject: "user-3", epoch: tt.epoch}),
				EpochChecker:   checker,
			})

			req := httptest.NewRequest(fiber.MethodGet, "/protected", nil)
			req.Header.Set("Authorization", "Bearer good-token")

			res, err := app.Test(req, -1)
			require.NoError(t, err)

			if tt.revoked {
				assert.Equal(t, fiber.StatusUnauthorized, res.StatusCode)
			} else {
				assert.Equal(t, fiber.StatusOK, res.StatusCode)
			}
		})
	}
}

func TestCheckEpochPropagatesLookupError(t *testing.T) {
	checker := jwtware.CheckEpoch(func(ctx context.Context, id string) (int64, error) {
		return 0, errors.New("store down")
	})

	app := newProtectedApp(jwtware.Config{
		TokenValidator: acceptToken(stubClaims{subject: "user-4"}),
		EpochChecker:   checker,
	})

	req := httptest.NewRequest(fiber.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer good-token")

	res, err := app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusUnauthorized, res.StatusCode)
}

func TestGetExtractorsParsesLookupString(t *testing.T) {
	extractors := jwtware.GetExtractors("header:Authorization,query:token,cookie:jwt")
	require.Len(t, extractors, 3)

	extractors = jwtware.GetExtractors("header:Authorization")
	require.Len(t, extractors, 1)
}
