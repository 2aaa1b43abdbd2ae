package serverutils

import (
	"encoding/json"
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"ai-chat-be/internal/pkg/apperror"
	"ai-chat-be/internal/pkg/logger"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenRoundTrip(t *testing.T) {
	userId := uuid.New()

	token, err := IssueToken(userId, "secret", time.Hour)
	require.NoError(t, err)

	parsed, err := ParseToken(token, "secret")
	require.NoError(t, err)
	assert.Equal(t, userId, parsed)

	_, err = ParseToken(token, "other-secret")
	assert.Error(t, err)
}

func TestParseTokenRejectsExpired(t *testing.T) {
	token, err := IssueToken(uuid.New(), "secret", -time.Minute)
	require.NoError(t, err)

	_, err = ParseToken(token, "secret")
	assert.Error(t, err)
}

type signupLike struct {
	MobileNumber string `validate:"required,numeric,len=10"`
	Password     string `validate:"omitempty,min=6"`
}

func TestValidateRequest(t *testing.T) {
	assert.NoError(t, ValidateRequest(signupLike{MobileNumber: "0812345678"}))

	err := ValidateRequest(signupLike{MobileNumber: "12345", Password: "abc"})
	require.Error(t, err)
	assert.Equal(t, 400, apperror.CodeOf(err))
	assert.Contains(t, err.Error(), "MobileNumber must be 10 characters")
	assert.Contains(t, err.Error(), "Password must be at least 6 characters")
}

func newTestApp() *fiber.App {
	app := fiber.New(fiber.Config{ErrorHandler: ErrorHandler(logger.NewNopLogger())})
	app.Get("/missing", func(ctx *fiber.Ctx) error {
		return apperror.NotFound("Chatroom not found")
	})
	app.Get("/boom", func(ctx *fiber.Ctx) error {
		return io.ErrUnexpectedEOF
	})
	app.Get("/me", JwtMiddleware("secret"), func(ctx *fiber.Ctx) error {
		id, err := UserID(ctx)
		if err != nil {
			return err
		}
		return ctx.JSON(SuccessResponse("ok", id.String()))
	})
	return app
}

func decode(t *testing.T, body io.Reader) BaseResponse[any] {
	t.Helper()
	var out BaseResponse[any]
	require.NoError(t, json.NewDecoder(body).Decode(&out))
	return out
}

func TestErrorHandlerEnvelope(t *testing.T) {
	app := newTestApp()

	resp, err := app.Test(httptest.NewRequest("GET", "/missing", nil))
	require.NoError(t, err)
	assert.Equal(t, 404, resp.StatusCode)
	body := decode(t, resp.Body)
	assert.False(t, body.Success)
	assert.Equal(t, "Chatroom not found", body.Message)

	resp, err = app.Test(httptest.NewRequest("GET", "/boom", nil))
	require.NoError(t, err)
	assert.Equal(t, 500, resp.StatusCode)
	assert.Equal(t, "Internal server error", decode(t, resp.Body).Message)
}

func TestJwtMiddleware(t *testing.T) {
	app := newTestApp()

	resp, err := app.Test(httptest.NewRequest("GET", "/me", nil))
	require.NoError(t, err)
	assert.Equal(t, 401, resp.StatusCode)

	userId := uuid.New()
	token, err := IssueToken(userId, "secret", time.Hour)
	require.NoError(t, err)

	req := httptest.NewRequest("GET", "/me", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err = app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, 200, resp.StatusCode)
	assert.Equal(t, userId.String(), decode(t, resp.Body).Data)
}
