package authapi_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	authapi "github.com/goliatone/go-auth-api"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sentMail struct {
	recipient string
	subject   string
	body      string
}

type testAPI struct {
	app  *fiber.App
	repo authapi.RepositoryManager
	mail []sentMail
	fail bool
}

func newTestAPI(t *testing.T) *testAPI {
	t.Helper()

	db := setupTestDB(t)
	repo := authapi.NewRepositoryManager(db)

	api := &testAPI{repo: repo}

	provider := authapi.NewUserProvider(repo.Users())
	auther := authapi.NewAuthenticator(provider, newTestConfig()).
		WithRevocationStore(repo.TokenRevocations()).
		WithActivitySink(authapi.NewAuditTrailSink(repo.AuditLogs(), nil))

	mailer := authapi.MailerFunc(func(_ context.Context, recipient, subject, body string) error {
		if api.fail {
			return fmt.Errorf("smtp unreachable")
		}
		api.mail = append(api.mail, sentMail{recipient: recipient, subject: subject, body: body})
		return nil
	})

	app := fiber.New()
	authapi.RegisterAPIRoutes(app,
		authapi.WithControllerRepo(repo),
		authapi.WithControllerAuther(auther),
		authapi.WithControllerMailer(mailer),
	)

	api.app = app
	return api
}

func (api *testAPI) request(t *testing.T, method, path, token string, payload any) (int, authapi.APIResponse) {
	t.Helper()

	var body io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		require.NoError(t, err)
		body = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, path, body)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	res, err := api.app.Test(req, -1)
	require.NoError(t, err)
	defer res.Body.Close()

	envelope := authapi.APIResponse{}
	require.NoError(t, json.NewDecoder(res.Body).Decode(&envelope))

	return res.StatusCode, envelope
}

func (api *testAPI) register(t *testing.T, name, email, password string) (string, map[string]any) {
	t.Helper()

	code, envelope := api.request(t, http.MethodPost, "/register", "", fiber.Map{
		"name":     name,
		"email":    email,
		"password": password,
	})
	require.Equal(t, http.StatusOK, code)
	require.True(t, envelope.Status)

	data, ok := envelope.Data.(map[string]any)
	require.True(t, ok)
	token, _ := data["token"].(string)
	require.NotEmpty(t, token)

	return token, data
}

func TestAPI_Register(t *testing.T) {
	api := newTestAPI(t)

	t.Run("registers, logs in, and records the audit entry", func(t *testing.T) {
		code, envelope := api.request(t, http.MethodPost, "/register", "", fiber.Map{
			"name":     "Ann",
			"email":    "ann@x.com",
			"password": "secret1",
		})

		assert.Equal(t, http.StatusOK, code)
		assert.True(t, envelope.Status)
		assert.Equal(t, "User Registered Successfully", envelope.Message)

		data, ok := envelope.Data.(map[string]any)
		require.True(t, ok)
		assert.Equal(t, "ann@x.com", data["email"])
		assert.NotEmpty(t, data["token"])

		user, err := api.repo.Users().GetByIdentifier(context.Background(), "ann@x.com")
		require.NoError(t, err)

		logs, err := api.repo.AuditLogs().ListByUser(context.Background(), user.ID)
		require.NoError(t, err)
		require.Len(t, logs, 1)
		assert.Equal(t, authapi.AuditUserLoggedIn, logs[0].Subject)
	})

	t.Run("duplicate email is a conflict", func(t *testing.T) {
		code, envelope := api.request(t, http.MethodPost, "/register", "", fiber.Map{
			"name":     "Ann Again",
			"email":    "ann@x.com",
			"password": "secret1",
		})

		assert.Equal(t, http.StatusConflict, code)
		assert.False(t, envelope.Status)
	})

	t.Run("missing fields are rejected", func(t *testing.T) {
		code, envelope := api.request(t, http.MethodPost, "/register", "", fiber.Map{
			"email": "bad",
		})

		assert.Equal(t, http.StatusBadRequest, code)
		assert.False(t, envelope.Status)
	})
}

func TestAPI_Login(t *testing.T) {
	api := newTestAPI(t)
	api.register(t, "Ann", "ann@x.com", "secret1")

	t.Run("valid credentials return a token", func(t *testing.T) {
		code, envelope := api.request(t, http.MethodPost, "/login", "", fiber.Map{
			"email":    "ann@x.com",
			"password": "secret1",
		})

		assert.Equal(t, http.StatusOK, code)
		assert.True(t, envelope.Status)
		assert.Equal(t, "Login Successfully", envelope.Message)

		data, ok := envelope.Data.(map[string]any)
		require.True(t, ok)
		assert.NotEmpty(t, data["token"])
	})

	t.Run("wrong password is unauthorized", func(t *testing.T) {
		code, envelope := api.request(t, http.MethodPost, "/login", "", fiber.Map{
			"email":    "ann@x.com",
			"password": "wrong",
		})

		assert.Equal(t, http.StatusUnauthorized, code)
		assert.False(t, envelope.Status)
		assert.Equal(t, "Login credentials are invalid", envelope.Message)
	})

	t.Run("unknown email is unauthorized", func(t *testing.T) {
		code, envelope := api.request(t, http.MethodPost, "/login", "", fiber.Map{
			"email":    "nobody@x.com",
			"password": "secret1",
		})

		assert.Equal(t, http.StatusUnauthorized, code)
		assert.Equal(t, "Login credentials are invalid", envelope.Message)
	})
}

func TestAPI_LogoutAndProfile(t *testing.T) {
	api := newTestAPI(t)
	token, _ := api.register(t, "Ann", "ann@x.com", "secret1")

	t.Run("profile is readable while the token is live", func(t *testing.T) {
		code, envelope := api.request(t, http.MethodGet, "/user", token, nil)

		assert.Equal(t, http.StatusOK, code)
		assert.True(t, envelope.Status)
		assert.Equal(t, "Details Fetch Successfully", envelope.Message)

		data, ok := envelope.Data.(map[string]any)
		require.True(t, ok)
		assert.Equal(t, "ann@x.com", data["email"])
		// The hash never leaves the server.
		_, leaked := data["password_hash"]
		assert.False(t, leaked)
	})

	t.Run("logout invalidates the token", func(t *testing.T) {
		code, envelope := api.request(t, http.MethodPost, "/logout", token, nil)

		assert.Equal(t, http.StatusOK, code)
		assert.True(t, envelope.Status)
		assert.Equal(t, "User has been logged out", envelope.Message)

		code, envelope = api.request(t, http.MethodGet, "/user", token, nil)
		assert.Equal(t, http.StatusInternalServerError, code)
		assert.False(t, envelope.Status)
		assert.Equal(t, "Failed to fetch the user details", envelope.Message)
	})

	t.Run("logout without a token fails", func(t *testing.T) {
		code, envelope := api.request(t, http.MethodPost, "/logout", "", nil)

		assert.Equal(t, http.StatusBadRequest, code)
		assert.Equal(t, "Sorry user cannot be logged out", envelope.Message)
	})
}

func TestAPI_UpdateProfile(t *testing.T) {
	api := newTestAPI(t)
	token, _ := api.register(t, "Ann", "ann@x.com", "secret1")

	t.Run("updates only the provided fields", func(t *testing.T) {
		code, envelope := api.request(t, http.MethodPost, "/user", token, fiber.Map{
			"name": "Ann Updated",
		})

		assert.Equal(t, http.StatusOK, code)
		assert.True(t, envelope.Status)
		assert.Equal(t, "User updated successfully", envelope.Message)

		user, err := api.repo.Users().GetByIdentifier(context.Background(), "ann@x.com")
		require.NoError(t, err)
		assert.Equal(t, "Ann Updated", user.Name)
		assert.Equal(t, "ann@x.com", user.Email)
	})

	t.Run("rejects a request without a token", func(t *testing.T) {
		code, envelope := api.request(t, http.MethodPost, "/user", "", fiber.Map{
			"name": "Nope",
		})

		assert.Equal(t, http.StatusBadRequest, code)
		assert.False(t, envelope.Status)
	})
}

func TestAPI_ChangePassword(t *testing.T) {
	api := newTestAPI(t)
	token, _ := api.register(t, "Ann", "ann@x.com", "secret1")

	t.Run("wrong old password leaves the stored hash alone", func(t *testing.T) {
		code, envelope := api.request(t, http.MethodPost, "/password/change", token, fiber.Map{
			"old_password": "wrong",
			"password":     "newpassword",
		})

		assert.Equal(t, http.StatusBadRequest, code)
		assert.False(t, envelope.Status)
		assert.Equal(t, "Old Password Not Matched", envelope.Message)

		user, err := api.repo.Users().GetByIdentifier(context.Background(), "ann@x.com")
		require.NoError(t, err)
		assert.NoError(t, authapi.ComparePasswordAndHash("secret1", user.PasswordHash))
	})

	t.Run("rejects a request without a token", func(t *testing.T) {
		code, envelope := api.request(t, http.MethodPost, "/password/change", "", fiber.Map{
			"old_password": "secret1",
			"password":     "newpassword",
		})

		assert.Equal(t, http.StatusUnauthorized, code)
		assert.Equal(t, "Failed to update the password", envelope.Message)
	})

	t.Run("correct old password rotates the hash", func(t *testing.T) {
		code, envelope := api.request(t, http.MethodPost, "/password/change", token, fiber.Map{
			"old_password": "secret1",
			"password":     "newpassword",
		})

		assert.Equal(t, http.StatusOK, code)
		assert.True(t, envelope.Status)
		assert.Equal(t, "Password Updated Successfully", envelope.Message)

		user, err := api.repo.Users().GetByIdentifier(context.Background(), "ann@x.com")
		require.NoError(t, err)
		assert.NoError(t, authapi.ComparePasswordAndHash("newpassword", user.PasswordHash))
	})
}

func TestAPI_ForgotPassword(t *testing.T) {
	api := newTestAPI(t)
	api.register(t, "Ann", "ann@x.com", "secret1")

	t.Run("unknown email is not found and mutates nothing", func(t *testing.T) {
		code, envelope := api.request(t, http.MethodPost, "/password/forgot", "", fiber.Map{
			"email": "nobody@x.com",
		})

		assert.Equal(t, http.StatusNotFound, code)
		assert.False(t, envelope.Status)
		assert.Equal(t, "User Not Found", envelope.Message)
		assert.Empty(t, api.mail)
	})

	t.Run("known email resets the password and mails the replacement", func(t *testing.T) {
		code, envelope := api.request(t, http.MethodPost, "/password/forgot", "", fiber.Map{
			"email": "ann@x.com",
		})

		assert.Equal(t, http.StatusOK, code)
		assert.True(t, envelope.Status)
		assert.Equal(t, "Mail Sent Successfully", envelope.Message)

		require.Len(t, api.mail, 1)
		assert.Equal(t, "ann@x.com", api.mail[0].recipient)

		user, err := api.repo.Users().GetByIdentifier(context.Background(), "ann@x.com")
		require.NoError(t, err)
		assert.True(t, user.PasswordResetPending)
		// The old password no longer works.
		assert.Error(t, authapi.ComparePasswordAndHash("secret1", user.PasswordHash))
	})

	t.Run("delivery failure is surfaced", func(t *testing.T) {
		api.fail = true
		defer func() { api.fail = false }()

		code, envelope := api.request(t, http.MethodPost, "/password/forgot", "", fiber.Map{
			"email": "ann@x.com",
		})

		assert.Equal(t, http.StatusUnauthorized, code)
		assert.Equal(t, "Failed to send the mail", envelope.Message)
	})
}

func TestAPI_ListUserLogs(t *testing.T) {
	api := newTestAPI(t)
	token, _ := api.register(t, "Ann", "ann@x.com", "secret1")

	// A second session adds another login entry.
	code, _ := api.request(t, http.MethodPost, "/login", "", fiber.Map{
		"email":    "ann@x.com",
		"password": "secret1",
	})
	require.Equal(t, http.StatusOK, code)

	t.Run("returns the user's entries", func(t *testing.T) {
		code, envelope := api.request(t, http.MethodGet, "/logs", token, nil)

		assert.Equal(t, http.StatusOK, code)
		assert.True(t, envelope.Status)
		assert.Equal(t, "User logs fetched successfully", envelope.Message)

		entries, ok := envelope.Data.([]any)
		require.True(t, ok)
		assert.Len(t, entries, 2)
	})

	t.Run("requires a valid token", func(t *testing.T) {
		code, envelope := api.request(t, http.MethodGet, "/logs", "", nil)

		assert.Equal(t, http.StatusUnauthorized, code)
		assert.False(t, envelope.Status)
		assert.Equal(t, "Failed to fetch the user logs", envelope.Message)
	})
}
