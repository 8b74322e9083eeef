package authapi

import (
	"context"
	"fmt"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	"github.com/gofiber/fiber/v2"
	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-print"
	"github.com/goliatone/go-repository-bun"
	"github.com/nyaruka/phonenumbers"
)

// APIResponse is the uniform envelope every endpoint returns.
type APIResponse struct {
	Status  bool   `json:"status"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

type APIControllerRoutes struct {
	Register       string
	Login          string
	Logout         string
	Profile        string
	PasswordChange string
	PasswordForgot string
	Logs           string
}

type APIController struct {
	Debug      bool
	UseHashids bool
	Logger     Logger
	Repo       RepositoryManager
	Auther     *Auther
	Mailer     Mailer
	Routes     *APIControllerRoutes
}

type APIControllerOption func(*APIController) *APIController

func NewAPIController(opts ...APIControllerOption) *APIController {
	c := &APIController{
		Logger: defLogger{},
		Routes: &APIControllerRoutes{
			Register:       "/register",
			Login:          "/login",
			Logout:         "/logout",
			Profile:        "/user",
			PasswordChange: "/password/change",
			PasswordForgot: "/password/forgot",
			Logs:           "/logs",
		},
	}

	for _, opt := range opts {
		c = opt(c)
	}

	if c.Repo == nil {
		panic("Missing RepositoryManager in api controller...")
	}

	if c.Auther == nil {
		panic("Missing Authenticator in api controller...")
	}

	if c.Mailer == nil {
		c.Mailer = NewLoggerMailer(c.Logger)
	}

	return c
}

func WithControllerLogger(l Logger) APIControllerOption {
	return func(c *APIController) *APIController {
		c.Logger = l
		return c
	}
}

func WithControllerRepo(repo RepositoryManager) APIControllerOption {
	return func(c *APIController) *APIController {
		c.Repo = repo
		return c
	}
}

func WithControllerAuther(auther *Auther) APIControllerOption {
	return func(c *APIController) *APIController {
		c.Auther = auther
		return c
	}
}

func WithControllerMailer(mailer Mailer) APIControllerOption {
	return func(c *APIController) *APIController {
		c.Mailer = mailer
		return c
	}
}

func WithControllerDebug(debug bool) APIControllerOption {
	return func(c *APIController) *APIController {
		c.Debug = debug
		return c
	}
}

// WithControllerHashids derives new user ids from the registration email
// instead of random uuids.
func WithControllerHashids(enabled bool) APIControllerOption {
	return func(c *APIController) *APIController {
		c.UseHashids = enabled
		return c
	}
}

// RegisterAPIRoutes mounts every endpoint on the given app.
func RegisterAPIRoutes(app *fiber.App, opts ...APIControllerOption) *APIController {
	controller := NewAPIController(opts...)

	app.Post(controller.Routes.Register, controller.Register)
	app.Post(controller.Routes.Login, controller.Login)
	app.Post(controller.Routes.Logout, controller.Logout)
	app.Get(controller.Routes.Profile, controller.GetProfile)
	app.Post(controller.Routes.Profile, controller.UpdateProfile)
	app.Post(controller.Routes.PasswordChange, controller.ChangePassword)
	app.Post(controller.Routes.PasswordForgot, controller.ForgotPassword)
	app.Get(controller.Routes.Logs, controller.ListUserLogs)

	return controller
}

// RegisterRequest payload
type RegisterRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Phone    string `json:"phone"`
	Password string `json:"password"`
}

// Validate will run validation rules
func (r RegisterRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Name, validation.Required, validation.Length(1, 200)),
		validation.Field(&r.Email, validation.Required, validation.Length(6, 100), is.Email),
		validation.Field(&r.Phone, validation.By(ValidatePhoneNumber)),
		validation.Field(&r.Password, validation.Required, validation.Length(6, 100)),
	)
}

func (a *APIController) Register(c *fiber.Ctx) error {
	payload := new(RegisterRequest)

	if err := c.BodyParser(payload); err != nil {
		a.Logger.Error("register parse payload: %v", err)
		return respond(c, fiber.StatusBadRequest, false, "Failed", nil)
	}

	if err := payload.Validate(); err != nil {
		a.Logger.Error("register validate payload: %v", err)
		return respond(c, fiber.StatusBadRequest, false, err.Error(), nil)
	}

	if a.Debug {
		fmt.Println("======= AUTH REGISTER ======")
		fmt.Println(print.MaybePrettyJSON(payload))
		fmt.Println("============================")
	}

	ctx := requestContext(c)

	var user *User
	req := RegisterUserMessage{
		Name:      payload.Name,
		Email:     payload.Email,
		Phone:     payload.Phone,
		Password:  payload.Password,
		UseHashid: a.UseHashids,
		OnResponse: func(u *User) {
			user = u
		},
	}

	registerUser := NewRegisterUserHandler(a.Repo)
	if err := registerUser.Execute(ctx, req); err != nil {
		a.Logger.Error("register user error: %v", err)
		return respond(c, statusFromError(err), false, messageFromError(err, "Failed"), nil)
	}

	// Issue a token for the fresh identity so the client is logged in
	// right away, this also records the login audit entry.
	token, err := a.Auther.Login(ctx, payload.Email, payload.Password)
	if err != nil {
		a.Logger.Error("register login error: %v", err)
		return respond(c, fiber.StatusInternalServerError, false, "Could not create token", nil)
	}

	return respond(c, fiber.StatusOK, true, "User Registered Successfully", fiber.Map{
		"id":    user.ID,
		"email": user.Email,
		"token": token,
	})
}

// LoginRequest payload
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Validate will run validation rules
func (r LoginRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Email, validation.Required, is.Email),
		validation.Field(&r.Password, validation.Required),
	)
}

func (a *APIController) Login(c *fiber.Ctx) error {
	payload := new(LoginRequest)

	if err := c.BodyParser(payload); err != nil {
		a.Logger.Error("login parse payload: %v", err)
		return respond(c, fiber.StatusBadRequest, false, "Failed", nil)
	}

	if err := payload.Validate(); err != nil {
		a.Logger.Error("login validate payload: %v", err)
		return respond(c, fiber.StatusBadRequest, false, err.Error(), nil)
	}

	token, err := a.Auther.Login(requestContext(c), payload.Email, payload.Password)
	if err != nil {
		var richErr *goerrors.Error
		if goerrors.As(err, &richErr) && richErr.Category == goerrors.CategoryInternal {
			return respond(c, fiber.StatusInternalServerError, false, "Could not create token", nil)
		}
		return respond(c, fiber.StatusUnauthorized, false, "Login credentials are invalid", nil)
	}

	return respond(c, fiber.StatusOK, true, "Login Successfully", fiber.Map{
		"token": token,
	})
}

// AuthRequest carries a token in the body for clients that do not use the
// Authorization header.
type AuthRequest struct {
	Token string `json:"token"`
}

func (a *APIController) Logout(c *fiber.Ctx) error {
	token := tokenFromRequest(c)
	if token == "" {
		return respond(c, fiber.StatusBadRequest, false, "Sorry user cannot be logged out", nil)
	}

	if _, err := a.Auther.Logout(requestContext(c), token); err != nil {
		a.Logger.Error("logout error: %v", err)
		return respond(c, fiber.StatusInternalServerError, false, "Sorry user cannot be logged out", nil)
	}

	return respond(c, fiber.StatusOK, true, "User has been logged out", nil)
}

func (a *APIController) GetProfile(c *fiber.Ctx) error {
	user, err := a.userFromRequest(c)
	if err != nil {
		a.Logger.Error("get profile error: %v", err)
		return respond(c, fiber.StatusInternalServerError, false, "Failed to fetch the user details", nil)
	}

	return respond(c, fiber.StatusOK, true, "Details Fetch Successfully", user)
}

// UpdateUserRequest payload. Omitted fields keep their stored values.
type UpdateUserRequest struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Phone string `json:"phone"`
}

// Validate will run validation rules
func (r UpdateUserRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Name, validation.Length(1, 200)),
		validation.Field(&r.Email, validation.Length(6, 100), is.Email),
		validation.Field(&r.Phone, validation.By(ValidatePhoneNumber)),
	)
}

func (a *APIController) UpdateProfile(c *fiber.Ctx) error {
	user, err := a.userFromRequest(c)
	if err != nil {
		a.Logger.Error("update profile resolve error: %v", err)
		return respond(c, fiber.StatusBadRequest, false, "Failed", nil)
	}

	payload := new(UpdateUserRequest)
	if err := c.BodyParser(payload); err != nil {
		a.Logger.Error("update profile parse payload: %v", err)
		return respond(c, fiber.StatusBadRequest, false, "Failed", nil)
	}

	if err := payload.Validate(); err != nil {
		a.Logger.Error("update profile validate payload: %v", err)
		return respond(c, fiber.StatusBadRequest, false, err.Error(), nil)
	}

	var updated *User
	req := UpdateProfileMessage{
		UserID: user.ID,
		Name:   payload.Name,
		Email:  payload.Email,
		Phone:  payload.Phone,
		OnResponse: func(u *User) {
			updated = u
		},
	}

	updateProfile := NewUpdateProfileHandler(a.Repo)
	if err := updateProfile.Execute(requestContext(c), req); err != nil {
		a.Logger.Error("update profile error: %v", err)
		return respond(c, statusFromError(err), false, messageFromError(err, "Failed"), nil)
	}

	return respond(c, fiber.StatusOK, true, "User updated successfully", updated)
}

// ChangePasswordRequest payload
type ChangePasswordRequest struct {
	OldPassword string `json:"old_password"`
	Password    string `json:"password"`
}

// Validate will run validation rules
func (r ChangePasswordRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.OldPassword, validation.Required),
		validation.Field(&r.Password, validation.Required, validation.Length(6, 100)),
	)
}

func (a *APIController) ChangePassword(c *fiber.Ctx) error {
	user, err := a.userFromRequest(c)
	if err != nil {
		a.Logger.Error("change password resolve error: %v", err)
		return respond(c, fiber.StatusUnauthorized, false, "Failed to update the password", nil)
	}

	payload := new(ChangePasswordRequest)
	if err := c.BodyParser(payload); err != nil {
		a.Logger.Error("change password parse payload: %v", err)
		return respond(c, fiber.StatusBadRequest, false, "Failed", nil)
	}

	if err := payload.Validate(); err != nil {
		a.Logger.Error("change password validate payload: %v", err)
		return respond(c, fiber.StatusBadRequest, false, err.Error(), nil)
	}

	req := ChangePasswordMessage{
		UserID:      user.ID,
		OldPassword: payload.OldPassword,
		NewPassword: payload.Password,
	}

	changePassword := NewChangePasswordHandler(a.Repo)
	if err := changePassword.Execute(requestContext(c), req); err != nil {
		a.Logger.Error("change password error: %v", err)
		return respond(c, statusFromError(err), false, messageFromError(err, "Failed"), nil)
	}

	return respond(c, fiber.StatusOK, true, "Password Updated Successfully", nil)
}

// ForgotPasswordRequest payload
type ForgotPasswordRequest struct {
	Email string `json:"email"`
}

// Validate will run validation rules
func (r ForgotPasswordRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Email, validation.Required, is.Email),
	)
}

func (a *APIController) ForgotPassword(c *fiber.Ctx) error {
	payload := new(ForgotPasswordRequest)

	if err := c.BodyParser(payload); err != nil {
		a.Logger.Error("forgot password parse payload: %v", err)
		return respond(c, fiber.StatusBadRequest, false, "Failed", nil)
	}

	if err := payload.Validate(); err != nil {
		a.Logger.Error("forgot password validate payload: %v", err)
		return respond(c, fiber.StatusBadRequest, false, err.Error(), nil)
	}

	req := ForgotPasswordMessage{Email: payload.Email}

	forgotPassword := NewForgotPasswordHandler(a.Repo, a.Mailer).WithLogger(a.Logger)
	if err := forgotPassword.Execute(requestContext(c), req); err != nil {
		a.Logger.Error("forgot password error: %v", err)

		if repository.IsRecordNotFound(err) {
			return respond(c, fiber.StatusNotFound, false, "User Not Found", nil)
		}

		var richErr *goerrors.Error
		if goerrors.As(err, &richErr) && richErr.TextCode == TextCodeMailDelivery {
			return respond(c, fiber.StatusUnauthorized, false, "Failed to send the mail", nil)
		}

		return respond(c, fiber.StatusBadRequest, false, "Failed", nil)
	}

	return respond(c, fiber.StatusOK, true, "Mail Sent Successfully", nil)
}

func (a *APIController) ListUserLogs(c *fiber.Ctx) error {
	user, err := a.userFromRequest(c)
	if err != nil {
		a.Logger.Error("list logs resolve error: %v", err)
		return respond(c, fiber.StatusUnauthorized, false, "Failed to fetch the user logs", nil)
	}

	logs, err := a.Repo.AuditLogs().ListByUser(requestContext(c), user.ID)
	if err != nil {
		a.Logger.Error("list logs error: %v", err)
		return respond(c, statusFromError(err), false, messageFromError(err, "Failed to fetch the user logs"), nil)
	}

	return respond(c, fiber.StatusOK, true, "User logs fetched successfully", logs)
}

// userFromRequest resolves the bearer token to the full user record.
func (a *APIController) userFromRequest(c *fiber.Ctx) (*User, error) {
	token := tokenFromRequest(c)
	if token == "" {
		return nil, ErrTokenMalformed
	}

	session, err := a.Auther.SessionFromToken(requestContext(c), token)
	if err != nil {
		return nil, err
	}

	userID, err := session.GetUserUUID()
	if err != nil {
		return nil, ErrUnableToParseData
	}

	user, err := a.Repo.Users().GetByIdentifier(requestContext(c), userID.String())
	if err != nil {
		return nil, err
	}

	return user, nil
}

// requestContext stamps the caller address into the request context so the
// audit trail can record it.
func requestContext(c *fiber.Ctx) context.Context {
	return WithClientIP(c.UserContext(), c.IP())
}

// tokenFromRequest resolves the bearer token from the Authorization header,
// the token query parameter, or a JSON body, in that order.
func tokenFromRequest(c *fiber.Ctx) string {
	header := c.Get(fiber.HeaderAuthorization)
	if strings.HasPrefix(header, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
	}

	if token := c.Query("token"); token != "" {
		return token
	}

	payload := new(AuthRequest)
	if err := c.BodyParser(payload); err == nil && payload.Token != "" {
		return payload.Token
	}

	return ""
}

func respond(c *fiber.Ctx, code int, status bool, message string, data any) error {
	return c.Status(code).JSON(APIResponse{
		Status:  status,
		Message: message,
		Data:    data,
	})
}

// statusFromError maps the error taxonomy to HTTP status codes.
func statusFromError(err error) int {
	if err == nil {
		return fiber.StatusOK
	}

	if goerrors.IsNotFound(err) || repository.IsRecordNotFound(err) {
		return fiber.StatusNotFound
	}

	var richErr *goerrors.Error
	if goerrors.As(err, &richErr) {
		switch richErr.Category {
		case goerrors.CategoryValidation, goerrors.CategoryBadInput:
			return fiber.StatusBadRequest
		case goerrors.CategoryAuth:
			return fiber.StatusUnauthorized
		case goerrors.CategoryConflict:
			return fiber.StatusConflict
		}

		if richErr.Code >= fiber.StatusBadRequest {
			return richErr.Code
		}
	}

	return fiber.StatusInternalServerError
}

// messageFromError surfaces rich error messages, everything else collapses
// to the fallback so internals never leak.
func messageFromError(err error, fallback string) string {
	var richErr *goerrors.Error
	if goerrors.As(err, &richErr) {
		switch richErr.Category {
		case goerrors.CategoryInternal, goerrors.CategoryOperation, goerrors.CategoryExternal:
			return fallback
		}
		if richErr.Message != "" {
			return richErr.Message
		}
	}
	return fallback
}

// ValidatePhoneNumber accepts empty values and otherwise requires a
// parseable, valid number.
func ValidatePhoneNumber(value any) error {
	s, _ := value.(string)
	if s == "" {
		return nil
	}

	parsed, err := phonenumbers.Parse(s, "US")
	if err != nil {
		return fmt.Errorf("invalid phone number: %w", err)
	}

	if !phonenumbers.IsValidNumber(parsed) {
		return fmt.Errorf("invalid phone number")
	}

	return nil
}
