package authapi

import (
	"context"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/uptrace/bun"
)

const tempPasswordLength = 6

type ForgotPasswordMessage struct {
	Email      string `json:"email"`
	OnResponse func(resp *ForgotPasswordResponse)
}

func (e ForgotPasswordMessage) Type() string { return "user.forgot_password" }

type ForgotPasswordResponse struct {
	User         *User
	TempPassword string
}

type ForgotPasswordHandler struct {
	repo   RepositoryManager
	mailer Mailer
	logger Logger
}

func NewForgotPasswordHandler(repo RepositoryManager, mailer Mailer) *ForgotPasswordHandler {
	if mailer == nil {
		mailer = &LoggerMailer{}
	}
	return &ForgotPasswordHandler{
		repo:   repo,
		mailer: mailer,
		logger: defLogger{},
	}
}

func (h *ForgotPasswordHandler) WithLogger(l Logger) *ForgotPasswordHandler {
	h.logger = l
	return h
}

func (h *ForgotPasswordHandler) Execute(ctx context.Context, event ForgotPasswordMessage) error {
	select {
	case <-ctx.Done():
		return goerrors.Wrap(
			ctx.Err(),
			goerrors.CategoryOperation,
			"context cancelled during password recovery",
		)
	default:
		return h.execute(ctx, event)
	}
}

// execute replaces the stored hash with a temporary password and mails it in
// clear text. An unknown email aborts before any mutation, and a mail
// delivery failure surfaces after the new password is already committed,
// mirroring the recovery contract callers depend on.
func (h *ForgotPasswordHandler) execute(ctx context.Context, event ForgotPasswordMessage) error {
	resp := &ForgotPasswordResponse{}

	ctx, cancel := context.WithTimeout(ctx, time.Second*10)
	defer cancel()

	err := h.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		user, err := h.repo.Users().GetByIdentifierTx(ctx, tx, event.Email)
		if err != nil {
			return err
		}

		tempPassword, err := RandomPassword(tempPasswordLength)
		if err != nil {
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to generate temporary password")
		}

		hash, err := HashPassword(tempPassword)
		if err != nil {
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to hash temporary password")
		}

		if err := h.repo.Users().ResetPasswordTx(ctx, tx, user.ID, hash); err != nil {
			return err
		}

		resp.User = user
		resp.TempPassword = tempPassword

		return nil
	})

	if err != nil {
		var richErr *goerrors.Error
		if goerrors.As(err, &richErr) {
			return richErr
		}
		return goerrors.Wrap(err, goerrors.CategoryInternal, "password recovery transaction failed")
	}

	subject := "Your temporary password"
	body := "Your new temporary password is: " + resp.TempPassword

	if err := h.mailer.Send(ctx, resp.User.Email, subject, body); err != nil {
		h.logger.Error("forgot password mail delivery failed: %v", err)
		return goerrors.Wrap(err, ErrMailDelivery.Category, ErrMailDelivery.Message).
			WithTextCode(ErrMailDelivery.TextCode)
	}

	if event.OnResponse != nil {
		event.OnResponse(resp)
	}

	return nil
}
