package authapi

import (
	"context"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// UpdateProfileMessage carries only the fields the caller wants changed.
// Empty fields keep their stored values, there is no implicit clearing.
type UpdateProfileMessage struct {
	UserID     uuid.UUID `json:"user_id"`
	Name       string    `json:"name"`
	Email      string    `json:"email"`
	Phone      string    `json:"phone"`
	OnResponse func(user *User)
}

func (e UpdateProfileMessage) Type() string { return "user.update_profile" }

type UpdateProfileHandler struct {
	repo RepositoryManager
}

func NewUpdateProfileHandler(repo RepositoryManager) *UpdateProfileHandler {
	return &UpdateProfileHandler{repo: repo}
}

func (h *UpdateProfileHandler) Execute(ctx context.Context, event UpdateProfileMessage) error {
	select {
	case <-ctx.Done():
		return goerrors.Wrap(
			ctx.Err(),
			goerrors.CategoryOperation,
			"context cancelled during profile update",
		)
	default:
		return h.execute(ctx, event)
	}
}

func (h *UpdateProfileHandler) execute(ctx context.Context, event UpdateProfileMessage) error {
	var user *User

	ctx, cancel := context.WithTimeout(ctx, time.Second*10)
	defer cancel()

	err := h.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		changes := &User{
			Name:  event.Name,
			Email: event.Email,
			Phone: event.Phone,
		}

		var err error
		if user, err = h.repo.Users().UpdateProfileTx(ctx, tx, event.UserID, changes); err != nil {
			if IsDuplicateConstraintError(err) {
				return goerrors.Wrap(ErrDuplicateEmail, goerrors.CategoryConflict, ErrDuplicateEmail.Message).
					WithTextCode(ErrDuplicateEmail.TextCode).
					WithMetadata(map[string]any{"email": event.Email})
			}
			return err
		}

		return nil
	})

	if err != nil {
		var richErr *goerrors.Error
		if goerrors.As(err, &richErr) {
			return richErr
		}
		return goerrors.Wrap(err, goerrors.CategoryInternal, "profile update transaction failed")
	}

	if event.OnResponse != nil {
		event.OnResponse(user)
	}

	return nil
}
