package auth

import (
	"context"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation"
	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-repository-bun"
	"github.com/uptrace/bun"
)

// ChangePasswordMessage rotates an account password after re-checking the
// old one. Both passwords arrive already decoded from transport encoding.
type ChangePasswordMessage struct {
	OldPassword string `json:"old_psw"`
	NewPassword string `json:"new_psw"`
	Uname       string `json:"uname"`
	OnResponse  func(resp *Msg)
}

func (m ChangePasswordMessage) Type() string { return "auth.change_password" }

// Validate checks the replacement password shape only; the old password is
// judged against the stored hash, not the shape rules.
func (m ChangePasswordMessage) Validate() error {
	if err := validation.Validate(m.NewPassword, validation.Required, validation.Match(rePsw)); err != nil {
		return BadRequest("Invalid password")
	}
	return nil
}

type ChangePasswordHandler struct {
	repo     RepositoryManager
	cfg      Config
	activity ActivitySink
}

func (h *ChangePasswordHandler) Execute(ctx context.Context, event ChangePasswordMessage) error {
	select {
	case <-ctx.Done():
		return goerrors.Wrap(
			ctx.Err(),
			goerrors.CategoryOperation,
			"context cancelled during password change",
		)
	default:
		return h.execute(ctx, event)
	}
}

func (h *ChangePasswordHandler) execute(ctx context.Context, event ChangePasswordMessage) error {
	ctx, cancel := context.WithTimeout(ctx, time.Second*10)
	defer cancel()

	if err := event.Validate(); err != nil {
		return err
	}

	uname := strings.TrimSpace(event.Uname)

	err := h.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		user, err := h.repo.Users().GetByUnameTx(ctx, tx, uname)
		if err != nil {
			if repository.IsRecordNotFound(err) {
				return BadRequest("Not Existing")
			}
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to retrieve user for password change")
		}

		if err := ComparePasswordAndHash(event.OldPassword, user.PswHash); err != nil {
			return BadRequest("Failed Auth")
		}

		pswHash, err := HashPassword(event.NewPassword, h.cfg.GetHashCost())
		if err != nil {
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to hash password")
		}

		if err := h.repo.Users().UpdatePasswordTx(ctx, tx, uname, pswHash); err != nil {
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to update password")
		}

		return nil
	})

	if err != nil {
		var richErr *goerrors.Error
		if goerrors.As(err, &richErr) {
			return richErr
		}
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to change password")
	}

	normalizeActivitySink(h.activity).Record(ctx, ActivityEvent{
		EventType:  ActivityEventPasswordChanged,
		Uname:      uname,
		OccurredAt: time.Now(),
	})

	event.OnResponse(&Msg{
		Status:  200,
		Message: "Success",
	})

	return nil
}
