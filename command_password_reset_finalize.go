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

// FinalizePasswordResetMessage sets a new password using a verified reset
// claim. Uname, Email and Exp come from the decoded action token, never from
// the request body, and the zero values of an invalid token fail validation.
type FinalizePasswordResetMessage struct {
	RePsw      string `json:"re_psw"`
	Uname      string `json:"uname"`
	Email      string `json:"email"`
	Exp        time.Time
	OnResponse func(resp *Msg)
}

func (m FinalizePasswordResetMessage) Type() string { return "auth.password_reset.finalize" }

// Validate checks the new password shape, the claim shape and that the claim
// is still live, all behind one opaque message.
func (m FinalizePasswordResetMessage) Validate() error {
	if err := validation.Validate(m.RePsw, validation.Required, validation.Match(rePsw)); err != nil {
		return BadRequest("Invalid password")
	}
	if err := validation.Validate(m.Uname, validation.Required, validation.Match(reName)); err != nil {
		return BadRequest("Invalid password")
	}
	if time.Now().After(m.Exp) {
		return BadRequest("Invalid password")
	}
	return nil
}

type FinalizePasswordResetHandler struct {
	repo     RepositoryManager
	cfg      Config
	activity ActivitySink
}

func (h *FinalizePasswordResetHandler) Execute(ctx context.Context, event FinalizePasswordResetMessage) error {
	select {
	case <-ctx.Done():
		return goerrors.Wrap(
			ctx.Err(),
			goerrors.CategoryOperation,
			"context cancelled during password reset finalization",
		)
	default:
		return h.execute(ctx, event)
	}
}

func (h *FinalizePasswordResetHandler) execute(ctx context.Context, event FinalizePasswordResetMessage) error {
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
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to retrieve user for password reset")
		}

		// The claim must still match the account email; a reset issued for a
		// prior email stops working the moment the address changes.
		if user.Email != event.Email {
			return BadRequest("Auth Failed")
		}

		pswHash, err := HashPassword(event.RePsw, h.cfg.GetHashCost())
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
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to finalize password reset")
	}

	normalizeActivitySink(h.activity).Record(ctx, ActivityEvent{
		EventType:  ActivityEventPasswordResetSuccess,
		Uname:      uname,
		OccurredAt: time.Now(),
	})

	event.OnResponse(&Msg{
		Status:  200,
		Message: "Success",
	})

	return nil
}
