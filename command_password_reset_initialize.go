package auth

import (
	"context"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation"
	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-repository-bun"
)

// ResetTokenTTL is the action token lifetime for password reset links,
// in minutes.
const ResetTokenTTL = 60 * 2

// InitializePasswordResetMessage requests a reset link for the email stored
// on the account.
type InitializePasswordResetMessage struct {
	Uname      string `json:"uname"`
	OnResponse func(resp *Msg)
}

func (m InitializePasswordResetMessage) Type() string { return "auth.password_reset.initialize" }

func (m InitializePasswordResetMessage) Validate() error {
	uname := strings.TrimSpace(m.Uname)
	if err := validation.Validate(uname, validation.Required, validation.Match(reName)); err != nil {
		return BadRequest("Invalid")
	}
	return nil
}

type InitializePasswordResetHandler struct {
	repo   RepositoryManager
	tokens *TokenService
	mailer Mailer
}

func (h *InitializePasswordResetHandler) Execute(ctx context.Context, event InitializePasswordResetMessage) error {
	select {
	case <-ctx.Done():
		return goerrors.Wrap(
			ctx.Err(),
			goerrors.CategoryOperation,
			"context cancelled during password reset initialization",
		)
	default:
		return h.execute(ctx, event)
	}
}

func (h *InitializePasswordResetHandler) execute(ctx context.Context, event InitializePasswordResetMessage) error {
	ctx, cancel := context.WithTimeout(ctx, time.Second*10)
	defer cancel()

	if err := event.Validate(); err != nil {
		return err
	}

	uname := strings.TrimSpace(event.Uname)

	user, err := h.repo.Users().GetByUname(ctx, uname)
	if err != nil {
		if repository.IsRecordNotFound(err) {
			return NotExisting()
		}
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to retrieve user for password reset")
	}

	email := strings.TrimSpace(user.Email)
	if !isEmail(email) {
		return BadRequest("InValid Email or Username")
	}

	tok, err := h.tokens.IssueAction(uname, email, ResetTokenTTL)
	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to sign reset token")
	}

	if err := h.mailer.SendResetEmail(ctx, email, uname, tok); err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to send reset email")
	}

	event.OnResponse(&Msg{
		Status:  200,
		Message: "The token has been sent to you via email",
	})

	return nil
}
