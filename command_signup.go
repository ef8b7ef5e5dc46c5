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

// ConfirmEmailTokenTTL is the action token lifetime for email confirmation
// links, in minutes.
const ConfirmEmailTokenTTL = 60 * 24 * 2

// SignupMessage registers a new account. Password and Confirm arrive already
// decoded from their transport encoding.
type SignupMessage struct {
	Uname      string `json:"uname"`
	Email      string `json:"email"`
	Password   string `json:"password"`
	Confirm    string `json:"confirm"`
	OnResponse func(resp *Msg)
}

func (m SignupMessage) Type() string { return "auth.signup" }

// Validate rejects malformed credentials with the same opaque message for
// every failure mode.
func (m SignupMessage) Validate() error {
	uname := strings.TrimSpace(m.Uname)

	if err := validation.Validate(uname, validation.Required, validation.Match(reName)); err != nil {
		return BadRequest("Invalid username or password")
	}
	if err := validation.Validate(m.Password, validation.Required, validation.Match(rePsw)); err != nil {
		return BadRequest("Invalid username or password")
	}
	return nil
}

type SignupHandler struct {
	repo     RepositoryManager
	tokens   *TokenService
	mailer   Mailer
	cfg      Config
	activity ActivitySink
}

func (h *SignupHandler) Execute(ctx context.Context, event SignupMessage) error {
	select {
	case <-ctx.Done():
		return goerrors.Wrap(
			ctx.Err(),
			goerrors.CategoryOperation,
			"context cancelled during signup",
		)
	default:
		return h.execute(ctx, event)
	}
}

func (h *SignupHandler) execute(ctx context.Context, event SignupMessage) error {
	ctx, cancel := context.WithTimeout(ctx, time.Second*10)
	defer cancel()

	if err := event.Validate(); err != nil {
		return err
	}

	uname := strings.TrimSpace(event.Uname)
	email := strings.TrimSpace(event.Email)

	err := h.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if _, err := h.repo.Users().GetByUnameTx(ctx, tx, uname); err == nil {
			return BadRequest("Duplicated Username")
		} else if !repository.IsRecordNotFound(err) {
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to check username")
		}

		pswHash, err := HashPassword(event.Password, h.cfg.GetHashCost())
		if err != nil {
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to hash password")
		}

		record := NewUser(uname, pswHash)

		// A well formed email is attached only when no other account holds
		// it; otherwise the account is created without one. Registration
		// never reveals whether an email is taken.
		if isEmail(email) {
			_, err := h.repo.Users().GetByEmailTx(ctx, tx, email)
			if repository.IsRecordNotFound(err) {
				record.Email = email

				tok, err := h.tokens.IssueAction(uname, email, ConfirmEmailTokenTTL)
				if err != nil {
					return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to sign confirm token")
				}
				if err := h.mailer.SendConfirmEmail(ctx, email, uname, tok); err != nil {
					return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to send confirm email")
				}
			} else if err != nil {
				return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to check email")
			}
		}

		if _, err := h.repo.Users().CreateTx(ctx, tx, record); err != nil {
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to create user")
		}

		return nil
	})

	if err != nil {
		var richErr *goerrors.Error
		if goerrors.As(err, &richErr) {
			return richErr
		}
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to sign up user")
	}

	normalizeActivitySink(h.activity).Record(ctx, ActivityEvent{
		EventType:  ActivityEventSignup,
		Uname:      uname,
		OccurredAt: time.Now(),
	})

	event.OnResponse(&Msg{
		Status:  201,
		Message: "Success",
	})

	return nil
}
