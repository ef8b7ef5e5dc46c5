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

// SigninMessage authenticates credentials and yields the sanitized view.
type SigninMessage struct {
	Uname      string `json:"uname"`
	Password   string `json:"password"`
	OnResponse func(resp *CheckUser)
}

func (m SigninMessage) Type() string { return "auth.signin" }

// Validate applies length limits only; the stricter shape rules already ran
// at signup.
func (m SigninMessage) Validate() error {
	uname := strings.TrimSpace(m.Uname)

	if err := validation.Validate(uname, validation.Required, validation.Length(3, 42)); err != nil {
		return BadRequest("Invalid username or password")
	}
	if err := validation.Validate(m.Password, validation.Required, validation.Length(8, 18)); err != nil {
		return BadRequest("Invalid username or password")
	}
	return nil
}

type SigninHandler struct {
	repo     RepositoryManager
	activity ActivitySink
}

func (h *SigninHandler) Execute(ctx context.Context, event SigninMessage) error {
	select {
	case <-ctx.Done():
		return goerrors.Wrap(
			ctx.Err(),
			goerrors.CategoryOperation,
			"context cancelled during signin",
		)
	default:
		return h.execute(ctx, event)
	}
}

func (h *SigninHandler) execute(ctx context.Context, event SigninMessage) error {
	ctx, cancel := context.WithTimeout(ctx, time.Second*10)
	defer cancel()

	if err := event.Validate(); err != nil {
		return err
	}

	uname := strings.TrimSpace(event.Uname)
	resp := &CheckUser{}

	err := h.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		user, err := h.repo.Users().GetByUnameTx(ctx, tx, uname)
		if err != nil {
			// Unknown account and wrong password must be indistinguishable.
			if repository.IsRecordNotFound(err) {
				return BadRequest("Auth Failed")
			}
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to retrieve user for signin")
		}

		if err := ComparePasswordAndHash(event.Password, user.PswHash); err != nil {
			return BadRequest("Auth Failed")
		}

		if err := h.repo.Users().UpdateLastSeenTx(ctx, tx, uname); err != nil {
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to track login")
		}

		*resp = user.Sanitize()
		return nil
	})

	if err != nil {
		normalizeActivitySink(h.activity).Record(ctx, ActivityEvent{
			EventType:  ActivityEventLoginFailure,
			Uname:      uname,
			OccurredAt: time.Now(),
		})

		var richErr *goerrors.Error
		if goerrors.As(err, &richErr) {
			return richErr
		}
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to sign in user")
	}

	normalizeActivitySink(h.activity).Record(ctx, ActivityEvent{
		EventType:  ActivityEventLoginSuccess,
		Uname:      uname,
		OccurredAt: time.Now(),
	})

	event.OnResponse(resp)

	return nil
}
