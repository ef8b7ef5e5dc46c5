package auth

import (
	"context"
	"strings"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-repository-bun"
	"github.com/uptrace/bun"
)

// ConfirmEmailMessage marks an account email confirmed from a decoded action
// claim. The operation never errors on a bad claim: confirmation links are
// clicked from email clients, so failure is reported as a boolean outcome
// the caller can render, not as an error.
type ConfirmEmailMessage struct {
	Uname      string
	Email      string
	Exp        time.Time
	OnResponse func(confirmed bool)
}

func (m ConfirmEmailMessage) Type() string { return "auth.confirm_email" }

type ConfirmEmailHandler struct {
	repo     RepositoryManager
	activity ActivitySink
}

func (h *ConfirmEmailHandler) Execute(ctx context.Context, event ConfirmEmailMessage) error {
	select {
	case <-ctx.Done():
		return goerrors.Wrap(
			ctx.Err(),
			goerrors.CategoryOperation,
			"context cancelled during email confirmation",
		)
	default:
		return h.execute(ctx, event)
	}
}

func (h *ConfirmEmailHandler) execute(ctx context.Context, event ConfirmEmailMessage) error {
	ctx, cancel := context.WithTimeout(ctx, time.Second*10)
	defer cancel()

	uname := strings.TrimSpace(event.Uname)
	confirmed := false

	err := h.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		user, err := h.repo.Users().GetByUnameTx(ctx, tx, uname)
		if err != nil {
			if repository.IsRecordNotFound(err) {
				return nil
			}
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to retrieve user for confirmation")
		}

		if time.Now().After(event.Exp) || user.Email != event.Email {
			return nil
		}

		if err := h.repo.Users().ConfirmEmailTx(ctx, tx, uname, event.Email); err != nil {
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to confirm email")
		}

		confirmed = true
		return nil
	})

	if err != nil {
		var richErr *goerrors.Error
		if goerrors.As(err, &richErr) {
			return richErr
		}
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to confirm user email")
	}

	if confirmed {
		normalizeActivitySink(h.activity).Record(ctx, ActivityEvent{
			EventType:  ActivityEventEmailConfirmed,
			Uname:      uname,
			OccurredAt: time.Now(),
		})
	}

	event.OnResponse(confirmed)

	return nil
}
