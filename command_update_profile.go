package auth

import (
	"context"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-repository-bun"
	"github.com/uptrace/bun"
)

// UpdateProfileMessage replaces the mutable profile fields of an account.
// Uname identifies the account and is never changed by this operation.
type UpdateProfileMessage struct {
	Uname      string `json:"uname"`
	Avatar     string `json:"avatar"`
	Email      string `json:"email"`
	Intro      string `json:"intro"`
	Location   string `json:"location"`
	Nickname   string `json:"nickname"`
	OnResponse func(resp *CheckUser)
}

func (m UpdateProfileMessage) Type() string { return "auth.update_profile" }

// Validate checks the optional fields: empty is always acceptable, non-empty
// values must fit their shape.
func (m UpdateProfileMessage) Validate() error {
	nickname := strings.TrimSpace(m.Nickname)
	if nickname != "" {
		if err := validation.Validate(nickname, validation.Match(reName)); err != nil {
			return BadRequest("Invalid Input")
		}
	}

	avatar := strings.TrimSpace(m.Avatar)
	if avatar != "" {
		if err := validation.Validate(avatar, is.URL); err != nil {
			return BadRequest("Invalid Input")
		}
	}

	if err := validation.Validate(m.Location, validation.Length(0, MidLen)); err != nil {
		return BadRequest("Invalid Input")
	}

	return nil
}

type UpdateProfileHandler struct {
	repo     RepositoryManager
	tokens   *TokenService
	mailer   Mailer
	activity ActivitySink
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
	ctx, cancel := context.WithTimeout(ctx, time.Second*10)
	defer cancel()

	if err := event.Validate(); err != nil {
		return err
	}

	uname := strings.TrimSpace(event.Uname)
	newEmail := strings.TrimSpace(event.Email)
	resp := &CheckUser{}

	err := h.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		old, err := h.repo.Users().GetByUnameTx(ctx, tx, uname)
		if err != nil {
			if repository.IsRecordNotFound(err) {
				return NotExisting()
			}
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to retrieve user for update")
		}

		oldEmail := strings.TrimSpace(old.Email)

		changed := strings.TrimSpace(event.Avatar) != strings.TrimSpace(old.Avatar) ||
			strings.TrimSpace(event.Intro) != strings.TrimSpace(old.Intro) ||
			strings.TrimSpace(event.Location) != strings.TrimSpace(old.Location) ||
			strings.TrimSpace(event.Nickname) != strings.TrimSpace(old.Nickname)

		if !changed && newEmail == oldEmail {
			return BadRequest("Nothing Changed")
		}

		// Default to keeping the old email; a new one only takes effect when
		// it is well formed, different and unclaimed. Link is not part of the
		// payload and rides through unchanged.
		record := &User{
			Uname:          uname,
			Avatar:         event.Avatar,
			Email:          oldEmail,
			Link:           old.Link,
			Intro:          event.Intro,
			Location:       event.Location,
			Nickname:       event.Nickname,
			EmailConfirmed: old.EmailConfirmed,
		}

		if isEmail(newEmail) && newEmail != oldEmail {
			_, err := h.repo.Users().GetByEmailTx(ctx, tx, newEmail)
			if err == nil {
				if !changed {
					return BadRequest("Nothing Changed")
				}
			} else if repository.IsRecordNotFound(err) {
				record.Email = newEmail
				record.EmailConfirmed = false

				tok, err := h.tokens.IssueAction(uname, newEmail, ConfirmEmailTokenTTL)
				if err != nil {
					return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to sign confirm token")
				}
				if err := h.mailer.SendConfirmEmail(ctx, newEmail, uname, tok); err != nil {
					return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to send confirm email")
				}
			} else {
				return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to check email")
			}
		}

		updated, err := h.repo.Users().UpdateProfileTx(ctx, tx, record)
		if err != nil {
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to update profile")
		}

		*resp = updated.Sanitize()
		return nil
	})

	if err != nil {
		var richErr *goerrors.Error
		if goerrors.As(err, &richErr) {
			return richErr
		}
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to update user profile")
	}

	normalizeActivitySink(h.activity).Record(ctx, ActivityEvent{
		EventType:  ActivityEventProfileUpdated,
		Uname:      uname,
		OccurredAt: time.Now(),
	})

	event.OnResponse(resp)

	return nil
}
