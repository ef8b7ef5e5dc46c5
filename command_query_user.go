package auth

import (
	"context"
	"strings"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-repository-bun"
)

// QueryUserMessage looks up the sanitized view of an account by username.
type QueryUserMessage struct {
	Uname      string `json:"uname"`
	OnResponse func(resp *CheckUser)
}

func (m QueryUserMessage) Type() string { return "auth.query_user" }

type QueryUserHandler struct {
	repo RepositoryManager
}

func (h *QueryUserHandler) Execute(ctx context.Context, event QueryUserMessage) error {
	select {
	case <-ctx.Done():
		return goerrors.Wrap(
			ctx.Err(),
			goerrors.CategoryOperation,
			"context cancelled during user query",
		)
	default:
		return h.execute(ctx, event)
	}
}

func (h *QueryUserHandler) execute(ctx context.Context, event QueryUserMessage) error {
	ctx, cancel := context.WithTimeout(ctx, time.Second*10)
	defer cancel()

	uname := strings.TrimSpace(event.Uname)

	user, err := h.repo.Users().GetByUname(ctx, uname)
	if err != nil {
		if repository.IsRecordNotFound(err) {
			return NotExisting()
		}
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to retrieve user")
	}

	resp := user.Sanitize()
	event.OnResponse(&resp)

	return nil
}
