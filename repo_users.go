package auth

import (
	"context"
	"net/mail"
	"strings"
	"time"

	"github.com/goliatone/go-repository-bun"
	"github.com/goliatone/hashid/pkg/hashid"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

var UpdateUserPasswordSQL = `UPDATE "users" AS "usr"
SET
	"psw_hash" = ?
WHERE
	"usr"."uname" = ?
RETURNING *;`

var UpdateUserLastSeenSQL = `UPDATE "users" AS "usr"
SET
	"last_seen" = ?
WHERE
	"usr"."uname" = ?
RETURNING *;`

var ConfirmUserEmailSQL = `UPDATE "users" AS "usr"
SET
	"email_confirmed" = TRUE
WHERE
	"usr"."uname" = ?
AND
	"usr"."email" = ?
RETURNING *;`

var UpdateUserProfileSQL = `UPDATE "users" AS "usr"
SET
	"avatar" = ?,
	"email" = ?,
	"link" = ?,
	"intro" = ?,
	"location" = ?,
	"nickname" = ?,
	"email_confirmed" = ?
WHERE
	"usr"."uname" = ?
RETURNING *;`

// Users is the account repository. Lookups are by username, the stable
// public identifier; targeted updates never touch uname, join_at, karma or
// the permission bits.
type Users interface {
	repository.Repository[*User]

	GetByUname(ctx context.Context, uname string) (*User, error)
	GetByUnameTx(ctx context.Context, tx bun.IDB, uname string) (*User, error)
	GetByEmail(ctx context.Context, email string) (*User, error)
	GetByEmailTx(ctx context.Context, tx bun.IDB, email string) (*User, error)

	Create(ctx context.Context, record *User, criteria ...repository.InsertCriteria) (*User, error)
	CreateTx(ctx context.Context, tx bun.IDB, record *User, criteria ...repository.InsertCriteria) (*User, error)

	UpdateProfile(ctx context.Context, record *User) (*User, error)
	UpdateProfileTx(ctx context.Context, tx bun.IDB, record *User) (*User, error)
	UpdateLastSeen(ctx context.Context, uname string) error
	UpdateLastSeenTx(ctx context.Context, tx bun.IDB, uname string) error
	UpdatePassword(ctx context.Context, uname, pswHash string) error
	UpdatePasswordTx(ctx context.Context, tx bun.IDB, uname, pswHash string) error
	ConfirmEmail(ctx context.Context, uname, email string) error
	ConfirmEmailTx(ctx context.Context, tx bun.IDB, uname, email string) error
}

type users struct {
	repository.Repository[*User]
	db *bun.DB
}

var (
	_ Users                        = (*users)(nil)
	_ repository.Repository[*User] = (*users)(nil)
)

func NewUsersRepository(db *bun.DB) Users {
	repo := repository.NewRepository[*User](db, repository.ModelHandlers[*User]{
		NewRecord: func() *User { return &User{} },
		GetID: func(u *User) uuid.UUID {
			if u == nil {
				return uuid.Nil
			}
			return u.ID
		},
		SetID: func(u *User, id uuid.UUID) {
			if u != nil {
				u.ID = id
			}
		},
		GetIdentifier: func() string { return "uname" },
	})

	return &users{
		Repository: repo,
		db:         db,
	}
}

func (a *users) GetByUname(ctx context.Context, uname string) (*User, error) {
	return a.GetByUnameTx(ctx, a.db, uname)
}

func (a *users) GetByUnameTx(ctx context.Context, tx bun.IDB, uname string) (*User, error) {
	record := &User{}
	err := tx.NewSelect().
		Model(record).
		Where("?TableAlias.uname = ?", uname).
		Limit(1).
		Scan(ctx)

	if err != nil {
		if repository.IsRecordNotFound(err) {
			return nil, repository.NewRecordNotFound().
				WithMetadata(map[string]any{
					"uname": uname,
				})
		}
		return nil, err
	}

	return record, nil
}

func (a *users) GetByEmail(ctx context.Context, email string) (*User, error) {
	return a.GetByEmailTx(ctx, a.db, email)
}

func (a *users) GetByEmailTx(ctx context.Context, tx bun.IDB, email string) (*User, error) {
	record := &User{}
	err := tx.NewSelect().
		Model(record).
		Where("?TableAlias.email = ?", email).
		Limit(1).
		Scan(ctx)

	if err != nil {
		if repository.IsRecordNotFound(err) {
			return nil, repository.NewRecordNotFound().
				WithMetadata(map[string]any{
					"email": email,
				})
		}
		return nil, err
	}

	return record, nil
}

func (a *users) Create(ctx context.Context, record *User, criteria ...repository.InsertCriteria) (*User, error) {
	return a.CreateTx(ctx, a.db, record, criteria...)
}

func (a *users) CreateTx(ctx context.Context, tx bun.IDB, record *User, criteria ...repository.InsertCriteria) (*User, error) {
	prepareUserDefaults(record)
	return a.Repository.CreateTx(ctx, tx, record, criteria...)
}

func (a *users) UpdateProfile(ctx context.Context, record *User) (*User, error) {
	return a.UpdateProfileTx(ctx, a.db, record)
}

func (a *users) UpdateProfileTx(ctx context.Context, tx bun.IDB, record *User) (*User, error) {
	res, err := a.Repository.RawTx(ctx, tx, UpdateUserProfileSQL,
		record.Avatar,
		record.Email,
		record.Link,
		record.Intro,
		record.Location,
		record.Nickname,
		record.EmailConfirmed,
		record.Uname,
	)
	if err != nil {
		return nil, err
	}

	if len(res) == 0 {
		return nil, repository.NewRecordNotFound().
			WithMetadata(map[string]any{
				"uname": record.Uname,
			})
	}

	return a.GetByUnameTx(ctx, tx, record.Uname)
}

func (a *users) UpdateLastSeen(ctx context.Context, uname string) error {
	return a.UpdateLastSeenTx(ctx, a.db, uname)
}

func (a *users) UpdateLastSeenTx(ctx context.Context, tx bun.IDB, uname string) error {
	_, err := a.Repository.RawTx(ctx, tx, UpdateUserLastSeenSQL, time.Now(), uname)
	return err
}

func (a *users) UpdatePassword(ctx context.Context, uname, pswHash string) error {
	return a.UpdatePasswordTx(ctx, a.db, uname, pswHash)
}

func (a *users) UpdatePasswordTx(ctx context.Context, tx bun.IDB, uname, pswHash string) error {
	res, err := a.Repository.RawTx(ctx, tx, UpdateUserPasswordSQL, pswHash, uname)
	if err != nil {
		return err
	}

	if len(res) == 0 {
		return repository.NewRecordNotFound().
			WithMetadata(map[string]any{
				"uname": uname,
			})
	}

	return nil
}

func (a *users) ConfirmEmail(ctx context.Context, uname, email string) error {
	return a.ConfirmEmailTx(ctx, a.db, uname, email)
}

func (a *users) ConfirmEmailTx(ctx context.Context, tx bun.IDB, uname, email string) error {
	res, err := a.Repository.RawTx(ctx, tx, ConfirmUserEmailSQL, uname, email)
	if err != nil {
		return err
	}

	if len(res) == 0 {
		return repository.NewRecordNotFound().
			WithMetadata(map[string]any{
				"uname": uname,
			})
	}

	return nil
}

func prepareUserDefaults(record *User) {
	if record == nil {
		return
	}

	record.Uname = strings.TrimSpace(record.Uname)

	if record.ID == uuid.Nil {
		if id, err := hashid.NewUUID(record.Uname); err == nil {
			record.ID = id
		} else {
			record.ID = uuid.New()
		}
	}

	if record.Permission == 0 {
		record.Permission = LimitPermit | BasicPermit
	}

	if record.JoinAt.IsZero() {
		record.JoinAt = time.Now()
	}
	if record.LastSeen.IsZero() {
		record.LastSeen = record.JoinAt
	}
}

// isEmail reports whether the address parses as a bare RFC 5322 address.
func isEmail(address string) bool {
	parsed, err := mail.ParseAddress(address)
	if err != nil {
		return false
	}
	return parsed.Address == address
}
