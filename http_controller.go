package auth

import (
	"context"

	"github.com/gofiber/fiber/v2"
	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-print"
)

// AuthController serves the account API over fiber: registration, sessions,
// profile, password lifecycle and email confirmation.
type AuthController struct {
	Debug    bool
	Logger   Logger
	Repo     RepositoryManager
	Tokens   *TokenService
	Pool     *Dba
	Mailer   Mailer
	Cfg      Config
	Activity ActivitySink
}

type AuthControllerOption func(*AuthController) *AuthController

func NewAuthController(opts ...AuthControllerOption) *AuthController {
	c := &AuthController{
		Logger: defLogger{},
	}

	for _, opt := range opts {
		c = opt(c)
	}

	if c.Repo == nil {
		panic("Missing RepositoryManager in auth controller...")
	}

	if c.Tokens == nil {
		panic("Missing TokenService in auth controller...")
	}

	if c.Cfg == nil {
		panic("Missing Config in auth controller...")
	}

	if c.Mailer == nil {
		c.Mailer = NewLogMailer(c.Logger)
	}

	c.Activity = normalizeActivitySink(c.Activity)

	return c
}

func WithControllerDebug(debug bool) AuthControllerOption {
	return func(c *AuthController) *AuthController {
		c.Debug = debug
		return c
	}
}

func WithControllerLogger(logger Logger) AuthControllerOption {
	return func(c *AuthController) *AuthController {
		if logger != nil {
			c.Logger = logger
		}
		return c
	}
}

func WithControllerRepo(repo RepositoryManager) AuthControllerOption {
	return func(c *AuthController) *AuthController {
		c.Repo = repo
		return c
	}
}

func WithControllerTokens(tokens *TokenService) AuthControllerOption {
	return func(c *AuthController) *AuthController {
		c.Tokens = tokens
		return c
	}
}

func WithControllerPool(pool *Dba) AuthControllerOption {
	return func(c *AuthController) *AuthController {
		c.Pool = pool
		return c
	}
}

func WithControllerMailer(mailer Mailer) AuthControllerOption {
	return func(c *AuthController) *AuthController {
		c.Mailer = mailer
		return c
	}
}

func WithControllerConfig(cfg Config) AuthControllerOption {
	return func(c *AuthController) *AuthController {
		c.Cfg = cfg
		return c
	}
}

func WithControllerActivity(sink ActivitySink) AuthControllerOption {
	return func(c *AuthController) *AuthController {
		c.Activity = sink
		return c
	}
}

// RegisterAuthRoutes mounts the account API on app.
func RegisterAuthRoutes(app *fiber.App, opts ...AuthControllerOption) *AuthController {
	controller := NewAuthController(opts...)

	api := app.Group("/api")

	api.Post("/signup", controller.Signup)
	api.Post("/signin", controller.Signin)

	api.Post("/reset", controller.ResetRequest)
	api.Post("/reset/:token", controller.ResetPassword)

	api.Get("/users/:uname", controller.GetUser)
	api.Post("/users/:uname", controller.UpdateUser)
	api.Put("/users/:uname", controller.ChangePassword)

	app.Get("/confirm/:token", controller.ConfirmEmail)

	return controller
}

// dispatch runs fn on the database worker pool when one is configured and
// inline otherwise.
func (a *AuthController) dispatch(ctx context.Context, fn func(context.Context) error) error {
	if a.Pool == nil {
		return fn(ctx)
	}
	return a.Pool.Dispatch(ctx, fn)
}

// Signup handles POST /api/signup.
func (a *AuthController) Signup(ctx *fiber.Ctx) error {
	payload := &SignupMessage{}
	if err := ctx.BodyParser(payload); err != nil {
		a.Logger.Error("signup parse payload: %s", err)
		return a.renderError(ctx, BadRequest("Invalid username or password"))
	}

	payload.Password = DeBase64(payload.Password)
	payload.Confirm = DeBase64(payload.Confirm)

	if a.Debug {
		a.Logger.Debug("signup payload: %s", print.MaybePrettyJSON(payload))
	}

	if err := payload.Validate(); err != nil {
		return a.renderError(ctx, err)
	}

	var resp *Msg
	payload.OnResponse = func(msg *Msg) {
		resp = msg
	}

	handler := SignupHandler{
		repo:     a.Repo,
		tokens:   a.Tokens,
		mailer:   a.Mailer,
		cfg:      a.Cfg,
		activity: a.Activity,
	}

	if err := a.dispatch(ctx.UserContext(), func(c context.Context) error {
		return handler.Execute(c, *payload)
	}); err != nil {
		return a.renderError(ctx, err)
	}

	return ctx.JSON(resp)
}

// Signin handles POST /api/signin.
func (a *AuthController) Signin(ctx *fiber.Ctx) error {
	payload := &SigninMessage{}
	if err := ctx.BodyParser(payload); err != nil {
		a.Logger.Error("signin parse payload: %s", err)
		return a.renderError(ctx, BadRequest("Invalid username or password"))
	}

	payload.Password = DeBase64(payload.Password)

	if err := payload.Validate(); err != nil {
		return a.renderError(ctx, err)
	}

	var user *CheckUser
	payload.OnResponse = func(u *CheckUser) {
		user = u
	}

	handler := SigninHandler{
		repo:     a.Repo,
		activity: a.Activity,
	}

	if err := a.dispatch(ctx.UserContext(), func(c context.Context) error {
		return handler.Execute(c, *payload)
	}); err != nil {
		return a.renderError(ctx, err)
	}

	return a.renderAuthMsg(ctx, user)
}

// GetUser handles GET /api/users/:uname.
func (a *AuthController) GetUser(ctx *fiber.Ctx) error {
	msg := QueryUserMessage{Uname: ctx.Params("uname")}

	var user *CheckUser
	msg.OnResponse = func(u *CheckUser) {
		user = u
	}

	handler := QueryUserHandler{repo: a.Repo}

	if err := a.dispatch(ctx.UserContext(), func(c context.Context) error {
		return handler.Execute(c, msg)
	}); err != nil {
		return a.renderError(ctx, err)
	}

	return ctx.JSON(UserMsg{
		Status:  200,
		Message: "Success",
		User:    *user,
	})
}

// UpdateUser handles POST /api/users/:uname. The session owner can only
// update their own profile.
func (a *AuthController) UpdateUser(ctx *fiber.Ctx) error {
	caller, err := Authenticate(a.Tokens, FiberRequest(ctx))
	if err != nil {
		return a.renderError(ctx, err)
	}

	payload := &UpdateProfileMessage{}
	if err := ctx.BodyParser(payload); err != nil {
		a.Logger.Error("update user parse payload: %s", err)
		return a.renderError(ctx, BadRequest("Invalid Input"))
	}

	if caller.Uname != payload.Uname {
		return a.renderError(ctx, ErrUnauthorized)
	}

	if err := payload.Validate(); err != nil {
		return a.renderError(ctx, err)
	}

	var user *CheckUser
	payload.OnResponse = func(u *CheckUser) {
		user = u
	}

	handler := UpdateProfileHandler{
		repo:     a.Repo,
		tokens:   a.Tokens,
		mailer:   a.Mailer,
		activity: a.Activity,
	}

	if err := a.dispatch(ctx.UserContext(), func(c context.Context) error {
		return handler.Execute(c, *payload)
	}); err != nil {
		return a.renderError(ctx, err)
	}

	return a.renderAuthMsg(ctx, user)
}

// ChangePassword handles PUT /api/users/:uname. The session owner can only
// rotate their own password.
func (a *AuthController) ChangePassword(ctx *fiber.Ctx) error {
	caller, err := Authenticate(a.Tokens, FiberRequest(ctx))
	if err != nil {
		return a.renderError(ctx, err)
	}

	payload := &ChangePasswordMessage{}
	if err := ctx.BodyParser(payload); err != nil {
		a.Logger.Error("change password parse payload: %s", err)
		return a.renderError(ctx, BadRequest("Invalid password"))
	}

	if caller.Uname != payload.Uname {
		return a.renderError(ctx, ErrUnauthorized)
	}

	payload.OldPassword = DeBase64(payload.OldPassword)
	payload.NewPassword = DeBase64(payload.NewPassword)

	if err := payload.Validate(); err != nil {
		return a.renderError(ctx, err)
	}

	var resp *Msg
	payload.OnResponse = func(msg *Msg) {
		resp = msg
	}

	handler := ChangePasswordHandler{
		repo:     a.Repo,
		cfg:      a.Cfg,
		activity: a.Activity,
	}

	if err := a.dispatch(ctx.UserContext(), func(c context.Context) error {
		return handler.Execute(c, *payload)
	}); err != nil {
		return a.renderError(ctx, err)
	}

	return ctx.JSON(resp)
}

// ResetRequest handles POST /api/reset.
func (a *AuthController) ResetRequest(ctx *fiber.Ctx) error {
	payload := &InitializePasswordResetMessage{}
	if err := ctx.BodyParser(payload); err != nil {
		a.Logger.Error("reset request parse payload: %s", err)
		return a.renderError(ctx, BadRequest("Invalid"))
	}

	if err := payload.Validate(); err != nil {
		return a.renderError(ctx, err)
	}

	var resp *Msg
	payload.OnResponse = func(msg *Msg) {
		resp = msg
	}

	handler := InitializePasswordResetHandler{
		repo:   a.Repo,
		tokens: a.Tokens,
		mailer: a.Mailer,
	}

	if err := a.dispatch(ctx.UserContext(), func(c context.Context) error {
		return handler.Execute(c, *payload)
	}); err != nil {
		return a.renderError(ctx, err)
	}

	return ctx.JSON(resp)
}

// ResetPassword handles POST /api/reset/:token. The token rides in the path,
// transport encoded; an unverifiable token leaves the zero claim in place
// and fails validation downstream.
func (a *AuthController) ResetPassword(ctx *fiber.Ctx) error {
	payload := &FinalizePasswordResetMessage{}
	if err := ctx.BodyParser(payload); err != nil {
		a.Logger.Error("reset password parse payload: %s", err)
		return a.renderError(ctx, BadRequest("Invalid password"))
	}

	payload.RePsw = DeBase64(payload.RePsw)

	claim, _ := a.Tokens.VerifyAction(DeBase64(ctx.Params("token")))
	payload.Uname = claim.Uname
	payload.Email = claim.Email
	payload.Exp = claim.Expiry()

	if err := payload.Validate(); err != nil {
		return a.renderError(ctx, err)
	}

	var resp *Msg
	payload.OnResponse = func(msg *Msg) {
		resp = msg
	}

	handler := FinalizePasswordResetHandler{
		repo:     a.Repo,
		cfg:      a.Cfg,
		activity: a.Activity,
	}

	if err := a.dispatch(ctx.UserContext(), func(c context.Context) error {
		return handler.Execute(c, *payload)
	}); err != nil {
		return a.renderError(ctx, err)
	}

	return ctx.JSON(resp)
}

// ConfirmEmail handles GET /confirm/:token. The outcome renders as a small
// HTML fragment since the link is opened from an email client.
func (a *AuthController) ConfirmEmail(ctx *fiber.Ctx) error {
	claim, _ := a.Tokens.VerifyAction(DeBase64(ctx.Params("token")))

	msg := ConfirmEmailMessage{
		Uname: claim.Uname,
		Email: claim.Email,
		Exp:   claim.Expiry(),
	}

	var confirmed bool
	msg.OnResponse = func(ok bool) {
		confirmed = ok
	}

	handler := ConfirmEmailHandler{
		repo:     a.Repo,
		activity: a.Activity,
	}

	if err := a.dispatch(ctx.UserContext(), func(c context.Context) error {
		return handler.Execute(c, msg)
	}); err != nil {
		return a.renderError(ctx, err)
	}

	body := "Ooops...Failed!<br> Back to <a href='/'>Home</a>"
	if confirmed {
		body = "Thanks for Confirming your Email!<br> Back to <a href='/'>Home</a>"
	}

	ctx.Set(fiber.HeaderContentType, fiber.MIMETextHTMLCharsetUTF8)
	return ctx.SendString(body)
}

// renderAuthMsg issues a fresh session token for user and writes the auth
// envelope, elevation flag included.
func (a *AuthController) renderAuthMsg(ctx *fiber.Ctx, user *CheckUser) error {
	token, err := a.Tokens.IssueSession(*user)
	if err != nil {
		return a.renderError(ctx, err)
	}

	return ctx.JSON(AuthMsg{
		Status:  200,
		Message: "Success",
		Token:   token,
		Exp:     SessionTokenExpDays,
		User:    *user,
		Omg:     IsElevated(a.Cfg.GetAdminUname(), user.AsCheckCan()),
	})
}

// renderError maps a rich error onto the wire envelope.
func (a *AuthController) renderError(ctx *fiber.Ctx, err error) error {
	status := fiber.StatusInternalServerError
	message := "Internal Server Error"

	var richErr *goerrors.Error
	if goerrors.As(err, &richErr) {
		switch richErr.Category {
		case goerrors.CategoryAuth, goerrors.CategoryAuthz:
			status = fiber.StatusUnauthorized
		case goerrors.CategoryBadInput, goerrors.CategoryValidation:
			status = fiber.StatusBadRequest
		case goerrors.CategoryNotFound:
			status = fiber.StatusNotFound
		}
		if status != fiber.StatusInternalServerError {
			message = richErr.Message
		}
	}

	// jwt errors surfacing outside the token service still read as auth
	// failures, not server faults.
	if status == fiber.StatusInternalServerError && (IsTokenExpiredError(err) || IsMalformedError(err)) {
		status = fiber.StatusUnauthorized
		message = "Unauthorized"
	}

	if status == fiber.StatusInternalServerError {
		a.Logger.Error("auth controller: %s", err)
	}

	return ctx.Status(status).JSON(Msg{
		Status:  status,
		Message: message,
	})
}
