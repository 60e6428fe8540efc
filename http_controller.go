package session

import (
	"errors"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-router"
)

// AuthController exposes the orchestration entry points over HTTP: thin
// handlers that validate the form payload, delegate to the store, and
// return a discriminated JSON result so forms can render inline feedback
// without duplicating session state.
type AuthController struct {
	Logger Logger
	Store  *Store
	Guard  *RouteGuard
	Routes *AuthControllerRoutes
}

type AuthControllerRoutes struct {
	SignIn  string
	SignUp  string
	SignOut string
	OAuth   string
}

type AuthControllerOption func(*AuthController) *AuthController

// WithControllerStore sets the session store the controller drives.
func WithControllerStore(store *Store) AuthControllerOption {
	return func(c *AuthController) *AuthController {
		c.Store = store
		return c
	}
}

// WithControllerGuard sets the guard used for post-login redirects.
func WithControllerGuard(guard *RouteGuard) AuthControllerOption {
	return func(c *AuthController) *AuthController {
		c.Guard = guard
		return c
	}
}

// WithControllerLogger overrides the controller logger.
func WithControllerLogger(logger Logger) AuthControllerOption {
	return func(c *AuthController) *AuthController {
		if logger != nil {
			c.Logger = logger
		}
		return c
	}
}

func NewAuthController(opts ...AuthControllerOption) *AuthController {
	c := &AuthController{
		Logger: defLogger{},
		Routes: &AuthControllerRoutes{
			SignIn:  "/auth/sign-in",
			SignUp:  "/auth/sign-up",
			SignOut: "/auth/sign-out",
			OAuth:   "/auth/oauth/:provider",
		},
	}

	for _, opt := range opts {
		c = opt(c)
	}

	if c.Store == nil {
		panic("Missing Store in session auth controller...")
	}

	if c.Guard == nil {
		panic("Missing RouteGuard in session auth controller...")
	}

	return c
}

// RegisterAuthRoutes mounts the controller on a router.
func RegisterAuthRoutes[T any](app router.Router[T], opts ...AuthControllerOption) {
	controller := NewAuthController(opts...)

	app.Post(controller.Routes.SignIn, controller.SignInPost).SetName("session.sign-in")
	app.Post(controller.Routes.SignUp, controller.SignUpPost).SetName("session.sign-up")
	app.Post(controller.Routes.SignOut, controller.SignOutPost).SetName("session.sign-out")
	app.Post(controller.Routes.OAuth, controller.OAuthPost).SetName("session.oauth")
}

// SignInRequest is the login form payload.
type SignInRequest struct {
	Email    string `form:"email" json:"email"`
	Password string `form:"password" json:"password"`
}

// Validate runs the local schema checks; failures never reach the store.
func (r SignInRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Email, validation.Required, is.Email),
		validation.Field(&r.Password, validation.Required),
	)
}

// SignUpPayload is the registration form payload.
type SignUpPayload struct {
	Email           string `form:"email" json:"email"`
	Password        string `form:"password" json:"password"`
	ConfirmPassword string `form:"confirm_password" json:"confirm_password"`
	FullName        string `form:"full_name" json:"full_name"`
	UserType        string `form:"user_type" json:"user_type"`
}

// Validate runs the local schema checks.
func (r SignUpPayload) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Email, validation.Required, validation.Length(6, 100), is.Email),
		validation.Field(&r.Password, validation.Required, validation.Length(6, 100)),
		validation.Field(
			&r.ConfirmPassword,
			validation.Required,
			validation.By(validateStringEquals(r.Password)),
		),
		validation.Field(&r.FullName, validation.Required, validation.Length(1, 200)),
		validation.Field(&r.UserType, validation.Required, validation.In("student", "company")),
	)
}

func (a *AuthController) SignInPost(ctx router.Context) error {
	payload := new(SignInRequest)

	if err := ctx.Bind(payload); err != nil {
		return ctx.JSON(router.StatusBadRequest, resultFailure("invalid request payload"))
	}

	if err := payload.Validate(); err != nil {
		return ctx.JSON(router.StatusBadRequest, resultValidation(err))
	}

	user, err := a.Store.SignIn(ctx.Context(), payload.Email, payload.Password)
	if err != nil {
		a.Logger.Info("sign-in rejected", "identifier", payload.Email, "error", err)
		return ctx.JSON(router.StatusUnauthorized, resultFailure(userMessage(err, "sign in failed")))
	}

	return ctx.JSON(router.StatusOK, map[string]any{
		"success":  true,
		"user":     user,
		"redirect": a.Guard.GetRedirect(ctx),
	})
}

func (a *AuthController) SignUpPost(ctx router.Context) error {
	payload := new(SignUpPayload)

	if err := ctx.Bind(payload); err != nil {
		return ctx.JSON(router.StatusBadRequest, resultFailure("invalid request payload"))
	}

	if err := payload.Validate(); err != nil {
		return ctx.JSON(router.StatusBadRequest, resultValidation(err))
	}

	userType, _ := ParseUserType(payload.UserType)

	outcome, err := a.Store.SignUp(ctx.Context(), SignUpRequest{
		Email:       payload.Email,
		Password:    payload.Password,
		DisplayName: payload.FullName,
		UserType:    userType,
	})
	if err != nil {
		a.Logger.Info("sign-up rejected", "identifier", payload.Email, "error", err)
		return ctx.JSON(failureStatus(err), resultFailure(userMessage(err, "sign up failed")))
	}

	if !outcome.Activated() {
		// Informational, not an error: the account exists but needs email
		// verification before it can sign in.
		return ctx.JSON(router.StatusOK, map[string]any{
			"success": true,
			"pending": true,
			"message": outcome.Message,
		})
	}

	return ctx.JSON(router.StatusOK, map[string]any{
		"success":  true,
		"pending":  false,
		"redirect": a.Guard.GetRedirect(ctx),
	})
}

func (a *AuthController) SignOutPost(ctx router.Context) error {
	if err := a.Store.SignOut(ctx.Context()); err != nil {
		a.Logger.Error("sign-out failed", "error", err)
		return ctx.JSON(router.StatusInternalServerError, resultFailure(userMessage(err, "sign out failed")))
	}

	return ctx.JSON(router.StatusOK, map[string]any{
		"success":  true,
		"redirect": "/",
	})
}

func (a *AuthController) OAuthPost(ctx router.Context) error {
	provider := ctx.Param("provider")
	redirectTo := ctx.Query("redirect_to")

	url, err := a.Store.BeginOAuth(ctx.Context(), provider, redirectTo)
	if err != nil {
		a.Logger.Error("oauth initiation failed", "provider", provider, "error", err)
		return ctx.JSON(failureStatus(err), resultFailure(userMessage(err, "could not start OAuth flow")))
	}

	return ctx.JSON(router.StatusOK, map[string]any{
		"success":  true,
		"redirect": url,
	})
}

// failureStatus maps a rich error onto its HTTP status, defaulting to 500
// for anything untyped.
func failureStatus(err error) int {
	var richErr *goerrors.Error
	if goerrors.As(err, &richErr) && richErr.Code > 0 {
		return richErr.Code
	}
	return router.StatusInternalServerError
}

func resultFailure(message string) map[string]any {
	return map[string]any{
		"success": false,
		"message": message,
	}
}

func resultValidation(err error) map[string]any {
	return map[string]any{
		"success":    false,
		"validation": err.Error(),
	}
}

func validateStringEquals(expected string) validation.RuleFunc {
	return func(value any) error {
		s, _ := value.(string)
		if s != expected {
			return errors.New("passwords do not match")
		}
		return nil
	}
}
