/*
Package handler provides HTTP handler functions for account registration, sign-in and profile management.
*/
package handler

import (
	"errors"
	"net/http"

	"popx/internal/app/user"
	"popx/internal/pkg/auth/jwt"
	"popx/internal/pkg/errs"
	"popx/internal/pkg/logx"
	"popx/internal/pkg/req"
	"popx/internal/pkg/resp"
)

// IdentityResponse is the public view of an identity. The password hash is never part of it.
type IdentityResponse struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Email        string `json:"email"`
	Phone        string `json:"phone"`
	ProfileImage string `json:"profileImage"`
}

// SessionResponse is returned by register and login: the token next to the flattened identity.
type SessionResponse struct {
	Token string `json:"token"`
	IdentityResponse
}

func newIdentityResponse(deps *AppDeps, u *user.User) IdentityResponse {
	return IdentityResponse{
		ID:           u.ID,
		Name:         u.Name,
		Email:        u.Email,
		Phone:        u.Phone,
		ProfileImage: deps.FullAssetURL(u.AvatarKey),
	}
}

// toCustomError maps domain errors onto the client-facing error table.
// A missing identity behind a valid token is treated as a rejected session.
func toCustomError(err error) *errs.CustomError {
	var customErr *errs.CustomError
	switch {
	case errors.As(err, &customErr):
		return customErr
	case errors.Is(err, user.ErrEmailTaken):
		return errs.NewError(errs.ErrEmailTaken)
	case errors.Is(err, user.ErrInvalidCredentials):
		return errs.NewError(errs.ErrInvalidCredentials)
	case errors.Is(err, user.ErrNotFound):
		return errs.NewError(errs.ErrUnauthorized)
	default:
		return errs.NewError(errs.ErrStoreUnavailable, err)
	}
}

// RegisterInput is the JSON body of POST /users/register.
type RegisterInput struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Phone    string `json:"phone"`
	Password string `json:"password"`
}

// HandleRegister creates an account and answers 201 with a session for it.
func HandleRegister(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var input RegisterInput
		if customErr := req.BindJSON(w, r, &input); customErr != nil {
			resp.RespondError(w, r, customErr)
			return
		}

		u, err := deps.Users.Register(r.Context(), user.Registration{
			Name:     input.Name,
			Email:    input.Email,
			Phone:    input.Phone,
			Password: input.Password,
		})
		if err != nil {
			if errors.Is(err, user.ErrEmailTaken) {
				logx.Ctx(r.Context()).Warn().Str("email", user.NormalizeEmail(input.Email)).Msg("registration conflict: email already exists")
			}
			resp.RespondError(w, r, toCustomError(err))
			return
		}

		token, err := deps.Tokens.Issue(u.ID)
		if err != nil {
			resp.RespondError(w, r, errs.NewError(errs.ErrUnknown, err))
			return
		}

		logx.Annotate(r.Context(), "user_id", u.ID)
		resp.RespondCreated(w, r, SessionResponse{Token: token, IdentityResponse: newIdentityResponse(deps, u)})
	}
}

// LoginInput is the JSON body of POST /users/login.
type LoginInput struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// HandleLogin verifies user credentials and issues a token.
// Unknown email and wrong password produce the same response.
func HandleLogin(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var input LoginInput
		if customErr := req.BindJSON(w, r, &input); customErr != nil {
			resp.RespondError(w, r, customErr)
			return
		}

		u, err := deps.Users.Authenticate(r.Context(), input.Email, input.Password)
		if err != nil {
			if errors.Is(err, user.ErrInvalidCredentials) {
				logx.Ctx(r.Context()).Warn().
					Str("email", user.NormalizeEmail(input.Email)).
					Str("reason", err.Error()).
					Msg("login: rejected")
			}
			resp.RespondError(w, r, toCustomError(err))
			return
		}

		token, err := deps.Tokens.Issue(u.ID)
		if err != nil {
			resp.RespondError(w, r, errs.NewError(errs.ErrUnknown, err))
			return
		}

		logx.Annotate(r.Context(), "user_id", u.ID)
		resp.RespondSuccess(w, r, SessionResponse{Token: token, IdentityResponse: newIdentityResponse(deps, u)})
	}
}

// HandleMe returns the current identity of the authenticated caller, re-read from the store.
func HandleMe(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := jwt.UserIDFromContext(r.Context())
		if !ok {
			resp.RespondError(w, r, errs.NewError(errs.ErrUnauthorized))
			return
		}

		u, err := deps.Users.Get(r.Context(), userID)
		if err != nil {
			if errors.Is(err, user.ErrNotFound) {
				logx.Ctx(r.Context()).Warn().Msg("me: identity behind token no longer exists")
			}
			resp.RespondError(w, r, toCustomError(err))
			return
		}

		resp.RespondSuccess(w, r, newIdentityResponse(deps, u))
	}
}
