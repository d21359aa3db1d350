package handler

import (
	"context"
	"mime/multipart"
	"net/http"

	"popx/internal/app/storage"
	"popx/internal/app/user"
	"popx/internal/pkg/auth/jwt"
	"popx/internal/pkg/errs"
	"popx/internal/pkg/logx"
	"popx/internal/pkg/req"
	"popx/internal/pkg/resp"
)

const (
	// AvatarField is the multipart field carrying the profile image.
	AvatarField = "profileImage"

	fieldName  = "name"
	fieldEmail = "email"
	fieldPhone = "phone"
)

// UpdateProfileInput is the JSON form of a profile update. A nil field is left untouched.
type UpdateProfileInput struct {
	Name  *string `json:"name"`
	Email *string `json:"email"`
	Phone *string `json:"phone"`
}

// HandleUpdateProfile applies a partial profile update, optionally replacing the avatar.
//
// The attachment is validated, then written to storage, and only then referenced from the
// identity record. If the record update fails the new file is removed again, so callers
// observe either the whole update or none of it.
func HandleUpdateProfile(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := jwt.UserIDFromContext(r.Context())
		if !ok {
			resp.RespondError(w, r, errs.NewError(errs.ErrUnauthorized))
			return
		}

		patch, upload, customErr := bindProfileUpdate(w, r)
		if r.MultipartForm != nil {
			defer func() { _ = r.MultipartForm.RemoveAll() }()
		}
		if customErr != nil {
			resp.RespondError(w, r, customErr)
			return
		}

		if verr := patch.Validate(); verr != nil {
			resp.RespondError(w, r, verr)
			return
		}
		if upload != nil {
			if verr := storage.ValidateAvatar(upload.Filename, upload.Header.Get("Content-Type"), upload.Size); verr != nil {
				resp.RespondError(w, r, verr)
				return
			}
		}

		current, err := deps.Users.Get(r.Context(), userID)
		if err != nil {
			resp.RespondError(w, r, toCustomError(err))
			return
		}

		var newKey string
		if upload != nil {
			newKey = storage.NewObjectKey(upload.Filename, deps.now())
			if err := storeAvatar(r.Context(), deps, newKey, upload); err != nil {
				resp.RespondError(w, r, errs.NewError(errs.ErrFileStorageFailed, err))
				return
			}
			patch.AvatarKey = user.Some(newKey)
		}

		updated, err := deps.Users.UpdateProfile(r.Context(), userID, patch)
		if err != nil {
			if newKey != "" {
				deps.deleteAsset(context.WithoutCancel(r.Context()), newKey)
			}
			resp.RespondError(w, r, toCustomError(err))
			return
		}

		if newKey != "" && current.AvatarKey != "" && current.AvatarKey != newKey {
			deps.deleteAssetAsync(current.AvatarKey)
		}

		logx.Ctx(r.Context()).Info().
			Bool("avatar_replaced", newKey != "").
			Msg("profile updated")

		resp.RespondSuccess(w, r, newIdentityResponse(deps, updated))
	}
}

// bindProfileUpdate reads either a multipart form or a JSON body into a patch.
// Only keys present in the request become present fields.
func bindProfileUpdate(w http.ResponseWriter, r *http.Request) (user.ProfilePatch, *multipart.FileHeader, *errs.CustomError) {
	var patch user.ProfilePatch

	switch {
	case req.IsMultipart(r):
		if customErr := req.SetupMultipart(w, r); customErr != nil {
			return patch, nil, customErr
		}

		if v, ok := req.FormValue(r, fieldName); ok {
			patch.Name = user.Some(v)
		}
		if v, ok := req.FormValue(r, fieldEmail); ok {
			patch.Email = user.Some(v)
		}
		if v, ok := req.FormValue(r, fieldPhone); ok {
			patch.Phone = user.Some(v)
		}

		files := r.MultipartForm.File[AvatarField]
		switch len(files) {
		case 0:
			return patch, nil, nil
		case 1:
			return patch, files[0], nil
		default:
			return patch, nil, errs.NewError(errs.ErrInvalidParams).WithMessage("Only one profile image can be uploaded.")
		}

	case req.IsJSON(r):
		var input UpdateProfileInput
		if customErr := req.BindJSON(w, r, &input); customErr != nil {
			return patch, nil, customErr
		}
		patch.Name = user.FromPtr(input.Name)
		patch.Email = user.FromPtr(input.Email)
		patch.Phone = user.FromPtr(input.Phone)
		return patch, nil, nil

	default:
		return patch, nil, errs.NewError(errs.ErrUnsupportedMediaType)
	}
}

func storeAvatar(ctx context.Context, deps *AppDeps, key string, fh *multipart.FileHeader) error {
	f, err := fh.Open()
	if err != nil {
		return err
	}
	defer f.Close()

	return deps.StorageService.Put(ctx, key, fh.Header.Get("Content-Type"), fh.Size, f)
}
