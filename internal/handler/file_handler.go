/*
Package handler provides the HTTP handlers and routing setup for the SEO Tracker chat service.

This file contains the avatar endpoints: presigning a direct-to-bucket upload
URL and committing the uploaded key onto the user document.
*/
package handler

import (
	"net/http"
	"strings"

	"seotracker/internal/app/storage"
	"seotracker/internal/pkg/auth/jwt"
	"seotracker/internal/pkg/errs"
	"seotracker/internal/pkg/randx"
	"seotracker/internal/pkg/req"
	"seotracker/internal/pkg/resp"
)

// PresignAvatarInput defines the JSON input structure for generating an
// avatar upload URL.
type PresignAvatarInput struct {
	MimeType string `json:"mimeType"`
	FileSize int64  `json:"fileSize"`
}

// SetAvatarInput defines the JSON input structure for committing an uploaded
// avatar key.
type SetAvatarInput struct {
	AvatarKey string `json:"avatarKey"`
}

// HandlePresignAvatarURL creates an HTTP HandlerFunc that generates a
// time-limited, pre-signed URL for uploading the user's avatar image.
func HandlePresignAvatarURL(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		payload := jwt.GetPayloadFromContext(r)
		if payload == nil {
			resp.RespondError(w, r, errs.NewError(errs.ErrUnauthorized))
			return
		}

		if deps.StorageService == nil {
			resp.RespondError(w, r, errs.NewError(errs.ErrFileStorageFailed))
			return
		}

		var input PresignAvatarInput
		if customErr := req.BindJSON(w, r, &input); customErr != nil {
			resp.RespondError(w, r, customErr)
			return
		}

		ext, ok := storage.ValidAvatarType(input.MimeType)
		if !ok {
			resp.RespondError(w, r, errs.NewError(errs.ErrInvalidParams))
			return
		}

		if input.FileSize <= 0 || input.FileSize > storage.MaxAvatarBytes {
			resp.RespondError(w, r, errs.NewError(errs.ErrInvalidParams))
			return
		}

		suffix, err := randx.AvatarSuffix()
		if err != nil {
			resp.RespondError(w, r, errs.NewError(errs.ErrFileStorageFailed))
			return
		}

		avatarKey := storage.AvatarKey(payload.ID, suffix, ext)

		url, err := deps.StorageService.PresignUpload(
			r.Context(),
			avatarKey,
			input.MimeType,
			input.FileSize,
			storage.PresignTTL,
		)
		if err != nil {
			resp.RespondError(w, r, errs.NewError(errs.ErrFileStorageFailed))
			return
		}

		data := map[string]any{
			"presignedUrl": url,
			"avatarKey":    avatarKey,
		}
		resp.RespondSuccess(w, r, data)
	}
}

// HandleSetAvatar creates an HTTP HandlerFunc that commits an uploaded avatar
// key onto the user document. The key must belong to the signed-in user and
// must exist in the bucket.
func HandleSetAvatar(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		payload := jwt.GetPayloadFromContext(r)
		if payload == nil {
			resp.RespondError(w, r, errs.NewError(errs.ErrUnauthorized))
			return
		}

		if deps.StorageService == nil {
			resp.RespondError(w, r, errs.NewError(errs.ErrFileStorageFailed))
			return
		}

		var input SetAvatarInput
		if customErr := req.BindJSON(w, r, &input); customErr != nil {
			resp.RespondError(w, r, customErr)
			return
		}

		expectedPrefix := "avatars/" + payload.ID + "/"
		if !strings.HasPrefix(input.AvatarKey, expectedPrefix) {
			resp.RespondError(w, r, errs.NewError(errs.ErrPermissionDenied))
			return
		}

		if _, err := deps.StorageService.GetObjectMetadata(r.Context(), input.AvatarKey); err != nil {
			resp.RespondError(w, r, errs.NewError(errs.ErrInvalidParams))
			return
		}

		if err := deps.Store.SetAvatar(r.Context(), payload.ID, input.AvatarKey); err != nil {
			resp.RespondError(w, r, errs.AsCustomError(err))
			return
		}

		resp.RespondSuccess(w, r, map[string]string{"avatarKey": input.AvatarKey})
	}
}
