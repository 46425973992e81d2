/*
Package handler provides the HTTP handlers and routing setup for the SEO Tracker chat service.

This file contains the sign-in handler: it upserts the user document and
issues the JWT the browser presents on every subsequent request.
*/
package handler

import (
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"seotracker/internal/app/user"
	"seotracker/internal/pkg/auth/jwt"
	"seotracker/internal/pkg/errs"
	"seotracker/internal/pkg/req"
	"seotracker/internal/pkg/resp"
)

// MaxDisplayNameLength bounds the sign-in display name.
const MaxDisplayNameLength = 64

// SessionInput defines the JSON input structure for issuing a session.
type SessionInput struct {
	// UserID is optional; a returning user passes their existing id to keep
	// conversation history. Empty means a fresh identity.
	UserID      string `json:"userId,omitempty"`
	DisplayName string `json:"displayName"`
	Email       string `json:"email,omitempty"`
}

// HandleIssueSession creates an HTTP HandlerFunc that signs a user in:
// it upserts the user document and returns a session token plus the user.
func HandleIssueSession(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var input SessionInput
		if customErr := req.BindJSON(w, r, &input); customErr != nil {
			resp.RespondError(w, r, customErr)
			return
		}

		input.DisplayName = strings.TrimSpace(input.DisplayName)
		if input.DisplayName == "" || len(input.DisplayName) > MaxDisplayNameLength {
			resp.RespondError(w, r, errs.NewError(errs.ErrInvalidDisplayName))
			return
		}

		userID := input.UserID
		if userID == "" {
			userID = uuid.New().String()
		} else if _, err := uuid.Parse(userID); err != nil {
			resp.RespondError(w, r, errs.NewError(errs.ErrInvalidParams))
			return
		}

		u := user.User{
			ID:          userID,
			DisplayName: input.DisplayName,
			Email:       strings.TrimSpace(input.Email),
		}

		if err := deps.Store.UpsertUser(r.Context(), u); err != nil {
			resp.RespondError(w, r, errs.NewError(errs.ErrStoreUnavailable))
			return
		}

		payload := &jwt.Payload{
			ID:          userID,
			DisplayName: input.DisplayName,
		}

		token, err := jwt.GenerateToken(payload, deps.Config.JWTSecret, jwt.SessionExpiration)
		if err != nil {
			resp.RespondError(w, r, errs.NewError(errs.ErrUnknown))
			return
		}

		data := map[string]any{
			"token":     token,
			"expiresAt": time.Now().Add(jwt.SessionExpiration).UnixMilli(),
			"user": map[string]string{
				"id":          userID,
				"displayName": input.DisplayName,
			},
		}
		resp.RespondSuccess(w, r, data)
	}
}
