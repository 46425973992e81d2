/*
Package handler provides the HTTP handlers and routing setup for the SEO Tracker chat service.

This file contains the user endpoints: the signed-in user's own profile and
point-in-time peer lookups (profile plus displayed presence).
*/
package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"seotracker/internal/pkg/auth/jwt"
	"seotracker/internal/pkg/errs"
	"seotracker/internal/pkg/resp"
)

// HandleGetUserProfile creates an HTTP HandlerFunc returning the signed-in
// user's own document.
func HandleGetUserProfile(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		payload := jwt.GetPayloadFromContext(r)
		if payload == nil {
			resp.RespondError(w, r, errs.NewError(errs.ErrUnauthorized))
			return
		}

		u, err := deps.Store.GetUser(r.Context(), payload.ID)
		if err != nil {
			resp.RespondError(w, r, errs.AsCustomError(err))
			return
		}

		resp.RespondSuccess(w, r, u)
	}
}

// HandleGetUser creates an HTTP HandlerFunc returning a peer's profile with
// its displayed presence. Online rows older than the staleness threshold read
// back as offline so crashed sessions never look alive.
func HandleGetUser(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		payload := jwt.GetPayloadFromContext(r)
		if payload == nil {
			resp.RespondError(w, r, errs.NewError(errs.ErrUnauthorized))
			return
		}

		userID := chi.URLParam(r, "id")
		if userID == "" {
			resp.RespondError(w, r, errs.NewError(errs.ErrInvalidParams))
			return
		}

		u, err := deps.Store.GetUser(r.Context(), userID)
		if err != nil {
			resp.RespondError(w, r, errs.AsCustomError(err))
			return
		}

		u.Status = u.Displayed(deps.Clock.Now(), deps.Config.StaleThreshold)

		resp.RespondSuccess(w, r, u)
	}
}
