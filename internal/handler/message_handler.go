/*
Package handler provides the HTTP handlers and routing setup for the SEO Tracker chat service.

This file contains the history endpoint: cursor pagination into a
conversation's older messages and on-demand reads of the archived tier.
Live messages flow over the WebSocket, never through here.
*/
package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"seotracker/internal/app/chat"
	"seotracker/internal/pkg/auth/jwt"
	"seotracker/internal/pkg/errs"
	"seotracker/internal/pkg/resp"
)

const (
	// DefaultHistoryPage is the page size when the client does not specify one.
	DefaultHistoryPage = 50

	// MaxHistoryPage caps the page size a client may request.
	MaxHistoryPage = 100
)

// HandleFetchMessages creates an HTTP HandlerFunc serving paged message
// history for one conversation. Query parameters:
//
//	tier=archived        read the archived tier instead of older live history
//	before=<unix millis> cursor timestamp (live history only)
//	beforeId=<id>        cursor message id, tie-breaker for equal timestamps
//	limit=<n>            page size
func HandleFetchMessages(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		payload := jwt.GetPayloadFromContext(r)
		if payload == nil {
			resp.RespondError(w, r, errs.NewError(errs.ErrUnauthorized))
			return
		}

		conversationID := chi.URLParam(r, "id")
		if conversationID == "" {
			resp.RespondError(w, r, errs.NewError(errs.ErrInvalidParams))
			return
		}

		conv, err := deps.Store.GetConversation(r.Context(), conversationID)
		if err != nil {
			resp.RespondError(w, r, errs.AsCustomError(err))
			return
		}

		if !conv.Has(payload.ID) {
			resp.RespondError(w, r, errs.NewError(errs.ErrNotParticipant))
			return
		}

		query := r.URL.Query()

		limit := DefaultHistoryPage
		if raw := query.Get("limit"); raw != "" {
			n, err := strconv.Atoi(raw)
			if err != nil || n < 1 {
				resp.RespondError(w, r, errs.NewError(errs.ErrInvalidParams))
				return
			}
			if n > MaxHistoryPage {
				n = MaxHistoryPage
			}
			limit = n
		}

		var messages []chat.Message

		if query.Get("tier") == "archived" {
			messages, err = deps.Store.FetchArchived(r.Context(), conversationID, limit)
		} else {
			cursor, cursorErr := parseCursor(query.Get("before"), query.Get("beforeId"))
			if cursorErr != nil {
				resp.RespondError(w, r, errs.NewError(errs.ErrInvalidParams))
				return
			}
			messages, err = deps.Store.FetchOlder(r.Context(), conversationID, cursor, limit)
		}

		if err != nil {
			resp.RespondError(w, r, errs.NewError(errs.ErrStoreUnavailable))
			return
		}

		data := map[string]any{
			"conversationId": conversationID,
			"messages":       messages,
			"hasMore":        len(messages) == limit,
		}
		resp.RespondSuccess(w, r, data)
	}
}

// parseCursor builds the pagination cursor from query parameters. An empty
// cursor means "from now", returning the newest page.
func parseCursor(beforeRaw, beforeID string) (chat.Message, error) {
	if beforeRaw == "" {
		return chat.Message{CreatedAt: time.Now().Add(time.Minute)}, nil
	}

	millis, err := strconv.ParseInt(beforeRaw, 10, 64)
	if err != nil {
		return chat.Message{}, err
	}

	return chat.Message{ID: beforeID, CreatedAt: time.UnixMilli(millis)}, nil
}
