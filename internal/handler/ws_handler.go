/*
Package handler provides the HTTP handler function for WebSocket connection upgrading and initialization.

This file contains the HandleWebSocket function, which is responsible for rate limiting,
authenticating the session token, upgrading the HTTP connection to WebSocket, and running
the session lifecycle.
*/
package handler

import (
	"net/http"

	"github.com/gorilla/websocket"

	"seotracker/internal/app/session"
	"seotracker/internal/app/user"
	"seotracker/internal/pkg/auth/jwt"
	"seotracker/internal/pkg/errs"
	"seotracker/internal/pkg/limiter"
	"seotracker/internal/pkg/logx"
	"seotracker/internal/pkg/resp"
)

// HandleWebSocket creates an HTTP HandlerFunc to process WebSocket connection requests.
// Browsers cannot set headers on WebSocket upgrades, so the session token rides in the
// "t" query parameter instead of Authorization.
func HandleWebSocket(upgrader websocket.Upgrader, rateLimiter *limiter.IPRateLimiter, deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ip := limiter.ClientIP(r)
		if !rateLimiter.Allow(ip) {
			logx.Warn("WebSocket connection rejected: Rate limit exceeded.", "ip", ip)
			resp.RespondError(w, r, errs.NewError(errs.ErrRateLimitExceeded))
			return
		}

		tokenString := r.URL.Query().Get("t")
		if tokenString == "" {
			logx.Warn("WebSocket request rejected: Missing session token")
			resp.RespondError(w, r, errs.NewError(errs.ErrUnauthorized))
			return
		}

		payload, err := jwt.ParseToken(tokenString, deps.Config.JWTSecret)
		if err != nil {
			logx.Warn("WebSocket request rejected: Invalid session token", "error", err)
			resp.RespondError(w, r, errs.NewError(errs.ErrUnauthorized))
			return
		}

		currentUser, err := deps.Store.GetUser(r.Context(), payload.ID)
		if err != nil {
			currentUser = user.User{
				ID:          payload.ID,
				DisplayName: payload.DisplayName,
			}
		}

		logx.Info("Attempting to upgrade connection", "user_id", payload.ID)

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			logx.Error(err, "Failed to upgrade connection to WebSocket")
			return
		}

		sess := session.New(deps.Store, deps.Clock, deps.SessionConfig, currentUser, conn)

		deps.Sessions.Attach(sess)
		defer deps.Sessions.Detach(sess)

		logx.Info("WebSocket connection established and session attached", "user_id", payload.ID)

		sess.Run(r.Context())
	}
}
