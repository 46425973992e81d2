package handler

import (
	"seotracker/internal/app/session"
	"seotracker/internal/app/storage"
	"seotracker/internal/app/store"
	"seotracker/internal/configs"
	"seotracker/internal/pkg/clockx"
)

// AppDeps bundles the shared collaborators every handler needs.
type AppDeps struct {
	Config         *configs.AppConfig
	Store          *store.Store
	StorageService storage.StorageService
	Sessions       *session.Manager
	SessionConfig  session.Config
	Clock          clockx.Clock
}
