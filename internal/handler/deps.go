package handler

import (
	"context"
	"time"

	"popx/internal/app/storage"
	"popx/internal/app/user"
	"popx/internal/configs"
	"popx/internal/pkg/auth/jwt"
	"popx/internal/pkg/logx"
)

// assetDeleteTimeout bounds the background removal of a superseded avatar.
const assetDeleteTimeout = 10 * time.Second

type AppDeps struct {
	Config         *configs.AppConfig
	Users          *user.Service
	Tokens         *jwt.TokenService
	StorageService storage.StorageService

	// Now defaults to time.Now. Tests pin it to get stable upload keys.
	Now func() time.Time
}

func (d *AppDeps) now() time.Time {
	if d.Now != nil {
		return d.Now()
	}
	return time.Now()
}

// FullAssetURL turns a stored avatar key into the address clients load it from.
func (d *AppDeps) FullAssetURL(key string) string {
	if key == "" || d.StorageService == nil {
		return ""
	}
	return d.StorageService.URL(key)
}

// deleteAsset removes key and logs a failure. It never reports the error to the caller.
func (d *AppDeps) deleteAsset(ctx context.Context, key string) {
	if key == "" {
		return
	}
	if err := d.StorageService.Delete(ctx, key); err != nil {
		logx.Error(err, "storage: failed to delete avatar", "key", key)
	}
}

// deleteAssetAsync runs deleteAsset in the background with its own deadline.
func (d *AppDeps) deleteAssetAsync(key string) {
	go func(k string) {
		ctx, cancel := context.WithTimeout(context.Background(), assetDeleteTimeout)
		defer cancel()
		d.deleteAsset(ctx, k)
	}(key)
}
