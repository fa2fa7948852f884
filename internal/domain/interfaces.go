package domain

import "context"

// AssetStore is the photo library the grid is backed by.
// Fetches may be slow and are cancelled through their context; caching calls are
// best-effort hints whose failures are never reported.
type AssetStore interface {
	// FetchImage decodes the asset at roughly the target pixel size.
	// Cancelling ctx abandons the request; the store does not wait for acknowledgement.
	FetchImage(ctx context.Context, id AssetID, target Size, quality Quality) (*Image, error)

	// StartCaching hints that the assets will be requested at target size soon
	StartCaching(assets []Asset, target Size)

	// StopCaching withdraws an earlier StartCaching hint
	StopCaching(assets []Asset, target Size)

	// StopCachingAll withdraws every outstanding hint
	StopCachingAll()

	// ListAssets returns all readable assets sorted by creation time, newest first
	ListAssets(ctx context.Context) ([]Asset, error)

	// Authorization reports whether the library may be read
	Authorization(ctx context.Context) AuthorizationStatus
}
