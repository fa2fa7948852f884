package domain

import "errors"

// Sentinel errors for asset store operations
var (
	// ErrAssetNotFound indicates the requested asset does not exist
	ErrAssetNotFound = errors.New("asset not found")

	// ErrUnsupportedFormat indicates the asset could not be decoded
	ErrUnsupportedFormat = errors.New("unsupported image format")

	// ErrNotAuthorized indicates the library may not be read
	ErrNotAuthorized = errors.New("photo library access not authorized")

	// ErrStoreClosed indicates the store was used after Close
	ErrStoreClosed = errors.New("store is closed")
)
