package domain

import (
	"image"
	"time"
)

// AssetID is the store-assigned identifier of a photo
type AssetID string

// Asset is an immutable reference to a photo owned by the asset store.
// The grid only ever holds assets by identity.
type Asset struct {
	ID        AssetID   // Store-specific unique identifier
	Name      string    // Display name (file name for directory libraries)
	CreatedAt time.Time // Stable sort key, newest first
}

// Quality is the delivery preference passed with a fetch
type Quality int

const (
	QualityFast Quality = iota // Small, fast delivery; may be degraded
	QualityHigh                // Full target size, best available quality
)

// String returns the metric/log label for the quality
func (q Quality) String() string {
	switch q {
	case QualityFast:
		return "fast"
	case QualityHigh:
		return "high"
	default:
		return "unknown"
	}
}

// Image is a decoded thumbnail delivered by the asset store
type Image struct {
	AssetID AssetID
	Size    Size        // Actual pixel size (may differ from the requested target)
	Quality Quality     // Quality the store actually delivered
	Pixels  image.Image // Decoded pixels
}

// AuthorizationStatus mirrors the photo library permission states
type AuthorizationStatus int

const (
	AuthorizationNotDetermined AuthorizationStatus = iota
	AuthorizationAuthorized
	AuthorizationLimited
	AuthorizationDenied
	AuthorizationRestricted
)

// String returns a human readable status
func (s AuthorizationStatus) String() string {
	switch s {
	case AuthorizationAuthorized:
		return "authorized"
	case AuthorizationLimited:
		return "limited"
	case AuthorizationDenied:
		return "denied"
	case AuthorizationRestricted:
		return "restricted"
	default:
		return "not determined"
	}
}

// CanRead returns true if assets may be listed under this status
func (s AuthorizationStatus) CanRead() bool {
	return s == AuthorizationAuthorized || s == AuthorizationLimited
}
