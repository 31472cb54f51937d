package storage

import "context"

//go:generate moq -out sessionstorage_mock.go . SessionStorage

// SessionData represents the provisioned device session: where to sync
// and which credential to attach. The token is opaque to the client.
type SessionData struct {
	ServerURL string `json:"server_url"` // base URL of the sync server
	SiteID    string `json:"site_id"`    // site (access scope) the token was issued for
	DeviceID  string `json:"device_id"`  // this device's identifier
	Token     string `json:"token"`      // bearer credential attached to every call
	ExpiresAt int64  `json:"expires_at"` // unix seconds, 0 means no expiry
}

// SessionStorage defines interface for storing the device session on client
type SessionStorage interface {
	// SaveSession stores the device session
	SaveSession(ctx context.Context, session *SessionData) error

	// GetSession retrieves the stored device session
	// Returns ErrSessionNotFound if the device was never configured
	GetSession(ctx context.Context) (*SessionData, error)

	// DeleteSession removes the stored device session
	DeleteSession(ctx context.Context) error

	// IsConfigured checks whether a non-expired session exists
	IsConfigured(ctx context.Context) (bool, error)
}
