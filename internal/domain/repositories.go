package domain

import (
	"context"
	"io"
)

// CatalogRepository lists purchasable content
type CatalogRepository interface {
	// ListContent returns a page of content of one type.
	// Returns (items, totalSize, error) for pagination support
	ListContent(ctx context.Context, t ContentType, offset, limit int) ([]*Content, int, error)
}

// PurchaseRepository reports what the user owns
type PurchaseRepository interface {
	// GetPurchases returns every content key purchased by the user
	GetPurchases(ctx context.Context, userID string) ([]ContentKey, error)
}

// LikeRepository reads and toggles likes
type LikeRepository interface {
	// GetLikeStatuses returns like state for all ids in one round trip
	GetLikeStatuses(ctx context.Context, contentIDs []string) ([]LikeStatus, error)

	// ToggleLike flips the like on the server and returns the authoritative state
	ToggleLike(ctx context.Context, contentID string) (LikeStatus, error)
}

// ContentRepository fetches binaries and stream locations
type ContentRepository interface {
	// FetchContent opens the binary payload. size is -1 when unknown.
	FetchContent(ctx context.Context, key ContentKey) (body io.ReadCloser, size int64, filename string, err error)

	// ResolveStreamURL returns a URL the media layer can play
	ResolveStreamURL(ctx context.Context, trackID string) (string, error)
}

// RecommendationRepository fetches personalized recommendations
type RecommendationRepository interface {
	GetRecommendations(ctx context.Context) ([]*Content, error)
}

// Credentials exposes the current session credential
type Credentials interface {
	// Token returns the bearer token, empty when signed out
	Token() string
}

// AuthResult contains the result of a successful authentication
type AuthResult struct {
	Token    string // Bearer token for API calls
	UserID   string // User identifier
	Username string // Display name
}

// AuthFlow runs an interactive sign-in against the marketplace
type AuthFlow interface {
	// Run executes the authentication flow and returns credentials.
	// Implementations handle their own user interaction (prompting for credentials, etc.)
	Run(ctx context.Context, serverURL string) (*AuthResult, error)
}

// FileSaver hands a downloaded binary to the platform
type FileSaver interface {
	// Save stores r under a name derived from filename and returns the final path
	Save(filename string, r io.Reader) (string, error)
}
