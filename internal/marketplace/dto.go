package marketplace

// ContentDTO is a sound or event as returned by the catalog endpoints
type ContentDTO struct {
	ID              string  `json:"id"`
	Type            string  `json:"type"`
	Title           string  `json:"title"`
	Artist          string  `json:"artist"`
	Price           int64   `json:"price"` // minor units
	Currency        string  `json:"currency"`
	DurationSeconds float64 `json:"duration_seconds"`
	LikeCount       int     `json:"like_count"`
	CoverURL        string  `json:"cover_url"`
	StartsAt        string  `json:"starts_at"`
	Venue           string  `json:"venue"`
}

// ContentListResponse is a page of catalog content
type ContentListResponse struct {
	Items []ContentDTO `json:"items"`
	Total int          `json:"total"`
}

// PurchaseDTO is one owned content key
type PurchaseDTO struct {
	ContentID   string `json:"content_id"`
	ContentType string `json:"content_type"`
}

// PurchasesResponse lists a user's purchases
type PurchasesResponse struct {
	Items []PurchaseDTO `json:"items"`
}

// LikeStatusRequest asks for like state of many ids at once
type LikeStatusRequest struct {
	ContentIDs []string `json:"content_ids"`
}

// LikeStatusDTO is the like state of one content id
type LikeStatusDTO struct {
	ContentID string `json:"content_id"`
	Liked     bool   `json:"liked"`
	LikeCount int    `json:"like_count"`
}

// LikeStatusResponse is the batch like status payload
type LikeStatusResponse struct {
	Statuses []LikeStatusDTO `json:"statuses"`
}

// ToggleResponse is the authoritative state after a like toggle
type ToggleResponse struct {
	Liked     bool `json:"liked"`
	LikeCount int  `json:"like_count"`
}

// StreamResponse carries a playable stream location
type StreamResponse struct {
	URL string `json:"url"`
}

// ErrorResponse is the JSON body sent with failed requests
type ErrorResponse struct {
	Message string `json:"message"`
}

// LoginRequest is the password login body
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginResponse is returned by a successful login
type LoginResponse struct {
	Token string  `json:"token"`
	User  UserDTO `json:"user"`
}

// UserDTO is a marketplace account
type UserDTO struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}
