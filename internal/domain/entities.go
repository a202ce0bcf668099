package domain

import (
	"fmt"
	"time"
)

// ContentType distinguishes purchasable content kinds. Content ids are only
// unique within a type: sound "42" and event "42" are different items.
type ContentType string

const (
	ContentTypeSound ContentType = "sound"
	ContentTypeEvent ContentType = "event"
)

// Valid reports whether t is a known content type
func (t ContentType) Valid() bool {
	return t == ContentTypeSound || t == ContentTypeEvent
}

// ParseContentType converts user input ("sound", "sounds", "event", ...) to a ContentType
func ParseContentType(s string) (ContentType, error) {
	switch s {
	case "sound", "sounds", "track", "tracks":
		return ContentTypeSound, nil
	case "event", "events", "ticket", "tickets":
		return ContentTypeEvent, nil
	default:
		return "", fmt.Errorf("unknown content type: %q", s)
	}
}

// ContentKey identifies a piece of content across types
type ContentKey struct {
	ID   string      `json:"content_id"`
	Type ContentType `json:"content_type"`
}

// Key builds a ContentKey
func Key(id string, t ContentType) ContentKey {
	return ContentKey{ID: id, Type: t}
}

// String returns "type:id", used as a storage and map key
func (k ContentKey) String() string {
	return string(k.Type) + ":" + k.ID
}

// Content is a sound or event as listed by the catalog
type Content struct {
	ID        string        // Server-specific unique identifier
	Type      ContentType   // Sound or event
	Title     string        // Display title
	Artist    string        // Artist or organizer name
	UnitPrice int64         // Price in minor currency units; 0 means free
	Currency  string        // ISO currency code
	Duration  time.Duration // Natural duration (sounds only)
	LikeCount int           // Like count as listed (may be stale)
	CoverURL  string        // Artwork URL
	StartsAt  time.Time     // Event start (events only)
	Venue     string        // Event venue (events only)
}

// Key returns the content's identity key
func (c Content) Key() ContentKey {
	return ContentKey{ID: c.ID, Type: c.Type}
}

// IsFree reports whether the content costs nothing
func (c Content) IsFree() bool {
	return c.UnitPrice == 0
}

// IsPlayable reports whether the content can be previewed in the audio player
func (c Content) IsPlayable() bool {
	return c.Type == ContentTypeSound
}

// FormattedPrice returns the price for display, e.g. "12.50 EUR" or "Free"
func (c Content) FormattedPrice() string {
	return FormatPrice(c.UnitPrice, c.Currency)
}

// FormattedDuration returns the duration as m:ss
func (c Content) FormattedDuration() string {
	if c.Duration <= 0 {
		return ""
	}
	secs := int(c.Duration.Seconds())
	return fmt.Sprintf("%d:%02d", secs/60, secs%60)
}

// CartItem is a pending purchase. Identity is (ContentID, ContentType).
type CartItem struct {
	ContentID   string            `json:"content_id"`
	ContentType ContentType       `json:"content_type"`
	Title       string            `json:"title"`
	UnitPrice   int64             `json:"unit_price"`
	Quantity    int               `json:"quantity"`
	Metadata    map[string]string `json:"metadata,omitempty"`
}

// Key returns the item's identity key
func (i CartItem) Key() ContentKey {
	return ContentKey{ID: i.ContentID, Type: i.ContentType}
}

// Subtotal returns unit price times quantity
func (i CartItem) Subtotal() int64 {
	return i.UnitPrice * int64(i.Quantity)
}

// CartItemFromContent builds a cart item for the given content
func CartItemFromContent(c Content) CartItem {
	meta := map[string]string{}
	if c.Artist != "" {
		meta["artist"] = c.Artist
	}
	if c.Currency != "" {
		meta["currency"] = c.Currency
	}
	if c.Venue != "" {
		meta["venue"] = c.Venue
	}
	if !c.StartsAt.IsZero() {
		meta["starts_at"] = c.StartsAt.UTC().Format(time.RFC3339)
	}
	return CartItem{
		ContentID:   c.ID,
		ContentType: c.Type,
		Title:       c.Title,
		UnitPrice:   c.UnitPrice,
		Quantity:    1,
		Metadata:    meta,
	}
}

// LikeStatus is the server view of a content's like state
type LikeStatus struct {
	ContentID string `json:"content_id"`
	Liked     bool   `json:"liked"`
	LikeCount int    `json:"like_count"`
}

// User is the signed-in account
type User struct {
	ID   string
	Name string
}

// FormatPrice formats minor units as a decimal amount with currency
func FormatPrice(minor int64, currency string) string {
	if minor == 0 {
		return "Free"
	}
	sign := ""
	if minor < 0 {
		sign = "-"
		minor = -minor
	}
	s := fmt.Sprintf("%s%d.%02d", sign, minor/100, minor%100)
	if currency != "" {
		s += " " + currency
	}
	return s
}
