package marketplace

import (
	"time"

	"github.com/eliote-geeks/reveilartist/internal/domain"
)

// MapContents converts catalog DTOs to domain content, skipping unknown types
func MapContents(items []ContentDTO) []*domain.Content {
	out := make([]*domain.Content, 0, len(items))
	for _, item := range items {
		if c := mapContent(item); c != nil {
			out = append(out, c)
		}
	}
	return out
}

func mapContent(item ContentDTO) *domain.Content {
	t := domain.ContentType(item.Type)
	if !t.Valid() || item.ID == "" || item.Price < 0 {
		return nil
	}

	c := &domain.Content{
		ID:        item.ID,
		Type:      t,
		Title:     item.Title,
		Artist:    item.Artist,
		UnitPrice: item.Price,
		Currency:  item.Currency,
		Duration:  time.Duration(item.DurationSeconds * float64(time.Second)),
		LikeCount: item.LikeCount,
		CoverURL:  item.CoverURL,
		Venue:     item.Venue,
	}
	if item.StartsAt != "" {
		if ts, err := time.Parse(time.RFC3339, item.StartsAt); err == nil {
			c.StartsAt = ts
		}
	}
	return c
}

// MapPurchases converts purchase DTOs to content keys, skipping unknown types
func MapPurchases(items []PurchaseDTO) []domain.ContentKey {
	keys := make([]domain.ContentKey, 0, len(items))
	for _, item := range items {
		t := domain.ContentType(item.ContentType)
		if !t.Valid() || item.ContentID == "" {
			continue
		}
		keys = append(keys, domain.Key(item.ContentID, t))
	}
	return keys
}

// MapLikeStatuses converts batch like DTOs
func MapLikeStatuses(items []LikeStatusDTO) []domain.LikeStatus {
	out := make([]domain.LikeStatus, 0, len(items))
	for _, item := range items {
		out = append(out, domain.LikeStatus{
			ContentID: item.ContentID,
			Liked:     item.Liked,
			LikeCount: item.LikeCount,
		})
	}
	return out
}
