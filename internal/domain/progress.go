package domain

// ProgressFunc reports transfer or pagination progress.
// Called repeatedly: (50, 500), (100, 500), ... total is -1 when unknown.
type ProgressFunc func(loaded, total int64)

// SyncResult summarizes a catalog sync
type SyncResult struct {
	Type      ContentType // Which content type this result is for
	FromCache bool        // true if cache was fresh (no network fetch)
	Count     int         // total items after sync
}
