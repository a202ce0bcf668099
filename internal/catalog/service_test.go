package catalog

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"

	"github.com/eliote-geeks/reveilartist/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type pagedRepo struct {
	items map[domain.ContentType][]*domain.Content
	calls atomic.Int32
	err   error
}

func (r *pagedRepo) ListContent(ctx context.Context, t domain.ContentType, offset, limit int) ([]*domain.Content, int, error) {
	r.calls.Add(1)
	if r.err != nil {
		return nil, 0, r.err
	}
	all := r.items[t]
	if offset >= len(all) {
		return nil, len(all), nil
	}
	end := min(offset+limit, len(all))
	return all[offset:end], len(all), nil
}

func makeContent(t domain.ContentType, n int) []*domain.Content {
	out := make([]*domain.Content, n)
	for i := range out {
		out[i] = &domain.Content{ID: fmt.Sprint(i), Type: t, Title: fmt.Sprintf("%s %d", t, i)}
	}
	return out
}

func TestSyncPagesAndReportsProgress(t *testing.T) {
	repo := &pagedRepo{items: map[domain.ContentType][]*domain.Content{
		domain.ContentTypeSound: makeContent(domain.ContentTypeSound, 120),
	}}
	svc := NewService(repo, 50, nil)

	var progress [][2]int64
	res, err := svc.Sync(context.Background(), domain.ContentTypeSound, func(loaded, total int64) {
		progress = append(progress, [2]int64{loaded, total})
	})
	require.NoError(t, err)
	assert.Equal(t, 120, res.Count)
	assert.False(t, res.FromCache)
	assert.Equal(t, [][2]int64{{50, 120}, {100, 120}, {120, 120}}, progress)
	assert.Equal(t, int32(3), repo.calls.Load())

	res, err = svc.Sync(context.Background(), domain.ContentTypeSound, nil)
	require.NoError(t, err)
	assert.True(t, res.FromCache)
	assert.Equal(t, int32(3), repo.calls.Load())
}

func TestFindKeepsTypesApart(t *testing.T) {
	repo := &pagedRepo{items: map[domain.ContentType][]*domain.Content{
		domain.ContentTypeSound: makeContent(domain.ContentTypeSound, 2),
		domain.ContentTypeEvent: makeContent(domain.ContentTypeEvent, 2),
	}}
	svc := NewService(repo, 0, nil)
	ctx := context.Background()

	_, err := svc.Sync(ctx, domain.ContentTypeSound, nil)
	require.NoError(t, err)
	_, err = svc.Sync(ctx, domain.ContentTypeEvent, nil)
	require.NoError(t, err)

	sound, ok := svc.Find(domain.Key("1", domain.ContentTypeSound))
	require.True(t, ok)
	event, ok := svc.Find(domain.Key("1", domain.ContentTypeEvent))
	require.True(t, ok)
	assert.NotEqual(t, sound.Title, event.Title)
	assert.Len(t, svc.All(), 4)
}

func TestLookupLoadsMissingType(t *testing.T) {
	repo := &pagedRepo{items: map[domain.ContentType][]*domain.Content{
		domain.ContentTypeEvent: makeContent(domain.ContentTypeEvent, 3),
	}}
	svc := NewService(repo, 0, nil)

	c, err := svc.Lookup(context.Background(), domain.Key("2", domain.ContentTypeEvent))
	require.NoError(t, err)
	assert.Equal(t, "event 2", c.Title)

	_, err = svc.Lookup(context.Background(), domain.Key("9", domain.ContentTypeEvent))
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestFailedRefreshKeepsCache(t *testing.T) {
	repo := &pagedRepo{items: map[domain.ContentType][]*domain.Content{
		domain.ContentTypeSound: makeContent(domain.ContentTypeSound, 2),
	}}
	svc := NewService(repo, 0, nil)
	_, err := svc.Sync(context.Background(), domain.ContentTypeSound, nil)
	require.NoError(t, err)

	repo.err = errors.New("boom")
	_, err = svc.Refresh(context.Background(), domain.ContentTypeSound, nil)
	require.Error(t, err)

	items, ok := svc.Cached(domain.ContentTypeSound)
	assert.True(t, ok)
	assert.Len(t, items, 2)
}

// overcountRepo claims more items than it ever returns
type overcountRepo struct {
	pagedRepo
}

func (r *overcountRepo) ListContent(ctx context.Context, t domain.ContentType, offset, limit int) ([]*domain.Content, int, error) {
	page, total, err := r.pagedRepo.ListContent(ctx, t, offset, limit)
	return page, total + 10, err
}

func TestRefreshStopsOnEmptyPage(t *testing.T) {
	repo := &overcountRepo{pagedRepo{items: map[domain.ContentType][]*domain.Content{
		domain.ContentTypeSound: makeContent(domain.ContentTypeSound, 3),
	}}}
	svc := NewService(repo, 2, nil)

	var last [2]int64
	res, err := svc.Refresh(context.Background(), domain.ContentTypeSound, func(loaded, total int64) {
		last = [2]int64{loaded, total}
	})
	require.NoError(t, err)
	assert.Equal(t, 3, res.Count)
	assert.Equal(t, [2]int64{3, 13}, last)
	assert.Equal(t, int32(3), repo.calls.Load())
}

func TestRefreshHonoursCancelledContext(t *testing.T) {
	repo := &pagedRepo{items: map[domain.ContentType][]*domain.Content{
		domain.ContentTypeSound: makeContent(domain.ContentTypeSound, 3),
	}}
	svc := NewService(repo, 0, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := svc.Refresh(ctx, domain.ContentTypeSound, nil)
	require.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, repo.calls.Load())

	_, ok := svc.Cached(domain.ContentTypeSound)
	assert.False(t, ok)
}
