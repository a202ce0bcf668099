package download

import (
	"bytes"
	"context"
	"errors"
	"io"
	"testing"

	"github.com/eliote-geeks/reveilartist/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type ownedSet map[domain.ContentKey]bool

func (o ownedSet) Has(id string, t domain.ContentType) bool { return o[domain.Key(id, t)] }

type fakeRepo struct {
	calls   int
	payload []byte
	size    int64
	err     error
	bodyErr error
}

func (f *fakeRepo) FetchContent(ctx context.Context, key domain.ContentKey) (io.ReadCloser, int64, string, error) {
	f.calls++
	if f.err != nil {
		return nil, 0, "", f.err
	}
	var r io.Reader = bytes.NewReader(f.payload)
	if f.bodyErr != nil {
		r = io.MultiReader(r, errReader{f.bodyErr})
	}
	return io.NopCloser(r), f.size, "", nil
}

func (f *fakeRepo) ResolveStreamURL(ctx context.Context, id string) (string, error) {
	return "", nil
}

type errReader struct{ err error }

func (e errReader) Read([]byte) (int, error) { return 0, e.err }

type memSaver struct {
	saved map[string][]byte
}

func (m *memSaver) Save(name string, r io.Reader) (string, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}
	if m.saved == nil {
		m.saved = map[string][]byte{}
	}
	m.saved[name] = data
	return "/downloads/" + name, nil
}

func paidSound() domain.Content {
	return domain.Content{ID: "s1", Type: domain.ContentTypeSound, Title: "Song", UnitPrice: 500}
}

func TestUnpurchasedPaidContentIsRefusedBeforeNetwork(t *testing.T) {
	repo := &fakeRepo{payload: []byte("abc"), size: 3}
	g := NewGate(repo, ownedSet{}, &memSaver{}, nil)

	_, err := g.Download(context.Background(), paidSound(), nil)
	assert.ErrorIs(t, err, domain.ErrNotEntitled)
	assert.NotErrorIs(t, err, domain.ErrTransfer)
	assert.Zero(t, repo.calls)
}

func TestOwnershipIsScopedByType(t *testing.T) {
	repo := &fakeRepo{payload: []byte("abc"), size: 3}
	owned := ownedSet{domain.Key("s1", domain.ContentTypeEvent): true}
	g := NewGate(repo, owned, &memSaver{}, nil)

	_, err := g.Download(context.Background(), paidSound(), nil)
	assert.ErrorIs(t, err, domain.ErrNotEntitled)
}

func TestPurchasedContentDownloadsWithProgress(t *testing.T) {
	payload := bytes.Repeat([]byte("x"), 64*1024)
	repo := &fakeRepo{payload: payload, size: int64(len(payload))}
	saver := &memSaver{}
	owned := ownedSet{domain.Key("s1", domain.ContentTypeSound): true}
	g := NewGate(repo, owned, saver, nil)

	var last, total int64
	path, err := g.Download(context.Background(), paidSound(), func(loaded, t int64) {
		last, total = loaded, t
	})
	require.NoError(t, err)
	assert.Equal(t, "/downloads/Song.mp3", path)
	assert.Equal(t, payload, saver.saved["Song.mp3"])
	assert.Equal(t, int64(len(payload)), last)
	assert.Equal(t, int64(len(payload)), total)
}

func TestFreeContentNeedsNoPurchase(t *testing.T) {
	repo := &fakeRepo{payload: []byte("ticket"), size: -1}
	saver := &memSaver{}
	g := NewGate(repo, nil, saver, nil)

	c := domain.Content{ID: "e1", Type: domain.ContentTypeEvent, Title: "Open Air"}
	path, err := g.Download(context.Background(), c, nil)
	require.NoError(t, err)
	assert.Equal(t, "/downloads/Open Air.pdf", path)
}

func TestNetworkFailureIsTransferError(t *testing.T) {
	repo := &fakeRepo{err: &domain.TransferError{ContentID: "s1", StatusCode: 503, Message: "maintenance"}}
	owned := ownedSet{domain.Key("s1", domain.ContentTypeSound): true}
	g := NewGate(repo, owned, &memSaver{}, nil)

	_, err := g.Download(context.Background(), paidSound(), nil)
	assert.ErrorIs(t, err, domain.ErrTransfer)
	assert.NotErrorIs(t, err, domain.ErrNotEntitled)

	var te *domain.TransferError
	require.True(t, errors.As(err, &te))
	assert.Equal(t, 503, te.StatusCode)
	assert.Equal(t, "maintenance", te.Message)
}

func TestPlainErrorsAreWrappedAsTransferErrors(t *testing.T) {
	repo := &fakeRepo{err: errors.New("dial tcp: connection refused")}
	g := NewGate(repo, nil, &memSaver{}, nil)

	_, err := g.Download(context.Background(), domain.Content{ID: "f", Type: domain.ContentTypeSound}, nil)
	assert.ErrorIs(t, err, domain.ErrTransfer)
}

func TestInterruptedBodyIsTransferError(t *testing.T) {
	repo := &fakeRepo{payload: []byte("abc"), size: 3, bodyErr: errors.New("connection reset")}
	g := NewGate(repo, nil, &memSaver{}, nil)

	_, err := g.Download(context.Background(), domain.Content{ID: "f", Type: domain.ContentTypeSound}, nil)
	assert.ErrorIs(t, err, domain.ErrTransfer)
}

func TestTruncatedBodyIsTransferError(t *testing.T) {
	repo := &fakeRepo{payload: []byte("abc"), size: 10}
	saver := &memSaver{}
	g := NewGate(repo, nil, saver, nil)

	_, err := g.Download(context.Background(), domain.Content{ID: "f", Type: domain.ContentTypeSound}, nil)
	assert.ErrorIs(t, err, domain.ErrTransfer)
	assert.Empty(t, saver.saved)
}
