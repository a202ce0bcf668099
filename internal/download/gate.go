// Package download authorizes and performs content downloads.
package download

import (
	"context"
	"errors"
	"io"
	"log/slog"

	"github.com/eliote-geeks/reveilartist/internal/domain"
)

// Ownership answers whether content is already purchased
type Ownership interface {
	Has(id string, t domain.ContentType) bool
}

// Gate releases binaries only to entitled users: free content, or content in
// the purchase registry.
type Gate struct {
	repo   domain.ContentRepository
	owned  Ownership
	saver  domain.FileSaver
	logger *slog.Logger
}

// NewGate creates a download gate
func NewGate(repo domain.ContentRepository, owned Ownership, saver domain.FileSaver, logger *slog.Logger) *Gate {
	if logger == nil {
		logger = slog.Default()
	}
	return &Gate{repo: repo, owned: owned, saver: saver, logger: logger}
}

// Entitled reports whether content may be downloaded
func (g *Gate) Entitled(c domain.Content) bool {
	if c.UnitPrice <= 0 {
		return true
	}
	return g.owned != nil && g.owned.Has(c.ID, c.Type)
}

// Download fetches the content binary and hands it to the saver, returning the
// saved path. Unentitled content fails with ErrNotEntitled before any request
// is made; transfer problems fail with a *domain.TransferError.
func (g *Gate) Download(ctx context.Context, c domain.Content, progress domain.ProgressFunc) (string, error) {
	if !g.Entitled(c) {
		g.logger.Info("download refused", "key", c.Key().String())
		return "", domain.ErrNotEntitled
	}

	body, size, filename, err := g.repo.FetchContent(ctx, c.Key())
	if err != nil {
		g.logger.Error("failed to fetch content", "error", err, "key", c.Key().String())
		return "", asTransferError(c.ID, err)
	}
	defer body.Close()

	if filename == "" {
		filename = defaultFilename(c)
	}

	r := &progressReader{r: body, total: size, report: progress}
	path, err := g.saver.Save(filename, r)
	if err != nil {
		// Cancellation and read failures surface from the body reader
		if r.readErr != nil {
			g.logger.Error("content transfer interrupted", "error", r.readErr, "key", c.Key().String())
			return "", asTransferError(c.ID, r.readErr)
		}
		g.logger.Error("failed to save content", "error", err, "key", c.Key().String())
		return "", err
	}
	g.logger.Info("downloaded content", "key", c.Key().String(), "bytes", r.read, "path", path)
	return path, nil
}

// asTransferError keeps entitlement and auth failures distinct and folds every
// other failure into a TransferError.
func asTransferError(id string, err error) error {
	var te *domain.TransferError
	switch {
	case errors.As(err, &te):
		return err
	case errors.Is(err, domain.ErrNotEntitled), errors.Is(err, domain.ErrUnauthenticated):
		return err
	default:
		return &domain.TransferError{ContentID: id, Err: err}
	}
}

func defaultFilename(c domain.Content) string {
	name := c.Title
	if name == "" {
		name = string(c.Type) + "-" + c.ID
	}
	if c.Type == domain.ContentTypeEvent {
		return name + ".pdf"
	}
	return name + ".mp3"
}

// progressReader counts bytes and reports progress as they are read
type progressReader struct {
	r       io.Reader
	total   int64
	read    int64
	report  domain.ProgressFunc
	readErr error
}

func (p *progressReader) Read(b []byte) (int, error) {
	n, err := p.r.Read(b)
	p.read += int64(n)
	if n > 0 && p.report != nil {
		p.report(p.read, p.total)
	}
	if err == io.EOF && p.total >= 0 && p.read != p.total {
		// Short body: fail the save rather than keep a truncated file
		err = io.ErrUnexpectedEOF
	}
	if err != nil && err != io.EOF {
		p.readErr = err
	}
	return n, err
}
