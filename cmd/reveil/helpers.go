package main

import (
	"context"
	"fmt"

	"github.com/eliote-geeks/reveilartist/internal/domain"
)

// parseKey turns "<type> <id>" arguments into a content key
func parseKey(args []string) (domain.ContentKey, error) {
	t, err := domain.ParseContentType(args[0])
	if err != nil {
		return domain.ContentKey{}, err
	}
	return domain.Key(args[1], t), nil
}

// userError prefixes err with its user-facing remedy
func userError(err error) error {
	if err == nil {
		return nil
	}
	n := domain.Describe(err)
	return fmt.Errorf("%s. %s (%w)", n.Title, n.Remedy, err)
}

func contextOrBackground(ctx context.Context) context.Context {
	if ctx == nil {
		return context.Background()
	}
	return ctx
}
