package storage

import (
	"context"
)

// Store pairs a publisher with a fetcher into a put/get content store.
type Store struct {
	publisher interface {
		Put(ctx context.Context, data []byte) (string, error)
	}
	fetcher interface {
		Get(ctx context.Context, locator string) ([]byte, error)
	}
}

// NewStore combines an upload path and a retrieval path.
func NewStore(publisher *Publisher, race *Race) *Store {
	return &Store{publisher: publisher, fetcher: race}
}

// Put publishes data
func (s *Store) Put(ctx context.Context, data []byte) (string, error) {
	return s.publisher.Put(ctx, data)
}

// Get retrieves the bytes behind locator
func (s *Store) Get(ctx context.Context, locator string) ([]byte, error) {
	return s.fetcher.Get(ctx, locator)
}
