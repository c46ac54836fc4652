package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"cloud.google.com/go/firestore"
)

// Firestore stores one document per crossword in Cloud Firestore.
type Firestore struct {
	client  *firestore.Client
	timeout time.Duration
}

// OpenFirestore creates a client for the project using Application Default Credentials.
func OpenFirestore(ctx context.Context, projectID string, timeout time.Duration) (*Firestore, error) {
	client, err := firestore.NewClient(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("creating firestore client: %w", err)
	}
	return &Firestore{client: client, timeout: timeout}, nil
}

func (f *Firestore) crosswords() *firestore.CollectionRef {
	return f.client.Collection("services").Doc("crossgen").Collection("crosswords")
}

// withTimeoutContext runs fn under the query timeout.
func (f *Firestore) withTimeoutContext(ctx context.Context, fn func(ctx context.Context) error) error {
	ctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()
	return fn(ctx)
}

// Save inserts or replaces c.
func (f *Firestore) Save(ctx context.Context, c *Crossword) error {
	stamp(c, time.Now())
	r, err := encode(c)
	if err != nil {
		return err
	}
	if err := f.withTimeoutContext(ctx, func(ctx context.Context) error {
		_, err := f.crosswords().Doc(r.ID).Set(ctx, r)
		return err
	}); err != nil {
		return fmt.Errorf("saving crossword: %w", err)
	}
	return nil
}

// Get reads a crossword by ID.
func (f *Firestore) Get(ctx context.Context, id string) (*Crossword, error) {
	var r record
	if err := f.withTimeoutContext(ctx, func(ctx context.Context) error {
		snapshot, err := f.crosswords().Doc(id).Get(ctx)
		if err != nil {
			if snapshot != nil && !snapshot.Exists() {
				return ErrNotFound
			}
			return err
		}
		return snapshot.DataTo(&r)
	}); err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("reading crossword: %w", err)
	}
	return decode(r)
}

// List reads every crossword, most recent first.
func (f *Firestore) List(ctx context.Context) ([]*Crossword, error) {
	var records []record
	if err := f.withTimeoutContext(ctx, func(ctx context.Context) error {
		snapshots, err := f.crosswords().OrderBy("created_at", firestore.Desc).Documents(ctx).GetAll()
		if err != nil {
			return err
		}
		for _, s := range snapshots {
			var r record
			if err := s.DataTo(&r); err != nil {
				return err
			}
			records = append(records, r)
		}
		return nil
	}); err != nil {
		return nil, fmt.Errorf("listing crosswords: %w", err)
	}
	list := make([]*Crossword, 0, len(records))
	for _, r := range records {
		c, err := decode(r)
		if err != nil {
			return nil, err
		}
		list = append(list, c)
	}
	return list, nil
}

// Delete removes a crossword.
func (f *Firestore) Delete(ctx context.Context, id string) error {
	if err := f.withTimeoutContext(ctx, func(ctx context.Context) error {
		doc := f.crosswords().Doc(id)
		snapshot, err := doc.Get(ctx)
		if err != nil {
			if snapshot != nil && !snapshot.Exists() {
				return ErrNotFound
			}
			return err
		}
		_, err = doc.Delete(ctx, firestore.LastUpdateTime(snapshot.UpdateTime))
		return err
	}); err != nil {
		if errors.Is(err, ErrNotFound) {
			return err
		}
		return fmt.Errorf("deleting crossword: %w", err)
	}
	return nil
}

// Close closes the client.
func (f *Firestore) Close() error {
	return f.client.Close()
}
