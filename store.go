package main

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"sync"

	"github.com/bodul/crossgen/internal/storage"
)

// Store pairs the crossword repository with the in-memory game sessions.
type Store struct {
	repo storage.Repository

	// editMu serializes read-modify-write cycles on crosswords, so a word
	// edit and a clue arriving in the background never overwrite each other.
	editMu sync.Mutex

	mu    sync.RWMutex
	games map[string]*GameSession
}

// NewStore creates a store backed by repo.
func NewStore(repo storage.Repository) *Store {
	return &Store{
		repo:  repo,
		games: make(map[string]*GameSession),
	}
}

// SaveCrossword persists a new crossword and assigns its ID.
func (s *Store) SaveCrossword(ctx context.Context, c *storage.Crossword) error {
	return s.repo.Save(ctx, c)
}

// GetCrossword returns a crossword by ID or storage.ErrNotFound.
func (s *Store) GetCrossword(ctx context.Context, id string) (*storage.Crossword, error) {
	return s.repo.Get(ctx, id)
}

// ListCrosswords returns all crosswords, most recent first.
func (s *Store) ListCrosswords(ctx context.Context) ([]*storage.Crossword, error) {
	return s.repo.List(ctx)
}

// DeleteCrossword removes a crossword. Running games keep their copy.
func (s *Store) DeleteCrossword(ctx context.Context, id string) error {
	return s.repo.Delete(ctx, id)
}

// UpdateCrossword loads a crossword, applies fn and saves the result.
// Nothing is saved when fn returns an error.
func (s *Store) UpdateCrossword(ctx context.Context, id string, fn func(c *storage.Crossword) error) (*storage.Crossword, error) {
	s.editMu.Lock()
	defer s.editMu.Unlock()

	c, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := fn(c); err != nil {
		return nil, err
	}
	if err := s.repo.Save(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

// CreateGame creates a new game session for a given crossword.
func (s *Store) CreateGame(ctx context.Context, crosswordID string) (*GameSession, error) {
	c, err := s.repo.Get(ctx, crosswordID)
	if err != nil {
		return nil, fmt.Errorf("crossword %s: %w", crosswordID, err)
	}

	game := NewGameSession(generateID(), c)

	s.mu.Lock()
	s.games[game.ID] = game
	s.mu.Unlock()

	return game, nil
}

// GetGame returns a game session by ID, or nil if not found.
func (s *Store) GetGame(id string) *GameSession {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.games[id]
}

// Close closes the repository.
func (s *Store) Close() error {
	return s.repo.Close()
}

func generateID() string {
	b := make([]byte, 8)
	rand.Read(b)
	return hex.EncodeToString(b)
}
