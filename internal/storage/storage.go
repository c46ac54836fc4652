// Package storage persists generated crosswords.
//
// Every backend stores the same record: the input words, the placed words
// and the grid size. The letter grid is never stored; it is rebuilt from the
// placed words on every read so the two can not drift apart.
package storage

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/bodul/crossgen/internal/layout"
)

// ErrNotFound is returned when no crossword has the requested ID.
var ErrNotFound = errors.New("storage: crossword not found")

// Crossword is a generated puzzle with its source words.
type Crossword struct {
	ID          string              `json:"id"`
	Title       string              `json:"title"`
	Words       []string            `json:"words"`
	Size        int                 `json:"size"`
	Grid        [][]string          `json:"grid"`
	PlacedWords []layout.PlacedWord `json:"placedWords"`
	Dropped     []string            `json:"dropped,omitempty"`
	CreatedAt   time.Time           `json:"created_at"`
	UpdatedAt   time.Time           `json:"updated_at"`
}

// New wraps a generation result. The ID is assigned by Save.
func New(title string, words []string, res *layout.Result) *Crossword {
	c := &Crossword{Title: title, Words: append([]string(nil), words...)}
	c.SetResult(res)
	return c
}

// SetResult replaces the layout, e.g. after a word was edited.
func (c *Crossword) SetResult(res *layout.Result) {
	c.Size = res.Size
	c.Grid = res.Grid
	c.PlacedWords = res.PlacedWords
	c.Dropped = res.Dropped
}

// Result returns the layout view of the crossword.
func (c *Crossword) Result() *layout.Result {
	return &layout.Result{Grid: c.Grid, PlacedWords: c.PlacedWords, Size: c.Size, Dropped: c.Dropped}
}

// Repository stores crosswords.
type Repository interface {
	// Save inserts or replaces c, assigning an ID and timestamps as needed.
	Save(ctx context.Context, c *Crossword) error
	Get(ctx context.Context, id string) (*Crossword, error)
	// List returns every crossword, most recent first.
	List(ctx context.Context) ([]*Crossword, error)
	Delete(ctx context.Context, id string) error
	Close() error
}

// Config selects a backend.
type Config struct {
	Driver       string
	SQLitePath   string
	DatabaseURL  string
	ProjectID    string
	QueryTimeout time.Duration
}

// Open creates the repository named by cfg.Driver.
func Open(ctx context.Context, cfg Config) (Repository, error) {
	if cfg.QueryTimeout <= 0 {
		cfg.QueryTimeout = 5 * time.Second
	}
	switch cfg.Driver {
	case "", "memory":
		return NewMemory(), nil
	case "sqlite":
		return OpenSQLite(ctx, cfg.SQLitePath, cfg.QueryTimeout)
	case "postgres":
		return OpenPostgres(ctx, cfg.DatabaseURL, cfg.QueryTimeout)
	case "mongo":
		return OpenMongo(ctx, cfg.DatabaseURL, cfg.QueryTimeout)
	case "firestore":
		return OpenFirestore(ctx, cfg.ProjectID, cfg.QueryTimeout)
	}
	return nil, fmt.Errorf("storage: unknown driver %q", cfg.Driver)
}

// stamp assigns an ID on first save and refreshes the timestamps.
func stamp(c *Crossword, now time.Time) {
	if c.ID == "" {
		c.ID = generateID()
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = now
	}
	c.UpdatedAt = now
}

func generateID() string {
	b := make([]byte, 8)
	rand.Read(b)
	return hex.EncodeToString(b)
}

// record is the stored form shared by every backend.
type record struct {
	ID          string `bson:"_id" firestore:"id"`
	Title       string `bson:"title" firestore:"title"`
	Words       string `bson:"words" firestore:"words"`
	Size        int    `bson:"size" firestore:"size"`
	PlacedWords string `bson:"placed_words" firestore:"placed_words"`
	Dropped     string `bson:"dropped" firestore:"dropped"`
	CreatedAt   int64  `bson:"created_at" firestore:"created_at"`
	UpdatedAt   int64  `bson:"updated_at" firestore:"updated_at"`
}

func encode(c *Crossword) (record, error) {
	words, err := json.Marshal(nonNil(c.Words))
	if err != nil {
		return record{}, fmt.Errorf("encode words: %w", err)
	}
	placed, err := json.Marshal(c.PlacedWords)
	if err != nil {
		return record{}, fmt.Errorf("encode placed words: %w", err)
	}
	dropped, err := json.Marshal(nonNil(c.Dropped))
	if err != nil {
		return record{}, fmt.Errorf("encode dropped words: %w", err)
	}
	return record{
		ID:          c.ID,
		Title:       c.Title,
		Words:       string(words),
		Size:        c.Size,
		PlacedWords: string(placed),
		Dropped:     string(dropped),
		CreatedAt:   c.CreatedAt.UnixNano(),
		UpdatedAt:   c.UpdatedAt.UnixNano(),
	}, nil
}

func decode(r record) (*Crossword, error) {
	c := &Crossword{
		ID:        r.ID,
		Title:     r.Title,
		Size:      r.Size,
		CreatedAt: time.Unix(0, r.CreatedAt).UTC(),
		UpdatedAt: time.Unix(0, r.UpdatedAt).UTC(),
	}
	if err := json.Unmarshal([]byte(r.Words), &c.Words); err != nil {
		return nil, fmt.Errorf("decode words of %s: %w", r.ID, err)
	}
	if err := json.Unmarshal([]byte(r.PlacedWords), &c.PlacedWords); err != nil {
		return nil, fmt.Errorf("decode placed words of %s: %w", r.ID, err)
	}
	if r.Dropped != "" {
		if err := json.Unmarshal([]byte(r.Dropped), &c.Dropped); err != nil {
			return nil, fmt.Errorf("decode dropped words of %s: %w", r.ID, err)
		}
	}
	grid, err := layout.Rebuild(c.Size, c.PlacedWords)
	if err != nil {
		return nil, fmt.Errorf("rebuild grid of %s: %w", r.ID, err)
	}
	c.Grid = grid
	return c, nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
