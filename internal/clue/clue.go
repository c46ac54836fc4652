// Package clue attaches human-readable definitions to placed words.
package clue

import (
	"context"
	"errors"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/bodul/crossgen/internal/layout"
)

// ErrEmptyDescription is returned by describers that got an empty answer.
var ErrEmptyDescription = errors.New("clue: empty description")

// Describer writes a crossword definition for a word.
type Describer interface {
	Describe(ctx context.Context, word string) (string, error)
}

// DescriberFunc adapts a function to Describer.
type DescriberFunc func(ctx context.Context, word string) (string, error)

func (f DescriberFunc) Describe(ctx context.Context, word string) (string, error) {
	return f(ctx, word)
}

// Options bound the work done by Attach.
type Options struct {
	// Timeout applies to each word separately. Zero means no per-word timeout.
	Timeout time.Duration
	// Concurrency is the maximum number of calls in flight. Values below 1 mean 1.
	Concurrency int
}

// Outcome reports what happened to one word.
type Outcome struct {
	Word        string
	Description string
	Err         error
}

// Attach describes every placed word that has no description yet and
// returns a copy of placed with the results filled in. Calls are
// independent: a failed or timed out call leaves that word unchanged and is
// reported through onResult, it never stops the others. Words with the same
// text, ignoring case, are described once. onResult may be nil and is called
// from the worker goroutines.
func Attach(ctx context.Context, d Describer, placed []layout.PlacedWord, opts Options, onResult func(Outcome)) []layout.PlacedWord {
	out := make([]layout.PlacedWord, len(placed))
	copy(out, placed)

	pending := map[string][]int{}
	var order []string
	for i, w := range out {
		if w.Description != "" {
			continue
		}
		key := strings.ToUpper(w.Word)
		if _, ok := pending[key]; !ok {
			order = append(order, key)
		}
		pending[key] = append(pending[key], i)
	}
	if len(order) == 0 {
		return out
	}

	results := make([]Outcome, len(order))
	var g errgroup.Group
	g.SetLimit(max(opts.Concurrency, 1))
	for n, key := range order {
		word := out[pending[key][0]].Word
		g.Go(func() error {
			res := describe(ctx, d, word, opts.Timeout)
			results[n] = res
			if onResult != nil {
				onResult(res)
			}
			return nil
		})
	}
	_ = g.Wait()

	for n, key := range order {
		if results[n].Err != nil {
			continue
		}
		for _, i := range pending[key] {
			out[i].Description = results[n].Description
		}
	}
	return out
}

func describe(ctx context.Context, d Describer, word string, timeout time.Duration) Outcome {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	text, err := d.Describe(ctx, word)
	if err == nil {
		text = strings.TrimSpace(text)
		if text == "" {
			err = ErrEmptyDescription
		}
	}
	if err != nil {
		return Outcome{Word: word, Err: err}
	}
	return Outcome{Word: word, Description: text}
}
