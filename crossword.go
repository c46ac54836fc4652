package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/bodul/crossgen/internal/clue"
	"github.com/bodul/crossgen/internal/layout"
	"github.com/bodul/crossgen/internal/logger"
	"github.com/bodul/crossgen/internal/storage"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var tracer = otel.Tracer("github.com/bodul/crossgen")

// crosswordView is the JSON form of a crossword returned by the API.
type crosswordView struct {
	ID          string              `json:"id"`
	Title       string              `json:"title"`
	Words       []string            `json:"words"`
	Size        int                 `json:"size"`
	Grid        [][]string          `json:"grid"`
	PlacedWords []layout.PlacedWord `json:"placedWords"`
	Across      []layout.PlacedWord `json:"across"`
	Down        []layout.PlacedWord `json:"down"`
	Dropped     []string            `json:"dropped"`
	CreatedAt   time.Time           `json:"created_at"`
	UpdatedAt   time.Time           `json:"updated_at"`
}

func newCrosswordView(c *storage.Crossword) crosswordView {
	across, down := layout.Clues(c.PlacedWords)
	return crosswordView{
		ID:          c.ID,
		Title:       c.Title,
		Words:       orEmpty(c.Words),
		Size:        c.Size,
		Grid:        c.Grid,
		PlacedWords: orEmpty(c.PlacedWords),
		Across:      orEmpty(across),
		Down:        orEmpty(down),
		Dropped:     orEmpty(c.Dropped),
		CreatedAt:   c.CreatedAt,
		UpdatedAt:   c.UpdatedAt,
	}
}

func orEmpty[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}

// generate runs the layout under a tracing span. previous is nil for a new
// crossword and holds the old words when an edit regenerates the layout.
func generate(ctx context.Context, words []string, previous []layout.PlacedWord) (*layout.Result, error) {
	name := "layout.Generate"
	if previous != nil {
		name = "layout.Regenerate"
	}
	_, span := tracer.Start(ctx, name, trace.WithAttributes(attribute.Int("crossword.words", len(words))))
	defer span.End()

	var (
		res *layout.Result
		err error
	)
	if previous != nil {
		res, err = layout.Regenerate(words, previous)
	} else {
		res, err = layout.Generate(words)
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	span.SetAttributes(
		attribute.Int("crossword.size", res.Size),
		attribute.Int("crossword.placed", len(res.PlacedWords)),
		attribute.Int("crossword.dropped", len(res.Dropped)),
	)
	if len(res.Dropped) > 0 {
		logger.Warning("Words left out of the crossword", "dropped", res.Dropped)
	}
	return res, nil
}

// POST /api/crosswords: generate and save a crossword.
func (s *Server) handleCreateCrossword(w http.ResponseWriter, r *http.Request) {
	if !s.generateRL.allow(clientIP(r)) {
		jsonError(w, "Trop de requêtes, réessayez plus tard", http.StatusTooManyRequests)
		return
	}

	var req struct {
		Title string   `json:"title"`
		Words []string `json:"words"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, "Requête invalide", http.StatusBadRequest)
		return
	}
	if len(req.Words) > s.maxWords {
		jsonError(w, fmt.Sprintf("Trop de mots (max %d)", s.maxWords), http.StatusBadRequest)
		return
	}

	res, err := generate(r.Context(), req.Words, nil)
	if errors.Is(err, layout.ErrInvalidInput) {
		jsonError(w, "Aucun mot utilisable", http.StatusBadRequest)
		return
	}
	if err != nil {
		logger.Error("Generation failed", "error", err)
		jsonError(w, "Erreur lors de la génération", http.StatusInternalServerError)
		return
	}

	c := storage.New(strings.TrimSpace(req.Title), req.Words, res)
	if err := s.store.SaveCrossword(r.Context(), c); err != nil {
		logger.Error("Saving crossword failed", "error", err)
		jsonError(w, "Erreur d'enregistrement", http.StatusInternalServerError)
		return
	}
	logger.Info("Crossword created", "id", c.ID, "placed", len(c.PlacedWords), "size", c.Size)

	s.describeInBackground(c.ID)
	writeJSON(w, http.StatusCreated, newCrosswordView(c))
}

// GET /api/crosswords: list all crosswords.
func (s *Server) handleListCrosswords(w http.ResponseWriter, r *http.Request) {
	list, err := s.store.ListCrosswords(r.Context())
	if err != nil {
		logger.Error("Listing crosswords failed", "error", err)
		jsonError(w, "Erreur de lecture", http.StatusInternalServerError)
		return
	}
	views := make([]crosswordView, 0, len(list))
	for _, c := range list {
		views = append(views, newCrosswordView(c))
	}
	writeJSON(w, http.StatusOK, views)
}

// GET /api/crosswords/{id}: get a single crossword.
func (s *Server) handleGetCrossword(w http.ResponseWriter, r *http.Request) {
	c, ok := s.crossword(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, newCrosswordView(c))
}

// DELETE /api/crosswords/{id}
func (s *Server) handleDeleteCrossword(w http.ResponseWriter, r *http.Request) {
	err := s.store.DeleteCrossword(r.Context(), r.PathValue("id"))
	if errors.Is(err, storage.ErrNotFound) {
		jsonError(w, "Grille introuvable", http.StatusNotFound)
		return
	}
	if err != nil {
		logger.Error("Deleting crossword failed", "error", err)
		jsonError(w, "Erreur de suppression", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

var errBadWordIndex = errors.New("word index out of range")

// PUT /api/crosswords/{id}/words/{index}: change one input word and lay
// the crossword out again. A blank word removes the entry.
func (s *Server) handleEditWord(w http.ResponseWriter, r *http.Request) {
	if !s.generateRL.allow(clientIP(r)) {
		jsonError(w, "Trop de requêtes, réessayez plus tard", http.StatusTooManyRequests)
		return
	}

	index, err := strconv.Atoi(r.PathValue("index"))
	if err != nil {
		jsonError(w, "Index de mot invalide", http.StatusBadRequest)
		return
	}
	var req struct {
		Word string `json:"word"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, "Requête invalide", http.StatusBadRequest)
		return
	}

	c, err := s.store.UpdateCrossword(r.Context(), r.PathValue("id"), func(c *storage.Crossword) error {
		if index < 0 || index >= len(c.Words) {
			return errBadWordIndex
		}
		words := append([]string(nil), c.Words...)
		if strings.TrimSpace(req.Word) == "" {
			words = append(words[:index], words[index+1:]...)
		} else {
			words[index] = req.Word
		}
		res, err := generate(r.Context(), words, c.PlacedWords)
		if err != nil {
			return err
		}
		c.Words = words
		c.SetResult(res)
		return nil
	})
	switch {
	case errors.Is(err, storage.ErrNotFound):
		jsonError(w, "Grille introuvable", http.StatusNotFound)
		return
	case errors.Is(err, errBadWordIndex):
		jsonError(w, "Index de mot invalide", http.StatusBadRequest)
		return
	case errors.Is(err, layout.ErrInvalidInput):
		jsonError(w, "Aucun mot utilisable", http.StatusBadRequest)
		return
	case err != nil:
		logger.Error("Editing crossword failed", "error", err)
		jsonError(w, "Erreur lors de la génération", http.StatusInternalServerError)
		return
	}

	s.describeInBackground(c.ID)
	writeJSON(w, http.StatusOK, newCrosswordView(c))
}

// POST /api/crosswords/{id}/clues: describe the words that still lack a clue.
func (s *Server) handleDescribe(w http.ResponseWriter, r *http.Request) {
	if s.describer == nil {
		jsonError(w, "Génération des définitions non configurée", http.StatusServiceUnavailable)
		return
	}
	c, ok := s.crossword(w, r)
	if !ok {
		return
	}
	s.describeInBackground(c.ID)
	w.WriteHeader(http.StatusAccepted)
}

// GET /api/crosswords/{id}/cells/{x}/{y}: the words crossing a cell.
func (s *Server) handleCell(w http.ResponseWriter, r *http.Request) {
	c, ok := s.crossword(w, r)
	if !ok {
		return
	}
	x, errX := strconv.Atoi(r.PathValue("x"))
	y, errY := strconv.Atoi(r.PathValue("y"))
	if errX != nil || errY != nil || x < 0 || y < 0 || x >= c.Size || y >= c.Size {
		jsonError(w, "Position hors limites", http.StatusBadRequest)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"x":      x,
		"y":      y,
		"letter": c.Grid[y][x],
		"words":  orEmpty(layout.WordsAt(c.PlacedWords, x, y)),
	})
}

// GET /api/crosswords/{id}/events: SSE stream of clue descriptions.
func (s *Server) handleCrosswordEvents(w http.ResponseWriter, r *http.Request) {
	c, ok := s.crossword(w, r)
	if !ok {
		return
	}
	s.sse.ServeSSE(w, r, crosswordTopic(c.ID), s.ctx.Done(), func(cl *client) {
		// Reread after registering so descriptions saved meanwhile are
		// either in the snapshot or in a later event.
		if latest, err := s.store.GetCrossword(r.Context(), c.ID); err == nil {
			c = latest
		}
		evt, _ := json.Marshal(map[string]any{
			"type":      "crossword",
			"crossword": newCrosswordView(c),
		})
		cl.ch <- string(evt)
	}, nil)
}

// crossword loads the crossword named in the path, writing the error
// response itself when it can not.
func (s *Server) crossword(w http.ResponseWriter, r *http.Request) (*storage.Crossword, bool) {
	c, err := s.store.GetCrossword(r.Context(), r.PathValue("id"))
	if errors.Is(err, storage.ErrNotFound) {
		jsonError(w, "Grille introuvable", http.StatusNotFound)
		return nil, false
	}
	if err != nil {
		logger.Error("Reading crossword failed", "error", err)
		jsonError(w, "Erreur de lecture", http.StatusInternalServerError)
		return nil, false
	}
	return c, true
}

// describeInBackground asks for the missing clues of a crossword. Each
// description is saved and published as soon as it arrives; a failed word
// keeps its empty description.
func (s *Server) describeInBackground(id string) {
	if s.describer == nil {
		return
	}
	s.jobs.Add(1)
	go func() {
		defer s.jobs.Done()

		c, err := s.store.GetCrossword(s.ctx, id)
		if err != nil {
			logger.Warning("Clue job skipped", "crossword", id, "error", err)
			return
		}
		clue.Attach(s.ctx, s.describer, c.PlacedWords, s.clueOpts, func(o clue.Outcome) {
			if o.Err != nil {
				logger.Warning("Clue generation failed", "crossword", id, "word", o.Word, "error", o.Err)
				return
			}
			s.saveDescription(id, o)
		})
	}()
}

// errNoChange aborts an update that would not change anything.
var errNoChange = errors.New("no change")

func (s *Server) saveDescription(id string, o clue.Outcome) {
	var updated []layout.PlacedWord
	_, err := s.store.UpdateCrossword(s.ctx, id, func(c *storage.Crossword) error {
		for i, pw := range c.PlacedWords {
			if pw.Description == "" && strings.EqualFold(pw.Word, o.Word) {
				c.PlacedWords[i].Description = o.Description
				updated = append(updated, c.PlacedWords[i])
			}
		}
		if len(updated) == 0 {
			return errNoChange
		}
		return nil
	})
	if errors.Is(err, errNoChange) {
		return
	}
	if err != nil {
		logger.Warning("Saving clue failed", "crossword", id, "word", o.Word, "error", err)
		return
	}
	for _, pw := range updated {
		s.sse.Publish(crosswordTopic(id), map[string]any{
			"type":        "description",
			"word":        pw.Word,
			"number":      pw.Number,
			"horizontal":  pw.Position.Horizontal,
			"description": pw.Description,
		})
	}
}
