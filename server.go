package main

import (
	"context"
	"embed"
	"encoding/json"
	"errors"
	"io/fs"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/bodul/crossgen/internal/auth"
	"github.com/bodul/crossgen/internal/clue"
	"github.com/bodul/crossgen/internal/config"
	"github.com/bodul/crossgen/internal/logger"
	"github.com/bodul/crossgen/internal/storage"
)

//go:embed frontend
var frontendFS embed.FS

// rateLimiter is a simple per-IP token bucket rate limiter.
type rateLimiter struct {
	mu       sync.Mutex
	visitors map[string]*bucket
	rate     int           // tokens per interval
	interval time.Duration // refill interval
}

type bucket struct {
	tokens   int
	lastSeen time.Time
}

func newRateLimiter(ctx context.Context, rate int, interval time.Duration) *rateLimiter {
	rl := &rateLimiter{
		visitors: make(map[string]*bucket),
		rate:     rate,
		interval: interval,
	}
	// Cleanup stale entries every minute.
	go func() {
		ticker := time.NewTicker(time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
			}
			rl.mu.Lock()
			for ip, b := range rl.visitors {
				if time.Since(b.lastSeen) > 5*time.Minute {
					delete(rl.visitors, ip)
				}
			}
			rl.mu.Unlock()
		}
	}()
	return rl
}

func (rl *rateLimiter) allow(ip string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	b, ok := rl.visitors[ip]
	if !ok {
		rl.visitors[ip] = &bucket{tokens: rl.rate - 1, lastSeen: time.Now()}
		return true
	}

	// Refill tokens based on elapsed time.
	elapsed := time.Since(b.lastSeen)
	refill := int(elapsed / rl.interval)
	if refill > 0 {
		b.tokens += refill * rl.rate
		if b.tokens > rl.rate {
			b.tokens = rl.rate
		}
		b.lastSeen = time.Now()
	}

	if b.tokens <= 0 {
		return false
	}
	b.tokens--
	return true
}

// Server is the main HTTP server.
type Server struct {
	mux        *http.ServeMux
	store      *Store
	describer  clue.Describer // nil when clue generation is disabled
	clueOpts   clue.Options
	tokens     *auth.Tokenizer
	sse        *Broadcaster
	generateRL *rateLimiter
	moveRL     *rateLimiter
	maxWords   int

	// ctx outlives requests; background clue jobs run under it.
	ctx    context.Context
	cancel context.CancelFunc
	jobs   sync.WaitGroup
}

// NewServer creates a configured HTTP server. describer may be nil.
func NewServer(cfg *config.Config, store *Store, describer clue.Describer, tokens *auth.Tokenizer) *Server {
	ctx, cancel := context.WithCancel(context.Background())
	s := &Server{
		mux:       http.NewServeMux(),
		store:     store,
		describer: describer,
		clueOpts: clue.Options{
			Timeout:     cfg.Clues.Timeout,
			Concurrency: cfg.Clues.Concurrency,
		},
		tokens:     tokens,
		sse:        NewBroadcaster(),
		generateRL: newRateLimiter(ctx, cfg.Server.GeneratePerMinute, time.Minute),
		moveRL:     newRateLimiter(ctx, cfg.Server.MovesPerSecond, time.Second),
		maxWords:   cfg.Server.MaxWords,
		ctx:        ctx,
		cancel:     cancel,
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	// Crossword API
	s.mux.HandleFunc("POST /api/crosswords", s.handleCreateCrossword)
	s.mux.HandleFunc("GET /api/crosswords", s.handleListCrosswords)
	s.mux.HandleFunc("GET /api/crosswords/{id}", s.handleGetCrossword)
	s.mux.HandleFunc("DELETE /api/crosswords/{id}", s.handleDeleteCrossword)
	s.mux.HandleFunc("PUT /api/crosswords/{id}/words/{index}", s.handleEditWord)
	s.mux.HandleFunc("POST /api/crosswords/{id}/clues", s.handleDescribe)
	s.mux.HandleFunc("GET /api/crosswords/{id}/cells/{x}/{y}", s.handleCell)
	s.mux.HandleFunc("GET /api/crosswords/{id}/events", s.handleCrosswordEvents)

	// Game API
	s.mux.HandleFunc("POST /api/games", s.handleCreateGame)
	s.mux.HandleFunc("GET /api/games/{id}", s.handleGetGame)
	s.mux.HandleFunc("POST /api/games/{id}/join", s.handleJoinGame)
	s.mux.HandleFunc("POST /api/games/{id}/move", s.handleMove)
	s.mux.HandleFunc("POST /api/games/{id}/check", s.handleCheck)
	s.mux.HandleFunc("GET /api/games/{id}/events", s.handleGameEvents)
	s.mux.HandleFunc("GET /api/games/{id}/ws", s.handleGameSocket)

	// Frontend static files
	frontendDir, _ := fs.Sub(frontendFS, "frontend")
	fileServer := http.FileServer(http.FS(frontendDir))
	s.mux.HandleFunc("GET /game/{id}", s.handleGamePage)
	s.mux.Handle("GET /", fileServer)
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.Header().Set("X-Frame-Options", "DENY")
	w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
	w.Header().Set("Content-Security-Policy", "default-src 'self'; style-src 'self' 'unsafe-inline'; img-src 'self' data:; connect-src 'self'")
	s.mux.ServeHTTP(w, r)
}

// Close stops the background clue jobs and waits for them to return.
func (s *Server) Close() {
	s.cancel()
	s.jobs.Wait()
}

// --- Game handlers ---

// POST /api/games: create a game from a crossword.
func (s *Server) handleCreateGame(w http.ResponseWriter, r *http.Request) {
	var req struct {
		CrosswordID string `json:"crossword_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.CrosswordID == "" {
		jsonError(w, "Champ 'crossword_id' requis", http.StatusBadRequest)
		return
	}

	game, err := s.store.CreateGame(r.Context(), req.CrosswordID)
	if errors.Is(err, storage.ErrNotFound) {
		jsonError(w, "Grille introuvable", http.StatusNotFound)
		return
	}
	if err != nil {
		logger.Error("Creating game failed", "error", err)
		jsonError(w, "Erreur de création de la partie", http.StatusInternalServerError)
		return
	}
	logger.Info("Game created", "game", game.ID, "crossword", game.CrosswordID)

	writeJSON(w, http.StatusCreated, game.view())
}

// GET /api/games/{id}: get current game state with its crossword.
func (s *Server) handleGetGame(w http.ResponseWriter, r *http.Request) {
	game := s.store.GetGame(r.PathValue("id"))
	if game == nil {
		jsonError(w, "Partie introuvable", http.StatusNotFound)
		return
	}

	resp := struct {
		gameView
		Crossword *crosswordView `json:"crossword"`
	}{gameView: game.view()}
	if c, err := s.store.GetCrossword(r.Context(), game.CrosswordID); err == nil {
		view := newCrosswordView(c)
		resp.Crossword = &view
	}

	writeJSON(w, http.StatusOK, resp)
}

// POST /api/games/{id}/join: join a game with a pseudo.
func (s *Server) handleJoinGame(w http.ResponseWriter, r *http.Request) {
	game := s.store.GetGame(r.PathValue("id"))
	if game == nil {
		jsonError(w, "Partie introuvable", http.StatusNotFound)
		return
	}

	var req struct {
		Pseudo string `json:"pseudo"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Pseudo == "" {
		jsonError(w, "Champ 'pseudo' requis", http.StatusBadRequest)
		return
	}

	pseudo := sanitizePseudo(req.Pseudo)
	if pseudo == "" {
		jsonError(w, "Pseudo invalide", http.StatusBadRequest)
		return
	}

	player := game.AddPlayer(pseudo)
	token, err := s.tokens.Create(game.ID, player.Pseudo, player.Color)
	if err != nil {
		logger.Error("Signing player token failed", "error", err)
		jsonError(w, "Erreur de connexion", http.StatusInternalServerError)
		return
	}

	s.sse.Publish(gameTopic(game.ID), map[string]string{
		"type":   "player_joined",
		"pseudo": player.Pseudo,
		"color":  player.Color,
	})

	writeJSON(w, http.StatusOK, struct {
		*Player
		Token string `json:"token"`
	}{player, token})
}

// POST /api/games/{id}/move: place a letter.
func (s *Server) handleMove(w http.ResponseWriter, r *http.Request) {
	if !s.moveRL.allow(clientIP(r)) {
		jsonError(w, "Trop de requêtes, réessayez plus tard", http.StatusTooManyRequests)
		return
	}

	game := s.store.GetGame(r.PathValue("id"))
	if game == nil {
		jsonError(w, "Partie introuvable", http.StatusNotFound)
		return
	}

	pseudo, err := s.tokens.ReadPseudo(game.ID, bearerToken(r))
	if err != nil {
		jsonError(w, "Jeton invalide, rejoignez la partie", http.StatusUnauthorized)
		return
	}

	var req struct {
		Row   int    `json:"row"`
		Col   int    `json:"col"`
		Value string `json:"value"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, "Requête invalide", http.StatusBadRequest)
		return
	}

	// Validate: value must be empty (erase) or a single letter.
	value := strings.ToUpper(strings.TrimSpace(req.Value))
	if value != "" {
		rn, size := utf8.DecodeRuneInString(value)
		if size != len(value) || !unicode.IsLetter(rn) {
			jsonError(w, "Valeur invalide : une lettre ou vide", http.StatusBadRequest)
			return
		}
	}

	switch err := game.SetCell(req.Row, req.Col, value); {
	case errors.Is(err, errBlockedCell):
		jsonError(w, "Case noire", http.StatusBadRequest)
		return
	case err != nil:
		jsonError(w, "Position hors limites", http.StatusBadRequest)
		return
	}

	s.sse.Publish(gameTopic(game.ID), map[string]any{
		"type":   "cell_update",
		"row":    req.Row,
		"col":    req.Col,
		"value":  value,
		"pseudo": pseudo,
	})

	w.WriteHeader(http.StatusNoContent)
}

// POST /api/games/{id}/check: compare the grid with the solution.
func (s *Server) handleCheck(w http.ResponseWriter, r *http.Request) {
	game := s.store.GetGame(r.PathValue("id"))
	if game == nil {
		jsonError(w, "Partie introuvable", http.StatusNotFound)
		return
	}

	checks, solved := game.Check()
	if solved {
		s.sse.Publish(gameTopic(game.ID), map[string]string{"type": "solved"})
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"words":  checks,
		"solved": solved,
	})
}

// GET /api/games/{id}/events: SSE stream.
func (s *Server) handleGameEvents(w http.ResponseWriter, r *http.Request) {
	game := s.store.GetGame(r.PathValue("id"))
	if game == nil {
		jsonError(w, "Partie introuvable", http.StatusNotFound)
		return
	}

	playerPseudo := sanitizePseudo(r.URL.Query().Get("pseudo"))

	s.sse.ServeSSE(w, r, gameTopic(game.ID), s.ctx.Done(), func(c *client) {
		c.ch <- gameStateEvent(game)
	}, func() {
		s.playerLeft(game, playerPseudo)
	})
}

// gameStateEvent is sent to every new subscriber of a game.
func gameStateEvent(game *GameSession) string {
	evt, _ := json.Marshal(map[string]any{
		"type":    "game_state",
		"state":   game.GetState(),
		"players": game.Players(),
	})
	return string(evt)
}

// playerLeft removes a player whose stream ended and tells the others.
func (s *Server) playerLeft(game *GameSession, pseudo string) {
	if pseudo == "" {
		return
	}
	game.RemovePlayer(pseudo)
	s.sse.Publish(gameTopic(game.ID), map[string]string{
		"type":   "player_left",
		"pseudo": pseudo,
	})
}

// --- Frontend page handlers ---

// GET /game/{id}: serve the game page.
func (s *Server) handleGamePage(w http.ResponseWriter, _ *http.Request) {
	data, _ := frontendFS.ReadFile("frontend/game.html")
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write(data)
}

// --- Helpers ---

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Warning("Writing response failed", "error", err)
	}
}

func jsonError(w http.ResponseWriter, msg string, code int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}

func sanitizePseudo(s string) string {
	s = strings.TrimSpace(s)
	if utf8.RuneCountInString(s) > 20 {
		s = string([]rune(s)[:20])
	}
	return s
}

// clientIP is the rate limiting key: the remote host without its port.
func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func bearerToken(r *http.Request) string {
	token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
	if !ok {
		return ""
	}
	return strings.TrimSpace(token)
}
