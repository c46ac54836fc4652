package main

import (
	"bufio"
	"context"
	"crypto/rand"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/bodul/crossgen/internal/auth"
	"github.com/bodul/crossgen/internal/clue"
	"github.com/bodul/crossgen/internal/config"
	"github.com/bodul/crossgen/internal/layout"
	"github.com/bodul/crossgen/internal/storage"
)

func newTestServer(t *testing.T, describer clue.Describer) *Server {
	t.Helper()
	return newTestServerWithRepo(t, describer, storage.NewMemory())
}

func newTestServerWithRepo(t *testing.T, describer clue.Describer, repo storage.Repository) *Server {
	t.Helper()
	tokens, err := auth.TokenizerConfig{KeyReader: rand.Reader, Validity: time.Hour}.NewTokenizer()
	if err != nil {
		t.Fatal(err)
	}
	cfg := config.Default()
	cfg.Server.MaxWords = 10
	srv := NewServer(cfg, NewStore(repo), describer, tokens)
	t.Cleanup(srv.Close)
	return srv
}

// do sends a request to srv. headers are key/value pairs.
func do(srv *Server, method, path, body string, headers ...string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	w := httptest.NewRecorder()
	srv.ServeHTTP(w, req)
	return w
}

// createCrossword generates cat/car/dog: DOG across at (8,8) #1, CAT
// across and CAR down from (8,10) #2.
func createCrossword(t *testing.T, srv *Server) crosswordView {
	t.Helper()
	w := do(srv, "POST", "/api/crosswords", `{"title":"Animaux","words":["cat","car","dog"]}`)
	if w.Code != http.StatusCreated {
		t.Fatalf("create crossword: expected 201, got %d: %s", w.Code, w.Body.String())
	}
	var view crosswordView
	if err := json.NewDecoder(w.Body).Decode(&view); err != nil {
		t.Fatal(err)
	}
	return view
}

func createGame(t *testing.T, srv *Server, crosswordID string) string {
	t.Helper()
	w := do(srv, "POST", "/api/games", `{"crossword_id":"`+crosswordID+`"}`)
	if w.Code != http.StatusCreated {
		t.Fatalf("create game: expected 201, got %d: %s", w.Code, w.Body.String())
	}
	var game struct {
		ID string `json:"id"`
	}
	json.NewDecoder(w.Body).Decode(&game)
	if game.ID == "" {
		t.Fatal("game ID is empty")
	}
	return game.ID
}

func joinGame(t *testing.T, srv *Server, gameID, pseudo string) string {
	t.Helper()
	w := do(srv, "POST", "/api/games/"+gameID+"/join", `{"pseudo":"`+pseudo+`"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("join game: expected 200, got %d: %s", w.Code, w.Body.String())
	}
	var player struct {
		Pseudo string `json:"pseudo"`
		Color  string `json:"color"`
		Token  string `json:"token"`
	}
	json.NewDecoder(w.Body).Decode(&player)
	if player.Pseudo != pseudo || player.Color == "" || player.Token == "" {
		t.Fatalf("unexpected player %+v", player)
	}
	return player.Token
}

func TestGamePageRoute(t *testing.T) {
	srv := newTestServer(t, nil)

	w := do(srv, "GET", "/game/abc123", "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); !strings.Contains(ct, "text/html") {
		t.Fatalf("expected text/html, got %s", ct)
	}
	if !strings.Contains(w.Body.String(), "Mots Croisés") {
		t.Fatal("game page does not contain expected title")
	}
}

func TestCreateCrossword(t *testing.T) {
	srv := newTestServer(t, nil)
	view := createCrossword(t, srv)

	if view.ID == "" || view.Title != "Animaux" {
		t.Fatalf("unexpected crossword %+v", view)
	}
	if view.Size != 20 || len(view.Grid) != 20 {
		t.Fatalf("expected a 20x20 grid, got size %d with %d rows", view.Size, len(view.Grid))
	}
	if len(view.PlacedWords) != 3 || len(view.Dropped) != 0 {
		t.Fatalf("expected 3 placed words, got %d (dropped %v)", len(view.PlacedWords), view.Dropped)
	}
	if got := view.Grid[10][8]; got != "C" {
		t.Fatalf("expected C at (8,10), got %q", got)
	}
	if len(view.Across) != 2 || view.Across[0].Word != "dog" || view.Across[1].Word != "cat" {
		t.Fatalf("unexpected across clues %+v", view.Across)
	}
	if len(view.Down) != 1 || view.Down[0].Word != "car" || view.Down[0].Number != 2 {
		t.Fatalf("unexpected down clues %+v", view.Down)
	}
}

func TestCreateCrosswordInvalid(t *testing.T) {
	srv := newTestServer(t, nil)

	tests := []struct {
		name string
		body string
	}{
		{"malformed", `{"words":`},
		{"no words", `{"words":[]}`},
		{"blank words", `{"words":["  ",""]}`},
		{"too many words", `{"words":["a","b","c","d","e","f","g","h","i","j","k"]}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := do(srv, "POST", "/api/crosswords", tt.body)
			if w.Code != http.StatusBadRequest {
				t.Fatalf("expected 400, got %d: %s", w.Code, w.Body.String())
			}
			var resp map[string]string
			json.NewDecoder(w.Body).Decode(&resp)
			if resp["error"] == "" {
				t.Fatal("expected an error message")
			}
		})
	}
}

func TestCrosswordLifecycle(t *testing.T) {
	srv := newTestServer(t, nil)
	first := createCrossword(t, srv)
	time.Sleep(2 * time.Millisecond)
	second := createCrossword(t, srv)

	w := do(srv, "GET", "/api/crosswords", "")
	var list []crosswordView
	json.NewDecoder(w.Body).Decode(&list)
	if len(list) != 2 || list[0].ID != second.ID || list[1].ID != first.ID {
		t.Fatalf("expected most recent first, got %d crosswords", len(list))
	}

	w = do(srv, "GET", "/api/crosswords/"+first.ID, "")
	if w.Code != http.StatusOK {
		t.Fatalf("get: expected 200, got %d", w.Code)
	}

	w = do(srv, "DELETE", "/api/crosswords/"+first.ID, "")
	if w.Code != http.StatusNoContent {
		t.Fatalf("delete: expected 204, got %d", w.Code)
	}
	for _, method := range []string{"GET", "DELETE"} {
		if w := do(srv, method, "/api/crosswords/"+first.ID, ""); w.Code != http.StatusNotFound {
			t.Fatalf("%s after delete: expected 404, got %d", method, w.Code)
		}
	}
}

func TestEditWord(t *testing.T) {
	describer := clue.DescriberFunc(func(_ context.Context, word string) (string, error) {
		return "Définition de " + word, nil
	})
	srv := newTestServer(t, describer)
	view := createCrossword(t, srv)
	srv.jobs.Wait()

	w := do(srv, "PUT", "/api/crosswords/"+view.ID+"/words/2", `{"word":"cow"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("edit: expected 200, got %d: %s", w.Code, w.Body.String())
	}
	var edited crosswordView
	json.NewDecoder(w.Body).Decode(&edited)
	if strings.Join(edited.Words, ",") != "cat,car,cow" {
		t.Fatalf("unexpected words %v", edited.Words)
	}
	for _, pw := range edited.PlacedWords {
		if pw.Word == "dog" {
			t.Fatal("old word still placed")
		}
		if pw.Word == "cat" && pw.Description != "Définition de cat" {
			t.Fatalf("description of an unchanged word was lost: %q", pw.Description)
		}
	}
	if err := (&layout.Result{Grid: edited.Grid, PlacedWords: edited.PlacedWords, Size: edited.Size}).Verify(); err != nil {
		t.Fatalf("edited grid disagrees with its words: %v", err)
	}

	// The new word is described in the background.
	srv.jobs.Wait()
	c, err := srv.store.GetCrossword(context.Background(), view.ID)
	if err != nil {
		t.Fatal(err)
	}
	for _, pw := range c.PlacedWords {
		if pw.Description == "" {
			t.Fatalf("%s has no description", pw.Word)
		}
	}

	// A blank word removes the entry.
	w = do(srv, "PUT", "/api/crosswords/"+view.ID+"/words/0", `{"word":"  "}`)
	json.NewDecoder(w.Body).Decode(&edited)
	if strings.Join(edited.Words, ",") != "car,cow" || len(edited.PlacedWords) != 2 {
		t.Fatalf("expected cat removed, got %v", edited.Words)
	}

	if w := do(srv, "PUT", "/api/crosswords/"+view.ID+"/words/5", `{"word":"x"}`); w.Code != http.StatusBadRequest {
		t.Fatalf("bad index: expected 400, got %d", w.Code)
	}
	if w := do(srv, "PUT", "/api/crosswords/unknown/words/0", `{"word":"x"}`); w.Code != http.StatusNotFound {
		t.Fatalf("unknown crossword: expected 404, got %d", w.Code)
	}
}

func TestEditLastWordAway(t *testing.T) {
	srv := newTestServer(t, nil)
	w := do(srv, "POST", "/api/crosswords", `{"words":["solo"]}`)
	var view crosswordView
	json.NewDecoder(w.Body).Decode(&view)

	w = do(srv, "PUT", "/api/crosswords/"+view.ID+"/words/0", `{"word":""}`)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
	c, _ := srv.store.GetCrossword(context.Background(), view.ID)
	if len(c.Words) != 1 {
		t.Fatal("failed edit must not be saved")
	}
}

func TestCellWords(t *testing.T) {
	srv := newTestServer(t, nil)
	view := createCrossword(t, srv)

	w := do(srv, "GET", "/api/crosswords/"+view.ID+"/cells/8/10", "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var resp struct {
		Letter string              `json:"letter"`
		Words  []layout.PlacedWord `json:"words"`
	}
	json.NewDecoder(w.Body).Decode(&resp)
	if resp.Letter != "C" || len(resp.Words) != 2 || resp.Words[0].Word != "cat" || resp.Words[1].Word != "car" {
		t.Fatalf("unexpected cell %+v", resp)
	}

	w = do(srv, "GET", "/api/crosswords/"+view.ID+"/cells/0/0", "")
	json.NewDecoder(w.Body).Decode(&resp)
	if resp.Letter != "" || len(resp.Words) != 0 {
		t.Fatalf("expected an empty cell, got %+v", resp)
	}

	for _, path := range []string{"cells/20/0", "cells/-1/0", "cells/a/b"} {
		if w := do(srv, "GET", "/api/crosswords/"+view.ID+"/"+path, ""); w.Code != http.StatusBadRequest {
			t.Fatalf("%s: expected 400, got %d", path, w.Code)
		}
	}
}

func TestDescriptionsPublished(t *testing.T) {
	release := make(chan struct{})
	describer := clue.DescriberFunc(func(ctx context.Context, word string) (string, error) {
		<-release
		if word == "car" {
			return "", errors.New("model unavailable")
		}
		return strings.ToUpper(word) + " !", nil
	})
	srv := newTestServer(t, describer)
	view := createCrossword(t, srv)

	c := srv.sse.Register(crosswordTopic(view.ID))
	defer srv.sse.Unregister(c)
	close(release)
	srv.jobs.Wait()

	got := map[string]string{}
	for len(c.ch) > 0 {
		var evt struct {
			Type        string `json:"type"`
			Word        string `json:"word"`
			Description string `json:"description"`
		}
		json.Unmarshal([]byte(<-c.ch), &evt)
		if evt.Type != "description" {
			t.Fatalf("unexpected event %q", evt.Type)
		}
		got[evt.Word] = evt.Description
	}
	if len(got) != 2 || got["cat"] != "CAT !" || got["dog"] != "DOG !" {
		t.Fatalf("unexpected description events %v", got)
	}

	stored, _ := srv.store.GetCrossword(context.Background(), view.ID)
	for _, pw := range stored.PlacedWords {
		if pw.Word == "car" && pw.Description != "" {
			t.Fatalf("failed word got description %q", pw.Description)
		}
	}
}

// describingRepository saves a description for the crossword right after
// the first armed Get returns, like a clue job finishing at that moment.
type describingRepository struct {
	storage.Repository
	armed atomic.Bool
}

func (r *describingRepository) Get(ctx context.Context, id string) (*storage.Crossword, error) {
	c, err := r.Repository.Get(ctx, id)
	if err != nil || !r.armed.CompareAndSwap(true, false) {
		return c, err
	}
	updated, err := r.Repository.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	updated.PlacedWords[0].Description = "Meilleur ami"
	return c, r.Repository.Save(ctx, updated)
}

func readEvent(t *testing.T, reader *bufio.Reader) string {
	t.Helper()
	for {
		line, err := reader.ReadString('\n')
		if err != nil {
			t.Fatalf("reading stream: %v", err)
		}
		if data, ok := strings.CutPrefix(strings.TrimSpace(line), "data: "); ok {
			return data
		}
	}
}

func TestCrosswordEventsSnapshotAfterRegister(t *testing.T) {
	repo := &describingRepository{Repository: storage.NewMemory()}
	srv := newTestServerWithRepo(t, nil, repo)
	view := createCrossword(t, srv)
	ts := httptest.NewServer(srv)
	defer ts.Close()

	repo.armed.Store(true)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	req, _ := http.NewRequestWithContext(ctx, http.MethodGet, ts.URL+"/api/crosswords/"+view.ID+"/events", nil)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()

	var evt struct {
		Type      string        `json:"type"`
		Crossword crosswordView `json:"crossword"`
	}
	if err := json.Unmarshal([]byte(readEvent(t, bufio.NewReader(resp.Body))), &evt); err != nil {
		t.Fatal(err)
	}
	if evt.Type != "crossword" {
		t.Fatalf("expected crossword snapshot, got %q", evt.Type)
	}
	if got := evt.Crossword.PlacedWords[0].Description; got != "Meilleur ami" {
		t.Fatalf("snapshot misses the saved description, got %q", got)
	}
}

func TestShutdownWithOpenStreams(t *testing.T) {
	srv := newTestServer(t, nil)
	view := createCrossword(t, srv)
	gameID := createGame(t, srv, view.ID)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	httpServer := newHTTPServer(ln.Addr().String(), srv)
	go httpServer.Serve(ln)

	base := "http://" + ln.Addr().String()
	for _, path := range []string{
		"/api/crosswords/" + view.ID + "/events",
		"/api/games/" + gameID + "/events",
	} {
		resp, err := http.Get(base + path)
		if err != nil {
			t.Fatal(err)
		}
		defer resp.Body.Close()
		readEvent(t, bufio.NewReader(resp.Body))
	}

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	start := time.Now()
	if err := httpServer.Shutdown(ctx); err != nil {
		t.Fatalf("shutdown: %v", err)
	}
	if elapsed := time.Since(start); elapsed > 2*time.Second {
		t.Fatalf("shutdown took %s", elapsed)
	}
}

func TestDescribeEndpoint(t *testing.T) {
	srv := newTestServer(t, nil)
	view := createCrossword(t, srv)
	if w := do(srv, "POST", "/api/crosswords/"+view.ID+"/clues", ""); w.Code != http.StatusServiceUnavailable {
		t.Fatalf("without describer: expected 503, got %d", w.Code)
	}

	var mu sync.Mutex
	calls := 0
	srv = newTestServer(t, clue.DescriberFunc(func(context.Context, string) (string, error) {
		mu.Lock()
		defer mu.Unlock()
		calls++
		return "", errors.New("quota")
	}))
	view = createCrossword(t, srv)
	srv.jobs.Wait()

	if w := do(srv, "POST", "/api/crosswords/"+view.ID+"/clues", ""); w.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d", w.Code)
	}
	srv.jobs.Wait()
	if calls != 6 {
		t.Fatalf("expected every word retried, got %d calls", calls)
	}
	if w := do(srv, "POST", "/api/crosswords/unknown/clues", ""); w.Code != http.StatusNotFound {
		t.Fatalf("unknown crossword: expected 404, got %d", w.Code)
	}
}

func TestFullGameFlow(t *testing.T) {
	srv := newTestServer(t, nil)
	view := createCrossword(t, srv)
	gameID := createGame(t, srv, view.ID)
	token := joinGame(t, srv, gameID, "Alice")
	bearer := []string{"Authorization", "Bearer " + token}

	// Place a letter on the shared C of CAT and CAR.
	w := do(srv, "POST", "/api/games/"+gameID+"/move", `{"row":10,"col":8,"value":"c"}`, bearer...)
	if w.Code != http.StatusNoContent {
		t.Fatalf("move: expected 204, got %d: %s", w.Code, w.Body.String())
	}

	// Blocked cell.
	w = do(srv, "POST", "/api/games/"+gameID+"/move", `{"row":0,"col":0,"value":"B"}`, bearer...)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("move on blocked cell: expected 400, got %d", w.Code)
	}

	w = do(srv, "GET", "/api/games/"+gameID, "")
	if w.Code != http.StatusOK {
		t.Fatalf("get game: expected 200, got %d", w.Code)
	}
	var resp struct {
		State     [][]string     `json:"state"`
		Players   map[string]any `json:"players"`
		Crossword *crosswordView `json:"crossword"`
	}
	json.NewDecoder(w.Body).Decode(&resp)
	if resp.State[10][8] != "C" {
		t.Fatalf("expected cell (8,10) = 'C', got %q", resp.State[10][8])
	}
	if resp.Crossword == nil || resp.Crossword.ID != view.ID {
		t.Fatal("crossword should be included in game response")
	}
	if _, ok := resp.Players["Alice"]; !ok {
		t.Fatal("expected Alice among the players")
	}

	// Fill in the rest of the solution.
	for _, pw := range view.PlacedWords {
		for _, cell := range layout.Cells(pw) {
			x, y := cell[0], cell[1]
			body, _ := json.Marshal(map[string]any{"row": y, "col": x, "value": view.Grid[y][x]})
			if w := do(srv, "POST", "/api/games/"+gameID+"/move", string(body), bearer...); w.Code != http.StatusNoContent {
				t.Fatalf("move (%d,%d): expected 204, got %d", x, y, w.Code)
			}
		}
	}
	w = do(srv, "POST", "/api/games/"+gameID+"/check", "")
	var check struct {
		Words  []WordCheck `json:"words"`
		Solved bool        `json:"solved"`
	}
	json.NewDecoder(w.Body).Decode(&check)
	if !check.Solved || len(check.Words) != 3 {
		t.Fatalf("expected a solved game, got %+v", check)
	}
}

func TestCreateGameUnknownCrossword(t *testing.T) {
	srv := newTestServer(t, nil)

	if w := do(srv, "POST", "/api/games", `{"crossword_id":"nonexistent"}`); w.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", w.Code)
	}
	if w := do(srv, "POST", "/api/games", `{}`); w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
}

func TestMoveRequiresToken(t *testing.T) {
	srv := newTestServer(t, nil)
	view := createCrossword(t, srv)
	gameID := createGame(t, srv, view.ID)
	otherGame := createGame(t, srv, view.ID)
	otherToken := joinGame(t, srv, otherGame, "Bob")

	move := `{"row":10,"col":8,"value":"C"}`
	if w := do(srv, "POST", "/api/games/"+gameID+"/move", move); w.Code != http.StatusUnauthorized {
		t.Fatalf("without token: expected 401, got %d", w.Code)
	}
	if w := do(srv, "POST", "/api/games/"+gameID+"/move", move, "Authorization", "Bearer "+otherToken); w.Code != http.StatusUnauthorized {
		t.Fatalf("token of another game: expected 401, got %d", w.Code)
	}
}

func TestMoveValidation(t *testing.T) {
	srv := newTestServer(t, nil)
	view := createCrossword(t, srv)
	gameID := createGame(t, srv, view.ID)
	bearer := []string{"Authorization", "Bearer " + joinGame(t, srv, gameID, "Bob")}

	tests := []struct {
		name string
		body string
		code int
	}{
		{"number", `{"row":10,"col":8,"value":"5"}`, http.StatusBadRequest},
		{"two letters", `{"row":10,"col":8,"value":"AB"}`, http.StatusBadRequest},
		{"out of bounds", `{"row":20,"col":20,"value":"A"}`, http.StatusBadRequest},
		{"negative", `{"row":-1,"col":8,"value":"A"}`, http.StatusBadRequest},
		{"accented letter", `{"row":10,"col":9,"value":"é"}`, http.StatusNoContent},
		{"erase", `{"row":10,"col":9,"value":""}`, http.StatusNoContent},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if w := do(srv, "POST", "/api/games/"+gameID+"/move", tt.body, bearer...); w.Code != tt.code {
				t.Fatalf("expected %d, got %d: %s", tt.code, w.Code, w.Body.String())
			}
		})
	}
}

func TestGameSocket(t *testing.T) {
	srv := newTestServer(t, nil)
	view := createCrossword(t, srv)
	gameID := createGame(t, srv, view.ID)
	token := joinGame(t, srv, gameID, "Alice")

	ts := httptest.NewServer(srv)
	defer ts.Close()

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/api/games/" + gameID + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))

	var evt map[string]any
	if err := conn.ReadJSON(&evt); err != nil {
		t.Fatal(err)
	}
	if evt["type"] != "game_state" {
		t.Fatalf("expected game_state first, got %v", evt["type"])
	}

	req, _ := http.NewRequest("POST", ts.URL+"/api/games/"+gameID+"/move", strings.NewReader(`{"row":8,"col":8,"value":"D"}`))
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("move: expected 204, got %d", resp.StatusCode)
	}

	if err := conn.ReadJSON(&evt); err != nil {
		t.Fatal(err)
	}
	if evt["type"] != "cell_update" || evt["value"] != "D" || evt["pseudo"] != "Alice" {
		t.Fatalf("unexpected event %v", evt)
	}
}

func TestSecurityHeaders(t *testing.T) {
	srv := newTestServer(t, nil)

	w := do(srv, "GET", "/", "")

	headers := map[string]string{
		"X-Content-Type-Options": "nosniff",
		"X-Frame-Options":        "DENY",
		"Referrer-Policy":        "strict-origin-when-cross-origin",
	}

	for key, expected := range headers {
		if got := w.Header().Get(key); got != expected {
			t.Errorf("header %s: expected %q, got %q", key, expected, got)
		}
	}

	csp := w.Header().Get("Content-Security-Policy")
	if csp == "" {
		t.Error("Content-Security-Policy header missing")
	}
}

func TestGenerationRateLimited(t *testing.T) {
	srv := newTestServer(t, nil)
	limit := config.Default().Server.GeneratePerMinute
	for range limit {
		createCrossword(t, srv)
	}
	if w := do(srv, "POST", "/api/crosswords", `{"words":["cat"]}`); w.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", w.Code)
	}
}

func TestRateLimiter(t *testing.T) {
	rl := newRateLimiter(t.Context(), 3, time.Second)

	// First 3 should pass.
	for i := range 3 {
		if !rl.allow("1.2.3.4") {
			t.Fatalf("request %d should be allowed", i+1)
		}
	}

	// 4th should be blocked.
	if rl.allow("1.2.3.4") {
		t.Fatal("4th request should be rate limited")
	}

	// Different IP should still be allowed.
	if !rl.allow("5.6.7.8") {
		t.Fatal("different IP should be allowed")
	}
}

func TestClientIP(t *testing.T) {
	r := httptest.NewRequest("GET", "/", nil)
	r.RemoteAddr = "10.0.0.7:52114"
	if got := clientIP(r); got != "10.0.0.7" {
		t.Fatalf("expected port stripped, got %q", got)
	}
	r.RemoteAddr = "pipe"
	if got := clientIP(r); got != "pipe" {
		t.Fatalf("expected raw address, got %q", got)
	}
}
