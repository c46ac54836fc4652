package main

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/bodul/crossgen/internal/logger"
)

const (
	sseChannelBuffer = 16
	sseHeartbeat     = 30 * time.Second
)

// client is one subscriber (SSE or websocket) of a topic.
type client struct {
	ch    chan string
	topic string
}

// Broadcaster fans events out to clients grouped by topic. A topic is a
// crossword ("crossword:<id>") or a game ("game:<id>").
type Broadcaster struct {
	mu      sync.RWMutex
	clients map[*client]struct{}
}

// NewBroadcaster creates an empty broadcaster.
func NewBroadcaster() *Broadcaster {
	return &Broadcaster{
		clients: make(map[*client]struct{}),
	}
}

func crosswordTopic(id string) string { return "crossword:" + id }
func gameTopic(id string) string      { return "game:" + id }

// Register adds a client for a topic and returns it.
func (b *Broadcaster) Register(topic string) *client {
	c := &client{
		ch:    make(chan string, sseChannelBuffer),
		topic: topic,
	}
	b.mu.Lock()
	b.clients[c] = struct{}{}
	b.mu.Unlock()
	return c
}

// Unregister removes a client and closes its channel.
func (b *Broadcaster) Unregister(c *client) {
	b.mu.Lock()
	if _, ok := b.clients[c]; ok {
		delete(b.clients, c)
		close(c.ch)
	}
	b.mu.Unlock()
}

// Broadcast sends a message to all clients of a topic.
func (b *Broadcaster) Broadcast(topic, data string) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for c := range b.clients {
		if c.topic == topic {
			select {
			case c.ch <- data:
			default:
				// Channel full, skip slow client.
			}
		}
	}
}

// Publish encodes evt as JSON and broadcasts it.
func (b *Broadcaster) Publish(topic string, evt any) {
	data, err := json.Marshal(evt)
	if err != nil {
		logger.Error("Encoding event failed", "topic", topic, "error", err)
		return
	}
	b.Broadcast(topic, string(data))
}

// ClientCount returns the number of connected clients for a topic.
func (b *Broadcaster) ClientCount(topic string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()

	n := 0
	for c := range b.clients {
		if c.topic == topic {
			n++
		}
	}
	return n
}

// ServeSSE streams the events of a topic until the request ends or done
// is closed. onConnect runs once the client is registered.
func (b *Broadcaster) ServeSSE(w http.ResponseWriter, r *http.Request, topic string, done <-chan struct{}, onConnect func(c *client), onDisconnect func()) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming non supporté", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	c := b.Register(topic)
	defer func() {
		b.Unregister(c)
		if onDisconnect != nil {
			onDisconnect()
		}
	}()

	if onConnect != nil {
		onConnect(c)
	}

	ticker := time.NewTicker(sseHeartbeat)
	defer ticker.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-done:
			return
		case msg, ok := <-c.ch:
			if !ok {
				return
			}
			fmt.Fprintf(w, "data: %s\n\n", msg)
			flusher.Flush()
		case <-ticker.C:
			fmt.Fprintf(w, ": heartbeat\n\n")
			flusher.Flush()
		}
	}
}
