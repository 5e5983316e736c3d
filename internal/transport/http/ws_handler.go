package http

import (
	"errors"
	"log"
	"net/http"
	"time"

	"docquiz/internal/app"
	"docquiz/internal/domain"
	"github.com/gorilla/websocket"
)

const defaultWSPollInterval = time.Second

// WSHandler streams job status frames over a websocket so clients get
// progress without HTTP polling. One frame per observation; the stream
// closes after the terminal frame.
type WSHandler struct {
	generation *app.GenerationService
	interval   time.Duration
	upgrader   websocket.Upgrader
}

// NewWSHandler builds the stream handler. A non-positive interval
// selects the one-second default.
func NewWSHandler(generation *app.GenerationService, interval time.Duration) *WSHandler {
	if interval <= 0 {
		interval = defaultWSPollInterval
	}
	return &WSHandler{
		generation: generation,
		interval:   interval,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

type statusFrame struct {
	Type string     `json:"type"`
	Job  domain.Job `json:"job"`
}

type errorFrame struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

// ServeWS upgrades the request and streams status frames for ?jobId=
// until the job reaches DONE or FAILED or the peer goes away.
func (h *WSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	jobID := r.URL.Query().Get("jobId")
	if jobID == "" {
		http.Error(w, "missing jobId", http.StatusBadRequest)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("ws upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	send := make(chan any, 16)
	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		for msg := range send {
			if err := conn.WriteJSON(msg); err != nil {
				log.Printf("ws write error: %v", err)
				return
			}
		}
	}()

	// Reads only serve to detect the peer closing the socket.
	readerGone := make(chan struct{})
	go func() {
		defer close(readerGone)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	deliver := func(msg any) bool {
		select {
		case send <- msg:
			return true
		case <-writerDone:
			return false
		}
	}

	ticker := time.NewTicker(h.interval)
	defer ticker.Stop()

stream:
	for {
		job, err := h.generation.JobStatus(r.Context(), jobID)
		if err != nil {
			msg := "internal error"
			if errors.Is(err, domain.ErrJobNotFound) {
				msg = "job not found"
			}
			deliver(errorFrame{Type: "error", Message: msg})
			break
		}

		if !deliver(statusFrame{Type: "status", Job: job}) {
			break
		}
		if job.Terminal() {
			break
		}

		select {
		case <-ticker.C:
		case <-readerGone:
			break stream
		case <-writerDone:
			break stream
		case <-r.Context().Done():
			break stream
		}
	}

	close(send)
	<-writerDone
}
