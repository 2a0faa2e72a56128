// Package main provides an HTTP API server for the pagedb library.
package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"sync"

	"github.com/joho/godotenv"

	"github.com/oda/pagedb"
)

// Server holds the open database and provides HTTP handlers.
type Server struct {
	db   *pagedb.DB
	path string
	mu   sync.Mutex
}

// Response is a generic JSON response.
type Response struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// StatusResponse contains database status information.
type StatusResponse struct {
	Connected bool   `json:"connected"`
	Path      string `json:"path,omitempty"`
	Records   int    `json:"records,omitempty"`
}

// KeyValue represents a key-value pair.
type KeyValue struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// PutRequest is the request body for PUT operations.
type PutRequest struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// OpenRequest is the request body for opening a database.
type OpenRequest struct {
	Path       string `json:"path"`
	LinearScan bool   `json:"linearScan,omitempty"`
	SyncWrites bool   `json:"syncWrites,omitempty"`
}

// StatsResponse mirrors pagedb.Stats.
type StatsResponse struct {
	NumPages     uint32 `json:"numPages"`
	NextFreePage uint64 `json:"nextFreePage"`
	FreePages    int    `json:"freePages"`
	LiveRecords  int    `json:"liveRecords"`
}

var server = &Server{}

func main() {
	// .env is optional; environment variables win either way
	godotenv.Load()

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	if path := os.Getenv("PAGEDB_PATH"); path != "" {
		db, err := pagedb.Open(path)
		if err != nil {
			log.Fatalf("failed to open %s: %v", path, err)
		}
		server.db = db
		server.path = path
		log.Printf("opened database %s", path)
	}

	corsHandler := func(h http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Access-Control-Allow-Origin", "*")
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

			if r.Method == "OPTIONS" {
				w.WriteHeader(http.StatusOK)
				return
			}

			h(w, r)
		}
	}

	http.HandleFunc("/api/status", corsHandler(server.handleStatus))
	http.HandleFunc("/api/open", corsHandler(server.handleOpen))
	http.HandleFunc("/api/close", corsHandler(server.handleClose))
	http.HandleFunc("/api/get", corsHandler(server.handleGet))
	http.HandleFunc("/api/put", corsHandler(server.handlePut))
	http.HandleFunc("/api/delete", corsHandler(server.handleDelete))
	http.HandleFunc("/api/checkpoint", corsHandler(server.handleCheckpoint))
	http.HandleFunc("/api/stats", corsHandler(server.handleStats))

	log.Printf("pagedb API server starting on port %s...\n", port)
	log.Fatal(http.ListenAndServe(":"+port, nil))
}

func writeJSON(w http.ResponseWriter, status int, resp Response) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(resp)
}

func errorStatus(err error) int {
	switch {
	case errors.Is(err, pagedb.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, pagedb.ErrKeyRequired),
		errors.Is(err, pagedb.ErrPathRequired),
		errors.Is(err, pagedb.ErrRecordTooLarge):
		return http.StatusBadRequest
	case errors.Is(err, pagedb.ErrLocked):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	status := StatusResponse{
		Connected: s.db != nil,
		Path:      s.path,
	}

	if s.db != nil {
		if stats, err := s.db.Stats(); err == nil {
			status.Records = stats.LiveRecords
		}
	}

	writeJSON(w, http.StatusOK, Response{Success: true, Data: status})
}

func (s *Server) handleOpen(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, Response{Error: "method not allowed"})
		return
	}

	var req OpenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, Response{Error: "invalid request body"})
		return
	}

	if req.Path == "" {
		writeJSON(w, http.StatusBadRequest, Response{Error: "path is required"})
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.db != nil {
		s.db.Close()
		s.db = nil
		s.path = ""
	}

	var opts []pagedb.Option
	if req.LinearScan {
		opts = append(opts, pagedb.WithLinearScan())
	}
	if req.SyncWrites {
		opts = append(opts, pagedb.WithSyncWrites())
	}

	db, err := pagedb.Open(req.Path, opts...)
	if err != nil {
		writeJSON(w, errorStatus(err), Response{Error: fmt.Sprintf("failed to open database: %v", err)})
		return
	}

	s.db = db
	s.path = req.Path

	writeJSON(w, http.StatusOK, Response{
		Success: true,
		Data:    StatusResponse{Connected: true, Path: req.Path},
	})
}

func (s *Server) handleClose(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, Response{Error: "method not allowed"})
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.db == nil {
		writeJSON(w, http.StatusBadRequest, Response{Error: "no database open"})
		return
	}

	if err := s.db.Close(); err != nil {
		writeJSON(w, http.StatusInternalServerError, Response{Error: fmt.Sprintf("failed to close: %v", err)})
		return
	}

	s.db = nil
	s.path = ""

	writeJSON(w, http.StatusOK, Response{Success: true})
}

func (s *Server) handleGet(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSON(w, http.StatusMethodNotAllowed, Response{Error: "method not allowed"})
		return
	}

	key := r.URL.Query().Get("key")
	if key == "" {
		writeJSON(w, http.StatusBadRequest, Response{Error: "key is required"})
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.db == nil {
		writeJSON(w, http.StatusBadRequest, Response{Error: "no database open"})
		return
	}

	val, err := s.db.Get([]byte(key))
	if err != nil {
		writeJSON(w, errorStatus(err), Response{Error: err.Error()})
		return
	}

	writeJSON(w, http.StatusOK, Response{
		Success: true,
		Data:    KeyValue{Key: key, Value: string(val)},
	})
}

func (s *Server) handlePut(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, Response{Error: "method not allowed"})
		return
	}

	var req PutRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, Response{Error: "invalid request body"})
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.db == nil {
		writeJSON(w, http.StatusBadRequest, Response{Error: "no database open"})
		return
	}

	if err := s.db.Put([]byte(req.Key), []byte(req.Value)); err != nil {
		writeJSON(w, errorStatus(err), Response{Error: fmt.Sprintf("put failed: %v", err)})
		return
	}

	writeJSON(w, http.StatusOK, Response{
		Success: true,
		Data:    KeyValue{Key: req.Key, Value: req.Value},
	})
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodDelete {
		writeJSON(w, http.StatusMethodNotAllowed, Response{Error: "method not allowed"})
		return
	}

	key := r.URL.Query().Get("key")
	if key == "" {
		writeJSON(w, http.StatusBadRequest, Response{Error: "key is required"})
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.db == nil {
		writeJSON(w, http.StatusBadRequest, Response{Error: "no database open"})
		return
	}

	if err := s.db.Delete([]byte(key)); err != nil {
		writeJSON(w, errorStatus(err), Response{Error: err.Error()})
		return
	}

	writeJSON(w, http.StatusOK, Response{
		Success: true,
		Data:    map[string]bool{"deleted": true},
	})
}

func (s *Server) handleCheckpoint(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, Response{Error: "method not allowed"})
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.db == nil {
		writeJSON(w, http.StatusBadRequest, Response{Error: "no database open"})
		return
	}

	if err := s.db.Checkpoint(); err != nil {
		writeJSON(w, http.StatusInternalServerError, Response{Error: fmt.Sprintf("checkpoint failed: %v", err)})
		return
	}

	writeJSON(w, http.StatusOK, Response{Success: true})
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSON(w, http.StatusMethodNotAllowed, Response{Error: "method not allowed"})
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.db == nil {
		writeJSON(w, http.StatusBadRequest, Response{Error: "no database open"})
		return
	}

	stats, err := s.db.Stats()
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, Response{Error: fmt.Sprintf("stats failed: %v", err)})
		return
	}

	writeJSON(w, http.StatusOK, Response{
		Success: true,
		Data: StatsResponse{
			NumPages:     stats.NumPages,
			NextFreePage: stats.NextFreePage,
			FreePages:    stats.FreePages,
			LiveRecords:  stats.LiveRecords,
		},
	})
}
