// Package server exposes the pipeline over HTTP. Authentication and rate
// limiting sit in front of this service; the account is taken from
// headers the gateway injects.
package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"voice-relations-go/internal/engine"
	"voice-relations-go/internal/logger"
	"voice-relations-go/internal/processor"
	"voice-relations-go/internal/store"
	"voice-relations-go/internal/types"
)

const maxAudioBytes = 100 << 20

type Server struct {
	store     *store.Store
	processor *processor.Processor
	addr      string
}

func New(st *store.Store, proc *processor.Processor, addr string) *Server {
	return &Server{store: st, processor: proc, addr: addr}
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /healthz", s.health)

	mux.HandleFunc("POST /transcripts", s.submitTranscript)
	mux.HandleFunc("GET /transcripts/{id}", s.getTranscript)

	mux.HandleFunc("GET /people", s.listPeople)
	mux.HandleFunc("GET /people/{id}", s.getPerson)
	mux.HandleFunc("GET /conversations", s.listConversations)

	mux.HandleFunc("GET /tasks", s.listObligations("task"))
	mux.HandleFunc("GET /reminders", s.listObligations("reminder"))
	mux.HandleFunc("POST /tasks/{id}/complete", s.completeObligation)
	mux.HandleFunc("POST /reminders/{id}/complete", s.completeObligation)

	mux.HandleFunc("GET /followups", s.listFollowUps)
	mux.HandleFunc("GET /followups/suggested", s.suggestedFollowUps)
	mux.HandleFunc("POST /followups/{id}/complete", s.completeFollowUp)

	mux.HandleFunc("GET /network", s.network)
	mux.HandleFunc("GET /dashboard", s.dashboard)

	return mux
}

func (s *Server) Run() error {
	srv := &http.Server{
		Addr:         s.addr,
		Handler:      s.Handler(),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}
	logger.New().WithField("addr", s.addr).Info("listening")
	return srv.ListenAndServe()
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// submitTranscript accepts an audio upload (multipart field "audio") or a
// raw transcript (form field "text") and queues background processing.
func (s *Server) submitTranscript(w http.ResponseWriter, r *http.Request) {
	log := logger.New().WithRequest(r).WithField("handler", "submit")

	accountID, accountName := account(r)
	numSpeakers := 2
	var audio []byte
	var text, filename string

	// Text-only submissions may arrive urlencoded rather than multipart.
	if err := r.ParseMultipartForm(maxAudioBytes); err != nil && !errors.Is(err, http.ErrNotMultipart) {
		writeError(w, http.StatusBadRequest, "could not parse form")
		return
	}
	if n, err := strconv.Atoi(r.FormValue("num_speakers")); err == nil && n > 0 {
		numSpeakers = n
	}
	text = r.FormValue("text")
	if r.MultipartForm != nil {
		if file, hdr, err := r.FormFile("audio"); err == nil {
			defer file.Close()
			filename = hdr.Filename
			audio, err = io.ReadAll(io.LimitReader(file, maxAudioBytes))
			if err != nil {
				writeError(w, http.StatusBadRequest, "could not read audio")
				return
			}
		}
	}
	if len(audio) == 0 && text == "" {
		writeError(w, http.StatusBadRequest, "missing audio file or text")
		return
	}

	t := &types.Transcript{
		AccountID:   accountID,
		Filename:    filename,
		NumSpeakers: numSpeakers,
	}
	if err := s.processor.Submit(t, accountName, audio, text); err != nil {
		log.WithError(err).Error("submit failed")
		writeError(w, http.StatusInternalServerError, "could not queue transcript")
		return
	}
	log.WithField("transcript_id", t.ID).Info("transcript queued")
	writeJSON(w, http.StatusAccepted, map[string]string{
		"id":      t.ID,
		"status":  t.Status,
		"message": "Processing started",
	})
}

func (s *Server) getTranscript(w http.ResponseWriter, r *http.Request) {
	accountID, _ := account(r)
	t, err := s.store.GetTranscript(r.PathValue("id"))
	if err != nil || t.AccountID != accountID {
		writeError(w, http.StatusNotFound, "transcript not found")
		return
	}
	writeJSON(w, http.StatusOK, t)
}

func (s *Server) listPeople(w http.ResponseWriter, r *http.Request) {
	accountID, _ := account(r)
	people, err := s.store.ListPeople(accountID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "could not list people")
		return
	}
	writeJSON(w, http.StatusOK, people)
}

func (s *Server) getPerson(w http.ResponseWriter, r *http.Request) {
	accountID, _ := account(r)
	p, err := s.store.GetPerson(r.PathValue("id"))
	if err != nil || p.AccountID != accountID {
		writeError(w, http.StatusNotFound, "person not found")
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (s *Server) listConversations(w http.ResponseWriter, r *http.Request) {
	accountID, _ := account(r)
	limit := 50
	if n, err := strconv.Atoi(r.URL.Query().Get("limit")); err == nil && n > 0 {
		limit = n
	}
	convs, err := s.store.ListConversations(accountID, limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "could not list conversations")
		return
	}
	writeJSON(w, http.StatusOK, convs)
}

func (s *Server) listObligations(kind string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		accountID, _ := account(r)
		includeCompleted := r.URL.Query().Get("completed") == "all"
		items, err := s.store.ListObligations(accountID, kind, includeCompleted)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "could not list "+kind+"s")
			return
		}
		writeJSON(w, http.StatusOK, items)
	}
}

func (s *Server) completeObligation(w http.ResponseWriter, r *http.Request) {
	accountID, _ := account(r)
	if err := s.store.CompleteObligation(accountID, r.PathValue("id")); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "could not complete")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "completed"})
}

func (s *Server) listFollowUps(w http.ResponseWriter, r *http.Request) {
	accountID, _ := account(r)
	followups, err := s.store.ListFollowUps(accountID, r.URL.Query().Get("type"))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "could not list followups")
		return
	}
	writeJSON(w, http.StatusOK, followups)
}

// suggestedFollowUps combines stored suggested follow-ups with freshly
// computed reconnection suggestions, deduplicated by person.
func (s *Server) suggestedFollowUps(w http.ResponseWriter, r *http.Request) {
	accountID, _ := account(r)
	stored, err := s.store.ListFollowUps(accountID, types.FollowUpSuggested)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "could not list followups")
		return
	}
	people, err := s.store.ListPeople(accountID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "could not list people")
		return
	}

	seen := map[string]bool{}
	for _, f := range stored {
		seen[f.PersonID] = true
	}
	var fresh []engine.Suggestion
	for _, sug := range engine.ComputeOverdue(people, time.Now()) {
		if seen[sug.PersonID] || len(stored)+len(fresh) >= 10 {
			continue
		}
		fresh = append(fresh, sug)
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"stored":   stored,
		"computed": fresh,
	})
}

func (s *Server) completeFollowUp(w http.ResponseWriter, r *http.Request) {
	accountID, _ := account(r)
	if err := s.store.CompleteFollowUp(accountID, r.PathValue("id")); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "could not complete")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "completed"})
}

// network renders the contact graph as nodes and directed edges.
func (s *Server) network(w http.ResponseWriter, r *http.Request) {
	accountID, _ := account(r)
	people, err := s.store.ListPeople(accountID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "could not list people")
		return
	}

	type node struct {
		ID        string  `json:"id"`
		Name      string  `json:"name"`
		Initials  string  `json:"initials"`
		Closeness float64 `json:"closeness"`
	}
	type edge struct {
		Source   string  `json:"source"`
		Target   string  `json:"target"`
		Strength float64 `json:"strength"`
		Type     string  `json:"type,omitempty"`
	}
	nodes := make([]node, 0, len(people))
	edges := []edge{}
	for _, p := range people {
		nodes = append(nodes, node{ID: p.ID, Name: p.Name, Initials: p.Initials, Closeness: p.Sentiment.ClosenessScore})
		for _, c := range p.Connections {
			edges = append(edges, edge{Source: p.ID, Target: c.PersonID, Strength: c.Strength, Type: c.RelationshipType})
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{"nodes": nodes, "edges": edges})
}

func (s *Server) dashboard(w http.ResponseWriter, r *http.Request) {
	accountID, _ := account(r)
	pending, err := s.store.ListFollowUps(accountID, types.FollowUpPending)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "could not build dashboard")
		return
	}
	if len(pending) > 3 {
		pending = pending[:3]
	}
	latest, err := s.store.ListConversations(accountID, 4)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "could not build dashboard")
		return
	}
	total, closeContacts, err := s.store.CountPeople(accountID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "could not build dashboard")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"pending_followups":   pending,
		"latest_interactions": latest,
		"network_overview": map[string]int{
			"total_people":   total,
			"close_contacts": closeContacts,
		},
	})
}

// account reads the gateway-injected identity headers, defaulting to a
// local single-tenant account.
func account(r *http.Request) (id, name string) {
	id = r.Header.Get("X-Account-ID")
	if id == "" {
		id = "local"
	}
	name = r.Header.Get("X-Account-Name")
	if name == "" {
		name = "Me"
	}
	return id, name
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		logger.New().WithError(err).Error("failed to write response")
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
