package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"voice-relations-go/internal/engine"
	"voice-relations-go/internal/processor"
	"voice-relations-go/internal/store"
	"voice-relations-go/internal/types"
)

type stubAnalyzer struct{ out map[string]any }

func (s stubAnalyzer) Analyze(context.Context, string, string) (map[string]any, error) {
	return s.out, nil
}

type stubTranscriber struct{}

func (stubTranscriber) Transcribe(context.Context, []byte, string) ([]types.Segment, error) {
	return nil, nil
}

func analysisDoc() map[string]any {
	return map[string]any{
		"conversation_metadata": map[string]any{
			"title":   "Catch-up",
			"summary": map[string]any{"short": "s"},
		},
		"speakers": []any{
			map[string]any{"speaker_label": "SPEAKER 1", "name": "Me", "is_user": true},
			map[string]any{
				"speaker_label": "SPEAKER 2", "name": "Maria", "is_user": false,
				"profile": map[string]any{
					"relationship": map[string]any{"type": "friend"},
					"sentiment":    map[string]any{"closenessScore": 0.8, "tone": "warm"},
				},
			},
		},
		"tasks": []any{
			map[string]any{"title": "Send photos", "due_date_text": "tomorrow"},
		},
	}
}

func newTestServer(t *testing.T) (*Server, *store.Store) {
	t.Helper()
	st, err := store.New(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	eng := engine.New(st, stubAnalyzer{out: analysisDoc()}, nil)
	proc := processor.New(st, stubTranscriber{}, eng)
	return New(st, proc, ":0"), st
}

func do(t *testing.T, h http.Handler, method, target string, form url.Values) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if form != nil {
		req = httptest.NewRequest(method, target, strings.NewReader(form.Encode()))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	req.Header.Set("X-Account-ID", "acct")
	req.Header.Set("X-Account-Name", "Me")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, v any) {
	t.Helper()
	require.NoError(t, json.NewDecoder(rec.Body).Decode(v))
}

func TestHealth(t *testing.T) {
	srv, _ := newTestServer(t)
	rec := do(t, srv.Handler(), http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestSubmitRequiresInput(t *testing.T) {
	srv, _ := newTestServer(t)
	rec := do(t, srv.Handler(), http.MethodPost, "/transcripts", url.Values{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSubmitTextFlow(t *testing.T) {
	srv, st := newTestServer(t)
	h := srv.Handler()

	rec := do(t, h, http.MethodPost, "/transcripts", url.Values{"text": {"Me: hey Maria"}})
	require.Equal(t, http.StatusAccepted, rec.Code)

	var accepted map[string]string
	decodeBody(t, rec, &accepted)
	id := accepted["id"]
	require.NotEmpty(t, id)

	require.Eventually(t, func() bool {
		tr, err := st.GetTranscript(id)
		return err == nil && tr.Status == types.StatusCompleted
	}, 5*time.Second, 10*time.Millisecond)

	rec = do(t, h, http.MethodGet, "/transcripts/"+id, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var tr types.Transcript
	decodeBody(t, rec, &tr)
	assert.Equal(t, types.StatusCompleted, tr.Status)

	rec = do(t, h, http.MethodGet, "/people", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var people []types.Person
	decodeBody(t, rec, &people)
	require.Len(t, people, 1)
	assert.Equal(t, "Maria", people[0].Name)

	rec = do(t, h, http.MethodGet, "/tasks", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var tasks []types.Obligation
	decodeBody(t, rec, &tasks)
	require.Len(t, tasks, 1)
	assert.Equal(t, "Send photos", tasks[0].Title)

	rec = do(t, h, http.MethodPost, "/tasks/"+tasks[0].ID+"/complete", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	rec = do(t, h, http.MethodPost, "/tasks/"+tasks[0].ID+"/complete", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestTranscriptScopedToAccount(t *testing.T) {
	srv, st := newTestServer(t)

	tr := &types.Transcript{AccountID: "someone-else"}
	require.NoError(t, st.CreateTranscript(tr))

	rec := do(t, srv.Handler(), http.MethodGet, "/transcripts/"+tr.ID, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestSuggestedFollowUpsComputed(t *testing.T) {
	srv, st := newTestServer(t)

	last := time.Now().Add(-20 * 24 * time.Hour)
	require.NoError(t, st.CreatePerson(&types.Person{
		AccountID: "acct",
		Name:      "Maria",
		Communication: types.Communication{
			LastContacted: &last,
			Frequency:     "weekly",
		},
	}))

	rec := do(t, srv.Handler(), http.MethodGet, "/followups/suggested", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Stored   []types.FollowUp    `json:"stored"`
		Computed []engine.Suggestion `json:"computed"`
	}
	decodeBody(t, rec, &body)
	assert.Empty(t, body.Stored)
	require.Len(t, body.Computed, 1)
	assert.Equal(t, "Maria", body.Computed[0].PersonName)
	assert.Equal(t, "medium", body.Computed[0].Priority)
}

func TestNetwork(t *testing.T) {
	srv, st := newTestServer(t)

	p1 := &types.Person{AccountID: "acct", Name: "Maria", Initials: "M"}
	require.NoError(t, st.CreatePerson(p1))
	p2 := &types.Person{AccountID: "acct", Name: "Tom", Initials: "T"}
	require.NoError(t, st.CreatePerson(p2))
	p1.Connections = []types.Connection{{PersonID: p2.ID, RelationshipType: "colleague", Strength: 0.4}}
	require.NoError(t, st.UpdatePerson(p1))

	rec := do(t, srv.Handler(), http.MethodGet, "/network", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Nodes []map[string]any `json:"nodes"`
		Edges []map[string]any `json:"edges"`
	}
	decodeBody(t, rec, &body)
	assert.Len(t, body.Nodes, 2)
	require.Len(t, body.Edges, 1)
	assert.Equal(t, p1.ID, body.Edges[0]["source"])
	assert.Equal(t, p2.ID, body.Edges[0]["target"])
}

func TestDashboard(t *testing.T) {
	srv, st := newTestServer(t)

	p := &types.Person{AccountID: "acct", Name: "Maria", Sentiment: types.Sentiment{ClosenessScore: 0.9}}
	require.NoError(t, st.CreatePerson(p))
	for i := 0; i < 5; i++ {
		require.NoError(t, st.CreateFollowUp(&types.FollowUp{
			AccountID: "acct", PersonID: p.ID, Type: types.FollowUpPending, Priority: "high",
		}))
	}

	rec := do(t, srv.Handler(), http.MethodGet, "/dashboard", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Pending []types.FollowUp `json:"pending_followups"`
		Latest  []any            `json:"latest_interactions"`
		Network map[string]int   `json:"network_overview"`
	}
	decodeBody(t, rec, &body)
	assert.Len(t, body.Pending, 3)
	assert.Equal(t, 1, body.Network["total_people"])
	assert.Equal(t, 1, body.Network["close_contacts"])
}
