package service

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ehagey/cra-legal-matching/config"
	"github.com/ehagey/cra-legal-matching/model"
)

func testOrchestrator(analyzerURL string) (*Orchestrator, *JobStore) {
	limits := &config.LimitsConfig{
		MaxClauses:      10,
		MaxUploadMB:     50,
		MaxAttachmentMB: 20,
		Workers:         3,
	}
	loader := NewLoaderService(&config.ReaderConfig{TimeoutSeconds: 5}, limits)
	analyzer := testAnalyzer(analyzerURL)
	store := NewJobStore(&config.StoreConfig{MaxJobs: 10})
	return NewOrchestrator(loader, analyzer, NewCallGate(0), store, limits), store
}

// waitForJob drains the event feed until the terminal event arrives
func waitForJob(t *testing.T, job *model.Job) []model.ProgressEvent {
	t.Helper()
	var events []model.ProgressEvent
	timeout := time.After(10 * time.Second)
	for {
		select {
		case ev, ok := <-job.Events():
			if !ok {
				return events
			}
			events = append(events, ev)
			if ev.Done {
				return events
			}
		case <-timeout:
			t.Fatal("Timed out waiting for job to finish")
		}
	}
}

func TestSubmitValidation(t *testing.T) {
	orch, _ := testOrchestrator("http://unused")

	doc := model.Source{Kind: model.SourceDocument, Filename: "a.pdf", Data: []byte("%PDF-1.4")}
	manyClauses := make([]string, 11)
	for i := range manyClauses {
		manyClauses[i] = "clause"
	}

	tests := []struct {
		name    string
		clauses []string
		sources []model.Source
	}{
		{"no clauses", nil, []model.Source{doc}},
		{"whitespace clauses", []string{"  ", "\n"}, []model.Source{doc}},
		{"too many clauses", manyClauses, []model.Source{doc}},
		{"no sources", []string{"clause"}, nil},
		{"oversized upload", []string{"clause"}, []model.Source{{
			Kind:     model.SourceDocument,
			Filename: "big.pdf",
			Data:     make([]byte, 51*1024*1024),
		}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := orch.Submit(tt.clauses, tt.sources, nil)
			if err == nil {
				t.Fatal("Expected validation error")
			}
			var valErr *model.ValidationError
			if !errors.As(err, &valErr) {
				t.Errorf("Expected *model.ValidationError, got %T", err)
			}
		})
	}
}

func TestRunGridOrderWithFailingSource(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(chatReply(`{"classification": "IDENTICAL", "summary": "found", "matches": [{"type": "IDENTICAL", "full_text": "quoted"}]}`)))
	}))
	defer server.Close()

	htmlServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("<html><body><p>Agreement text here.</p></body></html>"))
	}))
	defer htmlServer.Close()

	orch, store := testOrchestrator(server.URL)

	clauses := []string{"first clause", "second clause"}
	sources := []model.Source{
		{Kind: model.SourceDocument, Filename: "good.pdf", Data: []byte("%PDF-1.4 body")},
		{Kind: model.SourceDocument, Filename: "bad.bin", Data: []byte("not a pdf at all")},
		{Kind: model.SourceLink, URL: htmlServer.URL},
	}

	id, err := orch.Submit(clauses, sources, nil)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	job := store.Get(id)
	if job == nil {
		t.Fatal("Expected job registered in the store")
	}
	events := waitForJob(t, job)

	final := events[len(events)-1]
	if !final.Done {
		t.Fatal("Expected terminal event")
	}
	if final.Total != 6 {
		t.Errorf("Expected total 6, got %d", final.Total)
	}
	if final.Completed != 6 {
		t.Errorf("Expected all 6 tasks completed, got %d", final.Completed)
	}
	if len(final.Results) != 6 {
		t.Fatalf("Expected 6 results, got %d", len(final.Results))
	}

	// Results are ordered by (clause, source); the failing source occupies
	// index 1 in each clause row.
	for ci := 0; ci < 2; ci++ {
		for si := 0; si < 3; si++ {
			r := final.Results[ci*3+si]
			if si == 1 {
				if r.Classification != model.ClassError {
					t.Errorf("Expected ERROR at (%d,%d), got %s", ci, si, r.Classification)
				}
				if r.DocumentName != "bad.bin" {
					t.Errorf("Expected failing source name at (%d,%d), got '%s'", ci, si, r.DocumentName)
				}
				if r.Error == "" {
					t.Error("Expected error detail on failed-source result")
				}
			} else if r.Classification != model.ClassIdentical {
				t.Errorf("Expected IDENTICAL at (%d,%d), got %s", ci, si, r.Classification)
			}
		}
	}

	// Progress never goes backwards
	prev := 0
	for _, ev := range events {
		if ev.Completed < prev {
			t.Errorf("Completed went backwards: %d after %d", ev.Completed, prev)
		}
		prev = ev.Completed
	}
}

func TestRunAllSourcesFail(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
	}))
	defer server.Close()

	orch, store := testOrchestrator(server.URL)

	id, err := orch.Submit([]string{"clause"}, []model.Source{
		{Kind: model.SourceDocument, Filename: "bad.bin", Data: []byte("garbage")},
	}, nil)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	job := store.Get(id)
	events := waitForJob(t, job)
	final := events[len(events)-1]

	if len(final.Results) != 1 {
		t.Fatalf("Expected 1 result, got %d", len(final.Results))
	}
	if final.Results[0].Classification != model.ClassError {
		t.Errorf("Expected ERROR, got %s", final.Results[0].Classification)
	}
	if calls.Load() != 0 {
		t.Error("Expected no analysis calls when every source failed to load")
	}
}

func TestRunClauseTruncatedInResult(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(chatReply(`{"classification": "NOT_PRESENT", "summary": "nothing", "matches": []}`)))
	}))
	defer server.Close()

	orch, store := testOrchestrator(server.URL)

	longClause := strings.Repeat("liability ", 30)
	id, err := orch.Submit([]string{longClause}, []model.Source{
		{Kind: model.SourceDocument, Filename: "doc.pdf", Data: []byte("%PDF-1.4 body")},
	}, nil)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	events := waitForJob(t, store.Get(id))
	final := events[len(events)-1]
	if got := len([]rune(final.Results[0].Clause)); got > 101 {
		t.Errorf("Expected clause truncated in result, got %d runes", got)
	}
}
