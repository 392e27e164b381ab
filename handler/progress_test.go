package handler

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/ehagey/cra-legal-matching/config"
	"github.com/ehagey/cra-legal-matching/model"
	"github.com/ehagey/cra-legal-matching/service"
	"github.com/gin-gonic/gin"
)

// parseStreamEvents decodes every data line of an SSE response body
func parseStreamEvents(t *testing.T, body string) []model.ProgressEvent {
	t.Helper()
	var events []model.ProgressEvent
	for _, line := range strings.Split(body, "\n") {
		if !strings.HasPrefix(line, "data: ") {
			continue
		}
		var ev model.ProgressEvent
		if err := json.Unmarshal([]byte(strings.TrimPrefix(line, "data: ")), &ev); err != nil {
			t.Fatalf("Failed to parse event '%s': %v", line, err)
		}
		events = append(events, ev)
	}
	return events
}

func TestProgressStreamUnknownJob(t *testing.T) {
	store := service.NewJobStore(&config.StoreConfig{MaxJobs: 10})
	handler := NewProgressHandler(store)

	router := gin.New()
	router.GET("/progress/:id", handler.Stream)

	req := httptest.NewRequest("GET", "/progress/missing", nil)
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	if w.Code != http.StatusNotFound {
		t.Errorf("Expected status 404, got %d", w.Code)
	}
}

func TestProgressStreamDeliversTerminalEvent(t *testing.T) {
	store := service.NewJobStore(&config.StoreConfig{MaxJobs: 10})
	handler := NewProgressHandler(store)

	job := model.NewJob("job-1")
	job.SetTotal(2)
	store.Put(job)

	go func() {
		job.TaskDone("Clause 1 vs doc.pdf")
		job.TaskDone("Clause 2 vs doc.pdf")
		job.Finish([]model.Result{
			{Classification: model.ClassIdentical, DocumentName: "doc.pdf"},
			{Classification: model.ClassNotPresent, DocumentName: "doc.pdf"},
		}, "")
	}()

	router := gin.New()
	router.GET("/progress/:id", handler.Stream)

	req := httptest.NewRequest("GET", "/progress/job-1", nil)
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	if got := w.Header().Get("Content-Type"); got != "text/event-stream" {
		t.Errorf("Expected text/event-stream, got '%s'", got)
	}

	body := w.Body.String()
	if !strings.Contains(body, "event: progress") {
		t.Error("Expected progress events in the stream")
	}
	if !strings.Contains(body, `"done":true`) {
		t.Error("Expected a terminal event")
	}
	if !strings.Contains(body, `"IDENTICAL"`) || !strings.Contains(body, `"NOT_PRESENT"`) {
		t.Error("Expected the terminal event to carry the full result list")
	}

	// The job is deleted once the terminal event was delivered
	if store.Get("job-1") != nil {
		t.Error("Expected job removed after terminal delivery")
	}
}

func TestProgressStreamMonotonicAfterBufferedEvents(t *testing.T) {
	store := service.NewJobStore(&config.StoreConfig{MaxJobs: 10})
	handler := NewProgressHandler(store)

	// Progress accumulates in the buffer before anyone connects
	job := model.NewJob("job-3")
	job.SetTotal(4)
	job.TaskDone("Clause 1 vs doc.pdf")
	job.TaskDone("Clause 2 vs doc.pdf")
	store.Put(job)

	go func() {
		time.Sleep(50 * time.Millisecond)
		job.TaskDone("Clause 3 vs doc.pdf")
		job.TaskDone("Clause 4 vs doc.pdf")
		job.Finish([]model.Result{
			{Classification: model.ClassIdentical},
			{Classification: model.ClassIdentical},
			{Classification: model.ClassIdentical},
			{Classification: model.ClassIdentical},
		}, "")
	}()

	router := gin.New()
	router.GET("/progress/:id", handler.Stream)

	req := httptest.NewRequest("GET", "/progress/job-3", nil)
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	events := parseStreamEvents(t, w.Body.String())
	if len(events) == 0 {
		t.Fatal("Expected events on the stream")
	}

	// The opening snapshot already reflects the buffered progress; nothing
	// delivered afterwards may roll completed back.
	prev := -1
	for _, ev := range events {
		if ev.Completed < prev {
			t.Errorf("Completed went backwards: %d after %d", ev.Completed, prev)
		}
		prev = ev.Completed
	}

	final := events[len(events)-1]
	if !final.Done {
		t.Fatal("Expected a terminal event")
	}
	if final.Completed != 4 {
		t.Errorf("Expected completed 4 at done, got %d", final.Completed)
	}
	if len(final.Results) != 4 {
		t.Errorf("Expected 4 results, got %d", len(final.Results))
	}
}

func TestProgressStreamLateSubscriber(t *testing.T) {
	store := service.NewJobStore(&config.StoreConfig{MaxJobs: 10})
	handler := NewProgressHandler(store)

	// Job already finished before anyone connects
	job := model.NewJob("job-2")
	job.SetTotal(1)
	job.TaskDone("a")
	job.Finish([]model.Result{{Classification: model.ClassSimilar}}, "")
	store.Put(job)

	router := gin.New()
	router.GET("/progress/:id", handler.Stream)

	req := httptest.NewRequest("GET", "/progress/job-2", nil)
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	body := w.Body.String()
	if !strings.Contains(body, `"done":true`) {
		t.Error("Expected immediate terminal event for a finished job")
	}
	if !strings.Contains(body, `"SIMILAR"`) {
		t.Error("Expected results in the terminal event")
	}
	if store.Get("job-2") != nil {
		t.Error("Expected job removed after terminal delivery")
	}
}
