package handler

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/ehagey/cra-legal-matching/config"
	"github.com/ehagey/cra-legal-matching/service"
	"github.com/gin-gonic/gin"
)

func newTestPipeline(t *testing.T, analyzerURL string) (*service.Orchestrator, *service.JobStore) {
	t.Helper()
	limits := &config.LimitsConfig{
		MaxClauses:      10,
		MaxUploadMB:     50,
		MaxAttachmentMB: 20,
		Workers:         2,
	}
	loader := service.NewLoaderService(&config.ReaderConfig{TimeoutSeconds: 5}, limits)
	analyzer := service.NewAnalyzerService(&config.OpenRouterConfig{
		APIURL:         analyzerURL,
		APIKey:         "test-key",
		Model:          "test-model",
		PDFEngine:      "pdf-text",
		TimeoutSeconds: 5,
	}, limits, nil)
	store := service.NewJobStore(&config.StoreConfig{MaxJobs: 10})
	return service.NewOrchestrator(loader, analyzer, service.NewCallGate(0), store, limits), store
}

func multipartBody(t *testing.T, fields map[string]string, files map[string][]byte) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		if err := mw.WriteField(k, v); err != nil {
			t.Fatalf("Failed to write field: %v", err)
		}
	}
	for name, data := range files {
		fw, err := mw.CreateFormFile("files", name)
		if err != nil {
			t.Fatalf("Failed to create form file: %v", err)
		}
		fw.Write(data)
	}
	mw.Close()
	return &buf, mw.FormDataContentType()
}

func TestAnalyzeHandlerAccepts(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"choices": [{"message": {"content": "{\"classification\": \"NOT_PRESENT\", \"summary\": \"x\", \"matches\": []}"}}]}`))
	}))
	defer server.Close()

	orch, store := newTestPipeline(t, server.URL)
	handler := NewAnalyzeHandler(orch, nil)

	router := gin.New()
	router.POST("/analyze", handler.Analyze)

	body, contentType := multipartBody(t,
		map[string]string{"clauses": `["termination clause"]`},
		map[string][]byte{"contract.pdf": []byte("%PDF-1.4 body")},
	)
	req := httptest.NewRequest("POST", "/analyze", body)
	req.Header.Set("Content-Type", contentType)
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	if w.Code != http.StatusAccepted {
		t.Fatalf("Expected status 202, got %d: %s", w.Code, w.Body.String())
	}

	var response map[string]string
	if err := json.Unmarshal(w.Body.Bytes(), &response); err != nil {
		t.Fatalf("Failed to parse response: %v", err)
	}
	jobID := response["job_id"]
	if jobID == "" {
		t.Fatal("Expected job_id in response")
	}
	if store.Get(jobID) == nil {
		t.Error("Expected job registered in the store")
	}
}

func TestAnalyzeHandlerRejects(t *testing.T) {
	orch, _ := newTestPipeline(t, "http://unused")
	handler := NewAnalyzeHandler(orch, nil)

	tests := []struct {
		name   string
		fields map[string]string
		files  map[string][]byte
	}{
		{
			name:   "clauses not JSON",
			fields: map[string]string{"clauses": "just a string"},
			files:  map[string][]byte{"a.pdf": []byte("%PDF-1.4")},
		},
		{
			name:   "missing clauses",
			fields: map[string]string{},
			files:  map[string][]byte{"a.pdf": []byte("%PDF-1.4")},
		},
		{
			name:   "empty clause list",
			fields: map[string]string{"clauses": `[]`},
			files:  map[string][]byte{"a.pdf": []byte("%PDF-1.4")},
		},
		{
			name:   "bad html_links",
			fields: map[string]string{"clauses": `["c"]`, "html_links": "not json"},
		},
		{
			name:   "no sources",
			fields: map[string]string{"clauses": `["c"]`},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := gin.New()
			router.POST("/analyze", handler.Analyze)

			body, contentType := multipartBody(t, tt.fields, tt.files)
			req := httptest.NewRequest("POST", "/analyze", body)
			req.Header.Set("Content-Type", contentType)
			w := httptest.NewRecorder()

			router.ServeHTTP(w, req)

			if w.Code != http.StatusBadRequest {
				t.Errorf("Expected status 400, got %d: %s", w.Code, w.Body.String())
			}
		})
	}
}

func TestAnalyzeHandlerDocumentsWithoutArchive(t *testing.T) {
	orch, _ := newTestPipeline(t, "http://unused")
	handler := NewAnalyzeHandler(orch, nil)

	router := gin.New()
	router.GET("/jobs/:id/documents", handler.Documents)

	req := httptest.NewRequest("GET", "/jobs/some-id/documents", nil)
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	if w.Code != http.StatusNotFound {
		t.Errorf("Expected status 404, got %d", w.Code)
	}
}
