package service

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"
)

// CustomPrompt holds the persisted template pair edited through the API
type CustomPrompt struct {
	PDF  string `json:"pdf"`
	Text string `json:"text"`
}

// PromptStore persists custom prompt templates to a JSON file so they
// survive restarts. Concurrent access is serialized; the file is small.
type PromptStore struct {
	mu   sync.Mutex
	path string
}

func NewPromptStore(path string) *PromptStore {
	return &PromptStore{path: path}
}

// Get returns the saved templates, or nil when none have been saved
func (s *PromptStore) Get() *CustomPrompt {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if err != nil {
		return nil
	}
	var p CustomPrompt
	if err := json.Unmarshal(data, &p); err != nil {
		return nil
	}
	if p.PDF == "" && p.Text == "" {
		return nil
	}
	return &p
}

// Save merges non-empty fields into the stored templates
func (s *PromptStore) Save(pdfPrompt, textPrompt string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var p CustomPrompt
	if data, err := os.ReadFile(s.path); err == nil {
		_ = json.Unmarshal(data, &p)
	}
	if pdfPrompt != "" {
		p.PDF = pdfPrompt
	}
	if textPrompt != "" {
		p.Text = textPrompt
	}

	data, err := json.MarshalIndent(p, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal prompts: %w", err)
	}
	if err := os.WriteFile(s.path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write prompt file: %w", err)
	}
	return nil
}

// Reset deletes the stored templates, restoring the built-in defaults
func (s *PromptStore) Reset() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.Remove(s.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove prompt file: %w", err)
	}
	return nil
}
