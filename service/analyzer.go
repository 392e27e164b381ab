package service

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/ehagey/cra-legal-matching/config"
	"github.com/ehagey/cra-legal-matching/model"
)

// AnalyzerService executes single clause-vs-document comparisons against an
// OpenRouter-compatible chat completions API. Stateless and safe for
// concurrent use; every failure is captured into an ERROR result so one bad
// task never aborts a batch.
type AnalyzerService struct {
	config      *config.OpenRouterConfig
	limits      *config.LimitsConfig
	promptStore *PromptStore
	strategies  []ParseStrategy
	httpClient  *http.Client
}

func NewAnalyzerService(cfg *config.OpenRouterConfig, limits *config.LimitsConfig, prompts *PromptStore) *AnalyzerService {
	return &AnalyzerService{
		config:      cfg,
		limits:      limits,
		promptStore: prompts,
		strategies:  DefaultParseStrategies,
		httpClient: &http.Client{
			Timeout: time.Duration(cfg.TimeoutSeconds) * time.Second,
		},
	}
}

// chat completions request/response wire types

type chatContentPart struct {
	Type string    `json:"type"`
	Text string    `json:"text,omitempty"`
	File *chatFile `json:"file,omitempty"`
}

type chatFile struct {
	Filename string `json:"filename"`
	FileData string `json:"file_data"`
}

type chatMessage struct {
	Role    string            `json:"role"`
	Content []chatContentPart `json:"content"`
}

type chatPlugin struct {
	ID  string         `json:"id"`
	PDF *chatPDFConfig `json:"pdf,omitempty"`
}

type chatPDFConfig struct {
	Engine string `json:"engine"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Plugins     []chatPlugin  `json:"plugins,omitempty"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

// Compare runs one clause against one resolved document. It never returns
// an error: network failures, timeouts and unparseable output all come back
// as results with classification ERROR.
func (s *AnalyzerService) Compare(ctx context.Context, clause string, payload *model.ContentPayload, override *PromptOverride) model.Result {
	name := payload.DisplayName

	if len(payload.PDF) > 0 {
		maxBytes := s.limits.MaxAttachmentMB * 1024 * 1024
		if len(payload.PDF) > maxBytes {
			msg := fmt.Sprintf("PDF too large for API (%.2fMB, max %dMB)",
				float64(len(payload.PDF))/(1024*1024), s.limits.MaxAttachmentMB)
			return model.ErrorResult(clause, name,
				"PDF too large: "+msg,
				fmt.Sprintf("Could not process %s: %s", name, msg),
				msg)
		}
	}

	prompt := BuildComparisonPrompt(clause, name, payload.Text, override, s.promptStore)

	parts := []chatContentPart{{Type: "text", Text: prompt}}
	var plugins []chatPlugin
	if len(payload.PDF) > 0 {
		parts = append(parts, chatContentPart{
			Type: "file",
			File: &chatFile{
				Filename: name,
				FileData: encodePDFDataURL(payload.PDF),
			},
		})
		plugins = []chatPlugin{{ID: "file-parser", PDF: &chatPDFConfig{Engine: s.config.PDFEngine}}}
	}

	reqBody := chatRequest{
		Model:       s.config.Model,
		Messages:    []chatMessage{{Role: "user", Content: parts}},
		Plugins:     plugins,
		Temperature: s.config.Temperature,
		MaxTokens:   s.config.MaxTokens,
	}

	content, err := s.send(ctx, &reqBody)
	if err != nil {
		slog.Warn("analysis call failed", "document", name, "error", err)
		return model.ErrorResult(clause, name,
			fmt.Sprintf("API request failed: %v", err),
			fmt.Sprintf("Error from analysis API: %v", err),
			err.Error())
	}

	parsed := parseResponse(content, s.strategies)
	return model.Result{
		Classification: parsed.Classification,
		Summary:        parsed.Summary,
		Matches:        parsed.Matches,
		Analysis:       parsed.Analysis,
		Error:          parsed.Error,
		DocumentName:   name,
		Clause:         model.TruncateClause(clause),
	}
}

// send posts one chat completion request and returns the message content
func (s *AnalyzerService) send(ctx context.Context, reqBody *chatRequest) (string, error) {
	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.config.APIURL, bytes.NewBuffer(jsonData))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+s.config.APIKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		var apiErr chatResponse
		if json.Unmarshal(body, &apiErr) == nil && apiErr.Error != nil {
			return "", fmt.Errorf("%d: %s", resp.StatusCode, apiErr.Error.Message)
		}
		detail := truncateRunes(string(body), 500)
		return "", fmt.Errorf("%d: %s", resp.StatusCode, detail)
	}

	var result chatResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return "", fmt.Errorf("failed to parse response: %w", err)
	}
	if len(result.Choices) == 0 {
		return "", fmt.Errorf("response contained no choices")
	}
	return result.Choices[0].Message.Content, nil
}

// Ping checks that the analysis endpoint is reachable. Used by the health
// probe; a 4xx response still proves reachability.
func (s *AnalyzerService) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.config.APIURL, nil)
	if err != nil {
		return err
	}
	resp, err := s.httpClient.Do(req)
	if err != nil {
		return err
	}
	resp.Body.Close()
	return nil
}

// encodePDFDataURL converts document bytes to the base64 data URL form the
// completion API expects for file attachments.
func encodePDFDataURL(pdf []byte) string {
	return "data:application/pdf;base64," + base64.StdEncoding.EncodeToString(pdf)
}
