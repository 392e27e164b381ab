package service

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/ehagey/cra-legal-matching/config"
	"github.com/ehagey/cra-legal-matching/model"
)

// LoaderService resolves heterogeneous sources (uploaded documents, web
// links) into uniform content payloads. Stateless; one instance serves all
// jobs.
type LoaderService struct {
	reader     *config.ReaderConfig
	limits     *config.LimitsConfig
	httpClient *http.Client
}

func NewLoaderService(reader *config.ReaderConfig, limits *config.LimitsConfig) *LoaderService {
	return &LoaderService{
		reader: reader,
		limits: limits,
		httpClient: &http.Client{
			Timeout: time.Duration(reader.TimeoutSeconds) * time.Second,
		},
	}
}

// Resolve turns a source into a content payload, or a LoadError when the
// source cannot be used. Each unique source is resolved once per job; the
// orchestrator shares the payload across all clauses compared against it.
func (s *LoaderService) Resolve(ctx context.Context, src model.Source) (*model.ContentPayload, error) {
	switch src.Kind {
	case model.SourceLink:
		return s.resolveLink(ctx, src.URL)
	default:
		return s.resolveDocument(src)
	}
}

func (s *LoaderService) resolveDocument(src model.Source) (*model.ContentPayload, error) {
	if err := s.validatePDF(src.Data); err != nil {
		return nil, &model.LoadError{
			Kind:    err.Kind,
			Source:  src.Filename,
			Message: err.Message,
		}
	}
	return &model.ContentPayload{
		DisplayName: src.Filename,
		PDF:         src.Data,
	}, nil
}

// validatePDF checks the size cap and the PDF magic header. Text
// extraction is left to the analysis service, which accepts raw document
// bytes as an attachment.
func (s *LoaderService) validatePDF(data []byte) *model.LoadError {
	maxBytes := s.limits.MaxUploadMB * 1024 * 1024
	if len(data) > maxBytes {
		return &model.LoadError{
			Kind:    model.LoadTooLarge,
			Message: fmt.Sprintf("PDF file exceeds maximum size of %dMB", s.limits.MaxUploadMB),
		}
	}
	if len(data) < 4 {
		return &model.LoadError{
			Kind:    model.LoadInvalidDocument,
			Message: "file is too small to be a valid PDF",
		}
	}
	if !strings.HasPrefix(string(data[:4]), "%PDF") {
		return &model.LoadError{
			Kind:    model.LoadInvalidDocument,
			Message: "file does not appear to be a valid PDF (missing PDF header)",
		}
	}
	return nil
}

func (s *LoaderService) resolveLink(ctx context.Context, link string) (*model.ContentPayload, error) {
	var (
		text string
		err  error
	)
	if s.reader.APIKey != "" {
		text, err = s.scrapeWithReader(ctx, link)
	} else {
		text, err = s.scrapeDirect(ctx, link)
	}
	if err != nil {
		return nil, &model.LoadError{
			Kind:    model.LoadFetchFailed,
			Source:  link,
			Message: err.Error(),
		}
	}

	text = strings.TrimSpace(text)
	if text == "" {
		return nil, &model.LoadError{
			Kind:    model.LoadEmptyContent,
			Source:  link,
			Message: "no text content extracted from URL",
		}
	}

	slog.Info("scraped link", "url", link, "chars", len(text))
	return &model.ContentPayload{
		DisplayName: DisplayNameFromURL(link),
		Text:        text,
	}, nil
}

// scrapeWithReader fetches the link through the configured reader API,
// which returns the page already reduced to plain text.
func (s *LoaderService) scrapeWithReader(ctx context.Context, link string) (string, error) {
	readerURL := strings.TrimSuffix(s.reader.APIURL, "/") + "/" + link

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, readerURL, nil)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+s.reader.APIKey)
	req.Header.Set("X-Return-Format", "text")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to scrape URL: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		detail := truncateRunes(strings.TrimSpace(string(body)), 200)
		return "", fmt.Errorf("reader request failed: %d %s", resp.StatusCode, detail)
	}
	return string(body), nil
}

// scrapeDirect fetches the page itself and strips markup locally. Used when
// no reader key is configured.
func (s *LoaderService) scrapeDirect(ctx context.Context, link string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, link, nil)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to fetch URL: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", fmt.Errorf("fetch failed: %d %s", resp.StatusCode, resp.Status)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to parse HTML: %w", err)
	}
	doc.Find("script, style, noscript").Remove()

	var b strings.Builder
	doc.Find("body").Each(func(_ int, sel *goquery.Selection) {
		b.WriteString(sel.Text())
	})
	text := b.String()
	if text == "" {
		text = doc.Text()
	}
	return collapseWhitespace(text), nil
}

func collapseWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// DisplayNameFromURL derives a readable document label from a link, e.g.
// "https://play.google.com/about/developer-distribution-agreement.html"
// becomes "Play Google - Developer Distribution Agreement".
func DisplayNameFromURL(link string) string {
	parsed, err := url.Parse(link)
	if err != nil || parsed.Host == "" {
		return link
	}

	netloc := strings.TrimPrefix(parsed.Hostname(), "www.")
	var domainParts []string
	for _, p := range strings.Split(netloc, ".") {
		switch strings.ToLower(p) {
		case "com", "org", "net", "io", "co":
			continue
		}
		domainParts = append(domainParts, titleWord(p))
	}
	domainLabel := strings.Join(domainParts, " ")
	if domainLabel == "" {
		domainLabel = netloc
	}

	pageLabel := "Agreement"
	if path := strings.Trim(parsed.Path, "/"); path != "" {
		segments := strings.Split(path, "/")
		last := segments[len(segments)-1]
		for _, ext := range []string{".html", ".htm", ".php", ".aspx", ".jsp", ".shtml"} {
			if strings.HasSuffix(strings.ToLower(last), ext) {
				last = last[:len(last)-len(ext)]
				break
			}
		}
		last = strings.ReplaceAll(last, "-", " ")
		last = strings.ReplaceAll(last, "_", " ")
		if trimmed := strings.TrimSpace(last); trimmed != "" {
			words := strings.Fields(trimmed)
			for i, w := range words {
				words[i] = titleWord(w)
			}
			pageLabel = strings.Join(words, " ")
		}
	}

	name := domainLabel + " - " + pageLabel
	runes := []rune(name)
	if len(runes) > 80 {
		name = string(runes[:80])
	}
	return name
}

func titleWord(w string) string {
	if w == "" {
		return w
	}
	return strings.ToUpper(w[:1]) + w[1:]
}
