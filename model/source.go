package model

// Source kinds
const (
	SourceDocument = "document"
	SourceLink     = "link"
)

// Source is one comparison target: an uploaded document or a web link.
// Read-only once created.
type Source struct {
	Kind     string
	Filename string // uploaded documents
	Data     []byte // uploaded documents
	URL      string // links
}

// Name returns the identifier used in activity lines and error results
// before the source has been resolved to a payload.
func (s Source) Name() string {
	if s.Kind == SourceLink {
		return s.URL
	}
	return s.Filename
}

// ContentPayload is the uniform resolved form of a source: either raw PDF
// bytes handed to the analysis service as an attachment, or extracted text
// substituted into the prompt.
type ContentPayload struct {
	DisplayName string
	PDF         []byte
	Text        string
}

// IsText reports whether the payload carries extracted text rather than
// document bytes.
func (p ContentPayload) IsText() bool {
	return len(p.PDF) == 0
}
