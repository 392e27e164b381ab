package service

import (
	"strings"
)

// Placeholders recognized in prompt templates
const (
	PlaceholderClause       = "{clause}"
	PlaceholderDocumentName = "{document_name}"
	PlaceholderDocumentText = "{document_text}"
)

// DefaultPDFPrompt is used when the document is attached as a PDF and no
// custom template has been supplied.
const DefaultPDFPrompt = `You are a legal analyst comparing agreement clauses. Your task is to analyze the attached PDF document ("{document_name}") and find ALL clauses that match or relate to the following reference clause.

REFERENCE CLAUSE TO FIND:
{clause}

INSTRUCTIONS:
1. Read the ENTIRE PDF document carefully
2. Analyze the reference clause above. If it contains multiple distinct legal concepts or ideas, break them down and analyze each one separately.
3. Find ALL clauses that match or relate to the reference clause (or each distinct concept within it).
4. For each match, provide precise citations including:
   - Page number (exact page where the clause appears)
   - Section/Article number (e.g., "Section 10.2", "Article 5")
   - Paragraph number within that section
   - Section title/heading
   - Full quoted text of the matching clause

5. Classify each match as:
   - IDENTICAL: Same legal effect, wording may differ slightly but meaning is equivalent
   - SIMILAR: Related clause with meaningful differences that could affect legal interpretation

6. For SIMILAR matches, provide a side-by-side comparison of key differences:
   - What aspect differs
   - The reference version
   - Their version
   - Legal note explaining the significance

7. Provide an overall classification for the document:
   - IDENTICAL: At least one match is IDENTICAL
   - SIMILAR: Only SIMILAR matches found, no IDENTICAL
   - NOT_PRESENT: No comparable clauses found

8. Every match MUST include an "aspect_label" field: a short label (2-5 words) identifying which legal concept it addresses.

OUTPUT FORMAT:
You MUST respond with valid JSON only:

{
  "classification": "IDENTICAL" | "SIMILAR" | "NOT_PRESENT",
  "summary": "Brief one-line finding",
  "matches": [
    {
      "type": "IDENTICAL" | "SIMILAR",
      "aspect_label": "<2-5 word label>",
      "page": <number>,
      "section": "<section number>",
      "section_title": "<section heading>",
      "paragraph": <number>,
      "full_text": "<exact quoted text>",
      "differences": [
        {
          "aspect": "<what differs>",
          "ours": "<the reference version>",
          "theirs": "<their version>"
        }
      ],
      "legal_note": "<legal significance>"
    }
  ],
  "analysis": "<Overall comparison summary>"
}

IMPORTANT:
- Return ONLY valid JSON, no markdown code blocks
- If no matches found, return classification: "NOT_PRESENT" with empty matches array
- For IDENTICAL matches, differences array should be empty
- Every match MUST have an aspect_label
- Page numbers must be accurate
- Full quoted text must be EXACT verbatim copies, preserving original casing`

// DefaultTextPrompt is used when the document was resolved to extracted text.
const DefaultTextPrompt = `You are a legal analyst comparing agreement clauses. Your task is to analyze the following document text ("{document_name}") and find ALL clauses that match or relate to the following reference clause.

DOCUMENT TEXT TO ANALYZE:
{document_text}

REFERENCE CLAUSE TO FIND:
{clause}

INSTRUCTIONS:
1. Read the ENTIRE document text carefully
2. Analyze the reference clause above. If it contains multiple distinct legal concepts or ideas, break them down and analyze each one separately.
3. Find ALL clauses that match or relate to the reference clause (or each distinct concept within it).
4. For each match, provide precise citations including:
   - Section/Article number (e.g., "Section 10.2", "Article 5")
   - Paragraph number within that section
   - Section title/heading
   - Full quoted text of the matching clause

5. Classify each match as:
   - IDENTICAL: Same legal effect, wording may differ slightly but meaning is equivalent
   - SIMILAR: Related clause with meaningful differences that could affect legal interpretation

6. For SIMILAR matches, provide a side-by-side comparison of key differences:
   - What aspect differs
   - The reference version
   - Their version
   - Legal note explaining the significance

7. Provide an overall classification for the document:
   - IDENTICAL: At least one match is IDENTICAL
   - SIMILAR: Only SIMILAR matches found, no IDENTICAL
   - NOT_PRESENT: No comparable clauses found

8. Every match MUST include an "aspect_label" field: a short label (2-5 words) identifying which legal concept it addresses.

OUTPUT FORMAT:
You MUST respond with valid JSON only:

{
  "classification": "IDENTICAL" | "SIMILAR" | "NOT_PRESENT",
  "summary": "Brief one-line finding",
  "matches": [
    {
      "type": "IDENTICAL" | "SIMILAR",
      "aspect_label": "<2-5 word label>",
      "section": "<section number>",
      "section_title": "<section heading>",
      "paragraph": <number>,
      "full_text": "<exact quoted text>",
      "differences": [
        {
          "aspect": "<what differs>",
          "ours": "<the reference version>",
          "theirs": "<their version>"
        }
      ],
      "legal_note": "<legal significance>"
    }
  ],
  "analysis": "<Overall comparison summary>"
}

IMPORTANT:
- Return ONLY valid JSON, no markdown code blocks
- If no matches found, return classification: "NOT_PRESENT" with empty matches array
- For IDENTICAL matches, differences array should be empty
- Every match MUST have an aspect_label
- Full quoted text must be EXACT verbatim copies, preserving original casing`

// PromptOverride carries per-request template overrides from the submitter.
// Empty fields fall back to saved templates, then to the defaults.
type PromptOverride struct {
	PDF  string `json:"pdf"`
	Text string `json:"text"`
}

// BuildComparisonPrompt renders the prompt for one comparison. The template
// is chosen by payload kind: override first, then the saved custom template,
// then the built-in default.
func BuildComparisonPrompt(clause, documentName, documentText string, override *PromptOverride, store *PromptStore) string {
	isText := documentText != ""

	template := ""
	if override != nil {
		if isText {
			template = override.Text
		} else {
			template = override.PDF
		}
	}
	if template == "" && store != nil {
		if saved := store.Get(); saved != nil {
			if isText {
				template = saved.Text
			} else {
				template = saved.PDF
			}
		}
	}
	if template == "" {
		if isText {
			template = DefaultTextPrompt
		} else {
			template = DefaultPDFPrompt
		}
	}

	prompt := strings.ReplaceAll(template, PlaceholderClause, clause)
	prompt = strings.ReplaceAll(prompt, PlaceholderDocumentName, documentName)
	if isText {
		prompt = strings.ReplaceAll(prompt, PlaceholderDocumentText, documentText)
	}
	return prompt
}
