// Package prompts holds the prompt text sent to the language model for the
// classification and summarization stages, plus the closed category list.
package prompts

import (
	"fmt"
	"strings"
)

// Categories is the closed list of document categories the classifier may
// return. The model is instructed to answer with exactly one of these.
var Categories = []string{
	"Dietary Supplement",
	"Stationery",
	"Kitchen Supplies",
	"Medicine",
	"Driver License",
	"Invoice",
	"W2",
	"Other",
}

// Output token bounds per stage. Classification needs only a category name;
// summarization gets room for a short paragraph.
const (
	ClassifyMaxTokens  = 100
	SummarizeMaxTokens = 500
)

// Classification builds the classification prompt embedding the extracted
// document text and the closed category list.
// Parameters:
//   - extractedText: OCR output for the document.
// Returns:
//   - string: prompt requesting a single category name.
func Classification(extractedText string) string {
	return fmt.Sprintf(`Classify this document into one of these categories: %s.

Document text: %s

Respond with only the category name.`, strings.Join(Categories, ", "), extractedText)
}

// Summarization builds the summarization prompt for the extracted text.
// Parameters:
//   - extractedText: OCR output for the document.
// Returns:
//   - string: prompt requesting a concise summary.
func Summarization(extractedText string) string {
	return fmt.Sprintf(`Provide a concise summary of this document:

%s

Summary:`, extractedText)
}
