package ocr

import "strings"

// JoinText joins fragment texts with newlines, preserving engine order.
func JoinText(fragments []Fragment) string {
	lines := make([]string, len(fragments))
	for i, f := range fragments {
		lines[i] = f.Text
	}
	return strings.Join(lines, "\n")
}

// MeanConfidence returns the arithmetic mean of the fragment confidences.
// Callers must not pass an empty slice; DetectText guarantees at least one
// fragment by returning ErrNoText otherwise.
func MeanConfidence(fragments []Fragment) float64 {
	var sum float64
	for _, f := range fragments {
		sum += f.Confidence
	}
	return sum / float64(len(fragments))
}
