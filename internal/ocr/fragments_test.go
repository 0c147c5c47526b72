package ocr

import "testing"

func TestJoinText(t *testing.T) {
	tests := []struct {
		name      string
		fragments []Fragment
		want      string
	}{
		{
			name: "multiple lines in order",
			fragments: []Fragment{
				{Text: "A", Confidence: 90},
				{Text: "B", Confidence: 95},
				{Text: "C", Confidence: 100},
			},
			want: "A\nB\nC",
		},
		{
			name:      "single line",
			fragments: []Fragment{{Text: "Invoice #1234", Confidence: 99}},
			want:      "Invoice #1234",
		},
		{
			name: "preserves empty lines",
			fragments: []Fragment{
				{Text: "header", Confidence: 90},
				{Text: "", Confidence: 50},
				{Text: "footer", Confidence: 90},
			},
			want: "header\n\nfooter",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := JoinText(tt.fragments); got != tt.want {
				t.Errorf("JoinText() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestMeanConfidence(t *testing.T) {
	fragments := []Fragment{
		{Text: "A", Confidence: 90},
		{Text: "B", Confidence: 95},
		{Text: "C", Confidence: 100},
	}

	got := MeanConfidence(fragments)
	if got != 95.0 {
		t.Errorf("MeanConfidence() = %v, want exactly 95.0", got)
	}
}

func TestMeanConfidenceSingle(t *testing.T) {
	if got := MeanConfidence([]Fragment{{Text: "x", Confidence: 87.5}}); got != 87.5 {
		t.Errorf("MeanConfidence() = %v, want 87.5", got)
	}
}
