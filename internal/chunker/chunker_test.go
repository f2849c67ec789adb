package chunker

import (
	"bufio"
	"strings"
	"testing"
)

func TestSplitFixedProducesOverlap(t *testing.T) {
	chunks := Split(strings.Repeat("a", 25), Options{Strategy: StrategyFixed, ChunkSize: 10, ChunkOverlap: 2})
	if len(chunks) < 2 {
		t.Fatalf("expected multiple chunks, got %d", len(chunks))
	}
	for i, c := range chunks {
		if c.Index != i {
			t.Errorf("chunk %d has Index %d", i, c.Index)
		}
	}
	total := 0
	for _, c := range chunks {
		total += len(c.Content)
	}
	if total <= 25 {
		t.Errorf("chunks cover %d characters of a 25-character input, want overlapping windows to repeat some", total)
	}
}

func TestSplitRecursiveRespectsParagraphs(t *testing.T) {
	text := "Paragraph one is short.\n\nParagraph two is also short."
	chunks := Split(text, Options{Strategy: StrategyRecursive, ChunkSize: 1000})
	if len(chunks) != 1 {
		t.Fatalf("expected both short paragraphs merged into one chunk, got %d", len(chunks))
	}
}

func TestSplitSentenceBreaksOnPunctuation(t *testing.T) {
	text := "First sentence. Second sentence! Third sentence?"
	chunks := Split(text, Options{Strategy: StrategySentence, ChunkSize: 1000})
	if len(chunks) != 1 {
		t.Fatalf("expected one chunk for short text, got %d", len(chunks))
	}
	if !strings.Contains(chunks[0].Content, "Third sentence?") {
		t.Errorf("chunk missing final sentence: %q", chunks[0].Content)
	}
}

func TestSemanticDegradesToSentence(t *testing.T) {
	text := "One. Two. Three."
	semantic := Split(text, Options{Strategy: StrategySemantic, ChunkSize: 1000})
	sentence := Split(text, Options{Strategy: StrategySentence, ChunkSize: 1000})
	if len(semantic) != len(sentence) {
		t.Errorf("semantic chunking should degrade to sentence chunking: %d vs %d", len(semantic), len(sentence))
	}
}

func TestEstimateTokensUsesWordRatio(t *testing.T) {
	got := EstimateTokens("one two three four five")
	if got != 7 {
		t.Errorf("EstimateTokens = %d, want 7 (5 words * 1.3 rounded)", got)
	}
}

func TestForExtension(t *testing.T) {
	cases := map[string]Strategy{
		".md":  StrategySentence,
		".csv": StrategyRecursive,
		".xyz": StrategyRecursive,
	}
	for ext, want := range cases {
		if got := ForExtension(ext); got != want {
			t.Errorf("ForExtension(%q) = %q, want %q", ext, got, want)
		}
	}
}

func TestScanLines(t *testing.T) {
	scanner := bufio.NewScanner(strings.NewReader("a\nb\nc\n"))
	lines := ScanLines(scanner, 0)
	if len(lines) != 3 {
		t.Errorf("ScanLines returned %d lines, want 3", len(lines))
	}
}
