package usecases

import (
	"fmt"
	"strings"
	"testing"
)

// wordTokenizer treats every whitespace-separated word as one token. Tests
// can then reason about token budgets by counting words.
type wordTokenizer struct {
	vocab map[string]int
	words []string
}

func newWordTokenizer() *wordTokenizer {
	return &wordTokenizer{vocab: make(map[string]int)}
}

func (t *wordTokenizer) Count(text string) int {
	return len(strings.Fields(text))
}

func (t *wordTokenizer) Encode(text string) []int {
	fields := strings.Fields(text)
	tokens := make([]int, len(fields))
	for i, w := range fields {
		id, ok := t.vocab[w]
		if !ok {
			id = len(t.words)
			t.vocab[w] = id
			t.words = append(t.words, w)
		}
		tokens[i] = id
	}
	return tokens
}

func (t *wordTokenizer) Decode(tokens []int) string {
	words := make([]string, len(tokens))
	for i, id := range tokens {
		words[i] = t.words[id]
	}
	return strings.Join(words, " ")
}

func mustChunker(t *testing.T, maxTokens, overlap int) *Chunker {
	t.Helper()
	c, err := NewChunker(newWordTokenizer(), maxTokens, overlap)
	if err != nil {
		t.Fatal(err)
	}
	return c
}

func TestChunkerEmptyContent(t *testing.T) {
	c := mustChunker(t, 100, 10)
	if chunks := c.ChunkAll("ns", "empty.go", ""); len(chunks) != 0 {
		t.Errorf("empty content produced %d chunks", len(chunks))
	}
}

func TestChunkerSingleChunk(t *testing.T) {
	c := mustChunker(t, 100, 10)
	content := "alpha beta\ngamma delta\nepsilon"
	chunks := c.ChunkAll("ns", "small.go", content)
	if len(chunks) != 1 {
		t.Fatalf("got %d chunks, want 1", len(chunks))
	}
	ch := chunks[0]
	if ch.StartLine != 1 || ch.EndLine != 3 {
		t.Errorf("lines %d-%d, want 1-3", ch.StartLine, ch.EndLine)
	}
	if ch.Text != content {
		t.Errorf("text %q, want full content", ch.Text)
	}
	if ch.TokenCount != 5 {
		t.Errorf("token count %d, want 5", ch.TokenCount)
	}
}

func TestChunkerRejectsOverlapAtBudget(t *testing.T) {
	if _, err := NewChunker(newWordTokenizer(), 100, 100); err == nil {
		t.Error("overlap equal to max tokens accepted")
	}
	if _, err := NewChunker(newWordTokenizer(), 100, 150); err == nil {
		t.Error("overlap above max tokens accepted")
	}
}

func TestChunkerLineBoundaries(t *testing.T) {
	// 10 lines of 10 tokens each, budget 25: two lines per chunk, no room
	// for a third.
	var lines []string
	for i := 0; i < 10; i++ {
		words := make([]string, 10)
		for j := range words {
			words[j] = fmt.Sprintf("w%d_%d", i, j)
		}
		lines = append(lines, strings.Join(words, " "))
	}
	content := strings.Join(lines, "\n")

	c := mustChunker(t, 25, 5)
	chunks := c.ChunkAll("ns", "file.go", content)
	if len(chunks) != 5 {
		t.Fatalf("got %d chunks, want 5", len(chunks))
	}
	for i, ch := range chunks {
		wantStart := i*2 + 1
		if ch.StartLine != wantStart || ch.EndLine != wantStart+1 {
			t.Errorf("chunk %d covers %d-%d, want %d-%d", i, ch.StartLine, ch.EndLine, wantStart, wantStart+1)
		}
		if want := strings.Join(lines[ch.StartLine-1:ch.EndLine], "\n"); ch.Text != want {
			t.Errorf("chunk %d text does not match its line range", i)
		}
	}
}

func TestChunkerOverlapRepeatsTrailingLines(t *testing.T) {
	// Budget 25, overlap 15: after a two-line chunk the second line (10
	// tokens) fits in the overlap, so it starts the next chunk too.
	var lines []string
	for i := 0; i < 6; i++ {
		words := make([]string, 10)
		for j := range words {
			words[j] = fmt.Sprintf("w%d_%d", i, j)
		}
		lines = append(lines, strings.Join(words, " "))
	}
	content := strings.Join(lines, "\n")

	c := mustChunker(t, 25, 15)
	chunks := c.ChunkAll("ns", "file.go", content)
	if len(chunks) < 2 {
		t.Fatalf("got %d chunks, want several", len(chunks))
	}
	if chunks[0].StartLine != 1 || chunks[0].EndLine != 2 {
		t.Fatalf("first chunk covers %d-%d, want 1-2", chunks[0].StartLine, chunks[0].EndLine)
	}
	if chunks[1].StartLine != 2 {
		t.Errorf("second chunk starts at line %d, want 2 (overlap)", chunks[1].StartLine)
	}
	for i := 1; i < len(chunks); i++ {
		if chunks[i].StartLine <= chunks[i-1].StartLine {
			t.Errorf("chunk %d start %d does not progress past %d", i, chunks[i].StartLine, chunks[i-1].StartLine)
		}
		if chunks[i].StartLine > chunks[i-1].EndLine+1 {
			t.Errorf("gap between chunk %d (ends %d) and chunk %d (starts %d)",
				i-1, chunks[i-1].EndLine, i, chunks[i].StartLine)
		}
	}
	last := chunks[len(chunks)-1]
	if last.EndLine != len(lines) {
		t.Errorf("last chunk ends at line %d, want %d", last.EndLine, len(lines))
	}
}

func TestChunkerOversizedLine(t *testing.T) {
	// A single 5000-token line with budget 1000 and overlap 100 splits into
	// token windows starting every 900 tokens: 0-1000, 900-1900, 1800-2800,
	// 2700-3700, 3600-4600, 4500-5000.
	words := make([]string, 5000)
	for i := range words {
		words[i] = fmt.Sprintf("t%d", i)
	}
	content := strings.Join(words, " ")

	c := mustChunker(t, 1000, 100)
	chunks := c.ChunkAll("ns", "minified.js", content)
	if len(chunks) != 6 {
		t.Fatalf("got %d chunks, want 6", len(chunks))
	}

	wantBounds := [][2]int{{0, 1000}, {900, 1900}, {1800, 2800}, {2700, 3700}, {3600, 4600}, {4500, 5000}}
	for i, ch := range chunks {
		if ch.StartLine != 1 || ch.EndLine != 1 {
			t.Errorf("chunk %d attributed to lines %d-%d, want 1-1", i, ch.StartLine, ch.EndLine)
		}
		wantCount := wantBounds[i][1] - wantBounds[i][0]
		if ch.TokenCount != wantCount {
			t.Errorf("chunk %d has %d tokens, want %d", i, ch.TokenCount, wantCount)
		}
		if first := fmt.Sprintf("t%d", wantBounds[i][0]); !strings.HasPrefix(ch.Text, first+" ") {
			t.Errorf("chunk %d does not start at token %d", i, wantBounds[i][0])
		}
	}
}

func TestChunkerDeterministicIDs(t *testing.T) {
	content := "alpha beta\ngamma delta"
	c := mustChunker(t, 100, 10)
	first := c.ChunkAll("ns", "file.go", content)
	second := c.ChunkAll("ns", "file.go", content)
	if len(first) != len(second) {
		t.Fatalf("chunk counts differ: %d vs %d", len(first), len(second))
	}
	for i := range first {
		if first[i].ID != second[i].ID {
			t.Errorf("chunk %d ids differ: %q vs %q", i, first[i].ID, second[i].ID)
		}
	}
}

func TestChunkerSequenceRestartable(t *testing.T) {
	content := "alpha beta\ngamma delta\nepsilon zeta"
	c := mustChunker(t, 4, 2)
	seq := c.Chunks("ns", "file.go", content)

	var firstPass, secondPass int
	for range seq {
		firstPass++
	}
	for range seq {
		secondPass++
	}
	if firstPass == 0 || firstPass != secondPass {
		t.Errorf("sequence not restartable: first %d, second %d", firstPass, secondPass)
	}
}

func TestChunkerPartialConsumption(t *testing.T) {
	content := strings.Repeat("word word word word\n", 50)
	c := mustChunker(t, 8, 2)

	var got int
	for range c.Chunks("ns", "file.go", content) {
		got++
		if got == 2 {
			break
		}
	}
	if got != 2 {
		t.Errorf("early break consumed %d chunks, want 2", got)
	}
}
