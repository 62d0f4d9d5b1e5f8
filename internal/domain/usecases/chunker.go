// Package usecases contains the application logic of the pipeline: chunking,
// ingestion, chat turns, and the orchestrating state machine. Usecases depend
// only on entities and port interfaces.
package usecases

import (
	"fmt"
	"iter"
	"strings"

	"github.com/BenLus/Github-Repo-Chatbot/internal/domain/entities"
	"github.com/BenLus/Github-Repo-Chatbot/internal/domain/ports"
)

// Chunking defaults, matching the generation model's context budgeting.
const (
	DefaultMaxChunkTokens = 1000
	DefaultChunkOverlap   = 100
)

// Chunker splits file text into overlapping, token-bounded chunks with line
// metadata. Boundaries fall on line breaks where possible; a single line
// larger than the budget is split at raw token boundaries.
type Chunker struct {
	tok       ports.Tokenizer
	maxTokens int
	overlap   int
}

// NewChunker creates a Chunker. Zero values fall back to the defaults;
// an overlap at or above the chunk budget is a configuration error.
func NewChunker(tok ports.Tokenizer, maxTokens, overlap int) (*Chunker, error) {
	if maxTokens <= 0 {
		maxTokens = DefaultMaxChunkTokens
	}
	if overlap <= 0 {
		overlap = DefaultChunkOverlap
	}
	if overlap >= maxTokens {
		return nil, fmt.Errorf("chunk overlap %d must be smaller than max tokens %d", overlap, maxTokens)
	}
	return &Chunker{tok: tok, maxTokens: maxTokens, overlap: overlap}, nil
}

// MaxTokens returns the configured per-chunk token budget.
func (c *Chunker) MaxTokens() int { return c.maxTokens }

// Overlap returns the configured overlap in tokens.
func (c *Chunker) Overlap() int { return c.overlap }

// Chunks returns a lazy, restartable sequence of chunks covering content with
// no gaps: the first chunk starts at offset zero, each later chunk starts one
// overlap before the previous chunk's end, and the last chunk ends at
// end-of-file. Empty content yields no chunks; content smaller than one
// budget yields exactly one chunk.
func (c *Chunker) Chunks(namespace, path, content string) iter.Seq[entities.Chunk] {
	return func(yield func(entities.Chunk) bool) {
		if content == "" {
			return
		}

		lines := strings.Split(content, "\n")
		counts := make([]int, len(lines))
		for i, line := range lines {
			if i < len(lines)-1 {
				counts[i] = c.tok.Count(line + "\n")
			} else {
				counts[i] = c.tok.Count(line)
			}
		}

		start := 0
		for start < len(lines) {
			if counts[start] > c.maxTokens {
				if !c.splitLine(namespace, path, start+1, lines[start], yield) {
					return
				}
				start++
				continue
			}

			end := start
			total := counts[start]
			for end+1 < len(lines) && counts[end+1] <= c.maxTokens && total+counts[end+1] <= c.maxTokens {
				end++
				total += counts[end]
			}

			span := fmt.Sprintf("L%d:%d", start+1, end+1)
			ok := yield(entities.Chunk{
				ID:         entities.ChunkID(namespace, path, span),
				Path:       path,
				StartLine:  start + 1,
				EndLine:    end + 1,
				Text:       strings.Join(lines[start:end+1], "\n"),
				TokenCount: total,
			})
			if !ok {
				return
			}

			if end == len(lines)-1 {
				return
			}

			// Walk back whole lines until the overlap budget is spent. The
			// next start stays strictly past the previous one.
			next := end + 1
			overlapTokens := 0
			for next-1 > start && overlapTokens+counts[next-1] <= c.overlap {
				next--
				overlapTokens += counts[next]
			}
			start = next
		}
	}
}

// ChunkAll materializes Chunks into a slice.
func (c *Chunker) ChunkAll(namespace, path, content string) []entities.Chunk {
	var chunks []entities.Chunk
	for chunk := range c.Chunks(namespace, path, content) {
		chunks = append(chunks, chunk)
	}
	return chunks
}

// splitLine handles a single line that exceeds the token budget: raw token
// windows of maxTokens, stepping maxTokens-overlap, all attributed to the
// same line for citation.
func (c *Chunker) splitLine(namespace, path string, lineNo int, line string, yield func(entities.Chunk) bool) bool {
	tokens := c.tok.Encode(line)
	step := c.maxTokens - c.overlap

	for s := 0; ; s += step {
		e := min(s+c.maxTokens, len(tokens))
		span := fmt.Sprintf("T%d:%d:%d", lineNo, s, e)
		ok := yield(entities.Chunk{
			ID:         entities.ChunkID(namespace, path, span),
			Path:       path,
			StartLine:  lineNo,
			EndLine:    lineNo,
			Text:       c.tok.Decode(tokens[s:e]),
			TokenCount: e - s,
		})
		if !ok || e == len(tokens) {
			return ok
		}
	}
}
