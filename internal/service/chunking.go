package service

import (
	"strings"

	"github.com/univera/campuschat/internal/domain"
)

// ChunkConfig controls chunking of extracted document text.
type ChunkConfig struct {
	Size    int
	Overlap int
}

// DefaultChunkConfig provides sane defaults for chunking.
func DefaultChunkConfig() ChunkConfig {
	return ChunkConfig{
		Size:    1000,
		Overlap: 200,
	}
}

// Validate rejects configurations that would break the chunking loop.
// Overlap at or above the chunk size would stop the window from advancing,
// so it is refused outright rather than reinterpreted.
func (c ChunkConfig) Validate() error {
	if c.Size <= 0 {
		return domain.ErrInvalidChunkConfig
	}
	if c.Overlap < 0 || c.Overlap >= c.Size {
		return domain.ErrInvalidChunkConfig
	}
	return nil
}

// ChunkText splits text into overlapping windows of at most cfg.Size runes,
// snapping each window end to the last sentence terminator inside it when one
// exists. Pure and single-pass; empty or whitespace-only input yields nil.
func ChunkText(text string, cfg ChunkConfig) []string {
	if strings.TrimSpace(text) == "" {
		return nil
	}
	if cfg.Size <= 0 {
		cfg = DefaultChunkConfig()
	}

	runes := []rune(text)
	chunks := make([]string, 0, 8)
	start := 0
	for start < len(runes) {
		end := start + cfg.Size
		if end > len(runes) {
			end = len(runes)
		}

		// Not the last window: prefer ending on a sentence boundary. Scan
		// backward through the window for the last terminator; keep the hard
		// cut when the window holds none.
		if end < len(runes) {
			for i := end - 1; i >= start; i-- {
				if isSentenceTerminal(runes[i]) {
					end = i + 1
					break
				}
			}
		}

		chunk := strings.TrimSpace(string(runes[start:end]))
		if chunk != "" {
			chunks = append(chunks, chunk)
		}

		if end >= len(runes) {
			break
		}

		// The loop must always make forward progress, even if overlap is
		// misconfigured relative to where the boundary snap landed.
		next := end - cfg.Overlap
		if next <= start {
			next = end
		}
		start = next
	}

	return chunks
}

func isSentenceTerminal(r rune) bool {
	return r == '.' || r == '!' || r == '?'
}
