// Package chunker splits raw document text into overlapping fixed-size
// windows suitable for retrieval indexing.
package chunker

import "fmt"

// Splitter slices text into chunks of chunkSize runes, stepping forward by
// chunkSize-overlap each time. Windows shorter than half the chunk size are
// dropped; a trailing remainder below that threshold is discarded rather
// than indexed.
type Splitter struct {
	chunkSize int
	overlap   int
}

// New validates the chunking parameters and returns a Splitter.
func New(chunkSize, overlap int) (*Splitter, error) {
	if chunkSize <= 0 {
		return nil, fmt.Errorf("chunk size must be positive, got %d", chunkSize)
	}
	if overlap < 0 {
		return nil, fmt.Errorf("overlap must not be negative, got %d", overlap)
	}
	if overlap >= chunkSize {
		return nil, fmt.Errorf("overlap %d must be smaller than chunk size %d", overlap, chunkSize)
	}
	return &Splitter{chunkSize: chunkSize, overlap: overlap}, nil
}

// ChunkSize returns the configured window size in runes.
func (s *Splitter) ChunkSize() int { return s.chunkSize }

// Overlap returns the configured overlap in runes.
func (s *Splitter) Overlap() int { return s.overlap }

// Split returns the chunks for text. Text no longer than the chunk size is
// returned as a single chunk, unchanged.
func (s *Splitter) Split(text string) []string {
	runes := []rune(text)
	if len(runes) <= s.chunkSize {
		return []string{text}
	}

	step := s.chunkSize - s.overlap
	var chunks []string
	for i := 0; i < len(runes); i += step {
		end := i + s.chunkSize
		if end > len(runes) {
			end = len(runes)
		}
		if end-i >= s.chunkSize/2 {
			chunks = append(chunks, string(runes[i:end]))
		}
	}
	return chunks
}
