package models

import "time"

// Chunk is a contiguous span of a document plus the metadata needed to store
// and retrieve it. Chunks are immutable once created; re-ingesting a file
// produces a fresh set.
type Chunk struct {
	ID         string
	Content    string
	SourcePath string
	Strategy   string
	Position   int
	Embedding  []float32
}

// ScoredChunk pairs retrieved chunk text with its normalized similarity.
type ScoredChunk struct {
	Content    string            `json:"content"`
	Metadata   map[string]string `json:"metadata,omitempty"`
	Similarity float64           `json:"similarity"`
}

// RetrievalResult is the full outcome of one similarity query.
type RetrievalResult struct {
	Chunks          []ScoredChunk `json:"chunks"`
	Context         string        `json:"context"`
	TotalCandidates int           `json:"total_candidates"`
}

// FileFailure records a single file that could not be ingested.
type FileFailure struct {
	Path   string `json:"path"`
	Reason string `json:"reason"`
}

// IndexReport summarizes one incremental indexing run. Failures never abort
// the batch; they are listed here instead.
type IndexReport struct {
	New         int           `json:"new"`
	Modified    int           `json:"modified"`
	Skipped     int           `json:"skipped"`
	TotalChunks int           `json:"total_chunks"`
	Failed      []FileFailure `json:"failed,omitempty"`
}

// HistoryEntry is one previously answered question. Entries are append-only
// and keyed by timestamp; scoring treats them as read-only.
type HistoryEntry struct {
	Timestamp  time.Time         `json:"timestamp" badgerhold:"key"`
	Question   string            `json:"question"`
	Answer     string            `json:"answer"`
	Structured map[string]string `json:"structured,omitempty"`
	Sources    []string          `json:"sources,omitempty"`
	Verified   bool              `json:"verified"`
}

// HistoryMatch is a scored candidate from the answer log.
type HistoryMatch struct {
	Score float64      `json:"score"`
	Entry HistoryEntry `json:"entry"`
}
