package models

const (
	// ContextSeparator joins retrieved chunks when building the prompt context.
	ContextSeparator = "\n---\n"

	// DefaultFetchMultiplier controls how many candidates are pulled from the
	// vector engine per requested result before filtering and re-ranking.
	DefaultFetchMultiplier = 5

	// NeutralSimilarity is assigned to a diversified result whose original
	// score cannot be matched back by content. Rare but expected.
	NeutralSimilarity = 0.5

	// HistoryMatchThreshold is the minimum score for an entry to appear in a
	// ranked history listing.
	HistoryMatchThreshold = 0.2

	// HistoryReuseCutoff is the score at which a stored answer is considered
	// the same question and reused without retrieval. Kept separate from the
	// listing threshold on purpose.
	HistoryReuseCutoff = 0.75

	// DefaultEmbedWorkers bounds concurrent embedding requests during a batch
	// index run.
	DefaultEmbedWorkers = 4
)

// FileRecord status values.
const (
	StatusIndexed = "indexed"
	StatusDeleted = "deleted"
	StatusFailed  = "failed"
)
