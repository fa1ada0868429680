package retriever

import (
	"crypto/sha256"
	"math"

	"github.com/rs/zerolog/log"

	"document-qa/internal/models"
)

// diversify runs a maximal-marginal-relevance pass over the threshold
// survivors. diversityWeight 0 keeps pure relevance order, 1 is pure
// diversity. The MMR selection works on embeddings and hands back contents;
// original similarity scores are matched back by exact content, with a
// logged neutral fallback for the rare candidate that cannot be matched.
func diversify(queryVec []float32, cands []candidate, diversityWeight float64) []candidate {
	lambda := 1 - diversityWeight
	ordered := maximalMarginalRelevance(queryVec, cands, lambda)

	byContent := make(map[[32]byte]candidate, len(cands))
	for _, c := range cands {
		byContent[sha256.Sum256([]byte(c.content))] = c
	}

	out := make([]candidate, 0, len(ordered))
	for _, content := range ordered {
		if c, ok := byContent[sha256.Sum256([]byte(content))]; ok {
			out = append(out, c)
			continue
		}
		// accepted approximation, not an error
		log.Warn().Msg("diversified result has no score mapping, assigning neutral similarity")
		out = append(out, candidate{content: content, similarity: models.NeutralSimilarity})
	}
	return out
}

// maximalMarginalRelevance greedily selects candidates balancing relevance to
// the query against redundancy with already-selected results.
//
// MMR(d) = lambda * Sim(d, query) - (1-lambda) * max Sim(d, selected)
func maximalMarginalRelevance(queryVec []float32, cands []candidate, lambda float64) []string {
	selected := make([]string, 0, len(cands))
	selectedEmb := make([][]float32, 0, len(cands))
	remaining := make([]candidate, len(cands))
	copy(remaining, cands)

	for len(remaining) > 0 {
		bestIdx := -1
		bestScore := math.Inf(-1)
		for i, cand := range remaining {
			relevance := cand.similarity
			if len(cand.embedding) > 0 {
				relevance = float64(cosineSimilarity(queryVec, cand.embedding))
			}
			maxSim := 0.0
			if len(cand.embedding) > 0 {
				for _, sel := range selectedEmb {
					if len(sel) == 0 {
						continue
					}
					if sim := float64(cosineSimilarity(cand.embedding, sel)); sim > maxSim {
						maxSim = sim
					}
				}
			}
			score := lambda*relevance - (1-lambda)*maxSim
			if score > bestScore {
				bestScore = score
				bestIdx = i
			}
		}
		if bestIdx < 0 {
			break
		}
		selected = append(selected, remaining[bestIdx].content)
		selectedEmb = append(selectedEmb, remaining[bestIdx].embedding)
		remaining = append(remaining[:bestIdx], remaining[bestIdx+1:]...)
	}
	return selected
}

func cosineSimilarity(a, b []float32) float32 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return float32(dot / (math.Sqrt(normA) * math.Sqrt(normB)))
}
