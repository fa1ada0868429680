package history

import (
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"

	"document-qa/internal/models"
)

// Weighted keyword-overlap scoring over the answer log. This is a heuristic,
// not an embedding similarity: identical inputs always produce identical
// scores so the ranking stays testable.

const (
	jaccardWeight     = 0.4
	specificityWeight = 0.2

	priorityBonusPerKeyword = 0.1
	priorityBonusCap        = 0.3
	exactBonusPerKeyword    = 0.1
	exactBonusCap           = 0.2
	structuredDataBonus     = 0.05
	citationBonus           = 0.05
)

var stopWords = map[string]bool{
	"the": true, "and": true, "for": true, "are": true, "was": true,
	"this": true, "that": true, "with": true, "from": true, "have": true,
	"has": true, "had": true, "not": true, "but": true, "you": true,
	"your": true, "our": true, "its": true, "can": true, "will": true,
	"all": true, "any": true, "there": true, "about": true, "into": true,
	"is": true, "am": true, "be": true, "my": true, "me": true, "of": true,
	"in": true, "on": true, "at": true, "to": true, "an": true, "it": true,
	"el": true, "la": true, "los": true, "las": true, "de": true,
	"del": true, "un": true, "una": true, "es": true, "mi": true,
	"por": true, "para": true, "con": true, "que": true, "se": true,
}

// Interrogatives stay out of the content comparison even though they survive
// tokenization; "what is my X" and "where is my X" should match on X.
var interrogatives = map[string]bool{
	"what": true, "when": true, "where": true, "which": true, "who": true,
	"whom": true, "whose": true, "why": true, "how": true, "does": true,
	"did": true, "do": true, "could": true, "would": true, "should": true,
	"cual": true, "cuál": true, "cuando": true, "cuándo": true,
	"como": true, "cómo": true, "donde": true, "dónde": true,
	"quien": true, "quién": true, "qué": true, "cuanto": true, "cuánto": true,
}

// highValueKeywords are identifiers, contact fields, dates and similar terms
// whose overlap is a much stronger signal than ordinary words.
var highValueKeywords = map[string]bool{
	"rfc": true, "curp": true, "nss": true, "imss": true, "infonavit": true,
	"email": true, "correo": true, "phone": true, "telefono": true,
	"teléfono": true, "address": true, "direccion": true, "dirección": true,
	"date": true, "fecha": true, "number": true, "numero": true,
	"número": true, "id": true, "clave": true, "account": true,
	"cuenta": true, "folio": true, "passport": true, "pasaporte": true,
	"licencia": true, "license": true, "birthday": true, "cumpleaños": true,
	"salary": true, "sueldo": true, "contrato": true, "contract": true,
}

// tokenize lowercases and splits on word boundaries, dropping tokens shorter
// than 2 characters and stop words.
func tokenize(text string) []string {
	fields := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	})
	out := make([]string, 0, len(fields))
	for _, f := range fields {
		if utf8.RuneCountInString(f) < 2 || stopWords[f] {
			continue
		}
		out = append(out, f)
	}
	return out
}

// contentKeywords is the token set used for overlap: tokenization output
// minus interrogative words.
func contentKeywords(text string) map[string]bool {
	set := make(map[string]bool)
	for _, tok := range tokenize(text) {
		if interrogatives[tok] {
			continue
		}
		set[tok] = true
	}
	return set
}

func clamp01(v float64) float64 {
	if v > 1 {
		return 1
	}
	return v
}

// score computes the weighted overlap between the incoming question and one
// stored entry. Returns 0 when the content keyword sets do not intersect.
func score(question string, questionKeywords map[string]bool, entry models.HistoryEntry) float64 {
	entryKeywords := contentKeywords(entry.Question)
	if len(questionKeywords) == 0 || len(entryKeywords) == 0 {
		return 0
	}

	overlap := make([]string, 0, len(questionKeywords))
	union := len(entryKeywords)
	for kw := range questionKeywords {
		if entryKeywords[kw] {
			overlap = append(overlap, kw)
		} else {
			union++
		}
	}
	if len(overlap) == 0 {
		return 0
	}

	jaccard := float64(len(overlap)) / float64(union)

	rawQuestion := strings.ToLower(question)
	rawEntry := strings.ToLower(entry.Question)
	var priorityBonus, exactBonus float64
	for _, kw := range overlap {
		if !highValueKeywords[kw] {
			continue
		}
		priorityBonus += priorityBonusPerKeyword
		if strings.Contains(rawQuestion, kw) && strings.Contains(rawEntry, kw) {
			exactBonus += exactBonusPerKeyword
		}
	}
	if priorityBonus > priorityBonusCap {
		priorityBonus = priorityBonusCap
	}
	if exactBonus > exactBonusCap {
		exactBonus = exactBonusCap
	}

	var structuredBonus, sourceBonus float64
	if len(entry.Structured) > 0 {
		structuredBonus = structuredDataBonus
	}
	if len(entry.Sources) > 0 {
		sourceBonus = citationBonus
	}

	specificity := float64(len(overlap)) / float64(len(questionKeywords))

	total := jaccardWeight*jaccard +
		priorityBonus +
		exactBonus +
		structuredBonus +
		sourceBonus +
		specificityWeight*specificity
	return clamp01(total)
}

// Search scores the question against every entry, drops those below the
// threshold or with no keyword intersection, and returns the top matches by
// score descending. Ties break on newer timestamp so output is deterministic.
func Search(question string, entries []models.HistoryEntry, threshold float64, topK int) []models.HistoryMatch {
	if topK <= 0 {
		topK = 3
	}
	questionKeywords := contentKeywords(question)

	matches := make([]models.HistoryMatch, 0, len(entries))
	for _, entry := range entries {
		s := score(question, questionKeywords, entry)
		if s == 0 || s < threshold {
			continue
		}
		matches = append(matches, models.HistoryMatch{Score: s, Entry: entry})
	}

	sort.SliceStable(matches, func(i, j int) bool {
		if matches[i].Score != matches[j].Score {
			return matches[i].Score > matches[j].Score
		}
		return matches[i].Entry.Timestamp.After(matches[j].Entry.Timestamp)
	})
	if len(matches) > topK {
		matches = matches[:topK]
	}
	return matches
}
