package chunker

import (
	"path/filepath"
	"strings"
	"sync"

	"github.com/tmc/langchaingo/textsplitter"
)

// Category buckets file extensions into one of three chunking policies.
type Category int

const (
	CategoryText Category = iota
	CategoryCode
	CategoryDocument
)

func (c Category) String() string {
	switch c {
	case CategoryCode:
		return "code"
	case CategoryDocument:
		return "document"
	default:
		return "text"
	}
}

// Strategy describes how a category of content is split: target chunk length,
// overlap between neighbors, and split boundaries ordered coarsest to finest
// so the splitter only falls back to mid-word cuts as a last resort.
type Strategy struct {
	Label      string
	ChunkSize  int
	Overlap    int
	Separators []string
}

var strategies = map[Category]Strategy{
	CategoryText: {
		Label:      "text",
		ChunkSize:  1000,
		Overlap:    200,
		Separators: []string{"\n\n\n", "\n\n", "\n", ". ", " ", ""},
	},
	CategoryCode: {
		Label:      "code",
		ChunkSize:  1500,
		Overlap:    150,
		Separators: []string{"\n\n\n", "\n\n", "\n", " ", ""},
	},
	CategoryDocument: {
		Label:      "document",
		ChunkSize:  1200,
		Overlap:    300,
		Separators: []string{"\n\n\n", "\n\n", "\n", ". ", " ", ""},
	},
}

var codeExtensions = map[string]bool{
	".go": true, ".py": true, ".js": true, ".ts": true, ".java": true,
	".c": true, ".cpp": true, ".h": true, ".rs": true, ".rb": true,
	".sh": true, ".sql": true, ".html": true, ".css": true, ".xml": true,
	".json": true, ".yaml": true, ".yml": true, ".toml": true,
}

var documentExtensions = map[string]bool{
	".pdf": true, ".docx": true, ".doc": true, ".pptx": true,
	".xlsx": true, ".ods": true,
}

// CategoryFor maps a file extension to its chunking category. Unknown
// extensions fall back to plain text.
func CategoryFor(ext string) Category {
	ext = strings.ToLower(ext)
	switch {
	case codeExtensions[ext]:
		return CategoryCode
	case documentExtensions[ext]:
		return CategoryDocument
	default:
		return CategoryText
	}
}

// StrategyFor returns the chunking policy for a file extension.
func StrategyFor(ext string) Strategy {
	return strategies[CategoryFor(ext)]
}

// Selector hands out one reusable splitter per category. Strategies are
// static, so splitters are built lazily and cached for the process lifetime.
type Selector struct {
	mu        sync.Mutex
	splitters map[Category]textsplitter.RecursiveCharacter
}

func NewSelector() *Selector {
	return &Selector{splitters: make(map[Category]textsplitter.RecursiveCharacter)}
}

func (s *Selector) splitterFor(cat Category) textsplitter.RecursiveCharacter {
	s.mu.Lock()
	defer s.mu.Unlock()
	if sp, ok := s.splitters[cat]; ok {
		return sp
	}
	strat := strategies[cat]
	sp := textsplitter.NewRecursiveCharacter(
		textsplitter.WithChunkSize(strat.ChunkSize),
		textsplitter.WithChunkOverlap(strat.Overlap),
		textsplitter.WithSeparators(strat.Separators),
	)
	s.splitters[cat] = sp
	return sp
}

// Split chunks the text according to the strategy for the given file path.
func (s *Selector) Split(text, path string) ([]string, error) {
	cat := CategoryFor(filepath.Ext(path))
	sp := s.splitterFor(cat)
	chunks, err := sp.SplitText(text)
	if err != nil {
		return nil, err
	}
	out := chunks[:0]
	for _, c := range chunks {
		if strings.TrimSpace(c) != "" {
			out = append(out, c)
		}
	}
	return out, nil
}
