package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"document-qa/internal/config"
	"document-qa/internal/helper"
	"document-qa/internal/models"
	"document-qa/internal/rag"
	"document-qa/internal/retriever"
)

const configFilePath = "./configs/config.yaml"

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}).With().Caller().Logger()

	indexDir := flag.String("index", "", "Directory of documents to ingest")
	forceFull := flag.Bool("force", false, "Drop the collection and reindex everything")
	query := flag.String("query", "", "Question to answer")
	historyQuery := flag.String("history", "", "Search previously answered questions")
	saveAnswer := flag.String("save-answer", "", "Persist an answer for the question given with -query")
	exportColl := flag.Bool("export", false, "Export the collection snapshot to the vector db folder")
	importColl := flag.Bool("import", false, "Import a previously exported collection snapshot")
	k := flag.Int("k", 0, "Number of chunks to retrieve (default from config)")
	diversify := flag.Bool("diversify", false, "Apply diversity re-ranking")
	verbose := flag.Bool("verbose", false, "Enable debug logging")
	flag.Parse()

	if *verbose {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}

	cfg, err := config.LoadConfig(configFilePath)
	if err != nil {
		log.Fatal().Err(err).Msg("Error loading config")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := helper.CreateFolder(cfg.RAG.VectorDBPath); err != nil {
		log.Fatal().Err(err).Msg("Error creating vector db folder")
	}

	svc, err := rag.NewFromConfig(ctx, cfg, nil)
	if err != nil {
		log.Fatal().Err(err).Msg("Error building service")
	}
	defer svc.Close()

	switch {
	case *indexDir != "":
		runIndex(ctx, svc, *indexDir, *forceFull)
	case *historyQuery != "":
		runHistorySearch(svc, *historyQuery)
	case *query != "" && *saveAnswer != "":
		runSaveAnswer(svc, *query, *saveAnswer)
	case *query != "":
		runQuery(ctx, svc, cfg, *query, *k, *diversify)
	case *exportColl:
		if err := svc.ExportCollection(ctx); err != nil {
			log.Fatal().Err(err).Msg("Error exporting collection")
		}
		log.Info().Str("collection", cfg.RAG.Collection).Msg("Collection exported")
	case *importColl:
		if err := svc.ImportCollection(ctx); err != nil {
			log.Fatal().Err(err).Msg("Error importing collection")
		}
		log.Info().Str("collection", cfg.RAG.Collection).Msg("Collection imported")
	default:
		log.Fatal().Msg("Provide -index, -query, -history, -export or -import")
	}
}

func runIndex(ctx context.Context, svc *rag.Service, dir string, forceFull bool) {
	report, err := svc.IndexIncremental(ctx, dir, forceFull)
	if err != nil {
		log.Fatal().Err(err).Msg("Error indexing")
	}
	helper.PrettyPrint(report)
}

func runQuery(ctx context.Context, svc *rag.Service, cfg *config.Config, query string, k int, diversify bool) {
	if k <= 0 {
		k = cfg.RAG.TopK
	}
	opts := retriever.Options{
		K:               k,
		ScoreThreshold:  cfg.RAG.ScoreThreshold,
		Diversify:       diversify || cfg.RAG.Diversify,
		DiversityWeight: cfg.RAG.DiversityWeight,
	}
	resp, err := svc.Query(ctx, query, opts)
	if err != nil {
		log.Fatal().Err(err).Msg("Error querying")
	}

	log.Info().Msg("Query: ~~~~~~~~~~~~~~~~~~~~~~~~~>>>>>")
	fmt.Printf("%s\n\n", query)

	if resp.FromHistory {
		log.Info().Msg("Stored answer: ~~~~~~~~~~~~~~~~~~>>>>>")
		fmt.Printf("%s\n\n", resp.Answer)
		return
	}

	log.Info().Msg("Context: ~~~~~~~~~~~~~~~~~~~~~~~>>>>>")
	fmt.Printf("%s\n\n", resp.Retrieval.Context)
	for _, chunk := range resp.Retrieval.Chunks {
		log.Debug().Float64("similarity", chunk.Similarity).
			Str("source", chunk.Metadata["source"]).Msg("retrieved chunk")
	}
}

func runHistorySearch(svc *rag.Service, question string) {
	matches, err := svc.SearchHistory(question, models.HistoryMatchThreshold, 5)
	if err != nil {
		log.Fatal().Err(err).Msg("Error searching history")
	}
	helper.PrettyPrint(matches)
}

func runSaveAnswer(svc *rag.Service, question, answer string) {
	entry := models.HistoryEntry{
		Timestamp: time.Now(),
		Question:  question,
		Answer:    answer,
	}
	if err := svc.SaveAnswer(entry); err != nil {
		log.Fatal().Err(err).Msg("Error saving answer")
	}
	log.Info().Msg("Answer saved")
}
