package cmd

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/localfinderx/localfinderx/internal/config"
	"github.com/localfinderx/localfinderx/internal/schema"
	"github.com/localfinderx/localfinderx/internal/search"
	"github.com/localfinderx/localfinderx/internal/telemetry"
)

func newSearchCmd() *cobra.Command {
	var mode string
	var extFilter []string
	var folderFilter []string
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Search the index and print matching files with evidence",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			query := strings.Join(args, " ")

			sess, err := openSession(ctx, dataDirFlag, noModel)
			if err != nil {
				return err
			}
			defer func() { _ = sess.Close() }()

			modeVal := config.Mode(strings.ToUpper(mode))
			if modeVal == "" {
				modeVal = sess.settings.Search.DefaultMode
			}
			knobs := config.KnobsFor(modeVal)

			var reranker search.Reranker
			if knobs.RerankerEnabled {
				reranker = search.NewLocalReranker(sess.tokenizer)
			}

			engine := search.NewEngine(search.EngineDeps{
				QueryProcessor: search.NewQueryProcessor(sess.embedder, sess.tokenizer),
				Dense:          search.NewDenseRetriever(sess.vector),
				Lexical:        search.NewLexicalRetriever(sess.lexical),
				Records:        sess.records,
				Reranker:       reranker,
			})

			filters := search.Filters{
				Extensions:     extFilter,
				FolderPrefixes: folderFilter,
			}

			start := time.Now()
			resp := engine.Search(ctx, query, modeVal, filters)
			elapsed := time.Since(start)

			recordSearchTelemetry(sess.layout.TelemetryDBPath, resp, elapsed)

			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(resp)
			}
			printSearchResponse(cmd, resp)
			return nil
		},
	}

	cmd.Flags().StringVar(&mode, "mode", "", "Search mode: fast, smart, assist (default: settings default)")
	cmd.Flags().StringSliceVar(&extFilter, "ext", nil, "Restrict to file extensions (e.g. .pdf,.docx)")
	cmd.Flags().StringSliceVar(&folderFilter, "folder", nil, "Restrict to folder path prefixes")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print results as JSON")

	return cmd
}

// recordSearchTelemetry opens the telemetry database, records one query
// event, and closes it. A failure here never affects the search result
// — telemetry is best-effort diagnostics, not part of the search
// contract.
func recordSearchTelemetry(dbPath string, resp *schema.SearchResponse, elapsed time.Duration) {
	db, err := telemetry.OpenMetricsDB(dbPath)
	if err != nil {
		return
	}
	defer func() { _ = db.Close() }()

	metricsStore, err := telemetry.NewSQLiteMetricsStore(db)
	if err != nil {
		return
	}
	metrics := telemetry.NewQueryMetrics(metricsStore)
	defer func() { _ = metrics.Close() }()

	metrics.Record(telemetry.QueryEvent{
		Query:       resp.Query,
		QueryType:   classifyQuery(resp),
		ResultCount: len(resp.Results),
		Latency:     elapsed,
		Timestamp:   time.Now(),
	})
}

// classifyQuery derives a coarse query-type label from which retrieval
// sources actually contributed to the returned results.
func classifyQuery(resp *schema.SearchResponse) telemetry.QueryType {
	sawLexical, sawDense := false, false
	for _, r := range resp.Results {
		switch r.MatchType {
		case schema.MatchLexical:
			sawLexical = true
		case schema.MatchSemantic:
			sawDense = true
		case schema.MatchHybrid:
			sawLexical, sawDense = true, true
		}
	}
	switch {
	case sawLexical && sawDense:
		return telemetry.QueryTypeMixed
	case sawDense:
		return telemetry.QueryTypeSemantic
	default:
		return telemetry.QueryTypeLexical
	}
}

func printSearchResponse(cmd *cobra.Command, resp *schema.SearchResponse) {
	out := cmd.OutOrStdout()
	if resp.Error != "" {
		fmt.Fprintf(out, "search error: %s\n", resp.Error)
		return
	}
	fmt.Fprintf(out, "%d results for %q (%dms)\n\n", len(resp.Results), resp.Query, resp.ElapsedMS)
	for i, r := range resp.Results {
		fmt.Fprintf(out, "%d. %s  [%s, score %.4f]\n", i+1, r.Path, r.MatchType, r.FinalFileScore)
		for _, e := range r.Evidences {
			fmt.Fprintf(out, "     %s\n", e.Snippet)
		}
	}
}
