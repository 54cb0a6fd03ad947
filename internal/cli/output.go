package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/hyperjump/cookcut/internal/indexer"
	"github.com/hyperjump/cookcut/internal/models"
	"github.com/hyperjump/cookcut/internal/server"
	"github.com/hyperjump/cookcut/pkg/utils"
)

// OutputFormat is the format for command output.
type OutputFormat string

const (
	// OutputText is human-readable text (default).
	OutputText OutputFormat = "text"
	// OutputJSON is structured JSON for machine consumption.
	OutputJSON OutputFormat = "json"
)

const separator = "─────────────────────────────────────────────────────────"

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// WriteSearchResults writes search results to w in the given format.
func WriteSearchResults(w io.Writer, response *models.SearchResponse, format OutputFormat) error {
	if format == OutputJSON {
		return writeJSON(w, response)
	}
	fmt.Fprintf(w, "\nFound %d results in %dms (mode: %s, kind: %s)\n\n",
		response.Total, response.QueryTime, response.Mode, response.Kind)
	for _, result := range response.Results {
		writeOneResult(w, result)
	}
	return nil
}

func writeOneResult(w io.Writer, result *models.SearchResult) {
	fmt.Fprintln(w, separator)
	if result.KeywordScore != 0 || result.SemanticScore != 0 {
		fmt.Fprintf(w, "Rank: %d | Score: %.4f (Keyword: %.4f, Semantic: %.4f)\n",
			result.Rank, result.Score, result.KeywordScore, result.SemanticScore)
	} else {
		fmt.Fprintf(w, "Rank: %d | Score: %.4f\n", result.Rank, result.Score)
	}
	title, _ := result.Metadata[indexer.MetaRecipeTitle].(string)
	fmt.Fprintf(w, "Recipe: %s (%s)\n", title, result.RecipeID)
	kind := string(result.Kind)
	if result.Kind == models.UnitInstruction {
		if order, total := metaInt(result.Metadata[indexer.MetaChunkOrder]), metaInt(result.Metadata[indexer.MetaTotalChunks]); total > 0 {
			kind = fmt.Sprintf("%s %d/%d", kind, order+1, total)
		}
	}
	fmt.Fprintf(w, "Type: %s\n", kind)
	fmt.Fprintf(w, "\n%s\n", utils.Truncate(utils.FlattenNewlines(result.Text), 200))
	if r := result.Recipe; r != nil {
		fmt.Fprintf(w, "\nIngredients: %d | Source row: %d\n", len(r.Ingredients), r.SourceRow)
	}
	fmt.Fprintln(w)
}

// metaInt reads an integer metadata value. Stores that round-trip through JSON return float64.
func metaInt(v interface{}) int {
	switch n := v.(type) {
	case int:
		return n
	case int64:
		return int(n)
	case float64:
		return int(n)
	case json.Number:
		i, _ := n.Int64()
		return int(i)
	default:
		return 0
	}
}

// WriteStatus writes the index status to w in the given format.
func WriteStatus(w io.Writer, st *server.Status, format OutputFormat) error {
	if format == OutputJSON {
		return writeJSON(w, st)
	}
	fmt.Fprintln(w, "cookcut status")
	fmt.Fprintln(w, separator)
	fmt.Fprintf(w, "Recipes:            %d\n", st.Recipes)
	fmt.Fprintf(w, "Vectors:            %d\n", st.Vectors)
	if st.DiskUsageBytes > 0 {
		fmt.Fprintf(w, "Disk usage:         %s\n", formatBytes(st.DiskUsageBytes))
	}
	fmt.Fprintf(w, "Embedding:          %s %s (%d dims)\n",
		st.Config.EmbeddingProvider, st.Config.EmbeddingModel, st.Config.EmbeddingDimensions)
	fmt.Fprintf(w, "Vector store:       %s\n", st.Config.StoreProvider)
	fmt.Fprintf(w, "Chunking:           max %d, overlap %d\n", st.Config.ChunkMaxLength, st.Config.ChunkOverlap)
	fmt.Fprintf(w, "Dataset:            %s\n", st.Dataset.Name)
	if st.Dataset.License != "" {
		fmt.Fprintf(w, "License:            %s (%s)\n", st.Dataset.License, st.Dataset.LicenseURL)
	}
	if run := st.LatestRun; run != nil {
		fmt.Fprintln(w, separator)
		fmt.Fprintf(w, "Latest run:         %s\n", run.ID)
		fmt.Fprintf(w, "Finished:           %s (%s)\n", run.FinishedAt.Format(time.RFC3339), run.Duration.Round(time.Millisecond))
		fmt.Fprintf(w, "Processed/failed:   %d/%d of %d\n", run.Processed, run.Failed, run.Seen)
		fmt.Fprintf(w, "Records:            %d in %d flushes (%d failed)\n", run.Records, run.Flushes, run.FailedFlushes)
	} else {
		fmt.Fprintln(w, "Latest run:         none")
	}
	return nil
}

// WriteRunResult writes an ingest run summary.
func WriteRunResult(w io.Writer, res *indexer.RunResult, format OutputFormat) error {
	if format == OutputJSON {
		return writeJSON(w, res)
	}
	fmt.Fprintf(w, "successfully processed %d recipes (%d failed, %d seen) in %s\n",
		res.Processed, res.Failed, res.Seen, res.Duration.Round(time.Millisecond))
	fmt.Fprintf(w, "%d records upserted in %d flushes", res.Records, res.Flushes)
	if res.FailedFlushes > 0 {
		fmt.Fprintf(w, ", %d flushes failed", res.FailedFlushes)
	}
	fmt.Fprintf(w, " [run %s]\n", res.RunID)
	return nil
}

func formatBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}

// ProgressPrinter prints one line per recipe as the pipeline reports it.
type ProgressPrinter struct {
	mu sync.Mutex
	w  io.Writer
}

// NewProgressPrinter returns a printer writing to w.
func NewProgressPrinter(w io.Writer) *ProgressPrinter {
	return &ProgressPrinter{w: w}
}

// Report prints p. Safe for concurrent use.
func (pp *ProgressPrinter) Report(p indexer.Progress) {
	pp.mu.Lock()
	defer pp.mu.Unlock()
	title := utils.Truncate(p.Title, 60)
	if p.Err != nil {
		fmt.Fprintf(pp.w, "[%d] skipped %q: %v\n", p.Seen, title, p.Err)
		return
	}
	fmt.Fprintf(pp.w, "[%d] %s (processed %d, failed %d)\n", p.Seen, title, p.Processed, p.Failed)
}
