package cli

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/custodia-labs/clever-documents/internal/config"
	"github.com/custodia-labs/clever-documents/internal/core/domain"
)

var (
	searchQuery       string
	searchLimit       int
	searchTags        string
	searchMode        string
	searchJSON        bool
	searchInteractive bool
)

var searchCmd = &cobra.Command{
	Use:   "search [query]",
	Short: "Search ingested documents",
	Long: `Embeds the query and returns the most similar chunks, optionally
restricted to chunks carrying any of the given tags.

Modes:
  semantic  vector similarity (default)
  keyword   full-text match
  hybrid    both, merged by reciprocal rank fusion

With --interactive, queries are read one per line until "exit" or EOF.`,
	Example: `  clever search "how do retries work"
  clever search -q "token limits" -n 10 --tags api,reference
  clever search --mode hybrid backoff
  clever search -i`,
	Args: cobra.ArbitraryArgs,
	RunE: runSearch,
}

func init() {
	searchCmd.Flags().StringVarP(&searchQuery, "query", "q", "", "search query")
	searchCmd.Flags().IntVarP(&searchLimit, "num-results", "n", domain.DefaultTopK, "maximum number of results")
	searchCmd.Flags().StringVar(&searchTags, "tags", "", "comma separated tags; results carry any of them")
	searchCmd.Flags().StringVarP(&searchMode, "mode", "m", string(domain.SearchModeSemantic), "semantic, keyword or hybrid")
	searchCmd.Flags().BoolVar(&searchJSON, "json", false, "output results as JSON")
	searchCmd.Flags().BoolVarP(&searchInteractive, "interactive", "i", false, "read queries from the terminal")
	rootCmd.AddCommand(searchCmd)
}

func runSearch(cmd *cobra.Command, args []string) error {
	query := strings.TrimSpace(strings.Join(append([]string{searchQuery}, args...), " "))
	if query == "" && !searchInteractive {
		return errors.New("a query is required: pass it as an argument or with --query")
	}
	if err := requireServices(cmd); err != nil {
		return err
	}

	opts := domain.SearchOptions{
		TopK: searchLimit,
		Tags: config.SplitList(searchTags),
		Mode: domain.SearchMode(searchMode),
	}

	if query != "" {
		if err := searchOnce(cmd, query, opts); err != nil {
			return err
		}
	}
	if searchInteractive {
		return searchLoop(cmd, cmd.InOrStdin(), opts)
	}
	return nil
}

func searchOnce(cmd *cobra.Command, query string, opts domain.SearchOptions) error {
	hits, err := searchService.Search(cmd.Context(), query, opts)
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}
	if searchJSON {
		return outputSearchJSON(cmd, hits)
	}
	outputSearchList(cmd, hits)
	return nil
}

// searchLoop answers one query per input line. Errors are printed and the
// loop continues.
func searchLoop(cmd *cobra.Command, in io.Reader, opts domain.SearchOptions) error {
	prompt := isTerminal(in)
	scanner := bufio.NewScanner(in)
	for {
		if prompt {
			cmd.Print(titleStyle.Render("search> "))
		}
		if !scanner.Scan() {
			if prompt {
				cmd.Println()
			}
			return scanner.Err()
		}

		line := strings.TrimSpace(scanner.Text())
		switch line {
		case "":
			continue
		case "exit", "quit", ":q":
			return nil
		}

		if err := searchOnce(cmd, line, opts); err != nil {
			if errors.Is(err, context.Canceled) {
				return err
			}
			cmd.PrintErrln(errorStyle.Render(err.Error()))
		}
	}
}

func isTerminal(r io.Reader) bool {
	f, ok := r.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

func outputSearchJSON(cmd *cobra.Command, hits []domain.SearchHit) error {
	out := make([]domain.SearchHit, len(hits))
	for i, h := range hits {
		h.Record.Vector = nil
		out[i] = h
	}
	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal results: %w", err)
	}
	cmd.Println(string(data))
	return nil
}

func outputSearchList(cmd *cobra.Command, hits []domain.SearchHit) {
	if len(hits) == 0 {
		cmd.Println("No results found.")
		return
	}

	cmd.Println(titleStyle.Render("Results:"))
	cmd.Println()
	for i, h := range hits {
		header := fmt.Sprintf("  [%d] %s %s", i+1, h.Record.ID, mutedStyle.Render(fmt.Sprintf("(%.3f)", h.Score)))
		if tags := formatTags(h.Record.Tags); tags != "" {
			header += "  " + tags
		}
		cmd.Println(header)
		if text := snippet(h.Record.Text, snippetWords); text != "" {
			cmd.Println(snippetStyle.Render(text))
		}
		cmd.Println()
	}
}
