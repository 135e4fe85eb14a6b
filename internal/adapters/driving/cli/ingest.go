package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	"github.com/custodia-labs/clever-documents/internal/config"
	"github.com/custodia-labs/clever-documents/internal/core/domain"
	"github.com/custodia-labs/clever-documents/internal/core/services"
	"github.com/custodia-labs/clever-documents/internal/logger"
)

var (
	ingestID       string
	ingestTags     string
	ingestParallel int
	ingestWatch    bool
	ingestJSON     bool
)

// watchDebounce waits for writes to settle before re-ingesting a file.
const watchDebounce = 500 * time.Millisecond

var ingestCmd = &cobra.Command{
	Use:   "ingest [path...]",
	Short: "Upload and index documents",
	Long: `Uploads each file, splits it into overlapping token windows, embeds the
windows and indexes them. Directories are walked recursively.

Re-ingesting a document replaces its chunks; chunks that no longer exist
are removed. Without --tags every chunk is tagged "technical section".

With --watch the paths are ingested once, then watched and re-ingested
when files are created or written.`,
	Example: `  clever ingest guide.md
  clever ingest --id api-guide --tags api,reference docs/api.md
  clever ingest --watch ./docs`,
	Args: cobra.MinimumNArgs(1),
	RunE: runIngest,
}

func init() {
	ingestCmd.Flags().StringVar(&ingestID, "id", "", "document id (single file only; default derived from the file name)")
	ingestCmd.Flags().StringVarP(&ingestTags, "tags", "t", "", "comma separated tags for every chunk")
	ingestCmd.Flags().IntVarP(&ingestParallel, "parallel", "p", 0, "documents processed at once (default ingest.parallel)")
	ingestCmd.Flags().BoolVarP(&ingestWatch, "watch", "w", false, "keep running and re-ingest changed files")
	ingestCmd.Flags().BoolVar(&ingestJSON, "json", false, "output run reports as JSON")
	rootCmd.AddCommand(ingestCmd)
}

func runIngest(cmd *cobra.Command, args []string) error {
	if err := requireServices(cmd); err != nil {
		return err
	}

	files, err := collectFiles(args)
	if err != nil {
		return err
	}
	// A directory holding one file does not qualify: files created in it
	// later would inherit the id under --watch.
	if ingestID != "" && (len(files) != 1 || files[0] != args[0]) {
		return errors.New("--id can only be used with a single file")
	}

	reqs := make([]domain.IngestRequest, 0, len(files))
	owners := make(map[string]string, len(files))
	for _, path := range files {
		req, err := buildRequest(path)
		if err != nil {
			return err
		}
		if prev, ok := owners[req.DocumentID]; ok {
			return fmt.Errorf("%w: %s and %s both map to document id %q; ingest one of them separately with --id",
				domain.ErrInvalidInput, prev, path, req.DocumentID)
		}
		owners[req.DocumentID] = path
		reqs = append(reqs, req)
	}

	parallel := ingestParallel
	if parallel <= 0 && appConfig != nil {
		parallel = appConfig.Ingest.Parallel
	}

	reports, runErr := ingestService.IngestMany(cmd.Context(), reqs, parallel)
	if err := printReports(cmd, reports); err != nil {
		return err
	}

	if ingestWatch {
		ws, err := newWatchSet(args, owners)
		if err != nil {
			return err
		}
		return watch(cmd, ws)
	}
	return runErr
}

// collectFiles expands directories into the regular files below them.
// Hidden files and directories are skipped.
func collectFiles(paths []string) ([]string, error) {
	var files []string
	for _, root := range paths {
		info, err := os.Stat(root)
		if err != nil {
			return nil, err
		}
		if !info.IsDir() {
			files = append(files, root)
			continue
		}
		err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if path != root && strings.HasPrefix(d.Name(), ".") {
				if d.IsDir() {
					return filepath.SkipDir
				}
				return nil
			}
			if d.Type().IsRegular() {
				files = append(files, path)
			}
			return nil
		})
		if err != nil {
			return nil, err
		}
	}
	return files, nil
}

func buildRequest(path string) (domain.IngestRequest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return domain.IngestRequest{}, err
	}
	id := ingestID
	if id == "" {
		id = services.DocumentIDFromPath(path)
	}
	return domain.IngestRequest{
		DocumentID: id,
		Filename:   filepath.Base(path),
		Data:       data,
		Tags:       config.SplitList(ingestTags),
	}, nil
}

func printReports(cmd *cobra.Command, reports []*domain.RunReport) error {
	if ingestJSON {
		type reportJSON struct {
			*domain.RunReport
			Error string `json:"error,omitempty"`
		}
		out := make([]reportJSON, 0, len(reports))
		for _, r := range reports {
			if r == nil {
				continue
			}
			rj := reportJSON{RunReport: r}
			if r.Err != nil {
				rj.Error = r.Err.Error()
			}
			out = append(out, rj)
		}
		data, err := json.MarshalIndent(out, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal reports: %w", err)
		}
		cmd.Println(string(data))
		return nil
	}

	for _, r := range reports {
		if r == nil {
			continue
		}
		if r.Failed() {
			cmd.Printf("%s %s failed(%s): %v\n", errorStyle.Render("✗"), r.DocumentID, r.FailedStage, r.Err)
			continue
		}
		line := fmt.Sprintf("%s %s  %d chunks", successStyle.Render("✓"), r.DocumentID, r.ChunkCount)
		if r.Pruned > 0 {
			line += fmt.Sprintf(", %d pruned", r.Pruned)
		}
		cmd.Println(line + mutedStyle.Render(fmt.Sprintf("  (%s)", r.FinishedAt.Sub(r.StartedAt).Round(time.Millisecond))))
	}
	return nil
}

// watchSet is what a watch run accepts. File roots match only themselves;
// directory roots match everything below them. Each document id belongs to
// the first path that produced it.
type watchSet struct {
	dirs  []string
	files map[string]struct{}

	mu     sync.Mutex
	owners map[string]string
}

func newWatchSet(roots []string, owners map[string]string) (*watchSet, error) {
	ws := &watchSet{files: make(map[string]struct{}), owners: make(map[string]string, len(owners))}
	for _, root := range roots {
		abs, err := filepath.Abs(root)
		if err != nil {
			return nil, err
		}
		info, err := os.Stat(abs)
		if err != nil {
			return nil, err
		}
		if info.IsDir() {
			ws.dirs = append(ws.dirs, abs)
		} else {
			ws.files[abs] = struct{}{}
		}
	}
	for id, path := range owners {
		if abs, err := filepath.Abs(path); err == nil {
			ws.owners[id] = abs
		}
	}
	return ws, nil
}

// allows reports whether path is a watched file or lies under a watched directory.
func (ws *watchSet) allows(path string) bool {
	abs, err := filepath.Abs(path)
	if err != nil {
		return false
	}
	if _, ok := ws.files[abs]; ok {
		return true
	}
	for _, dir := range ws.dirs {
		rel, err := filepath.Rel(dir, abs)
		if err == nil && rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
			return true
		}
	}
	return false
}

// wants reports whether ev should trigger a re-ingest.
func (ws *watchSet) wants(ev fsnotify.Event) bool {
	return shouldIngest(ev) && ws.allows(ev.Name)
}

// claim records path as the owner of documentID. It fails when another
// path already owns the id.
func (ws *watchSet) claim(documentID, path string) (string, bool) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", false
	}
	ws.mu.Lock()
	defer ws.mu.Unlock()
	if owner, ok := ws.owners[documentID]; ok && owner != abs {
		return owner, false
	}
	ws.owners[documentID] = abs
	return abs, true
}

// watch re-ingests the files ws accepts as they change, until the command
// context is cancelled.
func watch(cmd *cobra.Command, ws *watchSet) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating watcher: %w", err)
	}
	defer watcher.Close()

	for _, dir := range ws.dirs {
		if err := addWatch(watcher, dir); err != nil {
			return err
		}
	}
	for file := range ws.files {
		if err := addWatch(watcher, file); err != nil {
			return err
		}
	}
	cmd.Println(mutedStyle.Render("Watching for changes. Press Ctrl+C to stop."))

	ctx := cmd.Context()
	var (
		mu     sync.Mutex
		timers = make(map[string]*time.Timer)
	)
	trigger := func(path string) {
		mu.Lock()
		defer mu.Unlock()
		if t, ok := timers[path]; ok {
			t.Stop()
		}
		timers[path] = time.AfterFunc(watchDebounce, func() {
			mu.Lock()
			delete(timers, path)
			mu.Unlock()
			reingest(ctx, cmd, ws, path)
		})
	}

	for {
		select {
		case <-ctx.Done():
			mu.Lock()
			for _, t := range timers {
				t.Stop()
			}
			mu.Unlock()
			return nil
		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !ws.allows(ev.Name) {
				continue
			}
			if ev.Has(fsnotify.Create) {
				if info, err := os.Stat(ev.Name); err == nil && info.IsDir() {
					if err := addWatch(watcher, ev.Name); err != nil {
						logger.Warn("watch directory", "path", ev.Name, "error", err)
					}
					continue
				}
			}
			if ws.wants(ev) {
				trigger(ev.Name)
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Warn("watcher error", "error", err)
		}
	}
}

// addWatch watches root's directory tree, or the directory holding root
// when it is a file. fsnotify cannot follow a single file across the
// rename-and-replace saves most editors do.
func addWatch(w *fsnotify.Watcher, root string) error {
	info, err := os.Stat(root)
	if err != nil {
		return err
	}
	if !info.IsDir() {
		return w.Add(filepath.Dir(root))
	}
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if path != root && strings.HasPrefix(d.Name(), ".") {
			return filepath.SkipDir
		}
		return w.Add(path)
	})
}

// shouldIngest reports whether an event means a visible file has new content.
func shouldIngest(ev fsnotify.Event) bool {
	if !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Write) {
		return false
	}
	base := filepath.Base(ev.Name)
	return !strings.HasPrefix(base, ".") && !strings.HasSuffix(base, "~")
}

func reingest(ctx context.Context, cmd *cobra.Command, ws *watchSet, path string) {
	if ctx.Err() != nil {
		return
	}
	info, err := os.Stat(path)
	if err != nil || !info.Mode().IsRegular() {
		return
	}
	req, err := buildRequest(path)
	if err != nil {
		logger.Warn("read changed file", "path", path, "error", err)
		return
	}
	if owner, ok := ws.claim(req.DocumentID, path); !ok {
		logger.Warn("skipping file whose document id is taken", "path", path,
			"document_id", req.DocumentID, "owner", owner)
		return
	}
	report, _ := ingestService.Ingest(ctx, req)
	if report != nil {
		_ = printReports(cmd, []*domain.RunReport{report})
	}
}
