package cli

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	"github.com/terasky-int/sow-dataset/internal/core/ports/driving"
	"github.com/terasky-int/sow-dataset/internal/logger"
)

// watchDebounce coalesces write bursts for a file into one ingestion.
const watchDebounce = 2 * time.Second

var (
	watchRecursive bool
	watchFields    []string
)

var watchCmd = &cobra.Command{
	Use:   "watch [folder]",
	Short: "Watch a folder and ingest changed files",
	Long: `Watches a folder and ingests files as they are created or modified.
Rapid write bursts are coalesced so a file is only ingested once it has
settled. Runs until interrupted.`,
	Args: cobra.ExactArgs(1),
	RunE: runWatch,
}

func init() {
	watchCmd.Flags().BoolVarP(&watchRecursive, "recursive", "r", false, "watch subfolders too")
	watchCmd.Flags().StringArrayVar(&watchFields, "field", nil, "metadata override as key=value (repeatable)")
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
	root := args[0]

	if ingestor == nil {
		return errors.New("ingest service not configured")
	}

	overrides, err := parseFields(watchFields)
	if err != nil {
		return err
	}
	opts := driving.FolderOptions{Recursive: watchRecursive, Overrides: overrides}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	if err := addWatches(watcher, root, watchRecursive); err != nil {
		return err
	}
	cmd.Printf("Watching %s (press Ctrl+C to stop)\n", root)

	runWatchLoop(cmd.Context(), cmd, watcher, opts)
	return nil
}

// addWatches registers root and, when recursive, every subfolder.
func addWatches(watcher *fsnotify.Watcher, root string, recursive bool) error {
	if !recursive {
		return watcher.Add(root)
	}
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if strings.HasPrefix(d.Name(), ".") && path != root {
			return fs.SkipDir
		}
		return watcher.Add(path)
	})
}

func runWatchLoop(ctx context.Context, cmd *cobra.Command, watcher *fsnotify.Watcher, opts driving.FolderOptions) {
	var mu sync.Mutex
	timers := make(map[string]*time.Timer)

	ingest := func(path string) {
		mu.Lock()
		delete(timers, path)
		mu.Unlock()

		res, err := ingestor.IngestFile(ctx, path, opts)
		if err != nil {
			logger.Warn("watch: %s: %v", path, err)
			return
		}
		printResult(cmd, res)
	}

	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) {
				continue
			}
			if strings.HasPrefix(filepath.Base(event.Name), ".") {
				continue
			}

			info, err := os.Stat(event.Name)
			if err != nil {
				continue
			}
			if info.IsDir() {
				if opts.Recursive && event.Has(fsnotify.Create) {
					if err := watcher.Add(event.Name); err != nil {
						logger.Warn("watch: add %s: %v", event.Name, err)
					}
				}
				continue
			}

			path := event.Name
			mu.Lock()
			if timer, ok := timers[path]; ok {
				timer.Reset(watchDebounce)
			} else {
				timers[path] = time.AfterFunc(watchDebounce, func() { ingest(path) })
			}
			mu.Unlock()
		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			logger.Warn("watch: %v", err)
		}
	}
}
