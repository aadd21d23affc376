// Package download implements the final pipeline stage: fetch the media,
// tag it, stage it into the library import folder, and trigger the manual
// import. A hard failure parks the worker so the operator notices; the
// ingress API and the other stages keep running.
package download

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"wai/internal/fileutil"
	"wai/internal/item"
	"wai/internal/logging"
	"wai/internal/pipeline"
	"wai/internal/queue"
	"wai/internal/services"
	"wai/internal/store"
	"wai/internal/ytdlp"
)

// Tagger renames a downloaded file from its sidecar metadata.
type Tagger interface {
	Tag(mediaPath string) (string, error)
}

// Importer triggers the library's manual import for a staged file.
type Importer interface {
	ImportEpisode(ctx context.Context, seriesID int64, season, episode int, fileName, folder string) (map[string]any, error)
}

// Config carries the stage knobs and paths.
type Config struct {
	Interval time.Duration
	// DownloadDir is where the tool writes; the temp path when one is
	// configured, otherwise the library staging path directly.
	DownloadDir string
	// LibraryDir is the library staging path the import watches.
	LibraryDir string
	// StageMove moves media and sidecar from DownloadDir into LibraryDir
	// before import. Off when both are the same directory.
	StageMove bool
	// ImportFolder is the staging path as the library service sees it.
	ImportFolder string
}

// Worker is the download stage handler.
type Worker struct {
	queue      *queue.Queue
	store      *store.Store
	downloader ytdlp.Downloader
	tagger     Tagger
	importer   Importer
	cfg        Config
	logger     *slog.Logger

	pending *item.Item
}

// New constructs the download worker.
func New(q *queue.Queue, st *store.Store, downloader ytdlp.Downloader, tagger Tagger,
	importer Importer, cfg Config, logger *slog.Logger) *Worker {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Worker{
		queue:      q,
		store:      st,
		downloader: downloader,
		tagger:     tagger,
		importer:   importer,
		cfg:        cfg,
		logger:     logging.NewComponentLogger(logger, "download"),
	}
}

// Stage implements pipeline.Handler.
func (w *Worker) Stage() item.Stage { return item.StageDownload }

// Wake implements pipeline.Handler.
func (w *Worker) Wake() <-chan struct{} { return w.queue.Wake() }

// Interval implements pipeline.Handler.
func (w *Worker) Interval() time.Duration { return w.cfg.Interval }

// Resume picks up an item left in the current-item file by a crash. The
// item restarts from the download step; the tool re-fetches or the tagger's
// idempotence skips work already done.
func (w *Worker) Resume(ctx context.Context) (pipeline.Disposition, error) {
	current, err := w.store.LoadCurrent(w.Stage())
	if err != nil {
		return pipeline.Sleep, err
	}
	if current != nil {
		w.logger.Info("resuming in-flight item", logging.String("title", current.Title))
		w.pending = current
	}
	return pipeline.Continue, nil
}

// Tick runs the linear download pipeline on at most one item. A hard
// failure halts the worker after archiving.
func (w *Worker) Tick(ctx context.Context) (pipeline.Disposition, error) {
	if w.pending == nil {
		// The current-item file and the audit record are written while the
		// item is still in the queue file, so a crash mid-handoff never
		// loses it.
		next, err := w.queue.DequeueFIFO(func(it item.Item) error {
			if err := w.store.SaveCurrent(w.Stage(), it); err != nil {
				return err
			}
			// Every item that reaches processing is recorded, outcomes aside.
			return w.store.ArchiveAppend(item.OutcomeAllProcessed, it)
		})
		if err != nil {
			return pipeline.Sleep, err
		}
		if next == nil {
			return pipeline.Sleep, nil
		}
		w.pending = next
	}

	if err := w.process(ctx, w.pending); err != nil {
		outcome := services.FailureOutcome(err)
		if archiveErr := w.closeItem(w.pending, outcome, "item failed"); archiveErr != nil {
			return pipeline.Sleep, archiveErr
		}
		w.pending = nil
		if outcome == item.OutcomeDownloadFail {
			// The worker exits so the operator notices; everything
			// else keeps running.
			return pipeline.Halt, err
		}
		return pipeline.Continue, err
	}
	w.pending = nil
	return pipeline.Sleep, nil
}

func (w *Worker) process(ctx context.Context, it *item.Item) error {
	if it.EpisodeResult == nil || it.EpisodeResult.Score < 0 {
		return services.Wrap(services.ErrValidation, "download", "precheck",
			"item has no episode match", nil)
	}

	mediaPath, err := w.download(ctx, it)
	if err != nil {
		return err
	}

	taggedPath := w.tag(mediaPath)

	fileName, err := w.stage(it, taggedPath)
	if err != nil {
		return err
	}
	it.FileName = fileName

	w.runImport(ctx, it)

	return w.closeItem(it, item.OutcomePass, "item imported")
}

func (w *Worker) download(ctx context.Context, it *item.Item) (string, error) {
	progress := func(update ytdlp.ProgressUpdate) {
		w.logger.Info("download progress",
			logging.String("title", it.Title),
			logging.String("status", update.Message))
	}
	mediaPath, err := w.downloader.Download(ctx, it.URL, w.cfg.DownloadDir, progress)
	if err != nil {
		return "", services.Wrap(services.ErrExternalTool, "download", "fetch", it.URL, err)
	}
	it.DownloadFilename = mediaPath
	w.logger.Info("download returned", logging.String("file", mediaPath))
	return mediaPath, nil
}

// tag is best-effort: a tagging failure keeps the original filename.
func (w *Worker) tag(mediaPath string) string {
	taggedPath, err := w.tagger.Tag(mediaPath)
	if err != nil {
		w.logger.Warn("tagging failed, keeping original filename", logging.Error(err))
		return mediaPath
	}
	return taggedPath
}

// stage moves the media file and its sidecar into the library staging path
// when a temp download path is configured.
func (w *Worker) stage(it *item.Item, taggedPath string) (string, error) {
	fileName := filepath.Base(taggedPath)
	if !w.cfg.StageMove {
		return fileName, nil
	}

	dst := filepath.Join(w.cfg.LibraryDir, fileName)
	if err := fileutil.SafeMove(taggedPath, dst); err != nil {
		return "", services.Wrap(services.ErrExternalTool, "download", "stage media", taggedPath, err)
	}
	w.logger.Info("moved into library staging",
		logging.String("file", fileName), logging.String("dir", w.cfg.LibraryDir))

	sidecar := ytdlp.SidecarPath(taggedPath)
	sidecarDst := ytdlp.SidecarPath(dst)
	if err := fileutil.SafeMove(sidecar, sidecarDst); err != nil {
		return "", services.Wrap(services.ErrExternalTool, "download", "stage sidecar", sidecar, err)
	}
	return fileName, nil
}

// runImport stores the command result on the item. A failed command is not
// fatal: the status lands in the pass archive for the operator to read.
func (w *Worker) runImport(ctx context.Context, it *item.Item) {
	result, err := w.importer.ImportEpisode(ctx,
		it.EpisodeResult.MatchedSeriesID,
		it.EpisodeResult.Season,
		it.EpisodeResult.Episode,
		it.FileName,
		w.cfg.ImportFolder)
	if err != nil {
		w.logger.Warn("manual import failed", logging.Error(err))
		it.ImportResult = map[string]any{"status": "error", "error": err.Error()}
		return
	}
	it.ImportResult = result
	w.logger.Info("import result",
		logging.String("status", fmt.Sprintf("%v", result["status"])))
}

func (w *Worker) closeItem(it *item.Item, outcome item.Outcome, message string) error {
	if err := w.store.ArchiveAppend(outcome, *it); err != nil {
		return err
	}
	w.logger.Info(message, logging.String("outcome", string(outcome)))
	return w.store.ClearCurrent(w.Stage())
}
