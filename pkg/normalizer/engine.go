package normalizer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/mattchoo2/batchtxttochineseutf8/pkg/normalizer/encoding"
	"github.com/mattchoo2/batchtxttochineseutf8/pkg/normalizer/script"
)

// Engine orchestrates a normalization run: it owns the walker, the rename
// coordinator, the worker pool, and the report aggregator.
type Engine struct {
	opts          *Options
	logger        *slog.Logger
	renamer       *Renamer
	processor     *FileProcessor
	walker        *Walker
	aggregator    *reportAggregator
	runID         string
	ctx           context.Context
	cancelFunc    context.CancelFunc
	concurrency   int
	totalScanned  atomic.Int64
	fatalOccurred atomic.Bool
}

// NewEngine creates and initializes a new Engine instance, validating
// options and filling in default dependencies.
func NewEngine(ctx context.Context, opts Options) (*Engine, error) {
	if opts.Logger == nil {
		return nil, fmt.Errorf("%w: Logger implementation (slog.Handler) cannot be nil", ErrConfigValidation)
	}
	if opts.EventHooks == nil {
		opts.EventHooks = &NoOpHooks{}
	}

	logger := slog.New(opts.Logger).With(slog.String("component", "engine"))

	if opts.RootPath == "" {
		return nil, fmt.Errorf("%w: root path is required", ErrConfigValidation)
	}
	// Relative paths in results and logs are computed against the root, so
	// resolve it once here.
	absRoot, absErr := filepath.Abs(opts.RootPath)
	if absErr != nil {
		return nil, fmt.Errorf("%w: cannot resolve root path '%s': %w", ErrConfigValidation, opts.RootPath, absErr)
	}
	opts.RootPath = absRoot
	rootInfo, statErr := os.Stat(opts.RootPath)
	if statErr != nil {
		return nil, fmt.Errorf("%w: cannot access root path '%s': %w", ErrConfigValidation, opts.RootPath, statErr)
	}
	if !rootInfo.IsDir() {
		return nil, fmt.Errorf("%w: root path '%s' is not a directory", ErrConfigValidation, opts.RootPath)
	}

	if opts.Conversion == "" {
		opts.Conversion = DefaultConversion
		logger.Debug("Conversion not set, using default", slog.String("conversion", opts.Conversion))
	}
	if !script.IsSupportedConversion(opts.Conversion) {
		return nil, fmt.Errorf("%w: unsupported conversion '%s' (supported: %s)",
			ErrConfigValidation, opts.Conversion, strings.Join(script.SupportedConversions(), ", "))
	}
	if opts.ScriptConverter == nil {
		conv, convErr := script.NewOpenCCConverter(opts.Conversion)
		if convErr != nil {
			return nil, fmt.Errorf("%w: %w: %w", ErrConfigValidation, ErrConverterInit, convErr)
		}
		opts.ScriptConverter = conv
		logger.Debug("ScriptConverter not provided, using default OpenCC converter.", slog.String("conversion", opts.Conversion))
	}

	if opts.MinConfidence < 0 || opts.MinConfidence > 100 {
		return nil, fmt.Errorf("%w: minConfidence must be between 0 and 100, got %d", ErrConfigValidation, opts.MinConfidence)
	}
	if opts.MinConfidence == 0 {
		opts.MinConfidence = DefaultMinConfidence
	}
	if opts.EncodingDetector == nil {
		opts.EncodingDetector = encoding.NewChardetDetector(opts.MinConfidence, opts.DefaultEncoding)
		logger.Debug("EncodingDetector not provided, using default chardet detector.",
			slog.Int("minConfidence", opts.MinConfidence), slog.String("defaultEncoding", opts.DefaultEncoding))
	}

	concurrency := opts.Concurrency
	if concurrency <= 0 {
		concurrency = runtime.NumCPU()
		opts.Concurrency = concurrency
		logger.Debug("Concurrency auto-detected", slog.Int("count", concurrency))
	}

	engineCtx, cancelFunc := context.WithCancel(ctx)

	engine := &Engine{
		opts:        &opts,
		logger:      logger,
		renamer:     NewRenamer(opts.ScriptConverter, opts.Logger, opts.DryRun),
		aggregator:  newReportAggregator(),
		runID:       uuid.NewString(),
		ctx:         engineCtx,
		cancelFunc:  cancelFunc,
		concurrency: concurrency,
	}
	engine.processor = NewFileProcessor(engine.opts, opts.Logger, opts.EncodingDetector, opts.ScriptConverter)

	return engine, nil
}

// Run executes the normalization run and returns the aggregated report. The
// returns are named so the deferred finalizer can build the report exactly
// once, after cancellation and panic recovery have settled.
func (e *Engine) Run() (finalReport Report, finalErr error) {
	startTime := time.Now()
	e.logger.Info("Starting normalization run",
		slog.String("runID", e.runID),
		slog.String("root", e.opts.RootPath),
		slog.String("conversion", e.opts.Conversion),
		slog.Int("concurrency", e.concurrency),
		slog.Bool("dryRun", e.opts.DryRun))

	defer func() {
		if r := recover(); r != nil {
			e.logger.Error("Panic recovered during engine run", "panicValue", r)
			e.fatalOccurred.Store(true)
			if finalErr == nil {
				finalErr = fmt.Errorf("panic during execution: %v", r)
			}
		}

		e.cancelFunc()

		fatal := e.fatalOccurred.Load()
		finalReport = e.aggregator.getReport(e.opts, e.runID, startTime, e.totalScanned.Load(), fatal)
		e.logger.Info("Normalization run finished",
			slog.Duration("duration", time.Since(startTime)),
			slog.Int("converted", finalReport.Summary.ConvertedCount),
			slog.Int("alreadyNormalized", finalReport.Summary.AlreadyNormalizedCount),
			slog.Int("unknownEncoding", finalReport.Summary.UnknownEncodingCount),
			slog.Int("renamed", finalReport.Summary.RenamedCount),
			slog.Int("renameCollisions", finalReport.Summary.RenameCollisionCount),
			slog.Int("errors", finalReport.Summary.ErrorCount),
			slog.Bool("fatalErrorOccurred", finalReport.Summary.FatalErrorOccurred),
		)

		if hookErr := e.opts.EventHooks.OnRunComplete(finalReport); hookErr != nil {
			e.logger.Warn("OnRunComplete hook returned an error", slog.String("error", hookErr.Error()))
		}
	}()

	workerChan := make(chan string, e.concurrency)
	resultsChan := make(chan interface{}, e.concurrency)
	var wg sync.WaitGroup

	e.startWorkers(&wg, workerChan, resultsChan)

	walker, walkInitErr := NewWalker(e.opts, workerChan, e.opts.Logger)
	if walkInitErr != nil {
		e.logger.Error("Failed to initialize directory walker", slog.String("error", walkInitErr.Error()))
		e.fatalOccurred.Store(true)
		close(workerChan)
		wg.Wait()
		close(resultsChan)
		aggregatorDone := make(chan struct{})
		go e.aggregateResults(resultsChan, aggregatorDone)
		<-aggregatorDone
		finalErr = fmt.Errorf("walker initialization failed: %w", walkInitErr)
		return
	}
	e.walker = walker

	aggregatorDone := make(chan struct{})
	go e.aggregateResults(resultsChan, aggregatorDone)

	walkerDone := make(chan error, 1)
	go func() {
		defer close(walkerDone)
		walkerErr := e.walker.StartWalk(e.ctx)
		if walkerErr != nil && !errors.Is(walkerErr, context.Canceled) && !errors.Is(walkerErr, context.DeadlineExceeded) {
			e.logger.Error("Directory walk failed critically", slog.String("error", walkerErr.Error()))
			walkerDone <- walkerErr
			if !e.fatalOccurred.Load() {
				e.fatalOccurred.Store(true)
				e.cancelFunc()
			}
		}
	}()

	finalWalkErr := <-walkerDone
	// The walker closes workerChan when the walk ends; wait for workers to
	// drain it, then let the aggregator finish.
	wg.Wait()
	close(resultsChan)
	<-aggregatorDone

	if finalWalkErr != nil {
		finalErr = finalWalkErr
	} else if e.fatalOccurred.Load() {
		if firstFatal := e.aggregator.getFirstFatalError(); firstFatal != nil {
			finalErr = fmt.Errorf("processing stopped due to fatal error: %w", firstFatal)
		} else if ctxErr := e.ctx.Err(); ctxErr != nil {
			finalErr = ctxErr
		} else {
			finalErr = errors.New("processing stopped due to fatal error")
		}
	} else if ctxErr := e.ctx.Err(); ctxErr != nil {
		e.logger.Info("Normalization run cancelled", slog.String("reason", ctxErr.Error()))
		e.fatalOccurred.Store(true)
		finalErr = ctxErr
	}

	return
}

// startWorkers launches the worker goroutines.
func (e *Engine) startWorkers(wg *sync.WaitGroup, workerChan <-chan string, resultsChan chan<- interface{}) {
	e.logger.Debug("Starting worker pool", "count", e.concurrency)
	for i := 0; i < e.concurrency; i++ {
		wg.Add(1)
		go e.processFilesWorker(wg, i, workerChan, resultsChan)
	}
}

// processFilesWorker is the main function executed by each worker
// goroutine. Each file goes through the rename step first, then the content
// pipeline; hook updates are keyed by the path the walker discovered so a
// rename never splits one file across two display entries.
func (e *Engine) processFilesWorker(wg *sync.WaitGroup, workerID int, workerChan <-chan string, resultsChan chan<- interface{}) {
	defer func() {
		// A panicking worker must not take down the run.
		if r := recover(); r != nil {
			wLogger := e.logger.With(slog.Int("workerID", workerID))
			wLogger.Error("Panic recovered in worker", "panicValue", r)
			func() {
				defer func() { recover() }() // resultsChan may already be closed
				resultsChan <- ErrorInfo{Path: "unknown (panic)", Error: fmt.Sprintf("panic: %v", r), IsFatal: true}
			}()
			if !e.fatalOccurred.Load() {
				e.fatalOccurred.Store(true)
				e.cancelFunc()
			}
		}
		wg.Done()
	}()

	wLogger := e.logger.With(slog.Int("workerID", workerID))
	wLogger.Debug("Worker started")

	for {
		select {
		case filePath, ok := <-workerChan:
			if !ok {
				wLogger.Debug("Worker shutting down (channel closed)")
				return
			}

			fileStart := time.Now()
			relPath, _ := filepath.Rel(e.opts.RootPath, filePath)
			if relPath == "" || relPath == "." {
				relPath = filepath.Base(filePath)
			}
			relPath = filepath.ToSlash(relPath)
			wLogger.Debug("Processing file", "path", relPath)

			if hookErr := e.opts.EventHooks.OnFileStatusUpdate(relPath, StatusProcessing, "", 0); hookErr != nil {
				wLogger.Warn("Event hook OnFileStatusUpdate (Processing) failed", slog.String("path", relPath), slog.String("error", hookErr.Error()))
			}

			rr := e.renamer.RenameIfNeeded(filePath)
			result, status, err := e.processor.ProcessFile(e.ctx, rr)

			if hookErr := e.opts.EventHooks.OnFileStatusUpdate(relPath, status, statusMessage(result, err), time.Since(fileStart)); hookErr != nil {
				wLogger.Warn("Event hook OnFileStatusUpdate failed", slog.String("path", relPath), slog.String("error", hookErr.Error()))
			}

			func() {
				defer func() { recover() }() // resultsChan may be closed concurrently on shutdown

				if err != nil {
					isFatal := status == StatusFailed && e.opts.OnErrorMode == OnErrorStop
					errorInfo := ErrorInfo{Path: relPath, Error: err.Error(), Renamed: rr.Renamed, RenameCollision: rr.Collision, IsFatal: isFatal}
					if ei, ok := result.(ErrorInfo); ok {
						errorInfo = ei
						errorInfo.IsFatal = isFatal
					}
					resultsChan <- errorInfo
					if isFatal && !e.fatalOccurred.Load() {
						wLogger.Info("Worker detected fatal error condition, signalling stop", "path", relPath, "error", err)
						e.fatalOccurred.Store(true)
						e.cancelFunc()
					}
				} else if result != nil {
					resultsChan <- result
				} else {
					wLogger.Warn("Processor returned nil result and nil error", "path", relPath, "status", status)
					isFatal := e.opts.OnErrorMode == OnErrorStop
					resultsChan <- ErrorInfo{Path: relPath, Error: "internal error: processor returned nil result without error", Renamed: rr.Renamed, RenameCollision: rr.Collision, IsFatal: isFatal}
					if isFatal && !e.fatalOccurred.Load() {
						e.fatalOccurred.Store(true)
						e.cancelFunc()
					}
				}
			}()

		case <-e.ctx.Done():
			wLogger.Debug("Worker shutting down (context cancelled)")
			return
		}
	}
}

// statusMessage derives the hook message for a terminal status update from
// the processor's result.
func statusMessage(result interface{}, err error) string {
	if err != nil {
		return err.Error()
	}
	switch r := result.(type) {
	case FileResult:
		return fmt.Sprintf("Converted from %s", r.FromEncoding)
	case SkippedInfo:
		if r.Details != "" {
			return fmt.Sprintf("%s: %s", r.Reason, r.Details)
		}
		return r.Reason
	}
	return ""
}

// aggregateResults reads results from resultsChan and updates the
// reportAggregator until the channel is drained.
func (e *Engine) aggregateResults(resultsChan <-chan interface{}, done chan<- struct{}) {
	defer close(done)
	e.logger.Debug("Result aggregator started")
	scanCount := int64(0)
	for result := range resultsChan {
		scanCount++
		switch r := result.(type) {
		case FileResult:
			e.aggregator.addConverted(r)
		case SkippedInfo:
			e.aggregator.addSkipped(r)
		case ErrorInfo:
			e.aggregator.addError(r)
		default:
			e.logger.Warn("Aggregator received unknown result type", "type", fmt.Sprintf("%T", result))
		}
	}
	e.totalScanned.Store(scanCount)
	e.logger.Debug("Result aggregator finished", "resultsProcessed", scanCount)
}

// --- reportAggregator ---

// reportAggregator manages the collection of results during the run.
type reportAggregator struct {
	mu                sync.Mutex
	convertedFiles    []FileResult
	skippedFiles      []SkippedInfo
	errors            []ErrorInfo
	alreadyNormalized int
	unknownEncoding   int
	renamed           int
	renameCollisions  int
}

// newReportAggregator creates a new report aggregator.
func newReportAggregator() *reportAggregator {
	return &reportAggregator{
		convertedFiles: make([]FileResult, 0, 512),
		skippedFiles:   make([]SkippedInfo, 0, 128),
		errors:         make([]ErrorInfo, 0, 32),
	}
}

// addConverted appends a FileResult to the list (thread-safe).
func (a *reportAggregator) addConverted(info FileResult) {
	a.mu.Lock()
	a.convertedFiles = append(a.convertedFiles, info)
	if info.Renamed {
		a.renamed++
	}
	if info.RenameCollision {
		a.renameCollisions++
	}
	a.mu.Unlock()
}

// addSkipped appends a SkippedInfo to the list (thread-safe). Rename
// counters still advance: a skipped file may have been renamed first.
func (a *reportAggregator) addSkipped(info SkippedInfo) {
	a.mu.Lock()
	a.skippedFiles = append(a.skippedFiles, info)
	switch info.Reason {
	case SkipReasonAlreadyNormalized:
		a.alreadyNormalized++
	case SkipReasonUnknownEncoding:
		a.unknownEncoding++
	}
	if info.Renamed {
		a.renamed++
	}
	if info.RenameCollision {
		a.renameCollisions++
	}
	a.mu.Unlock()
}

// addError appends an ErrorInfo to the list (thread-safe). Rename counters
// still advance: the rename step completed before the content step failed.
func (a *reportAggregator) addError(info ErrorInfo) {
	a.mu.Lock()
	a.errors = append(a.errors, info)
	if info.Renamed {
		a.renamed++
	}
	if info.RenameCollision {
		a.renameCollisions++
	}
	a.mu.Unlock()
}

// getFirstFatalError finds the first recorded error marked as fatal.
func (a *reportAggregator) getFirstFatalError() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	for _, ei := range a.errors {
		if ei.IsFatal {
			return fmt.Errorf("fatal error processing file '%s': %s", ei.Path, ei.Error)
		}
	}
	return nil
}

// getReport compiles and returns the final Report struct.
func (a *reportAggregator) getReport(opts *Options, runID string, startTime time.Time, totalScanned int64, fatalOccurred bool) Report {
	a.mu.Lock()
	converted := make([]FileResult, len(a.convertedFiles))
	copy(converted, a.convertedFiles)
	skipped := make([]SkippedInfo, len(a.skippedFiles))
	copy(skipped, a.skippedFiles)
	errorsList := make([]ErrorInfo, len(a.errors))
	copy(errorsList, a.errors)
	alreadyNormalized := a.alreadyNormalized
	unknownEncoding := a.unknownEncoding
	renamed := a.renamed
	renameCollisions := a.renameCollisions
	a.mu.Unlock()

	// TotalFilesScanned counts results the aggregator received; it can be
	// lower than the walker's discovery count if the run was cancelled.
	return Report{
		Summary: ReportSummary{
			RunID:                  runID,
			RootPath:               opts.RootPath,
			ConfigFilePath:         opts.ConfigFilePath,
			Conversion:             opts.Conversion,
			DryRun:                 opts.DryRun,
			TotalFilesScanned:      int(totalScanned),
			ConvertedCount:         len(converted),
			AlreadyNormalizedCount: alreadyNormalized,
			UnknownEncodingCount:   unknownEncoding,
			RenamedCount:           renamed,
			RenameCollisionCount:   renameCollisions,
			ErrorCount:             len(errorsList),
			FatalErrorOccurred:     fatalOccurred,
			DurationSeconds:        time.Since(startTime).Seconds(),
			Concurrency:            opts.Concurrency,
			Timestamp:              time.Now().UTC(),
			SchemaVersion:          ReportSchemaVersion,
		},
		Converted: converted,
		Skipped:   skipped,
		Errors:    errorsList,
	}
}
