package service

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/ehagey/cra-legal-matching/config"
	"github.com/ehagey/cra-legal-matching/model"
	"github.com/ehagey/cra-legal-matching/pkg/logger"
	"github.com/google/uuid"
)

// Orchestrator builds and runs the clause×source task grid for each
// submitted batch. Tasks execute on a bounded worker pool behind the shared
// call gate; every requested comparison appears exactly once in the final
// result list, in (clause, source) grid order, no matter what fails.
type Orchestrator struct {
	loader   *LoaderService
	analyzer *AnalyzerService
	gate     *CallGate
	store    *JobStore
	limits   *config.LimitsConfig
}

func NewOrchestrator(loader *LoaderService, analyzer *AnalyzerService, gate *CallGate, store *JobStore, limits *config.LimitsConfig) *Orchestrator {
	return &Orchestrator{
		loader:   loader,
		analyzer: analyzer,
		gate:     gate,
		store:    store,
		limits:   limits,
	}
}

// Submit validates the batch, registers a job and starts the work in the
// background. It returns the job id immediately; progress is observed
// through the job's event feed.
func (o *Orchestrator) Submit(clauses []string, sources []model.Source, override *PromptOverride) (string, error) {
	cleaned := make([]string, 0, len(clauses))
	for _, c := range clauses {
		if strings.TrimSpace(c) != "" {
			cleaned = append(cleaned, c)
		}
	}

	if len(cleaned) == 0 {
		return "", model.NewValidationError("at least one non-empty clause is required")
	}
	if len(cleaned) > o.limits.MaxClauses {
		return "", model.NewValidationError("too many clauses: %d (max %d)", len(cleaned), o.limits.MaxClauses)
	}
	if len(sources) == 0 {
		return "", model.NewValidationError("provide at least one PDF or HTML link")
	}
	maxBytes := o.limits.MaxUploadMB * 1024 * 1024
	for _, src := range sources {
		if src.Kind == model.SourceDocument && len(src.Data) > maxBytes {
			return "", model.NewValidationError("%s exceeds maximum upload size of %dMB", src.Filename, o.limits.MaxUploadMB)
		}
	}

	job := model.NewJob(uuid.New().String())
	o.store.Put(job)

	ctx := context.WithValue(context.Background(), logger.JobIDKey, job.ID)
	logger.Info(ctx, "job created",
		"clauses", len(cleaned),
		"sources", len(sources),
	)

	go o.run(ctx, job, cleaned, sources, override)

	return job.ID, nil
}

// run executes the whole batch and always leaves the job terminal
func (o *Orchestrator) run(ctx context.Context, job *model.Job, clauses []string, sources []model.Source, override *PromptOverride) {
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			logger.Error(ctx, "job panicked", "panic", r)
			job.Finish(nil, fmt.Sprintf("internal error: %v", r))
		}
	}()

	job.SetCurrentItem("Preparing documents…")

	// Resolve each unique source exactly once; the payload is shared by
	// every clause compared against it.
	payloads := make([]*model.ContentPayload, len(sources))
	loadErrs := make([]error, len(sources))
	for i, src := range sources {
		payloads[i], loadErrs[i] = o.loader.Resolve(ctx, src)
		if loadErrs[i] != nil {
			logger.Warn(ctx, "source failed to resolve", "source", src.Name(), "error", loadErrs[i])
		}
	}

	total := len(clauses) * len(sources)
	job.SetTotal(total)
	job.SetCurrentItem("Starting comparisons…")

	// Results are placed by grid index so the final list is ordered by
	// (clause, source) regardless of completion order.
	results := make([]model.Result, total)

	type task struct{ ci, si int }
	var tasks []task
	for ci, clause := range clauses {
		for si, src := range sources {
			if loadErrs[si] != nil {
				results[ci*len(sources)+si] = model.ErrorResult(
					clause, src.Name(),
					fmt.Sprintf("Document could not be loaded: %v", loadErrs[si]),
					fmt.Sprintf("Could not process %s: %v", src.Name(), loadErrs[si]),
					loadErrs[si].Error(),
				)
				job.TaskDone("Error: " + src.Name())
				continue
			}
			tasks = append(tasks, task{ci, si})
		}
	}

	if len(tasks) == 0 {
		logger.Info(ctx, "job finished with no valid comparisons", "total", total)
		job.Finish(results, "")
		return
	}

	workers := o.limits.Workers
	if workers < 1 {
		workers = 1
	}
	if workers > len(tasks) {
		workers = len(tasks)
	}

	taskCh := make(chan task)
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for tk := range taskCh {
				o.runTask(ctx, job, clauses, sources, payloads, results, tk.ci, tk.si, override)
			}
		}()
	}
	for _, tk := range tasks {
		taskCh <- tk
	}
	close(taskCh)
	wg.Wait()

	logger.Info(ctx, "job finished",
		"results", len(results),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	job.Finish(results, "")
}

func (o *Orchestrator) runTask(ctx context.Context, job *model.Job, clauses []string, sources []model.Source, payloads []*model.ContentPayload, results []model.Result, ci, si int, override *PromptOverride) {
	clause := clauses[ci]
	payload := payloads[si]
	label := fmt.Sprintf("Clause %d vs %s", ci+1, payload.DisplayName)

	// The gate spaces calls globally; a canceled wait is a task failure,
	// never a batch abort.
	if err := o.gate.Wait(ctx); err != nil {
		results[ci*len(sources)+si] = model.ErrorResult(
			clause, payload.DisplayName,
			"Comparison canceled before dispatch",
			fmt.Sprintf("Could not dispatch %s: %v", label, err),
			err.Error(),
		)
		job.TaskDone(label)
		return
	}

	logger.Debug(ctx, "task starting", "task", label)
	result := o.analyzer.Compare(ctx, clause, payload, override)
	results[ci*len(sources)+si] = result
	logger.Info(ctx, "task finished",
		"task", label,
		"classification", result.Classification,
		"completed", job.Completed()+1,
	)
	job.TaskDone(label)
}
