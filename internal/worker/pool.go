// Package worker runs texture map generation for many source images in parallel.
package worker

import (
	"context"
	"sync"
	"time"
)

// Generator is the interface for whole-image map generation.
// This matches the signature of pipeline.Generator.Generate.
type Generator interface {
	Generate(ctx context.Context, source, name string) (written []string, err error)
}

// Task is one source texture and the base name its maps are written under.
type Task struct {
	Source string
	Name   string
}

// Result represents the outcome of a task.
type Result struct {
	Task    Task
	Written []string
	Err     error
	Elapsed time.Duration
}

// ProgressFunc is called after each task completes with the number of tasks
// done so far, the total and the finished task's result.
type ProgressFunc func(completed, total int, r Result)

// Config configures the worker pool.
type Config struct {
	Workers    int
	Generator  Generator
	OnProgress ProgressFunc
}

// Pool manages parallel map generation.
type Pool struct {
	workers    int
	generator  Generator
	onProgress ProgressFunc
}

// New creates a new worker pool.
func New(cfg Config) *Pool {
	workers := cfg.Workers
	if workers <= 0 {
		workers = 1
	}

	return &Pool{
		workers:    workers,
		generator:  cfg.Generator,
		onProgress: cfg.OnProgress,
	}
}

type job struct {
	index int
	task  Task
}

type jobResult struct {
	index  int
	result Result
}

// Run executes all tasks and returns one result per task, in task order.
// Tasks are processed in parallel by the configured number of workers. Once ctx
// is cancelled, tasks that have not started yet report ctx.Err().
func (p *Pool) Run(ctx context.Context, tasks []Task) []Result {
	if len(tasks) == 0 {
		return nil
	}

	jobCh := make(chan job, len(tasks))
	resultCh := make(chan jobResult, len(tasks))

	var wg sync.WaitGroup
	for i := 0; i < p.workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			p.worker(ctx, jobCh, resultCh)
		}()
	}

	for i, task := range tasks {
		jobCh <- job{index: i, task: task}
	}
	close(jobCh)

	results := make([]Result, len(tasks))
	done := make(chan struct{})

	go func() {
		var completed int
		for r := range resultCh {
			results[r.index] = r.result

			completed++
			if p.onProgress != nil {
				p.onProgress(completed, len(tasks), r.result)
			}
		}
		close(done)
	}()

	wg.Wait()
	close(resultCh)
	<-done

	return results
}

// worker processes jobs and sends results to the result channel.
func (p *Pool) worker(ctx context.Context, jobs <-chan job, results chan<- jobResult) {
	for j := range jobs {
		if err := ctx.Err(); err != nil {
			results <- jobResult{index: j.index, result: Result{Task: j.task, Err: err}}
			continue
		}

		start := time.Now()
		written, err := p.generator.Generate(ctx, j.task.Source, j.task.Name)
		elapsed := time.Since(start)

		results <- jobResult{
			index: j.index,
			result: Result{
				Task:    j.task,
				Written: written,
				Err:     err,
				Elapsed: elapsed,
			},
		}
	}
}
