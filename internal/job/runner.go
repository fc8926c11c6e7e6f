package job

import (
	"context"
	"fmt"
	"sync"

	"verenigingsloket.org/internal/export"
	"verenigingsloket.org/internal/obs"
	"verenigingsloket.org/internal/stream"
)

// NoAssociationsMessage is the terminal error of a job whose scope holds
// no associations at all; the assembler is never invoked for it.
const NoAssociationsMessage = "No associations found in werkingsgebied"

// Assembler produces the export artifact for an identifier set.
type Assembler interface {
	Assemble(ctx context.Context, ids []string, scope string, sources export.Sources) (*export.Artifact, error)
}

// ScopeResolver yields the identifiers an owning group may export.
type ScopeResolver interface {
	IdentifiersInScope(ctx context.Context, scope string) ([]string, error)
}

// ArtifactStore persists finished artifacts.
type ArtifactStore interface {
	Save(name string, data []byte) (string, error)
}

// Runner creates jobs and drives them to a terminal state in the
// background. A background failure, panic included, becomes the job's
// failed state; it never crashes the process.
type Runner struct {
	jobs      *Store
	scope     ScopeResolver
	assembler Assembler
	artifacts ArtifactStore
	events    *stream.Stream

	wg sync.WaitGroup
}

func NewRunner(jobs *Store, scope ScopeResolver, assembler Assembler, artifacts ArtifactStore, events *stream.Stream) *Runner {
	return &Runner{jobs: jobs, scope: scope, assembler: assembler, artifacts: artifacts, events: events}
}

// Create registers a busy job owned by the account without starting
// processing. The caller finishes its own bookkeeping (the audit write)
// and then hands the job to Start.
func (r *Runner) Create(owner string) Job {
	j := r.jobs.Create(owner)
	r.publish(j)
	return j
}

// Start begins background processing of a previously created job.
func (r *Runner) Start(jobID, scope string) {
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		r.run(jobID, scope)
	}()
}

// Launch creates a busy job and starts it immediately. The returned job
// is what the caller gets in the 202 response; processing never blocks it.
func (r *Runner) Launch(owner, scope string) Job {
	j := r.Create(owner)
	r.Start(j.ID, scope)
	return j
}

// Status returns the current state of a job.
func (r *Runner) Status(id string) (Job, error) {
	return r.jobs.Get(id)
}

// Drain waits for all in-flight jobs to reach a terminal state.
func (r *Runner) Drain() { r.wg.Wait() }

func (r *Runner) run(jobID, scope string) {
	defer func() {
		if rec := recover(); rec != nil {
			r.fail(jobID, fmt.Sprintf("panic: %v", rec))
		}
	}()

	// The creating request has already been answered; the job gets its
	// own lifetime.
	ctx := context.Background()

	// A group without a registered werkingsgebied exports nothing; the
	// unfiltered query is reserved for the scheduled full export.
	if scope == "" {
		r.fail(jobID, NoAssociationsMessage)
		return
	}

	ids, err := r.scope.IdentifiersInScope(ctx, scope)
	if err != nil {
		r.fail(jobID, err.Error())
		return
	}
	if len(ids) == 0 {
		r.fail(jobID, NoAssociationsMessage)
		return
	}

	// Sensitive exports always include the external registry data.
	artifact, err := r.assembler.Assemble(ctx, ids, scope, export.Sources{Internal: true, External: true})
	if err != nil {
		r.fail(jobID, err.Error())
		return
	}

	ref, err := r.artifacts.Save("verenigingen-"+jobID+".xlsx", artifact.Bytes)
	if err != nil {
		r.fail(jobID, err.Error())
		return
	}
	r.succeed(jobID, ref)
}

func (r *Runner) succeed(jobID, ref string) {
	j, err := r.jobs.Complete(jobID, StatusSuccess, ref, "")
	if err != nil {
		obs.Log(map[string]any{"level": "error", "msg": "job transition failed", "job": jobID, "error": err.Error()})
		return
	}
	obs.ExportJobsTotal.WithLabelValues(string(StatusSuccess)).Inc()
	obs.Log(map[string]any{"level": "info", "msg": "export job finished", "job": jobID, "result": ref})
	r.publish(j)
}

func (r *Runner) fail(jobID, message string) {
	j, err := r.jobs.Complete(jobID, StatusFailed, "", message)
	if err != nil {
		obs.Log(map[string]any{"level": "error", "msg": "job transition failed", "job": jobID, "error": err.Error()})
		return
	}
	obs.ExportJobsTotal.WithLabelValues(string(StatusFailed)).Inc()
	obs.Log(map[string]any{"level": "warn", "msg": "export job failed", "job": jobID, "error": message})
	r.publish(j)
}

func (r *Runner) publish(j Job) {
	if r.events == nil {
		return
	}
	r.events.Publish(stream.JobEvent{
		JobID:     j.ID,
		Status:    string(j.Status),
		Result:    j.ResultReference,
		Error:     j.ErrorMessage,
		Timestamp: j.ModifiedAt,
	})
}
