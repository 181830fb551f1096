package workbench

import (
	"context"
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/me/actorrun/internal/apify"
	"github.com/me/actorrun/pkg/model"
)

// RunRecorder stores run history. The store implements it.
type RunRecorder interface {
	CreateRunRecord(ctx context.Context, rec *model.RunRecord) error
}

// Controller drives platform calls for a workbench: it fetches schemas and
// runs actors and completes them through tickets.
type Controller struct {
	logger   *slog.Logger
	recorder RunRecorder
}

// NewController creates a controller. recorder may be nil.
func NewController(recorder RunRecorder, logger *slog.Logger) *Controller {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Controller{recorder: recorder, logger: logger.With("component", "controller")}
}

// LoadSchema fetches the schema for the selection identified by t and
// applies it. It reports whether the result was applied; false means the
// user selected another actor meanwhile.
func (c *Controller) LoadSchema(ctx context.Context, wb *Workbench, p apify.Platform, t Ticket) bool {
	if t.ActorID == "" {
		return false
	}
	doc, err := p.FetchSchema(ctx, t.ActorID)
	if err != nil {
		return wb.FailSchema(t, err)
	}
	return wb.ApplySchema(t, doc)
}

// SelectAndLoad selects actorID and fetches its schema synchronously.
func (c *Controller) SelectAndLoad(ctx context.Context, wb *Workbench, p apify.Platform, actorID string) bool {
	return c.LoadSchema(ctx, wb, p, wb.Select(actorID))
}

// Run coerces the form, runs the actor, and applies the outcome. The
// returned error is only for a run that could not be started from the
// current state (no schema, run in flight); platform failures become
// notices on the workbench.
func (c *Controller) Run(ctx context.Context, wb *Workbench, p apify.Platform) error {
	sub, err := wb.BeginRun()
	if err != nil {
		return err
	}
	c.Execute(ctx, wb, p, sub)
	return nil
}

// Execute performs a submission obtained from BeginRun, records it in the
// run history, and completes it on wb. The outcome is also returned for
// callers that answer a request directly.
func (c *Controller) Execute(ctx context.Context, wb *Workbench, p apify.Platform, sub *Submission) (*apify.RunResult, error) {
	started := time.Now()
	res, err := p.RunActor(ctx, sub.Ticket.ActorID, sub.Payload)
	c.record(ctx, wb.Owner(), sub.Ticket.ActorID, started, res, err)
	if err != nil {
		wb.FailRun(sub.Ticket, err)
		return nil, err
	}
	wb.ApplyRun(sub.Ticket, res)
	return res, nil
}

func (c *Controller) record(ctx context.Context, owner, actorID string, started time.Time, res *apify.RunResult, runErr error) {
	if c.recorder == nil {
		return
	}
	now := time.Now().UTC()
	rec := &model.RunRecord{
		ID:         "run_" + uuid.New().String(),
		ActorID:    actorID,
		UserID:     owner,
		StartedAt:  started.UTC(),
		FinishedAt: &now,
	}
	if runErr != nil {
		rec.Status = model.RunStatusFailed
		rec.Message = apify.Message(runErr)
	} else {
		rec.RunID = res.Run.ID
		rec.Status = res.Run.Status
		rec.DatasetID = res.Run.DefaultDatasetID
		rec.ItemCount = len(res.Items)
		rec.Message = res.Run.StatusMessage
		if !res.Run.StartedAt.IsZero() {
			rec.StartedAt = res.Run.StartedAt.UTC()
		}
		if res.Run.FinishedAt != nil {
			f := res.Run.FinishedAt.UTC()
			rec.FinishedAt = &f
		}
	}
	// History is best effort; a failed insert never affects the run.
	if err := c.recorder.CreateRunRecord(context.WithoutCancel(ctx), rec); err != nil {
		c.logger.Warn("record run", "actor_id", actorID, "error", err)
	}
}
