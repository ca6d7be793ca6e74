package jobs

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/hibiken/asynq"

	"github.com/noah-isme/toko-kredit/internal/common"
)

// TypeGenerateInstallments is the asynq task type of a lifecycle run.
const TypeGenerateInstallments = "installment:generate"

// QueueName is the asynq queue the run is enqueued on.
const QueueName = "installments"

// NewGenerateTask builds the run task. Unique keeps a manual trigger and the
// scheduled tick from queueing two runs at once.
func NewGenerateTask() *asynq.Task {
	return asynq.NewTask(TypeGenerateInstallments, nil,
		asynq.Queue(QueueName),
		asynq.MaxRetry(3),
		asynq.Timeout(30*time.Minute),
		asynq.Unique(time.Hour),
	)
}

// ProcessTask implements asynq.Handler.
func (r *Runner) ProcessTask(ctx context.Context, _ *asynq.Task) error {
	if _, err := r.RunOnce(ctx); err != nil {
		return fmt.Errorf("installment run: %w", err)
	}
	return nil
}

// NewServeMux routes lifecycle tasks to runner.
func NewServeMux(runner *Runner) *asynq.ServeMux {
	mux := asynq.NewServeMux()
	mux.Handle(TypeGenerateInstallments, runner)
	return mux
}

// RegisterSchedule adds the daily run to scheduler.
func RegisterSchedule(scheduler *asynq.Scheduler, cronspec string) (string, error) {
	if cronspec == "" {
		cronspec = "0 1 * * *"
	}
	return scheduler.Register(cronspec, NewGenerateTask())
}

// Enqueuer is the subset of *asynq.Client used by the admin trigger.
type Enqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// AdminHandler lets operators start a run outside the schedule.
type AdminHandler struct {
	Client Enqueuer
}

// Trigger handles POST /api/v1/admin/jobs/installments.
func (h *AdminHandler) Trigger(w http.ResponseWriter, r *http.Request) {
	if h.Client == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "task client not configured", nil)
		return
	}
	info, err := h.Client.EnqueueContext(r.Context(), NewGenerateTask())
	if errors.Is(err, asynq.ErrDuplicateTask) {
		common.JSON(w, http.StatusAccepted, map[string]any{"data": map[string]any{"status": "already_queued"}})
		return
	}
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.JSON(w, http.StatusAccepted, map[string]any{"data": map[string]any{
		"status": "queued",
		"taskId": info.ID,
		"queue":  info.Queue,
	}})
}
