// internal/common/camunda/worker.go
package camunda

import (
	"context"
	"fmt"
	"time"

	"matching-workers/internal/common/errors"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	"github.com/camunda/zeebe/clients/go/v8/pkg/zbc"
	"go.uber.org/zap"
)

// JobHandler is implemented by every pipeline worker. The returned error is
// for logging; handlers report their own outcome to the broker.
type JobHandler interface {
	Handle(client worker.JobClient, job entities.Job) error
}

type CamundaWorker struct {
	client   zbc.Client
	worker   worker.JobWorker
	logger   *zap.Logger
	taskType string
}

// NewWorker opens a job worker for taskType. Handler errors are logged;
// panics are recovered and reported to the broker through errHandler so one
// bad payload cannot take the fleet down.
func NewWorker(
	client zbc.Client,
	taskType string,
	maxJobsActive int,
	timeout time.Duration,
	handler JobHandler,
	errHandler *errors.ErrorHandler,
	logger *zap.Logger,
) *CamundaWorker {
	jobWorker := client.NewJobWorker().
		JobType(taskType).
		Handler(func(c worker.JobClient, job entities.Job) {
			defer func() {
				if r := recover(); r != nil {
					logger.Error("handler panicked",
						zap.Any("panic", r),
						zap.String("taskType", taskType),
						zap.Int64("jobKey", job.Key),
					)
					errHandler.HandleJobError(context.Background(), c, job,
						errors.NewInternalError(fmt.Errorf("panic in %s handler: %v", taskType, r)))
				}
			}()
			if err := handler.Handle(c, job); err != nil {
				logger.Error("handler returned error",
					zap.Error(err),
					zap.String("taskType", taskType),
					zap.Int64("jobKey", job.Key),
				)
			}
		}).
		MaxJobsActive(maxJobsActive).
		Timeout(timeout).
		Open()

	return &CamundaWorker{
		client:   client,
		worker:   jobWorker,
		logger:   logger,
		taskType: taskType,
	}
}

func (w *CamundaWorker) Start() {
	w.logger.Info("worker started", zap.String("taskType", w.taskType))
}

func (w *CamundaWorker) Stop(ctx context.Context) {
	w.logger.Info("stopping worker", zap.String("taskType", w.taskType))
	w.worker.Close()
}
