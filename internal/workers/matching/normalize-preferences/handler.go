// internal/workers/matching/normalize-preferences/handler.go
package normalizepreferences

import (
	"context"
	"database/sql"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"time"

	"matching-workers/internal/common/logger"
	"matching-workers/internal/common/metrics"
	"matching-workers/internal/matching/normalizer"
	"matching-workers/internal/matching/vector"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	"github.com/redis/go-redis/v9"
)

const (
	TaskType = "matching.normalize-preferences"
)

type Handler struct {
	config *Config
	db     *sql.DB
	redis  *redis.Client
	logger logger.Logger
}

func NewHandler(config *Config, db *sql.DB, rdb *redis.Client, log logger.Logger) *Handler {
	return &Handler{
		config: config,
		db:     db,
		redis:  rdb,
		logger: log.WithFields(map[string]interface{}{"taskType": TaskType}),
	}
}

func (h *Handler) Handle(client worker.JobClient, job entities.Job) error {
	start := time.Now()
	metrics.WorkerJobsActive.WithLabelValues(TaskType).Inc()
	defer metrics.WorkerJobsActive.WithLabelValues(TaskType).Dec()

	h.logger.Info("processing job", map[string]interface{}{
		"jobKey":      job.Key,
		"workflowKey": job.ProcessInstanceKey,
	})

	var input Input
	if err := json.Unmarshal([]byte(job.Variables), &input); err != nil {
		h.failJob(client, job, "INPUT_PARSING_FAILED", fmt.Sprintf("parse input: %v", err))
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), h.config.Timeout)
	defer cancel()

	output, err := h.Execute(ctx, &input)
	if err != nil {
		metrics.WorkerJobsFailed.WithLabelValues(TaskType, errorCode(err)).Inc()
		h.failJob(client, job, errorCode(err), err.Error())
		return err
	}

	metrics.WorkerJobsCompleted.WithLabelValues(TaskType).Inc()
	metrics.WorkerJobDuration.WithLabelValues(TaskType).Observe(time.Since(start).Seconds())
	h.completeJob(client, job, output)
	return nil
}

// Execute normalizes one user or a batch. Single-user failures are errors;
// batch failures are reported per user in FailedUsers.
func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	if len(input.Users) > 0 {
		return h.executeBatch(ctx, input.Users)
	}
	if input.UserID == "" && len(input.Embeddings) == 0 {
		return nil, fmt.Errorf("%w: either userId, embeddings, or users is required", normalizer.ErrInvalidWeights)
	}
	return h.executeSingle(ctx, UserInput{
		UserID:     input.UserID,
		Embeddings: input.Embeddings,
		Weights:    input.Weights,
	})
}

func (h *Handler) executeSingle(ctx context.Context, user UserInput) (*Output, error) {
	embeddings := user.Embeddings
	if len(embeddings) == 0 {
		fetched, err := h.fetchEmbeddings(ctx, user.UserID)
		if err != nil {
			return nil, err
		}
		embeddings = fetched
	}

	weights := user.Weights
	if weights == nil {
		weights = h.config.DefaultWeights
	}

	result, err := normalizer.Normalize(normalizer.Request{
		UserID:     user.UserID,
		Embeddings: embeddings,
		Weights:    weights,
	})
	if err != nil {
		return nil, err
	}

	h.cacheVector(ctx, result.UserID, result.PreferenceVector)

	h.logger.Info("preferences normalized", map[string]interface{}{
		"userId":           result.UserID,
		"processingTimeMs": result.ProcessingTimeMs,
	})

	return &Output{
		UserID:           result.UserID,
		PreferenceVector: result.PreferenceVector,
		ProcessingTimeMs: result.ProcessingTimeMs,
	}, nil
}

func (h *Handler) executeBatch(ctx context.Context, users []UserInput) (*Output, error) {
	reqs := make([]normalizer.Request, 0, len(users))
	var failed []UserError

	for _, u := range users {
		embeddings := u.Embeddings
		if len(embeddings) == 0 {
			fetched, err := h.fetchEmbeddings(ctx, u.UserID)
			if err != nil {
				failed = append(failed, UserError{
					UserID:  u.UserID,
					Code:    errorCode(err),
					Message: err.Error(),
				})
				continue
			}
			embeddings = fetched
		}
		weights := u.Weights
		if weights == nil {
			weights = h.config.DefaultWeights
		}
		reqs = append(reqs, normalizer.Request{UserID: u.UserID, Embeddings: embeddings, Weights: weights})
	}

	items := normalizer.NormalizeBatch(reqs)

	output := &Output{Results: []UserResult{}, FailedUsers: failed}
	for _, item := range items {
		if item.Err != nil {
			output.FailedUsers = append(output.FailedUsers, UserError{
				UserID:  item.UserID,
				Code:    errorCode(item.Err),
				Message: item.Err.Error(),
			})
			continue
		}
		h.cacheVector(ctx, item.UserID, item.Result.PreferenceVector)
		output.Results = append(output.Results, UserResult{
			UserID:           item.UserID,
			PreferenceVector: item.Result.PreferenceVector,
			ProcessingTimeMs: item.Result.ProcessingTimeMs,
		})
	}

	h.logger.Info("batch normalized", map[string]interface{}{
		"requested": len(users),
		"succeeded": len(output.Results),
		"failed":    len(output.FailedUsers),
	})

	return output, nil
}

// fetchEmbeddings loads the user's three raw embeddings, stored as JSON
// arrays in the user_embeddings table.
func (h *Handler) fetchEmbeddings(ctx context.Context, userID string) ([][]float64, error) {
	if userID == "" {
		return nil, fmt.Errorf("%w: userId is required when embeddings are omitted", normalizer.ErrInvalidWeights)
	}

	row := h.db.QueryRowContext(ctx, `
		SELECT dining_embedding, cuisine_embedding, social_embedding
		FROM user_embeddings WHERE user_id = $1`, userID)

	var dining, cuisine, social []byte
	if err := row.Scan(&dining, &cuisine, &social); err != nil {
		return nil, fmt.Errorf("EMBEDDING_LOAD_FAILED: user %s: %w", userID, err)
	}

	embeddings := make([][]float64, normalizer.EmbeddingCount)
	for i, raw := range [][]byte{dining, cuisine, social} {
		if err := json.Unmarshal(raw, &embeddings[i]); err != nil {
			return nil, fmt.Errorf("EMBEDDING_LOAD_FAILED: user %s: %w", userID, err)
		}
	}
	return embeddings, nil
}

func (h *Handler) cacheVector(ctx context.Context, userID string, vec []float64) {
	if h.redis == nil || userID == "" {
		return
	}
	data, err := json.Marshal(vec)
	if err != nil {
		return
	}
	if err := h.redis.Set(ctx, "pref:vector:"+userID, data, h.config.CacheTTL).Err(); err != nil {
		h.logger.Warn("failed to cache preference vector", map[string]interface{}{
			"userId": userID,
			"error":  err,
		})
	}
}

func errorCode(err error) string {
	switch {
	case stderrors.Is(err, vector.ErrDimensionMismatch):
		return "DIMENSION_MISMATCH"
	case stderrors.Is(err, vector.ErrZeroNorm):
		return "DEGENERATE_INPUT"
	case stderrors.Is(err, normalizer.ErrInvalidWeights):
		return "VALIDATION_FAILED"
	default:
		return "EMBEDDING_LOAD_FAILED"
	}
}

func (h *Handler) completeJob(client worker.JobClient, job entities.Job, output *Output) {
	cmd, err := client.NewCompleteJobCommand().
		JobKey(job.Key).
		VariablesFromObject(output)
	if err != nil {
		h.logger.Error("failed to create complete job command", map[string]interface{}{
			"error": err,
		})
		return
	}
	if _, err = cmd.Send(context.Background()); err != nil {
		h.logger.Error("failed to send complete job command", map[string]interface{}{
			"error": err,
		})
	}
}

func (h *Handler) failJob(client worker.JobClient, job entities.Job, errorCode, errorMessage string) {
	h.logger.Error("job failed", map[string]interface{}{
		"jobKey":       job.Key,
		"errorCode":    errorCode,
		"errorMessage": errorMessage,
	})

	_, err := client.NewThrowErrorCommand().
		JobKey(job.Key).
		ErrorCode(errorCode).
		ErrorMessage(errorMessage).
		Send(context.Background())
	if err != nil {
		h.logger.Error("failed to throw error", map[string]interface{}{
			"error": err,
		})
	}
}
