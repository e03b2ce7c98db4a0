// internal/workers/matching/match-restaurants/handler.go
package matchrestaurants

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"matching-workers/internal/common/logger"
	"matching-workers/internal/common/metrics"
	"matching-workers/internal/common/validation"
	"matching-workers/internal/matching/assigner"
	"matching-workers/internal/models"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	"github.com/elastic/go-elasticsearch/v8"
)

const (
	TaskType = "matching.match-restaurants"
)

var (
	ErrCatalogFetchFailed = errors.New("CATALOG_FETCH_FAILED")
	ErrMatchPersistFailed = errors.New("MATCH_PERSIST_FAILED")
)

type Handler struct {
	config *Config
	db     *sql.DB
	es     *elasticsearch.Client
	logger logger.Logger
}

func NewHandler(config *Config, db *sql.DB, es *elasticsearch.Client, log logger.Logger) *Handler {
	return &Handler{
		config: config,
		db:     db,
		es:     es,
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

	var raw map[string]interface{}
	if err := json.Unmarshal([]byte(job.Variables), &raw); err != nil {
		h.failJob(client, job, "INPUT_PARSING_FAILED", fmt.Sprintf("parse input: %v", err))
		return err
	}
	if result := validation.ValidateDocument(raw, inputSchema); !result.Valid {
		msg := strings.Join(result.GetErrorMessages(), "; ")
		err := fmt.Errorf("VALIDATION_FAILED: %s", msg)
		h.failJob(client, job, "VALIDATION_FAILED", msg)
		return err
	}

	var input Input
	if err := json.Unmarshal([]byte(job.Variables), &input); err != nil {
		h.failJob(client, job, "INPUT_PARSING_FAILED", fmt.Sprintf("parse input: %v", err))
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), h.config.Timeout)
	defer cancel()

	output, err := h.Execute(ctx, &input)
	if err != nil {
		code := "VALIDATION_FAILED"
		switch {
		case errors.Is(err, ErrCatalogFetchFailed):
			code = "CATALOG_FETCH_FAILED"
		case errors.Is(err, ErrMatchPersistFailed):
			code = "MATCH_PERSIST_FAILED"
		}
		metrics.WorkerJobsFailed.WithLabelValues(TaskType, code).Inc()
		h.failJob(client, job, code, err.Error())
		return err
	}

	metrics.WorkerJobsCompleted.WithLabelValues(TaskType).Inc()
	metrics.WorkerJobDuration.WithLabelValues(TaskType).Observe(time.Since(start).Seconds())
	h.completeJob(client, job, output)
	return nil
}

// Execute assigns each group to its best available restaurant.
func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	if len(input.GroupProfiles) == 0 {
		return nil, errors.New("VALIDATION_FAILED: groupProfiles is required")
	}

	maxDistance := input.MaxDistanceKm
	if maxDistance <= 0 {
		maxDistance = h.config.MaxDistanceKm
	}

	catalog := input.Restaurants
	if len(catalog) == 0 && h.es != nil {
		fetched, err := h.searchCatalog(ctx, input.GroupProfiles, maxDistance)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrCatalogFetchFailed, err)
		}
		catalog = fetched
	}

	result := assigner.Assign(input.GroupProfiles, catalog, assigner.Options{MaxDistanceKm: maxDistance})

	for _, id := range result.SkippedRestaurants {
		h.logger.Warn("restaurant skipped for malformed cuisine vector", map[string]interface{}{
			"restaurantId": id,
		})
	}
	if n := len(result.UnmatchedGroups); n > 0 {
		metrics.UnmatchedTotal.WithLabelValues(TaskType).Add(float64(n))
	}

	if h.config.PersistMatches && len(result.Matches) > 0 {
		if err := h.persistMatches(ctx, result.Matches); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMatchPersistFailed, err)
		}
	}

	h.logger.Info("groups matched to restaurants", map[string]interface{}{
		"groups":    len(input.GroupProfiles),
		"catalog":   len(catalog),
		"matched":   len(result.Matches),
		"unmatched": len(result.UnmatchedGroups),
	})

	return &Output{
		Matches:            result.Matches,
		UnmatchedGroups:    result.UnmatchedGroups,
		TotalMatched:       len(result.Matches),
		SkippedRestaurants: result.SkippedRestaurants,
	}, nil
}

// persistMatches writes the run's matches in one transaction so a partial
// write never survives a failure.
func (h *Handler) persistMatches(ctx context.Context, matches []models.Match) error {
	tx, err := h.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, m := range matches {
		reasons, err := json.Marshal(m.MatchReasons)
		if err != nil {
			return err
		}
		_, err = tx.ExecContext(ctx, `
			INSERT INTO dining_matches (group_id, restaurant_id, similarity_score, distance_km, match_reasons, created_at)
			VALUES ($1, $2, $3, $4, $5, NOW())`,
			m.GroupID, m.RestaurantID, m.SimilarityScore, m.DistanceKm, reasons)
		if err != nil {
			return err
		}
	}

	return tx.Commit()
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
