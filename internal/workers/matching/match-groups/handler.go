// internal/workers/matching/match-groups/handler.go
package matchgroups

import (
	"context"
	"database/sql"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"matching-workers/internal/common/logger"
	"matching-workers/internal/common/metrics"
	"matching-workers/internal/common/observability"
	"matching-workers/internal/matching/grouper"
	"matching-workers/internal/models"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	TaskType = "matching.match-groups"
)

type Handler struct {
	config *Config
	db     *sql.DB
	redis  *redis.Client
	logger logger.Logger
	idGen  grouper.IDGenerator
	obs    *observability.Observability
}

func NewHandler(config *Config, db *sql.DB, rdb *redis.Client, log logger.Logger) *Handler {
	return &Handler{
		config: config,
		db:     db,
		redis:  rdb,
		logger: log.WithFields(map[string]interface{}{"taskType": TaskType}),
		idGen:  func(seq int) string { return "group-" + uuid.New().String() },
	}
}

// WithObservability attaches the OTel instruments. Without it the handler
// reports through the Prometheus counters only.
func (h *Handler) WithObservability(obs *observability.Observability) *Handler {
	h.obs = obs
	return h
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

	if result := validateJobInput(raw); !result.Valid {
		msg := strings.Join(result.GetErrorMessages(), "; ")
		metrics.WorkerJobsFailed.WithLabelValues(TaskType, "VALIDATION_FAILED").Inc()
		h.failJob(client, job, "VALIDATION_FAILED", msg)
		return fmt.Errorf("input validation failed: %s", msg)
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
		code := "ROSTER_FETCH_FAILED"
		if stderrors.Is(err, grouper.ErrRosterTooSmall) {
			code = "ROSTER_TOO_SMALL"
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

// Execute partitions the roster into groups of 4 or 5 by preference
// similarity.
func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	roster := input.Participants
	if len(roster) == 0 {
		if input.EventID == "" {
			return nil, fmt.Errorf("%w: need at least %d participants, got 0",
				grouper.ErrRosterTooSmall, grouper.MinRoster)
		}
		fetched, err := h.fetchRoster(ctx, input.EventID)
		if err != nil {
			return nil, err
		}
		roster = fetched
	}

	result, err := grouper.Partition(roster, grouper.Options{IDGen: h.idGen})
	if err != nil {
		return nil, err
	}

	for _, g := range result.Groups {
		metrics.GroupsFormed.WithLabelValues(strconv.Itoa(g.Size())).Inc()
		if h.obs != nil {
			h.obs.RecordGroupSize(ctx, g.Size())
		}
	}
	if n := len(result.UnmatchedUsers); n > 0 {
		metrics.UnmatchedTotal.WithLabelValues(TaskType).Add(float64(n))
	}

	h.logger.Info("roster partitioned", map[string]interface{}{
		"eventId":   input.EventID,
		"roster":    len(roster),
		"groups":    len(result.Groups),
		"unmatched": len(result.UnmatchedUsers),
	})

	return &Output{
		Groups:         result.Groups,
		UnmatchedUsers: result.UnmatchedUsers,
		TotalGroups:    len(result.Groups),
	}, nil
}

// fetchRoster loads the event's registered participants and attaches each
// one's preference vector, preferring the cache over the vector store.
func (h *Handler) fetchRoster(ctx context.Context, eventID string) ([]models.Participant, error) {
	rows, err := h.db.QueryContext(ctx, `
		SELECT u.id, u.name, u.dietary_restrictions, u.budget_tier, u.lat, u.lng
		FROM event_registrations r
		JOIN users u ON u.id = r.user_id
		WHERE r.event_id = $1
		ORDER BY u.id`, eventID)
	if err != nil {
		return nil, fmt.Errorf("ROSTER_FETCH_FAILED: event %s: %w", eventID, err)
	}
	defer rows.Close()

	var roster []models.Participant
	for rows.Next() {
		var p models.Participant
		var restrictions []byte
		if err := rows.Scan(&p.ID, &p.Name, &restrictions, &p.BudgetTier, &p.Location.Lat, &p.Location.Lng); err != nil {
			return nil, fmt.Errorf("ROSTER_FETCH_FAILED: event %s: %w", eventID, err)
		}
		if err := json.Unmarshal(restrictions, &p.DietaryRestrictions); err != nil {
			p.DietaryRestrictions = []string{}
		}
		roster = append(roster, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ROSTER_FETCH_FAILED: event %s: %w", eventID, err)
	}

	for i := range roster {
		vec, err := h.loadVector(ctx, roster[i].ID)
		if err != nil {
			// A missing vector leaves the participant degenerate; the
			// partitioner reports them unmatched rather than failing the run.
			h.logger.Warn("preference vector unavailable", map[string]interface{}{
				"userId": roster[i].ID,
				"error":  err,
			})
			continue
		}
		roster[i].PreferenceVector = vec
	}

	return roster, nil
}

func (h *Handler) loadVector(ctx context.Context, userID string) ([]float64, error) {
	if h.redis != nil {
		if val, err := h.redis.Get(ctx, "pref:vector:"+userID).Result(); err == nil {
			var vec []float64
			if err := json.Unmarshal([]byte(val), &vec); err == nil {
				return vec, nil
			}
		}
	}

	row := h.db.QueryRowContext(ctx,
		`SELECT vector FROM preference_vectors WHERE user_id = $1`, userID)
	var raw []byte
	if err := row.Scan(&raw); err != nil {
		return nil, err
	}
	var vec []float64
	if err := json.Unmarshal(raw, &vec); err != nil {
		return nil, err
	}
	return vec, nil
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
