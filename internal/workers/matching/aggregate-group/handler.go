// internal/workers/matching/aggregate-group/handler.go
package aggregategroup

import (
	"context"
	"database/sql"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"strings"
	"time"

	"matching-workers/internal/common/logger"
	"matching-workers/internal/common/metrics"
	"matching-workers/internal/matching/aggregator"
	"matching-workers/internal/matching/vector"
	"matching-workers/internal/models"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	"github.com/redis/go-redis/v9"
)

const (
	TaskType = "matching.aggregate-group"
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
		code := errorCode(err)
		metrics.WorkerJobsFailed.WithLabelValues(TaskType, code).Inc()
		h.failJob(client, job, code, err.Error())
		return err
	}

	metrics.WorkerJobsCompleted.WithLabelValues(TaskType).Inc()
	metrics.WorkerJobDuration.WithLabelValues(TaskType).Observe(time.Since(start).Seconds())
	h.completeJob(client, job, output)
	return nil
}

// Execute collapses one group or a batch of groups into matching profiles.
// Single-group failures are errors; batch failures are reported per group in
// FailedGroups, so one bad group never aborts its siblings.
func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	if len(input.Groups) > 0 {
		return h.executeBatch(ctx, input.Groups)
	}
	members := input.Members
	if len(members) == 0 && len(input.MemberIDs) > 0 {
		fetched, err := h.fetchMembers(ctx, input.MemberIDs)
		if err != nil {
			return nil, err
		}
		members = fetched
	}

	profile, err := aggregator.BuildProfile(input.GroupID, members)
	if err != nil {
		return nil, err
	}

	h.cacheProfile(ctx, profile)

	h.logger.Info("group profile built", map[string]interface{}{
		"groupId":      profile.GroupID,
		"memberCount":  profile.MemberCount,
		"restrictions": profile.DietaryRestrictions,
	})

	return &Output{GroupProfile: *profile}, nil
}

func (h *Handler) executeBatch(ctx context.Context, groups []GroupInput) (*Output, error) {
	inputs := make([]aggregator.GroupInput, 0, len(groups))
	var failed []GroupError

	for _, g := range groups {
		members := g.Members
		if len(members) == 0 && len(g.MemberIDs) > 0 {
			fetched, err := h.fetchMembers(ctx, g.MemberIDs)
			if err != nil {
				failed = append(failed, GroupError{
					GroupID: g.GroupID,
					Code:    fetchErrorCode(err),
					Message: err.Error(),
				})
				continue
			}
			members = fetched
		}
		inputs = append(inputs, aggregator.GroupInput{GroupID: g.GroupID, Members: members})
	}

	items := aggregator.BuildProfiles(inputs)

	output := &Output{Profiles: []models.GroupProfile{}, FailedGroups: failed}
	for _, item := range items {
		if item.Err != nil {
			output.FailedGroups = append(output.FailedGroups, GroupError{
				GroupID: item.GroupID,
				Code:    errorCode(item.Err),
				Message: item.Err.Error(),
			})
			continue
		}
		h.cacheProfile(ctx, item.Profile)
		output.Profiles = append(output.Profiles, *item.Profile)
	}

	h.logger.Info("batch aggregated", map[string]interface{}{
		"requested": len(groups),
		"succeeded": len(output.Profiles),
		"failed":    len(output.FailedGroups),
	})

	return output, nil
}

func errorCode(err error) string {
	if stderrors.Is(err, vector.ErrZeroNorm) {
		return "DEGENERATE_INPUT"
	}
	return "VALIDATION_FAILED"
}

// fetchErrorCode distinguishes a missing vector from a failed member lookup
// by the code prefix fetchMembers wraps its errors with.
func fetchErrorCode(err error) string {
	if strings.HasPrefix(err.Error(), "EMBEDDING_LOAD_FAILED") {
		return "EMBEDDING_LOAD_FAILED"
	}
	return "ROSTER_FETCH_FAILED"
}

// fetchMembers loads member records and their preference vectors, preferring
// the cache over the vector store.
func (h *Handler) fetchMembers(ctx context.Context, memberIDs []string) ([]models.Participant, error) {
	members := make([]models.Participant, 0, len(memberIDs))
	for _, id := range memberIDs {
		row := h.db.QueryRowContext(ctx, `
			SELECT id, name, dietary_restrictions, budget_tier, lat, lng
			FROM users WHERE id = $1`, id)

		var p models.Participant
		var restrictions []byte
		if err := row.Scan(&p.ID, &p.Name, &restrictions, &p.BudgetTier, &p.Location.Lat, &p.Location.Lng); err != nil {
			return nil, fmt.Errorf("ROSTER_FETCH_FAILED: member %s: %w", id, err)
		}
		if err := json.Unmarshal(restrictions, &p.DietaryRestrictions); err != nil {
			p.DietaryRestrictions = []string{}
		}

		vec, err := h.loadVector(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("EMBEDDING_LOAD_FAILED: member %s: %w", id, err)
		}
		p.PreferenceVector = vec
		members = append(members, p)
	}
	return members, nil
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

func (h *Handler) cacheProfile(ctx context.Context, profile *models.GroupProfile) {
	if h.redis == nil {
		return
	}
	data, err := json.Marshal(profile)
	if err != nil {
		return
	}
	if err := h.redis.Set(ctx, "group:profile:"+profile.GroupID, data, h.config.CacheTTL).Err(); err != nil {
		h.logger.Warn("failed to cache group profile", map[string]interface{}{
			"groupId": profile.GroupID,
			"error":   err,
		})
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
