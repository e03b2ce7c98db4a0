// internal/common/metrics/metrics.go
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	WorkerJobsCompleted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "matching_jobs_completed_total",
			Help: "Total number of jobs completed per matching stage",
		},
		[]string{"task_type"},
	)

	WorkerJobsFailed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "matching_jobs_failed_total",
			Help: "Total number of jobs failed per matching stage",
		},
		[]string{"task_type", "error_code"},
	)

	WorkerJobDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "matching_job_duration_seconds",
			Help: "Duration of job processing per matching stage",
		},
		[]string{"task_type"},
	)

	WorkerJobsActive = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "matching_jobs_active",
			Help: "Number of in-flight jobs per matching stage",
		},
		[]string{"task_type"},
	)

	GroupsFormed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "matching_groups_formed_total",
			Help: "Groups produced by match-groups runs, by group size",
		},
		[]string{"size"},
	)

	UnmatchedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "matching_unmatched_total",
			Help: "Participants or groups left unmatched, by stage",
		},
		[]string{"task_type"},
	)
)
