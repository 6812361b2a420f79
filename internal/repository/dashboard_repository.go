package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/sma-homework-api/internal/models"
)

const dashboardSummaryQuery = `SELECT
	(SELECT COUNT(*) FROM classes c WHERE c.user_id = $1) AS total_classes,
	COUNT(*) FILTER (WHERE h.status <> 'completed') AS pending_homework,
	COUNT(*) FILTER (WHERE h.status <> 'completed' AND h.due_date = $2) AS due_today,
	COUNT(*) FILTER (WHERE h.status <> 'completed' AND h.due_date < $2) AS overdue,
	COUNT(*) FILTER (WHERE h.status = 'completed' AND h.completed_at >= $3 AND h.completed_at < $4) AS completed_this_week
FROM homework h WHERE h.user_id = $1`

// DashboardRepository computes aggregate counters for the dashboard.
type DashboardRepository struct {
	db *sqlx.DB
}

// NewDashboardRepository constructs a DashboardRepository.
func NewDashboardRepository(db *sqlx.DB) *DashboardRepository {
	return &DashboardRepository{db: db}
}

// Summary counts the user's classes and homework relative to window.
func (r *DashboardRepository) Summary(ctx context.Context, userID string, window models.DashboardWindow) (*models.DashboardSummary, error) {
	var summary models.DashboardSummary
	if err := r.db.GetContext(ctx, &summary, dashboardSummaryQuery, userID, window.Today, window.WeekStart, window.WeekEnd); err != nil {
		return nil, fmt.Errorf("dashboard summary: %w", err)
	}
	return &summary, nil
}
