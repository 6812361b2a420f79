package models

import "time"

// DashboardSummary aggregates the counters shown on the home screen.
type DashboardSummary struct {
	TotalClasses      int `db:"total_classes" json:"total_classes"`
	PendingHomework   int `db:"pending_homework" json:"pending_homework"`
	DueToday          int `db:"due_today" json:"due_today"`
	Overdue           int `db:"overdue" json:"overdue"`
	CompletedThisWeek int `db:"completed_this_week" json:"completed_this_week"`
}

// DashboardWindow anchors the summary to the user's calendar. Today is a
// date at UTC midnight; WeekStart and WeekEnd bound the local Monday-based
// week as instants.
type DashboardWindow struct {
	Today     time.Time
	WeekStart time.Time
	WeekEnd   time.Time
}
