package dto

import "github.com/noah-isme/sma-homework-api/internal/models"

// DashboardSummaryResponse is the home screen counters for one local day.
type DashboardSummaryResponse struct {
	models.DashboardSummary
	Date     string `json:"date"`
	Timezone string `json:"timezone"`
}
