package domain

import "time"

// PerformanceWindow aggregates one representative's activity over a
// caller-specified accounting period.
type PerformanceWindow struct {
	// RepresentativeID identifies the representative.
	RepresentativeID string `json:"representative_id"`
	// PeriodStart and PeriodEnd bound the accounting period.
	PeriodStart time.Time `json:"period_start"`
	PeriodEnd   time.Time `json:"period_end"`
	// TotalVisits counts visits started or scheduled within the period.
	TotalVisits int `json:"total_visits"`
	// CompletedVisits counts visits that finished successfully.
	CompletedVisits int `json:"completed_visits"`
	// TotalDeliveries counts delivery runs started within the period.
	TotalDeliveries int `json:"total_deliveries"`
	// CompletedDeliveries counts delivery runs with a matched completion.
	CompletedDeliveries int `json:"completed_deliveries"`
	// TotalDistanceKm sums movement between consecutive location events,
	// excluding idle gaps.
	TotalDistanceKm float64 `json:"total_distance_km"`
	// TotalDurationHours sums the elapsed time of included segments.
	TotalDurationHours float64 `json:"total_duration_hours"`
	// AverageSpeedKmh is derived from distance over included duration.
	AverageSpeedKmh float64 `json:"average_speed_kmh"`
	// VisitSuccessRate is completed/total visits as a percentage in [0,100].
	VisitSuccessRate float64 `json:"visit_success_rate"`
	// DeliverySuccessRate is completed/total deliveries as a percentage in [0,100].
	DeliverySuccessRate float64 `json:"delivery_success_rate"`
	// VisitRating and DeliveryRating are 0-5 composites banded from the
	// success rates; 0 means no activity to rate.
	VisitRating    float64 `json:"visit_rating"`
	DeliveryRating float64 `json:"delivery_rating"`
}

// CompletedActivity is the combined completed visit and delivery count,
// used as the tie-breaker when ranking representatives.
func (w *PerformanceWindow) CompletedActivity() int {
	return w.CompletedVisits + w.CompletedDeliveries
}

// CombinedRating is the sum of visit and delivery ratings.
func (w *PerformanceWindow) CombinedRating() float64 {
	return w.VisitRating + w.DeliveryRating
}

// FleetStats aggregates performance windows across all representatives.
type FleetStats struct {
	// PeriodStart and PeriodEnd bound the accounting period.
	PeriodStart time.Time `json:"period_start"`
	PeriodEnd   time.Time `json:"period_end"`
	// Representatives is the number of representatives aggregated.
	Representatives int `json:"representatives"`
	// TotalVisits, CompletedVisits, TotalDeliveries and CompletedDeliveries
	// are fleet-wide sums.
	TotalVisits         int `json:"total_visits"`
	CompletedVisits     int `json:"completed_visits"`
	TotalDeliveries     int `json:"total_deliveries"`
	CompletedDeliveries int `json:"completed_deliveries"`
	// AverageVisitRating and AverageDeliveryRating average the non-zero
	// ratings across the fleet.
	AverageVisitRating    float64 `json:"average_visit_rating"`
	AverageDeliveryRating float64 `json:"average_delivery_rating"`
	// TopPerformer is the representative with the highest combined rating;
	// ties break on higher completed activity count. Empty when no
	// representative had any rated activity.
	TopPerformer string `json:"top_performer,omitempty"`
	// Windows holds the per-representative windows backing the aggregate.
	Windows []PerformanceWindow `json:"windows"`
}

// RatingBands maps success-rate percentages to a 0-5 rating. Thresholds
// are configuration, not business law.
type RatingBands struct {
	// Band5..Band2 are minimum success rates for ratings 5 down to 2.
	// Rates below Band2 earn 1.
	Band5 float64
	Band4 float64
	Band3 float64
	Band2 float64
}

// Rate bands a success rate into a rating. Zero activity yields 0 so an
// idle representative is not scored as a poor performer.
func (b RatingBands) Rate(successRate float64, totalActivity int) float64 {
	if totalActivity == 0 {
		return 0
	}
	switch {
	case successRate >= b.Band5:
		return 5
	case successRate >= b.Band4:
		return 4
	case successRate >= b.Band3:
		return 3
	case successRate >= b.Band2:
		return 2
	default:
		return 1
	}
}
