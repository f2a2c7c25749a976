package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"field-tracker/internal/features/events/domain"
	"field-tracker/internal/features/events/ports"
)

// ErrRepresentativeNotFound is returned for single-representative queries
// when the representative has never been seen by the store.
var ErrRepresentativeNotFound = errors.New("representative not found")

// MovementFilter narrows a movement history query. Zero-valued fields are
// ignored; set fields compose with logical AND.
type MovementFilter struct {
	// From and To bound RecordedAt inclusively.
	From time.Time
	To   time.Time
	// ActivityType keeps only events of this type.
	ActivityType string
	// Location keeps only events whose place label contains this substring
	// (case-insensitive).
	Location string
}

// QueryService serves read-only movement history.
type QueryService struct {
	store ports.EventStore
}

// NewQueryService creates a QueryService.
func NewQueryService(store ports.EventStore) *QueryService {
	return &QueryService{store: store}
}

// Movements returns a representative's location events matching the filter,
// ascending by RecordedAt. An empty result is not an error; an unknown
// representative is.
func (s *QueryService) Movements(ctx context.Context, representativeID string, filter MovementFilter) ([]domain.LocationEvent, error) {
	known, err := s.store.Known(ctx, representativeID)
	if err != nil {
		return nil, fmt.Errorf("failed to check representative: %w", err)
	}
	if !known {
		return nil, ErrRepresentativeNotFound
	}

	if filter.ActivityType != "" && !domain.ActivityType(filter.ActivityType).Valid() {
		return nil, fmt.Errorf("%w: unknown activity_type %q", ErrInvalidEvent, filter.ActivityType)
	}

	from := filter.From
	if from.IsZero() {
		from = time.Unix(0, 0)
	}
	to := filter.To
	if to.IsZero() {
		to = time.Now()
	}

	events, err := s.store.Range(ctx, representativeID, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to query movements: %w", err)
	}

	filtered := make([]domain.LocationEvent, 0, len(events))
	for _, ev := range events {
		if filter.ActivityType != "" && string(ev.ActivityType) != filter.ActivityType {
			continue
		}
		if filter.Location != "" &&
			!strings.Contains(strings.ToLower(ev.Location), strings.ToLower(filter.Location)) {
			continue
		}
		filtered = append(filtered, ev)
	}
	return filtered, nil
}
