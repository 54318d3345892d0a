package geoindex

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/swiftride/dispatch-core/pkg/logger"
	"github.com/swiftride/dispatch-core/pkg/redis"
)

// GeoKey is the sorted set holding online driver positions
const GeoKey = "drivers:geo"

// Candidate is a driver returned by a radius search, nearest first
type Candidate struct {
	DriverID   int64   `json:"driver_id"`
	DistanceKm float64 `json:"distance_km"`
}

// ServiceInterface defines the live driver index operations
type ServiceInterface interface {
	UpsertDriver(ctx context.Context, driverID int64, lat, lng float64) error
	RemoveDriver(ctx context.Context, driverID int64) error
	NearbyDrivers(ctx context.Context, lat, lng, radiusKm float64, limit int) ([]Candidate, error)
}

// Service maintains the Redis geo index of online drivers. Entries carry a
// freshness key with a TTL; members whose key has expired are treated as
// stale and evicted lazily during searches.
type Service struct {
	redis redis.ClientInterface
	ttl   time.Duration
}

// NewService creates a new geo index service. ttl bounds how long a position
// is trusted without a new ping.
func NewService(client redis.ClientInterface, ttl time.Duration) *Service {
	return &Service{redis: client, ttl: ttl}
}

func freshKey(driverID int64) string {
	return fmt.Sprintf("drivers:geo:fresh:%d", driverID)
}

// UpsertDriver writes the driver's position and refreshes its TTL
func (s *Service) UpsertDriver(ctx context.Context, driverID int64, lat, lng float64) error {
	member := strconv.FormatInt(driverID, 10)
	if err := s.redis.GeoAdd(ctx, GeoKey, lng, lat, member); err != nil {
		return fmt.Errorf("failed to index driver location: %w", err)
	}
	if err := s.redis.SetWithExpiration(ctx, freshKey(driverID), "1", s.ttl); err != nil {
		return fmt.Errorf("failed to set location freshness: %w", err)
	}
	return nil
}

// RemoveDriver drops the driver from the index
func (s *Service) RemoveDriver(ctx context.Context, driverID int64) error {
	member := strconv.FormatInt(driverID, 10)
	if err := s.redis.GeoRemove(ctx, GeoKey, member); err != nil {
		return fmt.Errorf("failed to remove driver from index: %w", err)
	}
	if err := s.redis.Delete(ctx, freshKey(driverID)); err != nil {
		return fmt.Errorf("failed to clear location freshness: %w", err)
	}
	return nil
}

// NearbyDrivers returns up to limit fresh drivers within radiusKm of the
// point, nearest first. Stale members found along the way are evicted.
func (s *Service) NearbyDrivers(ctx context.Context, lat, lng, radiusKm float64, limit int) ([]Candidate, error) {
	// Over-fetch so that evicting stale members still leaves enough results
	fetch := 0
	if limit > 0 {
		fetch = limit * 3
	}

	members, err := s.redis.GeoRadius(ctx, GeoKey, lng, lat, radiusKm, fetch)
	if err != nil {
		return nil, fmt.Errorf("failed to search driver index: %w", err)
	}

	candidates := make([]Candidate, 0, len(members))
	for _, m := range members {
		driverID, err := strconv.ParseInt(m.Name, 10, 64)
		if err != nil {
			logger.Warn("dropping malformed geo member", zap.String("member", m.Name))
			continue
		}

		fresh, err := s.redis.Exists(ctx, freshKey(driverID))
		if err != nil {
			return nil, fmt.Errorf("failed to check location freshness: %w", err)
		}
		if !fresh {
			if err := s.redis.GeoRemove(ctx, GeoKey, m.Name); err != nil {
				logger.Warn("failed to evict stale geo member",
					zap.Int64("driver_id", driverID),
					zap.Error(err),
				)
			}
			continue
		}

		candidates = append(candidates, Candidate{DriverID: driverID, DistanceKm: m.DistanceKm})
		if limit > 0 && len(candidates) == limit {
			break
		}
	}

	return candidates, nil
}
