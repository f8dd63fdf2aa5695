package service

import (
	"context"
	"fmt"
	"log/slog"
)

// Maintainer is the slice of repository.Store the maintenance endpoints use.
type Maintainer interface {
	Reset(ctx context.Context) error
	Ping(ctx context.Context) error
}

// MaintenanceService backs the health check and the test-suite reset.
type MaintenanceService struct {
	store  Maintainer
	logger *slog.Logger
}

// NewMaintenanceService creates a MaintenanceService.
func NewMaintenanceService(store Maintainer, logger *slog.Logger) *MaintenanceService {
	return &MaintenanceService{store: store, logger: logger}
}

// Reset deletes every blog and user. Only mounted when testing routes are
// enabled.
func (s *MaintenanceService) Reset(ctx context.Context) error {
	if err := s.store.Reset(ctx); err != nil {
		return fmt.Errorf("service/maintenance: resetting store: %w", err)
	}
	s.logger.Warn("store reset: all blogs and users deleted")
	return nil
}

// Healthy reports whether the store answers.
func (s *MaintenanceService) Healthy(ctx context.Context) error {
	if err := s.store.Ping(ctx); err != nil {
		return fmt.Errorf("service/maintenance: pinging store: %w", err)
	}
	return nil
}
