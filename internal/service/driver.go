package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"

	"dispatch/internal/domain"
	"dispatch/internal/redis"
	"dispatch/internal/repository"
)

// DriverService handles driver registration and profile lookups.
type DriverService struct {
	driverRepo repository.DriverRepository
	cache      redis.ProfileCache // optional
	log        *zap.Logger
	now        func() time.Time
}

// NewDriverService creates a new DriverService.
func NewDriverService(driverRepo repository.DriverRepository, cache redis.ProfileCache, log *zap.Logger) *DriverService {
	if log == nil {
		log = zap.NewNop()
	}
	return &DriverService{
		driverRepo: driverRepo,
		cache:      cache,
		log:        log,
		now:        time.Now,
	}
}

// RegisterDriverRequest contains the parameters for registering a driver.
type RegisterDriverRequest struct {
	ID    int64 // Telegram user id
	Name  string
	Phone string
}

// Register creates a driver or refreshes the name and phone of an existing one.
func (s *DriverService) Register(ctx context.Context, req RegisterDriverRequest) (*domain.Driver, error) {
	if req.ID <= 0 {
		return nil, ErrInvalidDriverID
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, ErrInvalidDriverName
	}

	driver := &domain.Driver{
		ID:        req.ID,
		Name:      name,
		Phone:     strings.TrimSpace(req.Phone),
		CreatedAt: s.now(),
	}
	if err := s.driverRepo.Upsert(ctx, driver); err != nil {
		return nil, err
	}

	if s.cache != nil {
		if err := s.cache.InvalidateDriverProfile(ctx, driver.ID); err != nil {
			s.log.Warn("driver cache invalidation failed", zap.Int64("driver_id", driver.ID), zap.Error(err))
		}
	}
	return driver, nil
}

// GetDriver retrieves a driver by ID.
func (s *DriverService) GetDriver(ctx context.Context, id int64) (*domain.Driver, error) {
	if id <= 0 {
		return nil, ErrInvalidDriverID
	}
	driver, err := s.driverRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrDriverNotFound
		}
		return nil, err
	}
	return driver, nil
}

// ListDrivers retrieves all drivers.
func (s *DriverService) ListDrivers(ctx context.Context) ([]*domain.Driver, error) {
	return s.driverRepo.GetAll(ctx)
}

// LookupProfile returns the display profile of a driver, reading through
// the cache. Unknown drivers yield nil, nil.
func (s *DriverService) LookupProfile(ctx context.Context, driverID int64) (*domain.DriverProfile, error) {
	if s.cache != nil {
		profile, err := s.cache.GetDriverProfile(ctx, driverID)
		if err != nil {
			s.log.Warn("driver cache read failed", zap.Int64("driver_id", driverID), zap.Error(err))
		} else if profile != nil {
			return profile, nil
		}
	}

	driver, err := s.driverRepo.GetByID(ctx, driverID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}

	profile := driver.Profile()
	if s.cache != nil {
		if err := s.cache.SetDriverProfile(ctx, driverID, profile); err != nil {
			s.log.Warn("driver cache write failed", zap.Int64("driver_id", driverID), zap.Error(err))
		}
	}
	return profile, nil
}
