package directory

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	directoryerrors "go-hris-leave/internal/directory/errors"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
	"gorm.io/gorm"
)

const (
	EmployeeKeyPrefix = "directory:employee:"
	employeeCacheTTL  = 15 * time.Minute
)

func GetEmployeeKey(id string) string {
	return EmployeeKeyPrefix + id
}

// Resolver looks up employee identity. The lifecycle engine depends only on
// this contract; the HR directory owns the data.
//
//go:generate mockgen -source=directory_service.go -destination=mock/directory_service_mock.go -package=mock
type Resolver interface {
	ResolveEmployee(ctx context.Context, id string) (Employee, error)
}

type service struct {
	repo   Repository
	rdb    *redis.Client
	sf     *singleflight.Group
	logger *zap.Logger
}

func NewService(repo Repository, rdb *redis.Client, logger ...*zap.Logger) Resolver {
	l := zap.L().Named("directory.service")
	if len(logger) > 0 && logger[0] != nil {
		l = logger[0].Named("directory.service")
	}
	return &service{repo: repo, rdb: rdb, sf: &singleflight.Group{}, logger: l}
}

func (s *service) ResolveEmployee(ctx context.Context, id string) (Employee, error) {
	if _, err := uuid.Parse(id); err != nil {
		return Employee{}, directoryerrors.ErrInvalidEmployeeID
	}
	cacheKey := GetEmployeeKey(id)

	if s.rdb != nil {
		if cached, err := s.rdb.Get(ctx, cacheKey).Result(); err == nil {
			var emp Employee
			if json.Unmarshal([]byte(cached), &emp) == nil {
				return emp, nil
			}
		} else if !errors.Is(err, redis.Nil) {
			s.logger.Warn("directory cache read failed", zap.String("key", cacheKey), zap.Error(err))
		}
	}

	// Fan-out resolves the same approvers for many requests at once.
	v, err, _ := s.sf.Do(cacheKey, func() (any, error) {
		row, err := s.repo.FindByID(ctx, id)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, directoryerrors.ErrEmployeeNotFound
			}
			return nil, err
		}
		emp := mapRow(*row)

		if s.rdb != nil {
			if payload, err := json.Marshal(emp); err == nil {
				if err := s.rdb.Set(ctx, cacheKey, payload, employeeCacheTTL).Err(); err != nil {
					s.logger.Warn("directory cache write failed", zap.String("key", cacheKey), zap.Error(err))
				}
			}
		}
		return emp, nil
	})
	if err != nil {
		if !errors.Is(err, directoryerrors.ErrEmployeeNotFound) {
			s.logger.Error("resolve employee failed", zap.String("employee_id", id), zap.Error(err))
		}
		return Employee{}, err
	}

	return v.(Employee), nil
}
