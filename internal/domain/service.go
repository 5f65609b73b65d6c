package domain

import (
	"context"
	"fmt"

	"autoinc/internal/core/apperror"
	"autoinc/pkg/logger"
)

// Validatable is implemented by records that support self-validation.
type Validatable interface {
	Validate(ctx context.Context) error
}

// RecordService runs lifecycle hooks around a Repository.
//
// Before-hooks run first; if any fails the repository is never called, so a record
// is never written without the values those hooks assign.
type RecordService[T any] struct {
	repo       Repository[T]
	hooks      *HookRegistry[T]
	recordName string
}

// RecordServiceConfig configures the record service.
type RecordServiceConfig[T any] struct {
	Repo       Repository[T]
	Hooks      *HookRegistry[T] // optional, a fresh registry is created when nil
	RecordName string
}

// NewRecordService creates a new record service.
func NewRecordService[T any](cfg RecordServiceConfig[T]) *RecordService[T] {
	hooks := cfg.Hooks
	if hooks == nil {
		hooks = NewHookRegistry[T]()
	}
	return &RecordService[T]{
		repo:       cfg.Repo,
		hooks:      hooks,
		recordName: cfg.RecordName,
	}
}

// Hooks returns the hook registry for external registration.
func (s *RecordService[T]) Hooks() *HookRegistry[T] {
	return s.hooks
}

func (s *RecordService[T]) validate(ctx context.Context, record T) error {
	v, ok := any(record).(Validatable)
	if !ok {
		return nil
	}
	if err := v.Validate(ctx); err != nil {
		if apperror.IsAppError(err) {
			return err
		}
		return apperror.NewValidation(err.Error()).WithDetail("record", s.recordName)
	}
	return nil
}

// Create saves a record that has never been persisted.
func (s *RecordService[T]) Create(ctx context.Context, record T) error {
	// 1. Run before-create hooks (identifier assignment happens here)
	if err := s.hooks.RunBeforeCreate(ctx, record); err != nil {
		return err
	}

	// 2. Validate with hook-assigned values in place
	if err := s.validate(ctx, record); err != nil {
		return err
	}

	// 3. Persist
	if err := s.repo.Create(ctx, record); err != nil {
		return fmt.Errorf("create %s: %w", s.recordName, err)
	}

	// 4. Run after-create hooks
	if err := s.hooks.RunAfterCreate(ctx, record); err != nil {
		// Record is already written
		logger.Warn(ctx, "after-create hook failed", "record", s.recordName, "error", err)
	}

	return nil
}

// Update saves a record that was previously persisted.
func (s *RecordService[T]) Update(ctx context.Context, record T) error {
	if err := s.hooks.RunBeforeUpdate(ctx, record); err != nil {
		return err
	}

	if err := s.validate(ctx, record); err != nil {
		return err
	}

	if err := s.repo.Update(ctx, record); err != nil {
		return fmt.Errorf("update %s: %w", s.recordName, err)
	}

	if err := s.hooks.RunAfterUpdate(ctx, record); err != nil {
		logger.Warn(ctx, "after-update hook failed", "record", s.recordName, "error", err)
	}

	return nil
}
