package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"infofix-oracle/internal/apperrors"
	"infofix-oracle/internal/models"
)

const (
	defaultListLimit = 100
	maxListLimit     = 200
)

type SubmissionRepository struct {
	db *gorm.DB
}

func NewSubmissionRepository(db *gorm.DB) *SubmissionRepository {
	return &SubmissionRepository{db: db}
}

// Create stores a new pending submission.
func (r *SubmissionRepository) Create(ctx context.Context, submission *models.Submission) error {
	if submission.ID == uuid.Nil {
		submission.ID = uuid.New()
	}
	submission.Status = models.SubmissionStatusPending

	if err := r.db.WithContext(ctx).Create(submission).Error; err != nil {
		return apperrors.Wrap(apperrors.KindInternal, err, "failed to create submission")
	}
	return nil
}

// GetByID retrieves a submission by ID
func (r *SubmissionRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Submission, error) {
	var submission models.Submission
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&submission).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.New(apperrors.KindNotFound, "submission %s not found", id)
	}
	if err != nil {
		return nil, apperrors.Wrap(apperrors.KindInternal, err, "failed to load submission")
	}
	return &submission, nil
}

// List returns submissions matching the filter, newest first. The limit is
// clamped to [1, 200]; zero or negative falls back to the default cap.
func (r *SubmissionRepository) List(ctx context.Context, filter models.ListSubmissionsFilter) ([]*models.Submission, error) {
	limit := filter.Limit
	if limit <= 0 {
		limit = defaultListLimit
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}

	query := r.db.WithContext(ctx).Model(&models.Submission{})
	if filter.TaskID != nil {
		query = query.Where("task_id = ?", *filter.TaskID)
	}
	if filter.User != nil {
		query = query.Where("user_address = ?", *filter.User)
	}
	if filter.Status != nil {
		query = query.Where("status = ?", *filter.Status)
	}

	var submissions []*models.Submission
	err := query.Order("created_at DESC").Limit(limit).Find(&submissions).Error
	if err != nil {
		return nil, apperrors.Wrap(apperrors.KindInternal, err, "failed to list submissions")
	}
	return submissions, nil
}

// FindLatestApproved returns the most recently approved submission for the
// (taskId, user, action) tuple, or nil when there is none.
func (r *SubmissionRepository) FindLatestApproved(ctx context.Context, taskID uint64, user string, action models.SubmissionAction) (*models.Submission, error) {
	var submission models.Submission
	err := r.db.WithContext(ctx).
		Where("task_id = ? AND user_address = ? AND action = ? AND status = ?",
			taskID, user, action, models.SubmissionStatusApproved).
		Order("approved_at DESC").
		Order("created_at DESC").
		First(&submission).Error

	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, apperrors.Wrap(apperrors.KindInternal, err, "failed to query approved submissions")
	}
	return &submission, nil
}

// CountPendingByTask returns the number of pending submissions per task.
func (r *SubmissionRepository) CountPendingByTask(ctx context.Context) (map[uint64]int64, error) {
	type row struct {
		TaskID uint64
		Count  int64
	}
	var rows []row
	err := r.db.WithContext(ctx).Model(&models.Submission{}).
		Select("task_id, COUNT(*) as count").
		Where("status = ?", models.SubmissionStatusPending).
		Group("task_id").
		Scan(&rows).Error
	if err != nil {
		return nil, apperrors.Wrap(apperrors.KindInternal, err, "failed to count pending submissions")
	}

	counts := make(map[uint64]int64, len(rows))
	for _, r := range rows {
		counts[r.TaskID] = r.Count
	}
	return counts, nil
}

// TransitionApprove atomically moves a submission to approved and writes the
// voucher fields in one step. The status condition inside the UPDATE is the
// sole enforcement point for the at-most-one-voucher invariant: of two
// racing approvals exactly one flips the row, the other sees Conflict.
// requestNonce is the approve-request replay guard; it is consumed inside
// the same transaction and rolled back if the transition fails.
func (r *SubmissionRepository) TransitionApprove(ctx context.Context, id uuid.UUID, approver string, requestNonce string, amountWei, nonce, deadline, signature string) (*models.Submission, error) {
	var updated models.Submission

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&models.ApprovalNonce{}).
			Where("submission_id = ? AND nonce = ?", id, requestNonce).
			Count(&count).Error; err != nil {
			return apperrors.Wrap(apperrors.KindInternal, err, "failed to check approval nonce")
		}
		if count > 0 {
			return apperrors.New(apperrors.KindConflict, "approval nonce already used")
		}

		if err := tx.Create(&models.ApprovalNonce{
			ID:           uuid.New(),
			SubmissionID: id,
			Nonce:        requestNonce,
		}).Error; err != nil {
			// The unique index backs the pre-check under concurrent replays.
			return apperrors.Wrap(apperrors.KindConflict, err, "approval nonce already used")
		}

		now := time.Now()
		result := tx.Model(&models.Submission{}).
			Where("id = ? AND status <> ?", id, models.SubmissionStatusApproved).
			Updates(map[string]interface{}{
				"status":      models.SubmissionStatusApproved,
				"approved_at": now,
				"approved_by": approver,
				"amount_wei":  amountWei,
				"nonce":       nonce,
				"deadline":    deadline,
				"signature":   signature,
				"updated_at":  now,
			})
		if result.Error != nil {
			return apperrors.Wrap(apperrors.KindInternal, result.Error, "failed to approve submission")
		}

		if result.RowsAffected == 0 {
			var current models.Submission
			err := tx.Where("id = ?", id).First(&current).Error
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperrors.New(apperrors.KindNotFound, "submission %s not found", id)
			}
			if err != nil {
				return apperrors.Wrap(apperrors.KindInternal, err, "failed to load submission")
			}
			return apperrors.New(apperrors.KindConflict, "submission already approved")
		}

		return tx.Where("id = ?", id).First(&updated).Error
	})

	if err != nil {
		return nil, err
	}
	return &updated, nil
}

// TransitionReject moves a submission to rejected. Rejecting an approved
// submission fails with Conflict; re-rejecting a rejected one is an
// idempotent success.
func (r *SubmissionRepository) TransitionReject(ctx context.Context, id uuid.UUID, approver *string, reason *string) (*models.Submission, error) {
	var updated models.Submission

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var current models.Submission
		err := tx.Where("id = ?", id).First(&current).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperrors.New(apperrors.KindNotFound, "submission %s not found", id)
		}
		if err != nil {
			return apperrors.Wrap(apperrors.KindInternal, err, "failed to load submission")
		}

		now := time.Now()
		fields := map[string]interface{}{
			"status":      models.SubmissionStatusRejected,
			"approved_at": now,
			"approved_by": approver,
			"updated_at":  now,
		}
		if reason != nil && *reason != "" {
			note := "[REJECTED] " + *reason
			fields["note"] = note
		}

		// Approval is a one-way door; the status condition re-checks it
		// inside the write to close the race with a concurrent approve.
		result := tx.Model(&models.Submission{}).
			Where("id = ? AND status <> ?", id, models.SubmissionStatusApproved).
			Updates(fields)
		if result.Error != nil {
			return apperrors.Wrap(apperrors.KindInternal, result.Error, "failed to reject submission")
		}

		if result.RowsAffected == 0 {
			return apperrors.New(apperrors.KindConflict, "already approved (cannot reject)")
		}

		return tx.Where("id = ?", id).First(&updated).Error
	})

	if err != nil {
		return nil, err
	}
	return &updated, nil
}
