package services

import (
	"context"
	"regexp"
	"strings"

	"github.com/google/uuid"

	"infofix-oracle/internal/apperrors"
	"infofix-oracle/internal/models"
	"infofix-oracle/internal/repository"
)

var addressPattern = regexp.MustCompile(`^(0x)?[0-9a-fA-F]{40}$`)

// normalizeAddress validates a 40-hex-digit account address and returns it
// lowercased with the 0x prefix, the form used for storage and comparison.
func normalizeAddress(raw string) (string, error) {
	if !addressPattern.MatchString(raw) {
		return "", apperrors.New(apperrors.KindValidation, "invalid account address %q", raw)
	}
	addr := strings.ToLower(raw)
	if !strings.HasPrefix(addr, "0x") {
		addr = "0x" + addr
	}
	return addr, nil
}

// SubmissionService handles proof submission and listing
type SubmissionService struct {
	repo *repository.SubmissionRepository
}

func NewSubmissionService(repo *repository.SubmissionRepository) *SubmissionService {
	return &SubmissionService{repo: repo}
}

// Create validates a proof submission and stores it as pending.
func (s *SubmissionService) Create(ctx context.Context, req *models.CreateSubmissionRequest) (*models.Submission, error) {
	user, err := normalizeAddress(req.User)
	if err != nil {
		return nil, err
	}

	if req.Action == nil || !models.SubmissionAction(*req.Action).Valid() {
		return nil, apperrors.New(apperrors.KindValidation, "action must be 0 (follow), 1 (like) or 2 (recast)")
	}

	if strings.TrimSpace(req.ProofURL) == "" {
		return nil, apperrors.New(apperrors.KindValidation, "proofUrl is required")
	}

	submission := &models.Submission{
		TaskID:   *req.TaskID,
		User:     user,
		Action:   models.SubmissionAction(*req.Action),
		ProofURL: req.ProofURL,
		Note:     req.Note,
	}

	if err := s.repo.Create(ctx, submission); err != nil {
		return nil, err
	}
	return submission, nil
}

// Get retrieves a submission by ID.
func (s *SubmissionService) Get(ctx context.Context, id uuid.UUID) (*models.Submission, error) {
	return s.repo.GetByID(ctx, id)
}

// List returns submissions matching the filter, newest first.
func (s *SubmissionService) List(ctx context.Context, filter models.ListSubmissionsFilter) ([]*models.Submission, error) {
	if filter.User != nil {
		user, err := normalizeAddress(*filter.User)
		if err != nil {
			return nil, err
		}
		filter.User = &user
	}

	if filter.Status != nil {
		switch *filter.Status {
		case models.SubmissionStatusPending, models.SubmissionStatusApproved, models.SubmissionStatusRejected:
		default:
			return nil, apperrors.New(apperrors.KindValidation, "invalid status %q", *filter.Status)
		}
	}

	return s.repo.List(ctx, filter)
}

// ListByUser returns a wallet's own submissions, newest first.
func (s *SubmissionService) ListByUser(ctx context.Context, user string, limit int) ([]*models.Submission, error) {
	normalized, err := normalizeAddress(user)
	if err != nil {
		return nil, err
	}
	return s.repo.List(ctx, models.ListSubmissionsFilter{User: &normalized, Limit: limit})
}
