package services

import (
	"context"

	"github.com/shopspring/decimal"

	"infofix-oracle/internal/apperrors"
	"infofix-oracle/internal/models"
	"infofix-oracle/internal/repository"
)

// VoucherService serves the claim read path: it returns stored vouchers
// verbatim and never signs anything.
type VoucherService struct {
	repo *repository.SubmissionRepository
}

func NewVoucherService(repo *repository.SubmissionRepository) *VoucherService {
	return &VoucherService{repo: repo}
}

// Fetch returns the stored voucher for the latest approved submission of
// the (taskId, user, action) tuple. No re-signing, no amount recomputation:
// repeated fetches return the identical voucher and signature.
func (s *VoucherService) Fetch(ctx context.Context, taskID uint64, user string, action uint8) (*models.SignedVoucherResponse, error) {
	normalized, err := normalizeAddress(user)
	if err != nil {
		return nil, err
	}
	if !models.SubmissionAction(action).Valid() {
		return nil, apperrors.New(apperrors.KindValidation, "action must be 0, 1 or 2")
	}

	approved, err := s.repo.FindLatestApproved(ctx, taskID, normalized, models.SubmissionAction(action))
	if err != nil {
		return nil, err
	}
	if approved == nil {
		return nil, apperrors.New(apperrors.KindNotFound, "no approved submission (awaiting manual verification)")
	}

	return voucherResponseFrom(approved)
}

// voucherResponseFrom rebuilds the wire voucher from an approved record.
// An approved submission always carries all four voucher fields; a record
// violating that invariant is reported, not papered over.
func voucherResponseFrom(submission *models.Submission) (*models.SignedVoucherResponse, error) {
	if submission.Signature == nil || submission.AmountWei == nil || submission.Nonce == nil || submission.Deadline == nil {
		return nil, apperrors.New(apperrors.KindInternal, "approved submission %s is missing voucher fields", submission.ID)
	}

	return &models.SignedVoucherResponse{
		Voucher: models.VoucherPayload{
			TaskID:        submission.TaskID,
			User:          submission.User,
			Action:        uint8(submission.Action),
			Amount:        *submission.AmountWei,
			AmountDisplay: weiToDisplay(*submission.AmountWei),
			Nonce:         *submission.Nonce,
			Deadline:      *submission.Deadline,
		},
		Signature: *submission.Signature,
	}, nil
}

// weiToDisplay renders a wei amount as a whole-token decimal string for
// review tooling. Display only; the wire amount stays in wei.
func weiToDisplay(wei string) string {
	amount, err := decimal.NewFromString(wei)
	if err != nil {
		return ""
	}
	return amount.Shift(-18).String()
}
