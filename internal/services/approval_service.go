package services

import (
	"context"
	"fmt"
	"log"
	"math/big"
	"math/rand"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"infofix-oracle/internal/apperrors"
	"infofix-oracle/internal/blockchain"
	"infofix-oracle/internal/models"
	"infofix-oracle/internal/repository"
)

const (
	minVoucherTTLSeconds     = 60
	maxVoucherTTLSeconds     = 3600
	defaultVoucherTTLSeconds = 900
)

// TaskGetter is the read-only chain access the approval flow depends on.
type TaskGetter interface {
	GetTask(ctx context.Context, taskID uint64) (*blockchain.TaskInfo, error)
}

// ApprovalService turns a creator's off-chain review decision into a signed,
// replay-resistant, time-bounded voucher.
type ApprovalService struct {
	repo   *repository.SubmissionRepository
	tasks  TaskGetter
	signer blockchain.VoucherSigner
}

func NewApprovalService(repo *repository.SubmissionRepository, tasks TaskGetter, signer blockchain.VoucherSigner) *ApprovalService {
	return &ApprovalService{repo: repo, tasks: tasks, signer: signer}
}

// authenticate proves that the approval request was signed by the on-chain
// creator of the submission's task. Side-effect free and repeatable.
func (s *ApprovalService) authenticate(ctx context.Context, submission *models.Submission, approver, signedMessage, nonce string) (string, *blockchain.TaskInfo, error) {
	normalized, err := normalizeAddress(approver)
	if err != nil {
		return "", nil, err
	}

	message := fmt.Sprintf("approve:%s:%s", submission.ID, nonce)
	recovered, err := blockchain.RecoverPersonalSigner(message, signedMessage)
	if err != nil {
		return "", nil, apperrors.Wrap(apperrors.KindBadSignature, err, "bad signature")
	}
	if !strings.EqualFold(recovered.Hex(), normalized) {
		return "", nil, apperrors.New(apperrors.KindBadSignature, "signature does not match approver")
	}

	task, err := s.tasks.GetTask(ctx, submission.TaskID)
	if err != nil {
		return "", nil, err
	}
	if !strings.EqualFold(task.Creator.Hex(), normalized) {
		return "", nil, apperrors.New(apperrors.KindForbidden, "not task creator")
	}

	return normalized, task, nil
}

// Approve authenticates the approver, computes the reward, signs the voucher
// and persists the transition. The voucher is only committed together with
// the status change; a failure anywhere leaves the submission untouched.
func (s *ApprovalService) Approve(ctx context.Context, id uuid.UUID, req *models.ApproveSubmissionRequest) (*models.SignedVoucherResponse, error) {
	submission, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	// Fast-path check only; the store's conditional update is the real guard.
	if submission.Status == models.SubmissionStatusApproved {
		return nil, apperrors.New(apperrors.KindConflict, "submission already approved")
	}

	approver, task, err := s.authenticate(ctx, submission, req.Approver, req.SignedMessage, req.Nonce)
	if err != nil {
		return nil, err
	}

	amount, err := resolveAmount(req.AmountWei, task, submission.Action)
	if err != nil {
		return nil, err
	}

	voucher := &models.Voucher{
		TaskID:   submission.TaskID,
		User:     submission.User,
		Action:   submission.Action,
		Amount:   amount,
		Nonce:    newVoucherNonce(),
		Deadline: uint64(time.Now().Unix() + clampTTL(req.TTL)),
	}

	signature, err := s.signer.SignVoucher(voucher)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.KindSigning, err, "oracle signing failed")
	}

	updated, err := s.repo.TransitionApprove(ctx, id, approver, req.Nonce,
		voucher.Amount.String(),
		voucher.Nonce.String(),
		strconv.FormatUint(voucher.Deadline, 10),
		signature,
	)
	if err != nil {
		return nil, err
	}

	log.Printf("Submission %s approved by %s: task=%d action=%d amount=%s deadline=%d",
		id, approver, voucher.TaskID, voucher.Action, voucher.Amount, voucher.Deadline)

	return voucherResponseFrom(updated)
}

// Reject transitions a submission to rejected with an optional reason.
func (s *ApprovalService) Reject(ctx context.Context, id uuid.UUID, req *models.RejectSubmissionRequest) (*models.Submission, error) {
	var approver *string
	if req.Approver != nil && *req.Approver != "" {
		normalized, err := normalizeAddress(*req.Approver)
		if err != nil {
			return nil, err
		}
		approver = &normalized
	}

	updated, err := s.repo.TransitionReject(ctx, id, approver, req.Reason)
	if err != nil {
		return nil, err
	}

	log.Printf("Submission %s rejected", id)
	return updated, nil
}

// resolveAmount uses the explicit override verbatim when supplied, otherwise
// the task's per-action reward rate.
func resolveAmount(override *string, task *blockchain.TaskInfo, action models.SubmissionAction) (*big.Int, error) {
	if override != nil && *override != "" {
		amount, ok := new(big.Int).SetString(*override, 10)
		if !ok || amount.Sign() < 0 {
			return nil, apperrors.New(apperrors.KindValidation, "amountWei must be a non-negative integer")
		}
		return amount, nil
	}

	amount := task.RewardFor(uint8(action))
	if amount == nil || amount.Sign() <= 0 {
		return nil, apperrors.New(apperrors.KindZeroReward, "reward is zero; supply an explicit amountWei")
	}
	return new(big.Int).Set(amount), nil
}

// clampTTL bounds the voucher validity window to [60s, 1h], defaulting to
// 15 minutes.
func clampTTL(requested *int64) int64 {
	ttl := int64(defaultVoucherTTLSeconds)
	if requested != nil {
		ttl = *requested
	}
	if ttl < minVoucherTTLSeconds {
		ttl = minVoucherTTLSeconds
	}
	if ttl > maxVoucherTTLSeconds {
		ttl = maxVoucherTTLSeconds
	}
	return ttl
}

// newVoucherNonce builds a monotonically-increasing-enough nonce:
// unix seconds scaled by 1e6 plus a random sub-second component.
func newVoucherNonce() *big.Int {
	nonce := new(big.Int).Mul(big.NewInt(time.Now().Unix()), big.NewInt(1_000_000))
	return nonce.Add(nonce, big.NewInt(rand.Int63n(1_000_000)))
}
