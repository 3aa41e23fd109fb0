package models

import (
	"time"

	"github.com/google/uuid"
)

type SubmissionStatus string

const (
	SubmissionStatusPending  SubmissionStatus = "pending"
	SubmissionStatusApproved SubmissionStatus = "approved"
	SubmissionStatusRejected SubmissionStatus = "rejected"
)

// SubmissionAction mirrors the on-chain action codes.
type SubmissionAction uint8

const (
	ActionFollow SubmissionAction = 0
	ActionLike   SubmissionAction = 1
	ActionRecast SubmissionAction = 2
)

// Valid reports whether a is one of the known action codes.
func (a SubmissionAction) Valid() bool {
	return a <= ActionRecast
}

// Submission is a user's claim of having performed an off-chain social
// action, pending review by the task creator. The review fields
// (AmountWei, Nonce, Deadline, Signature) are only ever written together,
// by the approve transition.
type Submission struct {
	ID         uuid.UUID        `gorm:"type:uuid;primaryKey" json:"id"`
	TaskID     uint64           `gorm:"not null;index" json:"taskId"`
	User       string           `gorm:"column:user_address;size:42;not null;index" json:"user"`
	Action     SubmissionAction `gorm:"not null" json:"action"`
	ProofURL   string           `gorm:"size:500;not null" json:"proofUrl"`
	Note       *string          `gorm:"size:1000" json:"note"`
	Status     SubmissionStatus `gorm:"size:20;not null;default:pending;index" json:"status"`
	ApprovedAt *time.Time       `json:"approvedAt"`
	ApprovedBy *string          `gorm:"size:42" json:"approvedBy"`
	AmountWei  *string          `gorm:"size:80" json:"amountWei"`
	Nonce      *string          `gorm:"size:80" json:"nonce"`
	Deadline   *string          `gorm:"size:80" json:"deadline"`
	Signature  *string          `gorm:"size:200" json:"signature"`
	CreatedAt  time.Time        `gorm:"default:CURRENT_TIMESTAMP;index" json:"createdAt"`
	UpdatedAt  time.Time        `gorm:"default:CURRENT_TIMESTAMP" json:"updatedAt"`
}

func (Submission) TableName() string {
	return "submissions"
}

// ApprovalNonce records a consumed approve-request nonce so a captured
// (signedMessage, nonce) pair cannot be replayed against the same
// submission. Consumed inside the approve transaction.
type ApprovalNonce struct {
	ID           uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	SubmissionID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_submission_nonce" json:"submission_id"`
	Nonce        string    `gorm:"size:80;not null;uniqueIndex:idx_submission_nonce" json:"nonce"`
	CreatedAt    time.Time `gorm:"default:CURRENT_TIMESTAMP" json:"created_at"`
}

func (ApprovalNonce) TableName() string {
	return "approval_nonces"
}

// CreateSubmissionRequest is the submit-proof payload.
type CreateSubmissionRequest struct {
	TaskID   *uint64 `json:"taskId" binding:"required"`
	User     string  `json:"user" binding:"required"`
	Action   *uint8  `json:"action" binding:"required"`
	ProofURL string  `json:"proofUrl" binding:"required"`
	Note     *string `json:"note"`
}

// ApproveSubmissionRequest is posted by the task creator. SignedMessage is
// an EIP-191 personal-sign over "approve:<submissionId>:<nonce>".
type ApproveSubmissionRequest struct {
	Approver      string  `json:"approver" binding:"required"`
	SignedMessage string  `json:"signedMessage" binding:"required"`
	Nonce         string  `json:"nonce" binding:"required"`
	AmountWei     *string `json:"amountWei"`
	TTL           *int64  `json:"ttl"`
}

// RejectSubmissionRequest carries an optional informational approver and
// a human-readable reason.
type RejectSubmissionRequest struct {
	Approver *string `json:"approver"`
	Reason   *string `json:"reason"`
}

// ListSubmissionsFilter narrows the submission listing.
type ListSubmissionsFilter struct {
	TaskID *uint64
	User   *string
	Status *SubmissionStatus
	Limit  int
}
