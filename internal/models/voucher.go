package models

import (
	"math/big"
)

// Voucher is the structured claim authorization the oracle signs. The
// external TaskManager contract verifies the EIP-712 signature over these
// exact fields before releasing funds.
type Voucher struct {
	TaskID   uint64
	User     string
	Action   SubmissionAction
	Amount   *big.Int
	Nonce    *big.Int
	Deadline uint64
}

// VoucherPayload is the wire form of a voucher; big integers travel as
// decimal strings.
type VoucherPayload struct {
	TaskID        uint64 `json:"taskId"`
	User          string `json:"user"`
	Action        uint8  `json:"action"`
	Amount        string `json:"amount"`
	AmountDisplay string `json:"amountDisplay,omitempty"`
	Nonce         string `json:"nonce"`
	Deadline      string `json:"deadline"`
}

// SignedVoucherResponse pairs a voucher with the oracle signature. The
// pair is immutable once created.
type SignedVoucherResponse struct {
	Voucher   VoucherPayload `json:"voucher"`
	Signature string         `json:"sig"`
}

// TaskResponse is the read-only on-chain task snapshot exposed to review
// tooling.
type TaskResponse struct {
	TaskID                 uint64 `json:"taskId"`
	Creator                string `json:"creator"`
	RewardPerFollow        string `json:"rewardPerFollow"`
	RewardPerLike          string `json:"rewardPerLike"`
	RewardPerRecast        string `json:"rewardPerRecast"`
	RewardPerFollowDisplay string `json:"rewardPerFollowDisplay"`
	RewardPerLikeDisplay   string `json:"rewardPerLikeDisplay"`
	RewardPerRecastDisplay string `json:"rewardPerRecastDisplay"`
	EndTime                uint64 `json:"endTime"`
	Paused                 bool   `json:"paused"`
}
