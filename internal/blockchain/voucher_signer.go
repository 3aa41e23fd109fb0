package blockchain

import (
	"crypto/ecdsa"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/common/math"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/signer/core/apitypes"

	"infofix-oracle/internal/models"
)

// VoucherSigner produces the oracle's binding signature over a voucher.
// Constructed once at process start and injected, so services can be
// tested against a throwaway key.
type VoucherSigner interface {
	SignVoucher(voucher *models.Voucher) (string, error)
	Address() common.Address
}

// voucherTypes is the EIP-712 type set the TaskManager contract verifies.
var voucherTypes = apitypes.Types{
	"EIP712Domain": {
		{Name: "name", Type: "string"},
		{Name: "version", Type: "string"},
		{Name: "chainId", Type: "uint256"},
		{Name: "verifyingContract", Type: "address"},
	},
	"RewardVoucher": {
		{Name: "taskId", Type: "uint256"},
		{Name: "user", Type: "address"},
		{Name: "action", Type: "uint8"},
		{Name: "amount", Type: "uint96"},
		{Name: "nonce", Type: "uint256"},
		{Name: "deadline", Type: "uint256"},
	},
}

// EIP712Signer signs vouchers with a single long-lived oracle key. The
// domain descriptor pins signatures to one contract deployment and chain.
type EIP712Signer struct {
	key    *ecdsa.PrivateKey
	domain apitypes.TypedDataDomain
}

// NewEIP712Signer parses the oracle private key and fixes the signing domain.
func NewEIP712Signer(privateKeyHex, domainName, domainVersion string, chainID int64, verifyingContract string) (*EIP712Signer, error) {
	key, err := crypto.HexToECDSA(strings.TrimPrefix(privateKeyHex, "0x"))
	if err != nil {
		return nil, fmt.Errorf("invalid oracle private key: %w", err)
	}

	return &EIP712Signer{
		key: key,
		domain: apitypes.TypedDataDomain{
			Name:              domainName,
			Version:           domainVersion,
			ChainId:           math.NewHexOrDecimal256(chainID),
			VerifyingContract: verifyingContract,
		},
	}, nil
}

// Address returns the oracle's signing address, the one the contract
// trusts.
func (s *EIP712Signer) Address() common.Address {
	return crypto.PubkeyToAddress(s.key.PublicKey)
}

// HashVoucher computes the EIP-712 digest of the voucher under the
// signer's domain.
func (s *EIP712Signer) HashVoucher(voucher *models.Voucher) (common.Hash, error) {
	typedData := apitypes.TypedData{
		Types:       voucherTypes,
		PrimaryType: "RewardVoucher",
		Domain:      s.domain,
		Message: apitypes.TypedDataMessage{
			"taskId":   (*math.HexOrDecimal256)(new(big.Int).SetUint64(voucher.TaskID)),
			"user":     voucher.User,
			"action":   math.NewHexOrDecimal256(int64(voucher.Action)),
			"amount":   (*math.HexOrDecimal256)(voucher.Amount),
			"nonce":    (*math.HexOrDecimal256)(voucher.Nonce),
			"deadline": (*math.HexOrDecimal256)(new(big.Int).SetUint64(voucher.Deadline)),
		},
	}

	digest, _, err := apitypes.TypedDataAndHash(typedData)
	if err != nil {
		return common.Hash{}, fmt.Errorf("failed to hash voucher: %w", err)
	}

	return common.BytesToHash(digest), nil
}

// SignVoucher signs the voucher digest with the oracle key.
func (s *EIP712Signer) SignVoucher(voucher *models.Voucher) (string, error) {
	digest, err := s.HashVoucher(voucher)
	if err != nil {
		return "", err
	}

	signature, err := crypto.Sign(digest.Bytes(), s.key)
	if err != nil {
		return "", fmt.Errorf("failed to sign voucher: %w", err)
	}

	signature[64] += 27

	return hexutil.Encode(signature), nil
}

// RecoverSigner recovers the address that signed the voucher under this
// signer's domain.
func (s *EIP712Signer) RecoverSigner(voucher *models.Voucher, signatureHex string) (common.Address, error) {
	digest, err := s.HashVoucher(voucher)
	if err != nil {
		return common.Address{}, err
	}

	signature, err := hexutil.Decode(signatureHex)
	if err != nil {
		return common.Address{}, fmt.Errorf("invalid signature: %w", err)
	}

	if len(signature) != 65 {
		return common.Address{}, fmt.Errorf("invalid signature length")
	}

	if signature[64] >= 27 {
		signature[64] -= 27
	}

	pubKeyRaw, err := crypto.Ecrecover(digest.Bytes(), signature)
	if err != nil {
		return common.Address{}, fmt.Errorf("failed to recover public key: %w", err)
	}

	pubKey, err := crypto.UnmarshalPubkey(pubKeyRaw)
	if err != nil {
		return common.Address{}, fmt.Errorf("failed to unmarshal public key: %w", err)
	}

	return crypto.PubkeyToAddress(*pubKey), nil
}
