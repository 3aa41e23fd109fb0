package blockchain

import (
	"crypto/ecdsa"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
)

// SignPersonal signs a message with an Ethereum personal-message signature:
// keccak256("\x19Ethereum Signed Message:\n" + len(message) + message)
func SignPersonal(message string, key *ecdsa.PrivateKey) (string, error) {
	messageHash := crypto.Keccak256Hash([]byte(fmt.Sprintf("\x19Ethereum Signed Message:\n%d%s", len(message), message)))

	signature, err := crypto.Sign(messageHash.Bytes(), key)
	if err != nil {
		return "", fmt.Errorf("failed to sign message: %w", err)
	}

	// Add recovery id to the signature (v = sig[64] + 27)
	signature[64] += 27

	return hexutil.Encode(signature), nil
}

// RecoverPersonalSigner recovers the address that produced a personal-message
// signature over message.
func RecoverPersonalSigner(message string, signatureHex string) (common.Address, error) {
	signature, err := hexutil.Decode(signatureHex)
	if err != nil {
		return common.Address{}, fmt.Errorf("invalid signature: %w", err)
	}

	if len(signature) != 65 {
		return common.Address{}, fmt.Errorf("invalid signature length")
	}

	// Ethereum's signature recovery ID adjustment
	if signature[64] >= 27 {
		signature[64] -= 27
	}

	messageHash := crypto.Keccak256Hash([]byte(fmt.Sprintf("\x19Ethereum Signed Message:\n%d%s", len(message), message)))

	pubKeyRaw, err := crypto.Ecrecover(messageHash.Bytes(), signature)
	if err != nil {
		return common.Address{}, fmt.Errorf("failed to recover public key: %w", err)
	}

	pubKey, err := crypto.UnmarshalPubkey(pubKeyRaw)
	if err != nil {
		return common.Address{}, fmt.Errorf("failed to unmarshal public key: %w", err)
	}

	return crypto.PubkeyToAddress(*pubKey), nil
}
