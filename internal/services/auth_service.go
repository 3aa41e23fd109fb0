package services

import (
	"fmt"
	"log"
	"strings"
	"time"

	"infofix-oracle/internal/apperrors"
	"infofix-oracle/internal/auth"
	"infofix-oracle/internal/blockchain"
)

// loginChallengeWindow bounds how stale a signed login message may be.
const loginChallengeWindow = 5 * time.Minute

// AuthService handles wallet-signature login for submitter sessions.
type AuthService struct{}

func NewAuthService() *AuthService {
	return &AuthService{}
}

// WalletLogin verifies an EIP-191 signature over "login:<address>:<timestamp>"
// and issues a session token for the wallet. The timestamp keeps captured
// login signatures from being replayed later.
func (s *AuthService) WalletLogin(address string, timestamp int64, signature string) (string, string, error) {
	normalized, err := normalizeAddress(address)
	if err != nil {
		return "", "", err
	}

	age := time.Since(time.Unix(timestamp, 0))
	if age > loginChallengeWindow || age < -loginChallengeWindow {
		return "", "", apperrors.New(apperrors.KindValidation, "login challenge expired")
	}

	message := fmt.Sprintf("login:%s:%d", normalized, timestamp)
	recovered, err := blockchain.RecoverPersonalSigner(message, signature)
	if err != nil {
		return "", "", apperrors.Wrap(apperrors.KindBadSignature, err, "bad signature")
	}
	if !strings.EqualFold(recovered.Hex(), normalized) {
		return "", "", apperrors.New(apperrors.KindBadSignature, "signature does not match address")
	}

	token, err := auth.GenerateToken(normalized)
	if err != nil {
		return "", "", apperrors.Wrap(apperrors.KindInternal, err, "failed to issue session token")
	}

	log.Printf("Wallet logged in: %s", normalized)
	return token, normalized, nil
}
