package blockchain

import (
	"encoding/hex"
	"math/big"
	"strings"
	"testing"

	"github.com/ethereum/go-ethereum/crypto"

	"infofix-oracle/internal/models"
)

func newTestSigner(t *testing.T) *EIP712Signer {
	t.Helper()
	key, err := crypto.GenerateKey()
	if err != nil {
		t.Fatalf("failed to generate key: %v", err)
	}

	signer, err := NewEIP712Signer(
		hex.EncodeToString(crypto.FromECDSA(key)),
		"InfoFix", "1", 10143,
		"0x1111111111111111111111111111111111111111",
	)
	if err != nil {
		t.Fatalf("NewEIP712Signer failed: %v", err)
	}
	return signer
}

func sampleVoucher() *models.Voucher {
	amount, _ := new(big.Int).SetString("2000000000000000000", 10)
	return &models.Voucher{
		TaskID:   3,
		User:     "0xabcabcabcabcabcabcabcabcabcabcabcabcabca",
		Action:   models.ActionLike,
		Amount:   amount,
		Nonce:    big.NewInt(1700000000123456),
		Deadline: 1700000900,
	}
}

func TestSignVoucherRecoversOracleAddress(t *testing.T) {
	signer := newTestSigner(t)
	voucher := sampleVoucher()

	signature, err := signer.SignVoucher(voucher)
	if err != nil {
		t.Fatalf("SignVoucher failed: %v", err)
	}
	if !strings.HasPrefix(signature, "0x") || len(signature) != 2+65*2 {
		t.Fatalf("unexpected signature encoding: %s", signature)
	}

	recovered, err := signer.RecoverSigner(voucher, signature)
	if err != nil {
		t.Fatalf("RecoverSigner failed: %v", err)
	}
	if recovered != signer.Address() {
		t.Errorf("recovered %s, want oracle address %s", recovered.Hex(), signer.Address().Hex())
	}
}

func TestSignVoucherIsDeterministicPerVoucher(t *testing.T) {
	signer := newTestSigner(t)
	voucher := sampleVoucher()

	first, err := signer.SignVoucher(voucher)
	if err != nil {
		t.Fatalf("SignVoucher failed: %v", err)
	}
	second, err := signer.SignVoucher(voucher)
	if err != nil {
		t.Fatalf("SignVoucher failed: %v", err)
	}
	if first != second {
		t.Error("same voucher must produce the same signature")
	}
}

func TestVoucherHashBindsEveryField(t *testing.T) {
	signer := newTestSigner(t)
	base := sampleVoucher()

	baseHash, err := signer.HashVoucher(base)
	if err != nil {
		t.Fatalf("HashVoucher failed: %v", err)
	}

	mutations := map[string]*models.Voucher{
		"taskId":   {TaskID: 4, User: base.User, Action: base.Action, Amount: base.Amount, Nonce: base.Nonce, Deadline: base.Deadline},
		"user":     {TaskID: base.TaskID, User: "0x2222222222222222222222222222222222222222", Action: base.Action, Amount: base.Amount, Nonce: base.Nonce, Deadline: base.Deadline},
		"action":   {TaskID: base.TaskID, User: base.User, Action: models.ActionRecast, Amount: base.Amount, Nonce: base.Nonce, Deadline: base.Deadline},
		"amount":   {TaskID: base.TaskID, User: base.User, Action: base.Action, Amount: big.NewInt(1), Nonce: base.Nonce, Deadline: base.Deadline},
		"nonce":    {TaskID: base.TaskID, User: base.User, Action: base.Action, Amount: base.Amount, Nonce: big.NewInt(42), Deadline: base.Deadline},
		"deadline": {TaskID: base.TaskID, User: base.User, Action: base.Action, Amount: base.Amount, Nonce: base.Nonce, Deadline: base.Deadline + 1},
	}

	for field, mutated := range mutations {
		hash, err := signer.HashVoucher(mutated)
		if err != nil {
			t.Fatalf("HashVoucher(%s) failed: %v", field, err)
		}
		if hash == baseHash {
			t.Errorf("changing %s must change the digest", field)
		}
	}
}

func TestDomainSeparation(t *testing.T) {
	key, err := crypto.GenerateKey()
	if err != nil {
		t.Fatalf("failed to generate key: %v", err)
	}
	keyHex := hex.EncodeToString(crypto.FromECDSA(key))

	mainnet, err := NewEIP712Signer(keyHex, "InfoFix", "1", 1, "0x1111111111111111111111111111111111111111")
	if err != nil {
		t.Fatalf("NewEIP712Signer failed: %v", err)
	}
	testnet, err := NewEIP712Signer(keyHex, "InfoFix", "1", 10143, "0x1111111111111111111111111111111111111111")
	if err != nil {
		t.Fatalf("NewEIP712Signer failed: %v", err)
	}
	otherContract, err := NewEIP712Signer(keyHex, "InfoFix", "1", 10143, "0x3333333333333333333333333333333333333333")
	if err != nil {
		t.Fatalf("NewEIP712Signer failed: %v", err)
	}

	voucher := sampleVoucher()
	h1, _ := mainnet.HashVoucher(voucher)
	h2, _ := testnet.HashVoucher(voucher)
	h3, _ := otherContract.HashVoucher(voucher)

	if h1 == h2 {
		t.Error("digests must differ across chain ids")
	}
	if h2 == h3 {
		t.Error("digests must differ across verifying contracts")
	}
}

func TestPersonalSignRoundTrip(t *testing.T) {
	key, err := crypto.GenerateKey()
	if err != nil {
		t.Fatalf("failed to generate key: %v", err)
	}
	expected := crypto.PubkeyToAddress(key.PublicKey)

	message := "approve:4f5c6f9e-0000-0000-0000-000000000000:171234"
	signature, err := SignPersonal(message, key)
	if err != nil {
		t.Fatalf("SignPersonal failed: %v", err)
	}

	recovered, err := RecoverPersonalSigner(message, signature)
	if err != nil {
		t.Fatalf("RecoverPersonalSigner failed: %v", err)
	}
	if recovered != expected {
		t.Errorf("recovered %s, want %s", recovered.Hex(), expected.Hex())
	}

	// A different message must not recover the same signer.
	other, err := RecoverPersonalSigner("approve:other:171234", signature)
	if err == nil && other == expected {
		t.Error("signature must be bound to the exact message")
	}
}

func TestRecoverPersonalSignerRejectsGarbage(t *testing.T) {
	if _, err := RecoverPersonalSigner("msg", "not-hex"); err == nil {
		t.Error("expected error for non-hex signature")
	}
	if _, err := RecoverPersonalSigner("msg", "0x0badc0de"); err == nil {
		t.Error("expected error for truncated signature")
	}
}
