package repository

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"infofix-oracle/internal/apperrors"
	"infofix-oracle/internal/models"
)

func setupTestDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open("file::memory:?cache=shared"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("failed to connect database: %v", err)
	}

	err = db.AutoMigrate(
		&models.Submission{},
		&models.ApprovalNonce{},
	)
	if err != nil {
		t.Fatalf("failed to migrate database: %v", err)
	}

	// Shared in-memory DB persists across tests; start clean.
	db.Exec("DELETE FROM submissions")
	db.Exec("DELETE FROM approval_nonces")

	return db
}

func newPendingSubmission(t *testing.T, repo *SubmissionRepository, taskID uint64, user string) *models.Submission {
	t.Helper()
	sub := &models.Submission{
		TaskID:   taskID,
		User:     user,
		Action:   models.ActionLike,
		ProofURL: "https://warpcast.com/proof/1",
	}
	if err := repo.Create(context.Background(), sub); err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	return sub
}

func TestCreateSetsPendingStatus(t *testing.T) {
	repo := NewSubmissionRepository(setupTestDB(t))

	sub := newPendingSubmission(t, repo, 3, "0xaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa")

	if sub.Status != models.SubmissionStatusPending {
		t.Errorf("expected status pending, got %s", sub.Status)
	}
	if sub.ID == uuid.Nil {
		t.Error("expected an assigned id")
	}

	loaded, err := repo.GetByID(context.Background(), sub.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if loaded.Signature != nil || loaded.AmountWei != nil {
		t.Error("pending submission must not carry voucher fields")
	}
}

func TestGetByIDNotFound(t *testing.T) {
	repo := NewSubmissionRepository(setupTestDB(t))

	_, err := repo.GetByID(context.Background(), uuid.New())
	if !apperrors.Is(err, apperrors.KindNotFound) {
		t.Errorf("expected not_found, got %v", err)
	}
}

func TestTransitionApprove(t *testing.T) {
	repo := NewSubmissionRepository(setupTestDB(t))
	sub := newPendingSubmission(t, repo, 3, "0xaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa")

	approver := "0xbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb"
	updated, err := repo.TransitionApprove(context.Background(), sub.ID, approver,
		"171234", "2000000000000000000", "1700000000123456", "1700000900", "0xsig")
	if err != nil {
		t.Fatalf("TransitionApprove failed: %v", err)
	}

	if updated.Status != models.SubmissionStatusApproved {
		t.Errorf("expected approved, got %s", updated.Status)
	}
	if updated.Signature == nil || updated.AmountWei == nil || updated.Nonce == nil || updated.Deadline == nil {
		t.Fatal("approved submission must carry all voucher fields")
	}
	if *updated.AmountWei != "2000000000000000000" {
		t.Errorf("unexpected amount %s", *updated.AmountWei)
	}
	if updated.ApprovedBy == nil || *updated.ApprovedBy != approver {
		t.Error("expected approvedBy to record the verified approver")
	}
}

func TestDoubleApproveConflicts(t *testing.T) {
	repo := NewSubmissionRepository(setupTestDB(t))
	sub := newPendingSubmission(t, repo, 3, "0xaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa")

	_, err := repo.TransitionApprove(context.Background(), sub.ID, "0xbb", "n1", "100", "1", "99", "0xsig1")
	if err != nil {
		t.Fatalf("first approve failed: %v", err)
	}

	_, err = repo.TransitionApprove(context.Background(), sub.ID, "0xbb", "n2", "200", "2", "98", "0xsig2")
	if !apperrors.Is(err, apperrors.KindConflict) {
		t.Fatalf("expected conflict on second approve, got %v", err)
	}

	// The first voucher must be untouched.
	loaded, err := repo.GetByID(context.Background(), sub.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if *loaded.Signature != "0xsig1" || *loaded.AmountWei != "100" {
		t.Error("losing approve must not overwrite the stored voucher")
	}
}

func TestApproveReplayNonceConflicts(t *testing.T) {
	repo := NewSubmissionRepository(setupTestDB(t))
	sub := newPendingSubmission(t, repo, 3, "0xaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa")
	other := newPendingSubmission(t, repo, 3, "0xcccccccccccccccccccccccccccccccccccccccc")

	_, err := repo.TransitionApprove(context.Background(), sub.ID, "0xbb", "nonce-1", "100", "1", "99", "0xsig")
	if err != nil {
		t.Fatalf("approve failed: %v", err)
	}

	// Same request nonce against a different submission is fine.
	_, err = repo.TransitionApprove(context.Background(), other.ID, "0xbb", "nonce-1", "100", "2", "99", "0xsig")
	if err != nil {
		t.Fatalf("nonce scoped per submission, approve failed: %v", err)
	}

	// Replaying against the same submission is rejected before the status
	// check even runs.
	_, err = repo.TransitionApprove(context.Background(), sub.ID, "0xbb", "nonce-1", "100", "3", "99", "0xsig")
	if !apperrors.Is(err, apperrors.KindConflict) {
		t.Fatalf("expected conflict on nonce replay, got %v", err)
	}
}

func TestTransitionRejectStates(t *testing.T) {
	repo := NewSubmissionRepository(setupTestDB(t))
	sub := newPendingSubmission(t, repo, 3, "0xaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa")

	reason := "screenshot does not show the follow"
	rejected, err := repo.TransitionReject(context.Background(), sub.ID, nil, &reason)
	if err != nil {
		t.Fatalf("TransitionReject failed: %v", err)
	}
	if rejected.Status != models.SubmissionStatusRejected {
		t.Errorf("expected rejected, got %s", rejected.Status)
	}
	if rejected.Note == nil || *rejected.Note != "[REJECTED] screenshot does not show the follow" {
		t.Errorf("expected prefixed rejection note, got %v", rejected.Note)
	}

	// Re-rejecting is idempotent.
	if _, err := repo.TransitionReject(context.Background(), sub.ID, nil, nil); err != nil {
		t.Fatalf("idempotent re-reject failed: %v", err)
	}

	// A rejected submission may still be approved.
	approved, err := repo.TransitionApprove(context.Background(), sub.ID, "0xbb", "n1", "100", "1", "99", "0xsig")
	if err != nil {
		t.Fatalf("rejected->approved failed: %v", err)
	}
	if approved.Status != models.SubmissionStatusApproved {
		t.Errorf("expected approved, got %s", approved.Status)
	}

	// Approval is terminal: rejecting now conflicts and leaves the voucher.
	_, err = repo.TransitionReject(context.Background(), sub.ID, nil, nil)
	if !apperrors.Is(err, apperrors.KindConflict) {
		t.Fatalf("expected conflict rejecting approved submission, got %v", err)
	}
	loaded, _ := repo.GetByID(context.Background(), sub.ID)
	if loaded.Signature == nil || *loaded.Signature != "0xsig" {
		t.Error("failed reject must leave the stored voucher untouched")
	}
}

func TestRejectNotFound(t *testing.T) {
	repo := NewSubmissionRepository(setupTestDB(t))

	_, err := repo.TransitionReject(context.Background(), uuid.New(), nil, nil)
	if !apperrors.Is(err, apperrors.KindNotFound) {
		t.Errorf("expected not_found, got %v", err)
	}
}

func TestListFiltersAndClamp(t *testing.T) {
	repo := NewSubmissionRepository(setupTestDB(t))
	userA := "0xaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa"
	userB := "0xbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb"

	for i := 0; i < 5; i++ {
		newPendingSubmission(t, repo, 1, userA)
	}
	subB := newPendingSubmission(t, repo, 2, userB)
	if _, err := repo.TransitionApprove(context.Background(), subB.ID, "0xcc", "n", "100", "1", "99", "0xsig"); err != nil {
		t.Fatalf("approve failed: %v", err)
	}

	taskOne := uint64(1)
	byTask, err := repo.List(context.Background(), models.ListSubmissionsFilter{TaskID: &taskOne})
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(byTask) != 5 {
		t.Errorf("expected 5 submissions for task 1, got %d", len(byTask))
	}

	status := models.SubmissionStatusApproved
	byStatus, err := repo.List(context.Background(), models.ListSubmissionsFilter{Status: &status})
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(byStatus) != 1 {
		t.Errorf("expected 1 approved submission, got %d", len(byStatus))
	}

	clamped, err := repo.List(context.Background(), models.ListSubmissionsFilter{TaskID: &taskOne, Limit: 1_000_000})
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(clamped) != 5 {
		t.Errorf("oversized limit must still return results, got %d", len(clamped))
	}

	limited, err := repo.List(context.Background(), models.ListSubmissionsFilter{TaskID: &taskOne, Limit: 2})
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(limited) != 2 {
		t.Errorf("expected limit 2 to apply, got %d", len(limited))
	}
}

func TestFindLatestApproved(t *testing.T) {
	repo := NewSubmissionRepository(setupTestDB(t))
	user := "0xaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa"

	none, err := repo.FindLatestApproved(context.Background(), 7, user, models.ActionLike)
	if err != nil {
		t.Fatalf("FindLatestApproved failed: %v", err)
	}
	if none != nil {
		t.Error("expected nil for tuple with no approvals")
	}

	first := newPendingSubmission(t, repo, 7, user)
	if _, err := repo.TransitionApprove(context.Background(), first.ID, "0xbb", "n1", "100", "1", "99", "0xsig-old"); err != nil {
		t.Fatalf("approve failed: %v", err)
	}

	time.Sleep(10 * time.Millisecond)

	second := newPendingSubmission(t, repo, 7, user)
	if _, err := repo.TransitionApprove(context.Background(), second.ID, "0xbb", "n2", "200", "2", "98", "0xsig-new"); err != nil {
		t.Fatalf("approve failed: %v", err)
	}

	latest, err := repo.FindLatestApproved(context.Background(), 7, user, models.ActionLike)
	if err != nil {
		t.Fatalf("FindLatestApproved failed: %v", err)
	}
	if latest == nil || *latest.Signature != "0xsig-new" {
		t.Error("expected the most recently approved record")
	}
}
