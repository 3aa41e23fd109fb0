package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"infofix-oracle/internal/auth"
	"infofix-oracle/internal/models"
	"infofix-oracle/internal/services"
)

type SubmissionHandler struct {
	submissionService *services.SubmissionService
	approvalService   *services.ApprovalService
}

func NewSubmissionHandler(submissionService *services.SubmissionService, approvalService *services.ApprovalService) *SubmissionHandler {
	return &SubmissionHandler{
		submissionService: submissionService,
		approvalService:   approvalService,
	}
}

// CreateSubmission records a proof-of-action as pending
// POST /api/submissions
func (h *SubmissionHandler) CreateSubmission(c *gin.Context) {
	var req models.CreateSubmissionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	submission, err := h.submissionService.Create(c.Request.Context(), &req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, submission)
}

// GetSubmission retrieves a submission by ID
// GET /api/submissions/:id
func (h *SubmissionHandler) GetSubmission(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid submission id"})
		return
	}

	submission, err := h.submissionService.Get(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, submission)
}

// ListSubmissions lists submissions, newest first
// GET /api/submissions?taskId=&user=&status=&limit=
func (h *SubmissionHandler) ListSubmissions(c *gin.Context) {
	var filter models.ListSubmissionsFilter

	if taskIDStr := c.Query("taskId"); taskIDStr != "" {
		taskID, err := strconv.ParseUint(taskIDStr, 10, 64)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid taskId"})
			return
		}
		filter.TaskID = &taskID
	}

	if user := c.Query("user"); user != "" {
		filter.User = &user
	}

	if statusStr := c.Query("status"); statusStr != "" {
		status := models.SubmissionStatus(statusStr)
		filter.Status = &status
	}

	if limitStr := c.Query("limit"); limitStr != "" {
		if limit, err := strconv.Atoi(limitStr); err == nil {
			filter.Limit = limit
		}
	}

	submissions, err := h.submissionService.List(c.Request.Context(), filter)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, submissions)
}

// MySubmissions lists the authenticated wallet's own submissions
// GET /api/me/submissions
func (h *SubmissionHandler) MySubmissions(c *gin.Context) {
	wallet, exists := auth.GetWalletAddress(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	limit := 0
	if limitStr := c.Query("limit"); limitStr != "" {
		if l, err := strconv.Atoi(limitStr); err == nil {
			limit = l
		}
	}

	submissions, err := h.submissionService.ListByUser(c.Request.Context(), wallet, limit)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, submissions)
}

// ApproveSubmission verifies the creator's signed approval and returns the
// signed voucher
// PATCH /api/submissions/:id/approve
func (h *SubmissionHandler) ApproveSubmission(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid submission id"})
		return
	}

	var req models.ApproveSubmissionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	response, err := h.approvalService.Approve(c.Request.Context(), id, &req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, response)
}

// RejectSubmission transitions a submission to rejected
// PATCH /api/submissions/:id/reject
func (h *SubmissionHandler) RejectSubmission(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid submission id"})
		return
	}

	var req models.RejectSubmissionRequest
	if err := c.ShouldBindJSON(&req); err != nil && err.Error() != "EOF" {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	submission, err := h.approvalService.Reject(c.Request.Context(), id, &req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, submission)
}
