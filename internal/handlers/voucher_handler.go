package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"infofix-oracle/internal/services"
)

type VoucherHandler struct {
	voucherService *services.VoucherService
	taskService    *services.TaskService
}

func NewVoucherHandler(voucherService *services.VoucherService, taskService *services.TaskService) *VoucherHandler {
	return &VoucherHandler{
		voucherService: voucherService,
		taskService:    taskService,
	}
}

// GetVoucher returns the stored voucher for an already-approved tuple
// GET /api/voucher?taskId=3&user=0x...&action=1
func (h *VoucherHandler) GetVoucher(c *gin.Context) {
	taskID, err := strconv.ParseUint(c.Query("taskId"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid taskId"})
		return
	}

	user := c.Query("user")
	if user == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "user is required"})
		return
	}

	action, err := strconv.ParseUint(c.DefaultQuery("action", "1"), 10, 8)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid action"})
		return
	}

	voucher, err := h.voucherService.Fetch(c.Request.Context(), taskID, user, uint8(action))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, voucher)
}

// GetTask returns the on-chain task snapshot
// GET /api/tasks/:id
func (h *VoucherHandler) GetTask(c *gin.Context) {
	taskID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid task id"})
		return
	}

	task, err := h.taskService.Snapshot(c.Request.Context(), taskID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, task)
}
