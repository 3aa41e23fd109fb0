package services

import (
	"context"

	"infofix-oracle/internal/models"
)

// TaskService exposes the task reader's on-chain snapshot to review tooling,
// so it can price approvals without its own RPC access.
type TaskService struct {
	tasks TaskGetter
}

func NewTaskService(tasks TaskGetter) *TaskService {
	return &TaskService{tasks: tasks}
}

// Snapshot returns the on-chain task configuration for taskID.
func (s *TaskService) Snapshot(ctx context.Context, taskID uint64) (*models.TaskResponse, error) {
	task, err := s.tasks.GetTask(ctx, taskID)
	if err != nil {
		return nil, err
	}

	return &models.TaskResponse{
		TaskID:                 taskID,
		Creator:                task.Creator.Hex(),
		RewardPerFollow:        task.RewardPerFollow.String(),
		RewardPerLike:          task.RewardPerLike.String(),
		RewardPerRecast:        task.RewardPerRecast.String(),
		RewardPerFollowDisplay: weiToDisplay(task.RewardPerFollow.String()),
		RewardPerLikeDisplay:   weiToDisplay(task.RewardPerLike.String()),
		RewardPerRecastDisplay: weiToDisplay(task.RewardPerRecast.String()),
		EndTime:                task.EndTime,
		Paused:                 task.Paused,
	}, nil
}
