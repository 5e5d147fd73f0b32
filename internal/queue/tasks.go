package queue

import (
	"encoding/json"
	"errors"

	"github.com/qrewards/qrewards/internal/constants"

	"github.com/hibiken/asynq"
)

// TaskClaimNotify 领取通知投递任务
const TaskClaimNotify = constants.TaskClaimNotify

// ClaimNotifyPayload 领取通知任务载荷
type ClaimNotifyPayload struct {
	NotificationID uint `json:"notification_id"`
}

// NewClaimNotifyTask 创建领取通知任务
func NewClaimNotifyTask(payload ClaimNotifyPayload) (*asynq.Task, error) {
	if payload.NotificationID == 0 {
		return nil, errors.New("notification id is required")
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskClaimNotify, body), nil
}

// ParseClaimNotifyPayload 解析领取通知任务载荷
func ParseClaimNotifyPayload(task *asynq.Task) (ClaimNotifyPayload, error) {
	var payload ClaimNotifyPayload
	if task == nil {
		return payload, errors.New("nil task")
	}
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return payload, err
	}
	if payload.NotificationID == 0 {
		return payload, errors.New("notification id is required")
	}
	return payload, nil
}
