package scheduler

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

const TaskConversionFollowUp = "conversion.followup"

type ConversionFollowUpPayload struct {
	LeadID        string `json:"leadId"`
	UserID        string `json:"userId"`
	OpportunityID string `json:"opportunityId"`
}

func NewConversionFollowUpTask(payload ConversionFollowUpPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskConversionFollowUp, data), nil
}

func ParseConversionFollowUpPayload(task *asynq.Task) (ConversionFollowUpPayload, error) {
	var payload ConversionFollowUpPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return ConversionFollowUpPayload{}, err
	}
	return payload, nil
}
