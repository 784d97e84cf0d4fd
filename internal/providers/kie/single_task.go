package kie

import (
	"encoding/json"
	"strings"

	"mediagen/internal/domain"
)

const (
	singleTaskCreatePath = "/api/v1/flux/kontext/generate"
	singleTaskRecordPath = "/api/v1/flux/kontext/record-info"
)

// successFlag values reported by single-task records.
const (
	flagRunning        = 0
	flagSuccess        = 1
	flagCreateFailed   = 2
	flagGenerateFailed = 3
)

type singleTaskRecord struct {
	TaskID      string `json:"taskId"`
	SuccessFlag *int   `json:"successFlag"`
	Response    *struct {
		ResultImageURL string `json:"resultImageUrl"`
	} `json:"response"`
	ErrorMessage string `json:"errorMessage"`
}

// singleTaskBody flattens params next to the model; this family takes no
// nested input object.
func singleTaskBody(input domain.TaskInput, callbackURL string) map[string]any {
	body := make(map[string]any, len(input.Params)+2)
	for k, v := range input.Params {
		body[k] = v
	}
	body["model"] = input.ProviderModel
	if callbackURL != "" {
		body["callBackUrl"] = callbackURL
	}
	return body
}

func parseSingleTask(raw json.RawMessage) domain.TaskStatus {
	var rec singleTaskRecord
	if err := json.Unmarshal(raw, &rec); err != nil || rec.SuccessFlag == nil {
		return domain.TaskStatus{State: domain.TaskPending}
	}
	switch *rec.SuccessFlag {
	case flagSuccess:
		if rec.Response == nil || strings.TrimSpace(rec.Response.ResultImageURL) == "" {
			// Schema drift: keep polling rather than fail the job.
			return domain.TaskStatus{State: domain.TaskPending}
		}
		return domain.TaskStatus{State: domain.TaskSuccess, URL: strings.TrimSpace(rec.Response.ResultImageURL)}
	case flagCreateFailed:
		return failedStatus(rec.ErrorMessage, "task creation failed")
	case flagGenerateFailed:
		return failedStatus(rec.ErrorMessage, "generation failed")
	default:
		return domain.TaskStatus{State: domain.TaskPending}
	}
}

func failedStatus(reason, fallback string) domain.TaskStatus {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		reason = fallback
	}
	return domain.TaskStatus{State: domain.TaskFailed, Reason: reason}
}
