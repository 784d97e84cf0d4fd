package kie

import (
	"encoding/json"
	"strings"

	"mediagen/internal/domain"
)

const (
	genericJobCreatePath = "/api/v1/jobs/createTask"
	genericJobRecordPath = "/api/v1/jobs/recordInfo"
)

const (
	stateSuccess = "success"
	stateFail    = "fail"
)

type genericJobRecord struct {
	TaskID     string `json:"taskId"`
	State      string `json:"state"`
	ResultJSON string `json:"resultJson"`
	FailCode   string `json:"failCode"`
	FailMsg    string `json:"failMsg"`
}

// genericResult accepts both result key spellings seen from the API.
type genericResult struct {
	ResultURLs []string `json:"resultUrls"`
	ResultURL  string   `json:"resultUrl"`
}

func genericJobBody(input domain.TaskInput, callbackURL string) map[string]any {
	params := input.Params
	if params == nil {
		params = map[string]any{}
	}
	body := map[string]any{
		"model": input.ProviderModel,
		"input": params,
	}
	if callbackURL != "" {
		body["callBackUrl"] = callbackURL
	}
	return body
}

func parseGenericJob(raw json.RawMessage) domain.TaskStatus {
	var rec genericJobRecord
	if err := json.Unmarshal(raw, &rec); err != nil {
		return domain.TaskStatus{State: domain.TaskPending}
	}
	switch strings.ToLower(strings.TrimSpace(rec.State)) {
	case stateSuccess:
		if url := resultURL(rec.ResultJSON); url != "" {
			return domain.TaskStatus{State: domain.TaskSuccess, URL: url}
		}
		// Unparseable success payloads are treated as transient.
		return domain.TaskStatus{State: domain.TaskPending}
	case stateFail:
		return failedStatus(rec.FailMsg, "generation failed")
	default:
		// waiting, queuing, generating
		return domain.TaskStatus{State: domain.TaskPending}
	}
}

func resultURL(resultJSON string) string {
	if strings.TrimSpace(resultJSON) == "" {
		return ""
	}
	var res genericResult
	if err := json.Unmarshal([]byte(resultJSON), &res); err != nil {
		return ""
	}
	for _, u := range res.ResultURLs {
		if u = strings.TrimSpace(u); u != "" {
			return u
		}
	}
	return strings.TrimSpace(res.ResultURL)
}
