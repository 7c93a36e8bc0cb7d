package models

// These structs define the JSON payloads exchanged with callers of each pipeline stage.

// FetchJudgmentsRequest is the input for the fetch stage.
type FetchJudgmentsRequest struct {
	Date string `json:"date" binding:"required"`
}

// FetchJudgmentsResponse is the output of the fetch stage. Skipped counts links that
// matched the date but could not be downloaded.
type FetchJudgmentsResponse struct {
	Documents     []ExtractedDocument `json:"documents"`
	Skipped       int                 `json:"skipped"`
	ListingFailed bool                `json:"listingFailed"`
}

// StoreSummariesResponse is the output of the store stage.
type StoreSummariesResponse struct {
	Message  string `json:"message"`
	Inserted int    `json:"inserted"`
}

// GenerateNewsletterRequest is the input for the compose stage.
type GenerateNewsletterRequest struct {
	Date string `json:"date" binding:"required"`
}

// ScheduleNewsletterResponse is the output of the schedule stage.
type ScheduleNewsletterResponse struct {
	Message     string `json:"message"`
	CampaignID  int64  `json:"campaignId"`
	ScheduledAt string `json:"scheduledAt"`
}

// PipelineTriggerRequest starts a full pipeline run. Empty fields fall back to configured defaults.
type PipelineTriggerRequest struct {
	Date               string `json:"date"`
	RecipientListID    int64  `json:"recipientListId"`
	ScheduledTimeOfDay string `json:"scheduledTimeOfDay"`
	AMPMPeriod         string `json:"amPmPeriod"`
	SenderName         string `json:"senderName"`
}

// PipelineTriggerResponse names the workflow execution that was started.
type PipelineTriggerResponse struct {
	Message   string `json:"message"`
	Execution string `json:"execution"`
}
