package models

import "time"

// FetchedDocument is a judgment PDF downloaded to local temporary storage.
type FetchedDocument struct {
	Name       string
	LocalPath  string
	SourceURL  string
	UploadDate time.Time
}

// ExtractedDocument carries the plain text of one judgment between extraction and summarization.
// Date is the upload date it was fetched for; when set, the summary is filed under it.
type ExtractedDocument struct {
	Filename    string `json:"filename" binding:"required"`
	TextContent string `json:"textContent"`
	Date        string `json:"date,omitempty" binding:"omitempty,datetime=2006-01-02"`
}

// SummaryRecord is the structured summary of one judgment as produced by the model
// and persisted in the store.
type SummaryRecord struct {
	Date       string   `json:"date" firestore:"date" validate:"required,datetime=2006-01-02"`
	CaseNumber string   `json:"case_number" firestore:"case_number" validate:"required"`
	Title      string   `json:"title" firestore:"title" validate:"required"`
	Parties    string   `json:"parties" firestore:"parties" validate:"required"`
	Background string   `json:"background" firestore:"background" validate:"required"`
	Chronology []string `json:"chronology" firestore:"chronology" validate:"required"`
	KeyPoints  []string `json:"key_points" firestore:"key_points" validate:"required"`
	Conclusion []string `json:"conclusion" firestore:"conclusion" validate:"required"`
	JudgmentBy []string `json:"judgment_by" firestore:"judgment_by" validate:"required"`
}

// StoredArticle is a SummaryRecord together with the id the store assigned to it.
type StoredArticle struct {
	ID string `json:"id"`
	SummaryRecord
}

// NewsletterBody is the HTML body composed for one date.
type NewsletterBody struct {
	HTMLFragment string `json:"htmlFragment"`
}

// ScheduleRequest is the input for scheduling a newsletter campaign.
type ScheduleRequest struct {
	HTMLFragment       string `json:"htmlFragment" binding:"required"`
	RecipientListID    int64  `json:"recipientListId" binding:"required"`
	ScheduledTimeOfDay string `json:"scheduledTimeOfDay" binding:"required"`
	AMPMPeriod         string `json:"amPmPeriod" binding:"required"`
	SenderName         string `json:"senderName" binding:"required"`
}
