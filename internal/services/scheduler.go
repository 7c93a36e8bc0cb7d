package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"github.com/Lllllllleong/judgmentnewsflow/internal/brevo"
	"github.com/Lllllllleong/judgmentnewsflow/internal/dates"
	"github.com/Lllllllleong/judgmentnewsflow/internal/models"
)

// CampaignProvider is the part of the email provider API the scheduler needs.
type CampaignProvider interface {
	ListTemplates(ctx context.Context) ([]brevo.Template, error)
	GetTemplate(ctx context.Context, id int64) (*brevo.Template, error)
	GetContactList(ctx context.Context, id int64) (*brevo.ContactList, error)
	CreateCampaign(ctx context.Context, campaign *brevo.Campaign) (int64, error)
}

// SchedulerConfig holds configuration for the scheduler service.
// TemplateID wins over TemplateName when both are set.
type SchedulerConfig struct {
	SenderEmail   string
	TemplateID    int64
	TemplateName  string
	Placeholder   string
	SubjectPrefix string
	Location      *time.Location
}

// NewsletterSchedulerFunction turns a composed body into a scheduled campaign.
type NewsletterSchedulerFunction struct {
	provider CampaignProvider
	config   SchedulerConfig
	now      func() time.Time
}

func NewNewsletterScheduler(provider CampaignProvider, config SchedulerConfig) (*NewsletterSchedulerFunction, error) {
	if config.SenderEmail == "" {
		return nil, errors.New("BREVO_SENDER_EMAIL must be set")
	}
	if config.TemplateID == 0 && config.TemplateName == "" {
		return nil, errors.New("BREVO_TEMPLATE_ID or BREVO_TEMPLATE_NAME must be set")
	}
	if config.Location == nil {
		return nil, errors.New("schedule location must be set")
	}
	return &NewsletterSchedulerFunction{provider: provider, config: config, now: time.Now}, nil
}

func (f *NewsletterSchedulerFunction) Process(ctx context.Context, req *models.ScheduleRequest) (*models.ScheduleNewsletterResponse, error) {
	logCtx := slog.With("recipientListId", req.RecipientListID)
	logCtx.Info("Starting newsletter scheduling.")

	today := f.now().In(f.config.Location)
	sendAt, err := dates.LocalToUTC(today, req.ScheduledTimeOfDay, req.AMPMPeriod, f.config.Location)
	if err != nil {
		logCtx.Error("Invalid delivery time", "error", err)
		return nil, err
	}
	scheduledAt := dates.ProviderTime(sendAt)

	template, err := f.selectTemplate(ctx)
	if err != nil {
		logCtx.Error("Template lookup failed", "error", err)
		return nil, err
	}
	logCtx = logCtx.With("templateId", template.ID)

	full, err := f.provider.GetTemplate(ctx, template.ID)
	if err != nil {
		logCtx.Error("Failed to fetch template", "error", err)
		return nil, err
	}
	html := SpliceContent(full.HTMLContent, req.HTMLFragment, f.config.Placeholder)

	if _, err := f.provider.GetContactList(ctx, req.RecipientListID); err != nil {
		logCtx.Error("Recipient list lookup failed", "error", err)
		return nil, err
	}

	campaignID, err := f.provider.CreateCampaign(ctx, &brevo.Campaign{
		Name:        fmt.Sprintf("%s %s", f.config.SubjectPrefix, dates.Format(today)),
		Subject:     fmt.Sprintf("%s - %s", f.config.SubjectPrefix, today.Format("02 Jan 2006")),
		Sender:      brevo.Sender{Name: req.SenderName, Email: f.config.SenderEmail},
		HTMLContent: html,
		Recipients:  brevo.Recipients{ListIDs: []int64{req.RecipientListID}},
		ScheduledAt: scheduledAt,
	})
	if err != nil {
		logCtx.Error("Failed to create campaign", "error", err)
		return nil, err
	}

	logCtx.Info("Campaign scheduled.", "campaignId", campaignID, "scheduledAt", scheduledAt)
	return &models.ScheduleNewsletterResponse{
		Message:     fmt.Sprintf("Campaign %d scheduled for %s", campaignID, scheduledAt),
		CampaignID:  campaignID,
		ScheduledAt: scheduledAt,
	}, nil
}

func (f *NewsletterSchedulerFunction) selectTemplate(ctx context.Context) (*brevo.Template, error) {
	templates, err := f.provider.ListTemplates(ctx)
	if err != nil {
		return nil, err
	}
	for i := range templates {
		if f.config.TemplateID != 0 {
			if templates[i].ID == f.config.TemplateID {
				return &templates[i], nil
			}
			continue
		}
		if templates[i].Name == f.config.TemplateName {
			return &templates[i], nil
		}
	}
	if f.config.TemplateID != 0 {
		return nil, fmt.Errorf("%w: id %d", ErrTemplateNotFound, f.config.TemplateID)
	}
	return nil, fmt.Errorf("%w: name %q", ErrTemplateNotFound, f.config.TemplateName)
}

var closingBodyRe = regexp.MustCompile(`(?i)</body\s*>`)

// SpliceContent puts content into template: in place of the first placeholder occurrence,
// else right before the last closing body tag, else at the end.
func SpliceContent(template, content, placeholder string) string {
	if placeholder != "" && strings.Contains(template, placeholder) {
		return strings.Replace(template, placeholder, content, 1)
	}
	if locs := closingBodyRe.FindAllStringIndex(template, -1); len(locs) > 0 {
		at := locs[len(locs)-1][0]
		return template[:at] + content + template[at:]
	}
	return template + content
}
