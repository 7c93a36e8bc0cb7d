package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Lllllllleong/judgmentnewsflow/internal/brevo"
	"github.com/Lllllllleong/judgmentnewsflow/internal/models"
)

type fakeProvider struct {
	templates  []brevo.Template
	html       map[int64]string
	lists      map[int64]bool
	createErr  error
	created    []*brevo.Campaign
	fetchedIDs []int64
}

func (p *fakeProvider) ListTemplates(context.Context) ([]brevo.Template, error) {
	return p.templates, nil
}

func (p *fakeProvider) GetTemplate(_ context.Context, id int64) (*brevo.Template, error) {
	p.fetchedIDs = append(p.fetchedIDs, id)
	html, ok := p.html[id]
	if !ok {
		return nil, &brevo.APIError{Status: 404, Message: "template not found"}
	}
	return &brevo.Template{ID: id, HTMLContent: html}, nil
}

func (p *fakeProvider) GetContactList(_ context.Context, id int64) (*brevo.ContactList, error) {
	if !p.lists[id] {
		return nil, &brevo.APIError{Status: 404, Message: "list not found"}
	}
	return &brevo.ContactList{ID: id}, nil
}

func (p *fakeProvider) CreateCampaign(_ context.Context, c *brevo.Campaign) (int64, error) {
	if p.createErr != nil {
		return 0, p.createErr
	}
	p.created = append(p.created, c)
	return 901, nil
}

var ist = time.FixedZone("UTC+05:30", 5*3600+30*60)

func newTestScheduler(t *testing.T, p *fakeProvider, cfg SchedulerConfig) *NewsletterSchedulerFunction {
	t.Helper()
	if cfg.SenderEmail == "" {
		cfg.SenderEmail = "news@example.com"
	}
	if cfg.Location == nil {
		cfg.Location = ist
	}
	if cfg.SubjectPrefix == "" {
		cfg.SubjectPrefix = "Legal Judgments Digest"
	}
	if cfg.Placeholder == "" {
		cfg.Placeholder = "<p>[[NEWSLETTER_CONTENT]]</p>"
	}
	s, err := NewNewsletterScheduler(p, cfg)
	if err != nil {
		t.Fatal(err)
	}
	s.now = func() time.Time { return time.Date(2024, 7, 16, 2, 0, 0, 0, time.UTC) }
	return s
}

func scheduleRequest() *models.ScheduleRequest {
	return &models.ScheduleRequest{
		HTMLFragment:       "<h1>News</h1>",
		RecipientListID:    5,
		ScheduledTimeOfDay: "09:30",
		AMPMPeriod:         "AM",
		SenderName:         "Sera AI",
	}
}

func TestSchedulerCreatesCampaign(t *testing.T) {
	p := &fakeProvider{
		templates: []brevo.Template{{ID: 1, Name: "Transactional"}, {ID: 2, Name: "Newsletter"}},
		html:      map[int64]string{2: "<html><body><p>[[NEWSLETTER_CONTENT]]</p></body></html>"},
		lists:     map[int64]bool{5: true},
	}
	s := newTestScheduler(t, p, SchedulerConfig{TemplateName: "Newsletter"})

	resp, err := s.Process(context.Background(), scheduleRequest())
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if resp.CampaignID != 901 {
		t.Errorf("Expected campaign 901, got %d", resp.CampaignID)
	}
	if resp.ScheduledAt != "2024-07-16T04:00:00.000000Z" {
		t.Errorf("Expected 2024-07-16T04:00:00.000000Z, got %s", resp.ScheduledAt)
	}

	if len(p.created) != 1 {
		t.Fatalf("Expected one campaign, got %d", len(p.created))
	}
	c := p.created[0]
	if c.HTMLContent != "<html><body><h1>News</h1></body></html>" {
		t.Errorf("Unexpected html %q", c.HTMLContent)
	}
	if c.Subject != "Legal Judgments Digest - 16 Jul 2024" {
		t.Errorf("Unexpected subject %q", c.Subject)
	}
	if c.Sender.Name != "Sera AI" || c.Sender.Email != "news@example.com" {
		t.Errorf("Unexpected sender %+v", c.Sender)
	}
	if len(c.Recipients.ListIDs) != 1 || c.Recipients.ListIDs[0] != 5 {
		t.Errorf("Unexpected recipients %+v", c.Recipients)
	}
	if len(p.fetchedIDs) != 1 || p.fetchedIDs[0] != 2 {
		t.Errorf("Expected template 2 fetched, got %v", p.fetchedIDs)
	}
}

func TestSchedulerSelectsByIDFirst(t *testing.T) {
	p := &fakeProvider{
		templates: []brevo.Template{{ID: 1, Name: "Newsletter"}, {ID: 7, Name: "Other"}},
		html:      map[int64]string{1: "<body></body>", 7: "<body></body>"},
		lists:     map[int64]bool{5: true},
	}
	s := newTestScheduler(t, p, SchedulerConfig{TemplateID: 7, TemplateName: "Newsletter"})

	if _, err := s.Process(context.Background(), scheduleRequest()); err != nil {
		t.Fatal(err)
	}
	if p.fetchedIDs[0] != 7 {
		t.Errorf("Expected template 7, got %d", p.fetchedIDs[0])
	}
}

func TestSchedulerTemplateMissing(t *testing.T) {
	p := &fakeProvider{templates: []brevo.Template{{ID: 1, Name: "A"}, {ID: 2, Name: "B"}}, lists: map[int64]bool{5: true}}
	s := newTestScheduler(t, p, SchedulerConfig{TemplateName: "Newsletter"})

	_, err := s.Process(context.Background(), scheduleRequest())
	if !errors.Is(err, ErrTemplateNotFound) {
		t.Errorf("Expected ErrTemplateNotFound, got %v", err)
	}
	if len(p.fetchedIDs) != 0 || len(p.created) != 0 {
		t.Error("Expected no further provider calls")
	}
}

func TestSchedulerBadTime(t *testing.T) {
	p := &fakeProvider{templates: []brevo.Template{{ID: 2, Name: "Newsletter"}}, html: map[int64]string{2: "<body></body>"}, lists: map[int64]bool{5: true}}
	s := newTestScheduler(t, p, SchedulerConfig{TemplateID: 2})

	req := scheduleRequest()
	req.ScheduledTimeOfDay = "nine thirty"
	if _, err := s.Process(context.Background(), req); err == nil {
		t.Error("Expected time parse failure")
	}
	if len(p.created) != 0 {
		t.Error("Expected no campaign on time failure")
	}
}

func TestSchedulerUnknownListAndProviderFailure(t *testing.T) {
	p := &fakeProvider{templates: []brevo.Template{{ID: 2, Name: "Newsletter"}}, html: map[int64]string{2: "<body></body>"}, lists: map[int64]bool{}}
	s := newTestScheduler(t, p, SchedulerConfig{TemplateID: 2})
	var apiErr *brevo.APIError
	if _, err := s.Process(context.Background(), scheduleRequest()); !errors.As(err, &apiErr) {
		t.Errorf("Expected provider error for unknown list, got %v", err)
	}

	p.lists[5] = true
	p.createErr = errors.New("provider exploded")
	if _, err := s.Process(context.Background(), scheduleRequest()); err == nil {
		t.Error("Expected provider failure to surface")
	}
}

func TestNewSchedulerValidation(t *testing.T) {
	if _, err := NewNewsletterScheduler(&fakeProvider{}, SchedulerConfig{TemplateID: 1, Location: ist}); err == nil {
		t.Error("Expected error without sender email")
	}
	if _, err := NewNewsletterScheduler(&fakeProvider{}, SchedulerConfig{SenderEmail: "a@b.c", Location: ist}); err == nil {
		t.Error("Expected error without template id or name")
	}
}

func TestSpliceContent(t *testing.T) {
	const placeholder = "<p>[[NEWSLETTER_CONTENT]]</p>"
	tests := []struct {
		name, template, want string
	}{
		{
			name:     "placeholder replaced",
			template: "<html><body><h1>Hi</h1>" + placeholder + "<footer>f</footer></body></html>",
			want:     "<html><body><h1>Hi</h1><div>X</div><footer>f</footer></body></html>",
		},
		{
			name:     "only first placeholder replaced",
			template: "<body>" + placeholder + placeholder + "</body>",
			want:     "<body><div>X</div>" + placeholder + "</body>",
		},
		{
			name:     "inserted before closing body",
			template: "<html><body>\n<p>Hello</p>\n</body>\n</html>",
			want:     "<html><body>\n<p>Hello</p>\n<div>X</div></body>\n</html>",
		},
		{
			name:     "closing body tag is case-insensitive",
			template: "<HTML><BODY><P>Hello</P></BODY></HTML>",
			want:     "<HTML><BODY><P>Hello</P><div>X</div></BODY></HTML>",
		},
		{
			name:     "last closing body tag wins",
			template: "<body><!-- </body> --><p>a</p></body >",
			want:     "<body><!-- </body> --><p>a</p><div>X</div></body >",
		},
		{
			name:     "appended without body",
			template: "<p>plain</p>",
			want:     "<p>plain</p><div>X</div>",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := SpliceContent(tt.template, "<div>X</div>", placeholder); got != tt.want {
				t.Errorf("Expected %q, got %q", tt.want, got)
			}
		})
	}
}
