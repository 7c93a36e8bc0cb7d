package brevo

// Template is a transactional e-mail template as returned by the templates API.
type Template struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Subject     string `json:"subject"`
	IsActive    bool   `json:"isActive"`
	HTMLContent string `json:"htmlContent"`
}

type templateList struct {
	Count     int        `json:"count"`
	Templates []Template `json:"templates"`
}

// ContactList is a recipient list.
type ContactList struct {
	ID                int64  `json:"id"`
	Name              string `json:"name"`
	TotalSubscribers  int64  `json:"totalSubscribers"`
	UniqueSubscribers int64  `json:"uniqueSubscribers"`
}

// Sender identifies who a campaign is sent from.
type Sender struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

// Recipients selects the lists a campaign goes to.
type Recipients struct {
	ListIDs []int64 `json:"listIds"`
}

// Campaign is the draft submitted to create an e-mail campaign. ScheduledAt is a UTC
// timestamp; the provider owns the campaign once created.
type Campaign struct {
	Name        string     `json:"name"`
	Subject     string     `json:"subject"`
	Sender      Sender     `json:"sender"`
	HTMLContent string     `json:"htmlContent"`
	Recipients  Recipients `json:"recipients"`
	ScheduledAt string     `json:"scheduledAt,omitempty"`
}

type createdResponse struct {
	ID int64 `json:"id"`
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
