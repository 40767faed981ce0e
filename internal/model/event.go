package model

// EventKind identifies which business event triggered a notification.
type EventKind string

const (
	KindJobApplication EventKind = "job_application"
	KindLead           EventKind = "lead"
	KindReview         EventKind = "review"
	KindSystemAlert    EventKind = "system_alert"
)

type Severity string

const (
	SeverityInfo    Severity = "info"
	SeverityWarning Severity = "warning"
	SeverityError   Severity = "error"
)

const DefaultPosition = "General Position"

type JobApplication struct {
	FullName   string `json:"fullName" validate:"required,max=200"`
	Email      string `json:"email" validate:"required,email"`
	Phone      string `json:"phone" validate:"required,max=50"`
	Position   string `json:"position,omitempty" validate:"max=200"`
	Experience string `json:"experience" validate:"required,max=100"`
}

// PositionOrDefault returns the applied-for position, falling back to
// DefaultPosition when none was given.
func (a JobApplication) PositionOrDefault() string {
	if a.Position == "" {
		return DefaultPosition
	}
	return a.Position
}

type Lead struct {
	Name    string `json:"name" validate:"required,max=200"`
	Email   string `json:"email" validate:"required,email"`
	Phone   string `json:"phone,omitempty" validate:"max=50"`
	Service string `json:"service" validate:"required,max=200"`
	Message string `json:"message" validate:"required,max=5000"`
}

type Review struct {
	ReviewerName string `json:"reviewerName" validate:"required,max=200"`
	Company      string `json:"company" validate:"required,max=200"`
	Rating       int    `json:"rating" validate:"min=1,max=5"`
	Category     string `json:"category" validate:"required,max=200"`
}

type SystemAlert struct {
	Title    string   `json:"title" validate:"required,max=200"`
	Message  string   `json:"message" validate:"required,max=5000"`
	Severity Severity `json:"severity" validate:"required,oneof=info warning error"`
}
