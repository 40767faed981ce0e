package notify

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"strings"

	"github.com/Masterminds/sprig/v3"

	"github.com/backoffice/internal/model"
)

// DefaultClientURL is the back-office base URL used when CLIENT_URL is unset.
const DefaultClientURL = "http://localhost:5005"

// Email is a rendered notification, ready to be addressed and sent.
type Email struct {
	Subject string
	HTML    string
}

//go:embed templates/*.html
var templateFS embed.FS

var (
	jobApplicationTemplate = mustParse("job_application.html")
	leadTemplate           = mustParse("lead.html")
	reviewTemplate         = mustParse("review.html")
	systemAlertTemplate    = mustParse("system_alert.html")
)

// Each kind gets its own set so every file can define "content".
func mustParse(name string) *template.Template {
	return template.Must(template.New(name).
		Funcs(sprig.FuncMap()).
		ParseFS(templateFS, "templates/layout.html", "templates/"+name))
}

// page is the data handed to the shared layout.
type page struct {
	Title       string
	HeaderClass string
	Intro       string
	CTAURL      string
	CTALabel    string
	Stars       string
	Event       any
}

func render(t *template.Template, p page) (string, error) {
	var b bytes.Buffer
	if err := t.ExecuteTemplate(&b, "layout", p); err != nil {
		return "", fmt.Errorf("render %s: %w", t.Name(), err)
	}
	return b.String(), nil
}

func adminURL(clientURL, path string) string {
	base := strings.TrimRight(clientURL, "/")
	if base == "" {
		base = DefaultClientURL
	}
	return base + "/admin" + path
}

func RenderJobApplication(clientURL string, a model.JobApplication) (Email, error) {
	html, err := render(jobApplicationTemplate, page{
		Title:       "New Job Application",
		HeaderClass: "header-info",
		Intro:       "A new job application has been submitted.",
		CTAURL:      adminURL(clientURL, "/job-applicants"),
		CTALabel:    "View Application",
		Event:       a,
	})
	if err != nil {
		return Email{}, err
	}
	return Email{Subject: "New Job Application: " + a.FullName, HTML: html}, nil
}

func RenderLead(clientURL string, l model.Lead) (Email, error) {
	html, err := render(leadTemplate, page{
		Title:       "New Lead",
		HeaderClass: "header-info",
		Intro:       "A new lead has been received.",
		CTAURL:      adminURL(clientURL, "/leads"),
		CTALabel:    "View Lead",
		Event:       l,
	})
	if err != nil {
		return Email{}, err
	}
	return Email{Subject: fmt.Sprintf("New Lead: %s - %s", l.Name, l.Service), HTML: html}, nil
}

func RenderReview(clientURL string, r model.Review) (Email, error) {
	html, err := render(reviewTemplate, page{
		Title:       "New Review",
		HeaderClass: "header-info",
		Intro:       "A new review has been submitted.",
		CTAURL:      adminURL(clientURL, "/reviews"),
		CTALabel:    "Review Submission",
		Stars:       Stars(r.Rating),
		Event:       r,
	})
	if err != nil {
		return Email{}, err
	}
	return Email{Subject: fmt.Sprintf("New Review: %s - %s", r.ReviewerName, r.Company), HTML: html}, nil
}

// RenderSystemAlert colors the header by severity. Unknown severities get
// the info gradient.
func RenderSystemAlert(clientURL string, a model.SystemAlert) (Email, error) {
	html, err := render(systemAlertTemplate, page{
		Title:       a.Title,
		HeaderClass: severityClass(a.Severity),
		CTAURL:      adminURL(clientURL, ""),
		CTALabel:    "Open Dashboard",
		Event:       a,
	})
	if err != nil {
		return Email{}, err
	}
	return Email{Subject: "System Alert: " + a.Title, HTML: html}, nil
}

func severityClass(s model.Severity) string {
	switch s {
	case model.SeverityError:
		return "header-error"
	case model.SeverityWarning:
		return "header-warning"
	default:
		return "header-info"
	}
}

// Stars renders a 1-5 rating as filled and empty stars. Out of range values
// are clamped.
func Stars(rating int) string {
	rating = max(0, min(5, rating))
	return strings.Repeat("★", rating) + strings.Repeat("☆", 5-rating)
}
