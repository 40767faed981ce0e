package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/backoffice/internal/model"
)

type recordingNotifier struct {
	jobs   []model.JobApplication
	leads  []model.Lead
	review []model.Review
	alerts []model.SystemAlert
}

func (n *recordingNotifier) NotifyNewJobApplication(_ context.Context, a model.JobApplication) {
	n.jobs = append(n.jobs, a)
}

func (n *recordingNotifier) NotifyNewLead(_ context.Context, l model.Lead) {
	n.leads = append(n.leads, l)
}

func (n *recordingNotifier) NotifyNewReview(_ context.Context, r model.Review) {
	n.review = append(n.review, r)
}

func (n *recordingNotifier) NotifySystemAlert(_ context.Context, a model.SystemAlert) {
	n.alerts = append(n.alerts, a)
}

func post(h http.HandlerFunc, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	h(rr, req)
	return rr
}

func decodeBody(t *testing.T, rr *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	return body
}

func TestLeadCreated(t *testing.T) {
	n := &recordingNotifier{}
	h := NewEventHandler(n, zap.NewNop().Sugar())

	rr := post(h.Lead, "/api/leads", `{"name":"Joe","email":"joe@y.com","service":"BPO Services","message":"hello"}`)

	assert.Equal(t, http.StatusCreated, rr.Code)
	assert.Equal(t, "application/json", rr.Header().Get("Content-Type"))
	assert.Equal(t, "lead received", decodeBody(t, rr)["message"])
	require.Len(t, n.leads, 1)
	assert.Equal(t, model.Lead{Name: "Joe", Email: "joe@y.com", Service: "BPO Services", Message: "hello"}, n.leads[0])
}

func TestEventEndpoints(t *testing.T) {
	cases := []struct {
		name   string
		route  func(*EventHandler) http.HandlerFunc
		body   string
		status int
		count  func(*recordingNotifier) int
	}{
		{
			name:   "job application",
			route:  func(h *EventHandler) http.HandlerFunc { return h.JobApplication },
			body:   `{"fullName":"Ana","email":"ana@z.com","phone":"123","experience":"1-3 years"}`,
			status: http.StatusCreated,
			count:  func(n *recordingNotifier) int { return len(n.jobs) },
		},
		{
			name:   "review",
			route:  func(h *EventHandler) http.HandlerFunc { return h.Review },
			body:   `{"reviewerName":"Sam","company":"Acme","rating":4,"category":"IT Services"}`,
			status: http.StatusCreated,
			count:  func(n *recordingNotifier) int { return len(n.review) },
		},
		{
			name:   "system alert",
			route:  func(h *EventHandler) http.HandlerFunc { return h.SystemAlert },
			body:   `{"title":"Disk Low","message":"90% full","severity":"error"}`,
			status: http.StatusCreated,
			count:  func(n *recordingNotifier) int { return len(n.alerts) },
		},
		{
			name:   "review rating out of range",
			route:  func(h *EventHandler) http.HandlerFunc { return h.Review },
			body:   `{"reviewerName":"Sam","company":"Acme","rating":6,"category":"IT Services"}`,
			status: http.StatusUnprocessableEntity,
			count:  func(n *recordingNotifier) int { return len(n.review) },
		},
		{
			name:   "malformed json",
			route:  func(h *EventHandler) http.HandlerFunc { return h.Lead },
			body:   `{"name":`,
			status: http.StatusBadRequest,
			count:  func(n *recordingNotifier) int { return len(n.leads) },
		},
		{
			name:   "unknown field",
			route:  func(h *EventHandler) http.HandlerFunc { return h.Lead },
			body:   `{"name":"Joe","email":"joe@y.com","service":"BPO","message":"hi","admin":true}`,
			status: http.StatusBadRequest,
			count:  func(n *recordingNotifier) int { return len(n.leads) },
		},
		{
			name:   "empty body",
			route:  func(h *EventHandler) http.HandlerFunc { return h.JobApplication },
			body:   ``,
			status: http.StatusBadRequest,
			count:  func(n *recordingNotifier) int { return len(n.jobs) },
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			n := &recordingNotifier{}
			h := NewEventHandler(n, zap.NewNop().Sugar())

			rr := post(tc.route(h), "/", tc.body)

			assert.Equal(t, tc.status, rr.Code, rr.Body.String())
			if tc.status == http.StatusCreated {
				assert.Equal(t, 1, tc.count(n))
			} else {
				assert.Zero(t, tc.count(n))
			}
		})
	}
}

func TestValidationErrorsUseJSONFieldNames(t *testing.T) {
	h := NewEventHandler(&recordingNotifier{}, zap.NewNop().Sugar())

	rr := post(h.Lead, "/api/leads", `{"name":"","email":"not-an-email","service":"BPO","message":"hi"}`)

	require.Equal(t, http.StatusUnprocessableEntity, rr.Code)
	errs, ok := decodeBody(t, rr)["error"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "must be provided", errs["name"])
	assert.Equal(t, "must be a valid email address", errs["email"])
	assert.NotContains(t, errs, "service")
}

func TestSystemAlertRejectsUnknownSeverity(t *testing.T) {
	n := &recordingNotifier{}
	h := NewEventHandler(n, zap.NewNop().Sugar())

	rr := post(h.SystemAlert, "/api/admin/alerts", `{"title":"x","message":"y","severity":"fatal"}`)

	require.Equal(t, http.StatusUnprocessableEntity, rr.Code)
	errs := decodeBody(t, rr)["error"].(map[string]any)
	assert.Equal(t, "must be one of: info warning error", errs["severity"])
	assert.Empty(t, n.alerts)
}
