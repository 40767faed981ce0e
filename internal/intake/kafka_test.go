package intake

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/backoffice/internal/model"
)

type recordingNotifier struct {
	mu     sync.Mutex
	jobs   []model.JobApplication
	leads  []model.Lead
	review []model.Review
	alerts []model.SystemAlert
}

func (n *recordingNotifier) NotifyNewJobApplication(_ context.Context, a model.JobApplication) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.jobs = append(n.jobs, a)
}

func (n *recordingNotifier) NotifyNewLead(_ context.Context, l model.Lead) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.leads = append(n.leads, l)
}

func (n *recordingNotifier) NotifyNewReview(_ context.Context, r model.Review) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.review = append(n.review, r)
}

func (n *recordingNotifier) NotifySystemAlert(_ context.Context, a model.SystemAlert) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.alerts = append(n.alerts, a)
}

func (n *recordingNotifier) total() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.jobs) + len(n.leads) + len(n.review) + len(n.alerts)
}

// chanReader serves queued messages, then blocks until ctx is done.
type chanReader struct {
	msgs   chan kafka.Message
	errs   chan error
	closed bool
}

func newChanReader() *chanReader {
	return &chanReader{msgs: make(chan kafka.Message, 10), errs: make(chan error, 10)}
}

func (r *chanReader) ReadMessage(ctx context.Context) (kafka.Message, error) {
	select {
	case err := <-r.errs:
		return kafka.Message{}, err
	case m := <-r.msgs:
		return m, nil
	case <-ctx.Done():
		return kafka.Message{}, ctx.Err()
	}
}

func (r *chanReader) Close() error {
	r.closed = true
	return nil
}

func TestHandleRoutesByKind(t *testing.T) {
	n := &recordingNotifier{}
	c := newConsumer(newChanReader(), n, zap.NewNop().Sugar())
	ctx := context.Background()

	require.NoError(t, c.Handle(ctx, []byte(`{"kind":"job_application","payload":{"fullName":"Ana","email":"ana@z.com","phone":"123","experience":"1-3 years"}}`)))
	require.NoError(t, c.Handle(ctx, []byte(`{"kind":"lead","payload":{"name":"Joe","email":"joe@y.com","service":"BPO Services","message":"hello"}}`)))
	require.NoError(t, c.Handle(ctx, []byte(`{"kind":"review","payload":{"reviewerName":"Sam","company":"Acme","rating":4,"category":"IT Services"}}`)))
	require.NoError(t, c.Handle(ctx, []byte(`{"kind":"system_alert","payload":{"title":"Disk Low","message":"90% full","severity":"error"}}`)))

	require.Len(t, n.jobs, 1)
	assert.Equal(t, "Ana", n.jobs[0].FullName)
	require.Len(t, n.leads, 1)
	assert.Equal(t, "BPO Services", n.leads[0].Service)
	require.Len(t, n.review, 1)
	assert.Equal(t, 4, n.review[0].Rating)
	require.Len(t, n.alerts, 1)
	assert.Equal(t, model.SeverityError, n.alerts[0].Severity)
}

func TestHandleRejectsInvalidEnvelopes(t *testing.T) {
	cases := []struct {
		name  string
		value string
	}{
		{"not json", `{kind:`},
		{"unknown kind", `{"kind":"invoice","payload":{}}`},
		{"missing payload", `{"kind":"lead"}`},
		{"payload wrong type", `{"kind":"lead","payload":[1,2]}`},
		{"payload fails validation", `{"kind":"review","payload":{"reviewerName":"Sam","company":"Acme","rating":9,"category":"IT"}}`},
		{"bad severity", `{"kind":"system_alert","payload":{"title":"x","message":"y","severity":"fatal"}}`},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			n := &recordingNotifier{}
			c := newConsumer(newChanReader(), n, zap.NewNop().Sugar())

			err := c.Handle(context.Background(), []byte(tc.value))
			assert.ErrorIs(t, err, ErrInvalidEnvelope)
			assert.Zero(t, n.total())
		})
	}
}

func TestRunSkipsBadMessagesAndStopsOnCancel(t *testing.T) {
	n := &recordingNotifier{}
	r := newChanReader()
	core, logs := observer.New(zapcore.DebugLevel)
	c := newConsumer(r, n, zap.New(core).Sugar())
	c.retryDelay = time.Millisecond

	r.msgs <- kafka.Message{Value: []byte(`garbage`), Offset: 1}
	r.errs <- errors.New("broker unavailable")
	r.msgs <- kafka.Message{Value: []byte(`{"kind":"lead","payload":{"name":"Joe","email":"joe@y.com","service":"BPO","message":"hi"}}`), Offset: 2}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- c.Run(ctx) }()

	require.Eventually(t, func() bool { return n.total() == 1 }, 2*time.Second, 5*time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("consumer did not stop")
	}

	assert.True(t, r.closed)
	assert.Equal(t, 1, logs.FilterMessage("skipping kafka message").Len())
	assert.Equal(t, 1, logs.FilterMessage("kafka read failed").Len())
}
