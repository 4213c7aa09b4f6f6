package wizard

import (
	"context"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/angelmondragon/storefront/internal/auth"
	"github.com/angelmondragon/storefront/pkg/backend"
	pkgerrors "github.com/angelmondragon/storefront/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memoryDrafts struct {
	mu     sync.Mutex
	drafts map[string]*Wizard
}

func newMemoryDrafts() *memoryDrafts {
	return &memoryDrafts{drafts: map[string]*Wizard{}}
}

func (m *memoryDrafts) Save(_ context.Context, w *Wizard) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	clone := *w
	clone.Data = map[string]string{}
	for k, v := range w.Data {
		clone.Data[k] = v
	}
	m.drafts[w.ID] = &clone
	return nil
}

func (m *memoryDrafts) Load(_ context.Context, id string) (*Wizard, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	w, ok := m.drafts[id]
	if !ok {
		return nil, ErrDraftNotFound
	}
	clone := *w
	clone.Data = map[string]string{}
	for k, v := range w.Data {
		clone.Data[k] = v
	}
	return &clone, nil
}

type fakeOTP struct {
	sent      []string
	verifyErr error
}

func (f *fakeOTP) SendOTP(_ context.Context, req auth.SendOTPRequest) error {
	f.sent = append(f.sent, req.Email)
	return nil
}

func (f *fakeOTP) VerifyOTP(_ context.Context, req auth.VerifyOTPRequest) error {
	return f.verifyErr
}

type fakeBackend struct {
	requests []backend.Request
	err      error
}

func (f *fakeBackend) Do(_ context.Context, req backend.Request) ([]byte, error) {
	f.requests = append(f.requests, req)
	if f.err != nil {
		return nil, f.err
	}
	return []byte(`{"success":true}`), nil
}

type clock struct{ now time.Time }

func (c *clock) Now() time.Time { return c.now }

func newTestService(t *testing.T) (Service, *fakeOTP, *fakeBackend, *clock) {
	t.Helper()
	otp := &fakeOTP{}
	be := &fakeBackend{}
	clk := &clock{now: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)}
	svc, err := NewService(ServiceParams{
		Drafts:  newMemoryDrafts(),
		OTP:     otp,
		Backend: be,
		OTPTTL:  2 * time.Minute,
		Clock:   clk.Now,
	})
	require.NoError(t, err)
	return svc, otp, be, clk
}

func walkToOTP(t *testing.T, svc Service) *Wizard {
	t.Helper()
	ctx := context.Background()
	w, err := svc.Start(ctx, FlowRegistration)
	require.NoError(t, err)
	inputs := []map[string]string{
		{"role": "student"},
		{"firstName": "Nadia", "lastName": "Rahman", "email": "nadia@example.com", "phone": "01700000000"},
		{"password": "longenough", "confirmPassword": "longenough"},
		{"district": "dhaka", "area": "Mirpur"},
	}
	for _, input := range inputs {
		w, err = svc.Advance(ctx, w.ID, input)
		require.NoError(t, err)
		require.Empty(t, w.Errors)
	}
	require.Equal(t, StepOTP, w.Current(Registration()).ID)
	return w
}

func TestServiceRegistrationHappyPath(t *testing.T) {
	svc, otp, be, _ := newTestService(t)
	w := walkToOTP(t, svc)
	assert.Equal(t, []string{"nadia@example.com"}, otp.sent)
	assert.True(t, w.OTP.Started())

	w, err := svc.VerifyOTP(context.Background(), w.ID, "123456")
	require.NoError(t, err)
	assert.True(t, w.Completed)
	assert.Empty(t, w.Data)
	require.Len(t, be.requests, 1)
	assert.Equal(t, "auth/register", be.requests[0].Path)
	assert.Equal(t, http.MethodPost, be.requests[0].Method)
	assert.True(t, be.requests[0].Anonymous)
}

func TestServiceRejectsMalformedCodeLocally(t *testing.T) {
	svc, _, be, _ := newTestService(t)
	w := walkToOTP(t, svc)

	w, err := svc.VerifyOTP(context.Background(), w.ID, "12ab")
	require.NoError(t, err)
	assert.NotEmpty(t, w.Errors["otp"])
	assert.False(t, w.OTP.Verified)
	assert.Empty(t, be.requests)
}

func TestServiceWrongCodeStaysOnStep(t *testing.T) {
	svc, otp, be, _ := newTestService(t)
	w := walkToOTP(t, svc)
	otp.verifyErr = pkgerrors.New(pkgerrors.CodeValidation, "Invalid OTP")

	w, err := svc.VerifyOTP(context.Background(), w.ID, "000000")
	require.NoError(t, err)
	assert.Equal(t, "Invalid OTP", w.Errors["otp"])
	assert.False(t, w.Completed)
	assert.Empty(t, be.requests)
}

func TestServiceRegistrationFailureKeepsVerification(t *testing.T) {
	svc, _, be, _ := newTestService(t)
	w := walkToOTP(t, svc)
	be.err = pkgerrors.New(pkgerrors.CodeConflict, "Email already registered")

	w, err := svc.VerifyOTP(context.Background(), w.ID, "123456")
	require.NoError(t, err)
	assert.True(t, w.OTP.Verified)
	assert.False(t, w.Completed)
	assert.Equal(t, "Email already registered", w.Errors[FormErrorKey])
	assert.Equal(t, "Nadia", w.Data["firstName"])

	be.err = nil
	w, err = svc.Advance(context.Background(), w.ID, nil)
	require.NoError(t, err)
	assert.True(t, w.Completed)
	assert.Len(t, be.requests, 2)
}

func TestServiceResendWaitsForCountdown(t *testing.T) {
	svc, otp, _, clk := newTestService(t)
	w := walkToOTP(t, svc)

	_, err := svc.ResendOTP(context.Background(), w.ID)
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeRateLimit, pkgerrors.As(err).Code())

	clk.now = clk.now.Add(2 * time.Minute)
	w, err = svc.ResendOTP(context.Background(), w.ID)
	require.NoError(t, err)
	assert.Len(t, otp.sent, 2)
	assert.Equal(t, 2, w.OTP.Sends)
	assert.Equal(t, 2*time.Minute, w.OTP.Remaining(clk.now))
}

func TestServiceReenteringOTPKeepsRunningCountdown(t *testing.T) {
	svc, otp, _, clk := newTestService(t)
	ctx := context.Background()
	w := walkToOTP(t, svc)

	clk.now = clk.now.Add(5 * time.Second)
	w, err := svc.Back(ctx, w.ID)
	require.NoError(t, err)
	w, err = svc.Advance(ctx, w.ID, nil)
	require.NoError(t, err)
	assert.Equal(t, StepOTP, w.Current(Registration()).ID)
	assert.Len(t, otp.sent, 1, "no new code while the countdown runs")
	assert.Equal(t, 115*time.Second, w.OTP.Remaining(clk.now))

	clk.now = clk.now.Add(2 * time.Minute)
	w, err = svc.Back(ctx, w.ID)
	require.NoError(t, err)
	w, err = svc.Advance(ctx, w.ID, nil)
	require.NoError(t, err)
	assert.Len(t, otp.sent, 2, "an expired code is replaced on re-entry")
	assert.Equal(t, 2, w.OTP.Sends)
}

func TestServiceChangedEmailNeedsNewVerification(t *testing.T) {
	svc, otp, be, _ := newTestService(t)
	ctx := context.Background()
	w := walkToOTP(t, svc)
	be.err = pkgerrors.New(pkgerrors.CodeDependency, "backend down")

	w, err := svc.VerifyOTP(ctx, w.ID, "123456")
	require.NoError(t, err)
	require.True(t, w.OTP.Verified)
	require.False(t, w.Completed)
	be.err = nil

	for i := 0; i < 3; i++ {
		w, err = svc.Back(ctx, w.ID)
		require.NoError(t, err)
	}
	require.Equal(t, "personal", w.Current(Registration()).ID)

	w, err = svc.Advance(ctx, w.ID, map[string]string{"email": "attacker@evil.com"})
	require.NoError(t, err)
	assert.False(t, w.OTP.Verified)
	for i := 0; i < 2; i++ {
		w, err = svc.Advance(ctx, w.ID, nil)
		require.NoError(t, err)
		require.Empty(t, w.Errors)
	}
	require.Equal(t, StepOTP, w.Current(Registration()).ID)
	assert.Equal(t, []string{"nadia@example.com", "attacker@evil.com"}, otp.sent)

	w, err = svc.Advance(ctx, w.ID, nil)
	require.NoError(t, err)
	assert.False(t, w.Completed)
	assert.NotEmpty(t, w.Errors["otp"])
	assert.Len(t, be.requests, 1, "only the failed submission reached the backend")
}

func TestServiceTuitionSubmitsFromReview(t *testing.T) {
	svc, _, be, _ := newTestService(t)
	ctx := context.Background()
	w, err := svc.Start(ctx, FlowTuition)
	require.NoError(t, err)

	inputs := []map[string]string{
		{"studentName": "Ayan", "studentClass": "8", "guardianPhone": "01800000000"},
		{"subjects": "Math, English", "medium": "english"},
		{"district": "dhaka", "area": "Uttara", "daysPerWeek": "3", "preferredTime": "Evening", "salary": "6000"},
	}
	for _, input := range inputs {
		w, err = svc.Advance(ctx, w.ID, input)
		require.NoError(t, err)
		require.Empty(t, w.Errors)
	}
	assert.Equal(t, "review", w.Current(Tuition()).ID)
	assert.Empty(t, be.requests)

	w, err = svc.Advance(ctx, w.ID, nil)
	require.NoError(t, err)
	assert.True(t, w.Completed)
	require.Len(t, be.requests, 1)
	assert.Equal(t, "tutor-jobs/create", be.requests[0].Path)
	assert.False(t, be.requests[0].Anonymous)
}

func TestServiceUnknownFlowAndDraft(t *testing.T) {
	svc, _, _, _ := newTestService(t)
	_, err := svc.Start(context.Background(), "nope")
	assert.Equal(t, pkgerrors.CodeNotFound, pkgerrors.As(err).Code())

	_, err = svc.Load(context.Background(), "missing")
	assert.Equal(t, pkgerrors.CodeNotFound, pkgerrors.As(err).Code())
}
