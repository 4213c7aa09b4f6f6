package wizard

import (
	"errors"
	"strings"
	"time"

	"github.com/angelmondragon/storefront/pkg/validation"
)

var (
	ErrCompleted     = errors.New("wizard already completed")
	ErrOTPPending    = errors.New("verify the code to continue")
	ErrResendTooSoon = errors.New("code can be resent once the timer expires")
	ErrOTPNotStarted = errors.New("no verification code has been sent")
)

// OTP is the one-time-code sub-state of the otp step.
type OTP struct {
	SentAt    time.Time `json:"sentAt,omitempty"`
	ExpiresAt time.Time `json:"expiresAt,omitempty"`
	Verified  bool      `json:"verified"`
	Sends     int       `json:"sends"`
	// Email is the address the current code was sent to.
	Email string `json:"email,omitempty"`
}

// Start arms the countdown.
func (o *OTP) Start(now time.Time, ttl time.Duration) {
	o.SentAt = now
	o.ExpiresAt = now.Add(ttl)
	o.Sends++
}

func (o OTP) Started() bool {
	return !o.SentAt.IsZero()
}

// Remaining is the countdown shown next to the resend button.
func (o OTP) Remaining(now time.Time) time.Duration {
	if !o.Started() || !now.Before(o.ExpiresAt) {
		return 0
	}
	return o.ExpiresAt.Sub(now)
}

// Covers reports whether the code was issued for email.
func (o OTP) Covers(email string) bool {
	return o.Email != "" && o.Email == normalizeEmail(email)
}

// CanResend is true only after the countdown expired.
func (o OTP) CanResend(now time.Time) bool {
	return o.Started() && !o.Verified && o.Remaining(now) == 0
}

// Wizard is the draft of one multi-step form.
type Wizard struct {
	ID        string            `json:"id"`
	Flow      string            `json:"flow"`
	Step      int               `json:"step"`
	Data      map[string]string `json:"data"`
	Errors    map[string]string `json:"errors,omitempty"`
	OTP       OTP               `json:"otp"`
	Completed bool              `json:"completed"`
}

func New(id string, flow Flow) *Wizard {
	return &Wizard{ID: id, Flow: flow.Name, Data: map[string]string{}}
}

// Current returns the step the wizard is on.
func (w *Wizard) Current(flow Flow) Step {
	step, _ := flow.Step(w.Step)
	return step
}

// Collect merges input for the current step's fields into Data and
// validates them. It returns field-scoped messages; an empty map means the
// step is valid.
func (w *Wizard) Collect(flow Flow, input map[string]string) map[string]string {
	step := w.Current(flow)
	if w.Data == nil {
		w.Data = map[string]string{}
	}
	for _, field := range step.Fields {
		if value, ok := input[field.Name]; ok {
			w.Data[field.Name] = strings.TrimSpace(value)
		}
	}
	// a code, sent or verified, only vouches for the address it went to
	if w.OTP.Email != "" && !w.OTP.Covers(w.Data["email"]) {
		w.OTP = OTP{}
	}
	return validateStep(step, w.Data)
}

// Advance validates the current step and moves forward one step. Failed
// validation records Errors and leaves the step unchanged. The otp step and
// the step before submission are left through the service, never here.
func (w *Wizard) Advance(flow Flow, input map[string]string) (bool, error) {
	if w.Completed {
		return false, ErrCompleted
	}
	step := w.Current(flow)
	if step.ID == StepOTP {
		return false, ErrOTPPending
	}
	errs := w.Collect(flow, input)
	if len(errs) > 0 {
		w.Errors = errs
		return false, nil
	}
	w.Errors = nil
	if w.Step+1 < len(flow.Steps) {
		w.Step++
	}
	return true, nil
}

// Back moves one step backward and keeps every entered value.
func (w *Wizard) Back() bool {
	if w.Completed || w.Step == 0 {
		return false
	}
	w.Step--
	w.Errors = nil
	return true
}

// ReadyToSubmit reports whether the next forward move submits the flow.
func (w *Wizard) ReadyToSubmit(flow Flow) bool {
	next, ok := flow.Step(w.Step + 1)
	if !ok || next.ID != StepSuccess {
		return false
	}
	current := w.Current(flow)
	if current.ID == StepOTP {
		return w.OTP.Verified && w.OTP.Covers(w.Data["email"])
	}
	return true
}

// Complete moves to the success step and drops collected data.
func (w *Wizard) Complete(flow Flow) {
	w.Step = flow.IndexOf(StepSuccess)
	w.Completed = true
	w.Errors = nil
	w.Data = map[string]string{}
}

// StepNumber is the 1-based position shown to the user.
func (w *Wizard) StepNumber() int {
	return w.Step + 1
}

func validateStep(step Step, data map[string]string) map[string]string {
	errs := map[string]string{}
	for _, field := range step.Fields {
		if field.Rules == "" {
			continue
		}
		// the otp code is checked by the backend, not collected here
		if step.ID == StepOTP {
			continue
		}
		value := data[field.Name]
		if msg := validation.Var(value, field.Rules); msg != "" {
			errs[field.Name] = msg
			continue
		}
		if field.MatchField != "" && value != data[field.MatchField] {
			errs[field.Name] = "Passwords do not match"
		}
	}
	return errs
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
