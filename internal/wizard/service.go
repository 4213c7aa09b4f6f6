package wizard

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/angelmondragon/storefront/internal/auth"
	"github.com/angelmondragon/storefront/pkg/backend"
	pkgerrors "github.com/angelmondragon/storefront/pkg/errors"
	"github.com/angelmondragon/storefront/pkg/logger"
	"github.com/angelmondragon/storefront/pkg/validation"
	"github.com/google/uuid"
)

// FormErrorKey holds errors that belong to the whole step rather than a field.
const FormErrorKey = "_form"

// Service drives wizard drafts through their flows.
type Service interface {
	Start(ctx context.Context, flowName string) (*Wizard, error)
	Load(ctx context.Context, id string) (*Wizard, error)
	Advance(ctx context.Context, id string, input map[string]string) (*Wizard, error)
	Back(ctx context.Context, id string) (*Wizard, error)
	ResendOTP(ctx context.Context, id string) (*Wizard, error)
	VerifyOTP(ctx context.Context, id, code string) (*Wizard, error)
	Now() time.Time
}

type drafts interface {
	Save(ctx context.Context, w *Wizard) error
	Load(ctx context.Context, id string) (*Wizard, error)
}

type otpSender interface {
	SendOTP(ctx context.Context, req auth.SendOTPRequest) error
	VerifyOTP(ctx context.Context, req auth.VerifyOTPRequest) error
}

type backendCaller interface {
	Do(ctx context.Context, req backend.Request) ([]byte, error)
}

type ServiceParams struct {
	Drafts  drafts
	OTP     otpSender
	Backend backendCaller
	OTPTTL  time.Duration
	Logger  *logger.Logger
	Clock   func() time.Time
}

type service struct {
	drafts  drafts
	otp     otpSender
	backend backendCaller
	otpTTL  time.Duration
	logg    *logger.Logger
	now     func() time.Time
}

func NewService(params ServiceParams) (Service, error) {
	if params.Drafts == nil {
		return nil, fmt.Errorf("draft store is required")
	}
	if params.OTP == nil {
		return nil, fmt.Errorf("otp sender is required")
	}
	if params.Backend == nil {
		return nil, fmt.Errorf("backend client is required")
	}
	ttl := params.OTPTTL
	if ttl <= 0 {
		ttl = 2 * time.Minute
	}
	clock := params.Clock
	if clock == nil {
		clock = time.Now
	}
	return &service{
		drafts:  params.Drafts,
		otp:     params.OTP,
		backend: params.Backend,
		otpTTL:  ttl,
		logg:    params.Logger,
		now:     clock,
	}, nil
}

func (s *service) Now() time.Time {
	return s.now()
}

func (s *service) Start(ctx context.Context, flowName string) (*Wizard, error) {
	flow, ok := Lookup(flowName)
	if !ok {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "unknown form")
	}
	w := New(uuid.NewString(), flow)
	if err := s.save(ctx, w); err != nil {
		return nil, err
	}
	return w, nil
}

func (s *service) Load(ctx context.Context, id string) (*Wizard, error) {
	w, _, err := s.load(ctx, id)
	return w, err
}

// Advance validates the current step and moves forward. Invalid input is
// not an error: the returned wizard carries field errors and stays put.
func (s *service) Advance(ctx context.Context, id string, input map[string]string) (*Wizard, error) {
	w, flow, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if w.Completed {
		return w, nil
	}

	if w.ReadyToSubmit(flow) {
		if w.Current(flow).ID != StepOTP {
			if errs := w.Collect(flow, input); len(errs) > 0 {
				w.Errors = errs
				return w, s.save(ctx, w)
			}
		}
		s.submit(ctx, w, flow)
		return w, s.save(ctx, w)
	}

	moved, err := w.Advance(flow, input)
	if err != nil {
		if errors.Is(err, ErrOTPPending) {
			w.Errors = map[string]string{"otp": err.Error()}
			return w, s.save(ctx, w)
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeStateConflict, err, err.Error())
	}
	if moved && w.Current(flow).ID == StepOTP {
		s.enterOTP(ctx, w)
	}
	return w, s.save(ctx, w)
}

// enterOTP sends a code when the otp step is reached, unless the address is
// already verified or its countdown is still running.
func (s *service) enterOTP(ctx context.Context, w *Wizard) {
	if w.OTP.Email != "" && !w.OTP.Covers(w.Data["email"]) {
		w.OTP = OTP{}
	}
	switch {
	case w.OTP.Verified:
		return
	case w.OTP.Started() && !w.OTP.CanResend(s.now()):
		return
	}
	s.sendOTP(ctx, w)
}

func (s *service) Back(ctx context.Context, id string) (*Wizard, error) {
	w, _, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if w.Back() {
		if err := s.save(ctx, w); err != nil {
			return nil, err
		}
	}
	return w, nil
}

// ResendOTP sends a fresh code once the previous countdown has expired.
func (s *service) ResendOTP(ctx context.Context, id string) (*Wizard, error) {
	w, flow, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if w.Current(flow).ID != StepOTP {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, ErrOTPNotStarted.Error())
	}
	if !w.OTP.CanResend(s.now()) {
		return nil, pkgerrors.New(pkgerrors.CodeRateLimit, ErrResendTooSoon.Error()).
			WithDetails(map[string]int{"retryAfterSeconds": int(w.OTP.Remaining(s.now()).Seconds())})
	}
	s.sendOTP(ctx, w)
	return w, s.save(ctx, w)
}

// VerifyOTP checks the code with the backend and, when it matches, submits
// the registration. A failed submission leaves the wizard verified on the
// otp step so the user can retry without a new code.
func (s *service) VerifyOTP(ctx context.Context, id, code string) (*Wizard, error) {
	w, flow, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	step := w.Current(flow)
	if step.ID != StepOTP {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, ErrOTPNotStarted.Error())
	}

	if !w.OTP.Verified {
		code = strings.TrimSpace(code)
		if msg := validation.Var(code, otpRules(step)); msg != "" {
			w.Errors = map[string]string{"otp": msg}
			return w, s.save(ctx, w)
		}
		err := s.otp.VerifyOTP(ctx, auth.VerifyOTPRequest{Email: w.Data["email"], OTP: code})
		if err != nil {
			w.Errors = map[string]string{"otp": userMessage(err, "The code is invalid or expired")}
			return w, s.save(ctx, w)
		}
		w.OTP.Verified = true
		w.OTP.Email = normalizeEmail(w.Data["email"])
		w.Errors = nil
	}

	s.submit(ctx, w, flow)
	return w, s.save(ctx, w)
}

func (s *service) submit(ctx context.Context, w *Wizard, flow Flow) {
	req := backend.Request{
		Op:     flow.SubmitOp,
		Method: http.MethodPost,
		Path:   flow.SubmitPath,
		Body:   flow.Payload(w.Data),
		// registration happens before the user has a session
		Anonymous: flow.RequiresOTP(),
	}
	if _, err := s.backend.Do(ctx, req); err != nil {
		if fields := validation.Fields(err); len(fields) > 0 {
			w.Errors = fields
		} else {
			w.Errors = map[string]string{FormErrorKey: userMessage(err, "Submission failed, please try again")}
		}
		s.warn(ctx, w, "wizard.submit.failed", err)
		return
	}
	w.Complete(flow)
	if s.logg != nil {
		s.logg.Info(s.logg.WithFields(ctx, map[string]any{"wizard_id": w.ID, "flow": w.Flow}), "wizard.completed")
	}
}

func (s *service) sendOTP(ctx context.Context, w *Wizard) {
	email := w.Data["email"]
	err := s.otp.SendOTP(ctx, auth.SendOTPRequest{Email: email})
	if err != nil {
		w.Errors = map[string]string{FormErrorKey: userMessage(err, "We could not send the code, try again shortly")}
		s.warn(ctx, w, "wizard.otp.send_failed", err)
		return
	}
	w.OTP.Start(s.now(), s.otpTTL)
	w.OTP.Email = normalizeEmail(email)
}

func (s *service) load(ctx context.Context, id string) (*Wizard, Flow, error) {
	w, err := s.drafts.Load(ctx, id)
	if err != nil {
		if errors.Is(err, ErrDraftNotFound) {
			return nil, Flow{}, pkgerrors.New(pkgerrors.CodeNotFound, "form session expired")
		}
		return nil, Flow{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load wizard")
	}
	flow, ok := Lookup(w.Flow)
	if !ok {
		return nil, Flow{}, pkgerrors.New(pkgerrors.CodeNotFound, "unknown form")
	}
	return w, flow, nil
}

func (s *service) save(ctx context.Context, w *Wizard) error {
	if err := s.drafts.Save(ctx, w); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "save wizard")
	}
	return nil
}

func (s *service) warn(ctx context.Context, w *Wizard, msg string, err error) {
	if s.logg == nil {
		return
	}
	s.logg.Warn(s.logg.WithFields(ctx, map[string]any{
		"wizard_id": w.ID,
		"flow":      w.Flow,
		"error":     err.Error(),
	}), msg)
}

func otpRules(step Step) string {
	for _, field := range step.Fields {
		if field.Name == "otp" {
			return field.Rules
		}
	}
	return "required"
}

func userMessage(err error, fallback string) string {
	typed := pkgerrors.As(err)
	if typed == nil || typed.Message() == "" || !pkgerrors.MetadataFor(typed.Code()).ExposeMessage {
		return fallback
	}
	return typed.Message()
}
