package controllers

import (
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/angelmondragon/storefront/api/responses"
	"github.com/angelmondragon/storefront/internal/catalog"
	"github.com/angelmondragon/storefront/internal/normalize"
	"github.com/angelmondragon/storefront/internal/wizard"
	pkgerrors "github.com/angelmondragon/storefront/pkg/errors"
	"github.com/angelmondragon/storefront/pkg/logger"
)

const maxWizardBody = 64 << 10

// WizardPage is the data for the wizard template.
type WizardPage struct {
	Wizard           *wizard.Wizard
	Flow             wizard.Flow
	Step             wizard.Step
	Districts        []normalize.District
	RemainingSeconds int
	CanResend        bool
	Action           string
}

// WizardRoutes serves one flow's pages under base, e.g. /register.
type WizardRoutes struct {
	Flow       string
	Base       string
	NeedsLogin bool
	Wizards    wizard.Service
	Catalog    catalog.Service
	Views      Renderer
	Logger     *logger.Logger
}

func (wr WizardRoutes) action(id string) string {
	return wr.Base + "/" + url.PathEscape(id)
}

// Start creates a draft and redirects to its first step.
func (wr WizardRoutes) Start() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if wr.NeedsLogin && requireLogin(w, r) {
			return
		}
		draft, err := wr.Wizards.Start(r.Context(), wr.Flow)
		if err != nil {
			renderError(w, r, wr.Views, wr.Logger, err)
			return
		}
		http.Redirect(w, r, wr.action(draft.ID), http.StatusSeeOther)
	}
}

// Show renders the draft's current step.
func (wr WizardRoutes) Show() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if wr.NeedsLogin && requireLogin(w, r) {
			return
		}
		draft, err := wr.Wizards.Load(r.Context(), chi.URLParam(r, "wizardId"))
		if err != nil {
			wr.expired(w, r, err)
			return
		}
		wr.render(w, r, http.StatusOK, draft)
	}
}

func (wr WizardRoutes) Next() http.HandlerFunc {
	return wr.post(func(r *http.Request, id string) (*wizard.Wizard, error) {
		return wr.Wizards.Advance(r.Context(), id, formValues(r))
	})
}

func (wr WizardRoutes) Back() http.HandlerFunc {
	return wr.post(func(r *http.Request, id string) (*wizard.Wizard, error) {
		return wr.Wizards.Back(r.Context(), id)
	})
}

func (wr WizardRoutes) Resend() http.HandlerFunc {
	return wr.post(func(r *http.Request, id string) (*wizard.Wizard, error) {
		return wr.Wizards.ResendOTP(r.Context(), id)
	})
}

func (wr WizardRoutes) Verify() http.HandlerFunc {
	return wr.post(func(r *http.Request, id string) (*wizard.Wizard, error) {
		return wr.Wizards.VerifyOTP(r.Context(), id, r.PostFormValue("otp"))
	})
}

// post runs a wizard transition. Field errors re-render the step with 422;
// a successful move redirects so reloads do not resubmit.
func (wr WizardRoutes) post(step func(r *http.Request, id string) (*wizard.Wizard, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if wr.NeedsLogin && requireLogin(w, r) {
			return
		}
		if err := r.ParseForm(); err != nil {
			renderError(w, r, wr.Views, wr.Logger, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid form"))
			return
		}
		id := chi.URLParam(r, "wizardId")
		draft, err := step(r, id)
		if err != nil {
			if typed := pkgerrors.As(err); typed != nil && typed.Code() != pkgerrors.CodeNotFound {
				setFlash(w, publicMessage(err))
				http.Redirect(w, r, wr.action(id), http.StatusSeeOther)
				return
			}
			wr.expired(w, r, err)
			return
		}
		if len(draft.Errors) > 0 {
			wr.render(w, r, http.StatusUnprocessableEntity, draft)
			return
		}
		http.Redirect(w, r, wr.action(draft.ID), http.StatusSeeOther)
	}
}

func (wr WizardRoutes) expired(w http.ResponseWriter, r *http.Request, err error) {
	if typed := pkgerrors.As(err); typed != nil && typed.Code() == pkgerrors.CodeNotFound {
		setFlash(w, "That form expired, please start again")
		http.Redirect(w, r, wr.Base, http.StatusSeeOther)
		return
	}
	renderError(w, r, wr.Views, wr.Logger, err)
}

func (wr WizardRoutes) render(w http.ResponseWriter, r *http.Request, status int, draft *wizard.Wizard) {
	if draft.Flow != wr.Flow {
		renderError(w, r, wr.Views, wr.Logger, pkgerrors.New(pkgerrors.CodeNotFound, "form not found"))
		return
	}
	flow, _ := wizard.Lookup(draft.Flow)
	step := draft.Current(flow)
	now := wr.Wizards.Now()
	data := WizardPage{
		Wizard:           draft,
		Flow:             flow,
		Step:             step,
		RemainingSeconds: int(draft.OTP.Remaining(now).Seconds()),
		CanResend:        draft.OTP.CanResend(now),
		Action:           wr.action(draft.ID),
	}
	if needsDistricts(step) && wr.Catalog != nil {
		if districts, err := wr.Catalog.Districts(r.Context()); err == nil {
			data.Districts = districts.Rows
		}
	}
	render(w, r, wr.Views, wr.Logger, status, "wizard", step.Title, data)
}

func needsDistricts(step wizard.Step) bool {
	for _, field := range step.Fields {
		if field.Kind == "district" {
			return true
		}
	}
	return false
}

func formValues(r *http.Request) map[string]string {
	out := make(map[string]string, len(r.PostForm))
	for key := range r.PostForm {
		out[key] = r.PostForm.Get(key)
	}
	return out
}

// WizardView is the JSON shape of a draft. Secret fields are never echoed.
type WizardView struct {
	ID         string            `json:"id"`
	Flow       string            `json:"flow"`
	Step       string            `json:"step"`
	StepNumber int               `json:"stepNumber"`
	TotalSteps int               `json:"totalSteps"`
	Fields     []fieldView       `json:"fields"`
	Data       map[string]string `json:"data"`
	Errors     map[string]string `json:"errors,omitempty"`
	Completed  bool              `json:"completed"`
	OTP        *otpView          `json:"otp,omitempty"`
}

type fieldView struct {
	Name    string   `json:"name"`
	Label   string   `json:"label"`
	Kind    string   `json:"kind"`
	Options []string `json:"options,omitempty"`
}

type otpView struct {
	RemainingSeconds int  `json:"remainingSeconds"`
	CanResend        bool `json:"canResend"`
	Verified         bool `json:"verified"`
}

func newWizardView(svc wizard.Service, draft *wizard.Wizard) WizardView {
	flow, _ := wizard.Lookup(draft.Flow)
	step := draft.Current(flow)
	view := WizardView{
		ID:         draft.ID,
		Flow:       draft.Flow,
		Step:       step.ID,
		StepNumber: draft.StepNumber(),
		TotalSteps: len(flow.Steps),
		Fields:     make([]fieldView, 0, len(step.Fields)),
		Data:       map[string]string{},
		Errors:     draft.Errors,
		Completed:  draft.Completed,
	}
	for _, field := range step.Fields {
		view.Fields = append(view.Fields, fieldView{Name: field.Name, Label: field.Label, Kind: field.Kind, Options: field.Options})
	}
	secret := secretFields(flow)
	for k, v := range draft.Data {
		if !secret[k] {
			view.Data[k] = v
		}
	}
	if step.ID == wizard.StepOTP {
		now := svc.Now()
		view.OTP = &otpView{
			RemainingSeconds: int(draft.OTP.Remaining(now).Seconds()),
			CanResend:        draft.OTP.CanResend(now),
			Verified:         draft.OTP.Verified,
		}
	}
	return view
}

func secretFields(flow wizard.Flow) map[string]bool {
	out := map[string]bool{}
	for _, step := range flow.Steps {
		for _, field := range step.Fields {
			if field.Kind == "password" || field.Kind == "otp" {
				out[field.Name] = true
			}
		}
	}
	return out
}

type wizardStartRequest struct {
	Flow string `json:"flow"`
}

func WizardStartJSON(svc wizard.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body wizardStartRequest
		if err := decodeWizardBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		draft, err := svc.Start(r.Context(), strings.TrimSpace(body.Flow))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, newWizardView(svc, draft))
	}
}

func WizardGetJSON(svc wizard.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		draft, err := svc.Load(r.Context(), chi.URLParam(r, "wizardId"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newWizardView(svc, draft))
	}
}

func WizardNextJSON(svc wizard.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		input := map[string]string{}
		if err := decodeWizardBody(r, &input); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		draft, err := svc.Advance(r.Context(), chi.URLParam(r, "wizardId"), input)
		writeWizard(w, r, svc, logg, draft, err)
	}
}

func WizardBackJSON(svc wizard.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		draft, err := svc.Back(r.Context(), chi.URLParam(r, "wizardId"))
		writeWizard(w, r, svc, logg, draft, err)
	}
}

func WizardResendJSON(svc wizard.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		draft, err := svc.ResendOTP(r.Context(), chi.URLParam(r, "wizardId"))
		writeWizard(w, r, svc, logg, draft, err)
	}
}

func WizardVerifyJSON(svc wizard.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			OTP string `json:"otp"`
		}
		if err := decodeWizardBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		draft, err := svc.VerifyOTP(r.Context(), chi.URLParam(r, "wizardId"), body.OTP)
		writeWizard(w, r, svc, logg, draft, err)
	}
}

// writeWizard answers 422 with the draft when a step failed validation so
// clients can show inline errors.
func writeWizard(w http.ResponseWriter, r *http.Request, svc wizard.Service, logg *logger.Logger, draft *wizard.Wizard, err error) {
	if err != nil {
		responses.WriteError(r.Context(), logg, w, err)
		return
	}
	if len(draft.Errors) > 0 {
		responses.WriteSuccessStatus(w, http.StatusUnprocessableEntity, newWizardView(svc, draft))
		return
	}
	responses.WriteSuccess(w, newWizardView(svc, draft))
}

func decodeWizardBody(r *http.Request, dest any) error {
	raw, err := io.ReadAll(io.LimitReader(r.Body, maxWizardBody))
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid request body")
	}
	if len(strings.TrimSpace(string(raw))) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, dest); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid request body")
	}
	return nil
}
