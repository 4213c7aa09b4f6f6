package wizard

import (
	"strings"
)

const (
	FlowRegistration = "registration"
	FlowTuition      = "tuition"

	StepOTP     = "otp"
	StepSuccess = "success"
)

// Field is one input on a step. Rules are validator tags.
type Field struct {
	Name       string
	Label      string
	Kind       string
	Rules      string
	Options    []string
	MatchField string
}

type Step struct {
	ID     string
	Title  string
	Fields []Field
}

// Flow is an ordered list of steps ending in a success step.
type Flow struct {
	Name  string
	Steps []Step
	// SubmitOp and SubmitPath name the backend call made once every step is done.
	SubmitOp   string
	SubmitPath string
	payload    func(data map[string]string) map[string]any
}

func (f Flow) Step(index int) (Step, bool) {
	if index < 0 || index >= len(f.Steps) {
		return Step{}, false
	}
	return f.Steps[index], true
}

func (f Flow) IndexOf(stepID string) int {
	for i, step := range f.Steps {
		if step.ID == stepID {
			return i
		}
	}
	return -1
}

// RequiresOTP reports whether the flow verifies a one-time code before submitting.
func (f Flow) RequiresOTP() bool {
	return f.IndexOf(StepOTP) >= 0
}

// Payload builds the submission body from collected data.
func (f Flow) Payload(data map[string]string) map[string]any {
	if f.payload != nil {
		return f.payload(data)
	}
	out := make(map[string]any, len(data))
	for k, v := range data {
		out[k] = v
	}
	return out
}

// Flows returns the registered flows by name.
func Flows() map[string]Flow {
	return map[string]Flow{
		FlowRegistration: Registration(),
		FlowTuition:      Tuition(),
	}
}

// Registration is role, personal, password, location, otp, success.
func Registration() Flow {
	return Flow{
		Name: FlowRegistration,
		Steps: []Step{
			{ID: "role", Title: "Choose your role", Fields: []Field{
				{Name: "role", Label: "I am a", Kind: "select", Rules: "required,oneof=student tutor", Options: []string{"student", "tutor"}},
			}},
			{ID: "personal", Title: "Personal information", Fields: []Field{
				{Name: "firstName", Label: "First name", Kind: "text", Rules: "required,max=60"},
				{Name: "lastName", Label: "Last name", Kind: "text", Rules: "required,max=60"},
				{Name: "email", Label: "Email", Kind: "email", Rules: "required,email"},
				{Name: "phone", Label: "Phone", Kind: "tel", Rules: "required,min=7,max=20"},
			}},
			{ID: "password", Title: "Create a password", Fields: []Field{
				{Name: "password", Label: "Password", Kind: "password", Rules: "required,min=8,max=72"},
				{Name: "confirmPassword", Label: "Confirm password", Kind: "password", Rules: "required", MatchField: "password"},
			}},
			{ID: "location", Title: "Where are you?", Fields: []Field{
				{Name: "district", Label: "District", Kind: "district", Rules: "required"},
				{Name: "area", Label: "Area", Kind: "text", Rules: "required,max=120"},
				{Name: "address", Label: "Address", Kind: "text", Rules: "omitempty,max=255"},
			}},
			{ID: StepOTP, Title: "Verify your email", Fields: []Field{
				{Name: "otp", Label: "Verification code", Kind: "otp", Rules: "required,len=6,numeric"},
			}},
			{ID: StepSuccess, Title: "You're all set"},
		},
		SubmitOp:   "auth.register",
		SubmitPath: "auth/register",
		payload: func(data map[string]string) map[string]any {
			first, last := data["firstName"], data["lastName"]
			return map[string]any{
				"firstName": first,
				"lastName":  last,
				"name":      strings.TrimSpace(first + " " + last),
				"email":     strings.ToLower(data["email"]),
				"phone":     data["phone"],
				"password":  data["password"],
				"role":      data["role"],
				"district":  data["district"],
				"area":      data["area"],
				"address":   data["address"],
			}
		},
	}
}

// Tuition is student, subjects, schedule, review, success.
func Tuition() Flow {
	return Flow{
		Name: FlowTuition,
		Steps: []Step{
			{ID: "student", Title: "About the student", Fields: []Field{
				{Name: "studentName", Label: "Student name", Kind: "text", Rules: "required,max=120"},
				{Name: "studentClass", Label: "Class / grade", Kind: "text", Rules: "required,max=40"},
				{Name: "institution", Label: "School or college", Kind: "text", Rules: "omitempty,max=160"},
				{Name: "guardianPhone", Label: "Guardian phone", Kind: "tel", Rules: "required,min=7,max=20"},
			}},
			{ID: "subjects", Title: "Subjects", Fields: []Field{
				{Name: "subjects", Label: "Subjects (comma separated)", Kind: "text", Rules: "required,max=300"},
				{Name: "medium", Label: "Medium", Kind: "select", Rules: "required,oneof=bangla english", Options: []string{"bangla", "english"}},
			}},
			{ID: "schedule", Title: "Schedule and budget", Fields: []Field{
				{Name: "district", Label: "District", Kind: "district", Rules: "required"},
				{Name: "area", Label: "Area", Kind: "text", Rules: "required,max=120"},
				{Name: "daysPerWeek", Label: "Days per week", Kind: "number", Rules: "required,oneof=1 2 3 4 5 6 7"},
				{Name: "preferredTime", Label: "Preferred time", Kind: "text", Rules: "required,max=60"},
				{Name: "salary", Label: "Monthly salary", Kind: "number", Rules: "required,numeric,max=9"},
				{Name: "tutorGender", Label: "Preferred tutor", Kind: "select", Rules: "omitempty,oneof=any male female", Options: []string{"any", "male", "female"}},
			}},
			{ID: "review", Title: "Review and submit"},
			{ID: StepSuccess, Title: "Request posted"},
		},
		SubmitOp:   "tutor_jobs.create",
		SubmitPath: "tutor-jobs/create",
		payload: func(data map[string]string) map[string]any {
			subjects := []string{}
			for _, s := range strings.Split(data["subjects"], ",") {
				if trimmed := strings.TrimSpace(s); trimmed != "" {
					subjects = append(subjects, trimmed)
				}
			}
			gender := data["tutorGender"]
			if gender == "" {
				gender = "any"
			}
			return map[string]any{
				"studentName":   data["studentName"],
				"studentClass":  data["studentClass"],
				"institution":   data["institution"],
				"guardianPhone": data["guardianPhone"],
				"subjects":      subjects,
				"medium":        data["medium"],
				"district":      data["district"],
				"area":          data["area"],
				"daysPerWeek":   data["daysPerWeek"],
				"preferredTime": data["preferredTime"],
				"salary":        data["salary"],
				"tutorGender":   gender,
			}
		},
	}
}

// Lookup returns the named flow.
func Lookup(name string) (Flow, bool) {
	flow, ok := Flows()[name]
	return flow, ok
}
