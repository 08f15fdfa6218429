package validation

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/go-playground/validator/v10"

	"github.com/opsdesk-api/internal/models"
)

func newValidator(t *testing.T) *validator.Validate {
	t.Helper()
	v := validator.New()
	v.SetTagName("binding")
	if err := Register(v); err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	return v
}

func fields(errs []ValidationError) []string {
	out := make([]string, 0, len(errs))
	for _, e := range errs {
		out = append(out, e.Field)
	}
	return out
}

func TestRequestValidation(t *testing.T) {
	v := newValidator(t)
	active := true

	tests := []struct {
		name       string
		req        interface{}
		wantFields []string
	}{
		{
			name: "valid job",
			req:  &models.CreateJobRequest{Title: "Roof repair"},
		},
		{
			name:       "blank job title",
			req:        &models.CreateJobRequest{Title: "   "},
			wantFields: []string{"title"},
		},
		{
			name:       "missing staff name",
			req:        &models.StaffActionRequest{},
			wantFields: []string{"staff_name"},
		},
		{
			name:       "unknown role",
			req:        &models.UpdateRoleRequest{Role: "owner"},
			wantFields: []string{"role"},
		},
		{
			name:       "bad email on new user",
			req:        &models.CreateUserRequest{AuthUserID: "a1", FullName: "Nia", Email: "nia", Role: models.RoleStaff},
			wantFields: []string{"email"},
		},
		{
			name:       "missing active flag",
			req:        &models.SetActiveRequest{},
			wantFields: []string{"active"},
		},
		{
			name: "active flag false is present",
			req:  &models.SetActiveRequest{Active: &active},
		},
		{
			name:       "status log type reserved for transitions",
			req:        &models.AddTaskLogRequest{LogType: "complete"},
			wantFields: []string{"log_type"},
		},
		{
			name: "nested wrapup item",
			req: &models.SaveWrapupRequest{Items: []models.WrapupItemInput{
				{Item: "Site cleaned"},
				{Item: " "},
			}},
			wantFields: []string{"items[1].item"},
		},
		{
			name:       "negative estimate",
			req:        &models.CreateJobTaskRequest{Title: "Measure", EstimatedHours: -1},
			wantFields: []string{"estimated_hours"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.Struct(tt.req)
			if len(tt.wantFields) == 0 {
				if err != nil {
					t.Fatalf("Expected no errors, got %v", Errors(err))
				}
				return
			}
			if err == nil {
				t.Fatalf("Expected errors on %v", tt.wantFields)
			}

			got := fields(Errors(err))
			if strings.Join(got, ",") != strings.Join(tt.wantFields, ",") {
				t.Errorf("Expected fields %v, got %v", tt.wantFields, got)
			}
		})
	}
}

func TestErrorsMessages(t *testing.T) {
	v := newValidator(t)

	errs := Errors(v.Struct(&models.UpdateRoleRequest{Role: "owner"}))
	if len(errs) != 1 {
		t.Fatalf("Expected 1 error, got %d", len(errs))
	}
	if !strings.Contains(errs[0].Message, "admin, manager") {
		t.Errorf("Expected allowed values in message, got %q", errs[0].Message)
	}
	if errs[0].Value != models.Role("owner") {
		t.Errorf("Expected offending value, got %v", errs[0].Value)
	}

	msg := Message(Errors(v.Struct(&models.StaffActionRequest{})))
	if msg != "staff_name is required" {
		t.Errorf("Unexpected message %q", msg)
	}
}

func TestErrorsNonValidatorError(t *testing.T) {
	var body map[string]string
	err := json.Unmarshal([]byte(`{"title":`), &body)

	errs := Errors(err)
	if len(errs) != 1 || errs[0].Field != "body" {
		t.Errorf("Expected a single body error, got %+v", errs)
	}
}
