// Package validate checks a review document before it is written or synced.
package validate

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/aimcr/aimcr/internal/models"
)

// Level selects how strict validation is.
type Level int

const (
	// Draft allows an empty final decision.
	Draft Level = iota
	// Final additionally requires a final decision.
	Final
)

// FieldError is a single validation failure.
type FieldError struct {
	Field  string `json:"field"`
	Reason string `json:"reason"`
}

func (e FieldError) Error() string {
	return e.Field + ": " + e.Reason
}

// Errors is the structured list returned when a document fails validation.
type Errors []FieldError

func (e Errors) Error() string {
	parts := make([]string, len(e))
	for i, fe := range e {
		parts[i] = fe.Error()
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// AsErrors extracts the field errors from err, if any.
func AsErrors(err error) (Errors, bool) {
	var ve Errors
	if errors.As(err, &ve) {
		return ve, true
	}
	return nil, false
}

var validate *validator.Validate

func init() {
	validate = validator.New()

	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	_ = validate.RegisterValidation("decision", func(fl validator.FieldLevel) bool {
		return models.Decision(fl.Field().String()).Valid()
	})
}

// Document validates doc at the given level. It returns nil or an Errors value.
func Document(doc *models.ReviewDocument, level Level) error {
	if doc == nil {
		return Errors{{Field: "document", Reason: "is missing"}}
	}

	var errs Errors
	errs = append(errs, requiredMetadata(doc.Metadata)...)
	errs = append(errs, tagErrors(doc)...)
	errs = append(errs, checklistStructure(doc)...)

	if level == Final && doc.FinalDecision == "" {
		errs = append(errs, FieldError{Field: "final_decision", Reason: "is required"})
	}

	if len(errs) == 0 {
		return nil
	}
	return dedupe(errs)
}

func requiredMetadata(m models.Metadata) Errors {
	var errs Errors
	required := []struct {
		field string
		value string
	}{
		{"metadata.reviewer_name", m.ReviewerName},
		{"metadata.proposal_title", m.ProposalTitle},
		{"metadata.project_id", m.ProjectID},
	}
	for _, r := range required {
		if err := validate.Var(strings.TrimSpace(r.value), "required"); err != nil {
			errs = append(errs, FieldError{Field: r.field, Reason: "is required"})
		}
	}
	return errs
}

func tagErrors(doc *models.ReviewDocument) Errors {
	err := validate.Struct(doc)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return Errors{{Field: "document", Reason: err.Error()}}
	}

	out := make(Errors, 0, len(verrs))
	for _, fe := range verrs {
		out = append(out, FieldError{
			Field:  trimNamespace(fe.Namespace()),
			Reason: reason(fe),
		})
	}
	return out
}

// trimNamespace drops the root struct name: "ReviewDocument.metadata.project_id" -> "metadata.project_id".
func trimNamespace(ns string) string {
	if i := strings.IndexByte(ns, '.'); i >= 0 {
		return ns[i+1:]
	}
	return ns
}

func reason(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "min", "max":
		return fmt.Sprintf("must be between %d and %d, got %v", models.ScoreNoRisk, models.ScoreCritical, fe.Value())
	case "decision":
		names := make([]string, len(models.Decisions))
		for i, d := range models.Decisions {
			names[i] = string(d)
		}
		return fmt.Sprintf("must be one of %s, got %q", strings.Join(names, ", "), fe.Value())
	case "datetime":
		return fmt.Sprintf("must be a YYYY-MM-DD date, got %q", fe.Value())
	default:
		return fmt.Sprintf("failed %q check", fe.Tag())
	}
}

func checklistStructure(doc *models.ReviewDocument) Errors {
	var errs Errors
	for _, s := range models.Sections {
		names := s.Checklist()
		for i, a := range doc.Artifacts(s) {
			prefix := fmt.Sprintf("%s[%d]", s, i)
			if len(a.Checks) != len(names) {
				errs = append(errs, FieldError{
					Field:  prefix + ".checks",
					Reason: fmt.Sprintf("expected %d checks, got %d", len(names), len(a.Checks)),
				})
				continue
			}
			for j, c := range a.Checks {
				if c.Name != names[j] {
					errs = append(errs, FieldError{
						Field:  fmt.Sprintf("%s.checks[%d].name", prefix, j),
						Reason: fmt.Sprintf("expected %q, got %q", names[j], c.Name),
					})
				}
			}
		}
	}
	return errs
}

// dedupe drops repeated field errors, keeping the first reason per field.
func dedupe(errs Errors) Errors {
	seen := make(map[string]bool, len(errs))
	out := errs[:0]
	for _, e := range errs {
		if seen[e.Field] {
			continue
		}
		seen[e.Field] = true
		out = append(out, e)
	}
	return out
}
