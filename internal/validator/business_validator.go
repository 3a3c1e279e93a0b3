package validator

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/LearnSphere-2025/course-service/internal/models"
)

// BusinessValidator handles business rule validation
type BusinessValidator struct {
	validate *validator.Validate
}

// NewBusinessValidator creates a new business validator
func NewBusinessValidator() *BusinessValidator {
	validate := validator.New()

	bv := &BusinessValidator{validate: validate}
	bv.registerBusinessRules()

	return bv
}

// Validate validates business rules for any struct
func (bv *BusinessValidator) Validate(s interface{}) ValidationErrors {
	err := bv.validate.Struct(s)
	if err != nil {
		return ToValidationErrors(err)
	}
	return nil
}

// ValidateRole checks role strings against the closed role set
func (bv *BusinessValidator) ValidateRole(role models.UserRole) ValidationErrors {
	if !models.ValidRole(role) {
		return ValidationErrors{{
			Field:   "role",
			Message: fmt.Sprintf("unknown role %q", role),
			Value:   role,
			Rule:    "user_role",
		}}
	}
	return nil
}

// ValidateCoursePublish validates that a course is complete enough to publish
func (bv *BusinessValidator) ValidateCoursePublish(course *models.Course, lessonCount int) ValidationErrors {
	var errors ValidationErrors

	if lessonCount == 0 {
		errors = append(errors, ValidationError{
			Field:   "lessons",
			Message: "course must have at least one lesson before publishing",
			Value:   lessonCount,
			Rule:    "business_logic",
		})
	}

	if strings.TrimSpace(course.Title) == "" {
		errors = append(errors, ValidationError{
			Field:   "title",
			Message: "course must have a title before publishing",
			Rule:    "business_logic",
		})
	}

	return errors
}

// ValidateGrade validates a homework grade
func (bv *BusinessValidator) ValidateGrade(grade int) ValidationErrors {
	if grade < 0 || grade > 100 {
		return ValidationErrors{{
			Field:   "grade",
			Message: "must be between 0 and 100",
			Value:   grade,
			Rule:    "grade_range",
		}}
	}
	return nil
}

// ValidateApplicationTransition validates application review transitions
func (bv *BusinessValidator) ValidateApplicationTransition(current, next models.ApplicationStatus) ValidationErrors {
	allowedTransitions := map[models.ApplicationStatus][]models.ApplicationStatus{
		models.ApplicationPending:  {models.ApplicationApproved, models.ApplicationRejected},
		models.ApplicationApproved: {},
		models.ApplicationRejected: {},
	}

	for _, allowed := range allowedTransitions[current] {
		if next == allowed {
			return nil
		}
	}

	return ValidationErrors{{
		Field:   "status",
		Message: fmt.Sprintf("cannot transition from %s to %s", current, next),
		Value:   next,
		Rule:    "status_transition",
	}}
}

// registerBusinessRules registers custom business rule validators
func (bv *BusinessValidator) registerBusinessRules() {
	// Course title validation (1-200 characters after trimming)
	bv.validate.RegisterValidation("course_title", func(fl validator.FieldLevel) bool {
		title := strings.TrimSpace(fl.Field().String())
		return len(title) >= 1 && len(title) <= 200
	})

	// Price validation (non-negative)
	bv.validate.RegisterValidation("course_price", func(fl validator.FieldLevel) bool {
		return fl.Field().Float() >= 0
	})

	// Review rating validation (1-5)
	bv.validate.RegisterValidation("review_rating", func(fl validator.FieldLevel) bool {
		rating := fl.Field().Int()
		return rating >= 1 && rating <= 5
	})

	// Role validation against the closed role set
	bv.validate.RegisterValidation("user_role", func(fl validator.FieldLevel) bool {
		return models.ValidRole(models.UserRole(fl.Field().String()))
	})

	// Display name validation (1-100 characters after trimming)
	bv.validate.RegisterValidation("display_name", func(fl validator.FieldLevel) bool {
		name := strings.TrimSpace(fl.Field().String())
		return len(name) >= 1 && len(name) <= 100
	})
}
