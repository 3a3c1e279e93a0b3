package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/LearnSphere-2025/course-service/internal/models"
	"github.com/LearnSphere-2025/course-service/internal/repositories"
	"github.com/LearnSphere-2025/course-service/internal/validator"
)

type teacherProfileService struct {
	repo         repositories.Repository
	db           *gorm.DB
	logger       *slog.Logger
	validator    *validator.Validator
	notification NotificationEventService
}

// NewTeacherProfileService creates the profile reconciliation service.
func NewTeacherProfileService(repo repositories.Repository, db *gorm.DB, logger *slog.Logger, validator *validator.Validator, notification NotificationEventService) TeacherProfileService {
	return &teacherProfileService{
		repo:         repo,
		db:           db,
		logger:       logger,
		validator:    validator,
		notification: notification,
	}
}

// GetByTeacherID returns the profile of a teacher account, provisioning
// a default one from the account record when none exists yet. Accounts
// that are not teachers are reported as not found, indistinguishable
// from absent accounts.
func (s *teacherProfileService) GetByTeacherID(ctx context.Context, teacherID string) (*TeacherProfileResponse, error) {
	user, err := s.getTeacherAccount(ctx, teacherID)
	if err != nil {
		return nil, err
	}

	profile, err := s.repo.TeacherProfile().GetByUserID(ctx, nil, teacherID)
	if err != nil {
		if !repositories.IsNotFoundError(err) {
			return nil, fmt.Errorf("failed to get teacher profile: %w", err)
		}

		profile = defaultProfileFor(user)
		if createErr := s.repo.TeacherProfile().Create(ctx, nil, profile); createErr != nil {
			if !repositories.IsDuplicateError(createErr) {
				return nil, fmt.Errorf("failed to provision teacher profile: %w", createErr)
			}
			// Lost a provisioning race; the winner's row is the record.
			profile, err = s.repo.TeacherProfile().GetByUserID(ctx, nil, teacherID)
			if err != nil {
				return nil, fmt.Errorf("failed to get teacher profile after race: %w", err)
			}
		} else {
			s.logger.InfoContext(ctx, "Teacher profile provisioned", "teacher_id", teacherID)
			s.publishProvisioned(ctx, profile)
		}
	}

	return s.buildResponse(ctx, user, profile)
}

// List returns the full teacher directory. Teachers whose profile record
// is missing get one provisioned during the listing, so the directory is
// always complete.
func (s *teacherProfileService) List(ctx context.Context) ([]*TeacherProfileResponse, error) {
	teachers, err := s.repo.User().GetByRole(ctx, nil, models.RoleTeacher)
	if err != nil {
		return nil, fmt.Errorf("failed to list teacher accounts: %w", err)
	}
	if len(teachers) == 0 {
		return []*TeacherProfileResponse{}, nil
	}

	ids := make([]string, len(teachers))
	for i, t := range teachers {
		ids[i] = t.ID
	}

	profiles, err := s.repo.TeacherProfile().GetByUserIDs(ctx, nil, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to list teacher profiles: %w", err)
	}

	byUser := make(map[string]*models.TeacherProfile, len(profiles))
	for _, p := range profiles {
		byUser[p.UserID] = p
	}

	var missing []*models.TeacherProfile
	for _, t := range teachers {
		if _, ok := byUser[t.ID]; !ok {
			missing = append(missing, defaultProfileFor(t))
		}
	}

	if len(missing) > 0 {
		if err := s.repo.TeacherProfile().CreateBatch(ctx, nil, missing); err != nil {
			if !repositories.IsDuplicateError(err) {
				return nil, fmt.Errorf("failed to backfill teacher profiles: %w", err)
			}
			// A concurrent writer inserted some of them first, aborting
			// the whole batch. Re-read the authoritative rows, then
			// provision the remainder one by one so a single winner
			// cannot leave other teachers without a profile.
			profiles, err = s.repo.TeacherProfile().GetByUserIDs(ctx, nil, ids)
			if err != nil {
				return nil, fmt.Errorf("failed to re-read teacher profiles after race: %w", err)
			}
			byUser = make(map[string]*models.TeacherProfile, len(profiles))
			for _, p := range profiles {
				byUser[p.UserID] = p
			}

			for _, t := range teachers {
				if _, ok := byUser[t.ID]; ok {
					continue
				}
				profile := defaultProfileFor(t)
				if createErr := s.repo.TeacherProfile().Create(ctx, nil, profile); createErr != nil {
					if !repositories.IsDuplicateError(createErr) {
						return nil, fmt.Errorf("failed to backfill teacher profile: %w", createErr)
					}
					profile, createErr = s.repo.TeacherProfile().GetByUserID(ctx, nil, t.ID)
					if createErr != nil {
						return nil, fmt.Errorf("failed to re-read teacher profile after race: %w", createErr)
					}
				} else {
					s.publishProvisioned(ctx, profile)
				}
				byUser[t.ID] = profile
			}
		} else {
			s.logger.InfoContext(ctx, "Teacher profiles backfilled", "count", len(missing))
			for _, p := range missing {
				byUser[p.UserID] = p
				s.publishProvisioned(ctx, p)
			}
		}
	}

	// Directory order follows account creation order. Every branch above
	// leaves a row for every teacher in byUser.
	result := make([]*TeacherProfileResponse, 0, len(teachers))
	for _, t := range teachers {
		resp, err := s.buildResponse(ctx, t, byUser[t.ID])
		if err != nil {
			return nil, err
		}
		result = append(result, resp)
	}

	return result, nil
}

// Upsert creates the profile if absent or merges the payload into the
// stored record field by field: absent payload fields keep their stored
// value, present ones overwrite it. Teachers may only write their own
// profile; admins may write any.
func (s *teacherProfileService) Upsert(ctx context.Context, actorID string, actorRole models.UserRole, teacherID string, req *TeacherProfileRequest) (*TeacherProfileResponse, error) {
	// Ownership first: a forbidden caller learns nothing about what a
	// valid payload would look like.
	if actorID != teacherID && actorRole != models.RoleAdmin {
		return nil, NewPermissionError(actorID, "update", "teacher profile "+teacherID)
	}

	if errs := s.validator.Validate(req); errs.HasErrors() {
		return nil, errs
	}

	user, err := s.getTeacherAccount(ctx, teacherID)
	if err != nil {
		return nil, err
	}

	// The unique index on user_id is the arbiter here: a concurrent
	// create turns this call's insert into a duplicate-key error and we
	// merge into the row that won instead.
	created := false
	profile, err := s.repo.TeacherProfile().GetByUserID(ctx, nil, teacherID)
	switch {
	case err == nil:
		applyProfileRequest(profile, req)
		if err := s.repo.TeacherProfile().Update(ctx, nil, profile); err != nil {
			return nil, fmt.Errorf("failed to update teacher profile: %w", err)
		}

	case repositories.IsNotFoundError(err):
		profile = defaultProfileFor(user)
		applyProfileRequest(profile, req)
		if createErr := s.repo.TeacherProfile().Create(ctx, nil, profile); createErr != nil {
			if !repositories.IsDuplicateError(createErr) {
				return nil, fmt.Errorf("failed to create teacher profile: %w", createErr)
			}
			profile, err = s.repo.TeacherProfile().GetByUserID(ctx, nil, teacherID)
			if err != nil {
				return nil, fmt.Errorf("failed to get teacher profile after race: %w", err)
			}
			applyProfileRequest(profile, req)
			if err := s.repo.TeacherProfile().Update(ctx, nil, profile); err != nil {
				return nil, fmt.Errorf("failed to update teacher profile: %w", err)
			}
		} else {
			created = true
		}

	default:
		return nil, fmt.Errorf("failed to get teacher profile: %w", err)
	}

	if created {
		s.logger.InfoContext(ctx, "Teacher profile created",
			"teacher_id", teacherID,
			"actor_id", actorID)
		s.publishProvisioned(ctx, profile)
	} else {
		s.logger.InfoContext(ctx, "Teacher profile updated",
			"teacher_id", teacherID,
			"actor_id", actorID)
	}

	return s.buildResponse(ctx, user, profile)
}

// RefreshRating recomputes the denormalized review aggregate of a
// teacher from the reviews of their courses.
func (s *teacherProfileService) RefreshRating(ctx context.Context, teacherID string) error {
	agg, err := s.repo.Review().AggregateByTeacher(ctx, nil, teacherID)
	if err != nil {
		return fmt.Errorf("failed to aggregate teacher rating: %w", err)
	}

	if err := s.repo.TeacherProfile().UpdateRating(ctx, nil, teacherID, agg.Average, agg.Count); err != nil {
		if repositories.IsNotFoundError(err) {
			// No profile yet; the next read will provision one and the
			// rating refresh after the next review will catch up.
			return nil
		}
		return fmt.Errorf("failed to update teacher rating: %w", err)
	}

	return nil
}

// getTeacherAccount resolves an account and requires the teacher role.
func (s *teacherProfileService) getTeacherAccount(ctx context.Context, teacherID string) (*models.User, error) {
	user, err := s.repo.User().GetByID(ctx, nil, teacherID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrTeacherNotFound
		}
		return nil, fmt.Errorf("failed to get teacher account: %w", err)
	}
	if user.Role != models.RoleTeacher {
		return nil, ErrTeacherNotFound
	}
	return user, nil
}

func (s *teacherProfileService) buildResponse(ctx context.Context, user *models.User, profile *models.TeacherProfile) (*TeacherProfileResponse, error) {
	courseCount, err := s.repo.Course().CountByTeacher(ctx, nil, user.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to count teacher courses: %w", err)
	}

	summary := user.Summary()
	return &TeacherProfileResponse{
		TeacherProfile: profile,
		User:           &summary,
		CourseCount:    courseCount,
	}, nil
}

func (s *teacherProfileService) publishProvisioned(ctx context.Context, profile *models.TeacherProfile) {
	if s.notification == nil {
		return
	}
	if err := s.notification.PublishProfileProvisioned(ctx, profile); err != nil {
		s.logger.WarnContext(ctx, "Failed to publish profile provisioned event",
			"teacher_id", profile.UserID,
			"error", err)
	}
}

// defaultProfileFor derives the initial profile from the account record.
func defaultProfileFor(user *models.User) *models.TeacherProfile {
	return &models.TeacherProfile{
		UserID:         user.ID,
		DisplayName:    user.FullName,
		ContactEmail:   user.Email,
		AvatarURL:      user.AvatarURL,
		Certifications: datatypes.JSONSlice[string]{},
		Expertise:      datatypes.JSONSlice[string]{},
	}
}

// applyProfileRequest merges the payload into the record. Only fields
// present in the payload change; presence is carried by non-nil
// pointers, so an explicit empty string still overwrites.
func applyProfileRequest(profile *models.TeacherProfile, req *TeacherProfileRequest) {
	if req.DisplayName != nil {
		profile.DisplayName = strings.TrimSpace(*req.DisplayName)
	}
	if req.ContactEmail != nil {
		profile.ContactEmail = strings.ToLower(strings.TrimSpace(*req.ContactEmail))
	}
	if req.Bio != nil {
		profile.Bio = req.Bio
	}
	if req.Specialization != nil {
		profile.Specialization = req.Specialization
	}
	if req.Education != nil {
		profile.Education = req.Education
	}
	if req.Experience != nil {
		profile.Experience = *req.Experience
	}
	if req.AvatarURL != nil {
		profile.AvatarURL = req.AvatarURL
	}
	if req.Certifications != nil {
		profile.Certifications = datatypes.JSONSlice[string](*req.Certifications)
	}
	if req.Expertise != nil {
		profile.Expertise = datatypes.JSONSlice[string](*req.Expertise)
	}
	if req.SocialLinks != nil {
		// Sub-fields merge the same way the top level does.
		stored := profile.SocialLinks.Data()
		if req.SocialLinks.LinkedIn != nil {
			stored.LinkedIn = req.SocialLinks.LinkedIn
		}
		if req.SocialLinks.GitHub != nil {
			stored.GitHub = req.SocialLinks.GitHub
		}
		if req.SocialLinks.Twitter != nil {
			stored.Twitter = req.SocialLinks.Twitter
		}
		if req.SocialLinks.Website != nil {
			stored.Website = req.SocialLinks.Website
		}
		profile.SocialLinks = datatypes.NewJSONType(stored)
	}
}
