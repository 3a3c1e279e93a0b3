package services

import (
	"context"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"gorm.io/gorm"

	"github.com/LearnSphere-2025/course-service/internal/models"
	"github.com/LearnSphere-2025/course-service/internal/repositories"
)

// fakeRepository is a map-backed Repository used by the service tests.
// It mirrors the storage semantics the services depend on: not-found
// and duplicate-key sentinels, and the unique indexes on user_id and
// the (user, course) pairs.
type fakeRepository struct {
	mu sync.Mutex

	users        map[string]*models.User
	userOrder    []string
	profiles     map[string]*models.TeacherProfile
	courses      map[uint]*models.Course
	lessons      map[uint]*models.Lesson
	homework     map[uint]*models.Homework
	enrollments  map[string]*models.Enrollment
	favorites    map[string]*models.Favorite
	applications map[uint]*models.CourseApplication
	reviews      map[uint]*models.CourseReview
	payments     map[uint]*models.Payment

	nextID uint

	// profileCreateHook runs before profile creates; tests use it to
	// simulate a concurrent writer winning the provisioning race.
	profileCreateHook func()
}

func newFakeRepository() *fakeRepository {
	return &fakeRepository{
		users:        make(map[string]*models.User),
		profiles:     make(map[string]*models.TeacherProfile),
		courses:      make(map[uint]*models.Course),
		lessons:      make(map[uint]*models.Lesson),
		homework:     make(map[uint]*models.Homework),
		enrollments:  make(map[string]*models.Enrollment),
		favorites:    make(map[string]*models.Favorite),
		applications: make(map[uint]*models.CourseApplication),
		reviews:      make(map[uint]*models.CourseReview),
		payments:     make(map[uint]*models.Payment),
	}
}

func (f *fakeRepository) allocID() uint {
	f.nextID++
	return f.nextID
}

func pairKey(userID string, courseID uint) string {
	return userID + "/" + strconv.FormatUint(uint64(courseID), 10)
}

func (f *fakeRepository) User() repositories.UserRepository                   { return &fakeUserRepo{f} }
func (f *fakeRepository) TeacherProfile() repositories.TeacherProfileRepository {
	return &fakeProfileRepo{f}
}
func (f *fakeRepository) Course() repositories.CourseRepository         { return &fakeCourseRepo{f} }
func (f *fakeRepository) Lesson() repositories.LessonRepository         { return &fakeLessonRepo{f} }
func (f *fakeRepository) Homework() repositories.HomeworkRepository     { return &fakeHomeworkRepo{f} }
func (f *fakeRepository) Enrollment() repositories.EnrollmentRepository { return &fakeEnrollmentRepo{f} }
func (f *fakeRepository) Favorite() repositories.FavoriteRepository     { return &fakeFavoriteRepo{f} }
func (f *fakeRepository) Application() repositories.ApplicationRepository {
	return &fakeApplicationRepo{f}
}
func (f *fakeRepository) Review() repositories.ReviewRepository   { return &fakeReviewRepo{f} }
func (f *fakeRepository) Payment() repositories.PaymentRepository { return &fakePaymentRepo{f} }

func (f *fakeRepository) WithTransaction(ctx context.Context, fn func(repositories.Repository) error) error {
	return fn(f)
}

func (f *fakeRepository) Ping(ctx context.Context) error { return nil }
func (f *fakeRepository) Close() error                   { return nil }

// --- seeding helpers ---

func (f *fakeRepository) seedUser(id, name, email string, role models.UserRole) *models.User {
	f.mu.Lock()
	defer f.mu.Unlock()
	user := &models.User{
		ID:        id,
		FullName:  name,
		Email:     email,
		Role:      role,
		CreatedAt: time.Now().UTC(),
	}
	f.users[id] = user
	f.userOrder = append(f.userOrder, id)
	return user
}

func (f *fakeRepository) seedCourse(teacherID, title string, price float64, published bool) *models.Course {
	f.mu.Lock()
	defer f.mu.Unlock()
	course := &models.Course{
		ID:        f.allocID(),
		Title:     title,
		TeacherID: teacherID,
		Price:     price,
		Published: published,
	}
	f.courses[course.ID] = course
	return course
}

func (f *fakeRepository) seedEnrollment(userID string, courseID uint) *models.Enrollment {
	f.mu.Lock()
	defer f.mu.Unlock()
	e := &models.Enrollment{ID: f.allocID(), UserID: userID, CourseID: courseID}
	f.enrollments[pairKey(userID, courseID)] = e
	return e
}

// --- user repo ---

type fakeUserRepo struct{ f *fakeRepository }

func (r *fakeUserRepo) Create(ctx context.Context, tx *gorm.DB, user *models.User) error {
	r.f.mu.Lock()
	defer r.f.mu.Unlock()
	for _, u := range r.f.users {
		if u.Email == user.Email {
			return repositories.ErrDuplicateKey
		}
	}
	user.CreatedAt = time.Now().UTC()
	r.f.users[user.ID] = user
	r.f.userOrder = append(r.f.userOrder, user.ID)
	return nil
}

func (r *fakeUserRepo) GetByID(ctx context.Context, tx *gorm.DB, id string) (*models.User, error) {
	r.f.mu.Lock()
	defer r.f.mu.Unlock()
	user, ok := r.f.users[id]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	return user, nil
}

func (r *fakeUserRepo) GetByEmail(ctx context.Context, tx *gorm.DB, email string) (*models.User, error) {
	r.f.mu.Lock()
	defer r.f.mu.Unlock()
	for _, u := range r.f.users {
		if u.Email == strings.ToLower(email) {
			return u, nil
		}
	}
	return nil, repositories.ErrNotFound
}

func (r *fakeUserRepo) GetByIDs(ctx context.Context, tx *gorm.DB, ids []string) ([]*models.User, error) {
	r.f.mu.Lock()
	defer r.f.mu.Unlock()
	var result []*models.User
	for _, id := range ids {
		if u, ok := r.f.users[id]; ok {
			result = append(result, u)
		}
	}
	return result, nil
}

func (r *fakeUserRepo) GetByRole(ctx context.Context, tx *gorm.DB, role models.UserRole) ([]*models.User, error) {
	r.f.mu.Lock()
	defer r.f.mu.Unlock()
	var result []*models.User
	for _, id := range r.f.userOrder {
		if u, ok := r.f.users[id]; ok && u.Role == role {
			result = append(result, u)
		}
	}
	return result, nil
}

func (r *fakeUserRepo) List(ctx context.Context, tx *gorm.DB, filters repositories.UserFilters) ([]*models.User, int64, error) {
	r.f.mu.Lock()
	defer r.f.mu.Unlock()
	var result []*models.User
	for _, id := range r.f.userOrder {
		u := r.f.users[id]
		if filters.Role != nil && u.Role != *filters.Role {
			continue
		}
		result = append(result, u)
	}
	return result, int64(len(result)), nil
}

func (r *fakeUserRepo) Update(ctx context.Context, tx *gorm.DB, user *models.User) error {
	r.f.mu.Lock()
	defer r.f.mu.Unlock()
	if _, ok := r.f.users[user.ID]; !ok {
		return repositories.ErrNotFound
	}
	r.f.users[user.ID] = user
	return nil
}

func (r *fakeUserRepo) UpdateRole(ctx context.Context, tx *gorm.DB, id string, role models.UserRole) error {
	r.f.mu.Lock()
	defer r.f.mu.Unlock()
	user, ok := r.f.users[id]
	if !ok {
		return repositories.ErrNotFound
	}
	user.Role = role
	return nil
}

func (r *fakeUserRepo) Delete(ctx context.Context, tx *gorm.DB, id string) error {
	r.f.mu.Lock()
	defer r.f.mu.Unlock()
	if _, ok := r.f.users[id]; !ok {
		return repositories.ErrNotFound
	}
	delete(r.f.users, id)
	return nil
}

// --- teacher profile repo ---

type fakeProfileRepo struct{ f *fakeRepository }

func (r *fakeProfileRepo) Create(ctx context.Context, tx *gorm.DB, profile *models.TeacherProfile) error {
	if r.f.profileCreateHook != nil {
		r.f.profileCreateHook()
	}
	r.f.mu.Lock()
	defer r.f.mu.Unlock()
	if _, ok := r.f.profiles[profile.UserID]; ok {
		return repositories.ErrDuplicateKey
	}
	profile.ID = r.f.allocID()
	r.f.profiles[profile.UserID] = profile
	return nil
}

func (r *fakeProfileRepo) CreateBatch(ctx context.Context, tx *gorm.DB, profiles []*models.TeacherProfile) error {
	if r.f.profileCreateHook != nil {
		r.f.profileCreateHook()
	}
	r.f.mu.Lock()
	defer r.f.mu.Unlock()
	for _, p := range profiles {
		if _, ok := r.f.profiles[p.UserID]; ok {
			return repositories.ErrDuplicateKey
		}
	}
	for _, p := range profiles {
		p.ID = r.f.allocID()
		r.f.profiles[p.UserID] = p
	}
	return nil
}

func (r *fakeProfileRepo) GetByUserID(ctx context.Context, tx *gorm.DB, userID string) (*models.TeacherProfile, error) {
	r.f.mu.Lock()
	defer r.f.mu.Unlock()
	profile, ok := r.f.profiles[userID]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	return profile, nil
}

func (r *fakeProfileRepo) GetByUserIDs(ctx context.Context, tx *gorm.DB, userIDs []string) ([]*models.TeacherProfile, error) {
	r.f.mu.Lock()
	defer r.f.mu.Unlock()
	var result []*models.TeacherProfile
	for _, id := range userIDs {
		if p, ok := r.f.profiles[id]; ok {
			result = append(result, p)
		}
	}
	return result, nil
}

func (r *fakeProfileRepo) Update(ctx context.Context, tx *gorm.DB, profile *models.TeacherProfile) error {
	r.f.mu.Lock()
	defer r.f.mu.Unlock()
	if _, ok := r.f.profiles[profile.UserID]; !ok {
		return repositories.ErrNotFound
	}
	r.f.profiles[profile.UserID] = profile
	return nil
}

func (r *fakeProfileRepo) UpdateRating(ctx context.Context, tx *gorm.DB, userID string, rating float64, count int) error {
	r.f.mu.Lock()
	defer r.f.mu.Unlock()
	profile, ok := r.f.profiles[userID]
	if !ok {
		return repositories.ErrNotFound
	}
	profile.Rating = rating
	profile.RatingCount = count
	return nil
}

func (r *fakeProfileRepo) DeleteByUserID(ctx context.Context, tx *gorm.DB, userID string) error {
	r.f.mu.Lock()
	defer r.f.mu.Unlock()
	if _, ok := r.f.profiles[userID]; !ok {
		return repositories.ErrNotFound
	}
	delete(r.f.profiles, userID)
	return nil
}

// --- course repo ---

type fakeCourseRepo struct{ f *fakeRepository }

func (r *fakeCourseRepo) Create(ctx context.Context, tx *gorm.DB, course *models.Course) error {
	r.f.mu.Lock()
	defer r.f.mu.Unlock()
	course.ID = r.f.allocID()
	r.f.courses[course.ID] = course
	return nil
}

func (r *fakeCourseRepo) GetByID(ctx context.Context, tx *gorm.DB, id uint) (*models.Course, error) {
	r.f.mu.Lock()
	defer r.f.mu.Unlock()
	course, ok := r.f.courses[id]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	return course, nil
}

func (r *fakeCourseRepo) GetByIDWithLessons(ctx context.Context, tx *gorm.DB, id uint) (*models.Course, error) {
	r.f.mu.Lock()
	defer r.f.mu.Unlock()
	course, ok := r.f.courses[id]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	course.Lessons = nil
	for _, l := range r.f.lessons {
		if l.CourseID == id {
			course.Lessons = append(course.Lessons, *l)
		}
	}
	sort.Slice(course.Lessons, func(i, j int) bool {
		return course.Lessons[i].Position < course.Lessons[j].Position
	})
	return course, nil
}

func (r *fakeCourseRepo) List(ctx context.Context, tx *gorm.DB, filters repositories.CourseFilters) ([]*models.Course, int64, error) {
	r.f.mu.Lock()
	defer r.f.mu.Unlock()
	var result []*models.Course
	for _, c := range r.f.courses {
		if filters.Published != nil && c.Published != *filters.Published {
			continue
		}
		if filters.TeacherID != "" && c.TeacherID != filters.TeacherID {
			continue
		}
		result = append(result, c)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, int64(len(result)), nil
}

func (r *fakeCourseRepo) ListByTeacher(ctx context.Context, tx *gorm.DB, teacherID string) ([]*models.Course, error) {
	r.f.mu.Lock()
	defer r.f.mu.Unlock()
	var result []*models.Course
	for _, c := range r.f.courses {
		if c.TeacherID == teacherID {
			result = append(result, c)
		}
	}
	return result, nil
}

func (r *fakeCourseRepo) Update(ctx context.Context, tx *gorm.DB, course *models.Course) error {
	r.f.mu.Lock()
	defer r.f.mu.Unlock()
	if _, ok := r.f.courses[course.ID]; !ok {
		return repositories.ErrNotFound
	}
	r.f.courses[course.ID] = course
	return nil
}

func (r *fakeCourseRepo) Delete(ctx context.Context, tx *gorm.DB, id uint) error {
	r.f.mu.Lock()
	defer r.f.mu.Unlock()
	if _, ok := r.f.courses[id]; !ok {
		return repositories.ErrNotFound
	}
	delete(r.f.courses, id)
	return nil
}

func (r *fakeCourseRepo) CountByTeacher(ctx context.Context, tx *gorm.DB, teacherID string) (int64, error) {
	r.f.mu.Lock()
	defer r.f.mu.Unlock()
	var count int64
	for _, c := range r.f.courses {
		if c.TeacherID == teacherID {
			count++
		}
	}
	return count, nil
}

// --- lesson repo ---

type fakeLessonRepo struct{ f *fakeRepository }

func (r *fakeLessonRepo) Create(ctx context.Context, tx *gorm.DB, lesson *models.Lesson) error {
	r.f.mu.Lock()
	defer r.f.mu.Unlock()
	lesson.ID = r.f.allocID()
	if lesson.Position == 0 {
		max := 0
		for _, l := range r.f.lessons {
			if l.CourseID == lesson.CourseID && l.Position > max {
				max = l.Position
			}
		}
		lesson.Position = max + 1
	}
	r.f.lessons[lesson.ID] = lesson
	return nil
}

func (r *fakeLessonRepo) GetByID(ctx context.Context, tx *gorm.DB, id uint) (*models.Lesson, error) {
	r.f.mu.Lock()
	defer r.f.mu.Unlock()
	lesson, ok := r.f.lessons[id]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	return lesson, nil
}

func (r *fakeLessonRepo) ListByCourse(ctx context.Context, tx *gorm.DB, courseID uint) ([]*models.Lesson, error) {
	r.f.mu.Lock()
	defer r.f.mu.Unlock()
	var result []*models.Lesson
	for _, l := range r.f.lessons {
		if l.CourseID == courseID {
			result = append(result, l)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Position < result[j].Position })
	return result, nil
}

func (r *fakeLessonRepo) Update(ctx context.Context, tx *gorm.DB, lesson *models.Lesson) error {
	r.f.mu.Lock()
	defer r.f.mu.Unlock()
	if _, ok := r.f.lessons[lesson.ID]; !ok {
		return repositories.ErrNotFound
	}
	r.f.lessons[lesson.ID] = lesson
	return nil
}

func (r *fakeLessonRepo) Delete(ctx context.Context, tx *gorm.DB, id uint) error {
	r.f.mu.Lock()
	defer r.f.mu.Unlock()
	if _, ok := r.f.lessons[id]; !ok {
		return repositories.ErrNotFound
	}
	delete(r.f.lessons, id)
	return nil
}

// --- homework repo ---

type fakeHomeworkRepo struct{ f *fakeRepository }

func (r *fakeHomeworkRepo) Create(ctx context.Context, tx *gorm.DB, homework *models.Homework) error {
	r.f.mu.Lock()
	defer r.f.mu.Unlock()
	homework.ID = r.f.allocID()
	r.f.homework[homework.ID] = homework
	return nil
}

func (r *fakeHomeworkRepo) GetByID(ctx context.Context, tx *gorm.DB, id uint) (*models.Homework, error) {
	r.f.mu.Lock()
	defer r.f.mu.Unlock()
	hw, ok := r.f.homework[id]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	return hw, nil
}

func (r *fakeHomeworkRepo) ListByLesson(ctx context.Context, tx *gorm.DB, lessonID uint) ([]*models.Homework, error) {
	r.f.mu.Lock()
	defer r.f.mu.Unlock()
	var result []*models.Homework
	for _, hw := range r.f.homework {
		if hw.LessonID == lessonID {
			result = append(result, hw)
		}
	}
	return result, nil
}

func (r *fakeHomeworkRepo) ListByStudent(ctx context.Context, tx *gorm.DB, studentID string) ([]*models.Homework, error) {
	r.f.mu.Lock()
	defer r.f.mu.Unlock()
	var result []*models.Homework
	for _, hw := range r.f.homework {
		if hw.StudentID == studentID {
			result = append(result, hw)
		}
	}
	return result, nil
}

func (r *fakeHomeworkRepo) Update(ctx context.Context, tx *gorm.DB, homework *models.Homework) error {
	r.f.mu.Lock()
	defer r.f.mu.Unlock()
	if _, ok := r.f.homework[homework.ID]; !ok {
		return repositories.ErrNotFound
	}
	r.f.homework[homework.ID] = homework
	return nil
}

// --- enrollment repo ---

type fakeEnrollmentRepo struct{ f *fakeRepository }

func (r *fakeEnrollmentRepo) Create(ctx context.Context, tx *gorm.DB, enrollment *models.Enrollment) error {
	r.f.mu.Lock()
	defer r.f.mu.Unlock()
	key := pairKey(enrollment.UserID, enrollment.CourseID)
	if _, ok := r.f.enrollments[key]; ok {
		return repositories.ErrDuplicateKey
	}
	enrollment.ID = r.f.allocID()
	r.f.enrollments[key] = enrollment
	return nil
}

func (r *fakeEnrollmentRepo) Get(ctx context.Context, tx *gorm.DB, userID string, courseID uint) (*models.Enrollment, error) {
	r.f.mu.Lock()
	defer r.f.mu.Unlock()
	e, ok := r.f.enrollments[pairKey(userID, courseID)]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	return e, nil
}

func (r *fakeEnrollmentRepo) ListByUser(ctx context.Context, tx *gorm.DB, userID string) ([]*models.Enrollment, error) {
	r.f.mu.Lock()
	defer r.f.mu.Unlock()
	var result []*models.Enrollment
	for _, e := range r.f.enrollments {
		if e.UserID == userID {
			result = append(result, e)
		}
	}
	return result, nil
}

func (r *fakeEnrollmentRepo) ListByCourse(ctx context.Context, tx *gorm.DB, courseID uint) ([]*models.Enrollment, error) {
	r.f.mu.Lock()
	defer r.f.mu.Unlock()
	var result []*models.Enrollment
	for _, e := range r.f.enrollments {
		if e.CourseID == courseID {
			result = append(result, e)
		}
	}
	return result, nil
}

func (r *fakeEnrollmentRepo) CountByCourse(ctx context.Context, tx *gorm.DB, courseID uint) (int64, error) {
	list, _ := r.ListByCourse(ctx, tx, courseID)
	return int64(len(list)), nil
}

func (r *fakeEnrollmentRepo) CountByCourses(ctx context.Context, tx *gorm.DB, courseIDs []uint) (map[uint]int64, error) {
	result := make(map[uint]int64, len(courseIDs))
	for _, id := range courseIDs {
		count, _ := r.CountByCourse(ctx, tx, id)
		result[id] = count
	}
	return result, nil
}

func (r *fakeEnrollmentRepo) Delete(ctx context.Context, tx *gorm.DB, userID string, courseID uint) error {
	r.f.mu.Lock()
	defer r.f.mu.Unlock()
	key := pairKey(userID, courseID)
	if _, ok := r.f.enrollments[key]; !ok {
		return repositories.ErrNotFound
	}
	delete(r.f.enrollments, key)
	return nil
}

// --- favorite repo ---

type fakeFavoriteRepo struct{ f *fakeRepository }

func (r *fakeFavoriteRepo) Create(ctx context.Context, tx *gorm.DB, favorite *models.Favorite) error {
	r.f.mu.Lock()
	defer r.f.mu.Unlock()
	key := pairKey(favorite.UserID, favorite.CourseID)
	if _, ok := r.f.favorites[key]; ok {
		return repositories.ErrDuplicateKey
	}
	favorite.ID = r.f.allocID()
	r.f.favorites[key] = favorite
	return nil
}

func (r *fakeFavoriteRepo) ListByUser(ctx context.Context, tx *gorm.DB, userID string) ([]*models.Favorite, error) {
	r.f.mu.Lock()
	defer r.f.mu.Unlock()
	var result []*models.Favorite
	for _, fav := range r.f.favorites {
		if fav.UserID == userID {
			result = append(result, fav)
		}
	}
	return result, nil
}

func (r *fakeFavoriteRepo) Delete(ctx context.Context, tx *gorm.DB, userID string, courseID uint) error {
	r.f.mu.Lock()
	defer r.f.mu.Unlock()
	key := pairKey(userID, courseID)
	if _, ok := r.f.favorites[key]; !ok {
		return repositories.ErrNotFound
	}
	delete(r.f.favorites, key)
	return nil
}

// --- application repo ---

type fakeApplicationRepo struct{ f *fakeRepository }

func (r *fakeApplicationRepo) Create(ctx context.Context, tx *gorm.DB, application *models.CourseApplication) error {
	r.f.mu.Lock()
	defer r.f.mu.Unlock()
	for _, a := range r.f.applications {
		if a.UserID == application.UserID && a.CourseID == application.CourseID {
			return repositories.ErrDuplicateKey
		}
	}
	application.ID = r.f.allocID()
	if application.Status == "" {
		application.Status = models.ApplicationPending
	}
	r.f.applications[application.ID] = application
	return nil
}

func (r *fakeApplicationRepo) GetByID(ctx context.Context, tx *gorm.DB, id uint) (*models.CourseApplication, error) {
	r.f.mu.Lock()
	defer r.f.mu.Unlock()
	a, ok := r.f.applications[id]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	return a, nil
}

func (r *fakeApplicationRepo) ListByCourse(ctx context.Context, tx *gorm.DB, courseID uint) ([]*models.CourseApplication, error) {
	r.f.mu.Lock()
	defer r.f.mu.Unlock()
	var result []*models.CourseApplication
	for _, a := range r.f.applications {
		if a.CourseID == courseID {
			result = append(result, a)
		}
	}
	return result, nil
}

func (r *fakeApplicationRepo) ListByUser(ctx context.Context, tx *gorm.DB, userID string) ([]*models.CourseApplication, error) {
	r.f.mu.Lock()
	defer r.f.mu.Unlock()
	var result []*models.CourseApplication
	for _, a := range r.f.applications {
		if a.UserID == userID {
			result = append(result, a)
		}
	}
	return result, nil
}

func (r *fakeApplicationRepo) UpdateStatus(ctx context.Context, tx *gorm.DB, id uint, status models.ApplicationStatus) error {
	r.f.mu.Lock()
	defer r.f.mu.Unlock()
	a, ok := r.f.applications[id]
	if !ok {
		return repositories.ErrNotFound
	}
	a.Status = status
	return nil
}

// --- review repo ---

type fakeReviewRepo struct{ f *fakeRepository }

func (r *fakeReviewRepo) Create(ctx context.Context, tx *gorm.DB, review *models.CourseReview) error {
	r.f.mu.Lock()
	defer r.f.mu.Unlock()
	for _, existing := range r.f.reviews {
		if existing.UserID == review.UserID && existing.CourseID == review.CourseID {
			return repositories.ErrDuplicateKey
		}
	}
	review.ID = r.f.allocID()
	r.f.reviews[review.ID] = review
	return nil
}

func (r *fakeReviewRepo) GetByID(ctx context.Context, tx *gorm.DB, id uint) (*models.CourseReview, error) {
	r.f.mu.Lock()
	defer r.f.mu.Unlock()
	review, ok := r.f.reviews[id]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	return review, nil
}

func (r *fakeReviewRepo) ListByCourse(ctx context.Context, tx *gorm.DB, courseID uint) ([]*models.CourseReview, error) {
	r.f.mu.Lock()
	defer r.f.mu.Unlock()
	var result []*models.CourseReview
	for _, review := range r.f.reviews {
		if review.CourseID == courseID {
			result = append(result, review)
		}
	}
	return result, nil
}

func (r *fakeReviewRepo) Update(ctx context.Context, tx *gorm.DB, review *models.CourseReview) error {
	r.f.mu.Lock()
	defer r.f.mu.Unlock()
	if _, ok := r.f.reviews[review.ID]; !ok {
		return repositories.ErrNotFound
	}
	r.f.reviews[review.ID] = review
	return nil
}

func (r *fakeReviewRepo) Delete(ctx context.Context, tx *gorm.DB, id uint) error {
	r.f.mu.Lock()
	defer r.f.mu.Unlock()
	if _, ok := r.f.reviews[id]; !ok {
		return repositories.ErrNotFound
	}
	delete(r.f.reviews, id)
	return nil
}

func (r *fakeReviewRepo) AggregateByCourse(ctx context.Context, tx *gorm.DB, courseID uint) (*repositories.RatingAggregate, error) {
	reviews, _ := r.ListByCourse(ctx, tx, courseID)
	return aggregate(reviews), nil
}

func (r *fakeReviewRepo) AggregateByCourses(ctx context.Context, tx *gorm.DB, courseIDs []uint) (map[uint]*repositories.RatingAggregate, error) {
	result := make(map[uint]*repositories.RatingAggregate, len(courseIDs))
	for _, id := range courseIDs {
		agg, _ := r.AggregateByCourse(ctx, tx, id)
		if agg.Count > 0 {
			result[id] = agg
		}
	}
	return result, nil
}

func (r *fakeReviewRepo) AggregateByTeacher(ctx context.Context, tx *gorm.DB, teacherID string) (*repositories.RatingAggregate, error) {
	r.f.mu.Lock()
	defer r.f.mu.Unlock()
	var reviews []*models.CourseReview
	for _, review := range r.f.reviews {
		course, ok := r.f.courses[review.CourseID]
		if ok && course.TeacherID == teacherID {
			reviews = append(reviews, review)
		}
	}
	return aggregate(reviews), nil
}

func aggregate(reviews []*models.CourseReview) *repositories.RatingAggregate {
	agg := &repositories.RatingAggregate{}
	if len(reviews) == 0 {
		return agg
	}
	sum := 0
	for _, r := range reviews {
		sum += r.Rating
	}
	agg.Count = len(reviews)
	agg.Average = float64(sum) / float64(len(reviews))
	return agg
}

// --- payment repo ---

type fakePaymentRepo struct{ f *fakeRepository }

func (r *fakePaymentRepo) Create(ctx context.Context, tx *gorm.DB, payment *models.Payment) error {
	r.f.mu.Lock()
	defer r.f.mu.Unlock()
	for _, p := range r.f.payments {
		if p.OrderID == payment.OrderID {
			return repositories.ErrDuplicateKey
		}
	}
	payment.ID = r.f.allocID()
	r.f.payments[payment.ID] = payment
	return nil
}

func (r *fakePaymentRepo) GetByID(ctx context.Context, tx *gorm.DB, id uint) (*models.Payment, error) {
	r.f.mu.Lock()
	defer r.f.mu.Unlock()
	p, ok := r.f.payments[id]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	return p, nil
}

func (r *fakePaymentRepo) GetByOrderID(ctx context.Context, tx *gorm.DB, orderID string) (*models.Payment, error) {
	r.f.mu.Lock()
	defer r.f.mu.Unlock()
	for _, p := range r.f.payments {
		if p.OrderID == orderID {
			return p, nil
		}
	}
	return nil, repositories.ErrNotFound
}

func (r *fakePaymentRepo) ListByUser(ctx context.Context, tx *gorm.DB, userID string) ([]*models.Payment, error) {
	r.f.mu.Lock()
	defer r.f.mu.Unlock()
	var result []*models.Payment
	for _, p := range r.f.payments {
		if p.UserID == userID {
			result = append(result, p)
		}
	}
	return result, nil
}

func (r *fakePaymentRepo) ListByStatus(ctx context.Context, tx *gorm.DB, status models.PaymentStatus) ([]*models.Payment, error) {
	r.f.mu.Lock()
	defer r.f.mu.Unlock()
	var result []*models.Payment
	for _, p := range r.f.payments {
		if p.Status == status {
			result = append(result, p)
		}
	}
	return result, nil
}

func (r *fakePaymentRepo) Update(ctx context.Context, tx *gorm.DB, payment *models.Payment) error {
	r.f.mu.Lock()
	defer r.f.mu.Unlock()
	if _, ok := r.f.payments[payment.ID]; !ok {
		return repositories.ErrNotFound
	}
	r.f.payments[payment.ID] = payment
	return nil
}
