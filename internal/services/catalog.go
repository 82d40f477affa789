package services

import (
	"context"
	"errors"
	"fmt"
	"path"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/coursemarket-backend/internal/data/repos"
	types "github.com/yungbote/coursemarket-backend/internal/domain"
	domainagg "github.com/yungbote/coursemarket-backend/internal/domain/aggregates"
	"github.com/yungbote/coursemarket-backend/internal/observability"
	"github.com/yungbote/coursemarket-backend/internal/platform/apierr"
	"github.com/yungbote/coursemarket-backend/internal/platform/dbctx"
	"github.com/yungbote/coursemarket-backend/internal/platform/gcp"
	"github.com/yungbote/coursemarket-backend/internal/platform/logger"
)

type CourseListQuery struct {
	Category string
	Limit    int
	Offset   int
}

type CoursePage struct {
	Courses []*CourseView `json:"courses"`
	Total   int64         `json:"total"`
	Limit   int           `json:"limit"`
	Offset  int           `json:"offset"`
}

// CourseView is a course plus its signed thumbnail URL.
type CourseView struct {
	*types.Course
	ThumbnailURL string `json:"thumbnail_url,omitempty"`
}

// CourseDetail is a course with its ordered curriculum.
type CourseDetail struct {
	*CourseView
	Sections     []*types.Section `json:"sections"`
	TotalLessons int              `json:"total_lessons"`
}

type CreateCourseRequest struct {
	Title       string `json:"title" validate:"required,max=200"`
	Description string `json:"description" validate:"max=10000"`
	Category    string `json:"category" validate:"max=100"`
	PriceCents  int64  `json:"price_cents" validate:"gte=0"`
}

type UpdateCourseRequest struct {
	Title       *string `json:"title" validate:"omitempty,max=200"`
	Description *string `json:"description" validate:"omitempty,max=10000"`
	Category    *string `json:"category" validate:"omitempty,max=100"`
	PriceCents  *int64  `json:"price_cents" validate:"omitempty,gte=0"`
}

type SectionRequest struct {
	Title string `json:"title"`
	Order *int   `json:"order"`
}

type SectionPatch struct {
	Title *string `json:"title"`
	Order *int    `json:"order"`
}

type LessonUploadRequest struct {
	VideoFileName         string `json:"video_file_name"`
	VideoContentType      string `json:"video_content_type"`
	AttachmentFileName    string `json:"attachment_file_name"`
	AttachmentContentType string `json:"attachment_content_type"`
}

type LessonUploadTargets struct {
	Video      *UploadTarget `json:"video,omitempty"`
	Attachment *UploadTarget `json:"attachment,omitempty"`
}

type CreateLessonRequest struct {
	Title         string `json:"title"`
	Order         *int   `json:"order"`
	VideoKey      string `json:"video_key"`
	AttachmentKey string `json:"attachment_key"`
}

type LessonPatch struct {
	Title *string `json:"title"`
	Order *int    `json:"order"`
}

type Playback struct {
	URL       string    `json:"url"`
	ExpiresAt time.Time `json:"expiresAt"`
}

type CatalogService interface {
	ListPublished(ctx context.Context, q CourseListQuery) (*CoursePage, error)
	GetPublishedCourse(ctx context.Context, courseID uuid.UUID) (*CourseDetail, error)

	ListMyCourses(ctx context.Context) ([]*CourseView, error)
	GetMyCourse(ctx context.Context, courseID uuid.UUID) (*CourseDetail, error)
	CreateCourse(ctx context.Context, req CreateCourseRequest) (*types.Course, error)
	UpdateCourse(ctx context.Context, courseID uuid.UUID, req UpdateCourseRequest) (*types.Course, error)
	SetPublished(ctx context.Context, courseID uuid.UUID, published bool) (*types.Course, error)
	DeleteCourse(ctx context.Context, courseID uuid.UUID) error
	RequestThumbnailUpload(ctx context.Context, courseID uuid.UUID, fileName, contentType string) (*UploadTarget, error)
	ConfirmThumbnail(ctx context.Context, courseID uuid.UUID, key string) (*CourseView, error)

	CreateSection(ctx context.Context, courseID uuid.UUID, req SectionRequest) (*types.Section, error)
	UpdateSection(ctx context.Context, sectionID uuid.UUID, req SectionPatch) (*types.Section, error)
	DeleteSection(ctx context.Context, sectionID uuid.UUID) error

	RequestLessonUpload(ctx context.Context, sectionID uuid.UUID, req LessonUploadRequest) (*LessonUploadTargets, error)
	CreateLesson(ctx context.Context, sectionID uuid.UUID, req CreateLessonRequest) (*types.Lesson, error)
	UpdateLesson(ctx context.Context, lessonID uuid.UUID, req LessonPatch) (*types.Lesson, error)
	RequestVideoUpload(ctx context.Context, lessonID uuid.UUID, fileName, contentType string) (*UploadTarget, error)
	ReplaceLessonVideo(ctx context.Context, lessonID uuid.UUID, key string) (*types.Lesson, error)
	DeleteLesson(ctx context.Context, lessonID uuid.UUID) error

	// GetLessonPlayback signs the lesson video for an enrolled learner or the owning
	// instructor and records the learner's bookmark.
	GetLessonPlayback(ctx context.Context, lessonID uuid.UUID) (*Playback, error)
}

type CatalogServiceDeps struct {
	Log         *logger.Logger
	Courses     repos.CourseRepo
	Sections    repos.SectionRepo
	Lessons     repos.LessonRepo
	Enrollments repos.EnrollmentRepo
	Catalog     domainagg.CatalogAggregate
	Progress    domainagg.ProgressAggregate
	Bucket      gcp.BucketService
	Metrics     *observability.Metrics
	TTLs        URLTTLs
}

type catalogService struct {
	deps    CatalogServiceDeps
	log     *logger.Logger
	janitor objectJanitor
	now     func() time.Time
}

func NewCatalogService(deps CatalogServiceDeps) CatalogService {
	log := deps.Log.With("service", "CatalogService")
	deps.TTLs = deps.TTLs.withDefaults()
	return &catalogService{
		deps:    deps,
		log:     log,
		janitor: objectJanitor{log: log, bucket: deps.Bucket, metrics: deps.Metrics},
		now:     time.Now,
	}
}

func notFound(op, msg string) error {
	return domainagg.NewError(domainagg.CodeNotFound, op, msg, nil)
}

func forbidden(op, msg string) error {
	return domainagg.NewError(domainagg.CodeForbidden, op, msg, nil)
}

// storeErr maps a repo read failure, keeping not-found distinct.
func storeErr(op string, err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return domainagg.Wrap(domainagg.CodeNotFound, op, err)
	}
	return fmt.Errorf("%s: %w", op, err)
}

func (cs *catalogService) view(ctx context.Context, c *types.Course) *CourseView {
	return &CourseView{Course: c, ThumbnailURL: cs.janitor.thumbnailURL(ctx, c.ThumbnailKey, cs.deps.TTLs.Playback)}
}

func (cs *catalogService) ListPublished(ctx context.Context, q CourseListQuery) (*CoursePage, error) {
	rows, total, err := cs.deps.Courses.ListPublished(dbctx.Context{Ctx: ctx}, repos.ListPublishedFilter{
		Category: trim(q.Category),
		Limit:    q.Limit,
		Offset:   q.Offset,
	})
	if err != nil {
		return nil, fmt.Errorf("list published courses: %w", err)
	}
	out := &CoursePage{Courses: make([]*CourseView, 0, len(rows)), Total: total, Limit: q.Limit, Offset: q.Offset}
	for _, c := range rows {
		out.Courses = append(out.Courses, cs.view(ctx, c))
	}
	return out, nil
}

func (cs *catalogService) GetPublishedCourse(ctx context.Context, courseID uuid.UUID) (*CourseDetail, error) {
	const op = "Catalog.GetPublishedCourse"
	course, err := cs.deps.Courses.GetByID(dbctx.Context{Ctx: ctx}, courseID)
	if err != nil {
		return nil, storeErr(op, err)
	}
	if !course.IsPublished {
		return nil, notFound(op, "course not found")
	}
	return cs.detail(ctx, course)
}

func (cs *catalogService) detail(ctx context.Context, course *types.Course) (*CourseDetail, error) {
	dbc := dbctx.Context{Ctx: ctx}
	sections, err := cs.deps.Sections.ListByCourse(dbc, course.ID)
	if err != nil {
		return nil, fmt.Errorf("list sections: %w", err)
	}
	lessons, err := cs.deps.Lessons.ListByCourse(dbc, course.ID)
	if err != nil {
		return nil, fmt.Errorf("list lessons: %w", err)
	}
	bySection := make(map[uuid.UUID]*types.Section, len(sections))
	for _, s := range sections {
		s.Lessons = []*types.Lesson{}
		bySection[s.ID] = s
	}
	for _, l := range lessons {
		if s := bySection[l.SectionID]; s != nil {
			s.Lessons = append(s.Lessons, l)
		}
	}
	return &CourseDetail{CourseView: cs.view(ctx, course), Sections: sections, TotalLessons: len(lessons)}, nil
}

func (cs *catalogService) ListMyCourses(ctx context.Context) ([]*CourseView, error) {
	rd, err := caller(ctx)
	if err != nil {
		return nil, err
	}
	rows, err := cs.deps.Courses.ListByInstructor(dbctx.Context{Ctx: ctx}, rd.UserID, 0)
	if err != nil {
		return nil, fmt.Errorf("list instructor courses: %w", err)
	}
	out := make([]*CourseView, 0, len(rows))
	for _, c := range rows {
		out = append(out, cs.view(ctx, c))
	}
	return out, nil
}

// ownedCourse is the unlocked ownership read used by endpoints that do not write
// catalog rows (detail, signed upload URLs).
func (cs *catalogService) ownedCourse(ctx context.Context, op string, courseID uuid.UUID) (*types.Course, error) {
	rd, err := caller(ctx)
	if err != nil {
		return nil, err
	}
	course, err := cs.deps.Courses.GetByID(dbctx.Context{Ctx: ctx}, courseID)
	if err != nil {
		return nil, storeErr(op, err)
	}
	if course.InstructorID != rd.UserID {
		return nil, forbidden(op, "caller does not own this course")
	}
	return course, nil
}

func (cs *catalogService) GetMyCourse(ctx context.Context, courseID uuid.UUID) (*CourseDetail, error) {
	course, err := cs.ownedCourse(ctx, "Catalog.GetMyCourse", courseID)
	if err != nil {
		return nil, err
	}
	return cs.detail(ctx, course)
}

func (cs *catalogService) CreateCourse(ctx context.Context, req CreateCourseRequest) (*types.Course, error) {
	rd, err := caller(ctx)
	if err != nil {
		return nil, err
	}
	if err := validateInput(req); err != nil {
		return nil, err
	}
	course, err := cs.deps.Catalog.CreateCourse(ctx, domainagg.CreateCourseInput{
		InstructorID: rd.UserID,
		Title:        req.Title,
		Description:  req.Description,
		Category:     req.Category,
		PriceCents:   req.PriceCents,
	})
	if err != nil {
		return nil, err
	}
	cs.log.Info("Course created", "course_id", course.ID, "instructor_id", rd.UserID)
	return course, nil
}

func (cs *catalogService) UpdateCourse(ctx context.Context, courseID uuid.UUID, req UpdateCourseRequest) (*types.Course, error) {
	rd, err := caller(ctx)
	if err != nil {
		return nil, err
	}
	if err := validateInput(req); err != nil {
		return nil, err
	}
	return cs.deps.Catalog.UpdateCourse(ctx, domainagg.UpdateCourseInput{
		ActorID:     rd.UserID,
		CourseID:    courseID,
		Title:       req.Title,
		Description: req.Description,
		Category:    req.Category,
		PriceCents:  req.PriceCents,
	})
}

func (cs *catalogService) SetPublished(ctx context.Context, courseID uuid.UUID, published bool) (*types.Course, error) {
	rd, err := caller(ctx)
	if err != nil {
		return nil, err
	}
	return cs.deps.Catalog.SetPublished(ctx, domainagg.SetPublishedInput{ActorID: rd.UserID, CourseID: courseID, Published: published})
}

func (cs *catalogService) DeleteCourse(ctx context.Context, courseID uuid.UUID) error {
	rd, err := caller(ctx)
	if err != nil {
		return err
	}
	res, err := cs.deps.Catalog.DeleteCourse(ctx, domainagg.DeleteCourseInput{ActorID: rd.UserID, CourseID: courseID})
	if err != nil {
		return err
	}
	cs.janitor.cleanup(ctx, res.Orphaned, res.PrefixOrphaned)
	cs.log.Info("Course deleted", "course_id", courseID, "objects", len(res.Orphaned))
	return nil
}

func (cs *catalogService) sign(ctx context.Context, category gcp.BucketCategory, key, contentType string, ttl time.Duration) (*UploadTarget, error) {
	if cs.deps.Bucket == nil {
		return nil, fmt.Errorf("object storage not configured")
	}
	url, err := cs.deps.Bucket.SignedUploadURL(ctx, category, key, contentType, ttl)
	if err != nil {
		return nil, fmt.Errorf("sign upload url: %w", err)
	}
	return &UploadTarget{Key: key, URL: url, ContentType: contentType, ExpiresAt: cs.now().Add(ttl).UTC()}, nil
}

func resolveContentType(fileName, contentType string) string {
	if ct := trim(contentType); ct != "" {
		return ct
	}
	return gcp.ContentTypeForKey(fileName)
}

func (cs *catalogService) RequestThumbnailUpload(ctx context.Context, courseID uuid.UUID, fileName, contentType string) (*UploadTarget, error) {
	if _, err := cs.ownedCourse(ctx, "Catalog.RequestThumbnailUpload", courseID); err != nil {
		return nil, err
	}
	ct := resolveContentType(fileName, contentType)
	if !gcp.IsImageContentType(ct) {
		return nil, apierr.BadRequest("invalid_content_type", "thumbnail must be an image")
	}
	name := fileName
	if path.Ext(safeFileName(name, "")) == "" {
		name = "thumbnail" + gcp.ExtensionForContentType(ct)
	}
	return cs.sign(ctx, gcp.BucketCategoryThumbnail, thumbnailObjectKey(courseID, name), ct, cs.deps.TTLs.ThumbnailUpload)
}

func (cs *catalogService) ConfirmThumbnail(ctx context.Context, courseID uuid.UUID, key string) (*CourseView, error) {
	rd, err := caller(ctx)
	if err != nil {
		return nil, err
	}
	res, err := cs.deps.Catalog.SetThumbnail(ctx, domainagg.SetThumbnailInput{ActorID: rd.UserID, CourseID: courseID, Key: key})
	if err != nil {
		return nil, err
	}
	cs.janitor.cleanup(ctx, res.Orphaned, "")
	return cs.view(ctx, res.Course), nil
}

func (cs *catalogService) CreateSection(ctx context.Context, courseID uuid.UUID, req SectionRequest) (*types.Section, error) {
	rd, err := caller(ctx)
	if err != nil {
		return nil, err
	}
	return cs.deps.Catalog.CreateSection(ctx, domainagg.CreateSectionInput{
		ActorID: rd.UserID, CourseID: courseID, Title: req.Title, Order: req.Order,
	})
}

func (cs *catalogService) UpdateSection(ctx context.Context, sectionID uuid.UUID, req SectionPatch) (*types.Section, error) {
	rd, err := caller(ctx)
	if err != nil {
		return nil, err
	}
	return cs.deps.Catalog.UpdateSection(ctx, domainagg.UpdateSectionInput{
		ActorID: rd.UserID, SectionID: sectionID, Title: req.Title, Order: req.Order,
	})
}

func (cs *catalogService) DeleteSection(ctx context.Context, sectionID uuid.UUID) error {
	rd, err := caller(ctx)
	if err != nil {
		return err
	}
	res, err := cs.deps.Catalog.DeleteSection(ctx, domainagg.DeleteSectionInput{ActorID: rd.UserID, SectionID: sectionID})
	if err != nil {
		return err
	}
	cs.janitor.cleanup(ctx, res.Orphaned, "")
	return nil
}

func (cs *catalogService) RequestLessonUpload(ctx context.Context, sectionID uuid.UUID, req LessonUploadRequest) (*LessonUploadTargets, error) {
	const op = "Catalog.RequestLessonUpload"
	section, err := cs.deps.Sections.GetByID(dbctx.Context{Ctx: ctx}, sectionID)
	if err != nil {
		return nil, storeErr(op, err)
	}
	if _, err := cs.ownedCourse(ctx, op, section.CourseID); err != nil {
		return nil, err
	}
	if trim(req.VideoFileName) == "" && trim(req.AttachmentFileName) == "" {
		return nil, apierr.BadRequest("invalid_request", "video_file_name or attachment_file_name is required")
	}
	out := &LessonUploadTargets{}
	if trim(req.VideoFileName) != "" {
		ct := resolveContentType(req.VideoFileName, req.VideoContentType)
		if !gcp.IsVideoContentType(ct) {
			return nil, apierr.BadRequest("invalid_content_type", "video must have a video content type")
		}
		if out.Video, err = cs.sign(ctx, gcp.BucketCategoryMedia, lessonObjectKey(section.CourseID, req.VideoFileName), ct, cs.deps.TTLs.LessonUpload); err != nil {
			return nil, err
		}
	}
	if trim(req.AttachmentFileName) != "" {
		ct := resolveContentType(req.AttachmentFileName, req.AttachmentContentType)
		if out.Attachment, err = cs.sign(ctx, gcp.BucketCategoryMedia, lessonObjectKey(section.CourseID, req.AttachmentFileName), ct, cs.deps.TTLs.LessonUpload); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func (cs *catalogService) CreateLesson(ctx context.Context, sectionID uuid.UUID, req CreateLessonRequest) (*types.Lesson, error) {
	rd, err := caller(ctx)
	if err != nil {
		return nil, err
	}
	return cs.deps.Catalog.CreateLesson(ctx, domainagg.CreateLessonInput{
		ActorID:       rd.UserID,
		SectionID:     sectionID,
		Title:         req.Title,
		Order:         req.Order,
		VideoKey:      req.VideoKey,
		AttachmentKey: req.AttachmentKey,
	})
}

func (cs *catalogService) UpdateLesson(ctx context.Context, lessonID uuid.UUID, req LessonPatch) (*types.Lesson, error) {
	rd, err := caller(ctx)
	if err != nil {
		return nil, err
	}
	return cs.deps.Catalog.UpdateLesson(ctx, domainagg.UpdateLessonInput{
		ActorID: rd.UserID, LessonID: lessonID, Title: req.Title, Order: req.Order,
	})
}

func (cs *catalogService) RequestVideoUpload(ctx context.Context, lessonID uuid.UUID, fileName, contentType string) (*UploadTarget, error) {
	const op = "Catalog.RequestVideoUpload"
	lesson, err := cs.deps.Lessons.GetByID(dbctx.Context{Ctx: ctx}, lessonID)
	if err != nil {
		return nil, storeErr(op, err)
	}
	if _, err := cs.ownedCourse(ctx, op, lesson.CourseID); err != nil {
		return nil, err
	}
	ct := resolveContentType(fileName, contentType)
	if !gcp.IsVideoContentType(ct) {
		return nil, apierr.BadRequest("invalid_content_type", "video must have a video content type")
	}
	return cs.sign(ctx, gcp.BucketCategoryMedia, lessonObjectKey(lesson.CourseID, fileName), ct, cs.deps.TTLs.LessonUpload)
}

func (cs *catalogService) ReplaceLessonVideo(ctx context.Context, lessonID uuid.UUID, key string) (*types.Lesson, error) {
	rd, err := caller(ctx)
	if err != nil {
		return nil, err
	}
	res, err := cs.deps.Catalog.ReplaceLessonVideo(ctx, domainagg.ReplaceLessonVideoInput{ActorID: rd.UserID, LessonID: lessonID, VideoKey: key})
	if err != nil {
		return nil, err
	}
	cs.janitor.cleanup(ctx, res.Orphaned, "")
	return res.Lesson, nil
}

func (cs *catalogService) DeleteLesson(ctx context.Context, lessonID uuid.UUID) error {
	rd, err := caller(ctx)
	if err != nil {
		return err
	}
	res, err := cs.deps.Catalog.DeleteLesson(ctx, domainagg.DeleteLessonInput{ActorID: rd.UserID, LessonID: lessonID})
	if err != nil {
		return err
	}
	cs.janitor.cleanup(ctx, res.Orphaned, "")
	return nil
}

func (cs *catalogService) GetLessonPlayback(ctx context.Context, lessonID uuid.UUID) (*Playback, error) {
	const op = "Catalog.GetLessonPlayback"
	rd, err := caller(ctx)
	if err != nil {
		return nil, err
	}
	dbc := dbctx.Context{Ctx: ctx}
	lesson, err := cs.deps.Lessons.GetByID(dbc, lessonID)
	if err != nil {
		return nil, storeErr(op, err)
	}
	course, err := cs.deps.Courses.GetByID(dbc, lesson.CourseID)
	if err != nil {
		return nil, storeErr(op, err)
	}
	owner := course.InstructorID == rd.UserID
	if !owner {
		enrolled, err := cs.deps.Enrollments.Exists(dbc, rd.UserID, course.ID)
		if err != nil {
			return nil, fmt.Errorf("%s: check enrollment: %w", op, err)
		}
		if !enrolled {
			return nil, forbidden(op, "not enrolled in this course")
		}
	}
	if lesson.VideoKey == "" {
		return nil, notFound(op, "lesson has no video")
	}
	ttl := cs.deps.TTLs.Playback
	url, err := cs.janitor.signDownload(ctx, gcp.BucketCategoryMedia, lesson.VideoKey, ttl)
	if err != nil {
		return nil, fmt.Errorf("%s: sign download url: %w", op, err)
	}
	if !owner && cs.deps.Progress != nil {
		if _, err := cs.deps.Progress.SetLastAccessed(ctx, domainagg.SetLastAccessedInput{
			UserID: rd.UserID, CourseID: course.ID, LessonID: lesson.ID,
		}); err != nil {
			cs.log.Warn("Bookmark update failed", "lesson_id", lesson.ID, "error", err)
		}
	}
	return &Playback{URL: url, ExpiresAt: cs.now().Add(ttl).UTC()}, nil
}
