package app

import (
	"gorm.io/gorm"

	"github.com/yungbote/coursemarket-backend/internal/data/repos"
	"github.com/yungbote/coursemarket-backend/internal/platform/logger"
)

type Repos struct {
	User       repos.UserRepo
	UserToken  repos.UserTokenRepo
	Course     repos.CourseRepo
	Section    repos.SectionRepo
	Lesson     repos.LessonRepo
	Enrollment repos.EnrollmentRepo
	Progress   repos.ProgressRepo
	Review     repos.ReviewRepo
}

func wireRepos(db *gorm.DB, log *logger.Logger) Repos {
	log.Info("Wiring repos...")
	return Repos{
		User:       repos.NewUserRepo(db, log),
		UserToken:  repos.NewUserTokenRepo(db, log),
		Course:     repos.NewCourseRepo(db, log),
		Section:    repos.NewSectionRepo(db, log),
		Lesson:     repos.NewLessonRepo(db, log),
		Enrollment: repos.NewEnrollmentRepo(db, log),
		Progress:   repos.NewProgressRepo(db, log),
		Review:     repos.NewReviewRepo(db, log),
	}
}
