package domain

import (
	"github.com/yungbote/coursemarket-backend/internal/domain/catalog"
	"github.com/yungbote/coursemarket-backend/internal/domain/learning"
	"github.com/yungbote/coursemarket-backend/internal/domain/user"
)

const (
	RoleLearner    = user.RoleLearner
	RoleInstructor = user.RoleInstructor
)

type User = user.User
type UserToken = user.UserToken

type Course = catalog.Course
type Section = catalog.Section
type Lesson = catalog.Lesson

type Enrollment = learning.Enrollment
type Progress = learning.Progress
type Review = learning.Review
type ProgressSnapshot = learning.Snapshot

// Models lists every persisted model in migration order.
func Models() []any {
	return []any{
		&User{},
		&UserToken{},
		&Course{},
		&Section{},
		&Lesson{},
		&Enrollment{},
		&Progress{},
		&Review{},
	}
}
