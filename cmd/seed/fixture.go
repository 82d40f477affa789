package main

import (
	"context"
	"fmt"
	"io"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/yungbote/coursemarket-backend/internal/data/repos"
	types "github.com/yungbote/coursemarket-backend/internal/domain"
	domainagg "github.com/yungbote/coursemarket-backend/internal/domain/aggregates"
	"github.com/yungbote/coursemarket-backend/internal/domain/catalog"
	"github.com/yungbote/coursemarket-backend/internal/platform/dbctx"
	"github.com/yungbote/coursemarket-backend/internal/services"
)

// Fixture is the YAML shape of a development catalog.
type Fixture struct {
	Instructors []InstructorFixture `yaml:"instructors"`
}

type InstructorFixture struct {
	Email     string          `yaml:"email"`
	Password  string          `yaml:"password"`
	FirstName string          `yaml:"first_name"`
	LastName  string          `yaml:"last_name"`
	Courses   []CourseFixture `yaml:"courses"`
}

type CourseFixture struct {
	Title       string           `yaml:"title"`
	Description string           `yaml:"description"`
	Category    string           `yaml:"category"`
	PriceCents  int64            `yaml:"price_cents"`
	Published   bool             `yaml:"published"`
	Sections    []SectionFixture `yaml:"sections"`
}

type SectionFixture struct {
	Title   string          `yaml:"title"`
	Lessons []LessonFixture `yaml:"lessons"`
}

type LessonFixture struct {
	Title string `yaml:"title"`
	// VideoFile is a file name placed under the lesson prefix; the object itself is
	// not uploaded. Required, every lesson carries a video.
	VideoFile string `yaml:"video_file"`
}

func LoadFixture(r io.Reader) (*Fixture, error) {
	var f Fixture
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil {
		return nil, fmt.Errorf("decode fixture: %w", err)
	}
	for i, inst := range f.Instructors {
		if strings.TrimSpace(inst.Email) == "" {
			return nil, fmt.Errorf("instructors[%d]: email is required", i)
		}
		for j, c := range inst.Courses {
			if strings.TrimSpace(c.Title) == "" {
				return nil, fmt.Errorf("instructors[%d].courses[%d]: title is required", i, j)
			}
			for k, s := range c.Sections {
				for m, l := range s.Lessons {
					if strings.TrimSpace(l.VideoFile) == "" {
						return nil, fmt.Errorf("instructors[%d].courses[%d].sections[%d].lessons[%d]: video_file is required", i, j, k, m)
					}
				}
			}
		}
	}
	return &f, nil
}

type seeder struct {
	users   repos.UserRepo
	auth    services.AuthService
	catalog domainagg.CatalogAggregate
}

type seedStats struct {
	Instructors int
	Courses     int
	Sections    int
	Lessons     int
}

// Apply registers missing instructors and creates every course through the catalog
// aggregate. Existing instructors are reused; courses are always created.
func (s *seeder) Apply(ctx context.Context, f *Fixture) (seedStats, error) {
	var stats seedStats
	for _, inst := range f.Instructors {
		user, err := s.ensureInstructor(ctx, inst)
		if err != nil {
			return stats, err
		}
		stats.Instructors++
		for _, cf := range inst.Courses {
			course, err := s.catalog.CreateCourse(ctx, domainagg.CreateCourseInput{
				InstructorID: user.ID,
				Title:        cf.Title,
				Description:  cf.Description,
				Category:     cf.Category,
				PriceCents:   cf.PriceCents,
			})
			if err != nil {
				return stats, fmt.Errorf("create course %q: %w", cf.Title, err)
			}
			stats.Courses++
			for _, sf := range cf.Sections {
				section, err := s.catalog.CreateSection(ctx, domainagg.CreateSectionInput{
					ActorID: user.ID, CourseID: course.ID, Title: sf.Title,
				})
				if err != nil {
					return stats, fmt.Errorf("create section %q: %w", sf.Title, err)
				}
				stats.Sections++
				for _, lf := range sf.Lessons {
					in := domainagg.CreateLessonInput{
						ActorID:   user.ID,
						SectionID: section.ID,
						Title:     lf.Title,
						VideoKey:  catalog.LessonObjectPrefix(course.ID) + "seed/" + strings.TrimSpace(lf.VideoFile),
					}
					if _, err := s.catalog.CreateLesson(ctx, in); err != nil {
						return stats, fmt.Errorf("create lesson %q: %w", lf.Title, err)
					}
					stats.Lessons++
				}
			}
			if cf.Published {
				if _, err := s.catalog.SetPublished(ctx, domainagg.SetPublishedInput{
					ActorID: user.ID, CourseID: course.ID, Published: true,
				}); err != nil {
					return stats, fmt.Errorf("publish course %q: %w", cf.Title, err)
				}
			}
		}
	}
	return stats, nil
}

func (s *seeder) ensureInstructor(ctx context.Context, inst InstructorFixture) (*types.User, error) {
	email := strings.ToLower(strings.TrimSpace(inst.Email))
	found, err := s.users.GetByEmails(dbctx.Context{Ctx: ctx}, []string{email})
	if err != nil {
		return nil, fmt.Errorf("lookup %s: %w", email, err)
	}
	if len(found) > 0 {
		if found[0].Role != types.RoleInstructor {
			return nil, fmt.Errorf("%s exists but is not an instructor", email)
		}
		return found[0], nil
	}
	user, err := s.auth.Register(ctx, services.RegisterInput{
		Email:     email,
		Password:  inst.Password,
		FirstName: inst.FirstName,
		LastName:  inst.LastName,
		Role:      types.RoleInstructor,
	})
	if err != nil {
		return nil, fmt.Errorf("register %s: %w", email, err)
	}
	return user, nil
}
