package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/joho/godotenv"

	"github.com/yungbote/coursemarket-backend/internal/app"
)

func main() {
	var path string
	flag.StringVar(&path, "file", "cmd/seed/seed.example.yaml", "YAML catalog fixture")
	flag.Parse()

	_ = godotenv.Load()

	f, err := os.Open(path)
	if err != nil {
		fmt.Printf("open fixture: %v\n", err)
		os.Exit(1)
	}
	fixture, err := LoadFixture(f)
	_ = f.Close()
	if err != nil {
		fmt.Printf("%v\n", err)
		os.Exit(1)
	}

	application, err := app.New()
	if err != nil {
		fmt.Printf("init app: %v\n", err)
		os.Exit(1)
	}
	defer application.Close()

	s := &seeder{
		users:   application.Repos.User,
		auth:    application.Services.Auth,
		catalog: application.Aggregates.Catalog,
	}
	stats, err := s.Apply(context.Background(), fixture)
	if err != nil {
		fmt.Printf("seed failed: %v\n", err)
		application.Close()
		os.Exit(1)
	}
	fmt.Printf("done; instructors=%d courses=%d sections=%d lessons=%d\n",
		stats.Instructors, stats.Courses, stats.Sections, stats.Lessons)
}
