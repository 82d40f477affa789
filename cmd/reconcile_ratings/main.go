package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"sync/atomic"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/yungbote/coursemarket-backend/internal/app"
	domainagg "github.com/yungbote/coursemarket-backend/internal/domain/aggregates"
	"github.com/yungbote/coursemarket-backend/internal/platform/dbctx"
)

type idList []string

func (l *idList) String() string { return strings.Join(*l, ",") }
func (l *idList) Set(v string) error {
	v = strings.TrimSpace(v)
	if v != "" {
		*l = append(*l, v)
	}
	return nil
}

func main() {
	var courses idList
	var dryRun bool
	var workers int
	flag.Var(&courses, "course", "course_id to reconcile (repeatable); all courses when omitted")
	flag.BoolVar(&dryRun, "dry-run", false, "report drift without writing")
	flag.IntVar(&workers, "workers", 4, "courses reconciled concurrently")
	flag.Parse()

	application, err := app.New()
	if err != nil {
		fmt.Printf("init app: %v\n", err)
		os.Exit(1)
	}
	defer application.Close()

	ctx := context.Background()

	var ids []uuid.UUID
	if len(courses) > 0 {
		for _, s := range courses {
			id, err := uuid.Parse(strings.TrimSpace(s))
			if err != nil || id == uuid.Nil {
				fmt.Printf("skipping invalid course_id %q\n", s)
				continue
			}
			ids = append(ids, id)
		}
		if len(ids) == 0 {
			fmt.Println("no valid course_id values provided")
			return
		}
	} else {
		ids, err = application.Repos.Course.ListIDs(dbctx.Context{Ctx: ctx})
		if err != nil {
			fmt.Printf("list courses: %v\n", err)
			os.Exit(1)
		}
	}

	if workers <= 0 {
		workers = 1
	}
	var drifted, failed atomic.Int64
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for _, id := range ids {
		id := id
		g.Go(func() error {
			res, err := application.Aggregates.Rating.Reconcile(gctx, domainagg.ReconcileRatingInput{CourseID: id, DryRun: dryRun})
			if err != nil {
				failed.Add(1)
				fmt.Printf("reconcile failed course_id=%s: %v\n", id, err)
				return nil
			}
			if !res.Changed {
				return nil
			}
			drifted.Add(1)
			prefix := "repaired"
			if dryRun {
				prefix = "[dry-run] drift"
			}
			fmt.Printf("%s course_id=%s sum %d->%d total %d->%d\n",
				prefix, id, res.PreviousSum, res.RecomputedSum, res.PreviousTotal, res.RecomputedTotal)
			return nil
		})
	}
	_ = g.Wait()

	fmt.Printf("done; courses=%d drifted=%d failed=%d\n", len(ids), drifted.Load(), failed.Load())
	if failed.Load() > 0 {
		application.Close()
		os.Exit(1)
	}
}
