package background

import (
	"context"
	"log"
	"sync"
	"time"

	"stocksense/internal/analytics"
	"stocksense/internal/models"
	"stocksense/internal/repositories"
	"stocksense/internal/services"

	"github.com/go-co-op/gocron/v2"
)

// JobScheduler drives the engine's batch cadence: the exception detector
// sweep, the nightly KPI rollup, and the nightly ABC refresh.
type JobScheduler struct {
	scheduler    gocron.Scheduler
	exceptionSvc services.ExceptionService
	abcSvc       services.ABCService
	analyticsSvc analytics.Service
	locationRepo repositories.LocationRepository
	jobs         map[string]gocron.Job
	mu           sync.RWMutex
}

func NewJobScheduler(
	exceptionSvc services.ExceptionService,
	abcSvc services.ABCService,
	analyticsSvc analytics.Service,
	locationRepo repositories.LocationRepository,
) *JobScheduler {
	scheduler, err := gocron.NewScheduler()
	if err != nil {
		log.Fatalf("Failed to create scheduler: %v", err)
	}

	js := &JobScheduler{
		scheduler:    scheduler,
		exceptionSvc: exceptionSvc,
		abcSvc:       abcSvc,
		analyticsSvc: analyticsSvc,
		locationRepo: locationRepo,
		jobs:         make(map[string]gocron.Job),
	}
	js.registerJobs()
	return js
}

func (js *JobScheduler) Start() error {
	log.Printf("Starting background job scheduler")
	js.scheduler.Start()
	return nil
}

func (js *JobScheduler) Stop() error {
	log.Printf("Stopping background job scheduler")
	return js.scheduler.Shutdown()
}

func (js *JobScheduler) registerJobs() {
	sweepJob, err := js.scheduler.NewJob(
		gocron.DurationJob(30*time.Minute),
		gocron.NewTask(js.runDetectorSweep, context.Background()),
		gocron.WithName("exception-detector-sweep"),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		log.Printf("Failed to create detector sweep job: %v", err)
	} else {
		js.jobs["detector-sweep"] = sweepJob
	}

	kpiJob, err := js.scheduler.NewJob(
		gocron.CronJob("0 2 * * *", false),
		gocron.NewTask(js.runKPIRollup, context.Background()),
		gocron.WithName("kpi-rollup"),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		log.Printf("Failed to create KPI rollup job: %v", err)
	} else {
		js.jobs["kpi-rollup"] = kpiJob
	}

	abcJob, err := js.scheduler.NewJob(
		gocron.CronJob("0 3 * * *", false),
		gocron.NewTask(js.runABCRefresh, context.Background()),
		gocron.WithName("abc-refresh"),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		log.Printf("Failed to create ABC refresh job: %v", err)
	} else {
		js.jobs["abc-refresh"] = abcJob
	}

	log.Printf("Registered %d background jobs", len(js.jobs))
}

func (js *JobScheduler) runDetectorSweep(ctx context.Context) {
	result, err := js.exceptionSvc.Sweep(ctx)
	if err != nil {
		log.Printf("Detector sweep failed: %v", err)
		return
	}
	for _, failure := range result.Failures {
		log.Printf("Detector sweep unit failure: %v", failure)
	}
}

// runKPIRollup rolls up the previous calendar month, network-wide and per
// location.
func (js *JobScheduler) runKPIRollup(ctx context.Context) {
	period := time.Now().AddDate(0, -1, 0).Format("2006-01")

	if _, err := js.analyticsSvc.Rollup(ctx, models.KPIScope{Period: period}); err != nil {
		log.Printf("Network KPI rollup for %s failed: %v", period, err)
	}

	locations, err := js.locationRepo.List(ctx, 500, 0)
	if err != nil {
		log.Printf("KPI rollup location listing failed: %v", err)
		return
	}
	for _, location := range locations {
		locID := location.ID
		if _, err := js.analyticsSvc.Rollup(ctx, models.KPIScope{LocationID: &locID, Period: period}); err != nil {
			log.Printf("KPI rollup for location %s period %s failed: %v", location.Code, period, err)
		}
	}
	log.Printf("KPI rollup for %s finished (%d locations)", period, len(locations))
}

func (js *JobScheduler) runABCRefresh(ctx context.Context) {
	period := time.Now().Format("2006-01")
	if _, err := js.abcSvc.Run(ctx, nil, nil, period); err != nil {
		log.Printf("ABC refresh for %s failed: %v", period, err)
		return
	}
	log.Printf("ABC refresh for %s finished", period)
}
