package controllers

import (
	"sync"

	"github.com/gofiber/fiber/v2/log"

	"github.com/trevall/carfolio/app/repository"
	"github.com/trevall/carfolio/internal/pkg/assetstore"
	"github.com/trevall/carfolio/internal/pkg/batch"
	"github.com/trevall/carfolio/internal/pkg/jobqueue"
	"github.com/trevall/carfolio/internal/pkg/ordering"
	"github.com/trevall/carfolio/internal/pkg/preview"
	"github.com/trevall/carfolio/internal/pkg/replace"
	"github.com/trevall/carfolio/internal/pkg/transform"
)

// pipeline bundles the long-lived transform machinery the handlers share:
// the remote invoker, the local preview renderer, the replacement
// coordinator and the per-gallery ordering registry. Built once on first
// request, after the repository factory is initialized.
type pipeline struct {
	engine       transform.Engine
	invoker      *transform.Invoker
	local        *preview.LocalRenderer
	coordinator  *replace.Coordinator
	orchestrator *batch.Orchestrator
	ordering     *ordering.Registry
	store        *assetstore.Client
	jobs         *jobqueue.Queue

	// storeReady is false when the asset store could not be reached at
	// startup; commits are rejected with 503 instead of panicking mid-swap.
	storeReady bool
}

var (
	pipelineOnce sync.Once
	pipelineInst *pipeline
)

func getPipeline() *pipeline {
	pipelineOnce.Do(func() {
		repos := repository.GetGlobalFactory().GetRepositories()

		engine := transform.NewHTTPEngine()
		invoker := transform.NewInvoker(engine)

		var store *assetstore.Client
		var uploader replace.Uploader
		if cfg, err := assetstore.LoadConfig(); err != nil {
			log.Warnf("[Pipeline] asset store disabled: %v", err)
		} else if client, cerr := assetstore.NewClient(cfg); cerr != nil {
			log.Warnf("[Pipeline] asset store unavailable: %v", cerr)
		} else {
			store = client
			uploader = assetstore.NewProcessedUploader(client, repos.Image)
		}

		coordinator := replace.NewCoordinator(uploader, repos.Gallery, replace.NewHTTPVerifier())

		jobs := jobqueue.NewQueue(2)
		jobs.RegisterProcessor(jobqueue.JobTypeCacheWarm, jobqueue.NewCacheWarmProcessor(engine))
		jobs.Start()

		pipelineInst = &pipeline{
			engine:       engine,
			invoker:      invoker,
			local:        preview.NewLocalRenderer(),
			coordinator:  coordinator,
			orchestrator: batch.NewOrchestrator(invoker, coordinator, batch.RedisRecorder),
			ordering:     ordering.NewRegistry(repos.Gallery),
			store:        store,
			jobs:         jobs,
			storeReady:   uploader != nil,
		}
	})
	return pipelineInst
}
