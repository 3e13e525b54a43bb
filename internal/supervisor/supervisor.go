// Package supervisor is the daemon entry point: load the merged
// config, compile the catalog into a task list, and run one goroutine
// per task until shutdown.
package supervisor

import (
	"context"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/opsloop/probed/internal/catalog"
	"github.com/opsloop/probed/internal/collector"
	"github.com/opsloop/probed/internal/compiler"
	"github.com/opsloop/probed/internal/config"
	"github.com/opsloop/probed/internal/logging"
	"github.com/opsloop/probed/internal/plan"
	"github.com/opsloop/probed/internal/probefn"
	"github.com/opsloop/probed/internal/runtime"
)

// Run loads the catalog named by cfg.CatalogPath, compiles it, and
// runs every resulting task until the process receives
// SIGINT/SIGTERM. It returns the process exit code: 0 on clean
// shutdown, 1 on a fatal configuration or catalog problem.
func Run(cfg *config.Config) int {
	log := logging.Default()

	data, err := os.ReadFile(cfg.CatalogPath)
	if err != nil {
		log.Errorw("cannot read catalog", "path", cfg.CatalogPath, "error", err)
		return 1
	}

	cat, err := catalog.Parse(data)
	if err != nil {
		log.Errorw("cannot parse catalog", "path", cfg.CatalogPath, "error", err)
		return 1
	}
	if len(cat.Entries) == 0 {
		log.Warnw("monitor not configured: catalog has no entries", "path", cfg.CatalogPath)
		return 1
	}

	collectorName := cfg.Collector
	if collectorName == "" {
		collectorName = "logging"
	}
	coll, err := collector.Build(collectorName, collector.Config(cfg.CollectorConfig))
	if err != nil {
		log.Errorw("cannot build collector", "name", collectorName, "error", err)
		return 1
	}

	functions := probefn.Default()
	tasks, compileErrs := compiler.Compile(cat.Entries, functions, cfg.DefaultInterval)
	for _, ce := range compileErrs {
		log.Warnw("skipping catalog entry", "position", ce.Position, "run", ce.Run, "error", ce.Err)
	}
	if len(tasks) == 0 {
		log.Warnw("no catalog entries compiled successfully")
		return 1
	}

	hostID, err := os.Hostname()
	if err != nil {
		hostID = "unknown-host"
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		log.Infow("shutting down gracefully")
		cancel()
	}()

	var wg sync.WaitGroup
	for _, task := range tasks {
		taskCtx := plan.NewContext(functions, hostID)
		monitorTask := runtime.New(task.TaskID, task.Plan, task.Scheduler, taskCtx, coll, log)
		log.Infow("starting task", "task_id", task.TaskID)

		wg.Add(1)
		go func(mt *runtime.MonitorTask) {
			defer wg.Done()
			mt.Run(ctx)
		}(monitorTask)
	}
	wg.Wait()

	return 0
}
