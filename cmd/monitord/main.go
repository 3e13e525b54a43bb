// Command monitord is the probed monitor daemon's entry point.
package main

import (
	"flag"
	"os"

	"github.com/opsloop/probed/internal/config"
	"github.com/opsloop/probed/internal/logging"
	"github.com/opsloop/probed/internal/supervisor"

	_ "github.com/opsloop/probed/internal/collector/logcollector"
	_ "github.com/opsloop/probed/internal/collector/mongo"
	_ "github.com/opsloop/probed/internal/collector/redis"
)

func main() {
	configPath := flag.String("config", "/etc/salt/monitor.conf", "path to the monitor overlay config file")
	flag.Parse()

	log := logging.Default()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Errorw("failed to load config", "error", err)
		os.Exit(1)
	}

	log.Infow("monitord starting",
		"catalog_path", cfg.CatalogPath,
		"collector", cfg.Collector,
		"alert_master", cfg.AlertMaster,
		"alert_master_addr", cfg.AlertMasterAddr,
	)

	os.Exit(supervisor.Run(cfg))
}
