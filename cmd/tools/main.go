package main

import (
	"flag"
	"log/slog"
	"os"
	"time"

	"github.com/joho/godotenv"

	"condo-watch/internal/config"
	"condo-watch/internal/resolver"
	"condo-watch/internal/store"
)

// Maintenance operations run out of band: re-running the majority-vote
// reconciler over the whole database, purging aged retry rows, and closing
// alerts in bulk.
func main() {
	reconcile := flag.Bool("reconcile", false, "Recompute every building and unit from active listings")
	purgeDays := flag.Int("purge-retries", 0, "Delete retry rows older than this many days")
	resolveAlerts := flag.Bool("resolve-alerts", false, "Mark all open alerts resolved")
	flag.Parse()

	godotenv.Load()
	cfg := config.Load()
	log := slog.New(slog.NewTextHandler(os.Stderr, nil))

	if !*reconcile && *purgeDays == 0 && !*resolveAlerts {
		flag.Usage()
		os.Exit(2)
	}

	st, err := store.Open(cfg.DatabasePath)
	if err != nil {
		log.Error("failed to open database", "error", err)
		os.Exit(1)
	}
	defer st.Close()

	if *reconcile {
		if err := reconcileAll(st, log, cfg); err != nil {
			log.Error("reconcile failed", "error", err)
			os.Exit(1)
		}
	}

	if *purgeDays > 0 {
		before := time.Now().AddDate(0, 0, -*purgeDays)
		n, err := st.PurgeRetries(before)
		if err != nil {
			log.Error("purge failed", "error", err)
			os.Exit(1)
		}
		log.Info("purged retry rows", "removed", n, "older_than", before.Format("2006-01-02"))
	}

	if *resolveAlerts {
		alerts, err := st.ListUnresolvedAlerts()
		if err != nil {
			log.Error("failed to list alerts", "error", err)
			os.Exit(1)
		}
		now := time.Now()
		for _, a := range alerts {
			if err := st.ResolveAlert(a.ID, now); err != nil {
				log.Error("failed to resolve alert", "alert_id", a.ID, "error", err)
				os.Exit(1)
			}
		}
		log.Info("resolved alerts", "count", len(alerts))
	}
}

func reconcileAll(st *store.Store, log *slog.Logger, cfg config.Config) error {
	res := resolver.New(st, log, resolver.Options{PreventNullUpdates: cfg.PreventNullUpdates})

	ids, err := st.ListBuildingIDs()
	if err != nil {
		return err
	}

	properties := 0
	for _, buildingID := range ids {
		ps, err := st.ListPropertiesByBuilding(buildingID)
		if err != nil {
			return err
		}
		for _, p := range ps {
			if err := res.ReconcileProperty(p.ID); err != nil {
				return err
			}
			properties++
		}
		if err := res.ReconcileBuilding(buildingID); err != nil {
			return err
		}
	}

	log.Info("reconciled database", "buildings", len(ids), "properties", properties)
	return nil
}
