package tasks

import (
	"context"
	"time"

	"github.com/go-co-op/gocron"

	"github.com/carepay/onboarding/config"
	"github.com/carepay/onboarding/storage"
	"github.com/carepay/onboarding/utils/logger"
)

var sessionConf = config.SessionConfig()

// PruneAbandonedSessions deletes sessions whose last activity is older
// than the abandonment window. Subject records already pushed to the
// backend are untouched; only the local session state goes.
func PruneAbandonedSessions() {
	ctx := context.Background()
	store := storage.NewSessionStore(nil)

	ids, err := store.SessionIDs(ctx)
	if err != nil {
		logger.Errorf("PruneAbandonedSessions: %v", err)
		return
	}

	cutoff := time.Now().AddDate(0, 0, -sessionConf.AbandonedAfterDay)
	pruned := 0
	for _, id := range ids {
		last, err := store.LastActivity(ctx, id)
		if err != nil {
			logger.Warnf("PruneAbandonedSessions: %v", err)
			continue
		}
		if last.After(cutoff) {
			continue
		}
		if err := store.Delete(ctx, id); err != nil {
			logger.Warnf("PruneAbandonedSessions: %v", err)
			continue
		}
		pruned++
	}

	if pruned > 0 {
		logger.Infof("pruned %d abandoned sessions", pruned)
	}
}

// StartCronJobs starts cron jobs
func StartCronJobs() {
	scheduler := gocron.NewScheduler(time.Local)

	if sessionConf.JanitorEnabled {
		_, err := scheduler.Every(sessionConf.JanitorIntervalH).Hours().Do(PruneAbandonedSessions)
		if err != nil {
			logger.Errorf("StartCronJobs for PruneAbandonedSessions: %v", err)
		}
	}

	scheduler.StartAsync()
}
