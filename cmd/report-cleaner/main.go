package main

import (
	"context"
	"log"

	"github.com/mmdatafocus/stockroom_backend/config"
	"github.com/mmdatafocus/stockroom_backend/models"
)

// One-shot sweep of expired report caches, for running as a scheduled job
// instead of (or in addition to) the in-process worker.
func main() {
	config.ConnectDatabaseWithRetry()

	count, err := models.CleanupExpiredReports(context.Background())
	if err != nil {
		log.Fatalf("report cleanup failed: %v", err)
	}
	log.Printf("report cleanup removed %d expired row(s)", count)
}
