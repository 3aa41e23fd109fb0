package jobs

import (
	"context"
	"log"
	"time"

	"infofix-oracle/internal/blockchain"
	"infofix-oracle/internal/repository"
)

// OracleDigestJob periodically prunes the task-reader cache and logs a
// digest of submissions awaiting review.
type OracleDigestJob struct {
	repo   *repository.SubmissionRepository
	reader *blockchain.TaskReader
}

func NewOracleDigestJob(repo *repository.SubmissionRepository, reader *blockchain.TaskReader) *OracleDigestJob {
	return &OracleDigestJob{
		repo:   repo,
		reader: reader,
	}
}

// Start begins the periodic digest job
func (j *OracleDigestJob) Start(interval time.Duration) {
	go func() {
		ctx := context.Background()
		j.run(ctx)

		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for range ticker.C {
			j.run(ctx)
		}
	}()
}

func (j *OracleDigestJob) run(ctx context.Context) {
	if evicted := j.reader.PruneCache(); evicted > 0 {
		log.Printf("Task cache: evicted %d expired entries", evicted)
	}

	counts, err := j.repo.CountPendingByTask(ctx)
	if err != nil {
		log.Printf("Pending digest error: %v", err)
		return
	}

	if len(counts) == 0 {
		return
	}

	total := int64(0)
	for _, n := range counts {
		total += n
	}
	log.Printf("Pending review: %d submissions across %d tasks", total, len(counts))
}
