package scheduler

import (
	"github.com/rs/zerolog"

	"github.com/ndewijer/Investment-Portfolio-Manager-sub002/internal/modules/ibkr"
)

// AutoAllocateJob drains the broker inbox using the configured default
// split. Sources fail independently; failures stay pending for manual
// allocation.
type AutoAllocateJob struct {
	service *ibkr.Service
	log     zerolog.Logger
}

// NewAutoAllocateJob creates the auto-allocation job
func NewAutoAllocateJob(service *ibkr.Service, log zerolog.Logger) *AutoAllocateJob {
	return &AutoAllocateJob{
		service: service,
		log:     log.With().Str("job", "auto_allocate").Logger(),
	}
}

// Name returns the job name
func (j *AutoAllocateJob) Name() string {
	return "auto_allocate"
}

// Run allocates every pending broker transaction with the default split
func (j *AutoAllocateJob) Run() error {
	results, err := j.service.AutoAllocatePending()
	if err != nil {
		return err
	}
	if results == nil {
		// auto-allocate disabled or no defaults configured
		return nil
	}

	allocated, failed := 0, 0
	for _, res := range results {
		if res.Success {
			allocated++
			continue
		}
		failed++
		j.log.Warn().
			Str("ibkr_id", res.SourceID).
			Str("error", res.Error).
			Msg("Auto-allocation failed for transaction")
	}

	j.log.Info().
		Int("allocated", allocated).
		Int("failed", failed).
		Msg("Auto-allocation run finished")

	return nil
}
