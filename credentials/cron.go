package credentials

import (
	"context"
	"fmt"
	"log"
	"sync"

	"github.com/robfig/cron/v3"
)

// RefreshScheduler renews tokens ahead of expiry so publish requests rarely
// pay for a refresh call.
type RefreshScheduler struct {
	tokens *TokenStore
	cron   *cron.Cron
	mu     sync.Mutex
	id     cron.EntryID
}

func NewRefreshScheduler(tokens *TokenStore) *RefreshScheduler {
	return &RefreshScheduler{tokens: tokens, cron: cron.New()}
}

// Start registers the job and starts the cron runner.
func (s *RefreshScheduler) Start(schedule string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	id, err := s.cron.AddFunc(schedule, func() {
		log.Println("Cron triggered: checking platform tokens")
		s.tokens.RefreshAll(context.Background())
	})
	if err != nil {
		return fmt.Errorf("failed to add token refresh job: %w", err)
	}

	s.id = id
	s.cron.Start()
	log.Printf("Token refresh scheduled: %s", schedule)
	return nil
}

// Stop halts the runner and waits for a running job to finish.
func (s *RefreshScheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	<-s.cron.Stop().Done()
}

// Entries reports how many jobs are registered.
func (s *RefreshScheduler) Entries() int {
	return len(s.cron.Entries())
}
