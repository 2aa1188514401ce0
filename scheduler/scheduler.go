package scheduler

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/robfig/cron/v3"

	"auction_tracker/config"
	"auction_tracker/models"
	"auction_tracker/scraper"
	"auction_tracker/storage"
)

const commandPollInterval = 2 * time.Second

type Scheduler struct {
	cfg          *config.Config
	orchestrator *scraper.Orchestrator
	scanner      *scraper.Scanner
	store        *storage.SQLiteStore
	cron         *cron.Cron
	stopCh       chan struct{}
	pollEvery    time.Duration
}

func New(cfg *config.Config, orchestrator *scraper.Orchestrator, scanner *scraper.Scanner, store *storage.SQLiteStore) *Scheduler {
	return &Scheduler{
		cfg:          cfg,
		orchestrator: orchestrator,
		scanner:      scanner,
		store:        store,
		cron:         cron.New(),
		stopCh:       make(chan struct{}),
		pollEvery:    commandPollInterval,
	}
}

func (s *Scheduler) Start(ctx context.Context) error {
	go s.pollCommands(ctx)

	scheduled := false
	if s.cfg.Schedule.Cron != "" {
		log.Printf("[SCHED] Cycle cron: %s", s.cfg.Schedule.Cron)
		_, err := s.cron.AddFunc(s.cfg.Schedule.Cron, func() {
			if err := s.TriggerNow(ctx); err != nil {
				log.Printf("[SCHED] Scheduled cycle error: %v", err)
			}
		})
		if err != nil {
			return fmt.Errorf("invalid cron expression: %w", err)
		}
		scheduled = true
	}

	if s.cfg.Schedule.ScanCron != "" && s.scanner != nil {
		log.Printf("[SCHED] Scan cron: %s", s.cfg.Schedule.ScanCron)
		_, err := s.cron.AddFunc(s.cfg.Schedule.ScanCron, func() {
			log.Printf("[SCHED] Scheduled scan: %s", s.scanner.Start(ctx))
		})
		if err != nil {
			return fmt.Errorf("invalid scan cron expression: %w", err)
		}
		scheduled = true
	}

	if scheduled {
		s.cron.Start()
	} else {
		log.Println("[SCHED] No schedule configured, daemon will only respond to commands")
	}
	return nil
}

func (s *Scheduler) Stop() {
	if s.cron != nil {
		<-s.cron.Stop().Done()
	}
	close(s.stopCh)
}

// TriggerNow runs one cycle immediately, the same way the cron entry does.
func (s *Scheduler) TriggerNow(ctx context.Context) error {
	result, err := s.orchestrator.RunCycle(ctx)
	if err != nil {
		return err
	}
	log.Printf("[SCHED] Cycle %d: %d new, %d updated", result.RunID, result.NewCount(), result.UpdatedCount())
	return nil
}

func (s *Scheduler) pollCommands(ctx context.Context) {
	ticker := time.NewTicker(s.pollEvery)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.processCommands(ctx)
		case <-s.stopCh:
			return
		case <-ctx.Done():
			return
		}
	}
}

// processCommands drains the pending queue once. Every command is marked
// processed, including ones that fail.
func (s *Scheduler) processCommands(ctx context.Context) {
	cmds, err := s.store.GetPendingCommands()
	if err != nil {
		log.Printf("[CMD] Error getting commands: %v", err)
		return
	}

	for _, cmd := range cmds {
		log.Printf("[CMD] Processing command: %s", cmd.Command)
		if err := s.handleCommand(ctx, &cmd); err != nil {
			log.Printf("[CMD] Command error: %v", err)
		}
		if err := s.store.MarkCommandProcessed(cmd.ID); err != nil {
			log.Printf("[CMD] Error marking command processed: %v", err)
		}
	}
}

func (s *Scheduler) handleCommand(ctx context.Context, cmd *models.Command) error {
	switch cmd.Command {
	case models.CmdScrapeNow:
		return s.TriggerNow(ctx)
	default:
		return s.orchestrator.HandleCommand(ctx, cmd)
	}
}
