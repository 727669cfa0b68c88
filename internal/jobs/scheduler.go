package jobs

import (
	"fmt"
	"log"

	"github.com/jackc/pgx/v5/pgxpool"

	"BesCrmSaas/internal/logger"
	"BesCrmSaas/internal/serviceiface"
)

type CronService struct {
	config map[string]interface{}
	db     *pgxpool.Pool
}

func NewCronService(cfg map[string]interface{}, db *pgxpool.Pool) serviceiface.Service {
	return &CronService{
		config: cfg,
		db:     db,
	}
}

func (s *CronService) Name() string {
	return "cron"
}

func (s *CronService) Start() error {
	log.Println("Starting cron service...")

	dispatchConfig := NewDefaultDispatchConfig()

	if s.config != nil {
		if schedule, ok := s.config["dispatch_schedule"].(string); ok && schedule != "" {
			dispatchConfig.Schedule = schedule
		}
		if batchSize, ok := s.config["dispatch_batch_size"].(int); ok && batchSize > 0 {
			dispatchConfig.BatchSize = batchSize
		}
	}

	if err := RunCampaignDispatcher(dispatchConfig, s.db); err != nil {
		return fmt.Errorf("failed to start campaign dispatcher: %v", err)
	}

	if logger.GlobalLogger != nil {
		logger.GlobalLogger.LogAudit("Cron service started with campaign dispatcher")
	}
	log.Println("Cron service started — Campaign Dispatcher scheduled")

	return nil
}

func (s *CronService) Stop() error {
	log.Println("Cron service stopped.")
	return nil
}
