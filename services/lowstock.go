package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"bvstock/config"
	"bvstock/models"
	"bvstock/store"

	"github.com/go-co-op/gocron"
	"github.com/sirupsen/logrus"
)

type Mailer interface {
	Send(to, subject, body string) error
}

// LowStockJob reports stock items below a threshold, once a day.
type LowStockJob struct {
	store     store.Store
	threshold int
	mailer    Mailer
	to        string
	logger    *logrus.Logger
}

// NewLowStockJob builds the job; a nil mailer means the report is only
// logged.
func NewLowStockJob(st store.Store, threshold int, mailer Mailer, to string, logger *logrus.Logger) *LowStockJob {
	return &LowStockJob{store: st, threshold: threshold, mailer: mailer, to: to, logger: logger}
}

func (j *LowStockJob) Run(ctx context.Context) ([]models.StockItem, error) {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	items, err := j.store.LowStock(ctx, j.threshold)
	if err != nil {
		config.LogError(j.logger, "services", "LowStockJob.Run", "listing low stock", j.threshold, err)
		return nil, err
	}

	j.logger.WithFields(logrus.Fields{
		"threshold": j.threshold,
		"count":     len(items),
	}).Info("low stock check completed")

	if len(items) == 0 || j.mailer == nil || j.to == "" {
		return items, nil
	}
	subject := fmt.Sprintf("Low stock: %d item(s) below %d", len(items), j.threshold)
	if err := j.mailer.Send(j.to, subject, LowStockReport(items, j.threshold)); err != nil {
		config.LogError(j.logger, "services", "LowStockJob.Run", "sending low stock mail", j.to, err)
		return items, err
	}
	return items, nil
}

func LowStockReport(items []models.StockItem, threshold int) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Items with fewer than %d units in stock:\n\n", threshold)
	for _, it := range items {
		fmt.Fprintf(&b, "- %s: %d\n", it.Name, it.Quantity)
	}
	return b.String()
}

// Schedule registers the job to run every day at "HH:MM" in the
// scheduler's location.
func (j *LowStockJob) Schedule(s *gocron.Scheduler, at string) error {
	_, err := s.Every(1).Day().At(at).Do(func() {
		_, _ = j.Run(context.Background())
	})
	return err
}
