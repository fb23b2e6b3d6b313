package worker

import (
	"context"
	"log"

	"agrisupply/internal/broker"
	"agrisupply/internal/service"
)

// AlertWorker handles background low-stock evaluation for recorded sales
type AlertWorker struct {
	consumer     *broker.Consumer
	eventHandler *broker.EventHandler
	alertService *service.AlertService
}

// NewAlertWorker creates a new alert worker
func NewAlertWorker(
	consumer *broker.Consumer,
	alertService *service.AlertService,
) *AlertWorker {
	eventHandler := broker.NewEventHandler()

	eventHandler.OnSaleRecorded(alertService.HandleSaleRecorded)

	return &AlertWorker{
		consumer:     consumer,
		eventHandler: eventHandler,
		alertService: alertService,
	}
}

// Start starts the worker
func (w *AlertWorker) Start(ctx context.Context) error {
	log.Println("Starting alert worker...")
	return w.consumer.StartConsuming(ctx, w.eventHandler.HandleMessage)
}

// Stop stops the worker
func (w *AlertWorker) Stop() error {
	log.Println("Stopping alert worker...")
	return w.consumer.Close()
}
