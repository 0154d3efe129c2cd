package services

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/yeremiapane/cavalli-app/utils"
)

const DefaultMaxAttempts = 5

// DeliveryMetrics counts outbound message outcomes.
type DeliveryMetrics struct {
	Sent      int64 `json:"sent"`
	Failed    int64 `json:"failed"`
	Retried   int64 `json:"retried"`
	Abandoned int64 `json:"abandoned"`
	Pending   int64 `json:"pending"`
}

// DeliveryJob is one message that can be resent. Key deduplicates jobs in the
// retry queue.
type DeliveryJob struct {
	Key      string
	Channel  string
	Attempts int
	Send     func(ctx context.Context) error
}

// DeliveryMonitor runs deliveries and retries failed ones on a fixed interval.
type DeliveryMonitor struct {
	retryQueue    []*DeliveryJob
	retryInterval time.Duration
	maxAttempts   int
	metrics       DeliveryMetrics
	mutex         sync.Mutex
	stop          chan struct{}
	stopOnce      sync.Once
}

func NewDeliveryMonitor(retryInterval time.Duration) *DeliveryMonitor {
	if retryInterval <= 0 {
		retryInterval = time.Minute
	}
	return &DeliveryMonitor{
		retryQueue:    make([]*DeliveryJob, 0),
		retryInterval: retryInterval,
		maxAttempts:   DefaultMaxAttempts,
		stop:          make(chan struct{}),
	}
}

// Start processes the retry queue until Stop is called or ctx is done.
func (dm *DeliveryMonitor) Start(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(dm.retryInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-dm.stop:
				return
			case <-ticker.C:
				dm.ProcessQueue(ctx)
			}
		}
	}()
	utils.InfoLogger.Println("Delivery monitor started")
}

func (dm *DeliveryMonitor) Stop() {
	dm.stopOnce.Do(func() { close(dm.stop) })
}

// Deliver attempts job once and queues it for retry on failure.
func (dm *DeliveryMonitor) Deliver(ctx context.Context, job *DeliveryJob) error {
	job.Attempts++
	err := job.Send(ctx)
	dm.record(job, err)
	if err != nil && !isPermanent(err) {
		dm.enqueue(job)
	}
	return err
}

// retrying cannot fix a missing account or a malformed number
func isPermanent(err error) bool {
	return errors.Is(err, ErrNotConfigured) || errors.Is(err, ErrInvalidPhone) || errors.Is(err, ErrInvalidCredentials)
}

func (dm *DeliveryMonitor) enqueue(job *DeliveryJob) {
	dm.mutex.Lock()
	defer dm.mutex.Unlock()

	if job.Attempts >= dm.maxAttempts {
		dm.metrics.Abandoned++
		utils.ErrorLogger.WithFields(logrus.Fields{
			"key":      job.Key,
			"channel":  job.Channel,
			"attempts": job.Attempts,
		}).Error("Delivery abandoned")
		return
	}

	for _, queued := range dm.retryQueue {
		if queued.Key == job.Key {
			return
		}
	}

	dm.retryQueue = append(dm.retryQueue, job)
	dm.metrics.Pending = int64(len(dm.retryQueue))
}

// ProcessQueue retries every queued job once.
func (dm *DeliveryMonitor) ProcessQueue(ctx context.Context) {
	dm.mutex.Lock()
	if len(dm.retryQueue) == 0 {
		dm.mutex.Unlock()
		return
	}
	queue := dm.retryQueue
	dm.retryQueue = make([]*DeliveryJob, 0)
	dm.metrics.Pending = 0
	dm.mutex.Unlock()

	utils.InfoLogger.Printf("Processing delivery retry queue with %d jobs", len(queue))

	for _, job := range queue {
		dm.mutex.Lock()
		dm.metrics.Retried++
		dm.mutex.Unlock()

		_ = dm.Deliver(ctx, job)
	}
}

func (dm *DeliveryMonitor) record(job *DeliveryJob, err error) {
	dm.mutex.Lock()
	defer dm.mutex.Unlock()

	fields := logrus.Fields{"key": job.Key, "channel": job.Channel, "attempt": job.Attempts}
	if err != nil {
		dm.metrics.Failed++
		utils.ErrorLogger.WithFields(fields).WithError(err).Warn("Delivery failed")
		return
	}
	dm.metrics.Sent++
	utils.InfoLogger.WithFields(fields).Info("Delivery sent")
}

func (dm *DeliveryMonitor) GetMetrics() DeliveryMetrics {
	dm.mutex.Lock()
	defer dm.mutex.Unlock()
	return dm.metrics
}
