package notify

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"
)

// DeliveryJob is one rendered message bound for one webhook.
type DeliveryJob struct {
	WebhookID   int64
	WebhookName string
	URL         string
	Event       string
	Body        []byte
}

type Worker struct {
	ID         int
	WorkerPool chan chan DeliveryJob
	JobChannel chan DeliveryJob
	Logger     *slog.Logger
}

func NewWorker(id int, workerPool chan chan DeliveryJob, logger *slog.Logger) *Worker {
	return &Worker{
		ID:         id,
		WorkerPool: workerPool,
		JobChannel: make(chan DeliveryJob),
		Logger:     logger,
	}
}

func (w *Worker) Start(ctx context.Context, wg *sync.WaitGroup, processFunc func(DeliveryJob)) {
	wg.Add(1)
	go func() {
		defer wg.Done()

		for {
			select {
			case w.WorkerPool <- w.JobChannel:
			case <-ctx.Done():
				w.Logger.Debug("delivery worker shutting down", "worker_id", w.ID)
				return
			}

			select {
			case job := <-w.JobChannel:
				w.Logger.Debug("worker delivering webhook", "worker_id", w.ID, "webhook_id", job.WebhookID)
				processFunc(job)
			case <-ctx.Done():
				w.Logger.Debug("delivery worker shutting down", "worker_id", w.ID)
				return
			}
		}
	}()
}

type PoolConfig struct {
	Workers   int
	QueueSize int
	Timeout   time.Duration
}

// Pool delivers webhook messages on a fixed set of workers. Deliveries are
// attempted once; failures are logged and dropped.
type Pool struct {
	client  *http.Client
	timeout time.Duration
	logger  *slog.Logger

	jobQueue   chan DeliveryJob
	workerPool chan chan DeliveryJob
	maxWorkers int
	ctx        context.Context
	cancel     context.CancelFunc
	wg         sync.WaitGroup
	once       sync.Once
	delivered  func(DeliveryJob, error)
}

func NewPool(config PoolConfig, client *http.Client, logger *slog.Logger) *Pool {
	ctx, cancel := context.WithCancel(context.Background())

	maxWorkers := config.Workers
	if maxWorkers <= 0 {
		maxWorkers = 4
	}
	queueSize := config.QueueSize
	if queueSize <= 0 {
		queueSize = 100
	}
	timeout := config.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	if client == nil {
		client = &http.Client{Timeout: timeout}
	}

	pool := &Pool{
		client:     client,
		timeout:    timeout,
		logger:     logger,
		maxWorkers: maxWorkers,
		jobQueue:   make(chan DeliveryJob, queueSize),
		workerPool: make(chan chan DeliveryJob, maxWorkers),
		ctx:        ctx,
		cancel:     cancel,
	}

	pool.start()

	return pool
}

// OnDelivered registers a hook called after every attempt. Must be set
// before jobs are enqueued.
func (p *Pool) OnDelivered(fn func(DeliveryJob, error)) {
	p.delivered = fn
}

func (p *Pool) start() {
	p.once.Do(func() {
		for i := 0; i < p.maxWorkers; i++ {
			worker := NewWorker(i, p.workerPool, p.logger)
			worker.Start(p.ctx, &p.wg, p.deliver)
		}

		p.wg.Add(1)
		go p.dispatch()

		p.logger.Info("webhook delivery pool started",
			"max_workers", p.maxWorkers,
			"queue_size", cap(p.jobQueue))
	})
}

func (p *Pool) dispatch() {
	defer p.wg.Done()

	for {
		select {
		case job := <-p.jobQueue:
			select {
			case jobChannel := <-p.workerPool:
				select {
				case jobChannel <- job:
				case <-p.ctx.Done():
					return
				}
			case <-p.ctx.Done():
				return
			}
		case <-p.ctx.Done():
			p.logger.Info("webhook dispatcher shutting down", "dropped", len(p.jobQueue))
			return
		}
	}
}

// Enqueue hands a job to the pool without blocking. It reports false when
// the queue is full.
func (p *Pool) Enqueue(job DeliveryJob) bool {
	select {
	case p.jobQueue <- job:
		return true
	default:
		p.logger.Warn("webhook queue full, dropping delivery",
			"webhook_id", job.WebhookID,
			"event", job.Event,
			"queue_capacity", cap(p.jobQueue))
		return false
	}
}

func (p *Pool) Shutdown() {
	p.logger.Info("shutting down webhook delivery pool")
	p.cancel()
	p.wg.Wait()
	p.logger.Info("webhook delivery pool shutdown complete")
}

func (p *Pool) deliver(job DeliveryJob) {
	err := p.post(job)
	if err != nil {
		p.logger.Error("webhook delivery failed",
			"webhook_id", job.WebhookID,
			"webhook", job.WebhookName,
			"event", job.Event,
			"error", err)
	} else {
		p.logger.Info("webhook delivered",
			"webhook_id", job.WebhookID,
			"event", job.Event)
	}
	if p.delivered != nil {
		p.delivered(job, err)
	}
}

func (p *Pool) post(job DeliveryJob) error {
	ctx, cancel := context.WithTimeout(p.ctx, p.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, job.URL, bytes.NewReader(job.Body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return fmt.Errorf("post: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("endpoint returned status %d", resp.StatusCode)
	}
	return nil
}
