// Command shortint-worker runs PBS computation workers.
//
// Workers pop jobs from a Redis queue, load the referenced ciphertext from
// storage, apply the named lookup table through a programmable bootstrap,
// and store the refreshed result with its degree set to the table maximum.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/luxfi/shortint"
	"github.com/luxfi/shortint/internal/queue"
	"github.com/luxfi/shortint/internal/storage"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	var (
		numWorkers  = flag.Int("workers", 4, "number of worker goroutines")
		redisAddr   = flag.String("redis", "localhost:6379", "Redis address")
		redisDB     = flag.Int("redis-db", 0, "Redis database number")
		queueName   = flag.String("queue", "default", "queue name")
		storagePath = flag.String("storage", "/tmp/shortint-storage", "ciphertext storage path")
		metricsAddr = flag.String("metrics", ":9090", "metrics server address")
		messageBits = flag.Int("message-bits", 2, "shortint message bits")
		carryBits   = flag.Int("carry-bits", 2, "shortint carry bits")
	)
	flag.Parse()

	log.Printf("Shortint worker starting...")
	log.Printf("  Workers: %d", *numWorkers)
	log.Printf("  Redis: %s", *redisAddr)
	log.Printf("  Storage: %s", *storagePath)
	log.Printf("  Metrics: %s", *metricsAddr)
	log.Printf("  Shape: message=%d carry=%d", *messageBits, *carryBits)

	// Queue.
	q, err := queue.NewRedisQueue(queue.RedisConfig{
		Addr: *redisAddr,
		DB:   *redisDB,
	}, *queueName)
	if err != nil {
		return fmt.Errorf("create queue: %w", err)
	}
	defer q.Close()

	// Storage.
	store, err := storage.NewFileStorage(*storagePath)
	if err != nil {
		return fmt.Errorf("create storage: %w", err)
	}

	params, err := shortint.GetParameters(*carryBits, *messageBits)
	if err != nil {
		return fmt.Errorf("get parameters: %w", err)
	}

	_, serverKey, err := shortint.GenerateKeys(params)
	if err != nil {
		return fmt.Errorf("generate keys: %w", err)
	}

	accumulators, err := buildAccumulators(serverKey)
	if err != nil {
		return fmt.Errorf("build accumulators: %w", err)
	}
	log.Printf("  Lookup tables: %d", len(accumulators))

	// Worker pool.
	pool := &WorkerPool{
		numWorkers:   *numWorkers,
		queue:        q,
		storage:      store,
		serverKey:    serverKey,
		accumulators: accumulators,
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := pool.Start(ctx); err != nil {
		return fmt.Errorf("start workers: %w", err)
	}

	// Metrics server.
	mux := http.NewServeMux()
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	mux.HandleFunc("/metrics", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, "# HELP shortint_pbs_total Total PBS operations\n")
		fmt.Fprintf(w, "# TYPE shortint_pbs_total counter\n")
		fmt.Fprintf(w, "shortint_pbs_total{status=\"success\"} %d\n", pool.successCount.Load())
		fmt.Fprintf(w, "shortint_pbs_total{status=\"failure\"} %d\n", pool.failureCount.Load())
	})

	server := &http.Server{
		Addr:    *metricsAddr,
		Handler: mux,
	}

	go func() {
		log.Printf("Metrics server starting on %s", *metricsAddr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("Metrics server error: %v", err)
		}
	}()

	// Wait for shutdown signal.
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	log.Printf("Received signal: %s", sig.String())

	shutdownCtx, shutdownCancel := context.WithTimeout(ctx, 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("Metrics server shutdown error: %v", err)
	}

	if err := pool.Stop(); err != nil {
		log.Printf("Worker pool shutdown error: %v", err)
	}

	log.Println("Shutdown complete")
	return nil
}

// buildAccumulators precomputes every lookup table a job can name. Tables
// are immutable and shared by all workers.
func buildAccumulators(sk *shortint.ServerKey) (map[string]*shortint.Accumulator, error) {
	messageModulus := sk.Parameters().MessageModulus()

	accumulators := make(map[string]*shortint.Accumulator)

	named := map[string]func(uint64) uint64{
		"double": func(x uint64) uint64 { return (x * 2) % messageModulus },
		"square": func(x uint64) uint64 { return (x * x) % messageModulus },
		"neg":    func(x uint64) uint64 { return (messageModulus - x) % messageModulus },
	}
	for name, f := range named {
		acc, err := sk.GenerateAccumulator(f)
		if err != nil {
			return nil, fmt.Errorf("table %q: %w", name, err)
		}
		accumulators[name] = acc
	}

	msgExtract, err := sk.MessageExtractAccumulator()
	if err != nil {
		return nil, fmt.Errorf("table message_extract: %w", err)
	}
	accumulators["message_extract"] = msgExtract

	carryExtract, err := sk.CarryExtractAccumulator()
	if err != nil {
		return nil, fmt.Errorf("table carry_extract: %w", err)
	}
	accumulators["carry_extract"] = carryExtract

	return accumulators, nil
}

// WorkerPool manages a pool of PBS workers.
type WorkerPool struct {
	numWorkers   int
	queue        queue.Queue
	storage      storage.Storage
	serverKey    *shortint.ServerKey
	accumulators map[string]*shortint.Accumulator

	wg           sync.WaitGroup
	cancel       context.CancelFunc
	running      atomic.Bool
	successCount atomic.Int64
	failureCount atomic.Int64
}

// Start starts the worker pool.
func (p *WorkerPool) Start(ctx context.Context) error {
	if p.running.Load() {
		return errors.New("pool already running")
	}

	ctx, p.cancel = context.WithCancel(ctx)
	p.running.Store(true)

	log.Printf("Starting %d workers", p.numWorkers)

	for i := 0; i < p.numWorkers; i++ {
		p.wg.Add(1)
		go p.worker(ctx, i)
	}

	return nil
}

// Stop gracefully stops the worker pool.
func (p *WorkerPool) Stop() error {
	if !p.running.Load() {
		return nil
	}

	log.Println("Stopping worker pool...")
	p.cancel()

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		log.Println("Worker pool stopped")
	case <-time.After(30 * time.Second):
		log.Println("Shutdown timeout exceeded")
		return errors.New("shutdown timeout")
	}

	p.running.Store(false)
	return nil
}

func (p *WorkerPool) worker(ctx context.Context, id int) {
	defer p.wg.Done()

	log.Printf("Worker %d started", id)

	for {
		select {
		case <-ctx.Done():
			log.Printf("Worker %d stopping", id)
			return
		default:
		}

		job, err := p.queue.Pop(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return
			}
			log.Printf("Worker %d: failed to pop job: %v", id, err)
			time.Sleep(time.Second)
			continue
		}

		p.processJob(ctx, id, job)
	}
}

func (p *WorkerPool) processJob(ctx context.Context, workerID int, job *queue.Job) {
	log.Printf("Worker %d: processing job %s (function=%s)", workerID, job.ID, job.Function)

	job.Status = queue.StatusProcessing
	if err := p.queue.Update(ctx, job); err != nil {
		log.Printf("Worker %d: failed to update job status: %v", workerID, err)
	}

	acc, ok := p.accumulators[job.Function]
	if !ok {
		p.failJob(ctx, job, fmt.Sprintf("unknown function %q", job.Function))
		return
	}

	data, err := p.storage.Load(ctx, storage.Handle(job.InputHandle))
	if err != nil {
		p.failJob(ctx, job, fmt.Sprintf("load input: %v", err))
		return
	}

	ct := new(shortint.Ciphertext)
	if err := ct.UnmarshalBinary(data); err != nil {
		p.failJob(ctx, job, fmt.Sprintf("unmarshal input: %v", err))
		return
	}

	result, err := p.serverKey.PBS(acc, ct)
	if err != nil {
		p.failJob(ctx, job, fmt.Sprintf("pbs: %v", err))
		return
	}
	result.SetDegree(acc.MaxValue())

	resultData, err := result.MarshalBinary()
	if err != nil {
		p.failJob(ctx, job, fmt.Sprintf("marshal result: %v", err))
		return
	}

	handle, err := p.storage.Store(ctx, resultData)
	if err != nil {
		p.failJob(ctx, job, fmt.Sprintf("store result: %v", err))
		return
	}

	job.ResultHandle = string(handle)
	job.ResultDegree = result.Degree()
	job.Status = queue.StatusCompleted
	if err := p.queue.Update(ctx, job); err != nil {
		log.Printf("Worker %d: failed to record result: %v", workerID, err)
	}
	p.successCount.Add(1)
}

func (p *WorkerPool) failJob(ctx context.Context, job *queue.Job, msg string) {
	job.Status = queue.StatusFailed
	job.Error = msg
	if err := p.queue.Update(ctx, job); err != nil {
		log.Printf("failed to record job failure: %v", err)
	}
	p.failureCount.Add(1)
}
