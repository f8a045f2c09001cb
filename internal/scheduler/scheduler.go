package scheduler

import (
	"context"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"PivotMirror/internal/model"
	"PivotMirror/internal/notifier"
	"PivotMirror/internal/pipeline"
	"PivotMirror/internal/recorder"
)

// Sender delivers chat messages.
type Sender interface {
	SendWithRetry(ctx context.Context, text string, maxRetries int, backoff time.Duration) error
}

// WatchlistFunc returns the current watchlist. It is re-read on every
// batch so edits apply without a restart.
type WatchlistFunc func() ([]model.WatchItem, error)

// Scheduler manages cron-driven batches and chat commands.
type Scheduler struct {
	Cron      *cron.Cron
	Pipeline  *pipeline.Pipeline
	Watchlist WatchlistFunc
	Notifier  Sender
	Recorder  recorder.Recorder
	Ctx       context.Context

	mu      sync.Mutex
	running bool
	wg      sync.WaitGroup
}

// NewScheduler creates a new Scheduler.
func NewScheduler(ctx context.Context, p *pipeline.Pipeline, wl WatchlistFunc, n Sender, rec recorder.Recorder) *Scheduler {
	return &Scheduler{
		Cron:      cron.New(cron.WithSeconds()),
		Pipeline:  p,
		Watchlist: wl,
		Notifier:  n,
		Recorder:  rec,
		Ctx:       ctx,
	}
}

// Register schedules the batch task.
func (s *Scheduler) Register(batchCron string) error {
	if _, err := s.Cron.AddFunc(batchCron, func() { s.RunBatch(nil) }); err != nil {
		return fmt.Errorf("register batch task: %w", err)
	}
	return nil
}

// Start starts the cron scheduler.
func (s *Scheduler) Start() {
	s.Cron.Start()
	log.Println("[INFO] scheduler started")
}

// Stop stops the cron scheduler and waits for running batches, both
// scheduled and started with RunBatchAsync.
func (s *Scheduler) Stop() {
	<-s.Cron.Stop().Done()
	s.wg.Wait()
	log.Println("[INFO] scheduler stopped")
}

// RunBatchAsync runs RunBatch in the background; Stop waits for it.
func (s *Scheduler) RunBatchAsync(tickers []string) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.RunBatch(tickers)
	}()
}

// RunBatch runs every watch item, or only those whose ticker is listed.
// It returns nil when another batch is still in progress.
func (s *Scheduler) RunBatch(tickers []string) *pipeline.Batch {
	if !s.acquire() {
		log.Println("[WARN] batch already running, skipped")
		return nil
	}
	defer s.release()

	items, err := s.Watchlist()
	if err != nil {
		log.Printf("[ERROR] load watchlist: %v", err)
		s.trySend(fmt.Sprintf("❌ 观察清单读取失败: %v", err))
		return nil
	}
	if len(tickers) > 0 {
		items = filter(items, tickers)
		if len(items) == 0 {
			s.trySend(fmt.Sprintf("❓ 观察清单中没有 %s", strings.Join(tickers, ", ")))
			return nil
		}
	}

	log.Printf("[INFO] running batch of %d instruments", len(items))
	b := s.Pipeline.RunBatch(s.Ctx, items)

	outcomes := make([]notifier.Outcome, len(b.Outcomes))
	for i, o := range b.Outcomes {
		outcomes[i] = notifier.Outcome{Ticker: o.Item.Ticker, Sheet: o.Item.Sheet(), Err: o.Err}
	}
	s.trySend(notifier.FormatBatchSummary(b.StartedAt, b.Elapsed, outcomes))
	return b
}

func (s *Scheduler) acquire() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return false
	}
	s.running = true
	return true
}

func (s *Scheduler) release() {
	s.mu.Lock()
	s.running = false
	s.mu.Unlock()
}

func filter(items []model.WatchItem, tickers []string) []model.WatchItem {
	want := make(map[string]bool, len(tickers))
	for _, t := range tickers {
		want[strings.ToUpper(t)] = true
	}
	var out []model.WatchItem
	for _, it := range items {
		if want[strings.ToUpper(it.Ticker)] {
			out = append(out, it)
		}
	}
	return out
}

// HandleCommand processes a user command and returns a reply.
func (s *Scheduler) HandleCommand(command string) string {
	fields := strings.Fields(command)
	if len(fields) == 0 {
		return helpText
	}
	switch strings.ToLower(fields[0]) {
	case "/run", "运行":
		s.RunBatchAsync(fields[1:])
		if len(fields) > 1 {
			return fmt.Sprintf("⏳ 开始投影: %s", strings.Join(fields[1:], ", "))
		}
		return "⏳ 开始批次投影"
	case "/list", "清单":
		items, err := s.Watchlist()
		if err != nil {
			return fmt.Sprintf("❌ 观察清单读取失败: %v", err)
		}
		return notifier.FormatWatchlist(items)
	case "/status", "状态":
		runs, err := s.Recorder.RecentRuns(10)
		if err != nil {
			return fmt.Sprintf("❌ 查询运行记录失败: %v", err)
		}
		return notifier.FormatRecentRuns(runs)
	default:
		return helpText
	}
}

const helpText = "可用命令:\n• /run [代码...] 运行投影\n• /list 观察清单\n• /status 最近运行"

func (s *Scheduler) trySend(text string) {
	if s.Notifier == nil {
		return
	}
	if err := s.Notifier.SendWithRetry(s.Ctx, text, 3, 2*time.Second); err != nil {
		log.Printf("[ERROR] send notification: %v", err)
	}
}
