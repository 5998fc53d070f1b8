package queue

import (
	"context"
	"hash/fnv"
	"strconv"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/sdca/hris-portal/internal/core/domain"
	"github.com/sdca/hris-portal/internal/core/ports"
	"github.com/sdca/hris-portal/internal/pkg/metrics"
)

const (
	defaultWorkers       = 2
	channelBuffer        = 64
	defaultNoticeTimeout = 5 * time.Second
)

// LogoutNotifier delivers logout notices to the Remote Service from a fixed
// set of workers. Notices for the same user hash to the same worker, so they
// reach the server in the order they were issued.
type LogoutNotifier struct {
	workers []chan domain.Session
	remote  ports.RemoteService
	log     zerolog.Logger
	timeout time.Duration

	mu     sync.RWMutex
	closed bool
	wg     sync.WaitGroup
}

var _ ports.LogoutNotifier = (*LogoutNotifier)(nil)

// NewLogoutNotifier creates a notifier with numWorkers sharded workers.
// If numWorkers <= 0, defaultWorkers is used.
func NewLogoutNotifier(numWorkers int, remote ports.RemoteService, log zerolog.Logger) *LogoutNotifier {
	if numWorkers <= 0 {
		numWorkers = defaultWorkers
	}
	n := &LogoutNotifier{
		workers: make([]chan domain.Session, numWorkers),
		remote:  remote,
		log:     log,
		timeout: defaultNoticeTimeout,
	}
	for i := range n.workers {
		n.workers[i] = make(chan domain.Session, channelBuffer)
	}
	return n
}

// Start launches all worker goroutines. Cancelling ctx does not abort queued
// notices; call Close to drain and stop.
func (n *LogoutNotifier) Start(ctx context.Context) {
	base := context.WithoutCancel(ctx)
	for i, ch := range n.workers {
		n.wg.Add(1)
		go n.runWorker(base, i, ch)
	}
}

// NotifyLogout queues a notice without blocking. When the worker's buffer is
// full, or the notifier is closed, the notice is dropped.
func (n *LogoutNotifier) NotifyLogout(sess domain.Session) {
	n.mu.RLock()
	defer n.mu.RUnlock()
	if n.closed {
		metrics.LogoutNotificationsTotal.WithLabelValues("dropped").Inc()
		return
	}

	idx := n.shardIndex(sess.User.ID)
	select {
	case n.workers[idx] <- sess:
		metrics.LogoutQueueDepth.WithLabelValues(strconv.Itoa(idx)).Inc()
	default:
		metrics.LogoutNotificationsTotal.WithLabelValues("dropped").Inc()
		n.log.Warn().Str("user_id", sess.User.ID).Int("worker_id", idx).Msg("logout queue full, notice dropped")
	}
}

// Close stops accepting notices and waits for queued ones to be delivered.
func (n *LogoutNotifier) Close() {
	n.mu.Lock()
	if n.closed {
		n.mu.Unlock()
		return
	}
	n.closed = true
	for _, ch := range n.workers {
		close(ch)
	}
	n.mu.Unlock()
	n.wg.Wait()
}

// shardIndex maps a user id deterministically to a worker index.
func (n *LogoutNotifier) shardIndex(userID string) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(userID))
	return int(h.Sum32() % uint32(len(n.workers)))
}

func (n *LogoutNotifier) runWorker(ctx context.Context, id int, ch <-chan domain.Session) {
	defer n.wg.Done()
	depth := metrics.LogoutQueueDepth.WithLabelValues(strconv.Itoa(id))
	for sess := range ch {
		depth.Dec()
		n.deliver(ctx, id, sess)
	}
}

func (n *LogoutNotifier) deliver(ctx context.Context, id int, sess domain.Session) {
	ctx, cancel := context.WithTimeout(ctx, n.timeout)
	defer cancel()

	if err := n.remote.Logout(ctx, sess.User.ID, sess.Token); err != nil {
		metrics.LogoutNotificationsTotal.WithLabelValues("failed").Inc()
		n.log.Warn().Err(err).
			Str("user_id", sess.User.ID).
			Int("worker_id", id).
			Msg("logout notification failed")
		return
	}
	metrics.LogoutNotificationsTotal.WithLabelValues("sent").Inc()
	n.log.Debug().Str("user_id", sess.User.ID).Int("worker_id", id).Msg("logout notification sent")
}
