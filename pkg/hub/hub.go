package hub

import (
	"sync"

	"SurveillanceGolang/internal/entity"
	"SurveillanceGolang/pkg/log"

	jsoniter "github.com/json-iterator/go"
	"github.com/sirupsen/logrus"
)

const textMessage = 1

// Conn is the subset of a websocket connection the hub needs. Satisfied by
// *websocket.Conn from gofiber/websocket.
type Conn interface {
	WriteMessage(messageType int, data []byte) error
	Close() error
}

type IBroadcastHub interface {
	Subscribe(conn Conn)
	Unsubscribe(conn Conn)
	Enqueue(batch *entity.DetectionBatch)
	Start()
	Stop()
	SubscriberCount() int
}

// broadcastHub fans detection batches out to every live subscriber. The
// worker hands batches over through a buffered queue so its capture cadence
// never stalls on slow clients; a single publish goroutine drains the queue,
// which keeps delivery to each subscriber in production order.
type broadcastHub struct {
	logger  *logrus.Logger
	mu      sync.Mutex
	clients map[Conn]struct{}
	queue   chan *entity.DetectionBatch
	stop    chan struct{}
	stopped bool
}

func New(logger *logrus.Logger) IBroadcastHub {
	return &broadcastHub{
		logger:  logger,
		clients: make(map[Conn]struct{}),
		queue:   make(chan *entity.DetectionBatch, 16),
		stop:    make(chan struct{}),
	}
}

func (h *broadcastHub) Subscribe(conn Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.clients[conn] = struct{}{}
	h.logger.WithFields(log.Fields{
		"subscribers": len(h.clients),
	}).Debug("Subscriber connected")
}

// Unsubscribe is a no-op for connections already removed.
func (h *broadcastHub) Unsubscribe(conn Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.clients[conn]; !ok {
		return
	}

	delete(h.clients, conn)
	h.logger.WithFields(log.Fields{
		"subscribers": len(h.clients),
	}).Debug("Subscriber disconnected")
}

func (h *broadcastHub) SubscriberCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// Enqueue hands a batch to the publish loop without blocking the caller. When
// the queue is full the batch is dropped; the next frame supersedes it anyway.
func (h *broadcastHub) Enqueue(batch *entity.DetectionBatch) {
	select {
	case h.queue <- batch:
	default:
		h.logger.Debug("Broadcast queue full, dropping batch")
	}
}

func (h *broadcastHub) Start() {
	go h.run()
}

func (h *broadcastHub) Stop() {
	h.mu.Lock()
	if !h.stopped {
		close(h.stop)
		h.stopped = true
	}
	h.mu.Unlock()
}

func (h *broadcastHub) run() {
	for {
		select {
		case <-h.stop:
			return
		case batch := <-h.queue:
			h.publish(batch)
		}
	}
}

// publish serializes the batch once and writes it to a snapshot of the live
// set. Failed connections are collected during iteration and removed
// afterwards under the lock, so pruning never races the delivery pass.
func (h *broadcastHub) publish(batch *entity.DetectionBatch) {
	payload, err := jsoniter.Marshal(batch)
	if err != nil {
		h.logger.Errorf("Failed to serialize detection batch: %v", err)
		return
	}

	h.mu.Lock()
	snapshot := make([]Conn, 0, len(h.clients))
	for conn := range h.clients {
		snapshot = append(snapshot, conn)
	}
	h.mu.Unlock()

	var failed []Conn
	for _, conn := range snapshot {
		if err := conn.WriteMessage(textMessage, payload); err != nil {
			failed = append(failed, conn)
		}
	}

	if len(failed) == 0 {
		return
	}

	h.mu.Lock()
	for _, conn := range failed {
		if _, ok := h.clients[conn]; ok {
			delete(h.clients, conn)
			conn.Close()
		}
	}
	remaining := len(h.clients)
	h.mu.Unlock()

	h.logger.WithFields(log.Fields{
		"dropped":     len(failed),
		"subscribers": remaining,
	}).Info("Dropped unreachable subscribers")
}
