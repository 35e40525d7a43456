package notify

import (
	"context"
	"fmt"
	"sync"
	"time"
)

const defaultQueueSize = 128

// sendTimeout bounds a single delivery attempt.
const sendTimeout = 30 * time.Second

// Queue is the async mail pipeline. Enqueueing never blocks: when the
// buffer is full the message is dropped and logged, because account flows
// must not stall on a slow relay.
type Queue struct {
	channel Channel
	baseURL string
	logger  Logger

	jobs chan Message
	stop sync.Once
	wg   sync.WaitGroup
}

// NewQueue creates a queue backed by the given channel. baseURL is the
// public address used to build verification links.
func NewQueue(channel Channel, baseURL string, logger Logger) *Queue {
	return &Queue{
		channel: channel,
		baseURL: baseURL,
		logger:  logger,
		jobs:    make(chan Message, defaultQueueSize),
	}
}

// Start launches the delivery worker. Call Stop to drain and shut down.
func (q *Queue) Start(ctx context.Context) {
	q.wg.Add(1)
	go func() {
		defer q.wg.Done()
		for msg := range q.jobs {
			sendCtx, cancel := context.WithTimeout(ctx, sendTimeout)
			if err := q.channel.Send(sendCtx, msg); err != nil {
				q.logger.Error("mail delivery failed", "channel", q.channel.Type(), "to", msg.To, "error", err)
			} else {
				q.logger.Debug("mail delivered", "channel", q.channel.Type(), "to", msg.To)
			}
			cancel()
		}
	}()
}

// Stop closes the queue and waits for in-flight deliveries.
func (q *Queue) Stop() {
	q.stop.Do(func() {
		close(q.jobs)
	})
	q.wg.Wait()
}

// Enqueue hands a message to the worker without blocking.
func (q *Queue) Enqueue(msg Message) error {
	select {
	case q.jobs <- msg:
		return nil
	default:
		return fmt.Errorf("mail queue full, dropping message to %s", msg.To)
	}
}

// SendVerificationEmail queues the account verification mail.
func (q *Queue) SendVerificationEmail(_ context.Context, to, token string) error {
	link := fmt.Sprintf("%s/auth/verify?token=%s", q.baseURL, token)

	return q.Enqueue(Message{
		To:      to,
		Subject: "Verify your email address",
		Body: fmt.Sprintf(
			"Welcome!\r\n\r\nPlease confirm your email address by visiting the link below within 15 minutes:\r\n\r\n%s\r\n\r\nIf you did not create an account, ignore this message.\r\n",
			link,
		),
	})
}
