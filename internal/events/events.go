// Package events publishes room lifecycle and game-over analytics
// events to Kafka, the "documented seam for a future shared store /
// horizontal scale-out" spec.md §1 Non-goals anticipates. Publish-only:
// no consumer lives in this process. Grounded on
// internal/fraud/kafka_producer.go's SyncProducer configuration, pared
// down to the fields this narrower publisher needs.
package events

import (
	"encoding/json"
	"time"

	"github.com/IBM/sarama"

	"lobby-platform/internal/logging"
)

// GameOverEvent is published once per finished game, best-effort.
type GameOverEvent struct {
	RoomCode    string    `json:"roomCode"`
	Kind        string    `json:"kind"`
	WinnerSeat  int       `json:"winnerSeat,omitempty"`
	HasWinner   bool      `json:"hasWinner"`
	SeatCount   int       `json:"seatCount"`
	FinishedAt  time.Time `json:"finishedAt"`
}

// RoomLifecycleEvent is published when a room's game starts.
type RoomLifecycleEvent struct {
	RoomCode string    `json:"roomCode"`
	Kind     string    `json:"kind"`
	Action   string    `json:"action"` // "started" (lifecycle.StartGame)
	At       time.Time `json:"at"`
}

// Publisher wraps a sarama.AsyncProducer. A Publisher with no producer
// (as NewNoop returns) makes every Publish call a silent no-op, so the analytics
// bus is opt-in via KAFKA_BROKERS without special-casing callers.
type Publisher struct {
	producer sarama.AsyncProducer
	topic    string
	log      *logging.Backend
}

// New connects to brokers and returns a Publisher for topic. Producer
// errors are drained and logged on a background goroutine so a slow or
// unreachable broker never blocks game handling (fire-and-forget).
func New(brokers []string, topic string, log *logging.Backend) (*Publisher, error) {
	cfg := sarama.NewConfig()
	cfg.Producer.Return.Successes = false
	cfg.Producer.Return.Errors = true
	cfg.Producer.RequiredAcks = sarama.WaitForLocal
	cfg.Producer.Retry.Max = 3

	producer, err := sarama.NewAsyncProducer(brokers, cfg)
	if err != nil {
		return nil, err
	}
	p := &Publisher{producer: producer, topic: topic, log: log}
	go p.drainErrors()
	return p, nil
}

// NewNoop returns a Publisher that discards every event, for servers
// run without KAFKA_BROKERS configured.
func NewNoop() *Publisher { return &Publisher{} }

func (p *Publisher) drainErrors() {
	if p.producer == nil {
		return
	}
	for err := range p.producer.Errors() {
		if p.log != nil {
			p.log.Logger("EVTS").Warnf("publish failed: %v", err.Err)
		}
	}
}

// PublishGameOver fire-and-forgets a GameOverEvent.
func (p *Publisher) PublishGameOver(ev GameOverEvent) {
	p.publish(ev)
}

// PublishRoomLifecycle fire-and-forgets a RoomLifecycleEvent.
func (p *Publisher) PublishRoomLifecycle(ev RoomLifecycleEvent) {
	p.publish(ev)
}

func (p *Publisher) publish(v any) {
	if p.producer == nil {
		return
	}
	data, err := json.Marshal(v)
	if err != nil {
		return
	}
	p.producer.Input() <- &sarama.ProducerMessage{
		Topic: p.topic,
		Value: sarama.ByteEncoder(data),
	}
}

// Close shuts down the underlying producer, if any.
func (p *Publisher) Close() error {
	if p.producer == nil {
		return nil
	}
	return p.producer.Close()
}
