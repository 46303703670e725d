// Package notify fans run lifecycle events out to interested parties over an
// in-process pub/sub bus. The runner publishes when a command starts and
// finishes; sinks log the events or invoke user-configured notification
// commands. A run never fails because a notification did.
package notify

import (
	"context"
	"encoding/json"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Topic is the channel run events travel on.
const Topic = "restix.runs"

// Phase marks where in its lifecycle a run is.
type Phase string

const (
	PhaseStarted  Phase = "started"
	PhaseFinished Phase = "finished"
	PhaseFailed   Phase = "failed"
)

// Event is the JSON payload published for every run transition.
type Event struct {
	RunID   string    `json:"runId"`
	Profile string    `json:"profile"`
	Command string    `json:"command"`
	Phase   Phase     `json:"phase"`
	Error   string    `json:"error,omitempty"`
	At      time.Time `json:"at"`
}

// Handler consumes one decoded event.
type Handler func(Event)

// Bus wraps an in-process gochannel pub/sub. Publishing with no subscribers
// is a no-op, so the bus can always be wired whether or not anything
// listens.
type Bus struct {
	pubsub *gochannel.GoChannel
	log    *zap.Logger
}

// NewBus returns a bus logging through logger. A nil logger disables
// logging.
func NewBus(logger *zap.Logger) *Bus {
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Bus{
		pubsub: gochannel.NewGoChannel(
			gochannel.Config{OutputChannelBuffer: 64},
			zapAdapter{log: logger},
		),
		log: logger,
	}
}

// Publish sends the event to every subscriber. An unset At is stamped with
// the current time.
func (b *Bus) Publish(event Event) error {
	if event.At.IsZero() {
		event.At = time.Now()
	}

	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}

	return b.pubsub.Publish(Topic, message.NewMessage(uuid.NewString(), payload))
}

// Subscribe invokes handler for every event published after the call. The
// consuming goroutine stops when ctx is cancelled or the bus closes.
// Undecodable messages are acked and dropped.
func (b *Bus) Subscribe(ctx context.Context, handler Handler) error {
	messages, err := b.pubsub.Subscribe(ctx, Topic)
	if err != nil {
		return err
	}

	go func() {
		for msg := range messages {
			var event Event
			if err := json.Unmarshal(msg.Payload, &event); err != nil {
				b.log.Warn("dropping undecodable run event",
					zap.String("uuid", msg.UUID), zap.Error(err))
				msg.Ack()
				continue
			}
			handler(event)
			msg.Ack()
		}
	}()

	return nil
}

// Close shuts the bus down and waits for in-flight messages to drain.
func (b *Bus) Close() error {
	return b.pubsub.Close()
}

// LogSink returns a handler that logs every event: failures as errors,
// everything else as info.
func LogSink(logger *zap.Logger) Handler {
	return func(event Event) {
		fields := []zap.Field{
			zap.String("run", event.RunID),
			zap.String("profile", event.Profile),
			zap.String("command", event.Command),
		}
		switch event.Phase {
		case PhaseFailed:
			logger.Error("run failed", append(fields, zap.String("error", event.Error))...)
		case PhaseFinished:
			logger.Info("run finished", fields...)
		default:
			logger.Info("run started", fields...)
		}
	}
}

// CommandRunner is the subset of proc.Runner a CommandSink needs.
type CommandRunner interface {
	Run(ctx context.Context, argv []string, env map[string]string) (string, error)
}

// CommandSink returns a handler that executes argv for every event, with the
// event exposed through RESTIX_EVENT_* environment variables. Failures are
// logged and swallowed.
func CommandSink(r CommandRunner, argv []string, logger *zap.Logger) Handler {
	if logger == nil {
		logger = zap.NewNop()
	}

	return func(event Event) {
		env := map[string]string{
			"RESTIX_EVENT_RUN_ID":  event.RunID,
			"RESTIX_EVENT_PROFILE": event.Profile,
			"RESTIX_EVENT_COMMAND": event.Command,
			"RESTIX_EVENT_PHASE":   string(event.Phase),
			"RESTIX_EVENT_ERROR":   event.Error,
		}
		if _, err := r.Run(context.Background(), argv, env); err != nil {
			logger.Warn("notification command failed",
				zap.Strings("argv", argv), zap.Error(err))
		}
	}
}

// zapAdapter exposes a zap logger through watermill's LoggerAdapter so the
// bus internals log to the same sinks as everything else.
type zapAdapter struct {
	log *zap.Logger
}

func (a zapAdapter) Error(msg string, err error, fields watermill.LogFields) {
	a.log.Error(msg, append(zapFields(fields), zap.Error(err))...)
}

func (a zapAdapter) Info(msg string, fields watermill.LogFields) {
	a.log.Info(msg, zapFields(fields)...)
}

func (a zapAdapter) Debug(msg string, fields watermill.LogFields) {
	a.log.Debug(msg, zapFields(fields)...)
}

func (a zapAdapter) Trace(msg string, fields watermill.LogFields) {
	a.log.Debug(msg, zapFields(fields)...)
}

func (a zapAdapter) With(fields watermill.LogFields) watermill.LoggerAdapter {
	return zapAdapter{log: a.log.With(zapFields(fields)...)}
}

func zapFields(fields watermill.LogFields) []zap.Field {
	out := make([]zap.Field, 0, len(fields))
	for key, value := range fields {
		out = append(out, zap.Any(key, value))
	}

	return out
}
