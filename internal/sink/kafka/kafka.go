package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/mehmetymw/banketl/internal/types"
	"github.com/mehmetymw/banketl/internal/util"
)

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Sink publishes every row of a loaded table as one JSON message.
type Sink struct {
	writer messageWriter
	topic  string
	table  string
	runID  string
	logger *zap.Logger
}

type RowMessage struct {
	Table string         `json:"table"`
	Index int            `json:"index"`
	Row   map[string]any `json:"row"`
}

func New(brokers []string, topic, table, runID string, logger *zap.Logger) *Sink {
	logger.Info("Creating Kafka sink",
		zap.Strings("brokers", brokers),
		zap.String("topic", topic))

	writer := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		BatchTimeout: 10 * time.Millisecond,
		BatchSize:    100,
		Async:        false,
		Logger: kafka.LoggerFunc(func(msg string, args ...interface{}) {
			logger.Debug("Kafka writer log", zap.String("msg", fmt.Sprintf(msg, args...)))
		}),
		ErrorLogger: kafka.LoggerFunc(func(msg string, args ...interface{}) {
			logger.Error("Kafka writer error", zap.String("msg", fmt.Sprintf(msg, args...)))
		}),
	}

	return &Sink{writer: writer, topic: topic, table: table, runID: runID, logger: logger}
}

func (s *Sink) Name() string { return "kafka" }

// Load publishes t's rows in order, keyed by the first column.
func (s *Sink) Load(ctx context.Context, t *types.Table) error {
	msgs, err := s.messages(t)
	if err != nil {
		return types.ErrStore("encode rows", err)
	}
	if len(msgs) == 0 {
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	start := time.Now()
	if err := s.writer.WriteMessages(ctx, msgs...); err != nil {
		s.logger.Error("Failed to write messages to Kafka",
			zap.Error(err),
			zap.String("topic", s.topic),
			zap.Duration("duration", time.Since(start)))
		return types.ErrStore("publish "+s.topic, err)
	}

	s.logger.Info("Rows published to Kafka",
		zap.String("topic", s.topic),
		zap.Int("messages", len(msgs)),
		zap.Duration("duration", time.Since(start)))
	return nil
}

func (s *Sink) messages(t *types.Table) ([]kafka.Message, error) {
	msgs := make([]kafka.Message, 0, t.Len())
	now := time.Now()
	for i, row := range t.Rows {
		data, err := json.Marshal(RowMessage{
			Table: s.table,
			Index: i,
			Row:   util.RowMap(t.Columns, row),
		})
		if err != nil {
			return nil, err
		}
		var key string
		if len(row) > 0 {
			key = util.FormatValue(row[0])
		}
		msgs = append(msgs, kafka.Message{
			Key:     []byte(key),
			Value:   data,
			Time:    now,
			Headers: []kafka.Header{{Key: "run_id", Value: []byte(s.runID)}},
		})
	}
	return msgs, nil
}

func (s *Sink) Close() error {
	s.logger.Info("Closing Kafka sink")
	if s.writer != nil {
		return s.writer.Close()
	}
	return nil
}
