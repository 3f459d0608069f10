//go:build integration

package notify

import (
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"testing"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/suite"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/rabbitmq"
	"github.com/testcontainers/testcontainers-go/wait"

	"pixiv_watcher/internal/config"
	"pixiv_watcher/internal/domain"
)

type RabbitMQIntegrationSuite struct {
	suite.Suite
	ctx       context.Context
	container *rabbitmq.RabbitMQContainer
	amqpURL   string
	logger    *slog.Logger
}

func (s *RabbitMQIntegrationSuite) SetupSuite() {
	s.ctx = context.Background()
	s.logger = slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))

	container, err := rabbitmq.Run(s.ctx,
		"rabbitmq:3.13-management-alpine",
		testcontainers.WithWaitStrategy(
			wait.ForLog("Server startup complete").
				WithStartupTimeout(60*time.Second),
		),
	)
	s.Require().NoError(err)
	s.container = container

	amqpURL, err := container.AmqpURL(s.ctx)
	s.Require().NoError(err)
	s.amqpURL = amqpURL
}

func (s *RabbitMQIntegrationSuite) TearDownSuite() {
	if s.container != nil {
		_ = s.container.Terminate(s.ctx)
	}
}

func TestRabbitMQIntegrationSuite(t *testing.T) {
	suite.Run(t, new(RabbitMQIntegrationSuite))
}

func (s *RabbitMQIntegrationSuite) queueConfig(name string) config.QueueConfig {
	return config.QueueConfig{
		Enabled:    true,
		URL:        s.amqpURL,
		Exchange:   name + "-exchange",
		RoutingKey: name + "-key",
		QueueName:  name + "-queue",
	}
}

func (s *RabbitMQIntegrationSuite) TestQueueSink_Connection() {
	sink, err := NewQueueSink(s.queueConfig("conn"), s.logger)
	s.NoError(err)
	s.NotNil(sink)

	err = sink.Close()
	s.NoError(err)
}

func (s *RabbitMQIntegrationSuite) TestQueueSink_PublishesOneMessagePerItem() {
	cfg := s.queueConfig("per-item")
	sink, err := NewQueueSink(cfg, s.logger)
	s.Require().NoError(err)
	defer sink.Close()

	items := []domain.NovelItem{
		{ID: "101", Title: "First", AuthorName: "a", AuthorID: "1"},
		{ID: "102", Title: "Second", AuthorName: "b", AuthorID: "2"},
	}
	info := domain.RunInfo{NowDate: "01-02", ExecTime: "2024-01-02 00:00:00", Range: "x ~ y"}

	err = sink.Send(s.ctx, items, info)
	s.NoError(err)

	first := s.consumeMessage(cfg)
	s.Require().NotNil(first)
	second := s.consumeMessage(cfg)
	s.Require().NotNil(second)

	var m1, m2 NovelMessage
	s.NoError(json.Unmarshal(first.Body, &m1))
	s.NoError(json.Unmarshal(second.Body, &m2))

	s.Equal("101", m1.Item.ID)
	s.Equal("First", m1.Item.Title)
	s.Equal("102", m2.Item.ID)
	s.Equal(info.Range, m1.RunInfo.Range)
	s.False(m1.QueuedAt.IsZero())
}

func (s *RabbitMQIntegrationSuite) TestQueueSink_MessageFormat() {
	cfg := s.queueConfig("format")
	sink, err := NewQueueSink(cfg, s.logger)
	s.Require().NoError(err)
	defer sink.Close()

	item := domain.NovelItem{
		ID:             "55",
		Title:          "Full Item",
		AuthorName:     "author",
		AuthorID:       "9",
		AuthorURL:      "https://www.pixiv.net/users/9",
		WebURL:         "https://www.pixiv.net/novel/show.php?id=55",
		SchemeURL:      "pixez://novel/55",
		PubDate:        "2024-01-01 12:00",
		ContentPreview: "some preview text",
		Tags:           []string{"tag1", "tag2"},
	}

	err = sink.Send(s.ctx, []domain.NovelItem{item}, domain.RunInfo{NowDate: "01-01"})
	s.NoError(err)

	msg := s.consumeMessage(cfg)
	s.Require().NotNil(msg)

	s.Equal("application/json", msg.ContentType)

	var received NovelMessage
	s.NoError(json.Unmarshal(msg.Body, &received))
	s.Equal("55", received.Item.ID)
	s.Equal("Full Item", received.Item.Title)
	s.Equal("pixez://novel/55", received.Item.SchemeURL)
	s.Equal("some preview text", received.Item.ContentPreview)
	s.Len(received.Item.Tags, 2)
	s.Equal("01-01", received.RunInfo.NowDate)
}

func (s *RabbitMQIntegrationSuite) TestQueueSink_MessagePersistence() {
	cfg := s.queueConfig("persist")
	sink, err := NewQueueSink(cfg, s.logger)
	s.Require().NoError(err)
	defer sink.Close()

	err = sink.Send(s.ctx, []domain.NovelItem{{ID: "7", Title: "Durable"}}, domain.RunInfo{})
	s.NoError(err)

	msg := s.consumeMessage(cfg)
	s.Require().NotNil(msg)

	s.Equal(uint8(amqp.Persistent), msg.DeliveryMode)
}

func (s *RabbitMQIntegrationSuite) TestQueueSink_EmptyRunPublishesNothing() {
	cfg := s.queueConfig("empty")
	sink, err := NewQueueSink(cfg, s.logger)
	s.Require().NoError(err)
	defer sink.Close()

	err = sink.Send(s.ctx, nil, domain.RunInfo{})
	s.NoError(err)

	conn, err := amqp.Dial(s.amqpURL)
	s.Require().NoError(err)
	defer conn.Close()

	ch, err := conn.Channel()
	s.Require().NoError(err)
	defer ch.Close()

	q, err := ch.QueueInspect(cfg.QueueName)
	s.Require().NoError(err)
	s.Equal(0, q.Messages)
}

func (s *RabbitMQIntegrationSuite) consumeMessage(cfg config.QueueConfig) *amqp.Delivery {
	conn, err := amqp.Dial(s.amqpURL)
	s.Require().NoError(err)
	defer conn.Close()

	ch, err := conn.Channel()
	s.Require().NoError(err)
	defer ch.Close()

	msgs, err := ch.Consume(cfg.QueueName, "", true, false, false, false, nil)
	s.Require().NoError(err)

	select {
	case msg := <-msgs:
		return &msg
	case <-time.After(5 * time.Second):
		s.Fail("Timeout waiting for message")
		return nil
	}
}
