//go:build integration

package kafka

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
	"github.com/twmb/franz-go/pkg/kgo"

	audit "intakedesk/pkg/platform/audit"
	"intakedesk/pkg/testutil/containers"
)

type KafkaStoreSuite struct {
	suite.Suite
	redpanda *containers.RedpandaContainer
}

func TestKafkaStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(KafkaStoreSuite))
}

func (s *KafkaStoreSuite) SetupSuite() {
	s.redpanda = containers.NewRedpandaContainer(s.T())
}

// =============================================================================
// Round trip
// =============================================================================
// Justification: the unit test fakes the producer; this proves the real client
// configuration (seed brokers, default topic, auto-create) delivers records.

func (s *KafkaStoreSuite) TestAppendIsConsumable() {
	const topic = "intake.audit.test"
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	producer, err := NewClient(s.redpanda.Brokers, topic)
	s.Require().NoError(err)
	defer producer.Close()

	store := New(producer, topic)
	s.Require().NoError(store.Append(ctx, audit.Event{
		Timestamp: time.Now(),
		Subject:   "submission-1",
		Action:    string(audit.EventSubmissionCreated),
	}))

	consumer, err := kgo.NewClient(
		kgo.SeedBrokers(s.redpanda.Brokers...),
		kgo.ConsumeTopics(topic),
		kgo.ConsumeResetOffset(kgo.NewOffset().AtStart()),
	)
	s.Require().NoError(err)
	defer consumer.Close()

	fetches := consumer.PollFetches(ctx)
	s.Require().Empty(fetches.Errors())

	var records []*kgo.Record
	fetches.EachRecord(func(r *kgo.Record) { records = append(records, r) })
	s.Require().NotEmpty(records)

	var got map[string]string
	s.Require().NoError(json.Unmarshal(records[0].Value, &got))
	s.Equal("submission_created", got["action"])
	s.Equal("submission-1", string(records[0].Key))
}
