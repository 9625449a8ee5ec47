package runtime

import (
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/architeacher/svc-visa-processing/internal/config"
	"github.com/architeacher/svc-visa-processing/internal/domain"
)

func TestNew(t *testing.T) {
	t.Parallel()

	t.Run("creates service context with default values", func(t *testing.T) {
		t.Parallel()

		serviceCtx := New()

		require.NotNil(t, serviceCtx)
		require.NotNil(t, serviceCtx.shutdownChannel)
		require.Nil(t, serviceCtx.deps)
		require.Nil(t, serviceCtx.serverReady)
	})

	t.Run("creates service context with options", func(t *testing.T) {
		t.Parallel()

		ch := make(chan os.Signal, 1)
		serviceCtx := New(
			WithServiceTermination(ch),
			WithWaitingForServer(),
		)

		require.NotNil(t, serviceCtx)
		require.Equal(t, ch, serviceCtx.shutdownChannel)
		require.NotNil(t, serviceCtx.serverReady)
	})
}

func TestNewPublisher(t *testing.T) {
	t.Parallel()

	t.Run("creates publisher context with default values", func(t *testing.T) {
		t.Parallel()

		publisherCtx := NewPublisher()

		require.NotNil(t, publisherCtx)
		require.NotNil(t, publisherCtx.shutdownChannel)
		require.Nil(t, publisherCtx.deps)
	})

	t.Run("creates publisher context with options", func(t *testing.T) {
		t.Parallel()

		ch := make(chan os.Signal, 1)
		publisherCtx := NewPublisher(WithPublisherTermination(ch))

		require.NotNil(t, publisherCtx)
		require.Equal(t, ch, publisherCtx.shutdownChannel)
	})
}

func TestNewSubscriber(t *testing.T) {
	t.Parallel()

	t.Run("creates subscriber context with default values", func(t *testing.T) {
		t.Parallel()

		subscriberCtx := NewSubscriber()

		require.NotNil(t, subscriberCtx)
		require.NotNil(t, subscriberCtx.shutdownChannel)
		require.Nil(t, subscriberCtx.deps)
	})

	t.Run("creates subscriber context with options", func(t *testing.T) {
		t.Parallel()

		ch := make(chan os.Signal, 1)
		subscriberCtx := NewSubscriber(WithSubscriberTermination(ch))

		require.NotNil(t, subscriberCtx)
		require.Equal(t, ch, subscriberCtx.shutdownChannel)
		require.Empty(t, subscriberCtx.queues)
	})

	t.Run("restricts the consumed queues", func(t *testing.T) {
		t.Parallel()

		subscriberCtx := NewSubscriber(WithSubscriberQueues("critical", "pdf"))

		require.Equal(t, []string{"critical", "pdf"}, subscriberCtx.queues)
	})
}

func TestConsumedQueues(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name    string
		input   []string
		want    []domain.QueueName
		wantErr bool
	}{
		{name: "nothing configured consumes every queue", input: nil, want: domain.AllQueues},
		{name: "blank entries are ignored", input: []string{""}, want: domain.AllQueues},
		{
			name:  "selected queues keep their order",
			input: []string{"pdf", "whatsapp-messages"},
			want:  []domain.QueueName{domain.QueuePDF, domain.QueueWhatsAppMessages},
		},
		{name: "unknown queue", input: []string{"pdf", "emails"}, wantErr: true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			queues, err := consumedQueues(tc.input)
			if tc.wantErr {
				require.Error(t, err)

				return
			}

			require.NoError(t, err)
			require.Equal(t, tc.want, queues)
		})
	}
}

func TestWorkerConcurrency(t *testing.T) {
	t.Parallel()

	jobs := config.JobsConfig{PDF: config.JobDefaults{Concurrency: 6}}

	require.Equal(t, 6, workerConcurrency(jobs, domain.QueuePDF))
	require.Equal(t, 10, workerConcurrency(jobs, domain.QueueCritical))
	require.Equal(t, 2, workerConcurrency(jobs, domain.QueueScraper))

	for _, name := range domain.AllQueues {
		require.Positive(t, workerConcurrency(config.JobsConfig{}, name), name.String())
	}
}

func TestConsumerTag(t *testing.T) {
	t.Parallel()

	tag := consumerTag("svc-visa-processing", domain.QueueCBBSync)

	require.True(t, strings.HasPrefix(tag, "svc-visa-processing.cbb-sync."))
	require.NotEqual(t, tag, consumerTag("svc-visa-processing", domain.QueueBulk))
}
