package notify

import (
	"context"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sns"

	"github.com/architeacher/svc-visa-processing/internal/config"
	"github.com/architeacher/svc-visa-processing/internal/domain"
	"github.com/architeacher/svc-visa-processing/internal/infrastructure"
)

// SNS subjects are limited to 100 characters.
const maxSubjectLength = 100

type (
	snsAPI interface {
		Publish(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error)
	}

	// SNSAlerter publishes ops alerts to an SNS topic.
	SNSAlerter struct {
		client   snsAPI
		topicARN string
		enabled  bool
		logger   infrastructure.Logger
	}
)

func NewSNSAlerter(client snsAPI, cfg config.NotificationsConfig, logger infrastructure.Logger) *SNSAlerter {
	return &SNSAlerter{
		client:   client,
		topicARN: cfg.OpsTopicARN,
		enabled:  cfg.AlertsEnabled && cfg.OpsTopicARN != "",
		logger:   logger.Component("sns-alerter"),
	}
}

func (a *SNSAlerter) Alert(ctx context.Context, alert domain.OpsAlertPayload) error {
	if !a.enabled {
		a.logger.Warn().
			Str("subject", alert.Subject).
			Str("queue", alert.Queue).
			Str("job_name", alert.JobName).
			Str("job_id", alert.JobID).
			Msg(alert.Message)

		return nil
	}

	attributes := map[string]string{
		"queue":    alert.Queue,
		"job_name": alert.JobName,
		"job_id":   alert.JobID,
	}

	var message strings.Builder

	message.WriteString(alert.Message)

	for _, key := range []string{"queue", "job_name", "job_id"} {
		if attributes[key] != "" {
			fmt.Fprintf(&message, "\n%s: %s", key, attributes[key])
		}
	}

	out, err := a.client.Publish(ctx, &sns.PublishInput{
		TopicArn: aws.String(a.topicARN),
		Subject:  aws.String(truncate(alert.Subject, maxSubjectLength)),
		Message:  aws.String(message.String()),
	})
	if err != nil {
		return domain.RetryableJobError("ALERT_PUBLISH_FAILED", "failed to publish ops alert", err)
	}

	a.logger.Info().Str("message_id", aws.ToString(out.MessageId)).Str("subject", alert.Subject).Msg("ops alert published")

	return nil
}

func truncate(value string, limit int) string {
	runes := []rune(value)
	if len(runes) <= limit {
		return value
	}

	return string(runes[:limit-1]) + "…"
}
