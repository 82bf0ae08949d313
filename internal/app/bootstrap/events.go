package bootstrap

import (
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/sqs"

	"github.com/wolfman30/dental-quote-platform/internal/archive"
	appconfig "github.com/wolfman30/dental-quote-platform/internal/config"
	"github.com/wolfman30/dental-quote-platform/internal/events"
	"github.com/wolfman30/dental-quote-platform/pkg/logging"
)

// BuildEventPublisher publishes quote events to SQS when a queue is
// configured and logs them otherwise.
func BuildEventPublisher(cfg *appconfig.Config, awsCfg *aws.Config, logger *logging.Logger) events.Publisher {
	if cfg == nil || awsCfg == nil || strings.TrimSpace(cfg.QuoteEventsQueueURL) == "" {
		return events.NewLogPublisher(logger)
	}
	return events.NewSQSPublisher(sqs.NewFromConfig(*awsCfg), cfg.QuoteEventsQueueURL, logger)
}

// BuildArchiveStore returns the S3 quote archive. Without a bucket the store
// is disabled and archiving is skipped.
func BuildArchiveStore(cfg *appconfig.Config, awsCfg *aws.Config, logger *logging.Logger) *archive.Store {
	if cfg == nil || awsCfg == nil || strings.TrimSpace(cfg.QuoteArchiveBucket) == "" {
		return archive.NewStore(nil, "", logger)
	}
	client := s3.NewFromConfig(*awsCfg, func(o *s3.Options) {
		o.UsePathStyle = cfg.AWSEndpointOverride != ""
	})
	return archive.NewStore(client, cfg.QuoteArchiveBucket, logger)
}
