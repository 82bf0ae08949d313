package bootstrap

import (
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"

	appconfig "github.com/wolfman30/dental-quote-platform/internal/config"
	"github.com/wolfman30/dental-quote-platform/internal/notify"
	"github.com/wolfman30/dental-quote-platform/pkg/logging"
)

// BuildEmailSender selects the email provider. "auto" prefers SendGrid when a
// key is configured, then SES when a sender address is set, then the stub.
// The returned string names the provider.
func BuildEmailSender(cfg *appconfig.Config, awsCfg *aws.Config, logger *logging.Logger) (notify.EmailSender, string) {
	if logger == nil {
		logger = logging.Default()
	}
	if cfg == nil {
		return notify.NewStubEmailSender(logger), "stub"
	}

	preference := strings.ToLower(strings.TrimSpace(cfg.EmailProvider))
	useSendGrid := preference == "sendgrid" || (preference == "auto" || preference == "") && cfg.SendGridAPIKey != ""
	useSES := preference == "ses" || (preference == "auto" || preference == "") && cfg.EmailFromAddress != "" && awsCfg != nil

	if useSendGrid {
		if sender := notify.NewSendGridSender(notify.SendGridConfig{
			APIKey:    cfg.SendGridAPIKey,
			FromEmail: cfg.EmailFromAddress,
			FromName:  cfg.EmailFromName,
		}, logger); sender != nil {
			return sender, "sendgrid"
		}
		logger.Warn("sendgrid selected but SENDGRID_API_KEY is empty")
	}
	if useSES && awsCfg != nil {
		if sender := notify.NewSESSender(sesv2.NewFromConfig(*awsCfg), notify.SESConfig{
			FromEmail: cfg.EmailFromAddress,
			FromName:  cfg.EmailFromName,
		}, logger); sender != nil {
			return sender, "ses"
		}
	}
	return notify.NewStubEmailSender(logger), "stub"
}

// OpsRecipients splits QUOTE_NOTIFY_COPY_TO into addresses.
func OpsRecipients(cfg *appconfig.Config) []string {
	if cfg == nil {
		return nil
	}
	var out []string
	for _, addr := range strings.Split(cfg.QuoteNotifyCopyTo, ",") {
		if addr = strings.TrimSpace(addr); addr != "" {
			out = append(out, addr)
		}
	}
	return out
}
