package config

// MailConfig holds SMTP relay settings for password-reset emails.
type MailConfig struct {
	Host           string
	Port           int
	Username       string
	Password       string
	From           string
	TLS            bool
	ConsumerEnable bool // run the mail queue consumer inside this process
}

// LoadMailConfig reads SMTP_* variables. An empty host disables delivery;
// jobs are then logged and dropped by the consumer.
func LoadMailConfig() MailConfig {
	return MailConfig{
		Host:           envStr("SMTP_HOST", ""),
		Port:           envInt("SMTP_PORT", 587),
		Username:       envStr("SMTP_USERNAME", ""),
		Password:       envStr("SMTP_PASSWORD", ""),
		From:           envStr("SMTP_FROM", "no-reply@localhost"),
		TLS:            envBool("SMTP_TLS", true),
		ConsumerEnable: envBool("MAIL_CONSUMER_ENABLED", true),
	}
}
