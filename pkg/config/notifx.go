package config

// NotifxConfig configures outbound notification delivery.
type NotifxConfig struct {
	Provider    string // "ses", "smtp" or "console"
	FromAddress string
	FromName    string
	AWSRegion   string

	SMTPHost string
	SMTPPort int
	SMTPUser string
	SMTPPass string
}

func loadNotifxConfig() NotifxConfig {
	return NotifxConfig{
		Provider:    getEnv("NOTIFX_PROVIDER", "console"),
		FromAddress: getEnv("NOTIFX_FROM_ADDRESS", "noreply@perimeter.dev"),
		FromName:    getEnv("NOTIFX_FROM_NAME", "Perimeter"),
		AWSRegion:   getEnv("NOTIFX_AWS_REGION", getEnv("AWS_REGION", "us-east-1")),
		SMTPHost:    getEnv("SMTP_HOST", "localhost"),
		SMTPPort:    getEnvInt("SMTP_PORT", 587),
		SMTPUser:    getEnv("SMTP_USER", ""),
		SMTPPass:    getEnv("SMTP_PASS", ""),
	}
}
