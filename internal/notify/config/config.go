package config

type Config struct {
	BaseURL    string
	WebhookURL string
}
