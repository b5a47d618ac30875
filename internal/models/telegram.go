package models

import "time"

// TelegramConfig holds Telegram notification configuration.
type TelegramConfig struct {
	BotToken string
	ChatID   string
}

// TelegramMessage holds the data for a wake notification.
type TelegramMessage struct {
	Success   bool
	Address   string
	StartTime time.Time
	Duration  time.Duration

	// Wake details (if successful).
	MAC         string
	IP          string
	ResolveWait time.Duration
	ReachWait   time.Duration

	// Error info (if failed).
	ErrorMessage string
	FailedStep   string
}

// TelegramResult holds the result of a Telegram notification.
type TelegramResult struct {
	MessageSent bool
	Error       error
}
