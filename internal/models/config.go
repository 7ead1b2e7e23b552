package models

import "time"

// Config represents the application configuration
type Config struct {
	Database     DatabaseConfig
	Bot          BotConfig
	Conversation ConversationConfig
}

// DatabaseConfig holds database connection and pool settings
type DatabaseConfig struct {
	Driver          string // "postgres" or "sqlite3"
	Host            string
	Port            int
	Name            string
	User            string
	Password        string
	SSLMode         string
	SqlitePath      string
	MinConns        int // kept idle in the pool
	MaxConns        int // upper bound on concurrent checkouts
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
	PingTimeout     time.Duration
	IdRetries       int
	DefaultCurrency string
}

// BotConfig holds chat transport settings
type BotConfig struct {
	Token          string
	PollTimeout    time.Duration
	MaxConcurrency int
	ListMaxLimit   int
	CategoriesFile string
	Debug          bool
}

// ConversationConfig holds interactive entry flow settings
type ConversationConfig struct {
	IdleTTL         time.Duration
	CleanupInterval time.Duration
}
