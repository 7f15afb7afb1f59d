package config

import (
	"time"

	"github.com/spf13/viper"
)

// Task names known to the scheduler.
const (
	TaskSQLMaintenance    = "sql_maintenance"
	TaskSnapshotRetention = "snapshot_retention"
)

// Default values for configuration.
const (
	DefaultLogLevel = "info"

	DefaultDBPath            = "storage.db"
	DefaultSnapshotRetention = 30 * 24 * time.Hour

	DefaultRateLimitWindowSeconds = 30
	DefaultRateLimitMaxHits       = 5

	DefaultAuditLogLimit     = 25
	DefaultAttributionWindow = 20 * time.Second
	DefaultIgnoreTTL         = 10 * time.Second

	DefaultGeminiModel          = "gemini-2.0-flash"
	DefaultGeminiTemperature    = 1.0
	DefaultGeminiMaxRetries     = 2
	DefaultGeminiRetryDelay     = 2
	DefaultGeminiTimeoutSeconds = 60

	DefaultAPIShutdownTimeout = 5 * time.Second

	DefaultEmptyPromptMessage = "a?"
	DefaultLLMErrorMessage    = "I ran into an LLM error. Try again in a moment."
	DefaultLLMEmptyMessage    = "I couldn't generate a useful response for that. Try rephrasing?"
)

func setDefaults(v *viper.Viper) {
	v.SetDefault("logger.level", DefaultLogLevel)
	v.SetDefault("logger.json", true)

	// Registered so GUILDWATCH_DISCORD_TOKEN is picked up by Unmarshal.
	v.SetDefault("discord.token", "")

	v.SetDefault("database.path", DefaultDBPath)
	v.SetDefault("database.snapshot_retention", DefaultSnapshotRetention)

	v.SetDefault("cache.url", "")

	v.SetDefault("rate_limit.window_seconds", DefaultRateLimitWindowSeconds)
	v.SetDefault("rate_limit.max_hits", DefaultRateLimitMaxHits)

	v.SetDefault("activity.audit_log_limit", DefaultAuditLogLimit)
	v.SetDefault("activity.attribution_window", DefaultAttributionWindow)
	v.SetDefault("activity.ignore_ttl", DefaultIgnoreTTL)

	v.SetDefault("gemini.api_key", "")
	v.SetDefault("gemini.model_name", DefaultGeminiModel)
	v.SetDefault("gemini.temperature", DefaultGeminiTemperature)
	v.SetDefault("gemini.max_retries", DefaultGeminiMaxRetries)
	v.SetDefault("gemini.retry_delay_seconds", DefaultGeminiRetryDelay)
	v.SetDefault("gemini.system_instruction", "")
	v.SetDefault("gemini.timeout_seconds", DefaultGeminiTimeoutSeconds)

	v.SetDefault("scheduler.tasks."+TaskSQLMaintenance+".enabled", true)
	v.SetDefault("scheduler.tasks."+TaskSQLMaintenance+".schedule", "0 0 4 * * *")
	v.SetDefault("scheduler.tasks."+TaskSnapshotRetention+".enabled", true)
	v.SetDefault("scheduler.tasks."+TaskSnapshotRetention+".schedule", "0 30 4 * * *")

	v.SetDefault("api.listen_addr", "")
	v.SetDefault("api.shutdown_timeout", DefaultAPIShutdownTimeout)

	v.SetDefault("messages.empty_prompt", DefaultEmptyPromptMessage)
	v.SetDefault("messages.llm_error", DefaultLLMErrorMessage)
	v.SetDefault("messages.llm_empty", DefaultLLMEmptyMessage)
}
