package main

import (
	"time"

	"github.com/spf13/viper"
)

func initViperDefaults() {
	// Logging
	viper.SetDefault("logging.level", "info")
	viper.SetDefault("logging.format", "text")
	viper.SetDefault("logging.add_source", false)

	// HTTP server
	viper.SetDefault("server.bind", "0.0.0.0")
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.public_url", "http://127.0.0.1:8080")

	// Chat channel (WhatsApp Cloud API shape)
	viper.SetDefault("whatsapp.base_url", "https://graph.facebook.com/v19.0")
	viper.SetDefault("whatsapp.token", "")
	viper.SetDefault("whatsapp.phone_number_id", "")
	viper.SetDefault("whatsapp.verify_token", "")

	// Vision / content model
	viper.SetDefault("llm.endpoint", "https://api.openai.com")
	viper.SetDefault("llm.api_key", "")
	viper.SetDefault("llm.model", "gpt-4o-mini")

	// Geocoding (Nominatim-compatible)
	viper.SetDefault("geocoder.base_url", "https://nominatim.openstreetmap.org")
	viper.SetDefault("geocoder.user_agent", "proppulse/1.0")

	// Registration workflow backend
	viper.SetDefault("workflow.url", "")
	viper.SetDefault("workflow.api_key", "")

	// Media storage
	viper.SetDefault("media.dir", "/var/lib/proppulse/media")

	// Conversation engine
	viper.SetDefault("session.ttl", 24*time.Hour)
	viper.SetDefault("bot.min_photos", 8)
	viper.SetDefault("bot.max_photos", 20)
	viper.SetDefault("bot.page_size", 5)
	viper.SetDefault("bot.recent_limit", 5)

	// Per-identity workers
	viper.SetDefault("workers.max_concurrency", 8)
	viper.SetDefault("workers.queue_size", 16)

	// DB (sqlite only)
	viper.SetDefault("db.driver", "sqlite")
	viper.SetDefault("db.dsn", "")
	viper.SetDefault("db.pool.max_open_conns", 1)
	viper.SetDefault("db.pool.max_idle_conns", 1)
	viper.SetDefault("db.pool.conn_max_lifetime", 0*time.Second)
	viper.SetDefault("db.sqlite.busy_timeout_ms", 5000)
	viper.SetDefault("db.sqlite.wal", true)
	viper.SetDefault("db.sqlite.foreign_keys", true)
}
