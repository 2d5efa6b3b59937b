// Package config loads ticketbook's runtime configuration.
//
// # Resolution Order
//
// Load layers three sources with koanf, later layers winning:
//
//  1. Built-in defaults (Defaults)
//  2. The TOML file at the given path, or ~/.config/ticketbook/config.toml.
//     A missing file is not an error.
//  3. Environment variables prefixed TICKETBOOK_, e.g. TICKETBOOK_API_URL
//     or TICKETBOOK_CACHE_TTL=2m
//
// Blank strings and non-positive durations fall back to the defaults, and
// token_path has a leading ~ expanded to the home directory.
//
// # Fields
//
//	api_url          base URL of the journal API (http://localhost:8080)
//	request_timeout  per-request timeout (20s)
//	heavy_timeout    timeout for uploads and other slow calls (90s)
//	cache_ttl        freshness window for fetched lists (5m)
//	token_store      file, badger or memory (file)
//	token_path       token file or badger directory (per store)
//	log_level        trace, debug, info, warn or error (info)
//	log_format       console or json (console)
//	probe_interval   reachability probe cadence (30s)
//	max_retries      retry attempts after a failed fetch (3)
//	retry_delay      base retry delay, doubled per attempt (1s)
//
// # Example
//
//	api_url = "https://api.ticketbook.app"
//	token_store = "badger"
//	token_path = "~/.local/share/ticketbook/tokens"
//	cache_ttl = "10m"
package config
