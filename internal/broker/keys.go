package broker

import "time"

// Exact broker key names from spec.md §6 "Keys (exact)".
const (
	KeyQueue        = "weather:locations:queue"
	KeyStream       = "weather:raw"
	KeyCycleID      = "weather:cycle:id"
	KeyCycleStartMS = "weather:cycle:start_ms"
	keyBucket       = "rate_limiter:weather_api:bucket"
	keyCooldown     = "rate_limiter:weather_api:cooldown"

	bucketTTL   = 60 * time.Second
	cooldownTTL = 30 * time.Second
	pingTimeout = 5 * time.Second
)
