package infra

const (
	// RedisNamespace Базовый префикс для изоляции данных проекта в Redis
	RedisNamespace = "mindtussle"
)

// Ключи ячеек состояния Relay
const (
	RedisKeyMissionStatus = RedisNamespace + ":relay:mission-status"
	RedisKeyDriftStatus   = RedisNamespace + ":relay:drift-status"
	RedisKeyPreferences   = RedisNamespace + ":relay:preferences"
)

// Каналы Pub/Sub (события)
const (
	// RedisChanMissionUpdate — каждый пуш миссии дублируется сюда целиком (JSON MissionState).
	RedisChanMissionUpdate = RedisNamespace + ":relay:mission-update"
)
