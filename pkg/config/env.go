package config

const (
	EnvPrefix = "STOREFRONT"

	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	EnvAppEnv      = "STOREFRONT_APP_ENV"
	EnvPort        = "STOREFRONT_APP_PORT"
	EnvBackendURL  = "STOREFRONT_BACKEND_URL"
	EnvRedisURL    = "STOREFRONT_REDIS_URL"
	EnvJWTSecret   = "STOREFRONT_JWT_SECRET"
	EnvPollEvery   = "STOREFRONT_NOTIFICATIONS_POLL_INTERVAL"
	EnvWizardOTP   = "STOREFRONT_WIZARD_OTP_TTL"
	EnvCORSOrigins = "STOREFRONT_CORS_ORIGINS"
)
