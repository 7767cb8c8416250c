package config

const EnvPrefix = ""

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

// Environment variable names referenced outside struct tags.
const (
	EnvAppEnv      = "AGENDALI_APP_ENV"
	EnvPort        = "AGENDALI_APP_PORT"
	EnvDBDSN       = "AGENDALI_DB_DSN"
	EnvDBHost      = "AGENDALI_DB_HOST"
	EnvDBUser      = "AGENDALI_DB_USER"
	EnvDBName      = "AGENDALI_DB_NAME"
	EnvRedisURL    = "AGENDALI_REDIS_URL"
	EnvMPToken     = "AGENDALI_MP_ACCESS_TOKEN"
	EnvMPBaseURL   = "AGENDALI_MP_BASE_URL"
	EnvServiceKind = "AGENDALI_SERVICE_KIND"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
