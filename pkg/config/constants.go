package config

// EnvPrefix is the envconfig prefix shared by every RentWorks binary.
const EnvPrefix = "rentworks"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

const (
	EnvDBDSN  = "RENTWORKS_DB_DSN"
	EnvDBHost = "RENTWORKS_DB_HOST"
	EnvDBUser = "RENTWORKS_DB_USER"
	EnvDBName = "RENTWORKS_DB_NAME"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
