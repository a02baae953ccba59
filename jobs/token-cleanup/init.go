package main

import (
	"log/slog"
	"os"
	"time"

	"gopkg.in/yaml.v2"

	"github.com/Rupe88/japan-project/pkg/db"
	"github.com/Rupe88/japan-project/pkg/utils"

	authDB "github.com/Rupe88/japan-project/pkg/db/auth"
)

// Environment variables
const (
	ENV_CONFIG_FILE_PATH = "CONFIG_FILE_PATH"

	// Variables to override "secrets" in the config file
	ENV_AUTH_DB_USERNAME = "AUTH_DB_USERNAME"
	ENV_AUTH_DB_PASSWORD = "AUTH_DB_PASSWORD"
)

type config struct {
	// Logging configs
	Logging utils.LoggerConfig `json:"logging" yaml:"logging"`

	// DB configs
	DBConfigs struct {
		AuthDB db.DBConfigYaml `json:"auth_db" yaml:"auth_db"`
	} `json:"db_configs" yaml:"db_configs"`

	CleanUpConfig struct {
		// how long used verification codes are kept for audit
		UsedCodeRetention time.Duration `json:"used_code_retention" yaml:"used_code_retention"`
	} `json:"clean_up_config" yaml:"clean_up_config"`
}

var conf config

var (
	authDBService *authDB.AuthDBService
)

func init() {
	// Read config from file
	yamlFile, err := os.ReadFile(os.Getenv(ENV_CONFIG_FILE_PATH))
	if err != nil {
		panic(err)
	}

	err = yaml.UnmarshalStrict(yamlFile, &conf)
	if err != nil {
		panic(err)
	}

	// Init logger:
	utils.InitLogger(
		conf.Logging.LogLevel,
		conf.Logging.IncludeSrc,
		conf.Logging.LogToFile,
		conf.Logging.Filename,
		conf.Logging.MaxSize,
		conf.Logging.MaxAge,
		conf.Logging.MaxBackups,
		conf.Logging.CompressOldLogs,
	)

	// Override secrets from environment variables
	secretsOverride()

	if conf.CleanUpConfig.UsedCodeRetention == 0 {
		conf.CleanUpConfig.UsedCodeRetention = 24 * time.Hour
	}

	// init db
	initDBs()
}

func secretsOverride() {
	if dbUsername := os.Getenv(ENV_AUTH_DB_USERNAME); dbUsername != "" {
		conf.DBConfigs.AuthDB.Username = dbUsername
	}

	if dbPassword := os.Getenv(ENV_AUTH_DB_PASSWORD); dbPassword != "" {
		conf.DBConfigs.AuthDB.Password = dbPassword
	}
}

func initDBs() {
	var err error
	authDBService, err = authDB.NewAuthDBService(db.DBConfigFromYamlObj(conf.DBConfigs.AuthDB))
	if err != nil {
		slog.Error("Error connecting to Auth DB", slog.String("error", err.Error()))
		panic(err)
	}
}
