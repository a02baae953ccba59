package main

import (
	"log/slog"
	"os"
	"time"

	"github.com/gin-gonic/gin"
	"gopkg.in/yaml.v2"

	"github.com/Rupe88/japan-project/pkg/db"
	emailsending "github.com/Rupe88/japan-project/pkg/messaging/email-sending"
	smtpclient "github.com/Rupe88/japan-project/pkg/smtp-client"
	"github.com/Rupe88/japan-project/pkg/user-management/pwhash"
	"github.com/Rupe88/japan-project/pkg/utils"

	authDB "github.com/Rupe88/japan-project/pkg/db/auth"
)

// Environment variables
const (
	ENV_CONFIG_FILE_PATH = "CONFIG_FILE_PATH"

	// Variables to override "secrets" in the config file
	ENV_AUTH_DB_USERNAME = "AUTH_DB_USERNAME"
	ENV_AUTH_DB_PASSWORD = "AUTH_DB_PASSWORD"

	ENV_ACCESS_TOKEN_SIGN_KEY  = "ACCESS_TOKEN_SIGN_KEY"
	ENV_REFRESH_TOKEN_SIGN_KEY = "REFRESH_TOKEN_SIGN_KEY"

	ENV_SMTP_USERNAME = "SMTP_USERNAME"
	ENV_SMTP_PASSWORD = "SMTP_PASSWORD"
)

type AuthApiConfig struct {
	// Logging configs
	Logging utils.LoggerConfig `json:"logging" yaml:"logging"`

	// Gin configs
	GinConfig struct {
		DebugMode    bool     `json:"debug_mode" yaml:"debug_mode"`
		AllowOrigins []string `json:"allow_origins" yaml:"allow_origins"`
		Port         string   `json:"port" yaml:"port"`
	} `json:"gin_config" yaml:"gin_config"`

	// user management configs
	UserManagementConfig struct {
		PWHashing struct {
			Argon2Memory      uint32 `json:"argon2_memory" yaml:"argon2_memory"`
			Argon2Iterations  uint32 `json:"argon2_iterations" yaml:"argon2_iterations"`
			Argon2Parallelism uint8  `json:"argon2_parallelism" yaml:"argon2_parallelism"`
		} `json:"pw_hashing" yaml:"pw_hashing"`
		TokenConfigs struct {
			AccessTokenSignKey  string        `json:"access_token_sign_key" yaml:"access_token_sign_key"`
			RefreshTokenSignKey string        `json:"refresh_token_sign_key" yaml:"refresh_token_sign_key"`
			AccessTokenTTL      time.Duration `json:"access_token_ttl" yaml:"access_token_ttl"`
			RefreshTokenTTL     time.Duration `json:"refresh_token_ttl" yaml:"refresh_token_ttl"`
		} `json:"token_configs" yaml:"token_configs"`
		VerificationCodeTTL time.Duration `json:"verification_code_ttl" yaml:"verification_code_ttl"`
	} `json:"user_management_config" yaml:"user_management_config"`

	// DB configs
	DBConfigs struct {
		AuthDB db.DBConfigYaml `json:"auth_db" yaml:"auth_db"`
	} `json:"db_configs" yaml:"db_configs"`

	MessagingConfigs struct {
		Smtp      smtpclient.SmtpServerList `json:"smtp" yaml:"smtp"`
		BrandName string                    `json:"brand_name" yaml:"brand_name"`
	} `json:"messaging_configs" yaml:"messaging_configs"`
}

var (
	conf          AuthApiConfig
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

	checkTokenConfig()

	// Init DBs
	initDBs()

	if !conf.GinConfig.DebugMode {
		gin.SetMode(gin.ReleaseMode)
	}

	// init argon2
	pwhash.InitArgonParams(
		conf.UserManagementConfig.PWHashing.Argon2Memory,
		conf.UserManagementConfig.PWHashing.Argon2Iterations,
		conf.UserManagementConfig.PWHashing.Argon2Parallelism,
	)

	if conf.UserManagementConfig.VerificationCodeTTL == 0 {
		conf.UserManagementConfig.VerificationCodeTTL = 15 * time.Minute
	}

	initMessageSending()
}

func secretsOverride() {
	if dbUsername := os.Getenv(ENV_AUTH_DB_USERNAME); dbUsername != "" {
		conf.DBConfigs.AuthDB.Username = dbUsername
	}

	if dbPassword := os.Getenv(ENV_AUTH_DB_PASSWORD); dbPassword != "" {
		conf.DBConfigs.AuthDB.Password = dbPassword
	}

	if signKey := os.Getenv(ENV_ACCESS_TOKEN_SIGN_KEY); signKey != "" {
		conf.UserManagementConfig.TokenConfigs.AccessTokenSignKey = signKey
	}

	if signKey := os.Getenv(ENV_REFRESH_TOKEN_SIGN_KEY); signKey != "" {
		conf.UserManagementConfig.TokenConfigs.RefreshTokenSignKey = signKey
	}

	if smtpUsername := os.Getenv(ENV_SMTP_USERNAME); smtpUsername != "" {
		for i := range conf.MessagingConfigs.Smtp.Servers {
			conf.MessagingConfigs.Smtp.Servers[i].AuthData.Username = smtpUsername
		}
	}

	if smtpPassword := os.Getenv(ENV_SMTP_PASSWORD); smtpPassword != "" {
		for i := range conf.MessagingConfigs.Smtp.Servers {
			conf.MessagingConfigs.Smtp.Servers[i].AuthData.Password = smtpPassword
		}
	}
}

// checkTokenConfig fails fast on missing signing keys, a gateway running
// without them would reject every protected request.
func checkTokenConfig() {
	tc := conf.UserManagementConfig.TokenConfigs
	if tc.AccessTokenSignKey == "" || tc.RefreshTokenSignKey == "" {
		panic("token sign keys must be configured")
	}
	if tc.AccessTokenSignKey == tc.RefreshTokenSignKey {
		panic("access and refresh token sign keys must differ")
	}
	if tc.AccessTokenTTL == 0 {
		conf.UserManagementConfig.TokenConfigs.AccessTokenTTL = 15 * time.Minute
	}
	if tc.RefreshTokenTTL == 0 {
		conf.UserManagementConfig.TokenConfigs.RefreshTokenTTL = 7 * 24 * time.Hour
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

func initMessageSending() {
	if len(conf.MessagingConfigs.Smtp.Servers) < 1 {
		slog.Warn("no smtp servers configured, emails will not be sent")
		return
	}
	smtpClients, err := smtpclient.NewSmtpClients(conf.MessagingConfigs.Smtp)
	if err != nil {
		slog.Error("failed to init smtp clients", slog.String("error", err.Error()))
		return
	}
	emailsending.InitMessageSendingVariables(smtpClients, conf.MessagingConfigs.BrandName)
}
