package main

import (
	"os"

	"github.com/gin-gonic/gin"
	"gopkg.in/yaml.v2"

	mw "github.com/Rupe88/japan-project/pkg/apihelpers/middlewares"
	"github.com/Rupe88/japan-project/pkg/utils"
)

// Environment variables
const (
	ENV_CONFIG_FILE_PATH = "CONFIG_FILE_PATH"

	// Variables to override "secrets" in the config file
	ENV_ACCESS_TOKEN_SIGN_KEY = "ACCESS_TOKEN_SIGN_KEY"
)

type ApiGatewayConfig struct {
	// Logging configs
	Logging utils.LoggerConfig `json:"logging" yaml:"logging"`

	// Gin configs
	GinConfig struct {
		DebugMode    bool     `json:"debug_mode" yaml:"debug_mode"`
		AllowOrigins []string `json:"allow_origins" yaml:"allow_origins"`
		Port         string   `json:"port" yaml:"port"`
	} `json:"gin_config" yaml:"gin_config"`

	AccessTokenSignKey string `json:"access_token_sign_key" yaml:"access_token_sign_key"`

	// routes that bypass bearer verification
	PublicRoutes      []string             `json:"public_routes" yaml:"public_routes"`
	PublicGetPrefixes []mw.PublicGetPrefix `json:"public_get_prefixes" yaml:"public_get_prefixes"`

	// upstream services requests are forwarded to
	Upstreams []UpstreamConfig `json:"upstreams" yaml:"upstreams"`
}

type UpstreamConfig struct {
	PathPrefix string `json:"path_prefix" yaml:"path_prefix"`
	Target     string `json:"target" yaml:"target"`
}

var conf ApiGatewayConfig

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

	if conf.AccessTokenSignKey == "" {
		panic("access token sign key must be configured")
	}

	if !conf.GinConfig.DebugMode {
		gin.SetMode(gin.ReleaseMode)
	}
}

func secretsOverride() {
	if signKey := os.Getenv(ENV_ACCESS_TOKEN_SIGN_KEY); signKey != "" {
		conf.AccessTokenSignKey = signKey
	}
}
