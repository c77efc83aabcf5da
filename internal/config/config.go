package config

import (
	"context"
	"log/slog"
	"strings"
	"sync"

	"github.com/cockroachdb/errors"
	"github.com/gaze-network/inscription-indexer/common"
	inscriptionsconfig "github.com/gaze-network/inscription-indexer/modules/inscriptions/config"
	"github.com/gaze-network/inscription-indexer/pkg/logger"
	"github.com/gaze-network/inscription-indexer/pkg/logger/slogx"
	"github.com/gaze-network/inscription-indexer/pkg/middleware/requestlogger"
	"github.com/mitchellh/mapstructure"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const (
	DefaultHTTPPort = 8080
)

var (
	isInit     bool
	mu         sync.Mutex
	configOnce sync.Once
	config     = &Config{
		Logger: logger.Config{
			Output: "TEXT",
		},
		Network: common.NetworkMainnet,
		HTTPServer: HTTPServerConfig{
			Port: DefaultHTTPPort,
		},
	}
)

type Config struct {
	Logger     logger.Config    `mapstructure:"logger"`
	Network    common.Network   `mapstructure:"network"`
	HTTPServer HTTPServerConfig `mapstructure:"http_server"`
	Modules    Modules          `mapstructure:"modules"`

	// APIOnly serves the HTTP API without running the indexer.
	APIOnly bool `mapstructure:"api_only"`
}

type HTTPServerConfig struct {
	Port   int                  `mapstructure:"port"`
	Logger requestlogger.Config `mapstructure:"logger"`
}

type Modules struct {
	Inscriptions inscriptionsconfig.Config `mapstructure:"inscriptions"`
}

// Parse reads the configuration file and environment variables once. Environment variables
// override the file, e.g. `MODULES_INSCRIPTIONS_POSTGRES_HOST` overrides `modules.inscriptions.postgres.host`.
func Parse(configFile ...string) Config {
	mu.Lock()
	defer mu.Unlock()
	return parse(configFile...)
}

func parse(configFile ...string) Config {
	ctx := logger.WithContext(context.Background(), slog.String("package", "config"))

	if len(configFile) > 0 && configFile[0] != "" {
		viper.SetConfigFile(configFile[0])
	} else {
		viper.AddConfigPath("./")
		viper.SetConfigName("config")
	}

	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	if err := viper.ReadInConfig(); err != nil {
		var errNotfound viper.ConfigFileNotFoundError
		if errors.As(err, &errNotfound) {
			logger.WarnContext(ctx, "Config file not found, use default config value", slogx.Error(err))
		} else {
			logger.PanicContext(ctx, "Invalid config file", slogx.Error(err))
		}
	}

	decodeHook := viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
		mapstructure.TextUnmarshallerHookFunc(),
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.StringToSliceHookFunc(","),
	))
	if err := viper.Unmarshal(&config, decodeHook); err != nil {
		logger.PanicContext(ctx, "Something went wrong, failed to unmarshal config", slogx.Error(err))
	}

	isInit = true
	return *config
}

// Load returns the configuration, parsing the default sources on first use. The returned value is
// a copy, the configuration is immutable once loaded.
func Load() Config {
	mu.Lock()
	defer mu.Unlock()
	if !isInit {
		configOnce.Do(func() {
			_ = parse()
		})
	}
	return *config
}

// BindPFlag binds a flag to a configuration key. Flags override the file and the environment.
func BindPFlag(key string, flag *pflag.Flag) {
	if err := viper.BindPFlag(key, flag); err != nil {
		logger.Panic("Something went wrong, failed to bind flag for config", slog.String("package", "config"), slogx.Error(err))
	}
}

// SetDefault sets the default value of a configuration key.
func SetDefault(key string, value any) {
	viper.SetDefault(key, value)
}
