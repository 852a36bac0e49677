package config

import (
	"regexp"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration. It is constructed
// once at process start and passed into components; nothing reads
// ambient configuration state.
type Config struct {
	Pool     PoolConfig     `yaml:"pool" mapstructure:"pool"`
	Chain    ChainConfig    `yaml:"chain" mapstructure:"chain"`
	Identity IdentityConfig `yaml:"identity" mapstructure:"identity"`
	Run      RunConfig      `yaml:"run" mapstructure:"run"`
	Log      LogConfig      `yaml:"log" mapstructure:"log"`
}

// PoolConfig identifies the data pool the proof is generated for.
type PoolConfig struct {
	DLPID           int    `yaml:"dlp_id" mapstructure:"dlp_id"`
	ContractAddress string `yaml:"contract_address" mapstructure:"contract_address"`
	FileID          int    `yaml:"file_id" mapstructure:"file_id"`
}

// ChainConfig configures the read-only registry client.
type ChainConfig struct {
	RPCURL       string `yaml:"rpc_url" mapstructure:"rpc_url"`
	OwnerAddress string `yaml:"owner_address" mapstructure:"owner_address"`
}

// IdentityConfig holds the identity-provider endpoint and credential.
// An empty token disables identity resolution entirely.
type IdentityConfig struct {
	Token   string `yaml:"token" mapstructure:"token"`
	BaseURL string `yaml:"base_url" mapstructure:"base_url"`
}

// RunConfig configures the input and output locations of a run.
type RunConfig struct {
	InputDir  string `yaml:"input_dir" mapstructure:"input_dir"`
	OutputDir string `yaml:"output_dir" mapstructure:"output_dir"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("PROOF")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("pool.dlp_id", 41)
	v.SetDefault("pool.contract_address", "0x3B826122C4EBc127cba30f1d69417743FE652B15")
	v.SetDefault("pool.file_id", 0)
	v.SetDefault("chain.rpc_url", "https://rpc.moksha.vana.org")
	v.SetDefault("chain.owner_address", "")
	v.SetDefault("identity.token", "")
	v.SetDefault("identity.base_url", "https://www.googleapis.com/oauth2/v1/userinfo")
	v.SetDefault("run.input_dir", "/input")
	v.SetDefault("run.output_dir", "/output")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

var addressPattern = regexp.MustCompile(`^0x[a-fA-F0-9]{40}$`)

// Validate checks the run parameters before the pipeline starts.
func (c *Config) Validate() error {
	if !addressPattern.MatchString(c.Pool.ContractAddress) {
		return eris.Errorf("config: invalid pool contract address %q", c.Pool.ContractAddress)
	}
	if c.Chain.OwnerAddress != "" && !addressPattern.MatchString(c.Chain.OwnerAddress) {
		return eris.Errorf("config: invalid owner address %q", c.Chain.OwnerAddress)
	}
	if !strings.HasPrefix(c.Chain.RPCURL, "http://") && !strings.HasPrefix(c.Chain.RPCURL, "https://") {
		return eris.Errorf("config: invalid rpc url %q", c.Chain.RPCURL)
	}
	if c.Identity.Token != "" && len(c.Identity.Token) < 20 {
		return eris.New("config: identity token is too short to be a bearer credential")
	}
	return nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
