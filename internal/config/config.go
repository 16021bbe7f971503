package config

import (
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"
)

const (
	FlowStoreBolt  = "bolt"
	FlowStoreRedis = "redis"
)

type Config struct {
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`
	DBPath   string `env:"DB_PATH" envDefault:"medusa.db"`

	Telegram struct {
		BotToken string `env:"BOT_TOKEN,required"`
		Debug    bool   `env:"TELEGRAM_DEBUG" envDefault:"false"`
	}

	Chain struct {
		RPCURL          string `env:"RPC_URL,required"`
		RouterAddress   string `env:"ROUTER_ADDRESS,required"`
		WETHAddress     string `env:"WETH_ADDRESS"`
		ReferrerAddress string `env:"REFERRER_ADDRESS"`
		ExplorerURL     string `env:"EXPLORER_URL" envDefault:"https://sepolia.etherscan.io"`

		SlippageBps         int64         `env:"SLIPPAGE_BPS" envDefault:"100"`
		SwapDeadline        time.Duration `env:"SWAP_DEADLINE" envDefault:"20m"`
		GasLimit            uint64        `env:"GAS_LIMIT" envDefault:"500000"`
		ConfirmationTimeout time.Duration `env:"CONFIRMATION_TIMEOUT" envDefault:"5m"`
	}

	Wallet struct {
		// EncryptionKey is 32 bytes, hex encoded.
		EncryptionKey string `env:"WALLET_ENCRYPTION_KEY,required,unset"`
	}

	Flow struct {
		Store    string        `env:"FLOW_STORE" envDefault:"bolt"`
		RedisURL string        `env:"REDIS_URL" envDefault:"redis://localhost:6379/0"`
		TTL      time.Duration `env:"FLOW_TTL" envDefault:"24h"`
	}

	TokenInfo struct {
		URL     string        `env:"TOKEN_INFO_URL" envDefault:"https://api.diadata.org"`
		Chain   string        `env:"TOKEN_INFO_CHAIN" envDefault:"Ethereum"`
		Timeout time.Duration `env:"TOKEN_INFO_TIMEOUT" envDefault:"5s"`
	}

	Idempotence struct {
		Retention     time.Duration `env:"IDEMPOTENCE_RETENTION" envDefault:"72h"`
		PruneInterval time.Duration `env:"IDEMPOTENCE_PRUNE_INTERVAL" envDefault:"1h"`
	}
}

// Load reads the .env file at path, when it exists, and then the environment.
// Variables already set in the environment win over the file.
func Load(path string) (*Config, error) {
	if path != "" {
		if err := godotenv.Load(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("load %s: %w", path, err)
		}
	}

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, err
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	switch c.Flow.Store {
	case FlowStoreBolt, FlowStoreRedis:
	default:
		return fmt.Errorf("FLOW_STORE must be %q or %q, got %q", FlowStoreBolt, FlowStoreRedis, c.Flow.Store)
	}
	if c.Chain.SlippageBps < 0 || c.Chain.SlippageBps > 10_000 {
		return fmt.Errorf("SLIPPAGE_BPS must be within [0, 10000], got %d", c.Chain.SlippageBps)
	}
	if c.Chain.SwapDeadline <= 0 {
		return errors.New("SWAP_DEADLINE must be positive")
	}
	if c.Idempotence.PruneInterval <= 0 {
		return errors.New("IDEMPOTENCE_PRUNE_INTERVAL must be positive")
	}
	return nil
}
