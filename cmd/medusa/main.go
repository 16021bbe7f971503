package main

import (
	"context"
	"flag"
	"os/signal"
	"syscall"
	"time"

	"medusa/internal/chain"
	"medusa/internal/config"
	"medusa/internal/entrypoint/telegram"
	"medusa/internal/keystore"
	"medusa/internal/logger"
	"medusa/internal/tokeninfo"
	"medusa/internal/usecase"
	"medusa/internal/usecase/repository/flow"
	"medusa/internal/usecase/repository/idempotence"
	"medusa/internal/usecase/repository/user"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	bolt "go.etcd.io/bbolt"
)

var envFile = flag.String("env", ".env", "path to the .env file")

func main() {
	flag.Parse()

	cfg, err := config.Load(*envFile)
	if err != nil {
		log.Fatal().Err(err).Msg("load config")
	}

	logg, err := logger.Init("medusa", cfg.LogLevel)
	if err != nil {
		log.Fatal().Err(err).Msg("init logger")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := bolt.Open(cfg.DBPath, 0600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		logg.Fatal().Err(err).Str("path", cfg.DBPath).Msg("open database")
	}
	defer db.Close()

	idempotenceRepository, err := idempotence.NewBoltDB(db)
	if err != nil {
		logg.Fatal().Err(err).Msg("idempotence repository")
	}
	idempotenceUsecase := usecase.NewIdempotence(idempotenceRepository, cfg.Idempotence.Retention)

	userRepository, err := user.NewBoltDB(db)
	if err != nil {
		logg.Fatal().Err(err).Msg("user repository")
	}

	flowRepository, closeFlows, err := newFlowRepository(ctx, cfg, db)
	if err != nil {
		logg.Fatal().Err(err).Str("store", cfg.Flow.Store).Msg("flow repository")
	}
	defer closeFlows()

	keys, err := keystore.New(cfg.Wallet.EncryptionKey)
	if err != nil {
		logg.Fatal().Err(err).Msg("keystore")
	}

	chainClient, err := chain.NewClient(ctx, chain.Config{
		RPCURL:              cfg.Chain.RPCURL,
		RouterAddress:       cfg.Chain.RouterAddress,
		ReferrerAddress:     cfg.Chain.ReferrerAddress,
		GasLimit:            cfg.Chain.GasLimit,
		ConfirmationTimeout: cfg.Chain.ConfirmationTimeout,
	}, logg)
	if err != nil {
		logg.Fatal().Err(err).Msg("chain client")
	}
	defer chainClient.Close()

	tokenInfo := tokeninfo.New(cfg.TokenInfo.URL, cfg.TokenInfo.Chain, cfg.TokenInfo.Timeout)

	walletUsecase := usecase.NewWallet(userRepository, keys, chainClient, logg)
	swapUsecase := usecase.NewSwap(userRepository, keys, chainClient, usecase.SwapConfig{
		WrappedNative: cfg.Chain.WETHAddress,
		SlippageBps:   cfg.Chain.SlippageBps,
		Deadline:      cfg.Chain.SwapDeadline,
	}, logg)
	transferUsecase := usecase.NewTransfer(userRepository, keys, chainClient, logg)
	flowsUsecase := usecase.NewFlows(
		flowRepository, userRepository, tokenInfo,
		swapUsecase, transferUsecase,
		cfg.Chain.ExplorerURL, logg,
	)

	bot, err := telegram.New(
		cfg.Telegram.BotToken, cfg.Telegram.Debug,
		idempotenceUsecase, walletUsecase, flowsUsecase,
		logg,
	)
	if err != nil {
		logg.Fatal().Err(err).Msg("telegram bot")
	}

	go pruneIdempotence(ctx, idempotenceUsecase, cfg.Idempotence.PruneInterval, logg)

	bot.Run(ctx)
	logg.Info().Msg("stopped")
}

func newFlowRepository(ctx context.Context, cfg *config.Config, db *bolt.DB) (usecase.FlowRepository, func(), error) {
	if cfg.Flow.Store != config.FlowStoreRedis {
		repo, err := flow.NewBoltDB(db)
		return repo, func() {}, err
	}

	opts, err := redis.ParseURL(cfg.Flow.RedisURL)
	if err != nil {
		return nil, nil, err
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, nil, err
	}
	return flow.NewRedis(client, cfg.Flow.TTL), func() { client.Close() }, nil
}

func pruneIdempotence(ctx context.Context, u *usecase.Idempotence, every time.Duration, log zerolog.Logger) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			removed, err := u.Prune(ctx, now)
			if err != nil {
				log.Warn().Err(err).Msg("prune idempotence records")
				continue
			}
			log.Debug().Int("removed", removed).Msg("idempotence records pruned")
		}
	}
}
