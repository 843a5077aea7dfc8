package main

import (
	"context"
	"errors"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"

	sdkmath "cosmossdk.io/math"

	"github.com/yanisepfl/alphix-public-sub008/internal/chain"
	"github.com/yanisepfl/alphix-public-sub008/internal/config"
	"github.com/yanisepfl/alphix-public-sub008/internal/engine"
	"github.com/yanisepfl/alphix-public-sub008/internal/liquidity"
	"github.com/yanisepfl/alphix-public-sub008/internal/logger"
	"github.com/yanisepfl/alphix-public-sub008/internal/poolctrl"
	"github.com/yanisepfl/alphix-public-sub008/internal/state"
	"github.com/yanisepfl/alphix-public-sub008/internal/types"
	"github.com/yanisepfl/alphix-public-sub008/internal/web"
	"github.com/yanisepfl/alphix-public-sub008/internal/yieldsource"
)

const (
	LOOP_INTERVAL = 5 * time.Minute
)

// main is the entry point for the rehypothecation engine service.
func main() {
	// --- 1. Initialization Phase ---
	if err := godotenv.Load(); err != nil {
		log.Warn().Msg("Warning: .env file not found. Relying on OS environment variables.")
	}

	// Load configuration from environment variables
	if err := config.LoadConfig(); err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logger.Initialize(os.Getenv("LOG_LEVEL"))
	log.Info().Msg("Rehypothecation engine starting...")

	// Initialize Database Connection (event store and snapshots)
	dbCfg := state.DBConfig{
		Host: os.Getenv("DB_HOST"), Port: mustAtoi(os.Getenv("DB_PORT"), 5432),
		User: os.Getenv("DB_USER"), Password: os.Getenv("DB_PASSWORD"),
		DBName: os.Getenv("DB_NAME"), SSLMode: os.Getenv("DB_SSLMODE"),
	}
	if err := state.InitDB(dbCfg); err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize database")
	}
	defer state.CloseDB()
	if err := state.EnsureSchema(); err != nil {
		log.Fatal().Err(err).Msg("Failed to ensure database schema")
	}

	store, err := state.NewStore()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create event store")
	}

	currency0 := types.Currency{
		Denom:    config.Currency0Denom,
		Symbol:   config.Currency0Symbol,
		Decimals: config.Currency0Decimals,
		Native:   config.Currency0Native,
	}
	currency1 := types.Currency{
		Denom:    config.Currency1Denom,
		Symbol:   config.Currency1Symbol,
		Decimals: config.Currency1Decimals,
		Native:   config.Currency1Native,
	}

	// --- 2. Pool Controller Initialization (with Safety Switch) ---
	var pool poolctrl.Controller
	var monitor *chain.Monitor
	var simBank *yieldsource.Bank
	mode := os.Getenv("ALPHIX_MODE")

	if mode == "live" {
		log.Warn().Msg("Initializing engine in LIVE mode. Real settlements will be submitted.")

		grpcClient, err := poolctrl.Dial(config.PoolGRPC)
		if err != nil {
			log.Fatal().Err(err).Msg("gRPC connection error")
		}
		defer grpcClient.Close()
		log.Info().Str("endpoint", config.PoolGRPC).Msg("gRPC connected")

		liveController, err := poolctrl.NewLiveController(grpcClient)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to initialize live pool controller")
		}
		pool = liveController

		monitor, err = chain.NewMonitor(config.NodeRPC)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to initialize chain monitor")
		}
	} else {
		log.Warn().Msg("ALPHIX_MODE is not 'live'. Running against an in-memory simulated pool.")
		pool, simBank = buildSimPool(currency0, currency1)
	}

	// --- 3. Create Engine Instance with Dependency Injection ---
	eng, err := engine.New(engine.Config{
		Pool:      pool,
		Currency0: currency0,
		Currency1: currency1,
		Account:   config.EngineAccount,
		Recorder:  store,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create engine instance")
	}

	engineCfg := types.RehypothecationConfig{
		TickLower:    config.TickLower,
		TickUpper:    config.TickUpper,
		YieldTaxPips: config.YieldTaxPips,
		Treasury:     config.TreasuryAddress,
	}
	if mode != "live" {
		// The env range may not align to the simulated pool's spacing.
		engineCfg = config.DefaultSimConfig
	}
	if err := eng.Configure(engineCfg); err != nil {
		log.Fatal().Err(err).Msg("Failed to configure engine")
	}

	if mode != "live" {
		bindSimVaults(eng, simBank, currency0, currency1)
	}

	log.Info().Msg("Engine instance created successfully")

	// --- 4. Start Web Server ---
	webPort := os.Getenv("WEB_PORT")
	if webPort == "" {
		webPort = "8080"
	}

	webServer := web.NewWebServer(webPort, eng)
	go func() {
		log.Info().Str("port", webPort).Str("url", "http://localhost:"+webPort).Msg("Starting engine web dashboard")
		if err := webServer.Start(); err != nil {
			log.Error().Err(err).Msg("Web server failed to start")
		}
	}()

	// --- 5. Accrual / Collection Loop ---
	log.Info().Str("interval", LOOP_INTERVAL.String()).Msg("Starting engine main loop")
	runLoop(context.Background(), eng, monitor, currency0, currency1)
}

// runLoop accrues on a timer, sweeps any accumulated tax and persists a
// status snapshot each cycle.
func runLoop(ctx context.Context, eng *engine.Engine, monitor *chain.Monitor, currency0, currency1 types.Currency) {
	ticker := time.NewTicker(LOOP_INTERVAL)
	defer ticker.Stop()

	for {
		if monitor != nil {
			if err := monitor.CheckSynced(ctx); err != nil {
				log.Error().Err(err).Msg("Skipping cycle: node unhealthy")
				<-ticker.C
				continue
			}
		}

		if err := eng.Accrue(); err != nil {
			log.Error().Err(err).Msg("Accrual cycle failed")
		}

		for _, denom := range []string{currency0.Denom, currency1.Denom} {
			collected, err := eng.CollectTax(denom)
			switch {
			case err == nil:
				log.Info().Str("denom", denom).Str("amount", collected.String()).Msg("Tax swept to treasury")
			case errors.Is(err, engine.ErrNothingToSweep), errors.Is(err, engine.ErrNoBinding):
				// Nothing accrued yet, or the currency has no binding.
			default:
				log.Error().Err(err).Str("denom", denom).Msg("Tax collection failed")
			}
		}

		if _, err := state.SaveEngineSnapshot(eng.Status()); err != nil {
			log.Error().Err(err).Msg("Failed to persist engine snapshot")
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// buildSimPool wires an in-memory pool at a 1:1 price over a fresh bank.
func buildSimPool(currency0, currency1 types.Currency) (*poolctrl.SimPool, *yieldsource.Bank) {
	bank := yieldsource.NewBank()

	price, err := liquidity.SqrtRatioAtTick(0)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to compute sim pool starting price")
	}
	pool, err := poolctrl.NewSimPool(currency0.Denom, currency1.Denom, config.DefaultSimTickSpacing, price, bank)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to build sim pool")
	}

	// Seed the pool account so price-moved unwinds can settle.
	seed := sdkmath.NewInt(1_000_000_000_000)
	bank.Mint(currency0.Denom, pool.Account(), seed)
	bank.Mint(currency1.Denom, pool.Account(), seed)

	return pool, bank
}

// bindSimVaults binds a simulated vault per currency so sim mode exercises
// the full accrual and JIT paths.
func bindSimVaults(eng *engine.Engine, bank *yieldsource.Bank, currencies ...types.Currency) {
	for _, c := range currencies {
		vault := yieldsource.NewSimVault(c.Denom, c.Decimals, bank, config.EngineAccount)
		adapter, err := yieldsource.NewTokenAdapter(c, vault, bank, config.EngineAccount)
		if err != nil {
			log.Fatal().Err(err).Str("denom", c.Denom).Msg("Failed to build sim adapter")
		}
		if err := eng.SetYieldSource(c.Denom, adapter); err != nil {
			log.Fatal().Err(err).Str("denom", c.Denom).Msg("Failed to bind sim yield source")
		}
	}
	log.Info().Msg("Simulated yield sources bound")
}

// Helper to convert string to int with a default value
func mustAtoi(s string, defaultValue int) int {
	i, err := strconv.Atoi(s)
	if err != nil {
		return defaultValue
	}
	return i
}
