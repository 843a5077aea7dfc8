package config

import (
	"errors"
	"os"
	"strconv"

	"github.com/rs/zerolog/log"
)

// AppConfig holds all application configuration loaded from environment variables.
// These are populated at startup by the LoadConfig function.
var (
	// Currency0Denom / Currency1Denom identify the pool pair this engine
	// instance serves. Sorted order is the caller's responsibility.
	Currency0Denom    string
	Currency0Symbol   string
	Currency0Decimals int
	Currency0Native   bool

	Currency1Denom    string
	Currency1Symbol   string
	Currency1Decimals int
	Currency1Native   bool

	// EngineAccount is the engine's own settlement account on the host ledger.
	EngineAccount string
	// TreasuryAddress receives collected yield tax.
	TreasuryAddress string

	// TickLower and TickUpper bound the shared JIT range.
	TickLower int32
	TickUpper int32
	// YieldTaxPips is the protocol tax in pips (1,000,000 = 100%).
	YieldTaxPips uint32
)

// LoadConfig loads configuration from environment variables and sets the global config vars.
// All environment variables are required and must be set.
func LoadConfig() error {
	log.Info().Msg("Loading application configuration from environment variables...")

	var err error

	Currency0Denom, err = getEnv("CURRENCY0_DENOM")
	if err != nil {
		return err
	}
	Currency0Symbol, err = getEnv("CURRENCY0_SYMBOL")
	if err != nil {
		return err
	}
	Currency0Decimals, err = getEnvAsInt("CURRENCY0_DECIMALS")
	if err != nil {
		return err
	}
	Currency0Native, err = getEnvAsBool("CURRENCY0_NATIVE")
	if err != nil {
		return err
	}

	Currency1Denom, err = getEnv("CURRENCY1_DENOM")
	if err != nil {
		return err
	}
	Currency1Symbol, err = getEnv("CURRENCY1_SYMBOL")
	if err != nil {
		return err
	}
	Currency1Decimals, err = getEnvAsInt("CURRENCY1_DECIMALS")
	if err != nil {
		return err
	}
	Currency1Native, err = getEnvAsBool("CURRENCY1_NATIVE")
	if err != nil {
		return err
	}

	EngineAccount, err = getEnv("ENGINE_ACCOUNT")
	if err != nil {
		return err
	}
	TreasuryAddress, err = getEnv("TREASURY_ADDRESS")
	if err != nil {
		return err
	}

	TickLower, err = getEnvAsInt32("TICK_LOWER")
	if err != nil {
		return err
	}
	TickUpper, err = getEnvAsInt32("TICK_UPPER")
	if err != nil {
		return err
	}
	YieldTaxPips, err = getEnvAsUint32("YIELD_TAX_PIPS")
	if err != nil {
		return err
	}

	// Load endpoint configuration
	if err := loadEndpointConfig(); err != nil {
		return err
	}

	log.Debug().
		Str("Currency0", Currency0Denom).
		Str("Currency1", Currency1Denom).
		Str("EngineAccount", EngineAccount).
		Int32("TickLower", TickLower).
		Int32("TickUpper", TickUpper).
		Uint32("YieldTaxPips", YieldTaxPips).
		Msg("Configuration loaded successfully.")

	return nil
}

// getEnv retrieves a string environment variable. Returns error if not set.
func getEnv(key string) (string, error) {
	if value, exists := os.LookupEnv(key); exists {
		return value, nil
	}
	return "", errors.New("environment variable " + key + " is required but not set")
}

// getEnvAsInt retrieves an environment variable as an int. Returns error if not set or invalid.
func getEnvAsInt(key string) (int, error) {
	valueStr, err := getEnv(key)
	if err != nil {
		return 0, err
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return 0, errors.New("environment variable " + key + " must be a valid int, got: " + valueStr)
	}
	return value, nil
}

// getEnvAsInt32 retrieves an environment variable as an int32. Returns error if not set or invalid.
func getEnvAsInt32(key string) (int32, error) {
	valueStr, err := getEnv(key)
	if err != nil {
		return 0, err
	}
	value, err := strconv.ParseInt(valueStr, 10, 32)
	if err != nil {
		return 0, errors.New("environment variable " + key + " must be a valid int32, got: " + valueStr)
	}
	return int32(value), nil
}

// getEnvAsUint32 retrieves an environment variable as a uint32. Returns error if not set or invalid.
func getEnvAsUint32(key string) (uint32, error) {
	valueStr, err := getEnv(key)
	if err != nil {
		return 0, err
	}
	value, err := strconv.ParseUint(valueStr, 10, 32)
	if err != nil {
		return 0, errors.New("environment variable " + key + " must be a valid uint32, got: " + valueStr)
	}
	return uint32(value), nil
}

// getEnvAsBool retrieves an environment variable as a bool. Returns error if not set or invalid.
func getEnvAsBool(key string) (bool, error) {
	valueStr, err := getEnv(key)
	if err != nil {
		return false, err
	}
	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return false, errors.New("environment variable " + key + " must be a valid bool, got: " + valueStr)
	}
	return value, nil
}
