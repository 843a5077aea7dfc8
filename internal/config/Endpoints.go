package config

import (
	"github.com/rs/zerolog/log"
)

// Endpoint configuration loaded from environment variables.
// These are populated at startup by the LoadConfig function.
var (
	// NodeRPC is the CometBFT RPC endpoint for the host chain node.
	NodeRPC string
	// PoolGRPC is the gRPC endpoint for the pool controller service.
	PoolGRPC string
)

// loadEndpointConfig loads endpoint configuration from environment variables.
// This function is called by LoadConfig() in General.go.
func loadEndpointConfig() error {
	log.Info().Msg("Loading endpoint configuration from environment variables...")

	var err error

	NodeRPC, err = getEnv("NODE_RPC")
	if err != nil {
		return err
	}

	PoolGRPC, err = getEnv("POOL_GRPC")
	if err != nil {
		return err
	}

	log.Debug().
		Str("NodeRPC", NodeRPC).
		Str("PoolGRPC", PoolGRPC).
		Msg("Endpoint configuration loaded successfully.")

	return nil
}
