// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package cliparse handles command-line argument parsing and configuration.

# Configuration

ParseFlags returns a Config struct with all settings:

	cfg, err := cliparse.ParseFlags(os.Args[1:])

# CLI Flags

	-env-file             Load a .env file before reading the environment
	-p                    Server port (default 3318)
	-d                    Database URL
	-t                    Database type, sqlite or postgres (default sqlite)
	-session-secret       Session signing secret
	-session-ttl          Session lifetime (default 24h)
	-rpc                  Ledger JSON-RPC endpoint
	-signer-key           Hex private key of the signing account
	-ledger               Governance token contract
	-membership           Membership lock contract
	-network              Membership network id (default 1)
	-signature-timeout    Wallet signature timeout (default 60s)
	-confirmation-timeout Transaction confirmation timeout (default 5m)
	-redis                Redis address for the read cache
	-cache-ttl            Read cache TTL (default 30s)
	-kafka                Comma-separated Kafka brokers
	-kafka-topic          Event topic (default devote.events)
	-stewards             Steward directory, Name=0xaddr,...

# Environment Variables

Every flag falls back to an environment variable: PORT, DATABASE_URL,
DATABASE_TYPE, SESSION_SECRET, SESSION_TTL, RPC_URL, SIGNER_KEY,
LEDGER_CONTRACT, MEMBERSHIP_CONTRACT, NETWORK_ID, SIGNATURE_TIMEOUT,
CONFIRMATION_TIMEOUT, REDIS_ADDR, CACHE_TTL, KAFKA_BROKERS, KAFKA_TOPIC and
STEWARDS. REDIS_PASSWORD is environment-only.

CLI flags take precedence over environment variables. Variables loaded from
-env-file never override ones already set in the process environment.

# Validation

ParseFlags returns an error if:

  - DATABASE_URL or SESSION_SECRET is missing
  - RPC_URL is set without SIGNER_KEY or LEDGER_CONTRACT
  - a contract address, duration or steward entry is malformed
*/
package cliparse
