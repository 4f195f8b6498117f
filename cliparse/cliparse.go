package cliparse

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/danielhkuo/devote/models"
)

type Config struct {
	Port         int
	DatabaseURL  string
	DatabaseType string

	SessionSecret string
	SessionTTL    time.Duration

	// Ledger access. An empty RPCURL selects the in-process ledger.
	RPCURL             string
	SignerKey          string
	LedgerContract     models.Address
	MembershipContract models.Address
	NetworkID          uint64

	SignatureTimeout    time.Duration
	ConfirmationTimeout time.Duration

	RedisAddr     string
	RedisPassword string
	CacheTTL      time.Duration

	KafkaBrokers []string
	KafkaTopic   string

	Stewards []models.Steward
}

// ParseFlags validates flags and falls back to the environment
func ParseFlags(args []string) (Config, error) {
	var cfg Config

	fs := flag.NewFlagSet("devote", flag.ContinueOnError)

	var envFile string
	fs.StringVar(&envFile, "env-file", "", "Load environment variables from this file first")

	// Network config (can be CLI args or env)
	fs.IntVar(&cfg.Port, "p", 0, "Server port")
	fs.StringVar(&cfg.DatabaseURL, "d", "", "Database URL")
	fs.StringVar(&cfg.DatabaseType, "t", "", "Database type (sqlite or postgres)")

	// Secrets (prefer env variables, but allow CLI for dev)
	fs.StringVar(&cfg.SessionSecret, "session-secret", "", "Session signing secret (prefer env)")
	fs.StringVar(&cfg.SignerKey, "signer-key", "", "Hex private key for the ledger signer (prefer env)")

	var (
		sessionTTL, sigTimeout, confTimeout, cacheTTL string
		ledger, membership, networkID                 string
		brokers, stewards                             string
	)
	fs.StringVar(&sessionTTL, "session-ttl", "", "Session lifetime (default 24h)")
	fs.StringVar(&cfg.RPCURL, "rpc", "", "Ledger JSON-RPC endpoint (empty: in-process ledger)")
	fs.StringVar(&ledger, "ledger", "", "Governance token contract address")
	fs.StringVar(&membership, "membership", "", "Membership lock contract address")
	fs.StringVar(&networkID, "network", "", "Membership network id")
	fs.StringVar(&sigTimeout, "signature-timeout", "", "Wallet signature timeout (default 60s)")
	fs.StringVar(&confTimeout, "confirmation-timeout", "", "Transaction confirmation timeout (default 5m)")
	fs.StringVar(&cfg.RedisAddr, "redis", "", "Redis address for the read cache (empty: in-memory)")
	fs.StringVar(&cacheTTL, "cache-ttl", "", "Read cache TTL (default 30s)")
	fs.StringVar(&brokers, "kafka", "", "Comma-separated Kafka brokers (empty: no event stream)")
	fs.StringVar(&cfg.KafkaTopic, "kafka-topic", "", "Kafka topic for domain events")
	fs.StringVar(&stewards, "stewards", "", "Steward directory, Name=0xaddr,...")

	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}

	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil {
			return Config{}, fmt.Errorf("failed to load env file: %w", err)
		}
	}

	// Fall back to environment variables
	if cfg.Port == 0 {
		if portStr := os.Getenv("PORT"); portStr != "" {
			port, err := strconv.Atoi(portStr)
			if err != nil {
				return Config{}, errors.New("invalid PORT env variable")
			}
			cfg.Port = port
		} else {
			cfg.Port = 3318 // default
		}
	}
	if cfg.DatabaseURL == "" {
		cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	}
	if cfg.DatabaseURL == "" {
		return Config{}, errors.New("database URL required (use -d or DATABASE_URL env)")
	}

	if cfg.DatabaseType == "" {
		cfg.DatabaseType = os.Getenv("DATABASE_TYPE")
		if cfg.DatabaseType == "" {
			cfg.DatabaseType = "sqlite"
		}
	}

	// Secrets - MUST be provided
	if cfg.SessionSecret == "" {
		cfg.SessionSecret = os.Getenv("SESSION_SECRET")
	}
	if cfg.SessionSecret == "" {
		return Config{}, errors.New("SESSION_SECRET required")
	}
	if cfg.SignerKey == "" {
		cfg.SignerKey = os.Getenv("SIGNER_KEY")
	}

	var err error
	if cfg.SessionTTL, err = durationOr(sessionTTL, "SESSION_TTL", 24*time.Hour); err != nil {
		return Config{}, err
	}
	if cfg.SignatureTimeout, err = durationOr(sigTimeout, "SIGNATURE_TIMEOUT", 60*time.Second); err != nil {
		return Config{}, err
	}
	if cfg.ConfirmationTimeout, err = durationOr(confTimeout, "CONFIRMATION_TIMEOUT", 5*time.Minute); err != nil {
		return Config{}, err
	}
	if cfg.CacheTTL, err = durationOr(cacheTTL, "CACHE_TTL", 30*time.Second); err != nil {
		return Config{}, err
	}

	if cfg.RPCURL == "" {
		cfg.RPCURL = os.Getenv("RPC_URL")
	}
	if cfg.RPCURL != "" && cfg.SignerKey == "" {
		return Config{}, errors.New("SIGNER_KEY required when RPC_URL is set")
	}

	if cfg.LedgerContract, err = addressOr(ledger, "LEDGER_CONTRACT"); err != nil {
		return Config{}, err
	}
	if cfg.MembershipContract, err = addressOr(membership, "MEMBERSHIP_CONTRACT"); err != nil {
		return Config{}, err
	}
	if cfg.RPCURL != "" && cfg.LedgerContract == "" {
		return Config{}, errors.New("LEDGER_CONTRACT required when RPC_URL is set")
	}

	if networkID == "" {
		networkID = os.Getenv("NETWORK_ID")
	}
	if networkID == "" {
		cfg.NetworkID = 1
	} else {
		cfg.NetworkID, err = strconv.ParseUint(networkID, 10, 64)
		if err != nil {
			return Config{}, errors.New("invalid network id")
		}
	}

	if cfg.RedisAddr == "" {
		cfg.RedisAddr = os.Getenv("REDIS_ADDR")
	}
	cfg.RedisPassword = os.Getenv("REDIS_PASSWORD")

	if brokers == "" {
		brokers = os.Getenv("KAFKA_BROKERS")
	}
	cfg.KafkaBrokers = splitList(brokers)
	if cfg.KafkaTopic == "" {
		cfg.KafkaTopic = os.Getenv("KAFKA_TOPIC")
		if cfg.KafkaTopic == "" {
			cfg.KafkaTopic = "devote.events"
		}
	}

	if stewards == "" {
		stewards = os.Getenv("STEWARDS")
	}
	if cfg.Stewards, err = ParseStewards(stewards); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

// ParseStewards reads "Name=0xaddr,Other Name=0xaddr". The steward id is
// the lowercased name with spaces replaced by dashes.
func ParseStewards(s string) ([]models.Steward, error) {
	var out []models.Steward
	seen := make(map[string]bool)
	for _, item := range splitList(s) {
		name, addr, ok := strings.Cut(item, "=")
		name = strings.TrimSpace(name)
		if !ok || name == "" {
			return nil, fmt.Errorf("invalid steward entry %q", item)
		}
		a, err := models.ParseAddress(strings.TrimSpace(addr))
		if err != nil {
			return nil, fmt.Errorf("steward %q: %w", name, err)
		}
		id := strings.ToLower(strings.Join(strings.Fields(name), "-"))
		if seen[id] {
			return nil, fmt.Errorf("duplicate steward %q", name)
		}
		seen[id] = true
		out = append(out, models.Steward{ID: id, Name: name, Address: a})
	}
	return out, nil
}

func durationOr(flagVal, env string, def time.Duration) (time.Duration, error) {
	v := flagVal
	if v == "" {
		v = os.Getenv(env)
	}
	if v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("invalid %s: %q", env, v)
	}
	return d, nil
}

func addressOr(flagVal, env string) (models.Address, error) {
	v := flagVal
	if v == "" {
		v = os.Getenv(env)
	}
	if v == "" {
		return "", nil
	}
	a, err := models.ParseAddress(v)
	if err != nil {
		return "", fmt.Errorf("invalid %s: %w", env, err)
	}
	return a, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
