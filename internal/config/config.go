package config

import (
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/glinharesb/vault-signer/internal/signer"
)

const envPrefix = "VAULT"

// Flag keys. Each is also read from VAULT_<KEY> with dashes as underscores.
const (
	EnvFileKey      = "env-file"
	GRPCAddrKey     = "grpc-addr"
	MetricsAddrKey  = "metrics-addr"
	TLSCertKey      = "tls-cert"
	TLSKeyKey       = "tls-key"
	AuthTokenKey    = "auth-token"
	AuditBufferKey  = "audit-buffer"
	RateLimitKey    = "rate-limit-rps"
	LogLevelKey     = "log-level"
	DataDirKey      = "data-dir"
	StoreKey        = "store"
	MasterKeyKey    = "master-key"
	ProviderKey     = "provider"
	KeyIDKey        = "key-id"
	KeyAlgorithmKey = "key-algorithm"
	DeviceAddrKey   = "device-addr"
	DeviceTokenKey  = "device-token"
)

const (
	StoreMemory  = "memory"
	StoreJSON    = "json"
	StoreLevelDB = "leveldb"

	ProviderSoftware = "software"
	ProviderLedger   = "ledger"
)

var (
	errUnknownStore    = errors.New("unknown store backend")
	errUnknownProvider = errors.New("unknown provider")
	errMissingDataDir  = errors.New("persistent store requires a data dir")
	errMissingMaster   = errors.New("persistent store requires a master key")
	errMissingDevice   = errors.New("ledger provider requires a device address")
)

type Config struct {
	GRPCAddr     string
	MetricsAddr  string
	TLSCert      string
	TLSKey       string
	AuthToken    string
	AuditBuffer  int
	RateLimitRPS int
	LogLevel     string

	DataDir string
	Store   string
	// MasterKey seals keystore entries. Empty means an ephemeral key is
	// generated at startup.
	MasterKey []byte

	Provider     string
	KeyID        string
	KeyAlgorithm signer.Algorithm
	DeviceAddr   string
	DeviceToken  string
}

// BuildFlagSet returns the server flags with their defaults.
func BuildFlagSet() *pflag.FlagSet {
	fs := pflag.NewFlagSet("signer-server", pflag.ContinueOnError)
	fs.String(EnvFileKey, ".env", "Optional dotenv file read before the environment")
	fs.String(GRPCAddrKey, ":50051", "gRPC listen address")
	fs.String(MetricsAddrKey, ":9090", "HTTP address for /metrics and /healthz, empty to disable")
	fs.String(TLSCertKey, "", "TLS certificate file")
	fs.String(TLSKeyKey, "", "TLS key file")
	fs.String(AuthTokenKey, "dev-token", "Bearer token required on every RPC")
	fs.Int(AuditBufferKey, 1024, "Audit log buffer size")
	fs.Int(RateLimitKey, 100, "Requests per second, 0 disables limiting")
	fs.String(LogLevelKey, "info", "Log level")
	fs.String(DataDirKey, "", "Directory for persistent stores")
	fs.String(StoreKey, StoreMemory, "Key store backend: memory, json or leveldb")
	fs.String(MasterKeyKey, "", "Hex encoded 32 byte keystore master key")
	fs.String(ProviderKey, ProviderSoftware, "Signing provider: software or ledger")
	fs.String(KeyIDKey, "", "Keystore entry served by the software provider, empty to generate one")
	fs.String(KeyAlgorithmKey, signer.AlgorithmEd25519.String(), "Algorithm of a generated key")
	fs.String(DeviceAddrKey, "", "Address of the remote device bridge")
	fs.String(DeviceTokenKey, "", "Bearer token for the device bridge")
	return fs
}

// Load parses args into flags and resolves every value from flags, then the
// environment, then the dotenv file, then defaults.
func Load(flags *pflag.FlagSet, args []string) (Config, error) {
	if err := flags.Parse(args); err != nil {
		return Config{}, err
	}

	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	if err := v.BindPFlags(flags); err != nil {
		return Config{}, err
	}

	if path := v.GetString(EnvFileKey); path != "" {
		if err := godotenv.Load(path); err != nil && !errors.Is(err, os.ErrNotExist) {
			return Config{}, fmt.Errorf("load %s: %w", path, err)
		}
	}
	return getConfig(v)
}

func getConfig(v *viper.Viper) (Config, error) {
	cfg := Config{
		GRPCAddr:     v.GetString(GRPCAddrKey),
		MetricsAddr:  v.GetString(MetricsAddrKey),
		TLSCert:      v.GetString(TLSCertKey),
		TLSKey:       v.GetString(TLSKeyKey),
		AuthToken:    v.GetString(AuthTokenKey),
		AuditBuffer:  v.GetInt(AuditBufferKey),
		RateLimitRPS: v.GetInt(RateLimitKey),
		LogLevel:     v.GetString(LogLevelKey),
		DataDir:      v.GetString(DataDirKey),
		Store:        v.GetString(StoreKey),
		Provider:     v.GetString(ProviderKey),
		KeyID:        v.GetString(KeyIDKey),
		DeviceAddr:   v.GetString(DeviceAddrKey),
		DeviceToken:  v.GetString(DeviceTokenKey),
	}

	switch cfg.Store {
	case StoreMemory:
	case StoreJSON, StoreLevelDB:
		if cfg.DataDir == "" {
			return Config{}, errMissingDataDir
		}
	default:
		return Config{}, fmt.Errorf("%w: %q", errUnknownStore, cfg.Store)
	}

	switch cfg.Provider {
	case ProviderSoftware:
	case ProviderLedger:
		if cfg.DeviceAddr == "" {
			return Config{}, errMissingDevice
		}
	default:
		return Config{}, fmt.Errorf("%w: %q", errUnknownProvider, cfg.Provider)
	}

	alg, err := signer.ParseAlgorithm(v.GetString(KeyAlgorithmKey))
	if err != nil {
		return Config{}, err
	}
	cfg.KeyAlgorithm = alg

	if s := v.GetString(MasterKeyKey); s != "" {
		key, err := hex.DecodeString(s)
		if err != nil {
			return Config{}, fmt.Errorf("decode master key: %w", err)
		}
		if len(key) != 32 {
			return Config{}, signer.KeyInvalidf("invalid master key length: %d (expected 32)", len(key))
		}
		cfg.MasterKey = key
	}
	if cfg.Store != StoreMemory && cfg.MasterKey == nil {
		return Config{}, errMissingMaster
	}
	return cfg, nil
}
