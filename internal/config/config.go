// =================================
// File: internal/config/config.go
// =================================
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/spf13/viper"

	"github.com/rovshanmuradov/driftoor/internal/drift"
	"github.com/rovshanmuradov/driftoor/internal/wallet"
)

const EnvPrefix = "DRIFTOOR"

type Config struct {
	RPCURL              string   `mapstructure:"rpc_url"`
	RPCList             []string `mapstructure:"rpc_list"`
	Env                 string   `mapstructure:"env"`
	ProgramID           string   `mapstructure:"program_id"`
	PrivateKey          string   `mapstructure:"private_key"`
	KeypairPath         string   `mapstructure:"keypair_path"`
	PerpMarketIndexes   []uint16 `mapstructure:"perp_market_indexes"`
	SpotMarketIndexes   []uint16 `mapstructure:"spot_market_indexes"`
	SubaccountScanLimit int      `mapstructure:"subaccount_scan_limit"`
	PollIntervalMs      int      `mapstructure:"poll_interval_ms"`
	RefreshIntervalMs   int      `mapstructure:"refresh_interval_ms"`
	RPCTimeoutMs        int      `mapstructure:"rpc_timeout_ms"`
	Retries             int      `mapstructure:"retries"`
	StateFile           string   `mapstructure:"state_file"`
	LogFile             string   `mapstructure:"log_file"`
	DebugLogging        bool     `mapstructure:"debug_logging"`
	ExportDir           string   `mapstructure:"export_dir"`
}

const (
	DefaultRPCURL            = "https://api.mainnet-beta.solana.com"
	DefaultScanLimit         = 10
	MaxScanLimit             = 64
	DefaultPollIntervalMs    = 1000
	DefaultRefreshIntervalMs = 5000
	DefaultRPCTimeoutMs      = 10000
	DefaultRetries           = 3
	DefaultStateFile         = "drift-storage.json"
	DefaultLogFile           = "logs/driftoor.log"
	DefaultExportDir         = "exports"
)

func defaults() map[string]interface{} {
	return map[string]interface{}{
		"rpc_url":               DefaultRPCURL,
		"rpc_list":              []string{},
		"env":                   drift.EnvMainnet,
		"program_id":            drift.ProgramID.String(),
		"private_key":           "",
		"keypair_path":          "",
		"perp_market_indexes":   []uint16{0},
		"spot_market_indexes":   []uint16{0},
		"subaccount_scan_limit": DefaultScanLimit,
		"poll_interval_ms":      DefaultPollIntervalMs,
		"refresh_interval_ms":   DefaultRefreshIntervalMs,
		"rpc_timeout_ms":        DefaultRPCTimeoutMs,
		"retries":               DefaultRetries,
		"state_file":            DefaultStateFile,
		"log_file":              DefaultLogFile,
		"debug_logging":         false,
		"export_dir":            DefaultExportDir,
	}
}

// LoadConfig читает файл (если он есть) и переменные окружения DRIFTOOR_*.
// Пустой path или отсутствующий файл – только значения по умолчанию и env.
func LoadConfig(path string) (*Config, error) {
	v := viper.New()
	for key, value := range defaults() {
		v.SetDefault(key, value)
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			if !errors.Is(err, os.ErrNotExist) {
				return nil, fmt.Errorf("read config %s: %w", path, err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}

	if err := loadEnvironmentVariables(v, &cfg); err != nil {
		return nil, err
	}

	return &cfg, validateConfig(&cfg)
}

func validateConfig(cfg *Config) error {
	endpoints := cfg.Endpoints()
	if len(endpoints) == 0 {
		return errors.New("rpc_list is empty")
	}
	for _, rpcURL := range endpoints {
		if err := validateURLWithCache(rpcURL, "http"); err != nil {
			return fmt.Errorf("invalid RPC URL %q: %w", rpcURL, err)
		}
	}
	if err := drift.ValidateEnv(cfg.Env); err != nil {
		return err
	}
	if _, err := cfg.ProgramPublicKey(); err != nil {
		return err
	}
	return validateNumericParams(cfg)
}

func validateNumericParams(cfg *Config) error {
	if cfg.SubaccountScanLimit < 1 || cfg.SubaccountScanLimit > MaxScanLimit {
		return fmt.Errorf("subaccount_scan_limit must be within 1..%d", MaxScanLimit)
	}
	if cfg.PollIntervalMs <= 0 {
		return errors.New("invalid poll_interval_ms")
	}
	if cfg.RefreshIntervalMs <= 0 {
		return errors.New("invalid refresh_interval_ms")
	}
	if cfg.RPCTimeoutMs <= 0 {
		return errors.New("invalid rpc_timeout_ms")
	}
	if cfg.Retries < 0 {
		return errors.New("invalid retries count")
	}
	return nil
}

var urlCache sync.Map

func validateURLWithCache(rawURL string, protocol string) error {
	if _, ok := urlCache.Load(rawURL); ok {
		return nil
	}
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return errors.New("invalid URL format")
	}
	if !strings.HasPrefix(parsed.Scheme, protocol) || parsed.Host == "" {
		return errors.New("invalid URL protocol")
	}
	urlCache.Store(rawURL, parsed)
	return nil
}

func loadEnvironmentVariables(v *viper.Viper, cfg *Config) error {
	envRPCList := v.GetString("RPC_LIST")
	if envRPCList != "" {
		cfg.RPCList = splitList(envRPCList)
	}
	return nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if clean := strings.TrimSpace(part); clean != "" {
			out = append(out, clean)
		}
	}
	return out
}

// Endpoints – rpc_list, либо rpc_url, если список пуст.
func (c *Config) Endpoints() []string {
	if len(c.RPCList) > 0 {
		return c.RPCList
	}
	if c.RPCURL != "" {
		return []string{c.RPCURL}
	}
	return nil
}

func (c *Config) ProgramPublicKey() (solana.PublicKey, error) {
	if c.ProgramID == "" {
		return drift.ProgramID, nil
	}
	pk, err := solana.PublicKeyFromBase58(c.ProgramID)
	if err != nil {
		return solana.PublicKey{}, fmt.Errorf("invalid program_id: %w", err)
	}
	return pk, nil
}

// WalletSource описывает, откуда брать кошелёк.
func (c *Config) WalletSource() wallet.Source {
	return wallet.Source{
		PrivateKey:  c.PrivateKey,
		KeypairPath: c.KeypairPath,
	}
}

func (c *Config) PollInterval() time.Duration {
	return time.Duration(c.PollIntervalMs) * time.Millisecond
}

func (c *Config) RefreshInterval() time.Duration {
	return time.Duration(c.RefreshIntervalMs) * time.Millisecond
}

func (c *Config) RPCTimeout() time.Duration {
	return time.Duration(c.RPCTimeoutMs) * time.Millisecond
}
