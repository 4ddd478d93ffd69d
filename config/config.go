// config/config.go
package config

import (
	"fmt"

	"diamondhand/pda"

	"github.com/caarlos0/env/v11"
)

// EnvPrefix 所有环境变量的统一前缀
const EnvPrefix = "DIAMOND_"

// Config 主配置结构
type Config struct {
	LogLevel string         `env:"LOG_LEVEL"` // trace|debug|verbose|info|warn|error
	Program  ProgramConfig  `envPrefix:"PROGRAM_"`
	Rent     RentConfig     `envPrefix:"RENT_"`
	Database DatabaseConfig `envPrefix:"DATABASE_"`
}

// ProgramConfig 链上程序标识（base58）
type ProgramConfig struct {
	VaultProgramID           string `env:"VAULT_ID"`           // 时间锁金库程序
	TokenProgramID           string `env:"TOKEN_ID"`           // 通用代币程序
	AssociatedTokenProgramID string `env:"ASSOCIATED_TOKEN_ID"` // 关联代币账户程序
}

// RentConfig 存储押金（租金豁免）参数
type RentConfig struct {
	LamportsPerByteYear uint64  `env:"LAMPORTS_PER_BYTE_YEAR"` // 3480
	ExemptionThreshold  float64 `env:"EXEMPTION_THRESHOLD"`    // 2.0（年）
}

// DatabaseConfig 数据库配置
type DatabaseConfig struct {
	// BadgerDB配置
	Path             string `env:"PATH"`                // ./data
	InMemory         bool   `env:"IN_MEMORY"`           // false
	ValueLogFileSize int64  `env:"VALUE_LOG_FILE_SIZE"` // 64 << 20 (64MB)

	// 账户读缓存条目数
	CacheSize int `env:"CACHE_SIZE"` // 4096
}

// DefaultConfig 返回默认配置
func DefaultConfig() *Config {
	return &Config{
		LogLevel: "info",
		Program: ProgramConfig{
			VaultProgramID:           "5Zm2UQMSM63NLJGkQYP6xqqGm2EPzYyVNtyPpJnJb5iD",
			TokenProgramID:           "TokenkegQfeZyiNwAJbNbGKPFXCWuBvf9Ss623VQ5DA",
			AssociatedTokenProgramID: "ATokenGPvbdGVxr1b2hvZbsiqW5xWH25efTNsLJA8knL",
		},
		Rent: RentConfig{
			LamportsPerByteYear: 3480,
			ExemptionThreshold:  2.0,
		},
		Database: DatabaseConfig{
			Path:             "./data",
			InMemory:         false,
			ValueLogFileSize: 64 << 20,
			CacheSize:        4096,
		},
	}
}

// Load 默认配置 + 进程环境变量覆盖
func Load() (*Config, error) {
	return LoadFrom(nil)
}

// LoadFrom 默认配置 + 指定环境变量覆盖；environ 为 nil 时读取进程环境
func LoadFrom(environ map[string]string) (*Config, error) {
	cfg := DefaultConfig()
	opts := env.Options{Prefix: EnvPrefix, Environment: environ}
	if err := env.ParseWithOptions(cfg, opts); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ProgramIDs 解析后的程序地址
type ProgramIDs struct {
	Vault           pda.Address
	Token           pda.Address
	AssociatedToken pda.Address
}

// ParsePrograms 把 base58 程序 ID 解析为地址
func (c *Config) ParsePrograms() (ProgramIDs, error) {
	var ids ProgramIDs
	var err error
	if ids.Vault, err = pda.ParseAddress(c.Program.VaultProgramID); err != nil {
		return ids, fmt.Errorf("vault program id: %w", err)
	}
	if ids.Token, err = pda.ParseAddress(c.Program.TokenProgramID); err != nil {
		return ids, fmt.Errorf("token program id: %w", err)
	}
	if ids.AssociatedToken, err = pda.ParseAddress(c.Program.AssociatedTokenProgramID); err != nil {
		return ids, fmt.Errorf("associated token program id: %w", err)
	}
	if ids.Vault == ids.Token || ids.Vault == ids.AssociatedToken || ids.Token == ids.AssociatedToken {
		return ids, fmt.Errorf("program ids must be distinct")
	}
	return ids, nil
}

// Validate 验证配置合法性
func (c *Config) Validate() error {
	if _, err := c.ParsePrograms(); err != nil {
		return err
	}
	if c.Rent.LamportsPerByteYear == 0 {
		return fmt.Errorf("LamportsPerByteYear must be positive")
	}
	if c.Rent.ExemptionThreshold < 0 {
		return fmt.Errorf("ExemptionThreshold must not be negative")
	}
	if !c.Database.InMemory && c.Database.Path == "" {
		return fmt.Errorf("database path is required unless running in memory")
	}
	if c.Database.CacheSize <= 0 {
		return fmt.Errorf("CacheSize must be positive")
	}
	return nil
}
