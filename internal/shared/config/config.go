package config

import (
	"os"
	"strconv"
	"strings"

	"gopkg.in/ini.v1"

	"ghostfetch/internal/shared/errs"
	"ghostfetch/internal/shared/types"
)

const (
	envIPv6Prefix  = "GHOSTFETCH_IPV6_PREFIX"
	envKVToken     = "GHOSTFETCH_KV_TOKEN"
	envConcurrency = "GHOSTFETCH_CONCURRENCY"
)

// Default 返回未提供配置文件时使用的配置。
func Default() *types.Config {
	return &types.Config{
		Log: types.LogConf{Level: "info"},
		WorkerKV: types.WorkerKVConf{
			CacheSize: 10240,
			ExpireSec: 600,
		},
		Fetch: types.FetchConf{
			Concurrency: 4,
			Storage:     "lru",
			LRUCapacity: 1024,
			BoltPath:    "ghostfetch.db",
		},
	}
}

// LoadIni 在默认值之上加载 ini 配置文件，并应用环境变量覆盖。
// 文件不存在时只返回默认值。
func LoadIni(fileName string) (*types.Config, error) {
	cfg := Default()
	if fileName != "" {
		if _, err := os.Stat(fileName); err == nil {
			iniFile, err := ini.Load(fileName)
			if err != nil {
				return nil, errs.New(errs.Configuration, "failed to parse ", fileName).Base(err)
			}
			if err := iniFile.StrictMapTo(cfg); err != nil {
				return nil, errs.New(errs.Configuration, "failed to map ", fileName).Base(err)
			}
		} else if !os.IsNotExist(err) {
			return nil, errs.New(errs.Configuration, "failed to stat ", fileName).Base(err)
		}
	}

	overrideFromEnvString(&cfg.HTTP.IPv6Prefix, envIPv6Prefix)
	overrideFromEnvString(&cfg.WorkerKV.Token, envKVToken)
	overrideFromEnvInt(&cfg.Fetch.Concurrency, envConcurrency)
	cfg.Fetch.Storage = strings.ToLower(strings.TrimSpace(cfg.Fetch.Storage))
	return cfg, nil
}

func overrideFromEnvString(target *string, envName string) {
	if envValue := os.Getenv(envName); envValue != "" {
		*target = envValue
	}
}

func overrideFromEnvInt(target *int, envName string) {
	envValue := os.Getenv(envName)
	if envValue != "" {
		if intValue, err := strconv.Atoi(envValue); err == nil {
			*target = intValue
		}
	}
}
