package types

// LogConf contains logging specific configuration
type LogConf struct {
	Level string `ini:"level"`
}

// HTTPConf 控制出站源地址轮换。为空时不轮换，也不启用解析覆盖。
type HTTPConf struct {
	IPv6Prefix string `ini:"ipv6_prefix"` // e.g. 2001:db8:1234::/48
}

// WorkerKVConf 是边缘 KV 代理的连接参数以及本地缓存参数。
type WorkerKVConf struct {
	Endpoint  string `ini:"endpoint"`
	Token     string `ini:"token"`
	CacheSize int    `ini:"cache_size"`
	ExpireSec int    `ini:"expire_sec"`
}

// ProxyConf 描述转发代理（X-Forwarded-For 风格的 edge worker）。
type ProxyConf struct {
	Endpoint      string `ini:"endpoint"`
	Authorization string `ini:"authorization"`
}

// FetchConf 包含 CLI 拉取流程的行为配置
type FetchConf struct {
	Concurrency int    `ini:"concurrency"`
	Storage     string `ini:"storage"` // lru, memory, remote, bolt
	LRUCapacity int    `ini:"lru_capacity"`
	BoltPath    string `ini:"bolt_path"`
	MetricsAddr string `ini:"metrics_addr"`
}

// Config 是 ghostfetch 的统一配置结构体
type Config struct {
	Log      LogConf      `ini:"log"`
	HTTP     HTTPConf     `ini:"http"`
	WorkerKV WorkerKVConf `ini:"worker_kv"`
	Proxy    ProxyConf    `ini:"proxy"`
	Fetch    FetchConf    `ini:"fetch"`
}
