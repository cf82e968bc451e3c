package config

type ServerConfig struct {
	Addr         string   `json:"addr" yaml:"addr"`                 // 监听地址
	MockFallback bool     `json:"mockFallback" yaml:"mockFallback"` // 模型不可用时使用启发式分析
	AllowOrigins []string `json:"allowOrigins" yaml:"allowOrigins"` // CORS 允许的来源
}

func NewDefaultServerConfig() *ServerConfig {
	return &ServerConfig{
		Addr:         ":3000",
		MockFallback: true,
		AllowOrigins: []string{"*"},
	}
}
