// Package config 提供 TOML 配置加载、环境变量覆盖与 schema 校验
package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"

	"github.com/wyfcoding/riskmonitor/pkg/logger"
)

// Config 基础配置结构
type Config struct {
	// 服务名称
	ServiceName string `mapstructure:"service_name"`
	// 环境：dev, staging, prod
	Environment string `mapstructure:"environment"`
	// HTTP 服务配置
	HTTP HTTPConfig `mapstructure:"http"`
	// 数据库配置
	Database DatabaseConfig `mapstructure:"database"`
	// Redis 配置
	Redis RedisConfig `mapstructure:"redis"`
	// Kafka 配置
	Kafka KafkaConfig `mapstructure:"kafka"`
	// 日志配置
	Logger logger.Config `mapstructure:"logger"`
	// 指标配置
	Metrics MetricsConfig `mapstructure:"metrics"`
	// 反洗钱监控规则配置
	AML AMLConfig `mapstructure:"aml"`
	// 周期性评估配置
	Assessment AssessmentConfig `mapstructure:"assessment"`
}

// HTTPConfig HTTP 服务配置
type HTTPConfig struct {
	Host         string `mapstructure:"host"`
	Port         int    `mapstructure:"port"`
	ReadTimeout  int    `mapstructure:"read_timeout"`
	WriteTimeout int    `mapstructure:"write_timeout"`
}

// DatabaseConfig 数据库配置
type DatabaseConfig struct {
	Driver             string `mapstructure:"driver"`
	DSN                string `mapstructure:"dsn"`
	MaxOpenConns       int    `mapstructure:"max_open_conns"`
	MaxIdleConns       int    `mapstructure:"max_idle_conns"`
	ConnMaxLifetime    int    `mapstructure:"conn_max_lifetime"`
	LogEnabled         bool   `mapstructure:"log_enabled"`
	SlowQueryThreshold int    `mapstructure:"slow_query_threshold"`
}

// RedisConfig Redis 配置
type RedisConfig struct {
	Host         string `mapstructure:"host"`
	Port         int    `mapstructure:"port"`
	Password     string `mapstructure:"password"`
	DB           int    `mapstructure:"db"`
	MaxPoolSize  int    `mapstructure:"max_pool_size"`
	ConnTimeout  int    `mapstructure:"conn_timeout"`
	ReadTimeout  int    `mapstructure:"read_timeout"`
	WriteTimeout int    `mapstructure:"write_timeout"`
}

// KafkaConfig Kafka 配置
type KafkaConfig struct {
	Brokers      []string `mapstructure:"brokers"`
	GroupID      string   `mapstructure:"group_id"`
	MaxRetries   int      `mapstructure:"max_retries"`
	RetryBackoff int      `mapstructure:"retry_backoff"`
}

// MetricsConfig 指标配置
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Port    int    `mapstructure:"port"`
	Path    string `mapstructure:"path"`
}

// AMLConfig 交易监控规则参数
// 阈值为示例值，正式上线前需按监管要求确认
type AMLConfig struct {
	// 机构本国国家码，用于跨境交易判定
	HomeCountry string `mapstructure:"home_country"`
	// 现金交易报告（CTR）阈值，美元
	CTRThresholdUSD float64 `mapstructure:"ctr_threshold_usd"`
	// 拆分交易识别下限，美元
	StructuringFloorUSD float64 `mapstructure:"structuring_floor_usd"`
	// 拆分交易窗口内最少笔数
	StructuringMinCount int `mapstructure:"structuring_min_count"`
	// 拆分交易观察窗口（天）
	StructuringWindowDays int `mapstructure:"structuring_window_days"`
	// 快速资金移动窗口内最少笔数
	RapidMovementMinCount int `mapstructure:"rapid_movement_min_count"`
	// 快速资金移动观察窗口（小时）
	RapidMovementWindowHours int `mapstructure:"rapid_movement_window_hours"`
	// 整数金额识别下限，美元
	RoundAmountFloorUSD float64 `mapstructure:"round_amount_floor_usd"`
	// 整数金额步长，美元
	RoundAmountStepUSD float64 `mapstructure:"round_amount_step_usd"`
	// 非正常时段起始小时（含）
	NightWindowStartHour int `mapstructure:"night_window_start_hour"`
	// 非正常时段结束小时（不含）
	NightWindowEndHour int `mapstructure:"night_window_end_hour"`
	// 地理速度：窗口内不同对手方国家数下限
	GeoVelocityMinCountries int `mapstructure:"geo_velocity_min_countries"`
	// 地理速度观察窗口（小时）
	GeoVelocityWindowHours int `mapstructure:"geo_velocity_window_hours"`
	// 月交易量超出客户申报值的倍数上限
	ProfileVolumeMultiplier float64 `mapstructure:"profile_volume_multiplier"`
	// 名单筛查最低命中分数
	ScreeningMinScore float64 `mapstructure:"screening_min_score"`
	// 名单筛查超时（毫秒）
	ScreeningTimeoutMs int `mapstructure:"screening_timeout_ms"`
	// 告警触发分数阈值
	AlertScoreThreshold float64 `mapstructure:"alert_score_threshold"`
	// 告警去重窗口（分钟）
	AlertDedupWindowMinutes int `mapstructure:"alert_dedup_window_minutes"`
	// 风险等级边界：medium/high/critical 的下限分数
	MediumScoreFloor   float64 `mapstructure:"medium_score_floor"`
	HighScoreFloor     float64 `mapstructure:"high_score_floor"`
	CriticalScoreFloor float64 `mapstructure:"critical_score_floor"`
}

// AssessmentConfig 周期性评估参数
type AssessmentConfig struct {
	// 批量评估并发度
	WorkerPoolSize int `mapstructure:"worker_pool_size"`
	// 单个实体评估超时（秒）
	EntityTimeoutSec int `mapstructure:"entity_timeout_sec"`
	// VaR 置信度
	VaRConfidence float64 `mapstructure:"var_confidence"`
	// VaR 时间跨度（天）
	VaRHorizonDays int `mapstructure:"var_horizon_days"`
	// VaR 计算方法：historical, parametric, monte_carlo
	VaRMethod string `mapstructure:"var_method"`
	// 蒙特卡洛模拟次数
	MonteCarloIterations int `mapstructure:"monte_carlo_iterations"`
	// 市场风险结果有效期（小时）
	VaRValidityHours int `mapstructure:"var_validity_hours"`
}

// Load 从 TOML 文件加载配置，支持环境变量覆盖
func Load(configPath string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	v.SetConfigFile(configPath)
	v.SetConfigType("toml")

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	v.SetEnvPrefix("APP")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

// Validate 验证配置的有效性
func (c *Config) Validate() error {
	if c.ServiceName == "" {
		return fmt.Errorf("service_name is required")
	}
	if c.Environment == "" {
		c.Environment = "dev"
	}
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("invalid HTTP port: %d", c.HTTP.Port)
	}
	if c.Database.DSN == "" && c.Database.Driver != "sqlite" {
		return fmt.Errorf("database DSN is required for %s driver", c.Database.Driver)
	}
	if c.AML.CTRThresholdUSD <= 0 {
		return fmt.Errorf("aml.ctr_threshold_usd must be positive")
	}
	if c.AML.StructuringFloorUSD >= c.AML.CTRThresholdUSD {
		return fmt.Errorf("aml.structuring_floor_usd must be below the CTR threshold")
	}
	// 等级边界必须单调，保证分数到等级的映射连续
	if !(c.AML.MediumScoreFloor < c.AML.HighScoreFloor && c.AML.HighScoreFloor < c.AML.CriticalScoreFloor) {
		return fmt.Errorf("aml risk level floors must be strictly increasing")
	}
	if c.Assessment.WorkerPoolSize <= 0 {
		return fmt.Errorf("assessment.worker_pool_size must be positive")
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("http.host", "0.0.0.0")
	v.SetDefault("http.port", 8080)
	v.SetDefault("http.read_timeout", 30)
	v.SetDefault("http.write_timeout", 30)

	v.SetDefault("database.driver", "mysql")
	v.SetDefault("database.max_open_conns", 25)
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.conn_max_lifetime", 300)
	v.SetDefault("database.log_enabled", false)
	v.SetDefault("database.slow_query_threshold", 1000)

	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.max_pool_size", 10)
	v.SetDefault("redis.conn_timeout", 5)
	v.SetDefault("redis.read_timeout", 3)
	v.SetDefault("redis.write_timeout", 3)

	v.SetDefault("kafka.max_retries", 3)
	v.SetDefault("kafka.retry_backoff", 100)

	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "json")
	v.SetDefault("logger.output", "stdout")
	v.SetDefault("logger.file_path", "logs/app.log")
	v.SetDefault("logger.max_size", 100)
	v.SetDefault("logger.max_backups", 10)
	v.SetDefault("logger.max_age", 30)
	v.SetDefault("logger.compress", true)
	v.SetDefault("logger.with_caller", true)

	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.port", 9090)
	v.SetDefault("metrics.path", "/metrics")

	v.SetDefault("aml.home_country", "US")
	v.SetDefault("aml.ctr_threshold_usd", 10000.0)
	v.SetDefault("aml.structuring_floor_usd", 9000.0)
	v.SetDefault("aml.structuring_min_count", 3)
	v.SetDefault("aml.structuring_window_days", 7)
	v.SetDefault("aml.rapid_movement_min_count", 5)
	v.SetDefault("aml.rapid_movement_window_hours", 24)
	v.SetDefault("aml.round_amount_floor_usd", 10000.0)
	v.SetDefault("aml.round_amount_step_usd", 10000.0)
	v.SetDefault("aml.night_window_start_hour", 0)
	v.SetDefault("aml.night_window_end_hour", 5)
	v.SetDefault("aml.geo_velocity_min_countries", 3)
	v.SetDefault("aml.geo_velocity_window_hours", 48)
	v.SetDefault("aml.profile_volume_multiplier", 2.0)
	v.SetDefault("aml.screening_min_score", 0.8)
	v.SetDefault("aml.screening_timeout_ms", 2000)
	v.SetDefault("aml.alert_score_threshold", 50.0)
	v.SetDefault("aml.alert_dedup_window_minutes", 60)
	v.SetDefault("aml.medium_score_floor", 31.0)
	v.SetDefault("aml.high_score_floor", 61.0)
	v.SetDefault("aml.critical_score_floor", 86.0)

	v.SetDefault("assessment.worker_pool_size", 8)
	v.SetDefault("assessment.entity_timeout_sec", 30)
	v.SetDefault("assessment.var_confidence", 0.95)
	v.SetDefault("assessment.var_horizon_days", 1)
	v.SetDefault("assessment.var_method", "historical")
	v.SetDefault("assessment.monte_carlo_iterations", 10000)
	v.SetDefault("assessment.var_validity_hours", 24)
}
