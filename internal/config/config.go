package config

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/caarlos0/env/v11"
	"github.com/cloudwego/eino-ext/components/model/ark"
	"github.com/cloudwego/eino/components/model"

	"github.com/zhouzirui/chatwidget/internal/model/chat"
)

// DefaultAPIBase 是未配置后端地址时使用的占位主机。
const DefaultAPIBase = "https://your-api-domain.example.com"

// DefaultFallbackText 在回复缺少 response_text 时展示。
const DefaultFallbackText = "Sorry, something went wrong."

// Config 聚合整个服务的配置项。
type Config struct {
	Server ServerConfig
	Widget WidgetConfig
	AI     AIConfig
	Clinic ClinicConfig
}

// Load 从环境变量加载配置。
func Load() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse environment: %w", err)
	}

	addr, err := normalizeAddr(cfg.Server.Port)
	if err != nil {
		return nil, err
	}
	cfg.Server.Addr = addr

	widgetAddr, err := normalizeAddr(cfg.Server.WidgetPort)
	if err != nil {
		return nil, err
	}
	cfg.Server.WidgetAddr = widgetAddr

	if err := cfg.Widget.Validate(); err != nil {
		return nil, err
	}

	if err := cfg.Clinic.validate(); err != nil {
		return nil, err
	}

	if err := cfg.AI.loadOptional(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// ServerConfig 描述 HTTP 服务配置。API 与挂件服务各自监听一个端口。
type ServerConfig struct {
	Port       string `env:"PORT" envDefault:"8080"`
	Addr       string
	WidgetPort string `env:"WIDGET_PORT" envDefault:"8090"`
	WidgetAddr string
}

// normalizeAddr 解析服务器监听地址。
func normalizeAddr(port string) (string, error) {
	port = strings.TrimSpace(port)
	if port == "" {
		port = "8080"
	}

	if strings.Contains(port, ":") {
		// 允许用户直接传入 ":8080" 或 "127.0.0.1:8080"。
		return port, nil
	}

	if strings.Contains(port, " ") {
		return "", fmt.Errorf("invalid PORT value: %q", port)
	}

	return ":" + port, nil
}

// WidgetConfig 描述聊天挂件访问后端的方式。
type WidgetConfig struct {
	APIBase          string        `env:"CHAT_API_BASE" envDefault:"https://your-api-domain.example.com"`
	Channel          string        `env:"CHAT_CHANNEL" envDefault:"web"`
	ConsentToContact bool          `env:"CHAT_CONSENT_TO_CONTACT" envDefault:"false"`
	RequestTimeout   time.Duration `env:"CHAT_REQUEST_TIMEOUT" envDefault:"30s"`
	FallbackText     string        `env:"CHAT_FALLBACK_TEXT" envDefault:"Sorry, something went wrong."`
}

// Defaults 返回不依赖环境变量的挂件配置。
func Defaults() WidgetConfig {
	return WidgetConfig{
		APIBase:        DefaultAPIBase,
		Channel:        "web",
		RequestTimeout: 30 * time.Second,
		FallbackText:   DefaultFallbackText,
	}
}

// Validate 检查后端地址、渠道与超时；命令行覆盖配置后需要再次调用。
func (c WidgetConfig) Validate() error {
	base := strings.TrimSpace(c.APIBase)
	if !strings.HasPrefix(base, "http://") && !strings.HasPrefix(base, "https://") {
		return fmt.Errorf("invalid CHAT_API_BASE value %q: must start with http:// or https://", c.APIBase)
	}
	if !chat.Channel(c.Channel).Valid() {
		return fmt.Errorf("invalid CHAT_CHANNEL value %q", c.Channel)
	}
	if c.RequestTimeout < 0 {
		return fmt.Errorf("invalid CHAT_REQUEST_TIMEOUT value %q", c.RequestTimeout)
	}
	return nil
}

// AIConfig 描述大模型相关配置。
type AIConfig struct {
	APIKey       string `env:"ARK_API_KEY"`
	AccessKey    string `env:"ARK_ACCESS_KEY"`
	SecretKey    string `env:"ARK_SECRET_KEY"`
	Model        string `env:"Model"`
	BaseURL      string `env:"ARK_BASE_URL" envDefault:"https://ark.cn-beijing.volces.com/api/v3"`
	Region       string `env:"ARK_REGION" envDefault:"cn-beijing"`
	HistoryLimit int    `env:"CHAT_HISTORY_LIMIT" envDefault:"10"`
	Temperature  *float64
	TopP         *float64
	MaxTokens    *int
}

// Enabled 表示是否提供了必需的密钥。
func (c AIConfig) Enabled() bool {
	return c.Model != "" && (c.APIKey != "" || (c.AccessKey != "" && c.SecretKey != ""))
}

// NewChatModel 使用配置创建一个模型实例。
func (c AIConfig) NewChatModel(ctx context.Context) (model.ChatModel, error) {
	if !c.Enabled() {
		return nil, fmt.Errorf("Ark 凭证或模型配置缺失，至少提供 ARK_API_KEY + Model 或 AK/SK 组合")
	}

	var temperature *float32
	if c.Temperature != nil {
		val := float32(*c.Temperature)
		temperature = &val
	}

	var topP *float32
	if c.TopP != nil {
		val := float32(*c.TopP)
		topP = &val
	}

	cfg := &ark.ChatModelConfig{
		BaseURL:     c.BaseURL,
		Region:      c.Region,
		APIKey:      c.APIKey,
		AccessKey:   c.AccessKey,
		SecretKey:   c.SecretKey,
		Model:       c.Model,
		MaxTokens:   c.MaxTokens,
		Temperature: temperature,
		TopP:        topP,
	}

	return ark.NewChatModel(ctx, cfg)
}

// loadOptional 解析可选的采样参数，未设置时保持 nil。
func (c *AIConfig) loadOptional() error {
	temperature, err := parseOptionalFloatEnv("ARK_TEMPERATURE")
	if err != nil {
		return err
	}

	topP, err := parseOptionalFloatEnv("ARK_TOP_P")
	if err != nil {
		return err
	}

	maxTokens, err := parseOptionalIntEnv("ARK_MAX_TOKENS")
	if err != nil {
		return err
	}

	c.Temperature = temperature
	c.TopP = topP
	c.MaxTokens = maxTokens
	if c.HistoryLimit < 1 {
		c.HistoryLimit = 1
	}
	return nil
}

// ClinicConfig 提供确定性回复所需的诊所信息以及营业时间。
type ClinicConfig struct {
	BusinessHours       string `env:"CLINIC_BUSINESS_HOURS" envDefault:"Monday-Friday 9:00 AM-4:00 PM ET."`
	Phone               string `env:"CLINIC_PHONE" envDefault:"(864) 555-0100"`
	Address             string `env:"CLINIC_ADDRESS" envDefault:"100 Main Street, Greenville, SC"`
	EmergencyDisclaimer string `env:"CLINIC_EMERGENCY_DISCLAIMER" envDefault:"If this is urgent or severe, call 911 or seek immediate care."`
	Timezone            string `env:"CLINIC_TIMEZONE" envDefault:"America/New_York"`
	OpenHour            int    `env:"CLINIC_OPEN_HOUR" envDefault:"9"`
	CloseHour           int    `env:"CLINIC_CLOSE_HOUR" envDefault:"16"`
}

func (c ClinicConfig) validate() error {
	if _, err := time.LoadLocation(c.Timezone); err != nil {
		return fmt.Errorf("invalid CLINIC_TIMEZONE value %q: %w", c.Timezone, err)
	}
	if c.OpenHour < 0 || c.CloseHour > 24 || c.OpenHour >= c.CloseHour {
		return fmt.Errorf("invalid clinic hours %d-%d: need 0 <= CLINIC_OPEN_HOUR < CLINIC_CLOSE_HOUR <= 24", c.OpenHour, c.CloseHour)
	}
	return nil
}

// IsOpen 判断 t 是否落在诊所时区的工作日营业时间内（周一至周五）。
// 时区无法解析时按 UTC 计算。
func (c ClinicConfig) IsOpen(t time.Time) bool {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		loc = time.UTC
	}

	local := t.In(loc)
	if local.Weekday() == time.Saturday || local.Weekday() == time.Sunday {
		return false
	}
	return local.Hour() >= c.OpenHour && local.Hour() < c.CloseHour
}

func parseOptionalFloatEnv(key string) (*float64, error) {
	raw, ok := os.LookupEnv(key)
	if !ok {
		return nil, nil
	}

	value := strings.TrimSpace(raw)
	if value == "" {
		return nil, nil
	}

	val, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid %s value %q: %w", key, value, err)
	}
	return &val, nil
}

func parseOptionalIntEnv(key string) (*int, error) {
	raw, ok := os.LookupEnv(key)
	if !ok {
		return nil, nil
	}

	value := strings.TrimSpace(raw)
	if value == "" {
		return nil, nil
	}

	val, err := strconv.Atoi(value)
	if err != nil {
		return nil, fmt.Errorf("invalid %s value %q: %w", key, value, err)
	}
	return &val, nil
}
