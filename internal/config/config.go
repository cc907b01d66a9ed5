package config

import (
	"log"
	"time"

	"github.com/caarlos0/env/v6"
)

type LLMProvider string

const (
	ProviderOpenAI LLMProvider = "openai"
	ProviderYandex LLMProvider = "yandex"
)

type DeliveryChannel string

const (
	ChannelWhatsApp DeliveryChannel = "whatsapp"
	ChannelTelegram DeliveryChannel = "telegram"
)

type Config struct {
	Port    int    `env:"PORT" envDefault:"8000"`
	BaseURL string `env:"BASE_URL" envDefault:"http://localhost:8000"`

	// Persistence
	MongoURI string `env:"MONGODB_URI" envDefault:"mongodb://localhost:27017"`
	MongoDB  string `env:"MONGODB_DB" envDefault:"clinic_intake"`

	// Identity hashing
	PhoneHashSalt string `env:"PHONE_HASH_SALT,required"`

	// LLM settings (answer validation / question rephrasing)
	LLMProvider      LLMProvider `env:"LLM_PROVIDER" envDefault:"openai"`
	OpenAIAPIKey     string      `env:"OPENAI_API_KEY"`
	OpenAIBaseURL    string      `env:"OPENAI_BASE_URL"`
	OpenAIModel      string      `env:"OPENAI_MODEL" envDefault:"gpt-4o-mini"`
	YandexOAuthToken string      `env:"YANDEX_OAUTH_TOKEN"`
	YandexFolderID   string      `env:"YANDEX_FOLDER_ID"`

	// OpenRouter (optional)
	OpenRouterReferrer string `env:"OPENROUTER_REFERRER"`
	OpenRouterTitle    string `env:"OPENROUTER_TITLE"`

	// Delivery channel
	DeliveryChannel       DeliveryChannel `env:"DELIVERY_CHANNEL" envDefault:"whatsapp"`
	WhatsAppAccessToken   string          `env:"WHATSAPP_ACCESS_TOKEN"`
	WhatsAppPhoneNumberID string          `env:"WHATSAPP_PHONE_NUMBER_ID"`
	WhatsAppVerifyToken   string          `env:"WHATSAPP_VERIFY_TOKEN"`
	TelegramBotToken      string          `env:"TELEGRAM_BOT_TOKEN"`

	// Conversation engine
	SessionTimeout    time.Duration `env:"SESSION_TIMEOUT" envDefault:"30m"`
	ValidationTimeout time.Duration `env:"VALIDATION_TIMEOUT" envDefault:"15s"`
	DeliveryTimeout   time.Duration `env:"DELIVERY_TIMEOUT" envDefault:"10s"`
}

func New() *Config {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		log.Fatalf("failed to parse config: %v", err)
	}
	return cfg
}
