package openai

import (
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/joseph-ayodele/invoice-vouchers/internal/logger"
)

// Config for the OpenAI client.
type Config struct {
	APIKey  string
	BaseURL string // default https://api.openai.com/v1
	Model   string // e.g. "gpt-4o-mini"
	Timeout time.Duration
}

// Client implements llm.Completer against an OpenAI-compatible
// chat/completions endpoint.
type Client struct {
	cfg        Config
	httpClient *http.Client
	log        *zap.SugaredLogger
}

func NewClient(cfg Config, log *zap.SugaredLogger) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.openai.com/v1"
	}
	if cfg.Model == "" {
		cfg.Model = "gpt-4o-mini"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 45 * time.Second
	}
	return &Client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		log:        logger.OrNop(log),
	}
}
