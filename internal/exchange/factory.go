package exchange

import (
	"fmt"
	"strings"
	"time"

	"liquidator/pkg/ratelimit"
	"liquidator/pkg/retry"
)

// Имена сервисов шлюза (метки метрик и ошибок)
const (
	ServiceLedger = "ledger"
	ServiceVenue  = "venue"
)

// GatewayConfig - параметры подключения к шлюзу
type GatewayConfig struct {
	URL            string
	GroupAddress   string
	DexProgramID   string
	RequestTimeout time.Duration
	MaxRetries     int
	ReadRateLimit  float64
	WriteRateLimit float64
	Observer       CallObserver
}

// Gateway - пара клиентов с общим пулом соединений и лимитами
type Gateway struct {
	Ledger *LedgerClient
	Venue  *VenueClient
	http   *HTTPClient
}

// NewGateway создаёт клиентов леджера и площадки
//
// Леджер обслуживается по пути /ledger, площадка по /venue.
func NewGateway(cfg GatewayConfig, keypair *Keypair) (*Gateway, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("gateway url is empty")
	}
	if keypair == nil {
		return nil, fmt.Errorf("keypair is required")
	}

	httpCfg := DefaultHTTPClientConfig()
	if cfg.RequestTimeout > 0 {
		httpCfg.TotalTimeout = cfg.RequestTimeout
		if httpCfg.ReadTimeout > cfg.RequestTimeout {
			httpCfg.ReadTimeout = cfg.RequestTimeout
		}
	}
	httpClient := NewHTTPClient(httpCfg)

	limiter := ratelimit.NewMultiLimiter()
	if cfg.ReadRateLimit > 0 {
		limiter.Add(ratelimit.CategoryRead, cfg.ReadRateLimit, cfg.ReadRateLimit*2)
	}
	if cfg.WriteRateLimit > 0 {
		limiter.Add(ratelimit.CategoryWrite, cfg.WriteRateLimit, cfg.WriteRateLimit)
	}

	retryCfg := retry.DefaultConfig()
	if cfg.MaxRetries > 0 {
		retryCfg.MaxRetries = cfg.MaxRetries
	}

	base := strings.TrimRight(cfg.URL, "/")
	owner := keypair.PublicKey()

	return &Gateway{
		Ledger: &LedgerClient{
			rpc:        newRPCClient(ServiceLedger, base+"/ledger", httpClient, limiter, retryCfg, cfg.Observer, keypair),
			group:      cfg.GroupAddress,
			liquidator: owner,
			now:        time.Now,
		},
		Venue: &VenueClient{
			rpc:          newRPCClient(ServiceVenue, base+"/venue", httpClient, limiter, retryCfg, cfg.Observer, keypair),
			group:        cfg.GroupAddress,
			owner:        owner,
			dexProgramID: cfg.DexProgramID,
			now:          time.Now,
		},
		http: httpClient,
	}, nil
}

// Close закрывает соединения с шлюзом
func (g *Gateway) Close() {
	g.http.Close()
}
