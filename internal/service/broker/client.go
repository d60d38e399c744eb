package broker

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"FinYield/internal/domain/models"
	drepo "FinYield/internal/domain/repository"
	"FinYield/pkg/logger"
)

// Entries requested per subscribed instrument: last, bids, offers, close.
var defaultEntries = []string{"LA", "BI", "OF", "CL"}

// Client implements a MarketStream over the broker's market-data WebSocket.
type Client struct {
	token          string
	websocketURL   string
	market         string
	symbols        []string
	reconnectDelay time.Duration
	pingInterval   time.Duration
	log            *logger.Logger

	mu        sync.Mutex
	conn      *websocket.Conn
	connected bool
}

type Config struct {
	Token          string
	WebSocketURL   string
	Market         string
	Symbols        []string
	ReconnectDelay time.Duration
	PingInterval   time.Duration
}

// New creates a broker MarketStream.
func New(cfg Config, log *logger.Logger) *Client {
	if log == nil {
		log = logger.Nop()
	}
	if cfg.PingInterval <= 0 {
		cfg.PingInterval = 30 * time.Second
	}
	return &Client{
		token:          cfg.Token,
		websocketURL:   cfg.WebSocketURL,
		market:         cfg.Market,
		symbols:        cfg.Symbols,
		reconnectDelay: cfg.ReconnectDelay,
		pingInterval:   cfg.PingInterval,
		log:            log,
	}
}

var _ drepo.MarketStream = (*Client)(nil)

// Connect dials the socket, authenticating with the session token header.
func (c *Client) Connect(ctx context.Context) error {
	header := http.Header{}
	if c.token != "" {
		header.Set("X-Auth-Token", c.token)
	}
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, c.websocketURL, header)
	if err != nil {
		return fmt.Errorf("broker connect: %w", err)
	}
	c.mu.Lock()
	c.conn = conn
	c.connected = true
	c.mu.Unlock()
	c.log.Info("broker connected", logger.String("url", c.websocketURL))
	return nil
}

type product struct {
	Symbol   string `json:"symbol"`
	MarketID string `json:"marketId"`
}

type subscribeMsg struct {
	Type     string    `json:"type"`
	Level    int       `json:"level"`
	Entries  []string  `json:"entries"`
	Products []product `json:"products"`
	Depth    int       `json:"depth"`
}

// Subscribe sends one market-data subscription for all configured symbols.
func (c *Client) Subscribe(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn == nil || !c.connected {
		return fmt.Errorf("broker not connected")
	}
	msg := subscribeMsg{Type: "smd", Level: 1, Entries: defaultEntries, Depth: 1}
	for _, s := range c.symbols {
		msg.Products = append(msg.Products, product{Symbol: s, MarketID: c.market})
	}
	if err := c.conn.WriteJSON(msg); err != nil {
		return fmt.Errorf("subscribe: %w", err)
	}
	c.log.Info("broker subscribed", logger.Int("symbols", len(c.symbols)))
	return nil
}

type priceEntry struct {
	Price *float64 `json:"price"`
	Date  int64    `json:"date"`
}

type mdMessage struct {
	Type         string `json:"type"`
	InstrumentID struct {
		Symbol string `json:"symbol"`
	} `json:"instrumentId"`
	MarketData struct {
		LA *priceEntry     `json:"LA"`
		BI []priceEntry    `json:"BI"`
		OF []priceEntry    `json:"OF"`
		CL json.RawMessage `json:"CL"`
	} `json:"marketData"`
}

// Read streams market-data updates and errors until ctx ends or the
// socket fails.
func (c *Client) Read(ctx context.Context) (<-chan *models.MarketData, <-chan error) {
	out := make(chan *models.MarketData, 1024)
	errs := make(chan error, 1)

	go func() {
		ticker := time.NewTicker(c.pingInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				c.mu.Lock()
				if c.conn != nil {
					_ = c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(5*time.Second))
				}
				c.mu.Unlock()
			}
		}
	}()

	go func() {
		defer close(out)
		defer close(errs)
		for {
			if ctx.Err() != nil {
				return
			}
			c.mu.Lock()
			conn := c.conn
			c.mu.Unlock()
			if conn == nil {
				errs <- fmt.Errorf("broker conn nil")
				return
			}
			_, b, err := conn.ReadMessage()
			if err != nil {
				if ctx.Err() == nil {
					errs <- fmt.Errorf("broker read: %w", err)
				}
				return
			}
			md, ok := ParseMarketData(b, time.Now().UTC())
			if !ok {
				continue
			}
			select {
			case out <- md:
			default:
				// drop on backpressure
			}
		}
	}()

	return out, errs
}

// ParseMarketData decodes one "Md" frame. Frames without a symbol or a
// last price are ignored.
func ParseMarketData(b []byte, now time.Time) (*models.MarketData, bool) {
	var m mdMessage
	if err := json.Unmarshal(b, &m); err != nil {
		return nil, false
	}
	if m.Type != "" && !strings.EqualFold(m.Type, "md") {
		return nil, false
	}
	if m.InstrumentID.Symbol == "" || m.MarketData.LA == nil || m.MarketData.LA.Price == nil {
		return nil, false
	}
	md := &models.MarketData{
		Symbol: ExtractTicker(m.InstrumentID.Symbol),
		Last:   *m.MarketData.LA.Price,
		Close:  parseClose(m.MarketData.CL),
		Time:   now,
	}
	if len(m.MarketData.BI) > 0 && m.MarketData.BI[0].Price != nil {
		md.Bid = *m.MarketData.BI[0].Price
	}
	if len(m.MarketData.OF) > 0 && m.MarketData.OF[0].Price != nil {
		md.Ask = *m.MarketData.OF[0].Price
	}
	return md, true
}

// CL arrives either as a price entry or as a bare number.
func parseClose(raw json.RawMessage) float64 {
	if len(raw) == 0 {
		return 0
	}
	var e priceEntry
	if err := json.Unmarshal(raw, &e); err == nil && e.Price != nil {
		return *e.Price
	}
	var f float64
	if err := json.Unmarshal(raw, &f); err == nil {
		return f
	}
	return 0
}

// ExtractTicker maps "MERV - XMEV - AL30 - 24hs" to "AL30"; plain symbols
// are returned trimmed.
func ExtractTicker(full string) string {
	s := strings.TrimSpace(full)
	parts := strings.Split(s, " - ")
	if len(parts) >= 3 {
		if p := strings.TrimSpace(parts[2]); p != "" {
			return p
		}
	}
	if p := strings.TrimSpace(parts[0]); p != "" {
		return p
	}
	return s
}

// Reconnect closes, waits the reconnect delay and subscribes again.
func (c *Client) Reconnect(ctx context.Context) error {
	_ = c.Close()
	select {
	case <-time.After(c.reconnectDelay):
	case <-ctx.Done():
		return ctx.Err()
	}
	if err := c.Connect(ctx); err != nil {
		return err
	}
	return c.Subscribe(ctx)
}

func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.connected = false
	if c.conn != nil {
		err := c.conn.Close()
		c.conn = nil
		return err
	}
	return nil
}

func (c *Client) IsConnected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connected
}
