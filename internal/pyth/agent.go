package pyth

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"golang.org/x/time/rate"
)

// AgentOptions parameterise the Pyth agent JSON-RPC client.
type AgentOptions struct {
	Endpoint          string
	RequestTimeout    time.Duration
	RequestsPerSecond float64
	Burst             int
}

// Agent talks JSON-RPC over websocket to a Pyth agent and caches one full
// account snapshot per RefreshAll call.
type Agent struct {
	opts    AgentOptions
	logger  zerolog.Logger
	limiter *rate.Limiter

	mu       sync.Mutex
	conn     *websocket.Conn
	nextID   uint64
	products []Product
	accounts map[string]map[string]*PriceAccount
}

// NewAgent constructs an agent client.
func NewAgent(opts AgentOptions, logger zerolog.Logger) *Agent {
	if opts.RequestTimeout <= 0 {
		opts.RequestTimeout = 10 * time.Second
	}
	if opts.RequestsPerSecond <= 0 {
		opts.RequestsPerSecond = 5
	}
	if opts.Burst <= 0 {
		opts.Burst = 1
	}

	return &Agent{
		opts:     opts,
		logger:   logger.With().Str("component", "pyth_agent").Logger(),
		limiter:  rate.NewLimiter(rate.Limit(opts.RequestsPerSecond), opts.Burst),
		accounts: make(map[string]map[string]*PriceAccount),
	}
}

// Connect dials the agent endpoint. Safe to call again after a failure.
func (a *Agent) Connect(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.connectLocked(ctx)
}

func (a *Agent) connectLocked(ctx context.Context) error {
	if a.conn != nil {
		return nil
	}
	dialer := websocket.Dialer{HandshakeTimeout: a.opts.RequestTimeout}
	conn, _, err := dialer.DialContext(ctx, a.opts.Endpoint, nil)
	if err != nil {
		return Transient("dial pyth agent", err)
	}
	a.conn = conn
	a.logger.Info().Str("endpoint", a.opts.Endpoint).Msg("connected to pyth agent")
	return nil
}

// Close tears down the websocket connection.
func (a *Agent) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.conn == nil {
		return nil
	}
	err := a.conn.Close()
	a.conn = nil
	return err
}

// RefreshAll fetches the full product and account set in one call and
// replaces the cached snapshot.
func (a *Agent) RefreshAll(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if err := a.connectLocked(ctx); err != nil {
		return err
	}

	var raw []agentProduct
	if err := a.callLocked(ctx, "get_all_products", &raw); err != nil {
		// Force a redial on the next cycle; half-open websockets are not
		// worth distinguishing from closed ones.
		_ = a.conn.Close()
		a.conn = nil
		return Transient("get_all_products", err)
	}

	products := make([]Product, 0, len(raw))
	accounts := make(map[string]map[string]*PriceAccount, len(raw))
	for _, ap := range raw {
		product := ap.toProduct()
		if product.Symbol == "" {
			continue
		}
		products = append(products, product)
		byKey := make(map[string]*PriceAccount, len(ap.PriceAccounts))
		for _, pa := range ap.PriceAccounts {
			byKey[pa.Account] = pa.toPriceAccount()
		}
		accounts[product.Symbol] = byKey
	}

	a.products = products
	a.accounts = accounts
	return nil
}

// ListProducts returns the products from the last snapshot.
func (a *Agent) ListProducts(ctx context.Context) ([]Product, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.products == nil {
		return nil, Transient("list products", fmt.Errorf("no snapshot; refresh first"))
	}
	out := make([]Product, len(a.products))
	copy(out, a.products)
	return out, nil
}

// GetPrices returns the price accounts for one product from the last snapshot.
func (a *Agent) GetPrices(ctx context.Context, product Product) (map[string]*PriceAccount, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	byKey, ok := a.accounts[product.Symbol]
	if !ok {
		return map[string]*PriceAccount{}, nil
	}
	out := make(map[string]*PriceAccount, len(byKey))
	for k, v := range byKey {
		out[k] = v
	}
	return out, nil
}

type rpcRequest struct {
	Jsonrpc string `json:"jsonrpc"`
	Method  string `json:"method"`
	Params  any    `json:"params,omitempty"`
	ID      uint64 `json:"id"`
}

type rpcResponse struct {
	Jsonrpc string          `json:"jsonrpc"`
	Result  json.RawMessage `json:"result"`
	Error   *rpcError       `json:"error"`
	ID      uint64          `json:"id"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *rpcError) Error() string {
	return fmt.Sprintf("agent rpc error %d: %s", e.Code, e.Message)
}

// callLocked performs one request/response exchange. Requests are serialized
// under a.mu, and the agent answers in order, so notifications are the only
// frames that may be interleaved.
func (a *Agent) callLocked(ctx context.Context, method string, result any) error {
	if err := a.limiter.Wait(ctx); err != nil {
		return err
	}

	a.nextID++
	id := a.nextID
	req := rpcRequest{Jsonrpc: "2.0", Method: method, ID: id}

	deadline := time.Now().Add(a.opts.RequestTimeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	_ = a.conn.SetWriteDeadline(deadline)
	if err := a.conn.WriteJSON(req); err != nil {
		return err
	}

	_ = a.conn.SetReadDeadline(deadline)
	for {
		var resp rpcResponse
		if err := a.conn.ReadJSON(&resp); err != nil {
			return err
		}
		if resp.ID != id {
			continue
		}
		if resp.Error != nil {
			return resp.Error
		}
		if result == nil {
			return nil
		}
		return json.Unmarshal(resp.Result, result)
	}
}

// agentProduct mirrors the agent's get_all_products payload.
type agentProduct struct {
	Account       string             `json:"account"`
	AttrDict      map[string]string  `json:"attr_dict"`
	PriceAccounts []agentPriceUpdate `json:"price_accounts"`
}

type agentPriceUpdate struct {
	Account           string                  `json:"account"`
	PriceType         string                  `json:"price_type"`
	PriceExponent     int32                   `json:"price_exponent"`
	Status            string                  `json:"status"`
	Price             int64                   `json:"price"`
	Conf              int64                   `json:"conf"`
	EmaPrice          int64                   `json:"ema_price"`
	EmaConfidence     int64                   `json:"ema_confidence"`
	Slot              uint64                  `json:"slot"`
	ValidSlot         uint64                  `json:"valid_slot"`
	PubSlot           uint64                  `json:"pub_slot"`
	LastSlot          uint64                  `json:"last_slot"`
	MinPublishers     int                     `json:"min_publishers"`
	PublisherAccounts []agentPublisherAccount `json:"publisher_accounts"`
}

type agentPublisherAccount struct {
	Account string `json:"account"`
	Status  string `json:"status"`
	Price   int64  `json:"price"`
	Conf    int64  `json:"conf"`
	Slot    uint64 `json:"slot"`
}

func (p agentProduct) toProduct() Product {
	attrs := p.AttrDict
	if attrs == nil {
		attrs = map[string]string{}
	}
	return Product{Key: p.Account, Symbol: attrs["symbol"], Attrs: attrs}
}

func (u agentPriceUpdate) toPriceAccount() *PriceAccount {
	exp := u.PriceExponent

	slot := u.Slot
	if slot == 0 {
		slot = u.PubSlot
	}
	lastSlot := u.LastSlot
	if lastSlot == 0 {
		lastSlot = slot
	}

	account := &PriceAccount{
		Key:  u.Account,
		Slot: slot,
		Aggregate: PriceInfo{
			Price:      decimal.New(u.Price, exp),
			Confidence: decimal.New(u.Conf, exp),
			Status:     ParseStatus(u.Status),
			Slot:       u.PubSlot,
		},
		Exponent:      exp,
		MinPublishers: u.MinPublishers,
		LastSlot:      lastSlot,
		Derivations: map[EmaKind]int64{
			EmaPrice:      u.EmaPrice,
			EmaConfidence: u.EmaConfidence,
		},
		Components: make([]PriceComponent, 0, len(u.PublisherAccounts)),
	}

	for _, pub := range u.PublisherAccounts {
		info := PriceInfo{
			Price:      decimal.New(pub.Price, exp),
			Confidence: decimal.New(pub.Conf, exp),
			Status:     ParseStatus(pub.Status),
			Slot:       pub.Slot,
		}
		// The agent reports one submission per publisher; it stands in for
		// both the latest view and the last-aggregated view.
		account.Components = append(account.Components, PriceComponent{
			PublisherKey:  pub.Account,
			Latest:        info,
			LastAggregate: info,
		})
	}

	return account
}
