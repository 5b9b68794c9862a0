package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/dgnsrekt/optionbook/internal/greeks"
	"github.com/dgnsrekt/optionbook/internal/market"
	"github.com/dgnsrekt/optionbook/internal/orderbook"
	"github.com/dgnsrekt/optionbook/internal/ws"
)

type Server struct {
	store   *market.Store
	refresh *RefreshManager
	pricer  *greeks.Pricer
	feeds   orderbook.Feeds
	hub     *ws.Hub
	logger  *zap.Logger
}

// NewServer wires the handlers. hub may be nil when websockets are disabled.
func NewServer(store *market.Store, refresh *RefreshManager, pricer *greeks.Pricer, feeds orderbook.Feeds, hub *ws.Hub, logger *zap.Logger) *Server {
	return &Server{
		store:   store,
		refresh: refresh,
		pricer:  pricer,
		feeds:   feeds,
		hub:     hub,
		logger:  logger,
	}
}

type errorResponse struct {
	Error string `json:"error"`
}

type healthResponse struct {
	Status    string        `json:"status"`
	Ready     bool          `json:"ready"`
	FetchedAt *time.Time    `json:"fetchedAt"`
	Orders    int           `json:"orders"`
	WSClients int           `json:"wsClients"`
	Params    greeks.Params `json:"params"`
}

type marketQuote struct {
	Asset orderbook.Asset `json:"asset"`
	Spot  float64         `json:"spot"`
}

type marketsResponse struct {
	FetchedAt time.Time     `json:"fetchedAt"`
	Markets   []marketQuote `json:"markets"`
}

type expiriesResponse struct {
	Asset    orderbook.Asset `json:"asset"`
	Expiries []market.Expiry `json:"expiries"`
}

type orderView struct {
	Maker                string           `json:"maker"`
	Product              greeks.Structure `json:"product"`
	Side                 string           `json:"side"`
	IsCall               bool             `json:"isCall"`
	Strikes              []float64        `json:"strikes"`
	Expiry               int64            `json:"expiry"`
	ExpiryLabel          string           `json:"expiryLabel"`
	PriceUSD             float64          `json:"priceUsd"`
	CollateralUSDC       float64          `json:"collateralUsdc"`
	NumContracts         string           `json:"numContracts"`
	OrderExpiryTimestamp int64            `json:"orderExpiryTimestamp"`
	Description          string           `json:"description"`
}

type ordersResponse struct {
	Asset  orderbook.Asset `json:"asset"`
	Count  int             `json:"count"`
	Orders []orderView     `json:"orders"`
}

type greeksRequest struct {
	Spot         float64   `json:"spot"`
	Strikes      []float64 `json:"strikes"`
	Expiry       int64     `json:"expiry"`
	IsCall       *bool     `json:"isCall"`
	Volatility   *float64  `json:"volatility"`
	RiskFreeRate *float64  `json:"riskFreeRate"`
}

type greeksResponse struct {
	Structure    greeks.Structure `json:"structure"`
	Defined      bool             `json:"defined"`
	Reason       string           `json:"reason,omitempty"`
	TimeToExpiry float64          `json:"timeToExpiry"`
	Params       greeks.Params    `json:"params"`
	Greeks       greeks.Greeks    `json:"greeks"`
}

type refreshResponse struct {
	FetchedAt time.Time `json:"fetchedAt"`
	Orders    int       `json:"orders"`
	Duration  string    `json:"duration"`
}

// snapshot writes 503 and returns nil until the first refresh succeeds.
func (s *Server) snapshot(w http.ResponseWriter) *market.Snapshot {
	snap, err := s.store.Snapshot()
	if err != nil {
		writeError(w, http.StatusServiceUnavailable, err.Error())
		return nil
	}
	return snap
}

// GetHealth handles GET /api/health
func (s *Server) GetHealth(w http.ResponseWriter, r *http.Request) {
	resp := healthResponse{
		Status: "ok",
		Params: s.pricer.Params(),
	}
	if snap, err := s.store.Snapshot(); err == nil {
		resp.Ready = true
		resp.FetchedAt = ptr(snap.FetchedAt)
		resp.Orders = len(snap.Orders)
	} else {
		resp.Status = "loading"
	}
	if s.hub != nil {
		resp.WSClients = s.hub.ClientCount()
	}
	writeJSON(w, http.StatusOK, resp)
}

// GetMarkets handles GET /api/markets
func (s *Server) GetMarkets(w http.ResponseWriter, r *http.Request) {
	snap := s.snapshot(w)
	if snap == nil {
		return
	}

	markets := make([]marketQuote, 0, len(orderbook.Assets()))
	for _, a := range orderbook.Assets() {
		markets = append(markets, marketQuote{Asset: a, Spot: snap.Market.Spot(a)})
	}
	writeJSON(w, http.StatusOK, marketsResponse{FetchedAt: snap.FetchedAt, Markets: markets})
}

// GetExpiries handles GET /api/expiries/{asset}
func (s *Server) GetExpiries(w http.ResponseWriter, r *http.Request) {
	asset, err := orderbook.ParseAsset(chi.URLParam(r, "asset"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	snap := s.snapshot(w)
	if snap == nil {
		return
	}

	writeJSON(w, http.StatusOK, expiriesResponse{Asset: asset, Expiries: snap.Expiries(s.feeds, asset)})
}

// GetChain handles GET /api/chain/{asset}?product=&expiry=
func (s *Server) GetChain(w http.ResponseWriter, r *http.Request) {
	asset, err := orderbook.ParseAsset(chi.URLParam(r, "asset"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	product := greeks.Vanilla
	if p := r.URL.Query().Get("product"); p != "" {
		if product, err = greeks.ParseStructure(p); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
	}

	snap := s.snapshot(w)
	if snap == nil {
		return
	}

	expiry, err := snap.ResolveExpiry(s.feeds, asset, r.URL.Query().Get("expiry"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	view := snap.ChainView(s.feeds, s.pricer, asset, product, expiry)
	s.logger.Debug("chain built",
		zap.String("asset", string(asset)),
		zap.Stringer("product", product),
		zap.String("expiry", view.ExpiryLabel),
		zap.Int("rows", len(view.Chain.Rows)),
	)
	writeJSON(w, http.StatusOK, view)
}

// GetOrders handles GET /api/orders/{asset}?product=&expiry=
func (s *Server) GetOrders(w http.ResponseWriter, r *http.Request) {
	asset, err := orderbook.ParseAsset(chi.URLParam(r, "asset"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	products := greeks.Structures()
	if p := r.URL.Query().Get("product"); p != "" {
		product, err := greeks.ParseStructure(p)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		products = []greeks.Structure{product}
	}

	snap := s.snapshot(w)
	if snap == nil {
		return
	}

	var expiry int64
	if e := r.URL.Query().Get("expiry"); e != "" {
		if expiry, err = snap.ResolveExpiry(s.feeds, asset, e); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
	}

	views := []orderView{}
	for _, product := range products {
		for _, so := range orderbook.Filter(snap.Orders, s.feeds, asset, product, expiry) {
			views = append(views, newOrderView(so.Order, product))
		}
	}

	writeJSON(w, http.StatusOK, ordersResponse{Asset: asset, Count: len(views), Orders: views})
}

func newOrderView(o orderbook.Order, product greeks.Structure) orderView {
	return orderView{
		Maker:                o.Maker,
		Product:              product,
		Side:                 o.Side(),
		IsCall:               o.IsCall,
		Strikes:              o.StrikePrices(),
		Expiry:               o.Expiry,
		ExpiryLabel:          orderbook.ExpiryLabel(o.Expiry),
		PriceUSD:             o.PriceUSD(),
		CollateralUSDC:       o.CollateralUSDC(),
		NumContracts:         o.NumContracts.String(),
		OrderExpiryTimestamp: o.OrderExpiryTimestamp,
		Description:          o.String(),
	}
}

// ComputeGreeks handles POST /api/greeks
func (s *Server) ComputeGreeks(w http.ResponseWriter, r *http.Request) {
	var req greeksRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid request body: %v", err))
		return
	}

	pricer := s.pricer
	params := pricer.Params()
	if req.Volatility != nil || req.RiskFreeRate != nil {
		if req.Volatility != nil {
			params.Volatility = *req.Volatility
		}
		if req.RiskFreeRate != nil {
			params.RiskFreeRate = *req.RiskFreeRate
		}
		pricer = greeks.NewPricer(params)
	}

	isCall := true
	if req.IsCall != nil {
		isCall = *req.IsCall
	}

	g, err := pricer.Evaluate(greeks.Inputs{
		Spot:    req.Spot,
		Strikes: req.Strikes,
		Expiry:  req.Expiry,
		IsCall:  isCall,
	})

	resp := greeksResponse{
		Structure:    greeks.StructureForLegs(len(req.Strikes)),
		Defined:      err == nil,
		TimeToExpiry: greeks.TimeToExpiry(req.Expiry, time.Now()),
		Params:       params,
		Greeks:       g,
	}
	if err != nil {
		resp.Reason = err.Error()
		if !errors.Is(err, greeks.ErrUnsupportedStructure) && !errors.Is(err, greeks.ErrUndefined) {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
	}

	writeJSON(w, http.StatusOK, resp)
}

// Refresh handles POST /api/refresh
func (s *Server) Refresh(w http.ResponseWriter, r *http.Request) {
	result, err := s.refresh.Refresh(r.Context())
	if err != nil {
		if errors.Is(err, ErrRefreshInProgress) {
			writeError(w, http.StatusConflict, err.Error())
			return
		}
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, refreshResponse{
		FetchedAt: result.Snapshot.FetchedAt,
		Orders:    len(result.Snapshot.Orders),
		Duration:  result.Duration.Round(time.Millisecond).String(),
	})
}

func ptr[T any](v T) *T { return &v }
