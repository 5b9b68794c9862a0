package ws

import (
	"context"
	"encoding/json"
	"time"

	"go.uber.org/zap"

	"github.com/dgnsrekt/optionbook/internal/greeks"
	"github.com/dgnsrekt/optionbook/internal/market"
	"github.com/dgnsrekt/optionbook/internal/orderbook"
)

// ChainStreamer pushes each active group's chain on every store update and
// on a fixed interval.
type ChainStreamer struct {
	hub      *Hub
	store    *market.Store
	pricer   *greeks.Pricer
	feeds    orderbook.Feeds
	encoder  *Encoder
	interval time.Duration
	updates  chan struct{}
	logger   *zap.Logger
}

// NewChainStreamer creates a new ChainStreamer.
func NewChainStreamer(hub *Hub, store *market.Store, pricer *greeks.Pricer, feeds orderbook.Feeds, interval time.Duration, logger *zap.Logger) (*ChainStreamer, error) {
	enc, err := NewEncoder()
	if err != nil {
		return nil, err
	}

	return &ChainStreamer{
		hub:      hub,
		store:    store,
		pricer:   pricer,
		feeds:    feeds,
		encoder:  enc,
		interval: interval,
		updates:  make(chan struct{}, 1),
		logger:   logger,
	}, nil
}

// OnSnapshot is a market.Listener. It never blocks the poller.
func (s *ChainStreamer) OnSnapshot(*market.Snapshot) {
	select {
	case s.updates <- struct{}{}:
	default:
	}
}

// Run starts the streaming loop. Call in a goroutine.
// Returns when context is cancelled.
func (s *ChainStreamer) Run(ctx context.Context) {
	defer s.encoder.Close()

	// Align first tick to top of second for predictable timing
	now := time.Now()
	nextSecond := now.Truncate(time.Second).Add(time.Second)
	select {
	case <-ctx.Done():
		s.logger.Info("chain streamer cancelled during alignment")
		return
	case <-time.After(time.Until(nextSecond)):
	}

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.logger.Info("chain streamer started", zap.Duration("interval", s.interval))

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("chain streamer stopping")
			return

		case <-ticker.C:
			s.broadcastAll()

		case <-s.updates:
			s.broadcastAll()

		case group := <-s.hub.Joined():
			s.broadcastGroup(group)
		}
	}
}

// broadcastAll pushes the current chain to every active group.
func (s *ChainStreamer) broadcastAll() {
	for _, group := range s.hub.GetActiveGroups() {
		s.broadcastGroup(group)
	}
}

func (s *ChainStreamer) broadcastGroup(group string) {
	jsonMsg, binaryMsg, err := s.buildMessages(group)
	if err != nil {
		s.logger.Debug("skipping group",
			zap.String("group", group),
			zap.Error(err),
		)
		return
	}

	s.hub.BroadcastData(group, jsonMsg, binaryMsg)

	s.logger.Debug("broadcast chain",
		zap.String("group", group),
		zap.Int("jsonSize", len(jsonMsg)),
		zap.Int("encodedSize", len(binaryMsg)),
	)
}

// buildMessages renders a group's chain in both wire forms.
func (s *ChainStreamer) buildMessages(group string) ([]byte, []byte, error) {
	g, err := ParseGroup(group)
	if err != nil {
		return nil, nil, err
	}

	snap, err := s.store.Snapshot()
	if err != nil {
		return nil, nil, err
	}

	expiry, err := snap.ResolveExpiry(s.feeds, g.Asset, g.ExpiryLabel)
	if err != nil {
		return nil, nil, err
	}

	payload, err := json.Marshal(snap.ChainView(s.feeds, s.pricer, g.Asset, g.Product, expiry))
	if err != nil {
		return nil, nil, err
	}

	jsonMsg := buildDataMessage(group, payload)
	binaryMsg, err := s.encoder.Encode(jsonMsg)
	if err != nil {
		return nil, nil, err
	}
	return jsonMsg, binaryMsg, nil
}
