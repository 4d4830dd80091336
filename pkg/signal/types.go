// Package signal turns merged market data and free-text commentary into
// a coarse trading signal. The classification is an ordered keyword
// heuristic, deliberately simple and deterministic.
package signal

import (
	"time"

	"tc.com/crypto-intel/pkg/sources"
)

// SignalType is the directional recommendation of a trading signal.
type SignalType string

const (
	StrongBuy  SignalType = "strong_buy"
	Buy        SignalType = "buy"
	Hold       SignalType = "hold"
	Sell       SignalType = "sell"
	StrongSell SignalType = "strong_sell"
)

// SignalStrength grades how pronounced the recommendation is.
type SignalStrength string

const (
	StrengthWeak       SignalStrength = "weak"
	StrengthModerate   SignalStrength = "moderate"
	StrengthStrong     SignalStrength = "strong"
	StrengthVeryStrong SignalStrength = "very_strong"
)

// TradingSignal is one classification result. Created once per request,
// immutable, never persisted.
type TradingSignal struct {
	Symbol     string         `json:"symbol"`
	Type       SignalType     `json:"type"`
	Strength   SignalStrength `json:"strength"`
	Confidence float64        `json:"confidence"`
	Rationale  string         `json:"rationale"`

	// Indicators and Factors freeze the merged view at classification
	// time for audit.
	Indicators map[string]sources.SignalLabel `json:"indicators"`
	Factors    map[string]string              `json:"factors"`

	Timestamp time.Time `json:"timestamp"`
	Origin    string    `json:"origin"`
}

// IsBuySignal reports whether the signal recommends accumulating.
func (s *TradingSignal) IsBuySignal() bool {
	return s.Type == Buy || s.Type == StrongBuy
}

// IsSellSignal reports whether the signal recommends reducing.
func (s *TradingSignal) IsSellSignal() bool {
	return s.Type == Sell || s.Type == StrongSell
}

// IsHoldSignal reports whether the signal recommends no action.
func (s *TradingSignal) IsHoldSignal() bool {
	return s.Type == Hold
}
