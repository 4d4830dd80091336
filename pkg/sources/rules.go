package sources

import "github.com/shopspring/decimal"

// Each provider owns a static table mapping indicator name to a pure
// classification rule. The same indicator name may carry different
// thresholds on different providers (technical vs. on-chain vs. DeFi
// semantics); that is intentional and the tables stay adapter-local.

// SignalRule derives a signal label from an indicator value. Rules must
// be pure functions of the value.
type SignalRule func(value decimal.Decimal) SignalLabel

// RuleTable maps canonical indicator names to their classification rules.
type RuleTable map[string]SignalRule

// Apply classifies a value by indicator name. Unknown names are neutral;
// a rule table never fabricates a directional call it has no rule for.
func (t RuleTable) Apply(name string, value decimal.Decimal) SignalLabel {
	if rule, ok := t[name]; ok {
		return rule(value)
	}
	return SignalNeutral
}

// OverboughtRule flags values above hi as bearish and below lo as
// bullish (RSI-style oscillators, valuation ratios).
func OverboughtRule(hi, lo float64) SignalRule {
	hiD := decimal.NewFromFloat(hi)
	loD := decimal.NewFromFloat(lo)
	return func(v decimal.Decimal) SignalLabel {
		switch {
		case v.GreaterThan(hiD):
			return SignalBearish
		case v.LessThan(loD):
			return SignalBullish
		default:
			return SignalNeutral
		}
	}
}

// GrowthRule flags values above hi as bullish and below lo as bearish
// (TVL, volume and other bigger-is-better metrics).
func GrowthRule(hi, lo float64) SignalRule {
	hiD := decimal.NewFromFloat(hi)
	loD := decimal.NewFromFloat(lo)
	return func(v decimal.Decimal) SignalLabel {
		switch {
		case v.GreaterThan(hiD):
			return SignalBullish
		case v.LessThan(loD):
			return SignalBearish
		default:
			return SignalNeutral
		}
	}
}

// PositiveRule is bullish for positive values, bearish otherwise
// (MACD line, moving-average deltas).
func PositiveRule() SignalRule {
	return func(v decimal.Decimal) SignalLabel {
		if v.IsPositive() {
			return SignalBullish
		}
		return SignalBearish
	}
}

// NegativeRule is the inversion of PositiveRule (exchange inflow style
// metrics where negative flow is the bullish case).
func NegativeRule() SignalRule {
	return func(v decimal.Decimal) SignalLabel {
		if v.IsPositive() {
			return SignalBearish
		}
		return SignalBullish
	}
}

// ConstantRule always returns the same label regardless of value
// (band boundaries like BB.upper / BB.lower).
func ConstantRule(label SignalLabel) SignalRule {
	return func(decimal.Decimal) SignalLabel {
		return label
	}
}
