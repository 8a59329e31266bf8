package domain

import (
	"encoding/json"
	"time"
)

// Trade represents a single journal entry. Exit fields are nil while the trade is open
// and are set together, exactly once, when it closes.
type Trade struct {
	ID         string    `json:"id"`
	Symbol     string    `json:"symbol"`
	Side       Side      `json:"side"`
	Quantity   float64   `json:"quantity"`
	LotSize    float64   `json:"lot_size"`
	EntryPrice float64   `json:"entry_price"`
	StopLoss   float64   `json:"stop_loss"`
	TakeProfit float64   `json:"take_profit"`
	EntryTime  time.Time `json:"entry_time"`
	Fees       float64   `json:"fees"`

	ExitPrice  *float64    `json:"exit_price"`
	ExitTime   *time.Time  `json:"exit_time"`
	PnL        *float64    `json:"pnl"`
	ExitReason *ExitReason `json:"exit_reason"`

	Notes          string    `json:"notes,omitempty"`
	Checklist      Checklist `json:"checklist_data"`
	ChecklistScore *int      `json:"checklist_score"`
	ChecklistGrade *Grade    `json:"checklist_grade"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Checklist holds the six fixed trade-quality criteria.
type Checklist struct {
	AsianSession   bool `json:"asianSession"`
	OpenLine       bool `json:"openLine"`
	Fibo62         bool `json:"fibo62"`
	AverageLine    bool `json:"averageLine"`
	MovingAverage3 bool `json:"movingAverage3"`
	MovingAverage4 bool `json:"movingAverage4"`
}

// ChecklistCriteria is the number of criteria in a Checklist.
const ChecklistCriteria = 6

// Checked returns how many criteria are set.
func (c Checklist) Checked() int {
	n := 0
	for _, v := range []bool{c.AsianSession, c.OpenLine, c.Fibo62, c.AverageLine, c.MovingAverage3, c.MovingAverage4} {
		if v {
			n++
		}
	}
	return n
}

// ExitUpdate is the set of fields written when a trade closes.
type ExitUpdate struct {
	ExitPrice  float64    `json:"exit_price"`
	ExitTime   time.Time  `json:"exit_time"`
	PnL        float64    `json:"pnl"`
	ExitReason ExitReason `json:"exit_reason"`
}

// IsClosed checks whether both exit price and exit time are present.
func (t *Trade) IsClosed() bool {
	return t.ExitPrice != nil && t.ExitTime != nil
}

// EffectiveLotSize returns the lot size, defaulting to 1 when unset.
func (t *Trade) EffectiveLotSize() float64 {
	if t.LotSize <= 0 {
		return 1
	}
	return t.LotSize
}

// Apply merges a close update into the trade.
func (t *Trade) Apply(u ExitUpdate) {
	exitPrice, pnl, reason := u.ExitPrice, u.PnL, u.ExitReason
	exitTime := u.ExitTime
	t.ExitPrice = &exitPrice
	t.ExitTime = &exitTime
	t.PnL = &pnl
	t.ExitReason = &reason
}

// MarshalJSON adds the derived is_closed field.
func (t Trade) MarshalJSON() ([]byte, error) {
	type alias Trade
	return json.Marshal(struct {
		alias
		IsClosed bool `json:"is_closed"`
	}{alias: alias(t), IsClosed: t.IsClosed()})
}
