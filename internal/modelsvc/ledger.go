package modelsvc

import "sync"

// Call is one priced model invocation in the ledger breakdown.
type Call struct {
	CallType         string  `json:"call_type"`
	Model            string  `json:"model"`
	Cost             float64 `json:"cost"`
	PromptTokens     int     `json:"prompt_tokens"`
	CompletionTokens int     `json:"completion_tokens"`
	TotalTokens      int     `json:"total_tokens"`
}

// Summary is the aggregate view of a ledger: running totals plus the
// per-call breakdown in call order.
type Summary struct {
	TotalCost             float64 `json:"total_cost"`
	TotalPromptTokens     int     `json:"total_prompt_tokens"`
	TotalCompletionTokens int     `json:"total_completion_tokens"`
	TotalTokens           int     `json:"total_tokens"`
	CallCount             int     `json:"call_count"`
	Breakdown             []Call  `json:"breakdown"`
}

// CostLedger accumulates model call costs across a run. Safe for
// concurrent use.
type CostLedger struct {
	mu    sync.Mutex
	calls []Call
}

func NewCostLedger() *CostLedger {
	return &CostLedger{}
}

func (l *CostLedger) Add(c Call) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.calls = append(l.calls, c)
}

// Record prices the usage for model and appends the resulting call.
func (l *CostLedger) Record(callType, model string, u Usage) {
	l.Add(Call{
		CallType:         callType,
		Model:            model,
		Cost:             CostFor(model, u),
		PromptTokens:     u.PromptTokens,
		CompletionTokens: u.CompletionTokens,
		TotalTokens:      u.TotalTokens,
	})
}

// Snapshot returns the current totals with a copy of the breakdown, so the
// caller can keep it across a later Reset.
func (l *CostLedger) Snapshot() Summary {
	l.mu.Lock()
	defer l.mu.Unlock()
	s := Summary{
		CallCount: len(l.calls),
		Breakdown: make([]Call, len(l.calls)),
	}
	copy(s.Breakdown, l.calls)
	for _, c := range l.calls {
		s.TotalCost += c.Cost
		s.TotalPromptTokens += c.PromptTokens
		s.TotalCompletionTokens += c.CompletionTokens
		s.TotalTokens += c.TotalTokens
	}
	return s
}

func (l *CostLedger) Reset() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.calls = nil
}
