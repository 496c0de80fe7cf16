package modelsvc

import "context"

type recordingClient struct {
	inner  Client
	ledger *CostLedger
}

// WithLedger wraps a client so every successful completion is priced and
// appended to the ledger. Failed calls are not charged.
func WithLedger(inner Client, ledger *CostLedger) Client {
	return &recordingClient{inner: inner, ledger: ledger}
}

func (c *recordingClient) Complete(ctx context.Context, req Request) (Response, error) {
	res, err := c.inner.Complete(ctx, req)
	if err != nil {
		return res, err
	}
	c.ledger.Record(req.CallType, req.Model, res.Usage)
	return res, nil
}
