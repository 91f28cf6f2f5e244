package chain

import "context"

type MockClient struct {
	GetBalanceFunc     func(ctx context.Context, address string) Balance
	GetValidatorsFunc  func(ctx context.Context, address string) map[string]Validator
	GetDelegationsFunc func(ctx context.Context, address string) []Delegation
	DialFunc           func(ctx context.Context, rpcURL string) (TxSearcher, error)
}

func (m *MockClient) GetBalance(ctx context.Context, address string) Balance {
	if m.GetBalanceFunc != nil {
		return m.GetBalanceFunc(ctx, address)
	}
	return Balance{Amount: "0"}
}

func (m *MockClient) GetValidators(ctx context.Context, address string) map[string]Validator {
	if m.GetValidatorsFunc != nil {
		return m.GetValidatorsFunc(ctx, address)
	}
	return map[string]Validator{}
}

func (m *MockClient) GetDelegations(ctx context.Context, address string) []Delegation {
	if m.GetDelegationsFunc != nil {
		return m.GetDelegationsFunc(ctx, address)
	}
	return nil
}

func (m *MockClient) Dial(ctx context.Context, rpcURL string) (TxSearcher, error) {
	if m.DialFunc != nil {
		return m.DialFunc(ctx, rpcURL)
	}
	return &MockTxSearcher{}, nil
}

type MockTxSearcher struct {
	SearchTxsFunc func(ctx context.Context, query string, match func(typeURL string) bool) ([]Tx, error)
	Closed        bool
}

func (m *MockTxSearcher) SearchTxs(ctx context.Context, query string, match func(typeURL string) bool) ([]Tx, error) {
	if m.SearchTxsFunc != nil {
		return m.SearchTxsFunc(ctx, query, match)
	}
	return nil, nil
}

func (m *MockTxSearcher) Close() {
	m.Closed = true
}
