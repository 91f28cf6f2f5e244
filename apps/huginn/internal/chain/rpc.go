package chain

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/rpc"
	"go.uber.org/zap"
)

// Page size for tx_search. Only the most recent page is inspected each cycle.
const txSearchPerPage = "100"

// TxSearcher is an open connection to a node's CometBFT JSON-RPC endpoint.
type TxSearcher interface {
	// SearchTxs runs a tx_search query, newest first, and returns the transactions carrying at
	// least one message whose type URL satisfies match. Transactions that fail to decode are
	// treated as non-matching.
	SearchTxs(ctx context.Context, query string, match func(typeURL string) bool) ([]Tx, error)
	Close()
}

type rpcSearcher struct {
	client *rpc.Client
	logger *zap.Logger
}

// Dial connects to rpcURL and confirms the node answers a status call before returning.
func (c *defaultClient) Dial(ctx context.Context, rpcURL string) (TxSearcher, error) {
	client, err := rpc.DialOptions(ctx, rpcURL, rpc.WithHTTPClient(c.httpClient))
	if err != nil {
		return nil, fmt.Errorf("failed to dial %s: %w", rpcURL, err)
	}

	var status json.RawMessage
	if err := client.CallContext(ctx, &status, "status"); err != nil {
		client.Close()
		return nil, fmt.Errorf("node %s did not answer status: %w", rpcURL, err)
	}

	return &rpcSearcher{client: client, logger: c.logger}, nil
}

func (s *rpcSearcher) SearchTxs(ctx context.Context, query string, match func(typeURL string) bool) ([]Tx, error) {
	var result txSearchResult
	// Positional params: query, prove, page, per_page, order_by.
	if err := s.client.CallContext(ctx, &result, "tx_search", query, false, "1", txSearchPerPage, "desc"); err != nil {
		return nil, fmt.Errorf("tx_search failed: %w", err)
	}

	var txs []Tx
	for _, raw := range result.Txs {
		txBytes, err := base64.StdEncoding.DecodeString(raw.Tx)
		if err != nil {
			s.logger.Warn("Skipping tx with invalid encoding",
				zap.String("hash", raw.Hash),
				zap.Error(err))
			continue
		}

		typeURLs, err := MessageTypeURLs(txBytes)
		if err != nil {
			s.logger.Warn("Skipping undecodable tx",
				zap.String("hash", raw.Hash),
				zap.Error(err))
			continue
		}

		if !anyMatch(typeURLs, match) {
			continue
		}

		txs = append(txs, Tx{
			Hash:     strings.ToLower(raw.Hash),
			Height:   raw.Height,
			Messages: typeURLs,
		})
	}

	return txs, nil
}

func (s *rpcSearcher) Close() {
	s.client.Close()
}

func anyMatch(typeURLs []string, match func(string) bool) bool {
	for _, u := range typeURLs {
		if match(u) {
			return true
		}
	}
	return false
}
