package chain

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"google.golang.org/protobuf/encoding/protowire"
	"huginn/apps/huginn/internal/network"
)

var (
	cosmosAddr = "cosmos1" + strings.Repeat("a", 38)
	osmoAddr   = "osmo1" + strings.Repeat("b", 38)
)

func encodeTx(typeURLs ...string) []byte {
	var body []byte
	for _, u := range typeURLs {
		var anyMsg []byte
		anyMsg = protowire.AppendTag(anyMsg, 1, protowire.BytesType)
		anyMsg = protowire.AppendString(anyMsg, u)
		anyMsg = protowire.AppendTag(anyMsg, 2, protowire.BytesType)
		anyMsg = protowire.AppendBytes(anyMsg, []byte{0x0a, 0x01, 0x41})
		body = protowire.AppendTag(body, 1, protowire.BytesType)
		body = protowire.AppendBytes(body, anyMsg)
	}
	// memo and timeout height, ignored
	body = protowire.AppendTag(body, 2, protowire.BytesType)
	body = protowire.AppendString(body, "memo")
	body = protowire.AppendTag(body, 3, protowire.VarintType)
	body = protowire.AppendVarint(body, 12)

	var tx []byte
	tx = protowire.AppendTag(tx, 1, protowire.BytesType)
	tx = protowire.AppendBytes(tx, body)
	tx = protowire.AppendTag(tx, 2, protowire.BytesType)
	tx = protowire.AppendBytes(tx, []byte("auth-info"))
	tx = protowire.AppendTag(tx, 3, protowire.BytesType)
	tx = protowire.AppendBytes(tx, []byte("signature"))
	return tx
}

func registryFor(t *testing.T, slug, rest, rpc string) *network.Registry {
	t.Helper()
	path := filepath.Join(t.TempDir(), "networks.toml")
	content := fmt.Sprintf("[%s]\nrest = %q\nrpc = %q\n", slug, rest, rpc)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	reg, err := network.LoadRegistry(path)
	require.NoError(t, err)
	return reg
}

func TestMessageTypeURLs(t *testing.T) {
	urls, err := MessageTypeURLs(encodeTx("/cosmos.bank.v1beta1.MsgSend", "/cosmos.staking.v1beta1.MsgUndelegate"))
	require.NoError(t, err)
	assert.Equal(t, []string{"/cosmos.bank.v1beta1.MsgSend", "/cosmos.staking.v1beta1.MsgUndelegate"}, urls)
}

func TestMessageTypeURLs_Invalid(t *testing.T) {
	_, err := MessageTypeURLs([]byte{0x0a, 0xff})
	assert.Error(t, err)

	// Valid wire data with no body field.
	var noBody []byte
	noBody = protowire.AppendTag(noBody, 2, protowire.BytesType)
	noBody = protowire.AppendBytes(noBody, []byte("x"))
	_, err = MessageTypeURLs(noBody)
	assert.ErrorIs(t, err, errNoBody)
}

func TestIsUndelegate(t *testing.T) {
	assert.True(t, IsUndelegate("/cosmos.staking.v1beta1.MsgUndelegate"))
	assert.False(t, IsUndelegate("/cosmos.staking.v1beta1.MsgDelegate"))
	assert.False(t, IsUndelegate("/cosmos.bank.v1beta1.MsgSend"))
}

func TestUnbondQuery(t *testing.T) {
	assert.Equal(t,
		"message.sender='"+cosmosAddr+"' AND message.action='/cosmos.staking.v1beta1.MsgUndelegate'",
		UnbondQuery(cosmosAddr))
}

func TestGetBalance(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/cosmos/bank/v1beta1/balances/"+osmoAddr, r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"balances":[{"denom":"ibc/ABC","amount":"5"},{"denom":"uosmo","amount":"2500000"}]}`))
	}))
	defer server.Close()

	client := NewClient(registryFor(t, "osmosis", server.URL, server.URL), 5*time.Second, 0, zap.NewNop())

	assert.Equal(t, Balance{Denom: "uosmo", Amount: "2500000"}, client.GetBalance(context.Background(), osmoAddr))
}

func TestGetBalance_FailureDefaultsToZero(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer server.Close()

	client := NewClient(registryFor(t, "osmosis", server.URL, server.URL), 5*time.Second, 0, zap.NewNop())

	assert.Equal(t, Balance{Denom: "uosmo", Amount: "0"}, client.GetBalance(context.Background(), osmoAddr))
}

func TestGetBalance_UnknownNetwork(t *testing.T) {
	client := NewClient(network.NewRegistry(), time.Second, 0, zap.NewNop())
	assert.Equal(t, Balance{}, client.GetBalance(context.Background(), "juno1"+strings.Repeat("a", 38)))
}

func TestGetValidatorsAndDelegations(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch {
		case r.URL.Path == "/cosmos/staking/v1beta1/validators":
			assert.Equal(t, "100000", r.URL.Query().Get("pagination.limit"))
			_, _ = w.Write([]byte(`{"validators":[
				{"operator_address":"cosmosvaloper1x","jailed":true,"description":{"moniker":"Val X"}},
				{"operator_address":"cosmosvaloper1y","jailed":false,"description":{"moniker":"Val Y"}}]}`))
		case r.URL.Path == "/cosmos/staking/v1beta1/delegations/"+cosmosAddr:
			_, _ = w.Write([]byte(`{"delegation_responses":[
				{"delegation":{"delegator_address":"` + cosmosAddr + `","validator_address":"cosmosvaloper1x"},"balance":{"denom":"uatom","amount":"1000000"}}]}`))
		default:
			http.NotFound(w, r)
		}
	}))
	defer server.Close()

	client := NewClient(registryFor(t, "cosmoshub", server.URL, server.URL), 5*time.Second, 100, zap.NewNop())
	ctx := context.Background()

	validators := client.GetValidators(ctx, cosmosAddr)
	require.Len(t, validators, 2)
	assert.Equal(t, Validator{Moniker: "Val X", Jailed: true}, validators["cosmosvaloper1x"])
	assert.False(t, validators["cosmosvaloper1y"].Jailed)

	delegations := client.GetDelegations(ctx, cosmosAddr)
	assert.Equal(t, []Delegation{{ValidatorAddress: "cosmosvaloper1x", Amount: "1000000"}}, delegations)
}

func TestGetValidators_FailureIsEmpty(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`not json`))
	}))
	defer server.Close()

	client := NewClient(registryFor(t, "cosmoshub", server.URL, server.URL), 5*time.Second, 0, zap.NewNop())

	assert.Empty(t, client.GetValidators(context.Background(), cosmosAddr))
	assert.Empty(t, client.GetDelegations(context.Background(), cosmosAddr))
}

type rpcRequest struct {
	ID     json.RawMessage   `json:"id"`
	Method string            `json:"method"`
	Params []json.RawMessage `json:"params"`
}

func newRPCServer(t *testing.T, txSearch func(params []json.RawMessage) interface{}) (*httptest.Server, *int32) {
	t.Helper()
	var searches int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req rpcRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))

		var result interface{}
		switch req.Method {
		case "status":
			result = map[string]interface{}{"node_info": map[string]string{"network": "test-1"}}
		case "tx_search":
			atomic.AddInt32(&searches, 1)
			result = txSearch(req.Params)
		default:
			t.Errorf("unexpected method %s", req.Method)
		}

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"jsonrpc": "2.0",
			"id":      req.ID,
			"result":  result,
		})
	}))
	return server, &searches
}

func TestSearchTxs(t *testing.T) {
	undelegate := base64.StdEncoding.EncodeToString(encodeTx("/cosmos.staking.v1beta1.MsgUndelegate"))
	send := base64.StdEncoding.EncodeToString(encodeTx("/cosmos.bank.v1beta1.MsgSend"))
	garbage := base64.StdEncoding.EncodeToString([]byte{0x0a, 0xff, 0x01})

	server, searches := newRPCServer(t, func(params []json.RawMessage) interface{} {
		require.Len(t, params, 5)
		var query string
		require.NoError(t, json.Unmarshal(params[0], &query))
		assert.Equal(t, UnbondQuery(cosmosAddr), query)
		assert.JSONEq(t, `"desc"`, string(params[4]))

		return map[string]interface{}{
			"txs": []map[string]string{
				{"hash": "ABC123", "height": "10", "tx": undelegate},
				{"hash": "DEF456", "height": "9", "tx": send},
				{"hash": "BAD", "height": "8", "tx": garbage},
				{"hash": "NOTB64", "height": "7", "tx": "%%%"},
			},
			"total_count": "4",
		}
	})
	defer server.Close()

	client := NewClient(network.NewRegistry(), 5*time.Second, 0, zap.NewNop())
	searcher, err := client.Dial(context.Background(), server.URL)
	require.NoError(t, err)
	defer searcher.Close()

	txs, err := searcher.SearchTxs(context.Background(), UnbondQuery(cosmosAddr), IsUndelegate)
	require.NoError(t, err)
	require.Len(t, txs, 1)
	assert.Equal(t, "abc123", txs[0].Hash)
	assert.Equal(t, "10", txs[0].Height)
	assert.Equal(t, int32(1), atomic.LoadInt32(searches))
}

func TestDial_Unreachable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := server.URL
	server.Close()

	client := NewClient(network.NewRegistry(), time.Second, 0, zap.NewNop())
	_, err := client.Dial(context.Background(), url)
	assert.Error(t, err)
}

func TestSearchTxs_RPCError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req rpcRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		w.Header().Set("Content-Type", "application/json")
		if req.Method == "status" {
			_ = json.NewEncoder(w).Encode(map[string]interface{}{"jsonrpc": "2.0", "id": req.ID, "result": map[string]string{}})
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"jsonrpc": "2.0",
			"id":      req.ID,
			"error":   map[string]interface{}{"code": -32603, "message": "Internal error"},
		})
	}))
	defer server.Close()

	client := NewClient(network.NewRegistry(), 5*time.Second, 0, zap.NewNop())
	searcher, err := client.Dial(context.Background(), server.URL)
	require.NoError(t, err)
	defer searcher.Close()

	_, err = searcher.SearchTxs(context.Background(), UnbondQuery(cosmosAddr), IsUndelegate)
	assert.Error(t, err)
}
