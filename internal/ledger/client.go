package ledger

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// DefaultLedgerOffset is how many ledgers a transaction may wait before
// it expires.
const DefaultLedgerOffset = 20

// Config configures a ledger node connection.
type Config struct {
	URL          string
	Timeout      time.Duration
	LedgerOffset uint32
}

// ServerInfo is the subset of server_info used to probe a node.
type ServerInfo struct {
	BuildVersion    string `json:"build_version"`
	ServerState     string `json:"server_state"`
	NetworkID       uint32 `json:"network_id"`
	CompleteLedgers string `json:"complete_ledgers"`
}

// Client talks JSON-RPC to a rippled node. Create it with Dial and
// release it with Close.
type Client struct {
	url          string
	httpClient   *http.Client
	ledgerOffset uint32
	info         ServerInfo
}

// Dial connects to the node at cfg.URL and checks that it answers.
func Dial(ctx context.Context, cfg Config) (*Client, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("ledger url is required")
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	offset := cfg.LedgerOffset
	if offset == 0 {
		offset = DefaultLedgerOffset
	}
	c := &Client{
		url:          strings.TrimRight(cfg.URL, "/"),
		httpClient:   &http.Client{Timeout: timeout},
		ledgerOffset: offset,
	}

	var result struct {
		Info ServerInfo `json:"info"`
	}
	if err := c.call(ctx, "server_info", struct{}{}, &result); err != nil {
		c.Close()
		return nil, fmt.Errorf("probing ledger node: %w", err)
	}
	c.info = result.Info
	return c, nil
}

// Close releases idle connections held by the client.
func (c *Client) Close() {
	c.httpClient.CloseIdleConnections()
}

// Info returns the server_info captured by Dial.
func (c *Client) Info() ServerInfo { return c.info }

type rpcRequest struct {
	Method string `json:"method"`
	Params []any  `json:"params"`
}

type rpcStatus struct {
	Status       string `json:"status"`
	Error        string `json:"error"`
	ErrorMessage string `json:"error_message"`
}

func (c *Client) call(ctx context.Context, method string, params, out any) error {
	body, err := json.Marshal(rpcRequest{Method: method, Params: []any{params}})
	if err != nil {
		return fmt.Errorf("marshaling %s request: %w", method, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("calling %s: %w", method, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("calling %s: unexpected status %d", method, resp.StatusCode)
	}

	var envelope struct {
		Result json.RawMessage `json:"result"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return fmt.Errorf("decoding %s response: %w", method, err)
	}

	var status rpcStatus
	if err := json.Unmarshal(envelope.Result, &status); err != nil {
		return fmt.Errorf("decoding %s status: %w", method, err)
	}
	if status.Status == "error" || status.Error != "" {
		return &RPCError{Method: method, Code: status.Error, Message: status.ErrorMessage}
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(envelope.Result, out); err != nil {
		return fmt.Errorf("decoding %s result: %w", method, err)
	}
	return nil
}

// AccountSequence returns the next sequence number of account.
func (c *Client) AccountSequence(ctx context.Context, account string) (uint32, error) {
	params := map[string]any{"account": account, "ledger_index": "current"}
	var result struct {
		AccountData struct {
			Sequence uint32 `json:"Sequence"`
		} `json:"account_data"`
	}
	if err := c.call(ctx, "account_info", params, &result); err != nil {
		return 0, err
	}
	return result.AccountData.Sequence, nil
}

// OpenLedgerFee returns the fee in drops needed to get into the open ledger.
func (c *Client) OpenLedgerFee(ctx context.Context) (string, error) {
	var result struct {
		Drops struct {
			BaseFee       string `json:"base_fee"`
			OpenLedgerFee string `json:"open_ledger_fee"`
		} `json:"drops"`
	}
	if err := c.call(ctx, "fee", struct{}{}, &result); err != nil {
		return "", err
	}
	base, _ := strconv.ParseUint(result.Drops.BaseFee, 10, 64)
	open, err := strconv.ParseUint(result.Drops.OpenLedgerFee, 10, 64)
	if err != nil || open < base {
		open = base
	}
	if open == 0 {
		return "", fmt.Errorf("fee: node reported no usable fee")
	}
	return formatUint(open), nil
}

// LedgerCurrent returns the index of the current open ledger.
func (c *Client) LedgerCurrent(ctx context.Context) (uint32, error) {
	var result struct {
		LedgerCurrentIndex uint32 `json:"ledger_current_index"`
	}
	if err := c.call(ctx, "ledger_current", struct{}{}, &result); err != nil {
		return 0, err
	}
	return result.LedgerCurrentIndex, nil
}

// Autofill sets Sequence, Fee and LastLedgerSequence when they are zero.
func (c *Client) Autofill(ctx context.Context, tx *Transaction) error {
	if tx.Sequence == 0 {
		seq, err := c.AccountSequence(ctx, tx.Account)
		if err != nil {
			return fmt.Errorf("autofill sequence: %w", err)
		}
		tx.Sequence = seq
	}
	if tx.Fee == "" {
		fee, err := c.OpenLedgerFee(ctx)
		if err != nil {
			return fmt.Errorf("autofill fee: %w", err)
		}
		tx.Fee = fee
	}
	if tx.LastLedgerSequence == 0 {
		current, err := c.LedgerCurrent(ctx)
		if err != nil {
			return fmt.Errorf("autofill last ledger: %w", err)
		}
		tx.LastLedgerSequence = current + c.ledgerOffset
	}
	return nil
}

// Sign has the node sign tx offline with secret. The secret never
// leaves the request to the configured node.
func (c *Client) Sign(ctx context.Context, tx Transaction, secret string) (SignedTransaction, error) {
	params := map[string]any{"tx_json": tx, "secret": secret, "offline": true}
	var result struct {
		TxBlob string `json:"tx_blob"`
		TxJSON struct {
			Hash string `json:"hash"`
		} `json:"tx_json"`
	}
	if err := c.call(ctx, "sign", params, &result); err != nil {
		return SignedTransaction{}, err
	}
	if result.TxBlob == "" {
		return SignedTransaction{}, fmt.Errorf("sign: empty transaction blob")
	}
	return SignedTransaction{Blob: result.TxBlob, Hash: result.TxJSON.Hash}, nil
}

// Submit broadcasts a signed blob and returns the preliminary result.
func (c *Client) Submit(ctx context.Context, blob string) (SubmitResult, error) {
	var result SubmitResult
	if err := c.call(ctx, "submit", map[string]any{"tx_blob": blob}, &result); err != nil {
		return SubmitResult{}, err
	}
	return result, nil
}

// TransactionByHash looks a transaction up by hash.
func (c *Client) TransactionByHash(ctx context.Context, hash string) (*TransactionResponse, error) {
	var result TransactionResponse
	if err := c.call(ctx, "tx", map[string]any{"transaction": hash, "binary": false}, &result); err != nil {
		return nil, err
	}
	return &result, nil
}
