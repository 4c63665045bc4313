// Package ledgertest provides an in-process fake rippled JSON-RPC node.
package ledgertest

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"

	"rwatoken/internal/ledger"
)

// Address returns a deterministic classic address built from seed.
func Address(seed byte) string {
	addr, err := ledger.EncodeAccountID(bytes.Repeat([]byte{seed}, 20))
	if err != nil {
		panic(err)
	}
	return addr
}

type record struct {
	tx          ledger.Transaction
	hash        string
	validated   bool
	ledgerIndex uint32
	result      string
	omitNode    bool
}

// Server is a fake node. Every accepted transaction validates in the
// next ledger unless validation is held.
type Server struct {
	*httptest.Server

	mu          sync.Mutex
	ledgerIndex uint32
	sequences   map[string]uint32
	records     map[string]*record
	submitted   []ledger.Transaction
	prelim      string
	final       string
	omitNode    bool
	held        bool
	lookupFails bool
}

// NewServer starts a fake node. Close it when done.
func NewServer() *Server {
	s := &Server{
		ledgerIndex: 1000,
		sequences:   map[string]uint32{},
		records:     map[string]*record{},
		prelim:      ledger.ResultSuccess,
		final:       ledger.ResultSuccess,
	}
	s.Server = httptest.NewServer(http.HandlerFunc(s.handle))
	return s
}

// RejectPreliminary makes later submissions fail with result before
// reaching a ledger.
func (s *Server) RejectPreliminary(result string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.prelim = result
}

// FinalResult sets the engine result later transactions validate with.
func (s *Server) FinalResult(result string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.final = result
}

// OmitIssuanceNode drops the created issuance entry from later metadata.
func (s *Server) OmitIssuanceNode(omit bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.omitNode = omit
}

// FailLookups makes tx lookups return an internal error.
func (s *Server) FailLookups(fail bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lookupFails = fail
}

// Hold keeps submitted transactions unvalidated until Release.
func (s *Server) Hold() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.held = true
}

// Release validates every held transaction.
func (s *Server) Release() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.held = false
	for _, r := range s.records {
		if !r.validated {
			s.validate(r)
		}
	}
}

// AdvanceLedger closes n ledgers without validating held transactions.
func (s *Server) AdvanceLedger(n uint32) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ledgerIndex += n
}

// Submits returns how many transactions were submitted, rejected or not.
func (s *Server) Submits() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.submitted)
}

// Submitted returns a copy of every submitted transaction.
func (s *Server) Submitted() []ledger.Transaction {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]ledger.Transaction(nil), s.submitted...)
}

// SubmittedOfType counts submissions of one transaction type.
func (s *Server) SubmittedOfType(txType string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, tx := range s.submitted {
		if tx.TransactionType == txType {
			n++
		}
	}
	return n
}

func (s *Server) validate(r *record) {
	s.ledgerIndex++
	r.validated = true
	r.ledgerIndex = s.ledgerIndex
}

type request struct {
	Method string            `json:"method"`
	Params []json.RawMessage `json:"params"`
}

func (s *Server) handle(w http.ResponseWriter, r *http.Request) {
	var req request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	params := json.RawMessage(`{}`)
	if len(req.Params) > 0 {
		params = req.Params[0]
	}

	s.mu.Lock()
	result := s.dispatch(req.Method, params)
	s.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{"result": result})
}

func rpcError(code, message string) map[string]any {
	return map[string]any{"status": "error", "error": code, "error_message": message}
}

func success(fields map[string]any) map[string]any {
	fields["status"] = "success"
	return fields
}

func (s *Server) dispatch(method string, raw json.RawMessage) map[string]any {
	switch method {
	case "server_info":
		return success(map[string]any{"info": map[string]any{
			"build_version":    "2.4.0",
			"server_state":     "full",
			"network_id":       1,
			"complete_ledgers": "1-" + itoa(s.ledgerIndex),
		}})
	case "ledger_current":
		return success(map[string]any{"ledger_current_index": s.ledgerIndex + 1})
	case "fee":
		return success(map[string]any{"drops": map[string]any{"base_fee": "10", "open_ledger_fee": "12"}})
	case "account_info":
		var p struct {
			Account string `json:"account"`
		}
		_ = json.Unmarshal(raw, &p)
		if !ledger.ValidAddress(p.Account) {
			return rpcError("actMalformed", "Account malformed.")
		}
		seq, ok := s.sequences[p.Account]
		if !ok {
			seq = 1
		}
		return success(map[string]any{"account_data": map[string]any{"Account": p.Account, "Sequence": seq}})
	case "sign":
		return s.sign(raw)
	case "submit":
		return s.submit(raw)
	case "tx":
		return s.lookup(raw)
	}
	return rpcError("unknownCmd", "Unknown method.")
}

func (s *Server) sign(raw json.RawMessage) map[string]any {
	var p struct {
		TxJSON ledger.Transaction `json:"tx_json"`
		Secret string             `json:"secret"`
	}
	if err := json.Unmarshal(raw, &p); err != nil {
		return rpcError("invalidParams", err.Error())
	}
	if p.Secret == "" {
		return rpcError("badSecret", "Secret does not match account.")
	}
	body, _ := json.Marshal(p.TxJSON)
	blob := strings.ToUpper(hex.EncodeToString(body))
	return success(map[string]any{"tx_blob": blob, "tx_json": map[string]any{"hash": hashBlob(blob)}})
}

func (s *Server) submit(raw json.RawMessage) map[string]any {
	var p struct {
		TxBlob string `json:"tx_blob"`
	}
	_ = json.Unmarshal(raw, &p)
	body, err := hex.DecodeString(p.TxBlob)
	if err != nil {
		return rpcError("invalidTransaction", "Blob is not hex.")
	}
	var tx ledger.Transaction
	if err := json.Unmarshal(body, &tx); err != nil {
		return rpcError("invalidTransaction", err.Error())
	}
	s.submitted = append(s.submitted, tx)
	hash := hashBlob(p.TxBlob)

	out := map[string]any{
		"engine_result":         s.prelim,
		"engine_result_message": "fake node",
		"accepted":              s.prelim == ledger.ResultSuccess,
		"tx_json":               map[string]any{"hash": hash},
	}
	if s.prelim != ledger.ResultSuccess {
		return success(out)
	}

	s.sequences[tx.Account] = tx.Sequence + 1
	rec := &record{tx: tx, hash: hash, result: s.final, omitNode: s.omitNode}
	s.records[hash] = rec
	if !s.held {
		s.validate(rec)
	}
	return success(out)
}

func (s *Server) lookup(raw json.RawMessage) map[string]any {
	var p struct {
		Transaction string `json:"transaction"`
	}
	_ = json.Unmarshal(raw, &p)
	if s.lookupFails {
		return rpcError("internal", "Internal error.")
	}
	rec, ok := s.records[p.Transaction]
	if !ok {
		return rpcError("txnNotFound", "Transaction not found.")
	}

	out := map[string]any{
		"hash":               rec.hash,
		"validated":          rec.validated,
		"Account":            rec.tx.Account,
		"TransactionType":    rec.tx.TransactionType,
		"Fee":                rec.tx.Fee,
		"Sequence":           rec.tx.Sequence,
		"LastLedgerSequence": rec.tx.LastLedgerSequence,
	}
	if rec.validated {
		out["ledger_index"] = rec.ledgerIndex
		out["meta"] = s.meta(rec)
	}
	return success(out)
}

func (s *Server) meta(rec *record) map[string]any {
	meta := map[string]any{"TransactionIndex": 0, "TransactionResult": rec.result}
	if rec.result != ledger.ResultSuccess {
		meta["AffectedNodes"] = []any{}
		return meta
	}

	tx := rec.tx
	var nodes []any
	switch tx.TransactionType {
	case ledger.TxTypeMPTokenIssuanceCreate:
		if !rec.omitNode {
			nodes = append(nodes, map[string]any{"CreatedNode": map[string]any{
				"LedgerEntryType": "MPTokenIssuance",
				"LedgerIndex":     hashBlob(rec.hash),
				"NewFields": map[string]any{
					"Issuer":          tx.Account,
					"Sequence":        tx.Sequence,
					"MaximumAmount":   tx.MaximumAmount,
					"AssetScale":      tx.AssetScale,
					"TransferFee":     tx.TransferFee,
					"MPTokenMetadata": tx.MPTokenMetadata,
					"Flags":           tx.Flags,
				},
			}})
			if id, err := ledger.ComputeMPTIssuanceID(tx.Sequence, tx.Account); err == nil {
				meta["mpt_issuance_id"] = id
			}
		}
	case ledger.TxTypeTrustSet:
		if tx.LimitAmount != nil && !rec.omitNode {
			nodes = append(nodes, map[string]any{"CreatedNode": map[string]any{
				"LedgerEntryType": "RippleState",
				"LedgerIndex":     hashBlob(rec.hash),
				"NewFields": map[string]any{
					"Balance":   map[string]any{"currency": tx.LimitAmount.Currency, "issuer": "rrrrrrrrrrrrrrrrrrrrBZbvji", "value": "0"},
					"HighLimit": map[string]any{"currency": tx.LimitAmount.Currency, "issuer": tx.Account, "value": tx.LimitAmount.Value},
					"LowLimit":  map[string]any{"currency": tx.LimitAmount.Currency, "issuer": tx.LimitAmount.Issuer, "value": "0"},
				},
			}})
		}
	case ledger.TxTypePayment:
		if tx.Amount != nil && !rec.omitNode {
			nodes = append(nodes, map[string]any{"ModifiedNode": map[string]any{
				"LedgerEntryType": "RippleState",
				"LedgerIndex":     hashBlob(rec.hash),
				"FinalFields": map[string]any{
					"Balance":   map[string]any{"currency": tx.Amount.Currency, "issuer": "rrrrrrrrrrrrrrrrrrrrBZbvji", "value": "-" + tx.Amount.Value},
					"HighLimit": map[string]any{"currency": tx.Amount.Currency, "issuer": tx.Destination, "value": tx.Amount.Value},
					"LowLimit":  map[string]any{"currency": tx.Amount.Currency, "issuer": tx.Account, "value": "0"},
				},
			}})
			meta["delivered_amount"] = tx.Amount
		}
	case ledger.TxTypeAccountSet:
		nodes = append(nodes, map[string]any{"ModifiedNode": map[string]any{
			"LedgerEntryType": "AccountRoot",
			"LedgerIndex":     hashBlob(rec.hash),
			"FinalFields":     map[string]any{"Account": tx.Account, "Sequence": tx.Sequence + 1},
		}})
	}
	meta["AffectedNodes"] = nodes
	return meta
}

func hashBlob(blob string) string {
	sum := sha256.Sum256([]byte(blob))
	return strings.ToUpper(hex.EncodeToString(sum[:]))
}

func itoa(v uint32) string {
	b, _ := json.Marshal(v)
	return string(b)
}
