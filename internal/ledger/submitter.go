package ledger

import (
	"context"
	"time"

	"go.uber.org/zap"

	"rwatoken/internal/logger"
)

// Network is the ledger node surface the submitter needs. *Client
// implements it.
type Network interface {
	Autofill(ctx context.Context, tx *Transaction) error
	Sign(ctx context.Context, tx Transaction, secret string) (SignedTransaction, error)
	Submit(ctx context.Context, blob string) (SubmitResult, error)
	TransactionByHash(ctx context.Context, hash string) (*TransactionResponse, error)
	LedgerCurrent(ctx context.Context) (uint32, error)
}

// Outcome is a validated, successful transaction.
type Outcome struct {
	Hash            string
	LedgerIndex     uint32
	Fee             string
	EngineResult    string
	TransactionType string
	Account         string
	Meta            Meta
}

// Submitter signs, submits and waits for validation.
type Submitter struct {
	net          Network
	pollInterval time.Duration
	log          *zap.SugaredLogger
}

// NewSubmitter returns a Submitter polling every pollInterval.
func NewSubmitter(net Network, pollInterval time.Duration) *Submitter {
	if pollInterval <= 0 {
		pollInterval = time.Second
	}
	return &Submitter{net: net, pollInterval: pollInterval, log: logger.Get()}
}

// SubmitAndWait autofills, signs and submits tx, then blocks until the
// transaction is validated or can no longer be included. It submits
// exactly once. When ctx ends first the error is a *PendingError and
// the caller must look the hash up later.
func (s *Submitter) SubmitAndWait(ctx context.Context, tx Transaction, secret string) (*Outcome, error) {
	if err := s.net.Autofill(ctx, &tx); err != nil {
		return nil, err
	}
	signed, err := s.net.Sign(ctx, tx, secret)
	if err != nil {
		return nil, err
	}

	prelim, err := s.net.Submit(ctx, signed.Blob)
	if err != nil {
		// The blob may have reached the network.
		return nil, &PendingError{Hash: signed.Hash, LastLedger: tx.LastLedgerSequence, Err: err}
	}
	hash := signed.Hash
	if prelim.TxJSON.Hash != "" {
		hash = prelim.TxJSON.Hash
	}
	s.log.Infow("transaction submitted",
		"hash", hash,
		"type", tx.TransactionType,
		"engine_result", prelim.EngineResult,
		"last_ledger_sequence", tx.LastLedgerSequence,
	)
	if terminalPrelim(prelim.EngineResult) {
		return nil, &RejectedError{Hash: hash, EngineResult: prelim.EngineResult, Message: prelim.EngineResultMessage}
	}

	return s.wait(ctx, hash, tx.LastLedgerSequence)
}

func (s *Submitter) wait(ctx context.Context, hash string, lastLedger uint32) (*Outcome, error) {
	ticker := time.NewTicker(s.pollInterval)
	defer ticker.Stop()

	for {
		done, outcome, err := s.poll(ctx, hash, lastLedger)
		if done {
			return outcome, err
		}
		select {
		case <-ctx.Done():
			return nil, &PendingError{Hash: hash, LastLedger: lastLedger, Err: ctx.Err()}
		case <-ticker.C:
		}
	}
}

func (s *Submitter) poll(ctx context.Context, hash string, lastLedger uint32) (bool, *Outcome, error) {
	resp, err := s.net.TransactionByHash(ctx, hash)
	switch {
	case err != nil && !IsNotFound(err):
		s.log.Warnw("transaction lookup failed", "hash", hash, "error", err)
		return false, nil, nil
	case err == nil && resp.Validated:
		result := resp.Meta.TransactionResult
		if result != ResultSuccess {
			return true, nil, &RejectedError{Hash: hash, EngineResult: result}
		}
		return true, &Outcome{
			Hash:            hash,
			LedgerIndex:     resp.LedgerIndex,
			Fee:             resp.Fee,
			EngineResult:    result,
			TransactionType: resp.TransactionType,
			Account:         resp.Account,
			Meta:            resp.Meta,
		}, nil
	}

	if lastLedger == 0 {
		return false, nil, nil
	}
	current, err := s.net.LedgerCurrent(ctx)
	if err != nil {
		return false, nil, nil
	}
	if current > lastLedger {
		return true, nil, &RejectedError{Hash: hash, EngineResult: ResultMaxLedger, Message: "transaction expired before validation"}
	}
	return false, nil, nil
}
