package storage

import (
	"encoding/binary"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"math/big"
	"strconv"

	"crednet/crypto"
	"crednet/native/consensus"
	"crednet/native/loans"
)

// Key prefixes. Records are JSON except the plain counters and timestamps.
const (
	prefixSignerNonce  = "consensus/signer-nonce/"
	prefixRequestNonce = "consensus/request-nonce/"
	prefixLastRequest  = "consensus/last-request/"
	prefixLoan         = "loans/loan/"
	keyNextLoanID      = "loans/next-id"
	prefixParams       = "params/"
)

// ProtocolState adapts a Database into the state surfaces the consensus
// engine, the loan ledger and the parameter store expect. Nonce sets are
// append-only; the consensus round commit is one atomic batch.
type ProtocolState struct {
	db Database
}

func NewProtocolState(db Database) *ProtocolState {
	return &ProtocolState{db: db}
}

func signerNonceKey(signer crypto.Address, nonce uint64) []byte {
	return []byte(prefixSignerNonce + hex.EncodeToString(signer.Bytes()) + "/" + strconv.FormatUint(nonce, 10))
}

func requestNonceKey(borrower crypto.Address, nonce uint64) []byte {
	return []byte(prefixRequestNonce + hex.EncodeToString(borrower.Bytes()) + "/" + strconv.FormatUint(nonce, 10))
}

func lastRequestKey(borrower crypto.Address) []byte {
	return []byte(prefixLastRequest + hex.EncodeToString(borrower.Bytes()))
}

func loanKey(id uint64) []byte {
	return []byte(prefixLoan + strconv.FormatUint(id, 10))
}

// --- consensus engine state ---

func (s *ProtocolState) SignerNonceUsed(signer crypto.Address, nonce uint64) (bool, error) {
	return s.db.Has(signerNonceKey(signer, nonce))
}

func (s *ProtocolState) RequestNonceUsed(borrower crypto.Address, nonce uint64) (bool, error) {
	return s.db.Has(requestNonceKey(borrower, nonce))
}

func (s *ProtocolState) LastRequestTime(borrower crypto.Address) (int64, error) {
	raw, ok, err := s.db.Get(lastRequestKey(borrower))
	if err != nil {
		return 0, fmt.Errorf("storage: load last request time: %w", err)
	}
	if !ok || len(raw) != 8 {
		return 0, nil
	}
	return int64(binary.BigEndian.Uint64(raw)), nil
}

// CommitRound persists every consumed nonce and the borrower's rate-limit
// timestamp in one batch, so a crash cannot leave a round half applied.
func (s *ProtocolState) CommitRound(round consensus.ConsumedRound) error {
	entries := make([]BatchEntry, 0, len(round.SignerNonces)+2)
	for _, sn := range round.SignerNonces {
		entries = append(entries, BatchEntry{Key: signerNonceKey(sn.Signer, sn.Nonce), Value: []byte{1}})
	}
	entries = append(entries, BatchEntry{Key: requestNonceKey(round.Borrower, round.RequestNonce), Value: []byte{1}})
	ts := make([]byte, 8)
	binary.BigEndian.PutUint64(ts, uint64(round.RequestedAt))
	entries = append(entries, BatchEntry{Key: lastRequestKey(round.Borrower), Value: ts})
	if err := s.db.WriteBatch(entries); err != nil {
		return fmt.Errorf("storage: commit consensus round: %w", err)
	}
	return nil
}

// --- loan ledger state ---

// loanRecord is the persisted shape of a loan. Addresses are stored as raw
// bytes since crypto.Address keeps its fields private.
type loanRecord struct {
	ID               uint64 `json:"id"`
	Borrower         []byte `json:"borrower"`
	Recipient        []byte `json:"recipient,omitempty"`
	InterestRate     uint64 `json:"interestRate"`
	CollateralRatio  uint64 `json:"collateralRatio"`
	MaxLoanAmount    string `json:"maxLoanAmount"`
	Duration         int64  `json:"duration"`
	TermsExpiry      int64  `json:"termsExpiry"`
	LoanStartTime    int64  `json:"loanStartTime"`
	Collateral       string `json:"collateral"`
	LastCollateralIn int64  `json:"lastCollateralIn"`
	PrincipalOwed    string `json:"principalOwed"`
	InterestOwed     string `json:"interestOwed"`
	Status           uint8  `json:"status"`
	Liquidated       bool   `json:"liquidated"`
}

func (s *ProtocolState) GetLoan(id uint64) (*loans.Loan, bool, error) {
	raw, ok, err := s.db.Get(loanKey(id))
	if err != nil {
		return nil, false, fmt.Errorf("storage: load loan %d: %w", id, err)
	}
	if !ok {
		return nil, false, nil
	}
	var rec loanRecord
	if err := json.Unmarshal(raw, &rec); err != nil {
		return nil, false, fmt.Errorf("storage: decode loan %d: %w", id, err)
	}
	loan, err := recordToLoan(&rec)
	if err != nil {
		return nil, false, fmt.Errorf("storage: decode loan %d: %w", id, err)
	}
	return loan, true, nil
}

func (s *ProtocolState) PutLoan(loan *loans.Loan) error {
	if loan == nil {
		return fmt.Errorf("storage: nil loan")
	}
	raw, err := json.Marshal(loanToRecord(loan))
	if err != nil {
		return fmt.Errorf("storage: encode loan %d: %w", loan.ID, err)
	}
	return s.db.Put(loanKey(loan.ID), raw)
}

// NextLoanID allocates the next sequential loan id. Ids start at 1 and are
// never reused.
func (s *ProtocolState) NextLoanID() (uint64, error) {
	raw, ok, err := s.db.Get([]byte(keyNextLoanID))
	if err != nil {
		return 0, fmt.Errorf("storage: load loan id counter: %w", err)
	}
	var next uint64 = 1
	if ok && len(raw) == 8 {
		next = binary.BigEndian.Uint64(raw) + 1
	}
	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, next)
	if err := s.db.Put([]byte(keyNextLoanID), buf); err != nil {
		return 0, fmt.Errorf("storage: advance loan id counter: %w", err)
	}
	return next, nil
}

// --- params store state ---

func (s *ProtocolState) ParamStoreSet(name string, value []byte) error {
	return s.db.Put([]byte(prefixParams+name), value)
}

func (s *ProtocolState) ParamStoreGet(name string) ([]byte, bool, error) {
	return s.db.Get([]byte(prefixParams + name))
}

// --- record conversion ---

func loanToRecord(loan *loans.Loan) *loanRecord {
	rec := &loanRecord{
		ID:               loan.ID,
		Borrower:         loan.Terms.Borrower.Bytes(),
		InterestRate:     loan.Terms.InterestRate,
		CollateralRatio:  loan.Terms.CollateralRatio,
		Duration:         loan.Terms.Duration,
		TermsExpiry:      loan.TermsExpiry,
		LoanStartTime:    loan.LoanStartTime,
		LastCollateralIn: loan.LastCollateralIn,
		Status:           uint8(loan.Status),
		Liquidated:       loan.Liquidated,
	}
	if !loan.Terms.Recipient.IsZero() {
		rec.Recipient = loan.Terms.Recipient.Bytes()
	}
	if loan.Terms.MaxLoanAmount != nil {
		rec.MaxLoanAmount = loan.Terms.MaxLoanAmount.String()
	}
	rec.Collateral = loan.Collateral.String()
	rec.PrincipalOwed = loan.PrincipalOwed.String()
	rec.InterestOwed = loan.InterestOwed.String()
	return rec
}

func parseAmount(s string) (*big.Int, error) {
	if s == "" {
		return new(big.Int), nil
	}
	v, ok := new(big.Int).SetString(s, 10)
	if !ok || v.Sign() < 0 {
		return nil, fmt.Errorf("invalid amount %q", s)
	}
	return v, nil
}

func recordToLoan(rec *loanRecord) (*loans.Loan, error) {
	borrower, err := crypto.NewAddress(crypto.CredPrefix, rec.Borrower)
	if err != nil {
		return nil, fmt.Errorf("borrower address: %w", err)
	}
	loan := &loans.Loan{
		ID: rec.ID,
		Terms: loans.LoanTerms{
			Borrower:        borrower,
			InterestRate:    rec.InterestRate,
			CollateralRatio: rec.CollateralRatio,
			Duration:        rec.Duration,
		},
		TermsExpiry:      rec.TermsExpiry,
		LoanStartTime:    rec.LoanStartTime,
		LastCollateralIn: rec.LastCollateralIn,
		Status:           loans.Status(rec.Status),
		Liquidated:       rec.Liquidated,
	}
	if len(rec.Recipient) > 0 {
		recipient, err := crypto.NewAddress(crypto.CredPrefix, rec.Recipient)
		if err != nil {
			return nil, fmt.Errorf("recipient address: %w", err)
		}
		loan.Terms.Recipient = recipient
	}
	if rec.MaxLoanAmount != "" {
		loan.Terms.MaxLoanAmount, err = parseAmount(rec.MaxLoanAmount)
		if err != nil {
			return nil, fmt.Errorf("max loan amount: %w", err)
		}
	}
	if loan.Collateral, err = parseAmount(rec.Collateral); err != nil {
		return nil, fmt.Errorf("collateral: %w", err)
	}
	if loan.PrincipalOwed, err = parseAmount(rec.PrincipalOwed); err != nil {
		return nil, fmt.Errorf("principal owed: %w", err)
	}
	if loan.InterestOwed, err = parseAmount(rec.InterestOwed); err != nil {
		return nil, fmt.Errorf("interest owed: %w", err)
	}
	return loan, nil
}
