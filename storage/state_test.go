package storage

import (
	"math/big"
	"testing"

	"crednet/crypto"
	"crednet/native/consensus"
	"crednet/native/loans"
)

func stateAddress(fill byte) crypto.Address {
	raw := make([]byte, crypto.AddressLength)
	for i := range raw {
		raw[i] = fill
	}
	return crypto.MustNewAddress(crypto.CredPrefix, raw)
}

func TestNextLoanIDSequential(t *testing.T) {
	state := NewProtocolState(NewMemDB())
	first, err := state.NextLoanID()
	if err != nil {
		t.Fatalf("next id: %v", err)
	}
	second, err := state.NextLoanID()
	if err != nil {
		t.Fatalf("next id: %v", err)
	}
	if first != 1 || second != 2 {
		t.Fatalf("expected ids 1,2 got %d,%d", first, second)
	}
}

func TestLoanRoundTrip(t *testing.T) {
	state := NewProtocolState(NewMemDB())
	loan := &loans.Loan{
		ID: 7,
		Terms: loans.LoanTerms{
			Borrower:        stateAddress(0xb0),
			Recipient:       stateAddress(0xb1),
			InterestRate:    1400,
			CollateralRatio: 6000,
			MaxLoanAmount:   big.NewInt(2_000_000),
			Duration:        604800,
		},
		TermsExpiry:      1_700_003_600,
		LoanStartTime:    1_700_000_100,
		Collateral:       big.NewInt(40),
		LastCollateralIn: 1_700_000_000,
		PrincipalOwed:    big.NewInt(50),
		InterestOwed:     big.NewInt(5),
		Status:           loans.StatusActive,
		Liquidated:       false,
	}
	if err := state.PutLoan(loan); err != nil {
		t.Fatalf("put loan: %v", err)
	}
	got, ok, err := state.GetLoan(7)
	if err != nil {
		t.Fatalf("get loan: %v", err)
	}
	if !ok {
		t.Fatalf("loan must exist")
	}
	if !got.Terms.Borrower.Equal(loan.Terms.Borrower) || !got.Terms.Recipient.Equal(loan.Terms.Recipient) {
		t.Fatalf("addresses must round trip")
	}
	if got.Terms.MaxLoanAmount.Cmp(loan.Terms.MaxLoanAmount) != 0 {
		t.Fatalf("max loan amount must round trip, got %s", got.Terms.MaxLoanAmount)
	}
	if got.PrincipalOwed.Cmp(loan.PrincipalOwed) != 0 || got.InterestOwed.Cmp(loan.InterestOwed) != 0 {
		t.Fatalf("debt must round trip")
	}
	if got.Status != loans.StatusActive {
		t.Fatalf("status must round trip, got %s", got.Status)
	}
}

func TestGetLoanUnknown(t *testing.T) {
	state := NewProtocolState(NewMemDB())
	_, ok, err := state.GetLoan(99)
	if err != nil {
		t.Fatalf("get loan: %v", err)
	}
	if ok {
		t.Fatalf("unknown loan must report not found")
	}
}

func TestCommitRoundMarksEverything(t *testing.T) {
	state := NewProtocolState(NewMemDB())
	signerA := stateAddress(0x51)
	signerB := stateAddress(0x52)
	borrower := stateAddress(0xb0)

	round := consensus.ConsumedRound{
		SignerNonces: []consensus.SignerNonce{
			{Signer: signerA, Nonce: 100},
			{Signer: signerB, Nonce: 200},
		},
		Borrower:     borrower,
		RequestNonce: 7,
		RequestedAt:  1_700_000_000,
	}
	if err := state.CommitRound(round); err != nil {
		t.Fatalf("commit round: %v", err)
	}

	for _, sn := range round.SignerNonces {
		used, err := state.SignerNonceUsed(sn.Signer, sn.Nonce)
		if err != nil {
			t.Fatalf("signer nonce used: %v", err)
		}
		if !used {
			t.Fatalf("signer nonce must read as consumed")
		}
	}
	used, err := state.RequestNonceUsed(borrower, 7)
	if err != nil {
		t.Fatalf("request nonce used: %v", err)
	}
	if !used {
		t.Fatalf("request nonce must read as consumed")
	}
	last, err := state.LastRequestTime(borrower)
	if err != nil {
		t.Fatalf("last request time: %v", err)
	}
	if last != 1_700_000_000 {
		t.Fatalf("expected last request 1700000000, got %d", last)
	}

	// Neighbouring nonces stay free.
	if used, _ := state.SignerNonceUsed(signerA, 101); used {
		t.Fatalf("unconsumed signer nonce must stay free")
	}
	if used, _ := state.RequestNonceUsed(borrower, 8); used {
		t.Fatalf("unconsumed request nonce must stay free")
	}
}

func TestParamStoreRoundTrip(t *testing.T) {
	state := NewProtocolState(NewMemDB())
	if _, ok, err := state.ParamStoreGet("protocol/settings"); err != nil || ok {
		t.Fatalf("unset param must be absent, ok=%v err=%v", ok, err)
	}
	if err := state.ParamStoreSet("protocol/settings", []byte(`{"maximumToleranceBps":320}`)); err != nil {
		t.Fatalf("param set: %v", err)
	}
	raw, ok, err := state.ParamStoreGet("protocol/settings")
	if err != nil {
		t.Fatalf("param get: %v", err)
	}
	if !ok || string(raw) != `{"maximumToleranceBps":320}` {
		t.Fatalf("param must round trip, got %q", raw)
	}
}
