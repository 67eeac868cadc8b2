package consensus

import (
	"errors"
	"math/big"
	"testing"
)

func testRequest() *LoanTermsRequest {
	return &LoanTermsRequest{
		Borrower:         fixedAddress(0xb0),
		Recipient:        fixedAddress(0xb1),
		ConsensusAddress: fixedAddress(0xc0),
		RequestNonce:     7,
		Amount:           big.NewInt(1_000_000),
		Duration:         604800,
		RequestTime:      1_700_000_000,
	}
}

func testResponse() *LoanTermsResponse {
	return &LoanTermsResponse{
		Signer:           fixedAddress(0x51),
		ConsensusAddress: fixedAddress(0xc0),
		ResponseTime:     1_700_000_000,
		InterestRate:     1400,
		CollateralRatio:  6000,
		MaxLoanAmount:    big.NewInt(2_000_000),
		SignerNonce:      42,
	}
}

func TestHashRequestDeterministic(t *testing.T) {
	hasher := NewHasher(1, fixedAddress(0xc0))
	a, err := hasher.HashRequest(testRequest())
	if err != nil {
		t.Fatalf("hash request: %v", err)
	}
	b, err := hasher.HashRequest(testRequest())
	if err != nil {
		t.Fatalf("hash request: %v", err)
	}
	if a != b {
		t.Fatalf("identical requests must hash identically")
	}
}

func TestHashRequestSensitiveToEveryField(t *testing.T) {
	hasher := NewHasher(1, fixedAddress(0xc0))
	base, err := hasher.HashRequest(testRequest())
	if err != nil {
		t.Fatalf("hash request: %v", err)
	}

	mutations := map[string]func(*LoanTermsRequest){
		"borrower":  func(r *LoanTermsRequest) { r.Borrower = fixedAddress(0xbb) },
		"recipient": func(r *LoanTermsRequest) { r.Recipient = fixedAddress(0xbb) },
		"consensus": func(r *LoanTermsRequest) { r.ConsensusAddress = fixedAddress(0xbb) },
		"nonce":     func(r *LoanTermsRequest) { r.RequestNonce++ },
		"amount":    func(r *LoanTermsRequest) { r.Amount = big.NewInt(1_000_001) },
		"duration":  func(r *LoanTermsRequest) { r.Duration++ },
		"time":      func(r *LoanTermsRequest) { r.RequestTime++ },
	}
	for name, mutate := range mutations {
		req := testRequest()
		mutate(req)
		got, err := hasher.HashRequest(req)
		if err != nil {
			t.Fatalf("%s: hash request: %v", name, err)
		}
		if got == base {
			t.Fatalf("%s: mutated request must change the digest", name)
		}
	}
}

func TestHashBindsChainAndInstance(t *testing.T) {
	req := testRequest()
	base, err := NewHasher(1, fixedAddress(0xc0)).HashRequest(req)
	if err != nil {
		t.Fatalf("hash request: %v", err)
	}
	otherChain, err := NewHasher(2, fixedAddress(0xc0)).HashRequest(req)
	if err != nil {
		t.Fatalf("hash request: %v", err)
	}
	otherInstance, err := NewHasher(1, fixedAddress(0xc1)).HashRequest(req)
	if err != nil {
		t.Fatalf("hash request: %v", err)
	}
	if base == otherChain {
		t.Fatalf("chain id must bind the digest")
	}
	if base == otherInstance {
		t.Fatalf("instance address must bind the digest")
	}
}

func TestHashResponseBindsRequestHash(t *testing.T) {
	hasher := NewHasher(1, fixedAddress(0xc0))
	resp := testResponse()
	var a, b [32]byte
	a[0], b[0] = 1, 2
	da, err := hasher.HashResponse(resp, a)
	if err != nil {
		t.Fatalf("hash response: %v", err)
	}
	db, err := hasher.HashResponse(resp, b)
	if err != nil {
		t.Fatalf("hash response: %v", err)
	}
	if da == db {
		t.Fatalf("response digest must depend on the request digest")
	}
}

func TestHashRejectsOutOfRangeValues(t *testing.T) {
	hasher := NewHasher(1, fixedAddress(0xc0))

	req := testRequest()
	req.Amount = nil
	if _, err := hasher.HashRequest(req); !errors.Is(err, ErrValueOutOfRange) {
		t.Fatalf("nil amount: expected ErrValueOutOfRange, got %v", err)
	}

	req = testRequest()
	req.Amount = big.NewInt(-1)
	if _, err := hasher.HashRequest(req); !errors.Is(err, ErrValueOutOfRange) {
		t.Fatalf("negative amount: expected ErrValueOutOfRange, got %v", err)
	}

	req = testRequest()
	req.Amount = new(big.Int).Lsh(big.NewInt(1), 256)
	if _, err := hasher.HashRequest(req); !errors.Is(err, ErrValueOutOfRange) {
		t.Fatalf("257-bit amount: expected ErrValueOutOfRange, got %v", err)
	}

	req = testRequest()
	req.RequestTime = -1
	if _, err := hasher.HashRequest(req); !errors.Is(err, ErrValueOutOfRange) {
		t.Fatalf("negative timestamp: expected ErrValueOutOfRange, got %v", err)
	}
}
