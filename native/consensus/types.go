package consensus

import (
	"math/big"

	"crednet/crypto"
)

// LoanTermsRequest is a borrower's ask for loan terms. It is immutable once
// hashed: every field participates in the request digest.
type LoanTermsRequest struct {
	// Borrower is the account requesting terms.
	Borrower crypto.Address
	// Recipient optionally redirects the principal draw-down. Zero means the
	// borrower receives the funds.
	Recipient crypto.Address
	// ConsensusAddress names the consensus instance the request targets.
	ConsensusAddress crypto.Address
	// RequestNonce is chosen by the borrower and may be consumed at most once.
	RequestNonce uint64
	// Amount is the requested principal in lending token base units.
	Amount *big.Int
	// Duration is the requested loan length in seconds.
	Duration int64
	// RequestTime is the unix timestamp the borrower assembled the request.
	RequestTime int64
}

// LoanTermsResponse is one signer node's attestation of acceptable terms for
// a request.
type LoanTermsResponse struct {
	// Signer is the oracle node address the signature must recover to.
	Signer crypto.Address
	// ConsensusAddress is the consensus instance the signer attested against.
	ConsensusAddress crypto.Address
	// ResponseTime is the unix timestamp of the attestation.
	ResponseTime int64
	// InterestRate is the proposed annual rate in basis points.
	InterestRate uint64
	// CollateralRatio is the proposed ratio in basis points. Values above
	// 10000 demand over-collateralization.
	CollateralRatio uint64
	// MaxLoanAmount caps the principal in lending token base units.
	MaxLoanAmount *big.Int
	// SignerNonce is chosen by the signer and may be consumed at most once
	// across all requests.
	SignerNonce uint64
	// Signature is the 65-byte secp256k1 signature over the domain-bound
	// response digest.
	Signature []byte
}

// ConsensusResult is the floor mean of every accepted response, field by
// field.
type ConsensusResult struct {
	InterestRate    uint64
	CollateralRatio uint64
	MaxLoanAmount   *big.Int
}

// SignerNonce pairs a signer with the nonce a round consumed.
type SignerNonce struct {
	Signer crypto.Address
	Nonce  uint64
}

// ConsumedRound is the atomic commitment of a successful consensus round:
// every signer nonce, the borrower request nonce and the rate-limit
// timestamp are persisted together.
type ConsumedRound struct {
	SignerNonces []SignerNonce
	Borrower     crypto.Address
	RequestNonce uint64
	RequestedAt  int64
}
