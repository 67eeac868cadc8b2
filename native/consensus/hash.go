package consensus

import (
	"fmt"
	"math/big"

	ethcrypto "github.com/ethereum/go-ethereum/crypto"
	"github.com/holiman/uint256"

	"crednet/crypto"
)

// wordSize is the width of every encoded field. Fixed-width words keep the
// structural encoding collision resistant: no two distinct field sequences
// can concatenate to the same byte string.
const wordSize = 32

// Hasher derives the signing digests for loan terms requests and responses.
// Both digests are bound to a chain id and to one consensus instance, so a
// signature never verifies on another chain or against another instance.
type Hasher struct {
	chainID  uint64
	instance crypto.Address
}

// NewHasher binds a hasher to the chain and the consensus instance address.
func NewHasher(chainID uint64, instance crypto.Address) Hasher {
	return Hasher{chainID: chainID, instance: instance}
}

// HashRequest computes the keccak256 digest of the request. Field order is
// fixed and part of the protocol.
func (h Hasher) HashRequest(req *LoanTermsRequest) ([32]byte, error) {
	if req == nil {
		return [32]byte{}, fmt.Errorf("%w: nil request", ErrValueOutOfRange)
	}
	enc := newWordEncoder(9)
	enc.address(h.instance)
	enc.uint64(h.chainID)
	enc.address(req.Borrower)
	enc.address(req.Recipient)
	enc.address(req.ConsensusAddress)
	enc.uint64(req.RequestNonce)
	enc.bigInt(req.Amount)
	enc.unix(req.Duration)
	enc.unix(req.RequestTime)
	return enc.sum()
}

// HashResponse computes the keccak256 digest a signer commits to: the
// response fields concatenated with the digest of the request it answers.
func (h Hasher) HashResponse(resp *LoanTermsResponse, requestHash [32]byte) ([32]byte, error) {
	if resp == nil {
		return [32]byte{}, fmt.Errorf("%w: nil response", ErrValueOutOfRange)
	}
	enc := newWordEncoder(9)
	enc.address(h.instance)
	enc.uint64(h.chainID)
	enc.address(resp.ConsensusAddress)
	enc.unix(resp.ResponseTime)
	enc.uint64(resp.InterestRate)
	enc.uint64(resp.CollateralRatio)
	enc.bigInt(resp.MaxLoanAmount)
	enc.uint64(resp.SignerNonce)
	enc.word(requestHash)
	return enc.sum()
}

type wordEncoder struct {
	buf []byte
	err error
}

func newWordEncoder(words int) *wordEncoder {
	return &wordEncoder{buf: make([]byte, 0, words*wordSize)}
}

func (e *wordEncoder) address(addr crypto.Address) {
	if e.err != nil {
		return
	}
	var word [wordSize]byte
	raw := addr.Bytes()
	copy(word[wordSize-len(raw):], raw)
	e.buf = append(e.buf, word[:]...)
}

func (e *wordEncoder) uint64(v uint64) {
	if e.err != nil {
		return
	}
	word := uint256.NewInt(v).Bytes32()
	e.buf = append(e.buf, word[:]...)
}

func (e *wordEncoder) unix(v int64) {
	if e.err != nil {
		return
	}
	if v < 0 {
		e.err = fmt.Errorf("%w: negative timestamp", ErrValueOutOfRange)
		return
	}
	e.uint64(uint64(v))
}

func (e *wordEncoder) bigInt(v *big.Int) {
	if e.err != nil {
		return
	}
	if v == nil || v.Sign() < 0 {
		e.err = fmt.Errorf("%w: amount must be a non-negative integer", ErrValueOutOfRange)
		return
	}
	word, overflow := uint256.FromBig(v)
	if overflow {
		e.err = fmt.Errorf("%w: amount exceeds 256 bits", ErrValueOutOfRange)
		return
	}
	b32 := word.Bytes32()
	e.buf = append(e.buf, b32[:]...)
}

func (e *wordEncoder) word(w [wordSize]byte) {
	if e.err != nil {
		return
	}
	e.buf = append(e.buf, w[:]...)
}

func (e *wordEncoder) sum() ([32]byte, error) {
	if e.err != nil {
		return [32]byte{}, e.err
	}
	var digest [32]byte
	copy(digest[:], ethcrypto.Keccak256(e.buf))
	return digest, nil
}
