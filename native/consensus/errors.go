package consensus

import "errors"

var (
	// ErrUnauthorized rejects signer registry mutations from callers without
	// the oracle admin role.
	ErrUnauthorized = errors.New("consensus: unauthorized")
	// ErrUnauthorizedCaller rejects ProcessRequest calls from anything other
	// than the configured loans module.
	ErrUnauthorizedCaller = errors.New("consensus: caller not authorized")
	// ErrInsufficientResponses fails the quorum check.
	ErrInsufficientResponses = errors.New("consensus: insufficient number of responses")
	// ErrResponseExpired rejects responses older than the expiry window.
	ErrResponseExpired = errors.New("consensus: response expired")
	// ErrSignatureInvalid covers unrecoverable signatures, signatures that do
	// not match the declared signer and signers missing from the registry.
	// Signatures produced for another chain or consensus instance land here
	// too: the domain-bound digest recovers a different address.
	ErrSignatureInvalid = errors.New("consensus: signature invalid")
	// ErrSignerAlreadySubmitted rejects a second response from the same
	// signer within one call.
	ErrSignerAlreadySubmitted = errors.New("consensus: signer already submitted")
	// ErrSignerNonceTaken rejects a signer nonce consumed by an earlier round.
	ErrSignerNonceTaken = errors.New("consensus: signer nonce taken")
	// ErrRequestNonceTaken rejects a borrower request nonce consumed by an
	// earlier round.
	ErrRequestNonceTaken = errors.New("consensus: loan terms request nonce taken")
	// ErrResponsesTooVaried fails the tolerance check on any numeric field.
	ErrResponsesTooVaried = errors.New("consensus: responses too varied")
	// ErrValueOutOfRange rejects amounts that do not fit the fixed-width hash
	// encoding or negative timestamps.
	ErrValueOutOfRange = errors.New("consensus: value out of range")
	// ErrNilState signals a mis-wired engine.
	ErrNilState = errors.New("consensus: state not configured")
)
