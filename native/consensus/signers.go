package consensus

import (
	"sort"

	"crednet/crypto"
)

// RoleOracleAdmin is the role allowed to mutate the signer registry.
const RoleOracleAdmin = "ROLE_ORACLE_ADMIN"

// RoleGate answers whether an address carries a named role. Governance owns
// the role assignments.
type RoleGate interface {
	HasRole(role string, addr []byte) bool
}

// Registry maintains the authorized oracle node address set. It is a plain
// mapping-backed set behind role-gated mutators: the signer set is derived
// from governance actions and does not need independent persistence.
type Registry struct {
	roles   RoleGate
	signers map[string]crypto.Address
}

// NewRegistry constructs an empty registry. A nil role gate locks the
// registry: every mutation is rejected.
func NewRegistry(roles RoleGate) *Registry {
	return &Registry{roles: roles, signers: make(map[string]crypto.Address)}
}

func (r *Registry) authorized(caller crypto.Address) bool {
	if r == nil || r.roles == nil {
		return false
	}
	return r.roles.HasRole(RoleOracleAdmin, caller.Bytes())
}

// AddSigner registers an oracle node address. Adding an address that is
// already registered is a no-op: the registry has set semantics.
func (r *Registry) AddSigner(caller, signer crypto.Address) error {
	if !r.authorized(caller) {
		return ErrUnauthorized
	}
	r.signers[string(signer.Bytes())] = signer
	return nil
}

// RemoveSigner deregisters an oracle node address. Removing an unknown
// address is a no-op.
func (r *Registry) RemoveSigner(caller, signer crypto.Address) error {
	if !r.authorized(caller) {
		return ErrUnauthorized
	}
	delete(r.signers, string(signer.Bytes()))
	return nil
}

// IsSigner reports whether the address is a registered oracle node.
func (r *Registry) IsSigner(addr crypto.Address) bool {
	if r == nil {
		return false
	}
	_, ok := r.signers[string(addr.Bytes())]
	return ok
}

// SignerCount returns the size of the registered signer set, the quorum
// denominator.
func (r *Registry) SignerCount() int {
	if r == nil {
		return 0
	}
	return len(r.signers)
}

// Signers lists the registered addresses in deterministic byte order.
func (r *Registry) Signers() []crypto.Address {
	if r == nil {
		return nil
	}
	keys := make([]string, 0, len(r.signers))
	for k := range r.signers {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([]crypto.Address, 0, len(keys))
	for _, k := range keys {
		out = append(out, r.signers[k])
	}
	return out
}
