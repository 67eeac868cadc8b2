package consensus

import (
	"bytes"
	"errors"
	"testing"

	"crednet/crypto"
)

type adminOnlyRoles struct{ admin crypto.Address }

func (r adminOnlyRoles) HasRole(role string, addr []byte) bool {
	return role == RoleOracleAdmin && bytes.Equal(addr, r.admin.Bytes())
}

func TestRegistryRoleGate(t *testing.T) {
	admin := fixedAddress(0x0a)
	stranger := fixedAddress(0x0b)
	signer := fixedAddress(0x51)
	registry := NewRegistry(adminOnlyRoles{admin: admin})

	if err := registry.AddSigner(stranger, signer); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
	if err := registry.AddSigner(admin, signer); err != nil {
		t.Fatalf("add signer: %v", err)
	}
	if !registry.IsSigner(signer) {
		t.Fatalf("signer must be registered")
	}
	if err := registry.RemoveSigner(stranger, signer); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
	if err := registry.RemoveSigner(admin, signer); err != nil {
		t.Fatalf("remove signer: %v", err)
	}
	if registry.IsSigner(signer) {
		t.Fatalf("signer must be gone")
	}
}

func TestRegistrySetSemantics(t *testing.T) {
	admin := fixedAddress(0x0a)
	signer := fixedAddress(0x51)
	registry := NewRegistry(adminOnlyRoles{admin: admin})

	if err := registry.AddSigner(admin, signer); err != nil {
		t.Fatalf("add signer: %v", err)
	}
	if err := registry.AddSigner(admin, signer); err != nil {
		t.Fatalf("duplicate add must be a no-op: %v", err)
	}
	if got := registry.SignerCount(); got != 1 {
		t.Fatalf("expected one signer, got %d", got)
	}
	if err := registry.RemoveSigner(admin, fixedAddress(0x52)); err != nil {
		t.Fatalf("removing an unknown signer must be a no-op: %v", err)
	}
	if got := registry.SignerCount(); got != 1 {
		t.Fatalf("expected one signer, got %d", got)
	}
}

func TestRegistrySignersSorted(t *testing.T) {
	admin := fixedAddress(0x0a)
	registry := NewRegistry(adminOnlyRoles{admin: admin})
	for _, fill := range []byte{0x53, 0x51, 0x52} {
		if err := registry.AddSigner(admin, fixedAddress(fill)); err != nil {
			t.Fatalf("add signer: %v", err)
		}
	}
	signers := registry.Signers()
	if len(signers) != 3 {
		t.Fatalf("expected three signers, got %d", len(signers))
	}
	for i := 1; i < len(signers); i++ {
		if bytes.Compare(signers[i-1].Bytes(), signers[i].Bytes()) >= 0 {
			t.Fatalf("signers must come back in byte order")
		}
	}
}

func TestRegistryNilGateLocks(t *testing.T) {
	registry := NewRegistry(nil)
	if err := registry.AddSigner(fixedAddress(0x0a), fixedAddress(0x51)); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("nil gate must lock mutations, got %v", err)
	}
}
