package storage

import (
	"encoding/hex"
	"errors"
	"fmt"
	"math/big"
	"strings"

	"crednet/crypto"
)

// ErrInsufficientBalance rejects transfers beyond the source balance.
var ErrInsufficientBalance = errors.New("storage: insufficient token balance")

const prefixToken = "token/"

// TokenLedger is a database-backed token balance sheet for one symbol. It
// implements the transfer surface the loans engine moves funds through; the
// engine is the only writer, so no approval bookkeeping exists.
type TokenLedger struct {
	db       Database
	symbol   string
	decimals uint8
}

func NewTokenLedger(db Database, symbol string, decimals uint8) *TokenLedger {
	return &TokenLedger{db: db, symbol: strings.ToUpper(strings.TrimSpace(symbol)), decimals: decimals}
}

func (t *TokenLedger) balanceKey(addr crypto.Address) []byte {
	return []byte(prefixToken + t.symbol + "/" + hex.EncodeToString(addr.Bytes()))
}

func (t *TokenLedger) Symbol() string  { return t.symbol }
func (t *TokenLedger) Decimals() uint8 { return t.decimals }

func (t *TokenLedger) BalanceOf(addr crypto.Address) (*big.Int, error) {
	raw, ok, err := t.db.Get(t.balanceKey(addr))
	if err != nil {
		return nil, fmt.Errorf("storage: load %s balance: %w", t.symbol, err)
	}
	if !ok {
		return new(big.Int), nil
	}
	return parseAmount(string(raw))
}

func (t *TokenLedger) setBalance(addr crypto.Address, amount *big.Int) error {
	return t.db.Put(t.balanceKey(addr), []byte(amount.String()))
}

// Mint credits freshly issued units to an account. Used at genesis to seed
// the lending escrow.
func (t *TokenLedger) Mint(to crypto.Address, amount *big.Int) error {
	if amount == nil || amount.Sign() <= 0 {
		return fmt.Errorf("storage: mint amount must be positive")
	}
	bal, err := t.BalanceOf(to)
	if err != nil {
		return err
	}
	return t.setBalance(to, bal.Add(bal, amount))
}

// SeedBalance mints amount to an empty account and reports whether it did.
// A funded account is left alone, so a genesis allocation applies exactly
// once per database.
func (t *TokenLedger) SeedBalance(addr crypto.Address, amount *big.Int) (bool, error) {
	if amount == nil || amount.Sign() <= 0 {
		return false, nil
	}
	bal, err := t.BalanceOf(addr)
	if err != nil {
		return false, err
	}
	if bal.Sign() > 0 {
		return false, nil
	}
	if err := t.Mint(addr, amount); err != nil {
		return false, err
	}
	return true, nil
}

// TransferFrom moves amount between accounts, failing without effect when
// the source balance is short.
func (t *TokenLedger) TransferFrom(from, to crypto.Address, amount *big.Int) error {
	if amount == nil || amount.Sign() < 0 {
		return fmt.Errorf("storage: transfer amount must be non-negative")
	}
	if amount.Sign() == 0 || from.Equal(to) {
		return nil
	}
	src, err := t.BalanceOf(from)
	if err != nil {
		return err
	}
	if src.Cmp(amount) < 0 {
		return fmt.Errorf("%w: %s", ErrInsufficientBalance, t.symbol)
	}
	dst, err := t.BalanceOf(to)
	if err != nil {
		return err
	}
	return t.db.WriteBatch([]BatchEntry{
		{Key: t.balanceKey(from), Value: []byte(new(big.Int).Sub(src, amount).String())},
		{Key: t.balanceKey(to), Value: []byte(new(big.Int).Add(dst, amount).String())},
	})
}
