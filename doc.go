// Package token provides a composable, in-process single-asset token ledger
// for Go applications.
//
// Token is designed as a library, not a service. A Ledger tracks balances of
// one fungible unit across accounts, enforces owner-only administration and
// records every committed transfer and freeze in an ordered notification log.
// It provides:
//
//   - Atomic transfers with frozen and balance checks
//   - Owner-only minting, freezing, price setting and ownership transfer
//   - An append-only notification log readers pull by offset
//   - An optional notification journal (memory, SQLite, PostgreSQL, MongoDB)
//   - Plugin hooks for audit trails, metrics and event publishing
//
// # Quick Start
//
//	import (
//	    "github.com/xraph/token"
//	    "github.com/xraph/token/store/memory"
//	)
//
//	l := token.New(token.Genesis{
//	    Name:          "AmaliaToken",
//	    Symbol:        "Amal",
//	    InitialSupply: 10000,
//	    Owner:         "0xA",
//	}, token.WithStore(memory.New()))
//
//	if err := l.Start(ctx); err != nil {
//	    log.Fatal(err)
//	}
//	defer l.Stop()
//
//	if err := l.Transfer(ctx, "0xA", "0xB", 1000); err != nil {
//	    // errors.Is(err, token.ErrInsufficientBalance), ...
//	}
//
// # Authorization
//
// Callers are trusted for identity: every mutating method takes the claimed
// caller principal. SetPrices, FreezeAccount, MintToken and TransferOwnership
// require the caller to be the current owner and fail with ErrUnauthorized
// otherwise. Failed operations leave state and the notification log untouched.
//
// # Notifications
//
// Transfer and FreezeAccount emit one record each. MintToken emits two, in
// order: a Transfer from ZeroPrincipal to the owner, then a Transfer from the
// owner to the target. SetPrices and TransferOwnership emit none; plugins
// observe them through OnPricesSet and OnOwnershipTransferred.
//
// # Amounts
//
// Amounts are unsigned integers in the smallest unit. Decimals only affects
// display (Amount.Format) and parsing (ParseAmount); it defaults to 18.
//
// # TypeID
//
// Ledgers and notifications carry TypeIDs:
//
//	tok_01h2xcejqtf2nbrexx3vqjhp41  // Ledger ID
//	ntf_01h455vb4pex5vsknk084sn02q  // Notification ID
package token
