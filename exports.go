package token

import (
	"github.com/xraph/token/notification"
	"github.com/xraph/token/types"
)

// Re-export common types for convenience so users don't have to import the
// types and notification packages.

// Amount is re-exported from types package.
type Amount = types.Amount

// Principal is re-exported from types package.
type Principal = types.Principal

// Entity is re-exported from types package.
type Entity = types.Entity

// Notification is re-exported from notification package.
type Notification = notification.Notification

// NotificationKind is re-exported from notification package.
type NotificationKind = notification.Kind

// ZeroPrincipal is the source of minted units.
const ZeroPrincipal = types.ZeroPrincipal

// Re-export notification kinds
const (
	KindTransfer    = notification.KindTransfer
	KindFrozenFunds = notification.KindFrozenFunds
)

// Re-export Amount helpers
var (
	ParseAmount = types.ParseAmount
	Sum         = types.Sum
)

// Re-export Entity constructor
var NewEntity = types.NewEntity
