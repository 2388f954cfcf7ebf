package token

import "github.com/xraph/token/id"

// ID is the primary identifier type for all token entities.
type ID = id.ID

// Prefix identifies the entity type encoded in a TypeID.
type Prefix = id.Prefix
