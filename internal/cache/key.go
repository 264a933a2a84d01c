package cache

import (
	"strconv"
	"strings"
)

// Kind names a cached collection type.
type Kind string

const (
	KindWallet             Kind = "wallet"
	KindTransaction        Kind = "transaction"
	KindLabel              Kind = "label"
	KindGoal               Kind = "goal"
	KindProject            Kind = "project"
	KindProjectStatistics  Kind = "project_statistics"
	KindProjectTransaction Kind = "project_transaction"
)

// Kinds lists every cached kind.
var Kinds = []Kind{
	KindWallet,
	KindTransaction,
	KindLabel,
	KindGoal,
	KindProject,
	KindProjectStatistics,
	KindProjectTransaction,
}

// Key addresses one cached read. Scope narrows project-bound kinds to a
// project id; Variant is the serialized filter.
type Key struct {
	Kind      Kind
	AccountID string
	Scope     string
	Variant   string
}

func (k Key) String() string {
	var b strings.Builder
	b.WriteString(string(k.Kind))
	for _, part := range []string{k.AccountID, k.Scope, k.Variant} {
		b.WriteByte('|')
		b.WriteString(strconv.Quote(part))
	}
	return b.String()
}

// Target selects the keys an invalidation applies to. An empty Scope
// matches every scope of the kind.
type Target struct {
	Kind      Kind   `json:"kind"`
	AccountID string `json:"accountId"`
	Scope     string `json:"scope,omitempty"`
}

// All targets every key of kind under the account.
func All(kind Kind, accountID string) Target {
	return Target{Kind: kind, AccountID: accountID}
}

// Scoped targets the keys of kind bound to scope.
func Scoped(kind Kind, accountID, scope string) Target {
	return Target{Kind: kind, AccountID: accountID, Scope: scope}
}

func (t Target) Matches(k Key) bool {
	if t.Kind != k.Kind || t.AccountID != k.AccountID {
		return false
	}
	return t.Scope == "" || t.Scope == k.Scope
}

func (t Target) String() string {
	scope := t.Scope
	if scope == "" {
		scope = "*"
	}
	return string(t.Kind) + "(" + t.AccountID + "/" + scope + ")"
}
