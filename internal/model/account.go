package model

import (
	"fmt"
	"time"
)

// AccountKind is the closed set of account types an institution export can target.
type AccountKind string

// Account kinds.
const (
	KindChecking     AccountKind = "checking"
	KindCreditCard   AccountKind = "credit_card"
	KindLineOfCredit AccountKind = "line_of_credit"
	KindPayroll      AccountKind = "payroll"
)

// AccountKinds lists every valid account kind.
var AccountKinds = []AccountKind{KindChecking, KindCreditCard, KindLineOfCredit, KindPayroll}

// ParseAccountKind validates s against the closed set of account kinds.
func ParseAccountKind(s string) (AccountKind, error) {
	for _, k := range AccountKinds {
		if string(k) == s {
			return k, nil
		}
	}
	return "", fmt.Errorf("invalid account kind %q", s)
}

// Account is an institution-backed money container.
type Account struct {
	CreatedAt   time.Time
	Name        string
	Kind        AccountKind
	Institution string
	LastFour    string
	ID          int64
}
