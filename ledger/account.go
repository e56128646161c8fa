package ledger

import (
	"sort"
	"strings"

	"github.com/mfriedlander/ledgerd/ast"
	"github.com/shopspring/decimal"
)

// AccountType mirrors ast.AccountType so callers in this package don't need
// to import ast just to name a root category.
type AccountType = ast.AccountType

const (
	AccountTypeUnknown     AccountType = 0
	AccountTypeAssets      AccountType = ast.AccountTypeAssets
	AccountTypeLiabilities AccountType = ast.AccountTypeLiabilities
	AccountTypeEquity      AccountType = ast.AccountTypeEquity
	AccountTypeIncome      AccountType = ast.AccountTypeIncome
	AccountTypeExpenses    AccountType = ast.AccountTypeExpenses
)

// ParseAccountType returns the account's root category, or AccountTypeUnknown
// if the account has no recognized root. Unlike ast.Account.Type, it never
// panics, since validation may need to classify names before they're known
// to be well-formed.
func ParseAccountType(account ast.Account) AccountType {
	idx := strings.IndexByte(string(account), ':')
	if idx < 0 {
		return AccountTypeUnknown
	}
	switch string(account)[:idx] {
	case "Assets":
		return AccountTypeAssets
	case "Liabilities":
		return AccountTypeLiabilities
	case "Equity":
		return AccountTypeEquity
	case "Income":
		return AccountTypeIncome
	case "Expenses":
		return AccountTypeExpenses
	default:
		return AccountTypeUnknown
	}
}

// Account represents an account in the ledger
type Account struct {
	Name                 ast.Account
	Type                 ast.AccountType
	OpenDate             *ast.Date
	CloseDate            *ast.Date
	ConstraintCurrencies []string
	Booking              Booking
	Metadata             []*ast.Metadata
	Inventory            *Inventory // Inventory with lot tracking
	Postings             []*AccountPosting
}

// AccountPosting records a single posting applied to an account, alongside the
// transaction it came from, for history queries (register reports, lot tracing).
type AccountPosting struct {
	Transaction *ast.Transaction
	Posting     *ast.Posting
}

// IsOpen returns true if the account is open at the given date
func (a *Account) IsOpen(date *ast.Date) bool {
	if a.OpenDate == nil {
		return false
	}

	// Account must be opened before or on the date
	if a.OpenDate.After(date.Time) {
		return false
	}

	// If there's a close date, check that the date is not after closing
	// Transactions are allowed ON the close date, but not AFTER
	if a.CloseDate != nil && date.After(a.CloseDate.Time) {
		return false
	}

	return true
}

// IsClosed returns true if the account has been closed
func (a *Account) IsClosed() bool {
	return a.CloseDate != nil
}

// HasMetadata returns true if the account has metadata
func (a *Account) HasMetadata() bool {
	return len(a.Metadata) > 0
}

// GetParent returns the parent account path.
// For example, GetParent("Assets:US:Checking") returns "Assets:US".
// Returns empty string if the account has no parent (only one segment).
func (a *Account) GetParent() string {
	parts := strings.Split(string(a.Name), ":")
	if len(parts) < 2 {
		return ""
	}
	return strings.Join(parts[:len(parts)-1], ":")
}

// GetBalance returns the balance for this account (not including children).
// Returns a map of commodity to decimal amount.
func (a *Account) GetBalance() map[string]decimal.Decimal {
	result := make(map[string]decimal.Decimal)
	for _, currency := range a.Inventory.Currencies() {
		result[currency] = a.Inventory.GetCurrencyUnits(currency).Decimal()
	}
	return result
}

// GetBalanceInPeriod returns the net change in this account's postings whose
// transaction date falls within [start, end] inclusive. Used for income-statement
// style reporting, where the figure of interest is the period's activity rather
// than a point-in-time inventory snapshot.
func (a *Account) GetBalanceInPeriod(start, end ast.Date) *Balance {
	result := NewBalance()
	for _, ap := range a.Postings {
		date := ap.Transaction.Date
		if date == nil || date.Before(start.Time) || date.After(end.Time) {
			continue
		}
		if ap.Posting.Amount == nil {
			continue
		}
		amount, err := ParseAmount(ap.Posting.Amount)
		if err != nil {
			continue
		}
		result.Add(ap.Posting.Amount.Currency, amount)
	}
	return result
}

// GetChildren returns direct child accounts.
// For example, if this account is "Assets", returns child accounts like "Assets:US" and "Assets:Investments".
// Only children that are themselves accounts in the ledger are returned; a child path
// with no account of its own (e.g. "Assets:US" when only "Assets:US:Checking" is open)
// is skipped.
func (a *Account) GetChildren(l *Ledger) []*Account {
	parentPath := string(a.Name)
	prefix := parentPath + ":"
	seen := make(map[string]bool)
	var childPaths []string

	accountsMap := l.Accounts()
	for accountName := range accountsMap {
		if strings.HasPrefix(accountName, prefix) {
			remainder := strings.TrimPrefix(accountName, prefix)
			// Extract only the first segment (direct child)
			firstSegment := strings.Split(remainder, ":")[0]
			childPath := parentPath + ":" + firstSegment

			if !seen[childPath] {
				childPaths = append(childPaths, childPath)
				seen[childPath] = true
			}
		}
	}

	// Return Account structs, sorted by name
	sort.Strings(childPaths)
	var children []*Account
	for _, path := range childPaths {
		if child, ok := accountsMap[path]; ok {
			children = append(children, child)
		}
	}
	return children
}

// GetSubtreeBalance returns the aggregated balance for this account and all its descendants.
// Useful for balance sheet reporting where parent balances sum their children.
// Returns a map of commodity to total decimal amount.
func (a *Account) GetSubtreeBalance(l *Ledger) map[string]decimal.Decimal {
	result := make(map[string]decimal.Decimal)

	// Add this account's direct balance
	for currency, amount := range a.GetBalance() {
		result[currency] = amount
	}

	// Add all descendants recursively
	a.addDescendantBalances(l, result)
	return result
}

// addDescendantBalances accumulates balances from every account below a,
// including accounts whose intermediate parents were never opened.
func (a *Account) addDescendantBalances(l *Ledger, result map[string]decimal.Decimal) {
	prefix := string(a.Name) + ":"
	for name, descendant := range l.Accounts() {
		if !strings.HasPrefix(name, prefix) {
			continue
		}
		for currency, amount := range descendant.GetBalance() {
			result[currency] = result[currency].Add(amount)
		}
	}
}
