package ledger

import (
	"bytes"
	"fmt"
	"sort"

	"github.com/mfriedlander/ledgerd/ast"
	"github.com/mfriedlander/ledgerd/formatter"
)

// Error types for ledger validation errors

// AccountNotOpenError is returned when a directive references an account that hasn't been opened
type AccountNotOpenError struct {
	Account   ast.Account
	Date      *ast.Date
	Directive ast.Directive // The directive that referenced the unopened account
}

func (e *AccountNotOpenError) Error() string {
	return fmt.Sprintf("%s: Invalid reference to unknown account '%s'", e.Date.Format("2006-01-02"), e.Account)
}

// FormatWithContext formats the full error message including the directive context.
// This produces output similar to bean-check, showing the complete directive.
func (e *AccountNotOpenError) FormatWithContext(f *formatter.Formatter) string {
	var buf bytes.Buffer

	buf.WriteString(e.Error())
	buf.WriteString("\n\n")

	if e.Directive != nil {
		if txn, ok := e.Directive.(*ast.Transaction); ok {
			var txnBuf bytes.Buffer
			directiveFormatter := formatter.New()
			if f != nil && f.CurrencyColumn > 0 {
				directiveFormatter = formatter.New(formatter.WithCurrencyColumn(f.CurrencyColumn))
			}

			if err := directiveFormatter.FormatTransaction(txn, &txnBuf); err == nil {
				indentLines(&buf, txnBuf.Bytes())
			}
		} else {
			buf.WriteString("   ")
			switch d := e.Directive.(type) {
			case *ast.Balance:
				fmt.Fprintf(&buf, "%s balance %s", d.Date.Format("2006-01-02"), d.Account)
				if d.Amount != nil {
					fmt.Fprintf(&buf, "  %s %s", d.Amount.Value, d.Amount.Currency)
				}
			case *ast.Pad:
				fmt.Fprintf(&buf, "%s pad %s %s", d.Date.Format("2006-01-02"), d.Account, d.AccountPad)
			case *ast.Note:
				fmt.Fprintf(&buf, "%s note %s %q", d.Date.Format("2006-01-02"), d.Account, d.Description)
			case *ast.Document:
				fmt.Fprintf(&buf, "%s document %s %q", d.Date.Format("2006-01-02"), d.Account, d.PathToDocument)
			}
			buf.WriteByte('\n')
		}
	}

	return buf.String()
}

// indentLines writes each line of b to buf, indented by 3 spaces, skipping blank lines.
func indentLines(buf *bytes.Buffer, b []byte) {
	for _, line := range bytes.Split(b, []byte("\n")) {
		if len(line) > 0 {
			buf.WriteString("   ")
			buf.Write(line)
			buf.WriteByte('\n')
		}
	}
}

func NewAccountNotOpenError(txn *ast.Transaction, account ast.Account) *AccountNotOpenError {
	return &AccountNotOpenError{Account: account, Date: txn.Date, Directive: txn}
}

func NewAccountNotOpenErrorFromBalance(balance *ast.Balance) *AccountNotOpenError {
	return &AccountNotOpenError{Account: balance.Account, Date: balance.Date, Directive: balance}
}

func NewAccountNotOpenErrorFromPad(pad *ast.Pad, account ast.Account) *AccountNotOpenError {
	return &AccountNotOpenError{Account: account, Date: pad.Date, Directive: pad}
}

func NewAccountNotOpenErrorFromNote(note *ast.Note) *AccountNotOpenError {
	return &AccountNotOpenError{Account: note.Account, Date: note.Date, Directive: note}
}

func NewAccountNotOpenErrorFromDocument(doc *ast.Document) *AccountNotOpenError {
	return &AccountNotOpenError{Account: doc.Account, Date: doc.Date, Directive: doc}
}

// AccountAlreadyOpenError is returned when trying to open an account that's already open
type AccountAlreadyOpenError struct {
	Account    ast.Account
	Date       *ast.Date
	OpenedDate *ast.Date
}

func (e *AccountAlreadyOpenError) Error() string {
	return fmt.Sprintf("%s: Account %s is already open (opened on %s)",
		e.Date.Format("2006-01-02"), e.Account, e.OpenedDate.Format("2006-01-02"))
}

func NewAccountAlreadyOpenError(open *ast.Open, openedDate *ast.Date) *AccountAlreadyOpenError {
	return &AccountAlreadyOpenError{Account: open.Account, Date: open.Date, OpenedDate: openedDate}
}

// AccountAlreadyClosedError is returned when trying to use or close an account that's already closed
type AccountAlreadyClosedError struct {
	Account    ast.Account
	Date       *ast.Date
	ClosedDate *ast.Date
}

func (e *AccountAlreadyClosedError) Error() string {
	return fmt.Sprintf("%s: Account %s is already closed (closed on %s)",
		e.Date.Format("2006-01-02"), e.Account, e.ClosedDate.Format("2006-01-02"))
}

func NewAccountAlreadyClosedError(close *ast.Close, closedDate *ast.Date) *AccountAlreadyClosedError {
	return &AccountAlreadyClosedError{Account: close.Account, Date: close.Date, ClosedDate: closedDate}
}

// AccountNotClosedError is returned when trying to close an account that was never opened
type AccountNotClosedError struct {
	Account ast.Account
	Date    *ast.Date
}

func (e *AccountNotClosedError) Error() string {
	return fmt.Sprintf("%s: Cannot close account %s that was never opened",
		e.Date.Format("2006-01-02"), e.Account)
}

func NewAccountNotClosedError(close *ast.Close) *AccountNotClosedError {
	return &AccountNotClosedError{Account: close.Account, Date: close.Date}
}

// TransactionNotBalancedError is returned when a transaction doesn't balance
type TransactionNotBalancedError struct {
	Date        *ast.Date          // Transaction date
	Narration   string             // Transaction narration
	Residuals   map[string]string  // currency -> amount string (unbalanced amounts)
	Transaction *ast.Transaction   // Full transaction for context rendering
}

func (e *TransactionNotBalancedError) Error() string {
	return fmt.Sprintf("%s: Transaction does not balance: %s", e.Date.Format("2006-01-02"), e.formatResiduals())
}

func (e *TransactionNotBalancedError) formatResiduals() string {
	if len(e.Residuals) == 0 {
		return ""
	}

	currencies := make([]string, 0, len(e.Residuals))
	for currency := range e.Residuals {
		currencies = append(currencies, currency)
	}
	sort.Strings(currencies)

	result := "("
	for i, currency := range currencies {
		if i > 0 {
			result += ", "
		}
		result += fmt.Sprintf("%s %s", e.Residuals[currency], currency)
	}
	result += ")"

	return result
}

// FormatWithContext formats the full error message including the transaction context.
func (e *TransactionNotBalancedError) FormatWithContext(f *formatter.Formatter) string {
	var buf bytes.Buffer

	buf.WriteString(e.Error())
	buf.WriteString("\n\n")

	if e.Transaction != nil {
		txnFormatter := formatter.New()
		if f != nil && f.CurrencyColumn > 0 {
			txnFormatter = formatter.New(formatter.WithCurrencyColumn(f.CurrencyColumn))
		}

		var txnBuf bytes.Buffer
		if err := txnFormatter.FormatTransaction(e.Transaction, &txnBuf); err == nil {
			indentLines(&buf, txnBuf.Bytes())
		}
	}

	return buf.String()
}

func NewTransactionNotBalancedError(txn *ast.Transaction, residuals map[string]string) *TransactionNotBalancedError {
	return &TransactionNotBalancedError{
		Date:        txn.Date,
		Narration:   txn.Narration,
		Residuals:   residuals,
		Transaction: txn,
	}
}

// InvalidAmountError is returned when an amount cannot be parsed
type InvalidAmountError struct {
	Date       *ast.Date
	Account    ast.Account
	Value      string
	Underlying error
}

func (e *InvalidAmountError) Error() string {
	return fmt.Sprintf("%s: Invalid amount %q for account %s: %v",
		e.Date.Format("2006-01-02"), e.Value, e.Account, e.Underlying)
}

func NewInvalidAmountError(txn *ast.Transaction, account ast.Account, value string, err error) *InvalidAmountError {
	return &InvalidAmountError{Date: txn.Date, Account: account, Value: value, Underlying: err}
}

func NewInvalidAmountErrorFromBalance(balance *ast.Balance, err error) *InvalidAmountError {
	value := ""
	if balance.Amount != nil {
		value = balance.Amount.Value
	}
	return &InvalidAmountError{Date: balance.Date, Account: balance.Account, Value: value, Underlying: err}
}

// BalanceMismatchError is returned when a balance assertion fails
type BalanceMismatchError struct {
	Date     *ast.Date
	Account  ast.Account
	Expected string // Expected amount
	Actual   string // Actual amount in inventory
	Currency string
}

func (e *BalanceMismatchError) Error() string {
	return fmt.Sprintf("%s: Balance mismatch for %s:\n  Expected: %s %s\n  Actual:   %s %s",
		e.Date.Format("2006-01-02"), e.Account,
		e.Expected, e.Currency,
		e.Actual, e.Currency)
}

func NewBalanceMismatchError(balance *ast.Balance, expected, actual, currency string) *BalanceMismatchError {
	return &BalanceMismatchError{
		Date:     balance.Date,
		Account:  balance.Account,
		Expected: expected,
		Actual:   actual,
		Currency: currency,
	}
}

// InvalidCostError is returned when a posting's cost specification is malformed.
type InvalidCostError struct {
	Date         *ast.Date
	Account      ast.Account
	PostingIndex int
	CostSpec     string
	Underlying   error
}

func (e *InvalidCostError) Error() string {
	return fmt.Sprintf("%s: Invalid cost specification (Posting #%d: %s): %s: %v",
		e.Date.Format("2006-01-02"), e.PostingIndex+1, e.Account, e.CostSpec, e.Underlying)
}

func NewInvalidCostError(txn *ast.Transaction, account ast.Account, index int, costSpec string, err error) *InvalidCostError {
	return &InvalidCostError{Date: txn.Date, Account: account, PostingIndex: index, CostSpec: costSpec, Underlying: err}
}

// InvalidPriceError is returned when a posting's price annotation is malformed.
type InvalidPriceError struct {
	Date         *ast.Date
	Account      ast.Account
	PostingIndex int
	PriceSpec    string
	Underlying   error
}

func (e *InvalidPriceError) Error() string {
	return fmt.Sprintf("%s: Invalid price specification (Posting #%d: %s): %s: %v",
		e.Date.Format("2006-01-02"), e.PostingIndex+1, e.Account, e.PriceSpec, e.Underlying)
}

func NewInvalidPriceError(txn *ast.Transaction, account ast.Account, index int, priceSpec string, err error) *InvalidPriceError {
	return &InvalidPriceError{Date: txn.Date, Account: account, PostingIndex: index, PriceSpec: priceSpec, Underlying: err}
}

// InvalidMetadataError is returned for duplicate keys or empty values in metadata.
type InvalidMetadataError struct {
	Date    *ast.Date
	Account ast.Account // empty when the metadata belongs to the transaction itself
	Key     string
	Value   *ast.MetadataValue
	Reason  string
}

func (e *InvalidMetadataError) Error() string {
	if e.Account == "" {
		return fmt.Sprintf("%s: Invalid metadata: key=%q, value=%q: %s",
			e.Date.Format("2006-01-02"), e.Key, e.Value.String(), e.Reason)
	}
	return fmt.Sprintf("%s: Invalid metadata (account %s): key=%q, value=%q: %s",
		e.Date.Format("2006-01-02"), e.Account, e.Key, e.Value.String(), e.Reason)
}

func NewInvalidMetadataError(txn *ast.Transaction, account ast.Account, key string, value *ast.MetadataValue, reason string) *InvalidMetadataError {
	return &InvalidMetadataError{Date: txn.Date, Account: account, Key: key, Value: value, Reason: reason}
}

// CurrencyConstraintError is returned when a posting uses a currency not in
// the account's open-directive constraint list.
type CurrencyConstraintError struct {
	Date     *ast.Date
	Account  ast.Account
	Currency string
	Allowed  []string
}

func (e *CurrencyConstraintError) Error() string {
	return fmt.Sprintf("%s: Account %s does not allow currency %s (allowed: %v)",
		e.Date.Format("2006-01-02"), e.Account, e.Currency, e.Allowed)
}

func NewCurrencyConstraintError(txn *ast.Transaction, account ast.Account, currency string, allowed []string) *CurrencyConstraintError {
	return &CurrencyConstraintError{Date: txn.Date, Account: account, Currency: currency, Allowed: allowed}
}

// InsufficientInventoryError is returned when a posting's reduction cannot be
// booked against the account's current holdings.
type InsufficientInventoryError struct {
	Date       *ast.Date
	Account    ast.Account
	Underlying error
}

func (e *InsufficientInventoryError) Error() string {
	return fmt.Sprintf("%s: Cannot reduce inventory for %s: %v", e.Date.Format("2006-01-02"), e.Account, e.Underlying)
}

func NewInsufficientInventoryError(txn *ast.Transaction, account ast.Account, err error) *InsufficientInventoryError {
	return &InsufficientInventoryError{Date: txn.Date, Account: account, Underlying: err}
}

// CategorizationError is returned when a transaction's postings cannot be
// grouped into unambiguous per-currency buckets before interpolation —
// e.g. more than one posting in the same currency bucket is missing its
// amount, or an empty cost spec's currency bucket can't be determined
// because more than one augmenting posting in that transaction needs cost
// inference at once.
type CategorizationError struct {
	Date      *ast.Date
	Narration string
	Reason    string
}

func (e *CategorizationError) Error() string {
	return fmt.Sprintf("%s: Cannot categorize postings for %q: %s", e.Date.Format("2006-01-02"), e.Narration, e.Reason)
}

func NewCategorizationError(txn *ast.Transaction, reason string) *CategorizationError {
	return &CategorizationError{Date: txn.Date, Narration: txn.Narration, Reason: reason}
}

// InterpolationError is returned when a transaction's missing amount(s)
// cannot be resolved to a single value — the residual spans more than one
// currency, or no residual is left to assign once a bucket has been
// categorized.
type InterpolationError struct {
	Date      *ast.Date
	Narration string
	Reason    string
}

func (e *InterpolationError) Error() string {
	return fmt.Sprintf("%s: Cannot interpolate missing amount for %q: %s", e.Date.Format("2006-01-02"), e.Narration, e.Reason)
}

func NewInterpolationError(txn *ast.Transaction, reason string) *InterpolationError {
	return &InterpolationError{Date: txn.Date, Narration: txn.Narration, Reason: reason}
}

// SelfReduxError is returned when a transaction both augments and reduces
// the same (account, currency) bucket with at least one leg whose cost is
// unbound ({} or {*}) — the booking method would have to consume a lot the
// same transaction is still in the middle of creating, which is ambiguous.
type SelfReduxError struct {
	Date      *ast.Date
	Account   ast.Account
	Currency  string
	Narration string
}

func (e *SelfReduxError) Error() string {
	return fmt.Sprintf("%s: Transaction %q reduces and augments %s in %s within the same transaction with an unbound cost",
		e.Date.Format("2006-01-02"), e.Narration, e.Account, e.Currency)
}

func NewSelfReduxError(txn *ast.Transaction, account ast.Account, currency string) *SelfReduxError {
	return &SelfReduxError{Date: txn.Date, Account: account, Currency: currency, Narration: txn.Narration}
}

// PadCostedPositionError is returned when a pad directive's padded account
// already holds one or more lots with a cost basis. A pad synthesizes a
// single uncosted posting to close the residual, which has no well-defined
// cost to assign against an existing costed lot.
type PadCostedPositionError struct {
	Date    *ast.Date
	Account ast.Account
}

func (e *PadCostedPositionError) Error() string {
	return fmt.Sprintf("%s: Cannot pad %s: account holds positions with cost", e.Date.Format("2006-01-02"), e.Account)
}

func NewPadCostedPositionError(pad *ast.Pad) *PadCostedPositionError {
	return &PadCostedPositionError{Date: pad.Date, Account: pad.Account}
}

// UnusedPadWarning reports a pad directive that was never consumed by a
// following balance assertion on the same account.
type UnusedPadWarning struct {
	Date       *ast.Date
	Account    ast.Account
	PadAccount ast.Account
}

func (e *UnusedPadWarning) Error() string {
	return fmt.Sprintf("%s: Unused pad directive for %s (no balance assertion followed)", e.Date.Format("2006-01-02"), e.Account)
}

func NewUnusedPadWarning(pad *ast.Pad) *UnusedPadWarning {
	return &UnusedPadWarning{Date: pad.Date, Account: pad.Account, PadAccount: pad.AccountPad}
}
