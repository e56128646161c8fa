package ledger

// BalanceTree is a hierarchical view of account balances, rooted at the five
// account types (Assets, Liabilities, Equity, Income, Expenses). It's the
// shape consumed by balance sheet, income statement, and trial balance reports.
type BalanceTree struct {
	Roots      []*BalanceNode
	Currencies []string
	StartDate  *string
	EndDate    *string
}

// BalanceNode is a single node in a BalanceTree: either a virtual type root
// (Account == "") or a real account, aggregating its own postings plus
// everything under it in the hierarchy.
type BalanceNode struct {
	Name     string // Display name (e.g. "Assets:US:Checking" or "Assets" for a virtual root)
	Account  string // Full account name, empty for virtual type roots
	Depth    int
	Balance  *Balance
	Children []*BalanceNode
}
