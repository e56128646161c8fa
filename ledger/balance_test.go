package ledger

import (
	"context"
	"testing"

	"github.com/alecthomas/assert/v2"
	"github.com/mfriedlander/ledgerd/ast"
	"github.com/shopspring/decimal"
)

// TestAccountPostings_SimpleTransaction verifies that postings are recorded correctly
// when transactions are applied.
func TestAccountPostings_SimpleTransaction(t *testing.T) {
	l := New()
	assets, _ := ast.NewAccount("Assets:Cash")
	equity, _ := ast.NewAccount("Equity:Opening")

	date1, _ := ast.NewDate("2024-01-01")
	l.MustProcess(context.Background(), &ast.AST{
		Directives: []ast.Directive{
			&ast.Open{Date: date1, Account: assets},
			&ast.Open{Date: date1, Account: equity},
			ast.NewTransaction(date1, "Opening balance",
				ast.WithPostings(
					ast.NewPosting(assets, ast.WithAmount("100", "USD")),
					ast.NewPosting(equity),
				),
			),
		},
	})

	accounts := l.Accounts()
	account := accounts[string(assets)]
	assert.True(t, account != nil, "account should exist")
	assert.Equal(t, account.Name, assets)
	assert.Equal(t, len(account.Postings), 1)
	assert.Equal(t, account.Postings[0].Posting.Account, assets)
}

// TestGetBalanceInPeriod_MultipleTransactions verifies period filtering correctly
// includes only postings whose transaction date falls within [start, end].
func TestGetBalanceInPeriod_MultipleTransactions(t *testing.T) {
	l := New()
	assets, _ := ast.NewAccount("Assets:Cash")
	equity, _ := ast.NewAccount("Equity:Opening")
	expenses, _ := ast.NewAccount("Expenses:Food")

	date1, _ := ast.NewDate("2024-01-01")
	date2, _ := ast.NewDate("2024-02-01")
	date3, _ := ast.NewDate("2024-03-01")

	l.MustProcess(context.Background(), &ast.AST{
		Directives: []ast.Directive{
			&ast.Open{Date: date1, Account: assets},
			&ast.Open{Date: date1, Account: equity},
			&ast.Open{Date: date1, Account: expenses},
			ast.NewTransaction(date1, "Opening", ast.WithPostings(
				ast.NewPosting(assets, ast.WithAmount("1000", "USD")),
				ast.NewPosting(equity),
			)),
			ast.NewTransaction(date2, "Food", ast.WithPostings(
				ast.NewPosting(expenses, ast.WithAmount("50", "USD")),
				ast.NewPosting(assets),
			)),
			ast.NewTransaction(date3, "More food", ast.WithPostings(
				ast.NewPosting(expenses, ast.WithAmount("75", "USD")),
				ast.NewPosting(assets),
			)),
		},
	})

	expensesAccount := l.Accounts()[string(expenses)]
	assert.True(t, expensesAccount != nil, "expenses account should exist")
	assert.Equal(t, expensesAccount.Name, expenses)

	periodStart, _ := ast.NewDate("2024-02-01")
	periodEnd, _ := ast.NewDate("2024-02-28")
	balance := expensesAccount.GetBalanceInPeriod(*periodStart, *periodEnd)
	assert.Equal(t, 1, len(balance.Currencies()))
	assert.True(t, balance.Get("USD").Equal(decimal.NewFromInt(50)))
}

// TestGetBalanceTree_SimpleCase verifies balance tree construction for a single account.
func TestGetBalanceTree_SimpleCase(t *testing.T) {
	l := New()
	assets, _ := ast.NewAccount("Assets:Cash")
	equity, _ := ast.NewAccount("Equity:Opening")

	date1, _ := ast.NewDate("2024-01-01")
	date2, _ := ast.NewDate("2024-02-01")

	l.MustProcess(context.Background(), &ast.AST{
		Directives: []ast.Directive{
			&ast.Open{Date: date1, Account: assets},
			&ast.Open{Date: date1, Account: equity},
			ast.NewTransaction(date1, "Opening", ast.WithPostings(
				ast.NewPosting(assets, ast.WithAmount("100", "USD")),
				ast.NewPosting(equity),
			)),
		},
	})

	tree, err := l.GetBalanceTree(nil, nil, date2)
	assert.Zero(t, err)
	assert.NotZero(t, tree)
	assert.True(t, len(tree.Roots) > 0, "trial balance should have root nodes")
}

// TestGetBalanceTree_MultiCurrency verifies balance tree construction with multiple currencies.
func TestGetBalanceTree_MultiCurrency(t *testing.T) {
	l := New()
	assets, _ := ast.NewAccount("Assets:Cash")
	equity, _ := ast.NewAccount("Equity:Opening")

	date1, _ := ast.NewDate("2024-01-01")
	date2, _ := ast.NewDate("2024-02-01")

	l.MustProcess(context.Background(), &ast.AST{
		Directives: []ast.Directive{
			&ast.Open{Date: date1, Account: assets},
			&ast.Open{Date: date1, Account: equity},
			ast.NewTransaction(date1, "Opening USD", ast.WithPostings(
				ast.NewPosting(assets, ast.WithAmount("100", "USD")),
				ast.NewPosting(equity),
			)),
			ast.NewTransaction(date1, "Opening EUR", ast.WithPostings(
				ast.NewPosting(assets, ast.WithAmount("50", "EUR")),
				ast.NewPosting(equity),
			)),
		},
	})

	tree, err := l.GetBalanceTree(nil, nil, date2)
	assert.Zero(t, err)
	assert.NotZero(t, tree)
	assert.True(t, len(tree.Currencies) >= 2, "tree should report both currencies")
}

// TestGetBalanceTree_IncomeExpenses verifies filtering the tree to Income and Expenses roots.
func TestGetBalanceTree_IncomeExpenses(t *testing.T) {
	l := New()
	income, _ := ast.NewAccount("Income:Salary")
	expenses, _ := ast.NewAccount("Expenses:Food")
	assets, _ := ast.NewAccount("Assets:Cash")

	date1, _ := ast.NewDate("2024-01-01")
	date2, _ := ast.NewDate("2024-02-01")

	l.MustProcess(context.Background(), &ast.AST{
		Directives: []ast.Directive{
			&ast.Open{Date: date1, Account: income},
			&ast.Open{Date: date1, Account: expenses},
			&ast.Open{Date: date1, Account: assets},
			ast.NewTransaction(date2, "Salary", ast.WithPostings(
				ast.NewPosting(assets, ast.WithAmount("1000", "USD")),
				ast.NewPosting(income),
			)),
			ast.NewTransaction(date2, "Food", ast.WithPostings(
				ast.NewPosting(expenses, ast.WithAmount("50", "USD")),
				ast.NewPosting(assets),
			)),
		},
	})

	periodEnd, _ := ast.NewDate("2024-02-28")
	tree, err := l.GetBalanceTree([]ast.AccountType{ast.AccountTypeIncome, ast.AccountTypeExpenses}, nil, periodEnd)
	assert.Zero(t, err)
	assert.NotZero(t, tree)
	assert.Equal(t, 2, len(tree.Roots))
}
