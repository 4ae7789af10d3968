// Package export writes the plain-text ledger report: users, accounts and
// a summary section.
package export

import (
	"fmt"
	"io"
	"strings"
	"time"

	"bankledger/pkg/domain"
	"bankledger/pkg/ledger"

	"github.com/shopspring/decimal"
)

const reportedEntries = 5

// Write renders the full report for led to w.
func Write(w io.Writer, led *ledger.Ledger) error {
	owners := led.Owners()

	var b strings.Builder
	rule := strings.Repeat("=", 50)
	minor := strings.Repeat("-", 50)

	b.WriteString(rule + "\n")
	b.WriteString("        BANK DATA EXPORT\n")
	b.WriteString("        " + time.Now().Format("2006-01-02") + "\n")
	b.WriteString(rule + "\n\n")

	b.WriteString("USERS\n" + minor + "\n")
	for _, o := range owners {
		fmt.Fprintf(&b, "USER ID: %d\n", o.ID)
		fmt.Fprintf(&b, "Name: %s\n", o.FullName())
		fmt.Fprintf(&b, "DOB: %s\n", o.DateOfBirth.Format("2006-01-02"))
		fmt.Fprintf(&b, "Mobile: %s\n", o.Mobile)
		fmt.Fprintf(&b, "Email: %s\n", o.Email)
		b.WriteString(strings.Repeat("-", 30) + "\n")
	}
	b.WriteString("\n")

	b.WriteString("ACCOUNTS\n" + minor + "\n")
	var (
		totalAccounts, debitCards, creditCards, loans int
		kinds                                         = map[domain.Kind]int{}
		totalBalance                                  = decimal.Zero
	)
	for _, o := range owners {
		for _, a := range led.AccountsOf(o.ID) {
			totalAccounts++
			totalBalance = totalBalance.Add(a.Balance)
			kinds[a.Kind]++
			if a.DebitCard {
				debitCards++
			}
			if a.CreditCard {
				creditCards++
			}
			if a.Loan {
				loans++
			}

			fmt.Fprintf(&b, "User ID: %d\n", o.ID)
			fmt.Fprintf(&b, "Name: %s\n", o.FullName())
			fmt.Fprintf(&b, "Account No: %d\n", a.AccountNo)
			fmt.Fprintf(&b, "Account Type: %s\n", a.Kind)
			fmt.Fprintf(&b, "Balance: %s\n", a.Balance)
			fmt.Fprintf(&b, "Debit Card: %s\n", yesNo(a.DebitCard))
			fmt.Fprintf(&b, "Credit Card: %s\n", yesNo(a.CreditCard))
			fmt.Fprintf(&b, "Loan: %s\n", yesNo(a.Loan))
			if len(a.Schemes) > 0 {
				fmt.Fprintf(&b, "Schemes: %s\n", strings.Join(a.Schemes, ", "))
			}
			if len(a.History) > 0 {
				b.WriteString("Recent Transactions:\n")
				start := 0
				if len(a.History) > reportedEntries {
					start = len(a.History) - reportedEntries
				}
				for _, e := range a.History[start:] {
					fmt.Fprintf(&b, "  - %s %s\n", e.CreatedAt.Format("2006-01-02 15:04:05"), e.Note)
				}
			}
			if a.Kind == domain.KindSavings {
				b.WriteString("Mutual Funds: Coming Soon\n")
			}
			b.WriteString(strings.Repeat("-", 30) + "\n")
		}
	}

	b.WriteString("\nSUMMARY\n" + minor + "\n")
	fmt.Fprintf(&b, "Total Users: %d\n", len(owners))
	fmt.Fprintf(&b, "Total Accounts: %d\n", totalAccounts)
	fmt.Fprintf(&b, "  - Savings Accounts: %d\n", kinds[domain.KindSavings])
	fmt.Fprintf(&b, "  - Current Accounts: %d\n", kinds[domain.KindCurrent])
	fmt.Fprintf(&b, "  - NRI Accounts: %d\n", kinds[domain.KindNRI])
	fmt.Fprintf(&b, "Total Balance: %s\n", totalBalance)
	fmt.Fprintf(&b, "Debit Cards Issued: %d\n", debitCards)
	fmt.Fprintf(&b, "Credit Cards Issued: %d\n", creditCards)
	fmt.Fprintf(&b, "Loans Approved: %d\n", loans)
	b.WriteString(rule + "\n")

	_, err := io.WriteString(w, b.String())
	return err
}

func yesNo(v bool) string {
	if v {
		return "Yes"
	}
	return "No"
}
