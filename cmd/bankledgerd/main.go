// Command bankledgerd runs the interactive banking menu over the ledger
// core. All authorization happens here at the boundary; the core performs
// none.
package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"bankledger/infra/initializer"
	"bankledger/pkg/domain"
	"bankledger/pkg/export"
	"bankledger/pkg/ledger"

	"github.com/fatih/color"
	"github.com/shopspring/decimal"
)

var (
	header = color.New(color.FgCyan, color.Bold)
	oops   = color.New(color.FgRed)
	okay   = color.New(color.FgGreen)
)

func main() {
	ctx := context.Background()
	app, err := initializer.New(ctx)
	if err != nil {
		fmt.Fprintln(os.Stderr, "startup failed:", err)
		os.Exit(1)
	}

	in := bufio.NewReader(os.Stdin)
	for {
		header.Println("\n=== BANK MANAGEMENT SYSTEM ===")
		fmt.Println("1) Add New User")
		fmt.Println("2) Open Account")
		fmt.Println("3) User Login")
		fmt.Println("4) Admin Panel")
		fmt.Println("5) Export Data")
		fmt.Println("6) Exit")

		switch prompt(in, "Enter your choice: ") {
		case "1":
			addUser(ctx, in, app.Ledger)
		case "2":
			openAccount(ctx, in, app.Ledger)
		case "3":
			userLogin(ctx, in, app.Ledger)
		case "4":
			adminPanel(ctx, in, app.Ledger, app.Config.App.ExportPath)
		case "5":
			exportData(app.Ledger, app.Config.App.ExportPath)
		case "6":
			exportData(app.Ledger, app.Config.App.ExportPath)
			okay.Println("Thank you for using Bank Management System!")
			return
		default:
			oops.Println("Invalid choice. Please try again.")
		}
	}
}

func addUser(ctx context.Context, in *bufio.Reader, led *ledger.Ledger) {
	header.Println("\n=== ADD NEW USER ===")
	first := prompt(in, "First name: ")
	last := prompt(in, "Last name: ")
	dob, err := time.Parse("2006-01-02", prompt(in, "Date of Birth (YYYY-MM-DD): "))
	if err != nil {
		oops.Println("Invalid date format. Please use YYYY-MM-DD.")
		return
	}
	mobile := prompt(in, "Mobile number (10 digits): ")
	email := prompt(in, "Email: ")
	aadhaar := prompt(in, "Aadhaar number (12 digits): ")
	pan := prompt(in, "PAN (format ABCDE1234F): ")
	password := prompt(in, "Password: ")
	if password != prompt(in, "Confirm password: ") {
		oops.Println("Passwords do not match.")
		return
	}

	o, err := led.RegisterOwner(ctx, domain.NewOwner().
		WithName(first, last).
		WithDateOfBirth(dob).
		WithContact(mobile, email).
		WithIdentifiers(aadhaar, pan).
		WithPassword(password))
	if err != nil {
		oops.Println("Error creating user:", err)
		return
	}
	okay.Printf("User created successfully! User ID: %d\n", o.ID)
}

func openAccount(ctx context.Context, in *bufio.Reader, led *ledger.Ledger) {
	header.Println("\n=== OPEN ACCOUNT ===")
	ownerID, ok := promptInt(in, "Enter User ID: ")
	if !ok {
		return
	}
	fmt.Println("1) Savings  2) Current  3) NRI")
	kind := domain.KindSavings
	switch prompt(in, "Account type: ") {
	case "2":
		kind = domain.KindCurrent
	case "3":
		kind = domain.KindNRI
	}
	code := prompt(in, "Set access code (6 digits): ")
	opening, ok := promptAmount(in, "Initial balance: ")
	if !ok {
		return
	}
	a, err := led.OpenAccount(ctx, ownerID, kind, code, opening)
	if err != nil {
		oops.Println("Error opening account:", err)
		return
	}
	okay.Printf("Account created successfully! Account No: %d (%s)\n", a.AccountNo, a.Kind)
	if a.Kind == domain.KindSavings {
		fmt.Println("Note: Savings account holders get access to mutual fund investments (Coming Soon).")
	}
}

func userLogin(ctx context.Context, in *bufio.Reader, led *ledger.Ledger) {
	header.Println("\n=== USER LOGIN ===")
	ownerID, ok := promptInt(in, "Enter User ID: ")
	if !ok {
		return
	}
	o, err := led.Owner(ownerID)
	if err != nil {
		oops.Println("User not found.")
		return
	}
	if !o.CheckPassword(prompt(in, "Password: ")) {
		oops.Println("Incorrect password.")
		return
	}
	accounts := led.AccountsOf(ownerID)
	if len(accounts) == 0 {
		oops.Println("No accounts found for this user.")
		return
	}
	for i, a := range accounts {
		fmt.Printf("%d) Account No: %d - %s - Balance: %s\n", i+1, a.AccountNo, a.Kind, a.Balance)
	}
	idx, ok := promptInt(in, "Select account: ")
	if !ok || idx < 1 || idx > int64(len(accounts)) {
		oops.Println("Invalid account choice.")
		return
	}
	accountMenu(ctx, in, led, o, accounts[idx-1].AccountNo)
}

func accountMenu(ctx context.Context, in *bufio.Reader, led *ledger.Ledger, o *domain.Owner, accountNo int64) {
	eng := led.Engine()
	for {
		header.Println("\n=== ACCOUNT MENU ===")
		fmt.Println("1) Check Balance  2) Deposit  3) Withdraw  4) Transfer")
		fmt.Println("5) Transaction History  6) Change Password  7) Logout")

		switch prompt(in, "Enter choice: ") {
		case "1":
			a, err := led.Account(accountNo)
			if err != nil {
				oops.Println(err)
				continue
			}
			fmt.Println("Current balance:", a.Balance)
		case "2":
			amount, ok := promptAmount(in, "Amount to deposit: ")
			if !ok {
				continue
			}
			bal, err := eng.Deposit(ctx, accountNo, amount)
			if err != nil {
				oops.Println("Deposit failed:", err)
				continue
			}
			okay.Println("Deposit successful. New balance:", bal)
		case "3":
			amount, ok := promptAmount(in, "Amount to withdraw: ")
			if !ok {
				continue
			}
			bal, err := eng.Withdraw(ctx, accountNo, amount)
			if err != nil {
				oops.Println("Withdrawal failed:", err)
				continue
			}
			okay.Println("Withdrawal successful. New balance:", bal)
		case "4":
			transfer(ctx, in, led, accountNo)
		case "5":
			a, err := led.Account(accountNo)
			if err != nil {
				oops.Println(err)
				continue
			}
			if len(a.History) == 0 {
				fmt.Println("No transactions yet.")
			}
			for _, e := range a.History {
				fmt.Printf("- %s %s\n", e.CreatedAt.Format("2006-01-02 15:04:05"), e.Note)
			}
		case "6":
			current := prompt(in, "Current password: ")
			next := prompt(in, "New password: ")
			if next != prompt(in, "Confirm new password: ") {
				oops.Println("Passwords do not match.")
				continue
			}
			if err := led.ChangePassword(ctx, o.ID, current, next); err != nil {
				oops.Println("Password change failed:", err)
				continue
			}
			okay.Println("Password changed successfully.")
		case "7":
			return
		default:
			oops.Println("Invalid choice.")
		}
	}
}

func transfer(ctx context.Context, in *bufio.Reader, led *ledger.Ledger, fromNo int64) {
	header.Println("\n=== TRANSFER MONEY ===")
	fmt.Println("1) By Account No  2) By Mobile Number")
	choice := prompt(in, "Enter choice: ")
	amountPrompt := func() (decimal.Decimal, bool) { return promptAmount(in, "Amount to transfer: ") }

	var (
		res *ledger.TransferResult
		err error
	)
	switch choice {
	case "1":
		toNo, ok := promptInt(in, "Recipient Account No: ")
		if !ok {
			return
		}
		amount, ok := amountPrompt()
		if !ok {
			return
		}
		res, err = led.Engine().Transfer(ctx, fromNo, toNo, amount)
	case "2":
		mobile := prompt(in, "Recipient Mobile Number: ")
		amount, ok := amountPrompt()
		if !ok {
			return
		}
		res, err = led.TransferByMobile(ctx, fromNo, mobile, amount)
	default:
		oops.Println("Invalid choice.")
		return
	}
	if err != nil {
		if errors.Is(err, domain.ErrResyncRequired) {
			oops.Println("Transfer failed and the ledger needs a resync; restart the process.")
			return
		}
		oops.Println("Transfer failed:", err)
		return
	}
	okay.Println("Transfer successful. Your new balance:", res.FromBalance)
}

func adminPanel(ctx context.Context, in *bufio.Reader, led *ledger.Ledger, exportPath string) {
	for {
		header.Println("\n=== ADMIN PANEL ===")
		fmt.Println("1) Search by Account No  2) Search by Name  3) Add Scheme")
		fmt.Println("4) Issue Card  5) Approve Loan  6) Delete Account  7) Back")

		switch prompt(in, "Enter choice: ") {
		case "1":
			no, ok := promptInt(in, "Account No: ")
			if !ok {
				continue
			}
			a, err := led.Account(no)
			if err != nil {
				oops.Println("Account not found.")
				continue
			}
			printAccount(led, a)
		case "2":
			name := prompt(in, "Full name: ")
			owners := led.FindOwnersByName(name)
			if len(owners) == 0 {
				fmt.Println("No users found with that name.")
				continue
			}
			for _, o := range owners {
				fmt.Printf("User ID: %d, Name: %s, Mobile: %s, Email: %s\n", o.ID, o.FullName(), o.Mobile, o.Email)
				for _, a := range led.AccountsOf(o.ID) {
					printAccount(led, a)
				}
			}
		case "3":
			no, ok := promptInt(in, "Account No: ")
			if !ok {
				continue
			}
			if err := led.AddScheme(ctx, no, prompt(in, "Scheme name: ")); err != nil {
				oops.Println(err)
				continue
			}
			okay.Println("Scheme added successfully.")
		case "4":
			no, ok := promptInt(in, "Account No: ")
			if !ok {
				continue
			}
			kind := ledger.CardDebit
			if prompt(in, "1) Debit 2) Credit: ") == "2" {
				kind = ledger.CardCredit
			}
			if err := led.IssueCard(ctx, no, kind); err != nil {
				oops.Println(err)
				continue
			}
			okay.Println("Card issued successfully.")
		case "5":
			no, ok := promptInt(in, "Account No: ")
			if !ok {
				continue
			}
			amount, ok := promptAmount(in, "Loan amount: ")
			if !ok {
				continue
			}
			if err := led.ApproveLoan(ctx, no, amount, prompt(in, "Loan type: ")); err != nil {
				oops.Println(err)
				continue
			}
			okay.Println("Loan approved successfully.")
		case "6":
			no, ok := promptInt(in, "Account No to delete: ")
			if !ok {
				continue
			}
			if err := led.DeleteAccount(ctx, no); err != nil {
				oops.Println(err)
				continue
			}
			okay.Println("Delete successful.")
		case "7":
			return
		default:
			oops.Println("Invalid choice.")
		}
	}
}

func printAccount(led *ledger.Ledger, a *domain.Account) {
	fmt.Printf("  Account No: %d, Type: %s, Balance: %s, Debit Card: %v, Credit Card: %v, Loan: %v\n",
		a.AccountNo, a.Kind, a.Balance, a.DebitCard, a.CreditCard, a.Loan)
	if len(a.Schemes) > 0 {
		fmt.Printf("  Schemes: %s\n", strings.Join(a.Schemes, ", "))
	}
}

func exportData(led *ledger.Ledger, path string) {
	f, err := os.Create(path)
	if err != nil {
		oops.Println("Error saving to file:", err)
		return
	}
	defer f.Close()
	if err := export.Write(f, led); err != nil {
		oops.Println("Error saving to file:", err)
		return
	}
	okay.Println("Data saved successfully to", path)
}

func prompt(in *bufio.Reader, label string) string {
	fmt.Print(label)
	line, _ := in.ReadString('\n')
	return strings.TrimSpace(line)
}

func promptInt(in *bufio.Reader, label string) (int64, bool) {
	v, err := strconv.ParseInt(prompt(in, label), 10, 64)
	if err != nil {
		oops.Println("Enter a valid number.")
		return 0, false
	}
	return v, true
}

func promptAmount(in *bufio.Reader, label string) (decimal.Decimal, bool) {
	v, err := decimal.NewFromString(prompt(in, label))
	if err != nil {
		oops.Println("Enter a valid amount.")
		return decimal.Zero, false
	}
	return v, true
}
