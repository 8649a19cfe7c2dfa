package account

import "github.com/shopspring/decimal"

// DemoAccounts returns the accounts created on an empty store when demo
// seeding is enabled.
func DemoAccounts() []CreateParams {
	seed := func(name, balance string, months int, address string) CreateParams {
		b := decimal.RequireFromString(balance)
		return CreateParams{Name: &name, Balance: &b, NoOfMonths: &months, Address: &address}
	}

	return []CreateParams{
		seed("Dheekshith B G", "1000.50", 12, "123 Main St, Anytown"),
		seed("Ninad Agarwal", "500.00", 6, "456 Oak Ave, Othercity"),
		seed("Mouneesh", "200.00", 24, "789 Pine Ln, Somewhere"),
		seed("Mahith", "500.00", 25, "789 Pine Ln, Somewhere"),
	}
}
