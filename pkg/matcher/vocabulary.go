package matcher

import (
	"github.com/aretw0/ussdflow/pkg/domain"
)

// Menu selects which level of the carrier menu is being answered.
type Menu string

const (
	MainMenu Menu = "main"
	SubMenu  Menu = "sub"
)

// FallbackDigit is used when neither matching nor the defaults table yields a digit.
const FallbackDigit = "1"

// Vocabulary holds the menu phrases per transaction type, in priority order.
type Vocabulary struct {
	Main map[domain.TransactionType][]string `mapstructure:"main" yaml:"main"`
	Sub  map[domain.TransactionType][]string `mapstructure:"sub" yaml:"sub"`
}

// DefaultVocabulary returns the phrases seen on MTN, Vodafone and AirtelTigo menus.
func DefaultVocabulary() Vocabulary {
	return Vocabulary{
		Main: map[domain.TransactionType][]string{
			domain.CashIn:          {"Merchant Payment", "Transfer Money", "Send Money"},
			domain.CashOut:         {"Cash Out", "Withdraw"},
			domain.AirtimeTransfer: {"Airtime", "Bundle"},
			domain.PayMerchant:     {"Merchant Payment", "Pay Merchant", "MoMoPay"},
			domain.Balance:         {"Financial Services", "Balance", "Check Balance"},
			domain.Commission:      {"Financial Services", "Mini Statement"},
		},
		Sub: map[domain.TransactionType][]string{
			domain.CashIn:          {"Send Money", "Buy Goods", "Pay Bill"},
			domain.CashOut:         {"Withdraw from Agent", "ATM Withdrawal"},
			domain.AirtimeTransfer: {"Transfer Airtime", "Buy Airtime"},
			domain.PayMerchant:     {"Pay Merchant", "Buy Goods"},
			domain.Balance:         {"Check Balance", "Balance Inquiry"},
			domain.Commission:      {"Mini Statement", "Statement"},
		},
	}
}

// Phrases returns the vocabulary for one menu level.
func (v Vocabulary) Phrases(menu Menu, t domain.TransactionType) []string {
	if menu == SubMenu {
		return v.Sub[t]
	}
	return v.Main[t]
}

// DefaultDigits is the per-type selector used when matching finds nothing,
// so a flow never stalls on unrecognised menu text.
type DefaultDigits struct {
	Main map[domain.TransactionType]string `mapstructure:"main" yaml:"main"`
	Sub  map[domain.TransactionType]string `mapstructure:"sub" yaml:"sub"`
}

// StandardDefaultDigits returns the built-in defaults table.
func StandardDefaultDigits() DefaultDigits {
	return DefaultDigits{
		Main: map[domain.TransactionType]string{
			domain.CashIn:          "3",
			domain.CashOut:         "2",
			domain.AirtimeTransfer: "4",
			domain.PayMerchant:     "1",
			domain.Balance:         "5",
			domain.Commission:      "5",
		},
		Sub: map[domain.TransactionType]string{
			domain.CashIn:          "3",
			domain.CashOut:         "1",
			domain.AirtimeTransfer: "3",
			domain.PayMerchant:     "1",
			domain.Balance:         "1",
			domain.Commission:      "1",
		},
	}
}

// Lookup returns the default digit, or FallbackDigit when the table has no entry.
func (d DefaultDigits) Lookup(menu Menu, t domain.TransactionType) string {
	table := d.Main
	if menu == SubMenu {
		table = d.Sub
	}
	if digit, ok := table[t]; ok && digit != "" {
		return digit
	}
	return FallbackDigit
}

// Merge overlays non-empty entries of other onto d.
func (d DefaultDigits) Merge(other DefaultDigits) DefaultDigits {
	out := DefaultDigits{
		Main: make(map[domain.TransactionType]string, len(d.Main)),
		Sub:  make(map[domain.TransactionType]string, len(d.Sub)),
	}
	for k, v := range d.Main {
		out.Main[k] = v
	}
	for k, v := range d.Sub {
		out.Sub[k] = v
	}
	for k, v := range other.Main {
		if v != "" {
			out.Main[k] = v
		}
	}
	for k, v := range other.Sub {
		if v != "" {
			out.Sub[k] = v
		}
	}
	return out
}

// SendLabels are the button captions treated as "send".
var SendLabels = []string{"Send", "OK", "Submit", "Continue", "Next", "Confirm"}

// Select resolves the digit for a menu screen: a vocabulary match first, the
// defaults table otherwise. matched reports which path was taken.
func Select(text string, menu Menu, t domain.TransactionType, vocab Vocabulary, defaults DefaultDigits) (digit string, matched bool) {
	if digit, ok := FindMenuOption(text, vocab.Phrases(menu, t)); ok {
		return digit, true
	}
	return defaults.Lookup(menu, t), false
}
