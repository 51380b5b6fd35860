package matcher_test

import (
	"testing"

	"github.com/aretw0/ussdflow/pkg/domain"
	"github.com/aretw0/ussdflow/pkg/matcher"
	"github.com/stretchr/testify/assert"
)

func TestFindMenuOption(t *testing.T) {
	tests := []struct {
		name  string
		text  string
		vocab []string
		want  string
		found bool
	}{
		{"first line", "1. Send Money\n2. Withdraw", []string{"Send Money"}, "1", true},
		{"no match", "Random unrelated text", []string{"Send Money"}, "", false},
		{"second line", "1. Transfer\n2. Cash Out", []string{"Cash Out", "Withdraw"}, "2", true},
		{"case insensitive", "3) CASH OUT", []string{"cash out"}, "3", true},
		{"colon separator", "4: Airtime", []string{"Airtime"}, "4", true},
		{"no separator", "12 Check Balance", []string{"Check Balance"}, "12", true},
		{"digitless hit skipped", "Cash Out options\n5. Cash Out", []string{"Cash Out"}, "5", true},
		{"digitless only", "Withdraw money here", []string{"Withdraw"}, "", false},
		{"lines before phrases", "1. Withdraw\n2. Cash Out", []string{"Cash Out", "Withdraw"}, "1", true},
		{"priority within line", "7. Cash Out / 8. Withdraw", []string{"Withdraw", "Cash Out"}, "8", true},
		{"empty vocabulary", "1. Send Money", nil, "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := matcher.FindMenuOption(tt.text, tt.vocab)
			assert.Equal(t, tt.found, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSelect_FallsBackToDefaults(t *testing.T) {
	vocab := matcher.DefaultVocabulary()
	defaults := matcher.StandardDefaultDigits()

	digit, matched := matcher.Select("1. Transfer\n2. Cash Out", matcher.MainMenu, domain.CashOut, vocab, defaults)
	assert.True(t, matched)
	assert.Equal(t, "2", digit)

	digit, matched = matcher.Select("Welcome", matcher.MainMenu, domain.CashIn, vocab, defaults)
	assert.False(t, matched)
	assert.Equal(t, "3", digit)

	digit, _ = matcher.Select("Welcome", matcher.SubMenu, domain.CashOut, vocab, defaults)
	assert.Equal(t, "1", digit)
}

func TestDefaultDigits_Lookup(t *testing.T) {
	defaults := matcher.StandardDefaultDigits()
	for _, tt := range domain.TransactionTypes() {
		assert.NotEmpty(t, defaults.Lookup(matcher.MainMenu, tt), tt)
		assert.NotEmpty(t, defaults.Lookup(matcher.SubMenu, tt), tt)
	}

	empty := matcher.DefaultDigits{}
	assert.Equal(t, matcher.FallbackDigit, empty.Lookup(matcher.MainMenu, domain.CashIn))
}

func TestDefaultDigits_Merge(t *testing.T) {
	merged := matcher.StandardDefaultDigits().Merge(matcher.DefaultDigits{
		Main: map[domain.TransactionType]string{domain.CashIn: "1", domain.CashOut: ""},
	})
	assert.Equal(t, "1", merged.Lookup(matcher.MainMenu, domain.CashIn))
	assert.Equal(t, "2", merged.Lookup(matcher.MainMenu, domain.CashOut))
}

func TestExtractReference(t *testing.T) {
	tests := []struct {
		text  string
		want  string
		found bool
	}{
		{"Transaction successful. Ref: AB12CD34.", "AB12CD34", true},
		{"Cash out completed. Transaction ID: 1234567890", "1234567890", true},
		{"Payment completed. Reference No: MP240101.1234", "MP240101.1234", true},
		{"Transaction successful", "", false},
		{"Refill completed", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			got, ok := matcher.ExtractReference(tt.text)
			assert.Equal(t, tt.found, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}
