package templates

import (
	"errors"
	"fmt"
	"io"
	"os"
	"regexp"
	"sort"
	"strings"

	"github.com/aretw0/ussdflow/pkg/domain"
	"github.com/mitchellh/mapstructure"
	"gopkg.in/yaml.v3"
)

var (
	// ErrNoTemplate is returned when neither the network nor Universal has a code for a type.
	ErrNoTemplate = errors.New("no ussd template")
	// ErrMissingValue is returned when a placeholder has no value.
	ErrMissingValue = errors.New("missing template value")
)

var placeholder = regexp.MustCompile(`\{([a-z_]+)\}`)

// Values fills the placeholders of a template.
type Values struct {
	Amount   string
	Phone    string
	Merchant string
}

func (v Values) lookup(name string) (string, bool) {
	var s string
	switch name {
	case "amount":
		s = v.Amount
	case "phone":
		s = v.Phone
	case "merchant":
		s = v.Merchant
	default:
		return "", false
	}
	return s, s != ""
}

// Catalog maps a transaction type and network to a USSD code template such as
// "*171*2*1*{phone}*{phone}*{amount}#".
type Catalog struct {
	Codes map[domain.TransactionType]map[Network]string
}

// DefaultCatalog returns the codes used by Ghanaian operators.
func DefaultCatalog() *Catalog {
	return &Catalog{Codes: map[domain.TransactionType]map[Network]string{
		domain.CashIn: {
			MTN:        "*171*3*1*{phone}*{phone}*{amount}#",
			Vodafone:   "*110*01*1*{amount}*{phone}#",
			AirtelTigo: "*133*01*1*{amount}*{phone}#",
		},
		domain.CashOut: {
			MTN:        "*171*2*1*{phone}*{phone}*{amount}#",
			Vodafone:   "*110*01*2*{amount}*{phone}#",
			AirtelTigo: "*133*01*2*{amount}*{phone}#",
		},
		domain.AirtimeTransfer: {
			MTN:        "*170*02*{amount}*{phone}#",
			Vodafone:   "*110*02*{amount}*{phone}#",
			AirtelTigo: "*133*02*{amount}*{phone}#",
		},
		domain.PayMerchant: {
			MTN:        "*170*03*{amount}*{merchant}#",
			Vodafone:   "*110*03*{amount}*{merchant}#",
			AirtelTigo: "*133*03*{amount}*{merchant}#",
		},
		domain.Commission: {
			MTN:        "*170*8#",
			Vodafone:   "*110*8#",
			AirtelTigo: "*133*8#",
		},
		domain.Balance: {
			MTN:        "*170*7#",
			Vodafone:   "*110*7#",
			AirtelTigo: "*133*7#",
		},
	}}
}

// Template returns the raw template, falling back to Universal.
func (c *Catalog) Template(t domain.TransactionType, n Network) (string, error) {
	byNetwork := c.Codes[t]
	if tpl, ok := byNetwork[n]; ok && tpl != "" {
		return tpl, nil
	}
	if tpl, ok := byNetwork[Universal]; ok && tpl != "" {
		return tpl, nil
	}
	return "", fmt.Errorf("%w for %s on %s", ErrNoTemplate, t, n)
}

// Render fills the template for (t, n) with values.
func (c *Catalog) Render(t domain.TransactionType, n Network, values Values) (string, error) {
	tpl, err := c.Template(t, n)
	if err != nil {
		return "", err
	}
	return Render(tpl, values)
}

// Render substitutes every {placeholder} of tpl. Unknown or empty placeholders fail.
func Render(tpl string, values Values) (string, error) {
	var missing []string
	out := placeholder.ReplaceAllStringFunc(tpl, func(m string) string {
		name := m[1 : len(m)-1]
		v, ok := values.lookup(name)
		if !ok {
			missing = append(missing, name)
			return m
		}
		return v
	})
	if len(missing) > 0 {
		return "", fmt.Errorf("%w: %s", ErrMissingValue, strings.Join(missing, ", "))
	}
	return out, nil
}

// Placeholders lists the distinct placeholder names of tpl in order of appearance.
func Placeholders(tpl string) []string {
	var names []string
	seen := map[string]bool{}
	for _, m := range placeholder.FindAllStringSubmatch(tpl, -1) {
		if !seen[m[1]] {
			seen[m[1]] = true
			names = append(names, m[1])
		}
	}
	return names
}

// Types lists the transaction types with at least one template, sorted.
func (c *Catalog) Types() []domain.TransactionType {
	types := make([]domain.TransactionType, 0, len(c.Codes))
	for t := range c.Codes {
		types = append(types, t)
	}
	sort.Slice(types, func(i, j int) bool { return types[i] < types[j] })
	return types
}

// Merge returns a copy of c with every template of other laid on top.
func (c *Catalog) Merge(other *Catalog) *Catalog {
	out := &Catalog{Codes: make(map[domain.TransactionType]map[Network]string)}
	for _, src := range []*Catalog{c, other} {
		if src == nil {
			continue
		}
		for t, byNetwork := range src.Codes {
			if out.Codes[t] == nil {
				out.Codes[t] = make(map[Network]string)
			}
			for n, tpl := range byNetwork {
				out.Codes[t][n] = tpl
			}
		}
	}
	return out
}

// catalogFile is the on-disk shape:
//
//	codes:
//	  cash_out:
//	    MTN: "*171*2*1*{phone}*{phone}*{amount}#"
type catalogFile struct {
	Codes map[string]map[string]string `mapstructure:"codes"`
}

// LoadCatalog decodes a YAML catalog. Types and networks are validated.
func LoadCatalog(r io.Reader) (*Catalog, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog: %w", err)
	}

	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse catalog: %w", err)
	}

	var file catalogFile
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:      &file,
		ErrorUnused: true,
	})
	if err != nil {
		return nil, err
	}
	if err := decoder.Decode(raw); err != nil {
		return nil, fmt.Errorf("failed to decode catalog: %w", err)
	}

	cat := &Catalog{Codes: make(map[domain.TransactionType]map[Network]string, len(file.Codes))}
	for rawType, byNetwork := range file.Codes {
		t, err := domain.ParseTransactionType(rawType)
		if err != nil {
			return nil, err
		}
		cat.Codes[t] = make(map[Network]string, len(byNetwork))
		for rawNetwork, tpl := range byNetwork {
			n := ParseNetwork(rawNetwork)
			if n == Unknown {
				return nil, fmt.Errorf("unknown network %q for %s", rawNetwork, t)
			}
			cat.Codes[t][n] = strings.TrimSpace(tpl)
		}
	}
	return cat, nil
}

// LoadCatalogFile reads path and lays it over DefaultCatalog.
// A missing file yields the default catalog.
func LoadCatalogFile(path string) (*Catalog, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return DefaultCatalog(), nil
		}
		return nil, fmt.Errorf("failed to open catalog: %w", err)
	}
	defer f.Close()

	cat, err := LoadCatalog(f)
	if err != nil {
		return nil, err
	}
	return DefaultCatalog().Merge(cat), nil
}
