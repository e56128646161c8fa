package ledger

import "strings"

// Join builds an account name from ordered components, e.g.
// Join("Assets", "US", "Checking") -> "Assets:US:Checking".
func Join(components ...string) string {
	return strings.Join(components, ":")
}

// Split breaks an account name into its colon-separated components.
func Split(account string) []string {
	return strings.Split(account, ":")
}

// Root returns the first component of an account name (its type segment),
// e.g. Root("Assets:US:Checking") -> "Assets".
func Root(account string) string {
	return Split(account)[0]
}

// Leaf returns the last component of an account name, e.g.
// Leaf("Assets:US:Checking") -> "Checking".
func Leaf(account string) string {
	parts := Split(account)
	return parts[len(parts)-1]
}

// Parent returns the account name with its last component removed, e.g.
// Parent("Assets:US:Checking") -> "Assets:US". Returns "" for a single-segment
// account.
func Parent(account string) string {
	parts := Split(account)
	if len(parts) < 2 {
		return ""
	}
	return Join(parts[:len(parts)-1]...)
}

// Parents returns every ancestor of account, from immediate parent up to the
// root, e.g. Parents("Assets:US:Checking") -> ["Assets:US", "Assets"].
func Parents(account string) []string {
	var out []string
	for p := Parent(account); p != ""; p = Parent(p) {
		out = append(out, p)
	}
	return out
}

// SansRoot strips the first (type) component, e.g.
// SansRoot("Assets:US:Checking") -> "US:Checking".
func SansRoot(account string) string {
	parts := Split(account)
	if len(parts) < 2 {
		return ""
	}
	return Join(parts[1:]...)
}

// HasComponent reports whether any segment of account equals component.
func HasComponent(account, component string) bool {
	for _, part := range Split(account) {
		if part == component {
			return true
		}
	}
	return false
}

// CommonPrefix returns the longest shared ancestor account of a and b, or ""
// if they share no segments (including differing roots).
func CommonPrefix(a, b string) string {
	ap, bp := Split(a), Split(b)
	var shared []string
	for i := 0; i < len(ap) && i < len(bp); i++ {
		if ap[i] != bp[i] {
			break
		}
		shared = append(shared, ap[i])
	}
	return Join(shared...)
}

// AccountTransformer rewrites account names between the configured root
// names (Assets/Liabilities/Equity/Income/Expenses, customizable per
// ledger/config.go's AccountNamesConfig) and Beancount's canonical English
// root names. It is the identity transform under the default configuration.
type AccountTransformer struct {
	names *AccountNamesConfig
}

// NewAccountTransformer returns a transformer bound to the given account
// root names.
func NewAccountTransformer(names *AccountNamesConfig) *AccountTransformer {
	return &AccountTransformer{names: names}
}

var canonicalRoots = []string{"Assets", "Liabilities", "Equity", "Income", "Expenses"}

// ToCanonical rewrites account's root segment to the canonical English name,
// given the configured names it may currently carry.
func (t *AccountTransformer) ToCanonical(account string) string {
	parts := Split(account)
	if len(parts) == 0 {
		return account
	}
	for i, configured := range t.configuredRoots() {
		if parts[0] == configured {
			parts[0] = canonicalRoots[i]
			return Join(parts...)
		}
	}
	return account
}

// FromCanonical rewrites account's canonical English root segment to the
// configured name.
func (t *AccountTransformer) FromCanonical(account string) string {
	parts := Split(account)
	if len(parts) == 0 {
		return account
	}
	configured := t.configuredRoots()
	for i, canonical := range canonicalRoots {
		if parts[0] == canonical {
			parts[0] = configured[i]
			return Join(parts...)
		}
	}
	return account
}

func (t *AccountTransformer) configuredRoots() []string {
	if t.names == nil {
		return canonicalRoots
	}
	return []string{t.names.Assets, t.names.Liabilities, t.names.Equity, t.names.Income, t.names.Expenses}
}
