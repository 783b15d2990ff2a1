package constants

// Canonical job schema. The order here is the storage order: renamed tables,
// INSERT column lists, and export headers all follow it.
const (
	FieldTitle     = "title"
	FieldSalary    = "salary"
	FieldCurrency  = "currency"
	FieldCountry   = "country"
	FieldSeniority = "seniority"
	FieldStack     = "stack"
)

// CanonicalFields lists the persisted job columns in storage order.
var CanonicalFields = []string{
	FieldTitle,
	FieldSalary,
	FieldCurrency,
	FieldCountry,
	FieldSeniority,
	FieldStack,
}

// DefaultCurrency replaces empty currency values during normalization.
const DefaultCurrency = "USD"

// IsCanonicalField reports whether name is one of the job schema columns.
func IsCanonicalField(name string) bool {
	for _, f := range CanonicalFields {
		if f == name {
			return true
		}
	}
	return false
}
