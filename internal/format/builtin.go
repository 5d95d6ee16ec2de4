package format

import "github.com/Veraticus/tally/internal/model"

// Built-in format keys.
const (
	KeyBofAChecking     = "bofa_checking"
	KeyBofACreditCard   = "bofa_credit_card"
	KeyBofALineOfCredit = "bofa_line_of_credit"
	KeyGustoPayroll     = "gusto_payroll"
	KeyOFX              = "ofx"
)

// Builtin returns the built-in formats in resolution order.
func Builtin() []Format {
	return []Format{
		{
			Key:          KeyBofAChecking,
			Name:         "Bank of America Checking",
			AccountKinds: []model.AccountKind{model.KindChecking},
			Detect:       detectBofAChecking,
			Parse:        parseBofAChecking,
		},
		{
			Key:          KeyBofACreditCard,
			Name:         "Bank of America Credit Card",
			AccountKinds: []model.AccountKind{model.KindCreditCard},
			Detect:       detectBofACreditCard,
			Parse:        parseBofACreditCard,
		},
		{
			Key:          KeyBofALineOfCredit,
			Name:         "Bank of America Line of Credit",
			AccountKinds: []model.AccountKind{model.KindLineOfCredit},
			Detect:       detectBofALineOfCredit,
			Parse:        parseBofALineOfCredit,
		},
		{
			Key:          KeyGustoPayroll,
			Name:         "Gusto Payroll",
			AccountKinds: []model.AccountKind{model.KindPayroll},
			Detect:       detectGustoPayroll,
			Parse:        parseGustoPayroll,
			PostImport:   assignPayrollCategories,
		},
		{
			Key:          KeyOFX,
			Name:         "OFX/QFX Statement",
			AccountKinds: []model.AccountKind{model.KindChecking, model.KindCreditCard},
			Detect:       detectOFX,
			Parse:        parseOFX,
		},
	}
}

// DefaultRegistry returns a registry of the built-in formats.
func DefaultRegistry() *Registry {
	r, err := NewRegistry(Builtin()...)
	if err != nil {
		// Built-in keys are unique constants.
		panic(err)
	}
	return r
}
