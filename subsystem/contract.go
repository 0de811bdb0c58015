package subsystem

import (
	"reflect"

	"github.com/mycelia-dev/subsystem-kernel/errs"
	"github.com/mycelia-dev/subsystem-kernel/facet"
)

// Contract names the methods a facet of a given kind must expose.
// Spec §6 defines exactly one built-in contract, for "processor".
type Contract struct {
	Kind            string
	RequiredMethods []string
}

// ProcessorContract is the mandatory shape of the "processor" facet
// kind (spec §6/§4.7).
var ProcessorContract = Contract{
	Kind:            "processor",
	RequiredMethods: []string{"accept", "processMessage", "processTick", "processImmediately"},
}

// DefaultContracts lists the contracts enforced during Plan.
var DefaultContracts = []Contract{ProcessorContract}

func enforceContracts(facetsByKind map[string]*facet.Facet, contracts []Contract) error {
	for _, c := range contracts {
		f, ok := facetsByKind[c.Kind]
		if !ok {
			continue
		}
		var missing []string
		for _, name := range c.RequiredMethods {
			v, ok := f.Get(name)
			if !ok || reflect.ValueOf(v).Kind() != reflect.Func {
				missing = append(missing, name)
			}
		}
		if len(missing) > 0 {
			return errs.New(errs.ContractViolation, "facet %q missing required methods: %v", c.Kind, missing)
		}
	}
	return nil
}
