package access

func CapabilitiesFor(state AccessState, hasCustomer bool) []string {
	caps := []string{}
	if state == AccessPro {
		caps = append(caps, CapAllJobs, CapNoPhoneFilter, CapSalaryFilter)
	}
	// a cancelled subscriber still has invoices to look at
	if hasCustomer {
		caps = append(caps, CapBillingPortal)
	}
	return caps
}

// JobLimitFor returns 0 when listings are unlimited.
func JobLimitFor(state AccessState) int {
	if state == AccessPro {
		return 0
	}
	return FreeJobLimit
}

func Has(caps []string, want string) bool {
	for _, c := range caps {
		if c == want {
			return true
		}
	}
	return false
}
