package access

type AccessState string

const (
	AccessFree AccessState = "free"
	AccessPro  AccessState = "pro"
)

// FreeJobLimit is how many jobs a non-Pro caller may see per listing.
const FreeJobLimit = 1

const (
	CapAllJobs       = "all_jobs"
	CapNoPhoneFilter = "no_phone_filter"
	CapSalaryFilter  = "salary_filter"
	CapBillingPortal = "billing_portal"
)
