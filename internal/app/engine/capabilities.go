package engine

// Capabilities is the per-tenant switchboard of booking features. It is passed
// into every mutating operation explicitly so a tenant's configuration is
// never inferred from ambient state.
type Capabilities struct {
	InstantBook        bool
	OnlineCancellation bool
}

// DefaultCapabilities enables everything; tenants opt out via configuration.
func DefaultCapabilities() Capabilities {
	return Capabilities{InstantBook: true, OnlineCancellation: true}
}
