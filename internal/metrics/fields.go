package metrics

// Attribute keys shared by every instrument.
const (
	AttrMethod    = "method"
	AttrRoute     = "route"
	AttrStatus    = "status"
	AttrOperation = "operation"
	AttrOutcome   = "outcome"
)
