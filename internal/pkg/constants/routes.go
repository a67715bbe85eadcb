package constants

// Static route constants
const (
	APIPrefix   = "/api"
	APIv1Prefix = "/api/v1"

	// Defaults, both can be moved through configuration
	PayCompleteRoute     = "/pay/complete"
	PaymentCallbackRoute = "/api/v1/payments/callback"

	DocsBasePath = "/docs/api/"
)
