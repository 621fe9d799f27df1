package payment

// Ceepos payment status codes. 1 and 2 are the success class; the rest
// are failures of different flavors.
const (
	StatusFailed         = 0  // payment creation failed or cancelled
	StatusActionComplete = 1  // payment successful / action complete
	StatusInProgress     = 2  // processing of payment in progress
	StatusDuplicateID    = 97 // an order with the same Id already exists
	StatusSystemError    = 98
	StatusFaultyRequest  = 99
)

const (
	apiVersion       = "3.0.0"
	paymentMode      = 3
	actionNewPayment = "new payment"
)

// Checksum-covered fields of an inbound callback request, in checksum
// order. Fields absent from the request are skipped, extra fields are
// ignored.
var requestChecksumParams = []string{
	"Id",
	"Status",
	"Reference",
	"PaymentMethod",
	"PaymentSum",
	"Timestamp",
	"PaymentDescription",
}

// Checksum-covered fields of the initiation response, in checksum order.
var responseChecksumParams = []string{
	"Id",
	"Status",
	"Reference",
	"Action",
	"PaymentAddress",
	"PaymentExpires",
}

// ReturnResult is what the user-return callback resolves to: the
// outcome decides which UI address the user is redirected to.
type ReturnResult struct {
	Success     bool
	OrderNumber string
	RedirectURL string
}
