package responses

// Success wraps every storefront-owned JSON success body.
type Success struct {
	Data any `json:"data"`
}

// ErrorBody is the machine readable half of an error envelope. Details only appear
// for codes that allow them, such as a declined payment.
type ErrorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

type Failure struct {
	Error ErrorBody `json:"error"`
}
