package gateway

import "encoding/json"

const (
	RedirectModePost    = "POST"
	InstrumentPayPage   = "PAY_PAGE"
	CodePaymentSuccess  = "PAYMENT_SUCCESS"
	CodePaymentPending  = "PAYMENT_PENDING"
	CodePaymentError    = "PAYMENT_ERROR"
	CodeInternalFailure = "INTERNAL_SERVER_ERROR"
)

type PaymentInstrument struct {
	Type string `json:"type"`
}

// PayRequest is serialized in field declaration order; the checksum is
// computed over exactly these bytes.
type PayRequest struct {
	MerchantID            string            `json:"merchantId"`
	MerchantTransactionID string            `json:"merchantTransactionId"`
	MerchantUserID        string            `json:"merchantUserId,omitempty"`
	Amount                int64             `json:"amount"`
	RedirectURL           string            `json:"redirectUrl"`
	RedirectMode          string            `json:"redirectMode"`
	CallbackURL           string            `json:"callbackUrl"`
	PaymentInstrument     PaymentInstrument `json:"paymentInstrument"`
}

type payEnvelope struct {
	Request string `json:"request"`
}

type RedirectInfo struct {
	URL    string `json:"url"`
	Method string `json:"method"`
}

type InstrumentResponse struct {
	Type         string        `json:"type"`
	RedirectInfo *RedirectInfo `json:"redirectInfo"`
}

type PayResponseData struct {
	MerchantID            string              `json:"merchantId"`
	MerchantTransactionID string              `json:"merchantTransactionId"`
	InstrumentResponse    *InstrumentResponse `json:"instrumentResponse"`
}

type PayResponse struct {
	Success bool             `json:"success"`
	Code    string           `json:"code"`
	Message string           `json:"message"`
	Data    *PayResponseData `json:"data"`

	// Raw is the body exactly as the gateway sent it.
	Raw json.RawMessage `json:"-"`
}

// RedirectURL returns data.instrumentResponse.redirectInfo.url, or "" when any
// level is missing.
func (r *PayResponse) RedirectURL() string {
	if r == nil || r.Data == nil || r.Data.InstrumentResponse == nil || r.Data.InstrumentResponse.RedirectInfo == nil {
		return ""
	}
	return r.Data.InstrumentResponse.RedirectInfo.URL
}

type StatusData struct {
	MerchantID            string `json:"merchantId"`
	MerchantTransactionID string `json:"merchantTransactionId"`
	TransactionID         string `json:"transactionId"`
	Amount                int64  `json:"amount"`
	State                 string `json:"state"`
	ResponseCode          string `json:"responseCode"`
}

type StatusResponse struct {
	Success bool        `json:"success"`
	Code    string      `json:"code"`
	Message string      `json:"message"`
	Data    *StatusData `json:"data"`

	Raw json.RawMessage `json:"-"`
}
