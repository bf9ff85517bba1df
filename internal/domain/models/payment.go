package models

// PaymentMethod enumerates how a client settled a sale.
type PaymentMethod string

const (
	PaymentCash   PaymentMethod = "dinheiro"
	PaymentDebit  PaymentMethod = "debito"
	PaymentCredit PaymentMethod = "credito"
	PaymentPix    PaymentMethod = "pix"
	PaymentMixed  PaymentMethod = "misto"
)

// DefaultPaymentMethod applies when nothing was selected.
const DefaultPaymentMethod = PaymentCash

// PaymentMethods lists the accepted methods in display order.
var PaymentMethods = []PaymentMethod{PaymentCash, PaymentPix, PaymentDebit, PaymentCredit, PaymentMixed}

// Valid reports whether m is one of the known methods.
func (m PaymentMethod) Valid() bool {
	for _, known := range PaymentMethods {
		if m == known {
			return true
		}
	}
	return false
}

// OrDefault maps the empty method to the default one.
func (m PaymentMethod) OrDefault() PaymentMethod {
	if m == "" {
		return DefaultPaymentMethod
	}
	return m
}
