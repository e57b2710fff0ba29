package config

import "strings"

// PaymentConfig holds the hosted payment processor keys and the prices the
// application charges.  Amounts are in the smallest currency unit.
type PaymentConfig struct {
	SecretKey          string
	PublishableKey     string
	CourseCurrency     string
	InstructorCurrency string
	InstructorFeeCents int64
}

// LoadPaymentConfig reads the payment settings.  An empty secret key leaves
// the processor unconfigured; payment endpoints then answer 500.
func LoadPaymentConfig() PaymentConfig {
	return PaymentConfig{
		SecretKey:          envStr("STRIPE_SECRET_KEY", ""),
		PublishableKey:     envStr("STRIPE_PUBLISHABLE_KEY", ""),
		CourseCurrency:     strings.ToLower(envStr("COURSE_CURRENCY", "usd")),
		InstructorCurrency: strings.ToLower(envStr("INSTRUCTOR_CURRENCY", "zar")),
		InstructorFeeCents: int64(envInt("INSTRUCTOR_FEE_CENTS", 150000)),
	}
}

// InstructorFeeMajor is the fee in major units as stored in user metadata.
func (p PaymentConfig) InstructorFeeMajor() int64 {
	return p.InstructorFeeCents / 100
}
