package codec

import (
	"errors"
	"fmt"
	"math/big"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
)

// BCD payload framing per EPC069-12 version 002.
const (
	serviceTag = "BCD"
	version    = "002"
	charset    = "1" // UTF-8
	identSCT   = "SCT"
)

// ErrMalformed is returned when a scanned payload does not parse as a
// payment code.
var ErrMalformed = errors.New("malformed payment code")

// Payment is the payload carried by a payment QR code.
// Amount is a decimal string to avoid float rounding on the wire.
type Payment struct {
	Recipient string `json:"recipient" validate:"required,max=70"`
	IBAN      string `json:"iban" validate:"required"`
	BIC       string `json:"bic,omitempty" validate:"omitempty,bic"`
	Amount    string `json:"amount" validate:"required"`
	Currency  string `json:"currency" validate:"required,iso4217"`
	Purpose   string `json:"purpose,omitempty" validate:"omitempty,max=4"`
	Reference string `json:"reference,omitempty" validate:"omitempty,max=35"`
	// Remittance is unstructured text; mutually exclusive with Reference.
	Remittance string `json:"remittance,omitempty" validate:"omitempty,max=140"`
}

var (
	validate    = validator.New()
	amountRegex = regexp.MustCompile(`^\d{1,9}(\.\d{1,2})?$`)
	ibanRegex   = regexp.MustCompile(`^[A-Z]{2}\d{2}[A-Z0-9]{1,30}$`)
)

// Validate checks the payment fields. It combines struct tag validation
// with the IBAN mod-97 check and the amount format rule.
func (p Payment) Validate() error {
	if err := validate.Struct(p); err != nil {
		return fmt.Errorf("validate payment: %w", err)
	}

	if !amountRegex.MatchString(p.Amount) || strings.TrimLeft(p.Amount, "0.") == "" {
		return fmt.Errorf("validate payment: invalid amount %q", p.Amount)
	}

	if err := validateIBAN(p.IBAN); err != nil {
		return fmt.Errorf("validate payment: %w", err)
	}

	if p.Reference != "" && p.Remittance != "" {
		return errors.New("validate payment: reference and remittance are mutually exclusive")
	}

	return nil
}

// validateIBAN performs the ISO 13616 mod-97 check.
func validateIBAN(iban string) error {
	iban = strings.ToUpper(strings.ReplaceAll(iban, " ", ""))
	if !ibanRegex.MatchString(iban) {
		return fmt.Errorf("invalid iban format: %s", iban)
	}

	// Move the country code and check digits to the end, then map
	// letters to numbers (A=10 .. Z=35) and take mod 97.
	rearranged := iban[4:] + iban[:4]
	var digits strings.Builder
	for _, r := range rearranged {
		if r >= 'A' && r <= 'Z' {
			fmt.Fprintf(&digits, "%d", r-'A'+10)
		} else {
			digits.WriteRune(r)
		}
	}

	n, ok := new(big.Int).SetString(digits.String(), 10)
	if !ok {
		return fmt.Errorf("invalid iban: %s", iban)
	}
	if new(big.Int).Mod(n, big.NewInt(97)).Int64() != 1 {
		return fmt.Errorf("iban checksum failed: %s", iban)
	}

	return nil
}

// Encode serializes a payment to the BCD text payload.
func Encode(p Payment) (string, error) {
	if err := p.Validate(); err != nil {
		return "", fmt.Errorf("encode: %w", err)
	}

	lines := []string{
		serviceTag,
		version,
		charset,
		identSCT,
		strings.ToUpper(p.BIC),
		p.Recipient,
		strings.ToUpper(strings.ReplaceAll(p.IBAN, " ", "")),
		strings.ToUpper(p.Currency) + p.Amount,
		p.Purpose,
		p.Reference,
		p.Remittance,
	}

	// Trailing empty lines are dropped per the EPC layout rules.
	last := len(lines)
	for last > 4 && lines[last-1] == "" {
		last--
	}

	return strings.Join(lines[:last], "\n"), nil
}

// Decode parses a BCD text payload back into a payment.
// The result is validated before being returned.
func Decode(text string) (Payment, error) {
	lines := strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n")
	if len(lines) < 7 {
		return Payment{}, fmt.Errorf("decode: too few lines: %w", ErrMalformed)
	}

	if lines[0] != serviceTag {
		return Payment{}, fmt.Errorf("decode: bad service tag %q: %w", lines[0], ErrMalformed)
	}
	if lines[1] != "001" && lines[1] != version {
		return Payment{}, fmt.Errorf("decode: unsupported version %q: %w", lines[1], ErrMalformed)
	}
	if lines[3] != identSCT {
		return Payment{}, fmt.Errorf("decode: unsupported identification %q: %w", lines[3], ErrMalformed)
	}

	line := func(i int) string {
		if i < len(lines) {
			return strings.TrimSpace(lines[i])
		}
		return ""
	}

	curAmount := line(7)
	if len(curAmount) < 4 {
		return Payment{}, fmt.Errorf("decode: bad amount field %q: %w", curAmount, ErrMalformed)
	}

	p := Payment{
		BIC:        line(4),
		Recipient:  line(5),
		IBAN:       line(6),
		Currency:   curAmount[:3],
		Amount:     curAmount[3:],
		Purpose:    line(8),
		Reference:  line(9),
		Remittance: line(10),
	}

	if err := p.Validate(); err != nil {
		return Payment{}, fmt.Errorf("decode: %w", err)
	}

	return p, nil
}
