// Package codec implements the payment QR code codec: an EPC069-12 style
// "BCD" text payload encoded into and decoded from QR code images.
//
// The codec is pure and stateless. It validates payloads, serializes them
// to the line-oriented BCD format, renders QR PNGs, and reads them back:
//
//	p := codec.Payment{Recipient: "ACME GmbH", IBAN: "DE89370400440532013000",
//		Amount: "12.50", Currency: "EUR", Reference: "RF18539007547034"}
//	png, err := codec.Generate(p, codec.Options{})
//	got, err := codec.Scan(png)
//
// It has no knowledge of HTTP, tokens, or the access log.
package codec
