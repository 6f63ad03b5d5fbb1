package payqr_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/payqr/payqr"
)

func TestPermissions_Has(t *testing.T) {
	ps := payqr.Permissions{payqr.PermGenerate, payqr.PermAuditRead}

	assert.True(t, ps.Has(payqr.PermGenerate))
	assert.True(t, ps.Has(payqr.PermAuditRead))
	assert.False(t, ps.Has(payqr.PermScan))
}

func TestPermissions_HasAll(t *testing.T) {
	ps := payqr.Permissions{payqr.PermGenerate, payqr.PermScan}

	assert.True(t, ps.HasAll(nil))
	assert.True(t, ps.HasAll(payqr.Permissions{payqr.PermGenerate}))
	assert.True(t, ps.HasAll(payqr.Permissions{payqr.PermScan, payqr.PermGenerate}))
	assert.False(t, ps.HasAll(payqr.Permissions{payqr.PermGenerate, payqr.PermTemplateWrite}))

	var empty payqr.Permissions
	assert.True(t, empty.HasAll(nil))
	assert.False(t, empty.HasAll(payqr.Permissions{payqr.PermGenerate}))
}

func TestTables_Validate(t *testing.T) {
	valid := payqr.Tables{Tokens: "payqr_tokens", AccessLog: "payqr_access_log", Templates: "payqr_templates"}
	assert.NoError(t, valid.Validate())

	missing := payqr.Tables{Tokens: "payqr_tokens", Templates: "payqr_templates"}
	assert.Error(t, missing.Validate())

	injection := payqr.Tables{Tokens: "tokens; DROP TABLE x", AccessLog: "a", Templates: "b"}
	assert.Error(t, injection.Validate())

	upper := payqr.Tables{Tokens: "Tokens", AccessLog: "a", Templates: "b"}
	assert.Error(t, upper.Validate())
}

func TestIsValidTableName(t *testing.T) {
	assert.True(t, payqr.IsValidTableName("payqr_tokens"))
	assert.True(t, payqr.IsValidTableName("_private"))
	assert.False(t, payqr.IsValidTableName("1tokens"))
	assert.False(t, payqr.IsValidTableName("tok-ens"))
	assert.False(t, payqr.IsValidTableName(""))
}

func TestValidateToken(t *testing.T) {
	ok := payqr.Token{ID: "t1", Secret: "s1", Permissions: payqr.Permissions{payqr.PermScan}}
	assert.NoError(t, payqr.ValidateToken(ok))

	assert.Error(t, payqr.ValidateToken(payqr.Token{Secret: "s1"}))
	assert.Error(t, payqr.ValidateToken(payqr.Token{ID: "t1"}))
	assert.Error(t, payqr.ValidateToken(payqr.Token{ID: "t1", Secret: "s1", Permissions: payqr.Permissions{""}}))
}

func TestCursorRoundTrip(t *testing.T) {
	created := time.Date(2026, 3, 14, 9, 26, 53, 589793000, time.UTC)
	cur := payqr.EncodeCursor(created, "abc-123")

	decoded, err := payqr.DecodeCursor(cur)
	require.NoError(t, err)
	assert.True(t, decoded.CreatedAt.Equal(created))
	assert.Equal(t, "abc-123", decoded.ID)
}

func TestDecodeCursor_Invalid(t *testing.T) {
	_, err := payqr.DecodeCursor("not base64!!!")
	assert.Error(t, err)

	// Valid base64 but missing separator
	_, err = payqr.DecodeCursor("aGVsbG8=")
	assert.Error(t, err)

	// Empty cursor means "from the beginning"
	decoded, err := payqr.DecodeCursor("")
	require.NoError(t, err)
	assert.True(t, decoded.CreatedAt.IsZero())
}

func TestIDCursorRoundTrip(t *testing.T) {
	cur := payqr.EncodeIDCursor(42)

	id, err := payqr.DecodeIDCursor(cur)
	require.NoError(t, err)
	assert.Equal(t, int64(42), id)

	id, err = payqr.DecodeIDCursor("")
	require.NoError(t, err)
	assert.Zero(t, id)

	_, err = payqr.DecodeIDCursor("###")
	assert.Error(t, err)
}

func TestTemplateUpdate_Apply(t *testing.T) {
	tpl := payqr.Template{
		Name:      "rent",
		Recipient: "ACME GmbH",
		IBAN:      "DE89370400440532013000",
		Amount:    "100.00",
		Currency:  "EUR",
	}

	name := "rent-2026"
	amount := "105.00"
	upd := payqr.TemplateUpdate{Name: &name, Amount: &amount}
	upd.Apply(&tpl)

	assert.Equal(t, "rent-2026", tpl.Name)
	assert.Equal(t, "105.00", tpl.Amount)
	// Unset fields stay untouched
	assert.Equal(t, "ACME GmbH", tpl.Recipient)
	assert.Equal(t, "EUR", tpl.Currency)
}
