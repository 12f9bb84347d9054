package paymentlink

import (
	"net/url"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func TestBuildEncodesTransfer(t *testing.T) {
	link := Build(Params{
		BankID:      "970436",
		AccountNo:   "0011004",
		AccountName: "STORE FRONT",
		Amount:      150000,
		Memo:        "ORDABC",
	})

	u, err := url.Parse(link)
	require.NoError(t, err)
	require.Equal(t, "img.vietqr.io", u.Host)
	require.Equal(t, "/image/970436-0011004-compact2.png", u.Path)
	require.Equal(t, "150000", u.Query().Get("amount"))
	require.Equal(t, "ORDABC", u.Query().Get("addInfo"))
	require.Equal(t, "STORE FRONT", u.Query().Get("accountName"))
}

func TestBuildWithoutQuery(t *testing.T) {
	link := BuildWithBase("https://qr.example/", Params{BankID: "B", AccountNo: "1"})
	require.Equal(t, "https://qr.example/B-1-compact2.png", link)
}

func TestOrderMemoRoundTrip(t *testing.T) {
	id := uuid.MustParse("6f1c2a4e-0b7d-4c1e-9a53-2f4d8e7b9c10")
	token := OrderMemo(id)
	require.Equal(t, "ORD6F1C2A4E0B7D4C1E9A532F4D8E7B9C10", token)

	parsed, err := OrderIDFromToken(token)
	require.NoError(t, err)
	require.Equal(t, id, parsed)
}

func TestParseOrderMemoFromFreeText(t *testing.T) {
	id := uuid.New()
	token := OrderMemo(id)
	lower := strings.ToLower(token)
	spaced := lower[:10] + " " + lower[10:]

	got, ok := ParseOrderMemo("MBVCB.123 chuyen tien " + spaced + " cam on")
	require.True(t, ok)
	require.Equal(t, token, got)

	_, ok = ParseOrderMemo("payment for lunch")
	require.False(t, ok)

	_, ok = ParseOrderMemo(RefundMemo(id))
	require.False(t, ok)
}

func TestOrderIDFromTokenRejectsForeignPrefix(t *testing.T) {
	_, err := OrderIDFromToken(RefundMemo(uuid.New()))
	require.Error(t, err)
}
