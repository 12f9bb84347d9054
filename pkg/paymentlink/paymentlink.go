// Package paymentlink builds bank-transfer QR links and the memo tokens
// that tie an incoming transfer back to an order.
package paymentlink

import (
	"fmt"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"unicode"

	"github.com/google/uuid"
)

const (
	DefaultBaseURL  = "https://img.vietqr.io/image"
	defaultTemplate = "compact2"

	OrderPrefix  = "ORD"
	RefundPrefix = "REFUND"
)

var orderTokenPattern = regexp.MustCompile(OrderPrefix + `[0-9A-F]{32}`)

// Params describes a transfer the customer or operator should make.
type Params struct {
	BankID      string
	AccountNo   string
	AccountName string
	Amount      int64
	Memo        string
}

// Build returns the QR image URL for the transfer. It performs no I/O.
func Build(p Params) string {
	return BuildWithBase(DefaultBaseURL, p)
}

// BuildWithBase is Build against a custom image host.
func BuildWithBase(base string, p Params) string {
	path := fmt.Sprintf("%s/%s-%s-%s.png",
		strings.TrimRight(base, "/"),
		url.PathEscape(strings.TrimSpace(p.BankID)),
		url.PathEscape(strings.TrimSpace(p.AccountNo)),
		defaultTemplate,
	)
	q := url.Values{}
	if p.Amount > 0 {
		q.Set("amount", strconv.FormatInt(p.Amount, 10))
	}
	if memo := strings.TrimSpace(p.Memo); memo != "" {
		q.Set("addInfo", memo)
	}
	if name := strings.TrimSpace(p.AccountName); name != "" {
		q.Set("accountName", name)
	}
	if len(q) == 0 {
		return path
	}
	return path + "?" + q.Encode()
}

// OrderMemo is the transfer memo token for an order payment.
func OrderMemo(orderID uuid.UUID) string {
	return OrderPrefix + compactID(orderID)
}

// RefundMemo is the transfer memo for a refund of an order.
func RefundMemo(orderID uuid.UUID) string {
	return RefundPrefix + compactID(orderID)
}

// ParseOrderMemo finds an order token in free-text memo. Banks frequently
// upper-case memos and insert spaces, so both are ignored.
func ParseOrderMemo(memo string) (string, bool) {
	normalized := strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return unicode.ToUpper(r)
	}, memo)
	token := orderTokenPattern.FindString(normalized)
	if token == "" {
		return "", false
	}
	return token, true
}

// OrderIDFromToken reverses OrderMemo.
func OrderIDFromToken(token string) (uuid.UUID, error) {
	if !strings.HasPrefix(token, OrderPrefix) {
		return uuid.Nil, fmt.Errorf("memo token %q missing %s prefix", token, OrderPrefix)
	}
	return uuid.Parse(strings.TrimPrefix(token, OrderPrefix))
}

func compactID(id uuid.UUID) string {
	return strings.ToUpper(strings.ReplaceAll(id.String(), "-", ""))
}
