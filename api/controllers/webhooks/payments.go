package webhooks

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"

	"github.com/angelmondragon/storefront-backend/api/responses"
	"github.com/angelmondragon/storefront-backend/internal/payments"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
	"github.com/angelmondragon/storefront-backend/pkg/paymentledger"
)

const maxWebhookBody = 64 << 10

// TransactionSettler applies a pushed bank transfer.
type TransactionSettler interface {
	SettleTransaction(ctx context.Context, txn paymentledger.Transaction) (bool, error)
}

type paymentWebhookResponse struct {
	ReferenceID string `json:"reference_id"`
	Settled     bool   `json:"settled"`
}

// PaymentWebhook accepts a transfer pushed by the bank ledger. The body must
// be signed with the shared secret in the X-Signature header.
func PaymentWebhook(settler TransactionSettler, secret string, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if settler == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "payment reconciler unavailable"))
			return
		}

		payload, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody))
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "read request body"))
			return
		}

		signature := r.Header.Get(payments.SignatureHeader)
		if signature == "" {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "signature missing"))
			return
		}
		if !payments.VerifySignature(secret, payload, signature) {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid signature"))
			return
		}

		var txn paymentledger.Transaction
		decoder := json.NewDecoder(bytes.NewReader(payload))
		if err := decoder.Decode(&txn); err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid transaction payload"))
			return
		}

		settled, err := settler.SettleTransaction(ctx, txn)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		if logg != nil {
			logg.Info(logg.WithFields(ctx, map[string]any{
				"reference_id": txn.ReferenceID,
				"settled":      settled,
			}), "payment webhook processed")
		}
		responses.WriteSuccess(w, paymentWebhookResponse{ReferenceID: txn.ReferenceID, Settled: settled})
	}
}
