/*
Package clients provides an HTTP client for a remote issuance factory.

FactoryClient implements interfaces.FactoryOperations on top of the routes
served by api/handlers, so callers can treat a remote instance like a local
host.Host. Error responses are turned back into factory errors: a response
with code "supply_exhausted" yields an error for which
errors.Is(err, factory.ErrSupplyExhausted) holds.

# Example Usage

	client := clients.NewFactoryClient("http://localhost:8080")

	cmd, err := client.AcceptPayment(ctx, interfaces.PaymentNotification{
	    Sender: payer,
	    Amount: interfaces.NewAmount(1000),
	    Medium: currency,
	})
	if errors.Is(err, factory.ErrWrongPaymentAmount) {
	    // refund
	}
*/
package clients
