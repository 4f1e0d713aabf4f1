// Package truelayer is a Go client for the TrueLayer Payments API v3.
//
// # Payments
//
// Build a [Client] with [NewClient] and a [TokenSource] such as [ClientCredentials],
// then create a payment with [PaymentsAPI.Create]. The payment goes through
// authorization_required, authorizing and authorized before it ends executed, settled
// or failed. Drive the authorization flow with [PaymentsAPI.StartAuthorizationFlow],
// [PaymentsAPI.SubmitProviderSelection] and [PaymentsAPI.SubmitForm]; after a redirect,
// hand the returned query and fragment to [ProviderReturnAPI.Submit].
//
// # Polling
//
// Payments settle asynchronously. [PollUntilTerminalState] repeatedly fetches a
// [Pollable] resource until it reports a terminal state, retrying transient errors
// such as the short window in which a new payment is not yet visible:
//
//	created, err := client.Payments.Create(ctx, req)
//	if err != nil {
//		return err
//	}
//	payment, err := truelayer.PollUntilTerminalState(ctx, client, created, truelayer.PollOptions{})
//
// # Webhooks
//
// Instead of polling, the backend can push payment events. [NewWebhookHandler] exposes
// a net/http handler that verifies the Tl-Signature header (see [WithSignatureVerifier])
// and hands decoded [WebhookEvent] values to your [WebhookReceiver].
//
// # Wire format
//
// Every variant type (payment status, next action, form input, beneficiary, ...) is a
// Go interface implemented by one struct per variant. Type-switch on the value to
// handle each case. Unknown discriminators fail decoding with [*DecodeError].
package truelayer
