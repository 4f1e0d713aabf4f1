package truelayer

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
)

// PaymentsAPI groups the /v3/payments endpoints.
type PaymentsAPI struct {
	client *Client
}

// Create creates a payment. The response is [Pollable] until the payment reaches a
// terminal state.
func (a *PaymentsAPI) Create(ctx context.Context, req CreatePaymentRequest) (*CreatePaymentResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("truelayer: invalid create payment request: %w", err)
	}
	var resp CreatePaymentResponse
	if err := a.client.do(ctx, apiRequest{
		method:        http.MethodPost,
		path:          "/v3/payments",
		body:          req,
		resource:      "create payment response",
		authenticated: true,
	}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// GetByID fetches the current snapshot of a payment. A missing payment matches
// [ErrNotFound].
func (a *PaymentsAPI) GetByID(ctx context.Context, id string) (*Payment, error) {
	if id == "" {
		return nil, errors.New("truelayer: payment id is required")
	}
	var payment Payment
	if err := a.client.do(ctx, apiRequest{
		method:        http.MethodGet,
		path:          paymentPath(id, ""),
		resource:      "payment",
		authenticated: true,
	}, &payment); err != nil {
		return nil, err
	}
	return &payment, nil
}

// StartAuthorizationFlow declares what the caller can render and returns the first
// action to take.
func (a *PaymentsAPI) StartAuthorizationFlow(ctx context.Context, id string, req StartAuthorizationFlowRequest) (*StartAuthorizationFlowResponse, error) {
	if err := validateStruct("", req); err != nil {
		return nil, fmt.Errorf("truelayer: invalid start authorization flow request: %w", err)
	}
	return a.flowStep(ctx, id, "/authorization-flow", req)
}

// SubmitProviderSelection submits the provider the user picked. A rejected selection is
// reported through the response status, not as an error.
func (a *PaymentsAPI) SubmitProviderSelection(ctx context.Context, id string, req SubmitProviderSelectionActionRequest) (*SubmitProviderSelectionActionResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("truelayer: invalid provider selection: %w", err)
	}
	return a.flowStep(ctx, id, "/authorization-flow/actions/provider-selection", req)
}

// SubmitForm submits the answers to a form action. Use
// [SubmitFormActionRequest.ValidateAgainst] first to catch answers the server would reject.
func (a *PaymentsAPI) SubmitForm(ctx context.Context, id string, req SubmitFormActionRequest) (*SubmitFormActionResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("truelayer: invalid form submission: %w", err)
	}
	return a.flowStep(ctx, id, "/authorization-flow/actions/form", req)
}

func (a *PaymentsAPI) flowStep(ctx context.Context, id, suffix string, body any) (*AuthorizationFlowResponse, error) {
	if id == "" {
		return nil, errors.New("truelayer: payment id is required")
	}
	var resp AuthorizationFlowResponse
	if err := a.client.do(ctx, apiRequest{
		method:        http.MethodPost,
		path:          paymentPath(id, suffix),
		body:          body,
		resource:      "authorization flow response",
		authenticated: true,
	}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func paymentPath(id, suffix string) string {
	return "/v3/payments/" + url.PathEscape(id) + suffix
}

// ProviderReturnAPI resolves the parameters a provider appends to the return URI.
type ProviderReturnAPI struct {
	client *Client
}

// Submit forwards the query and fragment received on the return URI. The endpoint is
// public, so no access token is sent.
func (a *ProviderReturnAPI) Submit(ctx context.Context, req SubmitProviderReturnParametersRequest) (*SubmitProviderReturnParametersResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("truelayer: invalid provider return parameters: %w", err)
	}
	var resp SubmitProviderReturnParametersResponse
	if err := a.client.do(ctx, apiRequest{
		method:   http.MethodPost,
		path:     "/v3/payments-provider-return",
		body:     req,
		resource: "provider return response",
	}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}
