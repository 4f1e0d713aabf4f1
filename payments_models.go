package truelayer

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// PaymentStatusType is the lifecycle stage a payment is in.
type PaymentStatusType string

const (
	PaymentStatusTypeAuthorizationRequired PaymentStatusType = "authorization_required"
	PaymentStatusTypeAuthorizing           PaymentStatusType = "authorizing"
	PaymentStatusTypeAuthorized            PaymentStatusType = "authorized"
	PaymentStatusTypeExecuted              PaymentStatusType = "executed"
	PaymentStatusTypeSettled               PaymentStatusType = "settled"
	PaymentStatusTypeFailed                PaymentStatusType = "failed"
)

// IsTerminal reports whether no further transition can leave this stage.
// Authorized is not terminal: settlement may still fail.
func (s PaymentStatusType) IsTerminal() bool {
	switch s {
	case PaymentStatusTypeExecuted, PaymentStatusTypeSettled, PaymentStatusTypeFailed:
		return true
	default:
		return false
	}
}

// FailureStage records the status a payment was in when it failed.
type FailureStage string

const (
	FailureStageAuthorizationRequired FailureStage = "authorization_required"
	FailureStageAuthorizing           FailureStage = "authorizing"
	FailureStageAuthorized            FailureStage = "authorized"
)

// UnmarshalJSON rejects unknown failure stages.
func (f *FailureStage) UnmarshalJSON(data []byte) error {
	return decodeEnum(data, f, []FailureStage{
		FailureStageAuthorizationRequired, FailureStageAuthorizing, FailureStageAuthorized,
	})
}

// CreatePaymentRequest defines model for the create payment request.
type CreatePaymentRequest struct {
	AmountInMinor uint64                   `json:"amount_in_minor" validate:"gt=0"`
	Currency      Currency                 `json:"currency" validate:"required,currency"`
	PaymentMethod PaymentMethod            `json:"payment_method"`
	User          CreatePaymentUserRequest `json:"user"`
	Metadata      map[string]string        `json:"metadata,omitempty"`
}

type createPaymentRequestJSON struct {
	AmountInMinor uint64            `json:"amount_in_minor"`
	Currency      Currency          `json:"currency"`
	PaymentMethod json.RawMessage   `json:"payment_method"`
	User          json.RawMessage   `json:"user"`
	Metadata      map[string]string `json:"metadata,omitempty"`
}

func (r CreatePaymentRequest) MarshalJSON() ([]byte, error) {
	method, err := paymentMethodCodec.marshal(r.PaymentMethod)
	if err != nil {
		return nil, err
	}
	user, err := MarshalCreatePaymentUserRequest(r.User)
	if err != nil {
		return nil, err
	}
	return json.Marshal(createPaymentRequestJSON{
		AmountInMinor: r.AmountInMinor,
		Currency:      r.Currency,
		PaymentMethod: method,
		User:          user,
		Metadata:      r.Metadata,
	})
}

func (r *CreatePaymentRequest) UnmarshalJSON(data []byte) error {
	var raw createPaymentRequestJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	method, err := paymentMethodCodec.unmarshal(raw.PaymentMethod)
	if err != nil {
		return err
	}
	user, err := UnmarshalCreatePaymentUserRequest(raw.User)
	if err != nil {
		return err
	}
	*r = CreatePaymentRequest{
		AmountInMinor: raw.AmountInMinor,
		Currency:      raw.Currency,
		PaymentMethod: method,
		User:          user,
		Metadata:      raw.Metadata,
	}
	return nil
}

// CreatePaymentUserRequest identifies the paying user: either [ExistingUser] or [NewUser].
// The wire format carries no tag; a payload with an "id" is an existing user.
type CreatePaymentUserRequest interface {
	isCreatePaymentUserRequest()
}

// ExistingUser references a user the backend already knows.
type ExistingUser struct {
	ID string `json:"id" validate:"required"`
}

// NewUser describes a user to be created alongside the payment.
type NewUser struct {
	Name  *string `json:"name,omitempty"`
	Email *string `json:"email,omitempty" validate:"omitempty,email"`
	Phone *string `json:"phone,omitempty" validate:"omitempty,e164"`
}

func (ExistingUser) isCreatePaymentUserRequest() {}
func (NewUser) isCreatePaymentUserRequest()      {}

// MarshalCreatePaymentUserRequest encodes the user without any discriminator.
func MarshalCreatePaymentUserRequest(u CreatePaymentUserRequest) ([]byte, error) {
	if u == nil {
		return nil, errors.New("truelayer: user is required")
	}
	return json.Marshal(u)
}

// UnmarshalCreatePaymentUserRequest decodes an existing user when the payload carries
// an "id" key, and a new user otherwise.
func UnmarshalCreatePaymentUserRequest(data []byte) (CreatePaymentUserRequest, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return nil, &DecodeError{Union: "user", Err: err}
	}
	if fields == nil {
		return nil, &DecodeError{Union: "user", Err: errors.New("object required")}
	}
	if _, ok := fields["id"]; ok {
		var u ExistingUser
		if err := json.Unmarshal(data, &u); err != nil {
			return nil, &DecodeError{Union: "user", Field: "id", Err: err}
		}
		return u, nil
	}
	var u NewUser
	if err := json.Unmarshal(data, &u); err != nil {
		return nil, &DecodeError{Union: "user", Err: err}
	}
	return u, nil
}

// CreatePaymentResponse acknowledges a payment creation. It is [Pollable].
type CreatePaymentResponse struct {
	ID            string                    `json:"id"`
	ResourceToken Token                     `json:"resource_token"`
	User          CreatePaymentUserResponse `json:"user"`
}

type createPaymentResponseJSON CreatePaymentResponse

func (r *CreatePaymentResponse) UnmarshalJSON(data []byte) error {
	var raw createPaymentResponseJSON
	if err := decodeObject("create payment response", data, &raw, "id", "resource_token", "user"); err != nil {
		return err
	}
	*r = CreatePaymentResponse(raw)
	return nil
}

// CreatePaymentUserResponse carries the id assigned to the paying user.
type CreatePaymentUserResponse struct {
	ID string `json:"id"`
}

// Payment is a snapshot of a payment. Every poll returns a new one.
type Payment struct {
	ID            string            `json:"id"`
	AmountInMinor uint64            `json:"amount_in_minor"`
	Currency      Currency          `json:"currency"`
	User          User              `json:"user"`
	PaymentMethod PaymentMethod     `json:"payment_method"`
	CreatedAt     time.Time         `json:"created_at"`
	Metadata      map[string]string `json:"metadata,omitempty"`
	// Status is flattened into the payment object on the wire.
	Status PaymentStatus `json:"-"`
}

type paymentJSON struct {
	ID            string            `json:"id"`
	AmountInMinor uint64            `json:"amount_in_minor"`
	Currency      Currency          `json:"currency"`
	User          User              `json:"user"`
	PaymentMethod json.RawMessage   `json:"payment_method"`
	CreatedAt     time.Time         `json:"created_at"`
	Metadata      map[string]string `json:"metadata,omitempty"`
}

func (p Payment) MarshalJSON() ([]byte, error) {
	method, err := paymentMethodCodec.marshal(p.PaymentMethod)
	if err != nil {
		return nil, err
	}
	base, err := json.Marshal(paymentJSON{
		ID:            p.ID,
		AmountInMinor: p.AmountInMinor,
		Currency:      p.Currency,
		User:          p.User,
		PaymentMethod: method,
		CreatedAt:     p.CreatedAt,
		Metadata:      p.Metadata,
	})
	if err != nil {
		return nil, err
	}
	status, err := paymentStatusCodec.marshal(p.Status)
	if err != nil {
		return nil, err
	}
	return mergeObjects(base, status)
}

func (p *Payment) UnmarshalJSON(data []byte) error {
	var raw paymentJSON
	if err := decodeObject("payment", data, &raw,
		"id", "amount_in_minor", "currency", "user", "payment_method", "created_at"); err != nil {
		return err
	}
	method, err := paymentMethodCodec.unmarshal(raw.PaymentMethod)
	if err != nil {
		return err
	}
	status, err := paymentStatusCodec.unmarshal(data)
	if err != nil {
		return err
	}
	*p = Payment{
		ID:            raw.ID,
		AmountInMinor: raw.AmountInMinor,
		Currency:      raw.Currency,
		User:          raw.User,
		PaymentMethod: method,
		CreatedAt:     raw.CreatedAt,
		Metadata:      raw.Metadata,
		Status:        status,
	}
	return nil
}

// IsInTerminalState reports whether the payment is executed, settled or failed.
func (p *Payment) IsInTerminalState() bool {
	if p == nil || p.Status == nil {
		return false
	}
	return p.Status.Status().IsTerminal()
}

// AuthorizationFlow returns the flow attached to the current status, if any.
func (p *Payment) AuthorizationFlow() *AuthorizationFlow {
	if p == nil {
		return nil
	}
	switch s := variantValue(p.Status).(type) {
	case PaymentStatusAuthorizing:
		return &s.AuthorizationFlow
	case PaymentStatusAuthorized:
		return s.AuthorizationFlow
	case PaymentStatusExecuted:
		return s.AuthorizationFlow
	case PaymentStatusSettled:
		return s.AuthorizationFlow
	case PaymentStatusFailed:
		return s.AuthorizationFlow
	default:
		return nil
	}
}

// CheckConsistency verifies that the status and its timestamps agree with each other.
func (p *Payment) CheckConsistency() error {
	if p.Status == nil {
		return errors.New("truelayer: payment has no status")
	}
	if p.AmountInMinor == 0 {
		return errors.New("truelayer: payment amount_in_minor must be positive")
	}
	switch s := variantValue(p.Status).(type) {
	case PaymentStatusExecuted:
		if s.ExecutedAt.IsZero() {
			return errors.New("truelayer: executed payment has no executed_at")
		}
	case PaymentStatusSettled:
		if s.ExecutedAt.IsZero() || s.SettledAt.IsZero() {
			return errors.New("truelayer: settled payment requires executed_at and settled_at")
		}
		if s.SettledAt.Before(s.ExecutedAt) {
			return fmt.Errorf("truelayer: settled_at %s precedes executed_at %s", s.SettledAt, s.ExecutedAt)
		}
	case PaymentStatusFailed:
		if s.FailureStage == "" {
			return errors.New("truelayer: failed payment has no failure_stage")
		}
	}
	return nil
}

// PaymentStatus is the discriminated status of a payment, tagged by "status".
type PaymentStatus interface {
	Status() PaymentStatusType
	isPaymentStatus()
}

// PaymentStatusAuthorizationRequired is the initial status of a created payment.
type PaymentStatusAuthorizationRequired struct{}

// PaymentStatusAuthorizing means the user is going through the authorization flow.
type PaymentStatusAuthorizing struct {
	AuthorizationFlow AuthorizationFlow `json:"authorization_flow"`
}

// PaymentStatusAuthorized means the provider authorized the payment.
type PaymentStatusAuthorized struct {
	AuthorizationFlow *AuthorizationFlow `json:"authorization_flow,omitempty"`
}

// PaymentStatusExecuted means the provider accepted the payment for execution.
type PaymentStatusExecuted struct {
	ExecutedAt        time.Time          `json:"executed_at"`
	AuthorizationFlow *AuthorizationFlow `json:"authorization_flow,omitempty"`
	SettlementRisk    *SettlementRisk    `json:"settlement_risk,omitempty"`
}

// PaymentStatusSettled means the funds reached the beneficiary.
type PaymentStatusSettled struct {
	PaymentSource     PaymentSource      `json:"payment_source"`
	ExecutedAt        time.Time          `json:"executed_at"`
	SettledAt         time.Time          `json:"settled_at"`
	AuthorizationFlow *AuthorizationFlow `json:"authorization_flow,omitempty"`
	SettlementRisk    *SettlementRisk    `json:"settlement_risk,omitempty"`
}

// PaymentStatusFailed records where and why the payment failed.
type PaymentStatusFailed struct {
	FailedAt          time.Time          `json:"failed_at"`
	FailureStage      FailureStage       `json:"failure_stage"`
	FailureReason     string             `json:"failure_reason"`
	AuthorizationFlow *AuthorizationFlow `json:"authorization_flow,omitempty"`
}

func (PaymentStatusAuthorizationRequired) Status() PaymentStatusType {
	return PaymentStatusTypeAuthorizationRequired
}
func (PaymentStatusAuthorizing) Status() PaymentStatusType { return PaymentStatusTypeAuthorizing }
func (PaymentStatusAuthorized) Status() PaymentStatusType  { return PaymentStatusTypeAuthorized }
func (PaymentStatusExecuted) Status() PaymentStatusType    { return PaymentStatusTypeExecuted }
func (PaymentStatusSettled) Status() PaymentStatusType     { return PaymentStatusTypeSettled }
func (PaymentStatusFailed) Status() PaymentStatusType      { return PaymentStatusTypeFailed }

func (PaymentStatusAuthorizationRequired) isPaymentStatus() {}
func (PaymentStatusAuthorizing) isPaymentStatus()           {}
func (PaymentStatusAuthorized) isPaymentStatus()            {}
func (PaymentStatusExecuted) isPaymentStatus()              {}
func (PaymentStatusSettled) isPaymentStatus()               {}
func (PaymentStatusFailed) isPaymentStatus()                {}

var paymentStatusCodec = unionCodec[PaymentStatus]{
	name:  "payment status",
	field: tagStatus,
	tag:   func(v PaymentStatus) string { return string(v.Status()) },
	registry: variants[PaymentStatus]{
		string(PaymentStatusTypeAuthorizationRequired): decodeAs[PaymentStatus, PaymentStatusAuthorizationRequired],
		string(PaymentStatusTypeAuthorizing): requireKeys(decodeAs[PaymentStatus, PaymentStatusAuthorizing],
			"authorization_flow"),
		string(PaymentStatusTypeAuthorized): decodeAs[PaymentStatus, PaymentStatusAuthorized],
		string(PaymentStatusTypeExecuted): requireKeys(decodeAs[PaymentStatus, PaymentStatusExecuted],
			"executed_at"),
		string(PaymentStatusTypeSettled): requireKeys(decodeAs[PaymentStatus, PaymentStatusSettled],
			"payment_source", "executed_at", "settled_at"),
		string(PaymentStatusTypeFailed): requireKeys(decodeAs[PaymentStatus, PaymentStatusFailed],
			"failed_at", "failure_stage", "failure_reason"),
	},
}

// MarshalPaymentStatus encodes s as an object tagged by "status".
func MarshalPaymentStatus(s PaymentStatus) ([]byte, error) {
	return paymentStatusCodec.marshal(s)
}

// UnmarshalPaymentStatus decodes a status object; unknown or missing tags fail.
func UnmarshalPaymentStatus(data []byte) (PaymentStatus, error) {
	return paymentStatusCodec.unmarshal(data)
}

// PaymentSource is the account the funds of a settled payment came from.
type PaymentSource struct {
	ID                 string              `json:"id"`
	UserID             *string             `json:"user_id,omitempty"`
	AccountIdentifiers []AccountIdentifier `json:"account_identifiers"`
	AccountHolderName  *string             `json:"account_holder_name,omitempty"`
}

type paymentSourceJSON struct {
	ID                 string          `json:"id"`
	UserID             *string         `json:"user_id,omitempty"`
	AccountIdentifiers json.RawMessage `json:"account_identifiers"`
	AccountHolderName  *string         `json:"account_holder_name,omitempty"`
}

func (s PaymentSource) MarshalJSON() ([]byte, error) {
	ids, err := accountIdentifierCodec.marshalSlice(s.AccountIdentifiers)
	if err != nil {
		return nil, err
	}
	return json.Marshal(paymentSourceJSON{
		ID:                 s.ID,
		UserID:             s.UserID,
		AccountIdentifiers: ids,
		AccountHolderName:  s.AccountHolderName,
	})
}

func (s *PaymentSource) UnmarshalJSON(data []byte) error {
	var raw paymentSourceJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	ids, err := accountIdentifierCodec.unmarshalSlice(raw.AccountIdentifiers)
	if err != nil {
		return err
	}
	*s = PaymentSource{
		ID:                 raw.ID,
		UserID:             raw.UserID,
		AccountIdentifiers: ids,
		AccountHolderName:  raw.AccountHolderName,
	}
	return nil
}

// SettlementRisk is the risk category the backend assigned to an executed payment.
type SettlementRisk struct {
	Category string `json:"category"`
}

// User is the payer as reported back on a payment.
type User struct {
	ID    string  `json:"id"`
	Name  *string `json:"name,omitempty"`
	Email *string `json:"email,omitempty"`
	Phone *string `json:"phone,omitempty"`
}

// PaymentMethodType is the wire tag of a [PaymentMethod].
type PaymentMethodType string

const (
	PaymentMethodTypeBankTransfer PaymentMethodType = "bank_transfer"
)

// PaymentMethod describes how the payment is made. Only [BankTransfer] exists today.
type PaymentMethod interface {
	Type() PaymentMethodType
	isPaymentMethod()
}

// BankTransfer pays from a provider account chosen by ProviderSelection to Beneficiary.
type BankTransfer struct {
	ProviderSelection ProviderSelection `json:"provider_selection"`
	Beneficiary       Beneficiary       `json:"beneficiary"`
}

func (BankTransfer) Type() PaymentMethodType { return PaymentMethodTypeBankTransfer }
func (BankTransfer) isPaymentMethod()        {}

type bankTransferJSON struct {
	ProviderSelection json.RawMessage `json:"provider_selection"`
	Beneficiary       json.RawMessage `json:"beneficiary"`
}

func (b BankTransfer) MarshalJSON() ([]byte, error) {
	selection, err := providerSelectionCodec.marshal(b.ProviderSelection)
	if err != nil {
		return nil, err
	}
	beneficiary, err := beneficiaryCodec.marshal(b.Beneficiary)
	if err != nil {
		return nil, err
	}
	return json.Marshal(bankTransferJSON{ProviderSelection: selection, Beneficiary: beneficiary})
}

func (b *BankTransfer) UnmarshalJSON(data []byte) error {
	var raw bankTransferJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	selection, err := providerSelectionCodec.unmarshal(raw.ProviderSelection)
	if err != nil {
		return err
	}
	beneficiary, err := beneficiaryCodec.unmarshal(raw.Beneficiary)
	if err != nil {
		return err
	}
	*b = BankTransfer{ProviderSelection: selection, Beneficiary: beneficiary}
	return nil
}

var paymentMethodCodec = unionCodec[PaymentMethod]{
	name:  "payment_method",
	field: tagType,
	tag:   func(v PaymentMethod) string { return string(v.Type()) },
	registry: variants[PaymentMethod]{
		string(PaymentMethodTypeBankTransfer): decodeAs[PaymentMethod, BankTransfer],
	},
}

// BeneficiaryType is the wire tag of a [Beneficiary].
type BeneficiaryType string

const (
	BeneficiaryTypeMerchantAccount BeneficiaryType = "merchant_account"
	BeneficiaryTypeExternalAccount BeneficiaryType = "external_account"
)

// Beneficiary receives the funds: [MerchantAccountBeneficiary] or [ExternalAccountBeneficiary].
type Beneficiary interface {
	Type() BeneficiaryType
	isBeneficiary()
}

// MerchantAccountBeneficiary pays into one of the merchant's own accounts.
type MerchantAccountBeneficiary struct {
	MerchantAccountID string  `json:"merchant_account_id" validate:"required"`
	AccountHolderName *string `json:"account_holder_name,omitempty"`
}

// ExternalAccountBeneficiary pays into any account, identified by AccountIdentifier.
type ExternalAccountBeneficiary struct {
	AccountHolderName string            `json:"account_holder_name" validate:"required"`
	AccountIdentifier AccountIdentifier `json:"account_identifier"`
	Reference         string            `json:"reference" validate:"required,max=18"`
}

func (MerchantAccountBeneficiary) Type() BeneficiaryType { return BeneficiaryTypeMerchantAccount }
func (ExternalAccountBeneficiary) Type() BeneficiaryType { return BeneficiaryTypeExternalAccount }
func (MerchantAccountBeneficiary) isBeneficiary()        {}
func (ExternalAccountBeneficiary) isBeneficiary()        {}

type externalAccountBeneficiaryJSON struct {
	AccountHolderName string          `json:"account_holder_name"`
	AccountIdentifier json.RawMessage `json:"account_identifier"`
	Reference         string          `json:"reference"`
}

func (b ExternalAccountBeneficiary) MarshalJSON() ([]byte, error) {
	id, err := accountIdentifierCodec.marshal(b.AccountIdentifier)
	if err != nil {
		return nil, err
	}
	return json.Marshal(externalAccountBeneficiaryJSON{
		AccountHolderName: b.AccountHolderName,
		AccountIdentifier: id,
		Reference:         b.Reference,
	})
}

func (b *ExternalAccountBeneficiary) UnmarshalJSON(data []byte) error {
	var raw externalAccountBeneficiaryJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	id, err := accountIdentifierCodec.unmarshal(raw.AccountIdentifier)
	if err != nil {
		return err
	}
	*b = ExternalAccountBeneficiary{
		AccountHolderName: raw.AccountHolderName,
		AccountIdentifier: id,
		Reference:         raw.Reference,
	}
	return nil
}

var beneficiaryCodec = unionCodec[Beneficiary]{
	name:  "beneficiary",
	field: tagType,
	tag:   func(v Beneficiary) string { return string(v.Type()) },
	registry: variants[Beneficiary]{
		string(BeneficiaryTypeMerchantAccount): requireKeys(decodeAs[Beneficiary, MerchantAccountBeneficiary],
			"merchant_account_id"),
		string(BeneficiaryTypeExternalAccount): requireKeys(decodeAs[Beneficiary, ExternalAccountBeneficiary],
			"account_holder_name", "account_identifier", "reference"),
	},
}

// ProviderSelectionType is the wire tag of a [ProviderSelection].
type ProviderSelectionType string

const (
	ProviderSelectionTypeUserSelected ProviderSelectionType = "user_selected"
	ProviderSelectionTypePreselected  ProviderSelectionType = "preselected"
)

// ProviderSelection decides how the paying bank is chosen.
type ProviderSelection interface {
	Type() ProviderSelectionType
	isProviderSelection()
}

// UserSelectedProvider lets the user pick a provider, optionally narrowed by Filter.
type UserSelectedProvider struct {
	Filter             *ProviderFilter `json:"filter,omitempty"`
	PreferredSchemeIDs []string        `json:"preferred_scheme_ids,omitempty"`
}

// PreselectedProvider fixes the provider and payment scheme up front.
type PreselectedProvider struct {
	ProviderID string    `json:"provider_id" validate:"required"`
	SchemeID   string    `json:"scheme_id" validate:"required"`
	Remitter   *Remitter `json:"remitter,omitempty"`
}

func (UserSelectedProvider) Type() ProviderSelectionType { return ProviderSelectionTypeUserSelected }
func (PreselectedProvider) Type() ProviderSelectionType  { return ProviderSelectionTypePreselected }
func (UserSelectedProvider) isProviderSelection()        {}
func (PreselectedProvider) isProviderSelection()         {}

var providerSelectionCodec = unionCodec[ProviderSelection]{
	name:  "provider_selection",
	field: tagType,
	tag:   func(v ProviderSelection) string { return string(v.Type()) },
	registry: variants[ProviderSelection]{
		string(ProviderSelectionTypeUserSelected): decodeAs[ProviderSelection, UserSelectedProvider],
		string(ProviderSelectionTypePreselected): requireKeys(decodeAs[ProviderSelection, PreselectedProvider],
			"provider_id", "scheme_id"),
	},
}

// Remitter is the account a preselected provider pays from, when known.
type Remitter struct {
	AccountHolderName *string           `json:"account_holder_name,omitempty"`
	AccountIdentifier AccountIdentifier `json:"account_identifier,omitempty"`
}

type remitterJSON struct {
	AccountHolderName *string         `json:"account_holder_name,omitempty"`
	AccountIdentifier json.RawMessage `json:"account_identifier,omitempty"`
}

func (r Remitter) MarshalJSON() ([]byte, error) {
	id, err := accountIdentifierCodec.marshalOptional(r.AccountIdentifier)
	if err != nil {
		return nil, err
	}
	return json.Marshal(remitterJSON{AccountHolderName: r.AccountHolderName, AccountIdentifier: id})
}

func (r *Remitter) UnmarshalJSON(data []byte) error {
	var raw remitterJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	id, err := accountIdentifierCodec.unmarshalOptional(raw.AccountIdentifier)
	if err != nil {
		return err
	}
	*r = Remitter{AccountHolderName: raw.AccountHolderName, AccountIdentifier: id}
	return nil
}

// ProviderFilter narrows the providers offered to the user.
type ProviderFilter struct {
	Countries        []CountryCode           `json:"countries,omitempty" validate:"omitempty,dive,country"`
	ReleaseChannel   *ReleaseChannel         `json:"release_channel,omitempty"`
	CustomerSegments []CustomerSegment       `json:"customer_segments,omitempty"`
	ProviderIDs      []string                `json:"provider_ids,omitempty"`
	Excludes         *ProviderFilterExcludes `json:"excludes,omitempty"`
}

// ProviderFilterExcludes removes specific providers from the offered list.
type ProviderFilterExcludes struct {
	ProviderIDs []string `json:"provider_ids,omitempty"`
}
