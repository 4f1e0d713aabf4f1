package truelayer

import (
	"encoding/json"
	"fmt"
	"slices"
)

// Currency is an ISO 4217 currency code, encoded uppercase.
type Currency string

const (
	CurrencyGBP Currency = "GBP"
	CurrencyEUR Currency = "EUR"
)

var currencies = []Currency{CurrencyGBP, CurrencyEUR}

// UnmarshalJSON rejects unsupported currency codes.
func (c *Currency) UnmarshalJSON(data []byte) error {
	return decodeEnum(data, c, currencies)
}

// CountryCode is an ISO 3166-1 alpha-2 country code, encoded uppercase.
type CountryCode string

const (
	CountryDE CountryCode = "DE"
	CountryES CountryCode = "ES"
	CountryFR CountryCode = "FR"
	CountryGB CountryCode = "GB"
	CountryIE CountryCode = "IE"
	CountryIT CountryCode = "IT"
	CountryLT CountryCode = "LT"
	CountryNL CountryCode = "NL"
	CountryPL CountryCode = "PL"
	CountryPT CountryCode = "PT"
)

var countryCodes = []CountryCode{
	CountryDE, CountryES, CountryFR, CountryGB, CountryIE,
	CountryIT, CountryLT, CountryNL, CountryPL, CountryPT,
}

// UnmarshalJSON rejects unsupported country codes.
func (c *CountryCode) UnmarshalJSON(data []byte) error {
	return decodeEnum(data, c, countryCodes)
}

// ReleaseChannel filters providers by their rollout stage.
type ReleaseChannel string

const (
	ReleaseChannelGeneralAvailability ReleaseChannel = "general_availability"
	ReleaseChannelPublicBeta          ReleaseChannel = "public_beta"
	ReleaseChannelPrivateBeta         ReleaseChannel = "private_beta"
)

// UnmarshalJSON rejects unknown release channels.
func (r *ReleaseChannel) UnmarshalJSON(data []byte) error {
	return decodeEnum(data, r, []ReleaseChannel{
		ReleaseChannelGeneralAvailability, ReleaseChannelPublicBeta, ReleaseChannelPrivateBeta,
	})
}

// CustomerSegment filters providers by the kind of account holder they serve.
type CustomerSegment string

const (
	CustomerSegmentRetail    CustomerSegment = "retail"
	CustomerSegmentBusiness  CustomerSegment = "business"
	CustomerSegmentCorporate CustomerSegment = "corporate"
)

// UnmarshalJSON rejects unknown customer segments.
func (s *CustomerSegment) UnmarshalJSON(data []byte) error {
	return decodeEnum(data, s, []CustomerSegment{
		CustomerSegmentRetail, CustomerSegmentBusiness, CustomerSegmentCorporate,
	})
}

func decodeEnum[T ~string](data []byte, dst *T, allowed []T) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	if !slices.Contains(allowed, T(s)) {
		return fmt.Errorf("truelayer: unknown %T value %q", *dst, s)
	}
	*dst = T(s)
	return nil
}

// AccountIdentifierType is the wire tag of an [AccountIdentifier].
type AccountIdentifierType string

const (
	AccountIdentifierTypeSortCodeAccountNumber AccountIdentifierType = "sort_code_account_number"
	AccountIdentifierTypeIBAN                  AccountIdentifierType = "iban"
	AccountIdentifierTypeBBAN                  AccountIdentifierType = "bban"
	AccountIdentifierTypeNRB                   AccountIdentifierType = "nrb"
)

// AccountIdentifier addresses a bank account. Implemented by
// [SortCodeAccountNumber], [IBAN], [BBAN] and [NRB].
type AccountIdentifier interface {
	Type() AccountIdentifierType
	isAccountIdentifier()
}

// SortCodeAccountNumber is the UK domestic account scheme.
type SortCodeAccountNumber struct {
	SortCode      string `json:"sort_code" validate:"required,len=6,numeric"`
	AccountNumber string `json:"account_number" validate:"required,len=8,numeric"`
}

// IBAN is an International Bank Account Number.
type IBAN struct {
	IBAN string `json:"iban" validate:"required,min=15,max=34,alphanum"`
}

// BBAN is a Basic Bank Account Number.
type BBAN struct {
	BBAN string `json:"bban" validate:"required"`
}

// NRB is the Polish domestic account number.
type NRB struct {
	NRB string `json:"nrb" validate:"required,len=26,numeric"`
}

func (SortCodeAccountNumber) Type() AccountIdentifierType {
	return AccountIdentifierTypeSortCodeAccountNumber
}
func (IBAN) Type() AccountIdentifierType { return AccountIdentifierTypeIBAN }
func (BBAN) Type() AccountIdentifierType { return AccountIdentifierTypeBBAN }
func (NRB) Type() AccountIdentifierType  { return AccountIdentifierTypeNRB }

func (SortCodeAccountNumber) isAccountIdentifier() {}
func (IBAN) isAccountIdentifier()                  {}
func (BBAN) isAccountIdentifier()                  {}
func (NRB) isAccountIdentifier()                   {}

var accountIdentifierCodec = unionCodec[AccountIdentifier]{
	name:  "account_identifier",
	field: tagType,
	tag:   func(v AccountIdentifier) string { return string(v.Type()) },
	registry: variants[AccountIdentifier]{
		string(AccountIdentifierTypeSortCodeAccountNumber): decodeAs[AccountIdentifier, SortCodeAccountNumber],
		string(AccountIdentifierTypeIBAN):                  decodeAs[AccountIdentifier, IBAN],
		string(AccountIdentifierTypeBBAN):                  decodeAs[AccountIdentifier, BBAN],
		string(AccountIdentifierTypeNRB):                   decodeAs[AccountIdentifier, NRB],
	},
}

// MarshalAccountIdentifier encodes id with its type tag.
func MarshalAccountIdentifier(id AccountIdentifier) ([]byte, error) {
	return accountIdentifierCodec.marshal(id)
}

// UnmarshalAccountIdentifier decodes a tagged account identifier.
func UnmarshalAccountIdentifier(data []byte) (AccountIdentifier, error) {
	return accountIdentifierCodec.unmarshal(data)
}
