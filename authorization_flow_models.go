package truelayer

import "encoding/json"

// AuthorizationFlow is attached to a payment while the user authorizes it.
// Both parts are optional and commonly absent.
type AuthorizationFlow struct {
	Actions       *AuthorizationFlowActions       `json:"actions,omitempty"`
	Configuration *AuthorizationFlowConfiguration `json:"configuration,omitempty"`
}

// Next returns the action the caller should take next, or nil when none is known.
func (f *AuthorizationFlow) Next() AuthorizationFlowNextAction {
	if f == nil || f.Actions == nil {
		return nil
	}
	return f.Actions.Next
}

// AuthorizationFlowActions holds the single next action to present.
type AuthorizationFlowActions struct {
	Next AuthorizationFlowNextAction `json:"next"`
}

type authorizationFlowActionsJSON struct {
	Next json.RawMessage `json:"next"`
}

func (a AuthorizationFlowActions) MarshalJSON() ([]byte, error) {
	next, err := nextActionCodec.marshal(a.Next)
	if err != nil {
		return nil, err
	}
	return json.Marshal(authorizationFlowActionsJSON{Next: next})
}

func (a *AuthorizationFlowActions) UnmarshalJSON(data []byte) error {
	var raw authorizationFlowActionsJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	next, err := nextActionCodec.unmarshal(raw.Next)
	if err != nil {
		return err
	}
	a.Next = next
	return nil
}

// AuthorizationFlowNextActionType is the wire tag of an [AuthorizationFlowNextAction].
type AuthorizationFlowNextActionType string

const (
	NextActionTypeProviderSelection AuthorizationFlowNextActionType = "provider_selection"
	NextActionTypeRedirect          AuthorizationFlowNextActionType = "redirect"
	NextActionTypeForm              AuthorizationFlowNextActionType = "form"
	NextActionTypeWait              AuthorizationFlowNextActionType = "wait"
)

// AuthorizationFlowNextAction tells the caller what to do to move the flow forward.
type AuthorizationFlowNextAction interface {
	Type() AuthorizationFlowNextActionType
	isNextAction()
}

// ProviderSelectionAction asks the caller to render Providers and submit the choice
// with [PaymentsAPI.SubmitProviderSelection].
type ProviderSelectionAction struct {
	Providers []Provider `json:"providers"`
}

// RedirectAction asks the caller to send the user's browser to URI. The query and
// fragment the provider returns with are fed back through [ProviderReturnAPI.Submit].
type RedirectAction struct {
	URI      string                 `json:"uri"`
	Metadata RedirectActionMetadata `json:"metadata,omitempty"`
}

// FormAction asks the caller to collect Inputs and submit them with [PaymentsAPI.SubmitForm].
type FormAction struct {
	Inputs []AdditionalInput `json:"inputs"`
}

// WaitAction requires nothing from the caller but to keep polling.
type WaitAction struct{}

func (ProviderSelectionAction) Type() AuthorizationFlowNextActionType {
	return NextActionTypeProviderSelection
}
func (RedirectAction) Type() AuthorizationFlowNextActionType { return NextActionTypeRedirect }
func (FormAction) Type() AuthorizationFlowNextActionType     { return NextActionTypeForm }
func (WaitAction) Type() AuthorizationFlowNextActionType     { return NextActionTypeWait }

func (ProviderSelectionAction) isNextAction() {}
func (RedirectAction) isNextAction()          {}
func (FormAction) isNextAction()              {}
func (WaitAction) isNextAction()              {}

type providerSelectionActionJSON ProviderSelectionAction

func (a ProviderSelectionAction) MarshalJSON() ([]byte, error) {
	raw := providerSelectionActionJSON(a)
	raw.Providers = emptyIfNil(raw.Providers)
	return json.Marshal(raw)
}

func (a *ProviderSelectionAction) UnmarshalJSON(data []byte) error {
	var raw providerSelectionActionJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	raw.Providers = nilIfEmpty(raw.Providers)
	*a = ProviderSelectionAction(raw)
	return nil
}

type redirectActionJSON struct {
	URI      string          `json:"uri"`
	Metadata json.RawMessage `json:"metadata,omitempty"`
}

func (r RedirectAction) MarshalJSON() ([]byte, error) {
	metadata, err := redirectMetadataCodec.marshalOptional(r.Metadata)
	if err != nil {
		return nil, err
	}
	return json.Marshal(redirectActionJSON{URI: r.URI, Metadata: metadata})
}

func (r *RedirectAction) UnmarshalJSON(data []byte) error {
	var raw redirectActionJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	metadata, err := redirectMetadataCodec.unmarshalOptional(raw.Metadata)
	if err != nil {
		return err
	}
	*r = RedirectAction{URI: raw.URI, Metadata: metadata}
	return nil
}

type formActionJSON struct {
	Inputs json.RawMessage `json:"inputs"`
}

func (f FormAction) MarshalJSON() ([]byte, error) {
	inputs, err := additionalInputCodec.marshalSlice(f.Inputs)
	if err != nil {
		return nil, err
	}
	return json.Marshal(formActionJSON{Inputs: inputs})
}

func (f *FormAction) UnmarshalJSON(data []byte) error {
	var raw formActionJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	inputs, err := additionalInputCodec.unmarshalSlice(raw.Inputs)
	if err != nil {
		return err
	}
	f.Inputs = inputs
	return nil
}

var nextActionCodec = unionCodec[AuthorizationFlowNextAction]{
	name:  "authorization_flow.actions.next",
	field: tagType,
	tag:   func(v AuthorizationFlowNextAction) string { return string(v.Type()) },
	registry: variants[AuthorizationFlowNextAction]{
		string(NextActionTypeProviderSelection): requireKeys(decodeAs[AuthorizationFlowNextAction, ProviderSelectionAction],
			"providers"),
		string(NextActionTypeRedirect): requireKeys(decodeAs[AuthorizationFlowNextAction, RedirectAction],
			"uri"),
		string(NextActionTypeForm): requireKeys(decodeAs[AuthorizationFlowNextAction, FormAction],
			"inputs"),
		string(NextActionTypeWait): decodeAs[AuthorizationFlowNextAction, WaitAction],
	},
}

// MarshalNextAction encodes a next action with its type tag.
func MarshalNextAction(a AuthorizationFlowNextAction) ([]byte, error) {
	return nextActionCodec.marshal(a)
}

// UnmarshalNextAction decodes a tagged next action.
func UnmarshalNextAction(data []byte) (AuthorizationFlowNextAction, error) {
	return nextActionCodec.unmarshal(data)
}

// Provider is a bank the user can authorize the payment with.
type Provider struct {
	ID          string       `json:"id"`
	DisplayName *string      `json:"display_name,omitempty"`
	IconURI     *string      `json:"icon_uri,omitempty"`
	LogoURI     *string      `json:"logo_uri,omitempty"`
	BgColor     *string      `json:"bg_color,omitempty"`
	CountryCode *CountryCode `json:"country_code,omitempty"`
}

// RedirectActionMetadataType is the wire tag of [RedirectActionMetadata].
type RedirectActionMetadataType string

const (
	RedirectActionMetadataTypeProvider RedirectActionMetadataType = "provider"
)

// RedirectActionMetadata describes where a redirect leads.
type RedirectActionMetadata interface {
	Type() RedirectActionMetadataType
	isRedirectActionMetadata()
}

// ProviderRedirectMetadata names the provider the user is redirected to.
type ProviderRedirectMetadata struct {
	Provider
}

func (ProviderRedirectMetadata) Type() RedirectActionMetadataType {
	return RedirectActionMetadataTypeProvider
}
func (ProviderRedirectMetadata) isRedirectActionMetadata() {}

var redirectMetadataCodec = unionCodec[RedirectActionMetadata]{
	name:  "redirect metadata",
	field: tagType,
	tag:   func(v RedirectActionMetadata) string { return string(v.Type()) },
	registry: variants[RedirectActionMetadata]{
		string(RedirectActionMetadataTypeProvider): requireKeys(decodeAs[RedirectActionMetadata, ProviderRedirectMetadata],
			"id"),
	},
}

// AdditionalInputType is the wire tag of an [AdditionalInput].
type AdditionalInputType string

const (
	AdditionalInputTypeText          AdditionalInputType = "text"
	AdditionalInputTypeSelect        AdditionalInputType = "select"
	AdditionalInputTypeTextWithImage AdditionalInputType = "text_with_image"
)

// UnmarshalJSON rejects unknown input types.
func (t *AdditionalInputType) UnmarshalJSON(data []byte) error {
	return decodeEnum(data, t, []AdditionalInputType{
		AdditionalInputTypeText, AdditionalInputTypeSelect, AdditionalInputTypeTextWithImage,
	})
}

// AdditionalInputFormat hints the keyboard or mask a text input expects.
type AdditionalInputFormat string

const (
	AdditionalInputFormatAccountNumber  AdditionalInputFormat = "account_number"
	AdditionalInputFormatAlphabetical   AdditionalInputFormat = "alphabetical"
	AdditionalInputFormatAlphanumerical AdditionalInputFormat = "alphanumerical"
	AdditionalInputFormatAny            AdditionalInputFormat = "any"
	AdditionalInputFormatEmail          AdditionalInputFormat = "email"
	AdditionalInputFormatIBAN           AdditionalInputFormat = "iban"
	AdditionalInputFormatNumerical      AdditionalInputFormat = "numerical"
	AdditionalInputFormatSortCode       AdditionalInputFormat = "sort_code"
)

// UnmarshalJSON rejects unknown formats.
func (f *AdditionalInputFormat) UnmarshalJSON(data []byte) error {
	return decodeEnum(data, f, []AdditionalInputFormat{
		AdditionalInputFormatAccountNumber, AdditionalInputFormatAlphabetical,
		AdditionalInputFormatAlphanumerical, AdditionalInputFormatAny, AdditionalInputFormatEmail,
		AdditionalInputFormatIBAN, AdditionalInputFormatNumerical, AdditionalInputFormatSortCode,
	})
}

// AdditionalInput is a form field requested from the user.
type AdditionalInput interface {
	Type() AdditionalInputType
	InputID() string
	IsMandatory() bool
	isAdditionalInput()
}

// AdditionalInputText is a free text field.
type AdditionalInputText struct {
	ID          string                      `json:"id"`
	Mandatory   bool                        `json:"mandatory"`
	DisplayText AdditionalInputDisplayText  `json:"display_text"`
	Description *AdditionalInputDisplayText `json:"description,omitempty"`
	Format      AdditionalInputFormat       `json:"format"`
	Sensitive   bool                        `json:"sensitive"`
	MinLength   int32                       `json:"min_length"`
	MaxLength   int32                       `json:"max_length"`
	Regexes     []AdditionalInputRegex      `json:"regexes"`
}

// AdditionalInputSelect asks the user to pick one of Options.
type AdditionalInputSelect struct {
	ID          string                      `json:"id"`
	Mandatory   bool                        `json:"mandatory"`
	DisplayText AdditionalInputDisplayText  `json:"display_text"`
	Description *AdditionalInputDisplayText `json:"description,omitempty"`
	Options     []AdditionalInputOption     `json:"options"`
}

// AdditionalInputTextWithImage is a text field shown next to Image, e.g. a
// challenge code.
type AdditionalInputTextWithImage struct {
	ID          string                      `json:"id"`
	Mandatory   bool                        `json:"mandatory"`
	DisplayText AdditionalInputDisplayText  `json:"display_text"`
	Description *AdditionalInputDisplayText `json:"description,omitempty"`
	Format      AdditionalInputFormat       `json:"format"`
	Sensitive   bool                        `json:"sensitive"`
	MinLength   int32                       `json:"min_length"`
	MaxLength   int32                       `json:"max_length"`
	Regexes     []AdditionalInputRegex      `json:"regexes"`
	Image       AdditionalInputImage        `json:"image"`
}

func (AdditionalInputText) Type() AdditionalInputType   { return AdditionalInputTypeText }
func (AdditionalInputSelect) Type() AdditionalInputType { return AdditionalInputTypeSelect }
func (AdditionalInputTextWithImage) Type() AdditionalInputType {
	return AdditionalInputTypeTextWithImage
}

func (i AdditionalInputText) InputID() string          { return i.ID }
func (i AdditionalInputSelect) InputID() string        { return i.ID }
func (i AdditionalInputTextWithImage) InputID() string { return i.ID }

func (i AdditionalInputText) IsMandatory() bool          { return i.Mandatory }
func (i AdditionalInputSelect) IsMandatory() bool        { return i.Mandatory }
func (i AdditionalInputTextWithImage) IsMandatory() bool { return i.Mandatory }

func (AdditionalInputText) isAdditionalInput()          {}
func (AdditionalInputSelect) isAdditionalInput()        {}
func (AdditionalInputTextWithImage) isAdditionalInput() {}

type (
	additionalInputTextJSON   AdditionalInputText
	additionalInputSelectJSON AdditionalInputSelect
)

func (i AdditionalInputText) MarshalJSON() ([]byte, error) {
	raw := additionalInputTextJSON(i)
	raw.Regexes = emptyIfNil(raw.Regexes)
	return json.Marshal(raw)
}

func (i *AdditionalInputText) UnmarshalJSON(data []byte) error {
	var raw additionalInputTextJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	raw.Regexes = nilIfEmpty(raw.Regexes)
	*i = AdditionalInputText(raw)
	return nil
}

func (i AdditionalInputSelect) MarshalJSON() ([]byte, error) {
	raw := additionalInputSelectJSON(i)
	raw.Options = emptyIfNil(raw.Options)
	return json.Marshal(raw)
}

func (i *AdditionalInputSelect) UnmarshalJSON(data []byte) error {
	var raw additionalInputSelectJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	raw.Options = nilIfEmpty(raw.Options)
	*i = AdditionalInputSelect(raw)
	return nil
}

type additionalInputTextWithImageJSON struct {
	ID          string                      `json:"id"`
	Mandatory   bool                        `json:"mandatory"`
	DisplayText AdditionalInputDisplayText  `json:"display_text"`
	Description *AdditionalInputDisplayText `json:"description,omitempty"`
	Format      AdditionalInputFormat       `json:"format"`
	Sensitive   bool                        `json:"sensitive"`
	MinLength   int32                       `json:"min_length"`
	MaxLength   int32                       `json:"max_length"`
	Regexes     []AdditionalInputRegex      `json:"regexes"`
	Image       json.RawMessage             `json:"image"`
}

func (i AdditionalInputTextWithImage) MarshalJSON() ([]byte, error) {
	image, err := additionalInputImageCodec.marshal(i.Image)
	if err != nil {
		return nil, err
	}
	return json.Marshal(additionalInputTextWithImageJSON{
		ID:          i.ID,
		Mandatory:   i.Mandatory,
		DisplayText: i.DisplayText,
		Description: i.Description,
		Format:      i.Format,
		Sensitive:   i.Sensitive,
		MinLength:   i.MinLength,
		MaxLength:   i.MaxLength,
		Regexes:     emptyIfNil(i.Regexes),
		Image:       image,
	})
}

func (i *AdditionalInputTextWithImage) UnmarshalJSON(data []byte) error {
	var raw additionalInputTextWithImageJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	image, err := additionalInputImageCodec.unmarshal(raw.Image)
	if err != nil {
		return err
	}
	*i = AdditionalInputTextWithImage{
		ID:          raw.ID,
		Mandatory:   raw.Mandatory,
		DisplayText: raw.DisplayText,
		Description: raw.Description,
		Format:      raw.Format,
		Sensitive:   raw.Sensitive,
		MinLength:   raw.MinLength,
		MaxLength:   raw.MaxLength,
		Regexes:     nilIfEmpty(raw.Regexes),
		Image:       image,
	}
	return nil
}

var additionalInputCodec = unionCodec[AdditionalInput]{
	name:  "additional input",
	field: tagType,
	tag:   func(v AdditionalInput) string { return string(v.Type()) },
	registry: variants[AdditionalInput]{
		string(AdditionalInputTypeText): requireKeys(decodeAs[AdditionalInput, AdditionalInputText],
			"id", "display_text", "format"),
		string(AdditionalInputTypeSelect): requireKeys(decodeAs[AdditionalInput, AdditionalInputSelect],
			"id", "display_text", "options"),
		string(AdditionalInputTypeTextWithImage): requireKeys(decodeAs[AdditionalInput, AdditionalInputTextWithImage],
			"id", "display_text", "format", "image"),
	},
}

// MarshalAdditionalInput encodes an input with its type tag.
func MarshalAdditionalInput(in AdditionalInput) ([]byte, error) {
	return additionalInputCodec.marshal(in)
}

// UnmarshalAdditionalInput decodes a tagged input.
func UnmarshalAdditionalInput(data []byte) (AdditionalInput, error) {
	return additionalInputCodec.unmarshal(data)
}

// AdditionalInputDisplayText is a localizable string: Key for lookup, Default as fallback.
type AdditionalInputDisplayText struct {
	Key     string `json:"key"`
	Default string `json:"default"`
}

// AdditionalInputRegex is a rule an answer must match, with the message shown otherwise.
type AdditionalInputRegex struct {
	Regex   string                     `json:"regex"`
	Message AdditionalInputDisplayText `json:"message"`
}

// AdditionalInputOption is one choice of a select input.
type AdditionalInputOption struct {
	ID          string                     `json:"id"`
	DisplayText AdditionalInputDisplayText `json:"display_text"`
}

// AdditionalInputImageType is the wire tag of an [AdditionalInputImage].
type AdditionalInputImageType string

const (
	AdditionalInputImageTypeURI    AdditionalInputImageType = "uri"
	AdditionalInputImageTypeBase64 AdditionalInputImageType = "base64"
)

// AdditionalInputImage is shown next to a text_with_image input.
type AdditionalInputImage interface {
	Type() AdditionalInputImageType
	isAdditionalInputImage()
}

// URIImage references an image by URI.
type URIImage struct {
	URI string `json:"uri"`
}

// Base64Image embeds the image bytes.
type Base64Image struct {
	Data      string `json:"data"`
	MediaType string `json:"media_type"`
}

func (URIImage) Type() AdditionalInputImageType    { return AdditionalInputImageTypeURI }
func (Base64Image) Type() AdditionalInputImageType { return AdditionalInputImageTypeBase64 }
func (URIImage) isAdditionalInputImage()           {}
func (Base64Image) isAdditionalInputImage()        {}

var additionalInputImageCodec = unionCodec[AdditionalInputImage]{
	name:  "additional input image",
	field: tagType,
	tag:   func(v AdditionalInputImage) string { return string(v.Type()) },
	registry: variants[AdditionalInputImage]{
		string(AdditionalInputImageTypeURI): requireKeys(decodeAs[AdditionalInputImage, URIImage], "uri"),
		string(AdditionalInputImageTypeBase64): requireKeys(decodeAs[AdditionalInputImage, Base64Image],
			"data", "media_type"),
	},
}

// AuthorizationFlowConfiguration declares which action types the caller supports.
// It is advisory and never implies an action by itself.
type AuthorizationFlowConfiguration struct {
	ProviderSelection *ProviderSelectionSupported `json:"provider_selection,omitempty"`
	Redirect          *RedirectSupported          `json:"redirect,omitempty"`
	Form              *FormSupported              `json:"form,omitempty"`
}

// ProviderSelectionSupported declares the caller can render a provider list.
type ProviderSelectionSupported struct{}

// RedirectSupported declares the caller can redirect and where users come back to.
type RedirectSupported struct {
	ReturnURI       string  `json:"return_uri" validate:"required,url"`
	DirectReturnURI *string `json:"direct_return_uri,omitempty" validate:"omitempty,url"`
}

// FormSupported declares which input types the caller can render.
type FormSupported struct {
	InputTypes []AdditionalInputType `json:"input_types" validate:"required,min=1"`
}

type formSupportedJSON FormSupported

func (f FormSupported) MarshalJSON() ([]byte, error) {
	raw := formSupportedJSON(f)
	raw.InputTypes = emptyIfNil(raw.InputTypes)
	return json.Marshal(raw)
}

func (f *FormSupported) UnmarshalJSON(data []byte) error {
	var raw formSupportedJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	raw.InputTypes = nilIfEmpty(raw.InputTypes)
	*f = FormSupported(raw)
	return nil
}

// StartAuthorizationFlowRequest starts the flow and declares the caller's capabilities.
type StartAuthorizationFlowRequest struct {
	ProviderSelection *ProviderSelectionSupported `json:"provider_selection,omitempty"`
	Redirect          *RedirectSupported          `json:"redirect,omitempty"`
	Form              *FormSupported              `json:"form,omitempty"`
}

// SubmitProviderSelectionActionRequest submits the provider the user picked.
type SubmitProviderSelectionActionRequest struct {
	ProviderID string `json:"provider_id" validate:"required"`
}

// SubmitFormActionRequest submits answers keyed by input id.
type SubmitFormActionRequest struct {
	Inputs map[string]string `json:"inputs" validate:"required"`
}

// AuthorizationFlowStatusType is the wire tag of an [AuthorizationFlowResponseStatus].
type AuthorizationFlowStatusType string

const (
	AuthorizationFlowStatusTypeAuthorizing AuthorizationFlowStatusType = "authorizing"
	AuthorizationFlowStatusTypeFailed      AuthorizationFlowStatusType = "failed"
)

// AuthorizationFlowResponseStatus reports whether one flow step succeeded.
type AuthorizationFlowResponseStatus interface {
	Status() AuthorizationFlowStatusType
	isAuthorizationFlowResponseStatus()
}

// AuthorizationFlowStatusAuthorizing means the step was accepted; keep polling.
type AuthorizationFlowStatusAuthorizing struct{}

// AuthorizationFlowStatusFailed means the step was rejected.
type AuthorizationFlowStatusFailed struct {
	FailureStage  FailureStage `json:"failure_stage"`
	FailureReason string       `json:"failure_reason"`
}

func (AuthorizationFlowStatusAuthorizing) Status() AuthorizationFlowStatusType {
	return AuthorizationFlowStatusTypeAuthorizing
}
func (AuthorizationFlowStatusFailed) Status() AuthorizationFlowStatusType {
	return AuthorizationFlowStatusTypeFailed
}
func (AuthorizationFlowStatusAuthorizing) isAuthorizationFlowResponseStatus() {}
func (AuthorizationFlowStatusFailed) isAuthorizationFlowResponseStatus()      {}

var flowStatusCodec = unionCodec[AuthorizationFlowResponseStatus]{
	name:  "authorization flow status",
	field: tagStatus,
	tag:   func(v AuthorizationFlowResponseStatus) string { return string(v.Status()) },
	registry: variants[AuthorizationFlowResponseStatus]{
		string(AuthorizationFlowStatusTypeAuthorizing): decodeAs[AuthorizationFlowResponseStatus, AuthorizationFlowStatusAuthorizing],
		string(AuthorizationFlowStatusTypeFailed): requireKeys(decodeAs[AuthorizationFlowResponseStatus, AuthorizationFlowStatusFailed],
			"failure_stage", "failure_reason"),
	},
}

// AuthorizationFlowResponse is returned by every flow-action submission. A failed step
// is a successfully decoded response whose Status is [AuthorizationFlowStatusFailed].
type AuthorizationFlowResponse struct {
	AuthorizationFlow *AuthorizationFlow `json:"authorization_flow,omitempty"`
	// Status is flattened into the response object on the wire.
	Status AuthorizationFlowResponseStatus `json:"-"`
}

type (
	StartAuthorizationFlowResponse        = AuthorizationFlowResponse
	SubmitProviderSelectionActionResponse = AuthorizationFlowResponse
	SubmitFormActionResponse              = AuthorizationFlowResponse
)

type authorizationFlowResponseJSON struct {
	AuthorizationFlow *AuthorizationFlow `json:"authorization_flow,omitempty"`
}

func (r AuthorizationFlowResponse) MarshalJSON() ([]byte, error) {
	base, err := json.Marshal(authorizationFlowResponseJSON{AuthorizationFlow: r.AuthorizationFlow})
	if err != nil {
		return nil, err
	}
	status, err := flowStatusCodec.marshal(r.Status)
	if err != nil {
		return nil, err
	}
	return mergeObjects(base, status)
}

func (r *AuthorizationFlowResponse) UnmarshalJSON(data []byte) error {
	var raw authorizationFlowResponseJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	status, err := flowStatusCodec.unmarshal(data)
	if err != nil {
		return err
	}
	*r = AuthorizationFlowResponse{AuthorizationFlow: raw.AuthorizationFlow, Status: status}
	return nil
}

// Failed returns the failure details when the step was rejected.
func (r *AuthorizationFlowResponse) Failed() (*AuthorizationFlowStatusFailed, bool) {
	if r == nil {
		return nil, false
	}
	f, ok := variantValue(r.Status).(AuthorizationFlowStatusFailed)
	if !ok {
		return nil, false
	}
	return &f, true
}

// Next returns the next action of the returned flow, if any.
func (r *AuthorizationFlowResponse) Next() AuthorizationFlowNextAction {
	if r == nil {
		return nil
	}
	return r.AuthorizationFlow.Next()
}

// SubmitProviderReturnParametersRequest carries what the provider appended to the
// return URI after a redirect.
type SubmitProviderReturnParametersRequest struct {
	Query    string `json:"query"`
	Fragment string `json:"fragment"`
}

// ProviderReturnResourceType is the wire tag of a [ProviderReturnResource].
type ProviderReturnResourceType string

const (
	ProviderReturnResourceTypePayment ProviderReturnResourceType = "payment"
)

// ProviderReturnResource is the resource that initiated the redirect.
type ProviderReturnResource interface {
	Type() ProviderReturnResourceType
	isProviderReturnResource()
}

// ProviderReturnPayment identifies the payment the user returned from.
type ProviderReturnPayment struct {
	PaymentID string `json:"payment_id"`
}

func (ProviderReturnPayment) Type() ProviderReturnResourceType {
	return ProviderReturnResourceTypePayment
}
func (ProviderReturnPayment) isProviderReturnResource() {}

var providerReturnResourceCodec = unionCodec[ProviderReturnResource]{
	name:  "provider return resource",
	field: tagType,
	tag:   func(v ProviderReturnResource) string { return string(v.Type()) },
	registry: variants[ProviderReturnResource]{
		string(ProviderReturnResourceTypePayment): requireKeys(decodeAs[ProviderReturnResource, ProviderReturnPayment],
			"payment_id"),
	},
}

// SubmitProviderReturnParametersResponse resolves the redirect to its resource.
type SubmitProviderReturnParametersResponse struct {
	Resource ProviderReturnResource `json:"resource"`
}

type submitProviderReturnParametersResponseJSON struct {
	Resource json.RawMessage `json:"resource"`
}

func (r SubmitProviderReturnParametersResponse) MarshalJSON() ([]byte, error) {
	resource, err := providerReturnResourceCodec.marshal(r.Resource)
	if err != nil {
		return nil, err
	}
	return json.Marshal(submitProviderReturnParametersResponseJSON{Resource: resource})
}

func (r *SubmitProviderReturnParametersResponse) UnmarshalJSON(data []byte) error {
	var raw submitProviderReturnParametersResponseJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	resource, err := providerReturnResourceCodec.unmarshal(raw.Resource)
	if err != nil {
		return err
	}
	r.Resource = resource
	return nil
}
