package truelayer

import (
	"errors"
	"regexp"
	"unicode/utf8"
)

// Validate checks the request before it is sent, including the nested payment method,
// beneficiary, provider selection and user.
func (r CreatePaymentRequest) Validate() error {
	if err := validateStruct("", r); err != nil {
		return err
	}
	if r.User == nil {
		return requiredField("user")
	}
	if err := validateStruct("user", r.User); err != nil {
		return err
	}
	if r.PaymentMethod == nil {
		return requiredField("payment_method")
	}
	return validatePaymentMethod(r.PaymentMethod)
}

func validatePaymentMethod(method PaymentMethod) error {
	switch m := variantValue(method).(type) {
	case BankTransfer:
		return m.validate("payment_method")
	default:
		return validateStruct("payment_method", method)
	}
}

func (b BankTransfer) validate(path string) error {
	if b.ProviderSelection == nil {
		return requiredField(path + ".provider_selection")
	}
	if err := validateStruct(path+".provider_selection", b.ProviderSelection); err != nil {
		return err
	}
	if p, ok := variantValue(b.ProviderSelection).(PreselectedProvider); ok && p.Remitter != nil && p.Remitter.AccountIdentifier != nil {
		if err := validateStruct(path+".provider_selection.remitter.account_identifier", p.Remitter.AccountIdentifier); err != nil {
			return err
		}
	}
	if b.Beneficiary == nil {
		return requiredField(path + ".beneficiary")
	}
	if err := validateStruct(path+".beneficiary", b.Beneficiary); err != nil {
		return err
	}
	if ext, ok := variantValue(b.Beneficiary).(ExternalAccountBeneficiary); ok {
		if ext.AccountIdentifier == nil {
			return requiredField(path + ".beneficiary.account_identifier")
		}
		if err := validateStruct(path+".beneficiary.account_identifier", ext.AccountIdentifier); err != nil {
			return err
		}
	}
	return nil
}

// Validate ensures a provider was chosen.
func (r SubmitProviderSelectionActionRequest) Validate() error {
	return validateStruct("", r)
}

// Validate ensures the provider returned at least one of query or fragment.
func (r SubmitProviderReturnParametersRequest) Validate() error {
	if r.Query == "" && r.Fragment == "" {
		return errors.New("query or fragment is required")
	}
	return nil
}

// Validate checks the basic shape of the request. Use [SubmitFormActionRequest.ValidateAgainst]
// to check the answers against the inputs a form action asked for.
func (r SubmitFormActionRequest) Validate() error {
	if r.Inputs == nil {
		return requiredField("inputs")
	}
	return nil
}

// ValidateAgainst checks the answers against the constraints of inputs, as returned in a
// [FormAction]. Regex rules that do not compile are skipped; the server remains the
// final judge.
func (r SubmitFormActionRequest) ValidateAgainst(inputs []AdditionalInput) error {
	if err := r.Validate(); err != nil {
		return err
	}
	known := make(map[string]struct{}, len(inputs))
	for _, input := range inputs {
		if input == nil {
			continue
		}
		known[input.InputID()] = struct{}{}
		answer, ok := r.Inputs[input.InputID()]
		if !ok || answer == "" {
			if input.IsMandatory() {
				return &FormValidationError{InputID: input.InputID(), Reason: "is mandatory"}
			}
			continue
		}
		if err := validateAnswer(input, answer); err != nil {
			return err
		}
	}
	for id := range r.Inputs {
		if _, ok := known[id]; !ok {
			return &FormValidationError{InputID: id, Reason: "was not requested"}
		}
	}
	return nil
}

func validateAnswer(input AdditionalInput, answer string) error {
	switch in := variantValue(input).(type) {
	case AdditionalInputText:
		return validateText(in.ID, in.DisplayText, in.MinLength, in.MaxLength, in.Regexes, answer)
	case AdditionalInputTextWithImage:
		return validateText(in.ID, in.DisplayText, in.MinLength, in.MaxLength, in.Regexes, answer)
	case AdditionalInputSelect:
		for _, opt := range in.Options {
			if opt.ID == answer {
				return nil
			}
		}
		return &FormValidationError{InputID: in.ID, Reason: "is not one of the offered options", Message: &in.DisplayText}
	}
	return nil
}

func validateText(id string, display AdditionalInputDisplayText, minLen, maxLen int32, rules []AdditionalInputRegex, answer string) error {
	n := utf8.RuneCountInString(answer)
	if minLen > 0 && n < int(minLen) {
		return &FormValidationError{InputID: id, Reason: "is too short", Message: &display}
	}
	if maxLen > 0 && n > int(maxLen) {
		return &FormValidationError{InputID: id, Reason: "is too long", Message: &display}
	}
	for _, rule := range rules {
		re, err := regexp.Compile(rule.Regex)
		if err != nil {
			continue
		}
		if !re.MatchString(answer) {
			msg := rule.Message
			return &FormValidationError{InputID: id, Reason: "does not match " + rule.Regex, Message: &msg}
		}
	}
	return nil
}
