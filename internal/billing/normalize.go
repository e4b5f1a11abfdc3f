package billing

import (
	"encoding/json"
	"regexp"
	"strconv"
	"strings"
)

// The payment automation replies in three shapes depending on how the flow is
// wired: a bare object, a one-element array, or either of those with the
// payload nested under "response". Unwrap all of them.

var nonLetters = regexp.MustCompile(`[^a-zA-Z]`)

// Portuguese status strings arrive with or without accents depending on which
// automation node produced them; fold them before the letters-only strip so
// "Concluída" and "CONCLUIDA" compare equal.
var accentFold = strings.NewReplacer(
	"á", "a", "à", "a", "ã", "a", "â", "a",
	"é", "e", "ê", "e",
	"í", "i",
	"ó", "o", "õ", "o", "ô", "o",
	"ú", "u",
	"ç", "c",
	"Á", "A", "À", "A", "Ã", "A", "Â", "A",
	"É", "E", "Ê", "E",
	"Í", "I",
	"Ó", "O", "Õ", "O", "Ô", "O",
	"Ú", "U",
	"Ç", "C",
)

// PixPayload is the charge data extracted from the invoice webhook reply.
type PixPayload struct {
	TxID      string     `json:"txid"`
	CopyPaste string     `json:"pixCopiaECola"`
	Amount    FlexAmount `json:"valor_original"`
	ExpiresAt string     `json:"data_expiracao"`
}

// Valid reports whether the reply carried enough to register a charge.
func (p PixPayload) Valid() bool {
	return p.TxID != "" || p.CopyPaste != ""
}

// FlexAmount accepts both `12.5` and `"12.50"`, which the automation emits
// interchangeably.
type FlexAmount float64

func (a *FlexAmount) UnmarshalJSON(data []byte) error {
	s := strings.TrimSpace(string(data))
	if s == "null" || s == `""` {
		*a = 0
		return nil
	}
	if strings.HasPrefix(s, `"`) {
		var str string
		if err := json.Unmarshal(data, &str); err != nil {
			return err
		}
		v, err := strconv.ParseFloat(strings.TrimSpace(str), 64)
		if err != nil {
			*a = 0
			return nil
		}
		*a = FlexAmount(v)
		return nil
	}
	var v float64
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*a = FlexAmount(v)
	return nil
}

// unwrap peels the array and "response" envelopes off a webhook reply body.
func unwrap(body []byte) json.RawMessage {
	raw := json.RawMessage(body)

	var arr []json.RawMessage
	if err := json.Unmarshal(raw, &arr); err == nil {
		if len(arr) == 0 {
			return nil
		}
		raw = arr[0]
	}

	var envelope struct {
		Response json.RawMessage `json:"response"`
	}
	if err := json.Unmarshal(raw, &envelope); err == nil && len(envelope.Response) > 0 && string(envelope.Response) != "null" {
		return envelope.Response
	}
	return raw
}

// ParsePixPayload extracts the charge data from an invoice webhook reply.
func ParsePixPayload(body []byte) (PixPayload, error) {
	raw := unwrap(body)
	if raw == nil {
		return PixPayload{}, nil
	}
	var p PixPayload
	if err := json.Unmarshal(raw, &p); err != nil {
		return PixPayload{}, err
	}
	return p, nil
}

// ParseStatus extracts the raw status string from a status webhook reply.
func ParseStatus(body []byte) string {
	raw := unwrap(body)
	if raw == nil {
		return ""
	}
	var p struct {
		Status string `json:"status"`
	}
	if err := json.Unmarshal(raw, &p); err != nil {
		return ""
	}
	return p.Status
}

// CleanStatus strips everything but letters and uppercases, so "Concluída",
// " CONCLUIDA " and "{concluida}" all normalize to CONCLUIDA.
func CleanStatus(raw string) string {
	return strings.ToUpper(nonLetters.ReplaceAllString(accentFold.Replace(raw), ""))
}

// StatusPaid reports whether a normalized status means the charge settled.
func StatusPaid(clean string) bool {
	return clean == "CONCLUIDA" || clean == "PAGO"
}

// StripScheme removes a leading http(s):// the automation sometimes prepends
// to the copy-paste code, which would break the banking apps' parser.
func StripScheme(code string) string {
	lower := strings.ToLower(code)
	for _, prefix := range []string{"https://", "http://"} {
		if strings.HasPrefix(lower, prefix) {
			return code[len(prefix):]
		}
	}
	return code
}
