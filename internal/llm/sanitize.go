package llm

import (
	"bytes"
	"encoding/json"
	"regexp"
	"strings"

	"github.com/cockroachdb/errors"
)

// MoneyFields names the amount keys of a document. The "" entry holds
// top-level keys; any other entry names an array of objects.
type MoneyFields map[string][]string

var (
	InvoiceMoneyFields = MoneyFields{
		"":          {"subtotal", "taxAmount", "totalAmount"},
		"lineItems": {"quantity", "unitPrice", "amount"},
	}
	VoucherMoneyFields = MoneyFields{
		"voucherLines": {"debit", "credit"},
	}
)

var (
	reFence     = regexp.MustCompile("(?s)^```[a-zA-Z]*\\s*(.*?)\\s*```$")
	reMoneyJunk = regexp.MustCompile(`[\s$€£¥,]|USD|EUR|GBP`)
	reNumeric   = regexp.MustCompile(`^-?\d+(\.\d+)?$`)
)

// StripCodeFences removes a surrounding markdown code fence, if any.
func StripCodeFences(s string) string {
	s = strings.TrimSpace(s)
	if m := reFence.FindStringSubmatch(s); m != nil {
		return m[1]
	}
	return s
}

// SanitizeMoneyFields rewrites string amounts such as "$1,234.50" or
// "(12.00)" into plain decimal strings and turns "", "N/A" and "null" into
// null. Numbers are kept as their literal text so no precision is lost.
// Values that still do not look numeric are left untouched for validation
// to report. It returns the keys it changed.
func SanitizeMoneyFields(doc []byte, fields MoneyFields) ([]byte, []string, error) {
	dec := json.NewDecoder(bytes.NewReader(doc))
	dec.UseNumber()
	var m map[string]any
	if err := dec.Decode(&m); err != nil {
		return nil, nil, errors.Wrap(err, "sanitize: decode")
	}

	var changed []string
	clean := func(obj map[string]any, keys []string, prefix string) {
		for _, k := range keys {
			s, ok := obj[k].(string)
			if !ok {
				continue
			}
			v, touched := cleanAmount(s)
			if touched {
				obj[k] = v
				changed = append(changed, prefix+k)
			}
		}
	}

	for container, keys := range fields {
		if container == "" {
			clean(m, keys, "")
			continue
		}
		arr, ok := m[container].([]any)
		if !ok {
			continue
		}
		for _, item := range arr {
			if obj, ok := item.(map[string]any); ok {
				clean(obj, keys, container+"[].")
			}
		}
	}

	if len(changed) == 0 {
		return doc, nil, nil
	}
	out, err := json.Marshal(m)
	if err != nil {
		return nil, changed, errors.Wrap(err, "sanitize: encode")
	}
	return out, changed, nil
}

func cleanAmount(s string) (any, bool) {
	t := strings.TrimSpace(s)
	switch strings.ToLower(t) {
	case "", "null", "n/a", "na", "none", "-":
		return nil, true
	}
	negative := false
	if strings.HasPrefix(t, "(") && strings.HasSuffix(t, ")") {
		negative = true
		t = t[1 : len(t)-1]
	}
	t = reMoneyJunk.ReplaceAllString(t, "")
	if !reNumeric.MatchString(t) {
		return s, false
	}
	if negative && !strings.HasPrefix(t, "-") {
		t = "-" + t
	}
	if t == s {
		return s, false
	}
	return t, true
}
