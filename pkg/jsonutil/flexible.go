// Package jsonutil decodes model-written JSON leniently: models often quote
// numbers, format them as BRL, or return numbers where text was asked for.
package jsonutil

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/ekaya-inc/growth-engine/pkg/locale"
)

// FlexibleStringValue converts a json.RawMessage to a string, handling cases where
// LLMs return numbers or booleans instead of strings. Returns empty string for null/empty.
func FlexibleStringValue(raw json.RawMessage) string {
	if len(raw) == 0 || string(raw) == "null" {
		return ""
	}

	// Try string first
	var strVal string
	if err := json.Unmarshal(raw, &strVal); err == nil {
		return strVal
	}

	// Try number
	var numVal float64
	if err := json.Unmarshal(raw, &numVal); err == nil {
		if numVal == float64(int64(numVal)) {
			return fmt.Sprintf("%d", int64(numVal))
		}
		return fmt.Sprintf("%g", numVal)
	}

	// Try boolean
	var boolVal bool
	if err := json.Unmarshal(raw, &boolVal); err == nil {
		return fmt.Sprintf("%t", boolVal)
	}

	// Fallback: return raw string representation
	return string(raw)
}

// FlexibleString is a string field that also accepts numbers and booleans.
type FlexibleString string

// UnmarshalJSON implements json.Unmarshaler.
func (s *FlexibleString) UnmarshalJSON(raw []byte) error {
	*s = FlexibleString(FlexibleStringValue(raw))
	return nil
}

// FlexibleFloat is a number field that also accepts numbers written as
// text: "1500", "R$ 1.500,00", "12,5%". The first number in the text wins.
type FlexibleFloat float64

// UnmarshalJSON implements json.Unmarshaler.
func (f *FlexibleFloat) UnmarshalJSON(raw []byte) error {
	if len(raw) == 0 || string(raw) == "null" {
		*f = 0
		return nil
	}

	var num float64
	if err := json.Unmarshal(raw, &num); err == nil {
		*f = FlexibleFloat(num)
		return nil
	}

	var text string
	if err := json.Unmarshal(raw, &text); err != nil {
		return fmt.Errorf("expected a number, got %s", string(raw))
	}
	v, err := ParseNumber(text)
	if err != nil {
		return err
	}
	*f = FlexibleFloat(v)
	return nil
}

// Float returns the value as float64.
func (f FlexibleFloat) Float() float64 { return float64(f) }

// ParseNumber reads the first number written in text, in pt-BR or plain
// notation. A leading minus sign is honoured.
func ParseNumber(text string) (float64, error) {
	nums := locale.ExtractNumbers(text)
	if len(nums) == 0 {
		return 0, fmt.Errorf("no number in %q", text)
	}
	v := nums[0]
	if strings.HasPrefix(strings.TrimSpace(text), "-") {
		v = -v
	}
	return v, nil
}
