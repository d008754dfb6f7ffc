package llm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractJSON(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"plain object", `{"a": 1}`, `{"a": 1}`},
		{"plain array", `[1, 2, 3]`, `[1, 2, 3]`},
		{"nested", `{"a": {"b": [1, {"c": 2}]}}`, `{"a": {"b": [1, {"c": 2}]}}`},
		{"think tags", "<think>I should return {x}</think>\n{\"a\": 1}", `{"a": 1}`},
		{"markdown fence", "```json\n{\"titulo\": \"Kit\"}\n```", `{"titulo": "Kit"}`},
		{"prose around", "Aqui está: {\"a\": 1} espero que ajude", `{"a": 1}`},
		{"brackets in strings", `{"t": "use {chaves} e [colchetes]"}`, `{"t": "use {chaves} e [colchetes]"}`},
		{"escaped quotes", `{"t": "ele disse \"oi}\""}`, `{"t": "ele disse \"oi}\""}`},
		{"array before object", `[{"a": 1}]`, `[{"a": 1}]`},
		{"invalid object, valid array later", `{bad} then [1]`, `[1]`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ExtractJSON(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestExtractJSON_Failures(t *testing.T) {
	for _, in := range []string{"", "sem json aqui", `{"a": 1`, `{"a": }`} {
		_, err := ExtractJSON(in)
		assert.Error(t, err, in)
	}
}
