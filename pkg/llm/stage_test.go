package llm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCheckTruncated(t *testing.T) {
	tests := []struct {
		name     string
		response string
		errType  ErrorType
	}{
		{"complete object", `{"a": 1}`, ErrorTypeNone},
		{"complete array", `[1, 2]`, ErrorTypeNone},
		{"fenced", "```json\n{\"a\": 1}\n```", ErrorTypeNone},
		{"think tags", "<think>hmm</think>\n{\"a\": 1}  ", ErrorTypeNone},
		{"cut mid-string", `{"sugestoes": [{"titulo": "Kit pres`, ErrorTypeTruncated},
		{"empty", "   ", ErrorTypeMalformed},
		{"prose only", "Desculpe, não posso ajudar.", ErrorTypeMalformed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := CheckTruncated(tt.response)
			if tt.errType == ErrorTypeNone {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Equal(t, tt.errType, GetErrorType(err))
			assert.True(t, IsRetryable(err))
		})
	}
}

func TestCheckTruncated_ShowsTail(t *testing.T) {
	err := CheckTruncated(`{"descricao": "uma descrição bastante longa que foi cortada no meio da frase`)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "...")
	assert.True(t, IsTruncated(err))
}

type analystOut struct {
	Anomalies []string `json:"anomalies"`
	Summary   string   `json:"summary"`
}

func TestParseStageResponse(t *testing.T) {
	resp, err := ParseStageResponse[analystOut]("Segue:\n```json\n{\"anomalies\": [\"queda\"], \"summary\": \"ok\"}\n```", "anomalies", "summary")
	require.NoError(t, err)
	assert.Equal(t, []string{"queda"}, resp.Value.Anomalies)
	assert.Contains(t, resp.Raw, "summary")

	tree, ok := resp.Tree().(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "ok", tree["summary"])
}

func TestParseStageResponse_Failures(t *testing.T) {
	tests := []struct {
		name     string
		response string
		errType  ErrorType
	}{
		{"truncated", `{"anomalies": ["que`, ErrorTypeTruncated},
		{"array instead of object", `["a", "b"]`, ErrorTypeMalformed},
		{"invalid json", `{"anomalies": [,]}`, ErrorTypeMalformed},
		{"missing key", `{"anomalies": []}`, ErrorTypeSchema},
		{"null key", `{"anomalies": [], "summary": null}`, ErrorTypeSchema},
		{"wrong type", `{"anomalies": "queda", "summary": "ok"}`, ErrorTypeSchema},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseStageResponse[analystOut](tt.response, "anomalies", "summary")
			require.Error(t, err)
			assert.Equal(t, tt.errType, GetErrorType(err))
			assert.True(t, IsRetryable(err))
		})
	}
}

func TestParseStageResponse_NamesMissingKeys(t *testing.T) {
	_, err := ParseStageResponse[analystOut](`{"other": 1}`, "anomalies", "summary")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "anomalies, summary")
}

func TestCheckLanguage(t *testing.T) {
	ok := map[string]any{
		"titulo":    "Kit presente para o Dia das Mães",
		"tendencia": "crescendo",
	}
	assert.NoError(t, CheckLanguage(ok))

	bad := map[string]any{
		"titulo":    "Improve the checkout with your best offers",
		"tendencia": "growing",
		"app":       "The App with Points",
	}
	err := CheckLanguage(bad, "app")
	require.Error(t, err)
	assert.Equal(t, ErrorTypeLanguage, GetErrorType(err))
	assert.Contains(t, err.Error(), "2 English fragments")
	assert.NotContains(t, err.Error(), "Points")
}
