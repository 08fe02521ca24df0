package output

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/roshinpv1/promptshield/internal/model"
)

func TestTextFormatter_PrintTableUppercasesHeaders(t *testing.T) {
	var buf bytes.Buffer
	f := NewTextFormatter(&buf)
	require.NoError(t, f.PrintTable([]string{"id", "severity"}, [][]string{{"1", "high"}}))

	out := buf.String()
	require.Contains(t, out, "ID")
	require.Contains(t, out, "SEVERITY")
	require.Contains(t, out, "1")
}

func TestTextFormatter_PrintJSONIsIndented(t *testing.T) {
	var buf bytes.Buffer
	f := NewTextFormatter(&buf)
	require.NoError(t, f.PrintJSON(map[string]string{"k": "v"}))
	require.True(t, strings.Contains(buf.String(), "  \"k\""))
}

func TestJSONFormatter_PrintSuccessWrapsInEnvelope(t *testing.T) {
	var buf bytes.Buffer
	f := NewJSONFormatter(&buf)
	require.NoError(t, f.PrintSuccess("all good"))

	var decoded map[string]string
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	require.Equal(t, "success", decoded["status"])
	require.Equal(t, "all good", decoded["message"])
}

func TestJSONFormatter_PrintTableProducesRowObjects(t *testing.T) {
	var buf bytes.Buffer
	f := NewJSONFormatter(&buf)
	require.NoError(t, f.PrintTable([]string{"id", "severity"}, [][]string{{"1", "high"}}))

	var decoded struct {
		Headers []string            `json:"headers"`
		Data    []map[string]string `json:"data"`
	}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	require.Equal(t, []string{"id", "severity"}, decoded.Headers)
	require.Len(t, decoded.Data, 1)
	require.Equal(t, "high", decoded.Data[0]["severity"])
}

func TestNew_SelectsFormatterByFormat(t *testing.T) {
	require.IsType(t, &JSONFormatter{}, New(FormatJSON, nil))
	require.IsType(t, &TextFormatter{}, New(FormatText, nil))
	require.IsType(t, &TextFormatter{}, New(Format("unknown"), nil))
}

func TestColorSeverity_RendersEveryKnownSeverity(t *testing.T) {
	for _, s := range model.Severities {
		require.Contains(t, ColorSeverity(s), string(s))
	}
}

func TestColorDriftSeverity_RendersEveryKnownSeverity(t *testing.T) {
	for _, s := range []model.DriftSeverity{model.DriftCritical, model.DriftHigh, model.DriftMedium, model.DriftLow} {
		require.Contains(t, ColorDriftSeverity(s), string(s))
	}
}
