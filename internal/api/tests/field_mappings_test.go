package api_test

import (
	"net/http"
	"testing"

	"github.com/rongwang/billing-admin/internal/api/testutils"
	"github.com/rongwang/billing-admin/internal/config"
	"github.com/rongwang/billing-admin/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFieldMappings(t *testing.T) {
	testCtx := testutils.SetupTestContext(t)
	defer testutils.CleanupTestContext(testCtx)

	// Test case 1: Defaults are seeded
	w := testutils.PerformRequest(testCtx.Router, http.MethodGet, "/api/field-mappings", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	var mappings []models.FieldMapping
	testutils.DecodeJSON(t, w, &mappings)
	require.Len(t, mappings, len(config.DefaultFieldMappings))

	// Test case 2: Repoint one placeholder and add another
	w = testutils.PerformRequest(testCtx.Router, http.MethodPost, "/api/field-mappings", []models.FieldMappingRequest{
		{MessageVariable: "@vencimentoparcela", DatabaseColumn: "data_vencimento"},
		{MessageVariable: "@linkboleto", DatabaseColumn: "url_boleto"},
	})
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"message":"Field mappings saved"}`, w.Body.String())

	w = testutils.PerformRequest(testCtx.Router, http.MethodGet, "/api/field-mappings", nil)
	testutils.DecodeJSON(t, w, &mappings)
	require.Len(t, mappings, len(config.DefaultFieldMappings)+1)

	columns := map[string]string{}
	for _, m := range mappings {
		columns[m.MessageVariable] = m.DatabaseColumn
	}
	assert.Equal(t, "data_vencimento", columns["@vencimentoparcela"])
	assert.Equal(t, "url_boleto", columns["@linkboleto"])

	// Test case 3: Body must be an array
	w = testutils.PerformRequest(testCtx.Router, http.MethodPost, "/api/field-mappings",
		models.FieldMappingRequest{MessageVariable: "@x", DatabaseColumn: "x"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	// Test case 4: Every entry needs both sides
	w = testutils.PerformRequest(testCtx.Router, http.MethodPost, "/api/field-mappings", []map[string]string{
		{"message_variable": "@x"},
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = testutils.PerformRequest(testCtx.Router, http.MethodGet, "/api/field-mappings", nil)
	testutils.DecodeJSON(t, w, &mappings)
	assert.Len(t, mappings, len(config.DefaultFieldMappings)+1)
}
