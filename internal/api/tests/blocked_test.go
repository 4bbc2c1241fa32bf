package api_test

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/rongwang/billing-admin/internal/api/testutils"
	"github.com/rongwang/billing-admin/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBlockedClientLifecycle(t *testing.T) {
	testCtx := testutils.SetupTestContext(t)
	defer testutils.CleanupTestContext(testCtx)

	// Test case 1: Block a client
	blockReq := models.CreateBlockedClientRequest{
		Identifier: "123.456.789-00",
		ClientName: "Ana Silva",
		Reason:     "Solicitou não receber mensagens",
	}

	w := testutils.PerformRequest(testCtx.Router, http.MethodPost, "/api/blocked", blockReq)
	assert.Equal(t, http.StatusOK, w.Code)

	var created models.BlockedClientResponse
	testutils.DecodeJSON(t, w, &created)
	assert.NotZero(t, created.ID)
	assert.Equal(t, blockReq.Identifier, created.Identifier)
	assert.Equal(t, blockReq.ClientName, created.ClientName)

	// Test case 2: Duplicate identifier
	w = testutils.PerformRequest(testCtx.Router, http.MethodPost, "/api/blocked", blockReq)
	assert.Equal(t, http.StatusConflict, w.Code)

	// Test case 3: Missing identifier
	w = testutils.PerformRequest(testCtx.Router, http.MethodPost, "/api/blocked", models.CreateBlockedClientRequest{ClientName: "X"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = testutils.PerformRequest(testCtx.Router, http.MethodGet, "/api/blocked", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	var clients []models.BlockedClient
	testutils.DecodeJSON(t, w, &clients)
	assert.Len(t, clients, 1)

	// Test case 4: Delete
	w = testutils.PerformRequest(testCtx.Router, http.MethodDelete, fmt.Sprintf("/api/blocked/%d", created.ID), nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"message":"Deleted","changes":1}`, w.Body.String())

	w = testutils.PerformRequest(testCtx.Router, http.MethodGet, "/api/blocked", nil)
	assert.JSONEq(t, `[]`, w.Body.String())

	// Test case 5: Invalid id
	w = testutils.PerformRequest(testCtx.Router, http.MethodDelete, "/api/blocked/abc", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestBlockByInstallmentAndClient(t *testing.T) {
	testCtx := testutils.SetupTestContext(t)
	defer testutils.CleanupTestContext(testCtx)

	// Test case 1: Block one installment
	w := testutils.PerformRequest(testCtx.Router, http.MethodPost, "/api/blocked/by-installment", models.BlockInstallmentRequest{
		ClientCode: "10234", InstallmentID: "2", ClientName: "Ana Silva", Reason: "renegociada",
	})
	assert.Equal(t, http.StatusOK, w.Code)

	var resp models.BlockedClientResponse
	testutils.DecodeJSON(t, w, &resp)
	assert.Equal(t, "10234-2", resp.Identifier)
	assert.Equal(t, models.BlockTypeInstallment, resp.BlockType)

	// Test case 2: Block the whole client
	w = testutils.PerformRequest(testCtx.Router, http.MethodPost, "/api/blocked/by-client", models.BlockClientCodeRequest{
		ClientCode: "10234", ClientName: "Ana Silva", Reason: "pediu para sair",
	})
	assert.Equal(t, http.StatusOK, w.Code)
	testutils.DecodeJSON(t, w, &resp)
	assert.Equal(t, "10234", resp.Identifier)
	assert.Equal(t, models.BlockTypeClient, resp.BlockType)

	// Test case 3: Same installment again
	w = testutils.PerformRequest(testCtx.Router, http.MethodPost, "/api/blocked/by-installment", models.BlockInstallmentRequest{
		ClientCode: "10234", InstallmentID: "2",
	})
	assert.Equal(t, http.StatusConflict, w.Code)

	// Test case 4: Missing installment id
	w = testutils.PerformRequest(testCtx.Router, http.MethodPost, "/api/blocked/by-installment", map[string]string{"client_code": "10234"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = testutils.PerformRequest(testCtx.Router, http.MethodPost, "/api/blocked/by-client", map[string]string{})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = testutils.PerformRequest(testCtx.Router, http.MethodGet, "/api/blocked", nil)
	var clients []map[string]interface{}
	testutils.DecodeJSON(t, w, &clients)
	require.Len(t, clients, 2)
	for _, c := range clients {
		assert.Equal(t, "10234", c["client_code"])
		if c["block_type"] == models.BlockTypeInstallment {
			assert.Equal(t, "2", c["installment_id"])
		} else {
			assert.Nil(t, c["installment_id"])
		}
	}
}
