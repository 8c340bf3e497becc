package handler_test

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/leafdepot/stocktake/internal/middleware"
	"github.com/leafdepot/stocktake/internal/stocktake/gateway"
	"github.com/leafdepot/stocktake/internal/stocktake/handler"
	"github.com/leafdepot/stocktake/internal/stocktake/testutil"
)

// setupAPI wires the full route table against a mock gateway,
// mirroring the production router layout
func setupAPI(t *testing.T) (*gin.Engine, *gateway.Mock) {
	t.Helper()
	mock := gateway.NewMock()
	svcs, _ := testutil.NewServices(mock)
	h := handler.NewHandlers(svcs)

	r := testutil.SetupRouter()
	v1 := r.Group("/api/v1")
	v1.POST("/webhooks/recognition", h.Progress.IngestResult)

	authorized := testutil.AuthGroup(r, "/api/v1")
	authorized.GET("/bins", h.Manifest.ListBins)
	authorized.POST("/manifests", h.Manifest.Build)
	authorized.GET("/manifests/current", h.Manifest.Current)
	authorized.POST("/manifests/task-no", h.Manifest.GenerateTaskNo)
	authorized.GET("/progress", h.Progress.Snapshot)
	authorized.POST("/progress/load", h.Progress.Load)
	authorized.POST("/progress/dispatch", h.Progress.Dispatch)
	authorized.PUT("/progress/rows/:rowId/quantity", h.Progress.SetQuantity)
	authorized.GET("/progress/rows/:rowId/image", h.Progress.Image)
	authorized.GET("/progress/statistics", h.Progress.Statistics)
	authorized.POST("/progress/save", h.Progress.Save)
	authorized.POST("/progress/upload", h.Progress.Upload)
	authorized.GET("/dashboard/summary", h.Dashboard.Summary)
	authorized.GET("/history/tasks", h.History.ListTasks)
	authorized.GET("/history/tasks/:taskId", h.History.TaskDetails)
	authorized.GET("/history/image", h.History.Image)
	authorized.POST("/history/cleanup", middleware.RequireRole("admin"), h.History.Cleanup)
	authorized.GET("/operation-logs", h.OpLog.List)
	authorized.DELETE("/operation-logs/:id", h.OpLog.Remove)
	authorized.DELETE("/operation-logs", h.OpLog.Clear)
	authorized.POST("/operation-logs/purge", h.OpLog.Purge)
	return r, mock
}

func TestAuthRequired(t *testing.T) {
	r, _ := setupAPI(t)

	w := testutil.DoRequest(r, "GET", "/api/v1/bins", nil, "")
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token, got %d", w.Code)
	}

	w = testutil.DoRequest(r, "GET", "/api/v1/bins", nil, "not-a-token")
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 with bad token, got %d", w.Code)
	}

	w = testutil.DoRequest(r, "GET", "/api/v1/bins", nil, testutil.DefaultTestToken())
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 with valid token, got %d: %s", w.Code, w.Body.String())
	}
}

func TestWebhookUnauthenticated(t *testing.T) {
	r, _ := setupAPI(t)

	body := map[string]interface{}{
		"taskNo":      "HS2025011501_1",
		"binLocation": "A区001储位",
		"number":      5,
		"success":     true,
	}
	w := testutil.DoRequest(r, "POST", "/api/v1/webhooks/recognition", body, "")
	if w.Code != http.StatusOK {
		t.Fatalf("webhook must not require auth, got %d: %s", w.Code, w.Body.String())
	}
}

func TestWebhookValidation(t *testing.T) {
	r, _ := setupAPI(t)

	w := testutil.DoRequest(r, "POST", "/api/v1/webhooks/recognition",
		map[string]interface{}{"number": 5, "success": true}, "")
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for missing keys, got %d", w.Code)
	}
}

func TestListBinsEnvelope(t *testing.T) {
	r, _ := setupAPI(t)

	w := testutil.DoRequest(r, "GET", "/api/v1/bins?warehouse=WH001", nil, testutil.DefaultTestToken())
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	resp := testutil.ParseResponse(w)
	if resp["code"].(float64) != 0 {
		t.Fatalf("unexpected envelope: %v", resp)
	}
	data := resp["data"].(map[string]interface{})
	bins := data["bins"].([]interface{})
	if len(bins) != 4 {
		t.Fatalf("expected 4 WH001 bins, got %d", len(bins))
	}
}

func TestManifestLifecycle(t *testing.T) {
	r, _ := setupAPI(t)
	token := testutil.DefaultTestToken()

	// Nothing built yet
	w := testutil.DoRequest(r, "GET", "/api/v1/manifests/current", nil, token)
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404 on empty slot, got %d", w.Code)
	}

	// Build from two selected bins
	body := map[string]interface{}{
		"taskNo": "HS2025011501",
		"bins":   gateway.DefaultBins()[:2],
	}
	w = testutil.DoRequest(r, "POST", "/api/v1/manifests", body, token)
	if w.Code != http.StatusOK {
		t.Fatalf("build failed: %d %s", w.Code, w.Body.String())
	}
	resp := testutil.ParseResponse(w)
	m := resp["data"].(map[string]interface{})
	if m["taskNo"] != "HS2025011501" {
		t.Fatalf("unexpected manifest: %v", m)
	}
	stats := m["stats"].(map[string]interface{})
	if stats["totalBins"].(float64) != 2 {
		t.Fatalf("unexpected stats: %v", stats)
	}

	// Now current returns it
	w = testutil.DoRequest(r, "GET", "/api/v1/manifests/current", nil, token)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
}

func TestInventoryFlow(t *testing.T) {
	r, _ := setupAPI(t)
	token := testutil.DefaultTestToken()

	// Load before any manifest exists
	w := testutil.DoRequest(r, "POST", "/api/v1/progress/load", nil, token)
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404 before manifest, got %d", w.Code)
	}

	// Build a manifest and load the session
	build := map[string]interface{}{
		"taskNo": "HS2025011501",
		"bins":   gateway.DefaultBins()[:2],
	}
	if w := testutil.DoRequest(r, "POST", "/api/v1/manifests", build, token); w.Code != http.StatusOK {
		t.Fatalf("build: %d %s", w.Code, w.Body.String())
	}
	w = testutil.DoRequest(r, "POST", "/api/v1/progress/load", nil, token)
	if w.Code != http.StatusOK {
		t.Fatalf("load: %d %s", w.Code, w.Body.String())
	}
	snap := testutil.ParseResponse(w)["data"].(map[string]interface{})
	items := snap["items"].([]interface{})
	if len(items) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(items))
	}

	// Dispatch
	w = testutil.DoRequest(r, "POST", "/api/v1/progress/dispatch", nil, token)
	if w.Code != http.StatusOK {
		t.Fatalf("dispatch: %d %s", w.Code, w.Body.String())
	}

	// Recognition result arrives over the webhook for row 1
	webhook := map[string]interface{}{
		"taskNo":      "HS2025011501_1",
		"binLocation": "A区001储位",
		"number":      "48",
		"success":     true,
	}
	w = testutil.DoRequest(r, "POST", "/api/v1/webhooks/recognition", webhook, "")
	if w.Code != http.StatusOK {
		t.Fatalf("webhook: %d %s", w.Code, w.Body.String())
	}
	outcome := testutil.ParseResponse(w)["data"].(map[string]interface{})
	if outcome["applied"] != true || outcome["matched"] != true {
		t.Fatalf("unexpected ingest outcome: %v", outcome)
	}

	// Unconfirmed manual edit over the recognition value reports a conflict
	edit := map[string]interface{}{"quantity": 50, "confirm": false}
	w = testutil.DoRequest(r, "PUT", "/api/v1/progress/rows/INV001/quantity", edit, token)
	if w.Code != http.StatusOK {
		t.Fatalf("edit: %d %s", w.Code, w.Body.String())
	}
	editOutcome := testutil.ParseResponse(w)["data"].(map[string]interface{})
	if editOutcome["conflict"] != true || editOutcome["autoValue"].(float64) != 48 {
		t.Fatalf("expected conflict with auto value 48, got %v", editOutcome)
	}

	// Confirmed edit goes through
	edit["confirm"] = true
	w = testutil.DoRequest(r, "PUT", "/api/v1/progress/rows/INV001/quantity", edit, token)
	if w.Code != http.StatusOK {
		t.Fatalf("confirmed edit: %d %s", w.Code, w.Body.String())
	}

	// Save is rejected while row 2 is still open
	w = testutil.DoRequest(r, "POST", "/api/v1/progress/save", nil, token)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 while rows remain, got %d", w.Code)
	}

	// Count the remaining row and save
	edit2 := map[string]interface{}{"quantity": 35, "confirm": false}
	if w := testutil.DoRequest(r, "PUT", "/api/v1/progress/rows/INV002/quantity", edit2, token); w.Code != http.StatusOK {
		t.Fatalf("edit row 2: %d %s", w.Code, w.Body.String())
	}
	w = testutil.DoRequest(r, "POST", "/api/v1/progress/save", nil, token)
	if w.Code != http.StatusOK {
		t.Fatalf("save: %d %s", w.Code, w.Body.String())
	}
	saveResult := testutil.ParseResponse(w)["data"].(map[string]interface{})
	if saveResult["completedCount"].(float64) != 2 {
		t.Fatalf("unexpected save result: %v", saveResult)
	}
	// Row 1 was corrected to 50 matching system 50, row 2 matches 35
	if saveResult["accuracyRate"].(float64) != 100 {
		t.Fatalf("expected accuracy 100, got %v", saveResult["accuracyRate"])
	}

	// Save shows up in the operation log
	w = testutil.DoRequest(r, "GET", "/api/v1/operation-logs", nil, token)
	logs := testutil.ParseResponse(w)["data"].(map[string]interface{})["logs"].([]interface{})
	if len(logs) != 1 {
		t.Fatalf("expected 1 log entry, got %d", len(logs))
	}
	entry := logs[0].(map[string]interface{})
	if entry["action"] != "完成盘点任务" {
		t.Fatalf("unexpected log entry: %v", entry)
	}
}

func TestUploadRequiresAuthToken(t *testing.T) {
	r, _ := setupAPI(t)
	w := testutil.DoRequest(r, "POST", "/api/v1/progress/upload", nil, testutil.DefaultTestToken())
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 without authToken header, got %d", w.Code)
	}
}

func TestProgressImageValidation(t *testing.T) {
	r, _ := setupAPI(t)
	w := testutil.DoRequest(r, "GET", "/api/v1/progress/rows/INV001/image", nil, testutil.DefaultTestToken())
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 without query params, got %d", w.Code)
	}
}

func TestDashboardSummaryEndpoint(t *testing.T) {
	r, _ := setupAPI(t)
	w := testutil.DoRequest(r, "GET", "/api/v1/dashboard/summary", nil, testutil.DefaultTestToken())
	if w.Code != http.StatusOK {
		t.Fatalf("summary: %d %s", w.Code, w.Body.String())
	}
	data := testutil.ParseResponse(w)["data"].(map[string]interface{})
	if data["supportedWarehouses"].(float64) != 6 {
		t.Fatalf("unexpected summary: %v", data)
	}
}

func TestHistoryEndpoints(t *testing.T) {
	r, _ := setupAPI(t)
	token := testutil.DefaultTestToken()

	w := testutil.DoRequest(r, "GET", "/api/v1/history/tasks", nil, token)
	if w.Code != http.StatusOK {
		t.Fatalf("history tasks: %d", w.Code)
	}
	data := testutil.ParseResponse(w)["data"].(map[string]interface{})
	tasks := data["tasks"].([]interface{})
	if len(tasks) == 0 {
		t.Fatal("expected mock history tasks")
	}
	taskID := tasks[0].(map[string]interface{})["taskId"].(string)

	w = testutil.DoRequest(r, "GET", "/api/v1/history/tasks/"+taskID, nil, token)
	if w.Code != http.StatusOK {
		t.Fatalf("history details: %d %s", w.Code, w.Body.String())
	}
	details := testutil.ParseResponse(w)["data"].(map[string]interface{})["details"].([]interface{})
	if len(details) != 2 {
		t.Fatalf("expected 2 detail rows, got %d", len(details))
	}

	w = testutil.DoRequest(r, "GET", "/api/v1/history/tasks/unknown-task", nil, token)
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown task, got %d", w.Code)
	}

	w = testutil.DoRequest(r, "GET",
		"/api/v1/history/image?taskNo=HS01&binLocation=b&cameraType=3d_camera&filename=MAIN", nil, token)
	if w.Code != http.StatusOK {
		t.Fatalf("history image: %d", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); ct != "image/jpeg" {
		t.Fatalf("unexpected content type %s", ct)
	}

	w = testutil.DoRequest(r, "GET", "/api/v1/history/image?taskNo=HS01", nil, token)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for incomplete image query, got %d", w.Code)
	}
}

func TestCleanupRoleGate(t *testing.T) {
	r, _ := setupAPI(t)
	body := map[string]interface{}{"days": 180}

	w := testutil.DoRequest(r, "POST", "/api/v1/history/cleanup", body, testutil.OperatorTestToken())
	if w.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for operator, got %d", w.Code)
	}

	w = testutil.DoRequest(r, "POST", "/api/v1/history/cleanup", body, testutil.DefaultTestToken())
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 for admin, got %d: %s", w.Code, w.Body.String())
	}
	data := testutil.ParseResponse(w)["data"].(map[string]interface{})
	if data["retention_days"].(float64) != 180 {
		t.Fatalf("unexpected cleanup result: %v", data)
	}
}

func TestOperationLogEndpoints(t *testing.T) {
	r, _ := setupAPI(t)
	token := testutil.DefaultTestToken()

	// Purge validation
	w := testutil.DoRequest(r, "POST", "/api/v1/operation-logs/purge", map[string]interface{}{"days": 0}, token)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for days=0, got %d", w.Code)
	}
	w = testutil.DoRequest(r, "POST", "/api/v1/operation-logs/purge", map[string]interface{}{"days": 90}, token)
	if w.Code != http.StatusOK {
		t.Fatalf("purge: %d %s", w.Code, w.Body.String())
	}

	// Remove of unknown id
	w = testutil.DoRequest(r, "DELETE", "/api/v1/operation-logs/nope", nil, token)
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown log id, got %d", w.Code)
	}

	// Clear always succeeds
	w = testutil.DoRequest(r, "DELETE", "/api/v1/operation-logs", nil, token)
	if w.Code != http.StatusOK {
		t.Fatalf("clear: %d", w.Code)
	}
}

func TestTaskNoGeneration(t *testing.T) {
	r, _ := setupAPI(t)
	token := testutil.DefaultTestToken()

	var last string
	for i := 0; i < 2; i++ {
		w := testutil.DoRequest(r, "POST", "/api/v1/manifests/task-no", nil, token)
		if w.Code != http.StatusOK {
			t.Fatalf("task-no: %d %s", w.Code, w.Body.String())
		}
		taskNo := testutil.ParseResponse(w)["data"].(map[string]interface{})["taskNo"].(string)
		if len(taskNo) != 12 || taskNo[:2] != "HS" {
			t.Fatalf("unexpected task no format: %s", taskNo)
		}
		if taskNo == last {
			t.Fatalf("task no must advance, got %s twice", taskNo)
		}
		last = taskNo
	}
	want := fmt.Sprintf("%02d", 2)
	if last[len(last)-2:] != want {
		t.Fatalf("expected sequence suffix %s, got %s", want, last)
	}
}
