package router_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/benbjohnson/clock"

	"focusflow/backend/internal/db"
	"focusflow/backend/internal/event"
	"focusflow/backend/internal/handler"
	"focusflow/backend/internal/repository"
	"focusflow/backend/internal/router"
	"focusflow/backend/internal/service"
)

type authResponse struct {
	Token string `json:"token"`
	User  struct {
		ID    string `json:"id"`
		Email string `json:"email"`
	} `json:"user"`
}

type stateEnvelope struct {
	State struct {
		Version int `json:"version"`
		Session *struct {
			SessionType string `json:"sessionType"`
			Status      string `json:"status"`
		} `json:"session"`
		Flow *struct {
			FlowID           string `json:"flowId"`
			CurrentStepIndex int    `json:"currentStepIndex"`
			StepsTotal       int    `json:"stepsTotal"`
		} `json:"flow"`
	} `json:"state"`
}

type sessionHistoryEnvelope struct {
	Sessions []struct {
		SessionType string `json:"sessionType"`
		Completed   bool   `json:"completed"`
	} `json:"sessions"`
}

type flowHistoryEnvelope struct {
	Flows []struct {
		FlowID         string `json:"flowId"`
		StepsCompleted int    `json:"stepsCompleted"`
		Success        bool   `json:"success"`
	} `json:"flows"`
}

type flowListEnvelope struct {
	Flows []struct {
		ID      string `json:"id"`
		Builtin bool   `json:"builtin"`
	} `json:"flows"`
}

type apiErrorEnvelope struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
		Details struct {
			State struct {
				Version int `json:"version"`
			} `json:"state"`
		} `json:"details"`
	} `json:"error"`
}

func TestTimerSyncAndConflict(t *testing.T) {
	engine := setupTestEngine(t)

	user1 := registerUser(t, engine, "user1@example.com", "123456")
	user2 := registerUser(t, engine, "user2@example.com", "123456")

	state1 := getState(t, engine, user1.Token)
	if state1.State.Version != 1 {
		t.Fatalf("expected initial version 1, got %d", state1.State.Version)
	}

	// Start a session with the current version.
	startBody := map[string]interface{}{
		"baseVersion": state1.State.Version,
		"sessionType": "classic",
	}
	status, _ := requestJSON(t, engine, http.MethodPost, "/api/timer/start", user1.Token, startBody)
	if status != http.StatusOK {
		t.Fatalf("expected 200 on start, got %d", status)
	}

	// Pause with a stale version from another device should conflict.
	conflictBody := map[string]int{"baseVersion": state1.State.Version}
	status, rawConflict := requestJSON(t, engine, http.MethodPost, "/api/timer/pause", user1.Token, conflictBody)
	if status != http.StatusConflict {
		t.Fatalf("expected 409 for stale version, got %d", status)
	}

	var conflictResp apiErrorEnvelope
	if err := json.Unmarshal(rawConflict, &conflictResp); err != nil {
		t.Fatalf("unmarshal conflict response: %v", err)
	}
	if conflictResp.Error.Code != "state_conflict" {
		t.Fatalf("expected state_conflict, got %s", conflictResp.Error.Code)
	}

	// Cancel with the latest version from the conflict details.
	latestVersion := conflictResp.Error.Details.State.Version
	status, _ = requestJSON(t, engine, http.MethodPost, "/api/timer/cancel", user1.Token, map[string]int{
		"baseVersion": latestVersion,
	})
	if status != http.StatusOK {
		t.Fatalf("expected 200 on cancel, got %d", status)
	}

	// User isolation: user2 should still have no history.
	status, user2HistoryRaw := requestJSON(t, engine, http.MethodGet, "/api/history/sessions?limit=10", user2.Token, nil)
	if status != http.StatusOK {
		t.Fatalf("expected 200 for user2 history, got %d", status)
	}

	var user2History sessionHistoryEnvelope
	if err := json.Unmarshal(user2HistoryRaw, &user2History); err != nil {
		t.Fatalf("unmarshal user2 history: %v", err)
	}
	if len(user2History.Sessions) != 0 {
		t.Fatalf("expected no sessions for user2, got %d", len(user2History.Sessions))
	}

	// User1 should have the cancelled session on record.
	status, user1HistoryRaw := requestJSON(t, engine, http.MethodGet, "/api/history/sessions?limit=10", user1.Token, nil)
	if status != http.StatusOK {
		t.Fatalf("expected 200 for user1 history, got %d", status)
	}

	var user1History sessionHistoryEnvelope
	if err := json.Unmarshal(user1HistoryRaw, &user1History); err != nil {
		t.Fatalf("unmarshal user1 history: %v", err)
	}
	if len(user1History.Sessions) == 0 {
		t.Fatal("expected at least one session for user1")
	}
	if user1History.Sessions[0].Completed {
		t.Fatal("expected the latest session to be recorded as cancelled")
	}
	if user1History.Sessions[0].SessionType != "classic" {
		t.Fatalf("expected a classic session record, got %s", user1History.Sessions[0].SessionType)
	}
}

func TestFlowRunEndpoints(t *testing.T) {
	engine := setupTestEngine(t)
	user := registerUser(t, engine, "flows@example.com", "123456")

	// The builtin catalog is seeded by migrations.
	status, rawFlows := requestJSON(t, engine, http.MethodGet, "/api/flows", user.Token, nil)
	if status != http.StatusOK {
		t.Fatalf("expected 200 on flow list, got %d", status)
	}
	var flowList flowListEnvelope
	if err := json.Unmarshal(rawFlows, &flowList); err != nil {
		t.Fatalf("unmarshal flow list: %v", err)
	}
	if len(flowList.Flows) != 3 {
		t.Fatalf("expected 3 builtin flows, got %d", len(flowList.Flows))
	}

	state := getState(t, engine, user.Token)
	status, rawStart := requestJSON(t, engine, http.MethodPost, "/api/flows/builtin-quick-sprint/start", user.Token, map[string]int{
		"baseVersion": state.State.Version,
	})
	if status != http.StatusOK {
		t.Fatalf("expected 200 on flow start, got %d", status)
	}

	var started stateEnvelope
	if err := json.Unmarshal(rawStart, &started); err != nil {
		t.Fatalf("unmarshal flow start response: %v", err)
	}
	if started.State.Flow == nil || started.State.Flow.FlowID != "builtin-quick-sprint" {
		t.Fatalf("expected a quick sprint run, got %+v", started.State.Flow)
	}
	if started.State.Session == nil || started.State.Session.SessionType != "quick_task" {
		t.Fatalf("expected a running quick_task step, got %+v", started.State.Session)
	}

	// Completing the step advances the run to the short break.
	status, rawComplete := requestJSON(t, engine, http.MethodPost, "/api/timer/complete", user.Token, map[string]int{
		"baseVersion": started.State.Version,
	})
	if status != http.StatusOK {
		t.Fatalf("expected 200 on complete, got %d", status)
	}
	var advanced stateEnvelope
	if err := json.Unmarshal(rawComplete, &advanced); err != nil {
		t.Fatalf("unmarshal complete response: %v", err)
	}
	if advanced.State.Flow == nil || advanced.State.Flow.CurrentStepIndex != 1 {
		t.Fatalf("expected run at step 1, got %+v", advanced.State.Flow)
	}
	if advanced.State.Session == nil || advanced.State.Session.SessionType != "short_break" {
		t.Fatalf("expected a short_break step, got %+v", advanced.State.Session)
	}

	// Ending the run mid-way records an unsuccessful completion.
	status, rawEnd := requestJSON(t, engine, http.MethodPost, "/api/flows/end", user.Token, map[string]int{
		"baseVersion": advanced.State.Version,
	})
	if status != http.StatusOK {
		t.Fatalf("expected 200 on flow end, got %d", status)
	}
	var ended stateEnvelope
	if err := json.Unmarshal(rawEnd, &ended); err != nil {
		t.Fatalf("unmarshal flow end response: %v", err)
	}
	if ended.State.Flow != nil || ended.State.Session != nil {
		t.Fatalf("expected idle state after end, got %+v", ended.State)
	}

	status, rawHistory := requestJSON(t, engine, http.MethodGet, "/api/history/flows?limit=10", user.Token, nil)
	if status != http.StatusOK {
		t.Fatalf("expected 200 for flow history, got %d", status)
	}
	var history flowHistoryEnvelope
	if err := json.Unmarshal(rawHistory, &history); err != nil {
		t.Fatalf("unmarshal flow history: %v", err)
	}
	if len(history.Flows) != 1 {
		t.Fatalf("expected one flow record, got %d", len(history.Flows))
	}
	if history.Flows[0].FlowID != "builtin-quick-sprint" || history.Flows[0].Success {
		t.Fatalf("expected abandoned quick sprint record, got %+v", history.Flows[0])
	}
	if history.Flows[0].StepsCompleted != 1 {
		t.Fatalf("expected 1 completed step, got %d", history.Flows[0].StepsCompleted)
	}

	// Stats endpoints answer from the recorded history.
	status, rawStreaks := requestJSON(t, engine, http.MethodGet, "/api/stats/streaks", user.Token, nil)
	if status != http.StatusOK {
		t.Fatalf("expected 200 for streaks, got %d", status)
	}
	var streaks struct {
		Streaks struct {
			Current int `json:"current"`
		} `json:"streaks"`
	}
	if err := json.Unmarshal(rawStreaks, &streaks); err != nil {
		t.Fatalf("unmarshal streaks: %v", err)
	}
	if streaks.Streaks.Current != 1 {
		t.Fatalf("expected a 1 day streak, got %d", streaks.Streaks.Current)
	}
}

func TestCORSPreflight(t *testing.T) {
	engine := setupTestEngine(t)
	req := httptest.NewRequest(http.MethodOptions, "/api/auth/login", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	req.Header.Set("Access-Control-Request-Method", "POST")
	recorder := httptest.NewRecorder()

	engine.ServeHTTP(recorder, req)

	if recorder.Code != http.StatusNoContent {
		t.Fatalf("expected 204 for preflight, got %d", recorder.Code)
	}
	if recorder.Header().Get("Access-Control-Allow-Origin") != "http://localhost:5173" {
		t.Fatalf("unexpected allow-origin header: %s", recorder.Header().Get("Access-Control-Allow-Origin"))
	}
}

func setupTestEngine(t *testing.T) http.Handler {
	t.Helper()

	database, err := db.OpenSQLite(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() {
		_ = database.Close()
	})

	_, currentFile, _, _ := runtime.Caller(0)
	migrationsDir := filepath.Join(filepath.Dir(currentFile), "..", "..", "migrations")
	if _, err := db.RunMigrations(database, migrationsDir); err != nil {
		t.Fatalf("run migrations: %v", err)
	}

	userRepo := repository.NewUserRepository(database)
	stateRepo := repository.NewStateRepository(database)
	recordStore := repository.NewRecordStore(database)
	flowRepo := repository.NewFlowRepository(database)

	clk := clock.New()
	authService := service.NewAuthService(userRepo, stateRepo, "test-secret", 24*time.Hour)
	timerService := service.NewTimerService(stateRepo, recordStore, flowRepo, event.NewBus(), clk)
	flowService := service.NewFlowService(flowRepo, stateRepo)
	statsService := service.NewStatsService(recordStore, clk, time.UTC)

	authHandler := handler.NewAuthHandler(authService)
	timerHandler := handler.NewTimerHandler(timerService)
	flowHandler := handler.NewFlowHandler(flowService, timerService)
	historyHandler := handler.NewHistoryHandler(timerService)
	statsHandler := handler.NewStatsHandler(statsService)

	return router.New(authService, authHandler, timerHandler, flowHandler, historyHandler, statsHandler, []string{"http://localhost:5173"})
}

func registerUser(t *testing.T, server http.Handler, email, password string) authResponse {
	t.Helper()
	status, body := requestJSON(t, server, http.MethodPost, "/api/auth/register", "", map[string]string{
		"email":    email,
		"password": password,
	})
	if status != http.StatusCreated {
		t.Fatalf("register %s failed with status %d: %s", email, status, string(body))
	}
	var resp authResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		t.Fatalf("unmarshal register response: %v", err)
	}
	if resp.Token == "" {
		t.Fatalf("empty token for user %s", email)
	}
	return resp
}

func getState(t *testing.T, server http.Handler, token string) stateEnvelope {
	t.Helper()
	status, body := requestJSON(t, server, http.MethodGet, "/api/timer/state", token, nil)
	if status != http.StatusOK {
		t.Fatalf("get state failed with status %d: %s", status, string(body))
	}
	var stateResp stateEnvelope
	if err := json.Unmarshal(body, &stateResp); err != nil {
		t.Fatalf("unmarshal state response: %v", err)
	}
	return stateResp
}

func requestJSON(
	t *testing.T,
	server http.Handler,
	method, path, token string,
	body interface{},
) (int, []byte) {
	t.Helper()

	var payload []byte
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal request body: %v", err)
		}
		payload = raw
	}

	req := httptest.NewRequest(method, path, bytes.NewReader(payload))
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	recorder := httptest.NewRecorder()
	server.ServeHTTP(recorder, req)
	return recorder.Code, recorder.Body.Bytes()
}
