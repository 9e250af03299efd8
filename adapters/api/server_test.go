package api

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"dynaconn/adapters/store"
	"dynaconn/domain/core"
	"dynaconn/domain/run"
	"dynaconn/internal/config"
	"dynaconn/internal/testkit"
)

func newTestServer(t *testing.T) (*httptest.Server, *run.BatchManifest) {
	t.Helper()
	kit := testkit.NewTestKit()
	manifest, err := kit.SeedRun(context.Background(), 2)
	if err != nil {
		t.Fatalf("SeedRun: %v", err)
	}

	cfg := config.ServerConfig{Port: "0", ReadTimeout: time.Second, WriteTimeout: time.Second}
	srv := NewServer(cfg, kit.Registry(), kit.Store(), nil)
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return ts, manifest
}

func getJSON(t *testing.T, url string, wantStatus int) map[string]any {
	t.Helper()
	resp, err := http.Get(url)
	if err != nil {
		t.Fatalf("GET %s: %v", url, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != wantStatus {
		body, _ := io.ReadAll(resp.Body)
		t.Fatalf("GET %s = %d, want %d (body %s)", url, resp.StatusCode, wantStatus, body)
	}

	var payload map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		t.Fatalf("decode %s: %v", url, err)
	}
	return payload
}

func TestHealthEndpoint(t *testing.T) {
	ts, _ := newTestServer(t)
	payload := getJSON(t, ts.URL+"/healthz", http.StatusOK)
	if payload["status"] != "ok" {
		t.Errorf("payload = %v", payload)
	}
}

func TestListRuns(t *testing.T) {
	ts, manifest := newTestServer(t)
	payload := getJSON(t, ts.URL+"/api/runs", http.StatusOK)

	runs, ok := payload["runs"].([]any)
	if !ok || len(runs) != 1 {
		t.Fatalf("runs = %v", payload["runs"])
	}
	record := runs[0].(map[string]any)
	if record["status"] != string(run.RunCompleted) {
		t.Errorf("status = %v", record["status"])
	}
	m := record["manifest"].(map[string]any)
	if m["run_id"] != manifest.RunID.String() {
		t.Errorf("run_id = %v, want %s", m["run_id"], manifest.RunID)
	}
}

func TestListRunsRejectsBadLimit(t *testing.T) {
	ts, _ := newTestServer(t)
	getJSON(t, ts.URL+"/api/runs?limit=NaN", http.StatusBadRequest)
}

func TestGetRun(t *testing.T) {
	ts, manifest := newTestServer(t)

	payload := getJSON(t, ts.URL+"/api/runs/"+manifest.RunID.String(), http.StatusOK)
	m := payload["manifest"].(map[string]any)
	if m["fingerprint"] != manifest.Fingerprint.String() {
		t.Errorf("fingerprint = %v", m["fingerprint"])
	}
	summary, ok := payload["summary"].(map[string]any)
	if !ok {
		t.Fatalf("summary missing: %v", payload)
	}
	if summary["succeeded"] != float64(2) {
		t.Errorf("succeeded = %v", summary["succeeded"])
	}
}

func TestGetRunErrors(t *testing.T) {
	ts, _ := newTestServer(t)

	getJSON(t, ts.URL+"/api/runs/not-a-uuid", http.StatusBadRequest)

	unknown := core.NewRunID()
	payload := getJSON(t, ts.URL+"/api/runs/"+unknown.String(), http.StatusNotFound)
	if payload["code"] != "NOT_FOUND" {
		t.Errorf("code = %v", payload["code"])
	}
}

func TestListSubjects(t *testing.T) {
	ts, manifest := newTestServer(t)
	payload := getJSON(t, ts.URL+"/api/runs/"+manifest.RunID.String()+"/subjects", http.StatusOK)

	subjects, ok := payload["subjects"].([]any)
	if !ok || len(subjects) != 2 {
		t.Fatalf("subjects = %v", payload["subjects"])
	}
	first := subjects[0].(map[string]any)
	if first["subject"] != float64(0) || first["status"] != string(run.SubjectSucceeded) {
		t.Errorf("first subject = %v", first)
	}
}

func TestListArtifacts(t *testing.T) {
	ts, manifest := newTestServer(t)
	payload := getJSON(t, ts.URL+"/api/runs/"+manifest.RunID.String()+"/artifacts", http.StatusOK)

	keys, ok := payload["keys"].([]any)
	if !ok || len(keys) == 0 {
		t.Fatalf("keys = %v", payload["keys"])
	}
	found := false
	for _, k := range keys {
		if k == store.ManifestKey(manifest.RunID) {
			found = true
		}
	}
	if !found {
		t.Errorf("manifest key missing from %v", keys)
	}
}

func TestGetArtifactJSON(t *testing.T) {
	ts, manifest := newTestServer(t)
	url := ts.URL + "/api/runs/" + manifest.RunID.String() + "/artifacts/manifest.json"

	resp, err := http.Get(url)
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "application/json" {
		t.Errorf("content type = %s", ct)
	}

	var stored run.BatchManifest
	if err := json.NewDecoder(resp.Body).Decode(&stored); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if stored.RunID != manifest.RunID {
		t.Errorf("run_id = %s, want %s", stored.RunID, manifest.RunID)
	}
}

func TestGetArtifactCompressedTable(t *testing.T) {
	ts, manifest := newTestServer(t)
	url := ts.URL + "/api/runs/" + manifest.RunID.String() +
		"/artifacts/trajectory/spectral/subject_0.csv.gz"

	resp, err := http.Get(url)
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}

	// The transport strips Content-Encoding: gzip, so the body arrives
	// as plain CSV.
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	table, err := store.DecodeTable("subject_0.csv", body)
	if err != nil {
		t.Fatalf("DecodeTable: %v", err)
	}
	if table.Rows != 2 || table.Cols != 6 {
		t.Errorf("shape = %dx%d, want 2x6", table.Rows, table.Cols)
	}
	if table.Values[0] != 0 || table.Values[1] != 1 {
		t.Errorf("values = %v", table.Values[:2])
	}
}

func TestGetArtifactMissing(t *testing.T) {
	ts, manifest := newTestServer(t)
	url := ts.URL + "/api/runs/" + manifest.RunID.String() + "/artifacts/fcd/linear/subject_9.csv.gz"
	payload := getJSON(t, url, http.StatusNotFound)
	if payload["code"] != "NOT_FOUND" {
		t.Errorf("code = %v", payload["code"])
	}
}
