package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log"
	"net"
	"net/http"
	"testing"

	"labdesk/internal/config"
	"labdesk/internal/db"
	"labdesk/internal/domain"
	"labdesk/internal/engine"
	"labdesk/internal/migrate"
)

type testServer struct {
	URL    string
	client *http.Client
	close  func()
}

func (s *testServer) Client() *http.Client { return s.client }
func (s *testServer) Close()               { s.close() }

func newTestServer(t *testing.T, auth AuthConfig) *testServer {
	t.Helper()
	workspace := t.TempDir()
	conn, err := db.Open(db.Config{Workspace: workspace})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := migrate.Migrate(conn); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	cfg := config.Default("lab-1")
	e := engine.New(conn, cfg)
	auth.Logger = log.New(io.Discard, "", 0)
	handler := New(Config{Engine: e, Auth: auth})
	ln, err := net.Listen("tcp4", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	srv := &http.Server{Handler: handler}
	go srv.Serve(ln)
	testSrv := &testServer{
		URL:    "http://" + ln.Addr().String(),
		client: &http.Client{},
		close: func() {
			srv.Shutdown(context.Background())
			ln.Close()
			conn.Close()
		},
	}
	t.Cleanup(testSrv.Close)
	return testSrv
}

func doJSON(t *testing.T, client *http.Client, method, url string, body any) (*http.Response, []byte) {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(b)
	} else {
		reader = bytes.NewReader(nil)
	}
	req, err := http.NewRequest(method, url, reader)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	res, err := client.Do(req)
	if err != nil {
		t.Fatalf("do request: %v", err)
	}
	defer res.Body.Close()
	data, err := io.ReadAll(res.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	return res, data
}

func mustStatus(t *testing.T, res *http.Response, data []byte, want int) {
	t.Helper()
	if res.StatusCode != want {
		t.Fatalf("status %d, want %d: %s", res.StatusCode, want, string(data))
	}
}

func TestHealthSkipsAuth(t *testing.T) {
	srv := newTestServer(t, AuthConfig{})
	res, data := doJSON(t, srv.Client(), http.MethodGet, srv.URL+"/v1/health", nil)
	mustStatus(t, res, data, http.StatusOK)
}

func TestUnauthenticatedRequestsRejected(t *testing.T) {
	srv := newTestServer(t, AuthConfig{})
	res, data := doJSON(t, srv.Client(), http.MethodGet, srv.URL+"/v1/clients", nil)
	mustStatus(t, res, data, http.StatusUnauthorized)
	var envelope struct {
		Code string `json:"code"`
	}
	if err := json.Unmarshal(data, &envelope); err != nil {
		t.Fatalf("unmarshal error envelope: %v", err)
	}
	if envelope.Code != "unauthorized" {
		t.Fatalf("expected unauthorized code, got %q", envelope.Code)
	}
}

func TestNotFoundEnvelope(t *testing.T) {
	srv := newTestServer(t, AuthConfig{InsecureLocalActor: "tester"})
	res, data := doJSON(t, srv.Client(), http.MethodGet, srv.URL+"/v1/rfis/missing", nil)
	mustStatus(t, res, data, http.StatusNotFound)
	var envelope struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(data, &envelope); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if envelope.Code != "not_found" {
		t.Fatalf("expected not_found, got %q", envelope.Code)
	}
}

func TestRFIFlowOverHTTP(t *testing.T) {
	srv := newTestServer(t, AuthConfig{InsecureLocalActor: "tester"})
	client := srv.Client()

	res, data := doJSON(t, client, http.MethodPost, srv.URL+"/v1/clients", map[string]any{
		"id": "acme", "name": "Acme Ltd",
	})
	mustStatus(t, res, data, http.StatusCreated)

	res, data = doJSON(t, client, http.MethodPost, srv.URL+"/v1/clients/acme/contacts", map[string]any{
		"id": "carol", "name": "Carol",
	})
	mustStatus(t, res, data, http.StatusCreated)

	res, data = doJSON(t, client, http.MethodPost, srv.URL+"/v1/personnel", map[string]any{
		"id": "pat", "name": "Pat",
	})
	mustStatus(t, res, data, http.StatusCreated)

	res, data = doJSON(t, client, http.MethodPost, srv.URL+"/v1/projects", map[string]any{
		"id": "road", "client_id": "acme", "name": "Road tests", "contact_persons": []string{"carol"},
	})
	mustStatus(t, res, data, http.StatusCreated)

	res, data = doJSON(t, client, http.MethodPost, srv.URL+"/v1/rfis", map[string]any{
		"initiation_type":  "internal_external",
		"subject":          "Results timeline",
		"description":      "When are results due?",
		"project_id":       "road",
		"client_id":        "acme",
		"lab_initiator":    "pat",
		"client_receivers": []string{"carol"},
	})
	mustStatus(t, res, data, http.StatusCreated)
	var rfi domain.RFI
	if err := json.Unmarshal(data, &rfi); err != nil {
		t.Fatalf("unmarshal rfi: %v", err)
	}
	if rfi.Status != "open" {
		t.Fatalf("expected open, got %s", rfi.Status)
	}

	res, data = doJSON(t, client, http.MethodPost, srv.URL+"/v1/rfis/"+rfi.ID+"/messages", map[string]any{
		"sender_id": "pat", "message": "Results due Friday.",
	})
	mustStatus(t, res, data, http.StatusCreated)
	var msg domain.ConversationMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		t.Fatalf("unmarshal message: %v", err)
	}

	res, data = doJSON(t, client, http.MethodPut, srv.URL+"/v1/rfis/"+rfi.ID+"/messages/"+msg.Key+"/official", map[string]any{
		"is_official": true,
	})
	mustStatus(t, res, data, http.StatusOK)
	if err := json.Unmarshal(data, &rfi); err != nil {
		t.Fatalf("unmarshal rfi: %v", err)
	}
	if rfi.Status != "resolved" || rfi.DateResolved == nil {
		t.Fatalf("expected resolved with date, got %s", rfi.Status)
	}
	if len(rfi.StatusHistory) != 2 {
		t.Fatalf("expected 2 history entries, got %d", len(rfi.StatusHistory))
	}

	// invalid participant mix comes back as a validation failure
	res, data = doJSON(t, client, http.MethodPost, srv.URL+"/v1/rfis", map[string]any{
		"initiation_type":  "internal_external",
		"subject":          "Bad",
		"description":      "Bad",
		"project_id":       "road",
		"client_id":        "acme",
		"client_initiator": "carol",
		"lab_initiator":    "pat",
		"client_receivers": []string{"carol"},
	})
	mustStatus(t, res, data, http.StatusUnprocessableEntity)
	var envelope struct {
		Code string `json:"code"`
	}
	if err := json.Unmarshal(data, &envelope); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if envelope.Code != "validation_failed" {
		t.Fatalf("expected validation_failed, got %q", envelope.Code)
	}
}

func TestDuplicateClientConflictEnvelope(t *testing.T) {
	srv := newTestServer(t, AuthConfig{InsecureLocalActor: "tester"})
	client := srv.Client()
	res, data := doJSON(t, client, http.MethodPost, srv.URL+"/v1/clients", map[string]any{"id": "acme", "name": "Acme"})
	mustStatus(t, res, data, http.StatusCreated)
	res, data = doJSON(t, client, http.MethodPost, srv.URL+"/v1/clients", map[string]any{"id": "acme", "name": "Acme again"})
	mustStatus(t, res, data, http.StatusConflict)
	var envelope struct {
		Code string `json:"code"`
	}
	if err := json.Unmarshal(data, &envelope); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if envelope.Code != "conflict" {
		t.Fatalf("expected conflict, got %q", envelope.Code)
	}
}

func TestQuotationFlowOverHTTP(t *testing.T) {
	srv := newTestServer(t, AuthConfig{InsecureLocalActor: "tester"})
	client := srv.Client()

	res, data := doJSON(t, client, http.MethodPost, srv.URL+"/v1/clients", map[string]any{"id": "acme", "name": "Acme"})
	mustStatus(t, res, data, http.StatusCreated)
	res, data = doJSON(t, client, http.MethodPost, srv.URL+"/v1/projects", map[string]any{"id": "road", "client_id": "acme", "name": "Road"})
	mustStatus(t, res, data, http.StatusCreated)

	res, data = doJSON(t, client, http.MethodPost, srv.URL+"/v1/quotations", map[string]any{
		"project_id": "road",
		"client_id":  "acme",
		"items":      []map[string]any{{"description": "Testing", "quantity": 2, "unit_price": 75}},
	})
	mustStatus(t, res, data, http.StatusCreated)
	var q domain.Quotation
	if err := json.Unmarshal(data, &q); err != nil {
		t.Fatalf("unmarshal quotation: %v", err)
	}
	if q.Number != "QT-0001" || q.Total != 150 {
		t.Fatalf("unexpected quotation %s total %v", q.Number, q.Total)
	}

	res, data = doJSON(t, client, http.MethodPut, srv.URL+"/v1/quotations/"+q.ID+"/status", map[string]any{"status": "issued"})
	mustStatus(t, res, data, http.StatusOK)

	res, data = doJSON(t, client, http.MethodPost, srv.URL+"/v1/quotations/"+q.ID+"/revisions", nil)
	mustStatus(t, res, data, http.StatusCreated)
	var rev domain.Quotation
	if err := json.Unmarshal(data, &rev); err != nil {
		t.Fatalf("unmarshal revision: %v", err)
	}
	if rev.Number != "QT-0001-R2" || rev.RevisionOf == nil || *rev.RevisionOf != q.ID {
		t.Fatalf("unexpected revision %+v", rev)
	}
}
