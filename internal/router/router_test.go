package router_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"testing"
	"time"

	"med-tracker/internal/adapters/auth/jwt"
	"med-tracker/internal/ports/auth"
	"med-tracker/internal/router"

	"golang.org/x/crypto/bcrypt"
)

func TestHTTP_Medications_DevHeader(t *testing.T) {
	ts := httptest.NewServer(router.NewRouter(router.Options{}))
	defer ts.Close()

	owner := "owner-1"
	other := "other-1"

	// 1) Sin usuario => 401
	{
		st, _ := doReq(t, ts.URL, "GET", "/medications", "", "", nil)
		if st != http.StatusUnauthorized {
			t.Fatalf("expected 401 without user, got %d", st)
		}
	}

	// 2) Crear: 30 unidades, 1 por día, aviso 7 días antes
	med := createMedication(t, ts.URL, owner, map[string]any{
		"name":               "Lisinopril",
		"dosage":             10,
		"quantity":           30,
		"times_per_day":      1,
		"last_refilled":      "2025-03-10",
		"reminder_lead_days": 7,
	})
	if med.ReminderDate == nil || *med.ReminderDate != "2025-04-02" {
		t.Fatalf("expected reminder 2025-04-02, got %v", med.ReminderDate)
	}

	// 3) Nombre duplicado => 409
	{
		st, _ := doReq(t, ts.URL, "POST", "/medications", owner, "", map[string]any{
			"name": "lisinopril", "quantity": 5, "times_per_day": 1,
		})
		if st != http.StatusConflict {
			t.Fatalf("expected 409 duplicate, got %d", st)
		}
	}

	// 4) Stock insuficiente para el aviso => 422 y no cambia nada
	{
		st, _ := doReq(t, ts.URL, "PATCH", "/medications/"+med.ID, owner, "", map[string]any{"quantity": 3})
		if st != http.StatusUnprocessableEntity {
			t.Fatalf("expected 422, got %d", st)
		}
		got := getMedication(t, ts.URL, owner, med.ID)
		if got.Quantity != 30 || *got.ReminderDate != "2025-04-02" {
			t.Fatalf("expected untouched medication, got %#v", got)
		}
	}

	// 5) PATCH válido recalcula: (60 - 7) / 1 = 53 días
	{
		st, body := doReq(t, ts.URL, "PATCH", "/medications/"+med.ID, owner, "", map[string]any{"quantity": 60})
		if st != http.StatusOK {
			t.Fatalf("expected 200 patch, got %d body=%s", st, string(body))
		}
		var got medicationResp
		_ = json.Unmarshal(body, &got)
		if got.ReminderDate == nil || *got.ReminderDate != "2025-05-02" {
			t.Fatalf("expected reminder 2025-05-02, got %v", got.ReminderDate)
		}
	}

	// 6) Valores negativos => 400
	{
		st, _ := doReq(t, ts.URL, "PATCH", "/medications/"+med.ID, owner, "", map[string]any{"refills": -1})
		if st != http.StatusBadRequest {
			t.Fatalf("expected 400 for negative refills, got %d", st)
		}
	}

	// 7) Campo desconocido (reminder_date es derivado) => 400
	{
		st, _ := doReq(t, ts.URL, "PATCH", "/medications/"+med.ID, owner, "", map[string]any{"reminder_date": "2030-01-01"})
		if st != http.StatusBadRequest {
			t.Fatalf("expected 400 for reminder_date, got %d", st)
		}
	}

	// 8) Otro usuario => 403
	{
		st, _ := doReq(t, ts.URL, "GET", "/medications/"+med.ID, other, "", nil)
		if st != http.StatusForbidden {
			t.Fatalf("expected 403 for other user, got %d", st)
		}
	}

	// 9) Due: el 2025-05-02 ya está en fecha, el 2025-05-01 no
	{
		if n := countDue(t, ts.URL, owner, "2025-05-01"); n != 0 {
			t.Fatalf("expected 0 due on 05-01, got %d", n)
		}
		if n := countDue(t, ts.URL, owner, "2025-05-02"); n != 1 {
			t.Fatalf("expected 1 due on 05-02, got %d", n)
		}
		st, _ := doReq(t, ts.URL, "GET", "/medications/due?on=02-05-2025", owner, "", nil)
		if st != http.StatusBadRequest {
			t.Fatalf("expected 400 for bad date, got %d", st)
		}
	}

	// 10) Delete y luego 404
	{
		st, _ := doReq(t, ts.URL, "DELETE", "/medications/"+med.ID, owner, "", nil)
		if st != http.StatusOK {
			t.Fatalf("expected 200 delete, got %d", st)
		}
		st, _ = doReq(t, ts.URL, "GET", "/medications/"+med.ID, owner, "", nil)
		if st != http.StatusNotFound {
			t.Fatalf("expected 404 after delete, got %d", st)
		}
	}
}

func TestHTTP_RegisterConfirmLogin(t *testing.T) {
	tokens, err := jwt.New(jwt.Config{Secret: "test-secret", Issuer: "medtrack", TTL: time.Hour})
	if err != nil {
		t.Fatalf("jwt.New: %v", err)
	}
	mail := &captureMailer{}

	ts := httptest.NewServer(router.NewRouter(router.Options{
		TokenVerifier: tokens,
		TokenIssuer:   tokens,
		Mailer:        mail,
		BcryptCost:    bcrypt.MinCost,
	}))
	defer ts.Close()

	creds := map[string]any{"email": "Ana@Example.com", "password": "s3cret-pass"}

	// 1) Registro
	var userID string
	{
		st, body := doReq(t, ts.URL, "POST", "/register", "", "", creds)
		if st != http.StatusCreated {
			t.Fatalf("expected 201 register, got %d body=%s", st, string(body))
		}
		var resp struct {
			ID      string `json:"id"`
			Enabled bool   `json:"enabled"`
		}
		_ = json.Unmarshal(body, &resp)
		if resp.ID == "" || resp.Enabled {
			t.Fatalf("expected disabled user with id, got %s", string(body))
		}
		userID = resp.ID

		st, _ = doReq(t, ts.URL, "POST", "/register", "", "", creds)
		if st != http.StatusConflict {
			t.Fatalf("expected 409 on second register, got %d", st)
		}
	}

	// 2) Login antes de confirmar => 403
	{
		st, _ := doReq(t, ts.URL, "POST", "/auth/login", "", "", creds)
		if st != http.StatusForbidden {
			t.Fatalf("expected 403 before confirm, got %d", st)
		}
	}

	// 3) Confirmar con el token enviado por mail
	{
		token := mail.lastToken(t)
		st, body := doReq(t, ts.URL, "GET", "/register/confirm?token="+url.QueryEscape(token), "", "", nil)
		if st != http.StatusOK {
			t.Fatalf("expected 200 confirm, got %d body=%s", st, string(body))
		}
		st, _ = doReq(t, ts.URL, "GET", "/register/confirm?token="+url.QueryEscape(token), "", "", nil)
		if st != http.StatusNotFound {
			t.Fatalf("expected 404 reusing token, got %d", st)
		}
	}

	// 4) Login
	var bearer string
	{
		st, _ := doReq(t, ts.URL, "POST", "/auth/login", "", "", map[string]any{"email": "ana@example.com", "password": "wrong-pass"})
		if st != http.StatusUnauthorized {
			t.Fatalf("expected 401 wrong password, got %d", st)
		}

		st, body := doReq(t, ts.URL, "POST", "/auth/login", "", "", creds)
		if st != http.StatusOK {
			t.Fatalf("expected 200 login, got %d body=%s", st, string(body))
		}
		var resp struct {
			Token  string `json:"token"`
			UserID string `json:"user_id"`
		}
		_ = json.Unmarshal(body, &resp)
		if resp.Token == "" || resp.UserID != userID {
			t.Fatalf("unexpected login response %s", string(body))
		}
		bearer = resp.Token
	}

	// 5) Con el token se opera; el header de debug no sirve con verifier
	{
		st, _ := doReq(t, ts.URL, "GET", "/medications", userID, "", nil)
		if st != http.StatusUnauthorized {
			t.Fatalf("expected 401 with debug header only, got %d", st)
		}

		st, body := doReq(t, ts.URL, "POST", "/medications", "", bearer, map[string]any{
			"name": "Metformin", "quantity": 60, "times_per_day": 2, "reminder_lead_days": 5,
		})
		if st != http.StatusCreated {
			t.Fatalf("expected 201 create with bearer, got %d body=%s", st, string(body))
		}

		st, _ = doReq(t, ts.URL, "GET", "/users/"+userID, "", bearer, nil)
		if st != http.StatusOK {
			t.Fatalf("expected 200 get self, got %d", st)
		}
		st, _ = doReq(t, ts.URL, "GET", "/users/someone-else", "", bearer, nil)
		if st != http.StatusForbidden {
			t.Fatalf("expected 403 get other user, got %d", st)
		}
	}

	// 6) Baja: borra usuario y medicaciones
	{
		st, _ := doReq(t, ts.URL, "DELETE", "/users/"+userID, "", bearer, nil)
		if st != http.StatusOK {
			t.Fatalf("expected 200 remove, got %d", st)
		}
		st, body := doReq(t, ts.URL, "GET", "/medications", "", bearer, nil)
		if st != http.StatusOK || string(bytes.TrimSpace(body)) != "[]" {
			t.Fatalf("expected empty list after remove, got %d body=%s", st, string(body))
		}
		st, _ = doReq(t, ts.URL, "POST", "/auth/login", "", "", creds)
		if st != http.StatusUnauthorized {
			t.Fatalf("expected 401 after remove, got %d", st)
		}
	}
}

func TestHTTP_InvalidBearerIsRejected(t *testing.T) {
	tokens, err := jwt.New(jwt.Config{Secret: "test-secret", Issuer: "medtrack", TTL: time.Hour})
	if err != nil {
		t.Fatalf("jwt.New: %v", err)
	}
	other, err := jwt.New(jwt.Config{Secret: "other-secret", Issuer: "medtrack", TTL: time.Hour})
	if err != nil {
		t.Fatalf("jwt.New: %v", err)
	}
	forged, _, err := other.Issue(context.Background(), auth.Claims{UserID: "u-1"})
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	ts := httptest.NewServer(router.NewRouter(router.Options{TokenVerifier: tokens, TokenIssuer: tokens}))
	defer ts.Close()

	// firma ajena => 401 aunque la ruta sea pública
	st, _ := doReq(t, ts.URL, "GET", "/health", "", forged, nil)
	if st != http.StatusUnauthorized {
		t.Fatalf("expected 401 with forged token, got %d", st)
	}

	// con verifier el header de debug no autentica
	st, _ = doReq(t, ts.URL, "GET", "/medications", "u-1", "", nil)
	if st != http.StatusUnauthorized {
		t.Fatalf("expected 401 with debug header only, got %d", st)
	}
}

func TestHTTP_LoginNotConfigured(t *testing.T) {
	ts := httptest.NewServer(router.NewRouter(router.Options{}))
	defer ts.Close()

	st, _ := doReq(t, ts.URL, "POST", "/auth/login", "", "", map[string]any{"email": "a@b.c", "password": "12345678"})
	if st != http.StatusNotImplemented {
		t.Fatalf("expected 501 without issuer, got %d", st)
	}

	st, _ = doReq(t, ts.URL, "GET", "/health", "", "", nil)
	if st != http.StatusOK {
		t.Fatalf("expected 200 health, got %d", st)
	}
}

// -------------------------
// Helpers
// -------------------------

type medicationResp struct {
	ID           string  `json:"id"`
	Quantity     int     `json:"quantity"`
	ReminderDate *string `json:"reminder_date"`
}

type captureMailer struct {
	mu     sync.Mutex
	tokens []string
}

func (m *captureMailer) SendConfirmation(_ context.Context, _ string, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tokens = append(m.tokens, token)
	return nil
}

func (m *captureMailer) lastToken(t *testing.T) string {
	t.Helper()
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.tokens) == 0 {
		t.Fatalf("no confirmation mail captured")
	}
	return m.tokens[len(m.tokens)-1]
}

func createMedication(t *testing.T, baseURL, userID string, payload map[string]any) medicationResp {
	t.Helper()

	st, body := doReq(t, baseURL, "POST", "/medications", userID, "", payload)
	if st != http.StatusCreated {
		t.Fatalf("expected 201 create medication, got %d body=%s", st, string(body))
	}

	var resp medicationResp
	_ = json.Unmarshal(body, &resp)
	if resp.ID == "" {
		t.Fatalf("create medication: missing id body=%s", string(body))
	}
	return resp
}

func getMedication(t *testing.T, baseURL, userID, id string) medicationResp {
	t.Helper()

	st, body := doReq(t, baseURL, "GET", "/medications/"+id, userID, "", nil)
	if st != http.StatusOK {
		t.Fatalf("expected 200 get medication, got %d body=%s", st, string(body))
	}
	var resp medicationResp
	_ = json.Unmarshal(body, &resp)
	return resp
}

func countDue(t *testing.T, baseURL, userID, on string) int {
	t.Helper()

	st, body := doReq(t, baseURL, "GET", "/medications/due?on="+on, userID, "", nil)
	if st != http.StatusOK {
		t.Fatalf("expected 200 due, got %d body=%s", st, string(body))
	}
	var items []medicationResp
	_ = json.Unmarshal(body, &items)
	return len(items)
}

func doReq(t *testing.T, baseURL, method, path, userID, bearer string, payload any) (int, []byte) {
	t.Helper()

	var body io.Reader
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			t.Fatalf("marshal payload: %v", err)
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequest(method, baseURL+path, body)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if userID != "" {
		req.Header.Set("X-Debug-User-ID", userID)
	}
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("do request: %v", err)
	}
	defer resp.Body.Close()

	b, _ := io.ReadAll(resp.Body)
	return resp.StatusCode, b
}
