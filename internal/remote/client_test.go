package remote

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"bloodlink.org/internal/session"
	"bloodlink.org/internal/verify"
	"bloodlink.org/internal/wizard"
)

func newTestClient(t *testing.T, handler http.Handler, opts ...ClientOption) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	c, err := NewClient(srv.URL, opts...)
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	return c
}

func staticTokens(role session.Role, token string) TokenSource {
	return func() (session.Role, string) { return role, token }
}

func TestLoginHitsRoleEndpoint(t *testing.T) {
	var gotPath string
	var gotBody LoginRequest
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		_ = json.NewDecoder(r.Body).Decode(&gotBody)
		_ = json.NewEncoder(w).Encode(LoginResponse{
			Token: "tok-1",
			User:  session.User{ID: "u1", Name: "Amina"},
		})
	}))

	resp, err := c.Login(context.Background(), session.RoleDonor, LoginRequest{Identifier: "amina@example.com", Password: "pw"})
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if gotPath != "/donor-login" {
		t.Fatalf("path = %q", gotPath)
	}
	if gotBody.Identifier != "amina@example.com" {
		t.Fatalf("body = %+v", gotBody)
	}
	if resp.Token != "tok-1" || resp.User.ID != "u1" {
		t.Fatalf("resp = %+v", resp)
	}

	if _, err := c.Login(context.Background(), "root", LoginRequest{}); !errors.Is(err, session.ErrInvalidInput) {
		t.Fatalf("bogus role: got %v", err)
	}
}

func TestUnauthorizedInvokesHookAndMapsError(t *testing.T) {
	hookCalls := 0
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}), WithUnauthorizedHook(func() { hookCalls++ }))

	err := c.CheckToken(context.Background(), session.RoleDonor, "stale")
	if !errors.Is(err, session.ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken, got %v", err)
	}
	if hookCalls != 1 {
		t.Fatalf("hook calls = %d", hookCalls)
	}
}

func TestTimeoutMapsToUnavailable(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}), WithTimeout(50*time.Millisecond))

	_, err := c.BloodInventory(context.Background())
	if !errors.Is(err, ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable, got %v", err)
	}
}

func TestAPIErrorDecoding(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnprocessableEntity)
		_, _ = w.Write([]byte(`{"error":"mobile verification required","code":"verification_required"}`))
	}))

	err := c.RequestHospitalVerification(context.Background(), verify.HospitalForm{ContactPerson: "x", ContactPhone: "y"})
	if err == nil {
		t.Fatal("expected error")
	}
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected APIError, got %T %v", err, err)
	}
	if apiErr.Status != http.StatusUnprocessableEntity || apiErr.Code != "verification_required" {
		t.Fatalf("apiErr = %+v", apiErr)
	}
}

func TestAuthedCallWithoutTokenFailsFast(t *testing.T) {
	reached := false
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reached = true
	}))

	err := c.SendOTP(context.Background(), verify.StepMobile)
	if !errors.Is(err, session.ErrNotAuthenticated) {
		t.Fatalf("expected ErrNotAuthenticated, got %v", err)
	}
	if reached {
		t.Fatal("request left the client without a token")
	}
}

func TestSendOTPRoutes(t *testing.T) {
	var paths []string
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		paths = append(paths, r.URL.Path)
		if got := r.Header.Get("Authorization"); got != "Bearer tok" {
			t.Errorf("authorization = %q", got)
		}
	}))
	WithTokenSource(staticTokens(session.RoleReceiver, "tok"))(c)

	if err := c.SendOTP(context.Background(), verify.StepMobile); err != nil {
		t.Fatalf("mobile: %v", err)
	}
	if err := c.SendOTP(context.Background(), verify.StepEmail); err != nil {
		t.Fatalf("email: %v", err)
	}
	if err := c.SendOTP(context.Background(), verify.StepIdentity); err == nil {
		t.Fatal("identity step accepted an otp send")
	}
	want := []string{"/receiver/send-mobile-otp", "/receiver/send-email-verification"}
	if len(paths) != len(want) || paths[0] != want[0] || paths[1] != want[1] {
		t.Fatalf("paths = %v", paths)
	}
}

func TestRegisterCarriesIdempotencyKey(t *testing.T) {
	var gotKey string
	var gotDraft wizard.Draft
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotKey = r.Header.Get("Idempotency-Key")
		_ = json.NewDecoder(r.Body).Decode(&gotDraft)
		_ = json.NewEncoder(w).Encode(wizard.RegisterResult{User: session.User{ID: "u1"}})
	}))

	draft := wizard.Draft{PatientName: "Ali", BloodGroup: "B+"}
	res, err := c.Register(context.Background(), draft, "idem-123")
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if gotKey != "idem-123" {
		t.Fatalf("idempotency key = %q", gotKey)
	}
	if gotDraft.PatientName != "Ali" {
		t.Fatalf("draft = %+v", gotDraft)
	}
	if res.User.ID != "u1" {
		t.Fatalf("res = %+v", res)
	}
}

func TestSubmitIdentityDocumentsMultipart(t *testing.T) {
	var gotKinds map[string]string
	var gotFiles int
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Errorf("parse multipart: %v", err)
			return
		}
		gotKinds = map[string]string{}
		for key, vals := range r.MultipartForm.Value {
			if len(vals) > 0 {
				gotKinds[key] = vals[0]
			}
		}
		gotFiles = len(r.MultipartForm.File)
	}))
	WithTokenSource(staticTokens(session.RoleReceiver, "tok"))(c)

	docs := []verify.Document{
		{ID: "doc_1", Kind: "cnic", Filename: "front.jpg", Content: []byte("img-a")},
		{ID: "doc_2", Kind: "medical-report", Filename: "report.pdf", Content: []byte("pdf")},
	}
	if err := c.SubmitIdentityDocuments(context.Background(), docs); err != nil {
		t.Fatalf("SubmitIdentityDocuments: %v", err)
	}
	if gotFiles != 2 {
		t.Fatalf("files = %d", gotFiles)
	}
	if gotKinds["kind_doc_1"] != "cnic" || gotKinds["kind_doc_2"] != "medical-report" {
		t.Fatalf("kinds = %v", gotKinds)
	}
}

func TestReceiverVerificationStatusFromProfile(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/receiver/profile" {
			t.Errorf("path = %q", r.URL.Path)
		}
		_, _ = w.Write([]byte(`{
			"user": {"id":"u1"},
			"verification": {"mobile_verified":true,"email_verified":true,"hospital_verified":false,"identity_verified":false}
		}`))
	}))
	WithTokenSource(staticTokens(session.RoleReceiver, "tok"))(c)

	status, err := c.ReceiverVerificationStatus(context.Background())
	if err != nil {
		t.Fatalf("ReceiverVerificationStatus: %v", err)
	}
	if status.Percent() != 50 {
		t.Fatalf("percent = %d, want 50", status.Percent())
	}
}

func TestUpdateReceiverSettingsSections(t *testing.T) {
	var paths []string
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPut {
			t.Errorf("method = %s", r.Method)
		}
		paths = append(paths, r.URL.Path)
	}))
	WithTokenSource(staticTokens(session.RoleReceiver, "tok"))(c)

	for _, section := range []string{"communication", "notifications", "privacy"} {
		if err := c.UpdateReceiverSettings(context.Background(), section, map[string]bool{"sms": true}); err != nil {
			t.Fatalf("%s: %v", section, err)
		}
	}
	if err := c.UpdateReceiverSettings(context.Background(), "everything", nil); err == nil {
		t.Fatal("unknown section accepted")
	}
	if len(paths) != 3 || paths[2] != "/receiver/privacy" {
		t.Fatalf("paths = %v", paths)
	}
}

func TestPublicEndpoints(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/blood-inventory":
			_, _ = w.Write([]byte(`[{"blood_group":"O-","units":2}]`))
		case "/dashboard-stats":
			_, _ = w.Write([]byte(`{"total_donors":10,"lives_saved":20,"active_requests":3,"camps_this_month":1}`))
		case "/news-updates":
			_, _ = w.Write([]byte(`[{"id":"n1","title":"Camp","summary":"s"}]`))
		default:
			http.NotFound(w, r)
		}
	}))

	items, err := c.BloodInventory(context.Background())
	if err != nil || len(items) != 1 || items[0].BloodGroup != "O-" {
		t.Fatalf("inventory = %v, %v", items, err)
	}
	stats, err := c.DashboardStats(context.Background())
	if err != nil || stats.TotalDonors != 10 {
		t.Fatalf("stats = %+v, %v", stats, err)
	}
	news, err := c.NewsUpdates(context.Background())
	if err != nil || len(news) != 1 {
		t.Fatalf("news = %v, %v", news, err)
	}
}
