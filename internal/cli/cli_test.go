package cli

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"intakedesk/internal/identity"
	"intakedesk/internal/intake/handler"
	"intakedesk/internal/intake/models"
	"intakedesk/internal/intake/service"
	"intakedesk/internal/intake/store"
	"intakedesk/pkg/platform/middleware/admin"
	"intakedesk/pkg/testutil"
)

const (
	adminEmail    = "owner@startuplab.example"
	adminPassword = "hunter22"
	adminToken    = "session-token"
	serviceKey    = "anon-key"
)

// env is a running intake service gated by a fake identity service.
type env struct {
	identity    *httptest.Server
	intake      *httptest.Server
	store       *store.InMemoryStore
	sessionPath string

	mu        sync.Mutex
	recovered []string
	revoked   bool
}

type pdfStub struct{}

func (pdfStub) Export(context.Context, models.SubmissionView) ([]byte, error) {
	return []byte("%PDF-1.4 stub"), nil
}

func newEnv(t *testing.T) *env {
	t.Helper()
	e := &env{sessionPath: filepath.Join(t.TempDir(), "session.json")}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	e.identity = httptest.NewServer(e.identityHandler())
	t.Cleanup(e.identity.Close)

	e.store = store.NewInMemory()
	svc := service.New(e.store, service.WithLogger(logger), service.WithExporter(pdfStub{}))
	verifier := identity.NewClient(e.identity.URL, serviceKey)
	gate := admin.NewGate(admin.Config{AdminEmail: adminEmail}, verifier, logger)
	router := chi.NewRouter()
	handler.New(svc, gate.Require, nil, logger).Register(router)
	e.intake = httptest.NewServer(router)
	t.Cleanup(e.intake.Close)
	return e
}

func (e *env) identityHandler() http.Handler {
	writeJSON := func(w http.ResponseWriter, status int, v any) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(v)
	}
	validBearer := func(r *http.Request) bool {
		e.mu.Lock()
		defer e.mu.Unlock()
		return !e.revoked && r.Header.Get("Authorization") == "Bearer "+adminToken
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /auth/v1/token", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		_ = json.NewDecoder(r.Body).Decode(&body)
		if body["email"] != adminEmail || body["password"] != adminPassword {
			writeJSON(w, http.StatusBadRequest, map[string]any{"error": "invalid_grant", "error_description": "Invalid login credentials"})
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"access_token": adminToken,
			"token_type":   "bearer",
			"expires_in":   3600,
			"user":         map[string]string{"id": "u-admin", "email": adminEmail},
		})
	})
	mux.HandleFunc("GET /auth/v1/user", func(w http.ResponseWriter, r *http.Request) {
		if !validBearer(r) {
			writeJSON(w, http.StatusUnauthorized, map[string]any{"msg": "invalid JWT"})
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"id": "u-admin", "email": adminEmail})
	})
	mux.HandleFunc("PUT /auth/v1/user", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer recovery-token" {
			writeJSON(w, http.StatusUnauthorized, map[string]any{"msg": "invalid JWT"})
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"id": "u-admin", "email": adminEmail})
	})
	mux.HandleFunc("POST /auth/v1/logout", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	mux.HandleFunc("POST /auth/v1/recover", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		_ = json.NewDecoder(r.Body).Decode(&body)
		e.mu.Lock()
		e.recovered = append(e.recovered, body["email"])
		e.mu.Unlock()
		writeJSON(w, http.StatusOK, map[string]any{})
	})
	return mux
}

func (e *env) run(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := NewRootCommand(
		WithIO(strings.NewReader(stdin), &out),
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
	)
	cmd.SetArgs(append([]string{
		"--server", e.intake.URL,
		"--identity-url", e.identity.URL,
		"--identity-key", serviceKey,
		"--session-file", e.sessionPath,
	}, args...))
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func (e *env) login(t *testing.T) {
	t.Helper()
	_, err := e.run(t, "", "login", "--email", adminEmail, "--password", adminPassword)
	require.NoError(t, err)
}

func draftJSON(t *testing.T, mutate func(map[string]any)) string {
	t.Helper()
	d := map[string]any{
		"fullName":         "Lauris Bawar",
		"email":            "lauris@example.com",
		"phoneNumber":      "0912 345 6789",
		"companyName":      "Bawar Studio",
		"services":         map[string]bool{"softwareDevelopment": true},
		"referralSource":   []string{"Website"},
		"preferredContact": "Email",
		"bestTimeToReach":  "Mornings",
	}
	if mutate != nil {
		mutate(d)
	}
	raw, err := json.Marshal(d)
	require.NoError(t, err)
	return string(raw)
}

func TestLoginKeepsSession(t *testing.T) {
	e := newEnv(t)

	testutil.Given(t, "valid credentials on stdin", func(t *testing.T) {
		out, err := e.run(t, adminEmail+"\n"+adminPassword+"\n", "login")
		require.NoError(t, err)

		testutil.Then(t, "the session is saved for the owner only", func(t *testing.T) {
			assert.Contains(t, out, "Signed in as "+adminEmail+". 0 submission(s).")
			info, err := os.Stat(e.sessionPath)
			require.NoError(t, err)
			assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
		})

		testutil.When(t, "logging out", func(t *testing.T) {
			out, err := e.run(t, "", "logout")
			require.NoError(t, err)

			testutil.Then(t, "the session file is gone", func(t *testing.T) {
				assert.Contains(t, out, "Signed out.")
				assert.NoFileExists(t, e.sessionPath)
				_, err := e.run(t, "", "list")
				assert.ErrorIs(t, err, errNotLoggedIn)
			})
		})
	})

	testutil.Given(t, "a wrong password", func(t *testing.T) {
		_, err := e.run(t, "", "login", "--email", adminEmail, "--password", "nope")

		testutil.Then(t, "the service message is reported and nothing is saved", func(t *testing.T) {
			require.Error(t, err)
			assert.Contains(t, err.Error(), "Invalid login credentials")
			assert.NoFileExists(t, e.sessionPath)
		})
	})
}

func TestSubmitListDeleteExport(t *testing.T) {
	e := newEnv(t)
	e.login(t)

	out, err := e.run(t, draftJSON(t, nil), "submit")
	require.NoError(t, err)
	assert.Contains(t, out, "Step 4 of 4")
	assert.Contains(t, out, "Submission Successful!")

	recent, err := e.store.ListRecent(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, recent, 1)
	id := recent[0].ID.String()

	t.Run("list as table", func(t *testing.T) {
		out, err := e.run(t, "", "list")
		require.NoError(t, err)
		assert.Contains(t, out, "NAME")
		assert.Contains(t, out, "Lauris Bawar")
		assert.Contains(t, out, "Bawar Studio")
	})

	t.Run("list as csv", func(t *testing.T) {
		out, err := e.run(t, "", "list", "--format", "csv")
		require.NoError(t, err)
		rows, err := csv.NewReader(strings.NewReader(out)).ReadAll()
		require.NoError(t, err)
		require.Len(t, rows, 2)
		assert.Equal(t, "id", rows[0][0])
		assert.Equal(t, id, rows[1][0])
		assert.Contains(t, rows[1], "Software Development (web apps, internal systems, custom solutions)")
		assert.Contains(t, rows[1], "Email")
	})

	t.Run("list as json", func(t *testing.T) {
		out, err := e.run(t, "", "list", "-f", "json")
		require.NoError(t, err)
		var body models.ListResponse
		require.NoError(t, json.Unmarshal([]byte(out), &body))
		require.Len(t, body.Submissions, 1)
		assert.Equal(t, []string{"Email"}, body.Submissions[0].PreferredContact)
	})

	t.Run("unknown format", func(t *testing.T) {
		_, err := e.run(t, "", "list", "--format", "xml")
		assert.ErrorContains(t, err, `unknown format "xml"`)
	})

	t.Run("export writes the server's filename", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "out.pdf")
		out, err := e.run(t, "", "export", id, "-o", path)
		require.NoError(t, err)
		assert.Contains(t, out, "Saved "+path)
		data, err := os.ReadFile(path)
		require.NoError(t, err)
		assert.Equal(t, "%PDF-1.4 stub", string(data))
	})

	t.Run("delete asks first", func(t *testing.T) {
		out, err := e.run(t, "n\n", "delete", id)
		require.NoError(t, err)
		assert.Contains(t, out, "Delete this submission? This cannot be undone.")
		assert.Contains(t, out, "Cancelled.")
		_, err = e.store.FindByID(context.Background(), recent[0].ID)
		require.NoError(t, err)

		out, err = e.run(t, "y\n", "delete", id)
		require.NoError(t, err)
		assert.Contains(t, out, "Deleted "+id+".")

		out, err = e.run(t, "", "list")
		require.NoError(t, err)
		assert.Contains(t, out, "No submissions yet.")
	})

	t.Run("unknown id is refused before any call", func(t *testing.T) {
		_, err := e.run(t, "", "delete", "--yes", "00000000-0000-0000-0000-000000000000")
		assert.ErrorContains(t, err, "submission not loaded")
	})
}

func TestSubmitStopsAtFirstInvalidStep(t *testing.T) {
	e := newEnv(t)

	out, err := e.run(t, draftJSON(t, func(d map[string]any) {
		d["services"] = map[string]bool{}
	}), "submit")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "step 2")
	assert.Contains(t, out, "services:")
	recent, err := e.store.ListRecent(context.Background(), 10)
	require.NoError(t, err)
	assert.Empty(t, recent)
}

func TestRejectedSessionIsForgotten(t *testing.T) {
	e := newEnv(t)
	e.login(t)

	e.mu.Lock()
	e.revoked = true
	e.mu.Unlock()

	_, err := e.run(t, "", "list")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "session rejected")
	assert.NoFileExists(t, e.sessionPath)
}

func TestPasswordRecovery(t *testing.T) {
	e := newEnv(t)

	out, err := e.run(t, "", "recover", "--email", " "+adminEmail+" ")
	require.NoError(t, err)
	assert.Contains(t, out, "Recovery email sent. Please check your inbox.")
	e.mu.Lock()
	assert.Equal(t, []string{adminEmail}, e.recovered)
	e.mu.Unlock()

	_, err = e.run(t, "", "recover")
	assert.ErrorContains(t, err, "Email is required.")

	_, err = e.run(t, "", "reset-password", "--token", "recovery-token", "--password", "abcdef", "--confirm", "abcdeg")
	assert.ErrorContains(t, err, "Passwords do not match.")

	out, err = e.run(t, "n3w-secret\nn3w-secret\n", "reset-password", "--token", "recovery-token")
	require.NoError(t, err)
	assert.Contains(t, out, "Password successfully changed. You can now sign in.")
}

func TestSessionFileExpiry(t *testing.T) {
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	f := SessionFile{Path: filepath.Join(t.TempDir(), "nested", "session.json"), now: func() time.Time { return now }}

	_, ok, err := f.Load()
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, f.Save(identity.Session{AccessToken: "tok", ExpiresAt: now.Add(time.Minute)}))
	sess, ok, err := f.Load()
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "tok", sess.AccessToken)

	now = now.Add(2 * time.Minute)
	_, ok, err = f.Load()
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, f.Clear())
	require.NoError(t, f.Clear())
}
