package http_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/lestrrat-go/jwx/v2/jwa"
	"github.com/lestrrat-go/jwx/v2/jwt"
	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/gt"

	httpctrl "github.com/clinsec-lab/asklepios/pkg/controller/http"
	"github.com/clinsec-lab/asklepios/pkg/domain/model"
	"github.com/clinsec-lab/asklepios/pkg/domain/types"
	"github.com/clinsec-lab/asklepios/pkg/repository/memory"
	"github.com/clinsec-lab/asklepios/pkg/service/crypto"
	"github.com/clinsec-lab/asklepios/pkg/usecase"
)

const testPatientID = types.PatientID("patient-001")

var testSecret = []byte("test-hmac-secret-for-http-tests")

type fakeEmbedder struct {
	vec []float32
	err error
}

func (f *fakeEmbedder) Embed(ctx context.Context, sanitizedText string) ([]float32, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.vec, nil
}

type fakeSynthesizer struct {
	text string
	err  error
}

func (f *fakeSynthesizer) Synthesize(ctx context.Context, question string, matches []*model.RetrievedMatch) (*model.AnswerResult, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &model.AnswerResult{
		Text:    f.text,
		Sources: matches,
	}, nil
}

func signToken(t *testing.T, subject string) string {
	t.Helper()
	token, err := jwt.NewBuilder().
		Subject(subject).
		IssuedAt(time.Now()).
		Expiration(time.Now().Add(time.Hour)).
		Build()
	gt.NoError(t, err).Required()

	signed, err := jwt.Sign(token, jwt.WithKey(jwa.HS256, testSecret))
	gt.NoError(t, err).Required()
	return string(signed)
}

func seedPrincipals(t *testing.T, repo *memory.Memory) {
	t.Helper()
	ctx := context.Background()
	principals := []*model.Principal{
		{ID: "dr-attending", Name: "Attending Physician", Roles: []types.Role{types.RoleAttending}},
		{ID: "nurse-ward", Name: "Ward Nurse", Roles: []types.Role{types.RoleNurse}},
		{ID: "sys-admin", Name: "System Admin", Roles: []types.Role{types.RoleAdmin}},
	}
	for _, p := range principals {
		gt.NoError(t, repo.Principal().Put(ctx, p)).Required()
	}
}

func newTestServer(t *testing.T, repo *memory.Memory, embedder *fakeEmbedder, synthesizer *fakeSynthesizer) *httpctrl.Server {
	t.Helper()

	key, err := crypto.GenerateKey()
	gt.NoError(t, err).Required()
	cipher, err := crypto.New(key)
	gt.NoError(t, err).Required()

	ciphertext, err := cipher.Seal(testPatientID, "Metformin 500mg twice daily.")
	gt.NoError(t, err).Required()
	err = repo.Record().Put(context.Background(), testPatientID, []*model.ClinicalRecordVector{
		{
			ID:            "rec-a",
			PatientID:     testPatientID,
			Embedding:     []float32{1, 0, 0, 0},
			Ciphertext:    ciphertext,
			RecordType:    types.RecordTypeMedication,
			EffectiveDate: time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC),
			Provenance:    "ehr-export",
		},
	})
	gt.NoError(t, err).Required()

	uc := usecase.New(repo,
		usecase.WithEmbedder(embedder),
		usecase.WithSynthesizer(synthesizer),
		usecase.WithCipher(cipher),
	)

	authn := httpctrl.NewAuthenticator(testSecret, repo.Principal())
	server, err := httpctrl.New(uc, httpctrl.WithAuthenticator(authn))
	gt.NoError(t, err).Required()
	return server
}

func postQuery(t *testing.T, server *httpctrl.Server, token string, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/api/query", bytes.NewBufferString(body))
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	server.ServeHTTP(rec, req)
	return rec
}

func TestHealth(t *testing.T) {
	repo := memory.New()
	seedPrincipals(t, repo)
	server := newTestServer(t, repo, &fakeEmbedder{vec: []float32{1, 0, 0, 0}}, &fakeSynthesizer{text: "answer"})

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	server.ServeHTTP(rec, req)

	gt.Value(t, rec.Code).Equal(http.StatusOK)
}

func TestNewRequiresAuthenticator(t *testing.T) {
	uc := usecase.New(memory.New())
	_, err := httpctrl.New(uc)
	gt.Error(t, err)
}

func TestQueryAuthentication(t *testing.T) {
	repo := memory.New()
	seedPrincipals(t, repo)
	server := newTestServer(t, repo, &fakeEmbedder{vec: []float32{1, 0, 0, 0}}, &fakeSynthesizer{text: "answer"})

	body := `{"patient_id":"patient-001","question":"What medication?"}`

	t.Run("missing token", func(t *testing.T) {
		rec := postQuery(t, server, "", body)
		gt.Value(t, rec.Code).Equal(http.StatusUnauthorized)
	})

	t.Run("garbage token", func(t *testing.T) {
		rec := postQuery(t, server, "not-a-jwt", body)
		gt.Value(t, rec.Code).Equal(http.StatusUnauthorized)
	})

	t.Run("unknown subject", func(t *testing.T) {
		rec := postQuery(t, server, signToken(t, "no-such-principal"), body)
		gt.Value(t, rec.Code).Equal(http.StatusUnauthorized)
	})

	t.Run("expired token", func(t *testing.T) {
		token, err := jwt.NewBuilder().
			Subject("dr-attending").
			IssuedAt(time.Now().Add(-2 * time.Hour)).
			Expiration(time.Now().Add(-time.Hour)).
			Build()
		gt.NoError(t, err).Required()
		signed, err := jwt.Sign(token, jwt.WithKey(jwa.HS256, testSecret))
		gt.NoError(t, err).Required()

		rec := postQuery(t, server, string(signed), body)
		gt.Value(t, rec.Code).Equal(http.StatusUnauthorized)
	})
}

func TestQueryCompleted(t *testing.T) {
	repo := memory.New()
	seedPrincipals(t, repo)
	server := newTestServer(t, repo, &fakeEmbedder{vec: []float32{1, 0, 0, 0}}, &fakeSynthesizer{text: "The patient takes metformin."})

	rec := postQuery(t, server, signToken(t, "dr-attending"), `{"patient_id":"patient-001","question":"What medication?"}`)
	gt.Value(t, rec.Code).Equal(http.StatusOK)

	var resp struct {
		QueryID       string  `json:"query_id"`
		State         string  `json:"state"`
		AccessGranted bool    `json:"access_granted"`
		Answer        string  `json:"answer"`
		Confidence    float64 `json:"confidence"`
		Sources       []struct {
			RecordID string `json:"record_id"`
			Snippet  string `json:"snippet"`
		} `json:"sources"`
	}
	gt.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp)).Required()

	gt.Value(t, resp.State).Equal(string(types.StateCompleted))
	gt.Bool(t, resp.AccessGranted).True()
	gt.Value(t, resp.Answer).Equal("The patient takes metformin.")
	gt.Array(t, resp.Sources).Length(1)
	gt.Value(t, resp.Sources[0].RecordID).Equal("rec-a")
	gt.Value(t, resp.Sources[0].Snippet).Equal("Metformin 500mg twice daily.")
	gt.Bool(t, resp.QueryID != "").True()
	gt.Bool(t, resp.Confidence > 0).True()
}

func TestQueryDenied(t *testing.T) {
	repo := memory.New()
	seedPrincipals(t, repo)
	server := newTestServer(t, repo, &fakeEmbedder{vec: []float32{1, 0, 0, 0}}, &fakeSynthesizer{text: "never returned"})

	rec := postQuery(t, server, signToken(t, "nurse-ward"), `{"patient_id":"patient-001","question":"What medication?"}`)
	gt.Value(t, rec.Code).Equal(http.StatusForbidden)

	var resp struct {
		State         string `json:"state"`
		AccessGranted bool   `json:"access_granted"`
		Answer        string `json:"answer"`
	}
	gt.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp)).Required()
	gt.Value(t, resp.State).Equal(string(types.StateDenied))
	gt.Bool(t, resp.AccessGranted).False()
	gt.Value(t, resp.Answer).Equal(model.DeniedAnswer)
}

func TestQueryBadRequest(t *testing.T) {
	repo := memory.New()
	seedPrincipals(t, repo)
	server := newTestServer(t, repo, &fakeEmbedder{vec: []float32{1, 0, 0, 0}}, &fakeSynthesizer{text: "answer"})
	token := signToken(t, "dr-attending")

	t.Run("malformed body", func(t *testing.T) {
		rec := postQuery(t, server, token, `{not json`)
		gt.Value(t, rec.Code).Equal(http.StatusBadRequest)
	})

	t.Run("missing patient_id", func(t *testing.T) {
		rec := postQuery(t, server, token, `{"question":"What medication?"}`)
		gt.Value(t, rec.Code).Equal(http.StatusBadRequest)
	})

	t.Run("missing question", func(t *testing.T) {
		rec := postQuery(t, server, token, `{"patient_id":"patient-001"}`)
		gt.Value(t, rec.Code).Equal(http.StatusBadRequest)
	})
}

func TestQueryUpstreamFailure(t *testing.T) {
	repo := memory.New()
	seedPrincipals(t, repo)
	server := newTestServer(t, repo, &fakeEmbedder{err: goerr.New("embedding endpoint down")}, &fakeSynthesizer{text: "never returned"})

	rec := postQuery(t, server, signToken(t, "dr-attending"), `{"patient_id":"patient-001","question":"What medication?"}`)
	gt.Value(t, rec.Code).Equal(http.StatusBadGateway)

	// No internals in the body.
	gt.Bool(t, bytes.Contains(rec.Body.Bytes(), []byte("endpoint down"))).False()
}

func TestAuditList(t *testing.T) {
	repo := memory.New()
	seedPrincipals(t, repo)
	server := newTestServer(t, repo, &fakeEmbedder{vec: []float32{1, 0, 0, 0}}, &fakeSynthesizer{text: "answer"})

	// Run one query so an audit entry exists.
	rec := postQuery(t, server, signToken(t, "dr-attending"), `{"patient_id":"patient-001","question":"What medication?"}`)
	gt.Value(t, rec.Code).Equal(http.StatusOK)

	get := func(token, path string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		if token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
		w := httptest.NewRecorder()
		server.ServeHTTP(w, req)
		return w
	}

	t.Run("admin reads the trail", func(t *testing.T) {
		w := get(signToken(t, "sys-admin"), "/api/patients/patient-001/audit")
		gt.Value(t, w.Code).Equal(http.StatusOK)

		var resp struct {
			Entries []struct {
				PrincipalID   string `json:"principal_id"`
				PatientID     string `json:"patient_id"`
				AccessGranted bool   `json:"access_granted"`
				Outcome       string `json:"outcome"`
			} `json:"entries"`
		}
		gt.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp)).Required()
		gt.Array(t, resp.Entries).Length(1)
		gt.Value(t, resp.Entries[0].PrincipalID).Equal("dr-attending")
		gt.Value(t, resp.Entries[0].PatientID).Equal("patient-001")
		gt.Bool(t, resp.Entries[0].AccessGranted).True()
		gt.Value(t, resp.Entries[0].Outcome).Equal(string(types.OutcomeSuccess))
	})

	t.Run("non-admin is forbidden", func(t *testing.T) {
		w := get(signToken(t, "dr-attending"), "/api/patients/patient-001/audit")
		gt.Value(t, w.Code).Equal(http.StatusForbidden)
	})

	t.Run("unauthenticated", func(t *testing.T) {
		w := get("", "/api/patients/patient-001/audit")
		gt.Value(t, w.Code).Equal(http.StatusUnauthorized)
	})

	t.Run("bad limit", func(t *testing.T) {
		w := get(signToken(t, "sys-admin"), "/api/patients/patient-001/audit?limit=zero")
		gt.Value(t, w.Code).Equal(http.StatusBadRequest)
	})
}
