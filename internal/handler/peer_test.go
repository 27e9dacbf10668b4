package handler_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	v1 "peersync/api/v1"
	"peersync/internal/handler"
	"peersync/internal/model"
	"peersync/internal/router"
	"peersync/pkg/document"
	"peersync/pkg/log"
	"peersync/pkg/peer"

	"github.com/gavv/httpexpect/v2"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// stubPeerService 录制调用参数并回放预设结果
type stubPeerService struct {
	repo *model.SyncRepository

	exportDoc *document.Document
	exportErr error
	gotSince  *time.Time

	applyOutcome *document.OutcomeDocument
	applyErr     error
	gotDoc       *document.Document

	localIdentity peer.Identity
}

func (s *stubPeerService) Authenticate(_ context.Context, username, password string) (*model.SyncRepository, error) {
	if username == "peer" && password == "secret" {
		return s.repo, nil
	}
	return nil, nil
}

func (s *stubPeerService) Export(_ context.Context, _ *model.SyncRepository, resourceName string, since *time.Time) (*document.Document, error) {
	s.gotSince = since
	if s.exportErr != nil {
		return nil, s.exportErr
	}
	return s.exportDoc, nil
}

func (s *stubPeerService) Apply(_ context.Context, _ *model.SyncRepository, doc *document.Document) (*document.OutcomeDocument, error) {
	s.gotDoc = doc
	if s.applyErr != nil {
		return nil, s.applyErr
	}
	return s.applyOutcome, nil
}

func (s *stubPeerService) RegisterPeer(_ context.Context, identity peer.Identity) (peer.Identity, error) {
	return s.localIdentity, nil
}

func newPeerTestServer(t *testing.T, svc *stubPeerService) *httpexpect.Expect {
	t.Helper()
	gin.SetMode(gin.TestMode)

	logger := &log.Logger{Logger: zap.NewNop()}
	engine := gin.New()
	deps := router.RouterDeps{
		Logger:      logger,
		PeerHandler: handler.NewPeerHandler(handler.NewHandler(logger), svc),
		PeerService: svc,
	}
	router.InitPeerRouter(deps, engine)

	server := httptest.NewServer(engine)
	t.Cleanup(server.Close)
	return httpexpect.Default(t, server.URL)
}

func defaultStub() *stubPeerService {
	return &stubPeerService{
		repo: &model.SyncRepository{Id: 1, Uuid: "repo-uuid", Name: "peer-a", AcceptPush: 1},
		exportDoc: document.Encode("person", "peersync/local", []*document.Record{
			{
				Uuid:       "0c43e9dd-0000-4cf2-9e03-2f0c15f9a0a1",
				ModifiedOn: time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC),
				Attributes: map[string]interface{}{"first_name": "Asha"},
			},
		}),
		localIdentity: peer.Identity{Uuid: "local-uuid", Name: "peersync-local", BaseUrl: "http://local.example.org"},
	}
}

func TestPeerExportRequiresBasicAuth(t *testing.T) {
	e := newPeerTestServer(t, defaultStub())

	e.GET("/sync/person").Expect().
		Status(http.StatusUnauthorized).
		Header("WWW-Authenticate").IsEqual(`Basic realm="sync"`)

	e.GET("/sync/person").WithBasicAuth("peer", "wrong").Expect().
		Status(http.StatusUnauthorized)
}

func TestPeerExport(t *testing.T) {
	svc := defaultStub()
	e := newPeerTestServer(t, svc)

	body := e.GET("/sync/person").WithBasicAuth("peer", "secret").Expect().
		Status(http.StatusOK).JSON().Object()
	body.Value("resource").IsEqual("person")
	body.Value("records").Array().Length().IsEqual(1)
	if svc.gotSince != nil {
		t.Fatal("first pull must not carry a watermark")
	}
}

func TestPeerExportPassesSince(t *testing.T) {
	svc := defaultStub()
	e := newPeerTestServer(t, svc)

	e.GET("/sync/person").WithBasicAuth("peer", "secret").
		WithQuery("since", "2026-03-14T09:00:00Z").Expect().
		Status(http.StatusOK)

	if svc.gotSince == nil || !svc.gotSince.Equal(time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)) {
		t.Fatalf("watermark not forwarded: %v", svc.gotSince)
	}
}

func TestPeerExportRejectsBadSince(t *testing.T) {
	e := newPeerTestServer(t, defaultStub())

	e.GET("/sync/person").WithBasicAuth("peer", "secret").
		WithQuery("since", "not-a-timestamp").Expect().
		Status(http.StatusBadRequest).
		JSON().Object().Value("message").IsEqual("invalid since parameter")
}

func TestPeerExportUnknownResource(t *testing.T) {
	svc := defaultStub()
	svc.exportErr = &document.UnknownResourceError{Resource: "vehicle"}
	e := newPeerTestServer(t, svc)

	e.GET("/sync/vehicle").WithBasicAuth("peer", "secret").Expect().
		Status(http.StatusNotFound).
		JSON().Object().Value("message").IsEqual("unknown resource: vehicle")
}

func TestPeerApply(t *testing.T) {
	svc := defaultStub()
	svc.applyOutcome = document.NewOutcomeDocument("person", "peersync/local")
	svc.applyOutcome.Add("0c43e9dd-0000-4cf2-9e03-2f0c15f9a0a1", document.OutcomeCreated, "")
	e := newPeerTestServer(t, svc)

	payload := document.Encode("person", "peersync/remote", []*document.Record{
		{
			Uuid:       "0c43e9dd-0000-4cf2-9e03-2f0c15f9a0a1",
			ModifiedOn: time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC),
			Attributes: map[string]interface{}{"first_name": "Asha"},
		},
	})

	body := e.PUT("/sync/person").WithBasicAuth("peer", "secret").
		WithJSON(payload).Expect().
		Status(http.StatusOK).JSON().Object()
	body.Value("results").Array().Length().IsEqual(1)

	if svc.gotDoc == nil || len(svc.gotDoc.Records) != 1 {
		t.Fatal("document not handed to service")
	}
}

func TestPeerApplyResourceMismatch(t *testing.T) {
	e := newPeerTestServer(t, defaultStub())

	payload := document.Encode("organisation", "peersync/remote", nil)
	e.PUT("/sync/person").WithBasicAuth("peer", "secret").
		WithJSON(payload).Expect().
		Status(http.StatusBadRequest).
		JSON().Object().Value("message").IsEqual("document resource does not match endpoint")
}

func TestPeerApplyPushNotAccepted(t *testing.T) {
	svc := defaultStub()
	svc.applyErr = v1.ErrPushNotAccepted
	e := newPeerTestServer(t, svc)

	payload := document.Encode("person", "peersync/remote", nil)
	e.PUT("/sync/person").WithBasicAuth("peer", "secret").
		WithJSON(payload).Expect().
		Status(http.StatusForbidden).
		JSON().Object().Value("message").IsEqual("push not accepted")
}

func TestPeerRegisterHandshake(t *testing.T) {
	e := newPeerTestServer(t, defaultStub())

	// 首次联络没有凭据也能注册
	body := e.POST("/sync/register").
		WithJSON(peer.Identity{Uuid: "remote-uuid", Name: "peer-a", BaseUrl: "http://peer-a.example.org"}).
		Expect().Status(http.StatusOK).JSON().Object()
	body.Value("uuid").IsEqual("local-uuid")
	body.Value("base_url").IsEqual("http://local.example.org")

	e.POST("/sync/register").WithJSON(peer.Identity{Name: "anonymous"}).Expect().
		Status(http.StatusBadRequest).
		JSON().Object().Value("message").IsEqual("identity uuid is required")
}
