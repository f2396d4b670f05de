package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"kv-shepherd.io/vmwizard/internal/api/middleware"
	"kv-shepherd.io/vmwizard/internal/domain"
	apperrors "kv-shepherd.io/vmwizard/internal/pkg/errors"
	"kv-shepherd.io/vmwizard/internal/pkg/logger"
	"kv-shepherd.io/vmwizard/internal/pkg/worker"
	"kv-shepherd.io/vmwizard/internal/provider"
	"kv-shepherd.io/vmwizard/internal/session"
	"kv-shepherd.io/vmwizard/internal/storage/combined"
	"kv-shepherd.io/vmwizard/internal/storage/wrapper"
	"kv-shepherd.io/vmwizard/internal/wizard"
)

func init() {
	gin.SetMode(gin.TestMode)
	_ = logger.Init("error", "json")
}

func ptr[T any](v T) *T { return &v }

type staticLoader struct{ refs wizard.References }

func (l staticLoader) References(context.Context, string) (wizard.References, error) {
	return l.refs, nil
}

func (staticLoader) Claims(context.Context, string) ([]domain.PersistentVolumeClaim, error) {
	return nil, nil
}

type fakeLookup struct {
	dvs    combined.DataVolumes
	claims combined.Claims
	err    error
}

func (f fakeLookup) Lookup(context.Context, string) (combined.DataVolumes, combined.Claims, error) {
	return f.dvs, f.claims, f.err
}

// sessionBody is the decodable part of a session.View; mutation payloads are interfaces.
type sessionBody struct {
	ID        string          `json:"id"`
	Snapshot  wizard.Snapshot `json:"snapshot"`
	Disks     []combined.View `json:"disks"`
	Mutations []struct {
		Kind wizard.MutationKind `json:"kind"`
	} `json:"mutations"`
	Updaters []string `json:"updaters"`
}

type testServer struct {
	router   *gin.Engine
	sessions *session.Service
}

func newTestServer(t *testing.T, lookup ClusterLookup, health *provider.ClusterHealthChecker) testServer {
	t.Helper()
	pools, err := worker.NewPools(context.Background(), worker.PoolConfig{GeneralPoolSize: 2, FetchPoolSize: 2})
	require.NoError(t, err)
	t.Cleanup(pools.Shutdown)

	sessions := session.NewService(session.Config{
		TTL:           time.Minute,
		SweepInterval: time.Minute,
		MaxSessions:   10,
	}, wizard.NewEngine(wizard.Options{}, nil), staticLoader{}, pools, nil)

	srv := NewServer(ServerDeps{Sessions: sessions, Lookup: lookup, Health: health, Pools: pools})
	r := gin.New()
	r.Use(middleware.RequestID(), middleware.ErrorHandler())
	srv.RegisterRoutes(r.Group("/api/v1"))
	return testServer{router: r, sessions: sessions}
}

func (ts testServer) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	ts.router.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

func requireErrorCode(t *testing.T, w *httptest.ResponseRecorder, status int, code string) {
	t.Helper()
	require.Equal(t, status, w.Code, w.Body.String())
	require.Equal(t, code, decode[middleware.ErrorResponse](t, w).Code)
}

func TestHealth(t *testing.T) {
	ts := newTestServer(t, nil, nil)

	w := ts.do(t, http.MethodGet, "/api/v1/health/live", nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = ts.do(t, http.MethodGet, "/api/v1/health/ready", nil)
	require.Equal(t, http.StatusOK, w.Code)
	resp := decode[HealthResponse](t, w)
	require.Equal(t, "disabled", resp.Checks["cluster"])
	require.Contains(t, resp.Pools, worker.PoolFetch)
}

type downCluster struct{ *provider.StaticCluster }

func (downCluster) ServerVersion(context.Context) (string, error) {
	return "", errors.New("dial tcp: connection refused")
}

func TestHealth_UnreachableCluster(t *testing.T) {
	checker := provider.NewClusterHealthChecker(downCluster{provider.NewStaticCluster()}, time.Minute)
	ts := newTestServer(t, nil, checker)

	// Not checked yet.
	w := ts.do(t, http.MethodGet, "/api/v1/health/ready", nil)
	require.Equal(t, http.StatusOK, w.Code)

	checker.Check(context.Background())
	w = ts.do(t, http.MethodGet, "/api/v1/health/ready", nil)
	require.Equal(t, http.StatusServiceUnavailable, w.Code)
	resp := decode[HealthResponse](t, w)
	require.Equal(t, HealthStatusDegraded, resp.Status)
	require.Equal(t, string(provider.ClusterStatusUnreachable), resp.Checks["cluster"])
}

func TestClassifyStorage(t *testing.T) {
	ts := newTestServer(t, nil, nil)

	tests := []struct {
		name    string
		req     ClassifyRequest
		wantKey string
	}{
		{
			name: "blank data volume",
			req: ClassifyRequest{
				Volume:     domain.Volume{Name: "data", DataVolume: &domain.DataVolumeVolumeSource{Name: "data-dv"}},
				DataVolume: ptr(wrapper.NewDataVolume("data-dv", domain.DataVolumeSourceBlank, wrapper.DataVolumeTypeData{}).Record()),
			},
			wantKey: "blank",
		},
		{
			name:    "container disk",
			req:     ClassifyRequest{Volume: domain.Volume{Name: "root", ContainerDisk: &domain.ContainerDiskSource{Image: "quay.io/fedora"}}},
			wantKey: "container-ephemeral",
		},
		{
			name:    "empty disk",
			req:     ClassifyRequest{Volume: domain.Volume{Name: "scratch", EmptyDisk: &domain.EmptyDiskSource{Capacity: "1Gi"}}},
			wantKey: "other",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := ts.do(t, http.MethodPost, "/api/v1/storage/classify", tt.req)
			require.Equal(t, http.StatusOK, w.Code, w.Body.String())
			resp := decode[ClassifyResponse](t, w)
			require.Equal(t, tt.wantKey, resp.Key)
			require.NotEmpty(t, resp.Description)
		})
	}

	w := ts.do(t, http.MethodPost, "/api/v1/storage/classify", "not an object")
	requireErrorCode(t, w, http.StatusBadRequest, "INVALID_REQUEST")
}

func bootEntity() domain.VMLikeEntity {
	return domain.VMLikeEntity{
		Metadata: domain.ObjectMeta{Name: "vm1", Namespace: "demo"},
		Disks: []domain.Disk{
			wrapper.NewDisk("rootdisk", domain.DiskTypeDisk, wrapper.DiskTypeData{Bus: domain.DiskBusVirtio}).WithBootOrder(1).Record(),
		},
		Volumes: []domain.Volume{
			{Name: "rootdisk", PersistentVolumeClaim: &domain.ClaimVolumeSource{ClaimName: "root-pvc"}},
		},
	}
}

func TestCombineDisks(t *testing.T) {
	live := combined.Claims{Items: []domain.PersistentVolumeClaim{wrapper.NewClaim("root-pvc", "demo", "10Gi").Record()}}
	ts := newTestServer(t, fakeLookup{claims: live}, nil)

	t.Run("records from the request", func(t *testing.T) {
		entity := bootEntity()
		w := ts.do(t, http.MethodPost, "/api/v1/storage/disks", CombineDisksRequest{Entity: &entity, Claims: live})
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())

		resp := decode[CombineDisksResponse](t, w)
		require.Len(t, resp.Disks, 1)
		require.Equal(t, "attach-disk", resp.Disks[0].Source)
		require.Equal(t, combined.Resolved, resp.Disks[0].SizeResolution)
		require.Equal(t, []string{"rootdisk"}, resp.UsedDiskNames)
		require.Equal(t, []string{"root-pvc"}, resp.UsedClaimNames)
		require.True(t, resp.BootSource.Valid, resp.BootSource.Message)
	})

	t.Run("claims still loading", func(t *testing.T) {
		entity := bootEntity()
		w := ts.do(t, http.MethodPost, "/api/v1/storage/disks", CombineDisksRequest{
			Entity: &entity,
			Claims: combined.Claims{Loading: true},
		})
		require.Equal(t, http.StatusOK, w.Code)
		resp := decode[CombineDisksResponse](t, w)
		require.Equal(t, combined.Unknown, resp.Disks[0].SizeResolution)
		require.True(t, resp.BootSource.Unknown)
	})

	t.Run("records from the cluster", func(t *testing.T) {
		entity := bootEntity()
		w := ts.do(t, http.MethodPost, "/api/v1/storage/disks", CombineDisksRequest{Entity: &entity, Lookup: true})
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		resp := decode[CombineDisksResponse](t, w)
		require.Equal(t, "10Gi", resp.Disks[0].Size)
	})

	t.Run("no entity", func(t *testing.T) {
		w := ts.do(t, http.MethodPost, "/api/v1/storage/disks", CombineDisksRequest{})
		requireErrorCode(t, w, http.StatusBadRequest, apperrors.CodeInvalidRequestField)
	})
}

func TestCombineDisks_LookupFailure(t *testing.T) {
	ts := newTestServer(t, fakeLookup{err: errors.New("forbidden")}, nil)
	entity := bootEntity()
	w := ts.do(t, http.MethodPost, "/api/v1/storage/disks", CombineDisksRequest{Entity: &entity, Lookup: true})
	requireErrorCode(t, w, http.StatusServiceUnavailable, apperrors.CodeClusterUnhealthy)

	ts = newTestServer(t, nil, nil)
	w = ts.do(t, http.MethodPost, "/api/v1/storage/disks", CombineDisksRequest{Entity: &entity, Lookup: true})
	requireErrorCode(t, w, http.StatusServiceUnavailable, apperrors.CodeClusterUnhealthy)
}

func TestSessionLifecycle(t *testing.T) {
	ts := newTestServer(t, nil, nil)

	w := ts.do(t, http.MethodPost, "/api/v1/wizard/sessions", CreateSessionRequest{Namespace: "demo"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	created := decode[sessionBody](t, w)
	require.NotEmpty(t, created.ID)
	base := "/api/v1/wizard/sessions/" + created.ID

	require.Eventually(t, func() bool {
		v, err := ts.sessions.Get(created.ID)
		return err == nil && !v.Loading()
	}, 2*time.Second, 5*time.Millisecond)

	name := "vm1"
	w = ts.do(t, http.MethodPatch, base+"/settings", UpdateSettingsRequest{
		Patches: []wizard.FieldPatch{{Field: wizard.FieldName, Value: &name}},
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	settings := decode[sessionBody](t, w)
	require.Equal(t, "vm1", settings.Snapshot.VMSettings.Name.Value)
	require.NotEmpty(t, settings.Mutations)

	st := wizard.Storage{
		Type:   wizard.StorageTypeUIInput,
		Disk:   wrapper.NewDisk("data", domain.DiskTypeDisk, wrapper.DiskTypeData{Bus: domain.DiskBusVirtio}).Record(),
		Volume: domain.Volume{Name: "data", DataVolume: &domain.DataVolumeVolumeSource{Name: "vm1-data"}},
		DataVolume: ptr(wrapper.NewDataVolume("vm1-data", domain.DataVolumeSourceBlank, wrapper.DataVolumeTypeData{}).
			WithSize("1Gi").Record()),
	}
	w = ts.do(t, http.MethodPost, base+"/storages", st)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	v := decode[sessionBody](t, w)
	require.Len(t, v.Snapshot.Storages, 1)
	require.Len(t, v.Disks, 1)
	storageURL := base + "/storages/" + strconv.Itoa(v.Snapshot.Storages[0].ID)

	w = ts.do(t, http.MethodGet, storageURL+"/validation", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	require.Empty(t, decode[wizard.ValidationResult](t, w).Warnings)

	w = ts.do(t, http.MethodGet, base+"/validation", nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.False(t, decode[wizard.ValidationResult](t, w).HasAllRequiredFilled)

	w = ts.do(t, http.MethodDelete, storageURL, nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.Empty(t, decode[sessionBody](t, w).Snapshot.Storages)

	w = ts.do(t, http.MethodDelete, storageURL, nil)
	requireErrorCode(t, w, http.StatusNotFound, apperrors.CodeStorageNotFound)

	w = ts.do(t, http.MethodDelete, base+"/storages/abc", nil)
	requireErrorCode(t, w, http.StatusBadRequest, apperrors.CodeInvalidRequestField)

	w = ts.do(t, http.MethodPut, base+"/networks", NetworksRequest{})
	require.Equal(t, http.StatusOK, w.Code)
	require.Empty(t, decode[sessionBody](t, w).Snapshot.Networks)

	w = ts.do(t, http.MethodPut, base+"/advanced", wizard.Advanced{CloudInitUserData: "#cloud-config"})
	require.Equal(t, http.StatusOK, w.Code)

	w = ts.do(t, http.MethodPut, base+"/references", wizard.PendingReferences())
	require.Equal(t, http.StatusOK, w.Code)
	require.True(t, decode[sessionBody](t, w).Snapshot.References.Claims.Loading)

	w = ts.do(t, http.MethodDelete, base, nil)
	require.Equal(t, http.StatusNoContent, w.Code)

	w = ts.do(t, http.MethodGet, base, nil)
	requireErrorCode(t, w, http.StatusNotFound, apperrors.CodeSessionNotFound)
}

func TestCreateSession_RequiresNamespace(t *testing.T) {
	ts := newTestServer(t, nil, nil)
	w := ts.do(t, http.MethodPost, "/api/v1/wizard/sessions", map[string]string{})
	requireErrorCode(t, w, http.StatusBadRequest, "INVALID_REQUEST")
}

func TestCreateSession_RejectsUndocumentedBody(t *testing.T) {
	ts := newTestServer(t, nil, nil)

	w := ts.do(t, http.MethodPost, "/api/v1/wizard/sessions", map[string]string{"namespace": ""})
	requireErrorCode(t, w, http.StatusBadRequest, apperrors.CodeInvalidRequest)
	body := decode[middleware.ErrorResponse](t, w)
	require.Len(t, body.FieldErrors, 1)
	require.Equal(t, "namespace", body.FieldErrors[0].Field)
	require.Equal(t, apperrors.CodeInvalidRequestField, body.FieldErrors[0].Code)

	w = ts.do(t, http.MethodPost, "/api/v1/wizard/sessions", map[string]string{"namespace": "demo", "cluster": "east"})
	requireErrorCode(t, w, http.StatusBadRequest, apperrors.CodeInvalidRequest)
	require.NotEmpty(t, decode[middleware.ErrorResponse](t, w).FieldErrors)
	require.Zero(t, ts.sessions.Len())
}

func TestUpdateSettings_UnknownField(t *testing.T) {
	ts := newTestServer(t, nil, nil)
	v, err := ts.sessions.Create("demo")
	require.NoError(t, err)

	value := "x"
	w := ts.do(t, http.MethodPatch, "/api/v1/wizard/sessions/"+v.ID+"/settings", UpdateSettingsRequest{
		Patches: []wizard.FieldPatch{{Field: "bogus", Value: &value}},
	})
	requireErrorCode(t, w, http.StatusBadRequest, apperrors.CodeInvalidRequestField)
}
