package controller

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"accelerator_sync_v1/internal/middleware"
	"accelerator_sync_v1/internal/model"
	"accelerator_sync_v1/internal/service"
	"accelerator_sync_v1/pkg/tiktok"
)

func init() {
	gin.SetMode(gin.TestMode)
	cfg := middleware.DefaultJWTConfig()
	cfg.SecretKey = "test-secret"
	middleware.SetJWTConfig(cfg)
}

// ==================== Fakes ====================

type fakeTrigger struct {
	syncErr      error
	reconcileErr error
	allErr       error

	gotSyncType service.SyncType
	gotWindow   tiktok.Window
	gotFee      float64
	calls       int
	allCalls    int
}

func (f *fakeTrigger) TriggerSync(ctx context.Context, id int64, st service.SyncType, w tiktok.Window) (*service.SyncResult, error) {
	f.calls++
	f.gotSyncType, f.gotWindow = st, w
	if f.syncErr != nil {
		return nil, f.syncErr
	}
	started := time.Date(2025, 3, 8, 0, 0, 0, 0, time.UTC)
	return &service.SyncResult{
		ConnectionID: id,
		SyncType:     st,
		WindowStart:  w.Start,
		WindowEnd:    w.End,
		Entities: map[service.SyncType]*service.EntityResult{
			service.SyncOrders:          {Status: service.EntityOK, Count: 12},
			service.SyncAffiliateOrders: {Status: service.EntitySkipped, Reason: "scope not granted"},
		},
		StartedAt:  started,
		FinishedAt: started.Add(1500 * time.Millisecond),
	}, nil
}

func (f *fakeTrigger) TriggerReconcile(ctx context.Context, id int64, w tiktok.Window, fee float64) (*service.ReconcileResult, error) {
	f.calls++
	f.gotWindow, f.gotFee = w, fee
	if f.reconcileErr != nil {
		return nil, f.reconcileErr
	}
	return &service.ReconcileResult{DaysUpdated: 2, Days: []string{"2025-03-01", "2025-03-02"}}, nil
}

func (f *fakeTrigger) TriggerAllSync() error {
	f.allCalls++
	return f.allErr
}

func (f *fakeTrigger) DefaultWindow() tiktok.Window {
	return tiktok.Window{
		Start: time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC),
		End:   time.Date(2025, 3, 8, 0, 0, 0, 0, time.UTC),
	}
}

func (f *fakeTrigger) DefaultFeePercent() float64 { return 6 }

type fakeConnections struct {
	owned     map[int64]int64 // connectionID -> userID
	state     string
	callback  *model.Connection
	removedID int64
}

func (f *fakeConnections) Get(ctx context.Context, userID, id int64) (*model.Connection, error) {
	if owner, ok := f.owned[id]; ok && owner == userID {
		c := &model.Connection{UserID: userID}
		c.ID = id
		return c, nil
	}
	return nil, service.ErrConnectionNotFound
}

func (f *fakeConnections) List(ctx context.Context, userID int64) ([]model.Connection, error) {
	var out []model.Connection
	for id, owner := range f.owned {
		if owner == userID {
			c := model.Connection{UserID: userID, ShopName: "shop", SyncStatus: model.SyncStatusIdle}
			c.ID = id
			out = append(out, c)
		}
	}
	return out, nil
}

func (f *fakeConnections) Disconnect(ctx context.Context, userID, id int64) error {
	if _, err := f.Get(ctx, userID, id); err != nil {
		return err
	}
	f.removedID = id
	delete(f.owned, id)
	return nil
}

func (f *fakeConnections) BuildAuthorizeURL(ctx context.Context, userID int64) (string, error) {
	return "https://auth.example.com/authorize?state=" + f.state, nil
}

func (f *fakeConnections) HandleCallback(ctx context.Context, code, state string) (*model.Connection, error) {
	if state != f.state {
		return nil, service.ErrInvalidState
	}
	return f.callback, nil
}

// ==================== 辅助函数 ====================

// setupRouter 与生产路由保持一致的鉴权方式
func setupRouter(conns ConnectionManager, trigger SyncTrigger) *gin.Engine {
	r := gin.New()
	connCtl := NewConnectionController(conns)
	syncCtl := NewSyncController(trigger, conns)

	v1 := r.Group("/api/v1")
	v1.GET("/oauth/callback", connCtl.Callback)
	authed := v1.Group("", middleware.JWTAuth())
	authed.GET("/oauth/authorize", connCtl.Authorize)
	authed.GET("/connections", connCtl.List)
	authed.DELETE("/connections/:id", connCtl.Delete)
	authed.POST("/connections/:id/sync", syncCtl.SyncConnection)
	authed.POST("/connections/:id/reconcile", syncCtl.ReconcileConnection)
	return r
}

type apiResp struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func doRequest(t *testing.T, r *gin.Engine, method, path string, userID int64, body interface{}) (*httptest.ResponseRecorder, apiResp) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if userID > 0 {
		token, err := middleware.GenerateAccessToken(userID, "tester", "seller")
		require.NoError(t, err)
		req.Header.Set("Authorization", "Bearer "+token)
	}

	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	var resp apiResp
	if w.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	}
	return w, resp
}
