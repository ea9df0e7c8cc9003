package services

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"

	"github.com/flashbots/aquanet/coordinator"
	"github.com/flashbots/aquanet/crypto"
	"github.com/flashbots/aquanet/engine"
	"github.com/flashbots/aquanet/protocol"
	"github.com/flashbots/aquanet/testutil"
)

const testAuthority = protocol.Principal("authority")

type serviceFixture struct {
	router chi.Router
	coord  *coordinator.Coordinator
	engine *engine.Mock
	clock  *testutil.Clock
	store  *InMemoryEventStore
}

func setupTestService(t *testing.T, adminToken string) *serviceFixture {
	t.Helper()

	mock, err := engine.NewMock()
	require.NoError(t, err)

	clock := testutil.NewClock(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))
	store := NewInMemoryEventStore()

	coord, err := coordinator.New(&coordinator.Config{
		Authority:       testAuthority,
		Engine:          mock,
		EnginePrincipal: mock.Principal(),
		Verifier:        protocol.Ed25519Verifier{},
		Settlement:      &testutil.RefundRecorder{},
		Entropy:         testutil.Entropy(7),
		Now:             clock.Now,
		EventSink:       store,
	})
	require.NoError(t, err)

	svc, err := NewCoordinatorService(&ServiceConfig{
		Coordinator: coord,
		Authority:   testAuthority,
		AdminToken:  adminToken,
	})
	require.NoError(t, err)

	router := chi.NewRouter()
	svc.RegisterRoutes(router)

	return &serviceFixture{router: router, coord: coord, engine: mock, clock: clock, store: store}
}

func (f *serviceFixture) do(t *testing.T, method, path string, body any, admin bool) *httptest.ResponseRecorder {
	t.Helper()

	var reader *strings.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = strings.NewReader(string(raw))
	} else {
		reader = strings.NewReader("")
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if admin {
		req.SetBasicAuth("admin", "secret")
	}

	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	return w
}

func (f *serviceFixture) registerRegion(t *testing.T, name string) (protocol.RegionID, protocol.Principal, crypto.PrivateKey) {
	t.Helper()

	pub, priv, err := crypto.GenerateKeyPair()
	require.NoError(t, err)
	manager := protocol.Principal(pub.String())

	w := f.do(t, "POST", "/admin/regions", &RegisterRegionRequest{Name: name, Priority: 5, Manager: manager}, true)
	require.Equal(t, http.StatusOK, w.Code)

	var resp RegisterRegionResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	return resp.RegionID, manager, priv
}

func (f *serviceFixture) startPeriod(t *testing.T, total uint64) protocol.PeriodID {
	t.Helper()

	w := f.do(t, "POST", "/admin/periods", &StartPeriodRequest{TotalResource: total, DurationHours: 24}, true)
	require.Equal(t, http.StatusOK, w.Code)

	var resp StartPeriodResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	return resp.PeriodID
}

func (f *serviceFixture) submitRequest(t *testing.T, priv crypto.PrivateKey, period protocol.PeriodID, region protocol.RegionID) *httptest.ResponseRecorder {
	t.Helper()

	signed, err := protocol.NewSigned(priv, &protocol.RequestSubmission{
		Period:             period,
		Region:             region,
		RequestedAmount:    1000,
		JustificationScore: 50,
	})
	require.NoError(t, err)
	return f.do(t, "POST", "/requests", signed, false)
}

func TestAdminRoutesRequireBasicAuth(t *testing.T) {
	f := setupTestService(t, "admin:secret")

	w := f.do(t, "POST", "/admin/regions", &RegisterRegionRequest{Name: "north", Priority: 5, Manager: "m"}, false)
	require.Equal(t, http.StatusUnauthorized, w.Code)

	req := httptest.NewRequest("POST", "/admin/periods", strings.NewReader("{}"))
	req.SetBasicAuth("admin", "wrong")
	w = httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	require.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAdminRoutesDisabledWithoutToken(t *testing.T) {
	f := setupTestService(t, "")

	w := f.do(t, "POST", "/admin/regions", &RegisterRegionRequest{Name: "north", Priority: 5, Manager: "m"}, true)
	require.Equal(t, http.StatusForbidden, w.Code)
}

func TestRegionLifecycleOverHTTP(t *testing.T) {
	f := setupTestService(t, "admin:secret")

	regionID, manager, _ := f.registerRegion(t, "north-basin")

	w := f.do(t, "GET", fmt.Sprintf("/regions/%d", regionID), nil, false)
	require.Equal(t, http.StatusOK, w.Code)

	var region protocol.Region
	require.NoError(t, json.NewDecoder(w.Body).Decode(&region))
	require.Equal(t, "north-basin", region.Name)
	require.Equal(t, manager, region.Manager)
	require.True(t, region.Active)

	newPub, _, err := crypto.GenerateKeyPair()
	require.NoError(t, err)
	w = f.do(t, "PUT", fmt.Sprintf("/admin/regions/%d/manager", regionID), &UpdateManagerRequest{Manager: protocol.Principal(newPub.String())}, true)
	require.Equal(t, http.StatusOK, w.Code)

	w = f.do(t, "DELETE", fmt.Sprintf("/admin/regions/%d", regionID), nil, true)
	require.Equal(t, http.StatusOK, w.Code)

	w = f.do(t, "DELETE", fmt.Sprintf("/admin/regions/%d", regionID), nil, true)
	require.Equal(t, http.StatusConflict, w.Code)

	w = f.do(t, "GET", "/regions/999", nil, false)
	require.Equal(t, http.StatusNotFound, w.Code)
}

func TestSignedRequestSubmission(t *testing.T) {
	f := setupTestService(t, "admin:secret")

	regionID, _, priv := f.registerRegion(t, "north")
	periodID := f.startPeriod(t, 10_000)

	w := f.submitRequest(t, priv, periodID, regionID)
	require.Equal(t, http.StatusOK, w.Code)

	// Rejected when signed by a key that is not the region manager.
	_, otherPriv, err := crypto.GenerateKeyPair()
	require.NoError(t, err)
	w = f.submitRequest(t, otherPriv, periodID, regionID)
	require.Equal(t, http.StatusForbidden, w.Code)

	// A tampered envelope never reaches the coordinator.
	signed, err := protocol.NewSigned(priv, &protocol.RequestSubmission{
		Period: periodID, Region: regionID, RequestedAmount: 1, JustificationScore: 1,
	})
	require.NoError(t, err)
	signed.Object.RequestedAmount = 9_999
	w = f.do(t, "POST", "/requests", signed, false)
	require.Equal(t, http.StatusForbidden, w.Code)
}

func TestFullPeriodOverHTTP(t *testing.T) {
	f := setupTestService(t, "admin:secret")

	regionID, manager, priv := f.registerRegion(t, "north")
	periodID := f.startPeriod(t, 10_000)

	w := f.submitRequest(t, priv, periodID, regionID)
	require.Equal(t, http.StatusOK, w.Code)

	w = f.do(t, "GET", fmt.Sprintf("/periods/%d/active", periodID), nil, false)
	require.Equal(t, http.StatusOK, w.Code)
	var active PeriodActiveResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&active))
	require.True(t, active.Active)

	w = f.do(t, "POST", fmt.Sprintf("/admin/periods/%d/distribute", periodID), nil, true)
	require.Equal(t, http.StatusOK, w.Code)
	var dist DistributionResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&dist))
	require.NotEmpty(t, dist.Correlation)

	result, proof, err := f.engine.Result(dist.Correlation)
	require.NoError(t, err)
	w = f.do(t, "POST", "/reveal-results", &RevealResultRequest{Result: *result, Proof: proof}, false)
	require.Equal(t, http.StatusOK, w.Code)

	// Replaying the same correlation conflicts.
	w = f.do(t, "POST", "/reveal-results", &RevealResultRequest{Result: *result, Proof: proof}, false)
	require.Equal(t, http.StatusConflict, w.Code)

	w = f.do(t, "GET", fmt.Sprintf("/periods/%d", periodID), nil, false)
	require.Equal(t, http.StatusOK, w.Code)
	var period protocol.AllocationPeriod
	require.NoError(t, json.NewDecoder(w.Body).Decode(&period))
	require.True(t, period.DistributionCompleted)

	// The manager's allocation is readable through the engine grant.
	region, err := f.coord.Region(regionID)
	require.NoError(t, err)
	_, err = f.engine.Read(region.LockedAllocation, manager)
	require.NoError(t, err)
}

func TestTimeoutAndRefundOverHTTP(t *testing.T) {
	f := setupTestService(t, "admin:secret")

	regionID, manager, priv := f.registerRegion(t, "north")
	periodID := f.startPeriod(t, 10_000)

	w := f.submitRequest(t, priv, periodID, regionID)
	require.Equal(t, http.StatusOK, w.Code)

	w = f.do(t, "POST", fmt.Sprintf("/admin/periods/%d/distribute", periodID), nil, true)
	require.Equal(t, http.StatusOK, w.Code)

	// Not yet eligible.
	w = f.do(t, "GET", fmt.Sprintf("/periods/%d/refund-eligibility?manager=%s", periodID, manager), nil, false)
	require.Equal(t, http.StatusOK, w.Code)
	var eligibility RefundEligibilityResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&eligibility))
	require.False(t, eligibility.Eligible)

	w = f.do(t, "POST", fmt.Sprintf("/periods/%d/timeout", periodID), nil, false)
	require.Equal(t, http.StatusConflict, w.Code)

	f.clock.Advance(24*time.Hour + time.Second)

	w = f.do(t, "POST", fmt.Sprintf("/periods/%d/timeout", periodID), nil, false)
	require.Equal(t, http.StatusOK, w.Code)

	// The timeout already refunded the request, so the signed failure
	// claim now conflicts.
	signed, err := protocol.NewSigned(priv, &protocol.RefundClaim{Period: periodID, Region: regionID})
	require.NoError(t, err)
	w = f.do(t, "POST", "/refund-claims", signed, false)
	require.Equal(t, http.StatusConflict, w.Code)
}

func TestEmergencyAllocationOverHTTP(t *testing.T) {
	f := setupTestService(t, "admin:secret")

	regionID, manager, _ := f.registerRegion(t, "north")

	w := f.do(t, "POST", fmt.Sprintf("/admin/regions/%d/emergency-allocation", regionID), &EmergencyAllocationRequest{Amount: 500}, true)
	require.Equal(t, http.StatusOK, w.Code)

	region, err := f.coord.Region(regionID)
	require.NoError(t, err)
	value, err := f.engine.Read(region.LockedAllocation, manager)
	require.NoError(t, err)
	require.Equal(t, uint64(500), value)

	w = f.do(t, "POST", fmt.Sprintf("/admin/regions/%d/emergency-allocation", regionID), &EmergencyAllocationRequest{Amount: 0}, true)
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestEventsEndpointFiltersByPeriod(t *testing.T) {
	f := setupTestService(t, "admin:secret")

	regionID, _, priv := f.registerRegion(t, "north")
	periodID := f.startPeriod(t, 10_000)
	w := f.submitRequest(t, priv, periodID, regionID)
	require.Equal(t, http.StatusOK, w.Code)

	w = f.do(t, "GET", fmt.Sprintf("/events?period=%d", periodID), nil, false)
	require.Equal(t, http.StatusOK, w.Code)

	var events []protocol.Event
	require.NoError(t, json.NewDecoder(w.Body).Decode(&events))
	require.NotEmpty(t, events)
	for _, ev := range events {
		require.Equal(t, periodID, ev.Period)
	}

	w = f.do(t, "GET", "/events?period=abc", nil, false)
	require.Equal(t, http.StatusBadRequest, w.Code)

	// The sink saw everything the in-memory log did.
	stored, err := f.store.LoadEvents(context.Background(), 0)
	require.NoError(t, err)
	require.Len(t, stored, len(f.coord.Events(0)))
}
