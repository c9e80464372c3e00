package shift_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"picktrack/internal/settings"
	"picktrack/internal/shift"
	shifterrors "picktrack/internal/shift/errors"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

type fakeService struct {
	checkInFn       func(ctx context.Context, username string, req shift.CheckInRequest) (shift.ShiftResponse, error)
	checkOutFn      func(ctx context.Context, username string, req shift.CheckOutRequest, auto bool) (shift.ShiftResponse, error)
	getActiveFn     func(ctx context.Context, username string) (*shift.ShiftResponse, error)
	listFn          func(ctx context.Context, f shift.ListFilter) ([]shift.ShiftResponse, int64, error)
	getDetailFn     func(ctx context.Context, id string) (shift.ShiftDetailResponse, error)
	adminAdjustFn   func(ctx context.Context, id, admin string, req shift.AdjustShiftRequest) (shift.ShiftResponse, error)
	forceCheckoutFn func(ctx context.Context, id, admin string) (shift.ShiftResponse, error)
}

func (f *fakeService) CheckIn(ctx context.Context, username string, req shift.CheckInRequest) (shift.ShiftResponse, error) {
	return f.checkInFn(ctx, username, req)
}
func (f *fakeService) CheckOut(ctx context.Context, username string, req shift.CheckOutRequest, auto bool) (shift.ShiftResponse, error) {
	return f.checkOutFn(ctx, username, req, auto)
}
func (f *fakeService) GetActive(ctx context.Context, username string) (*shift.ShiftResponse, error) {
	return f.getActiveFn(ctx, username)
}
func (f *fakeService) List(ctx context.Context, flt shift.ListFilter) ([]shift.ShiftResponse, int64, error) {
	return f.listFn(ctx, flt)
}
func (f *fakeService) GetDetail(ctx context.Context, id string) (shift.ShiftDetailResponse, error) {
	return f.getDetailFn(ctx, id)
}
func (f *fakeService) AdminAdjust(ctx context.Context, id, admin string, req shift.AdjustShiftRequest) (shift.ShiftResponse, error) {
	return f.adminAdjustFn(ctx, id, admin, req)
}
func (f *fakeService) ForceCheckout(ctx context.Context, id, admin string) (shift.ShiftResponse, error) {
	return f.forceCheckoutFn(ctx, id, admin)
}

type fakeLedger struct {
	startBreakFn  func(ctx context.Context, username string, req shift.StartBreakRequest) (shift.IdlePeriodResponse, error)
	endBreakFn    func(ctx context.Context, username string) (shift.IdlePeriodResponse, error)
	activeBreakFn func(ctx context.Context, username string) (*shift.IdlePeriodResponse, error)
}

func (f *fakeLedger) StartBreak(ctx context.Context, username string, req shift.StartBreakRequest) (shift.IdlePeriodResponse, error) {
	return f.startBreakFn(ctx, username, req)
}
func (f *fakeLedger) EndBreak(ctx context.Context, username string) (shift.IdlePeriodResponse, error) {
	return f.endBreakFn(ctx, username)
}
func (f *fakeLedger) ActiveBreak(ctx context.Context, username string) (*shift.IdlePeriodResponse, error) {
	return f.activeBreakFn(ctx, username)
}
func (f *fakeLedger) OpenIdle(ctx context.Context, shiftID uuid.UUID, at time.Time) (shift.IdlePeriod, bool, error) {
	return shift.IdlePeriod{}, false, nil
}

type fakeRecorder struct {
	recordFn func(ctx context.Context, username string, req shift.RecordActivityRequest) (shift.ActivityResponse, error)
}

func (f *fakeRecorder) Record(ctx context.Context, username string, req shift.RecordActivityRequest) (shift.ActivityResponse, error) {
	return f.recordFn(ctx, username, req)
}

type fakeSettings struct {
	gps    bool
	values map[string]string
}

func (f *fakeSettings) Get(ctx context.Context, key string, def string) string {
	if v, ok := f.values[key]; ok {
		return v
	}
	return def
}
func (f *fakeSettings) Set(ctx context.Context, key, value string) error     { return nil }
func (f *fakeSettings) List(ctx context.Context) ([]settings.Setting, error) { return nil, nil }
func (f *fakeSettings) IdleThresholdMinutes(ctx context.Context) int         { return 15 }
func (f *fakeSettings) EndOfBusinessDay(ctx context.Context) (int, int)      { return 18, 0 }
func (f *fakeSettings) Timezone(ctx context.Context) *time.Location          { return time.UTC }
func (f *fakeSettings) RequireGPSCheck(ctx context.Context) bool             { return f.gps }

func testCtx(t *testing.T, method, target, body string) (*gin.Context, *httptest.ResponseRecorder) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Set("username_validated", "alice")
	var reader *strings.Reader
	if body == "" {
		reader = strings.NewReader("{}")
	} else {
		reader = strings.NewReader(body)
	}
	c.Request = httptest.NewRequest(method, target, reader)
	c.Request.Header.Set("Content-Type", "application/json")
	return c, w
}

func TestHandler_CheckIn(t *testing.T) {
	svc := &fakeService{
		checkInFn: func(ctx context.Context, username string, req shift.CheckInRequest) (shift.ShiftResponse, error) {
			assert.Equal(t, "alice", username)
			return shift.ShiftResponse{ID: uuid.New().String(), PickerUsername: username, Status: shift.StatusActive}, nil
		},
	}
	h := shift.NewHandler(svc, &fakeLedger{}, &fakeRecorder{}, &fakeSettings{})

	c, w := testCtx(t, http.MethodPost, "/shifts/check-in", "")
	h.CheckIn(c)
	assert.Equal(t, http.StatusCreated, w.Code)
	assert.Contains(t, w.Body.String(), `"ok":true`)
}

func TestHandler_CheckIn_BodylessRequestIsValid(t *testing.T) {
	svc := &fakeService{
		checkInFn: func(ctx context.Context, username string, req shift.CheckInRequest) (shift.ShiftResponse, error) {
			assert.Nil(t, req.Coordinates)
			return shift.ShiftResponse{ID: uuid.New().String(), PickerUsername: username, Status: shift.StatusActive}, nil
		},
	}
	ledger := &fakeLedger{
		startBreakFn: func(ctx context.Context, username string, req shift.StartBreakRequest) (shift.IdlePeriodResponse, error) {
			assert.Nil(t, req.BreakReason)
			return shift.IdlePeriodResponse{ID: uuid.New().String(), IsBreak: true}, nil
		},
	}
	h := shift.NewHandler(svc, ledger, &fakeRecorder{}, &fakeSettings{})

	gin.SetMode(gin.TestMode)

	// Terminals post these without a body at all; that is not a bind error.
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Set("username_validated", "alice")
	c.Request = httptest.NewRequest(http.MethodPost, "/shifts/check-in", http.NoBody)
	h.CheckIn(c)
	assert.Equal(t, http.StatusCreated, w.Code)

	w = httptest.NewRecorder()
	c, _ = gin.CreateTestContext(w)
	c.Set("username_validated", "alice")
	c.Request = httptest.NewRequest(http.MethodPost, "/breaks/start", http.NoBody)
	h.StartBreak(c)
	assert.Equal(t, http.StatusCreated, w.Code)
}

func TestHandler_CheckIn_GeofenceRequiresCoordinates(t *testing.T) {
	h := shift.NewHandler(&fakeService{
		checkInFn: func(ctx context.Context, username string, req shift.CheckInRequest) (shift.ShiftResponse, error) {
			t.Fatal("service must not be reached without coordinates")
			return shift.ShiftResponse{}, nil
		},
	}, &fakeLedger{}, &fakeRecorder{}, &fakeSettings{gps: true})

	c, w := testCtx(t, http.MethodPost, "/shifts/check-in", "")
	h.CheckIn(c)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHandler_CheckIn_GeofenceRejectsFarCoordinates(t *testing.T) {
	h := shift.NewHandler(&fakeService{
		checkInFn: func(ctx context.Context, username string, req shift.CheckInRequest) (shift.ShiftResponse, error) {
			t.Fatal("service must not be reached from outside the fence")
			return shift.ShiftResponse{}, nil
		},
	}, &fakeLedger{}, &fakeRecorder{}, &fakeSettings{gps: true})

	// Central Athens, roughly 800 km from the warehouse.
	c, w := testCtx(t, http.MethodPost, "/shifts/check-in", `{"coordinates":"37.9838,23.7275"}`)
	h.CheckIn(c)
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestHandler_CheckIn_GeofenceAcceptsNearbyCoordinates(t *testing.T) {
	called := false
	h := shift.NewHandler(&fakeService{
		checkInFn: func(ctx context.Context, username string, req shift.CheckInRequest) (shift.ShiftResponse, error) {
			called = true
			return shift.ShiftResponse{ID: uuid.New().String()}, nil
		},
	}, &fakeLedger{}, &fakeRecorder{}, &fakeSettings{gps: true})

	c, w := testCtx(t, http.MethodPost, "/shifts/check-in", `{"coordinates":"35.0470,33.3926"}`)
	h.CheckIn(c)
	assert.True(t, called)
	assert.Equal(t, http.StatusCreated, w.Code)
}

func TestHandler_CheckOut_MapsNoActiveShift(t *testing.T) {
	h := shift.NewHandler(&fakeService{
		checkOutFn: func(ctx context.Context, username string, req shift.CheckOutRequest, auto bool) (shift.ShiftResponse, error) {
			return shift.ShiftResponse{}, shifterrors.ErrNoActiveShift
		},
	}, &fakeLedger{}, &fakeRecorder{}, &fakeSettings{})

	c, w := testCtx(t, http.MethodPost, "/shifts/check-out", "")
	h.CheckOut(c)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), `"ok":false`)
}

func TestHandler_GetActive_NoShiftReturnsNullData(t *testing.T) {
	h := shift.NewHandler(&fakeService{
		getActiveFn: func(ctx context.Context, username string) (*shift.ShiftResponse, error) {
			return nil, nil
		},
	}, &fakeLedger{}, &fakeRecorder{}, &fakeSettings{})

	c, w := testCtx(t, http.MethodGet, "/shifts/active", "")
	h.GetActive(c)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"ok":true`)
	assert.Contains(t, w.Body.String(), `"data":null`)
}

func TestHandler_List_ParsesFiltersAndPaginates(t *testing.T) {
	var seen shift.ListFilter
	h := shift.NewHandler(&fakeService{
		listFn: func(ctx context.Context, f shift.ListFilter) ([]shift.ShiftResponse, int64, error) {
			seen = f
			return []shift.ShiftResponse{{ID: uuid.New().String()}}, 1, nil
		},
	}, &fakeLedger{}, &fakeRecorder{}, &fakeSettings{})

	c, w := testCtx(t, http.MethodGet, "/shifts?picker=bob&status=completed&admin_adjusted=true&page=2&page_size=5", "")
	h.List(c)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "bob", seen.Picker)
	assert.Equal(t, "completed", seen.Status)
	assert.True(t, *seen.AdminAdjusted)
	assert.Equal(t, 2, seen.Page)
	assert.Equal(t, 5, seen.PageSize)
	assert.Contains(t, w.Body.String(), `"meta"`)
}

func TestHandler_StartAndEndBreak(t *testing.T) {
	ledger := &fakeLedger{
		startBreakFn: func(ctx context.Context, username string, req shift.StartBreakRequest) (shift.IdlePeriodResponse, error) {
			return shift.IdlePeriodResponse{ID: uuid.New().String(), IsBreak: true}, nil
		},
		endBreakFn: func(ctx context.Context, username string) (shift.IdlePeriodResponse, error) {
			return shift.IdlePeriodResponse{}, shifterrors.ErrNoActiveBreak
		},
	}
	h := shift.NewHandler(&fakeService{}, ledger, &fakeRecorder{}, &fakeSettings{})

	c, w := testCtx(t, http.MethodPost, "/breaks/start", `{"break_reason":"lunch"}`)
	h.StartBreak(c)
	assert.Equal(t, http.StatusCreated, w.Code)

	c2, w2 := testCtx(t, http.MethodPost, "/breaks/end", "")
	h.EndBreak(c2)
	assert.Equal(t, http.StatusNotFound, w2.Code)
}

func TestHandler_RecordActivity_RequiresType(t *testing.T) {
	h := shift.NewHandler(&fakeService{}, &fakeLedger{}, &fakeRecorder{
		recordFn: func(ctx context.Context, username string, req shift.RecordActivityRequest) (shift.ActivityResponse, error) {
			t.Fatal("invalid body must not reach the recorder")
			return shift.ActivityResponse{}, nil
		},
	}, &fakeSettings{})

	c, w := testCtx(t, http.MethodPost, "/activities", `{}`)
	h.RecordActivity(c)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
