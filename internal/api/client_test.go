package api_test

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leca/skureview/internal/api"
	"github.com/leca/skureview/internal/fakeapi"
	"github.com/leca/skureview/internal/model"
)

const operator = "op@example.com"

// testClient starts the fake backend and returns a client pointed at it.
func testClient(t *testing.T) (*api.Client, *fakeapi.Server) {
	t.Helper()
	backend := fakeapi.New()
	ts := httptest.NewServer(backend.Router)
	t.Cleanup(ts.Close)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return api.NewClient(ts.URL, ts.URL, api.WithLogger(logger), api.WithTimeout(5*time.Second)), backend
}

func apiError(t *testing.T, err error) *api.Error {
	t.Helper()
	require.Error(t, err)
	var apiErr *api.Error
	require.ErrorAs(t, err, &apiErr)
	return apiErr
}

// ---------- auth ----------

func TestLogin_OpensSession(t *testing.T) {
	c, backend := testClient(t)

	resp, err := c.Login(context.Background(), operator)
	require.NoError(t, err)
	assert.Equal(t, operator, resp.Email)
	assert.True(t, resp.SessionActive)
	assert.True(t, backend.HasSession(operator))
}

func TestLogin_RejectedIsAuthError(t *testing.T) {
	c, _ := testClient(t)

	_, err := c.Login(context.Background(), "not-an-email")
	apiErr := apiError(t, err)
	assert.Equal(t, api.KindAuth, apiErr.Kind)
	assert.Equal(t, http.StatusUnprocessableEntity, apiErr.StatusCode)
	assert.Equal(t, "value is not a valid email address", apiErr.Detail)
}

func TestLogin_EmptyIdentityNeverCalls(t *testing.T) {
	c, backend := testClient(t)

	_, err := c.Login(context.Background(), "  ")
	assert.Equal(t, api.KindValidation, api.KindOf(err))
	assert.Zero(t, backend.CallCount("POST /auth/login"))
}

func TestLogin_UnreachableIsAuthError(t *testing.T) {
	c := api.NewClient("http://127.0.0.1:1", "", api.WithTimeout(time.Second))

	_, err := c.Login(context.Background(), operator)
	assert.Equal(t, api.KindAuth, api.KindOf(err))
}

func TestLogout_ClearsSession(t *testing.T) {
	c, backend := testClient(t)
	backend.Seed(operator, model.Image{ImageName: "a.jpg", SKUID: "S1"})

	require.NoError(t, c.Logout(context.Background(), operator))
	assert.False(t, backend.HasSession(operator))
	assert.Empty(t, backend.Images(operator))
}

// ---------- uploads ----------

func TestUploadExcel(t *testing.T) {
	c, backend := testClient(t)
	backend.Seed(operator, model.Image{ImageName: "a.jpg", SKUID: "S1"}, model.Image{ImageName: "b.jpg", SKUID: "S1"})

	sum, err := c.UploadExcel(context.Background(), operator, api.UploadFile{Name: "/tmp/meta.xlsx", Reader: strings.NewReader("xlsx")})
	require.NoError(t, err)
	assert.Equal(t, 2, sum.Count)
	assert.Equal(t, []string{"meta.xlsx"}, backend.Uploads(operator))
}

func TestUploadExcel_WithoutSession(t *testing.T) {
	c, _ := testClient(t)

	_, err := c.UploadExcel(context.Background(), operator, api.UploadFile{Name: "meta.xlsx", Reader: strings.NewReader("x")})
	apiErr := apiError(t, err)
	assert.Equal(t, api.KindServer, apiErr.Kind)
	assert.True(t, api.IsNotFound(err))
	assert.Equal(t, "Session not found. Please login first.", api.UserMessage(err))
}

func TestUploadImages_ReportsMerge(t *testing.T) {
	c, backend := testClient(t)
	backend.Seed(operator, model.Image{ImageName: "a.jpg", SKUID: "S1"})

	res, err := c.UploadImages(context.Background(), operator, []api.UploadFile{
		{Name: "a.jpg", Reader: strings.NewReader("a")},
		{Name: "stray.jpg", Reader: strings.NewReader("b")},
	})
	require.NoError(t, err)
	require.Len(t, res.Results, 2)
	assert.True(t, res.Results[0].Merged())
	assert.False(t, res.Results[1].Merged())

	img, ok := backend.Image(operator, "a.jpg")
	require.True(t, ok)
	assert.Equal(t, "/sessions/op_example_com/images/a.jpg", img.ImagePath.String())
}

func TestUploadImages_RequiresFiles(t *testing.T) {
	c, _ := testClient(t)

	_, err := c.UploadImages(context.Background(), operator, nil)
	assert.Equal(t, api.KindValidation, api.KindOf(err))
}

// ---------- validation ----------

func TestListSKUs_Counts(t *testing.T) {
	c, backend := testClient(t)
	backend.Seed(operator,
		model.Image{ImageName: "a.jpg", SKUID: "S1", Status: model.StatusApproved},
		model.Image{ImageName: "b.jpg", SKUID: "S1", Status: model.StatusRejected},
		model.Image{ImageName: "c.jpg", SKUID: "S2"},
	)

	skus, err := c.ListSKUs(context.Background(), operator)
	require.NoError(t, err)
	require.Len(t, skus, 2)
	assert.Equal(t, model.SKU{SKUID: "S1", Total: 2, Approved: 1, Rejected: 1}, skus[0])
	assert.Equal(t, model.SKU{SKUID: "S2", Total: 1, Pending: 1}, skus[1])
}

func TestListSKUs_NonListIsEmpty(t *testing.T) {
	c, backend := testClient(t)
	backend.Respond("GET /validate/skus", http.StatusOK, `{"unexpected":"object"}`)

	skus, err := c.ListSKUs(context.Background(), operator)
	require.NoError(t, err)
	assert.Empty(t, skus)
}

func TestListSKUs_ServerError(t *testing.T) {
	c, backend := testClient(t)
	backend.Fail("GET /validate/skus", http.StatusInternalServerError, "")

	_, err := c.ListSKUs(context.Background(), operator)
	apiErr := apiError(t, err)
	assert.Equal(t, api.KindServer, apiErr.Kind)
	assert.Equal(t, http.StatusInternalServerError, apiErr.StatusCode)
	assert.Empty(t, apiErr.Detail)
}

func TestListImages_ServerOrder(t *testing.T) {
	c, backend := testClient(t)
	backend.Seed(operator,
		model.Image{ImageName: "z.jpg", SKUID: "S1"},
		model.Image{ImageName: "b.jpg", SKUID: "S1", Status: model.StatusApproved, DisplayOrder: model.IntValue(1)},
		model.Image{ImageName: "a.jpg", SKUID: "S1"},
		model.Image{ImageName: "x.jpg", SKUID: "S2"},
	)

	images, err := c.ListImages(context.Background(), operator, "S1")
	require.NoError(t, err)
	var names []string
	for _, img := range images {
		names = append(names, img.ImageName)
	}
	assert.Equal(t, []string{"b.jpg", "a.jpg", "z.jpg"}, names)
}

func TestListImages_EscapesSKU(t *testing.T) {
	c, backend := testClient(t)
	backend.Seed(operator, model.Image{ImageName: "a.jpg", SKUID: "A B"})

	images, err := c.ListImages(context.Background(), operator, "A B")
	require.NoError(t, err)
	assert.Len(t, images, 1)
}

func TestListImages_LenientEntries(t *testing.T) {
	c, backend := testClient(t)
	backend.Respond("GET /validate/images/S1", http.StatusOK,
		`[{"image_name":"a.jpg","sku_id":1001,"display_order":"3","notes":null},null,42]`)

	images, err := c.ListImages(context.Background(), operator, "S1")
	require.NoError(t, err)
	require.Len(t, images, 1)
	assert.Equal(t, "1001", images[0].SKUID.String())
	assert.Equal(t, model.IntValue(3), images[0].DisplayOrder)
	assert.Empty(t, images[0].Notes)
}

func TestUpdateImage_SendsFullFieldSet(t *testing.T) {
	c, backend := testClient(t)
	backend.Seed(operator, model.Image{ImageName: "a.jpg", SKUID: "S1"})

	echo, err := c.UpdateImage(context.Background(), operator, model.ImageUpdate{
		ImageName: "a.jpg", Status: model.StatusApproved, DisplayOrder: model.IntValue(2), Notes: "hero",
	})
	require.NoError(t, err)
	assert.Nil(t, echo)

	calls := backend.Calls()
	last := calls[len(calls)-1]
	var sent map[string]any
	require.NoError(t, json.Unmarshal(last.Body, &sent))
	assert.Equal(t, map[string]any{
		"email": operator, "image_name": "a.jpg", "status": "Approved", "display_order": float64(2), "notes": "hero",
	}, sent)

	img, _ := backend.Image(operator, "a.jpg")
	assert.Equal(t, model.StatusApproved, img.Status)
	assert.Equal(t, model.IntValue(2), img.DisplayOrder)
}

func TestUpdateImage_NullOrder(t *testing.T) {
	c, backend := testClient(t)
	backend.Seed(operator, model.Image{ImageName: "a.jpg", SKUID: "S1"})

	_, err := c.UpdateImage(context.Background(), operator, model.ImageUpdate{ImageName: "a.jpg", Status: model.StatusRejected})
	require.NoError(t, err)

	calls := backend.Calls()
	assert.Contains(t, string(calls[len(calls)-1].Body), `"display_order":null`)
}

func TestUpdateImage_Echo(t *testing.T) {
	c, backend := testClient(t)
	backend.EchoRecords = true
	backend.Seed(operator, model.Image{ImageName: "a.jpg", SKUID: "S1", Status: model.StatusApproved, DisplayOrder: model.IntValue(4)})

	echo, err := c.UpdateImage(context.Background(), operator, model.ImageUpdate{
		ImageName: "a.jpg", Status: model.StatusPending, DisplayOrder: model.IntValue(4),
	})
	require.NoError(t, err)
	require.NotNil(t, echo)
	assert.Equal(t, model.StatusPending, echo.Status)
	assert.False(t, echo.DisplayOrder.Valid)
}

func TestUpdateImage_MissingRecord(t *testing.T) {
	c, backend := testClient(t)
	backend.Seed(operator)

	_, err := c.UpdateImage(context.Background(), operator, model.ImageUpdate{ImageName: "nope.jpg", Status: model.StatusApproved})
	assert.True(t, api.IsNotFound(err))
	assert.Equal(t, "Image record not found", api.UserMessage(err))
}

func TestResetSKU(t *testing.T) {
	c, backend := testClient(t)
	backend.Seed(operator,
		model.Image{ImageName: "a.jpg", SKUID: "S1", Status: model.StatusApproved, DisplayOrder: model.IntValue(1)},
		model.Image{ImageName: "b.jpg", SKUID: "S2", Status: model.StatusRejected},
	)

	require.NoError(t, c.ResetSKU(context.Background(), operator, "S1"))

	a, _ := backend.Image(operator, "a.jpg")
	assert.Equal(t, model.StatusPending, a.Status)
	assert.False(t, a.DisplayOrder.Valid)
	b, _ := backend.Image(operator, "b.jpg")
	assert.Equal(t, model.StatusRejected, b.Status)
}

func TestResetSKU_RequiresSKU(t *testing.T) {
	c, backend := testClient(t)

	err := c.ResetSKU(context.Background(), operator, "")
	assert.Equal(t, api.KindValidation, api.KindOf(err))
	assert.Zero(t, backend.CallCount("POST /validate/reset"))
}

// ---------- export ----------

func TestExportURL(t *testing.T) {
	c := api.NewClient("http://api.test/", "http://assets.test")

	u, err := c.ExportURL(api.ExportSKUArchive, operator, "S 1")
	require.NoError(t, err)
	assert.Equal(t, "http://api.test/export/zip/S%201?email=op%40example.com", u)

	_, err = c.ExportURL(api.ExportSKUArchive, operator, "")
	assert.Equal(t, api.KindValidation, api.KindOf(err))

	u, err = c.ExportURL(api.ExportApprovedReport, operator, "")
	require.NoError(t, err)
	assert.Equal(t, "http://api.test/export/approved-excel?email=op%40example.com", u)
}

func TestExport_UsesServerFilename(t *testing.T) {
	c, backend := testClient(t)
	backend.Seed(operator, model.Image{ImageName: "a.jpg", SKUID: "S1", Status: model.StatusApproved})

	dl, err := c.Export(context.Background(), api.ExportReport, operator, "")
	require.NoError(t, err)
	defer dl.Body.Close()

	assert.Equal(t, "Image_Validation_Report.xlsx", dl.Filename)
	data, err := io.ReadAll(dl.Body)
	require.NoError(t, err)
	assert.Contains(t, string(data), "a.jpg")
}

func TestExport_SKUArchive(t *testing.T) {
	c, backend := testClient(t)
	backend.Seed(operator, model.Image{ImageName: "a.jpg", SKUID: "S1", Status: model.StatusApproved})
	backend.SetAsset("/sessions/op_example_com/images/a.jpg", []byte("jpeg"))

	dl, err := c.Export(context.Background(), api.ExportSKUArchive, operator, "S1")
	require.NoError(t, err)
	defer dl.Body.Close()
	assert.Equal(t, "S1_approved.zip", dl.Filename)
	assert.Equal(t, "application/zip", dl.ContentType)
}

func TestExport_NothingApproved(t *testing.T) {
	c, backend := testClient(t)
	backend.Seed(operator, model.Image{ImageName: "a.jpg", SKUID: "S1"})

	_, err := c.Export(context.Background(), api.ExportApprovedArchive, operator, "")
	assert.True(t, api.IsNotFound(err))
	assert.Equal(t, "No approved images found across all SKUs", api.UserMessage(err))
}

func TestImageURL(t *testing.T) {
	c := api.NewClient("http://api.test", "http://assets.test/")

	assert.Equal(t, "http://assets.test/sessions/x/images/a.jpg", c.ImageURL("/sessions/x/images/a.jpg"))
	assert.Equal(t, "http://assets.test/a.jpg", c.ImageURL("a.jpg"))
	assert.Equal(t, "https://cdn.test/a.jpg", c.ImageURL("https://cdn.test/a.jpg"))
	assert.Empty(t, c.ImageURL(""))
}

func TestFetchAsset(t *testing.T) {
	c, backend := testClient(t)
	backend.SetAsset("/sessions/op/images/a.jpg", []byte("bytes"))

	rc, err := c.FetchAsset(context.Background(), "/sessions/op/images/a.jpg")
	require.NoError(t, err)
	defer rc.Close()
	data, _ := io.ReadAll(rc)
	assert.Equal(t, "bytes", string(data))

	_, err = c.FetchAsset(context.Background(), "/sessions/op/images/missing.jpg")
	assert.True(t, api.IsNotFound(err))
}

func TestRequestIDReachesBackend(t *testing.T) {
	c, backend := testClient(t)

	_, err := c.Login(context.Background(), operator)
	require.NoError(t, err)

	calls := backend.Calls()
	require.Len(t, calls, 1)
	assert.Len(t, calls[0].ID, 36)
}

func TestWithTimeout_LeavesCallerClientAlone(t *testing.T) {
	slow := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
		w.WriteHeader(http.StatusOK)
	}))
	t.Cleanup(slow.Close)

	shared := &http.Client{Timeout: time.Minute}
	c := api.NewClient(slow.URL, "",
		api.WithHTTPClient(shared),
		api.WithTimeout(20*time.Millisecond),
		api.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))

	assert.Equal(t, time.Minute, shared.Timeout)
	assert.Nil(t, shared.Transport)

	_, err := c.ListSKUs(context.Background(), operator)
	assert.Equal(t, api.KindNetwork, api.KindOf(err))
}
