package api

import (
	"bytes"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/sashashura/netbox"
	"github.com/sashashura/netbox/db"
	"github.com/sashashura/netbox/domain"
)

func newTestServer(t *testing.T, options ...func(*netbox.App) error) (*httptest.Server, *netbox.App) {
	t.Helper()

	conn, err := db.New(filepath.Join(t.TempDir(), "api-test.db"))
	if err != nil {
		t.Fatalf("opening database: %v", err)
	}
	options = append([]func(*netbox.App) error{netbox.WithRepo(db.NewRepository(conn))}, options...)
	app, err := netbox.New(options...)
	if err != nil {
		t.Fatalf("building app: %v", err)
	}
	app.Start()

	ts := httptest.NewServer(NewServer(app).Handler())
	t.Cleanup(func() {
		ts.Close()
		app.Close()
	})
	return ts, app
}

// doJSON issues a request with a JSON body and decodes the JSON response
// into out when it is non-nil.
func doJSON(t *testing.T, method, url string, body, out any) *http.Response {
	t.Helper()

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("encoding request: %v", err)
		}
		reader = bytes.NewReader(raw)
	}
	req, err := http.NewRequest(method, url, reader)
	if err != nil {
		t.Fatalf("building request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("sending request: %v", err)
	}
	defer resp.Body.Close()

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil && err != io.EOF {
			t.Fatalf("decoding response: %v", err)
		}
	}
	return resp
}

func TestSiteEndpoints(t *testing.T) {
	t.Run("should create, update, and delete a site", func(t *testing.T) {
		ts, _ := newTestServer(t)

		var created domain.Site
		resp := doJSON(t, http.MethodPost, ts.URL+"/api/dcim/sites",
			map[string]any{"name": "Ashburn", "slug": "ashburn", "status": "active"}, &created)
		if resp.StatusCode != http.StatusCreated {
			t.Fatalf("\nwanted:\n201\ngot:\n%d", resp.StatusCode)
		}
		if created.ID == uuid.Nil || created.Slug != "ashburn" {
			t.Fatalf("\nwanted:\na stored site\ngot:\n%+v", created)
		}

		var updated domain.Site
		resp = doJSON(t, http.MethodPut, ts.URL+"/api/dcim/sites/"+created.ID.String(),
			map[string]any{"name": "Ashburn", "slug": "ashburn", "status": "retired"}, &updated)
		if resp.StatusCode != http.StatusOK || updated.Status != domain.SiteStatusRetired {
			t.Fatalf("\nwanted:\nretired\ngot:\n%d %+v", resp.StatusCode, updated)
		}

		resp = doJSON(t, http.MethodDelete, ts.URL+"/api/dcim/sites/"+created.ID.String(), nil, nil)
		if resp.StatusCode != http.StatusNoContent {
			t.Fatalf("\nwanted:\n204\ngot:\n%d", resp.StatusCode)
		}
		resp = doJSON(t, http.MethodGet, ts.URL+"/api/dcim/sites/"+created.ID.String(), nil, nil)
		if resp.StatusCode != http.StatusNotFound {
			t.Fatalf("\nwanted:\n404\ngot:\n%d", resp.StatusCode)
		}
	})

	t.Run("should reject an invalid slug with 422", func(t *testing.T) {
		ts, _ := newTestServer(t)

		resp := doJSON(t, http.MethodPost, ts.URL+"/api/dcim/sites",
			map[string]any{"name": "Bad", "slug": "Not A Slug", "status": "active"}, nil)
		if resp.StatusCode != http.StatusUnprocessableEntity {
			t.Fatalf("\nwanted:\n422\ngot:\n%d", resp.StatusCode)
		}
	})

	t.Run("should report a duplicate slug as a conflict", func(t *testing.T) {
		ts, _ := newTestServer(t)

		body := map[string]any{"name": "Ashburn", "slug": "ashburn", "status": "active"}
		doJSON(t, http.MethodPost, ts.URL+"/api/dcim/sites", body, nil)

		body["name"] = "Ashburn Two"
		resp := doJSON(t, http.MethodPost, ts.URL+"/api/dcim/sites", body, nil)
		if resp.StatusCode != http.StatusConflict {
			t.Fatalf("\nwanted:\n409\ngot:\n%d", resp.StatusCode)
		}
	})

	t.Run("should record the create in the changelog", func(t *testing.T) {
		ts, _ := newTestServer(t)

		doJSON(t, http.MethodPost, ts.URL+"/api/dcim/sites",
			map[string]any{"name": "Ashburn", "slug": "ashburn", "status": "active"}, nil)

		var envelope struct {
			Count   int                    `json:"count"`
			Results []*domain.ObjectChange `json:"results"`
		}
		doJSON(t, http.MethodGet, ts.URL+"/api/extras/changelog?object_kind=dcim.site", nil, &envelope)
		if envelope.Count != 1 || envelope.Results[0].Action != domain.ActionCreate {
			t.Fatalf("\nwanted:\none create entry\ngot:\n%+v", envelope)
		}
	})
}

func TestAuthentication(t *testing.T) {
	t.Run("should refuse requests without the bearer token", func(t *testing.T) {
		ts, _ := newTestServer(t, func(app *netbox.App) error {
			app.Config = &netbox.Config{AuthToken: "s3cret"}
			return nil
		})

		resp := doJSON(t, http.MethodGet, ts.URL+"/api/dcim/sites", nil, nil)
		if resp.StatusCode != http.StatusUnauthorized {
			t.Fatalf("\nwanted:\n401\ngot:\n%d", resp.StatusCode)
		}

		req, _ := http.NewRequest(http.MethodGet, ts.URL+"/api/dcim/sites", nil)
		req.Header.Set("Authorization", "Bearer s3cret")
		authed, err := http.DefaultClient.Do(req)
		if err != nil {
			t.Fatalf("sending request: %v", err)
		}
		defer authed.Body.Close()
		if authed.StatusCode != http.StatusOK {
			t.Fatalf("\nwanted:\n200\ngot:\n%d", authed.StatusCode)
		}
	})

	t.Run("should leave healthz open", func(t *testing.T) {
		ts, _ := newTestServer(t, func(app *netbox.App) error {
			app.Config = &netbox.Config{AuthToken: "s3cret"}
			return nil
		})

		resp := doJSON(t, http.MethodGet, ts.URL+"/healthz", nil, nil)
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("\nwanted:\n200\ngot:\n%d", resp.StatusCode)
		}
	})
}

func TestScriptRejection(t *testing.T) {
	t.Run("should block a write rejected by a validator", func(t *testing.T) {
		ts, _ := newTestServer(t)

		script := map[string]any{
			"name":         "freeze-sites",
			"kind":         "validator",
			"object_kinds": []string{"dcim.site"},
			"enabled":      true,
			"source":       `if action == "create" then netbox:reject("site creation is frozen") end`,
		}
		resp := doJSON(t, http.MethodPost, ts.URL+"/api/extras/scripts", script, nil)
		if resp.StatusCode != http.StatusCreated {
			t.Fatalf("\nwanted:\n201\ngot:\n%d", resp.StatusCode)
		}

		resp = doJSON(t, http.MethodPost, ts.URL+"/api/dcim/sites",
			map[string]any{"name": "Ashburn", "slug": "ashburn", "status": "active"}, nil)
		if resp.StatusCode != http.StatusUnprocessableEntity {
			t.Fatalf("\nwanted:\n422\ngot:\n%d", resp.StatusCode)
		}

		var envelope struct {
			Count int `json:"count"`
		}
		doJSON(t, http.MethodGet, ts.URL+"/api/dcim/sites", nil, &envelope)
		if envelope.Count != 0 {
			t.Fatalf("\nwanted:\nno sites stored\ngot:\n%d", envelope.Count)
		}
	})
}

func TestRackElevationEndpoint(t *testing.T) {
	setupRack := func(t *testing.T, app *netbox.App) *domain.Rack {
		t.Helper()
		now := time.Now().UTC()
		site := &domain.Site{ID: uuid.New(), Name: "Ashburn", Slug: "ashburn",
			Status: domain.SiteStatusActive, Created: now, LastUpdated: now}
		if err := app.Repo.CreateSite(site); err != nil {
			t.Fatalf("creating site: %v", err)
		}
		rack := &domain.Rack{ID: uuid.New(), SiteID: site.ID, Name: "R1",
			Status: domain.RackStatusActive, UHeight: 4, Width: 19, Created: now, LastUpdated: now}
		if err := app.Repo.CreateRack(rack); err != nil {
			t.Fatalf("creating rack: %v", err)
		}
		dt := &domain.DeviceType{ID: uuid.New(), Manufacturer: "Generic", Model: "2U Server",
			Slug: "2u-server", UHeight: 2, Created: now, LastUpdated: now}
		if err := app.Repo.CreateDeviceType(dt); err != nil {
			t.Fatalf("creating device type: %v", err)
		}
		position := 1
		device := &domain.Device{ID: uuid.New(), SiteID: site.ID, RackID: &rack.ID,
			Name: "srv-1", DeviceTypeID: dt.ID, Status: domain.DeviceStatusActive,
			Position: &position, Face: domain.FaceFront, Created: now, LastUpdated: now}
		if err := app.Repo.CreateDevice(device); err != nil {
			t.Fatalf("creating device: %v", err)
		}
		return rack
	}

	t.Run("should render the elevation as json", func(t *testing.T) {
		ts, app := newTestServer(t)
		rack := setupRack(t, app)

		var envelope struct {
			Count   int `json:"count"`
			Results []struct {
				ID    int    `json:"id"`
				State string `json:"state"`
			} `json:"results"`
		}
		resp := doJSON(t, http.MethodGet,
			ts.URL+"/api/dcim/racks/"+rack.ID.String()+"/elevation?face=front", nil, &envelope)
		if resp.StatusCode != http.StatusOK || envelope.Count != 4 {
			t.Fatalf("\nwanted:\n4 units\ngot:\n%d %+v", resp.StatusCode, envelope)
		}

		states := make(map[int]string)
		for _, unit := range envelope.Results {
			states[unit.ID] = unit.State
		}
		if states[1] != "occupied" || states[2] != "blocked" || states[3] != "empty" {
			t.Fatalf("\nwanted:\noccupied/blocked/empty\ngot:\n%v", states)
		}
	})

	t.Run("should render the elevation as svg", func(t *testing.T) {
		ts, app := newTestServer(t)
		rack := setupRack(t, app)

		resp, err := http.Get(ts.URL + "/api/dcim/racks/" + rack.ID.String() + "/elevation?format=svg")
		if err != nil {
			t.Fatalf("sending request: %v", err)
		}
		defer resp.Body.Close()
		if got := resp.Header.Get("Content-Type"); got != "image/svg+xml" {
			t.Fatalf("\nwanted:\nimage/svg+xml\ngot:\n%s", got)
		}
		rendered, _ := io.ReadAll(resp.Body)
		if !strings.Contains(string(rendered), "<svg") {
			t.Fatalf("\nwanted:\nan svg document\ngot:\n%s", rendered)
		}
	})
}

func TestImageAttachments(t *testing.T) {
	// Magic bytes are enough for content sniffing.
	pngHeader := []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n'}

	upload := func(t *testing.T, url string, objectID uuid.UUID, data []byte) *http.Response {
		t.Helper()
		var buf bytes.Buffer
		form := multipart.NewWriter(&buf)
		form.WriteField("object_kind", "dcim.site")
		form.WriteField("object_id", objectID.String())
		part, err := form.CreateFormFile("image", "rack-photo.png")
		if err != nil {
			t.Fatalf("building form: %v", err)
		}
		part.Write(data)
		form.Close()

		resp, err := http.Post(url+"/api/extras/image-attachments", form.FormDataContentType(), &buf)
		if err != nil {
			t.Fatalf("sending upload: %v", err)
		}
		return resp
	}

	t.Run("should store and serve an image", func(t *testing.T) {
		ts, _ := newTestServer(t)

		resp := upload(t, ts.URL, uuid.New(), pngHeader)
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusCreated {
			body, _ := io.ReadAll(resp.Body)
			t.Fatalf("\nwanted:\n201\ngot:\n%d %s", resp.StatusCode, body)
		}
		var att domain.ImageAttachment
		if err := json.NewDecoder(resp.Body).Decode(&att); err != nil {
			t.Fatalf("decoding response: %v", err)
		}
		if att.ContentType != "image/png" {
			t.Fatalf("\nwanted:\nimage/png\ngot:\n%s", att.ContentType)
		}

		raw, err := http.Get(ts.URL + "/api/extras/image-attachments/" + att.ID.String())
		if err != nil {
			t.Fatalf("fetching image: %v", err)
		}
		defer raw.Body.Close()
		data, _ := io.ReadAll(raw.Body)
		if raw.Header.Get("Content-Type") != "image/png" || !bytes.Equal(data, pngHeader) {
			t.Fatalf("\nwanted:\nthe original bytes back\ngot:\n%v", data)
		}
	})

	t.Run("should refuse non-image uploads", func(t *testing.T) {
		ts, _ := newTestServer(t)

		resp := upload(t, ts.URL, uuid.New(), []byte("just some text"))
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusUnprocessableEntity {
			t.Fatalf("\nwanted:\n422\ngot:\n%d", resp.StatusCode)
		}
	})
}

func TestCSVImportEndpoint(t *testing.T) {
	t.Run("should import sites from csv", func(t *testing.T) {
		ts, _ := newTestServer(t)

		csv := "name,slug,status\nAshburn,ashburn,active\nFrankfurt,frankfurt,planned\n"
		resp, err := http.Post(ts.URL+"/api/import/sites", "text/csv", strings.NewReader(csv))
		if err != nil {
			t.Fatalf("sending import: %v", err)
		}
		defer resp.Body.Close()

		var result struct {
			Created int `json:"created"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
			t.Fatalf("decoding response: %v", err)
		}
		if resp.StatusCode != http.StatusOK || result.Created != 2 {
			t.Fatalf("\nwanted:\n2 created\ngot:\n%d %+v", resp.StatusCode, result)
		}
	})

	t.Run("should write nothing when any row is invalid", func(t *testing.T) {
		ts, _ := newTestServer(t)

		csv := "name,slug,status\nAshburn,ashburn,active\nBad,Not A Slug,active\n"
		resp, err := http.Post(ts.URL+"/api/import/sites", "text/csv", strings.NewReader(csv))
		if err != nil {
			t.Fatalf("sending import: %v", err)
		}
		defer resp.Body.Close()

		var result struct {
			Created int `json:"created"`
			Errors  []struct {
				Line int `json:"line"`
			} `json:"errors"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
			t.Fatalf("decoding response: %v", err)
		}
		if result.Created != 0 || len(result.Errors) != 1 || result.Errors[0].Line != 3 {
			t.Fatalf("\nwanted:\nnothing created, line 3 rejected\ngot:\n%+v", result)
		}

		var envelope struct {
			Count int `json:"count"`
		}
		doJSON(t, http.MethodGet, ts.URL+"/api/dcim/sites", nil, &envelope)
		if envelope.Count != 0 {
			t.Fatalf("\nwanted:\nno sites stored\ngot:\n%d", envelope.Count)
		}
	})

	t.Run("should record imported rows in the changelog", func(t *testing.T) {
		ts, _ := newTestServer(t)

		csv := "name,slug,status\nAshburn,ashburn,active\n"
		resp, err := http.Post(ts.URL+"/api/import/sites", "text/csv", strings.NewReader(csv))
		if err != nil {
			t.Fatalf("sending import: %v", err)
		}
		resp.Body.Close()

		var envelope struct {
			Count   int                    `json:"count"`
			Results []*domain.ObjectChange `json:"results"`
		}
		doJSON(t, http.MethodGet, ts.URL+"/api/extras/changelog?object_kind=dcim.site", nil, &envelope)
		if envelope.Count != 1 {
			t.Fatalf("\nwanted:\none changelog entry\ngot:\n%+v", envelope)
		}
		entry := envelope.Results[0]
		if entry.Action != domain.ActionCreate || entry.Actor != "import" {
			t.Fatalf("\nwanted:\na create by import\ngot:\n%+v", entry)
		}
	})

	t.Run("should refuse an unknown kind", func(t *testing.T) {
		ts, _ := newTestServer(t)

		resp, err := http.Post(ts.URL+"/api/import/nonsense", "text/csv", strings.NewReader("a,b\n"))
		if err != nil {
			t.Fatalf("sending import: %v", err)
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusBadRequest {
			t.Fatalf("\nwanted:\n400\ngot:\n%d", resp.StatusCode)
		}
	})
}

func TestStatusEndpoint(t *testing.T) {
	t.Run("should report per-kind object counts", func(t *testing.T) {
		ts, _ := newTestServer(t)

		doJSON(t, http.MethodPost, ts.URL+"/api/dcim/sites",
			map[string]any{"name": "Ashburn", "slug": "ashburn", "status": "active"}, nil)

		var status struct {
			Status  string         `json:"status"`
			Objects map[string]int `json:"objects"`
		}
		resp := doJSON(t, http.MethodGet, ts.URL+"/api/status", nil, &status)
		if resp.StatusCode != http.StatusOK || status.Status != "ok" {
			t.Fatalf("\nwanted:\nok\ngot:\n%d %+v", resp.StatusCode, status)
		}
		if status.Objects["dcim.site"] != 1 {
			t.Fatalf("\nwanted:\n1 site counted\ngot:\n%+v", status.Objects)
		}
	})
}

func TestMetricsEndpoint(t *testing.T) {
	t.Run("should expose request counters", func(t *testing.T) {
		ts, _ := newTestServer(t)

		doJSON(t, http.MethodGet, ts.URL+"/healthz", nil, nil)

		resp, err := http.Get(ts.URL + "/metrics")
		if err != nil {
			t.Fatalf("fetching metrics: %v", err)
		}
		defer resp.Body.Close()
		body, _ := io.ReadAll(resp.Body)
		for _, metric := range []string{"netbox_http_requests_total", "netbox_objects"} {
			if !strings.Contains(string(body), metric) {
				t.Fatalf("\nwanted:\n%s in the scrape\ngot:\n%s", metric, body)
			}
		}
	})
}
