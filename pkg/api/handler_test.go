package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/hazyhaar/orthoconv/pkg/bundle"
	"github.com/hazyhaar/orthoconv/pkg/ortho"
)

func setupRegistry(t *testing.T) *bundle.Registry {
	t.Helper()
	dir := filepath.Join(t.TempDir(), "caucasian")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	files := map[string]string{
		"manifest.yaml":   "id: caucasian\nversion: \"1\"\nsource: test\nlicense: CC0\n",
		"ortho_table.csv": "meta,kbd_cyr,kbd_ipa,kbd_cauc\nʕ,гъ,ɦ,ğ\nʔ,ӏ,ʔ,'\n",
		"ortho_kbd.txt":   "гъ\tʕ\nӏ\tʔ\n",
	}
	for name, content := range files {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	reg := bundle.NewRegistry(filepath.Dir(dir), nil, ortho.WithDefaultSource("cyr"), ortho.WithDefaultTarget("ipa"))
	if err := reg.Load(); err != nil {
		t.Fatalf("Load: %v", err)
	}
	return reg
}

func setupServer(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(NewRouter(setupRegistry(t), nil))
	t.Cleanup(srv.Close)
	return srv
}

func decodeBody(t *testing.T, resp *http.Response, v any) {
	t.Helper()
	defer resp.Body.Close()
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		t.Fatalf("decode body: %v", err)
	}
}

func TestConvert_POST(t *testing.T) {
	srv := setupServer(t)

	tests := []struct {
		name, body string
		status     int
		text       string
	}{
		{"default target", `{"language":"kbd","text":"гъ1 letter"}`, 200, "ɦʔ letter"},
		{"explicit target", `{"language":"kbd","text":"гъ1","target":"cauc"}`, 200, "ğ'"},
		{"alias source", `{"language":"kbd","text":"гъ","source":"кир"}`, 200, "ɦ"},
		{"empty text", `{"language":"kbd","text":""}`, 200, ""},
		{"unknown language", `{"language":"xx","text":"a"}`, 404, ""},
		{"bad target", `{"language":"kbd","text":"a","target":"latin"}`, 400, ""},
		{"missing language", `{"text":"a"}`, 400, ""},
		{"bad json", `{`, 400, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := http.Post(srv.URL+"/v1/convert", "application/json", strings.NewReader(tt.body))
			if err != nil {
				t.Fatal(err)
			}
			if resp.StatusCode != tt.status {
				b, _ := io.ReadAll(resp.Body)
				resp.Body.Close()
				t.Fatalf("status = %d, want %d (%s)", resp.StatusCode, tt.status, b)
			}
			if tt.status != 200 {
				resp.Body.Close()
				return
			}
			var got convertResponse
			decodeBody(t, resp, &got)
			if got.Text == nil || *got.Text != tt.text {
				t.Errorf("text = %v, want %q", got.Text, tt.text)
			}
			if got.Language != "kbd" {
				t.Errorf("language = %q", got.Language)
			}
		})
	}
}

func TestConvert_NullText(t *testing.T) {
	srv := setupServer(t)
	resp, err := http.Post(srv.URL+"/v1/convert", "application/json",
		strings.NewReader(`{"language":"kbd","text":null,"target":"nonsense"}`))
	if err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != 200 {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	var got map[string]any
	decodeBody(t, resp, &got)
	if v, ok := got["text"]; !ok || v != nil {
		t.Errorf("text = %v, want null", v)
	}
}

func TestConvert_GET(t *testing.T) {
	srv := setupServer(t)
	resp, err := http.Get(srv.URL + "/v1/convert/kbd?text=%D0%B3%D1%8A&target=cauc")
	if err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != 200 {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if resp.Header.Get("X-Request-ID") == "" {
		t.Error("missing X-Request-ID")
	}
	var got convertResponse
	decodeBody(t, resp, &got)
	if got.Text == nil || *got.Text != "ğ" || got.Target != "cauc" || got.Source != "cyr" {
		t.Errorf("got %+v", got)
	}
}

func TestConvert_RequestIDEcho(t *testing.T) {
	srv := setupServer(t)
	req, _ := http.NewRequest("GET", srv.URL+"/v1/convert/kbd?text=x", nil)
	req.Header.Set("X-Request-ID", "abc-123")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if got := resp.Header.Get("X-Request-ID"); got != "abc-123" {
		t.Errorf("X-Request-ID = %q, want abc-123", got)
	}
}

func TestConvertBatch(t *testing.T) {
	srv := setupServer(t)
	resp, err := http.Post(srv.URL+"/v1/convert/batch", "application/json",
		strings.NewReader(`{"language":"kbd","texts":["гъ","ӏ",""],"target":"cauc"}`))
	if err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != 200 {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	var got batchResponse
	decodeBody(t, resp, &got)
	want := []string{"ğ", "'", ""}
	if len(got.Results) != len(want) {
		t.Fatalf("got %d results, want %d", len(got.Results), len(want))
	}
	for i, w := range want {
		if *got.Results[i].Text != w {
			t.Errorf("results[%d] = %q, want %q", i, *got.Results[i].Text, w)
		}
	}
}

func TestConvertBatch_Limits(t *testing.T) {
	srv := setupServer(t)
	texts := make([]string, MaxBatch+1)
	big, _ := json.Marshal(httpBatchRequest{Language: "kbd", Texts: texts})

	tests := []struct {
		name, body string
	}{
		{"empty", `{"language":"kbd","texts":[]}`},
		{"too many", string(big)},
	}
	for _, tt := range tests {
		resp, err := http.Post(srv.URL+"/v1/convert/batch", "application/json", strings.NewReader(tt.body))
		if err != nil {
			t.Fatal(err)
		}
		resp.Body.Close()
		if resp.StatusCode != 400 {
			t.Errorf("%s: status = %d, want 400", tt.name, resp.StatusCode)
		}
	}
}

func TestConvertBatch_GETRejected(t *testing.T) {
	srv := setupServer(t)
	resp, err := http.Get(srv.URL + "/v1/convert/batch")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusMethodNotAllowed {
		t.Errorf("status = %d, want 405", resp.StatusCode)
	}
}

func TestListLanguages(t *testing.T) {
	srv := setupServer(t)
	resp, err := http.Get(srv.URL + "/v1/languages")
	if err != nil {
		t.Fatal(err)
	}
	var got languagesResponse
	decodeBody(t, resp, &got)
	if len(got.Languages) != 1 {
		t.Fatalf("got %d languages, want 1", len(got.Languages))
	}
	l := got.Languages[0]
	if l.Language != "kbd" || l.Bundle != "caucasian" || l.Rules != 2 || l.MetaLetters != 2 {
		t.Errorf("language = %+v", l)
	}
	if len(l.Targets) != 3 {
		t.Errorf("targets = %v, want cyr ipa cauc", l.Targets)
	}
}

func TestOrthographies(t *testing.T) {
	srv := setupServer(t)
	resp, err := http.Get(srv.URL + "/v1/orthographies")
	if err != nil {
		t.Fatal(err)
	}
	var got orthographiesResponse
	decodeBody(t, resp, &got)
	if len(got.Orthographies) != 3 || got.Orthographies[0].ID != ortho.Cyrillic {
		t.Errorf("orthographies = %+v", got.Orthographies)
	}
}

func TestHealth(t *testing.T) {
	srv := setupServer(t)
	resp, err := http.Get(srv.URL + "/v1/health")
	if err != nil {
		t.Fatal(err)
	}
	var got healthResponse
	decodeBody(t, resp, &got)
	if got.Status != "ok" || got.Bundles != 1 || got.Languages != 1 {
		t.Errorf("health = %+v", got)
	}
}

type staticUpstream struct {
	ids []string
	err error
}

func (u staticUpstream) ChangedBundles() ([]string, error) { return u.ids, u.err }

func TestHealth_UpstreamChanged(t *testing.T) {
	tests := []struct {
		name     string
		upstream staticUpstream
		want     []string
	}{
		{"changed", staticUpstream{ids: []string{"caucasian"}}, []string{"caucasian"}},
		{"up to date", staticUpstream{}, nil},
		{"db error", staticUpstream{err: errors.New("database is locked")}, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(NewRouter(setupRegistry(t), nil, WithUpstream(tt.upstream)))
			defer srv.Close()

			resp, err := http.Get(srv.URL + "/v1/health")
			if err != nil {
				t.Fatal(err)
			}
			if resp.StatusCode != http.StatusOK {
				t.Errorf("status = %d, want 200", resp.StatusCode)
			}
			var got healthResponse
			decodeBody(t, resp, &got)
			if !reflect.DeepEqual(got.UpstreamChanged, tt.want) {
				t.Errorf("upstream_changed = %v, want %v", got.UpstreamChanged, tt.want)
			}
		})
	}
}

func TestCORSPreflight(t *testing.T) {
	srv := setupServer(t)
	req, _ := http.NewRequest(http.MethodOptions, srv.URL+"/v1/convert", nil)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNoContent {
		t.Errorf("status = %d, want 204", resp.StatusCode)
	}
	if resp.Header.Get("Access-Control-Allow-Origin") != "*" {
		t.Error("missing CORS header")
	}
}
