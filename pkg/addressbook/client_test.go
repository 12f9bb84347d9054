package addressbook

import (
	"context"
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/angelmondragon/storefront-backend/pkg/config"
)

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(req *http.Request) (*http.Response, error) {
	return f(req)
}

func newTestClient(t *testing.T, rt roundTripFunc) *Client {
	t.Helper()
	client, err := NewClient(config.AddressBookConfig{BaseURL: "http://dir.test/master-data/", Token: "tok"},
		WithHTTPClient(&http.Client{Transport: rt}))
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	return client
}

func ok(body string) (*http.Response, error) {
	return &http.Response{
		StatusCode: http.StatusOK,
		Body:       io.NopCloser(strings.NewReader(body)),
		Header:     http.Header{},
	}, nil
}

func TestDistrictsRequest(t *testing.T) {
	var capturedURL, capturedToken string
	client := newTestClient(t, func(req *http.Request) (*http.Response, error) {
		capturedURL = req.URL.String()
		capturedToken = req.Header.Get("Token")
		return ok(`{"code":200,"data":[{"DistrictID":1442,"ProvinceID":202,"DistrictName":"Quan 1"}]}`)
	})

	districts, err := client.Districts(context.Background(), 202)
	if err != nil {
		t.Fatalf("districts: %v", err)
	}
	if capturedURL != "http://dir.test/master-data/district?province_id=202" {
		t.Fatalf("unexpected url %q", capturedURL)
	}
	if capturedToken != "tok" {
		t.Fatalf("token header missing")
	}
	if len(districts) != 1 || districts[0].Name != "Quan 1" {
		t.Fatalf("unexpected districts %+v", districts)
	}
}

func TestWardsAndProvinces(t *testing.T) {
	client := newTestClient(t, func(req *http.Request) (*http.Response, error) {
		switch req.URL.Path {
		case "/master-data/ward":
			return ok(`{"code":200,"data":[{"WardCode":"20308","DistrictID":1442,"WardName":"Ben Nghe"}]}`)
		case "/master-data/province":
			return ok(`{"code":200,"data":[{"ProvinceID":202,"ProvinceName":"Ho Chi Minh"}]}`)
		}
		t.Fatalf("unexpected path %s", req.URL.Path)
		return nil, nil
	})

	wards, err := client.Wards(context.Background(), 1442)
	if err != nil || len(wards) != 1 || wards[0].Code != "20308" {
		t.Fatalf("unexpected wards %+v err=%v", wards, err)
	}
	provinces, err := client.Provinces(context.Background())
	if err != nil || len(provinces) != 1 || provinces[0].ID != 202 {
		t.Fatalf("unexpected provinces %+v err=%v", provinces, err)
	}
}

func TestDirectoryErrors(t *testing.T) {
	client := newTestClient(t, func(*http.Request) (*http.Response, error) {
		return &http.Response{StatusCode: http.StatusUnauthorized, Body: io.NopCloser(strings.NewReader("no")), Header: http.Header{}}, nil
	})
	if _, err := client.Provinces(context.Background()); err == nil {
		t.Fatal("expected error on 401")
	}
	if _, err := client.Wards(context.Background(), 0); err == nil {
		t.Fatal("expected validation error")
	}
	if _, err := NewClient(config.AddressBookConfig{BaseURL: "http://x"}); err == nil {
		t.Fatal("expected token error")
	}
}
