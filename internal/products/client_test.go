package products

import (
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openfacts/insights-tracker/internal/common"
)

func TestSplitBarcode(t *testing.T) {
	tests := []struct {
		name    string
		barcode string
		want    []string
		wantErr bool
	}{
		{name: "ean13", barcode: "3232278600004", want: []string{"323", "227", "860", "0004"}},
		{name: "ean8", barcode: "20065034", want: []string{"20065034"}},
		{name: "too short", barcode: "12345", wantErr: true},
		{name: "empty", barcode: "", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := SplitBarcode(tt.barcode)
			if tt.wantErr {
				require.Error(t, err)
				assert.ErrorIs(t, err, common.ErrInvalidInput)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestImageSource(t *testing.T) {
	source, err := ImageSource("3232278600004", "3")
	require.NoError(t, err)
	assert.Equal(t, "/323/227/860/0004/3.jpg", source)

	source, err = ImageSource("20065034", "1")
	require.NoError(t, err)
	assert.Equal(t, "/20065034/1.jpg", source)

	_, err = ImageSource("bogus", "1")
	assert.Error(t, err)
}

func newTestClient(serverURL string) *Client {
	cfg := common.ProductsConfig{
		BaseURL:       serverURL,
		StaticBaseURL: serverURL,
		Username:      "bot",
		Password:      "secret",
	}
	return NewClient(http.DefaultClient, cfg, slog.Default())
}

func TestImageOCRURL(t *testing.T) {
	client := newTestClient("https://static.example.org")
	u, err := client.ImageOCRURL("3232278600004", "3")
	require.NoError(t, err)
	assert.Equal(t, "https://static.example.org/images/products/323/227/860/0004/3.json", u)
}

func TestImageNames(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v0/product/3232278600004.json", r.URL.Path)
		assert.Equal(t, "images", r.URL.Query().Get("fields"))
		_, _ = w.Write([]byte(`{"product": {"images": {
			"3": {}, "1": {}, "12": {},
			"front_fr": {}, "nutrition_fr.200": {}
		}}}`))
	}))
	defer server.Close()

	names, err := newTestClient(server.URL).ImageNames(context.Background(), "3232278600004")
	require.NoError(t, err)
	assert.Equal(t, []string{"1", "12", "3"}, names)
}

func TestImageOCR(t *testing.T) {
	const ocrBody = `{"responses": []}`
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/images/products/323/227/860/0004/3.json":
			_, _ = w.Write([]byte(ocrBody))
		default:
			http.NotFound(w, r)
		}
	}))
	defer server.Close()

	client := newTestClient(server.URL)

	body, err := client.ImageOCR(context.Background(), "3232278600004", "3")
	require.NoError(t, err)
	assert.Equal(t, ocrBody, string(body))

	// A missing OCR document is not an error.
	body, err = client.ImageOCR(context.Background(), "3232278600004", "99")
	require.NoError(t, err)
	assert.Nil(t, body)
}

func TestUpdateField(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/cgi/product_jqm2.pl", r.URL.Path)
		q := r.URL.Query()
		assert.Equal(t, "3232278600004", q.Get("code"))
		assert.Equal(t, "EMB 50354", q.Get("add_emb_codes"))
		assert.Equal(t, "bot", q.Get("user_id"))
		assert.Equal(t, "secret", q.Get("password"))
		_, _ = w.Write([]byte(`{"status_verbose": "fields saved"}`))
	}))
	defer server.Close()

	status, err := newTestClient(server.URL).UpdateField(context.Background(), "3232278600004", "add_emb_codes", "EMB 50354")
	require.NoError(t, err)
	assert.True(t, UpdateSucceeded(status))
	assert.False(t, UpdateSucceeded("not modified"))
}

func TestUpdateFieldServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	_, err := newTestClient(server.URL).UpdateField(context.Background(), "3232278600004", "add_emb_codes", "EMB 50354")
	assert.Error(t, err)
}

func TestRedactURL(t *testing.T) {
	redacted := redactURL("https://example.org/cgi/product_jqm2.pl?code=1&password=hunter2&user_id=bot")
	assert.NotContains(t, redacted, "hunter2")
	assert.Contains(t, redacted, "password=%5Bredacted%5D")

	// URLs without credentials pass through untouched.
	plain := "https://example.org/api/v0/product/1.json?fields=images"
	assert.Equal(t, plain, redactURL(plain))
}
