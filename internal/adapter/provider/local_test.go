package provider_test

import (
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/dmikhr/catalog-imagery/internal/adapter/provider"
	"github.com/dmikhr/catalog-imagery/internal/core/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalProvider(t *testing.T) {
	t.Run("URLSource", func(t *testing.T) {
		var gotURL string
		srv := httptest.NewServer(http.HandlerFunc(
			func(w http.ResponseWriter, r *http.Request) {
				require.Equal(t, "/api/remove-bg-from-url", r.URL.Path)

				var req struct {
					ImageURL string `json:"image_url"`
					BGColor  [4]int `json:"bgcolor"`
				}
				require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
				gotURL = req.ImageURL
				assert.Equal(t, [4]int{255, 255, 255, 255}, req.BGColor)

				w.Header().Set("Content-Type", "image/jpeg")
				w.Write([]byte("jpegdata"))
			},
		))
		defer srv.Close()

		p := provider.NewLocalProvider(provider.LocalConfig{BaseURL: srv.URL})
		src := "https://cdn.example.com/products/SKU1_1.jpg"

		outcome, err := p.Remove(t.Context(), urlImage(src))
		require.NoError(t, err)
		assert.Equal(t, src, gotURL)
		assert.Equal(t, "local", outcome.Provider)
		assert.Equal(t, []byte("jpegdata"), outcome.ProcessedBytes)
		assert.True(t, outcome.Opaque)
	})

	t.Run("InlineSource", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(
			func(w http.ResponseWriter, r *http.Request) {
				require.Equal(t, "/api/remove-bg-base64", r.URL.Path)

				var req struct {
					ImageBase64 string `json:"image_base64"`
					BGColor     [4]int `json:"bgcolor"`
				}
				require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
				raw, err := base64.StdEncoding.DecodeString(req.ImageBase64)
				require.NoError(t, err)
				assert.Equal(t, []byte("rawimage"), raw)

				w.Header().Set("Content-Type", "image/png")
				w.Write([]byte("pngdata"))
			},
		))
		defer srv.Close()

		p := provider.NewLocalProvider(provider.LocalConfig{BaseURL: srv.URL})

		outcome, err := p.Remove(t.Context(),
			domain.CanonicalImage{Inline: []byte("rawimage")})
		require.NoError(t, err)
		assert.Equal(t, []byte("pngdata"), outcome.ProcessedBytes)
		assert.False(t, outcome.Opaque)
	})

	t.Run("ServerError", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(
			func(w http.ResponseWriter, r *http.Request) {
				http.Error(w, "model unavailable", http.StatusInternalServerError)
			},
		))
		defer srv.Close()

		p := provider.NewLocalProvider(provider.LocalConfig{BaseURL: srv.URL})
		_, err := p.Remove(t.Context(), urlImage("https://cdn.example.com/a.jpg"))
		require.Error(t, err)
		assert.ErrorIs(t, err, domain.ErrProviderFailure)
	})

	t.Run("AcceptsInline", func(t *testing.T) {
		p := provider.NewLocalProvider(provider.LocalConfig{
			BaseURL: "http://localhost:8000",
		})
		assert.True(t, p.Accepts(domain.CanonicalImage{Inline: []byte("raw")}))
		assert.True(t, p.Accepts(urlImage("https://cdn.example.com/a.jpg")))

		unconfigured := provider.NewLocalProvider(provider.LocalConfig{})
		assert.False(t, unconfigured.Accepts(urlImage("https://cdn.example.com/a.jpg")))
	})
}

func TestHostedProvider(t *testing.T) {
	t.Run("InlineResult", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(
			func(w http.ResponseWriter, r *http.Request) {
				require.Equal(t, "/v1/remove", r.URL.Path)

				var req struct {
					ImageURL string `json:"image_url"`
				}
				require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
				assert.NotEmpty(t, req.ImageURL)

				json.NewEncoder(w).Encode(map[string]string{
					"result_base64": base64.StdEncoding.EncodeToString(
						[]byte("pngdata"),
					),
				})
			},
		))
		defer srv.Close()

		p := provider.NewHostedProvider(provider.HostedConfig{BaseURL: srv.URL})
		outcome, err := p.Remove(t.Context(), urlImage("https://cdn.example.com/a.jpg"))
		require.NoError(t, err)
		assert.Equal(t, "hosted", outcome.Provider)
		assert.Equal(t, []byte("pngdata"), outcome.ProcessedBytes)
		assert.False(t, outcome.Opaque)
	})

	t.Run("RejectsInlineSource", func(t *testing.T) {
		p := provider.NewHostedProvider(provider.HostedConfig{
			BaseURL: "https://hosted.example.com",
		})
		assert.False(t, p.Accepts(domain.CanonicalImage{Inline: []byte("raw")}))
	})

	t.Run("BadPayload", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(
			func(w http.ResponseWriter, r *http.Request) {
				json.NewEncoder(w).Encode(map[string]string{
					"result_base64": "%%%",
				})
			},
		))
		defer srv.Close()

		p := provider.NewHostedProvider(provider.HostedConfig{BaseURL: srv.URL})
		_, err := p.Remove(t.Context(), urlImage("https://cdn.example.com/a.jpg"))
		require.Error(t, err)
		assert.ErrorIs(t, err, domain.ErrProviderFailure)
	})
}
