package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/churchhub/platform-gateway/internal/tenant"
)

// ManifestHandler serves a tenant-branded web app manifest
type ManifestHandler struct {
	defaultName  string
	defaultColor string
}

// NewManifestHandler creates a new manifest handler
func NewManifestHandler(defaultName, defaultColor string) *ManifestHandler {
	return &ManifestHandler{defaultName: defaultName, defaultColor: defaultColor}
}

type manifestIcon struct {
	Src   string `json:"src"`
	Sizes string `json:"sizes"`
	Type  string `json:"type"`
}

type manifest struct {
	Name            string         `json:"name"`
	ShortName       string         `json:"short_name"`
	StartURL        string         `json:"start_url"`
	Display         string         `json:"display"`
	ThemeColor      string         `json:"theme_color"`
	BackgroundColor string         `json:"background_color"`
	Icons           []manifestIcon `json:"icons"`
}

// Get returns the manifest, branded per tenant when one is resolved
func (h *ManifestHandler) Get(w http.ResponseWriter, r *http.Request) {
	m := manifest{
		Name:            h.defaultName,
		ShortName:       h.defaultName,
		StartURL:        "/",
		Display:         "standalone",
		ThemeColor:      h.defaultColor,
		BackgroundColor: "#ffffff",
		Icons: []manifestIcon{
			{Src: "/icon.svg", Sizes: "any", Type: "image/svg+xml"},
		},
	}

	if tc, ok := tenant.FromContext(r.Context()); ok {
		m.Name = tc.Name
		m.ShortName = tc.Name
		if tc.PrimaryColor != "" {
			m.ThemeColor = tc.PrimaryColor
		}
		if tc.LogoURL != "" {
			m.Icons = append([]manifestIcon{{Src: tc.LogoURL, Sizes: "any", Type: "image/png"}}, m.Icons...)
		}
	}

	w.Header().Set("Content-Type", "application/manifest+json")
	_ = json.NewEncoder(w).Encode(m)
}
