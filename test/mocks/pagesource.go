package mocks

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"sync"

	"github.com/Houeta/shopwatch/internal/parser"
)

const fakeBase = "https://shop.test/"

// RegionalPageSource serves pages that depend on the region selected by the last SwitchRegion call.
type RegionalPageSource struct {
	mu sync.Mutex

	// Pages maps region code to path to HTML. The "" region holds pages shared by all regions.
	Pages map[string]map[string]string
	// FailSwitch makes SwitchRegion fail for the listed codes.
	FailSwitch map[string]error
	// IgnoreSwitch keeps the previous region active, simulating a silent switch failure.
	IgnoreSwitch bool

	active   string
	Switches []string
	Fetches  []string
}

// NewRegionalPageSource creates an empty fake.
func NewRegionalPageSource() *RegionalPageSource {
	return &RegionalPageSource{Pages: make(map[string]map[string]string)}
}

// Set registers html for path under region code ("" for every region).
func (s *RegionalPageSource) Set(code, path, html string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.Pages[code] == nil {
		s.Pages[code] = make(map[string]string)
	}
	s.Pages[code][strings.TrimPrefix(path, "/")] = html
}

// SwitchRegion records the switch and makes code the active region.
func (s *RegionalPageSource) SwitchRegion(_ context.Context, code, _ string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.Switches = append(s.Switches, code)
	if err := s.FailSwitch[code]; err != nil {
		return err
	}
	if !s.IgnoreSwitch {
		s.active = code
	}

	return nil
}

// Fetch returns the page registered for the active region, falling back to shared pages.
func (s *RegionalPageSource) Fetch(_ context.Context, rawURL string) (parser.Document, error) {
	s.mu.Lock()
	path := strings.TrimPrefix(strings.TrimPrefix(rawURL, fakeBase), "/")
	s.Fetches = append(s.Fetches, path)
	html, ok := s.Pages[s.active][path]
	if !ok {
		html, ok = s.Pages[""][path]
	}
	s.mu.Unlock()

	if !ok {
		return nil, fmt.Errorf("status code error: [404] GET %s", path)
	}

	return parser.ParseDocument(strings.NewReader(html))
}

// Resolve joins ref onto the fake storefront base.
func (s *RegionalPageSource) Resolve(ref string) (string, error) {
	base, _ := url.Parse(fakeBase)
	parsed, err := url.Parse(ref)
	if err != nil {
		return "", err
	}

	return base.ResolveReference(parsed).String(), nil
}

// Active returns the currently selected region code.
func (s *RegionalPageSource) Active() string {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.active
}
