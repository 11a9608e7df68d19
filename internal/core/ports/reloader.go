package ports

// Reloader pushes reload notifications to connected browsers.
//
//go:generate mockgen -source=reloader.go -destination=mocks/mock_reloader.go -package=mocks
type Reloader interface {
	// Reload asks every client to reload the page.
	Reload(path string)
	// ReloadCSS asks every client to refresh stylesheets in place.
	ReloadCSS(path string)
	// Active reports whether a development server session is running.
	Active() bool
}
