package handlers

import (
	"context"
	"net/http"
	"path/filepath"

	"github.com/statelessnet/faucet/foundation/web"
)

// staticRoutes binds the index page and the static assets for the faucet's
// request form.
func staticRoutes(app *web.App, assetsFolder string) {
	index := func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		http.ServeFile(w, r, filepath.Join(assetsFolder, "views", "index.html"))
		return nil
	}
	app.Handle(http.MethodGet, "", "/", index)

	fs := http.FileServer(http.Dir(assetsFolder))
	fs = http.StripPrefix("/assets/", fs)
	assets := func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		fs.ServeHTTP(w, r)
		return nil
	}
	app.Handle(http.MethodGet, "", "/assets/*", assets)
}
