package http

import (
	"net/http"
	"os"
	"path"
	"path/filepath"

	"github.com/klauspost/compress/gzhttp"
	"github.com/rs/cors"
	"github.com/rs/zerolog"
)

type StaticOptions struct {
	// Dir is the directory to serve.
	Dir string
	// Dev disables caching and logs every request at debug level.
	Dev bool
	// CORS allows any origin to fetch the served files.
	CORS bool
	// Single serves index.html for paths with no matching file.
	Single bool
	// Logger receives request logs in dev mode.
	Logger zerolog.Logger
}

// NewStaticHandler serves the build output directory with gzip compression.
func NewStaticHandler(opts StaticOptions) http.Handler {
	var handler http.Handler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		serveFile(w, r, opts.Dir, opts.Single)
	})

	handler = gzhttp.GzipHandler(handler)

	if opts.CORS {
		handler = cors.New(cors.Options{
			AllowedOrigins: []string{"*"},
			AllowedMethods: []string{http.MethodGet, http.MethodHead},
			AllowedHeaders: []string{"Origin", "Content-Type", "Accept", "Range"},
		}).Handler(handler)
	}

	if opts.Dev {
		handler = NoCache()(handler)
		handler = RequestLogger(opts.Logger, zerolog.DebugLevel)(handler)
	}

	return handler
}

func serveFile(w http.ResponseWriter, r *http.Request, dir string, single bool) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		w.Header().Set("Allow", "GET, HEAD")
		http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
		return
	}

	name := filepath.Join(dir, filepath.FromSlash(path.Clean("/"+r.URL.Path)))

	if info, err := os.Stat(name); err == nil {
		if !info.IsDir() {
			http.ServeFile(w, r, name)
			return
		}
		index := filepath.Join(name, "index.html")
		if _, err := os.Stat(index); err == nil {
			http.ServeFile(w, r, index)
			return
		}
	}

	// unknown routes belong to the client side router, missing assets do not
	if ext := path.Ext(r.URL.Path); single && (ext == "" || ext == ".html") {
		index := filepath.Join(dir, "index.html")
		if _, err := os.Stat(index); err == nil {
			http.ServeFile(w, r, index)
			return
		}
	}

	http.NotFound(w, r)
}
