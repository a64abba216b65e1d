// Package livereload watches a directory tree and tells connected browsers to
// reload over Server-Sent Events.
package livereload

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"path/filepath"
	"slices"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/rs/cors"
	"github.com/rs/zerolog/log"
)

const (
	DefaultAddr     = "0.0.0.0:35729"
	DefaultDebounce = 100 * time.Millisecond

	clientBuffer = 8
)

// Event is sent to browsers for each changed file.
type Event struct {
	Path string `json:"path"`
	CSS  bool   `json:"css"`
}

type Option func(*Server)

// WithAddr sets the listen address. An empty address disables the HTTP listener.
func WithAddr(addr string) Option {
	return func(s *Server) {
		s.addr = addr
	}
}

func WithDebounce(d time.Duration) Option {
	return func(s *Server) {
		s.debounce = d
	}
}

// Server pairs a directory watcher with an SSE endpoint.
type Server struct {
	dir      string
	addr     string
	debounce time.Duration

	mu      sync.Mutex
	clients map[chan Event]struct{}
	httpSrv *http.Server
	cancel  context.CancelFunc
	done    chan struct{}
}

func New(dir string, opts ...Option) *Server {
	s := &Server{
		dir:      dir,
		addr:     DefaultAddr,
		debounce: DefaultDebounce,
		clients:  make(map[chan Event]struct{}),
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Start begins watching the directory and, when an address is configured,
// serving the SSE endpoint. It returns once both are ready.
func (s *Server) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.done != nil {
		return errors.New("livereload: already started")
	}

	ctx, cancel := context.WithCancel(ctx)

	w, err := newWatcher(s.dir)
	if err != nil {
		cancel()
		return err
	}

	if s.addr != "" {
		ln, err := listen(ctx, s.addr)
		if err != nil {
			cancel()
			_ = w.Close()
			return fmt.Errorf("failed to listen on %s: %w", s.addr, err)
		}

		s.httpSrv = &http.Server{
			Handler:           s.Handler(),
			ReadHeaderTimeout: time.Second,
		}

		go func() {
			if err := s.httpSrv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Error().Err(err).Msg("Live reload server failed")
			}
		}()

		log.Info().Str("addr", ln.Addr().String()).Str("dir", s.dir).Msg("Live reload enabled")
	}

	s.cancel = cancel
	s.done = make(chan struct{})

	go func() {
		defer close(s.done)
		w.run(ctx, s.debounce, s.Broadcast)
	}()

	return nil
}

// Close stops the watcher and the HTTP listener.
func (s *Server) Close() error {
	s.mu.Lock()
	cancel, done, srv := s.cancel, s.done, s.httpSrv
	s.mu.Unlock()

	if cancel == nil {
		return nil
	}

	cancel()
	<-done

	if srv != nil {
		return srv.Close()
	}

	return nil
}

// Subscribe registers a listener. The returned func removes it.
func (s *Server) Subscribe() (<-chan Event, func()) {
	ch := make(chan Event, clientBuffer)

	s.mu.Lock()
	s.clients[ch] = struct{}{}
	s.mu.Unlock()

	return ch, func() {
		s.mu.Lock()
		delete(s.clients, ch)
		s.mu.Unlock()
	}
}

// Broadcast sends one event for a batch of changed paths to every subscriber.
// Any changed file other than a stylesheet or source map asks for a full page
// reload, otherwise stylesheets are swapped in place. Slow subscribers miss the
// event rather than block the watcher.
func (s *Server) Broadcast(paths ...string) {
	if len(paths) == 0 {
		return
	}

	evt := s.event(paths)

	s.mu.Lock()
	defer s.mu.Unlock()

	log.Debug().Str("path", evt.Path).Bool("css", evt.CSS).Int("changed", len(paths)).Int("clients", len(s.clients)).Msg("Live reload")

	for ch := range s.clients {
		select {
		case ch <- evt:
		default:
		}
	}
}

func (s *Server) event(paths []string) Event {
	sorted := slices.Sorted(slices.Values(paths))

	var css string
	for _, path := range sorted {
		switch filepath.Ext(path) {
		case ".css":
			if css == "" {
				css = path
			}
		case ".map":
		default:
			return Event{Path: s.relative(path)}
		}
	}

	if css != "" {
		return Event{Path: s.relative(css), CSS: true}
	}

	return Event{Path: s.relative(sorted[0])}
}

func (s *Server) relative(path string) string {
	rel, err := filepath.Rel(s.dir, path)
	if err != nil {
		rel = path
	}
	return filepath.ToSlash(rel)
}

// Handler serves /livereload (SSE) and /livereload.js. Pages are served from
// another origin, so responses carry permissive CORS headers.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/livereload", s.events)
	mux.HandleFunc("/livereload.js", clientScript)

	return cors.New(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet},
	}).Handler(mux)
}

func (s *Server) events(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	events, unsubscribe := s.Subscribe()
	defer unsubscribe()

	fmt.Fprint(w, ": connected\n\n")
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			return
		case evt := <-events:
			data, err := json.Marshal(evt)
			if err != nil {
				log.Error().Err(err).Msg("Failed to encode live reload event")
				continue
			}
			fmt.Fprintf(w, "event: reload\ndata: %s\n\n", data)
			flusher.Flush()
		}
	}
}

const snippetJS = "(function(d,s){if(!d||d.getElementById('livereloadscript'))return;" +
	"s=d.createElement('script');s.async=1;s.id='livereloadscript';" +
	"s.src='//'+(self.location.host||'localhost').split(':')[0]+':%s/livereload.js';" +
	"d.getElementsByTagName('head')[0].appendChild(s)})(self.document);"

// Snippet is prepended to the bundle so pages load the client script from the
// live reload port.
func Snippet(addr string) string {
	_, port, err := net.SplitHostPort(addr)
	if err != nil || port == "" {
		port = "35729"
	}
	return fmt.Sprintf(snippetJS, port)
}

const clientJS = `(function () {
  var source = new EventSource('//%s/livereload');
  source.addEventListener('reload', function (e) {
    var evt = JSON.parse(e.data);
    if (!evt.css) {
      location.reload();
      return;
    }
    document.querySelectorAll('link[rel="stylesheet"]').forEach(function (link) {
      var url = new URL(link.href);
      url.searchParams.set('livereload', Date.now());
      link.href = url.toString();
    });
  });
})();
`

func clientScript(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/javascript; charset=utf-8")
	w.Header().Set("Cache-Control", "no-cache")
	fmt.Fprintf(w, clientJS, r.Host)
}

// listen retries while a previous instance may still hold the port.
func listen(ctx context.Context, addr string) (net.Listener, error) {
	var lc net.ListenConfig

	return backoff.Retry(ctx, func() (net.Listener, error) {
		ln, err := lc.Listen(ctx, "tcp", addr)
		if err != nil {
			log.Debug().Err(err).Str("addr", addr).Msg("Live reload port busy, retrying")
		}
		return ln, err
	},
		backoff.WithBackOff(backoff.NewExponentialBackOff()),
		backoff.WithMaxTries(5),
	)
}
