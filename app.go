package roster

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/hlog"

	"github.com/chatframe/roster/dispatch"
	"github.com/chatframe/roster/internal"
	"github.com/chatframe/roster/list"
	"github.com/chatframe/roster/pubsub"
	"github.com/chatframe/roster/state"
	"github.com/chatframe/roster/state/migrations"
)

var logger = zerolog.New(os.Stdout).With().Timestamp().Logger().Output(zerolog.ConsoleWriter{
	Out:        os.Stderr,
	TimeFormat: "15:04:05",
})

var Version string

type Opts struct {
	AddPrometheusMetrics bool
	// ReplayPendingMembers queues membership events for users whose profile
	// has not arrived yet instead of dropping them.
	ReplayPendingMembers bool
	// the size of the channels used by the event bus
	BusBufferSize int
}

// App glues the pieces together: the postgres-backed stores, the event bus,
// and the registry of live member lists.
type App struct {
	Storage  *state.Storage
	Bus      *pubsub.PubSub
	Notifier pubsub.Notifier
	Registry *dispatch.Registry
	Sub      *pubsub.EventSub
}

// Setup constructs everything but does not listen on anything yet.
func Setup(postgresURI string, opts Opts) *App {
	storage := state.NewStorage(postgresURI)
	if err := migrations.Run(storage.DB); err != nil {
		logger.Panic().Err(err).Msg("failed to run migrations")
	}
	if opts.BusBufferSize == 0 {
		opts.BusBufferSize = 100
	}
	bus := pubsub.NewPubSub(opts.BusBufferSize)
	var notifier pubsub.Notifier = bus
	if opts.AddPrometheusMetrics {
		notifier = pubsub.NewPromNotifier(bus, "api")
	}

	sink := func(key list.Key, ops []list.Op) {
		data, err := dispatch.EncodeOps(ops)
		if err != nil {
			logger.Err(err).Str("list", key.String()).Msg("failed to encode ops")
			return
		}
		if err := notifier.Notify(pubsub.ChanOps, &pubsub.OpsBatch{ListKey: key.String(), Data: data}); err != nil {
			logger.Err(err).Str("list", key.String()).Msg("failed to publish ops")
		}
	}
	registry := dispatch.NewRegistry(storage, list.Opts{
		ReplayPendingMembers: opts.ReplayPendingMembers,
	}, sink, opts.AddPrometheusMetrics)
	dispatcher := dispatch.NewDispatcher(registry)
	sub := pubsub.NewEventSub(bus, dispatcher)

	return &App{
		Storage:  storage,
		Bus:      bus,
		Notifier: notifier,
		Registry: registry,
		Sub:      sub,
	}
}

func (a *App) Teardown() {
	a.Registry.Teardown()
	a.Notifier.Close()
	a.Storage.Teardown()
}

type server struct {
	chain []func(next http.Handler) http.Handler
	final http.Handler
}

func (s *server) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	h := s.final
	for i := range s.chain {
		h = s.chain[len(s.chain)-1-i](h)
	}
	h.ServeHTTP(w, req)
}

// RunRosterServer starts consuming the event bus and serves the debug/ops
// HTTP surface. Blocks forever.
func RunRosterServer(app *App, bindAddr string, opts Opts) {
	go func() {
		if err := app.Sub.Listen(); err != nil {
			logger.Err(err).Msg("event bus listener stopped")
		}
	}()

	r := mux.NewRouter()
	r.HandleFunc("/_roster/healthz", func(w http.ResponseWriter, req *http.Request) {
		w.WriteHeader(200)
		w.Write([]byte(`{}`))
	})
	r.HandleFunc("/_roster/rooms/{roomID}/groups", func(w http.ResponseWriter, req *http.Request) {
		serveGroups(app, w, req, list.Key{RoomID: mux.Vars(req)["roomID"]})
	})
	r.HandleFunc("/_roster/channels/{channelID}/groups", func(w http.ResponseWriter, req *http.Request) {
		serveGroups(app, w, req, list.Key{ChannelID: mux.Vars(req)["channelID"]})
	})
	r.HandleFunc("/_roster/rooms/{roomID}/members", func(w http.ResponseWriter, req *http.Request) {
		serveMembers(app, w, req, list.Key{RoomID: mux.Vars(req)["roomID"]})
	})
	r.HandleFunc("/_roster/channels/{channelID}/members", func(w http.ResponseWriter, req *http.Request) {
		serveMembers(app, w, req, list.Key{ChannelID: mux.Vars(req)["channelID"]})
	})
	if opts.AddPrometheusMetrics {
		r.Handle("/metrics", promhttp.Handler())
	}

	srv := &server{
		chain: []func(next http.Handler) http.Handler{
			hlog.NewHandler(logger),
			hlog.AccessHandler(func(req *http.Request, status, size int, duration time.Duration) {
				hlog.FromRequest(req).Info().
					Str("method", req.Method).
					Int("status", status).
					Int("size", size).
					Dur("duration", duration).
					Str("path", req.URL.Path).
					Msg("")
			}),
			hlog.RemoteAddrHandler("ip"),
		},
		final: r,
	}

	// Block forever
	logger.Info().Msgf("listening on %s", bindAddr)
	if err := http.ListenAndServe(bindAddr, srv); err != nil {
		logger.Fatal().Err(err).Msg("failed to listen and serve")
	}
}

func serveGroups(app *App, w http.ResponseWriter, req *http.Request, key list.Key) {
	ctx, span := internal.StartSpan(req.Context(), "serveGroups")
	defer span.End()
	runner, err := app.Registry.GetOrCreate(ctx, key)
	if err != nil {
		writeError(req, w, &internal.HandlerError{StatusCode: 500, Err: err})
		return
	}
	writeJSON(w, runner.Groups())
}

func serveMembers(app *App, w http.ResponseWriter, req *http.Request, key list.Key) {
	ctx, span := internal.StartSpan(req.Context(), "serveMembers")
	defer span.End()
	ranges, err := parseRanges(req.URL.Query().Get("ranges"))
	if err != nil {
		writeError(req, w, &internal.HandlerError{StatusCode: 400, Err: err})
		return
	}
	runner, rerr := app.Registry.GetOrCreate(ctx, key)
	if rerr != nil {
		writeError(req, w, &internal.HandlerError{StatusCode: 500, Err: rerr})
		return
	}
	writeJSON(w, runner.Hydrate(ranges))
}

// parseRanges parses "0-100,200-250" into half-open ranges.
func parseRanges(val string) (list.Ranges, error) {
	if val == "" {
		return list.Ranges{{0, 100}}, nil
	}
	var ranges list.Ranges
	for _, part := range strings.Split(val, ",") {
		lo, hi, found := strings.Cut(part, "-")
		if !found {
			return nil, fmt.Errorf("bad range %q", part)
		}
		start, err := strconv.ParseInt(lo, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("bad range %q: %s", part, err)
		}
		end, err := strconv.ParseInt(hi, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("bad range %q: %s", part, err)
		}
		ranges = append(ranges, [2]int64{start, end})
	}
	if !ranges.Valid() {
		return nil, fmt.Errorf("invalid ranges %q", val)
	}
	return ranges, nil
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(200)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Err(err).Msg("failed to write response")
	}
}

func writeError(req *http.Request, w http.ResponseWriter, herr *internal.HandlerError) {
	if herr.StatusCode >= 500 {
		internal.GetSentryHubFromContextOrDefault(req.Context()).CaptureException(herr)
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(herr.StatusCode)
	w.Write(herr.JSON())
}
