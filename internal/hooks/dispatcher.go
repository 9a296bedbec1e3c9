// Package hooks implements the RTMP server hook dispatcher (component
// C5): the gin handlers the embedded RTMP server calls back into on
// publish/unpublish/play/stop, gating each against the current desired
// state and the endpoint status it derives from.
package hooks

import (
	"net/http"
	"sync"
	"time"

	"github.com/ephyr-go/restreamer/internal/argonhash"
	"github.com/ephyr-go/restreamer/internal/domain/restream"
	"github.com/ephyr-go/restreamer/internal/store"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Deadline bounds how long a hook handler may take end to end, per §4.6's
// hard deadline on the RTMP server's synchronous callback.
const Deadline = 5 * time.Second

// hookRequest is the wire contract SRS (and SRS-compatible servers) POST
// on each callback: JSON body {action, client_id, ip, vhost, app,
// stream, param}.
type hookRequest struct {
	Action   string `json:"action"`
	ClientID string `json:"client_id"`
	IP       string `json:"ip"`
	Vhost    string `json:"vhost"`
	App      string `json:"app"`
	Stream   string `json:"stream"`
	Param    string `json:"param"`
}

// Dispatcher owns the client_id → endpoint correlation table used to
// match on_unpublish to the on_publish that opened it. This table is
// runtime-only scratch state, not part of the persisted document: it
// only ever describes in-flight connections on the RTMP server's own
// process, which resets on every restart anyway.
type Dispatcher struct {
	log     *zap.Logger
	store   *store.Store
	clients *ClientCounter

	mu         sync.Mutex
	publishers map[string]store.EndpointRef
}

// New constructs a Dispatcher bound to st. clients records concurrent
// playback sessions for the dashboard's client-stats query; New allocates
// one if clients is nil.
func New(log *zap.Logger, st *store.Store, clients *ClientCounter) *Dispatcher {
	if clients == nil {
		clients = NewClientCounter()
	}
	return &Dispatcher{
		log:        log.Named("hooks"),
		store:      st,
		clients:    clients,
		publishers: make(map[string]store.EndpointRef),
	}
}

// Clients exposes the dispatcher's client counter for wiring into the
// dashboard resolver.
func (d *Dispatcher) Clients() *ClientCounter { return d.clients }

// Register wires the dispatcher's routes onto r. The RTMP server must
// reach this server only over loopback (§4.6): callers are expected to
// bind the listener to 127.0.0.1.
func (d *Dispatcher) Register(r gin.IRoutes) {
	r.POST("/on_publish", d.onPublish)
	r.POST("/on_unpublish", d.onUnpublish)
	r.POST("/on_play", d.onPlay)
	r.POST("/on_stop", d.onStop)
}

func bindHook(c *gin.Context) (hookRequest, bool) {
	var req hookRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"code": 1})
		return hookRequest{}, false
	}
	return req, true
}

// onPublish locates the leaf endpoint matching (app, stream). If it
// doesn't exist, or its Restream/Input is disabled, the publish is
// rejected. Otherwise the endpoint is marked Online and the client_id is
// remembered for the matching on_unpublish.
func (d *Dispatcher) onPublish(c *gin.Context) {
	req, ok := bindHook(c)
	if !ok {
		return
	}

	snap := d.store.Snapshot()
	ref, restreamEnabled, inputEnabled, found := store.FindEndpointByAppStream(snap.State, req.App, req.Stream)
	if !found || !restreamEnabled || !inputEnabled {
		d.log.Info("publish rejected", zap.String("app", req.App), zap.String("stream", req.Stream))
		c.JSON(http.StatusOK, gin.H{"code": 1})
		return
	}

	if _, err := d.store.SetEndpointStatusCtx(c.Request.Context(), ref.RestreamID, ref.EndpointID, restream.StatusOnline); err != nil {
		d.log.Warn("publish status commit did not complete before the request deadline", zap.Error(err))
		c.JSON(http.StatusOK, gin.H{"code": 1})
		return
	}

	d.mu.Lock()
	d.publishers[req.ClientID] = ref
	d.mu.Unlock()

	c.JSON(http.StatusOK, gin.H{"code": 0})
}

// onUnpublish marks the endpoint the recorded client_id maps to Offline.
// An unrecognized client_id is a stale/duplicate callback and ignored.
func (d *Dispatcher) onUnpublish(c *gin.Context) {
	req, ok := bindHook(c)
	if !ok {
		return
	}

	d.mu.Lock()
	ref, tracked := d.publishers[req.ClientID]
	delete(d.publishers, req.ClientID)
	d.mu.Unlock()

	if !tracked {
		c.JSON(http.StatusOK, gin.H{"code": 0})
		return
	}

	if _, err := d.store.SetEndpointStatusCtx(c.Request.Context(), ref.RestreamID, ref.EndpointID, restream.StatusOffline); err != nil {
		d.log.Warn("unpublish status commit did not complete before the request deadline", zap.Error(err))
	}
	c.JSON(http.StatusOK, gin.H{"code": 0})
}

// onPlay authenticates a playback request against the output password
// hash, when one is set. param carries the token as a query-string-style
// fragment (SRS passes the original connection's query string verbatim).
// A successful play is recorded against its endpoint for the dashboard's
// client-stats query.
func (d *Dispatcher) onPlay(c *gin.Context) {
	req, ok := bindHook(c)
	if !ok {
		return
	}
	if !d.authorize(req.Param) {
		c.JSON(http.StatusOK, gin.H{"code": 1})
		return
	}
	if ref, _, _, found := store.FindEndpointByAppStream(d.store.Snapshot().State, req.App, req.Stream); found {
		d.clients.Inc(req.ClientID, ref.EndpointID)
	}
	c.JSON(http.StatusOK, gin.H{"code": 0})
}

// onStop ends the playback session the client_id was recorded under, if
// any. It carries no auth decision.
func (d *Dispatcher) onStop(c *gin.Context) {
	req, ok := bindHook(c)
	if !ok {
		return
	}
	d.clients.Dec(req.ClientID)
	c.JSON(http.StatusOK, gin.H{"code": 0})
}

// authorize checks a `token=...` query fragment against either password
// hash: an unset PasswordOutputHash falls back to PasswordHash, matching
// the "output view inherits the main password until its own is set"
// behavior confirmed against the original client.rs auth flow.
func (d *Dispatcher) authorize(rawQuery string) bool {
	snap := d.store.Snapshot()
	hash := snap.State.PasswordOutputHash
	if hash == nil {
		hash = snap.State.PasswordHash
	}
	if hash == nil {
		return true
	}
	token := extractToken(rawQuery)
	if token == "" {
		return false
	}
	return argonhash.Verify(token, *hash) == nil
}
