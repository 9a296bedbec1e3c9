package httpapi

import (
	"net/http"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/secure"
	"github.com/gin-gonic/gin"
	"github.com/graph-gophers/graphql-go/relay"
	"go.uber.org/zap"

	graphqlapi "github.com/ephyr-go/restreamer/internal/graphql"
	"github.com/ephyr-go/restreamer/internal/store"
)

// Config controls router construction.
type Config struct {
	Debug        bool
	AllowOrigins []string
}

func selectMainHash(st *store.State) *string { return st.PasswordHash }

func selectOutputHash(st *store.State) *string {
	if st.PasswordOutputHash != nil {
		return st.PasswordOutputHash
	}
	return st.PasswordHash
}

// NewRouter builds the gin engine serving the client, mix, and dashboard
// GraphQL surfaces, each behind its own password realm. Middleware order:
// recovery outermost, then security headers, request id, CORS, access log,
// body-size limit.
func NewRouter(log *zap.Logger, st *store.Store, schemas *graphqlapi.Schemas, cfg Config) *gin.Engine {
	if !cfg.Debug {
		gin.SetMode(gin.ReleaseMode)
	}
	log = log.Named("httpapi")
	gin.DefaultWriter = zap.NewStdLog(log.Named("gin")).Writer()

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(secure.New(secure.Config{
		SSLProxyHeaders:    map[string]string{"X-Forwarded-Proto": "https"},
		FrameDeny:          true,
		ContentTypeNosniff: true,
		BrowserXssFilter:   true,
	}))
	r.Use(requestID())
	if len(cfg.AllowOrigins) > 0 {
		r.Use(cors.New(cors.Config{
			AllowOrigins:     cfg.AllowOrigins,
			AllowMethods:     []string{"GET", "POST", "OPTIONS"},
			AllowHeaders:     []string{"X-Request-ID", "Content-Type", "Authorization"},
			AllowCredentials: true,
		}))
	}
	r.Use(accessLog(log))
	r.Use(limitBody())

	r.GET("/api/ping", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"message": "pong"}) })

	clientHTTP := relay.Handler{Schema: schemas.Client}
	clientWS := graphqlapi.SubscriptionHandler(log, schemas.Client)
	client := r.Group("/api/client", requireHash(st, selectMainHash))
	client.POST("", gin.WrapH(&clientHTTP))
	client.GET("/ws", gin.WrapF(clientWS))

	mixHTTP := relay.Handler{Schema: schemas.Mix}
	mixWS := graphqlapi.SubscriptionHandler(log, schemas.Mix)
	mix := r.Group("/api/mix", requireHash(st, selectOutputHash))
	mix.POST("", gin.WrapH(&mixHTTP))
	mix.GET("/ws", gin.WrapF(mixWS))

	dashboardHTTP := relay.Handler{Schema: schemas.Dashboard}
	dashboard := r.Group("/api/dashboard", requireHash(st, selectMainHash))
	dashboard.POST("", gin.WrapH(&dashboardHTTP))

	if assets, err := staticFS(); err != nil {
		log.Warn("static bundle unavailable", zap.Error(err))
	} else {
		r.NoRoute(func(c *gin.Context) {
			c.FileFromFS(c.Request.URL.Path, http.FS(assets))
		})
	}

	return r
}
