package main

import (
	"context"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/zuccone/super-lunch-buddies/internal/catalog"
	"github.com/zuccone/super-lunch-buddies/internal/config"
	"github.com/zuccone/super-lunch-buddies/internal/groups"
	"github.com/zuccone/super-lunch-buddies/internal/handlers"
	"github.com/zuccone/super-lunch-buddies/internal/middleware"
	"github.com/zuccone/super-lunch-buddies/internal/observability"
	"github.com/zuccone/super-lunch-buddies/internal/prefs"
	"github.com/zuccone/super-lunch-buddies/internal/rabbitmq"
	"github.com/zuccone/super-lunch-buddies/internal/state"
	"github.com/zuccone/super-lunch-buddies/internal/store"
	"github.com/zuccone/super-lunch-buddies/internal/suggest"
	syncsvc "github.com/zuccone/super-lunch-buddies/internal/sync"
	"github.com/zuccone/super-lunch-buddies/internal/telemetry"
	"github.com/zuccone/super-lunch-buddies/internal/ws"
)

func main() {
	cfg := config.Load()

	var docStore store.DocStore
	if cfg.DBDSN == "" {
		log.Printf("DB_DSN is empty, using in-memory store")
		docStore = store.NewMemory()
	} else {
		pg, err := store.ConnectPostgres(cfg.DBDSN)
		if err != nil {
			log.Fatalf("failed to connect to db: %v", err)
		}
		defer pg.Close()
		docStore = pg
	}

	publisher := rabbitmq.NewPublisher(cfg.AMQPURL, cfg.AMQPExchange)
	defer publisher.Close()
	log.Printf("event publisher mode=%s", rabbitmq.PublisherMode(publisher))
	observability.SetPublisher(publisher)

	audit := telemetry.NewAuditEmitter(publisher, "audit.lunch", "super-lunch-buddies", cfg.Environment)

	cache := state.NewCache(docStore)
	cache.Start()
	defer cache.Stop()

	groupService := groups.New(cache, docStore)
	if _, err := groupService.EnsureDefault(context.Background()); err != nil {
		log.Fatalf("failed to seed default group: %v", err)
	}

	generator := suggest.NewClient(cfg.GeminiAPIKey, cfg.GeminiModel)
	describer := suggest.NewDescriber(generator)
	pipeline := suggest.NewPipeline(generator, groupService)

	mutator := catalog.New(docStore, describer, nil)
	synchronizer := syncsvc.New(cache, docStore, nil)
	prefService := prefs.New(docStore)

	hub := ws.NewHub()
	bridge := ws.NewBridge(docStore, hub)
	bridge.Start()
	defer bridge.Stop()

	attendanceHandler := handlers.NewAttendanceHandler(synchronizer, audit)
	groupHandler := handlers.NewGroupHandler(groupService, pipeline, cache, audit)
	catalogHandler := handlers.NewCatalogHandler(mutator, cache, cache, audit)
	prefsHandler := handlers.NewPrefsHandler(prefService)

	groupWS := ws.NewGroupStreamHandler(hub, cache)
	catalogWS := ws.NewCatalogStreamHandler(hub, cache)

	router := gin.Default()
	router.Use(gin.Recovery())
	router.Use(middleware.DeviceIdentity())
	router.Use(observability.HTTPMetricsMiddleware())

	router.PUT("/attendance", attendanceHandler.SetAttendance)
	router.PUT("/attendance/suggestion", attendanceHandler.UpdateSuggestion)

	router.GET("/groups", groupHandler.ListGroups)
	router.POST("/groups", groupHandler.CreateGroup)
	router.PATCH("/groups/:group_id", groupHandler.UpdateGroup)
	router.DELETE("/groups/:group_id", groupHandler.DeleteGroup)
	router.PUT("/groups/:group_id/vibe", groupHandler.SetVibe)
	router.GET("/groups/:group_id/board", groupHandler.Board)
	router.POST("/groups/:group_id/recommendations", groupHandler.Recommend)
	router.GET("/groups/:group_id/recommendations/state", groupHandler.RecommendState)

	router.GET("/restaurants", catalogHandler.ListRestaurants)
	router.POST("/restaurants", catalogHandler.AddRestaurant)
	router.PATCH("/restaurants/:restaurant_id", catalogHandler.EditRestaurant)
	router.DELETE("/restaurants/:restaurant_id", catalogHandler.DeleteRestaurant)
	router.POST("/restaurants/:restaurant_id/rating", catalogHandler.Rate)
	router.POST("/restaurants/:restaurant_id/visited", catalogHandler.MarkVisited)
	router.GET("/restaurants/:restaurant_id/other-visits", catalogHandler.OtherVisits)

	router.GET("/prefs/:key", prefsHandler.Get)
	router.PUT("/prefs/:key", prefsHandler.Set)

	router.GET("/ws/groups/:group_id", groupWS.Handle)
	router.GET("/ws/catalog", catalogWS.Handle)

	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	if err := router.Run(":" + cfg.Port); err != nil {
		log.Fatalf("server error: %v", err)
	}
}
