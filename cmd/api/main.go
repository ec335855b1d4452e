package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"attendboard/internal/absence"
	"attendboard/internal/attendance"
	"attendboard/internal/auth"
	"attendboard/internal/config"
	"attendboard/internal/httpmiddleware"
	"attendboard/internal/queue"
	"attendboard/internal/roster"
	"attendboard/internal/schedule"
	"attendboard/internal/store"
)

func main() {
	cfg := config.Load()

	if cfg.Env == "production" || cfg.Env == "prod" {
		gin.SetMode(gin.ReleaseMode)
	}

	if err := runHTTP(cfg); err != nil {
		log.Fatalf("http server failed: %v", err)
	}
}

func runHTTP(cfg config.App) error {
	db, err := store.NewDB(cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer db.Close()

	redisClient := store.NewRedis(cfg.RedisAddr)

	var q queue.Queue
	if cfg.QueueBackend == "memory" {
		q = queue.NewInMemory(64)
	} else {
		q = queue.NewRedisQueue(redisClient.Client, "attendboard:sync")
	}

	scheduleRepo := schedule.NewRepository(db.Client)
	attendanceRepo := attendance.NewRepository(db.Client)
	rosterRepo := roster.NewRepository(db.Client)
	requestRepo := absence.NewRepository(db.Client)

	marking := attendance.NewService(attendanceRepo)
	reconciler := absence.NewReconciler(scheduleRepo, attendanceRepo, rosterRepo)
	requests := absence.NewService(requestRepo, reconciler)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(gin.LoggerWithConfig(gin.LoggerConfig{
		SkipPaths: []string{"/healthz", "/metrics"},
	}))
	r.Use(corsMiddleware())
	r.Use(securityHeaders())
	r.Use(httpmiddleware.NewTokenBucket(cfg.RateLimitPerMin, cfg.RateLimitPerMin).GinMiddleware())

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	r.GET("/healthz", func(c *gin.Context) {
		redisHealthy := redisClient.Healthy(c.Request.Context())
		dbHealthy := db.Client.PingContext(c.Request.Context()) == nil
		status := http.StatusOK
		if !redisHealthy || !dbHealthy {
			status = http.StatusServiceUnavailable
		}
		c.JSON(status, gin.H{"status": "ok", "redis": redisHealthy, "db": dbHealthy})
	})

	r.POST("/v1/auth/token", func(c *gin.Context) {
		var req struct {
			ProfileID string `json:"profile_id" binding:"required"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		profile, err := rosterRepo.ProfileByID(c.Request.Context(), req.ProfileID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		if profile == nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unknown profile"})
			return
		}

		name, role := "", auth.RoleTeacher
		if profile.FullName != nil {
			name = *profile.FullName
		}
		if profile.Role != nil {
			role = *profile.Role
		}

		tokens, err := auth.Issue(profile.ID, name, role, cfg.JWTIssuer, cfg.JWTSigningKey, cfg.AccessTTL, cfg.RefreshTTL)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "token issue failed"})
			return
		}
		c.JSON(http.StatusCreated, gin.H{
			"access_token":  tokens.AccessToken,
			"refresh_token": tokens.RefreshToken,
			"expires_at":    tokens.AccessExp.Unix(),
		})
	})

	// Student submission is public: the request form is reachable without a
	// staff session.
	r.POST("/v1/requests", func(c *gin.Context) {
		var req struct {
			StudentID  int64  `json:"student_id" binding:"required"`
			ReasonType string `json:"reason_type" binding:"required"`
			Comment    string `json:"comment"`
			Classes    []struct {
				ScheduleID int64  `json:"schedule_id"`
				Date       string `json:"date"`
				Group      string `json:"group"`
				Teacher    string `json:"teacher"`
				Subject    string `json:"subject"`
				Time       string `json:"time"`
			} `json:"classes" binding:"required"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		refs := make([]schedule.Ref, 0, len(req.Classes))
		for _, cl := range req.Classes {
			if cl.ScheduleID > 0 {
				refs = append(refs, schedule.PersistedRef(cl.ScheduleID))
				continue
			}
			refs = append(refs, schedule.PendingRef(schedule.Key{
				Date:        cl.Date,
				Group:       cl.Group,
				TeacherName: cl.Teacher,
				Subject:     cl.Subject,
				Time:        cl.Time,
			}))
		}

		created, err := requests.Submit(c.Request.Context(), req.StudentID, refs, req.ReasonType, req.Comment)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusCreated, gin.H{"requests": created})
	})

	r.POST("/v1/requests/period", func(c *gin.Context) {
		var req struct {
			StudentID  int64    `json:"student_id" binding:"required"`
			ReasonType string   `json:"reason_type" binding:"required"`
			Comment    string   `json:"comment"`
			Dates      []string `json:"dates" binding:"required"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		created, err := requests.SubmitPeriod(c.Request.Context(), req.StudentID, req.Dates, req.ReasonType, req.Comment)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusCreated, gin.H{"request": created})
	})

	staff := r.Group("/v1", auth.StaffAuth(cfg.JWTSigningKey, cfg.JWTIssuer))

	staff.GET("/schedule", func(c *gin.Context) {
		date := c.Query("date")
		if date == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "date required"})
			return
		}
		entries, err := scheduleRepo.ByDate(c.Request.Context(), date)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"schedule": entries})
	})

	staff.GET("/attendance", func(c *gin.Context) {
		date := c.Query("date")
		if date == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "date required"})
			return
		}
		records, err := attendanceRepo.ByDate(c.Request.Context(), date)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"attendance": records})
	})

	staff.POST("/attendance", func(c *gin.Context) {
		var req struct {
			StudentID  int64  `json:"student_id" binding:"required"`
			ScheduleID int64  `json:"schedule_id" binding:"required"`
			Date       string `json:"date" binding:"required"`
			Status     string `json:"status" binding:"required"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		if err := marking.Mark(c.Request.Context(), req.StudentID, req.ScheduleID, req.Date, attendance.Status(req.Status)); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	staff.POST("/attendance/mark-all", func(c *gin.Context) {
		var req struct {
			StudentIDs []int64 `json:"student_ids" binding:"required"`
			ScheduleID int64   `json:"schedule_id" binding:"required"`
			Date       string  `json:"date" binding:"required"`
			Status     string  `json:"status" binding:"required"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		if err := marking.MarkAll(c.Request.Context(), req.StudentIDs, req.ScheduleID, req.Date, attendance.Status(req.Status)); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	staff.GET("/students", func(c *gin.Context) {
		group := c.Query("group")
		if group == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "group required"})
			return
		}
		students, err := rosterRepo.StudentsByGroup(c.Request.Context(), group)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"students": students})
	})

	staff.GET("/profiles", func(c *gin.Context) {
		profiles, err := rosterRepo.Profiles(c.Request.Context())
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"profiles": profiles})
	})

	staff.GET("/requests", func(c *gin.Context) {
		status := absence.RequestStatus(c.Query("status"))
		list, err := requests.List(c.Request.Context(), status)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"requests": list})
	})

	staff.POST("/requests/:id/status", func(c *gin.Context) {
		id, err := strconv.ParseInt(c.Param("id"), 10, 64)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "bad request id"})
			return
		}
		var req struct {
			Status string `json:"status" binding:"required"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		updated, err := requests.SetStatus(c.Request.Context(), id, absence.RequestStatus(req.Status))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"request": updated})
	})

	staff.PATCH("/requests/:id", func(c *gin.Context) {
		id, err := strconv.ParseInt(c.Param("id"), 10, 64)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "bad request id"})
			return
		}
		var req struct {
			ReasonType  string `json:"reason_type" binding:"required"`
			Description string `json:"description"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		if err := requests.EditReason(c.Request.Context(), id, req.ReasonType, req.Description); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// The sync itself runs in the worker; the API only drops a trigger on
	// the queue carrying the caller's role for the privilege gate.
	staff.POST("/sync", func(c *gin.Context) {
		claims, _ := auth.ClaimsFrom(c)
		job := queue.Job{Type: queue.TypeSyncSchedule, Role: claims.Role, RequestedAt: time.Now()}
		if err := q.Publish(c.Request.Context(), job); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "sync trigger failed"})
			return
		}
		c.JSON(http.StatusAccepted, gin.H{"status": "queued"})
	})

	srv := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("Starting server on :%s", cfg.HTTPPort)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server forced shutdown: %v", err)
	}

	log.Println("Server exited")
	return nil
}

// CORS middleware for browser requests
func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")
		if origin == "" {
			origin = "*"
		}

		c.Header("Access-Control-Allow-Origin", origin)
		c.Header("Access-Control-Allow-Methods", "GET, POST, PATCH, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Origin, Content-Type, Accept, Authorization")
		c.Header("Access-Control-Allow-Credentials", "true")
		c.Header("Access-Control-Max-Age", "86400")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

// Security headers middleware
func securityHeaders() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("X-Content-Type-Options", "nosniff")
		c.Header("X-Frame-Options", "DENY")
		c.Header("X-XSS-Protection", "1; mode=block")
		c.Header("Referrer-Policy", "strict-origin-when-cross-origin")

		if gin.Mode() == gin.ReleaseMode {
			c.Header("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
		}

		c.Next()
	}
}
