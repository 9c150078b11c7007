package integration

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"net/http/httptest"
	"os"
	"sync"
	"testing"
	"time"

	"go-gin-cinema-reservation/config"
	"go-gin-cinema-reservation/internal/cache"
	"go-gin-cinema-reservation/internal/handler"
	"go-gin-cinema-reservation/internal/middleware"
	"go-gin-cinema-reservation/internal/model"
	"go-gin-cinema-reservation/internal/queue"
	"go-gin-cinema-reservation/internal/repository"
	"go-gin-cinema-reservation/internal/service"
	"go-gin-cinema-reservation/internal/testutil"
	"go-gin-cinema-reservation/internal/worker"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const secret = "integration-secret"

var (
	testDB  *pgxpool.Pool
	testRdb *redis.Client
)

func TestMain(m *testing.M) {
	db, rdb, cleanup, err := testutil.Setup(context.Background())
	if err != nil {
		log.Printf("skipping integration tests: %v", err)
		os.Exit(0)
	}
	testDB = db
	testRdb = rdb

	code := m.Run()
	cleanup()
	os.Exit(code)
}

type failingQueue struct{}

func (f *failingQueue) Publish(ctx context.Context, event *model.ReservationEvent) error {
	return errors.New("queue publish failed") // 總是返回錯誤
}

func (f *failingQueue) Subscribe(ctx context.Context) (<-chan queue.Delivery, error) {
	out := make(chan queue.Delivery)
	close(out) // 返回一個已關閉的 channel
	return out, nil
}

func setupIntegrationTest(t *testing.T, useFailingQueue bool) *gin.Engine {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, testutil.ResetDatabase(ctx, testDB))
	require.NoError(t, testRdb.FlushDB(ctx).Err())

	cfg := config.LoadTestConfig()
	movieRepo := repository.NewMovieRepository(testDB)
	showtimeRepo := repository.NewShowtimeRepository(testDB)
	reservationRepo := repository.NewReservationRepository(testDB)
	eventRepo := repository.NewReservationEventRepository(testDB)
	lock := cache.NewRedisScheduleLock(testRdb, nil)

	var eventQueue queue.ReservationEventQueue
	if useFailingQueue {
		eventQueue = &failingQueue{}
	} else {
		eventQueue = queue.NewMemoryEventQueue(100)
		workerCtx, cancel := context.WithCancel(context.Background())
		eventWorker := worker.NewEventWorker(eventRepo, eventQueue)
		require.NoError(t, eventWorker.Start(workerCtx))
		t.Cleanup(func() {
			cancel()
			<-eventWorker.Done()
		})
	}

	movieService := service.NewMovieService(movieRepo, showtimeRepo)
	showtimeService := service.NewShowtimeService(testDB, showtimeRepo, movieRepo, lock, cfg.Seating)
	reservationService := service.NewReservationService(testDB, reservationRepo, showtimeRepo, eventRepo, eventQueue, cfg.Reservation.RetryBudget)

	gin.SetMode(gin.TestMode)
	router := gin.New()
	auth := middleware.Auth(secret)
	handler.NewMovieHandler(movieService).RegisterRoutes(router, auth)
	handler.NewShowtimeHandler(showtimeService).RegisterRoutes(router, auth)
	handler.NewReservationHandler(reservationService).RegisterRoutes(router, auth)
	handler.NewAdminReservationHandler(reservationService).RegisterRoutes(router, auth)
	return router
}

func token(t *testing.T, userID int, role string) string {
	t.Helper()
	tok, err := middleware.IssueToken(secret, userID, role, time.Hour)
	require.NoError(t, err)
	return tok
}

func do(t *testing.T, router *gin.Engine, method, path, tok string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if tok != "" {
		req.Header.Set("Authorization", "Bearer "+tok)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

// seedShowtime 以管理員身分建立電影與場次
func seedShowtime(t *testing.T, router *gin.Engine, rows, perRow int) model.Showtime {
	t.Helper()
	admin := token(t, 1, middleware.RoleAdmin)

	w := do(t, router, http.MethodPost, "/api/v1/admin/movies", admin, gin.H{
		"title": "Zodiac", "genre": "Thriller", "duration": 152,
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	movie := decode[model.Movie](t, w)

	date := time.Now().UTC().AddDate(0, 0, 1).Format("2006-01-02")
	w = do(t, router, http.MethodPost, "/api/v1/admin/showtimes", admin, gin.H{
		"movie_id": movie.ID, "date": date, "start_time": "18:00", "rows": rows, "seats_per_row": perRow,
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	return decode[model.Showtime](t, w)
}

func TestReservationFlow(t *testing.T) {
	router := setupIntegrationTest(t, false)
	st := seedShowtime(t, router, 3, 3)
	assert.Equal(t, "20:32", st.EndTime)
	assert.Equal(t, 9, st.AvailableSeats)

	user := token(t, 42, middleware.RoleUser)
	admin := token(t, 1, middleware.RoleAdmin)

	// reserve
	w := do(t, router, http.MethodPost, "/api/v1/reservations", user, gin.H{"showtime_id": st.ID, "seat_number": "B2"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	res := decode[model.Reservation](t, w)
	assert.Equal(t, model.ReservationStatusReserved, res.Status)

	// 同座位第二次訂位
	other := token(t, 43, middleware.RoleUser)
	w = do(t, router, http.MethodPost, "/api/v1/reservations", other, gin.H{"showtime_id": st.ID, "seat_number": "B2"})
	assert.Equal(t, http.StatusConflict, w.Code)

	// seat map
	w = do(t, router, http.MethodGet, fmt.Sprintf("/api/v1/showtimes/%d/seats", st.ID), "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	seatMap := decode[map[string]map[string]struct {
		Status string `json:"status"`
	}](t, w)
	assert.Equal(t, "reserved", seatMap["B"]["2"].Status)

	// pay
	w = do(t, router, http.MethodPut, fmt.Sprintf("/api/v1/reservations/%d/pay", res.ID), user, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	booked := decode[model.Reservation](t, w)
	assert.Equal(t, model.ReservationStatusBooked, booked.Status)
	assert.NotNil(t, booked.PaymentDate)

	// 使用者不能取消已付款訂位
	w = do(t, router, http.MethodDelete, fmt.Sprintf("/api/v1/reservations/%d", res.ID), user, nil)
	assert.Equal(t, http.StatusConflict, w.Code)

	// 一般使用者不能呼叫管理端
	w = do(t, router, http.MethodDelete, fmt.Sprintf("/api/v1/admin/reservations/%d", res.ID), user, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = do(t, router, http.MethodGet, fmt.Sprintf("/api/v1/showtimes/%d", st.ID), "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, decimal.NewFromInt(200).Equal(decode[model.Showtime](t, w).Revenue))

	// admin revoke
	w = do(t, router, http.MethodDelete, fmt.Sprintf("/api/v1/admin/reservations/%d", res.ID), admin, nil)
	require.Equal(t, http.StatusNoContent, w.Code, w.Body.String())

	w = do(t, router, http.MethodGet, fmt.Sprintf("/api/v1/showtimes/%d", st.ID), "", nil)
	final := decode[model.Showtime](t, w)
	assert.Equal(t, 9, final.AvailableSeats)
	assert.True(t, final.Revenue.IsZero())

	// worker 非同步寫入稽核事件
	assert.Eventually(t, func() bool {
		w := do(t, router, http.MethodGet, fmt.Sprintf("/api/v1/admin/reservations/%d/events", res.ID), admin, nil)
		if w.Code != http.StatusOK {
			return false
		}
		var events []model.ReservationEvent
		if err := json.Unmarshal(w.Body.Bytes(), &events); err != nil {
			return false
		}
		return len(events) == 3
	}, 5*time.Second, 100*time.Millisecond)
}

// 事件發送失敗不影響已提交的訂位
func TestReservationFlow_QueueFailure(t *testing.T) {
	router := setupIntegrationTest(t, true)
	st := seedShowtime(t, router, 1, 2)
	user := token(t, 42, middleware.RoleUser)

	w := do(t, router, http.MethodPost, "/api/v1/reservations", user, gin.H{"showtime_id": st.ID, "seat_number": "A1"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = do(t, router, http.MethodGet, "/api/v1/reservations", user, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[[]model.Reservation](t, w), 1)
}

func TestReservationFlow_ConcurrentRequests(t *testing.T) {
	router := setupIntegrationTest(t, false)
	st := seedShowtime(t, router, 1, 1)

	const n = 10
	var (
		wg    sync.WaitGroup
		mu    sync.Mutex
		codes = map[int]int{}
	)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(userID int) {
			defer wg.Done()
			tok, err := middleware.IssueToken(secret, userID, middleware.RoleUser, time.Hour)
			if !assert.NoError(t, err) {
				return
			}
			w := do(t, router, http.MethodPost, "/api/v1/reservations", tok, gin.H{"showtime_id": st.ID, "seat_number": "A1"})
			mu.Lock()
			codes[w.Code]++
			mu.Unlock()
		}(100 + i)
	}
	wg.Wait()

	assert.Equal(t, 1, codes[http.StatusCreated])
	assert.Equal(t, n-1, codes[http.StatusConflict])
}
