package services

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/textproto"
	"strings"
	"sync"
	"testing"
	"time"

	"rentals_backend/internal/auth"
	"rentals_backend/internal/email"
	"rentals_backend/internal/models"
	"rentals_backend/internal/search"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

const (
	testPassword    = "Str0ng!Pass"
	testNewPassword = "N3wPassw0rd!"
)

var testNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func init() {
	auth.Init("services-test-secret", 15*time.Minute)
}

// newTestDB - sqlite в памяти; одно соединение, иначе каждое получит свою пустую БД
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	require.NoError(t, db.AutoMigrate(models.All()...))
	return db
}

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func newTestClock() *testClock {
	return &testClock{now: testNow}
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

// memoryStorage - storage.Storage в памяти
type memoryStorage struct {
	mu    sync.Mutex
	files map[string][]byte
}

func newMemoryStorage() *memoryStorage {
	return &memoryStorage{files: map[string][]byte{}}
}

func (s *memoryStorage) Save(ctx context.Context, path string, reader io.Reader, size int64, contentType string) error {
	data, err := io.ReadAll(reader)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.files[path] = data
	s.mu.Unlock()
	return nil
}

func (s *memoryStorage) Get(ctx context.Context, path string) (io.ReadCloser, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, ok := s.files[path]
	if !ok {
		return nil, fmt.Errorf("file not found: %s", path)
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (s *memoryStorage) Delete(ctx context.Context, path string) error {
	s.mu.Lock()
	delete(s.files, path)
	s.mu.Unlock()
	return nil
}

func (s *memoryStorage) Exists(ctx context.Context, path string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.files[path]
	return ok, nil
}

func (s *memoryStorage) GetURL(path string) string {
	return "/uploads/" + path
}

func (s *memoryStorage) PathFromURL(url string) (string, bool) {
	if !strings.HasPrefix(url, "/uploads/") {
		return "", false
	}
	return strings.TrimPrefix(url, "/uploads/"), true
}

func (s *memoryStorage) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.files)
}

// fakeEngine - search.Engine, запоминающий вызовы
type fakeEngine struct {
	mu      sync.Mutex
	indexed map[string]search.Document
	deleted []string
	ensured int

	searchParams search.SearchParams
	filterParams search.FilterParams
	result       *search.Result
	suggestions  []string
	completions  *search.Completions
	err          error
	bulkFailures int
}

func newFakeEngine() *fakeEngine {
	return &fakeEngine{indexed: map[string]search.Document{}, result: &search.Result{}}
}

func (e *fakeEngine) EnsureIndex(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.ensured++
	return e.err
}

func (e *fakeEngine) IndexDocument(ctx context.Context, doc search.Document) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.err != nil {
		return e.err
	}
	e.indexed[doc.ID] = doc
	return nil
}

func (e *fakeEngine) DeleteDocument(ctx context.Context, id string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.err != nil {
		return e.err
	}
	delete(e.indexed, id)
	e.deleted = append(e.deleted, id)
	return nil
}

func (e *fakeEngine) BulkIndex(ctx context.Context, docs []search.Document) (int, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	ok := len(docs) - e.bulkFailures
	if ok < 0 {
		ok = 0
	}
	for _, d := range docs[:ok] {
		e.indexed[d.ID] = d
	}
	if ok < len(docs) {
		return ok, fmt.Errorf("%d documents failed", len(docs)-ok)
	}
	return ok, nil
}

func (e *fakeEngine) Search(ctx context.Context, p search.SearchParams) (*search.Result, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.searchParams = p
	if e.err != nil {
		return nil, e.err
	}
	return e.result, nil
}

func (e *fakeEngine) Filter(ctx context.Context, p search.FilterParams) (*search.Result, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.filterParams = p
	if e.err != nil {
		return nil, e.err
	}
	return e.result, nil
}

func (e *fakeEngine) SuggestSpelling(ctx context.Context, text string, max int) ([]string, error) {
	if e.err != nil {
		return nil, e.err
	}
	return e.suggestions, nil
}

func (e *fakeEngine) Autocomplete(ctx context.Context, prefix, field string, limit int) (*search.Completions, error) {
	if e.err != nil {
		return nil, e.err
	}
	return e.completions, nil
}

// recordingCache - cache.ApartmentCache в памяти, считающий попадания и инвалидации
type recordingCache struct {
	mu      sync.Mutex
	items   map[string]models.Apartment
	hits    int
	deleted []string
}

func newRecordingCache() *recordingCache {
	return &recordingCache{items: map[string]models.Apartment{}}
}

func (c *recordingCache) Get(ctx context.Context, id string) (*models.Apartment, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	apartment, ok := c.items[id]
	if !ok {
		return nil, nil
	}
	c.hits++
	return &apartment, nil
}

func (c *recordingCache) Set(ctx context.Context, apartment *models.Apartment) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items[apartment.ID] = *apartment
	return nil
}

func (c *recordingCache) Delete(ctx context.Context, ids ...string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, id := range ids {
		delete(c.items, id)
	}
	c.deleted = append(c.deleted, ids...)
	return nil
}

func (c *recordingCache) has(id string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.items[id]
	return ok
}

func (c *recordingCache) wasDeleted(id string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, d := range c.deleted {
		if d == id {
			return true
		}
	}
	return false
}

// testEnv - контейнер сервисов поверх sqlite и фейков
type testEnv struct {
	db       *gorm.DB
	clock    *testClock
	storage  *memoryStorage
	engine   *fakeEngine
	mailer   *email.NoopProvider
	cache    *recordingCache
	repos    *Repositories
	deps     Dependencies
	services *ServiceContainer
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	env := &testEnv{
		db:      newTestDB(t),
		clock:   newTestClock(),
		storage: newMemoryStorage(),
		engine:  newFakeEngine(),
		mailer:  email.NewNoopProvider(),
		cache:   newRecordingCache(),
		repos:   NewRepositories(),
	}
	env.deps = Dependencies{
		Storage:       env.storage,
		Cache:         env.cache,
		Search:        env.engine,
		EmailProvider: env.mailer,
		Auth:          AuthConfig{RefreshTTL: 7 * 24 * time.Hour, ResetURL: "http://localhost:3000/reset"},
		Clock:         env.clock.Now,
	}
	env.rebuild()
	return env
}

// rebuild пересобирает сервисы после подмены репозиториев
func (env *testEnv) rebuild() {
	env.services = NewServiceContainer(env.repos, env.deps)
}

func (env *testEnv) createUser(t *testing.T, emailAddr string, role models.UserRole) *models.User {
	t.Helper()
	hash, err := auth.HashPassword(testPassword)
	require.NoError(t, err)
	user := &models.User{
		FirstName:    "Test",
		LastName:     "User",
		Email:        emailAddr,
		PasswordHash: hash,
		Location:     "Sydney",
		Role:         role,
		IsActive:     true,
	}
	require.NoError(t, env.repos.User.Create(env.db, user))
	return user
}

func actorOf(u *models.User) auth.Actor {
	return auth.Actor{UserID: u.ID, Role: u.Role}
}

// createApartment пишет строку напрямую; mutate правит поля перед вставкой
func (env *testEnv) createApartment(t *testing.T, owner *models.User, mutate func(a *models.Apartment)) *models.Apartment {
	t.Helper()
	duration := 12
	apartment := &models.Apartment{
		RenterID:      owner.ID,
		Title:         "Sunny room in Newtown",
		Description:   "Bright room close to the station",
		Location:      "Newtown, Sydney",
		ApartmentType: "room",
		RentPerWeek:   350,
		StartDate:     time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC),
		DurationLen:   &duration,
		Keywords:      []string{"quiet", "furnished"},
		Images:        []string{"/uploads/apartments/1.jpg", "/uploads/apartments/2.jpg", "/uploads/apartments/3.jpg", "/uploads/apartments/4.jpg"},
		Status:        models.ApartmentStatusDraft,
		IsActive:      true,
	}
	if mutate != nil {
		mutate(apartment)
	}
	require.NoError(t, env.repos.Apartment.Create(env.db, apartment))
	return apartment
}

func (env *testEnv) reload(t *testing.T, id string) *models.Apartment {
	t.Helper()
	apartment, err := env.repos.Apartment.FindByID(env.db, id)
	require.NoError(t, err)
	return apartment
}

func (env *testEnv) outboxRows(t *testing.T, apartmentID string) []models.SearchOutbox {
	t.Helper()
	var rows []models.SearchOutbox
	require.NoError(t, env.db.Where("apartment_id = ?", apartmentID).Order("id ASC").Find(&rows).Error)
	return rows
}

// multipartImages собирает FileHeader-ы так же, как их отдает gin
func multipartImages(t *testing.T, names ...string) []*multipart.FileHeader {
	t.Helper()
	body := &bytes.Buffer{}
	w := multipart.NewWriter(body)
	for _, name := range names {
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="images"; filename="%s"`, name))
		h.Set("Content-Type", "image/jpeg")
		part, err := w.CreatePart(h)
		require.NoError(t, err)
		_, err = part.Write([]byte("fake-image-bytes"))
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())

	form, err := multipart.NewReader(body, w.Boundary()).ReadForm(1 << 20)
	require.NoError(t, err)
	return form.File["images"]
}

func intPtr(v int) *int       { return &v }
func strPtr(v string) *string { return &v }
func boolPtr(v bool) *bool    { return &v }
