package services_test

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"sync/atomic"

	"taskboard/backend/internal/database"
	"taskboard/backend/internal/models"
	"taskboard/backend/internal/repositories"
	"taskboard/backend/internal/services"

	"github.com/gofrs/uuid"
	"github.com/stretchr/testify/suite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// serviceSuite gives every test a fresh in-memory database.
type serviceSuite struct {
	suite.Suite
	pool  *database.DatabasePool
	store *repositories.Store
	ctx   context.Context
}

func (suite *serviceSuite) SetupTest() {
	pool, err := database.NewMemoryPool("services_" + uuid.Must(uuid.NewV4()).String())
	suite.Require().NoError(err)
	suite.Require().NoError(repositories.AutoMigrate(pool.DB))

	suite.pool = pool
	suite.store = repositories.NewStore(pool.DB)
	suite.ctx = context.Background()
}

func (suite *serviceSuite) TearDownTest() {
	suite.pool.Close()
}

func (suite *serviceSuite) createUser(name string) *models.User {
	user := &models.User{Username: name, Email: name + "@example.com", Password: "hash"}
	suite.Require().NoError(suite.store.CreateUser(suite.ctx, user))
	return user
}

func (suite *serviceSuite) requireKind(err error, kind services.Kind) {
	suite.T().Helper()
	suite.Require().Error(err)
	suite.Equal(kind, services.KindOf(err), "unexpected error: %v", err)
}

// memoryListCache records invalidations so tests can assert on them.
// beforeSet, when set, runs ahead of every write outside the lock.
type memoryListCache struct {
	mu          sync.Mutex
	entries     map[uuid.UUID][]byte
	versions    map[uuid.UUID]int64
	invalidated []uuid.UUID
	gets        int
	broken      bool
	beforeSet   func()
}

func newMemoryListCache() *memoryListCache {
	return &memoryListCache{entries: map[uuid.UUID][]byte{}, versions: map[uuid.UUID]int64{}}
}

var errCacheDown = errors.New("cache down")

func (c *memoryListCache) Get(_ context.Context, userID uuid.UUID, dest interface{}) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gets++
	if c.broken {
		return false, errCacheDown
	}
	raw, ok := c.entries[userID]
	if !ok {
		return false, nil
	}
	return true, json.Unmarshal(raw, dest)
}

func (c *memoryListCache) Version(_ context.Context, userID uuid.UUID) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.broken {
		return 0, errCacheDown
	}
	return c.versions[userID], nil
}

func (c *memoryListCache) SetIfVersion(_ context.Context, userID uuid.UUID, version int64, value interface{}) (bool, error) {
	if c.beforeSet != nil {
		c.beforeSet()
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.broken {
		return false, errCacheDown
	}
	if c.versions[userID] != version {
		return false, nil
	}
	raw, err := json.Marshal(value)
	if err != nil {
		return false, err
	}
	c.entries[userID] = raw
	return true, nil
}

func (c *memoryListCache) Invalidate(_ context.Context, userIDs ...uuid.UUID) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.invalidated = append(c.invalidated, userIDs...)
	if c.broken {
		return errCacheDown
	}
	for _, id := range userIDs {
		delete(c.entries, id)
		c.versions[id]++
	}
	return nil
}

func (c *memoryListCache) cached(userID uuid.UUID) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.entries[userID]
	return ok
}

func (c *memoryListCache) wasInvalidated(userID uuid.UUID) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, id := range c.invalidated {
		if id == userID {
			return true
		}
	}
	return false
}

// insertFirst makes the next write of kind ("create" or "update") to table
// collide with row, which it inserts on the same transaction just before
// the write runs. The service's existence probe has already passed by then.
func (suite *serviceSuite) insertFirst(kind, table string, row interface{}) {
	var fired atomic.Bool
	collide := func(db *gorm.DB) {
		if db.Statement.Table != table || !fired.CompareAndSwap(false, true) {
			return
		}
		if err := db.Session(&gorm.Session{NewDB: true}).Omit(clause.Associations).Create(row).Error; err != nil {
			db.AddError(err)
		}
	}

	callbacks := suite.pool.DB.Callback()
	var err error
	switch kind {
	case "create":
		err = callbacks.Create().Before("gorm:create").Register("test:insert_first", collide)
	case "update":
		err = callbacks.Update().Before("gorm:update").Register("test:insert_first", collide)
	default:
		suite.FailNow("unknown write kind " + kind)
	}
	suite.Require().NoError(err)
}

func intPtr(v int) *int { return &v }

func strPtr(v string) *string { return &v }
