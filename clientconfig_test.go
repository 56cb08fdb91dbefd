package tieba

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/geary0124/Tieba-Manager/config"
	"github.com/geary0124/Tieba-Manager/fidcache"
	"github.com/geary0124/Tieba-Manager/log"
)

func Test_ClientConfig_NewClientFromConfig(t *testing.T) {
	at := newAPITester(t)
	defer at.Close()
	dbPath := filepath.Join(t.TempDir(), "fid.db")

	cfg, err := config.Load([]byte(fmt.Sprintf(`
[Logging]
  Disable = true
[Account]
  BDUSS = "test-bduss"
  STOKEN = "test-stoken"
[Network]
  AppBaseURL = %q
  WebBaseURL = %q
  ReadTimeout = 2
[Cache]
  Path = %q
`, at.srv.URL, at.srv.URL, dbPath)))
	assert.NoError(t, err)

	c, err := NewClientFromConfig(cfg, log.Discard())
	assert.NoError(t, err)
	assert.Equal(t, time.Second*2, c.ReadTimeout)
	assert.Equal(t, "test-bduss", c.BDUSS)
	assert.True(t, c.Login(context.Background()))
	assert.Equal(t, uint64(52), c.GetFid(context.Background(), "golang"))
	assert.NoError(t, c.Close())

	// the cache file was closed and holds the id
	fc, err := fidcache.New(dbPath)
	assert.NoError(t, err)
	defer fc.Close()
	fid, ok := fc.Fid("golang")
	assert.True(t, ok)
	assert.Equal(t, uint64(52), fid)
}
