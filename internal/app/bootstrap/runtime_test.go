package bootstrap

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"

	"github.com/wolfman30/dental-quote-platform/internal/catalog"
	"github.com/wolfman30/dental-quote-platform/internal/clinic"
	appconfig "github.com/wolfman30/dental-quote-platform/internal/config"
	"github.com/wolfman30/dental-quote-platform/pkg/logging"
)

func TestBuildRedisClientDisabled(t *testing.T) {
	if client := BuildRedisClient(context.Background(), &appconfig.Config{}, logging.New("error"), true); client != nil {
		t.Fatalf("expected nil client without REDIS_ADDR")
	}
	if client := BuildRedisClient(context.Background(), nil, nil, false); client != nil {
		t.Fatalf("expected nil client for nil config")
	}
}

func TestBuildRedisClientVerifiesConnection(t *testing.T) {
	mr := miniredis.RunT(t)

	client := BuildRedisClient(context.Background(), &appconfig.Config{RedisAddr: mr.Addr()}, logging.New("error"), true)
	if client == nil {
		t.Fatalf("expected client for reachable redis")
	}
	defer client.Close()

	mr.Close()
	if client := BuildRedisClient(context.Background(), &appconfig.Config{RedisAddr: mr.Addr()}, logging.New("error"), true); client != nil {
		t.Fatalf("expected nil client when ping fails")
	}
}

func TestBuildPostgresPoolEmptyURLReturnsNil(t *testing.T) {
	if pool := BuildPostgresPool(context.Background(), "", logging.New("error")); pool != nil {
		t.Fatalf("expected nil pool for empty URL")
	}
	if pool := BuildPostgresPool(context.Background(), "::not a url::", logging.New("error")); pool != nil {
		t.Fatalf("expected nil pool for invalid URL")
	}
}

func TestBuildClinicRepositoryFallsBackToCatalog(t *testing.T) {
	cat := catalog.MustLoad()

	repo := BuildClinicRepository(nil, nil, cat, 0, logging.New("error"))
	if _, ok := repo.(*clinic.CatalogRepository); !ok {
		t.Fatalf("expected catalog repository, got %T", repo)
	}
	c, err := repo.Get(context.Background(), "maltepe-dental-clinic")
	if err != nil || c.ID != "maltepe-dental-clinic" {
		t.Fatalf("unexpected clinic %+v, err %v", c, err)
	}

	mr := miniredis.RunT(t)
	client := BuildRedisClient(context.Background(), &appconfig.Config{RedisAddr: mr.Addr()}, logging.New("error"), false)
	defer client.Close()
	repo = BuildClinicRepository(nil, client, cat, 0, logging.New("error"))
	if _, ok := repo.(*clinic.CachedRepository); !ok {
		t.Fatalf("expected cached repository, got %T", repo)
	}
}
