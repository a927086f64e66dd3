package caching

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"stocksense/internal/models"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const defaultTTL = 5 * time.Minute

// CacheService fronts the hot read paths: the active policy per pair and the
// latest ABC snapshot per scope. Misses and redis failures both fall through
// to the database; a cache error is never surfaced to callers.
type CacheService interface {
	GetActivePolicy(ctx context.Context, itemID, locationID uuid.UUID) (*models.InventoryPolicy, bool)
	SetActivePolicy(ctx context.Context, policy *models.InventoryPolicy)
	InvalidateActivePolicy(ctx context.Context, itemID, locationID uuid.UUID)

	GetLatestABC(ctx context.Context, locationID *uuid.UUID, category *string) (*models.ABCAnalysis, bool)
	SetLatestABC(ctx context.Context, locationID *uuid.UUID, category *string, analysis *models.ABCAnalysis)
	InvalidateLatestABC(ctx context.Context, locationID *uuid.UUID, category *string)
}

type cacheService struct {
	client *redis.Client
	ttl    time.Duration
}

func NewCacheService(client *redis.Client) CacheService {
	return &cacheService{client: client, ttl: defaultTTL}
}

func policyKey(itemID, locationID uuid.UUID) string {
	return fmt.Sprintf("stocksense:policy:active:%s:%s", itemID, locationID)
}

func abcKey(locationID *uuid.UUID, category *string) string {
	loc, cat := "all", "all"
	if locationID != nil {
		loc = locationID.String()
	}
	if category != nil {
		cat = *category
	}
	return fmt.Sprintf("stocksense:abc:latest:%s:%s", loc, cat)
}

func (c *cacheService) get(ctx context.Context, key string, dest any) bool {
	data, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		if err != redis.Nil {
			log.Printf("cache: get %s failed: %v", key, err)
		}
		return false
	}
	if err := json.Unmarshal(data, dest); err != nil {
		log.Printf("cache: unmarshal %s failed: %v", key, err)
		return false
	}
	return true
}

func (c *cacheService) set(ctx context.Context, key string, value any) {
	data, err := json.Marshal(value)
	if err != nil {
		log.Printf("cache: marshal %s failed: %v", key, err)
		return
	}
	if err := c.client.Set(ctx, key, data, c.ttl).Err(); err != nil {
		log.Printf("cache: set %s failed: %v", key, err)
	}
}

func (c *cacheService) invalidate(ctx context.Context, key string) {
	if err := c.client.Del(ctx, key).Err(); err != nil {
		log.Printf("cache: del %s failed: %v", key, err)
	}
}

func (c *cacheService) GetActivePolicy(ctx context.Context, itemID, locationID uuid.UUID) (*models.InventoryPolicy, bool) {
	policy := &models.InventoryPolicy{}
	if !c.get(ctx, policyKey(itemID, locationID), policy) {
		return nil, false
	}
	return policy, true
}

func (c *cacheService) SetActivePolicy(ctx context.Context, policy *models.InventoryPolicy) {
	c.set(ctx, policyKey(policy.ItemID, policy.LocationID), policy)
}

func (c *cacheService) InvalidateActivePolicy(ctx context.Context, itemID, locationID uuid.UUID) {
	c.invalidate(ctx, policyKey(itemID, locationID))
}

func (c *cacheService) GetLatestABC(ctx context.Context, locationID *uuid.UUID, category *string) (*models.ABCAnalysis, bool) {
	analysis := &models.ABCAnalysis{}
	if !c.get(ctx, abcKey(locationID, category), analysis) {
		return nil, false
	}
	return analysis, true
}

func (c *cacheService) SetLatestABC(ctx context.Context, locationID *uuid.UUID, category *string, analysis *models.ABCAnalysis) {
	c.set(ctx, abcKey(locationID, category), analysis)
}

func (c *cacheService) InvalidateLatestABC(ctx context.Context, locationID *uuid.UUID, category *string) {
	c.invalidate(ctx, abcKey(locationID, category))
}
