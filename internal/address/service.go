package address

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/angelmondragon/storefront-backend/pkg/addressbook"
	"github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
)

const defaultCacheTTL = 24 * time.Hour

// Cache is the key-value surface used for directory lookups.
type Cache interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	CacheKey(parts ...string) string
}

// Description carries the human-readable names for a set of address codes.
type Description struct {
	ProvinceName string `json:"province_name,omitempty"`
	DistrictName string `json:"district_name,omitempty"`
	WardName     string `json:"ward_name,omitempty"`
}

// Format joins the names with the street line, skipping unknown parts.
func (d Description) Format(line string) string {
	parts := []string{}
	for _, p := range []string{line, d.WardName, d.DistrictName, d.ProvinceName} {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			parts = append(parts, trimmed)
		}
	}
	return strings.Join(parts, ", ")
}

type Service interface {
	Describe(ctx context.Context, provinceCode, districtCode int, wardCode string) (Description, error)
}

type service struct {
	directory addressbook.Directory
	cache     Cache
	ttl       time.Duration
	logg      *logger.Logger
}

// NewService wires the directory with an optional cache. A nil cache disables caching.
func NewService(directory addressbook.Directory, cache Cache, ttl time.Duration, logg *logger.Logger) Service {
	if ttl <= 0 {
		ttl = defaultCacheTTL
	}
	return &service{directory: directory, cache: cache, ttl: ttl, logg: logg}
}

func (s *service) Describe(ctx context.Context, provinceCode, districtCode int, wardCode string) (Description, error) {
	if s == nil || s.directory == nil {
		return Description{}, errors.New(errors.CodeDependency, "address directory unavailable")
	}
	var out Description

	if provinceCode > 0 {
		var provinces []addressbook.Province
		if err := s.cached(ctx, &provinces, func(ctx context.Context) (any, error) {
			return s.directory.Provinces(ctx)
		}, "address", "provinces"); err != nil {
			return Description{}, err
		}
		for _, p := range provinces {
			if p.ID == provinceCode {
				out.ProvinceName = p.Name
				break
			}
		}

		if districtCode > 0 {
			var districts []addressbook.District
			if err := s.cached(ctx, &districts, func(ctx context.Context) (any, error) {
				return s.directory.Districts(ctx, provinceCode)
			}, "address", "districts", strconv.Itoa(provinceCode)); err != nil {
				return Description{}, err
			}
			for _, d := range districts {
				if d.ID == districtCode {
					out.DistrictName = d.Name
					break
				}
			}
		}
	}

	if districtCode > 0 && strings.TrimSpace(wardCode) != "" {
		var wards []addressbook.Ward
		if err := s.cached(ctx, &wards, func(ctx context.Context) (any, error) {
			return s.directory.Wards(ctx, districtCode)
		}, "address", "wards", strconv.Itoa(districtCode)); err != nil {
			return Description{}, err
		}
		for _, w := range wards {
			if w.Code == wardCode {
				out.WardName = w.Name
				break
			}
		}
	}

	return out, nil
}

// cached reads through the cache. Cache failures fall back to the directory.
func (s *service) cached(ctx context.Context, dest any, load func(context.Context) (any, error), keyParts ...string) error {
	var key string
	if s.cache != nil {
		key = s.cache.CacheKey(keyParts...)
		raw, err := s.cache.Get(ctx, key)
		if err == nil && raw != "" {
			if jsonErr := json.Unmarshal([]byte(raw), dest); jsonErr == nil {
				return nil
			}
		}
	}

	value, err := load(ctx)
	if err != nil {
		return err
	}
	encoded, err := json.Marshal(value)
	if err != nil {
		return errors.Wrap(errors.CodeInternal, err, "encode directory lookup")
	}
	if err := json.Unmarshal(encoded, dest); err != nil {
		return errors.Wrap(errors.CodeInternal, err, "decode directory lookup")
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, key, string(encoded), s.ttl); err != nil && s.logg != nil {
			s.logg.Warn(s.logg.WithError(ctx, err), fmt.Sprintf("address cache write failed for %s", key))
		}
	}
	return nil
}
