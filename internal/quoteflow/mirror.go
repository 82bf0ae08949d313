package quoteflow

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/wolfman30/dental-quote-platform/internal/pricing"
)

// Session mirror field names.
const (
	FieldSelectedClinicID = "selected_clinic_id"
	FieldClinicID         = "clinic_id"
	FieldSpecialOffer     = "pendingSpecialOffer"
	FieldPackage          = "pendingPackage"
	FieldPromoClinicID    = "pendingPromoCodeClinicId"
	FieldPackageData      = "pendingPackageData"
	FieldTreatmentPlan    = "treatmentPlanData"
)

// Mirror is a best-effort copy of flow state in a session store. It is
// never the source of truth.
type Mirror interface {
	Save(ctx context.Context, sessionID string, st State) error
	LoadPending(ctx context.Context, sessionID string) (Pending, error)
	LoadTreatmentPlan(ctx context.Context, sessionID string) ([]pricing.LineItem, error)
	Clear(ctx context.Context, sessionID string) error
}

// RedisMirror stores each session as a Redis hash.
type RedisMirror struct {
	redis *redis.Client
	ttl   time.Duration
}

// NewRedisMirror creates a mirror whose keys expire after ttl of inactivity.
func NewRedisMirror(client *redis.Client, ttl time.Duration) *RedisMirror {
	if client == nil {
		panic("quoteflow: redis client cannot be nil")
	}
	return &RedisMirror{redis: client, ttl: ttl}
}

func (m *RedisMirror) key(sessionID string) string {
	return fmt.Sprintf("quoteflow:session:%s", sessionID)
}

// Save overwrites the session hash with st. Concurrent saves are last-write-wins.
func (m *RedisMirror) Save(ctx context.Context, sessionID string, st State) error {
	fields, err := mirrorFields(st)
	if err != nil {
		return err
	}
	key := m.key(sessionID)
	_, err = m.redis.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, key)
		if len(fields) > 0 {
			pipe.HSet(ctx, key, fields)
			if m.ttl > 0 {
				pipe.Expire(ctx, key, m.ttl)
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("quoteflow: save session: %w", err)
	}
	return nil
}

func mirrorFields(st State) (map[string]any, error) {
	fields := map[string]any{}
	if st.SelectedClinicID != "" {
		fields[FieldSelectedClinicID] = st.SelectedClinicID
		fields[FieldClinicID] = st.SelectedClinicID
	}
	if st.SpecialOffer != nil {
		data, err := json.Marshal(st.SpecialOffer)
		if err != nil {
			return nil, fmt.Errorf("quoteflow: marshal special offer: %w", err)
		}
		fields[FieldSpecialOffer] = data
	}
	if st.PackageData != nil {
		data, err := json.Marshal(st.PackageData)
		if err != nil {
			return nil, fmt.Errorf("quoteflow: marshal package: %w", err)
		}
		fields[FieldPackage] = data
		if deal := st.PackageDeal(); deal != nil {
			dealData, err := json.Marshal(deal)
			if err != nil {
				return nil, fmt.Errorf("quoteflow: marshal package deal: %w", err)
			}
			fields[FieldPackageData] = dealData
		}
	}
	if st.PromoTokenData != nil && st.PromoTokenData.ClinicID != "" {
		fields[FieldPromoClinicID] = st.PromoTokenData.ClinicID
	}
	if len(st.TreatmentData) > 0 {
		data, err := json.Marshal(st.TreatmentData)
		if err != nil {
			return nil, fmt.Errorf("quoteflow: marshal treatment plan: %w", err)
		}
		fields[FieldTreatmentPlan] = data
	}
	return fields, nil
}

// LoadPending reads the values a fresh flow may fall back on. A missing
// session yields an empty Pending. Malformed JSON fields are skipped.
func (m *RedisMirror) LoadPending(ctx context.Context, sessionID string) (Pending, error) {
	values, err := m.redis.HGetAll(ctx, m.key(sessionID)).Result()
	if err != nil {
		return Pending{}, fmt.Errorf("quoteflow: load session: %w", err)
	}

	p := Pending{
		SelectedClinicID: values[FieldSelectedClinicID],
		PromoClinicID:    values[FieldPromoClinicID],
	}
	if p.SelectedClinicID == "" {
		p.SelectedClinicID = values[FieldClinicID]
	}
	if raw := values[FieldSpecialOffer]; raw != "" {
		var offer SpecialOffer
		if json.Unmarshal([]byte(raw), &offer) == nil && offer.ID != "" {
			p.SpecialOffer = &offer
		}
	}
	if raw := values[FieldPackage]; raw != "" {
		var pkg PackageData
		if json.Unmarshal([]byte(raw), &pkg) == nil && pkg.ID != "" {
			p.Package = &pkg
		}
	}
	return p, nil
}

// LoadTreatmentPlan returns the mirrored treatment plan, if any.
func (m *RedisMirror) LoadTreatmentPlan(ctx context.Context, sessionID string) ([]pricing.LineItem, error) {
	raw, err := m.redis.HGet(ctx, m.key(sessionID), FieldTreatmentPlan).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("quoteflow: load treatment plan: %w", err)
	}
	var lines []pricing.LineItem
	if err := json.Unmarshal([]byte(raw), &lines); err != nil {
		return nil, fmt.Errorf("quoteflow: unmarshal treatment plan: %w", err)
	}
	return lines, nil
}

// Clear removes the session hash.
func (m *RedisMirror) Clear(ctx context.Context, sessionID string) error {
	if err := m.redis.Del(ctx, m.key(sessionID)).Err(); err != nil {
		return fmt.Errorf("quoteflow: clear session: %w", err)
	}
	return nil
}
