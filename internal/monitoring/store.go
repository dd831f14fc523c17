// Package monitoring holds the persisted per-installation monitoring state
// and the lifecycle controller for the device call-event source.
package monitoring

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// PermissionStatus reflects the device call-log permission.
type PermissionStatus string

const (
	PermissionChecking PermissionStatus = "checking"
	PermissionGranted  PermissionStatus = "granted"
	PermissionDenied   PermissionStatus = "denied"
)

// LifecyclePhase is the persisted monitoring lifecycle flag.
type LifecyclePhase string

const (
	PhaseStopped  LifecyclePhase = "stopped"
	PhaseStarting LifecyclePhase = "starting"
	PhaseActive   LifecyclePhase = "active"
	PhaseStopping LifecyclePhase = "stopping"
)

// runtimeTTL bounds how long transient flags (permission, lifecycle) outlive
// the process that wrote them. Settings and the ledger have no expiry.
const runtimeTTL = 24 * time.Hour

const (
	settingCooldownDays    = "cooldown_days"
	settingMinCallDuration = "min_call_duration_secs"
	runtimePermission      = "permission_status"
	runtimeLifecycle       = "lifecycle_phase"
)

// Defaults are applied when an installation has no stored setting.
type Defaults struct {
	CooldownDays        int
	MinCallDurationSecs int
}

// State is a read-only snapshot of an installation's monitoring state.
type State struct {
	InstallationID      string           `json:"installation_id"`
	Blacklist           []string         `json:"blacklist"`
	CooldownDays        int              `json:"cooldown_days"`
	MinCallDurationSecs int              `json:"min_call_duration_secs"`
	SentMessageLedger   map[string]int64 `json:"sent_message_ledger"`
	PermissionStatus    PermissionStatus `json:"permission_status"`
	LifecyclePhase      LifecyclePhase   `json:"lifecycle_phase"`
}

// Store persists monitoring state in Redis. The foreground API and the
// background pipeline run in separate processes, so every mutation is a
// field-scoped Redis operation (SADD, HSET, per-field keys) against the
// store's current value; whole-record replacement would let one side clobber
// the other's concurrent updates.
type Store struct {
	redis    *redis.Client
	defaults Defaults
}

func NewStore(redisClient *redis.Client, defaults Defaults) *Store {
	if redisClient == nil {
		return nil
	}
	return &Store{redis: redisClient, defaults: defaults}
}

func (s *Store) blacklistKey(installationID string) string {
	return fmt.Sprintf("monitoring:blacklist:%s", installationID)
}

func (s *Store) ledgerKey(installationID string) string {
	return fmt.Sprintf("monitoring:ledger:%s", installationID)
}

func (s *Store) settingsKey(installationID string) string {
	return fmt.Sprintf("monitoring:settings:%s", installationID)
}

func (s *Store) runtimeKey(installationID string) string {
	return fmt.Sprintf("monitoring:runtime:%s", installationID)
}

// AddToBlacklist records a number that must never trigger a prompt again.
func (s *Store) AddToBlacklist(ctx context.Context, installationID, number string) error {
	if err := s.redis.SAdd(ctx, s.blacklistKey(installationID), number).Err(); err != nil {
		return fmt.Errorf("monitoring: add to blacklist: %w", err)
	}
	return nil
}

// RemoveFromBlacklist drops a number from the blacklist. Only explicit user
// action in settings reaches this.
func (s *Store) RemoveFromBlacklist(ctx context.Context, installationID, number string) error {
	if err := s.redis.SRem(ctx, s.blacklistKey(installationID), number).Err(); err != nil {
		return fmt.Errorf("monitoring: remove from blacklist: %w", err)
	}
	return nil
}

func (s *Store) IsBlacklisted(ctx context.Context, installationID, number string) (bool, error) {
	member, err := s.redis.SIsMember(ctx, s.blacklistKey(installationID), number).Result()
	if err != nil {
		return false, fmt.Errorf("monitoring: check blacklist: %w", err)
	}
	return member, nil
}

func (s *Store) Blacklist(ctx context.Context, installationID string) ([]string, error) {
	members, err := s.redis.SMembers(ctx, s.blacklistKey(installationID)).Result()
	if err != nil {
		return nil, fmt.Errorf("monitoring: list blacklist: %w", err)
	}
	return members, nil
}

// RecordSentMessage upserts the last successful send time for a number.
func (s *Store) RecordSentMessage(ctx context.Context, installationID, number string, at time.Time) error {
	if err := s.redis.HSet(ctx, s.ledgerKey(installationID), number, at.UnixMilli()).Err(); err != nil {
		return fmt.Errorf("monitoring: record sent message: %w", err)
	}
	return nil
}

// LastSentMessage returns the last send time for a number, if any.
func (s *Store) LastSentMessage(ctx context.Context, installationID, number string) (time.Time, bool, error) {
	raw, err := s.redis.HGet(ctx, s.ledgerKey(installationID), number).Result()
	if err == redis.Nil {
		return time.Time{}, false, nil
	}
	if err != nil {
		return time.Time{}, false, fmt.Errorf("monitoring: get last sent: %w", err)
	}
	millis, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return time.Time{}, false, fmt.Errorf("monitoring: parse last sent: %w", err)
	}
	return time.UnixMilli(millis), true, nil
}

// WithinCooldown reports whether a number was messaged inside the cooldown
// window. The reachable pipeline records the ledger but does not suppress on
// it; this query exists for the settings surface and future enforcement.
func (s *Store) WithinCooldown(ctx context.Context, installationID, number string, now time.Time) (bool, error) {
	last, found, err := s.LastSentMessage(ctx, installationID, number)
	if err != nil || !found {
		return false, err
	}
	days, err := s.CooldownDays(ctx, installationID)
	if err != nil {
		return false, err
	}
	if days <= 0 {
		return false, nil
	}
	return now.Sub(last) < time.Duration(days)*24*time.Hour, nil
}

func (s *Store) SetCooldownDays(ctx context.Context, installationID string, days int) error {
	if days < 0 {
		return fmt.Errorf("monitoring: cooldown days must be >= 0")
	}
	if err := s.redis.HSet(ctx, s.settingsKey(installationID), settingCooldownDays, days).Err(); err != nil {
		return fmt.Errorf("monitoring: set cooldown days: %w", err)
	}
	return nil
}

func (s *Store) CooldownDays(ctx context.Context, installationID string) (int, error) {
	return s.intSetting(ctx, installationID, settingCooldownDays, s.defaults.CooldownDays)
}

func (s *Store) SetMinCallDuration(ctx context.Context, installationID string, seconds int) error {
	if seconds < 0 {
		return fmt.Errorf("monitoring: min call duration must be >= 0")
	}
	if err := s.redis.HSet(ctx, s.settingsKey(installationID), settingMinCallDuration, seconds).Err(); err != nil {
		return fmt.Errorf("monitoring: set min call duration: %w", err)
	}
	return nil
}

func (s *Store) MinCallDuration(ctx context.Context, installationID string) (int, error) {
	return s.intSetting(ctx, installationID, settingMinCallDuration, s.defaults.MinCallDurationSecs)
}

func (s *Store) intSetting(ctx context.Context, installationID, field string, fallback int) (int, error) {
	raw, err := s.redis.HGet(ctx, s.settingsKey(installationID), field).Result()
	if err == redis.Nil {
		return fallback, nil
	}
	if err != nil {
		return 0, fmt.Errorf("monitoring: get %s: %w", field, err)
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("monitoring: parse %s: %w", field, err)
	}
	return value, nil
}

func (s *Store) SetPermissionStatus(ctx context.Context, installationID string, status PermissionStatus) error {
	return s.setRuntime(ctx, installationID, runtimePermission, string(status))
}

func (s *Store) PermissionStatus(ctx context.Context, installationID string) (PermissionStatus, error) {
	raw, err := s.runtime(ctx, installationID, runtimePermission)
	if err != nil {
		return "", err
	}
	if raw == "" {
		return PermissionChecking, nil
	}
	return PermissionStatus(raw), nil
}

func (s *Store) SetLifecyclePhase(ctx context.Context, installationID string, phase LifecyclePhase) error {
	return s.setRuntime(ctx, installationID, runtimeLifecycle, string(phase))
}

func (s *Store) CurrentLifecyclePhase(ctx context.Context, installationID string) (LifecyclePhase, error) {
	raw, err := s.runtime(ctx, installationID, runtimeLifecycle)
	if err != nil {
		return "", err
	}
	if raw == "" {
		return PhaseStopped, nil
	}
	return LifecyclePhase(raw), nil
}

func (s *Store) setRuntime(ctx context.Context, installationID, field, value string) error {
	key := s.runtimeKey(installationID)
	if err := s.redis.HSet(ctx, key, field, value).Err(); err != nil {
		return fmt.Errorf("monitoring: set %s: %w", field, err)
	}
	if err := s.redis.Expire(ctx, key, runtimeTTL).Err(); err != nil {
		return fmt.Errorf("monitoring: expire runtime: %w", err)
	}
	return nil
}

func (s *Store) runtime(ctx context.Context, installationID, field string) (string, error) {
	raw, err := s.redis.HGet(ctx, s.runtimeKey(installationID), field).Result()
	if err == redis.Nil {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("monitoring: get %s: %w", field, err)
	}
	return raw, nil
}

// Snapshot assembles the full state for the settings surface.
func (s *Store) Snapshot(ctx context.Context, installationID string) (*State, error) {
	blacklist, err := s.Blacklist(ctx, installationID)
	if err != nil {
		return nil, err
	}
	cooldown, err := s.CooldownDays(ctx, installationID)
	if err != nil {
		return nil, err
	}
	minDuration, err := s.MinCallDuration(ctx, installationID)
	if err != nil {
		return nil, err
	}
	permission, err := s.PermissionStatus(ctx, installationID)
	if err != nil {
		return nil, err
	}
	phase, err := s.CurrentLifecyclePhase(ctx, installationID)
	if err != nil {
		return nil, err
	}

	ledgerRaw, err := s.redis.HGetAll(ctx, s.ledgerKey(installationID)).Result()
	if err != nil {
		return nil, fmt.Errorf("monitoring: read ledger: %w", err)
	}
	ledger := make(map[string]int64, len(ledgerRaw))
	for number, value := range ledgerRaw {
		millis, err := strconv.ParseInt(value, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("monitoring: parse ledger entry: %w", err)
		}
		ledger[number] = millis
	}

	if blacklist == nil {
		blacklist = []string{}
	}
	return &State{
		InstallationID:      installationID,
		Blacklist:           blacklist,
		CooldownDays:        cooldown,
		MinCallDurationSecs: minDuration,
		SentMessageLedger:   ledger,
		PermissionStatus:    permission,
		LifecyclePhase:      phase,
	}, nil
}
