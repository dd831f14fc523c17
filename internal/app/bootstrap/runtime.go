// Package bootstrap wires shared runtime dependencies for the API and
// worker binaries so both see identical construction logic.
package bootstrap

import (
	"context"
	"crypto/tls"
	"strings"

	"github.com/redis/go-redis/v9"

	appconfig "github.com/clientcheck/followup-platform/internal/config"
	"github.com/clientcheck/followup-platform/internal/dispatch"
	"github.com/clientcheck/followup-platform/internal/monitoring"
	"github.com/clientcheck/followup-platform/internal/notify"
	"github.com/clientcheck/followup-platform/internal/observability/metrics"
	"github.com/clientcheck/followup-platform/internal/platform"
	"github.com/clientcheck/followup-platform/pkg/logging"
)

// BuildRedisClient returns a configured Redis client or nil when disabled.
// When verify is true, a ping is issued and failures return nil.
func BuildRedisClient(ctx context.Context, cfg *appconfig.Config, logger *logging.Logger, verify bool) *redis.Client {
	if cfg == nil || strings.TrimSpace(cfg.RedisAddr) == "" {
		return nil
	}
	if logger == nil {
		logger = logging.Default()
	}
	if ctx == nil {
		ctx = context.Background()
	}

	redisOptions := &redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
	}
	if cfg.RedisTLS {
		redisOptions.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
	}
	client := redis.NewClient(redisOptions)
	if !verify {
		return client
	}
	if err := client.Ping(ctx).Err(); err != nil {
		logger.Warn("redis not available", "error", err)
		return nil
	}
	return client
}

// BuildMonitoringStore wires the Redis-backed monitoring state with the
// configured anti-spam defaults.
func BuildMonitoringStore(client *redis.Client, cfg *appconfig.Config) *monitoring.Store {
	if client == nil || cfg == nil {
		return nil
	}
	return monitoring.NewStore(client, monitoring.Defaults{
		CooldownDays:        cfg.DefaultCooldownDays,
		MinCallDurationSecs: cfg.DefaultMinCallDurationSecs,
	})
}

// BuildLifecycleManager wires per-installation lifecycle state machines over
// the device agent.
func BuildLifecycleManager(store *monitoring.Store, cfg *appconfig.Config, logger *logging.Logger) *monitoring.LifecycleManager {
	if cfg == nil || strings.TrimSpace(cfg.DeviceAgentBaseURL) == "" {
		return nil
	}
	baseURL := cfg.DeviceAgentBaseURL
	factory := func(installationID string) (monitoring.PermissionClient, monitoring.EventSource, monitoring.SettingsPrompter) {
		agent := monitoring.NewAgentClient(baseURL, installationID, logger)
		return agent, agent, agent
	}
	return monitoring.NewLifecycleManager(store, factory, logger)
}

// BuildPlatformClient wires the template/audit REST client, or nil when the
// platform backend is not configured.
func BuildPlatformClient(cfg *appconfig.Config, logger *logging.Logger) *platform.Client {
	if cfg == nil || strings.TrimSpace(cfg.PlatformBaseURL) == "" {
		if logger != nil {
			logger.Warn("platform backend disabled: PLATFORM_BASE_URL not set")
		}
		return nil
	}
	client, err := platform.New(platform.Config{
		BaseURL:  cfg.PlatformBaseURL,
		APIToken: cfg.PlatformAPIToken,
		Timeout:  cfg.PlatformTimeout,
		Logger:   logger,
	})
	if err != nil {
		if logger != nil {
			logger.Warn("platform backend disabled", "error", err)
		}
		return nil
	}
	return client
}

// BuildNotifyGateway wires the decision-prompt gateway over the push
// subsystem, or nil when push is not configured.
func BuildNotifyGateway(cfg *appconfig.Config, m *metrics.FollowupMetrics, logger *logging.Logger) *notify.Gateway {
	if cfg == nil || strings.TrimSpace(cfg.PushBaseURL) == "" {
		if logger != nil {
			logger.Warn("decision prompts disabled: PUSH_BASE_URL not set")
		}
		return nil
	}
	pusher := notify.NewPushClient(cfg.PushBaseURL, cfg.PushAPIToken, logger)
	return notify.NewGateway(pusher, cfg.PushChannel, m, logger)
}

// BuildDispatcher wires outbound message dispatch through the device agent.
func BuildDispatcher(cfg *appconfig.Config, m *metrics.FollowupMetrics, logger *logging.Logger) *dispatch.Dispatcher {
	if cfg == nil {
		return nil
	}
	opener := dispatch.NewAgentLinkOpener(cfg.DeviceAgentBaseURL, logger)
	return dispatch.NewDispatcher(opener, m, logger)
}
