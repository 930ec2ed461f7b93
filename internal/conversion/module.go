// Package conversion provides the lead conversion bounded context: the
// conversion wizard sessions, the status watcher that opens them and the
// HTTP surface that drives them.
package conversion

import (
	"context"
	"fmt"
	"time"

	"loancrm_backend/internal/adapters"
	"loancrm_backend/internal/conversion/handler"
	"loancrm_backend/internal/conversion/ports"
	"loancrm_backend/internal/conversion/service"
	"loancrm_backend/internal/conversion/watcher"
	"loancrm_backend/internal/conversion/wizard"
	"loancrm_backend/internal/events"
	apphttp "loancrm_backend/internal/http"
	leadsvc "loancrm_backend/internal/leads/service"
	"loancrm_backend/internal/servicing"
	"loancrm_backend/platform/config"
	"loancrm_backend/platform/logger"
	"loancrm_backend/platform/validator"

	"github.com/redis/go-redis/v9"
)

const janitorInterval = time.Minute

// ModuleConfig combines the config interfaces the conversion module reads.
type ModuleConfig interface {
	config.ServicingConfig
	config.ConversionConfig
}

// Module is the conversion bounded context module implementing http.Module.
type Module struct {
	handler *handler.Handler
	service *service.Service
	watcher *watcher.Watcher
	log     *logger.Logger
}

// NewModule wires the wizard collaborators to the leads service and the
// servicing platform. A nil redisClient keeps watcher memory in process.
func NewModule(
	leads *leadsvc.Service,
	notifier ports.Notifier,
	eventBus events.Bus,
	val *validator.Validator,
	cfg ModuleConfig,
	redisClient *redis.Client,
	log *logger.Logger,
) (*Module, error) {
	rules, err := watcher.LoadRules(cfg.GetConversionRulesPath())
	if err != nil {
		return nil, fmt.Errorf("load conversion rules: %w", err)
	}

	records := adapters.NewLeadRecordAdapter(leads, val)
	remote := adapters.NewServicingConversionAdapter(servicing.NewClient(cfg, log), records)

	svc := service.New(wizard.Dependencies{
		Duplicates: remote,
		Executor:   remote,
		Updater:    records,
		Snapshots:  records,
		Notifier:   notifier,
		Log:        log,
	}, eventBus, log)

	var memory watcher.StatusMemory
	if redisClient != nil {
		memory = watcher.NewRedisStatusMemory(redisClient, cfg.GetWatcherMemoryTTL())
	} else {
		memory = watcher.NewInMemoryStatusMemory(cfg.GetWatcherMemoryTTL())
	}

	w := watcher.New(rules, memory, records, svc, log)
	w.Subscribe(eventBus)

	log.Info("conversion watcher armed",
		"triggerStatus", rules.TriggerStatus,
		"recordTypes", rules.RecordTypes,
		"redisMemory", redisClient != nil,
	)

	return &Module{
		handler: handler.New(svc, val),
		service: svc,
		watcher: w,
		log:     log,
	}, nil
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "conversion"
}

// Service returns the session service for external use.
func (m *Module) Service() *service.Service {
	return m.service
}

// RegisterRoutes mounts conversion routes on the provided router context.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	group := ctx.Protected.Group("/conversions")
	m.handler.RegisterRoutes(group, ctx.ConversionRateLimiter.RateLimit())
}

// Start runs the idle-session janitor until ctx is done.
func (m *Module) Start(ctx context.Context) {
	m.service.RunJanitor(ctx, janitorInterval)
}

// Compile-time check that Module implements http.Module
var _ apphttp.Module = (*Module)(nil)
