package application

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"gaint-shopify-connector/internal/domain"
	"gaint-shopify-connector/internal/ports"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const snapshotWriteTimeout = 3 * time.Second

// ActionResult is what a user action returns: the view after the transition and the
// one-shot toast it produced, if any.
type ActionResult struct {
	View  domain.SettingsView `json:"view"`
	Toast string              `json:"toast,omitempty"`
}

// Orchestrator owns the state of one admin session and applies user actions to it.
// All state transitions happen under mu; snapshot writes happen after it is released.
type Orchestrator struct {
	mu sync.Mutex

	session  domain.AdminSession
	profiles *ShopProfileService
	channels *ChannelService
	orders   *OrderService

	notifier  ports.Notifier
	snapshots ports.SessionSnapshotStore
	metrics   ports.MetricsRecorder
	logger    zerolog.Logger

	// initMu serializes profile loads so concurrent page loads share one fetch
	initMu sync.Mutex

	shop           *domain.ShopProfile
	form           domain.ChannelForm
	settings       domain.SyncSettings
	errs           domain.ViewErrors
	channelDetails json.RawMessage
	modal          *domain.Modal

	// validationGen increases with every ValidateChannel call; only the newest
	// response is applied.
	validationGen uint64

	// snapshotSeq numbers views as they are taken; saveMu and savedSeq keep an older
	// view from overwriting a newer one in the store.
	snapshotSeq uint64
	saveMu      sync.Mutex
	savedSeq    uint64

	// ctx lives as long as the session; cancelling it aborts in-flight calls.
	ctx    context.Context
	cancel context.CancelFunc
	ended  bool
}

type pendingSnapshot struct {
	seq  uint64
	view domain.SettingsView
}

// OrchestratorDeps groups the collaborators shared by every session
type OrchestratorDeps struct {
	Profiles  *ShopProfileService
	Channels  *ChannelService
	Orders    *OrderService
	Notifier  ports.Notifier
	Snapshots ports.SessionSnapshotStore
	Metrics   ports.MetricsRecorder
	Logger    zerolog.Logger
}

// NewOrchestrator creates the state for a new session. defaultChannelID prefills the form.
func NewOrchestrator(session domain.AdminSession, deps OrchestratorDeps, defaultChannelID string) *Orchestrator {
	ctx, cancel := context.WithCancel(context.Background())
	return &Orchestrator{
		session:   session,
		profiles:  deps.Profiles,
		channels:  deps.Channels,
		orders:    deps.Orders,
		notifier:  deps.Notifier,
		snapshots: deps.Snapshots,
		metrics:   deps.Metrics,
		logger: deps.Logger.With().
			Str("sessionId", session.ID).
			Str("shop", session.Shop).
			Logger(),
		form:     domain.ChannelForm{ChannelID: defaultChannelID},
		settings: domain.NewSyncSettings(),
		ctx:      ctx,
		cancel:   cancel,
	}
}

// Session returns the admin session this orchestrator serves
func (o *Orchestrator) Session() domain.AdminSession {
	return o.session
}

// Restore loads a saved view. A restored shop profile is not fetched again; a
// restored load failure is retried by the next Init.
func (o *Orchestrator) Restore(view *domain.SettingsView) {
	o.mu.Lock()
	defer o.mu.Unlock()

	o.shop = view.Shop
	o.form = view.Form
	o.settings = view.SyncSettings
	o.errs = view.Errors
	o.channelDetails = view.ChannelDetails
	o.modal = view.Modal
}

// Init fetches the shop profile unless it is already loaded. A failed fetch leaves
// shopError set and is retried on the next call.
func (o *Orchestrator) Init(ctx context.Context) domain.SettingsView {
	o.initMu.Lock()
	defer o.initMu.Unlock()

	o.mu.Lock()
	loaded := o.shop != nil || o.ended
	o.mu.Unlock()
	if loaded {
		return o.View()
	}

	opCtx, done := o.Scope(ctx)
	profile, err := o.profiles.FetchShopProfile(opCtx)
	done()

	_, _ = o.update(func() (ActionResult, bool, error) {
		if err != nil {
			o.errs.ShopError = domain.UserMessageOf(err, domain.MsgShopLoadFailed)
		} else {
			o.shop = profile
			o.errs.ShopError = ""
		}
		return ActionResult{}, true, nil
	})
	return o.View()
}

// ValidateChannel validates the channel with the partner and applies the outcome. The
// returned error is already reflected in the view's apiError, except for
// ErrSuperseded and ErrSessionEnded which leave the view untouched.
func (o *Orchestrator) ValidateChannel(ctx context.Context, channelID, channelName string) (ActionResult, error) {
	var (
		gen     uint64
		profile *domain.ShopProfile
		form    domain.ChannelForm
	)
	if _, err := o.update(func() (ActionResult, bool, error) {
		o.form = domain.ChannelForm{ChannelID: channelID, ChannelName: channelName}
		o.errs.APIError = ""
		o.validationGen++
		gen, profile, form = o.validationGen, o.shop, o.form
		return ActionResult{}, false, nil
	}); err != nil {
		return ActionResult{}, err
	}

	opCtx, done := o.Scope(ctx)
	details, err := o.channels.Validate(opCtx, form, profile)
	done()

	result, updateErr := o.update(func() (ActionResult, bool, error) {
		if gen != o.validationGen {
			o.logger.Debug().Uint64("generation", gen).Uint64("latest", o.validationGen).Msg("Discarding superseded validation result")
			return ActionResult{View: o.viewLocked()}, false, domain.ErrSuperseded
		}

		var result ActionResult
		if err != nil {
			o.errs.APIError = domain.UserMessageOf(err, domain.MsgPartnerUnreachable)
		} else {
			o.channelDetails = details
			o.errs.APIError = ""
			o.settings = o.settings.UnlockOnValidation()
			result.Toast = o.notifyLocked(domain.ToastChannelValidated)
		}
		result.View = o.viewLocked()
		return result, true, err
	})
	if errors.Is(updateErr, domain.ErrSessionEnded) {
		o.logger.Debug().Msg("Discarding validation result for ended session")
	}
	return result, updateErr
}

// SetToggle changes one sync toggle. GateLocked is reported in the view's toggleError;
// ErrInvalidToggle leaves the view unchanged.
func (o *Orchestrator) SetToggle(field domain.ToggleField, value domain.ToggleState) (ActionResult, error) {
	return o.update(func() (ActionResult, bool, error) {
		next, err := o.settings.SetToggle(field, value)
		if err != nil {
			var locked *domain.GateLocked
			if !errors.As(err, &locked) {
				return ActionResult{View: o.viewLocked()}, false, err
			}
			o.metrics.IncGateRejection(field)
			o.errs.ToggleError = locked.UserMessage()
			return ActionResult{View: o.viewLocked()}, true, err
		}

		o.settings = next
		o.errs.ToggleError = ""
		return ActionResult{View: o.viewLocked()}, true, nil
	})
}

// TriggerOrderSync is a placeholder: it announces that syncing is not available and
// opens the sync modal. No orders are read or written.
func (o *Orchestrator) TriggerOrderSync() (ActionResult, error) {
	return o.update(func() (ActionResult, bool, error) {
		toast := o.notifyLocked(domain.ToastSyncNotImplemented)
		modal := domain.OrderSyncModal
		o.modal = &modal
		return ActionResult{View: o.viewLocked(), Toast: toast}, true, nil
	})
}

// CloseModal dismisses the open modal, if any
func (o *Orchestrator) CloseModal() (ActionResult, error) {
	return o.update(func() (ActionResult, bool, error) {
		o.modal = nil
		return ActionResult{View: o.viewLocked()}, true, nil
	})
}

// ListOrders reads the first page of orders. It does not touch session state.
func (o *Orchestrator) ListOrders(ctx context.Context, limit int) ([]domain.OrderRecord, error) {
	if o.Ended() {
		return nil, domain.ErrSessionEnded
	}
	opCtx, done := o.Scope(ctx)
	defer done()
	return o.orders.FetchOrders(opCtx, limit)
}

// View returns a copy of the current view state
func (o *Orchestrator) View() domain.SettingsView {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.viewLocked()
}

// End closes the session and cancels every call still in flight. Results arriving
// afterwards are dropped.
func (o *Orchestrator) End() {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.ended {
		return
	}
	o.ended = true
	o.cancel()
}

// Ended reports whether End has been called
func (o *Orchestrator) Ended() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.ended
}

// Scope derives a context bound to the session: it carries the admin session and is
// cancelled when either ctx or the session ends.
func (o *Orchestrator) Scope(ctx context.Context) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(domain.WithAdminSession(ctx, o.session))
	stop := context.AfterFunc(o.ctx, cancel)
	if o.ctx.Err() != nil {
		cancel()
	}
	return ctx, func() {
		stop()
		cancel()
	}
}

func (o *Orchestrator) viewLocked() domain.SettingsView {
	view := domain.SettingsView{
		SessionID:      o.session.ID,
		ShopDomain:     o.session.Shop,
		Shop:           o.shop,
		Form:           o.form,
		SyncSettings:   o.settings,
		Errors:         o.errs,
		ChannelDetails: o.channelDetails,
	}
	if o.modal != nil {
		modal := *o.modal
		view.Modal = &modal
	}
	return view
}

func (o *Orchestrator) notifyLocked(message string) string {
	if o.notifier != nil {
		o.notifier.Publish(&domain.Notification{
			ID:        uuid.NewString(),
			SessionID: o.session.ID,
			Message:   message,
			CreatedAt: time.Now().UTC(),
		})
	}
	return message
}

// update applies fn under the lock. When fn reports a change, the resulting view is
// stored after the lock is released.
func (o *Orchestrator) update(fn func() (ActionResult, bool, error)) (ActionResult, error) {
	o.mu.Lock()
	if o.ended {
		o.mu.Unlock()
		return ActionResult{}, domain.ErrSessionEnded
	}
	result, changed, err := fn()
	var snap *pendingSnapshot
	if changed {
		snap = o.snapshotLocked()
	}
	o.mu.Unlock()

	o.save(snap)
	return result, err
}

func (o *Orchestrator) snapshotLocked() *pendingSnapshot {
	if o.snapshots == nil {
		return nil
	}
	o.snapshotSeq++
	return &pendingSnapshot{seq: o.snapshotSeq, view: o.viewLocked()}
}

// save stores a snapshot of the view. Failures are logged; the session keeps running
// on its in-memory state.
func (o *Orchestrator) save(snap *pendingSnapshot) {
	if snap == nil {
		return
	}
	o.saveMu.Lock()
	defer o.saveMu.Unlock()
	if snap.seq <= o.savedSeq {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), snapshotWriteTimeout)
	defer cancel()
	if err := o.snapshots.Save(ctx, &snap.view); err != nil {
		o.logger.Warn().Err(err).Msg("Failed to save session snapshot")
		return
	}
	o.savedSeq = snap.seq
}
