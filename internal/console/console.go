package console

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/kursadbilgin/dispatch-console/internal/backend"
	"github.com/kursadbilgin/dispatch-console/internal/domain"
	"github.com/kursadbilgin/dispatch-console/internal/observability"
	"go.uber.org/zap"
)

const defaultRefreshInterval = 30 * time.Second

// Load triggers, also used as metric labels.
const (
	TriggerInitial = "initial"
	TriggerManual  = "manual"
	TriggerTimer   = "timer"
	TriggerFilter  = "filter"
	TriggerCreate  = "create"
	TriggerCancel  = "cancel"
)

const (
	loadErrorText      = "Failed to load notifications"
	createdText        = "Notification created"
	cancelledText      = "Notification cancelled"
	createFailedPrefix = "Failed to create notification: "
	cancelFailedPrefix = "Failed to cancel notification: "
	detailFailedPrefix = "Failed to load notification details: "
)

// ListState is the state of the notification list.
type ListState string

const (
	StateIdle      ListState = "idle"
	StateLoading   ListState = "loading"
	StateLoaded    ListState = "loaded"
	StateLoadError ListState = "load_error"
)

// NotificationAPI is the backend surface the console drives.
type NotificationAPI interface {
	List(ctx context.Context) ([]domain.Notification, error)
	Get(ctx context.Context, id string) (*domain.Notification, error)
	Create(ctx context.Context, req domain.CreateNotification) (*domain.Notification, error)
	Cancel(ctx context.Context, id string) error
}

var _ NotificationAPI = (*backend.Client)(nil)

type Options struct {
	RefreshInterval time.Duration
	BannerTTL       time.Duration
	Location        *time.Location
	Logger          *zap.Logger
	Metrics         *observability.Metrics
	Now             func() time.Time
}

func (o Options) withDefaults() Options {
	if o.RefreshInterval <= 0 {
		o.RefreshInterval = defaultRefreshInterval
	}
	if o.BannerTTL <= 0 {
		o.BannerTTL = defaultBannerTTL
	}
	if o.Location == nil {
		o.Location = time.Local
	}
	if o.Logger == nil {
		o.Logger = zap.NewNop()
	}
	if o.Now == nil {
		o.Now = time.Now
	}
	return o
}

// View is a render-ready snapshot of a console.
type View struct {
	SessionID       string
	Filter          domain.Filter
	State           ListState
	Loading         bool
	Notifications   []domain.Notification
	Total           int
	Empty           bool
	ListError       string
	Banners         []Banner
	Details         *domain.Notification
	Draft           CreateForm
	MinSendAt       time.Time
	Location        *time.Location
	RefreshInterval time.Duration
	GeneratedAt     time.Time
}

// Console is the state of one operator session: the loaded list, the active filter,
// the details modal and the create form draft.
type Console struct {
	sessionID string
	api       NotificationAPI
	banners   BannerStore
	validate  *validator.Validate
	opts      Options

	mu            sync.Mutex
	state         ListState
	loading       bool
	latestLoad    uint64
	notifications []domain.Notification
	filter        domain.Filter
	listErr       string
	details       *domain.Notification
	draft         CreateForm
	lastActive    time.Time

	primed      bool
	started     bool
	stopRefresh context.CancelFunc
	refreshDone chan struct{}
}

func New(sessionID string, api NotificationAPI, banners BannerStore, opts Options) (*Console, error) {
	if strings.TrimSpace(sessionID) == "" {
		return nil, fmt.Errorf("%w: session id is required", domain.ErrValidation)
	}
	if api == nil {
		return nil, fmt.Errorf("%w: notification api is required", domain.ErrValidation)
	}
	if banners == nil {
		banners = NewMemoryBannerStore()
	}
	opts = opts.withDefaults()

	return &Console{
		sessionID:  sessionID,
		api:        api,
		banners:    banners,
		validate:   newFormValidator(),
		opts:       opts,
		state:      StateIdle,
		filter:     domain.FilterAll,
		lastActive: opts.Now(),
	}, nil
}

func (c *Console) SessionID() string { return c.sessionID }

// Prime performs the first list load without starting the refresher. Calls after the
// first are no-ops.
func (c *Console) Prime(ctx context.Context) error {
	c.mu.Lock()
	if c.primed {
		c.mu.Unlock()
		return nil
	}
	c.primed = true
	c.mu.Unlock()

	return c.load(ctx, TriggerInitial)
}

// Initialize primes the console and starts the periodic refresher. Calls after the
// first are no-ops.
func (c *Console) Initialize(ctx context.Context) error {
	err := c.Prime(ctx)
	c.startRefresher(ctx)
	return err
}

// Refreshing reports whether the periodic refresher is running.
func (c *Console) Refreshing() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stopRefresh != nil
}

func (c *Console) startRefresher(ctx context.Context) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.started {
		return
	}
	c.started = true

	refreshCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	c.stopRefresh = cancel
	c.refreshDone = make(chan struct{})
	go c.runRefresher(refreshCtx)
}

// Load reloads the list on operator request.
func (c *Console) Load(ctx context.Context) error {
	c.touch()
	return c.load(ctx, TriggerManual)
}

// SetFilter stores the filter and reloads the list.
func (c *Console) SetFilter(ctx context.Context, raw string) error {
	c.touch()
	filter, err := domain.ParseFilterFromString(raw)
	if err != nil {
		return err
	}

	c.mu.Lock()
	c.filter = filter
	c.mu.Unlock()

	return c.load(ctx, TriggerFilter)
}

// Create submits the form. On failure the form is kept as the draft and an error banner
// is shown; on success the draft is cleared and the list is reloaded.
func (c *Console) Create(ctx context.Context, form CreateForm) error {
	c.touch()
	logger := c.log(ctx)

	req, err := buildCreateRequest(c.validate, form, c.opts.Now(), c.opts.Location)
	if err != nil {
		c.keepDraft(form)
		c.pushBanner(ctx, BannerError, createFailedPrefix+validationDetail(err))
		return err
	}

	created, err := c.api.Create(ctx, req)
	if err != nil {
		logger.Warn("create notification failed", zap.Error(err))
		c.keepDraft(form)
		c.pushBanner(ctx, BannerError, createFailedPrefix+backend.Detail(err))
		return err
	}

	c.keepDraft(CreateForm{})
	if created != nil {
		c.log(observability.WithNotificationID(ctx, created.ID)).Info("notification created")
	}
	c.pushBanner(ctx, BannerSuccess, createdText)

	if err := c.load(ctx, TriggerCreate); err != nil {
		logger.Warn("reload after create failed", zap.Error(err))
	}
	return nil
}

// ShowDetails fetches one notification and opens the details modal.
func (c *Console) ShowDetails(ctx context.Context, id string) error {
	c.touch()
	ctx = observability.WithNotificationID(ctx, id)

	n, err := c.api.Get(ctx, id)
	if err != nil {
		c.log(ctx).Warn("load details failed", zap.Error(err))
		c.pushBanner(ctx, BannerError, detailFailedPrefix+backend.Detail(err))
		return err
	}

	c.mu.Lock()
	c.details = n
	c.mu.Unlock()
	return nil
}

func (c *Console) CloseDetails() {
	c.touch()
	c.mu.Lock()
	c.details = nil
	c.mu.Unlock()
}

// Cancel asks confirmer first. A declined confirmation issues no request.
func (c *Console) Cancel(ctx context.Context, id string, confirmer Confirmer) error {
	c.touch()
	ctx = observability.WithNotificationID(ctx, id)
	logger := c.log(ctx)

	if confirmer == nil || !confirmer.Confirm(CancelPrompt) {
		logger.Debug("cancel declined")
		return nil
	}

	if err := c.api.Cancel(ctx, id); err != nil {
		logger.Warn("cancel notification failed", zap.Error(err))
		c.pushBanner(ctx, BannerError, cancelFailedPrefix+backend.Detail(err))
		return err
	}

	logger.Info("notification cancelled")
	c.pushBanner(ctx, BannerSuccess, cancelledText)

	if err := c.load(ctx, TriggerCancel); err != nil {
		logger.Warn("reload after cancel failed", zap.Error(err))
	}
	return nil
}

// MinSendAt is the earliest send time the create form accepts right now.
func (c *Console) MinSendAt() time.Time {
	return MinSendAt(c.opts.Now(), c.opts.Location)
}

func (c *Console) View(ctx context.Context) View {
	c.touch()
	now := c.opts.Now()

	banners, err := c.banners.Active(ctx, c.sessionID, now)
	if err != nil {
		c.log(ctx).Warn("read banners failed", zap.Error(err))
		banners = nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	view := View{
		SessionID:       c.sessionID,
		Filter:          c.filter,
		State:           c.state,
		Loading:         c.loading,
		ListError:       c.listErr,
		Banners:         banners,
		Draft:           c.draft,
		MinSendAt:       MinSendAt(now, c.opts.Location),
		Location:        c.opts.Location,
		RefreshInterval: c.opts.RefreshInterval,
		GeneratedAt:     now,
	}
	if c.details != nil {
		details := *c.details
		view.Details = &details
	}
	if c.listErr == "" {
		view.Notifications = c.filter.Apply(c.notifications)
		view.Total = len(c.notifications)
		view.Empty = c.state == StateLoaded && len(view.Notifications) == 0
	}
	return view
}

// LastActive reports when the operator last touched this console.
func (c *Console) LastActive() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastActive
}

// Close stops the refresher and waits for it to exit. A closed console never starts one.
func (c *Console) Close() {
	c.mu.Lock()
	c.started = true
	stop := c.stopRefresh
	done := c.refreshDone
	c.stopRefresh = nil
	c.mu.Unlock()

	if stop == nil {
		return
	}
	stop()
	<-done
}

func (c *Console) load(ctx context.Context, trigger string) error {
	ctx = observability.WithTrigger(ctx, trigger)
	seq := c.beginLoad()
	defer c.endLoad(seq)

	notifications, err := c.api.List(ctx)
	return c.applyLoad(ctx, seq, trigger, notifications, err)
}

func (c *Console) beginLoad() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.latestLoad++
	c.loading = true
	c.state = StateLoading
	c.listErr = ""
	return c.latestLoad
}

// endLoad clears the loading flag unless a newer load is in flight.
func (c *Console) endLoad(seq uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if seq != c.latestLoad {
		return
	}
	c.loading = false
	if c.state == StateLoading {
		c.state = StateLoadError
		c.listErr = loadErrorText
	}
}

func (c *Console) applyLoad(
	ctx context.Context,
	seq uint64,
	trigger string,
	notifications []domain.Notification,
	loadErr error,
) error {
	logger := c.log(ctx)

	c.mu.Lock()
	defer c.mu.Unlock()

	if seq != c.latestLoad {
		c.opts.Metrics.IncStaleLoadDiscarded()
		logger.Debug("discarding stale list response", zap.Uint64("seq", seq), zap.Uint64("latest", c.latestLoad))
		return nil
	}

	if loadErr != nil {
		c.state = StateLoadError
		c.listErr = loadErrorText
		c.notifications = nil
		c.opts.Metrics.IncListLoad(trigger, string(StateLoadError))
		logger.Warn("list load failed", zap.Error(loadErr))
		return loadErr
	}

	if notifications == nil {
		notifications = []domain.Notification{}
	}
	c.state = StateLoaded
	c.notifications = notifications
	c.opts.Metrics.IncListLoad(trigger, string(StateLoaded))
	return nil
}

func (c *Console) pushBanner(ctx context.Context, level BannerLevel, text string) {
	banner := Banner{
		ID:        uuid.NewString(),
		Level:     level,
		Text:      text,
		ExpiresAt: c.opts.Now().Add(c.opts.BannerTTL),
	}
	if err := c.banners.Push(ctx, c.sessionID, banner); err != nil {
		c.log(ctx).Warn("push banner failed", zap.Error(err))
		return
	}
	c.opts.Metrics.IncBannerPushed(level.String())
}

// log returns the base logger tagged with this session and the fields carried by ctx.
func (c *Console) log(ctx context.Context) *zap.Logger {
	return observability.WithContextLogger(c.opts.Logger, observability.WithSessionID(ctx, c.sessionID))
}

func (c *Console) keepDraft(form CreateForm) {
	c.mu.Lock()
	c.draft = form
	c.mu.Unlock()
}

func (c *Console) touch() {
	now := c.opts.Now()
	c.mu.Lock()
	c.lastActive = now
	c.mu.Unlock()
}

func validationDetail(err error) string {
	msg := err.Error()
	prefix := domain.ErrValidation.Error() + ": "
	if errors.Is(err, domain.ErrValidation) && strings.HasPrefix(msg, prefix) {
		return strings.TrimPrefix(msg, prefix)
	}
	return msg
}
